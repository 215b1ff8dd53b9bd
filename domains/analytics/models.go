package analytics

// TimeRange values accepted by the analytics endpoint
const (
	Range24h = "24h"
	Range7d  = "7d"
	Range30d = "30d"
)

// ValidRange reports whether the given time range is one the backend accepts
func ValidRange(r string) bool {
	return r == Range24h || r == Range7d || r == Range30d
}

// TemplateStats ranks a template by send volume
type TemplateStats struct {
	ID           string  `json:"_id"`
	Name         string  `json:"name"`
	MessagesSent int     `json:"messagesSent"`
	SuccessRate  float64 `json:"successRate"`
}

// Activity is one entry of the recent-activity feed
type Activity struct {
	Type  string `json:"type"` // message, template, connection
	Count int    `json:"count,omitempty"`
	Time  string `json:"time"`
}

// DailyCount is one point of the daily message volume series
type DailyCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// MessageTypes breaks sent messages down by content kind
type MessageTypes struct {
	Text      int `json:"text"`
	Media     int `json:"media"`
	Documents int `json:"documents"`
}

// ChatStats groups the chart series
type ChatStats struct {
	DailyMessages []DailyCount `json:"dailyMessages"`
	MessageTypes  MessageTypes `json:"messageTypes"`
}

// Summary is the full analytics snapshot served by the backend
type Summary struct {
	TotalMessages         int             `json:"totalMessages"`
	SuccessRate           float64         `json:"successRate"`
	MessageGrowth         float64         `json:"messageGrowth"`
	TotalInstances        int             `json:"totalInstances"`
	ConnectedInstances    int             `json:"connectedInstances"`
	DisconnectedInstances int             `json:"disconnectedInstances"`
	TotalTemplates        int             `json:"totalTemplates"`
	RecentActivity        []Activity      `json:"recentActivity"`
	ChatStats             ChatStats       `json:"chatStats"`
	TopTemplates          []TemplateStats `json:"topTemplates"`
}
