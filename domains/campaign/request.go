package campaign

import "time"

// WireRecipient is the recipient shape accepted by POST /template/send.
// Variables carries only non-empty values.
type WireRecipient struct {
	Phone     string            `json:"phone"`
	Name      string            `json:"name"`
	Variables map[string]string `json:"variables"`
}

// SendTemplateRequest is the payload for one dispatch: the campaign header
// plus a single-element recipient list
type SendTemplateRequest struct {
	Name        string          `json:"name"`
	TemplateID  string          `json:"templateId"`
	InstanceIDs []string        `json:"instanceIds"`
	Recipients  []WireRecipient `json:"recipients"`
	DelayRange  DelayRange      `json:"delayRange"`
}

// SendTemplateResponse is the loosely specified reply of the send endpoint.
// The per-recipient outcomes arrive in one of three shapes; Normalize picks
// them apart.
type SendTemplateResponse struct {
	Status    bool          `json:"status"`
	Message   string        `json:"message,omitempty"`
	Responses []SendOutcome `json:"responses,omitempty"`
	Response  *SendOutcome  `json:"response,omitempty"`
	Data      []SendOutcome `json:"data,omitempty"`
}

// Normalize resolves the outcome list with the documented precedence:
// responses array, then single response object, then data array. When none
// match it synthesizes a failed outcome for the dispatched recipient so the
// progress log never loses a row to an undocumented wire shape.
func (r *SendTemplateResponse) Normalize(phone, fallbackInstanceID string) []SendOutcome {
	switch {
	case len(r.Responses) > 0:
		return r.Responses
	case r.Response != nil:
		return []SendOutcome{*r.Response}
	case len(r.Data) > 0:
		return r.Data
	}
	if fallbackInstanceID == "" {
		fallbackInstanceID = "unknown"
	}
	return []SendOutcome{{
		Phone:      phone,
		Status:     false,
		Message:    "Invalid response format from server",
		InstanceID: fallbackInstanceID,
	}}
}

// RemoteCampaignRecord is one row of POST /template/message/all
type RemoteCampaignRecord struct {
	ID          string           `json:"_id"`
	Name        string           `json:"name"`
	TemplateID  string           `json:"templateId"`
	InstanceIDs []string         `json:"instanceIds"`
	Recipients  []WireRecipient  `json:"recipients"`
	Status      CampaignStatus   `json:"status"`
	Statistics  RemoteStatistics `json:"statistics"`
	CreatedAt   time.Time        `json:"createdAt"`
	Settings    RemoteSettings   `json:"settings"`
}

// RemoteStatistics holds the per-campaign message counters
type RemoteStatistics struct {
	Total  int `json:"total"`
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
}

// RemoteSettings holds the campaign settings echoed back by the backend
type RemoteSettings struct {
	DelayRange DelayRange `json:"delayRange"`
}

// RemoteCampaignPage is the paginated listing reply
type RemoteCampaignPage struct {
	Total           int                    `json:"total"`
	Messages        []RemoteCampaignRecord `json:"messages"`
	CumulativeStats CampaignStats          `json:"cumulativeStats"`
}

// ImportRequest carries the column mapping for a previously parsed upload
type ImportRequest struct {
	Table   *SpreadsheetTable `json:"table"`
	Mapping ColumnMapping     `json:"mapping"`
}
