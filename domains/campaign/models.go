package campaign

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// CampaignStatus represents the final status reported by the backend for a campaign
type CampaignStatus string

const (
	CampaignStatusCompleted CampaignStatus = "completed"
	CampaignStatusFailed    CampaignStatus = "failed"
)

// SendState represents the state of one in-flight send operation
type SendState string

const (
	SendStateIdle      SendState = "idle"
	SendStateSending   SendState = "sending"
	SendStateCompleted SendState = "completed"
	SendStateFailed    SendState = "failed"
)

// MaxVariables is the number of free-form template variable slots per recipient
const MaxVariables = 10

// VariableKeys returns the fixed variable slot names: var1..var10
func VariableKeys() []string {
	keys := make([]string, 0, MaxVariables)
	for i := 1; i <= MaxVariables; i++ {
		keys = append(keys, fmt.Sprintf("var%d", i))
	}
	return keys
}

// Recipient is one target of a campaign send
type Recipient struct {
	Phone     string            `json:"phone"`
	Name      string            `json:"name"`
	Variables map[string]string `json:"variables"`
}

// BlankRecipient returns an empty recipient with all variable slots seeded.
// The wizard keeps at least one of these in the audience table at all times.
func BlankRecipient() Recipient {
	vars := make(map[string]string, MaxVariables)
	for _, key := range VariableKeys() {
		vars[key] = ""
	}
	return Recipient{Variables: vars}
}

// Valid reports whether the recipient can be dispatched to
func (r Recipient) Valid() bool {
	return strings.TrimSpace(r.Phone) != "" && strings.TrimSpace(r.Name) != ""
}

// FilteredVariables returns the variables map without empty-valued entries,
// the form the send endpoint expects
func (r Recipient) FilteredVariables() map[string]string {
	out := make(map[string]string)
	for key, value := range r.Variables {
		if strings.TrimSpace(value) != "" {
			out[key] = value
		}
	}
	return out
}

// SpreadsheetTable is the decoded form of an uploaded recipient file
type SpreadsheetTable struct {
	Headers []string            `json:"headers"`
	Rows    []map[string]string `json:"rows"`
}

// Column mapping target fields
const (
	FieldName  = "name"
	FieldPhone = "phone"
)

// ColumnMapping maps recipient fields (name, phone, var1..var10) to source
// column headers. An empty value means the field is not mapped.
type ColumnMapping map[string]string

// Ready reports whether the required name and phone mappings are both set
func (m ColumnMapping) Ready() bool {
	return m[FieldName] != "" && m[FieldPhone] != ""
}

// DelayRange is the inclusive-exclusive bound for the randomized pacing delay
// between consecutive dispatches, in seconds
type DelayRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// CampaignDraft is the wizard's product: a finalized campaign ready to send
type CampaignDraft struct {
	Name        string      `json:"name"`
	TemplateID  string      `json:"templateId"`
	InstanceIDs []string    `json:"instanceIds"`
	Recipients  []Recipient `json:"recipients"`
	DelayRange  DelayRange  `json:"delayRange"`
}

// DefaultDraft returns the empty draft the wizard starts from and resets to:
// a single blank recipient and the 3-5 second delay window
func DefaultDraft() CampaignDraft {
	return CampaignDraft{
		Recipients: []Recipient{BlankRecipient()},
		DelayRange: DelayRange{Start: 3, End: 5},
	}
}

// SendOutcome is one per-recipient result reported by the send endpoint
type SendOutcome struct {
	Phone      string `json:"phone"`
	Status     bool   `json:"status"`
	Message    string `json:"message"`
	InstanceID string `json:"instanceId"`
}

// Instance is a device/session endpoint capable of sending messages
type Instance struct {
	ID       string             `json:"_id"`
	Name     string             `json:"name"`
	WhatsApp InstanceConnection `json:"whatsapp"`
}

// InstanceConnection holds the connectivity state of an instance
type InstanceConnection struct {
	Status string `json:"status"`
	Phone  string `json:"phone,omitempty"`
}

// InstanceStatusConnected marks instances that are selectable for sending
const InstanceStatusConnected = "connected"

// Connected reports whether the instance can be selected for a campaign
func (i Instance) Connected() bool {
	return i.WhatsApp.Status == InstanceStatusConnected
}

// DisplayName returns the instance name, falling back to a short device label
func (i Instance) DisplayName() string {
	if i.Name != "" {
		return i.Name
	}
	id := i.ID
	if len(id) > 4 {
		id = id[len(id)-4:]
	}
	return "Device " + id
}

// TemplateButton is one interactive button attached to a template
type TemplateButton struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	URL   string `json:"url,omitempty"`
	Title string `json:"title,omitempty"`
}

// TemplateBody is the message structure of a template
type TemplateBody struct {
	Message string           `json:"message"`
	Header  string           `json:"header,omitempty"`
	Footer  string           `json:"footer,omitempty"`
	Buttons []TemplateButton `json:"button,omitempty"`
}

// Template is a pre-approved message body, owned by the remote backend
type Template struct {
	ID          string       `json:"_id"`
	Name        string       `json:"name"`
	MessageType string       `json:"messageType"`
	Body        TemplateBody `json:"template"`
}

// TemplateRef is the lightweight template reference carried by a campaign row
type TemplateRef struct {
	ID          string `json:"_id"`
	Name        string `json:"name"`
	MessageType string `json:"messageType"`
}

// Campaign is the read-mostly local projection of a backend campaign record
type Campaign struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	Template       TemplateRef    `json:"template"`
	Instances      []Instance     `json:"instances"`
	Recipients     []Recipient    `json:"recipients"`
	Status         CampaignStatus `json:"status"`
	TotalMessages  int            `json:"total_messages"`
	SentMessages   int            `json:"sent_messages"`
	FailedMessages int            `json:"failed_messages"`
	CreatedAt      time.Time      `json:"created_at"`
	DelayRange     DelayRange     `json:"delay_range"`
}

// CampaignStats holds the cumulative counters across all campaigns
type CampaignStats struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
}

// CampaignListResponse for pagination
type CampaignListResponse struct {
	Campaigns  []*Campaign   `json:"campaigns"`
	Total      int           `json:"total"`
	Page       int           `json:"page"`
	PageSize   int           `json:"page_size"`
	TotalPages int           `json:"total_pages"`
	Stats      CampaignStats `json:"stats"`
}

// TemplateListResponse for pagination
type TemplateListResponse struct {
	Templates  []*Template `json:"templates"`
	Total      int         `json:"total"`
	Page       int         `json:"page"`
	PageSize   int         `json:"page_size"`
	TotalPages int         `json:"total_pages"`
}

// SendProgress is the observable snapshot of one send operation
type SendProgress struct {
	OperationID  uuid.UUID     `json:"operation_id"`
	State        SendState     `json:"state"`
	CurrentIndex int           `json:"current_index"`
	CurrentPhone string        `json:"current_phone,omitempty"`
	Total        int           `json:"total"`
	Outcomes     []SendOutcome `json:"outcomes"`
	Error        string        `json:"error,omitempty"`
}

// SendOperation is the archived record of a finished (or aborted) send
type SendOperation struct {
	ID          uuid.UUID     `json:"id"`
	Name        string        `json:"name"`
	TemplateID  string        `json:"template_id"`
	InstanceIDs []string      `json:"instance_ids"`
	State       SendState     `json:"state"`
	Total       int           `json:"total"`
	Sent        int           `json:"sent"`
	Failed      int           `json:"failed"`
	Error       string        `json:"error,omitempty"`
	Outcomes    []SendOutcome `json:"outcomes"`
	StartedAt   time.Time     `json:"started_at"`
	FinishedAt  time.Time     `json:"finished_at"`
}
