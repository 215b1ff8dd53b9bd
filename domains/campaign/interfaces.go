package campaign

import (
	"context"
	"io"

	"github.com/google/uuid"
)

// IMessageGateway is the HTTP boundary to the remote messaging backend. All
// business logic (template storage, dispatch, delivery tracking) lives behind
// it; this repo only consumes the JSON contract.
type IMessageGateway interface {
	Instances(ctx context.Context) ([]*Instance, error)
	Templates(ctx context.Context, page, limit int, search string) ([]*Template, int, error)
	Campaigns(ctx context.Context, page, limit int) (*RemoteCampaignPage, error)
	DeleteCampaign(ctx context.Context, campaignID string) (string, error)
	SendTemplate(ctx context.Context, req SendTemplateRequest) (*SendTemplateResponse, error)
}

// ISessionStore holds the bearer token for the remote API
type ISessionStore interface {
	Token(ctx context.Context) (string, error)
	SetToken(ctx context.Context, token string) error
	// Clear wipes all session state; called on an unauthorized response
	Clear(ctx context.Context) error
}

// IHistoryRepository archives finished send operations locally
type IHistoryRepository interface {
	SaveOperation(ctx context.Context, op *SendOperation) error
	GetOperation(ctx context.Context, id uuid.UUID) (*SendOperation, error)
	ListOperations(ctx context.Context, limit, offset int) ([]*SendOperation, int, error)
	InitializeSchema() error
}

// IImporterUsecase turns uploaded spreadsheets into recipient records
type IImporterUsecase interface {
	Parse(filename string, r io.Reader) (*SpreadsheetTable, error)
	MapColumns(table *SpreadsheetTable, mapping ColumnMapping) ([]Recipient, error)
	AppendImported(existing, imported []Recipient) []Recipient
	// RemoveDuplicates returns the deduplicated list and the number removed;
	// removed == 0 is the benign "no duplicates found" case
	RemoveDuplicates(recipients []Recipient) ([]Recipient, int)
}

// ICampaignUsecase exposes the campaign list projection and its collaborators
type ICampaignUsecase interface {
	ListCampaigns(ctx context.Context, page, pageSize int) (*CampaignListResponse, error)
	DeleteCampaign(ctx context.Context, campaignID string) (string, error)
	ListInstances(ctx context.Context) ([]*Instance, error)
	ListConnectedInstances(ctx context.Context) ([]*Instance, error)
	ListTemplates(ctx context.Context, page, pageSize int, search string) (*TemplateListResponse, error)
	ListHistory(ctx context.Context, page, pageSize int) ([]*SendOperation, int, error)
}

// ISendOrchestrator runs one campaign send at a time
type ISendOrchestrator interface {
	// Start begins the sequential dispatch loop in the background. It fails
	// when a send is already in flight or the draft misses recipients or
	// instances.
	Start(ctx context.Context, draft CampaignDraft) (uuid.UUID, error)
	Progress() SendProgress
	// Cancel requests a cooperative stop; honored at the top of each loop
	// iteration and during the inter-message delay
	Cancel()
}
