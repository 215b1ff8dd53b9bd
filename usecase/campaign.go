package usecase

import (
	"context"

	"github.com/sirupsen/logrus"

	domainCampaign "github.com/recuperafly/whatsapp-campaign-console/domains/campaign"
)

// CampaignService implements ICampaignUsecase
type CampaignService struct {
	gateway domainCampaign.IMessageGateway
	history domainCampaign.IHistoryRepository
}

// NewCampaignService creates a new campaign service
func NewCampaignService(gateway domainCampaign.IMessageGateway, history domainCampaign.IHistoryRepository) *CampaignService {
	return &CampaignService{gateway: gateway, history: history}
}

// ListCampaigns returns one page of the campaign dashboard projection. page
// is 1-based here; the backend counts pages from zero.
func (s *CampaignService) ListCampaigns(ctx context.Context, page, pageSize int) (*domainCampaign.CampaignListResponse, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 10
	}

	instances, err := s.gateway.Instances(ctx)
	if err != nil {
		return nil, err
	}
	instancesByID := make(map[string]*domainCampaign.Instance, len(instances))
	for _, instance := range instances {
		instancesByID[instance.ID] = instance
	}

	remote, err := s.gateway.Campaigns(ctx, page-1, pageSize)
	if err != nil {
		return nil, err
	}

	campaigns := make([]*domainCampaign.Campaign, 0, len(remote.Messages))
	for _, record := range remote.Messages {
		campaigns = append(campaigns, projectCampaign(record, instancesByID))
	}

	totalPages := 0
	if remote.Total > 0 {
		totalPages = (remote.Total + pageSize - 1) / pageSize
	}

	logrus.WithFields(logrus.Fields{
		"page":  page,
		"count": len(campaigns),
		"total": remote.Total,
	}).Info("Campaign: Listed campaigns")

	return &domainCampaign.CampaignListResponse{
		Campaigns:  campaigns,
		Total:      remote.Total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
		Stats:      remote.CumulativeStats,
	}, nil
}

// projectCampaign maps a backend campaign row onto the local projection. The
// listing endpoint only carries template ids, so the reference gets a short
// synthetic name.
func projectCampaign(record domainCampaign.RemoteCampaignRecord, instancesByID map[string]*domainCampaign.Instance) *domainCampaign.Campaign {
	templateID := record.TemplateID
	shortID := templateID
	if len(shortID) > 4 {
		shortID = shortID[len(shortID)-4:]
	}

	resolved := make([]domainCampaign.Instance, 0, len(record.InstanceIDs))
	for _, id := range record.InstanceIDs {
		if instance, ok := instancesByID[id]; ok {
			resolved = append(resolved, *instance)
		}
	}

	recipients := make([]domainCampaign.Recipient, 0, len(record.Recipients))
	for _, wire := range record.Recipients {
		variables := wire.Variables
		if variables == nil {
			variables = make(map[string]string)
		}
		recipients = append(recipients, domainCampaign.Recipient{
			Phone:     wire.Phone,
			Name:      wire.Name,
			Variables: variables,
		})
	}

	return &domainCampaign.Campaign{
		ID:   record.ID,
		Name: record.Name,
		Template: domainCampaign.TemplateRef{
			ID:          templateID,
			Name:        "Template " + shortID,
			MessageType: "Text",
		},
		Instances:      resolved,
		Recipients:     recipients,
		Status:         record.Status,
		TotalMessages:  record.Statistics.Total,
		SentMessages:   record.Statistics.Sent,
		FailedMessages: record.Statistics.Failed,
		CreatedAt:      record.CreatedAt,
		DelayRange:     record.Settings.DelayRange,
	}
}

// DeleteCampaign removes a campaign on the backend and returns its message
func (s *CampaignService) DeleteCampaign(ctx context.Context, campaignID string) (string, error) {
	if campaignID == "" {
		return "", &domainCampaign.ValidationError{Field: "campaignId", Reason: "campaign id is required"}
	}

	message, err := s.gateway.DeleteCampaign(ctx, campaignID)
	if err != nil {
		return "", err
	}

	logrus.WithFields(logrus.Fields{
		"campaign_id": campaignID,
	}).Info("Campaign: Campaign deleted")
	return message, nil
}

// ListInstances returns every instance known to the backend
func (s *CampaignService) ListInstances(ctx context.Context) ([]*domainCampaign.Instance, error) {
	return s.gateway.Instances(ctx)
}

// ListConnectedInstances returns only the instances selectable for sending
func (s *CampaignService) ListConnectedInstances(ctx context.Context) ([]*domainCampaign.Instance, error) {
	instances, err := s.gateway.Instances(ctx)
	if err != nil {
		return nil, err
	}

	connected := make([]*domainCampaign.Instance, 0, len(instances))
	for _, instance := range instances {
		if instance.Connected() {
			connected = append(connected, instance)
		}
	}
	return connected, nil
}

// ListTemplates returns one page of templates, optionally filtered by a
// search term. The template endpoint counts pages from one.
func (s *CampaignService) ListTemplates(ctx context.Context, page, pageSize int, search string) (*domainCampaign.TemplateListResponse, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 5
	}

	templates, total, err := s.gateway.Templates(ctx, page, pageSize, search)
	if err != nil {
		return nil, err
	}

	totalPages := 0
	if total > 0 {
		totalPages = (total + pageSize - 1) / pageSize
	}

	return &domainCampaign.TemplateListResponse{
		Templates:  templates,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}, nil
}

// ListHistory returns one page of locally archived send operations, newest
// first
func (s *CampaignService) ListHistory(ctx context.Context, page, pageSize int) ([]*domainCampaign.SendOperation, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 10
	}
	return s.history.ListOperations(ctx, pageSize, (page-1)*pageSize)
}
