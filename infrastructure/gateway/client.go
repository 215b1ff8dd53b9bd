package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"

	domainAnalytics "github.com/recuperafly/whatsapp-campaign-console/domains/analytics"
	domainCampaign "github.com/recuperafly/whatsapp-campaign-console/domains/campaign"
)

// Client talks to the remote messaging backend. Every call carries the bearer
// token from the session store; a 401 reply surfaces as ErrSessionExpired so
// callers can clear the session and force a re-login.
type Client struct {
	baseURL      string
	analyticsURL string
	httpClient   *http.Client
	session      domainCampaign.ISessionStore
}

// NewClient creates a gateway client with the given request timeout
func NewClient(baseURL, analyticsURL string, timeout time.Duration, session domainCampaign.ISessionStore) *Client {
	return &Client{
		baseURL:      baseURL,
		analyticsURL: analyticsURL,
		httpClient:   &http.Client{Timeout: timeout},
		session:      session,
	}
}

type instancesEnvelope struct {
	Status    bool                       `json:"status"`
	Message   string                     `json:"message"`
	Instances []*domainCampaign.Instance `json:"instances"`
}

type templatesEnvelope struct {
	Status    bool                       `json:"status"`
	Message   string                     `json:"message"`
	Templates []*domainCampaign.Template `json:"templates"`
	Total     int                        `json:"total"`
}

type campaignsEnvelope struct {
	Status          bool                                  `json:"status"`
	Message         string                                `json:"message"`
	Total           int                                   `json:"total"`
	Messages        []domainCampaign.RemoteCampaignRecord `json:"messages"`
	CumulativeStats domainCampaign.CampaignStats          `json:"cumulativeStats"`
}

type deleteEnvelope struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
}

type analyticsEnvelope struct {
	Status  bool                     `json:"status"`
	Message string                   `json:"message"`
	Data    *domainAnalytics.Summary `json:"data"`
}

// Instances fetches all device instances, connected or not
func (c *Client) Instances(ctx context.Context) ([]*domainCampaign.Instance, error) {
	var out instancesEnvelope
	if err := c.post(ctx, "/instance/all", map[string]any{}, &out); err != nil {
		return nil, err
	}
	if !out.Status {
		return nil, remoteError(out.Message, "failed to fetch instances")
	}
	return out.Instances, nil
}

// Templates fetches one page of templates, optionally filtered by search
func (c *Client) Templates(ctx context.Context, page, limit int, search string) ([]*domainCampaign.Template, int, error) {
	body := map[string]any{"page": page, "limit": limit, "search": search}
	var out templatesEnvelope
	if err := c.post(ctx, "/template/all", body, &out); err != nil {
		return nil, 0, err
	}
	if !out.Status {
		return nil, 0, remoteError(out.Message, "failed to fetch templates")
	}
	return out.Templates, out.Total, nil
}

// Campaigns fetches one page of the campaign listing. The endpoint takes a
// 0-based page index.
func (c *Client) Campaigns(ctx context.Context, page, limit int) (*domainCampaign.RemoteCampaignPage, error) {
	body := map[string]any{"page": page, "limit": limit}
	var out campaignsEnvelope
	if err := c.post(ctx, "/template/message/all", body, &out); err != nil {
		return nil, err
	}
	if !out.Status {
		return nil, remoteError(out.Message, "failed to fetch campaigns")
	}
	return &domainCampaign.RemoteCampaignPage{
		Total:           out.Total,
		Messages:        out.Messages,
		CumulativeStats: out.CumulativeStats,
	}, nil
}

// DeleteCampaign removes a campaign on the backend and returns its message
func (c *Client) DeleteCampaign(ctx context.Context, campaignID string) (string, error) {
	var out deleteEnvelope
	if err := c.post(ctx, "/campaigns/delete", map[string]any{"campaignId": campaignID}, &out); err != nil {
		return "", err
	}
	if !out.Status {
		return "", remoteError(out.Message, "failed to delete campaign")
	}
	return out.Message, nil
}

// SendTemplate dispatches one recipient. The decoded body is returned even
// when its status flag is false: interpreting a logical failure is send
// policy, not transport.
func (c *Client) SendTemplate(ctx context.Context, req domainCampaign.SendTemplateRequest) (*domainCampaign.SendTemplateResponse, error) {
	var out domainCampaign.SendTemplateResponse
	if err := c.post(ctx, "/template/send", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Analytics fetches the dashboard summary for the given time range
func (c *Client) Analytics(ctx context.Context, timeRange string) (*domainAnalytics.Summary, error) {
	endpoint := fmt.Sprintf("%s/analytics?timeRange=%s", c.analyticsURL, url.QueryEscape(timeRange))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &domainCampaign.NetworkError{Err: err}
	}

	var out analyticsEnvelope
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	if !out.Status || out.Data == nil {
		return nil, remoteError(out.Message, "failed to fetch analytics")
	}
	return out.Data, nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return &domainCampaign.NetworkError{Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return &domainCampaign.NetworkError{Err: err}
	}

	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	token, err := c.session.Token(req.Context())
	if err != nil {
		return err
	}
	if token == "" {
		return domainCampaign.ErrSessionExpired
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &domainCampaign.NetworkError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		logrus.WithField("url", req.URL.Path).Warn("Gateway: Unauthorized response received")
		return domainCampaign.ErrSessionExpired
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return &domainCampaign.NetworkError{Err: fmt.Errorf("backend returned %s", resp.Status)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &domainCampaign.NetworkError{Err: err}
	}
	return nil
}

func remoteError(message, fallback string) error {
	if message == "" {
		message = fallback
	}
	return errors.New(message)
}
