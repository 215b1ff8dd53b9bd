package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainCampaign "github.com/recuperafly/whatsapp-campaign-console/domains/campaign"
)

type staticSession struct {
	token string
}

func (s *staticSession) Token(context.Context) (string, error)  { return s.token, nil }
func (s *staticSession) SetToken(context.Context, string) error { return nil }
func (s *staticSession) Clear(context.Context) error            { return nil }

func newTestClient(t *testing.T, handler http.HandlerFunc, token string) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewClient(server.URL, server.URL, 5*time.Second, &staticSession{token: token})
}

func TestClientAuthorization(t *testing.T) {
	t.Run("sends the bearer token", func(t *testing.T) {
		var gotAuth string
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			_ = json.NewEncoder(w).Encode(map[string]any{"status": true, "instances": []any{}})
		}, "tok-123")

		_, err := client.Instances(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "Bearer tok-123", gotAuth)
	})

	t.Run("missing token short-circuits", func(t *testing.T) {
		called := false
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			called = true
		}, "")

		_, err := client.Instances(context.Background())
		assert.ErrorIs(t, err, domainCampaign.ErrSessionExpired)
		assert.False(t, called)
	})

	t.Run("401 surfaces as session expired", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}, "tok-123")

		_, err := client.Instances(context.Background())
		assert.ErrorIs(t, err, domainCampaign.ErrSessionExpired)
	})

	t.Run("5xx is a network error", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}, "tok-123")

		_, err := client.Instances(context.Background())

		var networkErr *domainCampaign.NetworkError
		assert.ErrorAs(t, err, &networkErr)
	})
}

func TestClientCampaigns(t *testing.T) {
	var gotPath string
	var gotBody map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": true,
			"total":  14,
			"messages": []map[string]any{
				{"_id": "camp-1", "name": "September push", "templateId": "tpl-1"},
			},
			"cumulativeStats": map[string]any{"total": 14, "completed": 12, "failed": 2},
		})
	}, "tok-123")

	page, err := client.Campaigns(context.Background(), 1, 10)
	require.NoError(t, err)

	assert.Equal(t, "/template/message/all", gotPath)
	assert.Equal(t, float64(1), gotBody["page"])
	assert.Equal(t, float64(10), gotBody["limit"])

	assert.Equal(t, 14, page.Total)
	require.Len(t, page.Messages, 1)
	assert.Equal(t, "camp-1", page.Messages[0].ID)
	assert.Equal(t, 12, page.CumulativeStats.Completed)
}

func TestClientSendTemplate(t *testing.T) {
	t.Run("returns the decoded body even on logical failure", func(t *testing.T) {
		var gotReq domainCampaign.SendTemplateRequest
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/template/send", r.URL.Path)
			_ = json.NewDecoder(r.Body).Decode(&gotReq)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"status":  false,
				"message": "instance disconnected",
			})
		}, "tok-123")

		resp, err := client.SendTemplate(context.Background(), domainCampaign.SendTemplateRequest{
			Name:        "September push",
			TemplateID:  "tpl-1",
			InstanceIDs: []string{"inst-1"},
			Recipients:  []domainCampaign.WireRecipient{{Phone: "111", Name: "Alice"}},
			DelayRange:  domainCampaign.DelayRange{Start: 3, End: 5},
		})
		require.NoError(t, err)

		assert.False(t, resp.Status)
		assert.Equal(t, "instance disconnected", resp.Message)
		require.Len(t, gotReq.Recipients, 1)
		assert.Equal(t, "111", gotReq.Recipients[0].Phone)
		assert.Equal(t, domainCampaign.DelayRange{Start: 3, End: 5}, gotReq.DelayRange)
	})

	t.Run("decodes outcome arrays", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"status": true,
				"responses": []map[string]any{
					{"phone": "111", "status": true, "instanceId": "inst-1"},
				},
			})
		}, "tok-123")

		resp, err := client.SendTemplate(context.Background(), domainCampaign.SendTemplateRequest{})
		require.NoError(t, err)
		require.Len(t, resp.Responses, 1)
		assert.Equal(t, "inst-1", resp.Responses[0].InstanceID)
	})
}

func TestClientDeleteCampaign(t *testing.T) {
	var gotBody map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/campaigns/delete", r.URL.Path)
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(map[string]any{"status": true, "message": "Campaign removed"})
	}, "tok-123")

	message, err := client.DeleteCampaign(context.Background(), "camp-1")
	require.NoError(t, err)
	assert.Equal(t, "Campaign removed", message)
	assert.Equal(t, "camp-1", gotBody["campaignId"])
}

func TestClientAnalytics(t *testing.T) {
	t.Run("passes the time range as a query parameter", func(t *testing.T) {
		var gotQuery string
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodGet, r.Method)
			assert.Equal(t, "/analytics", r.URL.Path)
			gotQuery = r.URL.Query().Get("timeRange")
			_ = json.NewEncoder(w).Encode(map[string]any{
				"status": true,
				"data":   map[string]any{"totalMessages": 1523},
			})
		}, "tok-123")

		summary, err := client.Analytics(context.Background(), "7d")
		require.NoError(t, err)
		assert.Equal(t, "7d", gotQuery)
		assert.Equal(t, 1523, summary.TotalMessages)
	})

	t.Run("logical failure carries the backend message", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{"status": false, "message": "range not supported"})
		}, "tok-123")

		_, err := client.Analytics(context.Background(), "7d")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "range not supported")
	})
}
