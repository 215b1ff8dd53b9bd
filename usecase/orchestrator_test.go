package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainCampaign "github.com/recuperafly/whatsapp-campaign-console/domains/campaign"
)

// stepResult scripts the gateway reply for one dispatch
type stepResult struct {
	resp *domainCampaign.SendTemplateResponse
	err  error
}

type fakeGateway struct {
	mu       sync.Mutex
	steps    []stepResult
	requests []domainCampaign.SendTemplateRequest
	// block, when set, holds every SendTemplate call until released
	block chan struct{}
}

func (g *fakeGateway) SendTemplate(ctx context.Context, req domainCampaign.SendTemplateRequest) (*domainCampaign.SendTemplateResponse, error) {
	if g.block != nil {
		select {
		case <-g.block:
		case <-ctx.Done():
			return nil, &domainCampaign.NetworkError{Err: ctx.Err()}
		}
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.requests = append(g.requests, req)
	step := g.steps[len(g.requests)-1]
	return step.resp, step.err
}

func (g *fakeGateway) sentRequests() []domainCampaign.SendTemplateRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]domainCampaign.SendTemplateRequest(nil), g.requests...)
}

func (g *fakeGateway) Instances(context.Context) ([]*domainCampaign.Instance, error) {
	return nil, nil
}

func (g *fakeGateway) Templates(context.Context, int, int, string) ([]*domainCampaign.Template, int, error) {
	return nil, 0, nil
}

func (g *fakeGateway) Campaigns(context.Context, int, int) (*domainCampaign.RemoteCampaignPage, error) {
	return nil, nil
}

func (g *fakeGateway) DeleteCampaign(context.Context, string) (string, error) {
	return "", nil
}

type fakeSession struct {
	mu      sync.Mutex
	token   string
	cleared bool
}

func (s *fakeSession) Token(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, nil
}

func (s *fakeSession) SetToken(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	return nil
}

func (s *fakeSession) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.cleared = true
	return nil
}

func (s *fakeSession) wasCleared() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cleared
}

type fakeHistory struct {
	mu  sync.Mutex
	ops []*domainCampaign.SendOperation
}

func (h *fakeHistory) SaveOperation(_ context.Context, op *domainCampaign.SendOperation) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ops = append(h.ops, op)
	return nil
}

func (h *fakeHistory) GetOperation(context.Context, uuid.UUID) (*domainCampaign.SendOperation, error) {
	return nil, nil
}

func (h *fakeHistory) ListOperations(context.Context, int, int) ([]*domainCampaign.SendOperation, int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.ops, len(h.ops), nil
}

func (h *fakeHistory) InitializeSchema() error { return nil }

func (h *fakeHistory) saved() []*domainCampaign.SendOperation {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.ops
}

func okResponse(phone, instanceID string) *domainCampaign.SendTemplateResponse {
	return &domainCampaign.SendTemplateResponse{
		Status: true,
		Responses: []domainCampaign.SendOutcome{
			{Phone: phone, Status: true, Message: "queued", InstanceID: instanceID},
		},
	}
}

func testDraft(phones ...string) domainCampaign.CampaignDraft {
	draft := domainCampaign.CampaignDraft{
		Name:        "September push",
		TemplateID:  "tpl-12345678",
		InstanceIDs: []string{"inst-1", "inst-2"},
		DelayRange:  domainCampaign.DelayRange{Start: 1, End: 2},
	}
	for _, phone := range phones {
		draft.Recipients = append(draft.Recipients, domainCampaign.Recipient{
			Phone:     phone,
			Name:      "Recipient " + phone,
			Variables: map[string]string{"var1": "hello", "var2": ""},
		})
	}
	return draft
}

func TestOrchestratorSuccessfulRun(t *testing.T) {
	gateway := &fakeGateway{steps: []stepResult{
		{resp: okResponse("111", "inst-1")},
		{resp: okResponse("222", "inst-1")},
		{resp: okResponse("333", "inst-2")},
	}}
	session := &fakeSession{token: "tok"}
	history := &fakeHistory{}

	completed := false
	orch := NewSendOrchestrator(gateway, session, history, time.Millisecond)
	orch.OnCompleted(func() { completed = true })

	opID, err := orch.Start(context.Background(), testDraft("111", "222", "333"))
	require.NoError(t, err)
	orch.Wait()

	progress := orch.Progress()
	assert.Equal(t, domainCampaign.SendStateCompleted, progress.State)
	assert.Equal(t, opID, progress.OperationID)
	assert.Equal(t, 3, progress.Total)
	require.Len(t, progress.Outcomes, 3)
	assert.Equal(t, "111", progress.Outcomes[0].Phone)
	assert.Equal(t, "333", progress.Outcomes[2].Phone)
	assert.True(t, completed)

	requests := gateway.sentRequests()
	require.Len(t, requests, 3)
	for i, req := range requests {
		require.Len(t, req.Recipients, 1, "request %d must carry one recipient", i)
		assert.Equal(t, "September push", req.Name)
		assert.Equal(t, []string{"inst-1", "inst-2"}, req.InstanceIDs)
		// empty variables are stripped before hitting the wire
		assert.Equal(t, map[string]string{"var1": "hello"}, req.Recipients[0].Variables)
	}

	ops := history.saved()
	require.Len(t, ops, 1)
	assert.Equal(t, opID, ops[0].ID)
	assert.Equal(t, 3, ops[0].Sent)
	assert.Equal(t, 0, ops[0].Failed)
	assert.Equal(t, domainCampaign.SendStateCompleted, ops[0].State)
}

func TestOrchestratorUnauthorizedAbort(t *testing.T) {
	gateway := &fakeGateway{steps: []stepResult{
		{resp: okResponse("111", "inst-1")},
		{err: domainCampaign.ErrSessionExpired},
	}}
	session := &fakeSession{token: "tok"}
	history := &fakeHistory{}

	completedCount := 0
	orch := NewSendOrchestrator(gateway, session, history, time.Millisecond)
	orch.OnCompleted(func() { completedCount++ })

	_, err := orch.Start(context.Background(), testDraft("111", "222", "333"))
	require.NoError(t, err)
	orch.Wait()

	progress := orch.Progress()
	assert.Equal(t, domainCampaign.SendStateFailed, progress.State)
	assert.Len(t, progress.Outcomes, 1)
	assert.Contains(t, progress.Error, "session expired")
	assert.True(t, session.wasCleared())
	assert.Len(t, gateway.sentRequests(), 2)
	assert.Zero(t, completedCount)

	ops := history.saved()
	require.Len(t, ops, 1)
	assert.Equal(t, domainCampaign.SendStateFailed, ops[0].State)
}

func TestOrchestratorDispatchFailureAbort(t *testing.T) {
	gateway := &fakeGateway{steps: []stepResult{
		{resp: okResponse("111", "inst-1")},
		{resp: &domainCampaign.SendTemplateResponse{Status: false, Message: "instance disconnected"}},
	}}
	session := &fakeSession{token: "tok"}
	history := &fakeHistory{}

	orch := NewSendOrchestrator(gateway, session, history, time.Millisecond)

	_, err := orch.Start(context.Background(), testDraft("111", "222", "333"))
	require.NoError(t, err)
	orch.Wait()

	progress := orch.Progress()
	assert.Equal(t, domainCampaign.SendStateFailed, progress.State)
	assert.Len(t, progress.Outcomes, 1)
	assert.Contains(t, progress.Error, "222")
	assert.Contains(t, progress.Error, "instance disconnected")
	assert.False(t, session.wasCleared())
}

func TestOrchestratorOutcomeNormalization(t *testing.T) {
	gateway := &fakeGateway{steps: []stepResult{
		{resp: &domainCampaign.SendTemplateResponse{
			Status:   true,
			Response: &domainCampaign.SendOutcome{Phone: "111", Status: true, InstanceID: "inst-1"},
		}},
		{resp: &domainCampaign.SendTemplateResponse{
			Status: true,
			Data: []domainCampaign.SendOutcome{
				{Phone: "222", Status: true, InstanceID: "inst-2"},
			},
		}},
		{resp: &domainCampaign.SendTemplateResponse{Status: true}},
	}}
	session := &fakeSession{token: "tok"}
	history := &fakeHistory{}

	orch := NewSendOrchestrator(gateway, session, history, time.Millisecond)

	_, err := orch.Start(context.Background(), testDraft("111", "222", "333"))
	require.NoError(t, err)
	orch.Wait()

	progress := orch.Progress()
	assert.Equal(t, domainCampaign.SendStateCompleted, progress.State)
	require.Len(t, progress.Outcomes, 3)
	assert.Equal(t, "111", progress.Outcomes[0].Phone)
	assert.Equal(t, "222", progress.Outcomes[1].Phone)

	// undocumented shape synthesizes a failed outcome
	fallback := progress.Outcomes[2]
	assert.Equal(t, "333", fallback.Phone)
	assert.False(t, fallback.Status)
	assert.Equal(t, "Invalid response format from server", fallback.Message)
	assert.Equal(t, "inst-1", fallback.InstanceID)
}

func TestOrchestratorRejectsConcurrentStart(t *testing.T) {
	gateway := &fakeGateway{
		steps: []stepResult{{resp: okResponse("111", "inst-1")}},
		block: make(chan struct{}),
	}
	session := &fakeSession{token: "tok"}
	history := &fakeHistory{}

	orch := NewSendOrchestrator(gateway, session, history, time.Millisecond)

	_, err := orch.Start(context.Background(), testDraft("111"))
	require.NoError(t, err)

	_, err = orch.Start(context.Background(), testDraft("222"))
	assert.ErrorIs(t, err, domainCampaign.ErrSendInProgress)

	close(gateway.block)
	orch.Wait()

	// finished runs free the slot again
	gateway.mu.Lock()
	gateway.steps = append(gateway.steps, stepResult{resp: okResponse("222", "inst-1")})
	gateway.block = nil
	gateway.mu.Unlock()

	_, err = orch.Start(context.Background(), testDraft("222"))
	require.NoError(t, err)
	orch.Wait()
}

func TestOrchestratorCancellation(t *testing.T) {
	gateway := &fakeGateway{
		steps: []stepResult{{resp: okResponse("111", "inst-1")}, {}, {}},
		block: make(chan struct{}),
	}
	session := &fakeSession{token: "tok"}
	history := &fakeHistory{}

	orch := NewSendOrchestrator(gateway, session, history, time.Millisecond)

	_, err := orch.Start(context.Background(), testDraft("111", "222", "333"))
	require.NoError(t, err)

	orch.Cancel()
	orch.Wait()

	progress := orch.Progress()
	assert.Equal(t, domainCampaign.SendStateFailed, progress.State)
	assert.Contains(t, progress.Error, "cancelled")
}

func TestOrchestratorValidatesDraft(t *testing.T) {
	orch := NewSendOrchestrator(&fakeGateway{}, &fakeSession{}, &fakeHistory{}, time.Millisecond)

	t.Run("no recipients", func(t *testing.T) {
		draft := testDraft()
		_, err := orch.Start(context.Background(), draft)

		var validationErr *domainCampaign.ValidationError
		assert.ErrorAs(t, err, &validationErr)
	})

	t.Run("no instances", func(t *testing.T) {
		draft := testDraft("111")
		draft.InstanceIDs = nil
		_, err := orch.Start(context.Background(), draft)

		var validationErr *domainCampaign.ValidationError
		assert.ErrorAs(t, err, &validationErr)
	})
}

func TestRandomDelay(t *testing.T) {
	delay := domainCampaign.DelayRange{Start: 3, End: 5}

	for i := 0; i < 50; i++ {
		d := randomDelay(delay, time.Millisecond)
		assert.GreaterOrEqual(t, d, 3*time.Millisecond)
		assert.Less(t, d, 5*time.Millisecond)
	}

	t.Run("degenerate range collapses to start", func(t *testing.T) {
		assert.Equal(t, 4*time.Second, randomDelay(domainCampaign.DelayRange{Start: 4, End: 4}, time.Second))
		assert.Equal(t, 4*time.Second, randomDelay(domainCampaign.DelayRange{Start: 4, End: 2}, time.Second))
	})
}
