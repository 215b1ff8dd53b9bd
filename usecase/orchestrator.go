package usecase

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	domainCampaign "github.com/recuperafly/whatsapp-campaign-console/domains/campaign"
)

// SendOrchestrator runs at most one campaign send at a time. The dispatch
// loop is strictly sequential: one recipient per request, a randomized pause
// between requests, and an abort on the first hard failure.
type SendOrchestrator struct {
	gateway domainCampaign.IMessageGateway
	session domainCampaign.ISessionStore
	history domainCampaign.IHistoryRepository

	// delayUnit scales the delay range; one second in production
	delayUnit time.Duration
	// onCompleted fires once per fully successful run
	onCompleted func()

	mu       sync.Mutex
	progress domainCampaign.SendProgress
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewSendOrchestrator creates an idle orchestrator. delayUnit <= 0 selects
// the one second production unit.
func NewSendOrchestrator(
	gateway domainCampaign.IMessageGateway,
	session domainCampaign.ISessionStore,
	history domainCampaign.IHistoryRepository,
	delayUnit time.Duration,
) *SendOrchestrator {
	if delayUnit <= 0 {
		delayUnit = time.Second
	}
	return &SendOrchestrator{
		gateway:   gateway,
		session:   session,
		history:   history,
		delayUnit: delayUnit,
		progress: domainCampaign.SendProgress{
			State:        domainCampaign.SendStateIdle,
			CurrentIndex: -1,
		},
	}
}

// OnCompleted registers a callback invoked after every successful run
func (o *SendOrchestrator) OnCompleted(fn func()) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.onCompleted = fn
}

// Start launches the background dispatch loop for the given draft
func (o *SendOrchestrator) Start(ctx context.Context, draft domainCampaign.CampaignDraft) (uuid.UUID, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.progress.State == domainCampaign.SendStateSending {
		return uuid.Nil, domainCampaign.ErrSendInProgress
	}
	if len(draft.Recipients) == 0 {
		return uuid.Nil, &domainCampaign.ValidationError{Field: "recipients", Reason: "campaign has no recipients"}
	}
	if len(draft.InstanceIDs) == 0 {
		return uuid.Nil, &domainCampaign.ValidationError{Field: "instanceIds", Reason: "campaign has no sender instances"}
	}

	opID := uuid.New()
	runCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel
	o.done = make(chan struct{})
	o.progress = domainCampaign.SendProgress{
		OperationID:  opID,
		State:        domainCampaign.SendStateSending,
		CurrentIndex: -1,
		Total:        len(draft.Recipients),
		Outcomes:     make([]domainCampaign.SendOutcome, 0, len(draft.Recipients)),
	}

	logrus.WithFields(logrus.Fields{
		"operation_id": opID,
		"campaign":     draft.Name,
		"recipients":   len(draft.Recipients),
		"instances":    len(draft.InstanceIDs),
	}).Info("Orchestrator: Send started")

	go o.run(runCtx, opID, draft)
	return opID, nil
}

func (o *SendOrchestrator) run(ctx context.Context, opID uuid.UUID, draft domainCampaign.CampaignDraft) {
	defer close(o.done)

	startedAt := time.Now()
	fallbackInstance := draft.InstanceIDs[0]

	var abortErr error
	for i, recipient := range draft.Recipients {
		if ctx.Err() != nil {
			abortErr = errors.New("send operation cancelled")
			break
		}

		o.setCurrent(i, recipient.Phone)

		req := domainCampaign.SendTemplateRequest{
			Name:        draft.Name,
			TemplateID:  draft.TemplateID,
			InstanceIDs: draft.InstanceIDs,
			Recipients: []domainCampaign.WireRecipient{{
				Phone:     recipient.Phone,
				Name:      recipient.Name,
				Variables: recipient.FilteredVariables(),
			}},
			DelayRange: draft.DelayRange,
		}

		resp, err := o.gateway.SendTemplate(ctx, req)
		if err != nil {
			if ctx.Err() != nil {
				abortErr = errors.New("send operation cancelled")
				break
			}
			if errors.Is(err, domainCampaign.ErrSessionExpired) {
				// Unauthorized invalidates the whole session, not just
				// this request
				if clearErr := o.session.Clear(context.WithoutCancel(ctx)); clearErr != nil {
					logrus.WithError(clearErr).Warn("Orchestrator: Failed to clear session after unauthorized response")
				}
			}
			abortErr = err
			break
		}
		if !resp.Status {
			abortErr = &domainCampaign.DispatchError{Phone: recipient.Phone, Message: resp.Message}
			break
		}

		o.appendOutcomes(resp.Normalize(recipient.Phone, fallbackInstance))

		if abortErr = o.pause(ctx, draft.DelayRange); abortErr != nil {
			break
		}
	}

	o.finish(context.WithoutCancel(ctx), opID, draft, startedAt, abortErr)
}

// pause sleeps for a random duration in [Start, End) delay units, waking
// early on cancellation
func (o *SendOrchestrator) pause(ctx context.Context, delay domainCampaign.DelayRange) error {
	select {
	case <-ctx.Done():
		return errors.New("send operation cancelled")
	case <-time.After(randomDelay(delay, o.delayUnit)):
		return nil
	}
}

// randomDelay picks a uniform duration in [Start, End) scaled by unit. A
// degenerate range collapses to the start bound.
func randomDelay(delay domainCampaign.DelayRange, unit time.Duration) time.Duration {
	if delay.End <= delay.Start {
		return time.Duration(delay.Start) * unit
	}
	span := big.NewInt(int64(delay.End - delay.Start))
	n, err := rand.Int(rand.Reader, span)
	if err != nil {
		return time.Duration(delay.Start) * unit
	}
	return time.Duration(int64(delay.Start)+n.Int64()) * unit
}

func (o *SendOrchestrator) setCurrent(index int, phone string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.progress.CurrentIndex = index
	o.progress.CurrentPhone = phone
}

func (o *SendOrchestrator) appendOutcomes(outcomes []domainCampaign.SendOutcome) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.progress.Outcomes = append(o.progress.Outcomes, outcomes...)
}

func (o *SendOrchestrator) finish(ctx context.Context, opID uuid.UUID, draft domainCampaign.CampaignDraft, startedAt time.Time, abortErr error) {
	o.mu.Lock()
	if abortErr != nil {
		o.progress.State = domainCampaign.SendStateFailed
		o.progress.Error = abortErr.Error()
	} else {
		o.progress.State = domainCampaign.SendStateCompleted
	}
	o.progress.CurrentPhone = ""
	op := &domainCampaign.SendOperation{
		ID:          opID,
		Name:        draft.Name,
		TemplateID:  draft.TemplateID,
		InstanceIDs: append([]string(nil), draft.InstanceIDs...),
		State:       o.progress.State,
		Total:       o.progress.Total,
		Error:       o.progress.Error,
		Outcomes:    append([]domainCampaign.SendOutcome(nil), o.progress.Outcomes...),
		StartedAt:   startedAt,
		FinishedAt:  time.Now(),
	}
	for _, outcome := range op.Outcomes {
		if outcome.Status {
			op.Sent++
		} else {
			op.Failed++
		}
	}
	onCompleted := o.onCompleted
	o.cancel = nil
	o.mu.Unlock()

	if err := o.history.SaveOperation(ctx, op); err != nil {
		logrus.WithError(err).Error("Orchestrator: Failed to archive send operation")
	}

	if abortErr != nil {
		logrus.WithFields(logrus.Fields{
			"operation_id": opID,
			"sent":         op.Sent,
			"failed":       op.Failed,
		}).WithError(abortErr).Error("Orchestrator: Send aborted")
		return
	}

	if onCompleted != nil {
		onCompleted()
	}
	logrus.WithFields(logrus.Fields{
		"operation_id": opID,
		"sent":         op.Sent,
		"failed":       op.Failed,
		"duration":     time.Since(startedAt).Round(time.Millisecond),
	}).Info("Orchestrator: Send completed")
}

// Progress returns a consistent snapshot of the running or last operation
func (o *SendOrchestrator) Progress() domainCampaign.SendProgress {
	o.mu.Lock()
	defer o.mu.Unlock()

	progress := o.progress
	progress.Outcomes = append([]domainCampaign.SendOutcome(nil), o.progress.Outcomes...)
	return progress
}

// Cancel requests a cooperative stop of the in-flight operation
func (o *SendOrchestrator) Cancel() {
	o.mu.Lock()
	cancel := o.cancel
	o.mu.Unlock()

	if cancel != nil {
		logrus.Info("Orchestrator: Cancellation requested")
		cancel()
	}
}

// Wait blocks until the in-flight operation finishes. Calling it with no
// operation started returns immediately.
func (o *SendOrchestrator) Wait() {
	o.mu.Lock()
	done := o.done
	o.mu.Unlock()

	if done != nil {
		<-done
	}
}
