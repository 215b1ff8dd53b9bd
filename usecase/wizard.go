package usecase

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/recuperafly/whatsapp-campaign-console/config"
	domainCampaign "github.com/recuperafly/whatsapp-campaign-console/domains/campaign"
	"github.com/recuperafly/whatsapp-campaign-console/validations"
)

// DraftBuilder holds the in-progress campaign draft while the operator walks
// the wizard. Step advancement is gated on validation; moving backwards and
// editing any field are always allowed.
type DraftBuilder struct {
	importer domainCampaign.IImporterUsecase

	mu    sync.Mutex
	step  int
	draft domainCampaign.CampaignDraft
}

// NewDraftBuilder starts a builder on step one with a single blank recipient
func NewDraftBuilder(importer domainCampaign.IImporterUsecase) *DraftBuilder {
	return &DraftBuilder{
		importer: importer,
		step:     validations.StepBasics,
		draft:    seededDraft(),
	}
}

// seededDraft applies the configured pacing defaults to a fresh draft,
// keeping the built-in window when the configuration is unusable
func seededDraft() domainCampaign.CampaignDraft {
	draft := domainCampaign.DefaultDraft()
	if config.CampaignMinDelay > 0 && config.CampaignMaxDelay >= config.CampaignMinDelay {
		draft.DelayRange = domainCampaign.DelayRange{
			Start: config.CampaignMinDelay,
			End:   config.CampaignMaxDelay,
		}
	}
	return draft
}

// Step reports the wizard step currently being edited
func (b *DraftBuilder) Step() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.step
}

// Draft returns a snapshot of the current draft
func (b *DraftBuilder) Draft() domainCampaign.CampaignDraft {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.snapshot()
}

func (b *DraftBuilder) snapshot() domainCampaign.CampaignDraft {
	draft := b.draft
	draft.Recipients = make([]domainCampaign.Recipient, len(b.draft.Recipients))
	copy(draft.Recipients, b.draft.Recipients)
	return draft
}

// Next validates the current step and advances when it passes
func (b *DraftBuilder) Next() (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := validations.ValidateDraftStep(b.step, b.draft); err != nil {
		return b.step, err
	}
	if b.step < validations.StepSchedule {
		b.step++
	}
	return b.step, nil
}

// Back moves one step towards the start without validating anything
func (b *DraftBuilder) Back() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.step > validations.StepBasics {
		b.step--
	}
	return b.step
}

// SetName updates the campaign name
func (b *DraftBuilder) SetName(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.draft.Name = name
}

// SetTemplate selects the template to send
func (b *DraftBuilder) SetTemplate(templateID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.draft.TemplateID = templateID
}

// SetInstances replaces the selected sender instances
func (b *DraftBuilder) SetInstances(instanceIDs []string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.draft.InstanceIDs = append([]string(nil), instanceIDs...)
}

// SetDelayRange updates the per-recipient delay window after validating it
func (b *DraftBuilder) SetDelayRange(delay domainCampaign.DelayRange) error {
	if err := validations.ValidateDelayRange(delay); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.draft.DelayRange = delay
	return nil
}

// AddRecipient appends one blank row to the audience table
func (b *DraftBuilder) AddRecipient() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.draft.Recipients = append(b.draft.Recipients, domainCampaign.BlankRecipient())
}

// UpdateRecipient replaces the recipient at the given index
func (b *DraftBuilder) UpdateRecipient(index int, recipient domainCampaign.Recipient) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if index < 0 || index >= len(b.draft.Recipients) {
		return &domainCampaign.ValidationError{Field: "index", Reason: "recipient index out of range"}
	}
	if recipient.Variables == nil {
		recipient.Variables = make(map[string]string)
	}
	b.draft.Recipients[index] = recipient
	return nil
}

// RemoveRecipient drops the recipient at the given index
func (b *DraftBuilder) RemoveRecipient(index int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if index < 0 || index >= len(b.draft.Recipients) {
		return &domainCampaign.ValidationError{Field: "index", Reason: "recipient index out of range"}
	}
	b.draft.Recipients = append(b.draft.Recipients[:index], b.draft.Recipients[index+1:]...)
	return nil
}

// DeleteAllRecipients clears the audience and reseeds one blank row
func (b *DraftBuilder) DeleteAllRecipients() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.draft.Recipients = []domainCampaign.Recipient{domainCampaign.BlankRecipient()}
}

// AppendImported adds imported recipients after the current ones
func (b *DraftBuilder) AppendImported(imported []domainCampaign.Recipient) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.draft.Recipients = b.importer.AppendImported(b.draft.Recipients, imported)
	return len(b.draft.Recipients)
}

// RemoveDuplicates deduplicates the audience by phone, reporting how many
// rows were dropped
func (b *DraftBuilder) RemoveDuplicates() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	deduped, removed := b.importer.RemoveDuplicates(b.draft.Recipients)
	if removed > 0 {
		b.draft.Recipients = deduped
		logrus.WithFields(logrus.Fields{
			"removed":   removed,
			"remaining": len(deduped),
		}).Info("Wizard: Duplicate recipients removed")
	}
	return removed
}

// Finalize validates every step and returns the draft ready to send
func (b *DraftBuilder) Finalize() (domainCampaign.CampaignDraft, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for step := validations.StepBasics; step <= validations.StepSchedule; step++ {
		if err := validations.ValidateDraftStep(step, b.draft); err != nil {
			return domainCampaign.CampaignDraft{}, err
		}
	}
	return b.snapshot(), nil
}

// Reset returns the wizard to step one with a fresh default draft
func (b *DraftBuilder) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.step = validations.StepBasics
	b.draft = seededDraft()
	logrus.Info("Wizard: Draft reset")
}
