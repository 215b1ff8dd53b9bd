package validations

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	domainCampaign "github.com/recuperafly/whatsapp-campaign-console/domains/campaign"
)

// Wizard steps
const (
	StepBasics   = 1
	StepTemplate = 2
	StepAudience = 3
	StepSchedule = 4
)

// ValidateDraftStep gates a wizard step transition. The returned error is
// always a *campaign.ValidationError carrying the operator-facing message.
func ValidateDraftStep(step int, draft domainCampaign.CampaignDraft) error {
	switch step {
	case StepBasics:
		err := validation.ValidateStruct(&draft,
			validation.Field(&draft.Name, validation.Required.Error("please enter a campaign name")),
			validation.Field(&draft.InstanceIDs, validation.Required.Error("please select at least one instance")),
		)
		return wrap(err)
	case StepTemplate:
		err := validation.ValidateStruct(&draft,
			validation.Field(&draft.TemplateID, validation.Required.Error("please select a template")),
		)
		return wrap(err)
	case StepAudience:
		for _, r := range draft.Recipients {
			if !r.Valid() {
				return &domainCampaign.ValidationError{
					Field:  "recipients",
					Reason: "all recipients must have a valid phone number and name",
				}
			}
		}
		return nil
	case StepSchedule:
		return ValidateDelayRange(draft.DelayRange)
	}
	return &domainCampaign.ValidationError{Field: "step", Reason: "unknown wizard step"}
}

// ValidateDelayRange enforces the pacing window: both bounds at least one
// second and the end never before the start
func ValidateDelayRange(d domainCampaign.DelayRange) error {
	if err := validation.ValidateStruct(&d,
		// Required catches the zero value that Min would skip
		validation.Field(&d.Start,
			validation.Required.Error("delay start must be at least 1 second"),
			validation.Min(1).Error("delay start must be at least 1 second")),
		validation.Field(&d.End,
			validation.Required.Error("delay end must be at least 1 second"),
			validation.Min(1).Error("delay end must be at least 1 second")),
	); err != nil {
		return wrap(err)
	}
	if d.End < d.Start {
		return &domainCampaign.ValidationError{Field: "delayRange", Reason: "delay end must not be before delay start"}
	}
	return nil
}

func wrap(err error) error {
	if err == nil {
		return nil
	}
	return &domainCampaign.ValidationError{Reason: err.Error()}
}
