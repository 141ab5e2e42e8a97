package service

import (
	"fmt"

	applicant "onboard-gateway/internal/applicant/models"
	"onboard-gateway/internal/notify/models"
)

// Builder renders notification payloads for applicant lifecycle events.
type Builder struct {
	baseURL string
}

// NewBuilder constructs a Builder. baseURL is the public root for the
// contract and wallet links embedded in messages.
func NewBuilder(baseURL string) *Builder {
	return &Builder{baseURL: baseURL}
}

// Build renders the payload for one applied event.
func (b *Builder) Build(event applicant.EventKind, a *applicant.Applicant) models.Payload {
	p := models.Payload{
		Event:        string(event),
		Status:       string(a.Status),
		ReviewAnswer: string(a.ReviewAnswer),
		Applicant: models.ApplicantRef{
			ID:       a.ExternalID,
			Type:     string(a.Kind),
			Name:     a.Name,
			Document: a.Document,
		},
	}
	p.Message = b.message(event, a)
	return p
}

func (b *Builder) message(event applicant.EventKind, a *applicant.Applicant) string {
	name := a.Name
	if name == "" {
		name = "there"
	}

	switch event {
	case applicant.EventApplicantCreated:
		return fmt.Sprintf("Hello %s! Your identity verification has started. We will keep you posted.", name)
	case applicant.EventApplicantPending:
		return "Your documents were received and are under review."
	case applicant.EventApplicantOnHold:
		return "Your verification is on hold while we run additional checks. No action is needed."
	case applicant.EventApplicantReviewed:
		switch a.Status {
		case applicant.StatusApproved:
			return fmt.Sprintf(
				"Congratulations %s, your verification was approved! Sign your service contract here: %s/contract/sign?token=%s (link valid for 7 days).",
				name, b.baseURL, a.ContractToken)
		case applicant.StatusRejected:
			if a.RejectionReason != "" {
				return fmt.Sprintf("Unfortunately your verification was rejected. Reason: %s. Contact support if you believe this is a mistake.", a.RejectionReason)
			}
			return "Unfortunately your verification was rejected. Contact support if you believe this is a mistake."
		default:
			return "Your verification was reviewed and requires another pass. We will keep you posted."
		}
	case applicant.EventContractSigned:
		return fmt.Sprintf(
			"Contract signed! Register your payout wallet here: %s/wallet/register?token=%s (link valid for 30 days).",
			b.baseURL, a.WalletToken)
	case applicant.EventWalletRegistered:
		if a.WalletPendingReview {
			return "Your wallet was received and is under compliance review. We will confirm shortly."
		}
		return "Your wallet was registered. Onboarding is complete, welcome aboard!"
	default:
		return "Your onboarding status was updated."
	}
}
