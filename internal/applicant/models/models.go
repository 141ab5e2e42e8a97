package models

import (
	"encoding/json"
	"strings"
	"time"
)

// Status is the applicant's lifecycle status as driven by provider events.
// approved and rejected are terminal for practical purposes but remain
// re-enterable: the provider may re-open a case at any time.
type Status string

const (
	StatusCreated  Status = "created"
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
	StatusOnHold   Status = "onHold"
)

// ReviewAnswer is the provider's verdict on a reviewed applicant.
type ReviewAnswer string

const (
	ReviewGreen  ReviewAnswer = "GREEN"
	ReviewRed    ReviewAnswer = "RED"
	ReviewYellow ReviewAnswer = "YELLOW"
)

// Kind distinguishes natural persons from companies.
type Kind string

const (
	KindIndividual Kind = "individual"
	KindCompany    Kind = "company"
)

// EventKind identifies the inbound provider event or locally generated
// lifecycle event recorded in the history trail.
type EventKind string

const (
	EventApplicantCreated  EventKind = "applicantCreated"
	EventApplicantPending  EventKind = "applicantPending"
	EventApplicantReviewed EventKind = "applicantReviewed"
	EventApplicantOnHold   EventKind = "applicantOnHold"
	EventContractSigned    EventKind = "contractSigned"
	EventWalletRegistered  EventKind = "walletRegistered"
)

// Applicant is the root record for one verified party, keyed by the stable
// external identity the provider echoes back on every event.
type Applicant struct {
	ID                  string
	ExternalID          string
	ProviderApplicantID string
	Kind                Kind
	Status              Status
	ReviewAnswer        ReviewAnswer
	RejectionReason     string
	LevelName           string

	// Enriched identity data; best-effort, may be empty.
	Name     string
	Document string
	Email    string
	Phone    string

	// Contract stage. The token is single-use: consumption is recorded as
	// the signature evidence below.
	ContractToken          string
	ContractTokenExpiresAt time.Time
	ContractSignedAt       *time.Time
	ContractSignedIP       string
	ContractSignedUA       string
	ContractSignedDevice   string

	// Wallet stage. The token may exist only once the contract is signed;
	// the address is set exactly once.
	WalletToken            string
	WalletTokenExpiresAt   time.Time
	WalletTokenConsumedAt  *time.Time
	WalletAddress          string
	WalletPendingReview    bool
	WalletRegisteredAt     *time.Time

	FirstVerificationAt *time.Time
	LastVerificationAt  *time.Time
	ApprovedAt          *time.Time
	RejectedAt          *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ContractSigned reports whether the contract stage has been completed.
func (a *Applicant) ContractSigned() bool {
	return a.ContractSignedAt != nil
}

// WalletRegistered reports whether a payout wallet has been registered.
func (a *Applicant) WalletRegistered() bool {
	return a.WalletAddress != ""
}

// Event is one append-only history entry. Entries are immutable once written;
// the trail is the audit record used to reconstruct past transitions.
type Event struct {
	ID              string
	ApplicantID     string
	Kind            EventKind
	PriorStatus     Status
	NewStatus       Status
	ReviewAnswer    ReviewAnswer
	RejectionReason string
	Payload         json.RawMessage
	CreatedAt       time.Time
}

// InboundEvent is a decoded, authenticated provider event.
type InboundEvent struct {
	Type           EventKind
	ApplicantID    string
	ExternalUserID string
	ReviewStatus   string
	ReviewAnswer   ReviewAnswer
	RejectLabels   []string
	LevelName      string
	Raw            json.RawMessage
}

// KindFromExternalID derives the applicant kind from the external identity
// convention (cpf_<digits> for individuals, cnpj_<digits> for companies).
func KindFromExternalID(externalID string) Kind {
	if strings.HasPrefix(externalID, "cnpj_") {
		return KindCompany
	}
	return KindIndividual
}

// DocumentFromExternalID extracts the registration document number embedded
// in the external identity, or "" when the convention is not followed.
func DocumentFromExternalID(externalID string) string {
	for _, prefix := range []string{"cpf_", "cnpj_"} {
		if rest, ok := strings.CutPrefix(externalID, prefix); ok {
			return rest
		}
	}
	return ""
}

// Transition classifies a status change for notification and side-effect
// purposes. The classification is computed exactly once per applied event and
// drives both the dedup rule and credential issuance.
type Transition string

const (
	TransitionNewApproval        Transition = "new_approval"
	TransitionNewRejection       Transition = "new_rejection"
	TransitionDuplicateApproval  Transition = "duplicate_approval"
	TransitionDuplicateRejection Transition = "duplicate_rejection"
	TransitionOther              Transition = "other"
)

// NextStatus derives the candidate status for an inbound event.
func NextStatus(ev InboundEvent) Status {
	switch ev.Type {
	case EventApplicantCreated:
		return StatusCreated
	case EventApplicantOnHold:
		return StatusOnHold
	case EventApplicantReviewed:
		switch ev.ReviewAnswer {
		case ReviewGreen:
			return StatusApproved
		case ReviewRed:
			return StatusRejected
		default:
			return StatusPending
		}
	default:
		return StatusPending
	}
}

// Classify maps a (prior, next) status pair to its transition class.
func Classify(prior, next Status) Transition {
	switch next {
	case StatusApproved:
		if prior == StatusApproved {
			return TransitionDuplicateApproval
		}
		return TransitionNewApproval
	case StatusRejected:
		if prior == StatusRejected {
			return TransitionDuplicateRejection
		}
		return TransitionNewRejection
	default:
		return TransitionOther
	}
}

// Outcome is the pure result of applying an inbound event against the
// applicant's true prior status. Persistence is a thin wrapper around it.
type Outcome struct {
	NewStatus  Status
	Transition Transition
	Notify     bool
	History    Event
}

// Apply computes the transition for an inbound event. It has no side effects;
// the caller persists the new status and history entry as one logical unit.
//
// Notification dedup: only a materially new status notifies. A redelivered
// event lands in history but stays silent, so replaying the same event N
// times produces at most one outward notification.
func Apply(prior Status, ev InboundEvent, now time.Time) Outcome {
	next := NextStatus(ev)
	transition := Classify(prior, next)

	notify := next != prior

	return Outcome{
		NewStatus:  next,
		Transition: transition,
		Notify:     notify,
		History: Event{
			Kind:            ev.Type,
			PriorStatus:     prior,
			NewStatus:       next,
			ReviewAnswer:    ev.ReviewAnswer,
			RejectionReason: strings.Join(ev.RejectLabels, ", "),
			Payload:         ev.Raw,
			CreatedAt:       now,
		},
	}
}
