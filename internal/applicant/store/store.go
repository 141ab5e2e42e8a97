package store

import (
	"context"

	"onboard-gateway/internal/applicant/models"
)

// TransitionFunc runs with exclusive ownership of the applicant row keyed by
// external identity. found reports whether the record exists; when it does
// not, a carries only the external identity and the func may either populate
// it as a new record or return an error. The returned events are appended to
// the history trail in the same unit of work as the record write.
type TransitionFunc func(a *models.Applicant, found bool) ([]*models.Event, error)

// Ref selects one applicant by exactly one of its lookup keys. Document is
// the registration number embedded in the external identity; it resolves to
// the most recently updated match.
type Ref struct {
	ID            string
	ExternalID    string
	Document      string
	ContractToken string
	WalletToken   string
}

type Store interface {
	// Transition locks the applicant row for the external identity (creating
	// it if fn populates a new record), applies fn, and persists the result
	// with its history events atomically.
	Transition(ctx context.Context, externalID string, fn TransitionFunc) (*models.Applicant, error)

	// Execute atomically validates and mutates an existing applicant under
	// lock, appending the events returned by mutate. validate errors abort
	// without any write.
	Execute(ctx context.Context, ref Ref, validate func(*models.Applicant) error, mutate func(*models.Applicant) []*models.Event) (*models.Applicant, error)

	Find(ctx context.Context, ref Ref) (*models.Applicant, error)
	ListEvents(ctx context.Context, applicantID string) ([]*models.Event, error)
	ListPendingReview(ctx context.Context) ([]*models.Applicant, error)
}
