package store

import (
	"context"
	"sync"
	"time"

	"onboard-gateway/internal/applicant/models"
	dErrors "onboard-gateway/pkg/domain-errors"
	psync "onboard-gateway/pkg/platform/sync"

	"github.com/google/uuid"
)

// InMemoryStore keeps applicants in memory for tests and local runs.
// Transition and Execute serialize per applicant through a sharded mutex,
// mirroring the row lock the PostgreSQL store takes.
type InMemoryStore struct {
	mu    sync.RWMutex
	locks *psync.ShardedMutex

	byExternal map[string]*models.Applicant
	byID       map[string]string
	byContract map[string]string
	byWallet   map[string]string
	events     map[string][]*models.Event
}

// NewMemory constructs an empty in-memory applicant store.
func NewMemory() *InMemoryStore {
	return &InMemoryStore{
		locks:      psync.NewShardedMutex(),
		byExternal: make(map[string]*models.Applicant),
		byID:       make(map[string]string),
		byContract: make(map[string]string),
		byWallet:   make(map[string]string),
		events:     make(map[string][]*models.Event),
	}
}

func (s *InMemoryStore) Transition(_ context.Context, externalID string, fn TransitionFunc) (*models.Applicant, error) {
	s.locks.Lock(externalID)
	defer s.locks.Unlock(externalID)

	s.mu.RLock()
	existing, found := s.byExternal[externalID]
	s.mu.RUnlock()

	var working models.Applicant
	if found {
		working = *existing
	} else {
		working = models.Applicant{ExternalID: externalID}
	}

	events, err := fn(&working, found)
	if err != nil {
		return nil, err
	}

	if working.ID == "" {
		working.ID = uuid.NewString()
		working.CreatedAt = time.Now().UTC()
	}
	working.UpdatedAt = time.Now().UTC()

	s.mu.Lock()
	s.put(&working, events)
	s.mu.Unlock()

	copied := working
	return &copied, nil
}

func (s *InMemoryStore) Execute(_ context.Context, ref Ref, validate func(*models.Applicant) error, mutate func(*models.Applicant) []*models.Event) (*models.Applicant, error) {
	s.mu.RLock()
	existing, err := s.resolve(ref)
	s.mu.RUnlock()
	if err != nil {
		return nil, err
	}

	externalID := existing.ExternalID
	s.locks.Lock(externalID)
	defer s.locks.Unlock(externalID)

	// Re-read under the applicant lock; the first read only located the row.
	s.mu.RLock()
	current, ok := s.byExternal[externalID]
	s.mu.RUnlock()
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "applicant not found")
	}

	working := *current
	if err := validate(&working); err != nil {
		return nil, err
	}

	events := mutate(&working)
	working.UpdatedAt = time.Now().UTC()

	s.mu.Lock()
	s.put(&working, events)
	s.mu.Unlock()

	copied := working
	return &copied, nil
}

func (s *InMemoryStore) Find(_ context.Context, ref Ref) (*models.Applicant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, err := s.resolve(ref)
	if err != nil {
		return nil, err
	}
	copied := *record
	return &copied, nil
}

func (s *InMemoryStore) ListEvents(_ context.Context, applicantID string) ([]*models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := s.events[applicantID]
	out := make([]*models.Event, 0, len(entries))
	for _, e := range entries {
		copied := *e
		out = append(out, &copied)
	}
	return out, nil
}

func (s *InMemoryStore) ListPendingReview(_ context.Context) ([]*models.Applicant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Applicant
	for _, record := range s.byExternal {
		if record.WalletPendingReview {
			copied := *record
			out = append(out, &copied)
		}
	}
	return out, nil
}

// resolve must be called with mu held.
func (s *InMemoryStore) resolve(ref Ref) (*models.Applicant, error) {
	externalID := ref.ExternalID
	switch {
	case externalID != "":
	case ref.ID != "":
		externalID = s.byID[ref.ID]
	case ref.ContractToken != "":
		externalID = s.byContract[ref.ContractToken]
	case ref.WalletToken != "":
		externalID = s.byWallet[ref.WalletToken]
	case ref.Document != "":
		var latest *models.Applicant
		for _, record := range s.byExternal {
			if record.Document != ref.Document {
				continue
			}
			if latest == nil || record.UpdatedAt.After(latest.UpdatedAt) {
				latest = record
			}
		}
		if latest != nil {
			externalID = latest.ExternalID
		}
	}
	record, ok := s.byExternal[externalID]
	if externalID == "" || !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "applicant not found")
	}
	return record, nil
}

// put must be called with mu held for writing.
func (s *InMemoryStore) put(a *models.Applicant, events []*models.Event) {
	copied := *a
	s.byExternal[a.ExternalID] = &copied
	s.byID[a.ID] = a.ExternalID
	if a.ContractToken != "" {
		s.byContract[a.ContractToken] = a.ExternalID
	}
	if a.WalletToken != "" {
		s.byWallet[a.WalletToken] = a.ExternalID
	}
	for _, e := range events {
		entry := *e
		if entry.ID == "" {
			entry.ID = uuid.NewString()
		}
		entry.ApplicantID = a.ID
		if entry.CreatedAt.IsZero() {
			entry.CreatedAt = time.Now().UTC()
		}
		s.events[a.ID] = append(s.events[a.ID], &entry)
	}
}
