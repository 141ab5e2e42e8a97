package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"onboard-gateway/internal/notify/models"
	dErrors "onboard-gateway/pkg/domain-errors"

	"github.com/google/uuid"
)

// InMemoryStore keeps delivery records in memory for tests and local runs.
type InMemoryStore struct {
	mu         sync.RWMutex
	deliveries map[string]*models.Delivery
}

// NewMemory constructs an empty in-memory delivery log.
func NewMemory() *InMemoryStore {
	return &InMemoryStore{deliveries: make(map[string]*models.Delivery)}
}

func (s *InMemoryStore) Save(_ context.Context, delivery *models.Delivery) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if delivery.ID == "" {
		delivery.ID = uuid.NewString()
	}
	if delivery.CreatedAt.IsZero() {
		delivery.CreatedAt = time.Now().UTC()
	}
	copied := *delivery
	s.deliveries[delivery.ID] = &copied
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id string) (*models.Delivery, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	delivery, ok := s.deliveries[id]
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "delivery not found")
	}
	copied := *delivery
	return &copied, nil
}

func (s *InMemoryStore) ListFailed(_ context.Context, limit int) ([]*models.Delivery, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var failed []*models.Delivery
	for _, d := range s.deliveries {
		if d.Status == models.DeliveryFailed {
			copied := *d
			failed = append(failed, &copied)
		}
	}
	sort.Slice(failed, func(i, j int) bool { return failed[i].CreatedAt.Before(failed[j].CreatedAt) })
	if limit > 0 && len(failed) > limit {
		failed = failed[:limit]
	}
	return failed, nil
}

func (s *InMemoryStore) ListByApplicant(_ context.Context, applicantID string) ([]*models.Delivery, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Delivery
	for _, d := range s.deliveries {
		if d.ApplicantID == applicantID {
			copied := *d
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
