// Package service applies authenticated verification events to applicant
// records: enrichment, the status transition, credential minting on approval,
// and downstream notification.
package service

import (
	"context"
	"log/slog"
	"time"

	"onboard-gateway/internal/applicant/metrics"
	"onboard-gateway/internal/applicant/models"
	"onboard-gateway/internal/applicant/store"
	"onboard-gateway/internal/audit"
	"onboard-gateway/internal/credential/tokens"
	"onboard-gateway/internal/provider"
	dErrors "onboard-gateway/pkg/domain-errors"
)

// Enricher fetches applicant profile data from the verification provider.
type Enricher interface {
	FetchApplicant(ctx context.Context, providerApplicantID string) (*provider.Profile, error)
}

// Notifier delivers an applicant notification without blocking the caller.
type Notifier interface {
	NotifyAsync(a *models.Applicant, event models.EventKind)
}

type Option func(*Service)

// WithMetrics sets the metrics instance for the service.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithTokenConfig overrides the credential token lifetimes.
func WithTokenConfig(cfg tokens.Config) Option {
	return func(s *Service) {
		s.tokenCfg = cfg
	}
}

// WithClock overrides the time source (for tests).
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// Service is the verification state machine. All writes for one applicant are
// serialized by the store; everything outside the transaction is best-effort.
type Service struct {
	store    store.Store
	enricher Enricher
	notifier Notifier
	auditor  *audit.Publisher
	logger   *slog.Logger
	metrics  *metrics.Metrics
	tokenCfg tokens.Config
	now      func() time.Time
}

func NewService(st store.Store, enricher Enricher, notifier Notifier, auditor *audit.Publisher, logger *slog.Logger, opts ...Option) *Service {
	svc := &Service{
		store:    st,
		enricher: enricher,
		notifier: notifier,
		auditor:  auditor,
		logger:   logger,
		tokenCfg: tokens.DefaultConfig(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// ProcessEvent applies one authenticated inbound event. Processing is
// idempotent for redelivered verdicts: the transition still applies but the
// duplicate is not re-notified.
func (s *Service) ProcessEvent(ctx context.Context, ev models.InboundEvent) (*models.Applicant, error) {
	start := s.now()

	profile := s.enrich(ctx, ev)

	var outcome models.Outcome
	record, err := s.store.Transition(ctx, ev.ExternalUserID, func(a *models.Applicant, found bool) ([]*models.Event, error) {
		if !found {
			if ev.Type != models.EventApplicantCreated {
				return nil, dErrors.New(dErrors.CodeNotFound, "unknown applicant for event "+string(ev.Type))
			}
			a.Kind = models.KindFromExternalID(ev.ExternalUserID)
			a.Document = models.DocumentFromExternalID(ev.ExternalUserID)
			// New records are born in the created state; the creation event
			// itself is not a status change and stays silent.
			a.Status = models.StatusCreated
		}

		now := s.now().UTC()
		outcome = models.Apply(a.Status, ev, now)

		a.Status = outcome.NewStatus
		if ev.ApplicantID != "" {
			a.ProviderApplicantID = ev.ApplicantID
		}
		if ev.LevelName != "" {
			a.LevelName = ev.LevelName
		}
		s.applyProfile(a, profile)

		if ev.Type == models.EventApplicantReviewed {
			a.ReviewAnswer = ev.ReviewAnswer
			a.RejectionReason = outcome.History.RejectionReason
			a.LastVerificationAt = &now
			if a.FirstVerificationAt == nil {
				a.FirstVerificationAt = &now
			}
		}

		switch outcome.Transition {
		case models.TransitionNewApproval:
			a.ApprovedAt = &now
			a.RejectedAt = nil
			tokens.EnsureContract(a, now, s.tokenCfg)
		case models.TransitionNewRejection:
			a.RejectedAt = &now
		}

		return []*models.Event{&outcome.History}, nil
	})
	if err != nil {
		s.metrics.IncrementEventsRejected(errorReason(err))
		return nil, err
	}

	s.metrics.IncrementEventsProcessed(string(ev.Type))
	s.metrics.IncrementTransitions(string(outcome.Transition))
	s.metrics.ObserveProcessingLatency(time.Since(start).Seconds())

	s.auditor.Publish(ctx, audit.Entry{
		ExternalID:  record.ExternalID,
		ApplicantID: record.ID,
		Action:      audit.ActionTransitionApplied,
		PriorStatus: string(outcome.History.PriorStatus),
		NewStatus:   string(outcome.NewStatus),
		Transition:  string(outcome.Transition),
	})

	s.logger.Info("event applied",
		"external_id", record.ExternalID,
		"kind", ev.Type,
		"prior_status", outcome.History.PriorStatus,
		"new_status", outcome.NewStatus,
		"transition", outcome.Transition,
		"notify", outcome.Notify)

	if outcome.Notify {
		s.notifier.NotifyAsync(record, ev.Type)
	}
	return record, nil
}

// Get returns the applicant and its history for the operator surface.
func (s *Service) Get(ctx context.Context, ref store.Ref) (*models.Applicant, []*models.Event, error) {
	record, err := s.store.Find(ctx, ref)
	if err != nil {
		return nil, nil, err
	}
	events, err := s.store.ListEvents(ctx, record.ID)
	if err != nil {
		return nil, nil, err
	}
	return record, events, nil
}

// enrich fetches profile data before taking the row lock. Best-effort only.
func (s *Service) enrich(ctx context.Context, ev models.InboundEvent) *provider.Profile {
	if s.enricher == nil || ev.ApplicantID == "" {
		return nil
	}
	profile, err := s.enricher.FetchApplicant(ctx, ev.ApplicantID)
	if err != nil {
		s.metrics.IncrementEnrichmentErrors()
		s.logger.Warn("enrichment failed, using event data",
			"external_id", ev.ExternalUserID, "provider_applicant_id", ev.ApplicantID, "error", err)
		return nil
	}
	return profile
}

// applyProfile overlays enriched fields, never clearing existing values.
func (s *Service) applyProfile(a *models.Applicant, profile *provider.Profile) {
	if profile == nil {
		return
	}
	if profile.Name != "" {
		a.Name = profile.Name
	}
	if profile.Document != "" {
		a.Document = profile.Document
	}
	if profile.Email != "" {
		a.Email = profile.Email
	}
	if profile.Phone != "" {
		a.Phone = profile.Phone
	}
	if profile.Kind != "" {
		a.Kind = profile.Kind
	}
}

func errorReason(err error) string {
	if dErrors.HasCode(err, dErrors.CodeNotFound) {
		return "unknown_applicant"
	}
	return "store_failure"
}
