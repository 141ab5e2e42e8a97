// Package service orchestrates risk screening: cache, provider call with
// circuit breaking, and policy evaluation.
package service

import (
	"context"
	"log/slog"
	"time"

	"onboard-gateway/internal/screening/metrics"
	"onboard-gateway/internal/screening/models"
	"onboard-gateway/internal/screening/policy"
	"onboard-gateway/pkg/platform/circuit"
)

// Assessor fetches a risk assessment for an address.
type Assessor interface {
	Assess(ctx context.Context, address string) (*models.Assessment, error)
}

// AssessmentCache stores recent assessments; misses return (nil, nil).
type AssessmentCache interface {
	Get(ctx context.Context, address string) (*models.Assessment, error)
	Put(ctx context.Context, assessment *models.Assessment) error
}

type Option func(*Service)

// WithMetrics sets the metrics instance for the service.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithBreaker overrides the default circuit breaker.
func WithBreaker(b *circuit.Breaker) Option {
	return func(s *Service) {
		s.breaker = b
	}
}

// Service screens wallet addresses before registration. Provider failures
// degrade to a manual review decision, never to silent approval.
type Service struct {
	assessor Assessor
	cache    AssessmentCache
	policy   *policy.Policy
	breaker  *circuit.Breaker
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

func NewService(assessor Assessor, cache AssessmentCache, pol *policy.Policy, logger *slog.Logger, opts ...Option) *Service {
	svc := &Service{
		assessor: assessor,
		cache:    cache,
		policy:   pol,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.breaker == nil {
		svc.breaker = circuit.New("screening-provider",
			circuit.WithStateChange(func(name string, state circuit.State) {
				if state == circuit.StateOpen {
					logger.Warn("circuit breaker opened", "breaker", name)
				} else {
					logger.Info("circuit breaker closed", "breaker", name)
				}
			}))
	}
	return svc
}

// fallback is the decision when no assessment can be obtained.
func fallback(reason string) models.Result {
	return models.Result{
		Decision: models.DecisionManualReview,
		Reason:   reason,
	}
}

// Screen assesses an address and evaluates the screening policy against it.
func (s *Service) Screen(ctx context.Context, address string) models.Result {
	assessment, err := s.cache.Get(ctx, address)
	if err != nil {
		s.logger.Warn("assessment cache lookup failed", "error", err)
	}
	if assessment != nil {
		s.metrics.IncrementCacheHits()
		result := s.policy.Decide(*assessment)
		s.metrics.IncrementDecision(string(result.Decision))
		return result
	}

	if s.breaker.IsOpen() {
		// Cache missed and the circuit is open. Still try the provider so the
		// breaker can observe successes and close once the provider recovers;
		// a failure below degrades to manual review as usual.
		s.logger.Warn("screening provider circuit open, probing provider", "address", address)
	}

	start := time.Now()
	assessment, err = s.assessor.Assess(ctx, address)
	s.metrics.ObserveProviderLatency(time.Since(start).Seconds())
	if err != nil {
		s.breaker.RecordFailure()
		s.metrics.IncrementProviderErrors()
		s.logger.Error("screening assessment failed", "address", address, "error", err)
		result := fallback("screening provider unavailable, manual review required")
		s.metrics.IncrementDecision(string(result.Decision))
		return result
	}
	s.breaker.RecordSuccess()

	if err := s.cache.Put(ctx, assessment); err != nil {
		s.logger.Warn("assessment cache write failed", "error", err)
	}

	result := s.policy.Decide(*assessment)
	s.metrics.IncrementDecision(string(result.Decision))
	return result
}
