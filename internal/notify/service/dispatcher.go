// Package service delivers applicant notifications to the configured webhook
// endpoint with bounded retries and a persistent delivery log.
package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	applicant "onboard-gateway/internal/applicant/models"
	"onboard-gateway/internal/notify/metrics"
	"onboard-gateway/internal/notify/models"
	"onboard-gateway/internal/notify/store"
	dErrors "onboard-gateway/pkg/domain-errors"
)

const (
	defaultMaxAttempts = 3
	defaultBackoffBase = 500 * time.Millisecond
	defaultTimeout     = 10 * time.Second
)

type Option func(*Dispatcher)

// WithMetrics sets the metrics instance for the dispatcher.
func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

// WithMaxAttempts overrides how many delivery attempts are made per notification.
func WithMaxAttempts(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.maxAttempts = n
		}
	}
}

// WithBackoffBase overrides the first retry delay. Later delays double it.
func WithBackoffBase(dur time.Duration) Option {
	return func(d *Dispatcher) {
		if dur > 0 {
			d.backoffBase = dur
		}
	}
}

// WithTimeout sets the per-attempt delivery timeout.
func WithTimeout(dur time.Duration) Option {
	return func(d *Dispatcher) {
		if dur > 0 {
			d.timeout = dur
		}
	}
}

// WithHTTPClient sets a custom HTTP client (for testing).
func WithHTTPClient(client *http.Client) Option {
	return func(d *Dispatcher) {
		d.httpClient = client
	}
}

// Dispatcher posts notification payloads and records every outcome in the
// delivery log. Delivery failure is never surfaced to state transitions;
// failed entries wait for admin-triggered redelivery.
type Dispatcher struct {
	webhookURL  string
	builder     *Builder
	store       store.Store
	logger      *slog.Logger
	metrics     *metrics.Metrics
	httpClient  *http.Client
	maxAttempts int
	backoffBase time.Duration
	timeout     time.Duration

	wg sync.WaitGroup
}

func NewDispatcher(webhookURL string, builder *Builder, deliveries store.Store, logger *slog.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		webhookURL:  webhookURL,
		builder:     builder,
		store:       deliveries,
		logger:      logger,
		maxAttempts: defaultMaxAttempts,
		backoffBase: defaultBackoffBase,
		timeout:     defaultTimeout,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.httpClient == nil {
		d.httpClient = &http.Client{Timeout: d.timeout}
	}
	return d
}

// deliveryBudget bounds one full delivery: every attempt at the configured
// timeout plus the backoff waits between them.
func (d *Dispatcher) deliveryBudget() time.Duration {
	budget := time.Duration(d.maxAttempts) * d.timeout
	for i := 0; i < d.maxAttempts-1; i++ {
		budget += d.backoffBase << i
	}
	return budget
}

// NotifyAsync builds and delivers the notification for an applied event
// without blocking the caller. Errors end up in the delivery log only.
func (d *Dispatcher) NotifyAsync(a *applicant.Applicant, event applicant.EventKind) {
	payload := d.builder.Build(event, a)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), d.deliveryBudget())
		defer cancel()
		if err := d.Dispatch(ctx, a.ID, a.ExternalID, payload); err != nil {
			d.logger.Error("notification delivery failed",
				"applicant_id", a.ID, "event", payload.Event, "error", err)
		}
	}()
}

// Dispatch delivers one payload with retries and records the outcome.
func (d *Dispatcher) Dispatch(ctx context.Context, applicantID, externalID string, payload models.Payload) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal notification payload: %w", err)
	}

	delivery := &models.Delivery{
		ApplicantID: applicantID,
		ExternalID:  externalID,
		Event:       payload.Event,
		Payload:     raw,
	}
	err = d.deliver(ctx, delivery)
	if saveErr := d.store.Save(ctx, delivery); saveErr != nil {
		d.logger.Error("delivery log write failed", "error", saveErr)
	}
	return err
}

// Redeliver replays one delivery log entry, updating it in place.
func (d *Dispatcher) Redeliver(ctx context.Context, deliveryID string) (*models.Delivery, error) {
	delivery, err := d.store.FindByID(ctx, deliveryID)
	if err != nil {
		return nil, err
	}
	if delivery.Status == models.DeliveryDelivered {
		return nil, dErrors.New(dErrors.CodeConflict, "delivery already succeeded")
	}

	err = d.deliver(ctx, delivery)
	if saveErr := d.store.Save(ctx, delivery); saveErr != nil {
		d.logger.Error("delivery log write failed", "error", saveErr)
	}
	return delivery, err
}

// Wait blocks until all in-flight async notifications complete. Used during
// shutdown and in tests.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) deliver(ctx context.Context, delivery *models.Delivery) error {
	var lastErr error
	start := time.Now()

	for attempt := 1; attempt <= d.maxAttempts; attempt++ {
		if attempt > 1 {
			d.metrics.IncrementRetried()
			backoff := d.backoffBase << (attempt - 2)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				lastErr = ctx.Err()
				delivery.Attempts += attempt - 1
				delivery.Status = models.DeliveryFailed
				delivery.LastError = lastErr.Error()
				return lastErr
			}
		}

		lastErr = d.post(ctx, delivery.Payload)
		if lastErr == nil {
			now := time.Now().UTC()
			delivery.Attempts += attempt
			delivery.Status = models.DeliveryDelivered
			delivery.LastError = ""
			delivery.DeliveredAt = &now
			d.metrics.IncrementSent(delivery.Event)
			d.metrics.ObserveDeliveryLatency(time.Since(start).Seconds())
			return nil
		}

		d.logger.Warn("notification attempt failed",
			"event", delivery.Event, "attempt", attempt, "error", lastErr)
	}

	delivery.Attempts += d.maxAttempts
	delivery.Status = models.DeliveryFailed
	delivery.LastError = lastErr.Error()
	d.metrics.IncrementFailed(delivery.Event)
	return fmt.Errorf("all %d delivery attempts failed: %w", d.maxAttempts, lastErr)
}

func (d *Dispatcher) post(ctx context.Context, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post notification: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("notification endpoint returned status %d", resp.StatusCode)
	}
	return nil
}
