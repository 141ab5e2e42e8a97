// Package audit publishes the compliance trail of onboarding activity to
// Kafka. Publishing is best-effort and never blocks domain operations.
package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"onboard-gateway/internal/platform/kafka/producer"
)

// Action identifies one kind of audited activity.
type Action string

const (
	ActionTransitionApplied    Action = "transition_applied"
	ActionContractTokenIssued  Action = "contract_token_issued"
	ActionContractSigned       Action = "contract_signed"
	ActionWalletTokenIssued    Action = "wallet_token_issued"
	ActionWalletRegistered     Action = "wallet_registered"
	ActionWalletRejected       Action = "wallet_rejected"
	ActionWalletPendingReview  Action = "wallet_pending_review"
	ActionNotificationReplayed Action = "notification_replayed"
	ActionAdminLogin           Action = "admin_login"
)

// Entry is one audit record. Keyed by external ID so all activity for one
// applicant lands in the same partition, in order.
type Entry struct {
	Timestamp   time.Time `json:"timestamp"`
	ExternalID  string    `json:"externalId"`
	ApplicantID string    `json:"applicantId,omitempty"`
	Action      Action    `json:"action"`
	PriorStatus string    `json:"priorStatus,omitempty"`
	NewStatus   string    `json:"newStatus,omitempty"`
	Transition  string    `json:"transition,omitempty"`
	Detail      string    `json:"detail,omitempty"`
	Actor       string    `json:"actor,omitempty"`
}

// Publisher writes audit entries to the compliance topic.
type Publisher struct {
	producer producer.Publisher
	topic    string
	logger   *slog.Logger
}

// NewPublisher constructs an audit publisher on top of a Kafka producer.
func NewPublisher(p producer.Publisher, topic string, logger *slog.Logger) *Publisher {
	return &Publisher{producer: p, topic: topic, logger: logger}
}

// Publish serializes and produces one entry. Failures are logged, not
// returned: the audit trail must never fail a state transition.
func (p *Publisher) Publish(_ context.Context, entry Entry) {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	value, err := json.Marshal(entry)
	if err != nil {
		p.logger.Error("marshal audit entry", "action", entry.Action, "error", err)
		return
	}

	if err := p.producer.ProduceAsync(&producer.Message{
		Topic: p.topic,
		Key:   []byte(entry.ExternalID),
		Value: value,
	}); err != nil {
		p.logger.Error("publish audit entry",
			"action", entry.Action, "external_id", entry.ExternalID, "error", err)
	}
}
