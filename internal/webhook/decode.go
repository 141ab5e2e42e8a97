package webhook

import (
	"encoding/json"

	"onboard-gateway/internal/applicant/models"
	dErrors "onboard-gateway/pkg/domain-errors"
)

type payload struct {
	Type           string `json:"type"`
	ApplicantID    string `json:"applicantId"`
	ExternalUserID string `json:"externalUserId"`
	ReviewStatus   string `json:"reviewStatus"`
	LevelName      string `json:"levelName"`
	ReviewResult   struct {
		ReviewAnswer     string   `json:"reviewAnswer"`
		RejectLabels     []string `json:"rejectLabels"`
		ReviewRejectType string   `json:"reviewRejectType"`
	} `json:"reviewResult"`
}

var eventKinds = map[string]models.EventKind{
	"applicantCreated":  models.EventApplicantCreated,
	"applicantPending":  models.EventApplicantPending,
	"applicantReviewed": models.EventApplicantReviewed,
	"applicantOnHold":   models.EventApplicantOnHold,
}

// Decode parses an authenticated raw event body into an InboundEvent.
// Unknown event types and missing external identities are rejected so the
// sender sees a non-retryable 4xx.
func Decode(rawBody []byte) (models.InboundEvent, error) {
	var p payload
	if err := json.Unmarshal(rawBody, &p); err != nil {
		return models.InboundEvent{}, dErrors.Wrap(err, dErrors.CodeBadRequest, "malformed event payload")
	}

	kind, ok := eventKinds[p.Type]
	if !ok {
		return models.InboundEvent{}, dErrors.New(dErrors.CodeBadRequest, "unsupported event type: "+p.Type)
	}
	if p.ExternalUserID == "" {
		return models.InboundEvent{}, dErrors.New(dErrors.CodeBadRequest, "event missing externalUserId")
	}

	return models.InboundEvent{
		Type:           kind,
		ApplicantID:    p.ApplicantID,
		ExternalUserID: p.ExternalUserID,
		ReviewStatus:   p.ReviewStatus,
		ReviewAnswer:   models.ReviewAnswer(p.ReviewResult.ReviewAnswer),
		RejectLabels:   p.ReviewResult.RejectLabels,
		LevelName:      p.LevelName,
		Raw:            json.RawMessage(rawBody),
	}, nil
}
