// Package handler exposes the inbound verification event endpoint.
package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"onboard-gateway/internal/applicant/models"
	"onboard-gateway/internal/platform/middleware"
	"onboard-gateway/internal/transport/http/shared"
	respond "onboard-gateway/internal/transport/http/json"
	"onboard-gateway/internal/webhook"
	dErrors "onboard-gateway/pkg/domain-errors"
)

// Event payloads are small; anything larger is abuse.
const maxBodyBytes = 1 << 20

// Service applies authenticated inbound events.
type Service interface {
	ProcessEvent(ctx context.Context, ev models.InboundEvent) (*models.Applicant, error)
}

// Handler handles the provider webhook endpoint.
type Handler struct {
	service Service
	auth    *webhook.Authenticator
	logger  *slog.Logger
}

// New creates a webhook Handler.
func New(service Service, auth *webhook.Authenticator, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		auth:    auth,
		logger:  logger,
	}
}

// Register registers the webhook route with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/webhooks/provider", h.handleProviderEvent)
}

func (h *Handler) handleProviderEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		h.logger.WarnContext(ctx, "failed to read event body",
			"request_id", requestID, "error", err)
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "unreadable request body"))
		return
	}

	if err := h.auth.Verify(body, r.Header.Get(webhook.DigestHeader)); err != nil {
		h.logger.WarnContext(ctx, "rejected unauthenticated event",
			"request_id", requestID, "remote", middleware.ClientIP(r))
		shared.WriteError(w, err)
		return
	}

	ev, err := webhook.Decode(body)
	if err != nil {
		h.logger.WarnContext(ctx, "rejected malformed event",
			"request_id", requestID, "error", err)
		shared.WriteError(w, err)
		return
	}

	record, err := h.service.ProcessEvent(ctx, ev)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to process event",
			"request_id", requestID, "external_id", ev.ExternalUserID, "kind", ev.Type, "error", err)
		shared.WriteError(w, err)
		return
	}

	respond.WriteJSON(w, http.StatusOK, map[string]string{
		"status":     string(record.Status),
		"externalId": record.ExternalID,
	})
}
