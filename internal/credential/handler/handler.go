// Package handler exposes the public contract and wallet link endpoints.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	applicant "onboard-gateway/internal/applicant/models"
	"onboard-gateway/internal/credential/service"
	"onboard-gateway/internal/platform/middleware"
	respond "onboard-gateway/internal/transport/http/json"
	"onboard-gateway/internal/transport/http/shared"
	screening "onboard-gateway/internal/screening/models"
	dErrors "onboard-gateway/pkg/domain-errors"
	"onboard-gateway/pkg/validation"
)

// Service covers the credential operations reachable from public links.
type Service interface {
	ValidateContract(ctx context.Context, token string) (*applicant.Applicant, error)
	SignContract(ctx context.Context, token string, evidence service.Evidence) (*applicant.Applicant, error)
	ValidateWallet(ctx context.Context, token string) (*applicant.Applicant, error)
	RegisterWallet(ctx context.Context, token, address string) (*applicant.Applicant, screening.Result, error)
}

// Handler handles the token-authenticated self-service endpoints.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New creates a credential Handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register registers the contract and wallet routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/contract/validate", h.handleValidateContract)
	r.Post("/contract/sign", h.handleSignContract)
	r.Get("/wallet/validate", h.handleValidateWallet)
	r.Post("/wallet/register", h.handleRegisterWallet)
}

type signContractRequest struct {
	Token string `json:"token" validate:"required"`
}

type registerWalletRequest struct {
	Token   string `json:"token" validate:"required"`
	Address string `json:"address" validate:"required"`
}

type tokenStatusResponse struct {
	ExternalID string    `json:"externalId"`
	Name       string    `json:"name,omitempty"`
	Kind       string    `json:"type"`
	ExpiresAt  time.Time `json:"expiresAt"`
}

func (h *Handler) handleValidateContract(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	token := r.URL.Query().Get("token")
	if token == "" {
		shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "token is required"))
		return
	}

	record, err := h.service.ValidateContract(ctx, token)
	if err != nil {
		h.logger.InfoContext(ctx, "contract link validation failed",
			"request_id", middleware.GetRequestID(ctx), "error", err)
		shared.WriteError(w, err)
		return
	}

	respond.WriteJSON(w, http.StatusOK, tokenStatusResponse{
		ExternalID: record.ExternalID,
		Name:       record.Name,
		Kind:       string(record.Kind),
		ExpiresAt:  record.ContractTokenExpiresAt,
	})
}

func (h *Handler) handleSignContract(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req signContractRequest
	if err := respond.ReadJSON(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}
	if err := validation.Validate(req); err != nil {
		shared.WriteError(w, err)
		return
	}

	record, err := h.service.SignContract(ctx, req.Token, service.Evidence{
		IP:        middleware.ClientIP(r),
		UserAgent: r.Header.Get("User-Agent"),
	})
	if err != nil {
		h.logger.WarnContext(ctx, "contract signature rejected",
			"request_id", middleware.GetRequestID(ctx), "error", err)
		shared.WriteError(w, err)
		return
	}

	respond.WriteJSON(w, http.StatusOK, map[string]any{
		"externalId": record.ExternalID,
		"signedAt":   record.ContractSignedAt,
	})
}

func (h *Handler) handleValidateWallet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	token := r.URL.Query().Get("token")
	if token == "" {
		shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "token is required"))
		return
	}

	record, err := h.service.ValidateWallet(ctx, token)
	if err != nil {
		h.logger.InfoContext(ctx, "wallet link validation failed",
			"request_id", middleware.GetRequestID(ctx), "error", err)
		shared.WriteError(w, err)
		return
	}

	respond.WriteJSON(w, http.StatusOK, tokenStatusResponse{
		ExternalID: record.ExternalID,
		Name:       record.Name,
		Kind:       string(record.Kind),
		ExpiresAt:  record.WalletTokenExpiresAt,
	})
}

func (h *Handler) handleRegisterWallet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req registerWalletRequest
	if err := respond.ReadJSON(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}
	if err := validation.Validate(req); err != nil {
		shared.WriteError(w, err)
		return
	}

	record, result, err := h.service.RegisterWallet(ctx, req.Token, req.Address)
	if err != nil {
		h.logger.WarnContext(ctx, "wallet registration rejected",
			"request_id", middleware.GetRequestID(ctx), "error", err)
		shared.WriteError(w, err)
		return
	}

	// Screening outcomes are part of the normal response contract. A
	// rejected address returns 200 so the caller can show the reason and
	// offer a retry with a different wallet.
	resp := map[string]any{
		"externalId": record.ExternalID,
		"decision":   string(result.Decision),
	}
	if result.Decision != screening.DecisionApproved {
		resp["reason"] = result.Reason
	}
	if result.Decision != screening.DecisionRejected {
		resp["registeredAt"] = record.WalletRegisteredAt
	}
	respond.WriteJSON(w, http.StatusOK, resp)
}
