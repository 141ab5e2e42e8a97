// Package handler exposes the operator surface: session login, applicant
// lookup, credential link resends and notification replay.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"onboard-gateway/internal/admin/auth"
	applicant "onboard-gateway/internal/applicant/models"
	"onboard-gateway/internal/applicant/store"
	"onboard-gateway/internal/audit"
	notify "onboard-gateway/internal/notify/models"
	"onboard-gateway/internal/platform/middleware"
	respond "onboard-gateway/internal/transport/http/json"
	"onboard-gateway/internal/transport/http/shared"
	dErrors "onboard-gateway/pkg/domain-errors"
	"onboard-gateway/pkg/validation"
)

const failedDeliveryPageSize = 100

// SessionService authenticates the operator and validates session tokens.
type SessionService interface {
	Login(username, password string) (string, error)
	auth.TokenValidator
}

// ApplicantReader loads one applicant with its transition history.
type ApplicantReader interface {
	Get(ctx context.Context, ref store.Ref) (*applicant.Applicant, []*applicant.Event, error)
}

// PendingReviewLister lists applicants whose wallets await manual review.
type PendingReviewLister interface {
	ListPendingReview(ctx context.Context) ([]*applicant.Applicant, error)
}

// CredentialResender reissues contract and wallet links.
type CredentialResender interface {
	ResendContract(ctx context.Context, ref store.Ref) (*applicant.Applicant, error)
	ResendWallet(ctx context.Context, ref store.Ref) (*applicant.Applicant, error)
}

// NotificationLog replays failed deliveries and lists the delivery log.
type NotificationLog interface {
	Redeliver(ctx context.Context, deliveryID string) (*notify.Delivery, error)
	ListFailed(ctx context.Context, limit int) ([]*notify.Delivery, error)
}

// Handler handles the /admin route group.
type Handler struct {
	sessions      SessionService
	applicants    ApplicantReader
	pendingReview PendingReviewLister
	credentials   CredentialResender
	notifications NotificationLog
	auditor       *audit.Publisher
	logger        *slog.Logger
}

// New creates an admin Handler.
func New(
	sessions SessionService,
	applicants ApplicantReader,
	pendingReview PendingReviewLister,
	credentials CredentialResender,
	notifications NotificationLog,
	auditor *audit.Publisher,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		sessions:      sessions,
		applicants:    applicants,
		pendingReview: pendingReview,
		credentials:   credentials,
		notifications: notifications,
		auditor:       auditor,
		logger:        logger,
	}
}

// Register registers the admin routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/admin", func(r chi.Router) {
		r.Post("/login", h.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireSession(h.sessions, h.logger))
			r.Get("/applicants/pending-review", h.handleListPendingReview)
			r.Get("/applicants/{externalID}", h.handleGetApplicant)
			r.Post("/contract/resend", h.handleResendContract)
			r.Post("/wallet/resend", h.handleResendWallet)
			r.Get("/notifications/failed", h.handleListFailedNotifications)
			r.Post("/notifications/retry", h.handleRetryNotification)
		})
	})
}

type loginRequest struct {
	Username string `json:"username" validate:"required,notblank"`
	Password string `json:"password" validate:"required,notblank"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req loginRequest
	if err := respond.ReadJSON(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}
	if err := validation.Validate(req); err != nil {
		shared.WriteError(w, err)
		return
	}

	token, err := h.sessions.Login(req.Username, req.Password)
	if err != nil {
		h.logger.WarnContext(ctx, "admin login rejected",
			"request_id", middleware.GetRequestID(ctx),
			"username", req.Username,
			"remote", middleware.ClientIP(r))
		shared.WriteError(w, err)
		return
	}

	h.auditor.Publish(ctx, audit.Entry{
		Action: audit.ActionAdminLogin,
		Actor:  req.Username,
		Detail: "remote=" + middleware.ClientIP(r),
	})
	h.logger.InfoContext(ctx, "admin login",
		"request_id", middleware.GetRequestID(ctx), "username", req.Username)

	respond.WriteJSON(w, http.StatusOK, map[string]string{
		"token":     token,
		"tokenType": "Bearer",
	})
}

type applicantView struct {
	ExternalID          string     `json:"externalId"`
	Kind                string     `json:"type"`
	Status              string     `json:"status"`
	ReviewAnswer        string     `json:"reviewAnswer,omitempty"`
	RejectionReason     string     `json:"rejectionReason,omitempty"`
	Name                string     `json:"name,omitempty"`
	Document            string     `json:"document,omitempty"`
	Email               string     `json:"email,omitempty"`
	ContractSignedAt    *time.Time `json:"contractSignedAt,omitempty"`
	WalletAddress       string     `json:"walletAddress,omitempty"`
	WalletPendingReview bool       `json:"walletPendingReview,omitempty"`
	WalletRegisteredAt  *time.Time `json:"walletRegisteredAt,omitempty"`
	ApprovedAt          *time.Time `json:"approvedAt,omitempty"`
	RejectedAt          *time.Time `json:"rejectedAt,omitempty"`
	CreatedAt           time.Time  `json:"createdAt"`
	UpdatedAt           time.Time  `json:"updatedAt"`
}

type eventView struct {
	Kind            string    `json:"kind"`
	PriorStatus     string    `json:"priorStatus,omitempty"`
	NewStatus       string    `json:"newStatus"`
	ReviewAnswer    string    `json:"reviewAnswer,omitempty"`
	RejectionReason string    `json:"rejectionReason,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
}

func viewOf(a *applicant.Applicant) applicantView {
	return applicantView{
		ExternalID:          a.ExternalID,
		Kind:                string(a.Kind),
		Status:              string(a.Status),
		ReviewAnswer:        string(a.ReviewAnswer),
		RejectionReason:     a.RejectionReason,
		Name:                a.Name,
		Document:            a.Document,
		Email:               a.Email,
		ContractSignedAt:    a.ContractSignedAt,
		WalletAddress:       a.WalletAddress,
		WalletPendingReview: a.WalletPendingReview,
		WalletRegisteredAt:  a.WalletRegisteredAt,
		ApprovedAt:          a.ApprovedAt,
		RejectedAt:          a.RejectedAt,
		CreatedAt:           a.CreatedAt,
		UpdatedAt:           a.UpdatedAt,
	}
}

func (h *Handler) handleGetApplicant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	externalID := chi.URLParam(r, "externalID")
	record, events, err := h.applicants.Get(ctx, store.Ref{ExternalID: externalID})
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	history := make([]eventView, 0, len(events))
	for _, ev := range events {
		history = append(history, eventView{
			Kind:            string(ev.Kind),
			PriorStatus:     string(ev.PriorStatus),
			NewStatus:       string(ev.NewStatus),
			ReviewAnswer:    string(ev.ReviewAnswer),
			RejectionReason: ev.RejectionReason,
			CreatedAt:       ev.CreatedAt,
		})
	}

	respond.WriteJSON(w, http.StatusOK, map[string]any{
		"applicant": viewOf(record),
		"history":   history,
	})
}

func (h *Handler) handleListPendingReview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	records, err := h.pendingReview.ListPendingReview(ctx)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	views := make([]applicantView, 0, len(records))
	for _, record := range records {
		views = append(views, viewOf(record))
	}
	respond.WriteJSON(w, http.StatusOK, map[string]any{"applicants": views})
}

type resendRequest struct {
	ExternalID string `json:"externalId"`
	Document   string `json:"document"`
}

func (r resendRequest) ref() (store.Ref, error) {
	if r.ExternalID == "" && r.Document == "" {
		return store.Ref{}, dErrors.New(dErrors.CodeValidation, "externalId or document is required")
	}
	return store.Ref{ExternalID: r.ExternalID, Document: r.Document}, nil
}

func (h *Handler) handleResendContract(w http.ResponseWriter, r *http.Request) {
	h.handleResend(w, r, h.credentials.ResendContract, "contract link resent")
}

func (h *Handler) handleResendWallet(w http.ResponseWriter, r *http.Request) {
	h.handleResend(w, r, h.credentials.ResendWallet, "wallet link resent")
}

func (h *Handler) handleResend(
	w http.ResponseWriter,
	r *http.Request,
	resend func(context.Context, store.Ref) (*applicant.Applicant, error),
	message string,
) {
	ctx := r.Context()

	var req resendRequest
	if err := respond.ReadJSON(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}
	ref, err := req.ref()
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	record, err := resend(ctx, ref)
	if err != nil {
		h.logger.WarnContext(ctx, "credential resend failed",
			"request_id", middleware.GetRequestID(ctx),
			"operator", auth.Operator(ctx),
			"external_id", req.ExternalID,
			"error", err)
		shared.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, message,
		"request_id", middleware.GetRequestID(ctx),
		"operator", auth.Operator(ctx),
		"external_id", record.ExternalID)

	respond.WriteJSON(w, http.StatusOK, map[string]string{
		"externalId": record.ExternalID,
		"status":     string(record.Status),
	})
}

type deliveryView struct {
	ID          string     `json:"id"`
	ExternalID  string     `json:"externalId"`
	Event       string     `json:"event"`
	Status      string     `json:"status"`
	Attempts    int        `json:"attempts"`
	LastError   string     `json:"lastError,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	DeliveredAt *time.Time `json:"deliveredAt,omitempty"`
}

func deliveryViewOf(d *notify.Delivery) deliveryView {
	return deliveryView{
		ID:          d.ID,
		ExternalID:  d.ExternalID,
		Event:       d.Event,
		Status:      string(d.Status),
		Attempts:    d.Attempts,
		LastError:   d.LastError,
		CreatedAt:   d.CreatedAt,
		DeliveredAt: d.DeliveredAt,
	}
}

func (h *Handler) handleListFailedNotifications(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	deliveries, err := h.notifications.ListFailed(ctx, failedDeliveryPageSize)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	views := make([]deliveryView, 0, len(deliveries))
	for _, d := range deliveries {
		views = append(views, deliveryViewOf(d))
	}
	respond.WriteJSON(w, http.StatusOK, map[string]any{"deliveries": views})
}

type retryRequest struct {
	DeliveryID string `json:"deliveryId" validate:"required"`
}

func (h *Handler) handleRetryNotification(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req retryRequest
	if err := respond.ReadJSON(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}
	if err := validation.Validate(req); err != nil {
		shared.WriteError(w, err)
		return
	}

	delivery, err := h.notifications.Redeliver(ctx, req.DeliveryID)
	if err != nil {
		h.logger.WarnContext(ctx, "notification replay failed",
			"request_id", middleware.GetRequestID(ctx),
			"operator", auth.Operator(ctx),
			"delivery_id", req.DeliveryID,
			"error", err)
		shared.WriteError(w, err)
		return
	}

	h.auditor.Publish(ctx, audit.Entry{
		ExternalID:  delivery.ExternalID,
		ApplicantID: delivery.ApplicantID,
		Action:      audit.ActionNotificationReplayed,
		Actor:       auth.Operator(ctx),
		Detail:      "delivery=" + delivery.ID,
	})

	respond.WriteJSON(w, http.StatusOK, deliveryViewOf(delivery))
}
