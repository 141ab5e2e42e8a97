package handler

//go:generate mockgen -source=handler.go -destination=mocks/handler_mock.go -package=mocks Service

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"onboard-gateway/internal/applicant/handler/mocks"
	"onboard-gateway/internal/applicant/models"
	"onboard-gateway/internal/webhook"
	dErrors "onboard-gateway/pkg/domain-errors"
)

type WebhookHandlerSuite struct {
	suite.Suite
	ctrl        *gomock.Controller
	mockService *mocks.MockService
	auth        *webhook.Authenticator
	router      *chi.Mux
}

func TestWebhookHandlerSuite(t *testing.T) {
	suite.Run(t, new(WebhookHandlerSuite))
}

func (s *WebhookHandlerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.mockService = mocks.NewMockService(s.ctrl)
	s.auth = webhook.NewAuthenticator("shared-secret")
	s.router = chi.NewRouter()
	New(s.mockService, s.auth, slog.New(slog.DiscardHandler)).Register(s.router)
}

func (s *WebhookHandlerSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *WebhookHandlerSuite) post(body []byte, digest string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/provider", bytes.NewReader(body))
	if digest != "" {
		req.Header.Set(webhook.DigestHeader, digest)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *WebhookHandlerSuite) TestAcceptsAuthenticatedEvent() {
	body := []byte(`{"type":"applicantPending","externalUserId":"cpf_12345678901"}`)

	var got models.InboundEvent
	s.mockService.EXPECT().
		ProcessEvent(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ any, ev models.InboundEvent) (*models.Applicant, error) {
			got = ev
			return &models.Applicant{ExternalID: "cpf_12345678901", Status: models.StatusPending}, nil
		})

	rec := s.post(body, s.auth.Sign(body))

	s.Equal(http.StatusOK, rec.Code)
	s.Equal(models.EventApplicantPending, got.Type)
	s.Equal("cpf_12345678901", got.ExternalUserID)
	s.Contains(rec.Body.String(), "pending")
}

func (s *WebhookHandlerSuite) TestRejectsBadDigest() {
	body := []byte(`{"type":"applicantPending","externalUserId":"cpf_12345678901"}`)
	rec := s.post(body, "0000")
	s.Equal(http.StatusUnauthorized, rec.Code)
}

func (s *WebhookHandlerSuite) TestRejectsMissingDigest() {
	body := []byte(`{"type":"applicantPending","externalUserId":"cpf_12345678901"}`)
	rec := s.post(body, "")
	s.Equal(http.StatusUnauthorized, rec.Code)
}

func (s *WebhookHandlerSuite) TestRejectsUnknownEventType() {
	body := []byte(`{"type":"applicantDeleted","externalUserId":"cpf_12345678901"}`)
	rec := s.post(body, s.auth.Sign(body))
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *WebhookHandlerSuite) TestMapsUnknownApplicantToNotFound() {
	body := []byte(`{"type":"applicantReviewed","externalUserId":"cpf_12345678901"}`)

	s.mockService.EXPECT().
		ProcessEvent(gomock.Any(), gomock.Any()).
		Return(nil, dErrors.New(dErrors.CodeNotFound, "unknown applicant"))

	rec := s.post(body, s.auth.Sign(body))
	s.Equal(http.StatusNotFound, rec.Code)
}
