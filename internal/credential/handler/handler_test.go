package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	applicant "onboard-gateway/internal/applicant/models"
	"onboard-gateway/internal/credential/service"
	screening "onboard-gateway/internal/screening/models"
	dErrors "onboard-gateway/pkg/domain-errors"
)

type stubCredentialService struct {
	record      *applicant.Applicant
	result      screening.Result
	err         error
	gotToken    string
	gotAddress  string
	gotEvidence service.Evidence
}

func (s *stubCredentialService) ValidateContract(_ context.Context, token string) (*applicant.Applicant, error) {
	s.gotToken = token
	return s.record, s.err
}

func (s *stubCredentialService) SignContract(_ context.Context, token string, evidence service.Evidence) (*applicant.Applicant, error) {
	s.gotToken = token
	s.gotEvidence = evidence
	return s.record, s.err
}

func (s *stubCredentialService) ValidateWallet(_ context.Context, token string) (*applicant.Applicant, error) {
	s.gotToken = token
	return s.record, s.err
}

func (s *stubCredentialService) RegisterWallet(_ context.Context, token, address string) (*applicant.Applicant, screening.Result, error) {
	s.gotToken = token
	s.gotAddress = address
	return s.record, s.result, s.err
}

type CredentialHandlerSuite struct {
	suite.Suite
	service *stubCredentialService
	router  chi.Router
}

func TestCredentialHandlerSuite(t *testing.T) {
	suite.Run(t, new(CredentialHandlerSuite))
}

func (s *CredentialHandlerSuite) SetupTest() {
	signedAt := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	s.service = &stubCredentialService{
		record: &applicant.Applicant{
			ExternalID:             "cpf_12345678901",
			Kind:                   applicant.KindIndividual,
			Name:                   "Ada Lovelace",
			Status:                 applicant.StatusApproved,
			ContractTokenExpiresAt: signedAt.Add(7 * 24 * time.Hour),
			ContractSignedAt:       &signedAt,
			WalletTokenExpiresAt:   signedAt.Add(30 * 24 * time.Hour),
		},
		result: screening.Result{Decision: screening.DecisionApproved},
	}
	s.router = chi.NewRouter()
	New(s.service, slog.New(slog.DiscardHandler)).Register(s.router)
}

func (s *CredentialHandlerSuite) do(method, target string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *CredentialHandlerSuite) TestValidateContract() {
	rec := s.do(http.MethodGet, "/contract/validate?token=abc", nil)

	s.Equal(http.StatusOK, rec.Code)
	s.Equal("abc", s.service.gotToken)

	var resp map[string]any
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Equal("cpf_12345678901", resp["externalId"])
	s.Equal("individual", resp["type"])
}

func (s *CredentialHandlerSuite) TestValidateContractRequiresToken() {
	rec := s.do(http.MethodGet, "/contract/validate", nil)
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *CredentialHandlerSuite) TestValidateContractExpired() {
	s.service.err = dErrors.New(dErrors.CodeExpired, "contract link expired")
	s.service.record = nil

	rec := s.do(http.MethodGet, "/contract/validate?token=abc", nil)
	s.Equal(http.StatusGone, rec.Code)
}

func (s *CredentialHandlerSuite) TestSignContractForwardsEvidence() {
	raw, err := json.Marshal(map[string]string{"token": "abc"})
	s.Require().NoError(err)
	req := httptest.NewRequest(http.MethodPost, "/contract/sign", bytes.NewReader(raw))
	req.RemoteAddr = "203.0.113.7:44210"
	req.Header.Set("User-Agent", "test-agent/1.0")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	s.Equal(http.StatusOK, rec.Code)
	s.Equal("abc", s.service.gotToken)
	s.Equal("203.0.113.7", s.service.gotEvidence.IP)
	s.Equal("test-agent/1.0", s.service.gotEvidence.UserAgent)
}

func (s *CredentialHandlerSuite) TestSignContractRequiresToken() {
	rec := s.do(http.MethodPost, "/contract/sign", map[string]string{})
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Empty(s.service.gotToken)
}

func (s *CredentialHandlerSuite) TestSignContractAlreadySigned() {
	s.service.err = dErrors.New(dErrors.CodeAlreadyConsumed, "contract already signed")
	s.service.record = nil

	rec := s.do(http.MethodPost, "/contract/sign", map[string]string{"token": "abc"})
	s.Equal(http.StatusGone, rec.Code)
}

func (s *CredentialHandlerSuite) TestValidateWalletPrerequisite() {
	s.service.err = dErrors.New(dErrors.CodePrerequisiteNotMet, "contract must be signed first")
	s.service.record = nil

	rec := s.do(http.MethodGet, "/wallet/validate?token=abc", nil)
	s.Equal(http.StatusPreconditionFailed, rec.Code)
}

func (s *CredentialHandlerSuite) TestRegisterWalletApproved() {
	now := time.Date(2026, 4, 2, 9, 0, 0, 0, time.UTC)
	s.service.record.WalletRegisteredAt = &now

	rec := s.do(http.MethodPost, "/wallet/register", map[string]string{
		"token":   "abc",
		"address": "TXYZa1b2c3d4e5f6g7h8i9j1k2m3n4p5q6",
	})

	s.Equal(http.StatusOK, rec.Code)
	s.Equal("TXYZa1b2c3d4e5f6g7h8i9j1k2m3n4p5q6", s.service.gotAddress)

	var resp map[string]any
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Equal("APPROVED", resp["decision"])
	s.NotContains(resp, "reason")
}

func (s *CredentialHandlerSuite) TestRegisterWalletRejectedReturnsReason() {
	s.service.result = screening.Result{Decision: screening.DecisionRejected, Reason: "address is sanctioned"}

	rec := s.do(http.MethodPost, "/wallet/register", map[string]string{
		"token":   "abc",
		"address": "TXYZa1b2c3d4e5f6g7h8i9j1k2m3n4p5q6",
	})

	s.Equal(http.StatusOK, rec.Code)
	var resp map[string]any
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Equal("REJECTED", resp["decision"])
	s.Equal("address is sanctioned", resp["reason"])
	s.NotContains(resp, "registeredAt")
}

func (s *CredentialHandlerSuite) TestRegisterWalletMissingFields() {
	rec := s.do(http.MethodPost, "/wallet/register", map[string]string{"token": "abc"})
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Empty(s.service.gotAddress)
}

func (s *CredentialHandlerSuite) TestRegisterWalletMalformedBody() {
	req := httptest.NewRequest(http.MethodPost, "/wallet/register", bytes.NewReader([]byte("{")))
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	s.Equal(http.StatusBadRequest, rec.Code)
}
