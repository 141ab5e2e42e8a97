package provider

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"onboard-gateway/internal/applicant/models"
	dErrors "onboard-gateway/pkg/domain-errors"
)

type ProviderClientSuite struct {
	suite.Suite
}

func TestProviderClientSuite(t *testing.T) {
	suite.Run(t, new(ProviderClientSuite))
}

func (s *ProviderClientSuite) newClient(serverURL string) *Client {
	fixed := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	return NewClient(serverURL, "app-token", "secret-key", 2*time.Second,
		WithClock(func() time.Time { return fixed }))
}

func (s *ProviderClientSuite) TestSignedRequestHeaders() {
	var gotToken, gotSig, gotTs string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.Header.Get("X-App-Token")
		gotSig = r.Header.Get("X-App-Access-Sig")
		gotTs = r.Header.Get("X-App-Access-Ts")
		w.Write([]byte(`{"id":"prov-1"}`))
	}))
	defer srv.Close()

	client := s.newClient(srv.URL)
	_, err := client.FetchApplicant(context.Background(), "prov-1")
	s.Require().NoError(err)

	s.Equal("app-token", gotToken)
	s.Equal("1773489600", gotTs)

	mac := hmac.New(sha256.New, []byte("secret-key"))
	mac.Write([]byte(gotTs + "GET" + "/resources/applicants/prov-1/one"))
	s.Equal(hex.EncodeToString(mac.Sum(nil)), gotSig)
}

func (s *ProviderClientSuite) TestFetchApplicantIndividual() {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.Equal("/resources/applicants/prov-1/one", r.URL.Path)
		w.Write([]byte(`{
			"id": "prov-1",
			"email": "ana@example.com",
			"phone": "+5511999999999",
			"info": {
				"firstName": "Ana",
				"lastName": "Souza",
				"idDocs": [{"idDocType": "CPF", "number": "12345678901"}]
			}
		}`))
	}))
	defer srv.Close()

	profile, err := s.newClient(srv.URL).FetchApplicant(context.Background(), "prov-1")
	s.Require().NoError(err)
	s.Equal("Ana Souza", profile.Name)
	s.Equal("12345678901", profile.Document)
	s.Equal("ana@example.com", profile.Email)
	s.Equal("+5511999999999", profile.Phone)
	s.Equal(models.KindIndividual, profile.Kind)
}

func (s *ProviderClientSuite) TestFetchApplicantCompany() {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"id": "prov-2",
			"companyInfo": {"companyName": "Acme Ltda", "registrationNumber": "12345678000199"}
		}`))
	}))
	defer srv.Close()

	profile, err := s.newClient(srv.URL).FetchApplicant(context.Background(), "prov-2")
	s.Require().NoError(err)
	s.Equal("Acme Ltda", profile.Name)
	s.Equal("12345678000199", profile.Document)
	s.Equal(models.KindCompany, profile.Kind)
}

func (s *ProviderClientSuite) TestFetchApplicantNotFound() {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := s.newClient(srv.URL).FetchApplicant(context.Background(), "nope")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ProviderClientSuite) TestFetchApplicantAuthFailure() {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := s.newClient(srv.URL).FetchApplicant(context.Background(), "prov-1")
	s.True(dErrors.HasCode(err, dErrors.CodeAuthenticationFailed))
}

func (s *ProviderClientSuite) TestFetchApplicantServerError() {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := s.newClient(srv.URL).FetchApplicant(context.Background(), "prov-1")
	s.True(dErrors.HasCode(err, dErrors.CodeUpstreamUnavailable))
}
