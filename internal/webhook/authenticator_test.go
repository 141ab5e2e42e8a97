package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/suite"

	"onboard-gateway/internal/applicant/models"
	dErrors "onboard-gateway/pkg/domain-errors"
)

type WebhookSuite struct {
	suite.Suite
	auth *Authenticator
}

func TestWebhookSuite(t *testing.T) {
	suite.Run(t, new(WebhookSuite))
}

func (s *WebhookSuite) SetupTest() {
	s.auth = NewAuthenticator("shared-secret")
}

func (s *WebhookSuite) sign(body []byte) string {
	mac := hmac.New(sha256.New, []byte("shared-secret"))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func (s *WebhookSuite) TestVerifyAcceptsValidDigest() {
	body := []byte(`{"type":"applicantPending","externalUserId":"cpf_12345678901"}`)
	s.NoError(s.auth.Verify(body, s.sign(body)))
}

func (s *WebhookSuite) TestVerifyRejectsTamperedBody() {
	body := []byte(`{"type":"applicantPending","externalUserId":"cpf_12345678901"}`)
	digest := s.sign(body)

	tampered := []byte(`{"type":"applicantReviewed","externalUserId":"cpf_12345678901"}`)
	err := s.auth.Verify(tampered, digest)
	s.True(dErrors.HasCode(err, dErrors.CodeAuthenticationFailed))
}

func (s *WebhookSuite) TestVerifyRejectsMissingAndMalformedDigest() {
	body := []byte(`{}`)

	err := s.auth.Verify(body, "")
	s.True(dErrors.HasCode(err, dErrors.CodeAuthenticationFailed))

	err = s.auth.Verify(body, "not-hex!")
	s.True(dErrors.HasCode(err, dErrors.CodeAuthenticationFailed))
}

func (s *WebhookSuite) TestVerifyRejectsWrongSecret() {
	other := NewAuthenticator("different-secret")
	body := []byte(`{"type":"applicantPending"}`)

	err := s.auth.Verify(body, other.Sign(body))
	s.True(dErrors.HasCode(err, dErrors.CodeAuthenticationFailed))
}

func (s *WebhookSuite) TestSignRoundTrip() {
	body := []byte(`{"type":"applicantCreated","externalUserId":"cnpj_12345678000199"}`)
	s.NoError(s.auth.Verify(body, s.auth.Sign(body)))
}

func (s *WebhookSuite) TestDecodeReviewedEvent() {
	body := []byte(`{
		"type": "applicantReviewed",
		"applicantId": "prov-123",
		"externalUserId": "cpf_12345678901",
		"reviewStatus": "completed",
		"levelName": "basic-kyc-level",
		"reviewResult": {"reviewAnswer": "RED", "rejectLabels": ["FORGERY"]}
	}`)

	ev, err := Decode(body)
	s.Require().NoError(err)
	s.Equal(models.EventApplicantReviewed, ev.Type)
	s.Equal("prov-123", ev.ApplicantID)
	s.Equal("cpf_12345678901", ev.ExternalUserID)
	s.Equal(models.ReviewRed, ev.ReviewAnswer)
	s.Equal([]string{"FORGERY"}, ev.RejectLabels)
	s.Equal("basic-kyc-level", ev.LevelName)
	s.JSONEq(string(body), string(ev.Raw))
}

func (s *WebhookSuite) TestDecodeRejectsUnknownType() {
	_, err := Decode([]byte(`{"type":"applicantDeleted","externalUserId":"cpf_12345678901"}`))
	s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
}

func (s *WebhookSuite) TestDecodeRejectsMissingExternalID() {
	_, err := Decode([]byte(`{"type":"applicantPending"}`))
	s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
}

func (s *WebhookSuite) TestDecodeRejectsMalformedJSON() {
	_, err := Decode([]byte(`{"type":`))
	s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
}
