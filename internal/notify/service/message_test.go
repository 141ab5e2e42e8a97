package service

import (
	"testing"

	"github.com/stretchr/testify/suite"

	applicant "onboard-gateway/internal/applicant/models"
)

type MessageSuite struct {
	suite.Suite
	builder *Builder
}

func TestMessageSuite(t *testing.T) {
	suite.Run(t, new(MessageSuite))
}

func (s *MessageSuite) SetupTest() {
	s.builder = NewBuilder("https://onboard.example.com")
}

func (s *MessageSuite) TestRejectionIncludesReason() {
	a := &applicant.Applicant{
		ExternalID:      "cpf_12345678901",
		Kind:            applicant.KindIndividual,
		Status:          applicant.StatusRejected,
		ReviewAnswer:    applicant.ReviewRed,
		RejectionReason: "FORGERY",
	}
	p := s.builder.Build(applicant.EventApplicantReviewed, a)
	s.Contains(p.Message, "rejected")
	s.Contains(p.Message, "FORGERY")
	s.Equal("RED", p.ReviewAnswer)
}

func (s *MessageSuite) TestContractSignedLinksWalletToken() {
	a := &applicant.Applicant{
		ExternalID:  "cnpj_12345678000199",
		Kind:        applicant.KindCompany,
		Status:      applicant.StatusApproved,
		WalletToken: "wt-token",
	}
	p := s.builder.Build(applicant.EventContractSigned, a)
	s.Contains(p.Message, "wallet/register?token=wt-token")
	s.Contains(p.Message, "30 days")
	s.Equal("company", p.Applicant.Type)
}

func (s *MessageSuite) TestWalletRegisteredPendingReviewVariant() {
	a := &applicant.Applicant{
		ExternalID:          "cpf_12345678901",
		Status:              applicant.StatusApproved,
		WalletAddress:       "TXYZa1b2c3d4e5f6g7h8i9j1k2m3n4p5q6",
		WalletPendingReview: true,
	}
	p := s.builder.Build(applicant.EventWalletRegistered, a)
	s.Contains(p.Message, "review")

	a.WalletPendingReview = false
	p = s.builder.Build(applicant.EventWalletRegistered, a)
	s.Contains(p.Message, "complete")
}

func (s *MessageSuite) TestOmitsEmptyOptionalFields() {
	a := &applicant.Applicant{
		ExternalID: "cpf_12345678901",
		Kind:       applicant.KindIndividual,
		Status:     applicant.StatusCreated,
	}
	p := s.builder.Build(applicant.EventApplicantCreated, a)
	s.Empty(p.Applicant.Name)
	s.Empty(p.ReviewAnswer)
	s.Contains(p.Message, "started")
}
