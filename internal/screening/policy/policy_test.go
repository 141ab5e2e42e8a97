package policy

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"onboard-gateway/internal/screening/models"
)

type PolicySuite struct {
	suite.Suite
	policy *Policy
}

func TestPolicySuite(t *testing.T) {
	suite.Run(t, new(PolicySuite))
}

func (s *PolicySuite) SetupTest() {
	s.policy = New(
		[]string{"sanctioned entity", "stolen funds", "terrorist financing", "scam"},
		[]string{"High", "Severe"},
	)
}

func (s *PolicySuite) TestDecide() {
	tests := []struct {
		name       string
		assessment models.Assessment
		want       models.Decision
	}{
		{
			"sanctioned always rejected",
			models.Assessment{Sanctioned: true, Risk: models.RiskLow},
			models.DecisionRejected,
		},
		{
			"sanctions outrank low risk and clean exposures",
			models.Assessment{Sanctioned: true, Risk: models.RiskLow, Exposures: []models.Exposure{{Category: "exchange", Value: 100}}},
			models.DecisionRejected,
		},
		{
			"hard blocked category rejected despite low risk",
			models.Assessment{Risk: models.RiskLow, Exposures: []models.Exposure{{Category: "stolen funds", Value: 12.5}}},
			models.DecisionRejected,
		},
		{
			"hard block matches case insensitively",
			models.Assessment{Risk: models.RiskLow, Exposures: []models.Exposure{{Category: "Stolen Funds", Value: 1}}},
			models.DecisionRejected,
		},
		{
			"high risk goes to manual review",
			models.Assessment{Risk: models.RiskHigh},
			models.DecisionManualReview,
		},
		{
			"severe risk goes to manual review",
			models.Assessment{Risk: models.RiskSevere, Exposures: []models.Exposure{{Category: "gambling", Value: 40}}},
			models.DecisionManualReview,
		},
		{
			"low risk clean exposures approved",
			models.Assessment{Risk: models.RiskLow, Exposures: []models.Exposure{{Category: "exchange", Value: 99}}},
			models.DecisionApproved,
		},
		{
			"medium risk approved by default review levels",
			models.Assessment{Risk: models.RiskMedium},
			models.DecisionApproved,
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			got := s.policy.Decide(tt.assessment)
			s.Equal(tt.want, got.Decision)
			s.NotEmpty(got.Reason)
		})
	}
}

func (s *PolicySuite) TestRejectionNamesBlockedCategory() {
	got := s.policy.Decide(models.Assessment{
		Risk:      models.RiskLow,
		Exposures: []models.Exposure{{Category: "terrorist financing", Value: 3}},
	})
	s.Equal(models.DecisionRejected, got.Decision)
	s.Contains(got.Reason, "terrorist financing")
}

func (s *PolicySuite) TestReviewReasonListsTopExposuresByValue() {
	got := s.policy.Decide(models.Assessment{
		Risk: models.RiskHigh,
		Exposures: []models.Exposure{
			{Category: "gambling", Value: 10},
			{Category: "mixer", Value: 500},
			{Category: "darknet market", Value: 90},
			{Category: "exchange", Value: 1},
		},
	})
	s.Equal(models.DecisionManualReview, got.Decision)
	s.Contains(got.Reason, "High")
	s.Contains(got.Reason, "mixer, darknet market, gambling")
	s.NotContains(got.Reason, "exchange")
}

func (s *PolicySuite) TestConfigurableRules() {
	strict := New([]string{"gambling"}, []string{"Medium", "High", "Severe"})

	got := strict.Decide(models.Assessment{Risk: models.RiskLow, Exposures: []models.Exposure{{Category: "gambling", Value: 1}}})
	s.Equal(models.DecisionRejected, got.Decision)

	got = strict.Decide(models.Assessment{Risk: models.RiskMedium})
	s.Equal(models.DecisionManualReview, got.Decision)
}
