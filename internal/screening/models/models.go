// Package models defines risk screening assessments and decisions.
package models

// RiskLevel is the provider's aggregate risk rating for an entity.
type RiskLevel string

const (
	RiskLow    RiskLevel = "Low"
	RiskMedium RiskLevel = "Medium"
	RiskHigh   RiskLevel = "High"
	RiskSevere RiskLevel = "Severe"
)

// Exposure is one category of risky fund exposure with its observed value.
type Exposure struct {
	Category string  `json:"category"`
	Value    float64 `json:"value"`
}

// Assessment is the provider's risk picture for one address.
type Assessment struct {
	Address    string     `json:"address"`
	Sanctioned bool       `json:"sanctioned"`
	Risk       RiskLevel  `json:"risk"`
	Exposures  []Exposure `json:"exposures"`
}

// Decision is the screening outcome for an address.
type Decision string

const (
	DecisionApproved     Decision = "APPROVED"
	DecisionRejected     Decision = "REJECTED"
	DecisionManualReview Decision = "MANUAL_REVIEW"
)

// Result pairs a decision with its human-readable reason.
type Result struct {
	Decision Decision `json:"decision"`
	Reason   string   `json:"reason"`
}
