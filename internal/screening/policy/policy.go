// Package policy evaluates risk assessments into screening decisions.
// Evaluation is pure and deterministic; all provider I/O lives elsewhere.
package policy

import (
	"fmt"
	"sort"
	"strings"

	"onboard-gateway/internal/screening/models"
)

// Policy holds the configured screening rules.
type Policy struct {
	hardBlock    map[string]struct{}
	reviewLevels map[models.RiskLevel]struct{}
}

// New constructs a Policy. Hard-block categories are matched
// case-insensitively; reviewLevels name the risk ratings routed to manual
// review instead of automatic approval.
func New(hardBlockCategories []string, reviewLevels []string) *Policy {
	p := &Policy{
		hardBlock:    make(map[string]struct{}, len(hardBlockCategories)),
		reviewLevels: make(map[models.RiskLevel]struct{}, len(reviewLevels)),
	}
	for _, c := range hardBlockCategories {
		p.hardBlock[strings.ToLower(strings.TrimSpace(c))] = struct{}{}
	}
	for _, l := range reviewLevels {
		p.reviewLevels[models.RiskLevel(strings.TrimSpace(l))] = struct{}{}
	}
	return p
}

// Decide applies the screening rules in order: sanctions hit, hard-block
// exposure category, reviewable risk level, approval.
func (p *Policy) Decide(a models.Assessment) models.Result {
	if a.Sanctioned {
		return models.Result{
			Decision: models.DecisionRejected,
			Reason:   "address belongs to a sanctioned entity",
		}
	}

	for _, e := range a.Exposures {
		if _, blocked := p.hardBlock[strings.ToLower(e.Category)]; blocked {
			return models.Result{
				Decision: models.DecisionRejected,
				Reason:   fmt.Sprintf("address has exposure to blocked category: %s", e.Category),
			}
		}
	}

	if _, review := p.reviewLevels[a.Risk]; review {
		return models.Result{
			Decision: models.DecisionManualReview,
			Reason:   fmt.Sprintf("risk level %s requires manual review%s", a.Risk, topExposures(a.Exposures)),
		}
	}

	return models.Result{
		Decision: models.DecisionApproved,
		Reason:   "no sanctions, blocked exposures, or elevated risk",
	}
}

// topExposures summarizes the largest exposure categories for review context.
func topExposures(exposures []models.Exposure) string {
	if len(exposures) == 0 {
		return ""
	}
	sorted := make([]models.Exposure, len(exposures))
	copy(sorted, exposures)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Value > sorted[j].Value })

	limit := 3
	if len(sorted) < limit {
		limit = len(sorted)
	}
	names := make([]string, 0, limit)
	for _, e := range sorted[:limit] {
		names = append(names, e.Category)
	}
	return " (top exposures: " + strings.Join(names, ", ") + ")"
}
