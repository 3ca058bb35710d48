// Package health computes the composite project health score.
package health

import "math"

// Metrics are the per-dimension scores, each on a 0-100 scale.
type Metrics struct {
	Budget       float64 `json:"budget"`
	Timeline     float64 `json:"timeline"`
	Resources    float64 `json:"resources"`
	Stakeholders float64 `json:"stakeholders"`
}

const (
	BudgetWeight       = 0.3
	TimelineWeight     = 0.3
	ResourcesWeight    = 0.2
	StakeholdersWeight = 0.2
)

// Score is the weighted average of m rounded to two decimals.
func Score(m Metrics) float64 {
	score := m.Budget*BudgetWeight +
		m.Timeline*TimelineWeight +
		m.Resources*ResourcesWeight +
		m.Stakeholders*StakeholdersWeight
	return math.Round(score*100) / 100
}
