package models

type Tier string

const (
	TierSafe    Tier = "safe"
	TierWarning Tier = "warning"
	TierDanger  Tier = "danger"
)

// RiskResult is the scored probability and its danger tier
type RiskResult struct {
	ProbabilityPercent float64 `json:"probability_percent"`
	Tier               Tier    `json:"tier"`
	Policy             string  `json:"policy"`
}
