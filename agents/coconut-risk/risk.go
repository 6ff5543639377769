package coconutrisk

import (
	"math"
	"math/rand/v2"

	"coconut-risk/internal/models"
	"coconut-risk/shared/config"
)

const (
	dangerThreshold  = 70.0
	warningThreshold = 40.0
)

// Policy scores raw inputs into an unclamped probability percentage
type Policy interface {
	Name() string
	Score(w *models.WeatherSnapshot, windSpeed float64, trees, minutes int) float64
}

// PowerLawPolicy grows the base with wind^1.5 and applies weather multipliers.
// Normalized to 15 trees and two hours of exposure.
type PowerLawPolicy struct{}

func (PowerLawPolicy) Name() string { return config.PolicyPowerLaw }

func (PowerLawPolicy) Score(w *models.WeatherSnapshot, windSpeed float64, trees, minutes int) float64 {
	base := 10 + math.Pow(windSpeed, 1.5)*2.5

	if w.Rain != nil && *w.Rain > 0 {
		base *= 1.3
	}
	if w.IsStormy {
		base *= 3.0
	}
	if w.Temperature != nil && *w.Temperature > 30 {
		base *= 1.1
	}
	if w.Humidity != nil && *w.Humidity < 40 {
		base *= 0.8
	}

	return base * (float64(trees) / 15) * (float64(minutes) / 120)
}

// JitterSource supplies the random term of the linear policy
type JitterSource func() float64

// NoJitter keeps the linear policy deterministic
func NoJitter() float64 { return 0 }

// UniformJitter draws from [-halfWidth, halfWidth)
func UniformJitter(halfWidth float64, r *rand.Rand) JitterSource {
	return func() float64 {
		return (r.Float64()*2 - 1) * halfWidth
	}
}

// LinearWindPolicy grows the base linearly with wind.
// Normalized to 20 trees and a full day of exposure.
type LinearWindPolicy struct {
	Jitter JitterSource
}

func (LinearWindPolicy) Name() string { return config.PolicyLinear }

func (p LinearWindPolicy) Score(_ *models.WeatherSnapshot, windSpeed float64, trees, minutes int) float64 {
	jitter := NoJitter
	if p.Jitter != nil {
		jitter = p.Jitter
	}

	base := math.Max(0, 10+windSpeed*2+jitter())
	return base * 5 * (float64(trees) / 20) * (float64(minutes) / 1440)
}

// NewPolicy picks the scoring policy named in the config
func NewPolicy(cfg config.RiskConfig) Policy {
	if cfg.Policy == config.PolicyLinear {
		jitter := NoJitter
		if cfg.Jitter > 0 {
			jitter = UniformJitter(cfg.Jitter, rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())))
		}
		return LinearWindPolicy{Jitter: jitter}
	}
	return PowerLawPolicy{}
}

// RiskEstimator maps weather, tree density and exposure to a probability
type RiskEstimator struct {
	policy Policy
}

func NewRiskEstimator(policy Policy) *RiskEstimator {
	if policy == nil {
		policy = PowerLawPolicy{}
	}
	return &RiskEstimator{policy: policy}
}

func (e *RiskEstimator) PolicyName() string {
	return e.policy.Name()
}

// Estimate returns false when the weather or density needed for a score is
// missing. A missing score is never reported as zero risk.
func (e *RiskEstimator) Estimate(w *models.WeatherSnapshot, density *models.TreeDensity, exposure models.ExposureConfig) (models.RiskResult, bool) {
	if w == nil || w.WindSpeed == nil || density == nil {
		return models.RiskResult{}, false
	}

	windSpeed := math.Max(0, *w.WindSpeed)
	trees := max(0, density.Count)
	minutes := max(0, exposure.MinutesPerDay)

	p := e.policy.Score(w, windSpeed, trees, minutes)
	if math.IsNaN(p) {
		p = 0
	}
	p = roundTenth(clamp(p, 0, 100))

	return models.RiskResult{
		ProbabilityPercent: p,
		Tier:               TierFor(p),
		Policy:             e.policy.Name(),
	}, true
}

// TierFor maps a probability to its danger tier
func TierFor(probability float64) models.Tier {
	switch {
	case probability > dangerThreshold:
		return models.TierDanger
	case probability > warningThreshold:
		return models.TierWarning
	default:
		return models.TierSafe
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}

func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}
