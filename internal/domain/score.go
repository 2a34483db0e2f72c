package domain

import "math"

// Normalization bounds and weights of the canonical rule-based formula.
const (
	tempBaselineC  = 10.0
	tempCeilingC   = 45.0
	densityCeiling = 10000.0

	weightTemperature = 0.45
	weightVegetation  = 0.40
	weightDensity     = 0.15
)

// Category is the three-level bucket derived from a risk score.
type Category string

const (
	CategoryLow      Category = "Low"
	CategoryModerate Category = "Moderate"
	CategoryHigh     Category = "High"
)

// Thresholds are the lower score bounds of the Moderate and High categories.
type Thresholds struct {
	Moderate float64 `yaml:"moderate" json:"moderate"`
	High     float64 `yaml:"high" json:"high"`
}

// DefaultThresholds returns the 65/40 category cut-offs.
func DefaultThresholds() Thresholds {
	return Thresholds{Moderate: 40, High: 65}
}

// Categorize maps a score onto a category. NaN resolves to Low.
func (t Thresholds) Categorize(score float64) Category {
	switch {
	case score >= t.High:
		return CategoryHigh
	case score >= t.Moderate:
		return CategoryModerate
	default:
		return CategoryLow
	}
}

// RiskAssessment is the result of scoring one sample.
type RiskAssessment struct {
	Score    float64  `json:"score"`
	Category Category `json:"category"`
}

// Scorer turns an environmental sample into a risk assessment.
type Scorer interface {
	Score(s EnvironmentalSample) RiskAssessment
	Name() string
}

// Score computes the rule-based risk for raw NDVI, LST (°C) and density
// values using the default thresholds.
func Score(ndvi, surfaceTempC, density float64) RiskAssessment {
	return RuleScorer{Thresholds: DefaultThresholds()}.Score(EnvironmentalSample{
		VegetationIndex:     ndvi,
		SurfaceTemperatureC: surfaceTempC,
		PopulationDensity:   density,
	})
}

// RuleScorer is the hand-tuned weighted formula described in the package doc.
type RuleScorer struct {
	Thresholds Thresholds
}

// NewRuleScorer creates a RuleScorer with the default thresholds.
func NewRuleScorer() RuleScorer {
	return RuleScorer{Thresholds: DefaultThresholds()}
}

func (RuleScorer) Name() string { return "rule" }

func (r RuleScorer) Score(s EnvironmentalSample) RiskAssessment {
	score := clampScore(math.Round(100 * weightedRisk(riskFactors(s))))
	return RiskAssessment{Score: score, Category: r.Thresholds.Categorize(score)}
}

// factors are the normalized temperature, vegetation and density risks.
type factors struct {
	temperature float64
	vegetation  float64
	density     float64
}

func riskFactors(s EnvironmentalSample) factors {
	return factors{
		temperature: (s.SurfaceTemperatureC - tempBaselineC) / (tempCeilingC - tempBaselineC),
		vegetation:  1 - s.VegetationIndex,
		density:     math.Min(s.PopulationDensity, densityCeiling) / densityCeiling,
	}
}

func weightedRisk(f factors) float64 {
	return weightTemperature*f.temperature + weightVegetation*f.vegetation + weightDensity*f.density
}

// clampScore bounds v to [0, 100]. NaN passes through unchanged.
func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
