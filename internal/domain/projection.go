package domain

import (
	"math"
	"strings"
	"time"
)

// Scenario names a climate trajectory assumption.
type Scenario string

const (
	ScenarioLow    Scenario = "low"
	ScenarioMedium Scenario = "medium"
	ScenarioHigh   Scenario = "high"
)

// ParseScenario normalizes s. Unrecognized values are kept as-is and later
// resolve to the medium rates.
func ParseScenario(s string) Scenario {
	return Scenario(strings.ToLower(strings.TrimSpace(s)))
}

// Rates are the annual changes applied under one scenario.
type Rates struct {
	VegetationLoss  float64 `yaml:"vegetation_loss" json:"vegetation_loss"`
	TemperatureGain float64 `yaml:"temperature_gain" json:"temperature_gain"`
}

// ScenarioTable maps scenarios to their annual rates.
type ScenarioTable map[Scenario]Rates

// DefaultScenarios returns the built-in low/medium/high rate table.
func DefaultScenarios() ScenarioTable {
	return ScenarioTable{
		ScenarioLow:    {VegetationLoss: 0.0008, TemperatureGain: 0.01},
		ScenarioMedium: {VegetationLoss: 0.0015, TemperatureGain: 0.02},
		ScenarioHigh:   {VegetationLoss: 0.0030, TemperatureGain: 0.04},
	}
}

var defaultScenarios = DefaultScenarios()

// Resolve returns the rates for s, falling back to medium for unknown ids.
// The bool reports whether s was known.
func (t ScenarioTable) Resolve(s Scenario) (Rates, bool) {
	if r, ok := t[s]; ok {
		return r, true
	}
	if r, ok := t[ScenarioMedium]; ok {
		return r, false
	}
	return defaultScenarios[ScenarioMedium], false
}

// ProjectVegetation projects an NDVI value yearsAhead years into the future.
func (t ScenarioTable) ProjectVegetation(base float64, yearsAhead int, s Scenario) float64 {
	r, _ := t.Resolve(s)
	return math.Max(0, base-r.VegetationLoss*float64(yearsAhead))
}

// ProjectTemperature projects an LST value yearsAhead years into the future.
func (t ScenarioTable) ProjectTemperature(base float64, yearsAhead int, s Scenario) float64 {
	r, _ := t.Resolve(s)
	return base + r.TemperatureGain*float64(yearsAhead)
}

// ProjectVegetation applies the default scenario table.
func ProjectVegetation(base float64, yearsAhead int, s Scenario) float64 {
	return defaultScenarios.ProjectVegetation(base, yearsAhead, s)
}

// ProjectTemperature applies the default scenario table.
func ProjectTemperature(base float64, yearsAhead int, s Scenario) float64 {
	return defaultScenarios.ProjectTemperature(base, yearsAhead, s)
}

// YearsAhead returns the whole years between now and targetYear, clamped
// to zero for target years in the past.
func YearsAhead(targetYear int, now time.Time) int {
	return max(0, targetYear-now.Year())
}

// ScenarioProjection is a projected NDVI/LST pair for one target year.
type ScenarioProjection struct {
	TargetYear               int      `json:"target_year"`
	YearsAhead               int      `json:"years_ahead"`
	Scenario                 Scenario `json:"scenario"`
	ProjectedVegetationIndex float64  `json:"projected_ndvi"`
	ProjectedTemperatureC    float64  `json:"projected_lst_c"`
}

// Project projects both base values to targetYear, measured from now.
func (t ScenarioTable) Project(baseNDVI, baseLSTC float64, targetYear int, s Scenario, now time.Time) ScenarioProjection {
	years := YearsAhead(targetYear, now)
	if _, known := t.Resolve(s); !known {
		s = ScenarioMedium
	}
	return ScenarioProjection{
		TargetYear:               targetYear,
		YearsAhead:               years,
		Scenario:                 s,
		ProjectedVegetationIndex: t.ProjectVegetation(baseNDVI, years, s),
		ProjectedTemperatureC:    t.ProjectTemperature(baseLSTC, years, s),
	}
}
