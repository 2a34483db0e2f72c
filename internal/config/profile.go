package config

import (
	"fmt"
	"os"

	"github.com/couchcryptid/geo-risk-service/internal/domain"
	"gopkg.in/yaml.v3"
)

// RiskProfile holds the tunable parts of the risk model. Weights and
// normalization bounds are fixed; only category cut-offs and scenario
// rates may be overridden.
type RiskProfile struct {
	Thresholds domain.Thresholds    `yaml:"thresholds"`
	Scenarios  domain.ScenarioTable `yaml:"scenarios"`
}

// DefaultRiskProfile returns the built-in thresholds and scenario table.
func DefaultRiskProfile() RiskProfile {
	return RiskProfile{
		Thresholds: domain.DefaultThresholds(),
		Scenarios:  domain.DefaultScenarios(),
	}
}

// LoadRiskProfile reads a YAML profile and merges it over the defaults. An
// empty path returns the defaults.
func LoadRiskProfile(path string) (RiskProfile, error) {
	profile := DefaultRiskProfile()
	if path == "" {
		return profile, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return RiskProfile{}, fmt.Errorf("read risk profile: %w", err)
	}

	var override struct {
		Thresholds *domain.Thresholds       `yaml:"thresholds"`
		Scenarios  map[string]ratesOverride `yaml:"scenarios"`
	}
	if err := yaml.Unmarshal(data, &override); err != nil {
		return RiskProfile{}, fmt.Errorf("parse risk profile %s: %w", path, err)
	}

	if override.Thresholds != nil {
		profile.Thresholds = *override.Thresholds
	}
	for name, o := range override.Scenarios {
		key := domain.ParseScenario(name)
		profile.Scenarios[key] = o.apply(profile.baseRates(key))
	}

	if err := profile.Validate(); err != nil {
		return RiskProfile{}, fmt.Errorf("risk profile %s: %w", path, err)
	}
	return profile, nil
}

// ratesOverride is a scenario entry from the profile file. Omitted fields
// keep the rate they override.
type ratesOverride struct {
	VegetationLoss  *float64 `yaml:"vegetation_loss"`
	TemperatureGain *float64 `yaml:"temperature_gain"`
}

func (o ratesOverride) apply(base domain.Rates) domain.Rates {
	if o.VegetationLoss != nil {
		base.VegetationLoss = *o.VegetationLoss
	}
	if o.TemperatureGain != nil {
		base.TemperatureGain = *o.TemperatureGain
	}
	return base
}

// baseRates returns the rates a scenario override starts from. New
// scenarios start from medium.
func (p RiskProfile) baseRates(s domain.Scenario) domain.Rates {
	if r, ok := p.Scenarios[s]; ok {
		return r
	}
	return p.Scenarios[domain.ScenarioMedium]
}

// Validate checks that thresholds are ordered within [0, 100], that
// vegetation loss is non-negative and that every scenario warms.
func (p RiskProfile) Validate() error {
	t := p.Thresholds
	if t.Moderate < 0 || t.High > 100 || t.Moderate >= t.High {
		return fmt.Errorf("thresholds must satisfy 0 <= moderate < high <= 100, got %v/%v", t.Moderate, t.High)
	}
	for name, r := range p.Scenarios {
		if r.VegetationLoss < 0 {
			return fmt.Errorf("scenario %q: vegetation_loss must be non-negative", name)
		}
		if r.TemperatureGain <= 0 {
			return fmt.Errorf("scenario %q: temperature_gain must be positive", name)
		}
	}
	if _, ok := p.Scenarios[domain.ScenarioMedium]; !ok {
		return fmt.Errorf("scenario %q is required", domain.ScenarioMedium)
	}
	return nil
}
