package domain

import (
	"errors"
	"fmt"
	"math"
)

// Point is a WGS-84 latitude/longitude coordinate pair.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Validate reports whether the point lies within WGS-84 bounds.
func (p Point) Validate() error {
	if math.IsNaN(p.Lat) || p.Lat < -90 || p.Lat > 90 {
		return fmt.Errorf("latitude %v out of range [-90, 90]", p.Lat)
	}
	if math.IsNaN(p.Lon) || p.Lon < -180 || p.Lon > 180 {
		return fmt.Errorf("longitude %v out of range [-180, 180]", p.Lon)
	}
	return nil
}

// EnvironmentalSample holds the three inputs to a risk estimate.
type EnvironmentalSample struct {
	VegetationIndex     float64 `json:"ndvi"`
	SurfaceTemperatureC float64 `json:"lst_c"`
	PopulationDensity   float64 `json:"population_density"`
}

// Attributes are the raw values recorded on a layer feature. Nil fields
// were absent from the feature's properties.
type Attributes struct {
	FeatureID         string
	VegetationIndex   *float64
	SurfaceTempC      *float64
	PopulationDensity *float64
	Cluster           int // 0 when unlabeled
}

// Complete reports whether all three sample values are present.
func (a Attributes) Complete() bool {
	return a.VegetationIndex != nil && a.SurfaceTempC != nil && a.PopulationDensity != nil
}

// SampleSource records where a sample's values came from.
type SampleSource string

const (
	SourceFeature   SampleSource = "feature"   // all values read from a layer feature
	SourcePartial   SampleSource = "partial"   // feature found, some values synthesized
	SourceSynthetic SampleSource = "synthetic" // no containing feature
)

var (
	// ErrNoLayer is returned by operations that need a loaded layer.
	ErrNoLayer = errors.New("no risk layer loaded")

	// ErrFeatureNotFound is returned when a feature ID is not in the layer.
	ErrFeatureNotFound = errors.New("feature not found")
)

// ValidateSample rejects NaN and infinite values. Scoring itself never
// fails, so callers that want strict inputs check here first.
func ValidateSample(s EnvironmentalSample) error {
	fields := []struct {
		name string
		v    float64
	}{
		{"ndvi", s.VegetationIndex},
		{"lst", s.SurfaceTemperatureC},
		{"density", s.PopulationDensity},
	}
	for _, f := range fields {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return fmt.Errorf("%s must be a finite number", f.name)
		}
	}
	if s.PopulationDensity < 0 {
		return errors.New("density must not be negative")
	}
	return nil
}
