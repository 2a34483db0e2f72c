package domain

import "math/rand/v2"

// FeatureLookup resolves the attributes of the layer feature containing a
// point. It is implemented by geodata.Layer.
type FeatureLookup interface {
	Lookup(p Point) (Attributes, bool)
}

// Range is a closed interval used for synthetic values.
type Range struct {
	Min float64
	Max float64
}

// Synthetic ranges for points outside any feature.
var (
	SyntheticNDVI    = Range{Min: 0.2, Max: 0.8}
	SyntheticLSTC    = Range{Min: 20, Max: 35}
	SyntheticDensity = Range{Min: 800, Max: 6000}
)

// Sampler produces environmental samples for map points.
type Sampler struct {
	rnd func() float64
}

// NewSampler creates a Sampler backed by the global math/rand/v2 source,
// which is safe for concurrent use.
func NewSampler() *Sampler {
	return &Sampler{rnd: rand.Float64}
}

// NewSamplerWithSource creates a Sampler drawing uniform values from f,
// which must return values in [0, 1). Used for deterministic tests.
func NewSamplerWithSource(f func() float64) *Sampler {
	return &Sampler{rnd: f}
}

// Sample returns the recorded attributes of the feature containing p, or a
// synthetic sample when layer is nil or no feature contains p. Missing
// attributes on a found feature are synthesized individually.
func (s *Sampler) Sample(p Point, layer FeatureLookup) (EnvironmentalSample, SampleSource, Attributes) {
	if layer == nil {
		return s.synthetic(), SourceSynthetic, Attributes{}
	}
	attrs, ok := layer.Lookup(p)
	if !ok {
		return s.synthetic(), SourceSynthetic, Attributes{}
	}

	source := SourceFeature
	if !attrs.Complete() {
		source = SourcePartial
	}
	return EnvironmentalSample{
		VegetationIndex:     s.orDraw(attrs.VegetationIndex, SyntheticNDVI),
		SurfaceTemperatureC: s.orDraw(attrs.SurfaceTempC, SyntheticLSTC),
		PopulationDensity:   s.orDraw(attrs.PopulationDensity, SyntheticDensity),
	}, source, attrs
}

func (s *Sampler) synthetic() EnvironmentalSample {
	return EnvironmentalSample{
		VegetationIndex:     s.draw(SyntheticNDVI),
		SurfaceTemperatureC: s.draw(SyntheticLSTC),
		PopulationDensity:   s.draw(SyntheticDensity),
	}
}

func (s *Sampler) orDraw(v *float64, r Range) float64 {
	if v != nil {
		return *v
	}
	return s.draw(r)
}

func (s *Sampler) draw(r Range) float64 {
	return r.Min + s.rnd()*(r.Max-r.Min)
}
