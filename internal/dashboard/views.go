package dashboard

import (
	"github.com/couchcryptid/geo-risk-service/internal/domain"
	"github.com/couchcryptid/geo-risk-service/internal/presentation"
	"github.com/paulmach/orb/geojson"
)

// Property names added to every feature of the styled layer.
const (
	styleProperty     = "style"
	featureIDProperty = "feature_id"
)

// StyledLayer returns a copy of the current layer with each feature's
// cluster style and resolved ID added to its properties.
func (s *Service) StyledLayer() (*geojson.FeatureCollection, error) {
	layer := s.state.Load().Layer
	if layer == nil {
		return nil, domain.ErrNoLayer
	}

	fc := geojson.NewFeatureCollection()
	layer.Each(func(id string, f *geojson.Feature) {
		attrs, _ := layer.Feature(id)
		props := f.Properties.Clone()
		if props == nil {
			props = geojson.Properties{}
		}
		props[featureIDProperty] = id
		props[styleProperty] = presentation.ClusterStyle(attrs.Cluster)

		fc.Append(&geojson.Feature{
			ID:         f.ID,
			Type:       f.Type,
			BBox:       f.BBox,
			Geometry:   f.Geometry,
			Properties: props,
		})
	})
	return fc, nil
}

// Feature returns the popup summary of one layer feature.
func (s *Service) Feature(id string) (presentation.FeatureSummary, error) {
	attrs, err := s.state.Load().Layer.Feature(id)
	if err != nil {
		return presentation.FeatureSummary{}, err
	}
	return presentation.SummarizeFeature(attrs), nil
}

// FeatureTrend returns the historical series of one layer feature.
func (s *Service) FeatureTrend(id string) (domain.Trend, error) {
	return s.state.Load().Layer.Trend(id)
}

// Trend returns the city-wide series, or the defaults with no layer.
func (s *Service) Trend() domain.Trend {
	return s.state.Load().Layer.CityTrend()
}

// KPIs summarizes the current layer for the side panel.
func (s *Service) KPIs() (presentation.KPIs, error) {
	layer := s.state.Load().Layer
	if layer == nil {
		return presentation.KPIs{}, domain.ErrNoLayer
	}
	return presentation.ComputeKPIs(layer.Attributes(), layer.CityTrend().Vegetation), nil
}

// Legend returns the map legend.
func (s *Service) Legend() presentation.Legend {
	return presentation.DefaultLegend()
}
