// Package geodata holds the GeoJSON risk layer and resolves map points to
// the zone polygons that contain them.
package geodata

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/couchcryptid/geo-risk-service/internal/domain"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
)

// Property names recognized on layer features, in lookup order. The
// upstream exports use either the short lowercase names or the uppercase
// names of the national census layers.
var (
	ndviKeys    = []string{"ndvi_avg", "NDVI"}
	lstKeys     = []string{"lst_avg", "LST"}
	densityKeys = []string{"pop_den", "DENSIDAD"}
)

const clusterKey = "cluster"

// Layer is an immutable, loaded feature collection. It implements
// domain.FeatureLookup.
type Layer struct {
	zones  []zone
	byID   map[string]int
	source string
}

type zone struct {
	id      string
	feature *geojson.Feature
	bound   orb.Bound
	areal   bool
	attrs   domain.Attributes
}

// Decode parses a GeoJSON FeatureCollection.
func Decode(data []byte, source string) (*Layer, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("decode layer %q: %w", source, err)
	}
	if len(fc.Features) == 0 {
		return nil, fmt.Errorf("decode layer %q: %w", source, errors.New("feature collection is empty"))
	}
	return New(fc, source), nil
}

// New indexes an already decoded feature collection.
func New(fc *geojson.FeatureCollection, source string) *Layer {
	l := &Layer{
		zones:  make([]zone, 0, len(fc.Features)),
		byID:   make(map[string]int, len(fc.Features)),
		source: source,
	}
	for i, f := range fc.Features {
		id := featureID(f, i)
		if _, dup := l.byID[id]; dup {
			id = fmt.Sprintf("%s#%d", id, i)
		}

		z := zone{id: id, feature: f}
		if f.Geometry != nil {
			z.bound = f.Geometry.Bound()
			switch f.Geometry.(type) {
			case orb.Polygon, orb.MultiPolygon:
				z.areal = true
			}
		}
		z.attrs = attributes(id, f.Properties)

		l.byID[id] = len(l.zones)
		l.zones = append(l.zones, z)
	}
	return l
}

// Lookup returns the attributes of the first polygon containing p. A nil
// layer contains nothing.
func (l *Layer) Lookup(p domain.Point) (domain.Attributes, bool) {
	if l == nil {
		return domain.Attributes{}, false
	}
	pt := orb.Point{p.Lon, p.Lat}
	for i := range l.zones {
		z := &l.zones[i]
		if !z.areal || !z.bound.Contains(pt) {
			continue
		}
		if contains(z.feature.Geometry, pt) {
			return z.attrs, true
		}
	}
	return domain.Attributes{}, false
}

func contains(g orb.Geometry, pt orb.Point) bool {
	switch geom := g.(type) {
	case orb.Polygon:
		return planar.PolygonContains(geom, pt)
	case orb.MultiPolygon:
		return planar.MultiPolygonContains(geom, pt)
	default:
		return false
	}
}

// Feature returns the attributes of the feature with the given ID.
func (l *Layer) Feature(id string) (domain.Attributes, error) {
	if l == nil {
		return domain.Attributes{}, domain.ErrNoLayer
	}
	i, ok := l.byID[id]
	if !ok {
		return domain.Attributes{}, fmt.Errorf("%w: %s", domain.ErrFeatureNotFound, id)
	}
	return l.zones[i].attrs, nil
}

// Attributes returns the attributes of every feature in layer order.
func (l *Layer) Attributes() []domain.Attributes {
	if l == nil {
		return nil
	}
	out := make([]domain.Attributes, len(l.zones))
	for i, z := range l.zones {
		out[i] = z.attrs
	}
	return out
}

// Properties returns the raw properties of the feature with the given ID.
func (l *Layer) Properties(id string) (geojson.Properties, error) {
	if l == nil {
		return nil, domain.ErrNoLayer
	}
	i, ok := l.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrFeatureNotFound, id)
	}
	return l.zones[i].feature.Properties, nil
}

// Len returns the number of features.
func (l *Layer) Len() int {
	if l == nil {
		return 0
	}
	return len(l.zones)
}

// Source returns the path or URL the layer was loaded from.
func (l *Layer) Source() string {
	if l == nil {
		return ""
	}
	return l.source
}

// Each calls fn for every feature with its resolved ID. The feature must
// not be modified.
func (l *Layer) Each(fn func(id string, f *geojson.Feature)) {
	if l == nil {
		return
	}
	for _, z := range l.zones {
		fn(z.id, z.feature)
	}
}

// LabeledSamples returns the complete, cluster-labeled samples of the layer
// for training a learned scorer.
func (l *Layer) LabeledSamples() []domain.LabeledSample {
	if l == nil {
		return nil
	}
	var out []domain.LabeledSample
	for _, z := range l.zones {
		a := z.attrs
		if !a.Complete() || a.Cluster == 0 {
			continue
		}
		out = append(out, domain.LabeledSample{
			Sample: domain.EnvironmentalSample{
				VegetationIndex:     *a.VegetationIndex,
				SurfaceTemperatureC: *a.SurfaceTempC,
				PopulationDensity:   *a.PopulationDensity,
			},
			Cluster: a.Cluster,
		})
	}
	return out
}

func featureID(f *geojson.Feature, index int) string {
	if id := idString(f.ID); id != "" {
		return id
	}
	if id := idString(f.Properties["id"]); id != "" {
		return id
	}
	return fmt.Sprintf("feature-%d", index)
}

func idString(v any) string {
	switch id := v.(type) {
	case string:
		return strings.TrimSpace(id)
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	case json.Number:
		return id.String()
	default:
		return ""
	}
}

func attributes(id string, props geojson.Properties) domain.Attributes {
	a := domain.Attributes{
		FeatureID:         id,
		VegetationIndex:   firstNumber(props, ndviKeys),
		SurfaceTempC:      firstNumber(props, lstKeys),
		PopulationDensity: firstNumber(props, densityKeys),
	}
	if c := number(props[clusterKey]); c != nil {
		a.Cluster = int(*c)
	}
	return a
}

func firstNumber(props geojson.Properties, keys []string) *float64 {
	for _, k := range keys {
		if v := number(props[k]); v != nil {
			return v
		}
	}
	return nil
}

// number accepts the numeric encodings seen in exported layers: JSON
// numbers and numeric strings. Anything else, including NaN and
// infinities, is treated as absent.
func number(v any) *float64 {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case int:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return nil
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}
