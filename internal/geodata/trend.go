package geodata

import (
	"fmt"

	"github.com/couchcryptid/geo-risk-service/internal/domain"
	"github.com/paulmach/orb/geojson"
)

// Per-year observations are stored as lst_<year> and ndvi_<year>.
const (
	lstYearPrefix  = "lst_"
	ndviYearPrefix = "ndvi_"
)

// Trend returns the per-year series recorded on one feature. Series with no
// observations fall back to the city-wide defaults.
func (l *Layer) Trend(id string) (domain.Trend, error) {
	props, err := l.Properties(id)
	if err != nil {
		return domain.Trend{}, err
	}
	defaults := domain.DefaultTrend()
	return domain.Trend{
		Temperature: seriesOrDefault(yearSeries(props, lstYearPrefix, defaults.Temperature), defaults.Temperature),
		Vegetation:  seriesOrDefault(yearSeries(props, ndviYearPrefix, defaults.Vegetation), defaults.Vegetation),
	}, nil
}

// CityTrend averages per-year observations across all features. Years no
// feature observed are left empty; with no observations at all the
// defaults are returned.
func (l *Layer) CityTrend() domain.Trend {
	defaults := domain.DefaultTrend()
	if l.Len() == 0 {
		return defaults
	}
	lst := averageSeries(l, lstYearPrefix, defaults.Temperature)
	ndvi := averageSeries(l, ndviYearPrefix, defaults.Vegetation)
	return domain.Trend{
		Temperature: seriesOrDefault(lst, defaults.Temperature),
		Vegetation:  seriesOrDefault(ndvi, defaults.Vegetation),
	}
}

func yearSeries(props geojson.Properties, prefix string, template domain.TrendSeries) domain.TrendSeries {
	s := domain.TrendSeries{
		Label:  template.Label,
		Unit:   template.Unit,
		Years:  append([]int(nil), template.Years...),
		Values: make([]*float64, len(template.Years)),
	}
	for i, year := range s.Years {
		s.Values[i] = number(props[fmt.Sprintf("%s%d", prefix, year)])
	}
	return s
}

func averageSeries(l *Layer, prefix string, template domain.TrendSeries) domain.TrendSeries {
	sums := make([]float64, len(template.Years))
	counts := make([]int, len(template.Years))
	l.Each(func(_ string, f *geojson.Feature) {
		s := yearSeries(f.Properties, prefix, template)
		for i, v := range s.Values {
			if v != nil {
				sums[i] += *v
				counts[i]++
			}
		}
	})

	out := yearSeries(nil, prefix, template)
	for i := range out.Values {
		if counts[i] > 0 {
			avg := sums[i] / float64(counts[i])
			out.Values[i] = &avg
		}
	}
	return out
}

func seriesOrDefault(s, fallback domain.TrendSeries) domain.TrendSeries {
	for _, v := range s.Values {
		if v != nil {
			return s
		}
	}
	return fallback
}
