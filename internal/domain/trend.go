package domain

// TrendYears are the survey years shown on the historical trend chart.
var TrendYears = []int{2015, 2017, 2019, 2021, 2023}

// TrendSeries is one line on the historical trend chart. Values align with
// Years; a nil entry is a year with no observation.
type TrendSeries struct {
	Label  string     `json:"label"`
	Unit   string     `json:"unit"`
	Years  []int      `json:"years"`
	Values []*float64 `json:"values"`
}

// Trend is the pair of series plotted for a zone or the whole city.
type Trend struct {
	Temperature TrendSeries `json:"temperature"`
	Vegetation  TrendSeries `json:"vegetation"`
}

// DefaultTrend returns the city-wide averages used when a layer carries no
// per-year observations.
func DefaultTrend() Trend {
	return Trend{
		Temperature: NewTrendSeries("Average surface temperature", "°C", []float64{25.5, 26.1, 26.8, 27.5, 28.2}),
		Vegetation:  NewTrendSeries("Average vegetation (NDVI)", "NDVI", []float64{0.65, 0.60, 0.55, 0.50, 0.45}),
	}
}

// NewTrendSeries builds a fully observed series over TrendYears.
func NewTrendSeries(label, unit string, values []float64) TrendSeries {
	s := TrendSeries{Label: label, Unit: unit, Years: append([]int(nil), TrendYears...)}
	s.Values = make([]*float64, len(TrendYears))
	for i := range s.Values {
		if i < len(values) {
			v := values[i]
			s.Values[i] = &v
		}
	}
	return s
}

// Change returns the relative change between the first and last observed
// values, as a fraction. The bool is false with fewer than two
// observations or a zero starting value.
func (s TrendSeries) Change() (float64, bool) {
	var first, last *float64
	for _, v := range s.Values {
		if v == nil {
			continue
		}
		if first == nil {
			first = v
		}
		last = v
	}
	if first == nil || last == first || *first == 0 {
		return 0, false
	}
	return (*last - *first) / *first, true
}

// Span returns the number of years between the first and last entries.
func (s TrendSeries) Span() int {
	if len(s.Years) < 2 {
		return 0
	}
	return s.Years[len(s.Years)-1] - s.Years[0]
}
