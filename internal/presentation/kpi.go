package presentation

import (
	"fmt"
	"math"

	"github.com/couchcryptid/geo-risk-service/internal/domain"
)

// KPIs are the side-panel indicators for the loaded layer.
type KPIs struct {
	FeatureCount         int      `json:"feature_count"`
	HighRiskCount        int      `json:"high_risk_count"`
	HighRiskShare        float64  `json:"high_risk_share"`
	HighRiskShareText    string   `json:"high_risk_share_text"`
	VegetationChange     *float64 `json:"vegetation_change,omitempty"`
	VegetationChangeText string   `json:"vegetation_change_text"`
}

// ComputeKPIs counts cluster-3 features against all features and
// summarizes the vegetation trend.
func ComputeKPIs(features []domain.Attributes, vegetation domain.TrendSeries) KPIs {
	k := KPIs{FeatureCount: len(features)}
	for _, f := range features {
		if f.Cluster == domain.ClusterHigh {
			k.HighRiskCount++
		}
	}
	if k.FeatureCount > 0 {
		k.HighRiskShare = float64(k.HighRiskCount) / float64(k.FeatureCount)
	}
	k.HighRiskShareText = FormatPercent(k.HighRiskShare)

	k.VegetationChangeText = "n/a"
	if change, ok := vegetation.Change(); ok {
		k.VegetationChange = &change
		k.VegetationChangeText = FormatChange(change, vegetation.Span())
	}
	return k
}

// FormatPercent renders a fraction with one decimal, e.g. 0.2 → "20.0%".
func FormatPercent(fraction float64) string {
	return fmt.Sprintf("%.1f%%", fraction*100)
}

// FormatChange renders a relative change with a direction arrow, e.g.
// "↓ 31% (last 8 years)".
func FormatChange(fraction float64, years int) string {
	pct := math.Round(math.Abs(fraction) * 100)
	arrow := "→"
	switch {
	case pct == 0:
	case fraction < 0:
		arrow = "↓"
	default:
		arrow = "↑"
	}
	text := fmt.Sprintf("%s %.0f%%", arrow, pct)
	if years > 0 {
		text += fmt.Sprintf(" (last %d years)", years)
	}
	return text
}
