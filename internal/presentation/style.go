// Package presentation turns layer attributes and risk results into the
// styles, legend entries, popup summaries and KPI text the dashboard shows.
package presentation

import "github.com/couchcryptid/geo-risk-service/internal/domain"

// Style is a Leaflet path style. Field names follow Leaflet's option keys so
// the browser can pass the object straight to setStyle.
type Style struct {
	FillColor   string  `json:"fillColor"`
	Color       string  `json:"color"`
	Weight      int     `json:"weight"`
	Opacity     float64 `json:"opacity"`
	FillOpacity float64 `json:"fillOpacity"`
}

var (
	styleLow      = Style{FillColor: "#4CAF50", Color: "#388E3C", Weight: 1, Opacity: 1, FillOpacity: 0.6}
	styleModerate = Style{FillColor: "#FFC107", Color: "#FFA000", Weight: 1, Opacity: 1, FillOpacity: 0.7}
	styleHigh     = Style{FillColor: "#D32F2F", Color: "#B71C1C", Weight: 1, Opacity: 1, FillOpacity: 0.8}
	styleUnknown  = Style{FillColor: "#9E9E9E", Color: "#757575", Weight: 1, Opacity: 1, FillOpacity: 0.5}
)

// ClusterStyle returns the fill and stroke for a K-Means cluster label.
// Unlabeled and unknown clusters are drawn grey.
func ClusterStyle(cluster int) Style {
	switch cluster {
	case domain.ClusterLow:
		return styleLow
	case domain.ClusterModerate:
		return styleModerate
	case domain.ClusterHigh:
		return styleHigh
	default:
		return styleUnknown
	}
}

// CategoryStyle returns the style of the cluster that maps to c.
func CategoryStyle(c domain.Category) Style {
	switch c {
	case domain.CategoryLow:
		return styleLow
	case domain.CategoryModerate:
		return styleModerate
	case domain.CategoryHigh:
		return styleHigh
	default:
		return styleUnknown
	}
}
