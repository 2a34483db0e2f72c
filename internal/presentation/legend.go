package presentation

import "github.com/couchcryptid/geo-risk-service/internal/domain"

// LegendEntry is one swatch of the map legend.
type LegendEntry struct {
	Category domain.Category `json:"category"`
	Label    string          `json:"label"`
	Color    string          `json:"color"`
}

// Legend is the map legend, highest risk first.
type Legend struct {
	Title   string        `json:"title"`
	Entries []LegendEntry `json:"entries"`
}

// DefaultLegend returns the urban vulnerability legend.
func DefaultLegend() Legend {
	return Legend{
		Title: "Urban vulnerability",
		Entries: []LegendEntry{
			{Category: domain.CategoryHigh, Label: "High risk (priority)", Color: styleHigh.FillColor},
			{Category: domain.CategoryModerate, Label: "Moderate risk", Color: styleModerate.FillColor},
			{Category: domain.CategoryLow, Label: "Low priority", Color: styleLow.FillColor},
		},
	}
}
