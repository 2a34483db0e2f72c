package presentation

import (
	"fmt"
	"html/template"
	"io"
	"strconv"
	"strings"

	"github.com/couchcryptid/geo-risk-service/internal/domain"
)

// FeatureSummary is the side-panel content for a clicked layer feature.
// The level comes from the zone's cluster label; unlabeled zones read LOW.
type FeatureSummary struct {
	FeatureID         string   `json:"feature_id"`
	Cluster           int      `json:"cluster,omitempty"`
	Level             string   `json:"level"`
	LevelColor        string   `json:"level_color"`
	SurfaceTempC      *float64 `json:"lst_c"`
	VegetationIndex   *float64 `json:"ndvi"`
	PopulationDensity *float64 `json:"population_density"`
}

// SummarizeFeature builds the popup summary of a layer feature.
func SummarizeFeature(attrs domain.Attributes) FeatureSummary {
	category := domain.CategoryLow
	if c, ok := domain.CategoryForCluster(attrs.Cluster); ok {
		category = c
	}
	return FeatureSummary{
		FeatureID:         attrs.FeatureID,
		Cluster:           attrs.Cluster,
		Level:             levelText(category),
		LevelColor:        ClusterStyle(attrs.Cluster).Color,
		SurfaceTempC:      attrs.SurfaceTempC,
		VegetationIndex:   attrs.VegetationIndex,
		PopulationDensity: attrs.PopulationDensity,
	}
}

// AssessmentSummary is the popup content for an estimated map point.
type AssessmentSummary struct {
	Level      string  `json:"level"`
	LevelColor string  `json:"level_color"`
	Score      float64 `json:"score"`
	Source     string  `json:"source"`
	Lines      []Line  `json:"lines"`
}

// Line is one labelled value of a popup.
type Line struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// SummarizeAssessment builds the popup summary of a point assessment.
func SummarizeAssessment(a domain.Assessment) AssessmentSummary {
	s := AssessmentSummary{
		Level:      levelText(a.Risk.Category),
		LevelColor: CategoryStyle(a.Risk.Category).Color,
		Score:      a.Risk.Score,
		Source:     string(a.Source),
		Lines: []Line{
			{Label: "Risk score", Value: formatNumber(a.Risk.Score, 0) + " / 100"},
			{Label: "Mean LST", Value: formatNumber(a.Sample.SurfaceTemperatureC, 1) + "°C"},
			{Label: "Mean NDVI", Value: formatNumber(a.Sample.VegetationIndex, 2)},
			{Label: "Pop. density", Value: formatNumber(a.Sample.PopulationDensity, 0) + " inhab/km²"},
		},
	}
	if a.Projection != nil && a.ProjectedRisk != nil {
		p := a.Projection
		s.Lines = append(s.Lines,
			Line{Label: fmt.Sprintf("Projected LST %d (%s)", p.TargetYear, p.Scenario), Value: formatNumber(p.ProjectedTemperatureC, 1) + "°C"},
			Line{Label: fmt.Sprintf("Projected NDVI %d (%s)", p.TargetYear, p.Scenario), Value: formatNumber(p.ProjectedVegetationIndex, 2)},
			Line{Label: fmt.Sprintf("Projected risk %d", p.TargetYear), Value: formatNumber(a.ProjectedRisk.Score, 0) + " / 100 " + levelText(a.ProjectedRisk.Category)},
		)
	}
	return s
}

var popupTemplates = template.Must(template.New("popup").Funcs(template.FuncMap{
	"value": formatOptional,
}).Parse(`
{{- define "feature" -}}
<p><strong>Risk level (AI):</strong> <span style="color:{{.LevelColor}};">{{.Level}}</span></p>
<p><strong>Mean LST:</strong> {{value .SurfaceTempC}}°C</p>
<p><strong>Mean NDVI:</strong> {{value .VegetationIndex}}</p>
<p><strong>Pop. density:</strong> {{value .PopulationDensity}} inhab/km²</p>
{{- end -}}
{{- define "assessment" -}}
<p><strong>Estimated risk:</strong> <span style="color:{{.LevelColor}};">{{.Level}}</span></p>
{{- range .Lines}}
<p><strong>{{.Label}}:</strong> {{.Value}}</p>
{{- end}}
{{- end -}}
`))

// RenderFeatureHTML writes the side-panel HTML fragment for a feature.
func RenderFeatureHTML(w io.Writer, s FeatureSummary) error {
	return popupTemplates.ExecuteTemplate(w, "feature", s)
}

// RenderAssessmentHTML writes the popup HTML fragment for a point.
func RenderAssessmentHTML(w io.Writer, s AssessmentSummary) error {
	return popupTemplates.ExecuteTemplate(w, "assessment", s)
}

func levelText(c domain.Category) string {
	return strings.ToUpper(string(c))
}

func formatOptional(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func formatNumber(v float64, decimals int) string {
	return strconv.FormatFloat(v, 'f', decimals, 64)
}
