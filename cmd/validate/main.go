// Command validate checks a risk layer before it is deployed: feature
// structure, attribute ranges, cluster labels against the rule scorer,
// per-year trend observations, and whether a learned scorer can be
// trained from it.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -layer data/cajamarca_risk.json \
//	  -profile config/risk_profile.yaml \
//	  -min-agreement 0.5
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"strings"
	"time"

	"github.com/couchcryptid/geo-risk-service/internal/config"
	"github.com/couchcryptid/geo-risk-service/internal/domain"
	"github.com/couchcryptid/geo-risk-service/internal/geodata"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Plausible value ranges for layer attributes.
var (
	ndviBounds    = domain.Range{Min: -1, Max: 1}
	lstBounds     = domain.Range{Min: -30, Max: 70}
	densityBounds = domain.Range{Min: 0, Max: 100000}
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	layerPath := flag.String("layer", "", "path or URL of the GeoJSON risk layer")
	profilePath := flag.String("profile", "", "optional YAML risk profile")
	minAgreement := flag.Float64("min-agreement", 0.5, "minimum share of labeled zones whose cluster matches the rule category")
	flag.Parse()

	if *layerPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	os.Exit(run(os.Stdout, *layerPath, *profilePath, *minAgreement))
}

func run(w io.Writer, layerPath, profilePath string, minAgreement float64) int {
	fmt.Fprintln(w, "=== Risk Layer Validation ===")
	fmt.Fprintln(w)

	profile, err := config.LoadRiskProfile(profilePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		return 1
	}
	if err := profile.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		return 1
	}

	loader := geodata.NewLoader(30*time.Second, slog.New(slog.NewTextHandler(io.Discard, nil)))
	layer, err := loader.Load(context.Background(), layerPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateStructure(layer),
		validateAttributes(layer),
		validateClusters(layer, domain.RuleScorer{Thresholds: profile.Thresholds}, minAgreement),
		validateTrends(layer),
		validateLearnedScorer(layer, profile.Thresholds),
	}

	return report(w, layer, phases)
}

func report(w io.Writer, layer *geodata.Layer, phases []*phase) int {
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(w, "  %-42s %s\n", p.name, status)
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Features: %d total, %d labeled for training\n", layer.Len(), len(layer.LabeledSamples()))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(w, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Fprintf(w, "  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Fprintln(w, "\nAll validations passed.")
		return 0
	}
	fmt.Fprintln(w, "\nValidation FAILED.")
	return 1
}

// ── Phase 1: Structure ──
// Every feature needs a polygon geometry and a unique ID.

func validateStructure(layer *geodata.Layer) *phase {
	p := &phase{name: "Phase 1: Structure (geometry, IDs)"}

	if layer.Len() == 0 {
		p.errorf("layer has no features")
		return p
	}
	layer.Each(func(id string, f *geojson.Feature) {
		if strings.Contains(id, "#") {
			p.errorf("%s: duplicate feature ID", id)
		}
		switch g := f.Geometry.(type) {
		case nil:
			p.errorf("%s: missing geometry", id)
		case orb.Polygon, orb.MultiPolygon:
			if b := g.Bound(); b.Min.Y() < -90 || b.Max.Y() > 90 || b.Min.X() < -180 || b.Max.X() > 180 {
				p.errorf("%s: geometry outside WGS-84 bounds", id)
			}
		default:
			p.errorf("%s: geometry is %s, want Polygon or MultiPolygon", id, g.GeoJSONType())
		}
	})
	return p
}

// ── Phase 2: Attributes ──
// NDVI, LST and density must be present and within plausible ranges.

func validateAttributes(layer *geodata.Layer) *phase {
	p := &phase{name: "Phase 2: Attributes (presence, ranges)"}

	for _, a := range layer.Attributes() {
		checkValue(p, a.FeatureID, "ndvi", a.VegetationIndex, ndviBounds)
		checkValue(p, a.FeatureID, "lst", a.SurfaceTempC, lstBounds)
		checkValue(p, a.FeatureID, "density", a.PopulationDensity, densityBounds)
	}
	return p
}

func checkValue(p *phase, id, name string, v *float64, bounds domain.Range) {
	switch {
	case v == nil:
		p.errorf("%s: missing %s", id, name)
	case math.IsNaN(*v) || *v < bounds.Min || *v > bounds.Max:
		p.errorf("%s: %s=%v outside [%v, %v]", id, name, *v, bounds.Min, bounds.Max)
	}
}

// ── Phase 3: Clusters ──
// Labels must be known, and enough of them must agree with the category
// the rule scorer assigns to the same values.

func validateClusters(layer *geodata.Layer, scorer domain.Scorer, minAgreement float64) *phase {
	p := &phase{name: "Phase 3: Clusters (labels vs rule scorer)"}

	var labeled, agreeing int
	for _, a := range layer.Attributes() {
		if a.Cluster == 0 {
			continue
		}
		category, ok := domain.CategoryForCluster(a.Cluster)
		if !ok {
			p.errorf("%s: unknown cluster %d", a.FeatureID, a.Cluster)
			continue
		}
		if !a.Complete() {
			continue
		}
		labeled++
		risk := scorer.Score(domain.EnvironmentalSample{
			VegetationIndex:     *a.VegetationIndex,
			SurfaceTemperatureC: *a.SurfaceTempC,
			PopulationDensity:   *a.PopulationDensity,
		})
		if risk.Category == category {
			agreeing++
		}
	}

	if labeled == 0 {
		p.errorf("no complete labeled features")
		return p
	}
	if share := float64(agreeing) / float64(labeled); share < minAgreement {
		p.errorf("cluster/rule agreement %.0f%% (%d of %d) below %.0f%%",
			100*share, agreeing, labeled, 100*minAgreement)
	}
	return p
}

// ── Phase 4: Trends ──
// A feature that records any trend year must record all of them.

func validateTrends(layer *geodata.Layer) *phase {
	p := &phase{name: "Phase 4: Trends (per-year observations)"}

	layer.Each(func(id string, f *geojson.Feature) {
		for _, prefix := range []string{"lst_", "ndvi_"} {
			var missing []string
			for _, year := range domain.TrendYears {
				key := fmt.Sprintf("%s%d", prefix, year)
				if _, ok := f.Properties[key]; !ok {
					missing = append(missing, key)
				}
			}
			if len(missing) > 0 && len(missing) < len(domain.TrendYears) {
				p.errorf("%s: missing %s", id, strings.Join(missing, ", "))
			}
		}
	})
	return p
}

// ── Phase 5: Learned Scorer ──
// The layer must train a scorer whose mean prediction rises with the
// cluster label.

func validateLearnedScorer(layer *geodata.Layer, thresholds domain.Thresholds) *phase {
	p := &phase{name: "Phase 5: Learned scorer (training)"}

	samples := layer.LabeledSamples()
	scorer, err := domain.TrainLinearScorer(samples, thresholds)
	if err != nil {
		p.errorf("train: %v", err)
		return p
	}

	sums := map[int]float64{}
	counts := map[int]int{}
	for _, ls := range samples {
		sums[ls.Cluster] += scorer.Score(ls.Sample).Score
		counts[ls.Cluster]++
	}

	prev, prevCluster := math.Inf(-1), 0
	for _, c := range []int{domain.ClusterLow, domain.ClusterModerate, domain.ClusterHigh} {
		if counts[c] == 0 {
			continue
		}
		mean := sums[c] / float64(counts[c])
		if mean < prev {
			p.errorf("mean score of cluster %d (%.1f) below cluster %d (%.1f)", c, mean, prevCluster, prev)
		}
		prev, prevCluster = mean, c
	}
	return p
}
