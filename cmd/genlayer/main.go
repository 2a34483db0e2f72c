// Command genlayer writes a synthetic risk layer: a grid of square zones
// over a bounding box, each with mean NDVI, LST, and population density,
// a cluster label derived from the rule scorer, and per-year lst_/ndvi_
// observations for the trend chart. Output is reproducible for a given seed.
//
// Usage:
//
//	go run ./cmd/genlayer -out data/synthetic_layer.json -rows 8 -cols 10 -seed 7
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"

	"github.com/couchcryptid/geo-risk-service/internal/domain"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Yearly drift applied when back-filling the trend years from the
// 2023 means.
const (
	ndviDriftPerYear = 0.012
	lstDriftPerYear  = 0.18
)

// Value ranges for generated zones. Wider than the synthetic sampler's so
// the grid spans all three clusters.
var (
	ndviRange    = domain.Range{Min: 0.05, Max: 0.75}
	lstRange     = domain.Range{Min: 18, Max: 42}
	densityRange = domain.Range{Min: 300, Max: 9800}
)

type gridOptions struct {
	bound orb.Bound
	rows  int
	cols  int
	seed  uint64
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "", "output path for the GeoJSON layer")
	rows := flag.Int("rows", 6, "number of grid rows")
	cols := flag.Int("cols", 8, "number of grid columns")
	seed := flag.Uint64("seed", 1, "random seed")
	minLon := flag.Float64("min-lon", -78.56, "western edge")
	maxLon := flag.Float64("max-lon", -78.46, "eastern edge")
	minLat := flag.Float64("min-lat", -7.19, "southern edge")
	maxLat := flag.Float64("max-lat", -7.12, "northern edge")
	flag.Parse()

	if *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}
	if *rows <= 0 || *cols <= 0 {
		return fmt.Errorf("rows and cols must be positive")
	}
	if *minLon >= *maxLon || *minLat >= *maxLat {
		return fmt.Errorf("bounding box is empty")
	}

	fc := generate(gridOptions{
		bound: orb.Bound{Min: orb.Point{*minLon, *minLat}, Max: orb.Point{*maxLon, *maxLat}},
		rows:  *rows,
		cols:  *cols,
		seed:  *seed,
	})

	if err := writeLayer(*out, fc); err != nil {
		return fmt.Errorf("writing layer: %w", err)
	}
	log.Printf("wrote %d zones to %s", len(fc.Features), *out)
	printStats(fc)
	return nil
}

// generate builds the grid. Zones are numbered row-major from the
// south-west corner.
func generate(opts gridOptions) *geojson.FeatureCollection {
	rnd := rand.New(rand.NewPCG(opts.seed, opts.seed^0x9e3779b97f4a7c15))
	scorer := domain.NewRuleScorer()

	width := (opts.bound.Max.X() - opts.bound.Min.X()) / float64(opts.cols)
	height := (opts.bound.Max.Y() - opts.bound.Min.Y()) / float64(opts.rows)

	fc := geojson.NewFeatureCollection()
	for r := range opts.rows {
		for c := range opts.cols {
			x0 := opts.bound.Min.X() + float64(c)*width
			y0 := opts.bound.Min.Y() + float64(r)*height
			cell := orb.Polygon{orb.Ring{
				{x0, y0}, {x0 + width, y0}, {x0 + width, y0 + height}, {x0, y0 + height}, {x0, y0},
			}}

			sample := domain.EnvironmentalSample{
				VegetationIndex:     round(draw(rnd, ndviRange), 3),
				SurfaceTemperatureC: round(draw(rnd, lstRange), 2),
				PopulationDensity:   math.Round(draw(rnd, densityRange)),
			}
			risk := scorer.Score(sample)

			f := geojson.NewFeature(cell)
			f.ID = fmt.Sprintf("zone-%d", r*opts.cols+c+1)
			f.Properties["NDVI"] = sample.VegetationIndex
			f.Properties["LST"] = sample.SurfaceTemperatureC
			f.Properties["pop_den"] = sample.PopulationDensity
			f.Properties["cluster"] = clusterFor(risk.Category)
			f.Properties["risk_score"] = risk.Score
			addYearlyValues(f.Properties, sample, rnd)
			fc.Append(f)
		}
	}
	return fc
}

// addYearlyValues back-fills each trend year so that vegetation declines
// and temperature rises towards the last year.
func addYearlyValues(props geojson.Properties, s domain.EnvironmentalSample, rnd *rand.Rand) {
	last := domain.TrendYears[len(domain.TrendYears)-1]
	for _, year := range domain.TrendYears {
		age := float64(last - year)
		jitter := (rnd.Float64() - 0.5) * 0.01
		ndvi := math.Min(1, s.VegetationIndex+age*ndviDriftPerYear+jitter)
		props[fmt.Sprintf("ndvi_%d", year)] = round(ndvi, 3)
		props[fmt.Sprintf("lst_%d", year)] = round(s.SurfaceTemperatureC-age*lstDriftPerYear, 2)
	}
}

func clusterFor(c domain.Category) int {
	switch c {
	case domain.CategoryHigh:
		return domain.ClusterHigh
	case domain.CategoryModerate:
		return domain.ClusterModerate
	default:
		return domain.ClusterLow
	}
}

func draw(rnd *rand.Rand, r domain.Range) float64 {
	return r.Min + rnd.Float64()*(r.Max-r.Min)
}

func round(v float64, decimals int) float64 {
	p := math.Pow10(decimals)
	return math.Round(v*p) / p
}

func writeLayer(path string, fc *geojson.FeatureCollection) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := fc.MarshalJSON()
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		return err
	}
	buf.WriteByte('\n')
	return os.WriteFile(path, buf.Bytes(), 0o600)
}

func printStats(fc *geojson.FeatureCollection) {
	counts := map[int]int{}
	for _, f := range fc.Features {
		if c, ok := f.Properties["cluster"].(int); ok {
			counts[c]++
		}
	}
	fmt.Println("\n=== Cluster distribution ===")
	fmt.Printf("low=%d moderate=%d high=%d\n",
		counts[domain.ClusterLow], counts[domain.ClusterModerate], counts[domain.ClusterHigh])
}
