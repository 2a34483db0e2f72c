package domain

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// LabeledSample pairs a sample with the cluster the upstream K-Means job
// assigned to its zone.
type LabeledSample struct {
	Sample  EnvironmentalSample
	Cluster int
}

// clusterTargets are the training targets per cluster: the midpoint of the
// score band of the category each cluster maps to.
var clusterTargets = map[int]float64{
	1: 20,
	2: 52.5,
	3: 82.5,
}

// minTrainingSamples is the number of labeled samples needed to fit the
// intercept plus three factor coefficients.
const minTrainingSamples = 4

// ErrInsufficientTraining is returned when too few labeled samples exist.
var ErrInsufficientTraining = errors.New("not enough labeled samples to train scorer")

// LinearScorer predicts a score as a linear combination of the normalized
// risk factors, with coefficients fitted by least squares to cluster labels.
type LinearScorer struct {
	intercept  float64
	weights    factors
	thresholds Thresholds
	trainedOn  int
}

// TrainLinearScorer fits a LinearScorer to labeled samples. Samples with a
// cluster outside 1–3 are ignored.
func TrainLinearScorer(samples []LabeledSample, thresholds Thresholds) (*LinearScorer, error) {
	rows := make([]float64, 0, len(samples)*4)
	targets := make([]float64, 0, len(samples))
	for _, ls := range samples {
		target, ok := clusterTargets[ls.Cluster]
		if !ok || ValidateSample(ls.Sample) != nil {
			continue
		}
		f := riskFactors(ls.Sample)
		rows = append(rows, 1, f.temperature, f.vegetation, f.density)
		targets = append(targets, target)
	}

	n := len(targets)
	if n < minTrainingSamples {
		return nil, fmt.Errorf("%w: have %d, need %d", ErrInsufficientTraining, n, minTrainingSamples)
	}

	x := mat.NewDense(n, 4, rows)
	y := mat.NewVecDense(n, targets)

	var beta mat.VecDense
	if err := beta.SolveVec(x, y); err != nil {
		return nil, fmt.Errorf("fit linear scorer: %w", err)
	}
	for i := range 4 {
		if v := beta.AtVec(i); math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, errors.New("fit linear scorer: degenerate coefficients")
		}
	}

	return &LinearScorer{
		intercept: beta.AtVec(0),
		weights: factors{
			temperature: beta.AtVec(1),
			vegetation:  beta.AtVec(2),
			density:     beta.AtVec(3),
		},
		thresholds: thresholds,
		trainedOn:  n,
	}, nil
}

func (*LinearScorer) Name() string { return "learned" }

// TrainedOn returns the number of samples used to fit the model.
func (l *LinearScorer) TrainedOn() int { return l.trainedOn }

func (l *LinearScorer) Score(s EnvironmentalSample) RiskAssessment {
	f := riskFactors(s)
	raw := l.intercept +
		l.weights.temperature*f.temperature +
		l.weights.vegetation*f.vegetation +
		l.weights.density*f.density
	score := clampScore(math.Round(raw))
	return RiskAssessment{Score: score, Category: l.thresholds.Categorize(score)}
}
