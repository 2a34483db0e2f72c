package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/geo-risk-service/internal/config"
	"github.com/couchcryptid/geo-risk-service/internal/domain"
	"github.com/couchcryptid/geo-risk-service/internal/geodata"
	"github.com/couchcryptid/geo-risk-service/internal/observability"
	"github.com/jonboulle/clockwork"
)

// LayerLoader reads a risk layer from a path or URL.
type LayerLoader interface {
	Load(ctx context.Context, source string) (*geodata.Layer, error)
}

// Settings selects the scorer backend and the tunable model parameters.
type Settings struct {
	ScorerBackend string
	Profile       config.RiskProfile
}

// Service answers dashboard queries against the current State.
type Service struct {
	state      *State
	settings   Settings
	loader     LayerLoader
	sampler    *domain.Sampler
	clock      clockwork.Clock
	metrics    *observability.Metrics
	logger     *slog.Logger
	wantsLayer atomic.Bool
}

// NewService creates a Service with no layer loaded.
func NewService(settings Settings, loader LayerLoader, sampler *domain.Sampler, clock clockwork.Clock, metrics *observability.Metrics, logger *slog.Logger) *Service {
	svc := &Service{
		settings: settings,
		loader:   loader,
		sampler:  sampler,
		clock:    clock,
		metrics:  metrics,
		logger:   logger,
	}
	svc.state = NewState(svc.ruleScorer())
	return svc
}

// State exposes the snapshot holder.
func (s *Service) State() *State { return s.state }

// LoadLayer reads the layer at source and makes it current.
func (s *Service) LoadLayer(ctx context.Context, source string) error {
	s.wantsLayer.Store(true)
	layer, err := s.loader.Load(ctx, source)
	if err != nil {
		s.metrics.LayerLoads.WithLabelValues("error").Inc()
		return fmt.Errorf("load layer: %w", err)
	}
	s.metrics.LayerLoads.WithLabelValues("success").Inc()
	s.SetLayer(layer)
	return nil
}

// SetLayer makes layer current, fitting a new scorer to it when the
// learned backend is configured.
func (s *Service) SetLayer(layer *geodata.Layer) {
	s.state.Store(&Snapshot{
		Layer:    layer,
		Scorer:   s.scorerFor(layer),
		LoadedAt: s.clock.Now(),
	})
	s.metrics.LayerFeatures.Set(float64(layer.Len()))
}

func (s *Service) scorerFor(layer *geodata.Layer) domain.Scorer {
	if s.settings.ScorerBackend != config.ScorerLearned {
		return s.ruleScorer()
	}
	learned, err := domain.TrainLinearScorer(layer.LabeledSamples(), s.settings.Profile.Thresholds)
	if err != nil {
		s.logger.Warn("learned scorer unavailable, using rule scorer", "error", err, "source", layer.Source())
		return s.ruleScorer()
	}
	s.logger.Info("learned scorer trained", "samples", learned.TrainedOn(), "source", layer.Source())
	return learned
}

func (s *Service) ruleScorer() domain.Scorer {
	return domain.RuleScorer{Thresholds: s.settings.Profile.Thresholds}
}

// CheckReadiness fails while a requested layer has not been loaded. A
// service started without a layer source is ready immediately.
func (s *Service) CheckReadiness(_ context.Context) error {
	if s.wantsLayer.Load() && s.state.Load().Layer == nil {
		return domain.ErrNoLayer
	}
	return nil
}

// Assess samples the point, scores it, and projects it when the request
// names a target year.
func (s *Service) Assess(_ context.Context, req domain.AssessmentRequest) (domain.Assessment, error) {
	p := domain.Point{Lat: req.Lat, Lon: req.Lon}
	if err := p.Validate(); err != nil {
		return domain.Assessment{}, err
	}

	snap := s.state.Load()
	sample, source, attrs := s.sampler.Sample(p, lookup(snap.Layer))
	risk := snap.Scorer.Score(sample)

	a := domain.Assessment{
		ID:         req.ID,
		Point:      p,
		Sample:     sample,
		Source:     source,
		FeatureID:  attrs.FeatureID,
		Cluster:    attrs.Cluster,
		Risk:       risk,
		Scorer:     snap.Scorer.Name(),
		AssessedAt: s.clock.Now().UTC(),
	}

	if req.TargetYear != 0 {
		proj := s.settings.Profile.Scenarios.Project(sample.VegetationIndex, sample.SurfaceTemperatureC,
			req.TargetYear, domain.ParseScenario(req.Scenario), s.clock.Now())
		projected := snap.Scorer.Score(domain.EnvironmentalSample{
			VegetationIndex:     proj.ProjectedVegetationIndex,
			SurfaceTemperatureC: proj.ProjectedTemperatureC,
			PopulationDensity:   sample.PopulationDensity,
		})
		a.Projection = &proj
		a.ProjectedRisk = &projected
		s.metrics.Projections.WithLabelValues(string(proj.Scenario)).Inc()
	}

	s.metrics.Assessments.WithLabelValues(string(source), string(risk.Category)).Inc()
	return a, nil
}

// lookup avoids handing the sampler a non-nil interface around a nil layer.
func lookup(layer *geodata.Layer) domain.FeatureLookup {
	if layer == nil {
		return nil
	}
	return layer
}

// ScoreResult is a scored sample together with the scorer that produced it.
type ScoreResult struct {
	Sample domain.EnvironmentalSample `json:"sample"`
	Risk   domain.RiskAssessment      `json:"risk"`
	Scorer string                     `json:"scorer"`
}

// Score scores explicit values with the current scorer. Non-finite inputs
// are rejected.
func (s *Service) Score(sample domain.EnvironmentalSample) (ScoreResult, error) {
	if err := domain.ValidateSample(sample); err != nil {
		return ScoreResult{}, err
	}
	scorer := s.state.Load().Scorer
	return ScoreResult{Sample: sample, Risk: scorer.Score(sample), Scorer: scorer.Name()}, nil
}

// ProjectionResult compares the baseline risk with the projected one.
type ProjectionResult struct {
	Projection    domain.ScenarioProjection `json:"projection"`
	BaselineRisk  domain.RiskAssessment     `json:"baseline_risk"`
	ProjectedRisk domain.RiskAssessment     `json:"projected_risk"`
	Scorer        string                    `json:"scorer"`
}

// Project projects base NDVI and LST values to targetYear and scores both
// ends at the given density.
func (s *Service) Project(base domain.EnvironmentalSample, targetYear int, scenario string) (ProjectionResult, error) {
	if err := domain.ValidateSample(base); err != nil {
		return ProjectionResult{}, err
	}
	if targetYear <= 0 {
		return ProjectionResult{}, errors.New("target_year must be a positive year")
	}

	proj := s.settings.Profile.Scenarios.Project(base.VegetationIndex, base.SurfaceTemperatureC,
		targetYear, domain.ParseScenario(scenario), s.clock.Now())
	scorer := s.state.Load().Scorer
	s.metrics.Projections.WithLabelValues(string(proj.Scenario)).Inc()

	return ProjectionResult{
		Projection:   proj,
		BaselineRisk: scorer.Score(base),
		ProjectedRisk: scorer.Score(domain.EnvironmentalSample{
			VegetationIndex:     proj.ProjectedVegetationIndex,
			SurfaceTemperatureC: proj.ProjectedTemperatureC,
			PopulationDensity:   base.PopulationDensity,
		}),
		Scorer: scorer.Name(),
	}, nil
}

// Status describes the current snapshot.
type Status struct {
	Scorer       string     `json:"scorer"`
	LayerSource  string     `json:"layer_source,omitempty"`
	FeatureCount int        `json:"feature_count"`
	LoadedAt     *time.Time `json:"loaded_at,omitempty"`
}

// Status reports the scorer in use and the loaded layer, if any.
func (s *Service) Status() Status {
	snap := s.state.Load()
	st := Status{
		Scorer:       snap.Scorer.Name(),
		LayerSource:  snap.Layer.Source(),
		FeatureCount: snap.Layer.Len(),
	}
	if snap.Layer != nil {
		t := snap.LoadedAt.UTC()
		st.LoadedAt = &t
	}
	return st
}

// Thresholds returns the configured category cut-offs.
func (s *Service) Thresholds() domain.Thresholds {
	return s.settings.Profile.Thresholds
}
