package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	httpadapter "github.com/couchcryptid/geo-risk-service/internal/adapter/http"
	"github.com/couchcryptid/geo-risk-service/internal/adapter/wri"
	"github.com/couchcryptid/geo-risk-service/internal/config"
	"github.com/couchcryptid/geo-risk-service/internal/dashboard"
	"github.com/couchcryptid/geo-risk-service/internal/domain"
	"github.com/couchcryptid/geo-risk-service/internal/geodata"
	"github.com/couchcryptid/geo-risk-service/internal/observability"
	"github.com/couchcryptid/geo-risk-service/internal/presentation"
	"github.com/jonboulle/clockwork"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixturePath = "../../geodata/testdata/cajamarca_risk_example.json"

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

type fakeCatalog struct {
	info domain.DatasetInfo
	err  error
	ids  []string
}

func (f *fakeCatalog) Dataset(_ context.Context, id string) (domain.DatasetInfo, error) {
	f.ids = append(f.ids, id)
	return f.info, f.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newDashboard(t *testing.T, withLayer bool) *dashboard.Service {
	t.Helper()
	svc := dashboard.NewService(
		dashboard.Settings{ScorerBackend: config.ScorerRule, Profile: config.DefaultRiskProfile()},
		geodata.NewLoader(time.Second, discardLogger()),
		domain.NewSamplerWithSource(func() float64 { return 0.5 }),
		clockwork.NewFakeClockAt(time.Date(2026, time.January, 1, 12, 0, 0, 0, time.UTC)),
		observability.NewMetricsForTesting(),
		discardLogger(),
	)
	if withLayer {
		require.NoError(t, svc.LoadLayer(context.Background(), fixturePath))
	}
	return svc
}

type serverOpts struct {
	readyErr error
	noLayer  bool
	catalog  domain.CatalogFetcher
	rps      float64
	burst    int
	metrics  *observability.Metrics
	pipeline *mockReadiness
}

func newTestServer(t *testing.T, o serverOpts) *httpadapter.Server {
	t.Helper()
	if o.metrics == nil {
		o.metrics = observability.NewMetricsForTesting()
	}
	opts := httpadapter.Options{RateLimitRPS: o.rps, RateLimitBurst: o.burst, DefaultDatasetID: "default-ds"}
	if o.pipeline != nil {
		opts.Pipeline = o.pipeline
	}
	return httpadapter.NewServer(":0",
		newDashboard(t, !o.noLayer),
		o.catalog,
		&mockReadiness{err: o.readyErr},
		opts,
		o.metrics,
		discardLogger(),
	)
}

func do(srv http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(method, target, r))
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[map[string]string](t, rec)["error"]
}

func counterValue(t *testing.T, c interface{ Write(*dto.Metric) error }) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func TestHealthzReturns200(t *testing.T) {
	rec := do(newTestServer(t, serverOpts{}), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	rec := do(newTestServer(t, serverOpts{}), http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	rec := do(newTestServer(t, serverOpts{readyErr: fmt.Errorf("not ready yet")}), http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	rec := do(newTestServer(t, serverOpts{}), http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestAssess_JSON(t *testing.T) {
	srv := newTestServer(t, serverOpts{})
	rec := do(srv, http.MethodPost, "/api/v1/assess", `{"id":"p1","lat":-7.16,"lon":-78.52,"target_year":2050,"scenario":"low"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	type response struct {
		Assessment domain.Assessment              `json:"assessment"`
		Popup      presentation.AssessmentSummary `json:"popup"`
	}
	body := decode[response](t, rec)

	assert.Equal(t, "p1", body.Assessment.ID)
	assert.Equal(t, "zone-1", body.Assessment.FeatureID)
	assert.Equal(t, domain.CategoryHigh, body.Assessment.Risk.Category)
	require.NotNil(t, body.Assessment.Projection)
	assert.Equal(t, 24, body.Assessment.Projection.YearsAhead)
	assert.Equal(t, "HIGH", body.Popup.Level)
	assert.NotEmpty(t, body.Popup.Lines)
}

func TestAssess_HTML(t *testing.T) {
	srv := newTestServer(t, serverOpts{})
	rec := do(srv, http.MethodPost, "/api/v1/assess?format=html", `{"lat":-7.16,"lon":-78.52}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "Risk level")
	assert.Contains(t, rec.Body.String(), "HIGH")
}

func TestAssess_BadInput(t *testing.T) {
	srv := newTestServer(t, serverOpts{})

	rec := do(srv, http.MethodPost, "/api/v1/assess", `{"lat":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, errorMessage(t, rec), "invalid request body")

	rec = do(srv, http.MethodPost, "/api/v1/assess", `{"lat":95,"lon":0}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, errorMessage(t, rec), "latitude")
}

func TestAssess_WrongMethod(t *testing.T) {
	rec := do(newTestServer(t, serverOpts{}), http.MethodGet, "/api/v1/assess", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestScore(t *testing.T) {
	srv := newTestServer(t, serverOpts{})
	rec := do(srv, http.MethodGet, "/api/v1/score?ndvi=0.5&lst=25&density=5000", "")
	require.Equal(t, http.StatusOK, rec.Code)

	res := decode[dashboard.ScoreResult](t, rec)
	assert.Equal(t, domain.RiskAssessment{Score: 47, Category: domain.CategoryModerate}, res.Risk)
	assert.Equal(t, "rule", res.Scorer)
}

func TestScore_Validation(t *testing.T) {
	srv := newTestServer(t, serverOpts{})
	tests := []struct {
		name   string
		query  string
		errMsg string
	}{
		{"missing ndvi", "lst=25&density=1", "ndvi is required"},
		{"missing density", "ndvi=0.5&lst=25", "density is required"},
		{"not a number", "ndvi=abc&lst=25&density=1", "ndvi must be a finite number"},
		{"nan", "ndvi=0.5&lst=NaN&density=1", "lst must be a finite number"},
		{"negative density", "ndvi=0.5&lst=25&density=-4", "density must not be negative"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(srv, http.MethodGet, "/api/v1/score?"+tt.query, "")
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.errMsg, errorMessage(t, rec))
		})
	}
}

func TestProject(t *testing.T) {
	srv := newTestServer(t, serverOpts{})
	rec := do(srv, http.MethodGet, "/api/v1/project?ndvi=0.5&lst=25&density=5000&target_year=2030", "")
	require.Equal(t, http.StatusOK, rec.Code)

	res := decode[dashboard.ProjectionResult](t, rec)
	assert.Equal(t, domain.ScenarioMedium, res.Projection.Scenario)
	assert.Equal(t, 4, res.Projection.YearsAhead)
	assert.Equal(t, 47.0, res.BaselineRisk.Score)
}

func TestProject_Validation(t *testing.T) {
	srv := newTestServer(t, serverOpts{})

	rec := do(srv, http.MethodGet, "/api/v1/project?ndvi=0.5&lst=25", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "target_year is required", errorMessage(t, rec))

	rec = do(srv, http.MethodGet, "/api/v1/project?ndvi=0.5&lst=25&target_year=soon", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(srv, http.MethodGet, "/api/v1/project?ndvi=0.5&lst=25&target_year=-1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLayer(t *testing.T) {
	srv := newTestServer(t, serverOpts{})
	rec := do(srv, http.MethodGet, "/api/v1/layer", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/geo+json", rec.Header().Get("Content-Type"))

	var fc struct {
		Type     string `json:"type"`
		Features []struct {
			Properties map[string]any `json:"properties"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fc))
	assert.Equal(t, "FeatureCollection", fc.Type)
	require.NotEmpty(t, fc.Features)
	for _, f := range fc.Features {
		assert.Contains(t, f.Properties, "style")
		assert.Contains(t, f.Properties, "feature_id")
	}
}

func TestLayerRoutesWithoutLayer(t *testing.T) {
	srv := newTestServer(t, serverOpts{noLayer: true})

	for _, path := range []string{"/api/v1/layer", "/api/v1/kpis", "/api/v1/features/zone-1"} {
		rec := do(srv, http.MethodGet, path, "")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, path)
	}

	rec := do(srv, http.MethodGet, "/api/v1/trend", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.DefaultTrend(), decode[domain.Trend](t, rec))
}

func TestFeature(t *testing.T) {
	srv := newTestServer(t, serverOpts{})

	rec := do(srv, http.MethodGet, "/api/v1/features/zone-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	summary := decode[presentation.FeatureSummary](t, rec)
	assert.Equal(t, "zone-1", summary.FeatureID)
	assert.Equal(t, "HIGH", summary.Level)

	rec = do(srv, http.MethodGet, "/api/v1/features/zone-1?format=html", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "HIGH")

	rec = do(srv, http.MethodGet, "/api/v1/features/zone-1/trend", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.TrendYears, decode[domain.Trend](t, rec).Vegetation.Years)

	rec = do(srv, http.MethodGet, "/api/v1/features/nowhere", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = do(srv, http.MethodGet, "/api/v1/features/nowhere/trend", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPanelRoutes(t *testing.T) {
	srv := newTestServer(t, serverOpts{})

	rec := do(srv, http.MethodGet, "/api/v1/kpis", "")
	require.Equal(t, http.StatusOK, rec.Code)
	kpis := decode[presentation.KPIs](t, rec)
	assert.Equal(t, "20.0%", kpis.HighRiskShareText)

	rec = do(srv, http.MethodGet, "/api/v1/legend", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, presentation.DefaultLegend(), decode[presentation.Legend](t, rec))

	rec = do(srv, http.MethodGet, "/api/v1/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	status := decode[dashboard.Status](t, rec)
	assert.Equal(t, "rule", status.Scorer)
	assert.Equal(t, kpis.FeatureCount, status.FeatureCount)
	assert.NotNil(t, status.LoadedAt)
}

func TestCatalog(t *testing.T) {
	catalog := &fakeCatalog{info: domain.DatasetInfo{
		ID:           "default-ds",
		Title:        "Urban heat",
		Notes:        "short notes",
		LastModified: time.Date(2024, time.March, 5, 10, 0, 0, 0, time.UTC),
	}}
	srv := newTestServer(t, serverOpts{catalog: catalog})

	rec := do(srv, http.MethodGet, "/api/v1/catalog", "")
	require.Equal(t, http.StatusOK, rec.Code)
	card := decode[presentation.CatalogCard](t, rec)
	assert.Equal(t, "Urban heat", card.Title)
	assert.Equal(t, "2024-03-05", card.LastUpdated)

	rec = do(srv, http.MethodGet, "/api/v1/catalog/other-ds", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"default-ds", "other-ds"}, catalog.ids)
}

func TestCatalog_Errors(t *testing.T) {
	tests := []struct {
		name    string
		catalog domain.CatalogFetcher
		status  int
	}{
		{"disabled", nil, http.StatusServiceUnavailable},
		{"unavailable", &fakeCatalog{err: fmt.Errorf("lookup: %w", wri.ErrDatasetUnavailable)}, http.StatusNotFound},
		{"upstream", &fakeCatalog{err: errors.New("wri API error: status 500")}, http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(newTestServer(t, serverOpts{catalog: tt.catalog}), http.MethodGet, "/api/v1/catalog", "")
			assert.Equal(t, tt.status, rec.Code)
			assert.NotEmpty(t, errorMessage(t, rec))
		})
	}
}

func TestRateLimit(t *testing.T) {
	metrics := observability.NewMetricsForTesting()
	srv := newTestServer(t, serverOpts{rps: 0.001, burst: 2, metrics: metrics})

	assert.Equal(t, http.StatusOK, do(srv, http.MethodGet, "/api/v1/legend", "").Code)
	assert.Equal(t, http.StatusOK, do(srv, http.MethodGet, "/api/v1/legend", "").Code)

	rec := do(srv, http.MethodGet, "/api/v1/legend", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	assert.Equal(t, "rate limit exceeded", errorMessage(t, rec))
	assert.Equal(t, 1.0, counterValue(t, metrics.RateLimited))

	// Other clients have their own bucket.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/legend", nil)
	req.RemoteAddr = "198.51.100.7:4000"
	other := httptest.NewRecorder()
	srv.ServeHTTP(other, req)
	assert.Equal(t, http.StatusOK, other.Code)

	// Health checks are never limited.
	assert.Equal(t, http.StatusOK, do(srv, http.MethodGet, "/healthz", "").Code)
}

func TestRequestMetrics(t *testing.T) {
	metrics := observability.NewMetricsForTesting()
	srv := newTestServer(t, serverOpts{metrics: metrics})

	do(srv, http.MethodGet, "/api/v1/legend", "")
	do(srv, http.MethodGet, "/api/v1/features/nowhere", "")

	assert.Equal(t, 1.0, counterValue(t, metrics.APIRequests.WithLabelValues("GET /api/v1/legend", "200")))
	assert.Equal(t, 1.0, counterValue(t, metrics.APIRequests.WithLabelValues("GET /api/v1/features/{id}", "404")))
}

func TestRateLimit_ZeroRateDisablesLimiting(t *testing.T) {
	metrics := observability.NewMetricsForTesting()
	srv := newTestServer(t, serverOpts{rps: 0, burst: 0, metrics: metrics})

	for range 50 {
		require.Equal(t, http.StatusOK, do(srv, http.MethodGet, "/api/v1/legend", "").Code)
	}
	assert.Zero(t, counterValue(t, metrics.RateLimited))
}

func TestStatus_PipelineReadiness(t *testing.T) {
	tests := []struct {
		name     string
		pipeline *mockReadiness
		want     any
	}{
		{"disabled", nil, nil},
		{"ready", &mockReadiness{}, true},
		{"waiting", &mockReadiness{err: errors.New("pipeline has not published any assessments yet")}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(newTestServer(t, serverOpts{pipeline: tt.pipeline}), http.MethodGet, "/api/v1/status", "")
			require.Equal(t, http.StatusOK, rec.Code)

			body := decode[map[string]any](t, rec)
			assert.Equal(t, "rule", body["scorer"])
			ready, ok := body["pipeline_ready"]
			if tt.want == nil {
				assert.False(t, ok)
				return
			}
			assert.Equal(t, tt.want, ready)
		})
	}
}
