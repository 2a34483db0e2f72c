package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/couchcryptid/geo-risk-service/internal/adapter/wri"
	"github.com/couchcryptid/geo-risk-service/internal/dashboard"
	"github.com/couchcryptid/geo-risk-service/internal/domain"
	"github.com/couchcryptid/geo-risk-service/internal/presentation"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
)

const maxBodyBytes = 1 << 20

type handlers struct {
	api       Dashboard
	catalog   domain.CatalogFetcher
	datasetID string
	pipeline  sharedobs.ReadinessChecker
	logger    *slog.Logger
}

type errorBody struct {
	Error string `json:"error"`
}

// assessResponse pairs the raw assessment with its popup rendering.
type assessResponse struct {
	Assessment domain.Assessment              `json:"assessment"`
	Popup      presentation.AssessmentSummary `json:"popup"`
}

func (h *handlers) assess(w http.ResponseWriter, r *http.Request) {
	var req domain.AssessmentRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body: " + err.Error()})
		return
	}

	a, err := h.api.Assess(r.Context(), req)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}

	summary := presentation.SummarizeAssessment(a)
	if wantsHTML(r) {
		h.renderHTML(w, func(buf *bytes.Buffer) error { return presentation.RenderAssessmentHTML(buf, summary) })
		return
	}
	writeJSON(w, http.StatusOK, assessResponse{Assessment: a, Popup: summary})
}

func (h *handlers) score(w http.ResponseWriter, r *http.Request) {
	sample, err := parseSample(r, true)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	res, err := h.api.Score(sample)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handlers) project(w http.ResponseWriter, r *http.Request) {
	sample, err := parseSample(r, false)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	raw := r.URL.Query().Get("target_year")
	if raw == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "target_year is required"})
		return
	}
	year, err := strconv.Atoi(raw)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "target_year must be an integer"})
		return
	}

	res, err := h.api.Project(sample, year, r.URL.Query().Get("scenario"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handlers) layer(w http.ResponseWriter, _ *http.Request) {
	fc, err := h.api.StyledLayer()
	if err != nil {
		h.writeError(w, err)
		return
	}
	data, err := fc.MarshalJSON()
	if err != nil {
		h.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		h.logger.Error("write layer response", "error", err)
	}
}

func (h *handlers) legend(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.api.Legend())
}

func (h *handlers) kpis(w http.ResponseWriter, _ *http.Request) {
	k, err := h.api.KPIs()
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, k)
}

func (h *handlers) trend(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.api.Trend())
}

// statusResponse adds the pipeline state to the dashboard status.
// PipelineReady is omitted when the pipeline is disabled.
type statusResponse struct {
	dashboard.Status
	PipelineReady *bool `json:"pipeline_ready,omitempty"`
}

func (h *handlers) status(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{Status: h.api.Status()}
	if h.pipeline != nil {
		ready := h.pipeline.CheckReadiness(r.Context()) == nil
		resp.PipelineReady = &ready
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handlers) feature(w http.ResponseWriter, r *http.Request) {
	summary, err := h.api.Feature(r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	if wantsHTML(r) {
		h.renderHTML(w, func(buf *bytes.Buffer) error { return presentation.RenderFeatureHTML(buf, summary) })
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *handlers) featureTrend(w http.ResponseWriter, r *http.Request) {
	t, err := h.api.FeatureTrend(r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *handlers) dataset(w http.ResponseWriter, r *http.Request) {
	if h.catalog == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "catalog disabled"})
		return
	}
	id := r.PathValue("id")
	if id == "" {
		id = h.datasetID
	}
	info, err := h.catalog.Dataset(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, presentation.SummarizeDataset(info))
}

// writeError maps service errors to status codes. Anything unrecognized
// came from an upstream dependency.
func (h *handlers) writeError(w http.ResponseWriter, err error) {
	status := http.StatusBadGateway
	switch {
	case errors.Is(err, domain.ErrNoLayer):
		status = http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrFeatureNotFound), errors.Is(err, wri.ErrDatasetUnavailable):
		status = http.StatusNotFound
	}
	if status == http.StatusBadGateway {
		h.logger.Error("upstream request failed", "error", err)
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}

func (h *handlers) renderHTML(w http.ResponseWriter, render func(*bytes.Buffer) error) {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		h.logger.Error("render popup", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "render failed"})
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func wantsHTML(r *http.Request) bool {
	return r.URL.Query().Get("format") == "html"
}

// parseSample reads ndvi, lst and density query parameters. density is
// optional unless requireDensity is set, and defaults to zero.
func parseSample(r *http.Request, requireDensity bool) (domain.EnvironmentalSample, error) {
	q := r.URL.Query()
	ndvi, err := parseFloat(q.Get("ndvi"), "ndvi", true)
	if err != nil {
		return domain.EnvironmentalSample{}, err
	}
	lst, err := parseFloat(q.Get("lst"), "lst", true)
	if err != nil {
		return domain.EnvironmentalSample{}, err
	}
	density, err := parseFloat(q.Get("density"), "density", requireDensity)
	if err != nil {
		return domain.EnvironmentalSample{}, err
	}
	return domain.EnvironmentalSample{
		VegetationIndex:     ndvi,
		SurfaceTemperatureC: lst,
		PopulationDensity:   density,
	}, nil
}

func parseFloat(raw, name string, required bool) (float64, error) {
	if raw == "" {
		if required {
			return 0, fmt.Errorf("%s is required", name)
		}
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%s must be a finite number", name)
	}
	return v, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}
