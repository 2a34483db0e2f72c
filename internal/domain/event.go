package domain

import (
	"context"
	"time"
)

// RawEvent represents an unprocessed message from the source topic.
type RawEvent struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// AssessmentRequest is the JSON payload of a source-topic message: a point
// to assess, optionally with a projection to compute alongside.
type AssessmentRequest struct {
	ID         string  `json:"id,omitempty"`
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
	TargetYear int     `json:"target_year,omitempty"`
	Scenario   string  `json:"scenario,omitempty"`
}

// Assessment is the full result for one point.
type Assessment struct {
	ID            string              `json:"id"`
	Point         Point               `json:"point"`
	Sample        EnvironmentalSample `json:"sample"`
	Source        SampleSource        `json:"source"`
	FeatureID     string              `json:"feature_id,omitempty"`
	Cluster       int                 `json:"cluster,omitempty"`
	Risk          RiskAssessment      `json:"risk"`
	Scorer        string              `json:"scorer"`
	Projection    *ScenarioProjection `json:"projection,omitempty"`
	ProjectedRisk *RiskAssessment     `json:"projected_risk,omitempty"`
	AssessedAt    time.Time           `json:"assessed_at"`
}

// OutputEvent is the serialized form destined for the sink topic.
type OutputEvent struct {
	Key     []byte
	Value   []byte
	Headers map[string]string
}
