package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// ParseAssessmentRequest deserializes a RawEvent's value and validates the
// point. Requests without an ID get a deterministic one.
func ParseAssessmentRequest(raw RawEvent) (AssessmentRequest, error) {
	var req AssessmentRequest
	if err := json.Unmarshal(raw.Value, &req); err != nil {
		return AssessmentRequest{}, fmt.Errorf("parse assessment request: %w", err)
	}
	if err := (Point{Lat: req.Lat, Lon: req.Lon}).Validate(); err != nil {
		return AssessmentRequest{}, fmt.Errorf("parse assessment request: %w", err)
	}
	if req.ID == "" {
		req.ID = generateID(req)
	}
	return req, nil
}

// SerializeAssessment marshals an assessment into an OutputEvent keyed by
// its ID.
func SerializeAssessment(a Assessment) (OutputEvent, error) {
	data, err := json.Marshal(a)
	if err != nil {
		return OutputEvent{}, fmt.Errorf("serialize assessment: %w", err)
	}
	return OutputEvent{
		Key:   []byte(a.ID),
		Value: data,
		Headers: map[string]string{
			"category":    string(a.Risk.Category),
			"source":      string(a.Source),
			"assessed_at": a.AssessedAt.Format(time.RFC3339),
		},
	}, nil
}

// generateID hashes the request's key fields. Replaying the same request
// yields the same ID, so downstream consumers can deduplicate.
func generateID(req AssessmentRequest) string {
	input := fmt.Sprintf("%.6f|%.6f|%d|%s", req.Lat, req.Lon, req.TargetYear, req.Scenario)
	hash := sha256.Sum256([]byte(input))
	return "pt-" + hex.EncodeToString(hash[:8])
}
