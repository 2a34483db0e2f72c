package pipeline

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/geo-risk-service/internal/domain"
)

// Assessor assesses a single point. It is implemented by dashboard.Service.
type Assessor interface {
	Assess(ctx context.Context, req domain.AssessmentRequest) (domain.Assessment, error)
}

// AssessmentTransformer implements Transformer by parsing the request,
// assessing it, and serializing the result.
type AssessmentTransformer struct {
	assessor Assessor
	logger   *slog.Logger
}

// NewTransformer creates an AssessmentTransformer backed by assessor.
func NewTransformer(assessor Assessor, logger *slog.Logger) *AssessmentTransformer {
	return &AssessmentTransformer{
		assessor: assessor,
		logger:   logger,
	}
}

func (t *AssessmentTransformer) Transform(ctx context.Context, raw domain.RawEvent) (domain.OutputEvent, error) {
	req, err := domain.ParseAssessmentRequest(raw)
	if err != nil {
		return domain.OutputEvent{}, err
	}

	a, err := t.assessor.Assess(ctx, req)
	if err != nil {
		return domain.OutputEvent{}, err
	}
	t.logger.Debug("point assessed", "id", a.ID, "score", a.Risk.Score, "source", a.Source)

	return domain.SerializeAssessment(a)
}
