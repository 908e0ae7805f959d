package middleware

import (
	"context"

	"github.com/guardedai/mediator/pkg/logging"
	"github.com/guardedai/mediator/pkg/uncertainty"
)

// UncertaintyMiddleware derives confidence metrics from token log
// probabilities. On the request side it switches logprob capture on so the
// backend returns them; on the response side it computes the metrics.
type UncertaintyMiddleware struct {
	estimator *uncertainty.Estimator
	logger    logging.Logger
}

// NewUncertaintyMiddleware creates the uncertainty middleware
func NewUncertaintyMiddleware(estimator *uncertainty.Estimator, logger logging.Logger) *UncertaintyMiddleware {
	if logger == nil {
		logger = logging.New()
	}
	return &UncertaintyMiddleware{estimator: estimator, logger: logger}
}

// Name returns the middleware name
func (m *UncertaintyMiddleware) Name() string {
	return "uncertainty"
}

// ProcessRequest enables logprob capture when the caller asked for
// uncertainty metrics
func (m *UncertaintyMiddleware) ProcessRequest(ctx context.Context, call *CallContext) error {
	if call.CheckUncertainty {
		call.ModelParams.LogProbs = true
	}
	return nil
}

// ProcessResponse computes confidence and entropy from the captured logprobs
func (m *UncertaintyMiddleware) ProcessResponse(ctx context.Context, call *CallContext) error {
	if !call.CheckUncertainty || call.InvokeErr != nil {
		return nil
	}

	metrics := m.estimator.CalculateMetrics(call.TokenLogProbs)
	if call.UncertaintyThreshold > 0 {
		metrics.IsUncertain = m.estimator.IsHallucination(metrics.ConfidenceScore, call.UncertaintyThreshold)
	}
	call.Uncertainty = &metrics

	if metrics.IsUncertain {
		m.logger.Warn(ctx, "Response flagged as uncertain", map[string]interface{}{
			"confidence": metrics.ConfidenceScore,
			"entropy":    metrics.Entropy,
		})
	}
	return nil
}
