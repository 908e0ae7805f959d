// Package uncertainty quantifies how confident the model was in a generated
// response, using the log-probabilities of the tokens it actually emitted.
package uncertainty

import (
	"math"

	"github.com/guardedai/mediator/pkg/interfaces"
)

// DefaultConfidenceThreshold is the confidence below which a response is
// treated as a potential hallucination. Overridable per call.
const DefaultConfidenceThreshold = 0.7

// Metrics holds the derived uncertainty measures for one response
type Metrics struct {
	// ConfidenceScore is the mean of exp(logprob) over tokens, in (0,1]
	ConfidenceScore float64 `json:"confidence_score"`

	// Entropy is the mean negative log-likelihood over tokens. Only the
	// chosen token's log-probability is available, so this is an NLL proxy,
	// not Shannon entropy over the full vocabulary.
	Entropy float64 `json:"entropy"`

	// IsUncertain marks the response as a potential hallucination
	IsUncertain bool `json:"is_uncertain"`
}

// Estimator derives uncertainty metrics from per-token log-probabilities
type Estimator struct {
	threshold float64
}

// Option represents an option for configuring the estimator
type Option func(*Estimator)

// WithThreshold sets the default confidence threshold
func WithThreshold(threshold float64) Option {
	return func(e *Estimator) {
		e.threshold = threshold
	}
}

// NewEstimator creates a new estimator
func NewEstimator(options ...Option) *Estimator {
	estimator := &Estimator{threshold: DefaultConfidenceThreshold}

	for _, option := range options {
		option(estimator)
	}

	return estimator
}

// CalculateMetrics computes confidence and entropy for a token sequence.
// An empty sequence yields zero for both metrics.
func (e *Estimator) CalculateMetrics(tokens []interfaces.TokenLogProb) Metrics {
	if len(tokens) == 0 {
		return Metrics{}
	}

	var totalProb, totalNLL float64
	for _, token := range tokens {
		totalProb += math.Exp(token.LogProb)
		totalNLL += -token.LogProb
	}

	count := float64(len(tokens))
	metrics := Metrics{
		ConfidenceScore: totalProb / count,
		Entropy:         totalNLL / count,
	}
	metrics.IsUncertain = e.IsHallucination(metrics.ConfidenceScore, e.threshold)

	return metrics
}

// IsHallucination reports whether the confidence falls below the threshold.
// A non-positive threshold falls back to the estimator default.
func (e *Estimator) IsHallucination(confidence, threshold float64) bool {
	if threshold <= 0 {
		threshold = e.threshold
	}
	return confidence < threshold
}
