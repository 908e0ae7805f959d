// Package middleware implements the hook pipeline that wraps every model
// invocation. Hooks observe and transform a shared CallContext: request hooks
// run in registration order before the model call, response hooks run in
// reverse order after it.
package middleware

import (
	"context"
	"time"

	"github.com/guardedai/mediator/pkg/config"
	"github.com/guardedai/mediator/pkg/guardrails"
	"github.com/guardedai/mediator/pkg/interfaces"
	"github.com/guardedai/mediator/pkg/uncertainty"
	"go.opentelemetry.io/otel/trace"
)

// UsageMetrics captures per-call token, cost and energy accounting
type UsageMetrics struct {
	InputTokens       int     `json:"input_tokens"`
	OutputTokens      int     `json:"output_tokens"`
	TotalTokens       int     `json:"total_tokens"`
	CostUSD           float64 `json:"cost_usd"`
	CarbonFootprintKG float64 `json:"carbon_footprint_kg"`
}

// CallContext carries the state of a single model invocation through the
// middleware pipeline. Request hooks may mutate the request fields; response
// hooks read the raw output and populate the derived fields.
type CallContext struct {
	// Request
	Prompt       string
	SystemPrompt string
	ModelType    config.ModelType
	Deployment   string
	ModelParams  interfaces.InvokeParams

	// Per-call feature switches
	Grounding        bool
	Explain          bool
	CheckUncertainty bool
	Evaluate         bool
	RetryOnFail      bool

	// UncertaintyThreshold overrides the configured confidence threshold for
	// this call when > 0
	UncertaintyThreshold float64

	// Raw model output, populated by the pipeline after invocation
	RawContent    string
	TokenLogProbs []interfaces.TokenLogProb
	PromptTokens  int
	OutputTokens  int
	InvokeErr     error

	// Derived by response hooks
	Uncertainty     *uncertainty.Metrics
	Usage           *UsageMetrics
	FinalContent    string
	GuardrailStatus guardrails.Status
	Verdict         *guardrails.Verdict

	// Observability
	Span      trace.Span
	StartTime time.Time
}

// Middleware is a named pair of hooks around a model invocation. Either hook
// may be a no-op; returning an error from ProcessRequest aborts the call.
type Middleware interface {
	Name() string
	ProcessRequest(ctx context.Context, call *CallContext) error
	ProcessResponse(ctx context.Context, call *CallContext) error
}
