package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/guardedai/mediator/pkg/interfaces"
	"github.com/guardedai/mediator/pkg/logging"
	"github.com/guardedai/mediator/pkg/tokens"
	"github.com/guardedai/mediator/pkg/tracing"
)

// ObservabilityMiddleware opens a span around each invocation and records
// token usage, cost, carbon footprint and an optional Langfuse generation.
// Everything here is best effort: a broken exporter or counter must never
// break the call it is observing.
type ObservabilityMiddleware struct {
	tracer    *tracing.OTelTracer
	generator interfaces.GenerationTracer
	counter   interfaces.TokenCounter
	logger    logging.Logger
}

// NewObservabilityMiddleware creates the observability middleware. The
// generation tracer may be nil when Langfuse is not configured.
func NewObservabilityMiddleware(tracer *tracing.OTelTracer, generator interfaces.GenerationTracer, counter interfaces.TokenCounter, logger logging.Logger) *ObservabilityMiddleware {
	if logger == nil {
		logger = logging.New()
	}
	return &ObservabilityMiddleware{
		tracer:    tracer,
		generator: generator,
		counter:   counter,
		logger:    logger,
	}
}

// Name returns the middleware name
func (m *ObservabilityMiddleware) Name() string {
	return "observability"
}

// ProcessRequest opens the invocation span and stamps the start time
func (m *ObservabilityMiddleware) ProcessRequest(ctx context.Context, call *CallContext) error {
	call.StartTime = time.Now()

	if m.tracer != nil {
		_, span := m.tracer.StartSpan(ctx, fmt.Sprintf("llm.%s", call.ModelType), map[string]string{
			"model_type": string(call.ModelType),
			"deployment": call.Deployment,
		})
		call.Span = span
	}

	return nil
}

// ProcessResponse records usage metrics and closes the span
func (m *ObservabilityMiddleware) ProcessResponse(ctx context.Context, call *CallContext) error {
	defer func() {
		if m.tracer != nil && call.Span != nil {
			m.tracer.EndSpan(call.Span, call.InvokeErr)
		}
	}()

	if call.InvokeErr != nil {
		return nil
	}

	m.recordUsage(ctx, call)
	m.recordGeneration(ctx, call)
	return nil
}

// recordUsage fills call.Usage from reported token counts, falling back to
// local counting when the backend did not report usage
func (m *ObservabilityMiddleware) recordUsage(ctx context.Context, call *CallContext) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Warn(ctx, "Usage accounting panicked", map[string]interface{}{
				"panic": fmt.Sprintf("%v", r),
			})
		}
	}()

	inputTokens := call.PromptTokens
	outputTokens := call.OutputTokens

	if inputTokens == 0 && m.counter != nil {
		if n, err := m.counter.CountTokens(call.SystemPrompt+"\n"+call.Prompt, call.Deployment); err == nil {
			inputTokens = n
		}
	}
	if outputTokens == 0 && m.counter != nil {
		if n, err := m.counter.CountTokens(call.FinalContent, call.Deployment); err == nil {
			outputTokens = n
		}
	}

	total := inputTokens + outputTokens
	call.Usage = &UsageMetrics{
		InputTokens:       inputTokens,
		OutputTokens:      outputTokens,
		TotalTokens:       total,
		CostUSD:           tokens.EstimateCost(inputTokens, outputTokens, call.Deployment),
		CarbonFootprintKG: tokens.EstimateCarbonFootprint(total, call.Deployment),
	}
}

// recordGeneration sends the generation to Langfuse, swallowing failures
func (m *ObservabilityMiddleware) recordGeneration(ctx context.Context, call *CallContext) {
	if m.generator == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			m.logger.Warn(ctx, "Generation tracing panicked", map[string]interface{}{
				"panic": fmt.Sprintf("%v", r),
			})
		}
	}()

	metadata := map[string]interface{}{
		"model_type": string(call.ModelType),
	}
	if call.Usage != nil {
		metadata["total_tokens"] = call.Usage.TotalTokens
		metadata["cost_usd"] = call.Usage.CostUSD
	}

	if _, err := m.generator.TraceGeneration(ctx, call.Deployment, call.Prompt, call.FinalContent, call.StartTime, time.Now(), metadata); err != nil {
		m.logger.Warn(ctx, "Failed to record generation", map[string]interface{}{
			"error": err.Error(),
		})
	}
}
