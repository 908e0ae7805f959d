package middleware

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/guardedai/mediator/pkg/guardrails"
	"github.com/guardedai/mediator/pkg/interfaces"
	"github.com/guardedai/mediator/pkg/uncertainty"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingMiddleware appends its name to a shared trace on each hook
type recordingMiddleware struct {
	name  string
	trace *[]string
}

func (m *recordingMiddleware) Name() string { return m.name }

func (m *recordingMiddleware) ProcessRequest(ctx context.Context, call *CallContext) error {
	*m.trace = append(*m.trace, "before:"+m.name)
	return nil
}

func (m *recordingMiddleware) ProcessResponse(ctx context.Context, call *CallContext) error {
	*m.trace = append(*m.trace, "after:"+m.name)
	return nil
}

// panickingMiddleware panics in its response hook
type panickingMiddleware struct{}

func (m *panickingMiddleware) Name() string { return "panicking" }

func (m *panickingMiddleware) ProcessRequest(ctx context.Context, call *CallContext) error {
	return nil
}

func (m *panickingMiddleware) ProcessResponse(ctx context.Context, call *CallContext) error {
	panic("boom")
}

// rejectingMiddleware fails its request hook
type rejectingMiddleware struct {
	trace *[]string
}

func (m *rejectingMiddleware) Name() string { return "rejecting" }

func (m *rejectingMiddleware) ProcessRequest(ctx context.Context, call *CallContext) error {
	return errors.New("request rejected")
}

func (m *rejectingMiddleware) ProcessResponse(ctx context.Context, call *CallContext) error {
	*m.trace = append(*m.trace, "after:rejecting")
	return nil
}

// capturingGenerationTracer records what it was asked to trace
type capturingGenerationTracer struct {
	model    string
	prompt   string
	response string
}

func (c *capturingGenerationTracer) TraceGeneration(ctx context.Context, model, prompt, response string, startTime, endTime time.Time, metadata map[string]interface{}) (string, error) {
	c.model = model
	c.prompt = prompt
	c.response = response
	return "gen-1", nil
}

func (c *capturingGenerationTracer) Flush() error { return nil }

// wordCounter counts whitespace-separated words
type wordCounter struct{}

func (wordCounter) CountTokens(text, deployment string) (int, error) {
	return len(strings.Fields(text)), nil
}

func TestPipelineHookOrdering(t *testing.T) {
	var trace []string
	pipeline := NewPipeline(nil)
	pipeline.Use(&recordingMiddleware{name: "A", trace: &trace})
	pipeline.Use(&recordingMiddleware{name: "B", trace: &trace})
	pipeline.Use(&recordingMiddleware{name: "C", trace: &trace})

	call := &CallContext{Prompt: "hello"}
	err := pipeline.Execute(context.Background(), call, func(ctx context.Context, c *CallContext) error {
		trace = append(trace, "invoke")
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []string{
		"before:A", "before:B", "before:C",
		"invoke",
		"after:C", "after:B", "after:A",
	}, trace)
}

func TestPipelineReturnsInvokeErrorAfterResponseHooks(t *testing.T) {
	var trace []string
	pipeline := NewPipeline(nil)
	pipeline.Use(&recordingMiddleware{name: "obs", trace: &trace})

	invokeErr := errors.New("backend unavailable")
	call := &CallContext{}
	err := pipeline.Execute(context.Background(), call, func(ctx context.Context, c *CallContext) error {
		return invokeErr
	})

	assert.ErrorIs(t, err, invokeErr)
	// Response hooks still ran despite the invocation failure
	assert.Contains(t, trace, "after:obs")
}

func TestPipelineRecoversMiddlewarePanic(t *testing.T) {
	pipeline := NewPipeline(nil)
	pipeline.Use(&panickingMiddleware{})

	call := &CallContext{}
	err := pipeline.Execute(context.Background(), call, func(ctx context.Context, c *CallContext) error {
		return nil
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "panicking")
}

func TestPipelineResponseHooksContinueAfterPanic(t *testing.T) {
	var trace []string
	pipeline := NewPipeline(nil)
	pipeline.Use(&recordingMiddleware{name: "obs", trace: &trace})
	pipeline.Use(&panickingMiddleware{})

	call := &CallContext{}
	err := pipeline.Execute(context.Background(), call, func(ctx context.Context, c *CallContext) error {
		return nil
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "panicking")
	// The earlier middleware still gets its response hook
	assert.Contains(t, trace, "after:obs")
}

func TestPipelineJoinsInvokeAndHookErrors(t *testing.T) {
	pipeline := NewPipeline(nil)
	pipeline.Use(&panickingMiddleware{})

	invokeErr := errors.New("backend unavailable")
	call := &CallContext{}
	err := pipeline.Execute(context.Background(), call, func(ctx context.Context, c *CallContext) error {
		return invokeErr
	})

	assert.ErrorIs(t, err, invokeErr)
	assert.Contains(t, err.Error(), "panicking")
}

func TestPipelineRequestFailureUnwindsEnteredMiddlewares(t *testing.T) {
	var trace []string
	pipeline := NewPipeline(nil)
	pipeline.Use(&recordingMiddleware{name: "obs", trace: &trace})
	pipeline.Use(&rejectingMiddleware{trace: &trace})
	pipeline.Use(&recordingMiddleware{name: "late", trace: &trace})

	invoked := false
	call := &CallContext{}
	err := pipeline.Execute(context.Background(), call, func(ctx context.Context, c *CallContext) error {
		invoked = true
		return nil
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "rejecting")
	assert.False(t, invoked)
	// The middleware entered before the rejection still closes out
	assert.Contains(t, trace, "after:obs")
	// Neither the rejecting middleware nor later ones see a response
	assert.NotContains(t, trace, "after:rejecting")
	assert.NotContains(t, trace, "before:late")
	assert.NotContains(t, trace, "after:late")
}

func TestGuardrailsMiddlewareBlocksToxicContent(t *testing.T) {
	m := NewGuardrailsMiddleware(guardrails.NewValidator(), nil)

	call := &CallContext{RawContent: "I will kill everyone."}
	require.NoError(t, m.ProcessResponse(context.Background(), call))

	assert.Equal(t, guardrails.StatusBlocked, call.GuardrailStatus)
	assert.Equal(t, RefusalMessage, call.FinalContent)
}

func TestGuardrailsMiddlewareRedactsPII(t *testing.T) {
	m := NewGuardrailsMiddleware(guardrails.NewValidator(), nil)

	call := &CallContext{RawContent: "Reach me at alice@example.com today."}
	require.NoError(t, m.ProcessResponse(context.Background(), call))

	assert.Equal(t, guardrails.StatusModified, call.GuardrailStatus)
	assert.Equal(t, "Reach me at [EMAIL_REDACTED] today.", call.FinalContent)
}

func TestGuardrailsMiddlewarePassesCleanContent(t *testing.T) {
	m := NewGuardrailsMiddleware(guardrails.NewValidator(), nil)

	call := &CallContext{RawContent: "The capital of France is Paris."}
	require.NoError(t, m.ProcessResponse(context.Background(), call))

	assert.Equal(t, guardrails.StatusApproved, call.GuardrailStatus)
	assert.Equal(t, "The capital of France is Paris.", call.FinalContent)
}

func TestGuardrailsMiddlewareSkipsFailedInvocation(t *testing.T) {
	m := NewGuardrailsMiddleware(guardrails.NewValidator(), nil)

	call := &CallContext{InvokeErr: errors.New("timeout")}
	require.NoError(t, m.ProcessResponse(context.Background(), call))

	assert.Empty(t, call.FinalContent)
	assert.Nil(t, call.Verdict)
}

func TestUncertaintyMiddlewareEnablesLogProbs(t *testing.T) {
	m := NewUncertaintyMiddleware(uncertainty.NewEstimator(), nil)

	call := &CallContext{CheckUncertainty: true}
	require.NoError(t, m.ProcessRequest(context.Background(), call))
	assert.True(t, call.ModelParams.LogProbs)

	off := &CallContext{CheckUncertainty: false}
	require.NoError(t, m.ProcessRequest(context.Background(), off))
	assert.False(t, off.ModelParams.LogProbs)
}

func TestUncertaintyMiddlewareComputesMetrics(t *testing.T) {
	m := NewUncertaintyMiddleware(uncertainty.NewEstimator(), nil)

	call := &CallContext{
		CheckUncertainty: true,
		TokenLogProbs: []interfaces.TokenLogProb{
			{Token: "hi", LogProb: -0.01},
			{Token: "there", LogProb: -0.02},
		},
	}
	require.NoError(t, m.ProcessResponse(context.Background(), call))

	require.NotNil(t, call.Uncertainty)
	assert.Greater(t, call.Uncertainty.ConfidenceScore, 0.9)
	assert.False(t, call.Uncertainty.IsUncertain)
}

func TestUncertaintyMiddlewarePerCallThreshold(t *testing.T) {
	m := NewUncertaintyMiddleware(uncertainty.NewEstimator(), nil)

	call := &CallContext{
		CheckUncertainty:     true,
		UncertaintyThreshold: 0.999,
		TokenLogProbs: []interfaces.TokenLogProb{
			{Token: "hi", LogProb: -0.01},
		},
	}
	require.NoError(t, m.ProcessResponse(context.Background(), call))

	require.NotNil(t, call.Uncertainty)
	assert.True(t, call.Uncertainty.IsUncertain)
}

func TestObservabilityMiddlewareRecordsUsage(t *testing.T) {
	m := NewObservabilityMiddleware(nil, nil, nil, nil)

	call := &CallContext{
		Deployment:   "gpt-4o",
		RawContent:   "answer",
		PromptTokens: 100,
		OutputTokens: 50,
	}
	require.NoError(t, m.ProcessRequest(context.Background(), call))
	require.NoError(t, m.ProcessResponse(context.Background(), call))

	require.NotNil(t, call.Usage)
	assert.Equal(t, 100, call.Usage.InputTokens)
	assert.Equal(t, 50, call.Usage.OutputTokens)
	assert.Equal(t, 150, call.Usage.TotalTokens)
	assert.Greater(t, call.Usage.CostUSD, 0.0)
	assert.Greater(t, call.Usage.CarbonFootprintKG, 0.0)
}

func TestObservabilityMiddlewareCountsSanitizedOutput(t *testing.T) {
	m := NewObservabilityMiddleware(nil, nil, wordCounter{}, nil)

	call := &CallContext{
		Deployment:   "gpt-4o",
		Prompt:       "question",
		RawContent:   "one two three four five",
		FinalContent: "one two",
		PromptTokens: 10,
	}
	require.NoError(t, m.ProcessRequest(context.Background(), call))
	require.NoError(t, m.ProcessResponse(context.Background(), call))

	require.NotNil(t, call.Usage)
	// The fallback counts what the caller actually receives
	assert.Equal(t, 2, call.Usage.OutputTokens)
}

func TestObservabilityMiddlewareTracesSanitizedOutput(t *testing.T) {
	generator := &capturingGenerationTracer{}
	pipeline := NewPipeline(nil)
	pipeline.Use(NewObservabilityMiddleware(nil, generator, nil, nil))
	pipeline.Use(NewGuardrailsMiddleware(guardrails.NewValidator(), nil))

	call := &CallContext{Deployment: "gpt-4o", Prompt: "how do I reach alice?"}
	err := pipeline.Execute(context.Background(), call, func(ctx context.Context, c *CallContext) error {
		c.RawContent = "Reach her at alice@example.com today."
		c.PromptTokens = 10
		c.OutputTokens = 8
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, "Reach her at [EMAIL_REDACTED] today.", call.FinalContent)
	// Instrumentation only ever sees the redacted content
	assert.Equal(t, call.FinalContent, generator.response)
	assert.NotContains(t, generator.response, "alice@example.com")
}
