package mediator

import (
	"github.com/guardedai/mediator/pkg/config"
	"github.com/guardedai/mediator/pkg/interfaces"
)

// Options holds the per-call settings for a safe response
type Options struct {
	ModelType    config.ModelType
	SystemPrompt string
	Temperature  float64
	MaxTokens    int

	Explain          bool
	CheckUncertainty bool
	Evaluate         bool
	RetryOnFail      bool
	Grounding        bool

	// UncertaintyThreshold overrides the configured confidence threshold for
	// this call when > 0
	UncertaintyThreshold float64

	// Contexts are reference passages the judge scores faithfulness against
	Contexts []string

	// History is prior conversation, optimized to fit the context window
	// before the call
	History []interfaces.Message
}

// Option represents an option for configuring a single call
type Option func(*Options)

// WithModelType selects the deployment class for the call
func WithModelType(modelType config.ModelType) Option {
	return func(o *Options) {
		o.ModelType = modelType
	}
}

// WithSystemPrompt sets the system prompt
func WithSystemPrompt(systemPrompt string) Option {
	return func(o *Options) {
		o.SystemPrompt = systemPrompt
	}
}

// WithTemperature sets the sampling temperature
func WithTemperature(temperature float64) Option {
	return func(o *Options) {
		o.Temperature = temperature
	}
}

// WithMaxTokens limits the completion length
func WithMaxTokens(maxTokens int) Option {
	return func(o *Options) {
		o.MaxTokens = maxTokens
	}
}

// WithExplain asks the model to separate its reasoning from its answer
func WithExplain() Option {
	return func(o *Options) {
		o.Explain = true
	}
}

// WithUncertaintyCheck enables confidence metrics for the call
func WithUncertaintyCheck() Option {
	return func(o *Options) {
		o.CheckUncertainty = true
	}
}

// WithUncertaintyThreshold overrides the confidence threshold for this call
// and implies the uncertainty check
func WithUncertaintyThreshold(threshold float64) Option {
	return func(o *Options) {
		o.CheckUncertainty = true
		o.UncertaintyThreshold = threshold
	}
}

// WithEvaluation scores the response with the judge model
func WithEvaluation() Option {
	return func(o *Options) {
		o.Evaluate = true
	}
}

// WithRetryOnFail regenerates the response when evaluation fails, up to the
// configured retry budget. Implies evaluation.
func WithRetryOnFail() Option {
	return func(o *Options) {
		o.Evaluate = true
		o.RetryOnFail = true
	}
}

// WithGrounding verifies the response's factual claims against web evidence
func WithGrounding() Option {
	return func(o *Options) {
		o.Grounding = true
	}
}

// WithContexts provides reference passages for faithfulness scoring
func WithContexts(contexts ...string) Option {
	return func(o *Options) {
		o.Contexts = contexts
	}
}

// WithHistory provides prior conversation turns
func WithHistory(history []interfaces.Message) Option {
	return func(o *Options) {
		o.History = history
	}
}
