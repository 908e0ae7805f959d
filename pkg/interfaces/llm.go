package interfaces

import (
	"context"
	"errors"
)

// ErrInvocationFailed is returned when the underlying model provider fails.
// Callers can use errors.Is to distinguish provider failures from policy
// outcomes, which are never reported as errors.
var ErrInvocationFailed = errors.New("model invocation failed")

// Message represents a message in a conversation
type Message struct {
	// Role is the role of the message sender (e.g., "user", "assistant", "system")
	Role string

	// Content is the content of the message
	Content string
}

// TokenLogProb holds the log-probability the model assigned to the token it
// actually emitted. Only the chosen token is available; the full output
// distribution is not.
type TokenLogProb struct {
	Token   string
	LogProb float64
}

// InvokeParams contains provider parameters for a single model invocation
type InvokeParams struct {
	// Temperature controls randomness (0.0 to 1.0)
	Temperature float64

	// MaxTokens limits the completion length; zero means provider default
	MaxTokens int

	// LogProbs requests per-token log-probabilities in the response
	LogProbs bool

	// JSONMode requests a JSON object completion
	JSONMode bool
}

// InvokeResponse is the raw result of a model invocation before any policy
// enforcement has been applied.
type InvokeResponse struct {
	Content       string
	TokenLogProbs []TokenLogProb
	PromptTokens  int
	OutputTokens  int
}

// ModelInvoker represents a large language model provider
type ModelInvoker interface {
	// Invoke sends a system/user prompt pair to the model and returns the raw
	// completion. Provider failures wrap ErrInvocationFailed.
	Invoke(ctx context.Context, systemPrompt, userPrompt string, params InvokeParams) (*InvokeResponse, error)

	// Name returns the name of the model provider
	Name() string
}
