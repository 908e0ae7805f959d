// Package openai implements the model invoker against OpenAI-compatible chat
// completion endpoints.
package openai

import (
	"context"
	"fmt"

	"github.com/guardedai/mediator/pkg/interfaces"
	"github.com/guardedai/mediator/pkg/logging"
	"github.com/guardedai/mediator/pkg/retry"
	"github.com/sashabaranov/go-openai"
)

// Client implements interfaces.ModelInvoker for OpenAI-compatible backends
type Client struct {
	Client        *openai.Client
	Model         string
	logger        logging.Logger
	retryExecutor *retry.Executor
}

// Option represents an option for configuring the client
type Option func(*Client)

// WithModel sets the model deployment name
func WithModel(model string) Option {
	return func(c *Client) {
		c.Model = model
	}
}

// WithLogger sets the logger for the client
func WithLogger(logger logging.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRetry configures retry policy for the client
func WithRetry(opts ...retry.Option) Option {
	return func(c *Client) {
		c.retryExecutor = retry.NewExecutor(retry.NewPolicy(opts...))
	}
}

// NewClient creates a new client
func NewClient(apiKey string, options ...Option) *Client {
	client := &Client{
		Client: openai.NewClient(apiKey),
		Model:  "gpt-4o-mini",
		logger: logging.New(),
	}

	for _, option := range options {
		option(client)
	}

	return client
}

// NewClientWithEndpoint creates a client against a custom base URL
func NewClientWithEndpoint(apiKey, baseURL string, options ...Option) *Client {
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = baseURL

	client := &Client{
		Client: openai.NewClientWithConfig(cfg),
		Model:  "gpt-4o-mini",
		logger: logging.New(),
	}

	for _, option := range options {
		option(client)
	}

	return client
}

// Invoke sends one chat completion request and returns the raw response with
// usage and per-token log-probabilities when requested
func (c *Client) Invoke(ctx context.Context, systemPrompt, userPrompt string, params interfaces.InvokeParams) (*interfaces.InvokeResponse, error) {
	messages := []openai.ChatCompletionMessage{}
	if systemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: systemPrompt,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: userPrompt,
	})

	req := openai.ChatCompletionRequest{
		Model:    c.Model,
		Messages: messages,
	}
	if params.Temperature > 0 {
		req.Temperature = float32(params.Temperature)
	}
	if params.MaxTokens > 0 {
		req.MaxTokens = params.MaxTokens
	}
	if params.LogProbs {
		req.LogProbs = true
	}
	if params.JSONMode {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	var resp openai.ChatCompletionResponse
	var err error

	operation := func() error {
		c.logger.Debug(ctx, "Executing chat completion request", map[string]interface{}{
			"model":     c.Model,
			"messages":  len(req.Messages),
			"logprobs":  req.LogProbs,
			"json_mode": req.ResponseFormat != nil,
		})

		resp, err = c.Client.CreateChatCompletion(ctx, req)
		if err != nil {
			c.logger.Error(ctx, "Error from chat completion API", map[string]interface{}{
				"error": err.Error(),
				"model": c.Model,
			})
			return fmt.Errorf("chat completion failed: %w", err)
		}
		return nil
	}

	if c.retryExecutor != nil {
		err = c.retryExecutor.Execute(ctx, operation)
	} else {
		err = operation()
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrInvocationFailed, err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: no completions returned", interfaces.ErrInvocationFailed)
	}

	choice := resp.Choices[0]
	result := &interfaces.InvokeResponse{
		Content:      choice.Message.Content,
		PromptTokens: resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
	}

	if choice.LogProbs != nil {
		result.TokenLogProbs = make([]interfaces.TokenLogProb, 0, len(choice.LogProbs.Content))
		for _, tokenInfo := range choice.LogProbs.Content {
			result.TokenLogProbs = append(result.TokenLogProbs, interfaces.TokenLogProb{
				Token:   tokenInfo.Token,
				LogProb: tokenInfo.LogProb,
			})
		}
	}

	return result, nil
}

// Name implements interfaces.ModelInvoker.Name
func (c *Client) Name() string {
	return c.Model
}
