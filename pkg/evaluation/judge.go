// Package evaluation scores generated responses for faithfulness and answer
// relevancy using a judge model, and decides whether a response should be
// retried.
package evaluation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/guardedai/mediator/pkg/interfaces"
	"github.com/guardedai/mediator/pkg/logging"
	"github.com/sashabaranov/go-openai"
)

const judgeSystemPrompt = "You are a strict evaluation judge. " +
	"Score the response on two axes, each in [0.0, 1.0]. " +
	"Faithfulness: is every claim in the response supported by the provided context (or, with no context, free of fabrication)? " +
	"Answer relevancy: does the response directly address the question? " +
	"Respond with JSON only, in the form {\"faithfulness\": <float>, \"answer_relevancy\": <float>}."

// OpenAIJudge evaluates responses with a chat model in JSON mode
type OpenAIJudge struct {
	client *openai.Client
	model  string
	logger logging.Logger
}

// JudgeOption represents an option for configuring the judge
type JudgeOption func(*OpenAIJudge)

// WithJudgeModel sets the model used for evaluation
func WithJudgeModel(model string) JudgeOption {
	return func(j *OpenAIJudge) {
		j.model = model
	}
}

// WithJudgeLogger sets the logger for the judge
func WithJudgeLogger(logger logging.Logger) JudgeOption {
	return func(j *OpenAIJudge) {
		j.logger = logger
	}
}

// NewOpenAIJudge creates a judge backed by the given client
func NewOpenAIJudge(client *openai.Client, options ...JudgeOption) *OpenAIJudge {
	judge := &OpenAIJudge{
		client: client,
		model:  "gpt-4o-mini",
		logger: logging.New(),
	}

	for _, option := range options {
		option(judge)
	}

	return judge
}

// Evaluate scores the response against the query and optional contexts
func (j *OpenAIJudge) Evaluate(ctx context.Context, query, response string, contexts []string) (*interfaces.JudgeScores, error) {
	var sb strings.Builder
	sb.WriteString("Question: ")
	sb.WriteString(query)
	sb.WriteString("\n\nResponse: ")
	sb.WriteString(response)
	if len(contexts) > 0 {
		sb.WriteString("\n\nContext:\n")
		for _, c := range contexts {
			sb.WriteString("- ")
			sb.WriteString(c)
			sb.WriteString("\n")
		}
	}

	req := openai.ChatCompletionRequest{
		Model: j.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: judgeSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: sb.String()},
		},
		Temperature: 0,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	resp, err := j.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("judge call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("judge returned no completions")
	}

	var scores interfaces.JudgeScores
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &scores); err != nil {
		return nil, fmt.Errorf("failed to parse judge scores: %w", err)
	}

	j.logger.Debug(ctx, "Evaluated response", map[string]interface{}{
		"faithfulness":     scores.Faithfulness,
		"answer_relevancy": scores.AnswerRelevancy,
	})

	return &scores, nil
}
