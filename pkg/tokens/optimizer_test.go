package tokens

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/guardedai/mediator/pkg/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func message(role, content string) interfaces.Message {
	return interfaces.Message{Role: role, Content: content}
}

// words builds a message of n whitespace-separated tokens
func words(role string, n int) interfaces.Message {
	return message(role, strings.TrimSpace(strings.Repeat("word ", n)))
}

func TestShouldOptimize(t *testing.T) {
	optimizer := NewOptimizer(&SimpleCounter{})

	small := []interfaces.Message{words("system", 5), words("user", 5)}
	large := []interfaces.Message{words("system", 5), words("user", 200)}

	assert.False(t, optimizer.ShouldOptimize(small, "gpt-4o-mini", 100))
	assert.True(t, optimizer.ShouldOptimize(large, "gpt-4o-mini", 100))
}

func TestTruncateReturnsInputWhenItFits(t *testing.T) {
	optimizer := NewOptimizer(&SimpleCounter{})

	messages := []interfaces.Message{words("system", 5), words("user", 5)}
	result := optimizer.Truncate(context.Background(), messages, "gpt-4o-mini", 100)

	assert.Equal(t, messages, result)
}

func TestTruncateDropsOldestKeepsSystem(t *testing.T) {
	optimizer := NewOptimizer(&SimpleCounter{}, WithSafetyBuffer(10))

	messages := []interfaces.Message{
		words("system", 10),
		message("user", "oldest "+strings.Repeat("w ", 40)),
		words("assistant", 40),
		words("user", 40),
	}

	result := optimizer.Truncate(context.Background(), messages, "gpt-4o-mini", 110)

	require.NotEmpty(t, result)
	assert.Equal(t, "system", result[0].Role)
	// The oldest user message no longer fits
	for _, msg := range result[1:] {
		assert.False(t, strings.HasPrefix(msg.Content, "oldest"))
	}
	assert.False(t, optimizer.ShouldOptimize(result, "gpt-4o-mini", 110))
}

func TestTruncateOversizedSystemKeepsLastMessage(t *testing.T) {
	optimizer := NewOptimizer(&SimpleCounter{}, WithSafetyBuffer(10))

	messages := []interfaces.Message{
		words("system", 200),
		words("user", 10),
		message("user", "most recent"),
	}

	result := optimizer.Truncate(context.Background(), messages, "gpt-4o-mini", 100)

	require.Len(t, result, 2)
	assert.Equal(t, "system", result[0].Role)
	assert.Equal(t, "most recent", result[1].Content)
}

func TestSummarizeSplicesSummaryIntoSystem(t *testing.T) {
	optimizer := NewOptimizer(&SimpleCounter{}, WithKeepRecent(2), WithSafetyBuffer(0))

	messages := []interfaces.Message{
		message("system", "You are concise."),
		words("user", 50),
		words("assistant", 50),
		words("user", 50),
		message("assistant", "kept one"),
		message("user", "kept two"),
	}

	var gotPrompt string
	summarize := func(ctx context.Context, prompt string) (string, error) {
		gotPrompt = prompt
		return "they discussed many words", nil
	}

	result := optimizer.Summarize(context.Background(), messages, "gpt-4o-mini", 60, summarize)

	require.Len(t, result, 3)
	assert.Equal(t, "system", result[0].Role)
	assert.Contains(t, result[0].Content, "You are concise.")
	assert.Contains(t, result[0].Content, "[Previous Conversation Summary]: they discussed many words")
	assert.Equal(t, "kept one", result[1].Content)
	assert.Equal(t, "kept two", result[2].Content)

	assert.Contains(t, gotPrompt, "Summarize the following conversation history")
	assert.Contains(t, gotPrompt, "Assistant:")
}

func TestSummarizeFallsBackToTruncationOnError(t *testing.T) {
	optimizer := NewOptimizer(&SimpleCounter{}, WithKeepRecent(2), WithSafetyBuffer(0))

	messages := []interfaces.Message{
		message("system", "sys"),
		words("user", 50),
		words("assistant", 50),
		words("user", 50),
		message("user", "recent"),
	}

	summarize := func(ctx context.Context, prompt string) (string, error) {
		return "", errors.New("cheap model unavailable")
	}

	result := optimizer.Summarize(context.Background(), messages, "gpt-4o-mini", 60, summarize)

	require.NotEmpty(t, result)
	assert.Equal(t, "system", result[0].Role)
	assert.False(t, optimizer.ShouldOptimize(result, "gpt-4o-mini", 60))
}

func TestSummarizeTooLittleHistoryTruncates(t *testing.T) {
	optimizer := NewOptimizer(&SimpleCounter{}, WithKeepRecent(4), WithSafetyBuffer(0))

	messages := []interfaces.Message{
		message("system", "sys"),
		words("user", 100),
	}

	called := false
	summarize := func(ctx context.Context, prompt string) (string, error) {
		called = true
		return "", nil
	}

	result := optimizer.Summarize(context.Background(), messages, "gpt-4o-mini", 50, summarize)

	assert.False(t, called, "summarizer must not run for short histories")
	require.NotEmpty(t, result)
}

func TestEstimateCostKnownModel(t *testing.T) {
	cost := EstimateCost(1000, 1000, "gpt-3.5-turbo")
	assert.InDelta(t, 0.002, cost, 1e-9)
}

func TestEstimateCostFamilyFallback(t *testing.T) {
	exact := EstimateCost(1000, 1000, "gpt-4o")
	variant := EstimateCost(1000, 1000, "gpt-4o-2024-custom")
	assert.Equal(t, exact, variant)
}

func TestEstimateCarbonFootprint(t *testing.T) {
	footprint := EstimateCarbonFootprint(2000, "gpt-4")
	assert.InDelta(t, 2.0*0.0003*0.475, footprint, 1e-9)

	fallback := EstimateCarbonFootprint(1000, fmt.Sprintf("unknown-%d", 1))
	assert.InDelta(t, 0.00005*0.475, fallback, 1e-9)
}

func TestSimpleCounter(t *testing.T) {
	counter := &SimpleCounter{}
	n, err := counter.CountTokens("one two three", "any")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}
