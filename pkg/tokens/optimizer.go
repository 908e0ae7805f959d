package tokens

import (
	"context"
	"fmt"
	"strings"

	"github.com/guardedai/mediator/pkg/interfaces"
	"github.com/guardedai/mediator/pkg/logging"
)

// SummarizeFunc produces a prose summary for the given prompt, typically via
// a cheap model call.
type SummarizeFunc func(ctx context.Context, prompt string) (string, error)

// Optimizer keeps a conversation within a model's context window by
// truncating or summarizing older turns before invocation.
type Optimizer struct {
	counter      interfaces.TokenCounter
	logger       logging.Logger
	safetyBuffer int
	keepRecent   int
}

// OptimizerOption represents an option for configuring the optimizer
type OptimizerOption func(*Optimizer)

// WithSafetyBuffer sets the token headroom reserved below the context limit
func WithSafetyBuffer(buffer int) OptimizerOption {
	return func(o *Optimizer) {
		o.safetyBuffer = buffer
	}
}

// WithKeepRecent sets how many recent messages summarization keeps verbatim
func WithKeepRecent(count int) OptimizerOption {
	return func(o *Optimizer) {
		o.keepRecent = count
	}
}

// WithLogger sets the logger for the optimizer
func WithLogger(logger logging.Logger) OptimizerOption {
	return func(o *Optimizer) {
		o.logger = logger
	}
}

// NewOptimizer creates a new optimizer using the given token counter
func NewOptimizer(counter interfaces.TokenCounter, options ...OptimizerOption) *Optimizer {
	optimizer := &Optimizer{
		counter:      counter,
		logger:       logging.New(),
		safetyBuffer: 500,
		keepRecent:   4,
	}

	for _, option := range options {
		option(optimizer)
	}

	return optimizer
}

// countMessages counts the total tokens across the messages
func (o *Optimizer) countMessages(messages []interfaces.Message, model string) int {
	var sb strings.Builder
	for _, msg := range messages {
		sb.WriteString(msg.Content)
		sb.WriteString("\n")
	}

	count, err := o.counter.CountTokens(sb.String(), model)
	if err != nil {
		// Treat an uncountable conversation as oversized rather than
		// letting it through unchecked.
		return int(^uint(0) >> 1)
	}
	return count
}

// ShouldOptimize reports whether the conversation exceeds the context limit.
// Pure token counting; neither strategy runs if the conversation already fits.
func (o *Optimizer) ShouldOptimize(messages []interfaces.Message, model string, maxContextTokens int) bool {
	return o.countMessages(messages, model) > maxContextTokens
}

// splitSystem separates the system message (always kept) from the history
func splitSystem(messages []interfaces.Message) (*interfaces.Message, []interfaces.Message) {
	var system *interfaces.Message
	history := make([]interfaces.Message, 0, len(messages))

	for i := range messages {
		if messages[i].Role == "system" && system == nil {
			system = &messages[i]
			continue
		}
		history = append(history, messages[i])
	}

	return system, history
}

// Truncate drops the oldest non-system messages until the conversation fits
// under maxContextTokens minus the safety buffer. The system message is never
// dropped; if it alone exceeds the budget, only it and the single most recent
// message are kept.
func (o *Optimizer) Truncate(ctx context.Context, messages []interfaces.Message, model string, maxContextTokens int) []interfaces.Message {
	if !o.ShouldOptimize(messages, model, maxContextTokens) {
		return messages
	}

	o.logger.Info(ctx, "Truncating context to fit token limit", map[string]interface{}{
		"messages": len(messages),
		"limit":    maxContextTokens,
	})

	system, history := splitSystem(messages)

	systemTokens := 0
	if system != nil {
		systemTokens = o.countMessages([]interfaces.Message{*system}, model)
	}

	available := maxContextTokens - systemTokens - o.safetyBuffer
	if available <= 0 {
		o.logger.Warn(ctx, "System prompt exceeds the token budget, keeping only the most recent message", nil)
		if system != nil && len(history) > 0 {
			return []interfaces.Message{*system, history[len(history)-1]}
		}
		if len(messages) > 2 {
			return messages[len(messages)-2:]
		}
		return messages
	}

	// Rebuild from the most recent message backwards
	kept := make([]interfaces.Message, 0, len(history))
	used := 0
	for i := len(history) - 1; i >= 0; i-- {
		msgTokens := o.countMessages([]interfaces.Message{history[i]}, model)
		if used+msgTokens > available {
			break
		}
		kept = append([]interfaces.Message{history[i]}, kept...)
		used += msgTokens
	}

	result := kept
	if system != nil {
		result = append([]interfaces.Message{*system}, kept...)
	}

	o.logger.Info(ctx, "Context truncated", map[string]interface{}{
		"kept":  len(result),
		"total": len(messages),
	})
	return result
}

// Summarize condenses older history into a prose paragraph spliced into the
// system message, keeping the most recent messages verbatim. Falls back to
// truncation when there is too little history or the summary call fails.
func (o *Optimizer) Summarize(ctx context.Context, messages []interfaces.Message, model string, maxContextTokens int, summarize SummarizeFunc) []interfaces.Message {
	if !o.ShouldOptimize(messages, model, maxContextTokens) {
		return messages
	}

	system, history := splitSystem(messages)

	if len(history) <= o.keepRecent || summarize == nil {
		return o.Truncate(ctx, messages, model, maxContextTokens)
	}

	toSummarize := history[:len(history)-o.keepRecent]
	toKeep := history[len(history)-o.keepRecent:]

	var conversation strings.Builder
	for _, msg := range toSummarize {
		role := "User"
		if msg.Role == "assistant" {
			role = "Assistant"
		}
		conversation.WriteString(fmt.Sprintf("%s: %s\n", role, msg.Content))
	}

	prompt := "Summarize the following conversation history into a concise paragraph. " +
		"Retain key facts, user preferences, and important decisions. " +
		"Ignore trivial pleasantries.\n\nHistory:\n" + conversation.String()

	summary, err := summarize(ctx, prompt)
	if err != nil {
		o.logger.Error(ctx, "Summarization failed, falling back to truncation", map[string]interface{}{
			"error": err.Error(),
		})
		return o.Truncate(ctx, messages, model, maxContextTokens)
	}

	systemContent := "You are a helpful AI assistant."
	if system != nil {
		systemContent = system.Content
	}

	newSystem := interfaces.Message{
		Role:    "system",
		Content: fmt.Sprintf("%s\n\n[Previous Conversation Summary]: %s", systemContent, summary),
	}

	return append([]interfaces.Message{newSystem}, toKeep...)
}
