package cache

import (
	"strings"
	"testing"

	"github.com/guardedai/mediator/pkg/interfaces"
	"github.com/stretchr/testify/assert"
)

func TestKeyIsDeterministic(t *testing.T) {
	params := interfaces.InvokeParams{Temperature: 0.7, MaxTokens: 100}

	a := Key("gpt-4o", "sys", "hello", params)
	b := Key("gpt-4o", "sys", "hello", params)
	assert.Equal(t, a, b)
	assert.True(t, strings.HasPrefix(a, "mediator:response:"))
}

func TestKeyVariesWithEveryInput(t *testing.T) {
	base := Key("gpt-4o", "sys", "hello", interfaces.InvokeParams{Temperature: 0.7})

	assert.NotEqual(t, base, Key("gpt-4o-mini", "sys", "hello", interfaces.InvokeParams{Temperature: 0.7}))
	assert.NotEqual(t, base, Key("gpt-4o", "other", "hello", interfaces.InvokeParams{Temperature: 0.7}))
	assert.NotEqual(t, base, Key("gpt-4o", "sys", "goodbye", interfaces.InvokeParams{Temperature: 0.7}))
	assert.NotEqual(t, base, Key("gpt-4o", "sys", "hello", interfaces.InvokeParams{Temperature: 0.2}))
	assert.NotEqual(t, base, Key("gpt-4o", "sys", "hello", interfaces.InvokeParams{Temperature: 0.7, JSONMode: true}))
}

func TestKeyFieldBoundaries(t *testing.T) {
	// Concatenation must not let adjacent fields bleed into each other
	a := Key("gpt-4o", "ab", "c", interfaces.InvokeParams{})
	b := Key("gpt-4o", "a", "bc", interfaces.InvokeParams{})
	assert.NotEqual(t, a, b)
}
