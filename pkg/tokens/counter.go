// Package tokens tracks token usage: counting, cost estimation and keeping a
// growing conversation inside a model's context window.
package tokens

import (
	"fmt"
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// TiktokenCounter counts tokens with the model's BPE encoding. Encoders are
// cached after first use; unknown models fall back to cl100k_base.
type TiktokenCounter struct {
	mu       sync.Mutex
	encoders map[string]*tiktoken.Tiktoken
}

// NewTiktokenCounter creates a new tiktoken-backed counter
func NewTiktokenCounter() *TiktokenCounter {
	return &TiktokenCounter{encoders: make(map[string]*tiktoken.Tiktoken)}
}

// CountTokens counts tokens in text using the encoding for the given model
func (c *TiktokenCounter) CountTokens(text string, model string) (int, error) {
	encoder, err := c.encoder(model)
	if err != nil {
		return 0, fmt.Errorf("failed to load encoding for %q: %w", model, err)
	}
	return len(encoder.Encode(text, nil, nil)), nil
}

func (c *TiktokenCounter) encoder(model string) (*tiktoken.Tiktoken, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if encoder, ok := c.encoders[model]; ok {
		return encoder, nil
	}

	encoder, err := tiktoken.EncodingForModel(model)
	if err != nil {
		encoder, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, err
		}
	}

	c.encoders[model] = encoder
	return encoder, nil
}

// SimpleCounter approximates token counts by whitespace-separated words.
// Useful where the exact encoding is unavailable or irrelevant.
type SimpleCounter struct{}

// CountTokens counts tokens in text (simple approximation)
func (s *SimpleCounter) CountTokens(text string, model string) (int, error) {
	return len(strings.Fields(text)), nil
}
