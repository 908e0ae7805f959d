// Package cache stores raw model responses keyed by the full request, so
// repeated prompts skip the backend call. Guardrails always re-run on cache
// hits; only the invocation itself is skipped.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/guardedai/mediator/pkg/interfaces"
)

const keyPrefix = "mediator:response:"

// Key derives a deterministic cache key from everything that affects the raw
// model output. Two requests map to the same key only if the backend would
// see an identical request.
func Key(deployment, systemPrompt, prompt string, params interfaces.InvokeParams) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%s\x00%s\x00%v\x00%d\x00%t\x00%t",
		deployment, systemPrompt, prompt,
		params.Temperature, params.MaxTokens, params.LogProbs, params.JSONMode)
	return keyPrefix + hex.EncodeToString(h.Sum(nil))
}
