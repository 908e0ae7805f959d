package interfaces

import (
	"context"
	"errors"
)

// ErrCacheMiss is returned when no entry exists for the requested key
var ErrCacheMiss = errors.New("cache miss")

// ResponseCache stores raw model responses keyed by the exact invocation
// (deployment, prompts and parameters). Only pre-guardrail output is cached:
// every hit still passes through the full guardrails evaluation, so policy
// changes take effect without invalidating cached entries.
type ResponseCache interface {
	// Get returns the cached raw response for the key, or ErrCacheMiss
	Get(ctx context.Context, key string) (*InvokeResponse, error)

	// Set stores the raw response under the key
	Set(ctx context.Context, key string, response *InvokeResponse) error
}
