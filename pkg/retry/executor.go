package retry

import (
	"context"

	"github.com/cenkalti/backoff/v4"
)

// Executor runs operations under a retry policy with exponential backoff
type Executor struct {
	policy *Policy
}

// NewExecutor creates a new executor for the given policy
func NewExecutor(policy *Policy) *Executor {
	if policy == nil {
		policy = NewPolicy()
	}
	return &Executor{policy: policy}
}

// Execute runs the operation, retrying transient failures per the policy.
// Context cancellation stops the retry loop and is returned to the caller.
func (e *Executor) Execute(ctx context.Context, operation func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = e.policy.InitialInterval
	b.Multiplier = e.policy.BackoffCoefficient
	b.MaxInterval = e.policy.MaximumInterval

	var policy backoff.BackOff = b
	if e.policy.MaximumAttempts > 0 {
		policy = backoff.WithMaxRetries(b, uint64(e.policy.MaximumAttempts-1))
	}

	return backoff.Retry(operation, backoff.WithContext(policy, ctx))
}
