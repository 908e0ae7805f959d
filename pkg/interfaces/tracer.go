package interfaces

import (
	"context"
	"time"
)

// GenerationTracer records completed model generations to an external
// observability backend. Recording is best-effort: implementations must not
// let a tracing failure affect the request path.
type GenerationTracer interface {
	// TraceGeneration records one model generation
	TraceGeneration(ctx context.Context, model string, prompt string, response string, startTime time.Time, endTime time.Time, metadata map[string]interface{}) (string, error)

	// Flush flushes any buffered trace data
	Flush() error
}
