package tracing

import (
	"context"
	"fmt"
	"time"

	"github.com/guardedai/mediator/pkg/config"
	"github.com/guardedai/mediator/pkg/logging"
	"github.com/henomis/langfuse-go"
	"github.com/henomis/langfuse-go/model"
)

// LangfuseTracer records model generations to Langfuse
type LangfuseTracer struct {
	client      *langfuse.Langfuse
	enabled     bool
	environment string
}

// NewLangfuseTracer creates a new Langfuse tracer
func NewLangfuseTracer(cfg config.LangfuseConfig) *LangfuseTracer {
	if !cfg.Enabled {
		return &LangfuseTracer{enabled: false}
	}

	return &LangfuseTracer{
		client:      langfuse.New(context.Background()),
		enabled:     true,
		environment: cfg.Environment,
	}
}

// TraceGeneration records one model generation
func (t *LangfuseTracer) TraceGeneration(ctx context.Context, modelName string, prompt string, response string, startTime time.Time, endTime time.Time, metadata map[string]interface{}) (string, error) {
	if !t.enabled {
		return "", nil
	}

	if metadata == nil {
		metadata = make(map[string]interface{})
	}
	if requestID, ok := logging.GetRequestID(ctx); ok {
		metadata["request_id"] = requestID
	}
	metadata["environment"] = t.environment

	metadataM := make(model.M)
	for k, v := range metadata {
		metadataM[k] = v
	}

	generation := &model.Generation{
		Name:      fmt.Sprintf("generation-%d", time.Now().UnixNano()),
		StartTime: &startTime,
		EndTime:   &endTime,
		Model:     modelName,
		Input: []model.M{
			{"prompt": prompt},
		},
		Output: model.M{
			"completion": response,
		},
		Metadata: metadataM,
	}

	var id string
	generationID, err := t.client.Generation(generation, &id)
	if err != nil {
		return "", fmt.Errorf("failed to create Langfuse generation: %w", err)
	}

	return generationID.ID, nil
}

// Flush flushes the Langfuse client
func (t *LangfuseTracer) Flush() error {
	if !t.enabled {
		return nil
	}

	t.client.Flush(context.Background())
	return nil
}
