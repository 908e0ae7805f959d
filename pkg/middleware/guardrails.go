package middleware

import (
	"context"
	"fmt"

	"github.com/guardedai/mediator/pkg/guardrails"
	"github.com/guardedai/mediator/pkg/logging"
)

// RefusalMessage replaces model output that the guardrails block
const RefusalMessage = "I cannot provide a response to this request due to safety guidelines."

// GuardrailsMiddleware validates every model response before it reaches the
// caller. Guardrails fail closed: if validation itself breaks, the response
// is replaced with the refusal message rather than passed through unchecked.
type GuardrailsMiddleware struct {
	validator *guardrails.Validator
	logger    logging.Logger
}

// NewGuardrailsMiddleware creates the guardrails middleware
func NewGuardrailsMiddleware(validator *guardrails.Validator, logger logging.Logger) *GuardrailsMiddleware {
	if logger == nil {
		logger = logging.New()
	}
	return &GuardrailsMiddleware{validator: validator, logger: logger}
}

// Name returns the middleware name
func (m *GuardrailsMiddleware) Name() string {
	return "guardrails"
}

// ProcessRequest is a no-op; validation runs on the response
func (m *GuardrailsMiddleware) ProcessRequest(ctx context.Context, call *CallContext) error {
	return nil
}

// ProcessResponse validates the raw model output and sets FinalContent to the
// approved, redacted or refused text.
func (m *GuardrailsMiddleware) ProcessResponse(ctx context.Context, call *CallContext) error {
	if call.InvokeErr != nil {
		return nil
	}

	verdict, err := m.validate(call.RawContent)
	if err != nil {
		m.logger.Error(ctx, "Guardrail validation failed, blocking response", map[string]interface{}{
			"error": err.Error(),
		})
		call.GuardrailStatus = guardrails.StatusBlocked
		call.FinalContent = RefusalMessage
		return nil
	}

	call.Verdict = verdict
	call.GuardrailStatus = verdict.OverallStatus

	if verdict.ShouldBlock {
		m.logger.Warn(ctx, "Response blocked by guardrails", map[string]interface{}{
			"status": string(verdict.OverallStatus),
		})
		call.FinalContent = RefusalMessage
		return nil
	}

	call.FinalContent = verdict.FinalContent
	return nil
}

// validate wraps ValidateAll so a panic inside pattern evaluation surfaces as
// an error and triggers the fail-closed path.
func (m *GuardrailsMiddleware) validate(content string) (verdict *guardrails.Verdict, err error) {
	defer func() {
		if r := recover(); r != nil {
			verdict = nil
			err = fmt.Errorf("panic during validation: %v", r)
		}
	}()
	return m.validator.ValidateAll(content), nil
}
