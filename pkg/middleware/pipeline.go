package middleware

import (
	"context"
	"errors"
	"fmt"

	"github.com/guardedai/mediator/pkg/logging"
)

// InvokeFunc performs the actual model call once all request hooks have run
type InvokeFunc func(ctx context.Context, call *CallContext) error

// Pipeline runs registered middleware around a model invocation. Request
// hooks run in registration order; response hooks run in reverse order, so
// the middleware registered first sees the final response last and can wrap
// everything the later ones produced.
type Pipeline struct {
	middlewares []Middleware
	logger      logging.Logger
}

// NewPipeline creates an empty pipeline
func NewPipeline(logger logging.Logger) *Pipeline {
	if logger == nil {
		logger = logging.New()
	}
	return &Pipeline{logger: logger}
}

// Use appends a middleware to the pipeline
func (p *Pipeline) Use(m Middleware) {
	p.middlewares = append(p.middlewares, m)
}

// Execute runs the request hooks, the invocation, then the response hooks.
// A request hook error aborts the call, but the response hooks of middlewares
// already entered still run so they can close whatever they opened. The
// invocation error is stored on the CallContext and returned only after every
// response hook has run; a failing response hook never stops the remaining
// hooks, since each of them may hold a span or timer that must be closed.
func (p *Pipeline) Execute(ctx context.Context, call *CallContext, invoke InvokeFunc) error {
	for i, m := range p.middlewares {
		if err := p.runRequestHook(ctx, m, call); err != nil {
			p.runResponseHooks(ctx, call, i-1)
			return fmt.Errorf("middleware %s rejected request: %w", m.Name(), err)
		}
	}

	call.InvokeErr = invoke(ctx, call)

	if err := p.runResponseHooks(ctx, call, len(p.middlewares)-1); err != nil {
		if call.InvokeErr != nil {
			return errors.Join(call.InvokeErr, err)
		}
		return err
	}

	return call.InvokeErr
}

// runResponseHooks runs the response hooks from index through 0, collecting
// hook errors instead of stopping on the first one.
func (p *Pipeline) runResponseHooks(ctx context.Context, call *CallContext, from int) error {
	var errs []error
	for i := from; i >= 0; i-- {
		m := p.middlewares[i]
		if err := p.runResponseHook(ctx, m, call); err != nil {
			p.logger.Error(ctx, "Middleware response hook failed", map[string]interface{}{
				"middleware": m.Name(),
				"error":      err.Error(),
			})
			errs = append(errs, fmt.Errorf("middleware %s failed: %w", m.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// runRequestHook invokes ProcessRequest, converting a panic into an error so
// one faulty hook cannot take down the caller.
func (p *Pipeline) runRequestHook(ctx context.Context, m Middleware, call *CallContext) (err error) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error(ctx, "Middleware panicked in ProcessRequest", map[string]interface{}{
				"middleware": m.Name(),
				"panic":      fmt.Sprintf("%v", r),
			})
			err = fmt.Errorf("panic in %s: %v", m.Name(), r)
		}
	}()
	return m.ProcessRequest(ctx, call)
}

func (p *Pipeline) runResponseHook(ctx context.Context, m Middleware, call *CallContext) (err error) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error(ctx, "Middleware panicked in ProcessResponse", map[string]interface{}{
				"middleware": m.Name(),
				"panic":      fmt.Sprintf("%v", r),
			})
			err = fmt.Errorf("panic in %s: %v", m.Name(), r)
		}
	}()
	return m.ProcessResponse(ctx, call)
}
