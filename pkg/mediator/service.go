// Package mediator exposes the safe-response capability: every model call
// passes through the middleware pipeline, and callers receive the enforced
// result together with whatever quality signals they asked for.
package mediator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/guardedai/mediator/pkg/cache"
	"github.com/guardedai/mediator/pkg/config"
	"github.com/guardedai/mediator/pkg/evaluation"
	"github.com/guardedai/mediator/pkg/grounding"
	"github.com/guardedai/mediator/pkg/guardrails"
	"github.com/guardedai/mediator/pkg/interfaces"
	"github.com/guardedai/mediator/pkg/llm/openai"
	"github.com/guardedai/mediator/pkg/logging"
	"github.com/guardedai/mediator/pkg/middleware"
	"github.com/guardedai/mediator/pkg/tokens"
	"github.com/guardedai/mediator/pkg/tracing"
	"github.com/guardedai/mediator/pkg/uncertainty"
)

// ErrResponseBlocked is returned by GetJSONResponse when the guardrails block
// the model output. GetSafeResponse never returns it; there the refusal
// message is substituted instead.
var ErrResponseBlocked = errors.New("response blocked by guardrails")

const explainInstruction = "Structure your entire response as <reasoning>your step-by-step thinking</reasoning><answer>your final answer</answer>."

// Result is the outcome of a safe-response call
type Result struct {
	Content          string                   `json:"content"`
	Reasoning        string                   `json:"reasoning,omitempty"`
	IsFlagged        bool                     `json:"is_flagged,omitempty"`
	Uncertainty      *uncertainty.Metrics     `json:"uncertainty,omitempty"`
	EvaluationScores *interfaces.JudgeScores  `json:"evaluation_scores,omitempty"`
	Usage            *middleware.UsageMetrics `json:"usage,omitempty"`
	Guardrails       *guardrails.Verdict      `json:"guardrails,omitempty"`
	Grounding        *grounding.Report        `json:"grounding,omitempty"`
}

// Service mediates between callers and model backends, enforcing guardrails
// and quality policies on every call
type Service struct {
	cfg        *config.Config
	invokers   map[config.ModelType]interfaces.ModelInvoker
	pipeline   *middleware.Pipeline
	judge      interfaces.Judge
	cache      interfaces.ResponseCache
	optimizer  *tokens.Optimizer
	verifier   *grounding.Verifier
	logger     logging.Logger
	thresholds evaluation.Thresholds
}

// ServiceOption represents an option for configuring the service
type ServiceOption func(*Service)

// WithInvoker registers the invoker for a model type, replacing the default
// OpenAI client built from the configuration
func WithInvoker(modelType config.ModelType, invoker interfaces.ModelInvoker) ServiceOption {
	return func(s *Service) {
		s.invokers[modelType] = invoker
	}
}

// WithJudge sets the evaluation judge
func WithJudge(judge interfaces.Judge) ServiceOption {
	return func(s *Service) {
		s.judge = judge
	}
}

// WithCache sets the raw-response cache
func WithCache(responseCache interfaces.ResponseCache) ServiceOption {
	return func(s *Service) {
		s.cache = responseCache
	}
}

// WithVerifier sets the grounding verifier
func WithVerifier(verifier *grounding.Verifier) ServiceOption {
	return func(s *Service) {
		s.verifier = verifier
	}
}

// WithPipeline replaces the default middleware pipeline
func WithPipeline(pipeline *middleware.Pipeline) ServiceOption {
	return func(s *Service) {
		s.pipeline = pipeline
	}
}

// WithLogger sets the logger for the service
func WithLogger(logger logging.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithOptimizer sets the context optimizer applied to conversation history
func WithOptimizer(optimizer *tokens.Optimizer) ServiceOption {
	return func(s *Service) {
		s.optimizer = optimizer
	}
}

// NewService creates the mediation service. By default every configured
// deployment gets an OpenAI-compatible invoker and the pipeline runs the
// observability, uncertainty and guardrails middlewares in that order.
func NewService(cfg *config.Config, options ...ServiceOption) *Service {
	logger := logging.New()

	service := &Service{
		cfg:      cfg,
		invokers: make(map[config.ModelType]interfaces.ModelInvoker),
		logger:   logger,
		thresholds: evaluation.Thresholds{
			Faithfulness:    cfg.Evaluation.FaithfulnessThreshold,
			AnswerRelevancy: cfg.Evaluation.RelevancyThreshold,
		},
	}

	for modelType, deployment := range cfg.Deployments {
		service.invokers[modelType] = newDefaultInvoker(cfg, deployment)
	}

	for _, option := range options {
		option(service)
	}

	if service.optimizer == nil {
		// Word counting keeps the default free of encoding downloads; swap in
		// a TiktokenCounter via WithOptimizer for exact budgets.
		service.optimizer = tokens.NewOptimizer(&tokens.SimpleCounter{},
			tokens.WithSafetyBuffer(cfg.Tokens.SafetyBuffer),
			tokens.WithKeepRecent(cfg.Tokens.KeepRecent),
			tokens.WithLogger(service.logger),
		)
	}

	if service.pipeline == nil {
		tracer, err := tracing.NewOTelTracer(cfg.Tracing.OTel)
		if err != nil {
			service.logger.Warn(context.Background(), "Tracing disabled, exporter setup failed", map[string]interface{}{
				"error": err.Error(),
			})
			tracer = nil
		}
		var generator interfaces.GenerationTracer
		if cfg.Tracing.Langfuse.Enabled {
			generator = tracing.NewLangfuseTracer(cfg.Tracing.Langfuse)
		}

		counter := tokens.NewTiktokenCounter()
		pipeline := middleware.NewPipeline(service.logger)
		pipeline.Use(middleware.NewObservabilityMiddleware(tracer, generator, counter, service.logger))
		pipeline.Use(middleware.NewUncertaintyMiddleware(
			uncertainty.NewEstimator(uncertainty.WithThreshold(cfg.Uncertainty.ConfidenceThreshold)),
			service.logger,
		))
		pipeline.Use(middleware.NewGuardrailsMiddleware(guardrails.NewValidator(), service.logger))
		service.pipeline = pipeline
	}

	return service
}

// Invoker returns the registered invoker for the model type, or nil. Useful
// for building components that share the service's backends, such as a
// grounding verifier.
func (s *Service) Invoker(modelType config.ModelType) interfaces.ModelInvoker {
	return s.invokers[modelType]
}

func newDefaultInvoker(cfg *config.Config, deployment string) interfaces.ModelInvoker {
	opts := []openai.Option{openai.WithModel(deployment), openai.WithRetry()}
	if cfg.API.Endpoint != "" {
		return openai.NewClientWithEndpoint(cfg.API.Key, cfg.API.Endpoint, opts...)
	}
	return openai.NewClient(cfg.API.Key, opts...)
}

// GetSafeResponse runs one mediated model call. The returned content has
// always passed the guardrails: blocked output is replaced by the refusal
// message, redacted output carries its redactions. When evaluation with retry
// is enabled and every attempt fails, the last attempt is returned with
// IsFlagged set.
func (s *Service) GetSafeResponse(ctx context.Context, prompt string, options ...Option) (*Result, error) {
	opts := s.defaultOptions()
	for _, option := range options {
		option(&opts)
	}

	if _, ok := logging.GetRequestID(ctx); !ok {
		ctx = logging.WithNewRequestID(ctx)
	}

	deployment, err := s.cfg.DeploymentFor(opts.ModelType)
	if err != nil {
		return nil, err
	}
	invoker, ok := s.invokers[opts.ModelType]
	if !ok {
		return nil, fmt.Errorf("%w: no invoker for %s", config.ErrDeploymentNotConfigured, opts.ModelType)
	}

	systemPrompt, userPrompt := s.composePrompt(ctx, opts, prompt, deployment)

	attempts := 1
	if opts.RetryOnFail {
		attempts += s.cfg.Evaluation.MaxRetries
	}

	var result *Result
	currentPrompt := userPrompt
	for attempt := 0; attempt < attempts; attempt++ {
		call := s.newCall(opts, deployment, systemPrompt, currentPrompt)
		if err := s.pipeline.Execute(ctx, call, s.invokeFn(invoker)); err != nil {
			return nil, err
		}

		result = s.buildResult(call, opts)

		// Blocked output is final; regenerating from a refusal makes no sense
		if call.GuardrailStatus == guardrails.StatusBlocked {
			return result, nil
		}

		if !opts.Evaluate || s.judge == nil {
			s.ground(ctx, opts, result)
			return result, nil
		}

		scores, err := s.judge.Evaluate(ctx, prompt, result.Content, opts.Contexts)
		if err != nil {
			// Judge failures pass the response through rather than discarding
			// a possibly fine answer
			s.logger.Warn(ctx, "Evaluation failed, accepting response unscored", map[string]interface{}{
				"error": err.Error(),
			})
			s.ground(ctx, opts, result)
			return result, nil
		}
		result.EvaluationScores = scores

		if s.thresholds.Passes(scores) {
			s.ground(ctx, opts, result)
			return result, nil
		}

		s.logger.Warn(ctx, "Response failed evaluation", map[string]interface{}{
			"attempt":          attempt + 1,
			"faithfulness":     scores.Faithfulness,
			"answer_relevancy": scores.AnswerRelevancy,
		})

		if attempt == attempts-1 {
			break
		}
		currentPrompt = fmt.Sprintf("%s\n\nPrevious Answer: %s\nCritique: %s\nPlease improve the answer based on the critique.",
			userPrompt, result.Content, evaluation.Critique(scores))
	}

	result.IsFlagged = true
	s.ground(ctx, opts, result)
	return result, nil
}

// GetJSONResponse runs a JSON-mode call and returns the parsed object. Unlike
// GetSafeResponse it fails hard when the guardrails block or modify the
// output, since redacting inside structured data would corrupt it.
func (s *Service) GetJSONResponse(ctx context.Context, prompt string, options ...Option) (json.RawMessage, error) {
	opts := s.defaultOptions()
	for _, option := range options {
		option(&opts)
	}

	if _, ok := logging.GetRequestID(ctx); !ok {
		ctx = logging.WithNewRequestID(ctx)
	}

	deployment, err := s.cfg.DeploymentFor(opts.ModelType)
	if err != nil {
		return nil, err
	}
	invoker, ok := s.invokers[opts.ModelType]
	if !ok {
		return nil, fmt.Errorf("%w: no invoker for %s", config.ErrDeploymentNotConfigured, opts.ModelType)
	}

	call := s.newCall(opts, deployment, opts.SystemPrompt, prompt)
	call.ModelParams.JSONMode = true

	if err := s.pipeline.Execute(ctx, call, s.invokeFn(invoker)); err != nil {
		return nil, err
	}

	if call.GuardrailStatus != guardrails.StatusApproved && call.GuardrailStatus != guardrails.StatusReviewRequired {
		return nil, fmt.Errorf("%w: %s", ErrResponseBlocked, call.GuardrailStatus)
	}

	if !json.Valid([]byte(call.FinalContent)) {
		return nil, fmt.Errorf("model returned invalid JSON")
	}
	return json.RawMessage(call.FinalContent), nil
}

func (s *Service) defaultOptions() Options {
	return Options{
		ModelType:   config.ModelBasic,
		Temperature: 0.7,
	}
}

func (s *Service) newCall(opts Options, deployment, systemPrompt, userPrompt string) *middleware.CallContext {
	return &middleware.CallContext{
		Prompt:               userPrompt,
		SystemPrompt:         systemPrompt,
		ModelType:            opts.ModelType,
		Deployment:           deployment,
		Grounding:            opts.Grounding,
		Explain:              opts.Explain,
		CheckUncertainty:     opts.CheckUncertainty,
		Evaluate:             opts.Evaluate,
		RetryOnFail:          opts.RetryOnFail,
		UncertaintyThreshold: opts.UncertaintyThreshold,
		ModelParams: interfaces.InvokeParams{
			Temperature: opts.Temperature,
			MaxTokens:   opts.MaxTokens,
		},
	}
}

// invokeFn wraps the invoker with the raw-response cache. Cache hits skip the
// backend call only; guardrails still run on the cached output.
func (s *Service) invokeFn(invoker interfaces.ModelInvoker) middleware.InvokeFunc {
	return func(ctx context.Context, call *middleware.CallContext) error {
		key := cache.Key(call.Deployment, call.SystemPrompt, call.Prompt, call.ModelParams)

		if s.cache != nil {
			cached, err := s.cache.Get(ctx, key)
			if err == nil {
				s.logger.Debug(ctx, "Serving raw response from cache", map[string]interface{}{
					"deployment": call.Deployment,
				})
				populateCall(call, cached)
				return nil
			}
			if !errors.Is(err, interfaces.ErrCacheMiss) {
				s.logger.Warn(ctx, "Cache lookup failed", map[string]interface{}{
					"error": err.Error(),
				})
			}
		}

		resp, err := invoker.Invoke(ctx, call.SystemPrompt, call.Prompt, call.ModelParams)
		if err != nil {
			return err
		}
		populateCall(call, resp)

		if s.cache != nil {
			if err := s.cache.Set(ctx, key, resp); err != nil {
				s.logger.Warn(ctx, "Failed to cache response", map[string]interface{}{
					"error": err.Error(),
				})
			}
		}
		return nil
	}
}

func populateCall(call *middleware.CallContext, resp *interfaces.InvokeResponse) {
	call.RawContent = resp.Content
	call.TokenLogProbs = resp.TokenLogProbs
	call.PromptTokens = resp.PromptTokens
	call.OutputTokens = resp.OutputTokens
}

// composePrompt folds optional history into the user prompt and applies the
// explain instruction to the system prompt
func (s *Service) composePrompt(ctx context.Context, opts Options, prompt, deployment string) (string, string) {
	systemPrompt := opts.SystemPrompt
	userPrompt := prompt

	if len(opts.History) > 0 {
		messages := make([]interfaces.Message, 0, len(opts.History)+2)
		if systemPrompt != "" {
			messages = append(messages, interfaces.Message{Role: "system", Content: systemPrompt})
		}
		messages = append(messages, opts.History...)
		messages = append(messages, interfaces.Message{Role: "user", Content: prompt})

		if s.optimizer != nil && s.cfg.Tokens.MaxContextTokens > 0 {
			switch s.cfg.Tokens.Strategy {
			case "summarize":
				messages = s.optimizer.Summarize(ctx, messages, deployment, s.cfg.Tokens.MaxContextTokens, s.summarizeFn())
			default:
				messages = s.optimizer.Truncate(ctx, messages, deployment, s.cfg.Tokens.MaxContextTokens)
			}
		}

		systemPrompt, userPrompt = flatten(messages)
	}

	if opts.Explain {
		if systemPrompt != "" {
			systemPrompt += "\n\n" + explainInstruction
		} else {
			systemPrompt = explainInstruction
		}
	}

	return systemPrompt, userPrompt
}

// summarizeFn backs history summarization with the basic deployment
func (s *Service) summarizeFn() tokens.SummarizeFunc {
	invoker, ok := s.invokers[config.ModelBasic]
	if !ok {
		return nil
	}
	return func(ctx context.Context, prompt string) (string, error) {
		resp, err := invoker.Invoke(ctx, "", prompt, interfaces.InvokeParams{Temperature: 0.2})
		if err != nil {
			return "", err
		}
		return resp.Content, nil
	}
}

// flatten renders optimized messages back into a system prompt and a single
// user prompt transcript
func flatten(messages []interfaces.Message) (string, string) {
	var systemPrompt string
	var sb strings.Builder

	for _, msg := range messages {
		switch msg.Role {
		case "system":
			systemPrompt = msg.Content
		case "assistant":
			sb.WriteString("Assistant: ")
			sb.WriteString(msg.Content)
			sb.WriteString("\n")
		default:
			sb.WriteString("User: ")
			sb.WriteString(msg.Content)
			sb.WriteString("\n")
		}
	}

	return systemPrompt, strings.TrimSpace(sb.String())
}

func (s *Service) buildResult(call *middleware.CallContext, opts Options) *Result {
	result := &Result{
		Content:     call.FinalContent,
		Uncertainty: call.Uncertainty,
		Usage:       call.Usage,
		Guardrails:  call.Verdict,
	}

	if opts.Explain && call.GuardrailStatus != guardrails.StatusBlocked {
		reasoning, answer := splitReasoning(call.FinalContent)
		result.Reasoning = reasoning
		result.Content = answer
	}

	return result
}

// splitReasoning extracts the reasoning and answer sections. Content without
// the markers is returned whole, with empty reasoning.
func splitReasoning(content string) (string, string) {
	const (
		reasoningOpen  = "<reasoning>"
		reasoningClose = "</reasoning>"
		answerOpen     = "<answer>"
		answerClose    = "</answer>"
	)

	rStart := strings.Index(content, reasoningOpen)
	rEnd := strings.Index(content, reasoningClose)
	aStart := strings.Index(content, answerOpen)

	if rStart < 0 || rEnd < 0 || aStart < 0 || rEnd < rStart {
		return "", content
	}

	reasoning := strings.TrimSpace(content[rStart+len(reasoningOpen) : rEnd])

	answer := content[aStart+len(answerOpen):]
	if aEnd := strings.Index(answer, answerClose); aEnd >= 0 {
		answer = answer[:aEnd]
	}
	return reasoning, strings.TrimSpace(answer)
}

// ground runs grounding verification when requested. It is advisory and
// best effort: failures log and leave the report nil.
func (s *Service) ground(ctx context.Context, opts Options, result *Result) {
	if !opts.Grounding || s.verifier == nil || result.Content == middleware.RefusalMessage {
		return
	}

	report, err := s.verifier.Verify(ctx, result.Content)
	if err != nil {
		s.logger.Warn(ctx, "Grounding verification failed", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	result.Grounding = report
}
