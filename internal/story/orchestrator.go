package story

import (
	"context"
	"fmt"
	"strings"
	"time"

	apperrors "madlibs-stories/internal/common/errors"
	"madlibs-stories/internal/common/logger"
	"madlibs-stories/internal/common/metrics"
	"madlibs-stories/internal/common/observability"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Stage is the orchestration step a request is in.
type Stage string

const (
	StageValidating Stage = "validating"
	StageGenerating Stage = "generating"
	StageDone       Stage = "done"
)

type requestIDKey struct{}

// WithRequestID attaches a request id that the orchestrator logs and forwards
// to the gateway.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFrom returns the request id on ctx, or "".
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// Orchestrator validates answers, builds the prompt and dispatches exactly
// one generation call per request. It holds no per-request state and is safe
// for concurrent use.
type Orchestrator struct {
	gateway          Gateway
	source           TemplateSource
	logger           logger.Logger
	obs              *observability.Observability
	provider         string
	defaultMaxTokens int
}

type Option func(*Orchestrator)

// WithSource enables GenerateForSlug.
func WithSource(src TemplateSource) Option {
	return func(o *Orchestrator) { o.source = src }
}

func WithDefaultMaxTokens(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.defaultMaxTokens = n
		}
	}
}

// WithProvider sets the provider label used on generation metrics.
func WithProvider(name string) Option {
	return func(o *Orchestrator) { o.provider = name }
}

func WithObservability(obs *observability.Observability) Option {
	return func(o *Orchestrator) { o.obs = obs }
}

func NewOrchestrator(gateway Gateway, log logger.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		gateway:          gateway,
		logger:           log.WithFields(map[string]interface{}{"component": "orchestrator"}),
		provider:         "unknown",
		defaultMaxTokens: DefaultMaxTokens,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// promptResolver yields the prompt template and its token budget. It is only
// called once answers have passed validation.
type promptResolver func(ctx context.Context) (promptTemplate string, maxTokens int, err error)

// GenerateStory runs validation, substitution and one gateway call.
// maxTokens <= 0 selects the default budget. Errors are *errors.StandardError
// with code VALIDATION_FAILED, PROMPT_UNAVAILABLE or GENERATION_FAILED.
func (o *Orchestrator) GenerateStory(ctx context.Context, tmpl Template, answers Answers, promptTemplate string, maxTokens int) (*GenerationResult, error) {
	return o.run(ctx, tmpl, answers, func(context.Context) (string, int, error) {
		return promptTemplate, maxTokens, nil
	})
}

// GenerateForSlug loads the template and its prompt from the configured
// source and generates a story. The prompt is looked up after the answers
// validate, so a missing prompt never masks a validation failure.
func (o *Orchestrator) GenerateForSlug(ctx context.Context, slug string, answers Answers) (*GenerationResult, error) {
	if o.source == nil {
		return nil, apperrors.Normalize(fmt.Errorf("orchestrator has no template source"))
	}

	tmpl, err := o.source.FetchTemplate(ctx, slug)
	if err != nil {
		return nil, sourceError(err, apperrors.NewTemplateNotFoundError(slug))
	}
	if !tmpl.Active {
		return nil, apperrors.NewTemplateNotFoundError(slug)
	}

	return o.run(ctx, *tmpl, answers, func(ctx context.Context) (string, int, error) {
		prompt, err := o.source.FetchPromptForTemplate(ctx, tmpl.ID)
		if err != nil {
			return "", 0, sourceError(err, apperrors.NewPromptUnavailableError(tmpl.ID))
		}
		return prompt.PromptTemplate, prompt.MaxTokens, nil
	})
}

func (o *Orchestrator) run(ctx context.Context, tmpl Template, answers Answers, resolve promptResolver) (*GenerationResult, error) {
	start := time.Now()

	requestID := RequestIDFrom(ctx)
	if requestID == "" {
		requestID = uuid.New().String()
		ctx = WithRequestID(ctx, requestID)
	}

	ctx, span := observability.Tracer().Start(ctx, "story.generate", trace.WithAttributes(
		attribute.String("story.request_id", requestID),
		attribute.String("story.template_id", tmpl.ID),
	))
	defer span.End()

	log := o.logger.WithFields(map[string]interface{}{
		"requestId":  requestID,
		"templateId": tmpl.ID,
	})

	result, stdErr := o.execute(ctx, log, span, tmpl, answers, requestID, resolve)

	outcome := metrics.OutcomeSuccess
	if stdErr != nil {
		outcome = outcomeLabel(stdErr.Code)
		span.SetStatus(codes.Error, string(stdErr.Code))
	}
	metrics.StoryRequests.WithLabelValues(outcome).Inc()
	o.obs.RecordStory(ctx, time.Since(start), outcome)

	if stdErr != nil {
		return nil, stdErr
	}
	return result, nil
}

func (o *Orchestrator) execute(
	ctx context.Context,
	log logger.Logger,
	span trace.Span,
	tmpl Template,
	answers Answers,
	requestID string,
	resolve promptResolver,
) (*GenerationResult, *apperrors.StandardError) {
	span.AddEvent(string(StageValidating))
	if errs := ValidateAnswers(answers, tmpl.Questions); len(errs) > 0 {
		log.Info("answers failed validation", map[string]interface{}{
			"stage":  StageValidating,
			"errors": errs,
		})
		return nil, apperrors.NewValidationFailedError(errs)
	}

	promptTemplate, maxTokens, err := resolve(ctx)
	if err != nil {
		stdErr := apperrors.Normalize(err)
		log.Warn("prompt lookup failed", map[string]interface{}{
			"stage":     StageValidating,
			"errorCode": stdErr.Code,
			"details":   stdErr.Details,
		})
		return nil, stdErr
	}
	if strings.TrimSpace(promptTemplate) == "" {
		log.Warn("no prompt template configured", map[string]interface{}{"stage": StageValidating})
		return nil, apperrors.NewPromptUnavailableError(tmpl.ID)
	}

	prompt := Populate(promptTemplate, answers)
	if missing := UnmatchedPlaceholders(promptTemplate, answers); len(missing) > 0 {
		log.Warn("prompt has unmatched placeholders", map[string]interface{}{"placeholders": missing})
	}

	if maxTokens <= 0 {
		maxTokens = o.defaultMaxTokens
	}
	if maxTokens > MaxTokensLimit {
		log.Info("token budget out of range", map[string]interface{}{
			"stage":     StageValidating,
			"maxTokens": maxTokens,
		})
		return nil, apperrors.NewValidationFailedError([]string{MaxTokensError()})
	}

	span.AddEvent(string(StageGenerating))
	log.Debug("dispatching generation", map[string]interface{}{
		"stage":     StageGenerating,
		"maxTokens": maxTokens,
		"provider":  o.provider,
	})

	genStart := time.Now()
	outcome := o.gateway.GenerateText(ctx, GenerationRequest{
		RequestID: requestID,
		Prompt:    prompt,
		MaxTokens: maxTokens,
	})
	metrics.StoryGenerationDuration.WithLabelValues(o.provider).Observe(time.Since(genStart).Seconds())

	switch out := outcome.(type) {
	case Generated:
		if strings.TrimSpace(out.Result.Text) == "" {
			return nil, o.generationFailed(log, fmt.Errorf("gateway returned an empty story"))
		}
		metrics.StoryTokens.WithLabelValues("input").Add(float64(out.Result.Usage.InputTokens))
		metrics.StoryTokens.WithLabelValues("output").Add(float64(out.Result.Usage.OutputTokens))
		span.AddEvent(string(StageDone))
		log.Info("story generated", map[string]interface{}{
			"stage":        StageDone,
			"inputTokens":  out.Result.Usage.InputTokens,
			"outputTokens": out.Result.Usage.OutputTokens,
		})
		result := out.Result
		return &result, nil
	case Failed:
		cause := out.Cause
		if cause == nil {
			cause = fmt.Errorf("gateway failed without a cause")
		}
		return nil, o.generationFailed(log, cause)
	default:
		return nil, o.generationFailed(log, fmt.Errorf("gateway returned no outcome"))
	}
}

func (o *Orchestrator) generationFailed(log logger.Logger, cause error) *apperrors.StandardError {
	log.Error("story generation failed", map[string]interface{}{
		"stage":    StageGenerating,
		"provider": o.provider,
		"cause":    cause,
	})
	return apperrors.NewGenerationFailedError(cause)
}

// sourceError maps a TemplateSource error: ErrNotFound becomes notFound, a
// StandardError passes through, anything else is a source outage.
func sourceError(err error, notFound *apperrors.StandardError) *apperrors.StandardError {
	if apperrors.Is(err, ErrNotFound) {
		return notFound
	}
	var stdErr *apperrors.StandardError
	if apperrors.As(err, &stdErr) {
		return stdErr
	}
	return apperrors.NewTemplateSourceFailedError(err)
}

func outcomeLabel(code apperrors.ErrorCode) string {
	switch code {
	case apperrors.ErrCodeValidationFailed:
		return metrics.OutcomeValidationFailed
	case apperrors.ErrCodePromptUnavailable:
		return metrics.OutcomePromptUnavailable
	case apperrors.ErrCodeGenerationFailed:
		return metrics.OutcomeGenerationFailed
	case apperrors.ErrCodeMissingInput:
		return metrics.OutcomeMissingInput
	default:
		return strings.ToLower(string(code))
	}
}
