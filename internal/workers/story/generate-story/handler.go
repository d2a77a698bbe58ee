// internal/workers/story/generate-story/handler.go
package generatestory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"madlibs-stories/internal/common/errors"
	"madlibs-stories/internal/common/logger"
	"madlibs-stories/internal/common/metrics"
	"madlibs-stories/internal/common/validation"
	"madlibs-stories/internal/story"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "generate-story"

// Generator is the part of the orchestrator the worker drives.
type Generator interface {
	GenerateStory(ctx context.Context, tmpl story.Template, answers story.Answers, promptTemplate string, maxTokens int) (*story.GenerationResult, error)
	GenerateForSlug(ctx context.Context, slug string, answers story.Answers) (*story.GenerationResult, error)
}

type Handler struct {
	config       *Config
	generator    Generator
	validator    *validation.Validator
	errorHandler *errors.ErrorHandler
	logger       logger.Logger
}

func NewHandler(cfg *Config, generator Generator, validator *validation.Validator, log logger.Logger) (*Handler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", TaskType, err)
	}
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       cfg,
		generator:    generator,
		validator:    validator,
		errorHandler: errors.NewErrorHandler(l),
		logger:       l,
	}, nil
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()
	ctx = story.WithRequestID(ctx, fmt.Sprintf("job-%d", job.Key))

	input, err := h.parseInput(job)
	if err != nil {
		h.fail(ctx, client, job, err)
		return
	}

	output, err := h.Execute(ctx, input)
	if err != nil {
		h.fail(ctx, client, job, err)
		return
	}

	h.completeJob(ctx, client, job, output)
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
}

func (h *Handler) parseInput(job entities.Job) (*Input, error) {
	raw := []byte(job.GetVariables())
	res, err := h.validator.ValidateJSON(validation.SchemaStoryJob, raw)
	if err != nil {
		stdErr := errors.NewMissingInputError()
		stdErr.Details = fmt.Sprintf("parse variables: %v", err)
		return nil, stdErr
	}
	if !res.Valid {
		stdErr := errors.NewMissingInputError()
		stdErr.Details = res.Summary()
		return nil, stdErr
	}

	var input Input
	if err := json.Unmarshal(raw, &input); err != nil {
		stdErr := errors.NewMissingInputError()
		stdErr.Details = fmt.Sprintf("parse variables: %v", err)
		return nil, stdErr
	}
	return &input, nil
}

// Execute generates one story. A template slug takes precedence over an
// inline prompt template.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil || input.Answers == nil {
		return nil, errors.NewMissingInputError("answers")
	}

	var (
		result *story.GenerationResult
		err    error
	)
	switch {
	case input.TemplateSlug != "":
		result, err = h.generator.GenerateForSlug(ctx, input.TemplateSlug, input.Answers)
	case input.PromptTemplate != "":
		result, err = h.generator.GenerateStory(ctx, story.Template{}, input.Answers, input.PromptTemplate, input.MaxTokens)
	default:
		return nil, errors.NewMissingInputError("templateSlug", "promptTemplate")
	}
	if err != nil {
		return nil, err
	}

	return &Output{
		Story:        result.Text,
		Usage:        result.Usage,
		TemplateSlug: input.TemplateSlug,
	}, nil
}

func (h *Handler) fail(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(errors.Normalize(err).Code)).Inc()
	h.errorHandler.HandleJobError(ctx, client, job, err)
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err,
		})
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err,
		})
	}
}
