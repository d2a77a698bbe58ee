package generatestory

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"madlibs-stories/internal/common/config"
	"madlibs-stories/internal/common/errors"
	"madlibs-stories/internal/common/logger"
	"madlibs-stories/internal/common/validation"
	"madlibs-stories/internal/story"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// ==========================
// Mock Generator
// ==========================

type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) GenerateStory(ctx context.Context, tmpl story.Template, answers story.Answers, promptTemplate string, maxTokens int) (*story.GenerationResult, error) {
	args := m.Called(ctx, tmpl, answers, promptTemplate, maxTokens)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*story.GenerationResult), args.Error(1)
}

func (m *MockGenerator) GenerateForSlug(ctx context.Context, slug string, answers story.Answers) (*story.GenerationResult, error) {
	args := m.Called(ctx, slug, answers)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*story.GenerationResult), args.Error(1)
}

// ==========================
// Test Helpers
// ==========================

func createMockJob(key int64, variables map[string]interface{}) entities.Job {
	variablesJSON, _ := json.Marshal(variables)
	return entities.Job{ActivatedJob: &pb.ActivatedJob{
		Key:                key,
		Type:               TaskType,
		ProcessInstanceKey: key * 10,
		BpmnProcessId:      "story-process",
		ElementId:          "Activity_GenerateStory",
		CustomHeaders:      "{}",
		Worker:             "test-worker",
		Retries:            3,
		Variables:          string(variablesJSON),
	}}
}

func createTestHandler(t *testing.T, gen Generator) *Handler {
	t.Helper()
	h, err := NewHandler(&Config{Enabled: true, Timeout: 5 * time.Second}, gen, validation.MustNewValidator(), logger.NewTestLogger(t))
	require.NoError(t, err)
	return h
}

func storyResult() *story.GenerationResult {
	return &story.GenerationResult{
		Text:  "A giraffe walks into a bar.",
		Usage: story.Usage{InputTokens: 6, OutputTokens: 9},
	}
}

// ==========================
// Handler Creation Tests
// ==========================

func TestNewHandler_InvalidConfig(t *testing.T) {
	_, err := NewHandler(&Config{}, &MockGenerator{}, validation.MustNewValidator(), logger.NewNoOpLogger())
	assert.Error(t, err)
}

func TestConfigFromWorker(t *testing.T) {
	cfg := ConfigFromWorker(config.WorkerConfig{Enabled: true, MaxJobsActive: 3, Timeout: 65000})
	assert.True(t, cfg.Enabled)
	assert.Equal(t, 3, cfg.MaxJobsActive)
	assert.Equal(t, 65*time.Second, cfg.Timeout)
}

// ==========================
// Execute Tests
// ==========================

func TestHandler_Execute_TemplateSlug(t *testing.T) {
	gen := &MockGenerator{}
	answers := story.Answers{"animal": "giraffe"}
	gen.On("GenerateForSlug", mock.Anything, "bar-joke", answers).Return(storyResult(), nil)

	h := createTestHandler(t, gen)
	out, err := h.Execute(context.Background(), &Input{TemplateSlug: "bar-joke", Answers: answers})

	require.NoError(t, err)
	assert.Equal(t, "A giraffe walks into a bar.", out.Story)
	assert.Equal(t, 9, out.Usage.OutputTokens)
	assert.Equal(t, "bar-joke", out.TemplateSlug)
	gen.AssertExpectations(t)
	gen.AssertNotCalled(t, "GenerateStory", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestHandler_Execute_PromptTemplate(t *testing.T) {
	gen := &MockGenerator{}
	answers := story.Answers{"animal": "giraffe"}
	gen.On("GenerateStory", mock.Anything, story.Template{}, answers, "A {animal} walks into a bar.", 120).Return(storyResult(), nil)

	h := createTestHandler(t, gen)
	out, err := h.Execute(context.Background(), &Input{
		PromptTemplate: "A {animal} walks into a bar.",
		Answers:        answers,
		MaxTokens:      120,
	})

	require.NoError(t, err)
	assert.Equal(t, "A giraffe walks into a bar.", out.Story)
	assert.Empty(t, out.TemplateSlug)
	gen.AssertExpectations(t)
}

func TestHandler_Execute_Errors(t *testing.T) {
	tests := []struct {
		name     string
		input    *Input
		setup    func(m *MockGenerator)
		wantCode errors.ErrorCode
	}{
		{
			name:     "nil input",
			input:    nil,
			wantCode: errors.ErrCodeMissingInput,
		},
		{
			name:     "nil answers",
			input:    &Input{TemplateSlug: "bar-joke"},
			wantCode: errors.ErrCodeMissingInput,
		},
		{
			name:     "neither slug nor prompt",
			input:    &Input{Answers: story.Answers{}},
			wantCode: errors.ErrCodeMissingInput,
		},
		{
			name:  "validation failure passes through",
			input: &Input{TemplateSlug: "bar-joke", Answers: story.Answers{"animal": ""}},
			setup: func(m *MockGenerator) {
				m.On("GenerateForSlug", mock.Anything, "bar-joke", mock.Anything).
					Return(nil, errors.NewValidationFailedError([]string{"Animal is required"}))
			},
			wantCode: errors.ErrCodeValidationFailed,
		},
		{
			name:  "generation failure passes through",
			input: &Input{PromptTemplate: "{a}", Answers: story.Answers{"a": "b"}},
			setup: func(m *MockGenerator) {
				m.On("GenerateStory", mock.Anything, mock.Anything, mock.Anything, "{a}", 0).
					Return(nil, errors.NewGenerationFailedError(assert.AnError))
			},
			wantCode: errors.ErrCodeGenerationFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &MockGenerator{}
			if tt.setup != nil {
				tt.setup(gen)
			}
			h := createTestHandler(t, gen)

			out, err := h.Execute(context.Background(), tt.input)

			require.Error(t, err)
			assert.Nil(t, out)
			assert.Equal(t, tt.wantCode, errors.Normalize(err).Code)
			gen.AssertExpectations(t)
		})
	}
}

// ==========================
// Input Parsing Tests
// ==========================

func TestHandler_ParseInput(t *testing.T) {
	h := createTestHandler(t, &MockGenerator{})

	t.Run("valid with extra process variables", func(t *testing.T) {
		job := createMockJob(1, map[string]interface{}{
			"templateSlug": "bar-joke",
			"answers":      map[string]string{"animal": "giraffe"},
			"customerId":   "c-1",
		})
		input, err := h.parseInput(job)
		require.NoError(t, err)
		assert.Equal(t, "bar-joke", input.TemplateSlug)
		assert.Equal(t, "giraffe", input.Answers["animal"])
	})

	invalid := map[string]map[string]interface{}{
		"missing answers":      {"templateSlug": "bar-joke"},
		"missing both sources": {"answers": map[string]string{}},
		"non-string answer":    {"promptTemplate": "{a}", "answers": map[string]interface{}{"a": 3}},
		"negative budget":      {"promptTemplate": "{a}", "answers": map[string]string{}, "maxTokens": -1},
		"budget above int32":   {"promptTemplate": "{a}", "answers": map[string]string{}, "maxTokens": 3000000000},
	}
	for name, vars := range invalid {
		t.Run(name, func(t *testing.T) {
			_, err := h.parseInput(createMockJob(2, vars))
			require.Error(t, err)
			assert.Equal(t, errors.ErrCodeMissingInput, errors.Normalize(err).Code)
		})
	}
}

func TestGenerateStoryErrorsAreNotRetried(t *testing.T) {
	for _, err := range []*errors.StandardError{
		errors.NewMissingInputError("answers"),
		errors.NewValidationFailedError([]string{"Animal is required"}),
		errors.NewPromptUnavailableError("t-1"),
		errors.NewGenerationFailedError(assert.AnError),
	} {
		bpmn := errors.ConvertToBPMNError(err)
		assert.Equal(t, 0, bpmn.Retries, string(err.Code))
		assert.Equal(t, string(err.Code), bpmn.Code)
	}
}
