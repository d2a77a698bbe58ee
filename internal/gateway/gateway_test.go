package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"madlibs-stories/internal/cms"
	"madlibs-stories/internal/common/config"
	"madlibs-stories/internal/common/logger"
	"madlibs-stories/internal/story"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func TestHTTPGateway_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/ai/generate", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "req-1", r.Header.Get("X-Request-ID"))

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "A giraffe walks into a bar.", body["prompt"])
		assert.Equal(t, float64(300), body["max_tokens"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text":"The bartender sighs.","usage":{"input_tokens":7,"output_tokens":4}}`))
	}))
	defer server.Close()

	gw := NewHTTPGateway(server.URL+"/", "secret", 5*time.Second)
	out := gw.GenerateText(context.Background(), story.GenerationRequest{
		RequestID: "req-1",
		Prompt:    "A giraffe walks into a bar.",
		MaxTokens: 300,
	})

	gen, ok := out.(story.Generated)
	require.True(t, ok, "expected Generated, got %T", out)
	assert.Equal(t, "The bartender sighs.", gen.Result.Text)
	assert.Equal(t, story.Usage{InputTokens: 7, OutputTokens: 4}, gen.Result.Usage)
}

func TestHTTPGateway_Failures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusInternalServerError, `{"error":"overloaded"}`},
		{"rate limited", http.StatusTooManyRequests, `{}`},
		{"malformed body", http.StatusOK, `not json`},
		{"missing text", http.StatusOK, `{"usage":{"input_tokens":1}}`},
		{"blank text", http.StatusOK, `{"text":"  "}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&calls, 1)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			out := NewHTTPGateway(server.URL, "", time.Second).GenerateText(context.Background(), story.GenerationRequest{Prompt: "x", MaxTokens: 1})
			failed, ok := out.(story.Failed)
			require.True(t, ok, "expected Failed, got %T", out)
			assert.Error(t, failed.Cause)
			assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "gateway must not retry")
		})
	}
}

func TestHTTPGateway_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	out := NewHTTPGateway(server.URL, "", 50*time.Millisecond).GenerateText(context.Background(), story.GenerationRequest{Prompt: "x"})
	_, ok := out.(story.Failed)
	assert.True(t, ok)
}

func geminiResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: genai.NewContentFromText(text, genai.RoleModel)},
		},
		UsageMetadata: &genai.GenerateContentResponseUsageMetadata{
			PromptTokenCount:     9,
			CandidatesTokenCount: 21,
		},
	}
}

func TestGeminiGateway_GenerateText(t *testing.T) {
	var gotModel string
	var gotMax int32
	var gotPrompt string
	gw := &GeminiGateway{
		model: "gemini-2.0-flash",
		generate: func(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
			gotModel = model
			gotMax = cfg.MaxOutputTokens
			gotPrompt = contents[0].Parts[0].Text
			return geminiResponse("A sparkly otter."), nil
		},
	}

	out := gw.GenerateText(context.Background(), story.GenerationRequest{Prompt: "Tell me about an otter", MaxTokens: 250})

	gen, ok := out.(story.Generated)
	require.True(t, ok, "expected Generated, got %T", out)
	assert.Equal(t, "A sparkly otter.", gen.Result.Text)
	assert.Equal(t, story.Usage{InputTokens: 9, OutputTokens: 21}, gen.Result.Usage)
	assert.Equal(t, "gemini-2.0-flash", gotModel)
	assert.Equal(t, int32(250), gotMax)
	assert.Equal(t, "Tell me about an otter", gotPrompt)
}

func TestGeminiGateway_Failures(t *testing.T) {
	tests := map[string]generateContentFunc{
		"api error": func(context.Context, string, []*genai.Content, *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
			return nil, errors.New("429 quota exceeded")
		},
		"nil response": func(context.Context, string, []*genai.Content, *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
			return nil, nil
		},
		"no candidates": func(context.Context, string, []*genai.Content, *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
			return &genai.GenerateContentResponse{}, nil
		},
	}

	for name, fn := range tests {
		t.Run(name, func(t *testing.T) {
			gw := &GeminiGateway{model: "m", generate: fn, timeout: time.Second}
			_, ok := gw.GenerateText(context.Background(), story.GenerationRequest{Prompt: "x", MaxTokens: 5}).(story.Failed)
			assert.True(t, ok)
		})
	}
}

func TestGeminiGateway_TokenBudgetOutOfRange(t *testing.T) {
	called := false
	gw := &GeminiGateway{
		model: "m",
		generate: func(context.Context, string, []*genai.Content, *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
			called = true
			return geminiResponse("never"), nil
		},
	}

	for _, maxTokens := range []int{0, -1, math.MaxInt32 + 1, 3000000000, 4294967301} {
		out := gw.GenerateText(context.Background(), story.GenerationRequest{Prompt: "x", MaxTokens: maxTokens})
		_, ok := out.(story.Failed)
		assert.True(t, ok, "maxTokens %d should fail", maxTokens)
	}
	assert.False(t, called, "out-of-range budget reached the API")

	var gotMax int32
	gw.generate = func(_ context.Context, _ string, _ []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
		gotMax = cfg.MaxOutputTokens
		return geminiResponse("ok"), nil
	}
	_, ok := gw.GenerateText(context.Background(), story.GenerationRequest{Prompt: "x", MaxTokens: math.MaxInt32}).(story.Generated)
	require.True(t, ok)
	assert.Equal(t, int32(math.MaxInt32), gotMax)
}

func TestNew(t *testing.T) {
	ctx := context.Background()

	gw, err := New(ctx, config.GenAIConfig{Provider: config.ProviderHTTP, BaseURL: "http://x", Timeout: 1000}, nil)
	require.NoError(t, err)
	assert.IsType(t, &HTTPGateway{}, gw)

	client := cms.NewClient(config.CMSConfig{BaseURL: "http://cosmic", BucketSlug: "b"}, logger.NewNoOpLogger())
	gw, err = New(ctx, config.GenAIConfig{Provider: config.ProviderCosmic}, client)
	require.NoError(t, err)
	assert.IsType(t, &cms.AIGateway{}, gw)

	_, err = New(ctx, config.GenAIConfig{Provider: config.ProviderCosmic}, nil)
	assert.Error(t, err)

	_, err = New(ctx, config.GenAIConfig{Provider: config.ProviderGemini}, nil)
	assert.Error(t, err)

	_, err = New(ctx, config.GenAIConfig{Provider: "openai"}, nil)
	assert.Error(t, err)
}
