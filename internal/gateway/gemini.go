package gateway

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"madlibs-stories/internal/story"

	"google.golang.org/genai"
)

type generateContentFunc func(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)

// GeminiGateway generates stories with the Gemini API.
type GeminiGateway struct {
	generate generateContentFunc
	model    string
	timeout  time.Duration
}

var _ story.Gateway = (*GeminiGateway)(nil)

func NewGeminiGateway(ctx context.Context, apiKey, model string, timeout time.Duration) (*GeminiGateway, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GenAI API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &GeminiGateway{
		generate: client.Models.GenerateContent,
		model:    model,
		timeout:  timeout,
	}, nil
}

func (g *GeminiGateway) GenerateText(ctx context.Context, req story.GenerationRequest) story.Outcome {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	if req.MaxTokens <= 0 || req.MaxTokens > math.MaxInt32 {
		return story.Failed{Cause: fmt.Errorf("gemini generate: max tokens %d out of range", req.MaxTokens)}
	}

	resp, err := g.generate(ctx, g.model,
		[]*genai.Content{genai.NewContentFromText(req.Prompt, genai.RoleUser)},
		&genai.GenerateContentConfig{MaxOutputTokens: int32(req.MaxTokens)},
	)
	if err != nil {
		return story.Failed{Cause: fmt.Errorf("gemini generate: %w", err)}
	}
	if resp == nil {
		return story.Failed{Cause: fmt.Errorf("gemini generate: empty response")}
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return story.Failed{Cause: fmt.Errorf("gemini generate: response has no text")}
	}

	result := story.GenerationResult{Text: text}
	if resp.UsageMetadata != nil {
		result.Usage = story.Usage{
			InputTokens:  int(resp.UsageMetadata.PromptTokenCount),
			OutputTokens: int(resp.UsageMetadata.CandidatesTokenCount),
		}
	}
	return story.Generated{Result: result}
}
