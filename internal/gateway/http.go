// Package gateway holds the generation gateways that are not tied to the
// Cosmic bucket.
package gateway

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	apphttp "madlibs-stories/internal/common/http"
	"madlibs-stories/internal/story"
)

// HTTPGateway posts {prompt, max_tokens} to <base>/api/ai/generate and
// expects {text, usage} back.
type HTTPGateway struct {
	client  *apphttp.Client
	baseURL string
	apiKey  string
}

var _ story.Gateway = (*HTTPGateway)(nil)

func NewHTTPGateway(baseURL, apiKey string, timeout time.Duration) *HTTPGateway {
	return &HTTPGateway{
		client:  apphttp.NewClient(timeout),
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
	}
}

type generateRequest struct {
	Prompt    string `json:"prompt"`
	MaxTokens int    `json:"max_tokens"`
}

type generateResponse struct {
	Text  *string     `json:"text"`
	Usage story.Usage `json:"usage"`
}

func (g *HTTPGateway) GenerateText(ctx context.Context, req story.GenerationRequest) story.Outcome {
	headers := map[string]string{}
	if g.apiKey != "" {
		headers["Authorization"] = "Bearer " + g.apiKey
	}
	if req.RequestID != "" {
		headers["X-Request-ID"] = req.RequestID
	}

	var resp generateResponse
	err := g.client.DoJSON(ctx, http.MethodPost, g.baseURL+"/api/ai/generate", headers, generateRequest{
		Prompt:    req.Prompt,
		MaxTokens: req.MaxTokens,
	}, &resp)
	if err != nil {
		return story.Failed{Cause: fmt.Errorf("genai http: %w", err)}
	}
	if resp.Text == nil || strings.TrimSpace(*resp.Text) == "" {
		return story.Failed{Cause: fmt.Errorf("genai http: response has no text")}
	}
	return story.Generated{Result: story.GenerationResult{Text: *resp.Text, Usage: resp.Usage}}
}
