package cms

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"madlibs-stories/internal/story"
)

// AIGateway generates text with the bucket's AI endpoint.
type AIGateway struct {
	client *Client
}

var _ story.Gateway = (*AIGateway)(nil)

func NewAIGateway(client *Client) *AIGateway {
	return &AIGateway{client: client}
}

type aiTextRequest struct {
	Prompt    string `json:"prompt"`
	MaxTokens int    `json:"max_tokens"`
}

type aiTextResponse struct {
	Text  *string `json:"text"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// GenerateText makes a single call; it never retries.
func (g *AIGateway) GenerateText(ctx context.Context, req story.GenerationRequest) story.Outcome {
	c := g.client
	endpoint := fmt.Sprintf("%s/buckets/%s/ai/text", c.baseURL, url.PathEscape(c.bucket))
	headers := map[string]string{"Authorization": "Bearer " + c.writeKey}
	if req.RequestID != "" {
		headers["X-Request-ID"] = req.RequestID
	}

	var resp aiTextResponse
	err := c.http.DoJSON(ctx, http.MethodPost, endpoint, headers, aiTextRequest{
		Prompt:    req.Prompt,
		MaxTokens: req.MaxTokens,
	}, &resp)
	if err != nil {
		return story.Failed{Cause: fmt.Errorf("cosmic ai: %w", err)}
	}
	if resp.Text == nil || strings.TrimSpace(*resp.Text) == "" {
		return story.Failed{Cause: fmt.Errorf("cosmic ai: response has no text")}
	}

	return story.Generated{Result: story.GenerationResult{
		Text: *resp.Text,
		Usage: story.Usage{
			InputTokens:  resp.Usage.InputTokens,
			OutputTokens: resp.Usage.OutputTokens,
		},
	}}
}
