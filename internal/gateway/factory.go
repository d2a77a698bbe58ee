package gateway

import (
	"context"
	"fmt"

	"madlibs-stories/internal/cms"
	"madlibs-stories/internal/common/config"
	"madlibs-stories/internal/story"
)

// New builds the gateway selected by cfg.Provider. cosmicClient is only used
// for the cosmic provider and may be nil otherwise.
func New(ctx context.Context, cfg config.GenAIConfig, cosmicClient *cms.Client) (story.Gateway, error) {
	timeout := config.GetDuration(cfg.Timeout)

	switch cfg.Provider {
	case config.ProviderCosmic:
		if cosmicClient == nil {
			return nil, fmt.Errorf("cosmic provider needs a cms client")
		}
		return cms.NewAIGateway(cosmicClient), nil
	case config.ProviderHTTP:
		return NewHTTPGateway(cfg.BaseURL, cfg.APIKey, timeout), nil
	case config.ProviderGemini:
		gw, err := NewGeminiGateway(ctx, cfg.APIKey, cfg.Model, timeout)
		if err != nil {
			return nil, err
		}
		return gw, nil
	default:
		return nil, fmt.Errorf("unknown genai provider %q", cfg.Provider)
	}
}
