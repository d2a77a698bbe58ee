package story

import (
	"context"

	apperrors "madlibs-stories/internal/common/errors"
)

// ErrNotFound is returned (possibly wrapped) by a TemplateSource when the
// requested record does not exist.
var ErrNotFound = apperrors.New("record not found")

// TemplateSource is the read-only authoring store for templates, prompts and
// site settings.
type TemplateSource interface {
	FetchTemplate(ctx context.Context, slug string) (*Template, error)
	FetchPromptForTemplate(ctx context.Context, templateID string) (*StoryPrompt, error)
	ListTemplates(ctx context.Context) ([]Template, error)
	FetchSiteSettings(ctx context.Context) (*SiteSettings, error)
}

// Gateway performs one text generation call. Implementations never retry and
// report every failure as a Failed outcome.
type Gateway interface {
	GenerateText(ctx context.Context, req GenerationRequest) Outcome
}

// Outcome is the result of a gateway call: either Generated or Failed.
type Outcome interface {
	outcome()
}

type Generated struct {
	Result GenerationResult
}

type Failed struct {
	Cause error
}

func (Generated) outcome() {}
func (Failed) outcome()    {}

// GatewayFunc adapts a function to the Gateway interface.
type GatewayFunc func(ctx context.Context, req GenerationRequest) Outcome

func (f GatewayFunc) GenerateText(ctx context.Context, req GenerationRequest) Outcome {
	return f(ctx, req)
}
