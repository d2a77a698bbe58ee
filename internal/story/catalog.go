package story

import (
	"context"
	"strings"

	apperrors "madlibs-stories/internal/common/errors"
)

// Catalog serves the read side: template listings, a template with its
// prompt, and site settings. Source errors come back as StandardErrors.
type Catalog struct {
	source TemplateSource
}

func NewCatalog(source TemplateSource) *Catalog {
	return &Catalog{source: source}
}

// TemplateDetail is a template plus the presentation hints of its prompt.
// The prompt text itself is not exposed.
type TemplateDetail struct {
	Template          Template `json:"template"`
	PromptAvailable   bool     `json:"promptAvailable"`
	StyleInstructions string   `json:"styleInstructions,omitempty"`
	ContentGuidelines string   `json:"contentGuidelines,omitempty"`
}

// Templates returns active templates in source order, optionally only the
// featured ones.
func (c *Catalog) Templates(ctx context.Context, featuredOnly bool) ([]Template, error) {
	all, err := c.source.ListTemplates(ctx)
	if err != nil {
		if apperrors.Is(err, ErrNotFound) {
			return []Template{}, nil
		}
		return nil, sourceError(err, nil)
	}

	out := make([]Template, 0, len(all))
	for _, t := range all {
		if !t.Active {
			continue
		}
		if featuredOnly && !t.Featured {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

// Template returns the active template for slug with its prompt hints. A
// template with no prompt is still returned; PromptAvailable reports it.
func (c *Catalog) Template(ctx context.Context, slug string) (*TemplateDetail, error) {
	tmpl, err := c.Questions(ctx, slug)
	if err != nil {
		return nil, err
	}

	detail := &TemplateDetail{Template: *tmpl}
	prompt, err := c.source.FetchPromptForTemplate(ctx, tmpl.ID)
	switch {
	case err == nil:
		detail.PromptAvailable = strings.TrimSpace(prompt.PromptTemplate) != ""
		detail.StyleInstructions = prompt.StyleInstructions
		detail.ContentGuidelines = prompt.ContentGuidelines
	case apperrors.Is(err, ErrNotFound):
	default:
		return nil, sourceError(err, nil)
	}
	return detail, nil
}

// Questions returns the active template for slug without touching its
// prompt, for callers that bring their own prompt template.
func (c *Catalog) Questions(ctx context.Context, slug string) (*Template, error) {
	tmpl, err := c.source.FetchTemplate(ctx, slug)
	if err != nil {
		return nil, sourceError(err, apperrors.NewTemplateNotFoundError(slug))
	}
	if !tmpl.Active {
		return nil, apperrors.NewTemplateNotFoundError(slug)
	}
	return tmpl, nil
}

// Settings returns the site settings, or an empty record when none exist.
func (c *Catalog) Settings(ctx context.Context) (*SiteSettings, error) {
	settings, err := c.source.FetchSiteSettings(ctx)
	if err != nil {
		if apperrors.Is(err, ErrNotFound) {
			return &SiteSettings{}, nil
		}
		return nil, sourceError(err, nil)
	}
	return settings, nil
}
