package cms

import (
	"context"
	"encoding/json"
	"fmt"

	apperrors "madlibs-stories/internal/common/errors"
	"madlibs-stories/internal/common/validation"
	"madlibs-stories/internal/story"
)

// Source reads story records from the bucket. Every object is checked
// against its JSON Schema and the template invariants before it is returned.
type Source struct {
	client    *Client
	validator *validation.Validator
}

var _ story.TemplateSource = (*Source)(nil)

func NewSource(client *Client, validator *validation.Validator) *Source {
	return &Source{client: client, validator: validator}
}

func (s *Source) FetchTemplate(ctx context.Context, slug string) (*story.Template, error) {
	raw, err := s.client.findOne(ctx, map[string]interface{}{
		"type": TypeTemplates,
		"slug": slug,
	}, 1)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, fmt.Errorf("template %q: %w", slug, story.ErrNotFound)
	}
	return s.decodeTemplate(raw)
}

func (s *Source) FetchPromptForTemplate(ctx context.Context, templateID string) (*story.StoryPrompt, error) {
	raw, err := s.client.findOne(ctx, map[string]interface{}{
		"type":              TypeStoryPrompts,
		"metadata.template": templateID,
	}, 1)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, fmt.Errorf("prompt for template %q: %w", templateID, story.ErrNotFound)
	}

	if err := s.check(validation.SchemaStoryPrompt, raw); err != nil {
		return nil, err
	}
	var rec promptRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, apperrors.NewInvalidTemplateRecordError(fmt.Sprintf("story prompt: %v", err))
	}
	p := rec.toStoryPrompt()
	return &p, nil
}

// ListTemplates returns the active templates. Records that fail validation
// are skipped and logged so one bad entry does not hide the rest.
func (s *Source) ListTemplates(ctx context.Context) ([]story.Template, error) {
	objects, err := s.client.findObjects(ctx, map[string]interface{}{
		"type":            TypeTemplates,
		"metadata.active": true,
	}, 0, 1)
	if err != nil {
		return nil, err
	}

	out := make([]story.Template, 0, len(objects))
	for _, raw := range objects {
		t, err := s.decodeTemplate(raw)
		if err != nil {
			s.client.logger.Warn("skipping invalid template record", map[string]interface{}{"error": err})
			continue
		}
		out = append(out, *t)
	}
	return out, nil
}

func (s *Source) FetchSiteSettings(ctx context.Context) (*story.SiteSettings, error) {
	raw, err := s.client.findOne(ctx, map[string]interface{}{"type": TypeSiteSettings}, 0)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, fmt.Errorf("site settings: %w", story.ErrNotFound)
	}

	if err := s.check(validation.SchemaSiteSettings, raw); err != nil {
		return nil, err
	}
	var rec settingsRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, apperrors.NewInvalidTemplateRecordError(fmt.Sprintf("site settings: %v", err))
	}
	settings := rec.toSiteSettings()
	return &settings, nil
}

func (s *Source) decodeTemplate(raw json.RawMessage) (*story.Template, error) {
	if err := s.check(validation.SchemaTemplate, raw); err != nil {
		return nil, err
	}
	var rec templateRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, apperrors.NewInvalidTemplateRecordError(fmt.Sprintf("template: %v", err))
	}
	t := rec.toTemplate()
	if err := t.Validate(); err != nil {
		return nil, apperrors.NewInvalidTemplateRecordError(err.Error())
	}
	return &t, nil
}

func (s *Source) check(schema string, raw json.RawMessage) error {
	res, err := s.validator.ValidateJSON(schema, raw)
	if err != nil {
		return apperrors.NewInvalidTemplateRecordError(fmt.Sprintf("%s: %v", schema, err))
	}
	if !res.Valid {
		return apperrors.NewInvalidTemplateRecordError(fmt.Sprintf("%s: %s", schema, res.Summary()))
	}
	return nil
}
