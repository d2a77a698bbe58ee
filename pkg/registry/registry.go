// pkg/registry/registry.go
package registry

import (
	"context"
	"fmt"
	"os"
	"sync"

	"madlibs-stories/internal/story"

	"gopkg.in/yaml.v3"
)

// File is the on-disk layout of a story registry. JSON files work too since
// they parse as YAML; keys are snake_case either way.
type File struct {
	Version   string              `yaml:"version"`
	Settings  *story.SiteSettings `yaml:"settings,omitempty"`
	Templates []story.Template    `yaml:"templates"`
	Prompts   []story.StoryPrompt `yaml:"prompts"`
}

// Registry is an in-memory TemplateSource loaded from a registry file.
type Registry struct {
	mu        sync.RWMutex
	version   string
	settings  *story.SiteSettings
	templates []story.Template
	bySlug    map[string]int
	prompts   map[string]story.StoryPrompt
}

var _ story.TemplateSource = (*Registry)(nil)

// LoadRegistry reads and validates a registry file.
func LoadRegistry(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse builds a registry from YAML or JSON bytes.
func Parse(data []byte) (*Registry, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse registry: %w", err)
	}
	return New(f)
}

// New validates f and indexes it.
func New(f File) (*Registry, error) {
	r := &Registry{
		version:   f.Version,
		settings:  f.Settings,
		templates: make([]story.Template, 0, len(f.Templates)),
		bySlug:    make(map[string]int, len(f.Templates)),
		prompts:   make(map[string]story.StoryPrompt, len(f.Prompts)),
	}

	ids := make(map[string]struct{}, len(f.Templates))
	for _, t := range f.Templates {
		for i := range t.Questions {
			if t.Questions[i].Type == "" {
				t.Questions[i].Type = story.QuestionText
			}
		}
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("registry: %w", err)
		}
		if _, dup := r.bySlug[t.Slug]; dup {
			return nil, fmt.Errorf("registry: duplicate template slug %q", t.Slug)
		}
		if _, dup := ids[t.ID]; dup {
			return nil, fmt.Errorf("registry: duplicate template id %q", t.ID)
		}
		ids[t.ID] = struct{}{}
		r.bySlug[t.Slug] = len(r.templates)
		r.templates = append(r.templates, t)
	}

	for _, p := range f.Prompts {
		if _, ok := ids[p.TemplateID]; !ok {
			return nil, fmt.Errorf("registry: prompt %q references unknown template %q", p.ID, p.TemplateID)
		}
		if _, dup := r.prompts[p.TemplateID]; dup {
			return nil, fmt.Errorf("registry: template %q has more than one prompt", p.TemplateID)
		}
		if p.MaxTokens <= 0 {
			p.MaxTokens = story.DefaultMaxTokens
		}
		r.prompts[p.TemplateID] = p
	}
	return r, nil
}

// Version returns the registry file's version string.
func (r *Registry) Version() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.version
}

// Replace swaps in the contents of other, used when the file is reloaded.
func (r *Registry) Replace(other *Registry) {
	other.mu.RLock()
	defer other.mu.RUnlock()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.version = other.version
	r.settings = other.settings
	r.templates = other.templates
	r.bySlug = other.bySlug
	r.prompts = other.prompts
}

func (r *Registry) FetchTemplate(_ context.Context, slug string) (*story.Template, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i, ok := r.bySlug[slug]
	if !ok {
		return nil, fmt.Errorf("template %q: %w", slug, story.ErrNotFound)
	}
	t := r.templates[i]
	return &t, nil
}

func (r *Registry) FetchPromptForTemplate(_ context.Context, templateID string) (*story.StoryPrompt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.prompts[templateID]
	if !ok {
		return nil, fmt.Errorf("prompt for template %q: %w", templateID, story.ErrNotFound)
	}
	return &p, nil
}

func (r *Registry) ListTemplates(context.Context) ([]story.Template, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]story.Template, len(r.templates))
	copy(out, r.templates)
	return out, nil
}

func (r *Registry) FetchSiteSettings(context.Context) (*story.SiteSettings, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.settings == nil {
		return nil, fmt.Errorf("site settings: %w", story.ErrNotFound)
	}
	s := *r.settings
	return &s, nil
}
