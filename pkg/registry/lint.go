package registry

import (
	"fmt"
	"os"
	"sort"

	"madlibs-stories/internal/story"

	"gopkg.in/yaml.v3"
)

type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is one finding from Lint.
type Issue struct {
	Severity Severity
	Template string
	Message  string
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: %s: %s", i.Severity, i.Template, i.Message)
}

// Lint cross-checks prompts against their templates. A placeholder with no
// matching question would reach the model verbatim and is an error; a question
// the prompt never uses is a warning. Active templates without a prompt are
// warnings too.
func (r *Registry) Lint() []Issue {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var issues []Issue
	for _, t := range r.templates {
		p, ok := r.prompts[t.ID]
		if !ok {
			if t.Active {
				issues = append(issues, Issue{SeverityWarning, t.Slug, "active template has no prompt"})
			}
			continue
		}

		ids := make(map[string]bool, len(t.Questions))
		for _, q := range t.Questions {
			ids[q.ID] = false
		}
		for _, key := range story.Placeholders(p.PromptTemplate) {
			if _, known := ids[key]; !known {
				issues = append(issues, Issue{SeverityError, t.Slug, fmt.Sprintf("placeholder {%s} has no question", key)})
				continue
			}
			ids[key] = true
		}

		unused := make([]string, 0)
		for id, used := range ids {
			if !used {
				unused = append(unused, id)
			}
		}
		sort.Strings(unused)
		for _, id := range unused {
			issues = append(issues, Issue{SeverityWarning, t.Slug, fmt.Sprintf("question %q is not used by the prompt", id)})
		}
	}
	return issues
}

// Export returns the registry contents in file layout.
func (r *Registry) Export() File {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f := File{
		Version:   r.version,
		Settings:  r.settings,
		Templates: append([]story.Template(nil), r.templates...),
		Prompts:   make([]story.StoryPrompt, 0, len(r.prompts)),
	}
	for _, t := range r.templates {
		if p, ok := r.prompts[t.ID]; ok {
			f.Prompts = append(f.Prompts, p)
		}
	}
	return f
}

// WriteFile writes f as YAML.
func WriteFile(path string, f File) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(f); err != nil {
		_ = out.Close()
		return err
	}
	if err := enc.Close(); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
