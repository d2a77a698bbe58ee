// Package story turns a template plus user answers into a generated story.
package story

import (
	"fmt"
	"math"
	"strings"
)

// QuestionType is the input widget a question is rendered with.
type QuestionType string

const (
	QuestionText     QuestionType = "text"
	QuestionTextarea QuestionType = "textarea"
	QuestionSelect   QuestionType = "select"
)

type Theme string

const (
	ThemeRomantic  Theme = "Romantic"
	ThemeAdventure Theme = "Adventure"
	ThemeComedy    Theme = "Comedy"
	ThemeFantasy   Theme = "Fantasy"
	ThemeNightlife Theme = "Nightlife"
)

func (t Theme) Valid() bool {
	switch t {
	case ThemeRomantic, ThemeAdventure, ThemeComedy, ThemeFantasy, ThemeNightlife:
		return true
	}
	return false
}

type Difficulty string

const (
	DifficultyEasy   Difficulty = "Easy"
	DifficultyMedium Difficulty = "Medium"
	DifficultySpicy  Difficulty = "Spicy"
)

// Valid reports whether d is a known level. Difficulty is optional, so the
// empty value is valid.
func (d Difficulty) Valid() bool {
	switch d {
	case "", DifficultyEasy, DifficultyMedium, DifficultySpicy:
		return true
	}
	return false
}

type Question struct {
	ID          string       `json:"id" yaml:"id"`
	Prompt      string       `json:"prompt" yaml:"prompt"`
	Type        QuestionType `json:"type" yaml:"type"`
	Placeholder string       `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
	Options     []string     `json:"options,omitempty" yaml:"options,omitempty"`
}

type Template struct {
	ID          string     `json:"id" yaml:"id"`
	Slug        string     `json:"slug" yaml:"slug"`
	Name        string     `json:"name" yaml:"name"`
	Description string     `json:"description,omitempty" yaml:"description,omitempty"`
	Theme       Theme      `json:"theme" yaml:"theme"`
	Questions   []Question `json:"questions" yaml:"questions"`
	Difficulty  Difficulty `json:"difficulty,omitempty" yaml:"difficulty,omitempty"`
	Active      bool       `json:"active" yaml:"active"`
	Featured    bool       `json:"featured" yaml:"featured"`
}

// Validate checks the record invariants substitution relies on: question ids
// are non-empty and unique, and choice questions carry options.
func (t *Template) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return fmt.Errorf("template id is required")
	}
	if strings.TrimSpace(t.Slug) == "" {
		return fmt.Errorf("template %s: slug is required", t.ID)
	}
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("template %s: name is required", t.Slug)
	}
	if !t.Theme.Valid() {
		return fmt.Errorf("template %s: unknown theme %q", t.Slug, t.Theme)
	}
	if !t.Difficulty.Valid() {
		return fmt.Errorf("template %s: unknown difficulty %q", t.Slug, t.Difficulty)
	}

	seen := make(map[string]struct{}, len(t.Questions))
	for i, q := range t.Questions {
		if strings.TrimSpace(q.ID) == "" {
			return fmt.Errorf("template %s: question %d has no id", t.Slug, i)
		}
		if _, dup := seen[q.ID]; dup {
			return fmt.Errorf("template %s: duplicate question id %q", t.Slug, q.ID)
		}
		seen[q.ID] = struct{}{}

		if strings.TrimSpace(q.Prompt) == "" {
			return fmt.Errorf("template %s: question %q has no prompt", t.Slug, q.ID)
		}
		switch q.Type {
		case "", QuestionText, QuestionTextarea:
		case QuestionSelect:
			if len(q.Options) == 0 {
				return fmt.Errorf("template %s: select question %q has no options", t.Slug, q.ID)
			}
		default:
			return fmt.Errorf("template %s: question %q has unknown type %q", t.Slug, q.ID, q.Type)
		}
	}
	return nil
}

// Answers maps Question.ID to the text the user entered.
type Answers map[string]string

// StoryPrompt is the authored prompt paired with a template.
type StoryPrompt struct {
	ID                string `json:"id" yaml:"id"`
	Name              string `json:"name" yaml:"name"`
	TemplateID        string `json:"templateId" yaml:"template_id"`
	PromptTemplate    string `json:"promptTemplate" yaml:"prompt_template"`
	MaxTokens         int    `json:"maxTokens,omitempty" yaml:"max_tokens,omitempty"`
	StyleInstructions string `json:"styleInstructions,omitempty" yaml:"style_instructions,omitempty"`
	ContentGuidelines string `json:"contentGuidelines,omitempty" yaml:"content_guidelines,omitempty"`
}

type SiteSettings struct {
	SiteTitle              string `json:"siteTitle,omitempty" yaml:"site_title,omitempty"`
	SiteDescription        string `json:"siteDescription,omitempty" yaml:"site_description,omitempty"`
	AgeVerificationMessage string `json:"ageVerificationMessage,omitempty" yaml:"age_verification_message,omitempty"`
	ContentWarning         string `json:"contentWarning,omitempty" yaml:"content_warning,omitempty"`
	SocialSharingEnabled   bool   `json:"socialSharingEnabled" yaml:"social_sharing_enabled"`
	SocialShareText        string `json:"socialShareText,omitempty" yaml:"social_share_text,omitempty"`
	FooterText             string `json:"footerText,omitempty" yaml:"footer_text,omitempty"`
}

// DefaultMaxTokens is the token budget used when neither the caller nor the
// prompt record sets one.
const DefaultMaxTokens = 300

// MaxTokensLimit is the largest token budget a request may ask for. Gateways
// carry the budget as a 32-bit integer.
const MaxTokensLimit = math.MaxInt32

// MaxTokensError is the validation message for a budget above MaxTokensLimit.
func MaxTokensError() string {
	return fmt.Sprintf("maxTokens must be at most %d", MaxTokensLimit)
}

type GenerationRequest struct {
	RequestID string `json:"-"`
	Prompt    string `json:"prompt"`
	MaxTokens int    `json:"max_tokens"`
}

type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type GenerationResult struct {
	Text  string `json:"text"`
	Usage Usage  `json:"usage"`
}
