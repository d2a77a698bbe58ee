package cms

import (
	"encoding/json"
	"fmt"

	"madlibs-stories/internal/story"
)

type selectValue struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type templateRecord struct {
	ID       string `json:"id"`
	Slug     string `json:"slug"`
	Title    string `json:"title"`
	Metadata struct {
		TemplateName    string           `json:"template_name"`
		Description     string           `json:"description"`
		Theme           selectValue      `json:"theme"`
		Questions       []story.Question `json:"questions"`
		DifficultyLevel *selectValue     `json:"difficulty_level"`
		Active          *bool            `json:"active"`
		Featured        *bool            `json:"featured"`
	} `json:"metadata"`
}

func (r *templateRecord) toTemplate() story.Template {
	m := r.Metadata
	t := story.Template{
		ID:          r.ID,
		Slug:        r.Slug,
		Name:        m.TemplateName,
		Description: m.Description,
		Theme:       story.Theme(m.Theme.Value),
		Questions:   m.Questions,
		// a template is live unless the switch is explicitly off
		Active: m.Active == nil || *m.Active,
	}
	if t.Name == "" {
		t.Name = r.Title
	}
	if m.DifficultyLevel != nil {
		t.Difficulty = story.Difficulty(m.DifficultyLevel.Value)
	}
	if m.Featured != nil {
		t.Featured = *m.Featured
	}
	for i := range t.Questions {
		if t.Questions[i].Type == "" {
			t.Questions[i].Type = story.QuestionText
		}
	}
	return t
}

// templateRef is the prompt's link to its template: an id string, or the
// expanded object when queried with depth >= 1.
type templateRef string

func (r *templateRef) UnmarshalJSON(data []byte) error {
	var id string
	if err := json.Unmarshal(data, &id); err == nil {
		*r = templateRef(id)
		return nil
	}
	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("template reference: %w", err)
	}
	*r = templateRef(obj.ID)
	return nil
}

type promptRecord struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Metadata struct {
		PromptName        string      `json:"prompt_name"`
		Template          templateRef `json:"template"`
		AIPromptTemplate  string      `json:"ai_prompt_template"`
		MaxTokens         *int        `json:"max_tokens"`
		StyleInstructions string      `json:"style_instructions"`
		ContentGuidelines string      `json:"content_guidelines"`
	} `json:"metadata"`
}

func (r *promptRecord) toStoryPrompt() story.StoryPrompt {
	m := r.Metadata
	p := story.StoryPrompt{
		ID:                r.ID,
		Name:              m.PromptName,
		TemplateID:        string(m.Template),
		PromptTemplate:    m.AIPromptTemplate,
		MaxTokens:         story.DefaultMaxTokens,
		StyleInstructions: m.StyleInstructions,
		ContentGuidelines: m.ContentGuidelines,
	}
	if p.Name == "" {
		p.Name = r.Title
	}
	if m.MaxTokens != nil && *m.MaxTokens > 0 {
		p.MaxTokens = *m.MaxTokens
	}
	return p
}

type settingsRecord struct {
	Metadata struct {
		SiteTitle              string `json:"site_title"`
		SiteDescription        string `json:"site_description"`
		AgeVerificationMessage string `json:"age_verification_message"`
		ContentWarning         string `json:"content_warning"`
		SocialSharingEnabled   *bool  `json:"social_sharing_enabled"`
		SocialShareText        string `json:"social_share_text"`
		FooterText             string `json:"footer_text"`
	} `json:"metadata"`
}

func (r *settingsRecord) toSiteSettings() story.SiteSettings {
	m := r.Metadata
	s := story.SiteSettings{
		SiteTitle:              m.SiteTitle,
		SiteDescription:        m.SiteDescription,
		AgeVerificationMessage: m.AgeVerificationMessage,
		ContentWarning:         m.ContentWarning,
		SocialShareText:        m.SocialShareText,
		FooterText:             m.FooterText,
	}
	if m.SocialSharingEnabled != nil {
		s.SocialSharingEnabled = *m.SocialSharingEnabled
	}
	return s
}
