// internal/workers/story/generate-story/models.go
package generatestory

import "madlibs-stories/internal/story"

// Input is read from the job variables. Either TemplateSlug or
// PromptTemplate must be set.
type Input struct {
	TemplateSlug   string        `json:"templateSlug,omitempty"`
	PromptTemplate string        `json:"promptTemplate,omitempty"`
	Answers        story.Answers `json:"answers"`
	MaxTokens      int           `json:"maxTokens,omitempty"`
}

type Output struct {
	Story        string      `json:"story"`
	Usage        story.Usage `json:"usage"`
	TemplateSlug string      `json:"templateSlug,omitempty"`
}
