package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	apperrors "madlibs-stories/internal/common/errors"
	"madlibs-stories/internal/common/logger"
	"madlibs-stories/internal/story"
)

const (
	templateColumns = `id, slug, name, description, theme, difficulty, questions, active, featured`

	queryTemplateBySlug = `SELECT ` + templateColumns + ` FROM madlibs_templates WHERE slug = $1`
	queryTemplates      = `SELECT ` + templateColumns + ` FROM madlibs_templates ORDER BY position, name`
	queryPrompt         = `SELECT id, name, template_id, prompt_template, max_tokens, style_instructions, content_guidelines FROM story_prompts WHERE template_id = $1 LIMIT 1`
	querySettings       = `SELECT site_title, site_description, age_verification_message, content_warning, social_sharing_enabled, social_share_text, footer_text FROM site_settings LIMIT 1`
)

// PostgresSource reads the authoring tables of a Postgres mirror.
type PostgresSource struct {
	db     *sql.DB
	logger logger.Logger
}

var _ story.TemplateSource = (*PostgresSource)(nil)

func NewPostgresSource(db *sql.DB, log logger.Logger) *PostgresSource {
	return &PostgresSource{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "postgres-source"}),
	}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTemplate(row rowScanner) (*story.Template, error) {
	var (
		t           story.Template
		description sql.NullString
		difficulty  sql.NullString
		questions   []byte
	)
	if err := row.Scan(&t.ID, &t.Slug, &t.Name, &description, &t.Theme, &difficulty, &questions, &t.Active, &t.Featured); err != nil {
		return nil, err
	}
	t.Description = description.String
	t.Difficulty = story.Difficulty(difficulty.String)

	if len(questions) > 0 {
		if err := json.Unmarshal(questions, &t.Questions); err != nil {
			return nil, apperrors.NewInvalidTemplateRecordError(fmt.Sprintf("template %s: questions: %v", t.Slug, err))
		}
	}
	for i := range t.Questions {
		if t.Questions[i].Type == "" {
			t.Questions[i].Type = story.QuestionText
		}
	}
	if err := t.Validate(); err != nil {
		return nil, apperrors.NewInvalidTemplateRecordError(err.Error())
	}
	return &t, nil
}

func (s *PostgresSource) FetchTemplate(ctx context.Context, slug string) (*story.Template, error) {
	t, err := scanTemplate(s.db.QueryRowContext(ctx, queryTemplateBySlug, slug))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("template %q: %w", slug, story.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (s *PostgresSource) FetchPromptForTemplate(ctx context.Context, templateID string) (*story.StoryPrompt, error) {
	var (
		p         story.StoryPrompt
		name      sql.NullString
		maxTokens sql.NullInt64
		style     sql.NullString
		content   sql.NullString
	)
	err := s.db.QueryRowContext(ctx, queryPrompt, templateID).
		Scan(&p.ID, &name, &p.TemplateID, &p.PromptTemplate, &maxTokens, &style, &content)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("prompt for template %q: %w", templateID, story.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	p.Name = name.String
	p.StyleInstructions = style.String
	p.ContentGuidelines = content.String
	p.MaxTokens = story.DefaultMaxTokens
	if maxTokens.Valid && maxTokens.Int64 > 0 {
		p.MaxTokens = int(maxTokens.Int64)
	}
	return &p, nil
}

// ListTemplates returns every row that forms a valid template. Invalid rows are
// skipped with a warning.
func (s *PostgresSource) ListTemplates(ctx context.Context) ([]story.Template, error) {
	rows, err := s.db.QueryContext(ctx, queryTemplates)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []story.Template
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			var stdErr *apperrors.StandardError
			if apperrors.As(err, &stdErr) {
				s.logger.Warn("skipping invalid template row", map[string]interface{}{"details": stdErr.Details})
				continue
			}
			return nil, err
		}
		out = append(out, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *PostgresSource) FetchSiteSettings(ctx context.Context) (*story.SiteSettings, error) {
	var (
		st                                                    story.SiteSettings
		title, description, ageMsg, warning, shareText, footer sql.NullString
	)
	err := s.db.QueryRowContext(ctx, querySettings).
		Scan(&title, &description, &ageMsg, &warning, &st.SocialSharingEnabled, &shareText, &footer)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("site settings: %w", story.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	st.SiteTitle = title.String
	st.SiteDescription = description.String
	st.AgeVerificationMessage = ageMsg.String
	st.ContentWarning = warning.String
	st.SocialShareText = shareText.String
	st.FooterText = footer.String
	return &st, nil
}
