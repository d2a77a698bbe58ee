package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	apperrors "madlibs-stories/internal/common/errors"
	"madlibs-stories/internal/common/logger"
	"madlibs-stories/internal/story"

	"github.com/gin-gonic/gin"
)

// ReadinessCheck reports whether a dependency can serve traffic.
type ReadinessCheck func(ctx context.Context) error

type Handler struct {
	orchestrator *story.Orchestrator
	catalog      *story.Catalog
	checks       map[string]ReadinessCheck
	logger       logger.Logger
}

func NewHandler(orchestrator *story.Orchestrator, catalog *story.Catalog, checks map[string]ReadinessCheck, log logger.Logger) *Handler {
	return &Handler{
		orchestrator: orchestrator,
		catalog:      catalog,
		checks:       checks,
		logger:       log.WithFields(map[string]interface{}{"component": "api"}),
	}
}

// GenerateStoryRequest is the body of POST /api/generate-story.
type GenerateStoryRequest struct {
	PromptTemplate string        `json:"promptTemplate"`
	Answers        story.Answers `json:"answers"`
	MaxTokens      *int          `json:"maxTokens,omitempty"`
	TemplateSlug   string        `json:"templateSlug,omitempty"`
}

type templateStoryRequest struct {
	Answers story.Answers `json:"answers"`
}

// GenerateStory substitutes answers into a caller-supplied prompt template and
// returns the generated story. With templateSlug set the answers are
// validated against that template's questions first.
func (h *Handler) GenerateStory(c *gin.Context) {
	var req GenerateStoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, apperrors.NewMalformedInputError(err))
		return
	}

	var missing []string
	if req.PromptTemplate == "" {
		missing = append(missing, "promptTemplate")
	}
	if req.Answers == nil {
		missing = append(missing, "answers")
	}
	if len(missing) > 0 {
		h.respondError(c, apperrors.NewMissingInputError(missing...))
		return
	}

	maxTokens := 0
	if req.MaxTokens != nil {
		maxTokens = *req.MaxTokens
	}
	if maxTokens > story.MaxTokensLimit {
		h.respondError(c, apperrors.NewValidationFailedError([]string{story.MaxTokensError()}))
		return
	}

	ctx := c.Request.Context()
	var tmpl story.Template
	if slug := strings.TrimSpace(req.TemplateSlug); slug != "" {
		t, err := h.catalog.Questions(ctx, slug)
		if err != nil {
			h.respondError(c, err)
			return
		}
		tmpl = *t
	}

	result, err := h.orchestrator.GenerateStory(ctx, tmpl, req.Answers, req.PromptTemplate, maxTokens)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondOK(c, StoryResponse{Story: result.Text, Usage: result.Usage})
}

// GenerateTemplateStory runs the full server-side flow for a stored template.
func (h *Handler) GenerateTemplateStory(c *gin.Context) {
	var req templateStoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, apperrors.NewMalformedInputError(err))
		return
	}
	if req.Answers == nil {
		h.respondError(c, apperrors.NewMissingInputError("answers"))
		return
	}

	result, err := h.orchestrator.GenerateForSlug(c.Request.Context(), c.Param("slug"), req.Answers)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondOK(c, StoryResponse{Story: result.Text, Usage: result.Usage})
}

func (h *Handler) ListTemplates(c *gin.Context) {
	featured, _ := strconv.ParseBool(c.Query("featured"))

	templates, err := h.catalog.Templates(c.Request.Context(), featured)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondOK(c, TemplatesResponse{Templates: templates})
}

func (h *Handler) GetTemplate(c *gin.Context) {
	detail, err := h.catalog.Template(c.Request.Context(), c.Param("slug"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondOK(c, detail)
}

func (h *Handler) GetSettings(c *gin.Context) {
	settings, err := h.catalog.Settings(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondOK(c, settings)
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// Ready runs every readiness check and reports 503 if any fails.
func (h *Handler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	failed := make(map[string]string)
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			failed[name] = err.Error()
		}
	}

	if len(failed) > 0 {
		h.logger.Warn("readiness check failed", map[string]interface{}{"checks": failed})
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"checks": failed,
			"time":   time.Now().Format(time.RFC3339),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Format(time.RFC3339),
	})
}
