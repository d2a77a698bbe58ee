package api

import (
	"net/http"

	apperrors "madlibs-stories/internal/common/errors"
	"madlibs-stories/internal/story"

	"github.com/gin-gonic/gin"
)

// ErrorResponse is the body of every failed request. Error is the user-facing
// message; internal causes never appear here.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type StoryResponse struct {
	Story string      `json:"story"`
	Usage story.Usage `json:"usage"`
}

type TemplatesResponse struct {
	Templates []story.Template `json:"templates"`
}

func respondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

func (h *Handler) respondError(c *gin.Context, err error) {
	stdErr := apperrors.Normalize(err)
	status := apperrors.HTTPStatus(stdErr.Code)

	fields := map[string]interface{}{
		"requestId": story.RequestIDFrom(c.Request.Context()),
		"route":     c.FullPath(),
		"errorCode": stdErr.Code,
		"details":   stdErr.Details,
		"status":    status,
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", fields)
	} else {
		h.logger.Info("request rejected", fields)
	}

	c.AbortWithStatusJSON(status, ErrorResponse{
		Error: stdErr.Message,
		Code:  string(stdErr.Code),
	})
}
