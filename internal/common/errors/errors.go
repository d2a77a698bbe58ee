// Package errors provides the story service error taxonomy and its mapping to
// HTTP responses and BPMN job errors.
package errors

import (
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeMissingInput      ErrorCode = "MISSING_INPUT"
	ErrCodeValidationFailed  ErrorCode = "VALIDATION_FAILED"
	ErrCodePromptUnavailable ErrorCode = "PROMPT_UNAVAILABLE"
	ErrCodeGenerationFailed  ErrorCode = "GENERATION_FAILED"

	ErrCodeTemplateNotFound      ErrorCode = "TEMPLATE_NOT_FOUND"
	ErrCodeTemplateSourceFailed  ErrorCode = "TEMPLATE_SOURCE_FAILED"
	ErrCodeInvalidTemplateRecord ErrorCode = "INVALID_TEMPLATE_RECORD"

	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// User-facing messages. Details never reach the caller.
const (
	MsgMissingInput      = "Missing required fields"
	MsgPromptUnavailable = "Story prompt not available for this template"
	MsgGenerationFailed  = "Failed to generate story. Please try again."
	MsgTemplateNotFound  = "Template not found"
	MsgSourceFailed      = "Story templates are temporarily unavailable"
	MsgInternal          = "Something went wrong. Please try again."
)

// StandardError represents a structured application error. Message is safe to
// show to end users; Details carries the internal cause for logs only.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"-"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	cause     error
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error { return e.cause }

// Is matches on code so errors.Is(err, &StandardError{Code: X}) works.
func (e *StandardError) Is(target error) bool {
	t, ok := target.(*StandardError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

func newError(code ErrorCode, message, details string, cause error) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
}

// NewMissingInputError rejects a request before any component runs.
func NewMissingInputError(fields ...string) *StandardError {
	return newError(ErrCodeMissingInput, MsgMissingInput, "missing: "+strings.Join(fields, ", "), nil)
}

// NewMalformedInputError rejects a body that could not be decoded. The decode
// error is kept in Details for the logs.
func NewMalformedInputError(cause error) *StandardError {
	return newError(ErrCodeMissingInput, MsgMissingInput, "malformed body: "+cause.Error(), cause)
}

// NewValidationFailedError carries the first validator message as the
// user-facing message and the full list as metadata.
func NewValidationFailedError(messages []string) *StandardError {
	first := "Validation error occurred"
	if len(messages) > 0 && messages[0] != "" {
		first = messages[0]
	}
	e := newError(ErrCodeValidationFailed, first, strings.Join(messages, "; "), nil)
	e.Metadata = map[string]interface{}{"errors": messages}
	return e
}

func NewPromptUnavailableError(templateID string) *StandardError {
	return newError(ErrCodePromptUnavailable, MsgPromptUnavailable, fmt.Sprintf("templateId: %s", templateID), nil)
}

// NewGenerationFailedError hides cause behind the generic message.
func NewGenerationFailedError(cause error) *StandardError {
	details := "no cause"
	if cause != nil {
		details = cause.Error()
	}
	return newError(ErrCodeGenerationFailed, MsgGenerationFailed, details, cause)
}

func NewTemplateNotFoundError(slug string) *StandardError {
	return newError(ErrCodeTemplateNotFound, MsgTemplateNotFound, fmt.Sprintf("slug: %s", slug), nil)
}

func NewTemplateSourceFailedError(cause error) *StandardError {
	e := newError(ErrCodeTemplateSourceFailed, MsgSourceFailed, cause.Error(), cause)
	e.Retryable = true
	return e
}

func NewInvalidTemplateRecordError(details string) *StandardError {
	return newError(ErrCodeInvalidTemplateRecord, MsgSourceFailed, details, nil)
}

// Normalize converts any error into a StandardError without leaking its text
// into Message.
func Normalize(err error) *StandardError {
	if err == nil {
		return nil
	}
	var stdErr *StandardError
	if As(err, &stdErr) {
		return stdErr
	}
	return newError(ErrCodeInternal, MsgInternal, err.Error(), err)
}

// HTTPStatus maps an error code to the status returned by the API.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeMissingInput:
		return http.StatusBadRequest
	case ErrCodeValidationFailed:
		return http.StatusUnprocessableEntity
	case ErrCodeTemplateNotFound, ErrCodePromptUnavailable:
		return http.StatusNotFound
	case ErrCodeGenerationFailed:
		return http.StatusBadGateway
	case ErrCodeTemplateSourceFailed, ErrCodeInvalidTemplateRecord:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// GetRetryCount returns how many engine retries a code is worth. Story
// generation is one-shot, so only source outages are retried.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeTemplateSourceFailed:
		return 2
	default:
		return 0
	}
}

// ConvertToBPMNError converts a StandardError for the workflow engine.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      string(stdErr.Code),
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

func GetErrorCategory(code ErrorCode) string {
	switch code {
	case ErrCodeMissingInput, ErrCodeValidationFailed:
		return "VALIDATION"
	case ErrCodeTemplateNotFound, ErrCodePromptUnavailable, ErrCodeTemplateSourceFailed, ErrCodeInvalidTemplateRecord:
		return "TEMPLATE"
	case ErrCodeGenerationFailed:
		return "AI"
	default:
		return "OTHER"
	}
}
