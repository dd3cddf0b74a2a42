package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

/*
APIError is an error that knows how it should be reported over HTTP. The
service layer maps any APIError to its Status and renders Message as JSON, all
other errors become a 500.
*/
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}

	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

/*
Is matches on Code so sentinel values can be compared with errors.Is after
WithMessagef or Wrap produced a copy.
*/
func (e *APIError) Is(target error) bool {
	t, ok := target.(*APIError)
	return ok && t.Code == e.Code
}

var (
	ErrAgentNotFound    = &APIError{Status: http.StatusNotFound, Code: "agent_not_found", Message: "agent not found"}
	ErrSessionNotFound  = &APIError{Status: http.StatusNotFound, Code: "session_not_found", Message: "session not found"}
	ErrSessionExists    = &APIError{Status: http.StatusConflict, Code: "session_exists", Message: "session already exists"}
	ErrArtifactNotFound = &APIError{Status: http.StatusNotFound, Code: "artifact_not_found", Message: "artifact not found"}
	ErrPromptNotFound   = &APIError{Status: http.StatusNotFound, Code: "prompt_not_found", Message: "prompt not found"}
	ErrToolNotFound     = &APIError{Status: http.StatusBadRequest, Code: "tool_not_found", Message: "tool not found"}
	ErrInvalidRequest   = &APIError{Status: http.StatusBadRequest, Code: "invalid_request", Message: "invalid request"}
	ErrUnauthorized     = &APIError{Status: http.StatusUnauthorized, Code: "unauthorized", Message: "unauthorized"}
	ErrRateLimited      = &APIError{Status: http.StatusTooManyRequests, Code: "rate_limited", Message: "rate limit exceeded"}
	ErrMissingProvider  = &APIError{Status: http.StatusInternalServerError, Code: "missing_provider", Message: "no model provider configured"}
	ErrMissingAPIKey    = &APIError{Status: http.StatusInternalServerError, Code: "missing_api_key", Message: "api key not configured"}
	ErrInternal         = &APIError{Status: http.StatusInternalServerError, Code: "internal", Message: "internal error"}
)

// WithMessagef returns a copy of e with a formatted message.
func (e *APIError) WithMessagef(format string, args ...any) *APIError {
	newErr := *e
	newErr.Message = fmt.Sprintf(format, args...)
	return &newErr
}

// Wrap returns a copy of e carrying err as its cause.
func (e *APIError) Wrap(err error) *APIError {
	newErr := *e
	newErr.Err = err
	return &newErr
}

/*
StatusOf returns the HTTP status an error should be reported with.
*/
func StatusOf(err error) int {
	var apiErr *APIError

	if stderrors.As(err, &apiErr) {
		return apiErr.Status
	}

	return http.StatusInternalServerError
}

// Is and As re-export the standard library helpers so callers only need one
// errors import.
func Is(err, target error) bool { return stderrors.Is(err, target) }

func As(err error, target any) bool { return stderrors.As(err, target) }
