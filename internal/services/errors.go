package services

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/desertthunder/playsum/internal/shared"
)

// RateLimitedMessage is shown for any 429 that is not a job limit.
const RateLimitedMessage = "Too many requests. Please wait a moment and try again."

// ProblemDetails is an RFC 7807 error body.
type ProblemDetails struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail"`
	Instance string `json:"instance,omitempty"`
}

// APIError is a non-2xx response from the server.
type APIError struct {
	Status    int
	Message   string
	Problem   *ProblemDetails
	RequestID string

	kind error
}

func (e *APIError) Error() string {
	return e.Message
}

// Unwrap returns the taxonomy sentinel for the response.
func (e *APIError) Unwrap() error {
	return e.kind
}

// IsRateLimited reports whether the server throttled the request.
func (e *APIError) IsRateLimited() bool {
	return e.Status == http.StatusTooManyRequests
}

// PublicTimeoutError is returned when an anonymous summarize request exceeds the server's synchronous budget.
// Signing in switches to background processing, which has no such limit.
type PublicTimeoutError struct {
	APIError
}

func (e *PublicTimeoutError) Error() string {
	return e.Message
}

func (e *PublicTimeoutError) Unwrap() []error {
	return []error{shared.ErrPublicTimeout, &e.APIError}
}

// JobLimitError is returned when the caller already has the maximum number of active jobs.
type JobLimitError struct {
	APIError
	Limit int
}

func (e *JobLimitError) Error() string {
	return fmt.Sprintf("you already have %d jobs in progress; wait for one to finish or delete one", e.Limit)
}

func (e *JobLimitError) Unwrap() []error {
	return []error{shared.ErrJobLimit, &e.APIError}
}

// endpointKind selects status code meanings that differ between endpoints.
type endpointKind int

const (
	endpointDefault endpointKind = iota
	endpointSummarize
	endpointJobMutation
)

// parseErrorResponse extracts a human message and optional problem details from an error body.
func parseErrorResponse(status int, body []byte) (string, *ProblemDetails) {
	if status == http.StatusTooManyRequests {
		return RateLimitedMessage, nil
	}

	message := fmt.Sprintf("HTTP error! status: %d", status)

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return message, nil
	}

	_, hasType := raw["type"]
	_, hasTitle := raw["title"]
	_, hasStatus := raw["status"]
	if hasType && hasTitle && hasStatus {
		var problem ProblemDetails
		if err := json.Unmarshal(body, &problem); err == nil {
			if problem.Detail != "" {
				return problem.Detail, &problem
			}
			if problem.Title != "" {
				return problem.Title, &problem
			}
			return message, &problem
		}
	}

	detail, ok := raw["detail"]
	if !ok {
		return message, nil
	}

	var text string
	if err := json.Unmarshal(detail, &text); err == nil {
		if text != "" {
			return text, nil
		}
		return message, nil
	}

	var validation []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(detail, &validation); err == nil {
		msgs := make([]string, 0, len(validation))
		for _, v := range validation {
			msgs = append(msgs, v.Msg)
		}
		return strings.Join(msgs, ", "), nil
	}

	if string(detail) == "null" {
		return message, nil
	}
	return string(detail), nil
}

// classifyError maps a failed response to the error taxonomy.
func classifyError(kind endpointKind, status int, body []byte, requestID string, jobLimit int) error {
	message, problem := parseErrorResponse(status, body)
	base := APIError{Status: status, Message: message, Problem: problem, RequestID: requestID, kind: shared.ErrAPIRequest}

	if kind == endpointSummarize {
		switch status {
		case http.StatusRequestTimeout:
			base.kind = shared.ErrPublicTimeout
			return &PublicTimeoutError{APIError: base}
		case http.StatusTooManyRequests:
			base.kind = shared.ErrJobLimit
			return &JobLimitError{APIError: base, Limit: jobLimit}
		}
	}

	switch {
	case status == http.StatusNotFound:
		base.kind = shared.ErrNotFound
	case status == http.StatusConflict:
		base.kind = shared.ErrInvalidState
	case status == http.StatusBadRequest && kind == endpointJobMutation:
		base.kind = shared.ErrInvalidState
	case status == http.StatusTooManyRequests:
		base.kind = shared.ErrRateLimited
	case status == http.StatusUnauthorized:
		base.kind = shared.ErrNotAuthenticated
	case status == http.StatusServiceUnavailable || status == http.StatusBadGateway:
		base.kind = shared.ErrServiceUnavailable
	}
	return &base
}
