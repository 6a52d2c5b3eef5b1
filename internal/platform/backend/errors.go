package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// unknownErrorMessage is the final fallback shown to the operator.
const unknownErrorMessage = "Неизвестная ошибка"

// ValidationItem is one entry of the API's structured validation-error list.
type ValidationItem struct {
	Loc  []json.RawMessage `json:"loc"`
	Msg  string            `json:"msg"`
	Type string            `json:"type"`
}

// APIError is a non-2xx response from the remote API. Detail carries a plain
// message, Validation the field-level list; at most one of them is set.
type APIError struct {
	StatusCode int
	Detail     string
	Validation []ValidationItem
}

func (e *APIError) Error() string {
	if msg := e.message(); msg != "" {
		return msg
	}
	return fmt.Sprintf("api error: %s", http.StatusText(e.StatusCode))
}

// NotFound reports whether the error is a 404.
func (e *APIError) NotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

func (e *APIError) message() string {
	if len(e.Validation) > 0 {
		msgs := make([]string, 0, len(e.Validation))
		for _, item := range e.Validation {
			if item.Msg != "" {
				msgs = append(msgs, item.Msg)
			}
		}
		if len(msgs) > 0 {
			return strings.Join(msgs, "; ")
		}
	}
	return e.Detail
}

// decodeAPIError interprets the heterogeneous error body: a detail that is
// either a plain string or a validation-item list. Unparseable bodies still
// produce a usable error carrying the status code.
func decodeAPIError(statusCode int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: statusCode}

	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Detail) == 0 {
		return apiErr
	}

	var detail string
	if err := json.Unmarshal(envelope.Detail, &detail); err == nil {
		apiErr.Detail = detail
		return apiErr
	}

	var items []ValidationItem
	if err := json.Unmarshal(envelope.Detail, &items); err == nil {
		apiErr.Validation = items
	}
	return apiErr
}

// AsAPIError unwraps err to the remote failure it carries, if any.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// Message maps any error to a single human-readable string. It never panics:
// structured validation lists join with "; ", plain details and transport
// messages pass through, and anything else falls back to a fixed string.
func Message(err error) string {
	if err == nil {
		return unknownErrorMessage
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if msg := apiErr.message(); msg != "" {
			return msg
		}
		return apiErr.Error()
	}

	if msg := err.Error(); msg != "" {
		return msg
	}
	return unknownErrorMessage
}
