package backend

import (
	"errors"
	"fmt"
	"testing"
)

func TestMessage_PlainError(t *testing.T) {
	if got := Message(errors.New("connection refused")); got != "connection refused" {
		t.Errorf("Message = %q", got)
	}
}

func TestMessage_WrappedAPIError(t *testing.T) {
	apiErr := &APIError{StatusCode: 409, Detail: "visit overlaps"}
	wrapped := fmt.Errorf("update visit: %w", apiErr)
	if got := Message(wrapped); got != "visit overlaps" {
		t.Errorf("Message = %q, want detail of the wrapped APIError", got)
	}
}

func TestMessage_NilFallsBack(t *testing.T) {
	if got := Message(nil); got != unknownErrorMessage {
		t.Errorf("Message(nil) = %q", got)
	}
}

func TestAPIError_NotFound(t *testing.T) {
	if !(&APIError{StatusCode: 404}).NotFound() {
		t.Error("404 must report NotFound")
	}
	if (&APIError{StatusCode: 422}).NotFound() {
		t.Error("422 must not report NotFound")
	}
}
