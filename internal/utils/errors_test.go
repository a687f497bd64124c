package utils

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestToAppError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"not found", fmt.Errorf("application abc: %w", ErrNotFound), http.StatusNotFound},
		{"extraction", fmt.Errorf("document d1: %w", ErrExtractionUnavailable), http.StatusUnprocessableEntity},
		{"app error passthrough", NewBadRequestError("bad"), http.StatusBadRequest},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToAppError(tt.err)
			if got.StatusCode != tt.status {
				t.Fatalf("expected status %d, got %d", tt.status, got.StatusCode)
			}
		})
	}

	if ToAppError(nil) != nil {
		t.Fatalf("expected nil for nil error")
	}
}

func TestNotFoundErrorUnwraps(t *testing.T) {
	t.Parallel()

	err := NewNotFoundError("Document not found")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found error to unwrap to ErrNotFound")
	}
}
