package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{Validation("rating", "must be between 0 and 5"), http.StatusBadRequest},
		{InvalidTransition("suspended", "suspend"), http.StatusUnprocessableEntity},
		{NotFound("driver", "42"), http.StatusNotFound},
		{Conflict("driver", "42"), http.StatusConflict},
		{Storage("driver lookup", errors.New("connection reset")), http.StatusInternalServerError},
		{errors.New("anything else"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := HTTPStatus(tt.err); got != tt.want {
			t.Errorf("HTTPStatus(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestHTTPStatusSeesWrappedErrors(t *testing.T) {
	wrapped := fmt.Errorf("transition failed: %w", InvalidTransition("banned", "reactivate"))
	if got := HTTPStatus(wrapped); got != http.StatusUnprocessableEntity {
		t.Fatalf("HTTPStatus(wrapped) = %d, want 422", got)
	}
}

func TestStorageErrorUnwraps(t *testing.T) {
	cause := errors.New("deadlock detected")
	err := Storage("driver update", cause)
	if !errors.Is(err, cause) {
		t.Fatal("StorageError must unwrap to its cause")
	}
}

func TestValidationErrorMessage(t *testing.T) {
	err := Validation("peak_start_hour", "must be between 0 and 23")
	want := "validation failed on peak_start_hour: must be between 0 and 23"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
