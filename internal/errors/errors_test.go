package errors

import (
	"fmt"
	"net/http"
	"testing"
)

func TestStatusMapping(t *testing.T) {
	cases := []struct {
		err  *ServiceError
		code string
		want int
	}{
		{PermissionDenied("no"), CodePermissionDenied, http.StatusForbidden},
		{Validation("bad %s", "input"), CodeValidation, http.StatusUnprocessableEntity},
		{NotFound("Operation", 42), CodeNotFound, http.StatusNotFound},
		{InvalidTransition("Pending", "Completed"), CodeInvalidTransition, http.StatusConflict},
		{Conflict("dup"), CodeConflict, http.StatusConflict},
		{Unauthorized("nope"), CodeUnauthorized, http.StatusUnauthorized},
		{InvalidToken(nil), CodeInvalidToken, http.StatusUnauthorized},
		{RateLimitExceeded(20, "1s"), CodeRateLimited, http.StatusTooManyRequests},
		{Internal(fmt.Errorf("db gone")), CodeInternal, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if tc.err.Code != tc.code {
			t.Errorf("code = %s, want %s", tc.err.Code, tc.code)
		}
		if tc.err.HTTPStatus != tc.want {
			t.Errorf("%s: status = %d, want %d", tc.code, tc.err.HTTPStatus, tc.want)
		}
	}
}

func TestInvalidTransitionDetails(t *testing.T) {
	err := InvalidTransition("Pending", "Completed")
	if err.Details["from"] != "Pending" || err.Details["to"] != "Completed" {
		t.Errorf("details = %v", err.Details)
	}
}

func TestGetServiceError(t *testing.T) {
	orig := NotFound("Client", 1)
	wrapped := fmt.Errorf("loading client: %w", orig)

	got := GetServiceError(wrapped)
	if got != orig {
		t.Error("wrapped ServiceError must be unwrapped intact")
	}

	plain := GetServiceError(fmt.Errorf("boom"))
	if plain.Code != CodeInternal {
		t.Errorf("unknown errors map to internal, got %s", plain.Code)
	}
}

func TestIsCode(t *testing.T) {
	err := fmt.Errorf("wrap: %w", Validation("bad"))
	if !IsCode(err, CodeValidation) {
		t.Error("IsCode must see through wrapping")
	}
	if IsCode(err, CodeNotFound) {
		t.Error("IsCode must not match other codes")
	}
	if IsCode(nil, CodeValidation) {
		t.Error("nil is no ServiceError")
	}
}

func TestUnwrap(t *testing.T) {
	cause := fmt.Errorf("socket closed")
	err := Internal(cause)
	if err.Unwrap() != cause {
		t.Error("cause must be exposed for errors.Is")
	}
}
