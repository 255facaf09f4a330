package errorutil

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestToDomainError(t *testing.T) {
	t.Run("nil stays nil", func(t *testing.T) {
		if got := ToDomainError(nil); got != nil {
			t.Errorf("Expected nil, got %v", got)
		}
	})

	t.Run("wrapped domain error is preserved", func(t *testing.T) {
		wrapped := fmt.Errorf("context: %w", NewForbidden("nope"))
		got := ToDomainError(wrapped)
		if got.Code != CodeForbidden || got.HTTPStatus != http.StatusForbidden {
			t.Errorf("Expected FORBIDDEN/403, got %s/%d", got.Code, got.HTTPStatus)
		}
	})

	t.Run("sql no rows becomes not found", func(t *testing.T) {
		got := ToDomainError(sql.ErrNoRows)
		if got.Code != CodeNotFound {
			t.Errorf("Expected NOT_FOUND, got %s", got.Code)
		}
	})

	t.Run("unknown error becomes internal", func(t *testing.T) {
		cause := errors.New("boom")
		got := ToDomainError(cause)
		if got.Code != CodeInternal || !errors.Is(got, cause) {
			t.Errorf("Expected INTERNAL_ERROR wrapping cause, got %v", got)
		}
	})
}

func TestStatusMapping(t *testing.T) {
	cases := []struct {
		err    error
		code   string
		status int
	}{
		{NewInvalidRequest("bad", nil), CodeInvalidRequest, http.StatusBadRequest},
		{NewNothingToUpdate(), CodeInvalidRequest, http.StatusBadRequest},
		{NewNotFound("ticket", nil), CodeNotFound, http.StatusNotFound},
		{NewUnauthorized("who"), CodeUnauthorized, http.StatusUnauthorized},
		{NewForbidden("no"), CodeForbidden, http.StatusForbidden},
		{NewConflict("dup", nil), CodeConflict, http.StatusConflict},
		{NewStoreFailure(errors.New("db down")), CodeStoreFailure, http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.code, func(t *testing.T) {
			if !HasCode(tc.err, tc.code) {
				t.Errorf("Expected code %s, got %v", tc.code, tc.err)
			}
			if got := ToDomainError(tc.err).HTTPStatus; got != tc.status {
				t.Errorf("Expected status %d, got %d", tc.status, got)
			}
		})
	}
}

func TestStoreFailureHidesCause(t *testing.T) {
	err := NewStoreFailure(errors.New("password=secret"))
	if msg := ToDomainError(err).Message; msg != "storage unavailable" {
		t.Errorf("Expected opaque message, got %q", msg)
	}
}
