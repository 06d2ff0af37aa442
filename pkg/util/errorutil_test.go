package util

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"
)

func TestErrorTaxonomyStatusCodes(t *testing.T) {
	cases := []struct {
		err    error
		code   string
		status int
	}{
		{NewValidationError("bad input", nil), "VALIDATION_FAILED", http.StatusBadRequest},
		{NewInvalidState("cannot comment on closed ticket"), "INVALID_STATE", http.StatusBadRequest},
		{NewNotFound("ticket", nil), "NOT_FOUND", http.StatusNotFound},
		{NewUnauthorized("invalid credentials"), "UNAUTHORIZED", http.StatusUnauthorized},
		{NewAccessDenied(), "ACCESS_DENIED", http.StatusForbidden},
		{NewForbidden("agent role required"), "FORBIDDEN", http.StatusForbidden},
		{NewConflict("duplicate", nil), "CONFLICT", http.StatusConflict},
		{NewInternalError(errors.New("boom")), "INTERNAL_ERROR", http.StatusInternalServerError},
	}
	for _, tc := range cases {
		domainErr := ToDomainError(tc.err)
		require.Equal(t, tc.code, domainErr.Code)
		require.Equal(t, tc.status, domainErr.HTTPStatus)
	}
}

func TestToDomainErrorMapsNoRows(t *testing.T) {
	domainErr := ToDomainError(pgx.ErrNoRows)
	require.Equal(t, "NOT_FOUND", domainErr.Code)
	require.Equal(t, http.StatusNotFound, domainErr.HTTPStatus)

	wrapped := fmt.Errorf("loading ticket: %w", pgx.ErrNoRows)
	require.Equal(t, "NOT_FOUND", ToDomainError(wrapped).Code)
}

func TestToDomainErrorUnknownIsInternal(t *testing.T) {
	domainErr := ToDomainError(errors.New("disk on fire"))
	require.Equal(t, "INTERNAL_ERROR", domainErr.Code)
	require.Equal(t, http.StatusInternalServerError, domainErr.HTTPStatus)
	// The internal cause stays out of the client-facing message.
	require.Equal(t, "internal server error", domainErr.Message)
}

func TestDomainErrorUnwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := NewInternalError(cause)
	require.True(t, errors.Is(err, cause))
}

func TestMapErrorPassesDomainErrorsThrough(t *testing.T) {
	original := NewInvalidState("closed tickets cannot be reopened")
	mapped := MapError(original)
	require.Equal(t, original, mapped)
	require.Nil(t, MapError(nil))
}
