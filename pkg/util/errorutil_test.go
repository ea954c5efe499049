package util

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestToDomainError(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		code   string
		status int
	}{
		{"domain error passes through", NewConflict("taken", nil), CodeConflict, http.StatusConflict},
		{"wrapped domain error", fmt.Errorf("register: %w", NewAccountLocked(nil)), CodeAccountLocked, http.StatusForbidden},
		{"no rows", pgx.ErrNoRows, CodeNotFound, http.StatusNotFound},
		{"unique violation", &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"}, CodeConflict, http.StatusConflict},
		{"malformed uuid key", &pgconn.PgError{Code: "22P02", Message: `invalid input syntax for type uuid: "abc"`}, CodeNotFound, http.StatusNotFound},
		{"unknown", errors.New("connection reset by peer"), CodeInternal, http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ToDomainError(tc.err)
			assert.Equal(t, tc.code, got.Code)
			assert.Equal(t, tc.status, got.HTTPStatus)
		})
	}
}

func TestInternalErrorHidesCause(t *testing.T) {
	got := ToDomainError(errors.New("pq: password authentication failed"))
	assert.Equal(t, "internal server error", got.Message)
}

func TestIsCode(t *testing.T) {
	assert.True(t, IsCode(NewTokenExpired("expired"), CodeTokenExpired))
	assert.False(t, IsCode(NewTokenExpired("expired"), CodeInvalidToken))
	assert.False(t, IsCode(errors.New("plain"), CodeInternal))
	assert.Nil(t, ToDomainError(nil))
}
