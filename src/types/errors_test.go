package types

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	cases := map[ErrorKind]int{
		ErrValidation:    http.StatusBadRequest,
		ErrCredential:    http.StatusBadRequest,
		ErrNotFound:      http.StatusNotFound,
		ErrAuthorization: http.StatusForbidden,
		ErrSuspension:    http.StatusForbidden,
		ErrConflict:      http.StatusConflict,
	}
	for kind, status := range cases {
		err := NewDomainError(kind, "some_code", "boom")
		assert.Equalf(t, status, HTTPStatus(err), "kind %s", kind)
	}

	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("db down")))
}

func TestDomainErrorHelpers(t *testing.T) {
	err := NewDomainError(ErrConflict, "insufficient_quantity", "requested %d but only %d available", 5, 2)
	assert.Equal(t, "requested 5 but only 2 available", err.Error())
	assert.Equal(t, "insufficient_quantity", ErrorCode(err))
	assert.True(t, IsKind(err, ErrConflict))
	assert.False(t, IsKind(err, ErrValidation))

	wrapped := fmt.Errorf("transaction failed: %w", err)
	assert.True(t, IsKind(wrapped, ErrConflict))
	assert.Equal(t, "insufficient_quantity", ErrorCode(wrapped))

	assert.Equal(t, "", ErrorCode(errors.New("plain")))
	assert.False(t, IsKind(nil, ErrConflict))
}
