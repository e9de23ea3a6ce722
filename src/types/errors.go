package types

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies business failures so handlers can map them to HTTP
// statuses without string matching.
type ErrorKind string

const (
	ErrValidation    ErrorKind = "validation"
	ErrNotFound      ErrorKind = "not_found"
	ErrAuthorization ErrorKind = "authorization"
	ErrSuspension    ErrorKind = "suspension"
	ErrConflict      ErrorKind = "conflict"
	ErrCredential    ErrorKind = "credential"
)

type DomainError struct {
	Kind    ErrorKind
	Code    string
	Message string
}

func (e *DomainError) Error() string { return e.Message }

func NewDomainError(kind ErrorKind, code, format string, args ...any) *DomainError {
	return &DomainError{Kind: kind, Code: code, Message: fmt.Sprintf(format, args...)}
}

func IsKind(err error, kind ErrorKind) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Kind == kind
	}
	return false
}

func ErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// HTTPStatus maps a failure to its response status. Unknown errors are
// infrastructure failures and surface as 500.
func HTTPStatus(err error) int {
	var de *DomainError
	if !errors.As(err, &de) {
		return http.StatusInternalServerError
	}
	switch de.Kind {
	case ErrValidation, ErrCredential:
		return http.StatusBadRequest
	case ErrNotFound:
		return http.StatusNotFound
	case ErrAuthorization, ErrSuspension:
		return http.StatusForbidden
	case ErrConflict:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}
