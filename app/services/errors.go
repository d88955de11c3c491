package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/mmsi/orderdesk/app/repositories"
	"github.com/mmsi/orderdesk/pkg/rbac"
)

var (
	ErrNotFound        = repositories.ErrNotFound
	ErrForbidden       = rbac.ErrForbidden
	ErrInvalidPin      = errors.New("invalid pin")
	ErrAlreadyExecuted = errors.New("breakdown already executed")

	// ErrInvalidCredentials wraps every login failure; the specific
	// errors below say which check failed.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailNotFound      = fmt.Errorf("%w: email not found", ErrInvalidCredentials)
	ErrWrongPassword      = fmt.Errorf("%w: wrong password", ErrInvalidCredentials)
	ErrWrongPin           = fmt.Errorf("%w: wrong pin", ErrInvalidCredentials)
	ErrAccountInactive    = errors.New("account deactivated")
)

// ValidationError carries per-field messages keyed by JSON name.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + e.Fields[k]
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func invalid(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

// validationOf turns validate.Struct output into an error, or nil.
func validationOf(fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: fields}
}
