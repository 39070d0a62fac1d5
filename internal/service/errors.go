// Package service provides business logic for the application.
package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Service errors.
var (
	ErrValidation          = errors.New("validation failed")
	ErrDuplicateUser       = errors.New("user already exists")
	ErrInvalidCredentials  = errors.New("email or password is incorrect")
	ErrUserNotFound        = errors.New("user not found")
	ErrUpstreamUnavailable = errors.New("your request could not be processed at this time, try again later")

	// ErrForbidden is the single outward kind for account-scoped
	// authorization failures.
	ErrForbidden        = errors.New("access to resource denied")
	ErrResourceNotFound = fmt.Errorf("%w: resource does not exist", ErrForbidden)
	ErrAccessDenied     = fmt.Errorf("%w: resource belongs to another user", ErrForbidden)
)

// Validation codes reported per field.
const (
	CodeRequired     = "required"
	CodeInvalidEmail = "invalid_email"
	CodeTooLong      = "too_long"
)

// ValidationError lists the fields that failed validation.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return ErrValidation.Error()
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return ErrValidation.Error() + ": " + strings.Join(parts, ", ")
}

// Is makes errors.Is(err, ErrValidation) true for any ValidationError.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// add records the first failure for field.
func (e *ValidationError) add(field, code string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if _, exists := e.Fields[field]; !exists {
		e.Fields[field] = code
	}
}

// err returns e, or nil when no field failed.
func (e *ValidationError) err() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}
