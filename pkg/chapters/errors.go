package chapters

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrUnauthenticated means no caller identity was supplied
	ErrUnauthenticated = errors.New("authentication required")

	// ErrSchoolNotFound means the target school is missing or inactive
	ErrSchoolNotFound = errors.New("school not found")

	// ErrAssignmentNotFound means the target assignment is missing
	ErrAssignmentNotFound = errors.New("chapter admin assignment not found")

	// ErrDuplicateAssignment is returned by Store.CreateAssignment when a row
	// for the (user, school) pair already exists
	ErrDuplicateAssignment = errors.New("chapter admin assignment already exists")
)

// AccessDeniedError is returned when the caller's role is not allowed to act
type AccessDeniedError struct {
	RequiredRoles []Role
	Reason        string
}

func (e *AccessDeniedError) Error() string {
	if e.Reason != "" {
		return e.Reason
	}
	return "access denied: requires one of " + joinRoles(e.RequiredRoles)
}

func denied(reason string, roles ...Role) *AccessDeniedError {
	return &AccessDeniedError{RequiredRoles: roles, Reason: reason}
}

// ValidationError reports malformed input, keyed by field name
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError builds a ValidationError for a single field
func NewValidationError(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

func (e *ValidationError) add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	e.Fields[field] = msg
}

func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
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

// DependencyError wraps a failed persistence or identity provider call
type DependencyError struct {
	Op  string
	Err error
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *DependencyError) Unwrap() error {
	return e.Err
}

func dependency(op string, err error) error {
	var de *DependencyError
	if errors.As(err, &de) {
		return err
	}
	return &DependencyError{Op: op, Err: err}
}

// IsAccessDenied reports whether err is an AccessDeniedError
func IsAccessDenied(err error) bool {
	var ade *AccessDeniedError
	return errors.As(err, &ade)
}

// IsValidation reports whether err is a ValidationError
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsDependency reports whether err is a DependencyError
func IsDependency(err error) bool {
	var de *DependencyError
	return errors.As(err, &de)
}
