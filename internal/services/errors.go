package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrInvalidCredentials is returned when an email/password pair does
// not resolve to an active user. Callers must not learn which part of
// the pair was wrong.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ValidationError reports malformed or missing input. Fields maps a
// field name to a human-readable message.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s: %s", name, e.Fields[name]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func invalidField(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}
