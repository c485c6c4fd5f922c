package model

import (
	"fmt"
	"strings"
)

// ValidationError holds a list of field-level validation errors.
type ValidationError struct {
	Errors []FieldError
}

// FieldError represents a single validation failure on a named field.
type FieldError struct {
	Field   string
	Message string
}

// Error formats the validation error as a semicolon-separated list of field messages.
func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		parts[i] = fe.Field + ": " + fe.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// HasErrors reports whether the validation error contains any field errors.
func (e *ValidationError) HasErrors() bool {
	return len(e.Errors) > 0
}

// ValidateProfile checks a stored operator profile.
// It returns a *ValidationError if any rules fail, or nil if the profile is usable.
func ValidateProfile(p *Profile) error {
	var ve ValidationError

	if strings.TrimSpace(p.ID) == "" {
		ve.Errors = append(ve.Errors, FieldError{Field: "id", Message: "is required"})
	}
	if strings.TrimSpace(p.Username) == "" {
		ve.Errors = append(ve.Errors, FieldError{Field: "username", Message: "is required"})
	}
	if p.Role == "" {
		ve.Errors = append(ve.Errors, FieldError{Field: "role", Message: "is required"})
	} else if !p.Role.IsValid() {
		ve.Errors = append(ve.Errors, FieldError{
			Field:   "role",
			Message: fmt.Sprintf("invalid value %q", p.Role),
		})
	}

	if ve.HasErrors() {
		return &ve
	}
	return nil
}
