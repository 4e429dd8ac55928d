package validation

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/kbukum/streamdiar/errors"
)

// Validator collects validation errors.
type Validator struct {
	errors []FieldError
}

// FieldError represents a validation error for a specific field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// New creates a new Validator.
func New() *Validator {
	return &Validator{
		errors: make([]FieldError, 0),
	}
}

// AddError adds a field error.
func (v *Validator) AddError(field, message string) {
	v.errors = append(v.errors, FieldError{
		Field:   field,
		Message: message,
	})
}

// HasErrors returns true if there are validation errors.
func (v *Validator) HasErrors() bool {
	return len(v.errors) > 0
}

// Errors returns all validation errors.
func (v *Validator) Errors() []FieldError {
	return v.errors
}

// Validate returns an AppError if there are validation errors, nil otherwise.
func (v *Validator) Validate() *errors.AppError {
	if !v.HasErrors() {
		return nil
	}

	messages := make([]string, len(v.errors))
	for i, e := range v.errors {
		messages[i] = fmt.Sprintf("%s: %s", e.Field, e.Message)
	}

	return errors.Validation(strings.Join(messages, "; ")).
		WithDetail("fields", v.errors)
}

// Finite checks that a value is neither NaN nor infinite.
func (v *Validator) Finite(field string, value float64) *Validator {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		v.AddError(field, "must be a finite number")
	}
	return v
}

// Positive checks that a value is strictly greater than zero.
func (v *Validator) Positive(field string, value float64) *Validator {
	if !(value > 0) {
		v.AddError(field, fmt.Sprintf("must be greater than 0 (got: %g)", value))
	}
	return v
}

// InRange checks that minVal <= value <= maxVal.
func (v *Validator) InRange(field string, value, minVal, maxVal float64) *Validator {
	if !(value >= minVal && value <= maxVal) {
		v.AddError(field, fmt.Sprintf("must be within [%g, %g] (got: %g)", minVal, maxVal, value))
	}
	return v
}

// AtLeast checks that an integer value is >= minVal.
func (v *Validator) AtLeast(field string, value, minVal int) *Validator {
	if value < minVal {
		v.AddError(field, fmt.Sprintf("must be at least %d (got: %d)", minVal, value))
	}
	return v
}

// OneOf checks that a value is in the allowed list.
func (v *Validator) OneOf(field, value string, allowed []string) *Validator {
	if !slices.Contains(allowed, value) {
		v.AddError(field, fmt.Sprintf("must be one of: %s (got: %q)", strings.Join(allowed, ", "), value))
	}
	return v
}

// Custom adds an error when condition is false.
func (v *Validator) Custom(condition bool, field, message string) *Validator {
	if !condition {
		v.AddError(field, message)
	}
	return v
}
