package capture

import (
	"errors"
	"fmt"
	"strings"
)

// ErrPoleNotFound is returned when a capture references a pole that
// does not exist. Creation fails outright in that case.
var ErrPoleNotFound = errors.New("pole not found")

// ErrCaptureNotFound is returned when the referenced capture is absent
var ErrCaptureNotFound = errors.New("capture not found")

// ValidationError carries one or more hard validation findings.
// It is surfaced to the caller and never retried.
type ValidationError struct {
	Findings []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s", strings.Join(e.Findings, "; "))
}

// NewValidationError builds a ValidationError from findings
func NewValidationError(findings ...string) *ValidationError {
	return &ValidationError{Findings: findings}
}

// ValidationResult is the outcome of a non-throwing validation pass.
// Errors block progression; warnings are advisory only.
type ValidationResult struct {
	Valid    bool     `json:"isValid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}
