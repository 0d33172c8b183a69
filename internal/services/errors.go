package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrValidation marks caller mistakes: oversized essays, missing fields.
	ErrValidation = errors.New("validation error")
	// ErrAuth marks a rejected credential. Always fails closed.
	ErrAuth = errors.New("authentication error")
	// ErrNotFound marks lookups that resolved to no record.
	ErrNotFound = errors.New("not found")
	// ErrNoMatch marks a transcript that could not be correlated to any submission.
	ErrNoMatch = errors.New("no matching submission")
	// ErrExternalService marks voice-provider or scorer failures after retries.
	ErrExternalService = errors.New("external service error")
	// ErrInProgress marks a voice conversation that has not finished yet.
	ErrInProgress = errors.New("conversation in progress")
	// ErrTimeout marks bounded calls that exhausted their deadline.
	ErrTimeout = errors.New("timeout")
)

// Wrap builds an error message that includes component context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrExternalService
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
