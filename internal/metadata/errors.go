// file: internal/metadata/errors.go
// version: 1.1.0
// guid: b30fe9e8-2abd-4b73-94c7-34d28a56de83

package metadata

import (
	"context"
	"errors"
	"fmt"
)

// ErrorClass separates failures that say something about provider health
// from failures that need operator action.
type ErrorClass string

const (
	ClassNone ErrorClass = ""
	// ClassConfiguration covers bad credentials, malformed base URLs and
	// redirects to unexpected endpoints. Never counted against health.
	ClassConfiguration ErrorClass = "configuration"
	// ClassOperational covers timeouts, refused connections, server errors,
	// throttling and malformed responses. Counted against health.
	ClassOperational ErrorClass = "operational"
	// ClassCanceled is a caller cancellation; it says nothing about the provider.
	ClassCanceled ErrorClass = "canceled"
)

// ProviderError is a classified adapter failure.
type ProviderError struct {
	Provider   string
	Class      ErrorClass
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %s error (status %d): %v", e.Provider, e.Class, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %s error: %v", e.Provider, e.Class, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

func configError(provider string, format string, args ...interface{}) *ProviderError {
	return &ProviderError{Provider: provider, Class: ClassConfiguration, Err: fmt.Errorf(format, args...)}
}

func operationalError(provider string, status int, err error) *ProviderError {
	return &ProviderError{Provider: provider, Class: ClassOperational, StatusCode: status, Err: err}
}

// Classify maps any adapter error to a class. Unclassified errors, deadline
// and network errors included, are operational so an unexpected failure
// mode still triggers backoff.
func Classify(err error) ErrorClass {
	if err == nil {
		return ClassNone
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Class
	}
	if errors.Is(err, context.Canceled) {
		return ClassCanceled
	}
	return ClassOperational
}

// IsConfigurationError reports whether err needs operator action.
func IsConfigurationError(err error) bool {
	return Classify(err) == ClassConfiguration
}
