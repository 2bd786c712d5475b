// file: internal/engine/errors.go
// version: 1.1.0
// guid: 5cfe7458-040f-40f6-a312-ddb76d76205f

package engine

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/DS09AT/Shelvance-sub001/internal/metadata"
	"github.com/DS09AT/Shelvance-sub001/internal/models"
)

var (
	// ErrAllProvidersUnavailable means no provider could be asked, or every
	// provider asked failed. Retrying later may succeed.
	ErrAllProvidersUnavailable = errors.New("all providers unavailable")
	// ErrProvidersMisconfigured means every provider asked failed on its
	// own settings. Only an operator can fix it; retrying will not help.
	ErrProvidersMisconfigured = errors.New("all providers misconfigured")
	// ErrNotFound means at least one provider answered and none had data.
	ErrNotFound = errors.New("no provider returned data")
)

// ProviderResult is one provider's successful answer.
type ProviderResult struct {
	ProviderID   string        `json:"provider_id"`
	ProviderName string        `json:"provider_name"`
	Priority     int           `json:"priority"`
	Entity       models.Entity `json:"entity"`
	Duration     time.Duration `json:"duration"`
}

// ProviderFailure is one provider's classified failure.
type ProviderFailure struct {
	ProviderID   string              `json:"provider_id"`
	ProviderName string              `json:"provider_name"`
	Class        metadata.ErrorClass `json:"class"`
	Err          error               `json:"-"`
}

func (f ProviderFailure) Error() string {
	return fmt.Sprintf("%s (%s): %v", f.ProviderName, f.Class, f.Err)
}

// UnavailableError details why a request could not be served. It wraps
// ErrProvidersMisconfigured instead of ErrAllProvidersUnavailable when
// Misconfigured reports true.
type UnavailableError struct {
	Capability models.Capability
	Candidates int
	Skipped    []string
	Failures   []ProviderFailure
}

// Misconfigured reports whether every eligible provider was asked and each
// one failed with a configuration error.
func (e *UnavailableError) Misconfigured() bool {
	if len(e.Failures) == 0 || len(e.Skipped) > 0 {
		return false
	}
	for _, f := range e.Failures {
		if f.Class != metadata.ClassConfiguration {
			return false
		}
	}
	return true
}

func (e *UnavailableError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", e.Unwrap(), e.Capability)
	switch {
	case e.Candidates == 0:
		b.WriteString(": no provider enabled for this capability")
	default:
		fmt.Fprintf(&b, ": %d candidates, %d skipped, %d failed", e.Candidates, len(e.Skipped), len(e.Failures))
	}
	return b.String()
}

func (e *UnavailableError) Unwrap() error {
	if e.Misconfigured() {
		return ErrProvidersMisconfigured
	}
	return ErrAllProvidersUnavailable
}
