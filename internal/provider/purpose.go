// file: internal/provider/purpose.go
// version: 1.0.0
// guid: 9cefeb44-5889-453a-bf42-4cabe7d470e8

package provider

import (
	"fmt"

	"github.com/DS09AT/Shelvance-sub001/internal/models"
)

// Purpose is the workflow a lookup serves. It selects which per-provider
// feature flag gates the request.
type Purpose string

const (
	PurposeSearch      Purpose = "search"
	PurposeInteractive Purpose = "interactive"
	PurposeRefresh     Purpose = "refresh"
)

// ParsePurpose converts a wire name into a Purpose. Empty means search.
func ParsePurpose(s string) (Purpose, error) {
	switch Purpose(s) {
	case "", PurposeSearch:
		return PurposeSearch, nil
	case PurposeInteractive, PurposeRefresh:
		return Purpose(s), nil
	}
	return "", fmt.Errorf("unknown purpose %q", s)
}

// FeatureFlagFor returns the feature flag that must be enabled for a provider
// to serve capability on behalf of purpose.
func FeatureFlagFor(capability models.Capability, purpose Purpose) models.FeatureFlag {
	switch purpose {
	case PurposeRefresh:
		return models.FlagAutomaticRefresh
	case PurposeInteractive:
		return models.FlagInteractiveSearch
	}
	if capability == models.CapAuthorSearch {
		return models.FlagAuthorSearch
	}
	return models.FlagBookSearch
}
