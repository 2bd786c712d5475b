// file: internal/models/provider.go
// version: 1.0.0
// guid: 3cadbfe0-aa4a-4cfc-8ec8-4dd09fe97dba

package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Priority bounds for provider definitions. Lower values are tried first.
const (
	MinPriority     = 1
	MaxPriority     = 100
	DefaultPriority = 50
)

// Capability names an operation or data kind a provider implementation
// statically supports.
type Capability string

const (
	CapAuthorSearch Capability = "author_search"
	CapBookSearch   Capability = "book_search"
	CapISBNLookup   Capability = "isbn_lookup"
	CapASINLookup   Capability = "asin_lookup"
	CapSeriesInfo   Capability = "series_info"
	CapChangeFeed   Capability = "change_feed"
	CapCovers       Capability = "covers"
	CapRatings      Capability = "ratings"
	CapDescriptions Capability = "descriptions"
)

// AllCapabilities lists every capability in declaration order.
var AllCapabilities = []Capability{
	CapAuthorSearch, CapBookSearch, CapISBNLookup, CapASINLookup,
	CapSeriesInfo, CapChangeFeed, CapCovers, CapRatings, CapDescriptions,
}

// ParseCapability converts a wire name into a Capability.
func ParseCapability(s string) (Capability, error) {
	for _, c := range AllCapabilities {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown capability %q", s)
}

// Capabilities is the static capability declaration of an adapter kind.
type Capabilities struct {
	AuthorSearch bool `json:"supportsAuthorSearch"`
	BookSearch   bool `json:"supportsBookSearch"`
	ISBNLookup   bool `json:"supportsIsbnLookup"`
	ASINLookup   bool `json:"supportsAsinLookup"`
	SeriesInfo   bool `json:"supportsSeriesInfo"`
	ChangeFeed   bool `json:"supportsChangeFeed"`
	Covers       bool `json:"supportsCovers"`
	Ratings      bool `json:"supportsRatings"`
	Descriptions bool `json:"supportsDescriptions"`
}

// Supports reports whether capability c is declared.
func (c Capabilities) Supports(capability Capability) bool {
	switch capability {
	case CapAuthorSearch:
		return c.AuthorSearch
	case CapBookSearch:
		return c.BookSearch
	case CapISBNLookup:
		return c.ISBNLookup
	case CapASINLookup:
		return c.ASINLookup
	case CapSeriesInfo:
		return c.SeriesInfo
	case CapChangeFeed:
		return c.ChangeFeed
	case CapCovers:
		return c.Covers
	case CapRatings:
		return c.Ratings
	case CapDescriptions:
		return c.Descriptions
	}
	return false
}

// FeatureFlag names one operator-controlled enable switch.
type FeatureFlag string

const (
	FlagAuthorSearch      FeatureFlag = "author_search_enabled"
	FlagBookSearch        FeatureFlag = "book_search_enabled"
	FlagAutomaticRefresh  FeatureFlag = "automatic_refresh_enabled"
	FlagInteractiveSearch FeatureFlag = "interactive_search_enabled"
)

// FeatureFlags are the per-provider enable switches. At least one must be set.
type FeatureFlags struct {
	AuthorSearchEnabled      bool `json:"authorSearchEnabled" yaml:"author_search_enabled"`
	BookSearchEnabled        bool `json:"bookSearchEnabled" yaml:"book_search_enabled"`
	AutomaticRefreshEnabled  bool `json:"automaticRefreshEnabled" yaml:"automatic_refresh_enabled"`
	InteractiveSearchEnabled bool `json:"interactiveSearchEnabled" yaml:"interactive_search_enabled"`
}

// DefaultFeatureFlags enables every feature, matching the persisted column defaults.
func DefaultFeatureFlags() FeatureFlags {
	return FeatureFlags{
		AuthorSearchEnabled:      true,
		BookSearchEnabled:        true,
		AutomaticRefreshEnabled:  true,
		InteractiveSearchEnabled: true,
	}
}

// Enabled reports whether the named flag is on.
func (f FeatureFlags) Enabled(flag FeatureFlag) bool {
	switch flag {
	case FlagAuthorSearch:
		return f.AuthorSearchEnabled
	case FlagBookSearch:
		return f.BookSearchEnabled
	case FlagAutomaticRefresh:
		return f.AutomaticRefreshEnabled
	case FlagInteractiveSearch:
		return f.InteractiveSearchEnabled
	}
	return false
}

// Any reports whether at least one flag is on.
func (f FeatureFlags) Any() bool {
	return f.AuthorSearchEnabled || f.BookSearchEnabled ||
		f.AutomaticRefreshEnabled || f.InteractiveSearchEnabled
}

// ProviderDefinition is one operator-configured provider instance.
type ProviderDefinition struct {
	ID                 string          `json:"id"`
	Name               string          `json:"name"`
	ImplementationKind string          `json:"implementation"`
	Settings           json.RawMessage `json:"settings,omitempty"`
	Priority           int             `json:"priority"`
	Features           FeatureFlags    `json:"features"`
	Tags               []string        `json:"tags,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`

	// Capabilities is derived from ImplementationKind and never persisted.
	Capabilities Capabilities `json:"capabilities"`
}

// ValidationError reports a rejected provider configuration or lookup request.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Validate checks the definition's own invariants: name, kind, priority
// range and at least one enabled feature flag.
func (d *ProviderDefinition) Validate() error {
	if d.Name == "" {
		return &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if d.ImplementationKind == "" {
		return &ValidationError{Field: "implementation", Reason: "must not be empty"}
	}
	if d.Priority < MinPriority || d.Priority > MaxPriority {
		return &ValidationError{
			Field:  "priority",
			Reason: fmt.Sprintf("must be between %d and %d, got %d", MinPriority, MaxPriority, d.Priority),
		}
	}
	if !d.Features.Any() {
		return &ValidationError{Field: "features", Reason: "at least one feature must be enabled"}
	}
	if len(d.Settings) > 0 && !json.Valid(d.Settings) {
		return &ValidationError{Field: "settings", Reason: "must be valid JSON"}
	}
	return nil
}
