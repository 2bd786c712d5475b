// file: internal/engine/request.go
// version: 1.0.0
// guid: fe556d62-933b-4c6e-bb55-5499678327e2

package engine

import (
	"strings"

	"github.com/DS09AT/Shelvance-sub001/internal/models"
	"github.com/DS09AT/Shelvance-sub001/internal/provider"
)

// Mode selects how the router treats the candidate list.
type Mode string

const (
	// ModeSingle tries candidates in priority order and stops at the first
	// provider that returns data.
	ModeSingle Mode = "single"
	// ModeMerge asks every eligible candidate concurrently and merges all answers.
	ModeMerge Mode = "merge"
)

// LookupRequest is one capability request against the federation.
type LookupRequest struct {
	Capability models.Capability `json:"capability"`
	Mode       Mode              `json:"mode,omitempty"`
	Purpose    provider.Purpose  `json:"purpose,omitempty"`
	// Query is free text: a title for book searches, a name for author
	// searches, a series name for series lookups.
	Query string `json:"query,omitempty"`
	// Author narrows book searches.
	Author string `json:"author,omitempty"`
	// Identifier is an ISBN, ASIN or provider series id.
	Identifier string `json:"identifier,omitempty"`
	Limit      int    `json:"limit,omitempty"`
}

// FeatureFlag returns the per-provider flag gating this request.
func (r LookupRequest) FeatureFlag() models.FeatureFlag {
	return provider.FeatureFlagFor(r.Capability, r.Purpose)
}

// Normalize fills defaults and rejects requests no provider could serve.
func (r *LookupRequest) Normalize() error {
	r.Query = strings.TrimSpace(r.Query)
	r.Author = strings.TrimSpace(r.Author)
	r.Identifier = strings.TrimSpace(r.Identifier)

	if r.Mode == "" {
		r.Mode = ModeSingle
	}
	if r.Mode != ModeSingle && r.Mode != ModeMerge {
		return &models.ValidationError{Field: "mode", Reason: "must be single or merge"}
	}
	purpose, err := provider.ParsePurpose(string(r.Purpose))
	if err != nil {
		return &models.ValidationError{Field: "purpose", Reason: err.Error()}
	}
	r.Purpose = purpose
	if r.Limit < 0 {
		return &models.ValidationError{Field: "limit", Reason: "must not be negative"}
	}

	switch r.Capability {
	case models.CapAuthorSearch, models.CapBookSearch:
		if r.Query == "" {
			return &models.ValidationError{Field: "query", Reason: "is required for " + string(r.Capability)}
		}
	case models.CapISBNLookup, models.CapASINLookup:
		if r.Identifier == "" {
			return &models.ValidationError{Field: "identifier", Reason: "is required for " + string(r.Capability)}
		}
	case models.CapSeriesInfo, models.CapCovers, models.CapRatings, models.CapDescriptions:
		if r.Query == "" && r.Identifier == "" {
			return &models.ValidationError{Field: "query", Reason: "query or identifier is required"}
		}
	case models.CapChangeFeed:
		return &models.ValidationError{Field: "capability", Reason: "change_feed is not a lookup"}
	case "":
		return &models.ValidationError{Field: "capability", Reason: "must not be empty"}
	default:
		return &models.ValidationError{Field: "capability", Reason: "unknown capability " + string(r.Capability)}
	}
	return nil
}
