// file: internal/server/response_types.go
// version: 2.0.0
// guid: 7f8a9b0c-1d2e-3f4a-5b6c-7d8e9f0a1b2c

package server

import (
	"encoding/json"

	"github.com/DS09AT/Shelvance-sub001/internal/database"
	"github.com/DS09AT/Shelvance-sub001/internal/engine"
	"github.com/DS09AT/Shelvance-sub001/internal/metadata"
	"github.com/DS09AT/Shelvance-sub001/internal/models"
	"github.com/DS09AT/Shelvance-sub001/internal/operations"
)

// ListResponse provides a consistent format for list responses
type ListResponse struct {
	Items any `json:"items"`
	Count int `json:"count"`
}

// DeleteResponse provides a consistent format for deletion responses
type DeleteResponse struct {
	Deleted bool   `json:"deleted"`
	ID      string `json:"id"`
}

// ProviderRequest is the body of provider create, update and test calls.
// Omitted priority and features take their defaults; omitted settings keep
// the stored settings on update. ID is only read by the test endpoint, so
// an edited but unsaved definition can reuse the stored secrets.
type ProviderRequest struct {
	ID             string               `json:"id,omitempty"`
	Name           string               `json:"name" binding:"required"`
	Implementation string               `json:"implementation" binding:"required"`
	Settings       json.RawMessage      `json:"settings,omitempty"`
	Priority       *int                 `json:"priority,omitempty"`
	Features       *models.FeatureFlags `json:"features,omitempty"`
	Tags           []string             `json:"tags,omitempty"`
}

// Definition converts the request onto base, which is the stored
// definition on update and the zero value on create.
func (r ProviderRequest) Definition(base models.ProviderDefinition) models.ProviderDefinition {
	def := base
	def.Name = r.Name
	def.ImplementationKind = r.Implementation
	def.Tags = r.Tags
	if len(r.Settings) > 0 {
		def.Settings = database.UnmaskSettings(r.Settings, base.Settings)
	}
	switch {
	case r.Priority != nil:
		def.Priority = *r.Priority
	case base.ID == "":
		def.Priority = models.DefaultPriority
	}
	switch {
	case r.Features != nil:
		def.Features = *r.Features
	case base.ID == "":
		def.Features = models.DefaultFeatureFlags()
	}
	return def
}

// maskProvider hides secrets before a definition leaves the process.
func maskProvider(def models.ProviderDefinition) models.ProviderDefinition {
	def.Settings = database.MaskSettings(def.Settings)
	return def
}

// FailureView is a provider failure with its error rendered as text.
type FailureView struct {
	ProviderID   string              `json:"provider_id"`
	ProviderName string              `json:"provider_name"`
	Class        metadata.ErrorClass `json:"class"`
	Error        string              `json:"error"`
}

func failureViews(failures []engine.ProviderFailure) []FailureView {
	out := make([]FailureView, 0, len(failures))
	for _, f := range failures {
		v := FailureView{ProviderID: f.ProviderID, ProviderName: f.ProviderName, Class: f.Class}
		if f.Err != nil {
			v.Error = f.Err.Error()
		}
		out = append(out, v)
	}
	return out
}

// LookupResponse is the answer to POST /api/v1/lookup.
type LookupResponse struct {
	Record   *engine.MergedRecord `json:"record"`
	Failures []FailureView        `json:"failures"`
	Skipped  []string             `json:"skipped"`
}

// TestResult reports a provider connection test. A failed test is a
// successful request, so the outcome travels in the body.
type TestResult struct {
	Success bool                `json:"success"`
	Class   metadata.ErrorClass `json:"class,omitempty"`
	Error   string              `json:"error,omitempty"`
}

// KindView describes one adapter implementation.
type KindView struct {
	Name         string              `json:"name"`
	DisplayName  string              `json:"display_name"`
	Capabilities models.Capabilities `json:"capabilities"`
}

// RefreshRequest starts a batch refresh. Either Requests is given, or
// Capability with one Identifier per entity.
type RefreshRequest struct {
	Requests    []engine.LookupRequest `json:"requests,omitempty"`
	Capability  models.Capability      `json:"capability,omitempty"`
	Identifiers []string               `json:"identifiers,omitempty"`
	Mode        engine.Mode            `json:"mode,omitempty"`
}

// RefreshAccepted is returned when a refresh operation was queued.
type RefreshAccepted struct {
	OperationID string `json:"operation_id"`
	Total       int    `json:"total"`
}

// RefreshResults lists the per-item outcome of a refresh operation.
type RefreshResults struct {
	OperationID string                   `json:"operation_id"`
	Counts      map[string]int           `json:"counts"`
	Items       []operations.RefreshItem `json:"items"`
}
