// file: internal/engine/engine.go
// version: 1.0.0
// guid: a02940b0-6f30-4a11-9ea9-f3955c08334a

// Package engine federates lookups across the configured metadata
// providers: it routes each request to eligible providers in priority
// order, books every outcome with the health tracker and merges answers
// into one record with per-field provenance.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/DS09AT/Shelvance-sub001/internal/health"
	"github.com/DS09AT/Shelvance-sub001/internal/metadata"
	"github.com/DS09AT/Shelvance-sub001/internal/models"
	"github.com/DS09AT/Shelvance-sub001/internal/provider"
)

// Engine is the entry point used by search, refresh and the HTTP surface.
type Engine struct {
	registry *provider.Registry
	tracker  *health.Tracker
	builder  Builder
	sources  *SourceCache
	router   *Router
	merger   *Merger
	opts     RouterOptions
}

// New wires an engine from its collaborators.
func New(registry *provider.Registry, tracker *health.Tracker, builder Builder, opts RouterOptions) *Engine {
	sources := NewSourceCache(builder)
	router := NewRouter(registry, tracker, sources, opts)
	return &Engine{
		registry: registry,
		tracker:  tracker,
		builder:  builder,
		sources:  sources,
		router:   router,
		merger:   NewMerger(),
		opts:     router.opts,
	}
}

// Registry returns the provider registry.
func (e *Engine) Registry() *provider.Registry { return e.registry }

// Tracker returns the health tracker.
func (e *Engine) Tracker() *health.Tracker { return e.tracker }

// Result is the answer to one lookup.
type Result struct {
	Record   *MergedRecord     `json:"record"`
	Failures []ProviderFailure `json:"failures,omitempty"`
	Skipped  []string          `json:"skipped,omitempty"`
}

// Execute routes req and merges the answers. It returns ErrNotFound when
// providers answered without data and an error wrapping
// ErrAllProvidersUnavailable when none could answer, or
// ErrProvidersMisconfigured when every one asked failed on its settings.
func (e *Engine) Execute(ctx context.Context, req LookupRequest) (*Result, error) {
	out, err := e.router.Execute(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(out.Results) == 0 {
		return nil, fmt.Errorf("%s %q: %w", req.Capability, firstNonEmpty(req.Query, req.Identifier), ErrNotFound)
	}
	return &Result{
		Record:   e.merger.Merge(out.Results),
		Failures: out.Failures,
		Skipped:  out.Skipped,
	}, nil
}

// Refresh re-queries one provider for the entity in prev and replaces only
// that provider's contribution.
func (e *Engine) Refresh(ctx context.Context, prev *MergedRecord, providerID string, req LookupRequest) (*MergedRecord, error) {
	if err := req.Normalize(); err != nil {
		return nil, err
	}
	def, err := e.registry.Get(providerID)
	if err != nil {
		return nil, err
	}
	if !def.Capabilities.Supports(req.Capability) {
		return nil, &models.ValidationError{
			Field:  "capability",
			Reason: fmt.Sprintf("provider %s does not support %s", def.Name, req.Capability),
		}
	}
	adm, ok := e.tracker.Admit(def.ID, e.opts.AllowProbes)
	if !ok {
		return nil, &UnavailableError{Capability: req.Capability, Candidates: 1, Skipped: []string{def.ID}}
	}
	a := e.router.attempt(ctx, req, *def, adm)
	switch {
	case a.class == metadata.ClassCanceled:
		return nil, ctx.Err()
	case a.err != nil:
		return nil, &UnavailableError{
			Capability: req.Capability,
			Candidates: 1,
			Failures:   []ProviderFailure{{ProviderID: def.ID, ProviderName: def.Name, Class: a.class, Err: a.err}},
		}
	case a.skipped || a.entity.IsEmpty():
		return prev, nil
	}
	return e.merger.Remerge(prev, ProviderResult{
		ProviderID:   def.ID,
		ProviderName: def.Name,
		Priority:     def.Priority,
		Entity:       a.entity,
		Duration:     a.duration,
	}), nil
}

// TestProvider builds def's adapter and runs its connection test once. The
// outcome is not booked with the health tracker. The returned error is
// classified with metadata.Classify.
func (e *Engine) TestProvider(ctx context.Context, def models.ProviderDefinition) error {
	src, err := e.builder.Build(def.ImplementationKind, def.Settings)
	if err != nil {
		return err
	}
	tester, ok := src.(metadata.Tester)
	if !ok {
		return fmt.Errorf("%s adapters have no connection test", def.ImplementationKind)
	}

	ctx, cancel := context.WithTimeout(ctx, e.opts.CallTimeout)
	defer cancel()
	start := time.Now()
	err = tester.Test(ctx)
	if err != nil {
		log.Printf("[INFO] engine: test of provider %q failed (%s) after %s: %v",
			def.Name, metadata.Classify(err), time.Since(start), err)
		return err
	}
	log.Printf("[INFO] engine: test of provider %q succeeded in %s", def.Name, time.Since(start))
	return nil
}

// SaveProvider validates and persists def through the registry and drops
// any cached adapter built from an older version.
func (e *Engine) SaveProvider(def models.ProviderDefinition) (*models.ProviderDefinition, error) {
	saved, err := e.registry.Upsert(def)
	if err != nil {
		return nil, err
	}
	e.sources.Evict(saved.ID)
	return saved, nil
}

// DeleteProvider removes a provider with its health record and in-process state.
func (e *Engine) DeleteProvider(id string) error {
	if err := e.registry.Delete(id); err != nil {
		return err
	}
	e.sources.Evict(id)
	e.tracker.Forget(id)
	return nil
}

// ProviderHealth is the health read model of one provider.
type ProviderHealth struct {
	ProviderID    string                      `json:"provider_id"`
	ProviderName  string                      `json:"provider_name"`
	State         models.CircuitState         `json:"state"`
	ProbeInFlight bool                        `json:"probe_in_flight"`
	Status        models.ProviderHealthStatus `json:"status"`
}

// Health returns the derived circuit state and counters of a provider.
func (e *Engine) Health(id string) (*ProviderHealth, error) {
	def, err := e.registry.Get(id)
	if err != nil {
		return nil, err
	}
	status, err := e.tracker.Status(id)
	if err != nil {
		return nil, fmt.Errorf("failed to read health of provider %s: %w", id, err)
	}
	state, err := e.tracker.State(id)
	if err != nil {
		return nil, fmt.Errorf("failed to read health of provider %s: %w", id, err)
	}
	return &ProviderHealth{
		ProviderID:    id,
		ProviderName:  def.Name,
		State:         state,
		ProbeInFlight: e.tracker.ProbeInFlight(id),
		Status:        *status,
	}, nil
}

// AllHealth returns the health of every configured provider in candidate order.
func (e *Engine) AllHealth() ([]ProviderHealth, error) {
	defs, err := e.registry.All()
	if err != nil {
		return nil, err
	}
	out := make([]ProviderHealth, 0, len(defs))
	for _, def := range defs {
		h, err := e.Health(def.ID)
		if err != nil {
			if errors.Is(err, provider.ErrProviderNotFound) {
				continue
			}
			return nil, err
		}
		out = append(out, *h)
	}
	return out, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
