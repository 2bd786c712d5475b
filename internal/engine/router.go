// file: internal/engine/router.go
// version: 1.1.0
// guid: 4ceb6be2-ee35-4fb6-a3c8-416168e33c79

package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/DS09AT/Shelvance-sub001/internal/health"
	"github.com/DS09AT/Shelvance-sub001/internal/metadata"
	"github.com/DS09AT/Shelvance-sub001/internal/metrics"
	"github.com/DS09AT/Shelvance-sub001/internal/models"
)

const (
	DefaultCallTimeout = 15 * time.Second
	DefaultMaxParallel = 8
)

// CandidateLister is the registry view the router needs.
type CandidateLister interface {
	ListCandidates(capability models.Capability, flag models.FeatureFlag) ([]models.ProviderDefinition, error)
}

// SourceResolver returns the adapter instance serving a provider definition.
type SourceResolver interface {
	Source(def models.ProviderDefinition) (metadata.MetadataSource, error)
}

// RouterOptions tunes the router.
type RouterOptions struct {
	// CallTimeout bounds every provider call independently of the adapter.
	CallTimeout time.Duration
	// MaxParallel caps concurrent provider calls within one merge request.
	MaxParallel int
	// AllowProbes lets half-open providers receive a single probe request.
	AllowProbes bool
}

// DefaultRouterOptions returns the production defaults.
func DefaultRouterOptions() RouterOptions {
	return RouterOptions{
		CallTimeout: DefaultCallTimeout,
		MaxParallel: DefaultMaxParallel,
		AllowProbes: true,
	}
}

// Outcome is everything the router learned while serving one request.
type Outcome struct {
	Results []ProviderResult
	// Empty lists providers that answered without data.
	Empty    []string
	Failures []ProviderFailure
	// Skipped lists providers not called because their circuit was not
	// eligible or they could not serve the request.
	Skipped []string
}

// Router selects, calls and books the outcome of provider calls.
type Router struct {
	candidates CandidateLister
	tracker    *health.Tracker
	sources    SourceResolver
	opts       RouterOptions
}

// NewRouter creates a router. Zero option fields fall back to defaults.
func NewRouter(candidates CandidateLister, tracker *health.Tracker, sources SourceResolver, opts RouterOptions) *Router {
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = DefaultCallTimeout
	}
	if opts.MaxParallel <= 0 {
		opts.MaxParallel = DefaultMaxParallel
	}
	return &Router{candidates: candidates, tracker: tracker, sources: sources, opts: opts}
}

// callResult is the resolved outcome of one provider call.
type callResult struct {
	def      models.ProviderDefinition
	entity   models.Entity
	err      error
	class    metadata.ErrorClass
	skipped  bool
	duration time.Duration
}

// Execute serves req. It returns *UnavailableError when no provider could
// be asked or every provider asked failed, and the context error when the
// caller gave up. When every failure was a configuration error the
// *UnavailableError wraps ErrProvidersMisconfigured.
func (r *Router) Execute(ctx context.Context, req LookupRequest) (*Outcome, error) {
	if err := req.Normalize(); err != nil {
		return nil, err
	}
	defs, err := r.candidates.ListCandidates(req.Capability, req.FeatureFlag())
	if err != nil {
		return nil, fmt.Errorf("failed to list candidates: %w", err)
	}

	var out *Outcome
	if req.Mode == ModeMerge {
		out, err = r.executeMerge(ctx, req, defs)
	} else {
		out, err = r.executeSingle(ctx, req, defs)
	}
	if err != nil {
		return nil, err
	}

	if len(out.Results) == 0 && len(out.Empty) == 0 {
		uerr := &UnavailableError{
			Capability: req.Capability,
			Candidates: len(defs),
			Skipped:    out.Skipped,
			Failures:   out.Failures,
		}
		if uerr.Misconfigured() {
			log.Printf("[ERROR] router: %v", uerr)
			return out, uerr
		}
		metrics.IncAllProvidersUnavailable(string(req.Capability))
		log.Printf("[WARN] router: %v", uerr)
		return out, uerr
	}
	return out, nil
}

// executeSingle walks candidates in priority order. Admission is taken
// lazily so a half-open provider's probe slot is only used when the
// request actually reaches it.
func (r *Router) executeSingle(ctx context.Context, req LookupRequest, defs []models.ProviderDefinition) (*Outcome, error) {
	out := &Outcome{}
	for _, def := range defs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		adm, ok := r.tracker.Admit(def.ID, r.opts.AllowProbes)
		if !ok {
			r.skip(out, def, "circuit not eligible")
			continue
		}
		a := r.attempt(ctx, req, def, adm)
		if a.class == metadata.ClassCanceled {
			return nil, ctx.Err()
		}
		r.collect(out, a)
		if len(out.Results) > 0 {
			return out, nil
		}
	}
	return out, nil
}

// executeMerge admits every eligible candidate up front and calls them
// concurrently. Results are collected in candidate order so the merge is
// independent of completion order.
func (r *Router) executeMerge(ctx context.Context, req LookupRequest, defs []models.ProviderDefinition) (*Outcome, error) {
	out := &Outcome{}
	type admitted struct {
		def models.ProviderDefinition
		adm *health.Admission
	}
	var eligible []admitted
	for _, def := range defs {
		adm, ok := r.tracker.Admit(def.ID, r.opts.AllowProbes)
		if !ok {
			r.skip(out, def, "circuit not eligible")
			continue
		}
		eligible = append(eligible, admitted{def: def, adm: adm})
	}
	if len(eligible) == 0 {
		return out, nil
	}

	attempts := make([]callResult, len(eligible))
	p := pool.New().WithMaxGoroutines(r.opts.MaxParallel)
	for i, e := range eligible {
		p.Go(func() {
			attempts[i] = r.attempt(ctx, req, e.def, e.adm)
		})
	}
	p.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, a := range attempts {
		r.collect(out, a)
	}
	return out, nil
}

func (r *Router) skip(out *Outcome, def models.ProviderDefinition, reason string) {
	metrics.IncProviderSkipped(def.ID)
	log.Printf("[DEBUG] router: skipping provider %s (%s): %s", def.ID, def.Name, reason)
	out.Skipped = append(out.Skipped, def.ID)
}

func (r *Router) collect(out *Outcome, a callResult) {
	switch {
	case a.skipped:
		r.skip(out, a.def, "no operation for this request")
	case a.err != nil && a.class != metadata.ClassCanceled:
		out.Failures = append(out.Failures, ProviderFailure{
			ProviderID:   a.def.ID,
			ProviderName: a.def.Name,
			Class:        a.class,
			Err:          a.err,
		})
	case a.err == nil && a.entity.IsEmpty():
		out.Empty = append(out.Empty, a.def.ID)
	case a.err == nil:
		out.Results = append(out.Results, ProviderResult{
			ProviderID:   a.def.ID,
			ProviderName: a.def.Name,
			Priority:     a.def.Priority,
			Entity:       a.entity,
			Duration:     a.duration,
		})
	}
}

// attempt calls one provider and books the outcome with the health
// tracker before the admission is released, so a failed probe reopens the
// circuit before another request can be admitted.
func (r *Router) attempt(ctx context.Context, req LookupRequest, def models.ProviderDefinition, adm *health.Admission) callResult {
	defer adm.Release()

	start := time.Now()
	entity, err := r.call(ctx, req, def)
	a := callResult{def: def, entity: entity, err: err, duration: time.Since(start)}

	if errors.Is(err, errCannotServe) {
		a.skipped = true
		a.err = nil
		return a
	}
	a.class = r.classify(ctx, err)

	outcome := "success"
	switch a.class {
	case metadata.ClassNone:
		if entity.IsEmpty() {
			outcome = "empty"
		}
		if _, herr := r.tracker.RecordSuccess(def.ID); herr != nil {
			log.Printf("[ERROR] router: failed to record success for provider %s: %v", def.ID, herr)
		}
	case metadata.ClassOperational:
		outcome = "operational"
		log.Printf("[WARN] router: provider %s (%s) failed %s: %v", def.ID, def.Name, req.Capability, err)
		if _, herr := r.tracker.RecordFailure(def.ID); herr != nil {
			log.Printf("[ERROR] router: failed to record failure for provider %s: %v", def.ID, herr)
		}
	case metadata.ClassConfiguration:
		outcome = "configuration"
		log.Printf("[ERROR] router: provider %s (%s) is misconfigured: %v", def.ID, def.Name, err)
	case metadata.ClassCanceled:
		outcome = "canceled"
	}
	metrics.ObserveProviderCall(def.ID, string(req.Capability), outcome, a.duration)
	return a
}

// classify decides the class of a call error. Anything that happens after
// the caller's own context ended is a cancellation, not a provider fault.
func (r *Router) classify(ctx context.Context, err error) metadata.ErrorClass {
	if err == nil {
		return metadata.ClassNone
	}
	if ctx.Err() != nil {
		return metadata.ClassCanceled
	}
	if class := metadata.Classify(err); class != metadata.ClassCanceled {
		return class
	}
	return metadata.ClassOperational
}

// call runs the adapter on its own goroutine under the engine's timeout.
// A hung adapter is abandoned when the timeout fires; its goroutine ends
// once the adapter honors the canceled context.
func (r *Router) call(ctx context.Context, req LookupRequest, def models.ProviderDefinition) (models.Entity, error) {
	src, err := r.sources.Source(def)
	if err != nil {
		return models.Entity{}, err
	}

	callCtx, cancel := context.WithTimeout(ctx, r.opts.CallTimeout)
	defer cancel()

	type reply struct {
		entity models.Entity
		err    error
	}
	done := make(chan reply, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- reply{err: &metadata.ProviderError{
					Provider: def.ImplementationKind,
					Class:    metadata.ClassOperational,
					Err:      fmt.Errorf("adapter panic: %v", p),
				}}
			}
		}()
		e, err := invoke(callCtx, src, req)
		done <- reply{entity: e, err: err}
	}()

	select {
	case rep := <-done:
		return rep.entity, rep.err
	case <-callCtx.Done():
		if ctx.Err() != nil {
			return models.Entity{}, ctx.Err()
		}
		return models.Entity{}, &metadata.ProviderError{
			Provider: def.ImplementationKind,
			Class:    metadata.ClassOperational,
			Err:      fmt.Errorf("timed out after %s: %w", r.opts.CallTimeout, context.DeadlineExceeded),
		}
	}
}
