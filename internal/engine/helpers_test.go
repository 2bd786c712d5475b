// file: internal/engine/helpers_test.go
// version: 1.1.0
// guid: 1f46661c-5045-459e-bde2-69579bdd0435

package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/DS09AT/Shelvance-sub001/internal/database"
	"github.com/DS09AT/Shelvance-sub001/internal/health"
	"github.com/DS09AT/Shelvance-sub001/internal/metadata"
	"github.com/DS09AT/Shelvance-sub001/internal/models"
	"github.com/DS09AT/Shelvance-sub001/internal/provider"
)

// fakeSource answers author and book searches, ISBN lookups and connection
// tests through replaceable funcs.
type fakeSource struct {
	name  string
	calls atomic.Int32
	tests atomic.Int32

	books func(ctx context.Context) ([]models.Book, error)
	test  func(ctx context.Context) error
}

func bookSource(name string, books ...models.Book) *fakeSource {
	return &fakeSource{
		name:  name,
		books: func(context.Context) ([]models.Book, error) { return books, nil },
	}
}

func failingSource(name string, err error) *fakeSource {
	return &fakeSource{
		name:  name,
		books: func(context.Context) ([]models.Book, error) { return nil, err },
	}
}

// hangingSource blocks until its call context ends.
func hangingSource(name string) *fakeSource {
	return &fakeSource{
		name: name,
		books: func(ctx context.Context) ([]models.Book, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) SearchBooks(ctx context.Context, title, author string, limit int) ([]models.Book, error) {
	f.calls.Add(1)
	return f.books(ctx)
}

func (f *fakeSource) SearchAuthors(ctx context.Context, name string, limit int) ([]models.Author, error) {
	f.calls.Add(1)
	if _, err := f.books(ctx); err != nil {
		return nil, err
	}
	return []models.Author{{Name: name}}, nil
}

func (f *fakeSource) LookupISBN(ctx context.Context, isbn string) (*models.Book, error) {
	f.calls.Add(1)
	books, err := f.books(ctx)
	if err != nil || len(books) == 0 {
		return nil, err
	}
	return &books[0], nil
}

func (f *fakeSource) Test(ctx context.Context) error {
	f.tests.Add(1)
	if f.test == nil {
		return nil
	}
	return f.test(ctx)
}

// searchOnlySource has no identifier lookups.
type searchOnlySource struct {
	calls atomic.Int32
}

func (s *searchOnlySource) Name() string { return "search-only" }

func (s *searchOnlySource) SearchBooks(ctx context.Context, title, author string, limit int) ([]models.Book, error) {
	s.calls.Add(1)
	return []models.Book{{Title: title}}, nil
}

// fakeCatalog maps each provider kind to one prepared source.
type fakeCatalog struct {
	mu      sync.Mutex
	sources map[string]metadata.MetadataSource
	builds  map[string]int
	failing map[string]error
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		sources: make(map[string]metadata.MetadataSource),
		builds:  make(map[string]int),
		failing: make(map[string]error),
	}
}

func (c *fakeCatalog) Capabilities(kind string) (models.Capabilities, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.sources[kind]; !ok {
		return models.Capabilities{}, false
	}
	return models.Capabilities{AuthorSearch: true, BookSearch: true, ISBNLookup: true, Covers: true}, true
}

func (c *fakeCatalog) ValidateSettings(kind string, settings json.RawMessage) error {
	return nil
}

func (c *fakeCatalog) Build(kind string, settings json.RawMessage) (metadata.MetadataSource, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.builds[kind]++
	if err := c.failing[kind]; err != nil {
		return nil, err
	}
	src, ok := c.sources[kind]
	if !ok {
		return nil, fmt.Errorf("unknown kind %q", kind)
	}
	return src, nil
}

func (c *fakeCatalog) buildCount(kind string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.builds[kind]
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

var testPolicy = health.BackoffPolicy{Initial: time.Minute, Multiplier: 2, Max: time.Hour}

type harness struct {
	t        *testing.T
	store    *database.MockStore
	catalog  *fakeCatalog
	registry *provider.Registry
	tracker  *health.Tracker
	clock    *fakeClock
	engine   *Engine
}

func newHarness(t *testing.T, opts RouterOptions) *harness {
	t.Helper()
	store := database.NewMockStore()
	catalog := newFakeCatalog()
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}

	tracker := health.NewTracker(store, testPolicy)
	tracker.SetClock(clock.Now)
	registry := provider.NewRegistry(store, catalog, time.Minute)

	return &harness{
		t:        t,
		store:    store,
		catalog:  catalog,
		registry: registry,
		tracker:  tracker,
		clock:    clock,
		engine:   New(registry, tracker, catalog, opts),
	}
}

func fastOptions() RouterOptions {
	return RouterOptions{CallTimeout: 100 * time.Millisecond, MaxParallel: 4, AllowProbes: true}
}

// addProvider registers src under a kind named after the provider.
func (h *harness) addProvider(name string, priority int, src metadata.MetadataSource) models.ProviderDefinition {
	h.t.Helper()
	kind := strings.ToLower(strings.ReplaceAll(name, " ", "-"))
	h.catalog.mu.Lock()
	h.catalog.sources[kind] = src
	h.catalog.mu.Unlock()

	saved, err := h.registry.Upsert(models.ProviderDefinition{
		Name:               name,
		ImplementationKind: kind,
		Priority:           priority,
		Features:           models.DefaultFeatureFlags(),
	})
	require.NoError(h.t, err)
	return *saved
}

// open puts a provider in the Open state at escalation level 1.
func (h *harness) open(id string) {
	until := h.clock.Now().Add(time.Minute)
	h.store.SetHealth(models.ProviderHealthStatus{ProviderID: id, EscalationLevel: 1, DisabledUntil: &until})
}

// halfOpen puts a provider in the Half-Open state at escalation level 1.
func (h *harness) halfOpen(id string) {
	until := h.clock.Now().Add(-time.Second)
	h.store.SetHealth(models.ProviderHealthStatus{ProviderID: id, EscalationLevel: 1, DisabledUntil: &until})
}

func (h *harness) status(id string) *models.ProviderHealthStatus {
	h.t.Helper()
	s, err := h.tracker.Status(id)
	require.NoError(h.t, err)
	return s
}

func (h *harness) state(id string) models.CircuitState {
	h.t.Helper()
	s, err := h.tracker.State(id)
	require.NoError(h.t, err)
	return s
}

func (h *harness) healthUpdates(id string) int {
	return h.store.HealthUpdateCount(id)
}

func bookSearch(title string) LookupRequest {
	return LookupRequest{Capability: models.CapBookSearch, Query: title}
}
