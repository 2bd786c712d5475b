// file: internal/provider/registry.go
// version: 1.0.0
// guid: 92dd7520-6223-4317-8333-fa46d0b71a49

// Package provider holds the registry of configured metadata providers.
package provider

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/DS09AT/Shelvance-sub001/internal/cache"
	"github.com/DS09AT/Shelvance-sub001/internal/metrics"
	"github.com/DS09AT/Shelvance-sub001/internal/models"
)

// ErrProviderNotFound is returned when no provider has the requested id.
var ErrProviderNotFound = errors.New("provider not found")

const snapshotKey = "providers"

// DefaultCacheTTL bounds how stale the in-memory snapshot may get when a
// change notification is missed.
const DefaultCacheTTL = 5 * time.Minute

// Store persists provider definitions. GetProviderByID returns nil, nil when
// the provider does not exist.
type Store interface {
	GetAllProviders() ([]models.ProviderDefinition, error)
	GetProviderByID(id string) (*models.ProviderDefinition, error)
	CreateProvider(def *models.ProviderDefinition) (*models.ProviderDefinition, error)
	UpdateProvider(id string, def *models.ProviderDefinition) (*models.ProviderDefinition, error)
	DeleteProvider(id string) error
}

// Catalog describes the implementation kinds the registry may accept.
type Catalog interface {
	// Capabilities returns the static capability declaration of kind.
	Capabilities(kind string) (models.Capabilities, bool)
	// ValidateSettings checks an opaque settings blob for kind.
	ValidateSettings(kind string, settings json.RawMessage) error
}

// Registry is the validated, cached view of provider definitions.
type Registry struct {
	store    Store
	catalog  Catalog
	snapshot *cache.Cache[[]models.ProviderDefinition]
}

// NewRegistry creates a registry. ttl <= 0 uses DefaultCacheTTL.
func NewRegistry(store Store, catalog Catalog, ttl time.Duration) *Registry {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Registry{
		store:    store,
		catalog:  catalog,
		snapshot: cache.New[[]models.ProviderDefinition](ttl),
	}
}

// Invalidate drops the cached snapshot. Called on configuration changes made
// outside this registry, such as a reloaded seed file.
func (r *Registry) Invalidate() {
	r.snapshot.InvalidateAll()
}

// All returns every provider in candidate order: ascending priority, then id.
func (r *Registry) All() ([]models.ProviderDefinition, error) {
	defs, err := r.load()
	if err != nil {
		return nil, err
	}
	out := make([]models.ProviderDefinition, len(defs))
	copy(out, defs)
	return out, nil
}

// Get returns one provider by id.
func (r *Registry) Get(id string) (*models.ProviderDefinition, error) {
	defs, err := r.load()
	if err != nil {
		return nil, err
	}
	for i := range defs {
		if defs[i].ID == id {
			def := defs[i]
			return &def, nil
		}
	}
	return nil, ErrProviderNotFound
}

// ListCandidates returns providers that declare capability and have flag
// enabled, ordered by ascending priority with ties broken by id.
func (r *Registry) ListCandidates(capability models.Capability, flag models.FeatureFlag) ([]models.ProviderDefinition, error) {
	defs, err := r.load()
	if err != nil {
		return nil, err
	}
	var out []models.ProviderDefinition
	for _, def := range defs {
		if def.Capabilities.Supports(capability) && def.Features.Enabled(flag) {
			out = append(out, def)
		}
	}
	return out, nil
}

// Upsert validates def and creates or updates it. An empty ID creates a new
// provider.
func (r *Registry) Upsert(def models.ProviderDefinition) (*models.ProviderDefinition, error) {
	if err := r.validate(&def); err != nil {
		return nil, err
	}

	var existing *models.ProviderDefinition
	if def.ID != "" {
		var err error
		existing, err = r.store.GetProviderByID(def.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to read provider %s: %w", def.ID, err)
		}
	}

	var (
		saved *models.ProviderDefinition
		err   error
	)
	if existing == nil {
		saved, err = r.store.CreateProvider(&def)
	} else {
		def.CreatedAt = existing.CreatedAt
		saved, err = r.store.UpdateProvider(def.ID, &def)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to save provider %q: %w", def.Name, err)
	}
	r.Invalidate()

	caps, _ := r.catalog.Capabilities(saved.ImplementationKind)
	saved.Capabilities = caps
	log.Printf("[INFO] registry: saved provider %s (%s, kind=%s, priority=%d)",
		saved.ID, saved.Name, saved.ImplementationKind, saved.Priority)
	return saved, nil
}

// Delete removes a provider. The store drops its health record with it.
func (r *Registry) Delete(id string) error {
	existing, err := r.store.GetProviderByID(id)
	if err != nil {
		return fmt.Errorf("failed to read provider %s: %w", id, err)
	}
	if existing == nil {
		return ErrProviderNotFound
	}
	if err := r.store.DeleteProvider(id); err != nil {
		return fmt.Errorf("failed to delete provider %s: %w", id, err)
	}
	r.Invalidate()
	log.Printf("[INFO] registry: deleted provider %s (%s)", id, existing.Name)
	return nil
}

// Validate runs every save-time check against def without persisting it.
func (r *Registry) Validate(def models.ProviderDefinition) error {
	return r.validate(&def)
}

func (r *Registry) validate(def *models.ProviderDefinition) error {
	def.Name = strings.TrimSpace(def.Name)
	if err := def.Validate(); err != nil {
		return err
	}
	if _, ok := r.catalog.Capabilities(def.ImplementationKind); !ok {
		return &models.ValidationError{
			Field:  "implementation",
			Reason: fmt.Sprintf("unknown implementation %q", def.ImplementationKind),
		}
	}
	if err := r.catalog.ValidateSettings(def.ImplementationKind, def.Settings); err != nil {
		return &models.ValidationError{Field: "settings", Reason: err.Error()}
	}

	all, err := r.store.GetAllProviders()
	if err != nil {
		return fmt.Errorf("failed to list providers: %w", err)
	}
	return validateUniqueName(all, def.Name, def.ID)
}

// validateUniqueName rejects name when a provider other than selfID already
// uses it. Names compare case-insensitively.
func validateUniqueName(defs []models.ProviderDefinition, name, selfID string) error {
	for _, d := range defs {
		if d.ID == selfID {
			continue
		}
		if strings.EqualFold(d.Name, name) {
			return &models.ValidationError{
				Field:  "name",
				Reason: fmt.Sprintf("%q is already used by provider %s", name, d.ID),
			}
		}
	}
	return nil
}

func (r *Registry) load() ([]models.ProviderDefinition, error) {
	return r.snapshot.GetOrLoad(snapshotKey, func() ([]models.ProviderDefinition, error) {
		defs, err := r.store.GetAllProviders()
		if err != nil {
			return nil, fmt.Errorf("failed to load providers: %w", err)
		}
		for i := range defs {
			caps, ok := r.catalog.Capabilities(defs[i].ImplementationKind)
			if !ok {
				log.Printf("[WARN] registry: provider %s has unknown implementation %q; it will receive no traffic",
					defs[i].ID, defs[i].ImplementationKind)
			}
			defs[i].Capabilities = caps
		}
		sortCandidates(defs)
		metrics.SetProviders(len(defs))
		log.Printf("[DEBUG] registry: loaded %d providers", len(defs))
		return defs, nil
	})
}

func sortCandidates(defs []models.ProviderDefinition) {
	sort.SliceStable(defs, func(i, j int) bool {
		if defs[i].Priority != defs[j].Priority {
			return defs[i].Priority < defs[j].Priority
		}
		return defs[i].ID < defs[j].ID
	})
}
