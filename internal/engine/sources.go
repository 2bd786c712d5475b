// file: internal/engine/sources.go
// version: 1.0.0
// guid: e94d4402-63a1-4632-97a6-b9e05b9025ce

package engine

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/DS09AT/Shelvance-sub001/internal/metadata"
	"github.com/DS09AT/Shelvance-sub001/internal/models"
)

// Builder creates adapter instances. metadata.Catalog implements it.
type Builder interface {
	Build(kind string, settings json.RawMessage) (metadata.MetadataSource, error)
}

type cachedSource struct {
	updatedAt time.Time
	kind      string
	src       metadata.MetadataSource
}

// SourceCache keeps one adapter instance per provider so per-instance state
// such as rate limiters survives across requests. An instance is rebuilt
// when its definition changes.
type SourceCache struct {
	builder Builder

	mu      sync.Mutex
	entries map[string]cachedSource
}

// NewSourceCache creates an empty cache over builder.
func NewSourceCache(builder Builder) *SourceCache {
	return &SourceCache{builder: builder, entries: make(map[string]cachedSource)}
}

// Source returns the cached adapter for def, building it when missing or stale.
func (c *SourceCache) Source(def models.ProviderDefinition) (metadata.MetadataSource, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[def.ID]; ok && e.updatedAt.Equal(def.UpdatedAt) && e.kind == def.ImplementationKind {
		return e.src, nil
	}
	src, err := c.builder.Build(def.ImplementationKind, def.Settings)
	if err != nil {
		delete(c.entries, def.ID)
		return nil, err
	}
	c.entries[def.ID] = cachedSource{updatedAt: def.UpdatedAt, kind: def.ImplementationKind, src: src}
	return src, nil
}

// Evict drops the adapter of a removed provider.
func (c *SourceCache) Evict(providerID string) {
	c.mu.Lock()
	delete(c.entries, providerID)
	c.mu.Unlock()
}
