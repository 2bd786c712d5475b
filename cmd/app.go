// file: cmd/app.go
// version: 1.0.0
// guid: 5f1d3b8e-7a2c-4e9b-b6d0-2c4a6e8f0b1d

package cmd

import (
	"fmt"
	"log"

	"github.com/DS09AT/Shelvance-sub001/internal/config"
	"github.com/DS09AT/Shelvance-sub001/internal/database"
	"github.com/DS09AT/Shelvance-sub001/internal/engine"
	"github.com/DS09AT/Shelvance-sub001/internal/health"
	"github.com/DS09AT/Shelvance-sub001/internal/metadata"
	"github.com/DS09AT/Shelvance-sub001/internal/metrics"
	"github.com/DS09AT/Shelvance-sub001/internal/provider"
)

// adapterCatalog validates provider kinds and builds their adapters.
type adapterCatalog interface {
	provider.Catalog
	engine.Builder
}

// app bundles the collaborators every command needs.
type app struct {
	store    database.Store
	registry *provider.Registry
	tracker  *health.Tracker
	engine   *engine.Engine
}

// openApp is replaced in tests to run commands against an in-memory store.
var openApp = openConfiguredApp

func openConfiguredApp(cfg config.Config) (*app, error) {
	var sealer *database.Sealer
	if cfg.SecretsKeyPath != "" {
		s, err := database.LoadOrCreateSealer(cfg.SecretsKeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load secrets key: %w", err)
		}
		sealer = s
	}
	store, err := database.Open(database.Options{
		Type:         cfg.DatabaseType,
		Path:         cfg.DatabasePath,
		EnableSQLite: cfg.EnableSQLite,
		Sealer:       sealer,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return newApp(store, metadata.NewCatalog(), cfg), nil
}

func newApp(store database.Store, catalog adapterCatalog, cfg config.Config) *app {
	metrics.Register()
	registry := provider.NewRegistry(store, catalog, cfg.RegistryCacheTTL)
	tracker := health.NewTracker(store, cfg.BackoffPolicy())
	return &app{
		store:    store,
		registry: registry,
		tracker:  tracker,
		engine:   engine.New(registry, tracker, catalog, cfg.RouterOptions()),
	}
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		log.Printf("[WARN] failed to close database: %v", err)
	}
}
