// file: internal/database/store.go
// version: 3.0.0
// guid: 8a9b0c1d-2e3f-4a5b-6c7d-8e9f0a1b2c3d

package database

import (
	"crypto/rand"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	ulid "github.com/oklog/ulid/v2"

	"github.com/DS09AT/Shelvance-sub001/internal/models"
)

// ErrNotFound is returned by update operations whose target does not exist.
var ErrNotFound = errors.New("record not found")

// ErrDuplicateName is returned when a provider name is already taken.
var ErrDuplicateName = errors.New("provider name already exists")

// Store defines the interface for our database operations
// This abstraction allows us to support both PebbleDB (default) and SQLite3 (opt-in)
type Store interface {
	// Lifecycle
	Close() error

	// Provider definitions. Lookups return nil, nil when nothing matches.
	GetAllProviders() ([]models.ProviderDefinition, error)
	GetProviderByID(id string) (*models.ProviderDefinition, error)
	GetProviderByName(name string) (*models.ProviderDefinition, error)
	CreateProvider(def *models.ProviderDefinition) (*models.ProviderDefinition, error) // Generates ULID if ID is empty
	UpdateProvider(id string, def *models.ProviderDefinition) (*models.ProviderDefinition, error)
	DeleteProvider(id string) error // Also removes the provider's health record

	// Provider health. UpdateProviderHealth applies fn atomically per provider,
	// creating the record on first use. It fails with ErrNotFound when the
	// provider has no definition.
	GetProviderHealth(providerID string) (*models.ProviderHealthStatus, error)
	GetAllProviderHealth() ([]models.ProviderHealthStatus, error)
	UpdateProviderHealth(providerID string, fn func(*models.ProviderHealthStatus) error) (*models.ProviderHealthStatus, error)

	// Operations
	CreateOperation(id, opType string, target *string) (*Operation, error)
	GetOperationByID(id string) (*Operation, error)
	GetRecentOperations(limit int) ([]Operation, error)
	UpdateOperationStatus(id, status string, progress, total int, message string) error
	UpdateOperationError(id, errorMessage string) error
}

// Operation represents a background operation such as a batch refresh
type Operation struct {
	ID           string     `json:"id"`
	Type         string     `json:"type"`
	Status       string     `json:"status"`
	Progress     int        `json:"progress"`
	Total        int        `json:"total"`
	Message      string     `json:"message"`
	Target       *string    `json:"target,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	ErrorMessage *string    `json:"error_message,omitempty"`
}

// Operation statuses
const (
	OperationPending   = "pending"
	OperationQueued    = "queued"
	OperationRunning   = "running"
	OperationCompleted = "completed"
	OperationFailed    = "failed"
	OperationCanceled  = "canceled"
)

// IsTerminal reports whether status is a final operation status.
func IsTerminal(status string) bool {
	switch status {
	case OperationCompleted, OperationFailed, OperationCanceled:
		return true
	}
	return false
}

func newULID() (string, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(time.Now()), entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Options configures Open.
type Options struct {
	Type         string
	Path         string
	EnableSQLite bool
	// Sealer encrypts provider settings at rest when non-nil.
	Sealer *Sealer
}

// Open creates the configured store.
func Open(opts Options) (Store, error) {
	switch opts.Type {
	case "sqlite", "sqlite3":
		if !opts.EnableSQLite {
			return nil, fmt.Errorf("SQLite3 is not enabled. To use SQLite3, you must explicitly enable it with --enable-sqlite3-i-know-the-risks or set 'enable_sqlite3_i_know_the_risks: true' in your config file. PebbleDB is the recommended database for production use")
		}
		store, err := NewSQLiteStore(opts.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite store: %w", err)
		}
		store.SetSealer(opts.Sealer)
		log.Printf("[INFO] database: opened SQLite store at %s", opts.Path)
		return store, nil
	case "pebble", "":
		store, err := NewPebbleStore(opts.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize PebbleDB store: %w", err)
		}
		store.SetSealer(opts.Sealer)
		log.Printf("[INFO] database: opened PebbleDB store at %s", opts.Path)
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported database type: %s (supported: pebble, sqlite)", opts.Type)
	}
}
