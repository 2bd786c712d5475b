// file: internal/database/sqlite_store.go
// version: 2.1.0
// guid: 8b9c0d1e-2f3a-4b5c-6d7e-8f9a0b1c2d3e

package database

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	_ "github.com/mattn/go-sqlite3"

	"github.com/DS09AT/Shelvance-sub001/internal/models"
)

type rowScanner interface {
	Scan(dest ...interface{}) error
}

const providerSelectColumns = `
	id, name, implementation, settings, sealed_settings, priority,
	author_search_enabled, book_search_enabled,
	automatic_refresh_enabled, interactive_search_enabled,
	tags, created_at, updated_at
`

const healthSelectColumns = `
	provider_id, initial_failure_at, most_recent_failure_at, escalation_level,
	disabled_until, last_successful_query_at, successful_query_count, failed_query_count
`

const operationSelectColumns = `
	id, type, status, progress, total, message, target,
	created_at, started_at, completed_at, error_message
`

// SQLiteStore implements the Store interface using SQLite3
type SQLiteStore struct {
	db     *sql.DB
	sealer *Sealer
}

// NewSQLiteStore creates a new SQLite store. Transactions begin IMMEDIATE so
// a health read-modify-write holds the write lock from its first read.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	dsn := path
	if !strings.Contains(dsn, "?") {
		dsn += "?_txlock=immediate&_busy_timeout=5000"
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return store, nil
}

// SetSealer enables settings encryption for subsequent writes and reads.
func (s *SQLiteStore) SetSealer(sealer *Sealer) {
	s.sealer = sealer
}

// createTables creates all required tables
func (s *SQLiteStore) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS providers (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		name_key TEXT NOT NULL UNIQUE,
		implementation TEXT NOT NULL,
		settings TEXT,
		sealed_settings BLOB,
		priority INTEGER NOT NULL DEFAULT 50,
		author_search_enabled BOOLEAN NOT NULL DEFAULT 1,
		book_search_enabled BOOLEAN NOT NULL DEFAULT 1,
		automatic_refresh_enabled BOOLEAN NOT NULL DEFAULT 1,
		interactive_search_enabled BOOLEAN NOT NULL DEFAULT 1,
		tags TEXT NOT NULL DEFAULT '[]',
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_providers_priority ON providers(priority, id);

	CREATE TABLE IF NOT EXISTS provider_health (
		provider_id TEXT PRIMARY KEY,
		initial_failure_at DATETIME,
		most_recent_failure_at DATETIME,
		escalation_level INTEGER NOT NULL DEFAULT 0,
		disabled_until DATETIME,
		last_successful_query_at DATETIME,
		successful_query_count INTEGER NOT NULL DEFAULT 0,
		failed_query_count INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS operations (
		id TEXT PRIMARY KEY,
		type TEXT NOT NULL,
		status TEXT NOT NULL,
		progress INTEGER NOT NULL DEFAULT 0,
		total INTEGER NOT NULL DEFAULT 0,
		message TEXT NOT NULL DEFAULT '',
		target TEXT,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		started_at DATETIME,
		completed_at DATETIME,
		error_message TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_operations_created_at ON operations(created_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Provider operations

func (s *SQLiteStore) scanProvider(scanner rowScanner) (*models.ProviderDefinition, error) {
	var (
		def      models.ProviderDefinition
		settings sql.NullString
		sealed   []byte
		tags     string
	)
	err := scanner.Scan(&def.ID, &def.Name, &def.ImplementationKind, &settings, &sealed, &def.Priority,
		&def.Features.AuthorSearchEnabled, &def.Features.BookSearchEnabled,
		&def.Features.AutomaticRefreshEnabled, &def.Features.InteractiveSearchEnabled,
		&tags, &def.CreatedAt, &def.UpdatedAt)
	if err != nil {
		return nil, err
	}
	var plain []byte
	if settings.Valid && settings.String != "" {
		plain = []byte(settings.String)
	}
	def.Settings, err = openSettings(s.sealer, def.ID, plain, sealed)
	if err != nil {
		return nil, err
	}
	if tags != "" {
		if err := json.Unmarshal([]byte(tags), &def.Tags); err != nil {
			return nil, fmt.Errorf("failed to decode tags for provider %s: %w", def.ID, err)
		}
	}
	return &def, nil
}

func (s *SQLiteStore) GetAllProviders() ([]models.ProviderDefinition, error) {
	rows, err := s.db.Query("SELECT " + providerSelectColumns + " FROM providers ORDER BY priority, id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var defs []models.ProviderDefinition
	for rows.Next() {
		def, err := s.scanProvider(rows)
		if err != nil {
			return nil, err
		}
		defs = append(defs, *def)
	}
	return defs, rows.Err()
}

func (s *SQLiteStore) getProvider(where string, arg interface{}) (*models.ProviderDefinition, error) {
	row := s.db.QueryRow("SELECT "+providerSelectColumns+" FROM providers WHERE "+where, arg)
	def, err := s.scanProvider(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return def, err
}

func (s *SQLiteStore) GetProviderByID(id string) (*models.ProviderDefinition, error) {
	return s.getProvider("id = ?", id)
}

func (s *SQLiteStore) GetProviderByName(name string) (*models.ProviderDefinition, error) {
	return s.getProvider("name_key = ?", normalizeName(name))
}

func encodeTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	data, err := json.Marshal(tags)
	return string(data), err
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func (s *SQLiteStore) CreateProvider(def *models.ProviderDefinition) (*models.ProviderDefinition, error) {
	if err := prepareCreate(def); err != nil {
		return nil, err
	}
	plain, sealed, err := sealSettings(s.sealer, def.ID, def.Settings)
	if err != nil {
		return nil, err
	}
	tags, err := encodeTags(def.Tags)
	if err != nil {
		return nil, err
	}
	_, err = s.db.Exec(`INSERT INTO providers (id, name, name_key, implementation, settings, sealed_settings, priority,
		author_search_enabled, book_search_enabled, automatic_refresh_enabled, interactive_search_enabled,
		tags, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		def.ID, def.Name, normalizeName(def.Name), def.ImplementationKind, nullableText(plain), sealed, def.Priority,
		def.Features.AuthorSearchEnabled, def.Features.BookSearchEnabled,
		def.Features.AutomaticRefreshEnabled, def.Features.InteractiveSearchEnabled,
		tags, def.CreatedAt, def.UpdatedAt)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateName, def.Name)
	}
	if err != nil {
		return nil, err
	}
	return def, nil
}

func (s *SQLiteStore) UpdateProvider(id string, def *models.ProviderDefinition) (*models.ProviderDefinition, error) {
	old, err := s.GetProviderByID(id)
	if err != nil {
		return nil, err
	}
	if old == nil {
		return nil, fmt.Errorf("provider %s: %w", id, ErrNotFound)
	}
	def.ID = id
	def.CreatedAt = old.CreatedAt
	def.UpdatedAt = time.Now().UTC()

	plain, sealed, err := sealSettings(s.sealer, id, def.Settings)
	if err != nil {
		return nil, err
	}
	tags, err := encodeTags(def.Tags)
	if err != nil {
		return nil, err
	}
	_, err = s.db.Exec(`UPDATE providers SET name = ?, name_key = ?, implementation = ?, settings = ?,
		sealed_settings = ?, priority = ?, author_search_enabled = ?, book_search_enabled = ?,
		automatic_refresh_enabled = ?, interactive_search_enabled = ?, tags = ?, updated_at = ?
		WHERE id = ?`,
		def.Name, normalizeName(def.Name), def.ImplementationKind, nullableText(plain), sealed, def.Priority,
		def.Features.AuthorSearchEnabled, def.Features.BookSearchEnabled,
		def.Features.AutomaticRefreshEnabled, def.Features.InteractiveSearchEnabled,
		tags, def.UpdatedAt, id)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateName, def.Name)
	}
	if err != nil {
		return nil, err
	}
	return def, nil
}

func (s *SQLiteStore) DeleteProvider(id string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM provider_health WHERE provider_id = ?", id); err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM providers WHERE id = ?", id); err != nil {
		return err
	}
	return tx.Commit()
}

func nullableText(b []byte) interface{} {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}

// Provider health operations

func scanHealth(scanner rowScanner) (*models.ProviderHealthStatus, error) {
	var h models.ProviderHealthStatus
	err := scanner.Scan(&h.ProviderID, &h.InitialFailureAt, &h.MostRecentFailureAt, &h.EscalationLevel,
		&h.DisabledUntil, &h.LastSuccessfulQueryAt, &h.SuccessfulQueryCount, &h.FailedQueryCount)
	if err != nil {
		return nil, err
	}
	return &h, nil
}

func (s *SQLiteStore) GetProviderHealth(providerID string) (*models.ProviderHealthStatus, error) {
	row := s.db.QueryRow("SELECT "+healthSelectColumns+" FROM provider_health WHERE provider_id = ?", providerID)
	h, err := scanHealth(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return h, err
}

func (s *SQLiteStore) GetAllProviderHealth() ([]models.ProviderHealthStatus, error) {
	rows, err := s.db.Query("SELECT " + healthSelectColumns + " FROM provider_health ORDER BY provider_id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ProviderHealthStatus
	for rows.Next() {
		h, err := scanHealth(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *h)
	}
	return out, rows.Err()
}

// UpdateProviderHealth runs the read-modify-write in one IMMEDIATE
// transaction, so concurrent updates for any provider are serialized by
// SQLite's write lock. A provider deleted before the transaction began gets
// no record.
func (s *SQLiteStore) UpdateProviderHealth(providerID string, fn func(*models.ProviderHealthStatus) error) (*models.ProviderHealthStatus, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRow("SELECT COUNT(1) FROM providers WHERE id = ?", providerID).Scan(&exists)
	if err != nil {
		return nil, err
	}
	if exists == 0 {
		return nil, fmt.Errorf("provider %s: %w", providerID, ErrNotFound)
	}

	row := tx.QueryRow("SELECT "+healthSelectColumns+" FROM provider_health WHERE provider_id = ?", providerID)
	h, err := scanHealth(row)
	if errors.Is(err, sql.ErrNoRows) {
		h = &models.ProviderHealthStatus{ProviderID: providerID}
	} else if err != nil {
		return nil, err
	}

	if err := fn(h); err != nil {
		return nil, err
	}
	h.ProviderID = providerID

	_, err = tx.Exec(`INSERT INTO provider_health (`+healthSelectColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(provider_id) DO UPDATE SET
			initial_failure_at = excluded.initial_failure_at,
			most_recent_failure_at = excluded.most_recent_failure_at,
			escalation_level = excluded.escalation_level,
			disabled_until = excluded.disabled_until,
			last_successful_query_at = excluded.last_successful_query_at,
			successful_query_count = excluded.successful_query_count,
			failed_query_count = excluded.failed_query_count`,
		h.ProviderID, h.InitialFailureAt, h.MostRecentFailureAt, h.EscalationLevel,
		h.DisabledUntil, h.LastSuccessfulQueryAt, h.SuccessfulQueryCount, h.FailedQueryCount)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return h, nil
}

// Operation operations

func (s *SQLiteStore) CreateOperation(id, opType string, target *string) (*Operation, error) {
	now := time.Now()
	_, err := s.db.Exec(`INSERT INTO operations (id, type, status, target, created_at)
		VALUES (?, ?, ?, ?, ?)`, id, opType, OperationPending, target, now)
	if err != nil {
		return nil, err
	}
	return &Operation{
		ID:        id,
		Type:      opType,
		Status:    OperationPending,
		Target:    target,
		CreatedAt: now,
	}, nil
}

func scanOperation(scanner rowScanner) (*Operation, error) {
	var op Operation
	if err := scanner.Scan(&op.ID, &op.Type, &op.Status, &op.Progress, &op.Total,
		&op.Message, &op.Target, &op.CreatedAt, &op.StartedAt,
		&op.CompletedAt, &op.ErrorMessage); err != nil {
		return nil, err
	}
	return &op, nil
}

func (s *SQLiteStore) GetOperationByID(id string) (*Operation, error) {
	op, err := scanOperation(s.db.QueryRow("SELECT "+operationSelectColumns+" FROM operations WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return op, err
}

func (s *SQLiteStore) GetRecentOperations(limit int) ([]Operation, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.Query("SELECT "+operationSelectColumns+" FROM operations ORDER BY created_at DESC LIMIT ?", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var operations []Operation
	for rows.Next() {
		op, err := scanOperation(rows)
		if err != nil {
			return nil, err
		}
		operations = append(operations, *op)
	}
	return operations, rows.Err()
}

func (s *SQLiteStore) modifyOperation(id string, fn func(op *Operation)) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	op, err := scanOperation(tx.QueryRow("SELECT "+operationSelectColumns+" FROM operations WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("operation %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return err
	}
	fn(op)
	_, err = tx.Exec(`UPDATE operations SET status = ?, progress = ?, total = ?, message = ?,
		started_at = ?, completed_at = ?, error_message = ? WHERE id = ?`,
		op.Status, op.Progress, op.Total, op.Message, op.StartedAt, op.CompletedAt, op.ErrorMessage, id)
	if err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) UpdateOperationStatus(id, status string, progress, total int, message string) error {
	return s.modifyOperation(id, func(op *Operation) {
		applyOperationStatus(op, status, progress, total, message, time.Now())
	})
}

func (s *SQLiteStore) UpdateOperationError(id, errorMessage string) error {
	return s.modifyOperation(id, func(op *Operation) {
		now := time.Now()
		op.Status = OperationFailed
		op.ErrorMessage = &errorMessage
		op.CompletedAt = &now
	})
}
