// file: internal/database/pebble_store.go
// version: 2.1.0
// guid: 0c1d2e3f-4a5b-6c7d-8e9f-0a1b2c3d4e5f

package database

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cockroachdb/pebble/v2"
	json "github.com/goccy/go-json"

	"github.com/DS09AT/Shelvance-sub001/internal/models"
)

// PebbleStore implements the Store interface using PebbleDB (LSM key-value store)
//
// Key Schema:
// - provider:<id>              -> provider record JSON
// - providername:<name>        -> provider_id (lowercased name, for uniqueness)
// - health:<provider_id>       -> ProviderHealthStatus JSON
// - operation:<id>             -> Operation JSON
type PebbleStore struct {
	db     *pebble.DB
	sealer *Sealer

	// providerMu serializes definition writes so the name index stays
	// consistent with the records.
	providerMu sync.Mutex
	// healthLocks holds one mutex per provider id for read-modify-write
	// health updates.
	healthLocks sync.Map
	opMu        sync.Mutex
}

// NewPebbleStore creates a new PebbleDB store
func NewPebbleStore(path string) (*PebbleStore, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open PebbleDB: %w", err)
	}
	return &PebbleStore{db: db}, nil
}

// SetSealer enables settings encryption for subsequent writes and reads.
func (p *PebbleStore) SetSealer(s *Sealer) {
	p.sealer = s
}

// Close closes the database
func (p *PebbleStore) Close() error {
	return p.db.Close()
}

func providerKey(id string) []byte    { return []byte("provider:" + id) }
func providerNameKey(n string) []byte { return []byte("providername:" + normalizeName(n)) }
func healthKey(id string) []byte      { return []byte("health:" + id) }
func operationKey(id string) []byte   { return []byte("operation:" + id) }

func prefixBounds(prefix string) *pebble.IterOptions {
	upper := []byte(prefix)
	upper[len(upper)-1]++
	return &pebble.IterOptions{LowerBound: []byte(prefix), UpperBound: upper}
}

// get copies the value at key. Returns nil, nil when missing.
func (p *PebbleStore) get(key []byte) ([]byte, error) {
	value, closer, err := p.db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer closer.Close()
	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

// Provider operations

func (p *PebbleStore) GetAllProviders() ([]models.ProviderDefinition, error) {
	iter, err := p.db.NewIter(prefixBounds("provider:"))
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var defs []models.ProviderDefinition
	for iter.First(); iter.Valid(); iter.Next() {
		def, err := decodeProvider(p.sealer, iter.Value())
		if err != nil {
			return nil, fmt.Errorf("failed to decode provider %s: %w", iter.Key(), err)
		}
		defs = append(defs, *def)
	}
	return defs, iter.Error()
}

func (p *PebbleStore) GetProviderByID(id string) (*models.ProviderDefinition, error) {
	value, err := p.get(providerKey(id))
	if err != nil || value == nil {
		return nil, err
	}
	return decodeProvider(p.sealer, value)
}

func (p *PebbleStore) GetProviderByName(name string) (*models.ProviderDefinition, error) {
	id, err := p.get(providerNameKey(name))
	if err != nil || id == nil {
		return nil, err
	}
	return p.GetProviderByID(string(id))
}

func (p *PebbleStore) CreateProvider(def *models.ProviderDefinition) (*models.ProviderDefinition, error) {
	p.providerMu.Lock()
	defer p.providerMu.Unlock()

	existing, err := p.get(providerNameKey(def.Name))
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateName, def.Name)
	}
	if err := prepareCreate(def); err != nil {
		return nil, err
	}
	data, err := encodeProvider(p.sealer, def)
	if err != nil {
		return nil, err
	}

	batch := p.db.NewBatch()
	if err := batch.Set(providerKey(def.ID), data, nil); err != nil {
		batch.Close()
		return nil, err
	}
	if err := batch.Set(providerNameKey(def.Name), []byte(def.ID), nil); err != nil {
		batch.Close()
		return nil, err
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return nil, err
	}
	return def, nil
}

func (p *PebbleStore) UpdateProvider(id string, def *models.ProviderDefinition) (*models.ProviderDefinition, error) {
	p.providerMu.Lock()
	defer p.providerMu.Unlock()

	old, err := p.GetProviderByID(id)
	if err != nil {
		return nil, err
	}
	if old == nil {
		return nil, fmt.Errorf("provider %s: %w", id, ErrNotFound)
	}

	renamed := normalizeName(old.Name) != normalizeName(def.Name)
	if renamed {
		owner, err := p.get(providerNameKey(def.Name))
		if err != nil {
			return nil, err
		}
		if owner != nil && string(owner) != id {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateName, def.Name)
		}
	}

	def.ID = id
	def.CreatedAt = old.CreatedAt
	def.UpdatedAt = time.Now().UTC()
	data, err := encodeProvider(p.sealer, def)
	if err != nil {
		return nil, err
	}

	batch := p.db.NewBatch()
	if err := batch.Set(providerKey(id), data, nil); err != nil {
		batch.Close()
		return nil, err
	}
	if renamed {
		_ = batch.Delete(providerNameKey(old.Name), nil)
		_ = batch.Set(providerNameKey(def.Name), []byte(id), nil)
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return nil, err
	}
	return def, nil
}

func (p *PebbleStore) DeleteProvider(id string) error {
	p.providerMu.Lock()
	defer p.providerMu.Unlock()

	def, err := p.GetProviderByID(id)
	if err != nil {
		return err
	}
	if def == nil {
		return nil
	}

	unlock := p.lockHealth(id)
	defer unlock()

	batch := p.db.NewBatch()
	if err := batch.Delete(providerKey(id), nil); err != nil {
		batch.Close()
		return err
	}
	_ = batch.Delete(providerNameKey(def.Name), nil)
	_ = batch.Delete(healthKey(id), nil)
	return batch.Commit(pebble.Sync)
}

// Provider health operations

func (p *PebbleStore) lockHealth(providerID string) func() {
	v, _ := p.healthLocks.LoadOrStore(providerID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func (p *PebbleStore) GetProviderHealth(providerID string) (*models.ProviderHealthStatus, error) {
	value, err := p.get(healthKey(providerID))
	if err != nil || value == nil {
		return nil, err
	}
	var s models.ProviderHealthStatus
	if err := json.Unmarshal(value, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (p *PebbleStore) GetAllProviderHealth() ([]models.ProviderHealthStatus, error) {
	iter, err := p.db.NewIter(prefixBounds("health:"))
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var out []models.ProviderHealthStatus
	for iter.First(); iter.Valid(); iter.Next() {
		var s models.ProviderHealthStatus
		if err := json.Unmarshal(iter.Value(), &s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, iter.Error()
}

// UpdateProviderHealth holds the provider's health lock, which DeleteProvider
// also takes, so a provider deleted mid-update never gets its record back.
func (p *PebbleStore) UpdateProviderHealth(providerID string, fn func(*models.ProviderHealthStatus) error) (*models.ProviderHealthStatus, error) {
	unlock := p.lockHealth(providerID)
	defer unlock()

	def, err := p.get(providerKey(providerID))
	if err != nil {
		return nil, err
	}
	if def == nil {
		return nil, fmt.Errorf("provider %s: %w", providerID, ErrNotFound)
	}

	s, err := p.GetProviderHealth(providerID)
	if err != nil {
		return nil, err
	}
	if s == nil {
		s = &models.ProviderHealthStatus{ProviderID: providerID}
	}
	if err := fn(s); err != nil {
		return nil, err
	}
	s.ProviderID = providerID

	data, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	if err := p.db.Set(healthKey(providerID), data, pebble.Sync); err != nil {
		return nil, err
	}
	return s, nil
}

// Operation operations

func (p *PebbleStore) CreateOperation(id, opType string, target *string) (*Operation, error) {
	op := &Operation{
		ID:        id,
		Type:      opType,
		Status:    OperationPending,
		Target:    target,
		CreatedAt: time.Now(),
	}
	data, err := json.Marshal(op)
	if err != nil {
		return nil, err
	}
	if err := p.db.Set(operationKey(id), data, pebble.Sync); err != nil {
		return nil, err
	}
	return op, nil
}

func (p *PebbleStore) GetOperationByID(id string) (*Operation, error) {
	value, err := p.get(operationKey(id))
	if err != nil || value == nil {
		return nil, err
	}
	var op Operation
	if err := json.Unmarshal(value, &op); err != nil {
		return nil, err
	}
	return &op, nil
}

func (p *PebbleStore) GetRecentOperations(limit int) ([]Operation, error) {
	iter, err := p.db.NewIter(prefixBounds("operation:"))
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var operations []Operation
	for iter.First(); iter.Valid(); iter.Next() {
		var op Operation
		if err := json.Unmarshal(iter.Value(), &op); err != nil {
			continue
		}
		operations = append(operations, op)
	}

	sort.Slice(operations, func(i, j int) bool {
		return operations[i].CreatedAt.After(operations[j].CreatedAt)
	})
	if limit > 0 && len(operations) > limit {
		operations = operations[:limit]
	}
	return operations, nil
}

func (p *PebbleStore) modifyOperation(id string, fn func(op *Operation)) error {
	p.opMu.Lock()
	defer p.opMu.Unlock()

	op, err := p.GetOperationByID(id)
	if err != nil {
		return err
	}
	if op == nil {
		return fmt.Errorf("operation %s: %w", id, ErrNotFound)
	}
	fn(op)
	data, err := json.Marshal(op)
	if err != nil {
		return err
	}
	return p.db.Set(operationKey(id), data, pebble.Sync)
}

func (p *PebbleStore) UpdateOperationStatus(id, status string, progress, total int, message string) error {
	return p.modifyOperation(id, func(op *Operation) {
		applyOperationStatus(op, status, progress, total, message, time.Now())
	})
}

func (p *PebbleStore) UpdateOperationError(id, errorMessage string) error {
	return p.modifyOperation(id, func(op *Operation) {
		now := time.Now()
		op.Status = OperationFailed
		op.ErrorMessage = &errorMessage
		op.CompletedAt = &now
	})
}

// applyOperationStatus updates op in place. A terminal status is never
// replaced by a later non-terminal one, so a late progress update cannot
// resurrect a canceled operation.
func applyOperationStatus(op *Operation, status string, progress, total int, message string, now time.Time) {
	if IsTerminal(op.Status) && !IsTerminal(status) {
		return
	}
	op.Status = status
	op.Progress = progress
	op.Total = total
	op.Message = message
	if status == OperationRunning && op.StartedAt == nil {
		op.StartedAt = &now
	} else if IsTerminal(status) && op.CompletedAt == nil {
		op.CompletedAt = &now
	}
}
