// file: internal/database/mock_store.go
// version: 2.1.0
// guid: b2c3d4e5-f6a7-8b9c-0d1e-2f3a4b5c6d7e

package database

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/DS09AT/Shelvance-sub001/internal/models"
)

// MockStore is an in-memory Store for tests. A method delegates to its Func
// override when set; otherwise it fails once with any error queued in
// ErrorOnNext under its name, and then operates on the in-memory maps.
type MockStore struct {
	mu sync.Mutex

	Providers  map[string]models.ProviderDefinition
	Health     map[string]models.ProviderHealthStatus
	Operations map[string]Operation

	// ErrorOnNext makes the next call of the named method fail.
	ErrorOnNext map[string]error

	// Provider methods
	GetAllProvidersFunc      func() ([]models.ProviderDefinition, error)
	GetProviderByIDFunc      func(id string) (*models.ProviderDefinition, error)
	GetProviderByNameFunc    func(name string) (*models.ProviderDefinition, error)
	CreateProviderFunc       func(def *models.ProviderDefinition) (*models.ProviderDefinition, error)
	UpdateProviderFunc       func(id string, def *models.ProviderDefinition) (*models.ProviderDefinition, error)
	DeleteProviderFunc       func(id string) error
	GetProviderHealthFunc    func(providerID string) (*models.ProviderHealthStatus, error)
	UpdateProviderHealthFunc func(providerID string, fn func(*models.ProviderHealthStatus) error) (*models.ProviderHealthStatus, error)

	// Lifecycle
	CloseFunc func() error

	// HealthUpdates counts UpdateProviderHealth calls per provider.
	HealthUpdates map[string]int
}

// NewMockStore creates an empty in-memory store.
func NewMockStore() *MockStore {
	return &MockStore{
		Providers:     make(map[string]models.ProviderDefinition),
		Health:        make(map[string]models.ProviderHealthStatus),
		Operations:    make(map[string]Operation),
		ErrorOnNext:   make(map[string]error),
		HealthUpdates: make(map[string]int),
	}
}

// takeError pops the injected error for method. Caller holds m.mu.
func (m *MockStore) takeError(method string) error {
	if err, ok := m.ErrorOnNext[method]; ok {
		delete(m.ErrorOnNext, method)
		return err
	}
	return nil
}

func (m *MockStore) Close() error {
	m.mu.Lock()
	err := m.takeError("Close")
	m.mu.Unlock()
	if err != nil {
		return err
	}
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

// Provider methods

func (m *MockStore) GetAllProviders() ([]models.ProviderDefinition, error) {
	if m.GetAllProvidersFunc != nil {
		return m.GetAllProvidersFunc()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeError("GetAllProviders"); err != nil {
		return nil, err
	}
	out := make([]models.ProviderDefinition, 0, len(m.Providers))
	for _, def := range m.Providers {
		out = append(out, def)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MockStore) GetProviderByID(id string) (*models.ProviderDefinition, error) {
	if m.GetProviderByIDFunc != nil {
		return m.GetProviderByIDFunc(id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeError("GetProviderByID"); err != nil {
		return nil, err
	}
	def, ok := m.Providers[id]
	if !ok {
		return nil, nil
	}
	return &def, nil
}

func (m *MockStore) GetProviderByName(name string) (*models.ProviderDefinition, error) {
	if m.GetProviderByNameFunc != nil {
		return m.GetProviderByNameFunc(name)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeError("GetProviderByName"); err != nil {
		return nil, err
	}
	for _, def := range m.Providers {
		if normalizeName(def.Name) == normalizeName(name) {
			d := def
			return &d, nil
		}
	}
	return nil, nil
}

func (m *MockStore) nameTaken(name, selfID string) bool {
	for id, def := range m.Providers {
		if id != selfID && normalizeName(def.Name) == normalizeName(name) {
			return true
		}
	}
	return false
}

func (m *MockStore) CreateProvider(def *models.ProviderDefinition) (*models.ProviderDefinition, error) {
	if m.CreateProviderFunc != nil {
		return m.CreateProviderFunc(def)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeError("CreateProvider"); err != nil {
		return nil, err
	}
	if m.nameTaken(def.Name, "") {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateName, def.Name)
	}
	if err := prepareCreate(def); err != nil {
		return nil, err
	}
	m.Providers[def.ID] = *def
	out := *def
	return &out, nil
}

func (m *MockStore) UpdateProvider(id string, def *models.ProviderDefinition) (*models.ProviderDefinition, error) {
	if m.UpdateProviderFunc != nil {
		return m.UpdateProviderFunc(id, def)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeError("UpdateProvider"); err != nil {
		return nil, err
	}
	old, ok := m.Providers[id]
	if !ok {
		return nil, fmt.Errorf("provider %s: %w", id, ErrNotFound)
	}
	if m.nameTaken(def.Name, id) {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateName, def.Name)
	}
	def.ID = id
	def.CreatedAt = old.CreatedAt
	def.UpdatedAt = time.Now().UTC()
	m.Providers[id] = *def
	out := *def
	return &out, nil
}

func (m *MockStore) DeleteProvider(id string) error {
	if m.DeleteProviderFunc != nil {
		return m.DeleteProviderFunc(id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeError("DeleteProvider"); err != nil {
		return err
	}
	delete(m.Providers, id)
	delete(m.Health, id)
	return nil
}

// Provider health methods

func (m *MockStore) GetProviderHealth(providerID string) (*models.ProviderHealthStatus, error) {
	if m.GetProviderHealthFunc != nil {
		return m.GetProviderHealthFunc(providerID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeError("GetProviderHealth"); err != nil {
		return nil, err
	}
	s, ok := m.Health[providerID]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *MockStore) GetAllProviderHealth() ([]models.ProviderHealthStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeError("GetAllProviderHealth"); err != nil {
		return nil, err
	}
	out := make([]models.ProviderHealthStatus, 0, len(m.Health))
	for _, s := range m.Health {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProviderID < out[j].ProviderID })
	return out, nil
}

func (m *MockStore) UpdateProviderHealth(providerID string, fn func(*models.ProviderHealthStatus) error) (*models.ProviderHealthStatus, error) {
	if m.UpdateProviderHealthFunc != nil {
		return m.UpdateProviderHealthFunc(providerID, fn)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeError("UpdateProviderHealth"); err != nil {
		return nil, err
	}
	if _, ok := m.Providers[providerID]; !ok {
		return nil, fmt.Errorf("provider %s: %w", providerID, ErrNotFound)
	}
	s, ok := m.Health[providerID]
	if !ok {
		s = models.ProviderHealthStatus{ProviderID: providerID}
	}
	if err := fn(&s); err != nil {
		return nil, err
	}
	s.ProviderID = providerID
	m.Health[providerID] = s
	m.HealthUpdates[providerID]++
	out := s
	return &out, nil
}

// SetHealth replaces the health record of a provider.
func (m *MockStore) SetHealth(s models.ProviderHealthStatus) {
	m.mu.Lock()
	m.Health[s.ProviderID] = s
	m.mu.Unlock()
}

// HealthUpdateCount returns how many health updates providerID received.
func (m *MockStore) HealthUpdateCount(providerID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.HealthUpdates[providerID]
}

// Operation methods

func (m *MockStore) CreateOperation(id, opType string, target *string) (*Operation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeError("CreateOperation"); err != nil {
		return nil, err
	}
	op := Operation{ID: id, Type: opType, Status: OperationPending, Target: target, CreatedAt: time.Now()}
	m.Operations[id] = op
	return &op, nil
}

func (m *MockStore) GetOperationByID(id string) (*Operation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeError("GetOperationByID"); err != nil {
		return nil, err
	}
	op, ok := m.Operations[id]
	if !ok {
		return nil, nil
	}
	return &op, nil
}

func (m *MockStore) GetRecentOperations(limit int) ([]Operation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeError("GetRecentOperations"); err != nil {
		return nil, err
	}
	out := make([]Operation, 0, len(m.Operations))
	for _, op := range m.Operations {
		out = append(out, op)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MockStore) UpdateOperationStatus(id, status string, progress, total int, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeError("UpdateOperationStatus"); err != nil {
		return err
	}
	op, ok := m.Operations[id]
	if !ok {
		return fmt.Errorf("operation %s: %w", id, ErrNotFound)
	}
	applyOperationStatus(&op, status, progress, total, message, time.Now())
	m.Operations[id] = op
	return nil
}

func (m *MockStore) UpdateOperationError(id, errorMessage string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeError("UpdateOperationError"); err != nil {
		return err
	}
	op, ok := m.Operations[id]
	if !ok {
		return fmt.Errorf("operation %s: %w", id, ErrNotFound)
	}
	now := time.Now()
	op.Status = OperationFailed
	op.ErrorMessage = &errorMessage
	op.CompletedAt = &now
	m.Operations[id] = op
	return nil
}

var _ Store = (*MockStore)(nil)
var _ Store = (*PebbleStore)(nil)
var _ Store = (*SQLiteStore)(nil)
