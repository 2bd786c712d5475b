// file: internal/database/store_test.go
// version: 1.0.0
// guid: 438c3d82-5959-44f5-bcb9-d1c7b012cff2

package database

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DS09AT/Shelvance-sub001/internal/models"
)

type storeFactory func(t *testing.T) Store

func allStores() map[string]storeFactory {
	return map[string]storeFactory{
		"pebble": func(t *testing.T) Store {
			s, err := NewPebbleStore(filepath.Join(t.TempDir(), "pebble"))
			require.NoError(t, err)
			t.Cleanup(func() { _ = s.Close() })
			return s
		},
		"sqlite": func(t *testing.T) Store {
			s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
			require.NoError(t, err)
			t.Cleanup(func() { _ = s.Close() })
			return s
		},
		"mock": func(t *testing.T) Store {
			return NewMockStore()
		},
	}
}

func sampleProvider(name string, priority int) *models.ProviderDefinition {
	return &models.ProviderDefinition{
		Name:               name,
		ImplementationKind: "openlibrary",
		Settings:           json.RawMessage(`{"base_url":"https://openlibrary.org"}`),
		Priority:           priority,
		Features:           models.DefaultFeatureFlags(),
		Tags:               []string{"ebooks"},
	}
}

func TestStore_ProviderCRUD(t *testing.T) {
	for name, factory := range allStores() {
		t.Run(name, func(t *testing.T) {
			store := factory(t)

			created, err := store.CreateProvider(sampleProvider("Open Library", 10))
			require.NoError(t, err)
			require.NotEmpty(t, created.ID)
			assert.False(t, created.CreatedAt.IsZero())

			got, err := store.GetProviderByID(created.ID)
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, "Open Library", got.Name)
			assert.Equal(t, 10, got.Priority)
			assert.Equal(t, []string{"ebooks"}, got.Tags)
			assert.JSONEq(t, `{"base_url":"https://openlibrary.org"}`, string(got.Settings))
			assert.True(t, got.Features.InteractiveSearchEnabled)

			byName, err := store.GetProviderByName("open library")
			require.NoError(t, err)
			require.NotNil(t, byName)
			assert.Equal(t, created.ID, byName.ID)

			update := sampleProvider("OL", 20)
			update.Features.AuthorSearchEnabled = false
			updated, err := store.UpdateProvider(created.ID, update)
			require.NoError(t, err)
			assert.Equal(t, created.ID, updated.ID)

			got, err = store.GetProviderByID(created.ID)
			require.NoError(t, err)
			assert.Equal(t, "OL", got.Name)
			assert.Equal(t, 20, got.Priority)
			assert.False(t, got.Features.AuthorSearchEnabled)

			old, err := store.GetProviderByName("Open Library")
			require.NoError(t, err)
			assert.Nil(t, old)

			all, err := store.GetAllProviders()
			require.NoError(t, err)
			assert.Len(t, all, 1)

			require.NoError(t, store.DeleteProvider(created.ID))
			got, err = store.GetProviderByID(created.ID)
			require.NoError(t, err)
			assert.Nil(t, got)
		})
	}
}

func TestStore_DuplicateName(t *testing.T) {
	for name, factory := range allStores() {
		t.Run(name, func(t *testing.T) {
			store := factory(t)
			_, err := store.CreateProvider(sampleProvider("Google Books", 10))
			require.NoError(t, err)

			_, err = store.CreateProvider(sampleProvider("google books", 20))
			assert.True(t, errors.Is(err, ErrDuplicateName), "got %v", err)

			other, err := store.CreateProvider(sampleProvider("Other", 30))
			require.NoError(t, err)
			_, err = store.UpdateProvider(other.ID, sampleProvider("GOOGLE BOOKS", 30))
			assert.True(t, errors.Is(err, ErrDuplicateName), "got %v", err)
		})
	}
}

func TestStore_UpdateMissingProvider(t *testing.T) {
	for name, factory := range allStores() {
		t.Run(name, func(t *testing.T) {
			store := factory(t)
			_, err := store.UpdateProvider("missing", sampleProvider("X", 10))
			assert.True(t, errors.Is(err, ErrNotFound), "got %v", err)
		})
	}
}

func TestStore_ProviderHealth(t *testing.T) {
	for name, factory := range allStores() {
		t.Run(name, func(t *testing.T) {
			store := factory(t)
			def, err := store.CreateProvider(sampleProvider("Audnexus", 5))
			require.NoError(t, err)

			h, err := store.GetProviderHealth(def.ID)
			require.NoError(t, err)
			assert.Nil(t, h)

			now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
			until := now.Add(time.Minute)
			updated, err := store.UpdateProviderHealth(def.ID, func(s *models.ProviderHealthStatus) error {
				s.EscalationLevel++
				s.FailedQueryCount++
				s.InitialFailureAt = &now
				s.MostRecentFailureAt = &now
				s.DisabledUntil = &until
				return nil
			})
			require.NoError(t, err)
			assert.Equal(t, 1, updated.EscalationLevel)

			h, err = store.GetProviderHealth(def.ID)
			require.NoError(t, err)
			require.NotNil(t, h)
			assert.Equal(t, def.ID, h.ProviderID)
			assert.Equal(t, 1, h.EscalationLevel)
			assert.Equal(t, int64(1), h.FailedQueryCount)
			require.NotNil(t, h.DisabledUntil)
			assert.True(t, until.Equal(*h.DisabledUntil))
			assert.Nil(t, h.LastSuccessfulQueryAt)

			_, err = store.UpdateProviderHealth(def.ID, func(s *models.ProviderHealthStatus) error {
				return errors.New("abort")
			})
			require.Error(t, err)
			h, err = store.GetProviderHealth(def.ID)
			require.NoError(t, err)
			assert.Equal(t, 1, h.EscalationLevel, "aborted update must not persist")

			all, err := store.GetAllProviderHealth()
			require.NoError(t, err)
			assert.Len(t, all, 1)

			require.NoError(t, store.DeleteProvider(def.ID))
			h, err = store.GetProviderHealth(def.ID)
			require.NoError(t, err)
			assert.Nil(t, h, "health must be removed with its provider")
		})
	}
}

func TestStore_ConcurrentHealthUpdates(t *testing.T) {
	for name, factory := range allStores() {
		t.Run(name, func(t *testing.T) {
			store := factory(t)
			def, err := store.CreateProvider(sampleProvider("Hardcover", 10))
			require.NoError(t, err)

			const n = 25
			var wg sync.WaitGroup
			for i := 0; i < n; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, err := store.UpdateProviderHealth(def.ID, func(s *models.ProviderHealthStatus) error {
						s.EscalationLevel++
						s.FailedQueryCount++
						return nil
					})
					assert.NoError(t, err)
				}()
			}
			wg.Wait()

			h, err := store.GetProviderHealth(def.ID)
			require.NoError(t, err)
			assert.Equal(t, n, h.EscalationLevel)
			assert.Equal(t, int64(n), h.FailedQueryCount)
		})
	}
}

func TestStore_HealthRequiresProvider(t *testing.T) {
	for name, factory := range allStores() {
		t.Run(name, func(t *testing.T) {
			store := factory(t)
			bump := func(s *models.ProviderHealthStatus) error {
				s.FailedQueryCount++
				return nil
			}

			_, err := store.UpdateProviderHealth("never-created", bump)
			require.ErrorIs(t, err, ErrNotFound)
			h, err := store.GetProviderHealth("never-created")
			require.NoError(t, err)
			assert.Nil(t, h)

			def, err := store.CreateProvider(sampleProvider("Google Books", 20))
			require.NoError(t, err)
			_, err = store.UpdateProviderHealth(def.ID, bump)
			require.NoError(t, err)
			require.NoError(t, store.DeleteProvider(def.ID))

			_, err = store.UpdateProviderHealth(def.ID, bump)
			require.ErrorIs(t, err, ErrNotFound)
			h, err = store.GetProviderHealth(def.ID)
			require.NoError(t, err)
			assert.Nil(t, h, "a late update must not bring the record back")

			all, err := store.GetAllProviderHealth()
			require.NoError(t, err)
			assert.Empty(t, all)
		})
	}
}

func TestStore_Operations(t *testing.T) {
	for name, factory := range allStores() {
		t.Run(name, func(t *testing.T) {
			store := factory(t)
			target := "book_search"

			op, err := store.CreateOperation("op1", "refresh", &target)
			require.NoError(t, err)
			assert.Equal(t, OperationPending, op.Status)

			require.NoError(t, store.UpdateOperationStatus("op1", OperationRunning, 1, 4, "working"))
			got, err := store.GetOperationByID("op1")
			require.NoError(t, err)
			assert.Equal(t, OperationRunning, got.Status)
			assert.Equal(t, 1, got.Progress)
			assert.Equal(t, 4, got.Total)
			assert.NotNil(t, got.StartedAt)

			require.NoError(t, store.UpdateOperationStatus("op1", OperationCanceled, 1, 4, "canceled"))
			require.NoError(t, store.UpdateOperationStatus("op1", OperationRunning, 2, 4, "late progress"))
			got, err = store.GetOperationByID("op1")
			require.NoError(t, err)
			assert.Equal(t, OperationCanceled, got.Status, "terminal status must stick")

			_, err = store.CreateOperation("op2", "refresh", nil)
			require.NoError(t, err)
			require.NoError(t, store.UpdateOperationError("op2", "boom"))
			got, err = store.GetOperationByID("op2")
			require.NoError(t, err)
			assert.Equal(t, OperationFailed, got.Status)
			require.NotNil(t, got.ErrorMessage)
			assert.Equal(t, "boom", *got.ErrorMessage)

			recent, err := store.GetRecentOperations(10)
			require.NoError(t, err)
			assert.Len(t, recent, 2)

			missing, err := store.GetOperationByID("nope")
			require.NoError(t, err)
			assert.Nil(t, missing)
			assert.Error(t, store.UpdateOperationStatus("nope", OperationRunning, 0, 0, ""))
		})
	}
}

func TestStore_SealedSettings(t *testing.T) {
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}
	sealer, err := NewSealer(key)
	require.NoError(t, err)

	dir := t.TempDir()
	store, err := NewPebbleStore(filepath.Join(dir, "pebble"))
	require.NoError(t, err)
	store.SetSealer(sealer)

	def := sampleProvider("Hardcover", 40)
	def.ImplementationKind = "hardcover"
	def.Settings = json.RawMessage(`{"token":"secret-token-value"}`)
	created, err := store.CreateProvider(def)
	require.NoError(t, err)

	raw, err := store.get(providerKey(created.ID))
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "secret-token-value")

	got, err := store.GetProviderByID(created.ID)
	require.NoError(t, err)
	assert.JSONEq(t, `{"token":"secret-token-value"}`, string(got.Settings))

	store.SetSealer(nil)
	_, err = store.GetProviderByID(created.ID)
	assert.Error(t, err, "sealed settings need the key")
	require.NoError(t, store.Close())
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()

	_, err := Open(Options{Type: "sqlite", Path: filepath.Join(dir, "a.db")})
	assert.Error(t, err, "sqlite requires the explicit opt-in")

	s, err := Open(Options{Type: "sqlite", Path: filepath.Join(dir, "a.db"), EnableSQLite: true})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(Options{Path: filepath.Join(dir, "pebble")})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = Open(Options{Type: "mysql"})
	assert.Error(t, err)
}

func TestMockStore_ErrorOnNext(t *testing.T) {
	store := NewMockStore()
	store.ErrorOnNext["GetAllProviders"] = errors.New("boom")

	_, err := store.GetAllProviders()
	assert.Error(t, err)
	_, err = store.GetAllProviders()
	assert.NoError(t, err)
}
