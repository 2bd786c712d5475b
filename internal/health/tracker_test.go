// file: internal/health/tracker_test.go
// version: 1.1.0
// guid: 48ae16d6-2737-465e-88ef-b5451c83efe6

package health

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DS09AT/Shelvance-sub001/internal/database"
	"github.com/DS09AT/Shelvance-sub001/internal/models"
)

type memStore struct {
	mu      sync.Mutex
	records map[string]models.ProviderHealthStatus
	deleted map[string]bool
	getErr  error
}

func newMemStore() *memStore {
	return &memStore{
		records: make(map[string]models.ProviderHealthStatus),
		deleted: make(map[string]bool),
	}
}

func (m *memStore) GetProviderHealth(id string) (*models.ProviderHealthStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	s, ok := m.records[id]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *memStore) UpdateProviderHealth(id string, fn func(*models.ProviderHealthStatus) error) (*models.ProviderHealthStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleted[id] {
		return nil, fmt.Errorf("provider %s: %w", id, database.ErrNotFound)
	}
	s, ok := m.records[id]
	if !ok {
		s = models.ProviderHealthStatus{ProviderID: id}
	}
	if err := fn(&s); err != nil {
		return nil, err
	}
	m.records[id] = s
	out := s
	return &out, nil
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

func newTestTracker(t *testing.T) (*Tracker, *memStore, *fakeClock) {
	t.Helper()
	store := newMemStore()
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	tr := NewTracker(store, BackoffPolicy{Initial: time.Minute, Multiplier: 2, Max: time.Hour})
	tr.SetClock(clock.Now)
	return tr, store, clock
}

func TestTracker_UnknownProviderIsClosed(t *testing.T) {
	tr, _, _ := newTestTracker(t)

	state, err := tr.State("p1")
	require.NoError(t, err)
	assert.Equal(t, models.CircuitClosed, state)
	assert.True(t, tr.IsEligible("p1", false))

	s, err := tr.Status("p1")
	require.NoError(t, err)
	assert.Equal(t, "p1", s.ProviderID)
	assert.Zero(t, s.EscalationLevel)
}

func TestTracker_ConsecutiveFailuresEscalate(t *testing.T) {
	tr, _, clock := newTestTracker(t)

	var prev time.Time
	for n := 1; n <= 8; n++ {
		s, err := tr.RecordFailure("p1")
		require.NoError(t, err)
		assert.Equal(t, n, s.EscalationLevel)
		assert.Equal(t, int64(n), s.FailedQueryCount)
		require.NotNil(t, s.DisabledUntil)
		assert.False(t, s.DisabledUntil.Before(prev), "disabledUntil went backwards at failure %d", n)
		prev = *s.DisabledUntil
		clock.Advance(10 * time.Second)
	}
}

func TestTracker_RecordFailureTimestamps(t *testing.T) {
	tr, _, clock := newTestTracker(t)
	start := clock.Now()

	s, err := tr.RecordFailure("p1")
	require.NoError(t, err)
	require.NotNil(t, s.InitialFailureAt)
	assert.Equal(t, start, *s.InitialFailureAt)
	assert.Equal(t, start.Add(time.Minute), *s.DisabledUntil)

	clock.Advance(30 * time.Second)
	s, err = tr.RecordFailure("p1")
	require.NoError(t, err)
	assert.Equal(t, start, *s.InitialFailureAt)
	assert.Equal(t, clock.Now(), *s.MostRecentFailureAt)
	assert.Equal(t, clock.Now().Add(2*time.Minute), *s.DisabledUntil)
}

func TestTracker_RecordSuccessResets(t *testing.T) {
	tr, _, _ := newTestTracker(t)

	for i := 0; i < 3; i++ {
		_, err := tr.RecordFailure("p1")
		require.NoError(t, err)
	}

	for i := 0; i < 2; i++ {
		s, err := tr.RecordSuccess("p1")
		require.NoError(t, err)
		assert.Zero(t, s.EscalationLevel)
		assert.Nil(t, s.DisabledUntil)
		assert.Nil(t, s.InitialFailureAt)
		assert.Nil(t, s.MostRecentFailureAt)
		assert.NotNil(t, s.LastSuccessfulQueryAt)
		assert.Equal(t, int64(i+1), s.SuccessfulQueryCount)
		assert.Equal(t, int64(3), s.FailedQueryCount)
	}

	state, err := tr.State("p1")
	require.NoError(t, err)
	assert.Equal(t, models.CircuitClosed, state)
}

func TestTracker_StateTransitions(t *testing.T) {
	tr, _, clock := newTestTracker(t)

	_, err := tr.RecordFailure("p1")
	require.NoError(t, err)

	state, _ := tr.State("p1")
	assert.Equal(t, models.CircuitOpen, state)
	assert.False(t, tr.IsEligible("p1", true))

	clock.Advance(time.Minute + time.Second)
	state, _ = tr.State("p1")
	assert.Equal(t, models.CircuitHalfOpen, state)
	assert.True(t, tr.IsEligible("p1", true))
	assert.False(t, tr.IsEligible("p1", false))
}

func TestTracker_SingleProbe(t *testing.T) {
	tr, _, clock := newTestTracker(t)

	_, err := tr.RecordFailure("p1")
	require.NoError(t, err)
	clock.Advance(2 * time.Minute)

	first, ok := tr.Admit("p1", true)
	require.True(t, ok)
	assert.True(t, first.Probe)
	assert.True(t, tr.ProbeInFlight("p1"))

	_, ok = tr.Admit("p1", true)
	assert.False(t, ok, "second probe must be denied while the first is in flight")
	assert.False(t, tr.IsEligible("p1", true))

	first.Release()
	first.Release()
	assert.False(t, tr.ProbeInFlight("p1"))

	second, ok := tr.Admit("p1", true)
	require.True(t, ok)
	second.Release()
}

func TestTracker_ConcurrentProbeAdmission(t *testing.T) {
	tr, _, clock := newTestTracker(t)
	_, err := tr.RecordFailure("p1")
	require.NoError(t, err)
	clock.Advance(2 * time.Minute)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		admitted int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok := tr.Admit("p1", true); ok {
				mu.Lock()
				admitted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, admitted)
}

func TestTracker_ClosedAdmissionIsNotProbe(t *testing.T) {
	tr, _, _ := newTestTracker(t)
	a, ok := tr.Admit("p1", false)
	require.True(t, ok)
	assert.False(t, a.Probe)
	a.Release()
	assert.False(t, tr.ProbeInFlight("p1"))
}

func TestTracker_ProbeFailureReopens(t *testing.T) {
	tr, _, clock := newTestTracker(t)
	_, err := tr.RecordFailure("p1")
	require.NoError(t, err)
	clock.Advance(2 * time.Minute)

	a, ok := tr.Admit("p1", true)
	require.True(t, ok)
	s, err := tr.RecordFailure("p1")
	a.Release()
	require.NoError(t, err)
	assert.Equal(t, 2, s.EscalationLevel)

	state, _ := tr.State("p1")
	assert.Equal(t, models.CircuitOpen, state)
}

func TestTracker_ConcurrentFailuresDoNotLoseIncrements(t *testing.T) {
	tr, store, _ := newTestTracker(t)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = tr.RecordFailure("p1")
		}()
	}
	wg.Wait()

	s, err := store.GetProviderHealth("p1")
	require.NoError(t, err)
	assert.Equal(t, 50, s.EscalationLevel)
	assert.Equal(t, int64(50), s.FailedQueryCount)
}

func TestTracker_StoreErrorFailsOpen(t *testing.T) {
	tr, store, _ := newTestTracker(t)
	store.getErr = errors.New("disk gone")

	assert.True(t, tr.IsEligible("p1", false))
	_, ok := tr.Admit("p1", false)
	assert.True(t, ok)

	_, err := tr.State("p1")
	assert.Error(t, err)
}

func TestTracker_Forget(t *testing.T) {
	tr, _, clock := newTestTracker(t)
	_, err := tr.RecordFailure("p1")
	require.NoError(t, err)
	clock.Advance(2 * time.Minute)

	_, ok := tr.Admit("p1", true)
	require.True(t, ok)
	tr.Forget("p1")
	assert.False(t, tr.ProbeInFlight("p1"))
}

func TestTracker_OnTransitionFiresOnStateChanges(t *testing.T) {
	tr, _, clock := newTestTracker(t)

	type change struct{ from, to models.CircuitState }
	var got []change
	tr.OnTransition(func(id string, before, after models.CircuitState) {
		assert.Equal(t, "p1", id)
		got = append(got, change{before, after})
	})

	_, err := tr.RecordFailure("p1")
	require.NoError(t, err)
	_, err = tr.RecordFailure("p1")
	require.NoError(t, err)

	clock.Advance(time.Hour)
	_, err = tr.RecordSuccess("p1")
	require.NoError(t, err)
	_, err = tr.RecordSuccess("p1")
	require.NoError(t, err)

	assert.Equal(t, []change{
		{models.CircuitClosed, models.CircuitOpen},
		{models.CircuitHalfOpen, models.CircuitClosed},
	}, got)
}

func TestTracker_DeletedProviderOutcomeIsDropped(t *testing.T) {
	tr, store, _ := newTestTracker(t)
	store.deleted["p1"] = true

	var transitions int
	tr.OnTransition(func(string, models.CircuitState, models.CircuitState) { transitions++ })

	s, err := tr.RecordFailure("p1")
	require.NoError(t, err)
	assert.Nil(t, s)
	s, err = tr.RecordSuccess("p1")
	require.NoError(t, err)
	assert.Nil(t, s)

	rec, err := store.GetProviderHealth("p1")
	require.NoError(t, err)
	assert.Nil(t, rec)
	assert.Zero(t, transitions)
}

func TestTracker_AdmitRechecksStateAfterProbeResolves(t *testing.T) {
	store := database.NewMockStore()
	store.Providers["p1"] = models.ProviderDefinition{ID: "p1", Name: "Open Library"}
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	tr := NewTracker(store, BackoffPolicy{Initial: time.Minute, Multiplier: 2, Max: time.Hour})
	tr.SetClock(clock.Now)

	until := clock.Now().Add(-time.Second)
	store.SetHealth(models.ProviderHealthStatus{ProviderID: "p1", EscalationLevel: 1, DisabledUntil: &until})

	probe, ok := tr.Admit("p1", true)
	require.True(t, ok)
	require.True(t, probe.Probe)

	// The first read hands out the half-open record, then the probe fails
	// and frees its slot before the second admission reaches the lock.
	var reads int
	store.GetProviderHealthFunc = func(id string) (*models.ProviderHealthStatus, error) {
		reads++
		current := store.Health[id]
		if reads == 1 {
			_, err := tr.RecordFailure(id)
			require.NoError(t, err)
			probe.Release()
		}
		return &current, nil
	}

	_, ok = tr.Admit("p1", true)
	assert.False(t, ok, "a reopened circuit must not admit another probe")
	assert.False(t, tr.ProbeInFlight("p1"))

	state, err := tr.State("p1")
	require.NoError(t, err)
	assert.Equal(t, models.CircuitOpen, state)
}
