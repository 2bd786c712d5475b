// file: internal/health/tracker.go
// version: 1.1.0
// guid: e05a75ea-6d04-4a62-a8ef-2725fd242b29

// Package health tracks per-provider circuit breaker state derived from the
// persisted provider health record.
package health

import (
	"errors"
	"log"
	"sync"
	"time"

	"github.com/DS09AT/Shelvance-sub001/internal/database"
	"github.com/DS09AT/Shelvance-sub001/internal/metrics"
	"github.com/DS09AT/Shelvance-sub001/internal/models"
)

// Store persists provider health records. UpdateProviderHealth must apply fn
// atomically per provider: concurrent updates for the same provider are
// serialized and each sees the result of the previous one. A missing record
// is created before fn runs, unless the provider itself no longer exists, in
// which case the update fails with database.ErrNotFound.
type Store interface {
	GetProviderHealth(providerID string) (*models.ProviderHealthStatus, error)
	UpdateProviderHealth(providerID string, fn func(*models.ProviderHealthStatus) error) (*models.ProviderHealthStatus, error)
}

// Tracker decides provider eligibility and records call outcomes.
type Tracker struct {
	store  Store
	policy BackoffPolicy
	now    func() time.Time

	mu           sync.Mutex
	probes       map[string]bool
	onTransition func(providerID string, before, after models.CircuitState)
}

// NewTracker creates a tracker over store using policy for backoff.
func NewTracker(store Store, policy BackoffPolicy) *Tracker {
	return &Tracker{
		store:  store,
		policy: policy.normalized(),
		now:    time.Now,
		probes: make(map[string]bool),
	}
}

// SetClock replaces the time source. Intended for tests.
func (t *Tracker) SetClock(now func() time.Time) {
	t.now = now
}

// OnTransition registers fn to run whenever a recorded outcome moves a
// provider to a different circuit state. fn must not block.
func (t *Tracker) OnTransition(fn func(providerID string, before, after models.CircuitState)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onTransition = fn
}

// Policy returns the backoff policy in use.
func (t *Tracker) Policy() BackoffPolicy {
	return t.policy
}

// Status returns the persisted record for providerID, or a zero record when
// the provider has never been queried.
func (t *Tracker) Status(providerID string) (*models.ProviderHealthStatus, error) {
	s, err := t.store.GetProviderHealth(providerID)
	if err != nil {
		return nil, err
	}
	if s == nil {
		s = &models.ProviderHealthStatus{ProviderID: providerID}
	}
	return s, nil
}

// State returns the derived circuit state of providerID.
func (t *Tracker) State(providerID string) (models.CircuitState, error) {
	s, err := t.Status(providerID)
	if err != nil {
		return models.CircuitClosed, err
	}
	return s.State(t.now()), nil
}

// ProbeInFlight reports whether a half-open probe is currently admitted.
func (t *Tracker) ProbeInFlight(providerID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.probes[providerID]
}

// IsEligible reports whether providerID may receive traffic now: closed, or
// half-open with allowProbe set and no probe already in flight. It does not
// reserve the probe slot; use Admit for that.
func (t *Tracker) IsEligible(providerID string, allowProbe bool) bool {
	state := t.stateOrClosed(providerID)
	switch state {
	case models.CircuitClosed:
		return true
	case models.CircuitHalfOpen:
		return allowProbe && !t.ProbeInFlight(providerID)
	}
	return false
}

// Admission is a granted permission to call a provider. Release must be
// called once the call resolves, whatever its outcome.
type Admission struct {
	ProviderID string
	Probe      bool

	once    sync.Once
	tracker *Tracker
}

// Release frees the probe slot held by a half-open admission. Safe to call
// more than once.
func (a *Admission) Release() {
	if a == nil || !a.Probe {
		return
	}
	a.once.Do(func() {
		a.tracker.mu.Lock()
		delete(a.tracker.probes, a.ProviderID)
		a.tracker.mu.Unlock()
	})
}

// Admit grants an admission when the provider is eligible, reserving the
// single half-open probe slot when needed. The half-open state is read again
// under the lock: a probe that failed and released its slot in between has
// reopened the circuit.
func (t *Tracker) Admit(providerID string, allowProbe bool) (*Admission, bool) {
	state := t.stateOrClosed(providerID)
	switch state {
	case models.CircuitClosed:
		return &Admission{ProviderID: providerID, tracker: t}, true
	case models.CircuitHalfOpen:
		if !allowProbe {
			return nil, false
		}
		t.mu.Lock()
		defer t.mu.Unlock()
		if t.probes[providerID] {
			return nil, false
		}
		if t.stateOrClosed(providerID) != models.CircuitHalfOpen {
			return nil, false
		}
		t.probes[providerID] = true
		log.Printf("[INFO] health: admitting probe for provider %s", providerID)
		return &Admission{ProviderID: providerID, Probe: true, tracker: t}, true
	}
	return nil, false
}

// stateOrClosed fails open: a provider whose health cannot be read is treated
// as closed so a store outage does not take every provider offline.
func (t *Tracker) stateOrClosed(providerID string) models.CircuitState {
	state, err := t.State(providerID)
	if err != nil {
		log.Printf("[WARN] health: cannot read status for provider %s: %v", providerID, err)
		return models.CircuitClosed
	}
	return state
}

// RecordFailure registers an operational failure and extends the backoff.
// It returns nil, nil when the provider was deleted while its call was in
// flight.
func (t *Tracker) RecordFailure(providerID string) (*models.ProviderHealthStatus, error) {
	var before models.CircuitState
	updated, err := t.store.UpdateProviderHealth(providerID, func(s *models.ProviderHealthStatus) error {
		now := t.now()
		before = s.State(now)

		s.FailedQueryCount++
		if s.InitialFailureAt == nil {
			s.InitialFailureAt = &now
		}
		s.MostRecentFailureAt = &now
		s.EscalationLevel++

		until := now.Add(t.policy.Duration(s.EscalationLevel))
		if s.DisabledUntil == nil || until.After(*s.DisabledUntil) {
			s.DisabledUntil = &until
		}
		return nil
	})
	if gone(providerID, err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	after := updated.State(t.now())
	t.transition(providerID, before, after)
	if after == models.CircuitOpen {
		log.Printf("[WARN] health: provider %s disabled until %s (escalation %d)",
			providerID, updated.DisabledUntil.Format(time.RFC3339), updated.EscalationLevel)
	}
	return updated, nil
}

// RecordSuccess registers a successful query and closes the circuit. Like
// RecordFailure it ignores providers deleted mid-call.
func (t *Tracker) RecordSuccess(providerID string) (*models.ProviderHealthStatus, error) {
	var before models.CircuitState
	updated, err := t.store.UpdateProviderHealth(providerID, func(s *models.ProviderHealthStatus) error {
		now := t.now()
		before = s.State(now)

		s.SuccessfulQueryCount++
		s.LastSuccessfulQueryAt = &now
		s.EscalationLevel = 0
		s.DisabledUntil = nil
		s.InitialFailureAt = nil
		s.MostRecentFailureAt = nil
		return nil
	})
	if gone(providerID, err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	t.transition(providerID, before, models.CircuitClosed)
	return updated, nil
}

// Forget drops in-process state for a deleted provider.
func (t *Tracker) Forget(providerID string) {
	t.mu.Lock()
	delete(t.probes, providerID)
	t.mu.Unlock()
	metrics.DeleteCircuitState(providerID)
}

// gone reports whether err means the provider was deleted. Its health record
// and gauge went with it and must not be recreated.
func gone(providerID string, err error) bool {
	if !errors.Is(err, database.ErrNotFound) {
		return false
	}
	log.Printf("[DEBUG] health: provider %s was deleted, dropping outcome", providerID)
	return true
}

func (t *Tracker) transition(providerID string, before, after models.CircuitState) {
	metrics.SetCircuitState(providerID, string(after))
	if before == after {
		return
	}
	log.Printf("[INFO] health: provider %s %s -> %s", providerID, before, after)
	t.mu.Lock()
	fn := t.onTransition
	t.mu.Unlock()
	if fn != nil {
		fn(providerID, before, after)
	}
}
