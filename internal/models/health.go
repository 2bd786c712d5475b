// file: internal/models/health.go
// version: 1.0.0
// guid: 54a4348b-28c6-466c-a043-1919ec235429

package models

import "time"

// CircuitState is derived from a ProviderHealthStatus, never stored.
type CircuitState string

const (
	CircuitClosed   CircuitState = "closed"
	CircuitOpen     CircuitState = "open"
	CircuitHalfOpen CircuitState = "half_open"
)

// ProviderHealthStatus is the persisted health record of one provider.
type ProviderHealthStatus struct {
	ProviderID            string     `json:"provider_id"`
	InitialFailureAt      *time.Time `json:"initial_failure_at,omitempty"`
	MostRecentFailureAt   *time.Time `json:"most_recent_failure_at,omitempty"`
	EscalationLevel       int        `json:"escalation_level"`
	DisabledUntil         *time.Time `json:"disabled_until,omitempty"`
	LastSuccessfulQueryAt *time.Time `json:"last_successful_query_at,omitempty"`
	SuccessfulQueryCount  int64      `json:"successful_query_count"`
	FailedQueryCount      int64      `json:"failed_query_count"`
}

// State derives the circuit state at instant now.
func (s *ProviderHealthStatus) State(now time.Time) CircuitState {
	if s == nil {
		return CircuitClosed
	}
	if s.DisabledUntil != nil && s.DisabledUntil.After(now) {
		return CircuitOpen
	}
	if s.EscalationLevel > 0 {
		return CircuitHalfOpen
	}
	return CircuitClosed
}
