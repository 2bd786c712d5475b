// file: internal/health/backoff.go
// version: 1.0.0
// guid: f82dd0ca-ed57-42fe-8f54-1e6ab70f17ac

package health

import (
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Default backoff policy values.
const (
	DefaultBackoffInitial    = time.Minute
	DefaultBackoffMultiplier = 2.0
	DefaultBackoffMax        = 6 * time.Hour
)

// BackoffPolicy maps an escalation level to a disable duration. The curve is
// exponential without jitter and capped at Max, so the same level always
// yields the same duration.
type BackoffPolicy struct {
	Initial    time.Duration
	Multiplier float64
	Max        time.Duration
}

// DefaultBackoffPolicy doubles from one minute up to six hours.
func DefaultBackoffPolicy() BackoffPolicy {
	return BackoffPolicy{
		Initial:    DefaultBackoffInitial,
		Multiplier: DefaultBackoffMultiplier,
		Max:        DefaultBackoffMax,
	}
}

func (p BackoffPolicy) normalized() BackoffPolicy {
	if p.Initial <= 0 {
		p.Initial = DefaultBackoffInitial
	}
	if p.Multiplier < 1 {
		p.Multiplier = DefaultBackoffMultiplier
	}
	if p.Max < p.Initial {
		p.Max = p.Initial
	}
	return p
}

// Duration returns the disable duration for escalation level. Levels below 1
// yield zero.
func (p BackoffPolicy) Duration(level int) time.Duration {
	if level < 1 {
		return 0
	}
	p = p.normalized()

	b := &backoff.ExponentialBackOff{
		InitialInterval:     p.Initial,
		RandomizationFactor: 0,
		Multiplier:          p.Multiplier,
		MaxInterval:         p.Max,
	}
	b.Reset()

	var d time.Duration
	for i := 0; i < level; i++ {
		d = b.NextBackOff()
		if d >= p.Max {
			return p.Max
		}
	}
	return d
}
