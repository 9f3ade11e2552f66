package probe

import (
	"errors"
	"sync"
	"time"
)

// ErrBreakerOpen is returned when a provider's breaker rejects a probe.
var ErrBreakerOpen = errors.New("provider circuit open")

// BreakerState represents the per-provider circuit state.
type BreakerState int

const (
	BreakerClosed BreakerState = iota
	BreakerHalfOpen
	BreakerOpen
)

// String returns the string representation of the state.
func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerHalfOpen:
		return "half-open"
	case BreakerOpen:
		return "open"
	default:
		return "unknown"
	}
}

// BreakerSettings configures provider health tracking.
type BreakerSettings struct {
	// FailureThreshold is the consecutive-failure count that opens the
	// circuit for a provider host.
	FailureThreshold int
	// Cooldown is how long an open circuit rejects probes before allowing
	// a half-open trial.
	Cooldown time.Duration
}

// breaker tracks one provider host's health. A provider that keeps failing
// probes is skipped for a cooldown period so candidate sequencing moves on
// quickly instead of re-timing-out against a dead host.
type breaker struct {
	settings BreakerSettings

	mu           sync.Mutex
	state        BreakerState
	consecutive  int
	openedAt     time.Time
	halfOpenBusy bool
}

func newBreaker(settings BreakerSettings) *breaker {
	if settings.FailureThreshold <= 0 {
		settings.FailureThreshold = 3
	}
	if settings.Cooldown <= 0 {
		settings.Cooldown = 30 * time.Second
	}
	return &breaker{settings: settings}
}

// Allow reports whether a probe may proceed. In half-open state only one
// trial probe is admitted at a time.
func (b *breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerClosed:
		return true
	case BreakerOpen:
		if time.Since(b.openedAt) < b.settings.Cooldown {
			return false
		}
		b.state = BreakerHalfOpen
		b.halfOpenBusy = true
		return true
	case BreakerHalfOpen:
		if b.halfOpenBusy {
			return false
		}
		b.halfOpenBusy = true
		return true
	}
	return true
}

// Record reports a probe outcome back to the breaker.
func (b *breaker) Record(success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if success {
		b.state = BreakerClosed
		b.consecutive = 0
		b.halfOpenBusy = false
		return
	}

	b.consecutive++
	b.halfOpenBusy = false
	if b.state == BreakerHalfOpen || b.consecutive >= b.settings.FailureThreshold {
		b.state = BreakerOpen
		b.openedAt = time.Now()
	}
}

// State returns the current state.
func (b *breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// breakerSet holds one breaker per provider host.
type breakerSet struct {
	settings BreakerSettings
	mu       sync.Mutex
	byHost   map[string]*breaker
}

func newBreakerSet(settings BreakerSettings) *breakerSet {
	return &breakerSet{settings: settings, byHost: map[string]*breaker{}}
}

func (s *breakerSet) get(host string) *breaker {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.byHost[host]
	if !ok {
		b = newBreaker(s.settings)
		s.byHost[host] = b
	}
	return b
}
