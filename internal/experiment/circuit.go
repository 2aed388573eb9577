package experiment

import (
	"sync"
	"time"
)

// circuitState mirrors the teacher's closed/open/half-open circuit breaker
// (internal/llm/circuit_breaker.go), generalized from a failure-count gate to
// a latency-ratio gate: a "failure" here is a shadow run whose latency
// exceeded circuitMultiplier times the primary's latency.
type circuitState string

const (
	circuitClosed   circuitState = "closed"
	circuitOpen     circuitState = "open"
	circuitHalfOpen circuitState = "half_open"
)

// latencyCircuit trips when shadow latency repeatedly runs too far ahead of
// primary latency, and skips shadow forks until it recovers.
type latencyCircuit struct {
	mu sync.Mutex

	multiplier          float64
	failureThreshold    int
	successThreshold    int
	openTimeout         time.Duration
	halfOpenMaxRequests int

	state                circuitState
	consecutiveFailures  int
	consecutiveSuccesses int
	halfOpenRequests     int
	lastTrip             time.Time
}

func newLatencyCircuit(multiplier float64) *latencyCircuit {
	return &latencyCircuit{
		multiplier:          multiplier,
		failureThreshold:    5,
		successThreshold:    2,
		openTimeout:         30 * time.Second,
		halfOpenMaxRequests: 3,
		state:               circuitClosed,
	}
}

// Allow reports whether a shadow fork may proceed under the circuit's current
// state, transitioning open->half-open once openTimeout has elapsed.
func (c *latencyCircuit) Allow(now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case circuitOpen:
		if now.Sub(c.lastTrip) > c.openTimeout {
			c.state = circuitHalfOpen
			c.halfOpenRequests = 1
			return true
		}
		return false
	case circuitHalfOpen:
		if c.halfOpenRequests >= c.halfOpenMaxRequests {
			return false
		}
		c.halfOpenRequests++
		return true
	default:
		return true
	}
}

// Record reports the outcome of an allowed shadow fork: tooSlow is true when
// shadowLatency exceeded multiplier times primaryLatency.
func (c *latencyCircuit) Record(tooSlow bool, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if tooSlow {
		c.consecutiveFailures++
		c.consecutiveSuccesses = 0
		c.lastTrip = now

		switch c.state {
		case circuitClosed:
			if c.consecutiveFailures >= c.failureThreshold {
				c.state = circuitOpen
			}
		case circuitHalfOpen:
			c.state = circuitOpen
		}
		return
	}

	c.consecutiveSuccesses++
	c.consecutiveFailures = 0

	if c.state == circuitHalfOpen && c.consecutiveSuccesses >= c.successThreshold {
		c.state = circuitClosed
		c.halfOpenRequests = 0
	}
}

// TooSlow reports whether shadowLatency breaches the configured multiplier
// over primaryLatency. A zero or negative primaryLatency never trips the
// circuit, since the ratio would be undefined.
func (c *latencyCircuit) TooSlow(primaryLatency, shadowLatency time.Duration) bool {
	if primaryLatency <= 0 {
		return false
	}
	return float64(shadowLatency) > c.multiplier*float64(primaryLatency)
}
