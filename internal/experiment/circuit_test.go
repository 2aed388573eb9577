package experiment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLatencyCircuit_TooSlow(t *testing.T) {
	c := newLatencyCircuit(3.0)
	assert.True(t, c.TooSlow(100*time.Millisecond, 400*time.Millisecond))
	assert.False(t, c.TooSlow(100*time.Millisecond, 200*time.Millisecond))
	assert.False(t, c.TooSlow(0, 10*time.Second), "undefined ratio never trips")
}

func TestLatencyCircuit_TripsOpenAfterThresholdThenRecoversViaHalfOpen(t *testing.T) {
	c := newLatencyCircuit(3.0)
	now := time.Unix(0, 0)

	for i := 0; i < 5; i++ {
		assert.True(t, c.Allow(now))
		c.Record(true, now)
	}
	assert.Equal(t, circuitOpen, c.state)
	assert.False(t, c.Allow(now), "open circuit rejects immediately")

	later := now.Add(c.openTimeout + time.Second)
	assert.True(t, c.Allow(later), "half-open allows a probe once openTimeout elapses")
	assert.Equal(t, circuitHalfOpen, c.state)

	c.Record(false, later)
	c.Record(false, later)
	assert.Equal(t, circuitClosed, c.state)
}
