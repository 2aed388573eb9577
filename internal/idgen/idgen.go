// Package idgen mints globally-unique identifiers for traces, spans, and
// audit events.
package idgen

import "github.com/google/uuid"

// IDGen abstracts identifier generation so tests can inject determinism.
type IDGen interface {
	NewID() string
}

// UUID generates RFC 4122 v4 identifiers via google/uuid.
type UUID struct{}

func (UUID) NewID() string { return uuid.New().String() }

// Sequential is a deterministic test generator.
type Sequential struct {
	prefix string
	next   int
}

// NewSequential creates a Sequential generator that emits "<prefix>-<n>".
func NewSequential(prefix string) *Sequential {
	return &Sequential{prefix: prefix}
}

func (s *Sequential) NewID() string {
	s.next++
	return s.prefix + "-" + itoa(s.next)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
