package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Decision is a record of a single admission-control outcome. It is handed
// to a DecisionStats sink by the middleware after every check.
type Decision struct {
	Key     string    // The IP or user ID the check ran against
	Source  string    // "ip" or "user"
	Allowed bool      // Whether the request was admitted
	Method  string    // HTTP method, for per-route aggregation
	Path    string    // URL path, for per-route aggregation
	At      time.Time // When the decision was made
}

// DecisionStats is the strategy for persisting admission decisions.
// Recording is best-effort: the middleware ignores errors, and a failing
// sink must never influence the admission decision itself.
type DecisionStats interface {
	Record(ctx context.Context, d Decision) error
}

// Counters aggregates allow/deny totals.
type Counters struct {
	Allowed int64
	Denied  int64
}

// MemoryStats is an in-memory DecisionStats for tests and development.
// It keeps totals plus per-route breakdowns and never expires data.
type MemoryStats struct {
	mu      sync.Mutex
	total   Counters
	byRoute map[string]Counters
}

// NewMemoryStats creates an empty in-memory decision sink.
func NewMemoryStats() *MemoryStats {
	return &MemoryStats{byRoute: make(map[string]Counters)}
}

// Record implements DecisionStats.
func (s *MemoryStats) Record(_ context.Context, d Decision) error {
	route := d.Method + " " + d.Path

	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.byRoute[route]
	if d.Allowed {
		s.total.Allowed++
		c.Allowed++
	} else {
		s.total.Denied++
		c.Denied++
	}
	s.byRoute[route] = c
	return nil
}

// Total returns the aggregate allow/deny counts.
func (s *MemoryStats) Total() Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}

// ByRoute returns a copy of the per-route counters.
func (s *MemoryStats) ByRoute() map[string]Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]Counters, len(s.byRoute))
	for k, v := range s.byRoute {
		out[k] = v
	}
	return out
}
