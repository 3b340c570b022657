package ratelimit

import (
	"sync"
	"time"
)

// windowTable counts admitted requests per key over a trailing time window.
// Each key maps to an append-ordered log of admission timestamps; timestamps
// older than the window are pruned lazily at the start of every check.
// All map and log access happens under a single table-wide mutex.
type windowTable struct {
	limit  int
	window time.Duration
	clock  Clock

	mu      sync.Mutex
	entries map[string][]time.Time
}

func newWindowTable(limit int, window time.Duration, clock Clock) *windowTable {
	return &windowTable{
		limit:   limit,
		window:  window,
		clock:   clock,
		entries: make(map[string][]time.Time),
	}
}

// tryAdmit reports whether one more request may proceed for key, recording
// it when allowed. Pruning, the limit check and the append form one critical
// section, so two concurrent callers can never both take the last slot.
// A limit of zero (or less) denies every request.
func (t *windowTable) tryAdmit(key string) (bool, int) {
	now := t.clock.Now()
	cutoff := now.Add(-t.window)

	t.mu.Lock()
	defer t.mu.Unlock()

	kept := pruneBefore(t.entries[key], cutoff)

	if t.limit <= 0 || len(kept) >= t.limit {
		t.entries[key] = kept
		return false, 0
	}

	kept = append(kept, now)
	t.entries[key] = kept
	return true, saturatingSub(t.limit, len(kept))
}

// remainingFor returns how many admits are left for key without consuming a
// slot. Unknown keys report the full limit and are not inserted into the map.
func (t *windowTable) remainingFor(key string) int {
	cutoff := t.clock.Now().Add(-t.window)

	t.mu.Lock()
	defer t.mu.Unlock()

	log, exists := t.entries[key]
	if !exists {
		if t.limit <= 0 {
			return 0
		}
		return t.limit
	}

	kept := pruneBefore(log, cutoff)
	t.entries[key] = kept
	return saturatingSub(t.limit, len(kept))
}

// nextSlotAt returns when the oldest recorded admission for key leaves the
// window, i.e. the earliest instant a denied caller could be admitted again.
// The zero time is returned when the key has no recorded admissions.
func (t *windowTable) nextSlotAt(key string) time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()

	log := t.entries[key]
	if len(log) == 0 {
		return time.Time{}
	}
	return log[0].Add(t.window)
}

// resetAt returns when the window for key fully drains, restoring the whole
// quota. The zero time is returned when the key has no recorded admissions.
func (t *windowTable) resetAt(key string) time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()

	log := t.entries[key]
	if len(log) == 0 {
		return time.Time{}
	}
	return log[len(log)-1].Add(t.window)
}

// sweep removes keys whose logs are empty after pruning. Without it the map
// would grow without bound under a high-cardinality key space, since checks
// only ever prune logs in place.
func (t *windowTable) sweep() {
	cutoff := t.clock.Now().Add(-t.window)

	t.mu.Lock()
	defer t.mu.Unlock()

	for key, log := range t.entries {
		kept := pruneBefore(log, cutoff)
		if len(kept) == 0 {
			delete(t.entries, key)
			continue
		}
		t.entries[key] = kept
	}
}

// len reports the current number of tracked keys. Used by tests and metrics.
func (t *windowTable) len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// pruneBefore drops timestamps at or before cutoff, preserving order.
// Logs are append-only in time order, so the first retained index bounds
// the stale prefix.
func pruneBefore(log []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(log) && !log[i].After(cutoff) {
		i++
	}
	if i == 0 {
		return log
	}
	return append(log[:0:0], log[i:]...)
}

// saturatingSub clamps a-b at zero so remaining counts never underflow,
// even if a log transiently holds more entries than the limit.
func saturatingSub(a, b int) int {
	if b >= a {
		return 0
	}
	return a - b
}
