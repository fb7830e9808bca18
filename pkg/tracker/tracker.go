// Package tracker maintains the process-local set of agents seen since
// startup. The first sighting of an agent is reported exactly once so
// downstream notifiers fire once per agent per process.
package tracker

import (
	"sort"
	"sync"
)

// Status is a point-in-time snapshot of the tracked set.
type Status struct {
	Count int      `json:"count"`
	IDs   []string `json:"ids"`
}

// Tracker is a mutex-guarded set of agent ids. Safe for concurrent use.
type Tracker struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// New creates an empty tracker.
func New() *Tracker {
	return &Tracker{seen: make(map[string]struct{})}
}

// Observe records agentID and reports whether this is its first sighting.
// Concurrent first sightings of the same agent yield exactly one true.
func (t *Tracker) Observe(agentID string) bool {
	if agentID == "" {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.seen[agentID]; ok {
		return false
	}
	t.seen[agentID] = struct{}{}
	return true
}

// Reset empties the tracked set.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.seen = make(map[string]struct{})
}

// Status returns a snapshot of the tracked set with ids in sorted order.
func (t *Tracker) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	ids := make([]string, 0, len(t.seen))
	for id := range t.seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return Status{Count: len(ids), IDs: ids}
}
