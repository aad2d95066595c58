//
//
package vehicle

import (
	"sort"
	"sync"
	"time"
)

// Registry is the shared map of known vehicles. The registry lock guards
// only membership; per-vehicle fields are guarded by each State's own lock.
type Registry struct {
	mu       sync.RWMutex
	vehicles map[int]*State
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{vehicles: make(map[int]*State)}
}

// Ensure returns the record for id, creating it on first sight.
// The second result is true when the record was just created.
func (r *Registry) Ensure(id int) (*State, bool) {
	r.mu.RLock()
	s, ok := r.vehicles[id]
	r.mu.RUnlock()
	if ok {
		return s, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.vehicles[id]; ok {
		return s, false
	}
	s = newState(id)
	r.vehicles[id] = s
	return s, true
}

// Lookup returns the record for id if the vehicle has been discovered.
func (r *Registry) Lookup(id int) (*State, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.vehicles[id]
	return s, ok
}

// IDs returns all known vehicle ids in ascending order.
func (r *Registry) IDs() []int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]int, 0, len(r.vehicles))
	for id := range r.vehicles {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// All returns the records for every known vehicle.
func (r *Registry) All() []*State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*State, 0, len(r.vehicles))
	for _, s := range r.vehicles {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// Snapshots returns point-in-time copies of every vehicle, ordered by id.
func (r *Registry) Snapshots(now time.Time) []Snapshot {
	states := r.All()
	out := make([]Snapshot, 0, len(states))
	for _, s := range states {
		out = append(out, s.Snapshot(now))
	}
	return out
}
