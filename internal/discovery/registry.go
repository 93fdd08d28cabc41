package discovery

import (
	"sync"

	"github.com/labctl/labctl/internal/ident"
)

// Registry is a concurrent mapping from peer Id to its ServiceRecord, the
// Controller's view of every Sensor or Actuator it has resolved.
// Re-resolution of a known Id replaces its entry; nothing is ever removed
// — the system implements no registry expiry (see Open Question (c) in
// DESIGN.md).
type Registry struct {
	mu      sync.RWMutex
	entries map[ident.Id]ServiceRecord
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{entries: map[ident.Id]ServiceRecord{}}
}

// Save inserts or replaces rec, keyed by rec.Id. It is the save hook
// handed to a discovery worker.
func (r *Registry) Save(rec ServiceRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[rec.Id] = rec
}

// Get looks up a single entry by Id.
func (r *Registry) Get(id ident.Id) (ServiceRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.entries[id]
	return rec, ok
}

// List returns a snapshot of every known entry.
func (r *Registry) List() []ServiceRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ServiceRecord, 0, len(r.entries))
	for _, rec := range r.entries {
		out = append(out, rec)
	}
	return out
}

// Len reports the number of known entries.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Slot is a single-valued reference to a discovered peer, used where a
// device only ever needs one peer of a given group (a Sensor's
// Environment and Controller, an Actuator's Environment).
type Slot struct {
	mu  sync.RWMutex
	rec ServiceRecord
	has bool
}

// NewSlot returns an empty Slot.
func NewSlot() *Slot {
	return &Slot{}
}

// Set stores rec, overwriting whatever the slot previously held.
func (s *Slot) Set(rec ServiceRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rec = rec
	s.has = true
}

// Get returns the stored record, or false if the slot is still empty.
func (s *Slot) Get() (ServiceRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rec, s.has
}
