// Package store holds the in-memory delivery bookkeeping owned by a dispatcher:
// the terminal status table and the index of delivered ids.
package store

import (
	"sync"

	"github.com/lattiq/mailrelay/internal/core"
)

// Statuses maps message ids to their terminal delivery status.
// A status, once recorded, is never overwritten.
type Statuses struct {
	mu      sync.RWMutex
	entries map[string]core.DeliveryStatus
}

// NewStatuses creates an empty status table.
func NewStatuses() *Statuses {
	return &Statuses{entries: make(map[string]core.DeliveryStatus)}
}

// Record stores a terminal status for id. It reports false without changing
// anything when id already has a status or when status is not terminal.
func (s *Statuses) Record(id string, status core.DeliveryStatus) bool {
	if !status.Terminal() {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[id]; exists {
		return false
	}
	s.entries[id] = status
	return true
}

// Get returns the recorded status for id.
func (s *Statuses) Get(id string) (core.DeliveryStatus, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status, ok := s.entries[id]
	return status, ok
}

// Len returns the number of recorded statuses.
func (s *Statuses) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// DedupIndex is the set of ids that were delivered successfully.
type DedupIndex struct {
	mu  sync.RWMutex
	ids map[string]struct{}
}

// NewDedupIndex creates an empty index.
func NewDedupIndex() *DedupIndex {
	return &DedupIndex{ids: make(map[string]struct{})}
}

// Add marks id as delivered. It reports whether id was newly added.
func (d *DedupIndex) Add(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.ids[id]; exists {
		return false
	}
	d.ids[id] = struct{}{}
	return true
}

// Contains reports whether id was delivered.
func (d *DedupIndex) Contains(id string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.ids[id]
	return ok
}

// Len returns the number of delivered ids.
func (d *DedupIndex) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.ids)
}
