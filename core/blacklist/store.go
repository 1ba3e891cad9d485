// Package blacklist persists per-request technician exclusions.
package blacklist

import (
	"context"
	"sync"
	"time"
)

// Store is the durable exclusion list of each request.
type Store interface {
	// Get returns the excluded technician ids of requestID.
	Get(ctx context.Context, requestID string) (map[string]struct{}, error)
	// Add excludes technicianID from requestID on behalf of actorID.
	Add(ctx context.Context, requestID, technicianID, actorID string) error
}

// Entry is one stored exclusion.
type Entry struct {
	RequestID    string    `json:"request_id"`
	TechnicianID string    `json:"technician_id"`
	ActorID      string    `json:"actor_id"`
	CreatedAt    time.Time `json:"created_at"`
}

// Memory is an in-process Store.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]map[string]Entry
	now     func() time.Time
}

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]map[string]Entry), now: time.Now}
}

func (m *Memory) Get(_ context.Context, requestID string) (map[string]struct{}, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]struct{}, len(m.entries[requestID]))
	for id := range m.entries[requestID] {
		out[id] = struct{}{}
	}
	return out, nil
}

func (m *Memory) Add(_ context.Context, requestID, technicianID, actorID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.entries[requestID]
	if !ok {
		set = make(map[string]Entry)
		m.entries[requestID] = set
	}
	if _, dup := set[technicianID]; dup {
		return nil
	}
	set[technicianID] = Entry{RequestID: requestID, TechnicianID: technicianID, ActorID: actorID, CreatedAt: m.now()}
	return nil
}

// Entries returns the stored exclusions of requestID.
func (m *Memory) Entries(requestID string) []Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Entry, 0, len(m.entries[requestID]))
	for _, e := range m.entries[requestID] {
		out = append(out, e)
	}
	return out
}

// Union merges sets into a new set.
func Union(sets ...map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{})
	for _, s := range sets {
		for id := range s {
			out[id] = struct{}{}
		}
	}
	return out
}
