// Package state tracks the last viewed word of each document title.
package state

import (
	"maps"
	"sync"
)

// PersistFunc writes a full snapshot of the history.
type PersistFunc func(history map[string]int) error

// History maps document titles to the index of the last viewed word.
type History struct {
	data    map[string]int
	persist PersistFunc
	mu      sync.RWMutex
}

// NewHistory creates a History seeded with initial. persist is called with a
// snapshot after every change; nil keeps the history in memory only.
func NewHistory(initial map[string]int, persist PersistFunc) *History {
	data := make(map[string]int, len(initial))
	for title, index := range initial {
		if index < 0 {
			index = 0
		}
		data[title] = index
	}
	return &History{data: data, persist: persist}
}

// GetPosition returns the saved position for title, or 0 if not found.
func (h *History) GetPosition(title string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.data[title]
}

// SetPosition saves the position for title. Negative indices are stored as 0.
func (h *History) SetPosition(title string, index int) error {
	if index < 0 {
		index = 0
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.data[title] = index
	return h.save()
}

// Clear removes the saved position for title.
func (h *History) Clear(title string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.data[title]; !ok {
		return nil
	}
	delete(h.data, title)
	return h.save()
}

// Snapshot returns a copy of all saved positions.
func (h *History) Snapshot() map[string]int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return maps.Clone(h.data)
}

// save must be called with h.mu held.
func (h *History) save() error {
	if h.persist == nil {
		return nil
	}
	return h.persist(maps.Clone(h.data))
}
