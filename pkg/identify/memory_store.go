package identify

import (
	"context"
	"sync"
	"time"
)

// window tracks one bot's admission state.
type window struct {
	available int
	start     time.Time
}

// MemoryStore implements Store with process-local windows.
type MemoryStore struct {
	mu      sync.Mutex
	windows map[string]*window
}

// NewMemoryStore creates an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{windows: make(map[string]*window)}
}

// Reserve claims a slot under the store mutex. Windows refill atomically at
// their boundary: the first reservation after expiry resets the window and
// consumes one slot, so available never exceeds concurrency.
func (ms *MemoryStore) Reserve(ctx context.Context, botID string, concurrency int, windowLen time.Duration) (bool, time.Duration, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	now := time.Now()
	w, exists := ms.windows[botID]
	if !exists || now.Sub(w.start) >= windowLen {
		ms.windows[botID] = &window{available: concurrency - 1, start: now}
		return true, 0, nil
	}

	if w.available > 0 {
		w.available--
		return true, 0, nil
	}

	return false, w.start.Add(windowLen).Sub(now), nil
}
