package realtime

import (
	"context"
	"sync"

	"neothink/pkg/types"
)

// Bus delivers per-user change events to subscribers. Publish is
// fire-and-forget; Subscribe returns the function that unregisters fn.
type Bus interface {
	Publish(ctx context.Context, ev types.ChangeEvent) error
	Subscribe(userID string, fn func(types.ChangeEvent)) (unsubscribe func())
	Close() error
}

// Hub is the in-process Bus. Callbacks run synchronously on the publishing
// goroutine, so they must not block.
type Hub struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[string]map[uint64]func(types.ChangeEvent)
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[uint64]func(types.ChangeEvent))}
}

func (h *Hub) Publish(_ context.Context, ev types.ChangeEvent) error {
	h.deliver(ev)
	return nil
}

func (h *Hub) deliver(ev types.ChangeEvent) {
	h.mu.RLock()
	fns := make([]func(types.ChangeEvent), 0, len(h.subs[ev.UserID]))
	for _, fn := range h.subs[ev.UserID] {
		fns = append(fns, fn)
	}
	h.mu.RUnlock()

	for _, fn := range fns {
		fn(ev)
	}
}

func (h *Hub) Subscribe(userID string, fn func(types.ChangeEvent)) func() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	id := h.nextID
	if h.subs[userID] == nil {
		h.subs[userID] = make(map[uint64]func(types.ChangeEvent))
	}
	h.subs[userID][id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs[userID], id)
			if len(h.subs[userID]) == 0 {
				delete(h.subs, userID)
			}
		})
	}
}

// Subscribers reports the number of live subscriptions for a user.
func (h *Hub) Subscribers(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[userID])
}

func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subs = make(map[string]map[uint64]func(types.ChangeEvent))
	return nil
}
