package service

import (
	"sync"

	"cpu_throttle"
)

// Hub fans status snapshots out to stream subscribers. Each subscriber holds at most
// one pending snapshot; a slow reader only ever sees the newest one.
type Hub struct {
	mu   sync.Mutex
	subs map[chan cpu_throttle.Status]struct{}
	last cpu_throttle.Status
}

func NewHub() *Hub {
	return &Hub{subs: make(map[chan cpu_throttle.Status]struct{})}
}

func (h *Hub) Publish(st cpu_throttle.Status) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.last = st
	for ch := range h.subs {
		select {
		case <-ch:
		default:
		}
		ch <- st
	}
}

// Subscribe returns a channel of snapshots and the function that releases it.
func (h *Hub) Subscribe() (<-chan cpu_throttle.Status, func()) {
	ch := make(chan cpu_throttle.Status, 1)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			h.mu.Unlock()
		})
	}
}

func (h *Hub) Last() cpu_throttle.Status {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.last
}
