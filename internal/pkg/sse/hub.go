// Package sse fans server-sent events out to subscribers grouped by tenant.
package sse

import (
	"sync"
)

// Event is one message for the subscribers of a company.
type Event struct {
	CompanyID string
	Event     string
	Data      any
}

// Hub holds the live subscriber channels per company.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan Event]struct{}
	buffer      int
}

// NewHub creates a hub whose subscriber channels hold up to buffer pending events.
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = 16
	}
	return &Hub{
		subscribers: make(map[string]map[chan Event]struct{}),
		buffer:      buffer,
	}
}

// Subscribe registers a subscriber for companyID. The returned cleanup closes the channel.
func (h *Hub) Subscribe(companyID string) (<-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan Event, h.buffer)
	if h.subscribers[companyID] == nil {
		h.subscribers[companyID] = make(map[chan Event]struct{})
	}
	h.subscribers[companyID][ch] = struct{}{}

	var once sync.Once
	cleanup := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subscribers[companyID], ch)
			close(ch)
			if len(h.subscribers[companyID]) == 0 {
				delete(h.subscribers, companyID)
			}
		})
	}
	return ch, cleanup
}

// Publish delivers e to every subscriber of e.CompanyID. Slow subscribers miss events
// rather than blocking the publisher; the return value counts deliveries.
func (h *Hub) Publish(e Event) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for ch := range h.subscribers[e.CompanyID] {
		select {
		case ch <- e:
			delivered++
		default:
		}
	}
	return delivered
}

func (h *Hub) SubscriberCount(companyID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[companyID])
}
