package notify

import "sync"

// subscriberBuffer is the per-subscriber channel capacity. A subscriber that
// falls further behind than this loses events, which observers must tolerate
// anyway: LISTEN/NOTIFY delivery is best-effort end to end.
const subscriberBuffer = 16

// Hub fans one event stream out to many subscribers. The HTTP layer holds one
// Hub fed by a Listener; each server-sent-events connection subscribes for its
// lifetime and unsubscribes when the client goes away.
type Hub struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan Event
}

// NewHub returns an empty Hub. Run must be started for events to flow.
func NewHub() *Hub {
	return &Hub{subs: make(map[int]chan Event)}
}

// Run consumes events from in and broadcasts each to every current
// subscriber. It returns when in is closed. Slow subscribers are skipped,
// never waited on.
func (h *Hub) Run(in <-chan Event) {
	for ev := range in {
		h.mu.Lock()
		for _, ch := range h.subs {
			select {
			case ch <- ev:
			default:
			}
		}
		h.mu.Unlock()
	}
}

// Subscribe registers a new subscriber and returns its event channel along
// with a cancel function. Cancel must be called exactly once; after it
// returns, the channel is closed and receives nothing further.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextID
	h.nextID++
	ch := make(chan Event, subscriberBuffer)
	h.subs[id] = ch

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if _, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(ch)
		}
	}
	return ch, cancel
}
