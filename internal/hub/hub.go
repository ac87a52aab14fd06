// Package hub fans Snapshots out to subscribers and remembers the latest one.
package hub

import (
	"log/slog"
	"sync"

	"github.com/miradorstack/mirador-thermal/internal/models"
)

const subscriberBuffer = 16

// Hub broadcasts Snapshot values to every subscriber. Slow subscribers miss
// snapshots rather than blocking the producer.
type Hub struct {
	name   string
	logger *slog.Logger

	mu          sync.RWMutex
	subscribers map[int]chan models.Snapshot
	nextID      int
	latest      *models.Snapshot
	dropped     int64
	closed      bool
	onDrop      func(feed string, n int)
}

// New creates a Hub for the named feed.
func New(name string, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{name: name, logger: logger, subscribers: make(map[int]chan models.Snapshot)}
}

// Name returns the feed name.
func (h *Hub) Name() string {
	return h.name
}

// OnDrop registers a callback invoked with the number of snapshots dropped by
// one Publish call.
func (h *Hub) OnDrop(fn func(feed string, n int)) {
	h.mu.Lock()
	h.onDrop = fn
	h.mu.Unlock()
}

// Subscribe returns a buffered channel receiving every published snapshot,
// primed with the latest one when available, and a func that unsubscribes and
// closes the channel.
func (h *Hub) Subscribe() (<-chan models.Snapshot, func()) {
	ch := make(chan models.Snapshot, subscriberBuffer)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := h.nextID
	h.nextID++
	h.subscribers[id] = ch
	if h.latest != nil {
		ch <- *h.latest
	}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if sub, ok := h.subscribers[id]; ok {
				delete(h.subscribers, id)
				close(sub)
			}
		})
	}
}

// Publish stores snap as the latest snapshot and offers it to every subscriber.
func (h *Hub) Publish(snap models.Snapshot) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.latest = &snap
	dropped := 0
	for _, ch := range h.subscribers {
		select {
		case ch <- snap:
		default:
			dropped++
		}
	}
	h.dropped += int64(dropped)
	total, onDrop := h.dropped, h.onDrop
	h.mu.Unlock()

	if dropped > 0 {
		h.logger.Debug("hub dropped snapshot for slow consumer", slog.String("feed", h.name), slog.Int("dropped", dropped), slog.Int64("total", total))
		if onDrop != nil {
			onDrop(h.name, dropped)
		}
	}
}

// Latest returns the most recently published snapshot.
func (h *Hub) Latest() (models.Snapshot, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.latest == nil {
		return models.Snapshot{}, false
	}
	return *h.latest, true
}

// Dropped returns the total number of snapshots dropped for slow consumers.
func (h *Hub) Dropped() int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.dropped
}

// Subscribers returns the number of active subscribers.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// Close closes every subscriber channel. Later Publish calls are ignored.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, ch := range h.subscribers {
		close(ch)
		delete(h.subscribers, id)
	}
}
