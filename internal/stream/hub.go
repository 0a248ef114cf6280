// Package stream provides the fan-out hub that delivers filing lifecycle
// events to connected subscribers (SSE clients and external relays). The hub
// never blocks publishers: a subscriber that falls behind loses events.
package stream

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/secpulse/secpulse/internal/filing"
	"github.com/secpulse/secpulse/internal/metrics"
)

const (
	defaultSubscriberBuffer = 64
	dropLogInterval         = 5 * time.Second
)

// Hub fans filing events out to subscribers. Safe for concurrent use.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[uuid.UUID]chan filing.Event
	buffer      int
	logger      *zap.Logger
	dropLimiter rateLimiter
	dropped     atomic.Int64
}

var _ filing.Broadcaster = (*Hub)(nil)

// NewHub creates a Hub whose subscriber channels hold up to buffer events.
func NewHub(buffer int, logger *zap.Logger) *Hub {
	if buffer <= 0 {
		buffer = defaultSubscriberBuffer
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		subscribers: make(map[uuid.UUID]chan filing.Event),
		buffer:      buffer,
		logger:      logger,
		dropLimiter: rateLimiter{interval: dropLogInterval},
	}
}

// Subscribe registers a new subscriber and returns its channel along with a
// key for Unsubscribe. The channel is closed when the subscriber is removed.
func (h *Hub) Subscribe() (uuid.UUID, <-chan filing.Event) {
	id := uuid.New()
	ch := make(chan filing.Event, h.buffer)
	h.mu.Lock()
	h.subscribers[id] = ch
	h.mu.Unlock()
	return id, ch
}

// Unsubscribe removes a subscriber and closes its channel. Unknown keys are
// ignored.
func (h *Hub) Unsubscribe(id uuid.UUID) {
	h.mu.Lock()
	ch, ok := h.subscribers[id]
	if ok {
		delete(h.subscribers, id)
	}
	h.mu.Unlock()
	if ok {
		close(ch)
	}
}

// SubscriberCount reports the number of active subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// Publish delivers evt to every subscriber without blocking. Events for slow
// subscribers are dropped and counted; a rate-limited warning is logged.
func (h *Hub) Publish(evt filing.Event) {
	if h == nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.subscribers {
		select {
		case ch <- evt:
		default:
			h.dropped.Add(1)
			metrics.ObserveBroadcastDrop()
			if h.dropLimiter.Allow(time.Now()) {
				count := h.dropped.Swap(0)
				h.logger.Warn("stream events dropped due to slow subscribers",
					zap.Int64("dropped", count),
					zap.String("event_type", string(evt.Type)),
				)
			}
		}
	}
}

type rateLimiter struct {
	interval time.Duration
	last     atomic.Int64
}

func (r *rateLimiter) Allow(now time.Time) bool {
	if r == nil || r.interval <= 0 {
		return true
	}
	nano := now.UnixNano()
	last := r.last.Load()
	if nano-last < r.interval.Nanoseconds() {
		return false
	}
	return r.last.CompareAndSwap(last, nano)
}
