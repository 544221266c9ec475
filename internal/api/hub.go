package api

import (
	"log/slog"
	"sync"
	"time"

	"github.com/graaaaa/vrcphoto-companion/internal/ingest"
)

const (
	defaultSubscriberBufferSize = 16
	defaultBroadcastBufferSize  = 64
)

// Sync phases broadcast over the stream.
const (
	PhaseStarted   = "started"
	PhaseCompleted = "completed"
	PhaseFailed    = "failed"
)

// SyncEvent signals sync lifecycle changes to stream subscribers. The UI
// re-queries the grouped view when it sees a completed phase.
type SyncEvent struct {
	Phase  string         `json:"phase"`
	RunID  string         `json:"run_id,omitempty"`
	Result *ingest.Result `json:"result,omitempty"`
	Error  string         `json:"error,omitempty"`
	At     time.Time      `json:"at"`
}

// Subscriber is one SSE client connection's view of the hub.
type Subscriber struct {
	events chan *SyncEvent
	done   chan struct{}
}

// Events is the stream of sync events for this subscriber.
func (s *Subscriber) Events() <-chan *SyncEvent { return s.events }

// Done is closed when the subscriber has been unsubscribed.
func (s *Subscriber) Done() <-chan struct{} { return s.done }

// Hub fans sync events out to SSE subscribers. All subscriber state lives in
// the single Run goroutine; the exported methods only talk to it over
// channels, so none of them need a lock.
type Hub struct {
	register   chan *Subscriber
	unregister chan *Subscriber
	broadcast  chan *SyncEvent
	stop       chan struct{}
	stopped    chan struct{}
	stopOnce   sync.Once

	subscriberBufferSize int
	logger               *slog.Logger
}

// HubOption configures a Hub.
type HubOption func(*Hub)

// WithHubSubscriberBufferSize sets the per-subscriber event buffer.
func WithHubSubscriberBufferSize(size int) HubOption {
	return func(h *Hub) {
		if size > 0 {
			h.subscriberBufferSize = size
		}
	}
}

// WithHubLogger sets the logger for the Hub.
func WithHubLogger(logger *slog.Logger) HubOption {
	return func(h *Hub) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// NewHub creates a hub. Call Run in a goroutine to start it.
func NewHub(opts ...HubOption) *Hub {
	h := &Hub{
		register:             make(chan *Subscriber),
		unregister:           make(chan *Subscriber),
		broadcast:            make(chan *SyncEvent, defaultBroadcastBufferSize),
		stop:                 make(chan struct{}),
		stopped:              make(chan struct{}),
		subscriberBufferSize: defaultSubscriberBufferSize,
		logger:               slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run owns the subscriber set and blocks until Stop.
func (h *Hub) Run() {
	clients := make(map[*Subscriber]struct{})
	defer close(h.stopped)

	for {
		select {
		case sub := <-h.register:
			clients[sub] = struct{}{}
			h.logger.Debug("subscriber registered", "count", len(clients))

		case sub := <-h.unregister:
			if _, ok := clients[sub]; ok {
				delete(clients, sub)
				close(sub.done)
				close(sub.events)
				h.logger.Debug("subscriber unregistered", "count", len(clients))
			}

		case e := <-h.broadcast:
			for sub := range clients {
				select {
				case sub.events <- e:
				default:
					// A slow client loses events rather than stalling the hub.
					h.logger.Warn("subscriber channel full, event dropped",
						"phase", e.Phase, "run_id", e.RunID)
				}
			}

		case <-h.stop:
			for sub := range clients {
				close(sub.done)
				close(sub.events)
			}
			return
		}
	}
}

// Stop shuts down the event loop and waits for it to drain. Idempotent.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		close(h.stop)
	})
	<-h.stopped
}

// Subscribe registers a new subscriber. After Stop it returns an
// already-closed subscriber so callers need no special case.
func (h *Hub) Subscribe() *Subscriber {
	sub := &Subscriber{
		events: make(chan *SyncEvent, h.subscriberBufferSize),
		done:   make(chan struct{}),
	}
	select {
	case h.register <- sub:
		return sub
	case <-h.stopped:
		close(sub.done)
		close(sub.events)
		return sub
	}
}

// Unsubscribe removes a subscriber and closes its channels.
func (h *Hub) Unsubscribe(sub *Subscriber) {
	if sub == nil {
		return
	}
	select {
	case h.unregister <- sub:
	case <-h.stopped:
	}
}

// Publish queues an event for broadcast without blocking; when the broadcast
// buffer is full the event is dropped.
func (h *Hub) Publish(e *SyncEvent) {
	if e == nil {
		return
	}
	select {
	case h.broadcast <- e:
	case <-h.stopped:
	default:
		h.logger.Warn("broadcast channel full, event dropped",
			"phase", e.Phase, "run_id", e.RunID)
	}
}
