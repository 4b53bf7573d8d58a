// Package events fans out coordinator and playback events to subscribers.
package events

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/xid"
	"github.com/rs/zerolog"
)

const (
	QueuedEvent          string = "queued"
	TrackStartedEvent    string = "track_started"
	PlaylistResumedEvent string = "playlist_resumed"
	DeadLetteredEvent    string = "dead_lettered"
	SkippedEvent         string = "skipped"
	NowPlayingEvent      string = "now_playing"
)

// Event is the message delivered to subscribers
type Event struct {
	Type    string          `json:"type"`
	Created time.Time       `json:"created"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Publisher is implemented by Hub
type Publisher interface {
	Publish(typ string, payload any)
}

// Subscription receives events until it is closed
type Subscription struct {
	ID string
	C  <-chan Event

	hub *Hub
}

// Close removes the subscription from the hub
func (s *Subscription) Close() {
	s.hub.unsubscribe(s.ID)
}

// Hub delivers published events to all subscribers. Slow subscribers drop
// events rather than block publishers.
type Hub struct {
	mu      sync.Mutex
	clients map[string]chan Event
	buffer  int
	closed  bool
	logger  zerolog.Logger
}

// NewHub creates a hub whose subscribers buffer up to buffer events
func NewHub(buffer int, logger zerolog.Logger) *Hub {
	if buffer < 1 {
		buffer = 1
	}
	return &Hub{
		clients: make(map[string]chan Event),
		buffer:  buffer,
		logger:  logger.With().Str("component", "events").Logger(),
	}
}

// Subscribe registers a new subscriber
func (h *Hub) Subscribe() *Subscription {
	id := xid.New().String()
	c := make(chan Event, h.buffer)

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		close(c)
	} else {
		h.clients[id] = c
	}

	h.logger.Debug().Str("subscriber", id).Msg("subscribed")
	return &Subscription{ID: id, C: c, hub: h}
}

func (h *Hub) unsubscribe(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if c, ok := h.clients[id]; ok {
		delete(h.clients, id)
		close(c)
		h.logger.Debug().Str("subscriber", id).Msg("unsubscribed")
	}
}

// Publish broadcasts an event. payload is encoded as JSON.
func (h *Hub) Publish(typ string, payload any) {
	event := Event{
		Type:    typ,
		Created: time.Now().UTC(),
	}

	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			h.logger.Error().Err(err).Str("event", typ).Msg("failed to encode event payload")
			return
		}
		event.Payload = b
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for id, c := range h.clients {
		select {
		case c <- event:
		default:
			h.logger.Warn().Str("subscriber", id).Str("event", typ).Msg("subscriber too slow, dropping event")
		}
	}
}

// Subscribers returns the number of active subscribers
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every subscriber
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true

	for id, c := range h.clients {
		close(c)
		delete(h.clients, id)
	}
	h.logger.Info().Msg("closed event hub")
}
