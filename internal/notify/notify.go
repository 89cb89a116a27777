// Package notify pushes pipeline progress events (start/complete/retry/
// timeout) out over a websocket hub, the narrow slice of the teacher's
// client-facing realtime surface this module actually needs — there is no
// HTTP API layer here, just the hub and the wire message shape its
// handler would accept connections for.
package notify

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"nhooyr.io/websocket"

	"github.com/google/uuid"
)

// EventKind is the closed set of progress events an enrichment/publish run
// emits.
type EventKind string

const (
	EventStart    EventKind = "start"
	EventProgress EventKind = "progress"
	EventComplete EventKind = "complete"
	EventRetry    EventKind = "retry"
	EventTimeout  EventKind = "timeout"
	EventError    EventKind = "error"
)

// Event is the payload broadcast to every connected client.
type Event struct {
	Kind     EventKind `json:"kind"`
	EntityID uuid.UUID `json:"entity_id,omitempty"`
	Phase    string    `json:"phase,omitempty"`
	Message  string    `json:"message,omitempty"`
	Done     int       `json:"done,omitempty"`
	Total    int       `json:"total,omitempty"`
}

// EventNotifier is the event sink interface that Hub and NopNotifier
// satisfy. The enrichment and publish orchestrators do not import this
// package; they report through their own ProgressFunc and NotifyFunc hooks.
type EventNotifier interface {
	Notify(Event)
}

// Hub fans Event values out to every connected websocket client. The zero
// value is not usable; construct with NewHub.
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

func NewHub() *Hub {
	return &Hub{clients: make(map[*client]struct{})}
}

// Notify implements EventNotifier, marshaling evt once and fanning it out
// to every connected client's buffered send channel. A full channel drops
// the message rather than blocking the whole hub on one slow reader.
func (h *Hub) Notify(evt Event) {
	msg, err := json.Marshal(evt)
	if err != nil {
		log.Printf("notify: marshal event: %v", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
		}
	}
}

func (h *Hub) addClient(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
}

func (h *Hub) removeClient(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		close(c.send)
		delete(h.clients, c)
	}
}

// ClientCount reports how many clients are currently connected, for
// operator-facing diagnostics.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Serve accepts a websocket connection and pumps Notify events to it until
// the connection closes. Callers wire this into whatever minimal HTTP
// mux exposes it; this package makes no assumption about routing or auth.
func (h *Hub) Serve(ctx context.Context, conn *websocket.Conn) {
	c := &client{conn: conn, send: make(chan []byte, 64)}
	h.addClient(c)

	go func() {
		defer conn.Close(websocket.StatusNormalClosure, "")
		for msg := range c.send {
			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := conn.Write(writeCtx, websocket.MessageText, msg)
			cancel()
			if err != nil {
				return
			}
		}
	}()

	for {
		if _, _, err := conn.Read(ctx); err != nil {
			break
		}
	}
	h.removeClient(c)
}

// NopNotifier discards every event; used by callers (tests, CLI one-shot
// runs) that have no realtime transport to push progress to.
type NopNotifier struct{}

func (NopNotifier) Notify(Event) {}
