// Package realtime maintains the registry of live websocket sessions and
// pushes notification events to them.
//
// DELIVERY MODEL — AT-MOST-ONCE, BEST-EFFORT:
// A push is attempted exactly once against every session the recipient has
// open right now (multiple tabs/devices = multiple sessions). There is no
// queue and no retry: if the user has no open session, or a session's send
// buffer is full, the event is simply dropped. That is fine, because every
// pushed event is backed by a persisted notification record — a client that
// missed the push sees the notification on its next fetch. The push only
// exists to make open tabs update without polling.
package realtime

import (
	"log/slog"
	"sync"
)

// Event types pushed over the wire. The frontend switches on Type.
const (
	// EventNotification carries a full notification record.
	EventNotification = "notification"
	// EventNotificationRead signals a single notification was marked read.
	EventNotificationRead = "notification_read"
	// EventAllRead signals every notification was marked read, so clients
	// can clear their unread badge without refetching.
	EventAllRead = "all_notifications_read"
)

// Message is the single envelope format for everything pushed to clients.
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// Hub is the process-wide registry mapping a user ID to that user's open
// sessions. It is created once at service start and torn down at shutdown —
// no package-level state, the composition root owns the lifecycle.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]map[*Client]struct{}
	logger   *slog.Logger
}

// NewHub creates an empty registry.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		sessions: make(map[string]map[*Client]struct{}),
		logger:   logger,
	}
}

// Register adds a session for the user. Called after the websocket handshake
// has been authenticated — an unauthenticated connection never reaches the
// registry.
func (h *Hub) Register(userID string, c *Client) {
	h.mu.Lock()
	set, ok := h.sessions[userID]
	if !ok {
		set = make(map[*Client]struct{})
		h.sessions[userID] = set
	}
	set[c] = struct{}{}
	total := len(set)
	h.mu.Unlock()

	h.logger.Info("realtime session connected",
		slog.String("userID", userID),
		slog.Int("sessions", total),
	)
}

// Unregister removes a session and closes its send channel. Dropping the
// user's entry when their last session goes keeps the map from accumulating
// one empty set per user that ever connected.
//
// Safe to call more than once for the same client (the read pump and a hub
// shutdown can race); only the first call closes the channel.
func (h *Hub) Unregister(userID string, c *Client) {
	h.mu.Lock()
	set, ok := h.sessions[userID]
	if ok {
		if _, present := set[c]; present {
			delete(set, c)
			c.close()
		}
		if len(set) == 0 {
			delete(h.sessions, userID)
		}
	}
	h.mu.Unlock()

	if ok {
		h.logger.Info("realtime session disconnected", slog.String("userID", userID))
	}
}

// Push delivers msg to every open session of the user. No sessions is a
// silent no-op. A session whose send buffer is full is skipped — a stalled
// tab must never block the request that triggered the push.
func (h *Hub) Push(userID string, msg Message) {
	// The read lock is held across the sends, not just the map lookup.
	// Send channels are closed under the write lock (Unregister/Shutdown),
	// so sending inside the read lock can never hit a closed channel. The
	// hold is bounded: every send is non-blocking.
	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.sessions[userID] {
		select {
		case c.send <- msg:
		default:
			// Delivery failure is swallowed: the notification is already
			// persisted, so losing the push costs nothing but immediacy.
			h.logger.Warn("realtime push dropped, session buffer full",
				slog.String("userID", userID),
				slog.String("event", msg.Type),
			)
		}
	}
}

// SessionCount returns how many sessions the user currently has open.
func (h *Hub) SessionCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[userID])
}

// Shutdown closes every session's send channel, which makes each write pump
// send a websocket close frame and exit. Called once during server shutdown.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for userID, set := range h.sessions {
		for c := range set {
			c.close()
		}
		delete(h.sessions, userID)
	}
}
