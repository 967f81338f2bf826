package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/MJE43/rps-gauntlet/internal/game"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	sendBuffer = 64
)

type client struct {
	conn *websocket.Conn
	send chan game.Event
}

// Hub fans session events out to websocket subscribers. It implements
// game.Publisher and never blocks a publisher: a subscriber whose buffer is
// full misses the event.
type Hub struct {
	logger   zerolog.Logger
	upgrader websocket.Upgrader

	mu   sync.Mutex
	subs map[string]map[*client]struct{}
}

func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		logger: logger.With().Str("component", "hub").Logger(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The UI is served from another local origin.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		subs: make(map[string]map[*client]struct{}),
	}
}

// Publish delivers ev to the session's subscribers. An abandoned session
// closes its subscribers after the event.
func (h *Hub) Publish(ev game.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.subs[ev.SessionID] {
		select {
		case c.send <- ev:
		default:
			h.logger.Warn().Str("session", ev.SessionID).Str("kind", string(ev.Kind)).Msg("subscriber too slow, event dropped")
		}
	}
	if ev.Kind == game.EventAbandoned {
		for c := range h.subs[ev.SessionID] {
			close(c.send)
		}
		delete(h.subs, ev.SessionID)
	}
}

// Subscribers returns how many clients follow a session.
func (h *Hub) Subscribers(sessionID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[sessionID])
}

// Serve upgrades the request and streams the session's events, starting
// with first.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, sessionID string, first game.Event) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	c := &client{conn: conn, send: make(chan game.Event, sendBuffer)}
	c.send <- first

	h.mu.Lock()
	if h.subs[sessionID] == nil {
		h.subs[sessionID] = make(map[*client]struct{})
	}
	h.subs[sessionID][c] = struct{}{}
	h.mu.Unlock()

	h.logger.Debug().Str("session", sessionID).Str("remote", r.RemoteAddr).Msg("subscriber connected")

	go h.writer(c)
	h.reader(sessionID, c)
	return nil
}

// reader discards client messages and unsubscribes on the first error.
func (h *Hub) reader(sessionID string, c *client) {
	defer func() {
		h.remove(sessionID, c)
		c.conn.Close()
		h.logger.Debug().Str("session", sessionID).Msg("subscriber disconnected")
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writer(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case ev, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed"))
				return
			}
			if err := c.conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Hub) remove(sessionID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs, ok := h.subs[sessionID]
	if !ok {
		return
	}
	if _, ok := subs[c]; !ok {
		return
	}
	delete(subs, c)
	close(c.send)
	if len(subs) == 0 {
		delete(h.subs, sessionID)
	}
}

// Close disconnects every subscriber.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, subs := range h.subs {
		for c := range subs {
			close(c.send)
		}
		delete(h.subs, id)
	}
}
