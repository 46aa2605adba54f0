package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/opsdeck/backoffice/internal/app/domain/admin"
	"github.com/opsdeck/backoffice/internal/app/metrics"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 30 * time.Second
)

// auditHub fans freshly recorded audit entries out to websocket subscribers.
// Slow subscribers drop entries instead of blocking the request path.
type auditHub struct {
	mu      sync.Mutex
	clients map[chan []byte]bool
	closed  bool
	log     zerolog.Logger
}

func newAuditHub(log zerolog.Logger) *auditHub {
	return &auditHub{
		clients: make(map[chan []byte]bool),
		log:     log.With().Str("component", "audit-hub").Logger(),
	}
}

func (h *auditHub) subscribe() chan []byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	ch := make(chan []byte, 16)
	if h.closed {
		close(ch)
		return ch
	}
	h.clients[ch] = true
	return ch
}

func (h *auditHub) unsubscribe(ch chan []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[ch] {
		delete(h.clients, ch)
		close(ch)
	}
}

func (h *auditHub) broadcast(entry admin.AuditLog) {
	b, err := json.Marshal(entry)
	if err != nil {
		h.log.Warn().Err(err).Msg("marshal audit entry for stream")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	for ch := range h.clients {
		select {
		case ch <- b:
		default:
			// Subscriber cannot keep up; skip this entry for it.
		}
	}
}

// Name implements system.Service.
func (h *auditHub) Name() string { return "audit-hub" }

// Start implements system.Service. The hub has no background work of its own.
func (h *auditHub) Start(context.Context) error { return nil }

// Stop disconnects every subscriber.
func (h *auditHub) Stop(context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for ch := range h.clients {
		delete(h.clients, ch)
		close(ch)
	}
	return nil
}

// serveWS runs one websocket subscriber until it disconnects or the hub
// stops.
func (h *auditHub) serveWS(conn *websocket.Conn) {
	ch := h.subscribe()
	metrics.WSConnected()
	defer func() {
		h.unsubscribe(ch)
		metrics.WSDisconnected()
		conn.Close()
	}()

	// Reader: the client sends nothing meaningful, but reading surfaces
	// close frames and keeps pong handling alive.
	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(wsPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case entry, ok := <-ch:
			if !ok {
				_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.TextMessage, entry); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Cross-origin browsers are vetted by the token check before upgrade.
	CheckOrigin: func(*http.Request) bool { return true },
}
