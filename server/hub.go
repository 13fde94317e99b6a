package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pthm-cable/boids/telemetry"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 30 * time.Second
	pingPeriod = pongWait * 9 / 10

	clientBuffer = 8 // Queued messages before a slow client is dropped
)

// EventState is the event name of streamed frames.
const EventState = "flock:state"

// Message is the envelope sent to stream clients.
type Message struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	ip   string
}

// Hub fans published frames out to websocket clients. All client bookkeeping
// happens on the Run goroutine; each client has its own writer so a slow
// reader never stalls the others.
type Hub struct {
	clients    map[*client]struct{}
	register   chan *client
	unregister chan *client
	broadcast  chan []byte
	done       chan struct{}

	count      atomic.Int32 // Reserved slots, including upgrades in flight
	maxClients int

	upgrader websocket.Upgrader
	metrics  *telemetry.Metrics
}

// NewHub creates a hub accepting at most maxClients connections from the
// given origin patterns.
func NewHub(maxClients int, origins []string, m *telemetry.Metrics) *Hub {
	h := &Hub{
		clients:    make(map[*client]struct{}),
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan []byte, 16),
		done:       make(chan struct{}),
		maxClients: maxClients,
		metrics:    m,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if originAllowed(origins, origin) {
				return true
			}
			slog.Warn("websocket origin rejected", "origin", origin)
			m.RecordRejected("origin")
			return false
		},
	}
	return h
}

// Run owns the client set until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				h.drop(c)
			}
			return

		case c := <-h.register:
			h.clients[c] = struct{}{}
			h.metrics.SetWSClients(len(h.clients))
			slog.Debug("stream client connected", "ip", c.ip, "clients", len(h.clients))

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				h.drop(c)
				slog.Debug("stream client disconnected", "ip", c.ip, "clients", len(h.clients))
			}

		case msg := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.send <- msg:
					h.metrics.IncWSMessages()
				default:
					slog.Debug("dropping slow stream client", "ip", c.ip)
					h.drop(c)
				}
			}
		}
	}
}

// drop removes c and releases its slot. Only called from Run.
func (h *Hub) drop(c *client) {
	delete(h.clients, c)
	close(c.send)
	h.count.Add(-1)
	h.metrics.SetWSClients(len(h.clients))
}

// reserve claims a client slot, failing when the hub is full.
func (h *Hub) reserve() bool {
	for {
		n := h.count.Load()
		if int(n) >= h.maxClients {
			return false
		}
		if h.count.CompareAndSwap(n, n+1) {
			return true
		}
	}
}

// ClientCount returns the number of reserved client slots.
func (h *Hub) ClientCount() int {
	return int(h.count.Load())
}

// Broadcast queues msg for every client. Drops it if the hub is backed up.
func (h *Hub) Broadcast(event string, data any) {
	payload, err := json.Marshal(Message{Event: event, Data: data})
	if err != nil {
		slog.Error("encoding stream message", "event", event, "error", err)
		return
	}

	select {
	case h.broadcast <- payload:
	default:
	}
}

// Stream broadcasts each new frame from src every interval until ctx is
// cancelled. Frames are skipped when nobody is listening or the tick has not
// advanced.
func (h *Hub) Stream(ctx context.Context, src Source, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	lastTick := int64(-1)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if h.ClientCount() == 0 {
			continue
		}
		f := src.Latest()
		if f == nil || f.Tick == lastTick {
			continue
		}
		lastTick = f.Tick
		h.Broadcast(EventState, f)
	}
}

// HandleWS upgrades the request and registers the client.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	ip := ClientIP(r)

	if !h.reserve() {
		h.metrics.RecordRejected("ws_limit")
		http.Error(w, "Too many stream clients", http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response
		h.count.Add(-1)
		slog.Debug("websocket upgrade failed", "ip", ip, "error", err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, clientBuffer), ip: ip}
	select {
	case h.register <- c:
	case <-h.done:
		h.count.Add(-1)
		conn.Close()
		return
	}

	go h.writePump(c)
	go h.readPump(c)
}

// readPump discards client messages and unregisters on disconnect.
func (h *Hub) readPump(c *client) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.done:
		}
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

// writePump sends queued messages and pings until the send channel closes.
func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
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
