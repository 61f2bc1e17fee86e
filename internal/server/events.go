package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ayusman/repwatch/internal/logging"
	"github.com/ayusman/repwatch/internal/sink"
)

const writeWait = 2 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// Message is the envelope pushed to WebSocket clients.
type Message struct {
	Type    string          `json:"type"` // "event" or "summary"
	Payload json.RawMessage `json:"payload"`
}

// sendBuffer is the number of messages queued per client before the client
// is considered stalled and dropped.
const sendBuffer = 256

// client is one /api/events connection. Only its writer goroutine writes
// to conn.
type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Broadcaster pushes detection results to WebSocket clients. It is both the
// /api/events handler and a sink.Sink. Messages are queued per client, so a
// slow client never blocks the session.
type Broadcaster struct {
	clients map[*client]struct{}
	mu      sync.Mutex
	logger  *zap.Logger
	closed  bool
	// TriggeredOnly skips untriggered results.
	TriggeredOnly bool
}

// NewBroadcaster creates a Broadcaster with no clients.
func NewBroadcaster(logger *zap.Logger) *Broadcaster {
	return &Broadcaster{
		clients: make(map[*client]struct{}),
		logger:  logging.OrNop(logger),
	}
}

// ServeHTTP handles WebSocket upgrade requests.
func (b *Broadcaster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.logger.Warn("websocket upgrade error", zap.Error(err))
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		conn.Close()
		return
	}
	b.clients[c] = struct{}{}
	b.mu.Unlock()

	go b.write(c)

	// Keep connection alive by reading messages
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	b.remove(c)
}

// write drains the client queue until it is closed, then says goodbye and
// closes the connection.
func (b *Broadcaster) write(c *client) {
	defer c.conn.Close()

	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			b.logger.Debug("dropping websocket client", zap.Error(err))
			b.remove(c)
			return
		}
	}

	c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
		time.Now().Add(writeWait))
}

// remove unregisters c and closes its queue. It is safe to call more than
// once.
func (b *Broadcaster) remove(c *client) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.drop(c)
}

// drop must be called with mu held.
func (b *Broadcaster) drop(c *client) {
	if _, ok := b.clients[c]; !ok {
		return
	}
	delete(b.clients, c)
	close(c.send)
}

// ClientCount returns the number of connected clients.
func (b *Broadcaster) ClientCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.clients)
}

// Show broadcasts ev to every client.
func (b *Broadcaster) Show(_ context.Context, ev sink.Event) error {
	if b.TriggeredOnly && !ev.Result.Triggered {
		return nil
	}
	return b.broadcast("event", ev)
}

// Report broadcasts the session summary.
func (b *Broadcaster) Report(_ context.Context, sum sink.Summary) error {
	return b.broadcast("summary", sum)
}

func (b *Broadcaster) broadcast(kind string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	msg, err := json.Marshal(Message{Type: kind, Payload: payload})
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for c := range b.clients {
		select {
		case c.send <- msg:
		default:
			b.logger.Warn("dropping stalled websocket client", zap.Int("queued", len(c.send)))
			b.drop(c)
		}
	}
	return nil
}

// Close disconnects every client and refuses new ones.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	for c := range b.clients {
		b.drop(c)
	}
}
