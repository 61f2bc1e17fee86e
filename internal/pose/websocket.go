package pose

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WebSocketSource reads one JSON frame per text message from a WebSocket
// endpoint served by a pose estimator.
type WebSocketSource struct {
	conn *websocket.Conn
	once sync.Once
	err  error
}

// DialWebSocket connects to url and returns a source reading from it.
func DialWebSocket(ctx context.Context, url string) (*WebSocketSource, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	return &WebSocketSource{conn: conn}, nil
}

// Next reads the next message. A normal close from the server ends the
// stream with io.EOF.
func (s *WebSocketSource) Next(ctx context.Context) (*Landmarks, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for {
		msgType, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil, io.EOF
			}
			if errors.Is(err, net.ErrClosed) {
				return nil, ErrSourceClosed
			}
			return nil, fmt.Errorf("read message: %w", err)
		}
		if msgType != websocket.TextMessage {
			continue
		}
		return decodeFrame(data)
	}
}

// Close sends a close frame and closes the connection.
func (s *WebSocketSource) Close() error {
	s.once.Do(func() {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		s.err = s.conn.Close()
	})
	return s.err
}
