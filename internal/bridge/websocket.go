package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/codefionn/fileexplorer/internal/logger"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Maximum message size accepted from the host.
	maxMessageSize = 4 << 20
)

// WebSocketTransport carries messages as text frames on a WebSocket.
type WebSocketTransport struct {
	conn *websocket.Conn
	log  *logger.Logger

	writeMu   sync.Mutex
	closed    chan struct{}
	closeOnce sync.Once
}

// DialWebSocket connects to a host endpoint. header may be nil; no Origin is
// sent unless the caller puts one in header.
func DialWebSocket(ctx context.Context, url string, header http.Header) (*WebSocketTransport, error) {
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("failed to dial %s (status %d): %w", url, resp.StatusCode, err)
		}
		return nil, fmt.Errorf("failed to dial %s: %w", url, err)
	}
	return NewWebSocketTransport(conn), nil
}

// NewWebSocketTransport wraps an established connection.
func NewWebSocketTransport(conn *websocket.Conn) *WebSocketTransport {
	conn.SetReadLimit(maxMessageSize)
	return &WebSocketTransport{
		conn:   conn,
		log:    logger.Global().WithPrefix("websocket"),
		closed: make(chan struct{}),
	}
}

// Send writes one message as a text frame.
func (t *WebSocketTransport) Send(ctx context.Context, msg *Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case <-t.closed:
		return ErrTransportClosed
	default:
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	deadline := time.Now().Add(writeWait)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	_ = t.conn.SetWriteDeadline(deadline)
	if err := t.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	return nil
}

// Receive reads the next well-formed message. Frames that are not valid JSON
// are skipped. A normal close from the host is reported as io.EOF.
func (t *WebSocketTransport) Receive() (*Message, error) {
	for {
		_, data, err := t.conn.ReadMessage()
		if err != nil {
			select {
			case <-t.closed:
				return nil, io.EOF
			default:
			}
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) && (closeErr.Code == websocket.CloseNormalClosure || closeErr.Code == websocket.CloseGoingAway) {
				return nil, io.EOF
			}
			return nil, err
		}

		msg, err := ParseMessage(data)
		if err != nil {
			t.log.Debug("skipping malformed frame: %v", err)
			continue
		}
		return msg, nil
	}
}

// Close sends a close frame and closes the connection.
func (t *WebSocketTransport) Close() error {
	var err error
	t.closeOnce.Do(func() {
		close(t.closed)
		t.writeMu.Lock()
		_ = t.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		t.writeMu.Unlock()
		err = t.conn.Close()
	})
	return err
}
