package devhost

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/codefionn/fileexplorer/internal/bridge"
	"github.com/codefionn/fileexplorer/internal/logger"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 64 * 1024
)

// requestHandler answers one request; a nil message means no reply
type requestHandler func(ctx context.Context, msg *bridge.Message) *bridge.Message

// Session is one connected plugin
type Session struct {
	ID      string
	hub     *Hub
	conn    *websocket.Conn
	send    chan *bridge.Message
	handler requestHandler
	log     *logger.Logger

	mu     sync.Mutex
	closed bool
}

// newSession creates a session for an upgraded connection
func newSession(hub *Hub, conn *websocket.Conn, handler requestHandler) *Session {
	id := uuid.NewString()
	return &Session{
		ID:      id,
		hub:     hub,
		conn:    conn,
		send:    make(chan *bridge.Message, 256),
		handler: handler,
		log:     logger.Global().WithPrefix("session " + id[:8]),
	}
}

// ReadPump reads requests from the plugin and queues their responses
func (s *Session) ReadPump(ctx context.Context) {
	defer func() {
		s.hub.Unregister(s)
		s.conn.Close()
	}()

	s.conn.SetReadLimit(maxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				s.log.Error("read error: %v", err)
			}
			return
		}

		var msg bridge.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			s.log.Warn("dropping malformed message: %v", err)
			continue
		}
		s.log.Debug("received %s", msg.Type)

		if reply := s.handler(ctx, &msg); reply != nil && !s.queue(reply) {
			s.log.Warn("dropping %s", reply.Type)
		}
	}
}

// WritePump writes queued messages to the plugin and keeps the connection alive
func (s *Session) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case message, ok := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel
				_ = s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			data, err := json.Marshal(message)
			if err != nil {
				s.log.Error("failed to marshal %s: %v", message.Type, err)
				continue
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				s.log.Warn("failed to write message: %v", err)
				return
			}
			s.log.Debug("sent %s", message.Type)

		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// queue sends a message unless the session is gone or not keeping up
func (s *Session) queue(msg *bridge.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.send <- msg:
		return true
	default:
		return false
	}
}

// closeSend makes WritePump say goodbye and exit
func (s *Session) closeSend() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.send)
	}
}
