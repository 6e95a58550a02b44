package devhost

import (
	"sync"

	"github.com/codefionn/fileexplorer/internal/bridge"
	"github.com/codefionn/fileexplorer/internal/logger"
)

// Hub tracks connected plugins and tells them about workspace transitions.
// Only the newest undelivered transition is kept: a plugin reacts to the
// workspace state it ends up in, not to every step in between.
type Hub struct {
	sessions   map[*Session]struct{}
	changes    chan bridge.WorkspaceChange
	register   chan *Session
	unregister chan *Session
	mu         sync.RWMutex
	quit       chan struct{}
	stopOnce   sync.Once
	log        *logger.Logger
}

// NewHub creates a hub; call Run to start delivering
func NewHub() *Hub {
	return &Hub{
		sessions:   make(map[*Session]struct{}),
		changes:    make(chan bridge.WorkspaceChange, 1),
		register:   make(chan *Session),
		unregister: make(chan *Session),
		quit:       make(chan struct{}),
		log:        logger.Global().WithPrefix("hub"),
	}
}

// Run registers sessions and delivers workspace changes until Stop
func (h *Hub) Run() {
	h.log.Debug("hub started")
	defer h.log.Debug("hub stopped")

	for {
		select {
		case session := <-h.register:
			h.mu.Lock()
			h.sessions[session] = struct{}{}
			h.mu.Unlock()
			h.log.Debug("session registered: %s", session.ID)

		case session := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.sessions[session]; ok {
				delete(h.sessions, session)
				session.closeSend()
			}
			h.mu.Unlock()
			h.log.Debug("session unregistered: %s", session.ID)

		case change := <-h.changes:
			h.deliver(change)

		case <-h.quit:
			h.mu.Lock()
			for session := range h.sessions {
				delete(h.sessions, session)
				session.closeSend()
			}
			h.mu.Unlock()
			return
		}
	}
}

// deliver encodes change once and queues it on every session. Sessions whose
// queue is full are disconnected.
func (h *Hub) deliver(change bridge.WorkspaceChange) {
	msg, err := bridge.NewWorkspaceChangedMessage(change)
	if err != nil {
		h.log.Error("failed to encode workspace change: %v", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for session := range h.sessions {
		if !session.queue(msg) {
			h.log.Warn("session %s is not keeping up, disconnecting", session.ID)
			delete(h.sessions, session)
			session.closeSend()
		}
	}
	h.log.Debug("workspace change (open=%t) sent to %d sessions", change.IsOpen, len(h.sessions))
}

// Stop disconnects every session and ends Run
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.quit) })
}

// Register adds a session
func (h *Hub) Register(session *Session) {
	select {
	case h.register <- session:
	case <-h.quit:
	}
}

// Unregister removes a session and closes its queue
func (h *Hub) Unregister(session *Session) {
	select {
	case h.unregister <- session:
	case <-h.quit:
	}
}

// NotifyWorkspaceChange queues change for every session. A change that has
// not been delivered yet is replaced.
func (h *Hub) NotifyWorkspaceChange(change bridge.WorkspaceChange) {
	for {
		select {
		case h.changes <- change:
			return
		case <-h.quit:
			return
		default:
		}

		select {
		case stale := <-h.changes:
			h.log.Debug("workspace change (open=%t) superseded before delivery", stale.IsOpen)
		default:
		}
	}
}

// SessionCount returns the number of connected sessions
func (h *Hub) SessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}
