package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/codefionn/fileexplorer/internal/logger"
	"github.com/google/uuid"
)

var (
	// ErrClientClosed is returned for calls on, or pending during, Close.
	ErrClientClosed = errors.New("bridge client closed")
	// ErrNotStarted is returned when a request is made before Start.
	ErrNotStarted = errors.New("bridge client not started")
	// ErrRequestTimeout is returned when Config.RequestTimeout elapses.
	ErrRequestTimeout = errors.New("bridge request timed out")
)

// ClientState represents the lifecycle state of a Client
type ClientState int32

const (
	// StateIdle indicates the read pump has not been started
	StateIdle ClientState = iota
	// StateRunning indicates the client is receiving messages
	StateRunning
	// StateClosed indicates the client has been closed
	StateClosed
)

func (s ClientState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Config holds client configuration
type Config struct {
	// RequestTimeout bounds how long a request waits for its response. Zero
	// waits until the context ends; the resolver stays registered meanwhile.
	RequestTimeout time.Duration
	// NotificationBuffer is the capacity of the WorkspaceChanges channel.
	NotificationBuffer int
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		RequestTimeout:     0,
		NotificationBuffer: 16,
	}
}

type pendingRequest struct {
	kind string
	ch   chan *Response
}

// Client correlates requests sent over a Transport with the responses the
// host sends back.
type Client struct {
	config    *Config
	transport Transport
	log       *logger.Logger

	state atomic.Int32 // ClientState

	// Request tracking
	pendingRequests map[string]*pendingRequest
	requestMu       sync.Mutex

	workspaceChanges chan WorkspaceChange

	newID func() string

	// Lifecycle
	wg        sync.WaitGroup
	stopCh    chan struct{}
	closeOnce sync.Once
}

// NewClient creates a client on top of transport. A nil config uses
// DefaultConfig.
func NewClient(transport Transport, config *Config) *Client {
	if config == nil {
		config = DefaultConfig()
	}
	buffer := config.NotificationBuffer
	if buffer < 0 {
		buffer = 0
	}

	return &Client{
		config:           config,
		transport:        transport,
		log:              logger.Global().WithPrefix("bridge"),
		pendingRequests:  make(map[string]*pendingRequest),
		workspaceChanges: make(chan WorkspaceChange, buffer),
		newID:            uuid.NewString,
		stopCh:           make(chan struct{}),
	}
}

// Start launches the read pump. It stops when ctx ends, the transport fails,
// or Close is called. Calling Start more than once is a no-op.
func (c *Client) Start(ctx context.Context) {
	if !c.state.CompareAndSwap(int32(StateIdle), int32(StateRunning)) {
		return
	}

	c.wg.Add(1)
	go c.readPump()

	go func() {
		select {
		case <-ctx.Done():
			_ = c.Close()
		case <-c.stopCh:
		}
	}()
}

// Close stops the read pump, closes the transport and fails every pending
// request with ErrClientClosed.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.state.Store(int32(StateClosed))
		close(c.stopCh)
		err = c.transport.Close()

		c.requestMu.Lock()
		for id, p := range c.pendingRequests {
			close(p.ch)
			delete(c.pendingRequests, id)
		}
		c.requestMu.Unlock()
	})
	c.wg.Wait()
	return err
}

// State returns the current lifecycle state
func (c *Client) State() ClientState {
	return ClientState(c.state.Load())
}

// WorkspaceChanges returns the channel workspace.changed notifications are
// delivered on. Notifications that find the buffer full are dropped.
func (c *Client) WorkspaceChanges() <-chan WorkspaceChange {
	return c.workspaceChanges
}

// Pending returns the number of requests still waiting for a response.
func (c *Client) Pending() int {
	c.requestMu.Lock()
	defer c.requestMu.Unlock()
	return len(c.pendingRequests)
}

// Request sends a request of the given kind and waits for the correlated
// response. args are merged with the generated requestId into the payload.
func (c *Client) Request(ctx context.Context, kind string, args map[string]interface{}) (*Response, error) {
	switch c.State() {
	case StateIdle:
		return nil, ErrNotStarted
	case StateClosed:
		return nil, ErrClientClosed
	}

	id := c.newID()
	p := &pendingRequest{kind: kind, ch: make(chan *Response, 1)}

	c.requestMu.Lock()
	c.pendingRequests[id] = p
	c.requestMu.Unlock()

	select {
	case <-c.stopCh:
		c.forget(id)
		return nil, ErrClientClosed
	default:
	}

	msg, err := NewRequestMessage(kind, id, args)
	if err != nil {
		c.forget(id)
		return nil, fmt.Errorf("failed to encode %s request: %w", kind, err)
	}

	c.log.Debug("-> %s requestId=%s", kind, id)
	if err := c.transport.Send(ctx, msg); err != nil {
		c.forget(id)
		return nil, fmt.Errorf("failed to send %s request: %w", kind, err)
	}

	var timeout <-chan time.Time
	if c.config.RequestTimeout > 0 {
		timer := time.NewTimer(c.config.RequestTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case resp, ok := <-p.ch:
		if !ok {
			return nil, ErrClientClosed
		}
		return resp, nil
	case <-ctx.Done():
		c.forget(id)
		return nil, ctx.Err()
	case <-timeout:
		c.forget(id)
		c.log.Warn("%s requestId=%s timed out after %s", kind, id, c.config.RequestTimeout)
		return nil, fmt.Errorf("%w: %s after %s", ErrRequestTimeout, kind, c.config.RequestTimeout)
	case <-c.stopCh:
		return nil, ErrClientClosed
	}
}

func (c *Client) forget(id string) {
	c.requestMu.Lock()
	delete(c.pendingRequests, id)
	c.requestMu.Unlock()
}

// readPump reads messages from the transport until it fails or is closed
func (c *Client) readPump() {
	defer c.wg.Done()

	for {
		msg, err := c.transport.Receive()
		if err != nil {
			select {
			case <-c.stopCh:
			default:
				if !errors.Is(err, io.EOF) {
					c.log.Error("transport receive failed: %v", err)
				}
				go c.Close()
			}
			return
		}

		c.routeMessage(msg)
	}
}

// routeMessage routes an inbound message to its pending request or to the
// workspace notification channel
func (c *Client) routeMessage(msg *Message) {
	if msg == nil || msg.Type == "" {
		c.log.Debug("dropping message without type")
		return
	}

	switch {
	case msg.IsResponse():
		c.resolve(msg)
	case msg.Type == KindWorkspaceChanged:
		c.notifyWorkspaceChanged(msg)
	default:
		c.log.Debug("ignoring message of type %s", msg.Type)
	}
}

func (c *Client) resolve(msg *Message) {
	var resp Response
	if err := json.Unmarshal(msg.Payload, &resp); err != nil {
		c.log.Warn("dropping %s with undecodable payload: %v", msg.Type, err)
		return
	}
	if resp.RequestID == "" {
		c.log.Debug("dropping %s without requestId", msg.Type)
		return
	}

	c.requestMu.Lock()
	defer c.requestMu.Unlock()

	p, ok := c.pendingRequests[resp.RequestID]
	if !ok {
		c.log.Debug("dropping %s for unknown requestId=%s", msg.Type, resp.RequestID)
		return
	}
	if p.kind != msg.RequestKind() {
		c.log.Warn("dropping %s for requestId=%s issued as %s", msg.Type, resp.RequestID, p.kind)
		return
	}

	delete(c.pendingRequests, resp.RequestID)
	p.ch <- &resp
	c.log.Debug("<- %s requestId=%s success=%t", msg.Type, resp.RequestID, resp.Success)
}

func (c *Client) notifyWorkspaceChanged(msg *Message) {
	var change WorkspaceChange
	if len(msg.Payload) > 0 {
		if err := json.Unmarshal(msg.Payload, &change); err != nil {
			c.log.Warn("dropping %s with undecodable payload: %v", msg.Type, err)
			return
		}
		change.Raw = append(json.RawMessage(nil), msg.Payload...)
	}

	select {
	case c.workspaceChanges <- change:
	default:
		c.log.Warn("workspace change channel full, dropping notification")
	}
}
