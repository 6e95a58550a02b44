package bridgetest

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/codefionn/fileexplorer/internal/bridge"
)

// Request is a request observed by the fake host
type Request struct {
	Kind string
	ID   string
	Args map[string]interface{}
}

// Path returns the "path" argument, if any.
func (r Request) Path() string {
	s, _ := r.Args["path"].(string)
	return s
}

// Handler answers a request. Returning nil leaves the request unanswered.
type Handler func(req Request) *bridge.Response

// Host plays the host side of the bridge over a pipe.
type Host struct {
	transport *PipeTransport

	mu       sync.Mutex
	handlers map[string]Handler
	requests []Request
	seen     chan Request
}

// NewHost creates a host on the host end of a pipe. Call Serve to start it.
func NewHost(transport *PipeTransport) *Host {
	return &Host{
		transport: transport,
		handlers:  make(map[string]Handler),
		seen:      make(chan Request, 256),
	}
}

// Handle registers the handler for a request kind.
func (h *Host) Handle(kind string, fn Handler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handlers[kind] = fn
}

// Serve answers requests until the pipe closes or ctx ends.
func (h *Host) Serve(ctx context.Context) {
	for {
		msg, err := h.transport.Receive()
		if err != nil {
			return
		}
		if ctx.Err() != nil {
			return
		}

		req := Request{Kind: msg.Type, Args: map[string]interface{}{}}
		if len(msg.Payload) > 0 {
			_ = json.Unmarshal(msg.Payload, &req.Args)
		}
		req.ID, _ = req.Args["requestId"].(string)

		h.mu.Lock()
		h.requests = append(h.requests, req)
		fn := h.handlers[req.Kind]
		h.mu.Unlock()

		select {
		case h.seen <- req:
		default:
		}

		if fn == nil {
			continue
		}
		if resp := fn(req); resp != nil {
			_ = h.Respond(ctx, req, resp)
		}
	}
}

// Respond sends resp for req, filling in the requestId.
func (h *Host) Respond(ctx context.Context, req Request, resp *bridge.Response) error {
	out := *resp
	out.RequestID = req.ID
	msg, err := bridge.NewResponseMessage(req.Kind, &out)
	if err != nil {
		return err
	}
	return h.transport.Send(ctx, msg)
}

// Notify sends a workspace.changed notification.
func (h *Host) Notify(ctx context.Context, change bridge.WorkspaceChange) error {
	msg, err := bridge.NewWorkspaceChangedMessage(change)
	if err != nil {
		return err
	}
	return h.transport.Send(ctx, msg)
}

// SendRaw sends an arbitrary message to the plugin.
func (h *Host) SendRaw(ctx context.Context, msg *bridge.Message) error {
	return h.transport.Send(ctx, msg)
}

// Requests returns a copy of every request observed so far.
func (h *Host) Requests() []Request {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Request, len(h.requests))
	copy(out, h.requests)
	return out
}

// WaitForRequest returns the next observed request, or an error after timeout.
func (h *Host) WaitForRequest(timeout time.Duration) (Request, error) {
	select {
	case req := <-h.seen:
		return req, nil
	case <-time.After(timeout):
		return Request{}, fmt.Errorf("no request within %s", timeout)
	}
}

// OK builds a successful response carrying data.
func OK(data interface{}) *bridge.Response {
	resp := &bridge.Response{Success: true}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			panic(fmt.Sprintf("bridgetest: cannot marshal response data: %v", err))
		}
		resp.Data = raw
	}
	return resp
}

// Fail builds a failed response carrying msg.
func Fail(msg string) *bridge.Response {
	return &bridge.Response{Success: false, Error: msg}
}

// Entries is shorthand for a directory listing.
func Entries(pairs ...string) []bridge.DirectoryEntry {
	entries := make([]bridge.DirectoryEntry, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		entries = append(entries, bridge.DirectoryEntry{Name: pairs[i], Type: pairs[i+1]})
	}
	return entries
}
