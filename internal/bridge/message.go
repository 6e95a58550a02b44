package bridge

import (
	"encoding/json"
	"strings"
)

// Request kinds understood by the host.
const (
	KindReadDir             = "vfs.readDir"
	KindReadFile            = "vfs.readFile"
	KindOpenFile            = "editor.openFile"
	KindGetWorkspaceDetails = "workspace.getDetails"

	// KindWorkspaceChanged is the only unsolicited message the host sends.
	KindWorkspaceChanged = "workspace.changed"

	// ResponseSuffix is appended to a request kind to form its response kind.
	ResponseSuffix = ".response"
)

// Entry types reported by the host.
const (
	EntryFile      = "file"
	EntryDirectory = "directory"
)

// Message is a single envelope on the wire
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ResponseKind returns the response type for a request kind.
func ResponseKind(kind string) string {
	return kind + ResponseSuffix
}

// IsResponse reports whether the message type carries a response.
func (m *Message) IsResponse() bool {
	return strings.HasSuffix(m.Type, ResponseSuffix)
}

// RequestKind strips the response suffix from a response type.
func (m *Message) RequestKind() string {
	return strings.TrimSuffix(m.Type, ResponseSuffix)
}

// NewRequestMessage builds an outbound request. The arguments are merged with
// the requestId into one flat payload object.
func NewRequestMessage(kind, requestID string, args map[string]interface{}) (*Message, error) {
	payload := make(map[string]interface{}, len(args)+1)
	for k, v := range args {
		payload[k] = v
	}
	payload["requestId"] = requestID

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Message{Type: kind, Payload: raw}, nil
}

// NewResponseMessage builds a response as the host would send it.
func NewResponseMessage(kind string, resp *Response) (*Message, error) {
	raw, err := json.Marshal(resp)
	if err != nil {
		return nil, err
	}
	return &Message{Type: ResponseKind(kind), Payload: raw}, nil
}

// NewWorkspaceChangedMessage builds a workspace.changed notification.
func NewWorkspaceChangedMessage(change WorkspaceChange) (*Message, error) {
	raw, err := json.Marshal(change)
	if err != nil {
		return nil, err
	}
	return &Message{Type: KindWorkspaceChanged, Payload: raw}, nil
}

// ParseMessage parses a message from JSON bytes
func ParseMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// Response is the payload of every "*.response" message.
type Response struct {
	RequestID string          `json:"requestId"`
	Success   bool            `json:"success"`
	Data      json.RawMessage `json:"data,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// DirectoryEntry is one item of a directory listing.
type DirectoryEntry struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// IsDir reports whether the entry is a directory
func (e DirectoryEntry) IsDir() bool {
	return e.Type == EntryDirectory
}

// DirectoryResult is the decoded result of a vfs.readDir request.
type DirectoryResult struct {
	Success bool
	Entries []DirectoryEntry
	Error   string
}

// FileResult is the decoded result of a vfs.readFile request.
type FileResult struct {
	Success bool
	Content string
	Error   string
}

// WorkspaceDetails describes the host's workspace. Fields the plugin does not
// know about are preserved in Raw.
type WorkspaceDetails struct {
	IsOpen bool            `json:"isOpen"`
	Name   string          `json:"name,omitempty"`
	Root   string          `json:"root,omitempty"`
	Raw    json.RawMessage `json:"-"`
}

// WorkspaceResult is the decoded result of a workspace.getDetails request.
type WorkspaceResult struct {
	Success bool
	Details WorkspaceDetails
	Error   string
}

// WorkspaceChange is the payload of a workspace.changed notification.
type WorkspaceChange struct {
	IsOpen bool            `json:"isOpen"`
	Name   string          `json:"name,omitempty"`
	Root   string          `json:"root,omitempty"`
	Raw    json.RawMessage `json:"-"`
}
