package devhost

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"

	"github.com/codefionn/fileexplorer/internal/bridge"
)

// requestArgs are the payload fields the host understands
type requestArgs struct {
	RequestID string `json:"requestId"`
	Path      string `json:"path"`
}

// handleRequest answers one plugin request. Messages that are not requests
// or carry no requestId get no reply.
func (s *Server) handleRequest(ctx context.Context, msg *bridge.Message) *bridge.Message {
	if msg.Type == "" || msg.IsResponse() || msg.Type == bridge.KindWorkspaceChanged {
		s.log.Debug("ignoring %q from plugin", msg.Type)
		return nil
	}

	var args requestArgs
	if err := json.Unmarshal(msg.Payload, &args); err != nil || args.RequestID == "" {
		s.log.Warn("dropping %s without a requestId", msg.Type)
		return nil
	}

	resp := s.answer(ctx, msg.Type, args.Path)
	resp.RequestID = args.RequestID

	reply, err := bridge.NewResponseMessage(msg.Type, resp)
	if err != nil {
		s.log.Error("failed to encode %s response: %v", msg.Type, err)
		return nil
	}
	return reply
}

func (s *Server) answer(ctx context.Context, kind, path string) *bridge.Response {
	if kind == bridge.KindGetWorkspaceDetails {
		return success(s.Details())
	}

	switch kind {
	case bridge.KindReadDir, bridge.KindReadFile, bridge.KindOpenFile:
	default:
		return failure(fmt.Sprintf("unsupported request %q", kind))
	}

	v := s.workspace()
	if v == nil {
		return failure("no workspace open")
	}

	switch kind {
	case bridge.KindReadDir:
		entries, err := v.ListDir(ctx, path)
		if err != nil {
			return failure(s.describe(path, err))
		}
		return success(entries)

	case bridge.KindReadFile:
		content, err := v.ReadFile(ctx, path)
		if err != nil {
			return failure(s.describe(path, err))
		}
		return success(content)

	default:
		if _, err := v.StatFile(path); err != nil {
			return failure(s.describe(path, err))
		}
		s.mu.Lock()
		s.opened = append(s.opened, path)
		s.mu.Unlock()
		s.log.Info("plugin asked to open %s", path)
		return &bridge.Response{Success: true}
	}
}

// describe turns a filesystem error into text that names only the logical path
func (s *Server) describe(path string, err error) string {
	switch {
	case errors.Is(err, ErrOutsideWorkspace),
		errors.Is(err, ErrFileTooLarge),
		errors.Is(err, ErrNotDirectory),
		errors.Is(err, ErrIsDirectory):
		return err.Error()
	case errors.Is(err, fs.ErrNotExist):
		return "not found: " + path
	case errors.Is(err, fs.ErrPermission):
		return "permission denied: " + path
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err.Error()
	default:
		s.log.Warn("access to %s failed: %v", path, err)
		return "failed to access " + path
	}
}

func success(data interface{}) *bridge.Response {
	raw, err := json.Marshal(data)
	if err != nil {
		return failure(err.Error())
	}
	return &bridge.Response{Success: true, Data: raw}
}

func failure(msg string) *bridge.Response {
	return &bridge.Response{Success: false, Error: msg}
}
