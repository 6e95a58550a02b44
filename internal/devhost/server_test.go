package devhost

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codefionn/fileexplorer/internal/bridge"
	"github.com/codefionn/fileexplorer/internal/config"
	"github.com/codefionn/fileexplorer/internal/explorer"
)

type testHost struct {
	server *Server
	http   *httptest.Server
}

func newTestHost(t *testing.T, cfg config.DevHostConfig) *testHost {
	t.Helper()
	if cfg.MaxFileBytes == 0 {
		cfg.MaxFileBytes = 1024
	}
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = 60
	}
	s := NewServer(cfg)
	s.Start()
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		ts.Close()
		s.Stop()
	})
	return &testHost{server: s, http: ts}
}

func (h *testHost) bridgeURL() string {
	return "ws" + strings.TrimPrefix(h.http.URL, "http") + "/bridge"
}

// connect dials the host and waits until the session is registered
func (h *testHost) connect(t *testing.T, header http.Header) *bridge.Client {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	before := h.server.Sessions()
	transport, err := bridge.DialWebSocket(ctx, h.bridgeURL(), header)
	require.NoError(t, err)

	client := bridge.NewClient(transport, &bridge.Config{RequestTimeout: waitFor, NotificationBuffer: 8})
	client.Start(ctx)
	t.Cleanup(func() { _ = client.Close() })

	require.Eventually(t, func() bool { return h.server.Sessions() == before+1 }, waitFor, 5*time.Millisecond)
	return client
}

func (h *testHost) do(t *testing.T, method, path string, body interface{}) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, h.http.URL+path, &buf)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func nextChange(t *testing.T, client *bridge.Client) bridge.WorkspaceChange {
	t.Helper()
	select {
	case change := <-client.WorkspaceChanges():
		return change
	case <-time.After(waitFor):
		t.Fatal("no workspace change received")
		return bridge.WorkspaceChange{}
	}
}

func TestBridgeRequests(t *testing.T) {
	root := newWorkspace(t)
	h := newTestHost(t, config.DevHostConfig{Workspace: root})
	require.NoError(t, h.server.OpenWorkspace(root))
	client := h.connect(t, nil)
	ctx := context.Background()

	details, err := client.GetWorkspaceDetails(ctx)
	require.NoError(t, err)
	require.True(t, details.Success)
	assert.True(t, details.Details.IsOpen)
	assert.Equal(t, "project", details.Details.Name)

	listing, err := client.ReadDirectory(ctx, "/")
	require.NoError(t, err)
	require.True(t, listing.Success, listing.Error)
	assert.Len(t, listing.Entries, 3)

	listing, err = client.ReadDirectory(ctx, "/docs/img")
	require.NoError(t, err)
	assert.True(t, listing.Success)
	assert.Empty(t, listing.Entries)

	listing, err = client.ReadDirectory(ctx, "/missing")
	require.NoError(t, err)
	assert.False(t, listing.Success)
	assert.Equal(t, "not found: /missing", listing.Error)

	listing, err = client.ReadDirectory(ctx, "/../")
	require.NoError(t, err)
	assert.False(t, listing.Success)
	assert.Contains(t, listing.Error, "outside the workspace")
	assert.NotContains(t, listing.Error, root)

	file, err := client.ReadFile(ctx, "/README.md")
	require.NoError(t, err)
	require.True(t, file.Success)
	assert.Equal(t, "# Project\n", file.Content)

	opened, err := client.OpenFile(ctx, "/docs/notes.txt")
	require.NoError(t, err)
	assert.True(t, opened.Success)
	assert.Equal(t, []string{"/docs/notes.txt"}, h.server.OpenedFiles())

	opened, err = client.OpenFile(ctx, "/docs")
	require.NoError(t, err)
	assert.False(t, opened.Success)
	assert.Contains(t, opened.Error, "is a directory")

	resp, err := client.Request(ctx, "vfs.delete", map[string]interface{}{"path": "/README.md"})
	require.NoError(t, err)
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "unsupported request")

	assert.Equal(t, 0, client.Pending())
}

func TestBridgeWithoutWorkspace(t *testing.T) {
	h := newTestHost(t, config.DevHostConfig{})
	client := h.connect(t, nil)
	ctx := context.Background()

	details, err := client.GetWorkspaceDetails(ctx)
	require.NoError(t, err)
	assert.True(t, details.Success)
	assert.False(t, details.Details.IsOpen)

	listing, err := client.ReadDirectory(ctx, "/")
	require.NoError(t, err)
	assert.False(t, listing.Success)
	assert.Equal(t, "no workspace open", listing.Error)
}

func TestHandleRequestIgnoresNonRequests(t *testing.T) {
	s := NewServer(config.DevHostConfig{})
	ctx := context.Background()

	assert.Nil(t, s.handleRequest(ctx, &bridge.Message{Type: ""}))
	assert.Nil(t, s.handleRequest(ctx, &bridge.Message{Type: "vfs.readDir.response", Payload: json.RawMessage(`{"requestId":"x"}`)}))
	assert.Nil(t, s.handleRequest(ctx, &bridge.Message{Type: "vfs.readDir", Payload: json.RawMessage(`{"path":"/"}`)}))
	assert.Nil(t, s.handleRequest(ctx, &bridge.Message{Type: "vfs.readDir", Payload: json.RawMessage(`not json`)}))

	reply := s.handleRequest(ctx, &bridge.Message{Type: "workspace.getDetails", Payload: json.RawMessage(`{"requestId":"abc"}`)})
	require.NotNil(t, reply)
	assert.Equal(t, "workspace.getDetails.response", reply.Type)

	var resp bridge.Response
	require.NoError(t, json.Unmarshal(reply.Payload, &resp))
	assert.Equal(t, "abc", resp.RequestID)
	assert.True(t, resp.Success)
	assert.JSONEq(t, `{"isOpen":false}`, string(resp.Data))
}

func TestWorkspaceEndpointsBroadcast(t *testing.T) {
	root := newWorkspace(t)
	h := newTestHost(t, config.DevHostConfig{})
	client := h.connect(t, nil)

	resp := h.do(t, http.MethodPost, "/workspace", map[string]string{"path": root})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var details bridge.WorkspaceDetails
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&details))
	assert.True(t, details.IsOpen)

	change := nextChange(t, client)
	assert.True(t, change.IsOpen)
	assert.Equal(t, "project", change.Name)

	resp = h.do(t, http.MethodGet, "/workspace", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = h.do(t, http.MethodDelete, "/workspace", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, nextChange(t, client).IsOpen)

	resp = h.do(t, http.MethodDelete, "/workspace", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestOpenWorkspaceRejectsBadPaths(t *testing.T) {
	root := newWorkspace(t)
	h := newTestHost(t, config.DevHostConfig{})

	resp := h.do(t, http.MethodPost, "/workspace", map[string]string{"path": ""})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = h.do(t, http.MethodPost, "/workspace", map[string]string{"path": root + "/README.md"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	assert.False(t, h.server.Details().IsOpen)
}

func TestRemovedRootClosesWorkspace(t *testing.T) {
	root := newWorkspace(t)
	h := newTestHost(t, config.DevHostConfig{})
	client := h.connect(t, nil)

	require.NoError(t, h.server.OpenWorkspace(root))
	require.True(t, nextChange(t, client).IsOpen)

	require.NoError(t, os.RemoveAll(root))
	assert.False(t, nextChange(t, client).IsOpen)
	assert.False(t, h.server.Details().IsOpen)
}

func TestAllowedOrigins(t *testing.T) {
	h := newTestHost(t, config.DevHostConfig{AllowedOrigins: []string{"http://localhost:3000"}})

	ctx := context.Background()
	_, err := bridge.DialWebSocket(ctx, h.bridgeURL(), http.Header{"Origin": []string{"http://evil.example"}})
	assert.Error(t, err)

	h.connect(t, http.Header{"Origin": []string{"http://localhost:3000"}})
	h.connect(t, nil)
}

func TestHealthz(t *testing.T) {
	h := newTestHost(t, config.DevHostConfig{})
	resp := h.do(t, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}

func TestExplorerAgainstDevHost(t *testing.T) {
	root := newWorkspace(t)
	h := newTestHost(t, config.DevHostConfig{})
	require.NoError(t, h.server.OpenWorkspace(root))
	client := h.connect(t, nil)
	ctx := context.Background()

	var views []explorer.View
	r := explorer.NewRenderer(client, explorer.DisplayFunc(func(v explorer.View) {
		views = append(views, v)
	}))

	r.Start(ctx)
	last := r.LastView()
	require.Equal(t, explorer.StateListing, last.State)
	require.Len(t, last.Items, 3)
	assert.Equal(t, "docs", last.Items[0].Name)
	assert.ElementsMatch(t, []string{".env", "README.md"}, []string{last.Items[1].Name, last.Items[2].Name})

	require.NoError(t, r.Activate(ctx, last.Items[0]))
	assert.Equal(t, "/docs", r.Current())
	last = r.LastView()
	assert.Equal(t, []string{"..", "img", "notes.txt"}, []string{last.Items[0].Name, last.Items[1].Name, last.Items[2].Name})

	require.NoError(t, r.Activate(ctx, last.Items[2]))
	assert.Equal(t, []string{"/docs/notes.txt"}, h.server.OpenedFiles())
	assert.NotEmpty(t, views)
}
