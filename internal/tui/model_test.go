package tui

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codefionn/fileexplorer/internal/bridge"
	"github.com/codefionn/fileexplorer/internal/explorer"
)

// fakeNav records every call the model makes
type fakeNav struct {
	mu        sync.Mutex
	started   int
	navigated []string
	fetched   []string
	opened    []string
	openErr   error
}

func (n *fakeNav) Start(context.Context) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.started++
}

func (n *fakeNav) Navigate(path string) func(context.Context) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.navigated = append(n.navigated, path)
	return func(context.Context) {
		n.mu.Lock()
		defer n.mu.Unlock()
		n.fetched = append(n.fetched, path)
	}
}

func (n *fakeNav) Open(_ context.Context, path string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.opened = append(n.opened, path)
	return n.openErr
}

type fakeReader struct {
	files map[string]string
}

func (r *fakeReader) ReadFile(_ context.Context, path string) (*bridge.FileResult, error) {
	content, ok := r.files[path]
	if !ok {
		return &bridge.FileResult{Error: "no such file"}, nil
	}
	return &bridge.FileResult{Success: true, Content: content}, nil
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func newTestModel(t *testing.T) (*Model, *fakeNav, *TestModelHelper) {
	t.Helper()
	nav := &fakeNav{}
	reader := &fakeReader{files: map[string]string{
		"/docs/notes.txt": "hello world",
	}}
	m := New(context.Background(), nav, reader)
	return m, nav, NewTestModelHelper(m)
}

func docsView() explorer.View {
	return explorer.BuildView("/docs", []bridge.DirectoryEntry{
		{Name: "notes.txt", Type: bridge.EntryFile},
		{Name: "img", Type: bridge.EntryDirectory},
	})
}

func TestInitStartsRenderer(t *testing.T) {
	m, nav, _ := newTestModel(t)
	cmd := m.Init()
	require.NotNil(t, cmd)

	batch, ok := cmd().(tea.BatchMsg)
	require.True(t, ok)
	for _, c := range batch {
		if c != nil {
			c()
		}
	}
	assert.Equal(t, 1, nav.started)
	assert.Equal(t, explorer.StateLoading, m.view.State)
}

func TestViewMsgRendersListing(t *testing.T) {
	m, _, h := newTestModel(t)
	h.UpdateWithMsg(ViewMsg{View: docsView()})

	out := m.View()
	assert.Contains(t, out, "/docs")
	assert.Contains(t, out, selectedMarker+explorer.GlyphUp+" ..")
	assert.Contains(t, out, explorer.GlyphDirectory+" img")
	assert.Contains(t, out, explorer.GlyphDocument+" notes.txt")
	assert.Less(t, strings.Index(out, "img"), strings.Index(out, "notes.txt"))
}

func TestViewMsgShowsMessages(t *testing.T) {
	m, _, h := newTestModel(t)

	h.UpdateWithMsg(ViewMsg{View: explorer.ErrorView("/", "permission denied")})
	assert.Contains(t, m.View(), "Error: permission denied")

	h.UpdateWithMsg(ViewMsg{View: explorer.NoWorkspaceView()})
	assert.Contains(t, m.View(), explorer.NoWorkspaceText)

	h.UpdateWithMsg(ViewMsg{View: explorer.BuildView("/", nil)})
	assert.Contains(t, m.View(), explorer.EmptyFolderText)
}

func TestCursorMovement(t *testing.T) {
	m, _, h := newTestModel(t)
	h.UpdateWithMsg(ViewMsg{View: docsView()})

	h.SendUp()
	assert.Equal(t, 0, m.cursor)

	h.SendDown()
	h.UpdateWithMsg(runes("j"))
	assert.Equal(t, 2, m.cursor)
	h.SendDown()
	assert.Equal(t, 2, m.cursor, "cursor stops at the last row")

	h.UpdateWithMsg(runes("k"))
	assert.Equal(t, 1, m.cursor)
	assert.Contains(t, m.View(), selectedMarker+explorer.GlyphDirectory+" img")
}

func TestCursorKeptOnRefreshAndResetOnNewPath(t *testing.T) {
	m, _, h := newTestModel(t)
	h.UpdateWithMsg(ViewMsg{View: docsView()})
	h.SendDown()
	h.SendDown()

	h.UpdateWithMsg(ViewMsg{View: explorer.LoadingView("/docs")})
	h.UpdateWithMsg(ViewMsg{View: docsView()})
	assert.Equal(t, 2, m.cursor)

	h.UpdateWithMsg(ViewMsg{View: explorer.BuildView("/docs", []bridge.DirectoryEntry{{Name: "a", Type: bridge.EntryFile}})})
	assert.Equal(t, 1, m.cursor, "cursor is clamped to the shorter listing")

	h.UpdateWithMsg(ViewMsg{View: explorer.LoadingView("/other")})
	assert.Equal(t, 0, m.cursor)
}

func TestActivateDirectoryNavigates(t *testing.T) {
	m, nav, h := newTestModel(t)
	h.UpdateWithMsg(ViewMsg{View: docsView()})
	h.SendDown()

	_, cmd := h.UpdateWithMsgAndCmd(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.Equal(t, []string{"/docs/img"}, nav.navigated)
	assert.Empty(t, nav.fetched, "the listing is fetched by the command")

	assert.Nil(t, cmd())
	assert.Equal(t, []string{"/docs/img"}, nav.fetched)
	assert.Empty(t, m.status)
}

func TestActivateUpItemNavigatesToParent(t *testing.T) {
	_, nav, h := newTestModel(t)
	h.UpdateWithMsg(ViewMsg{View: docsView()})

	_, cmd := h.UpdateWithMsgAndCmd(runes("l"))
	require.NotNil(t, cmd)
	assert.Equal(t, []string{"/"}, nav.navigated)
}

func TestActivateFileOpens(t *testing.T) {
	m, nav, h := newTestModel(t)
	h.UpdateWithMsg(ViewMsg{View: docsView()})
	h.SendDown()
	h.SendDown()

	_, cmd := h.UpdateWithMsgAndCmd(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.Contains(t, m.View(), "Opening /docs/notes.txt...")

	h.UpdateWithMsg(cmd())
	assert.Equal(t, []string{"/docs/notes.txt"}, nav.opened)
	assert.Empty(t, nav.navigated)
	assert.Contains(t, m.View(), "Opened /docs/notes.txt")

	nav.openErr = errors.New("failed to open /docs/notes.txt: locked")
	_, cmd = h.UpdateWithMsgAndCmd(tea.KeyMsg{Type: tea.KeyEnter})
	h.UpdateWithMsg(cmd())
	assert.Contains(t, m.View(), "Error: failed to open /docs/notes.txt: locked")
}

func TestParentKey(t *testing.T) {
	_, nav, h := newTestModel(t)

	h.UpdateWithMsg(ViewMsg{View: explorer.BuildView("/", []bridge.DirectoryEntry{{Name: "a", Type: bridge.EntryDirectory}})})
	_, cmd := h.UpdateWithMsgAndCmd(tea.KeyMsg{Type: tea.KeyBackspace})
	assert.Nil(t, cmd, "nothing above the root")

	h.UpdateWithMsg(ViewMsg{View: explorer.BuildView("/a/b", nil)})
	_, cmd = h.UpdateWithMsgAndCmd(runes("h"))
	require.NotNil(t, cmd)
	assert.Equal(t, []string{"/a"}, nav.navigated)
}

func TestRefreshKey(t *testing.T) {
	_, nav, h := newTestModel(t)

	h.UpdateWithMsg(ViewMsg{View: explorer.NoWorkspaceView()})
	_, cmd := h.UpdateWithMsgAndCmd(runes("r"))
	assert.Nil(t, cmd)

	h.UpdateWithMsg(ViewMsg{View: docsView()})
	_, cmd = h.UpdateWithMsgAndCmd(runes("r"))
	require.NotNil(t, cmd)
	assert.Equal(t, []string{"/docs"}, nav.navigated)
}

func TestKeysIgnoredWhileLoading(t *testing.T) {
	_, nav, h := newTestModel(t)
	h.UpdateWithMsg(ViewMsg{View: explorer.LoadingView("/docs")})

	_, cmd := h.UpdateWithMsgAndCmd(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.Empty(t, nav.navigated)
}

func TestPreviewToggle(t *testing.T) {
	m, _, h := newTestModel(t)
	h.UpdateWithMsg(ViewMsg{View: docsView()})

	_, cmd := h.UpdateWithMsgAndCmd(runes("p"))
	assert.Nil(t, cmd, "directories have no preview")

	h.SendDown()
	h.SendDown()
	_, cmd = h.UpdateWithMsgAndCmd(runes("p"))
	require.NotNil(t, cmd)
	assert.Contains(t, m.View(), explorer.LoadingText)

	h.UpdateWithMsg(cmd())
	out := m.View()
	assert.Contains(t, out, "hello world")
	assert.Contains(t, out, "/docs/notes.txt")

	h.UpdateWithMsg(runes("p"))
	assert.NotContains(t, m.View(), "hello world")
}

func TestPreviewError(t *testing.T) {
	m, _, h := newTestModel(t)
	h.UpdateWithMsg(ViewMsg{View: explorer.BuildView("/", []bridge.DirectoryEntry{{Name: "gone.txt", Type: bridge.EntryFile}})})

	_, cmd := h.UpdateWithMsgAndCmd(runes("p"))
	require.NotNil(t, cmd)
	h.UpdateWithMsg(cmd())
	assert.Contains(t, m.View(), "Error: no such file")
}

func TestStalePreviewIgnored(t *testing.T) {
	m, _, h := newTestModel(t)
	h.UpdateWithMsg(ViewMsg{View: docsView()})

	h.UpdateWithMsg(previewMsg{path: "/docs/notes.txt", content: "late"})
	assert.Nil(t, m.preview)
	assert.NotContains(t, m.View(), "late")
}

func TestPreviewClosedOnNavigation(t *testing.T) {
	m, _, h := newTestModel(t)
	h.UpdateWithMsg(ViewMsg{View: docsView()})
	h.SendDown()
	h.SendDown()
	_, cmd := h.UpdateWithMsgAndCmd(runes("p"))
	h.UpdateWithMsg(cmd())
	require.NotNil(t, m.preview)

	h.UpdateWithMsg(ViewMsg{View: explorer.LoadingView("/")})
	assert.Nil(t, m.preview)
}

func TestQuit(t *testing.T) {
	m, _, h := newTestModel(t)
	_, cmd := h.UpdateWithMsgAndCmd(runes("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
	assert.Empty(t, m.View())

	m, _, h = newTestModel(t)
	_, cmd = h.UpdateWithMsgAndCmd(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.True(t, m.quitting)
}

func TestLongListingScrollsWithCursor(t *testing.T) {
	var entries []bridge.DirectoryEntry
	for _, name := range []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k", "l"} {
		entries = append(entries, bridge.DirectoryEntry{Name: name + ".txt", Type: bridge.EntryFile})
	}
	m, _, h := newTestModel(t)
	h.SendResize(80, 10)
	h.UpdateWithMsg(ViewMsg{View: explorer.BuildView("/", entries)})

	out := m.View()
	assert.Contains(t, out, "a.txt")
	assert.NotContains(t, out, "l.txt")

	for range entries {
		h.SendDown()
	}
	out = m.View()
	assert.Contains(t, out, "l.txt")
	assert.NotContains(t, out, "a.txt")
}

func TestVisibleRange(t *testing.T) {
	tests := []struct {
		cursor, n, rows int
		first, last     int
	}{
		{0, 5, 0, 0, 5},
		{0, 5, 10, 0, 5},
		{0, 10, 4, 0, 4},
		{5, 10, 4, 3, 7},
		{9, 10, 4, 6, 10},
	}
	for _, tt := range tests {
		first, last := visibleRange(tt.cursor, tt.n, tt.rows)
		assert.Equal(t, tt.first, first, "%+v", tt)
		assert.Equal(t, tt.last, last, "%+v", tt)
	}
}
