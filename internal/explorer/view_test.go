package explorer

import (
	"testing"

	"github.com/codefionn/fileexplorer/internal/bridge"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildViewAtRoot(t *testing.T) {
	view := BuildView("/", []bridge.DirectoryEntry{
		{Name: "notes.txt", Type: bridge.EntryFile},
		{Name: "src", Type: bridge.EntryDirectory},
	})

	assert.Equal(t, StateListing, view.State)
	require.Len(t, view.Items, 2)
	assert.Equal(t, Item{Kind: ItemDirectory, Name: "src", Glyph: GlyphDirectory, Path: "/src"}, view.Items[0])
	assert.Equal(t, Item{Kind: ItemFile, Name: "notes.txt", Glyph: GlyphDocument, Path: "/notes.txt"}, view.Items[1])
}

func TestBuildViewPrependsUpItem(t *testing.T) {
	view := BuildView("/a/b", []bridge.DirectoryEntry{{Name: "report.md", Type: bridge.EntryFile}})

	require.Len(t, view.Items, 2)
	assert.Equal(t, ItemUp, view.Items[0].Kind)
	assert.Equal(t, "/a", view.Items[0].Path)
	assert.Equal(t, UpLabel, view.Items[0].Name)
	assert.Equal(t, "/a/b/report.md", view.Items[1].Path)
	assert.Equal(t, GlyphNote, view.Items[1].Glyph)

	view = BuildView("/a", []bridge.DirectoryEntry{{Name: "x", Type: bridge.EntryFile}})
	assert.Equal(t, "/", view.Items[0].Path)
}

func TestBuildViewEmptyFolder(t *testing.T) {
	view := BuildView("/", nil)
	assert.Equal(t, StateEmpty, view.State)
	assert.Equal(t, EmptyFolderText, view.Message)
	assert.Empty(t, view.Items)

	view = BuildView("/docs", []bridge.DirectoryEntry{})
	assert.Equal(t, StateEmpty, view.State)
	require.Len(t, view.Items, 1, "the up item stays so the user can leave")
	assert.Equal(t, ItemUp, view.Items[0].Kind)
}

func TestFormat(t *testing.T) {
	view := BuildView("/a", []bridge.DirectoryEntry{
		{Name: "logo.png", Type: bridge.EntryFile},
		{Name: "lib", Type: bridge.EntryDirectory},
	})
	assert.Equal(t, "⬆️ ..\n📁 lib\n🖼️ logo.png\n", Format(view))

	assert.Equal(t, "Error: permission denied\n", Format(ErrorView("/", "permission denied")))
	assert.Equal(t, "No workspace open\n", Format(NoWorkspaceView()))
}
