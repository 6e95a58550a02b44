package explorer

import (
	"github.com/codefionn/fileexplorer/internal/bridge"
)

// Placeholder texts
const (
	LoadingText     = "Loading..."
	EmptyFolderText = "Empty folder"
	NoWorkspaceText = "No workspace open"
	ErrorPrefix     = "Error: "
	UpLabel         = ".."
)

// State says what a View shows
type State int

const (
	// StateLoading is shown while a listing is requested
	StateLoading State = iota
	// StateListing shows directory entries
	StateListing
	// StateEmpty shows a directory without entries
	StateEmpty
	// StateError shows a failure reported by the host or the transport
	StateError
	// StateNoWorkspace is shown while the host has no workspace open
	StateNoWorkspace
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateListing:
		return "listing"
	case StateEmpty:
		return "empty"
	case StateError:
		return "error"
	case StateNoWorkspace:
		return "no-workspace"
	default:
		return "unknown"
	}
}

// ItemKind identifies what activating an Item does
type ItemKind int

const (
	// ItemUp navigates to the parent directory
	ItemUp ItemKind = iota
	// ItemDirectory navigates into a directory
	ItemDirectory
	// ItemFile asks the host to open a file
	ItemFile
)

// Item is one row of a listing. Path is the navigation target for ItemUp and
// ItemDirectory and the file to open for ItemFile.
type Item struct {
	Kind  ItemKind
	Name  string
	Glyph string
	Path  string
}

// View is an immutable snapshot of what the explorer displays. Every render
// replaces the whole View.
type View struct {
	Path    string
	State   State
	Message string
	Items   []Item
}

// LoadingView is shown while path is being fetched.
func LoadingView(path string) View {
	return View{Path: path, State: StateLoading, Message: LoadingText}
}

// ErrorView shows msg as inline error text.
func ErrorView(path, msg string) View {
	return View{Path: path, State: StateError, Message: ErrorPrefix + msg}
}

// NoWorkspaceView is shown while no workspace is open.
func NoWorkspaceView() View {
	return View{Path: RootPath, State: StateNoWorkspace, Message: NoWorkspaceText}
}

// BuildView turns a directory listing into a View: an up item unless path is
// the root, then directories and files in display order.
func BuildView(path string, entries []bridge.DirectoryEntry) View {
	view := View{Path: path, State: StateListing}

	if !IsRoot(path) {
		view.Items = append(view.Items, Item{
			Kind:  ItemUp,
			Name:  UpLabel,
			Glyph: GlyphUp,
			Path:  ParentPath(path),
		})
	}

	if len(entries) == 0 {
		view.State = StateEmpty
		view.Message = EmptyFolderText
		return view
	}

	for _, entry := range SortEntries(entries) {
		kind := ItemFile
		if entry.IsDir() {
			kind = ItemDirectory
		}
		view.Items = append(view.Items, Item{
			Kind:  kind,
			Name:  entry.Name,
			Glyph: GlyphFor(entry.Name, entry.Type),
			Path:  JoinPath(path, entry.Name),
		})
	}
	return view
}
