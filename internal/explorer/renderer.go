// Package explorer keeps the displayed directory of the file explorer and
// rebuilds its view from the host's listings.
package explorer

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/codefionn/fileexplorer/internal/bridge"
	"github.com/codefionn/fileexplorer/internal/logger"
)

// Host is the subset of the bridge client the renderer needs.
type Host interface {
	ReadDirectory(ctx context.Context, path string) (*bridge.DirectoryResult, error)
	OpenFile(ctx context.Context, path string) (*bridge.Response, error)
	GetWorkspaceDetails(ctx context.Context) (*bridge.WorkspaceResult, error)
}

// Display shows views. Show is called with the renderer's lock held, so it
// must not call back into the renderer.
type Display interface {
	Show(View)
}

// DisplayFunc adapts a function to Display
type DisplayFunc func(View)

// Show implements Display
func (f DisplayFunc) Show(v View) { f(v) }

// Renderer owns the current path and publishes a fresh View on every render.
// A render superseded by a later one is not published when its listing
// arrives; its request is not cancelled.
type Renderer struct {
	host    Host
	display Display
	log     *logger.Logger

	mu         sync.Mutex
	current    string
	generation uint64
	last       View
}

// NewRenderer creates a renderer. Nothing is displayed until Start, Render or
// a workspace change.
func NewRenderer(host Host, display Display) *Renderer {
	return &Renderer{
		host:    host,
		display: display,
		log:     logger.Global().WithPrefix("explorer"),
		current: RootPath,
	}
}

// Current returns the path of the most recent render.
func (r *Renderer) Current() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// LastView returns the most recently published view.
func (r *Renderer) LastView() View {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

// Render shows the listing of path, publishing the loading view first.
func (r *Renderer) Render(ctx context.Context, path string) {
	r.Navigate(path)(ctx)
}

// Navigate makes path the current render and publishes the loading view
// before returning. The returned function fetches and publishes the listing;
// it may run on any goroutine.
func (r *Renderer) Navigate(path string) func(ctx context.Context) {
	r.mu.Lock()
	r.generation++
	gen := r.generation
	r.current = path
	r.publishLocked(LoadingView(path))
	r.mu.Unlock()

	return func(ctx context.Context) {
		r.fetch(ctx, gen, path)
	}
}

func (r *Renderer) fetch(ctx context.Context, gen uint64, path string) {
	res, err := r.host.ReadDirectory(ctx, path)

	var view View
	switch {
	case err != nil:
		if errors.Is(err, context.Canceled) {
			r.log.Debug("render of %s abandoned: %v", path, err)
			return
		}
		r.log.Warn("read %s failed: %v", path, err)
		view = ErrorView(path, err.Error())
	case !res.Success:
		r.log.Info("host refused listing of %s: %s", path, res.Error)
		view = ErrorView(path, res.Error)
	default:
		view = BuildView(path, res.Entries)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if gen != r.generation {
		r.log.Debug("discarding superseded listing of %s", path)
		return
	}
	r.publishLocked(view)
}

func (r *Renderer) publishLocked(view View) {
	r.last = view
	if r.display != nil {
		r.display.Show(view)
	}
}

// Up renders the parent of the current path. At the root it does nothing.
func (r *Renderer) Up(ctx context.Context) {
	current := r.Current()
	if IsRoot(current) {
		return
	}
	r.Render(ctx, ParentPath(current))
}

// Refresh renders the current path again.
func (r *Renderer) Refresh(ctx context.Context) {
	r.Render(ctx, r.Current())
}

// Activate performs an item's action: navigation for up and directory items,
// an open request for files. Opening a file leaves the view unchanged.
func (r *Renderer) Activate(ctx context.Context, item Item) error {
	switch item.Kind {
	case ItemUp, ItemDirectory:
		r.Render(ctx, item.Path)
		return nil
	case ItemFile:
		return r.Open(ctx, item.Path)
	default:
		return fmt.Errorf("unknown item kind %d", item.Kind)
	}
}

// Open asks the host to open path. Host refusals are returned as errors so
// callers can surface them; the displayed directory does not change.
func (r *Renderer) Open(ctx context.Context, path string) error {
	resp, err := r.host.OpenFile(ctx, path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	if !resp.Success {
		r.log.Info("host refused to open %s: %s", path, resp.Error)
		return fmt.Errorf("failed to open %s: %s", path, resp.Error)
	}
	r.log.Debug("opened %s", path)
	return nil
}

// ShowNoWorkspace discards the current path and any render in flight and shows
// the no-workspace placeholder.
func (r *Renderer) ShowNoWorkspace() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.generation++
	r.current = RootPath
	r.publishLocked(NoWorkspaceView())
}

// Start asks the host whether a workspace is open and renders the root if so.
// Any failure is treated as no workspace.
func (r *Renderer) Start(ctx context.Context) {
	res, err := r.host.GetWorkspaceDetails(ctx)
	switch {
	case err != nil:
		if errors.Is(err, context.Canceled) {
			return
		}
		r.log.Warn("workspace query failed: %v", err)
		r.ShowNoWorkspace()
	case res.Success && res.Details.IsOpen:
		r.Render(ctx, RootPath)
	default:
		r.ShowNoWorkspace()
	}
}

// HandleWorkspaceChange resets the view for a workspace transition: the root
// is rendered when a workspace opened, the placeholder is shown when it
// closed. The root listing is fetched on a new goroutine; the returned channel
// closes when it has been handled.
func (r *Renderer) HandleWorkspaceChange(ctx context.Context, change bridge.WorkspaceChange) <-chan struct{} {
	r.log.Info("Workspace changed: open=%t name=%q", change.IsOpen, change.Name)

	done := make(chan struct{})
	if !change.IsOpen {
		r.ShowNoWorkspace()
		close(done)
		return done
	}

	fetch := r.Navigate(RootPath)
	go func() {
		defer close(done)
		fetch(ctx)
	}()
	return done
}

// Watch handles workspace changes until ctx ends or changes is closed.
func (r *Renderer) Watch(ctx context.Context, changes <-chan bridge.WorkspaceChange) {
	for {
		select {
		case <-ctx.Done():
			return
		case change, ok := <-changes:
			if !ok {
				return
			}
			r.HandleWorkspaceChange(ctx, change)
		}
	}
}
