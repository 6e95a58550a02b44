package tui

import (
	"context"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/codefionn/fileexplorer/internal/explorer"
)

// ViewMsg carries a freshly rendered view into the model.
type ViewMsg struct {
	View explorer.View
}

// Sender is the part of tea.Program the display forwards views through.
type Sender interface {
	Send(msg tea.Msg)
}

// ProgramDisplay is an explorer.Display feeding a bubbletea program. Show
// never blocks, which allows the model to start navigations from inside
// Update; views published faster than the program consumes them collapse
// into the newest one.
type ProgramDisplay struct {
	mu      sync.Mutex
	latest  explorer.View
	pending bool
	wake    chan struct{}
}

// NewProgramDisplay creates a display. Views are delivered once Run is started.
func NewProgramDisplay() *ProgramDisplay {
	return &ProgramDisplay{wake: make(chan struct{}, 1)}
}

// Show implements explorer.Display
func (d *ProgramDisplay) Show(view explorer.View) {
	d.mu.Lock()
	d.latest = view
	d.pending = true
	d.mu.Unlock()

	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// Run forwards views to program until ctx ends.
func (d *ProgramDisplay) Run(ctx context.Context, program Sender) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-d.wake:
		}

		d.mu.Lock()
		view, ok := d.latest, d.pending
		d.pending = false
		d.mu.Unlock()

		if ok {
			program.Send(ViewMsg{View: view})
		}
	}
}
