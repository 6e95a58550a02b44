package explorer

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

// Format renders a view as plain text: the items one per line, followed by
// the view's message when it has one.
func Format(view View) string {
	var b strings.Builder
	for _, item := range view.Items {
		fmt.Fprintf(&b, "%s %s\n", item.Glyph, item.Name)
	}
	if view.Message != "" {
		b.WriteString(view.Message)
		b.WriteByte('\n')
	}
	return b.String()
}

// WriterDisplay prints every view it is shown to a writer.
type WriterDisplay struct {
	mu sync.Mutex
	w  io.Writer
	// SkipLoading suppresses loading placeholders.
	SkipLoading bool
}

// NewWriterDisplay creates a display writing to w
func NewWriterDisplay(w io.Writer) *WriterDisplay {
	return &WriterDisplay{w: w}
}

// Show implements Display
func (d *WriterDisplay) Show(view View) {
	if d.SkipLoading && view.State == StateLoading {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	fmt.Fprint(d.w, Format(view))
}
