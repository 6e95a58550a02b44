package tui

import (
	"context"
	"errors"
	"path"
	"strings"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/muesli/reflow/ansi"
	"github.com/muesli/reflow/truncate"
	"github.com/muesli/reflow/wordwrap"

	"github.com/codefionn/fileexplorer/internal/bridge"
)

// maxPreviewBytes bounds how much of a file is rendered
const maxPreviewBytes = 64 * 1024

// Reader fetches file contents for the preview pane.
type Reader interface {
	ReadFile(ctx context.Context, path string) (*bridge.FileResult, error)
}

// previewMsg delivers a rendered preview
type previewMsg struct {
	path    string
	content string
	err     error
}

// markdownRenderer is a glamour renderer for one wrap width. TermRenderer is
// not safe for concurrent use, so Render holds mu.
type markdownRenderer struct {
	mu sync.Mutex
	tr *glamour.TermRenderer
}

func (r *markdownRenderer) render(content string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tr.Render(content)
}

// markdownRenderers caches renderers by wrap width
var markdownRenderers = struct {
	sync.Mutex
	byWidth map[int]*markdownRenderer
}{byWidth: make(map[int]*markdownRenderer)}

func markdownRendererFor(width int) (*markdownRenderer, error) {
	markdownRenderers.Lock()
	defer markdownRenderers.Unlock()
	if r, ok := markdownRenderers.byWidth[width]; ok {
		return r, nil
	}
	tr, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
		glamour.WithPreservedNewLines(),
	)
	if err != nil {
		return nil, err
	}
	r := &markdownRenderer{tr: tr}
	markdownRenderers.byWidth[width] = r
	return r, nil
}

// renderPreview formats file content for a pane width columns wide.
// Markdown goes through glamour; anything else is word wrapped.
func renderPreview(name, content string, width int) string {
	if width < 10 {
		width = 10
	}
	if len(content) > maxPreviewBytes {
		content = content[:maxPreviewBytes] + "\n…"
	}
	if strings.ContainsRune(content, 0) {
		return "(binary file)"
	}

	if strings.EqualFold(path.Ext(name), ".md") {
		if r, err := markdownRendererFor(width); err == nil {
			if out, err := r.render(content); err == nil {
				return strings.TrimRight(out, "\n")
			}
		}
	}

	wrapped := wordwrap.String(content, width)
	lines := strings.Split(wrapped, "\n")
	for i, line := range lines {
		// wordwrap never breaks inside a word
		if ansi.PrintableRuneWidth(line) > width {
			lines[i] = truncate.StringWithTail(line, uint(width), "…")
		}
	}
	return strings.TrimRight(strings.Join(lines, "\n"), "\n")
}

// loadPreview reads path through the host and renders it
func loadPreview(ctx context.Context, reader Reader, filePath string, width int) tea.Cmd {
	return func() tea.Msg {
		res, err := reader.ReadFile(ctx, filePath)
		if err != nil {
			return previewMsg{path: filePath, err: err}
		}
		if !res.Success {
			return previewMsg{path: filePath, err: errors.New(res.Error)}
		}
		return previewMsg{path: filePath, content: renderPreview(filePath, res.Content, width)}
	}
}
