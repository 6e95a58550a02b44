// Package tui is the interactive terminal front end of the file explorer.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/muesli/reflow/truncate"

	"github.com/codefionn/fileexplorer/internal/explorer"
)

// Navigator is the part of explorer.Renderer the model drives.
type Navigator interface {
	Start(ctx context.Context)
	Navigate(path string) func(ctx context.Context)
	Open(ctx context.Context, path string) error
}

// openedMsg reports the outcome of an open request
type openedMsg struct {
	path string
	err  error
}

// filePreview is the state of the preview pane
type filePreview struct {
	path    string
	content string
	err     error
	loading bool
}

// Model is the bubbletea model of the explorer. Views arrive as ViewMsg from
// a ProgramDisplay; key presses are turned into renderer calls.
type Model struct {
	ctx    context.Context
	nav    Navigator
	reader Reader

	keys    keyMap
	help    help.Model
	spinner spinner.Model

	view    explorer.View
	cursor  int
	width   int
	height  int
	status  string
	failed  bool
	preview *filePreview

	quitting bool
}

// New creates the model. reader may be nil, which disables previews.
func New(ctx context.Context, nav Navigator, reader Reader) *Model {
	sp := spinner.New(
		spinner.WithSpinner(spinner.Line),
		spinner.WithStyle(statusStyle.MarginLeft(0)),
	)

	return &Model{
		ctx:     ctx,
		nav:     nav,
		reader:  reader,
		keys:    defaultKeyMap(),
		help:    help.New(),
		spinner: sp,
		view:    explorer.LoadingView(explorer.RootPath),
	}
}

// Init asks the host for the workspace and starts the spinner
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, func() tea.Msg {
		m.nav.Start(m.ctx)
		return nil
	})
}

// Update implements tea.Model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case ViewMsg:
		m.applyView(msg.View)
		return m, nil

	case openedMsg:
		if msg.err != nil {
			m.setStatus(msg.err.Error(), true)
		} else {
			m.setStatus("Opened "+msg.path, false)
		}
		return m, nil

	case previewMsg:
		if m.preview == nil || m.preview.path != msg.path {
			return m, nil
		}
		m.preview = &filePreview{path: msg.path, content: msg.content, err: msg.err}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m, m.handleKey(msg)
	}

	return m, nil
}

func (m *Model) applyView(view explorer.View) {
	if view.Path != m.view.Path || view.State == explorer.StateNoWorkspace {
		m.cursor = 0
		m.preview = nil
	}
	m.view = view
	if view.State == explorer.StateLoading {
		return
	}
	if m.cursor >= len(view.Items) {
		m.cursor = len(view.Items) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return tea.Quit

	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}

	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.view.Items)-1 {
			m.cursor++
		}

	case key.Matches(msg, m.keys.Activate):
		item, ok := m.selected()
		if !ok {
			return nil
		}
		if item.Kind == explorer.ItemFile {
			return m.open(item.Path)
		}
		return m.navigate(item.Path)

	case key.Matches(msg, m.keys.Parent):
		if m.view.State == explorer.StateNoWorkspace || explorer.IsRoot(m.view.Path) {
			return nil
		}
		return m.navigate(explorer.ParentPath(m.view.Path))

	case key.Matches(msg, m.keys.Refresh):
		if m.view.State == explorer.StateNoWorkspace {
			return nil
		}
		return m.navigate(m.view.Path)

	case key.Matches(msg, m.keys.Preview):
		return m.togglePreview()
	}
	return nil
}

func (m *Model) selected() (explorer.Item, bool) {
	if m.view.State == explorer.StateLoading || m.cursor < 0 || m.cursor >= len(m.view.Items) {
		return explorer.Item{}, false
	}
	return m.view.Items[m.cursor], true
}

// navigate publishes the loading view right away and fetches the listing
// in a command
func (m *Model) navigate(path string) tea.Cmd {
	fetch := m.nav.Navigate(path)
	m.preview = nil
	m.setStatus("", false)
	ctx := m.ctx
	return func() tea.Msg {
		fetch(ctx)
		return nil
	}
}

func (m *Model) open(path string) tea.Cmd {
	m.setStatus("Opening "+path+"...", false)
	ctx, nav := m.ctx, m.nav
	return func() tea.Msg {
		return openedMsg{path: path, err: nav.Open(ctx, path)}
	}
}

func (m *Model) togglePreview() tea.Cmd {
	item, ok := m.selected()
	if !ok || item.Kind != explorer.ItemFile || m.reader == nil {
		return nil
	}
	if m.preview != nil && m.preview.path == item.Path {
		m.preview = nil
		return nil
	}
	m.preview = &filePreview{path: item.Path, loading: true}
	return loadPreview(m.ctx, m.reader, item.Path, m.previewWidth())
}

func (m *Model) setStatus(text string, failed bool) {
	m.status = text
	m.failed = failed
}

func (m *Model) previewWidth() int {
	if m.width == 0 {
		return 76
	}
	return m.width - 6
}

// View implements tea.Model
func (m *Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render(m.view.Path))
	b.WriteString("\n\n")

	rows := m.listRows()
	first, last := visibleRange(m.cursor, len(m.view.Items), rows)
	for i := first; i < last; i++ {
		b.WriteString(m.renderItem(i))
		b.WriteString("\n")
	}

	if m.view.Message != "" {
		switch m.view.State {
		case explorer.StateError:
			b.WriteString(errorStyle.Render(m.view.Message))
		case explorer.StateLoading:
			b.WriteString(messageStyle.Render(fmt.Sprintf("%s %s", m.spinner.View(), m.view.Message)))
		default:
			b.WriteString(messageStyle.Render(m.view.Message))
		}
		b.WriteString("\n")
	}

	if m.preview != nil {
		b.WriteString(m.renderPreview())
		b.WriteString("\n")
	}

	if m.status != "" {
		if m.failed {
			b.WriteString(errorStyle.Render("Error: " + m.status))
		} else {
			b.WriteString(statusStyle.Render(m.status))
		}
		b.WriteString("\n")
	}

	b.WriteString(helpStyle.Render(m.help.View(m.keys)))
	return b.String()
}

func (m *Model) renderItem(i int) string {
	item := m.view.Items[i]
	name := item.Name
	if m.width > 0 {
		name = truncate.StringWithTail(name, uint(max(m.width-8, 4)), "…")
	}
	line := item.Glyph + " " + name
	if i == m.cursor {
		return selectedItemStyle.Render(selectedMarker + line)
	}
	return itemStyle.Render(line)
}

func (m *Model) renderPreview() string {
	var body string
	switch {
	case m.preview.loading:
		body = messageStyle.Render(explorer.LoadingText)
	case m.preview.err != nil:
		body = errorStyle.Render("Error: " + m.preview.err.Error())
	default:
		body = m.preview.content
	}

	if limit := m.previewRows(); limit > 0 {
		lines := strings.Split(body, "\n")
		if len(lines) > limit {
			body = strings.Join(lines[:limit], "\n")
		}
	}

	style := previewBorderStyle
	if m.width > 0 {
		style = style.Width(m.width - 4)
	}
	return style.Render(headerStyle.Render(m.preview.path) + "\n" + body)
}

// listRows is how many rows the listing may use; zero means unbounded
func (m *Model) listRows() int {
	if m.height == 0 {
		return 0
	}
	rows := m.height - 5
	if m.preview != nil {
		rows = rows / 2
	}
	return max(rows, 3)
}

func (m *Model) previewRows() int {
	if m.height == 0 {
		return 0
	}
	return max(m.height/2-4, 3)
}

// visibleRange returns the window of n rows that keeps cursor in view
func visibleRange(cursor, n, rows int) (int, int) {
	if rows <= 0 || n <= rows {
		return 0, n
	}
	first := cursor - rows/2
	if first < 0 {
		first = 0
	}
	if first+rows > n {
		first = n - rows
	}
	return first, first + rows
}
