package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"
)

// MockProgram records the messages sent to it
type MockProgram struct {
	mu   sync.Mutex
	sent []tea.Msg
}

// Send implements Sender
func (m *MockProgram) Send(msg tea.Msg) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
}

// Sent returns a copy of the messages sent so far
func (m *MockProgram) Sent() []tea.Msg {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]tea.Msg(nil), m.sent...)
}

// TestModelHelper drives a model with messages
type TestModelHelper struct {
	model tea.Model
}

// NewTestModelHelper creates a new test model helper
func NewTestModelHelper(model tea.Model) *TestModelHelper {
	return &TestModelHelper{model: model}
}

// UpdateWithMsg applies a message to the model and returns the updated model
func (h *TestModelHelper) UpdateWithMsg(msg tea.Msg) tea.Model {
	updated, _ := h.model.Update(msg)
	h.model = updated
	return updated
}

// UpdateWithMsgAndCmd applies a message to the model and returns both model and command
func (h *TestModelHelper) UpdateWithMsgAndCmd(msg tea.Msg) (tea.Model, tea.Cmd) {
	updated, cmd := h.model.Update(msg)
	h.model = updated
	return updated, cmd
}

// SendUp sends Up arrow key press
func (h *TestModelHelper) SendUp() tea.Model {
	return h.UpdateWithMsg(tea.KeyMsg{Type: tea.KeyUp})
}

// SendDown sends Down arrow key press
func (h *TestModelHelper) SendDown() tea.Model {
	return h.UpdateWithMsg(tea.KeyMsg{Type: tea.KeyDown})
}

// SendResize sends a window resize message
func (h *TestModelHelper) SendResize(width, height int) tea.Model {
	return h.UpdateWithMsg(tea.WindowSizeMsg{Width: width, Height: height})
}
