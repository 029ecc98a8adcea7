package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/aristath/taskui/internal/scheduler"
)

// viewMode selects what the pane shows for the selected task.
type viewMode int

const (
	viewOutput viewMode = iota
	viewLogs
)

// OutputPaneModel shows the selected task's captured output or log records
// in a scrollable viewport.
type OutputPaneModel struct {
	viewport viewport.Model
	mode     viewMode
	task     taskView
	atBottom bool
	width    int
	height   int
}

// NewOutputPaneModel creates the pane.
func NewOutputPaneModel() OutputPaneModel {
	vp := viewport.New(0, 0)
	return OutputPaneModel{viewport: vp, atBottom: true}
}

// SetTask refreshes the pane content from a snapshot row.
func (m OutputPaneModel) SetTask(t taskView) OutputPaneModel {
	m.task = t
	wasAtBottom := m.viewport.AtBottom()
	m.viewport.SetContent(m.content())
	// Tail the stream unless the user scrolled away.
	if m.atBottom && wasAtBottom {
		m.viewport.GotoBottom()
	}
	return m
}

// Reset scrolls back to the tail, used when selection changes.
func (m *OutputPaneModel) Reset() {
	m.atBottom = true
	m.viewport.GotoBottom()
}

// ToggleView switches between output and log records.
func (m OutputPaneModel) ToggleView() OutputPaneModel {
	if m.mode == viewOutput {
		m.mode = viewLogs
	} else {
		m.mode = viewOutput
	}
	m.viewport.SetContent(m.content())
	m.viewport.GotoTop()
	return m
}

// Update delegates scrolling keys to the viewport.
func (m OutputPaneModel) Update(msg tea.Msg) (OutputPaneModel, tea.Cmd) {
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	m.atBottom = m.viewport.AtBottom()
	return m, cmd
}

// SetSize updates the pane dimensions.
func (m OutputPaneModel) SetSize(width, height int) OutputPaneModel {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height - 2 // header line + border slack
	return m
}

func (m OutputPaneModel) content() string {
	if m.mode == viewLogs {
		if len(m.task.Records) == 0 {
			return StyleHelp.Render("(no log records)")
		}
		lines := make([]string, len(m.task.Records))
		for i, rec := range m.task.Records {
			lines[i] = rec.String()
		}
		return strings.Join(lines, "\n")
	}

	out := m.task.Output
	if m.task.Status == scheduler.StatusFailure && m.task.Err != nil {
		out += "\n" + StyleStatusFailure.Render(fmt.Sprintf("error: %v", m.task.Err))
	}
	if out == "" {
		return StyleHelp.Render("(no output)")
	}
	return out
}

// View renders the pane with a header naming the task and mode.
func (m OutputPaneModel) View() string {
	mode := "output"
	if m.mode == viewLogs {
		mode = "logs"
	}
	header := StyleTitle.Render(fmt.Sprintf("%s [%s] %s", m.task.Name, mode, m.task.Status))
	style := StyleFocusedBorder.Width(m.width).Height(m.height)
	return style.Render(header + "\n" + m.viewport.View())
}
