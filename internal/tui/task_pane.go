package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/aristath/taskui/internal/scheduler"
)

// TaskPaneModel renders the task list with status glyphs. Selection follows
// insertion order; "follow" mode keeps the most recently started task
// selected.
type TaskPaneModel struct {
	tasks       []taskView
	selectedIdx int
	follow      bool
	width       int
	height      int
}

// NewTaskPaneModel creates an empty task pane.
func NewTaskPaneModel() TaskPaneModel {
	return TaskPaneModel{}
}

// SetTasks replaces the snapshot backing the list.
func (m TaskPaneModel) SetTasks(tasks []taskView) TaskPaneModel {
	m.tasks = tasks
	if m.follow {
		m.selectedIdx = m.latestActive()
	}
	if m.selectedIdx >= len(tasks) {
		m.selectedIdx = 0
	}
	return m
}

// latestActive returns the last Running task, falling back to the last task
// that has started at all.
func (m TaskPaneModel) latestActive() int {
	last := 0
	for i, t := range m.tasks {
		if t.Status != scheduler.StatusWaiting {
			last = i
		}
	}
	return last
}

// Selected returns the currently selected snapshot row.
func (m TaskPaneModel) Selected() taskView {
	if m.selectedIdx < len(m.tasks) {
		return m.tasks[m.selectedIdx]
	}
	return taskView{}
}

// HandleKey moves the selection.
func (m TaskPaneModel) HandleKey(key string) TaskPaneModel {
	switch key {
	case KeyJ, KeyDown:
		m.follow = false
		if m.selectedIdx < len(m.tasks)-1 {
			m.selectedIdx++
		}
	case KeyK, KeyUp:
		m.follow = false
		if m.selectedIdx > 0 {
			m.selectedIdx--
		}
	case KeyTab:
		m.follow = false
		if len(m.tasks) > 0 {
			m.selectedIdx = (m.selectedIdx + 1) % len(m.tasks)
		}
	case KeyFollow:
		m.follow = !m.follow
	}
	return m
}

// SetSize updates the pane dimensions.
func (m TaskPaneModel) SetSize(width, height int) TaskPaneModel {
	m.width = width
	m.height = height
	return m
}

// View renders the list.
func (m TaskPaneModel) View() string {
	var b strings.Builder
	for i, t := range m.tasks {
		line := fmt.Sprintf("%s %s", statusStyle(t.Status).Render(statusGlyph(t.Status)), t.Name)
		if t.Duration > 0 {
			line += StyleHelp.Render(fmt.Sprintf(" %s", t.Duration.Round(10*time.Millisecond)))
		}
		if i == m.selectedIdx {
			line = StyleSelected.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	style := StyleUnfocusedBorder.Width(m.width).Height(m.height)
	return style.Render(b.String())
}
