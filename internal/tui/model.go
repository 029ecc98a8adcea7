package tui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/aristath/taskui/internal/capture"
	"github.com/aristath/taskui/internal/events"
	"github.com/aristath/taskui/internal/scheduler"
)

// taskView is one polled snapshot row: everything the dashboard needs about
// a task, read through the executor's query surface.
type taskView struct {
	Name     string
	Status   scheduler.TaskStatus
	Output   string
	Records  []capture.Record
	Duration time.Duration
	Err      error
}

// pollMsg carries a fresh snapshot of every task.
type pollMsg struct {
	tasks []taskView
}

// Model is the root Bubble Tea model. It polls the executor on a fixed
// sub-second cadence; the only push it reacts to is the run-finished event.
type Model struct {
	exec     *scheduler.Executor
	graph    *scheduler.TaskGraph
	title    string
	interval time.Duration

	taskPane   TaskPaneModel
	outputPane OutputPaneModel

	runSub        <-chan events.Event
	exitOnSuccess bool
	finished      bool
	finishedOK    bool
	width         int
	height        int
	quitting      bool
}

// New creates the dashboard model.
func New(exec *scheduler.Executor, graph *scheduler.TaskGraph, bus *events.Bus, title string, pollInterval time.Duration, exitOnSuccess bool) Model {
	if pollInterval <= 0 {
		pollInterval = 200 * time.Millisecond
	}
	return Model{
		exec:          exec,
		graph:         graph,
		title:         title,
		interval:      pollInterval,
		taskPane:      NewTaskPaneModel(),
		outputPane:    NewOutputPaneModel(),
		runSub:        bus.Subscribe(events.TopicRun, 64),
		exitOnSuccess: exitOnSuccess,
	}
}

// Init schedules the first poll and the run-event wait.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.poll(), waitForRunEvent(m.runSub))
}

// poll returns a command that snapshots the executor after one interval.
func (m Model) poll() tea.Cmd {
	return tea.Tick(m.interval, func(time.Time) tea.Msg {
		return m.snapshot()
	})
}

func (m Model) snapshot() pollMsg {
	tasks := m.graph.Tasks()
	views := make([]taskView, len(tasks))
	for i, t := range tasks {
		err, _ := m.exec.Failure(t)
		views[i] = taskView{
			Name:     t.Name,
			Status:   m.exec.Status(t),
			Output:   m.exec.Output(t),
			Records:  m.exec.LogRecords(t),
			Duration: m.exec.Worker(t).Duration(),
			Err:      err,
		}
	}
	return pollMsg{tasks: views}
}

func waitForRunEvent(sub <-chan events.Event) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-sub
		if !ok {
			return nil
		}
		return event
	}
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case KeyQuit, KeyCtrlC:
			m.quitting = true
			return m, tea.Quit
		case KeyJ, KeyDown, KeyK, KeyUp, KeyTab, KeyFollow:
			m.taskPane = m.taskPane.HandleKey(msg.String())
			m.outputPane.Reset()
		case KeyLogView:
			m.outputPane = m.outputPane.ToggleView()
		default:
			var cmd tea.Cmd
			m.outputPane, cmd = m.outputPane.Update(msg)
			cmds = append(cmds, cmd)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.computeLayout()

	case pollMsg:
		m.taskPane = m.taskPane.SetTasks(msg.tasks)
		m.outputPane = m.outputPane.SetTask(m.taskPane.Selected())
		cmds = append(cmds, m.poll())

	case events.RunFinishedEvent:
		m.finished = true
		m.finishedOK = msg.Success
		if m.exitOnSuccess && msg.Success {
			m.quitting = true
			return m, tea.Quit
		}
		cmds = append(cmds, waitForRunEvent(m.runSub))

	case events.RunProgressEvent:
		cmds = append(cmds, waitForRunEvent(m.runSub))
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) computeLayout() {
	listWidth := m.width / 4
	if listWidth < 20 {
		listWidth = 20
	}
	paneHeight := m.height - 3 // title + status bar
	m.taskPane = m.taskPane.SetSize(listWidth, paneHeight)
	m.outputPane = m.outputPane.SetSize(m.width-listWidth-4, paneHeight)
}

// View renders the dashboard.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	panes := lipgloss.JoinHorizontal(lipgloss.Top, m.taskPane.View(), m.outputPane.View())
	return lipgloss.JoinVertical(lipgloss.Left,
		StyleTitle.Render(m.title),
		panes,
		m.statusBar(),
	)
}

func (m Model) statusBar() string {
	waiting, running, success, failure := m.exec.Counts()
	progress := fmt.Sprintf("waiting %d | running %d | success %d | failure %d", waiting, running, success, failure)
	if m.finished {
		if m.finishedOK {
			progress += "  " + StyleStatusSuccess.Render("● all tasks succeeded")
		} else {
			progress += "  " + StyleStatusFailure.Render("● run failed")
		}
	}
	return lipgloss.JoinVertical(lipgloss.Left, progress, HelpView())
}
