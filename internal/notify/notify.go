package notify

import (
	"fmt"
	"os/exec"
	"runtime"
)

// Notifier sends desktop notifications about the run outcome. It is wired as
// a terminal callback: the executor fires it once, off the scheduling path.
type Notifier struct {
	Title      string
	SuccessMsg string
	FailMsg    string

	// goos and run are swappable for tests.
	goos string
	run  func(name string, args ...string) error
}

// New builds a notifier with platform detection.
func New(title, successMsg, failMsg string) *Notifier {
	return &Notifier{
		Title:      title,
		SuccessMsg: successMsg,
		FailMsg:    failMsg,
		goos:       runtime.GOOS,
		run: func(name string, args ...string) error {
			return exec.Command(name, args...).Run()
		},
	}
}

// Callback returns the terminal callback to register on the executor.
func (n *Notifier) Callback() func(success bool) {
	return func(success bool) {
		msg := n.SuccessMsg
		if !success {
			msg = n.FailMsg
		}
		name, args := n.command(msg)
		// Notification failure is not worth surfacing; the run outcome is
		// already on screen.
		_ = n.run(name, args...)
	}
}

// command builds the platform notifier invocation: osascript on macOS,
// notify-send elsewhere.
func (n *Notifier) command(msg string) (string, []string) {
	if n.goos == "darwin" {
		script := fmt.Sprintf("display notification %q with title %q", msg, n.Title)
		return "osascript", []string{"-e", script}
	}
	return "notify-send", []string{n.Title, msg}
}
