package tui

// Keybinding constants
const (
	KeyQuit    = "q"
	KeyCtrlC   = "ctrl+c"
	KeyUp      = "up"
	KeyDown    = "down"
	KeyJ       = "j"
	KeyK       = "k"
	KeyTab     = "tab"
	KeyLogView = "l"
	KeyFollow  = "f"
)

// HelpView returns the one-line help bar.
func HelpView() string {
	return StyleHelp.Render("j/k: select task | tab: next task | l: output/log view | f: follow latest | q: quit")
}
