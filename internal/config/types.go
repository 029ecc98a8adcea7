package config

// TaskConfig declares one pipeline task: a shell command plus the names of
// the tasks it waits for.
type TaskConfig struct {
	Name      string   `json:"name"`
	Command   string   `json:"command"`
	DependsOn []string `json:"depends_on,omitempty"`
}

// Config is the top-level configuration. File values merge default -> global
// -> project -> pipeline file, then TASKUI_* environment variables override.
type Config struct {
	Title          string `json:"title" env:"TASKUI_TITLE"`
	ExitOnSuccess  bool   `json:"exit_on_success" env:"TASKUI_EXIT_ON_SUCCESS"`
	Notify         bool   `json:"notify" env:"TASKUI_NOTIFY"`
	MaxWorkers     int64  `json:"max_workers" env:"TASKUI_MAX_WORKERS"`
	PollIntervalMS int    `json:"poll_interval_ms" env:"TASKUI_POLL_INTERVAL_MS"`
	HistoryPath    string `json:"history_path" env:"TASKUI_HISTORY_PATH"`

	Pipeline []TaskConfig `json:"pipeline,omitempty"`
}
