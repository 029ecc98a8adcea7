package config

// DefaultConfig returns the built-in configuration. The pipeline is empty;
// it comes from config files or the -pipeline flag.
func DefaultConfig() *Config {
	return &Config{
		Title:          "taskui",
		ExitOnSuccess:  false,
		Notify:         false,
		MaxWorkers:     0, // unbounded
		PollIntervalMS: 200,
		HistoryPath:    "", // resolved to ~/.taskui/history.db when empty
	}
}
