package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v10"
)

// Load reads and merges configuration. Precedence, lowest to highest:
// defaults, global file, project file, pipeline file, environment.
// Missing files are not errors; malformed JSON is.
func Load(globalPath, projectPath, pipelinePath string) (*Config, error) {
	cfg := DefaultConfig()

	for _, path := range []string{globalPath, projectPath, pipelinePath} {
		if path == "" {
			continue
		}
		if err := mergeFile(cfg, path, path == pipelinePath); err != nil {
			return nil, err
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment overrides: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDefault loads from conventional paths plus an optional pipeline file.
// Global: ~/.taskui/config.json. Project: .taskui/config.json.
func LoadDefault(pipelinePath string) (*Config, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting home directory: %w", err)
	}
	globalPath := filepath.Join(homeDir, ".taskui", "config.json")
	projectPath := filepath.Join(".taskui", "config.json")
	return Load(globalPath, projectPath, pipelinePath)
}

// mergeFile layers one JSON file onto the config. required controls whether
// a missing file is an error (pipeline files named explicitly must exist).
func mergeFile(base *Config, path string, required bool) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if required {
			return fmt.Errorf("pipeline file %s does not exist", path)
		}
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	var loaded Config
	if err := json.Unmarshal(data, &loaded); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}

	if loaded.Title != "" {
		base.Title = loaded.Title
	}
	if loaded.MaxWorkers != 0 {
		base.MaxWorkers = loaded.MaxWorkers
	}
	if loaded.PollIntervalMS != 0 {
		base.PollIntervalMS = loaded.PollIntervalMS
	}
	if loaded.HistoryPath != "" {
		base.HistoryPath = loaded.HistoryPath
	}
	// Booleans merge by raw presence so an explicit false wins over an
	// earlier true.
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err == nil {
		if _, ok := raw["exit_on_success"]; ok {
			base.ExitOnSuccess = loaded.ExitOnSuccess
		}
		if _, ok := raw["notify"]; ok {
			base.Notify = loaded.Notify
		}
	}
	if len(loaded.Pipeline) > 0 {
		base.Pipeline = loaded.Pipeline
	}
	return nil
}

func validate(cfg *Config) error {
	seen := make(map[string]bool, len(cfg.Pipeline))
	for _, tc := range cfg.Pipeline {
		if tc.Name == "" {
			return fmt.Errorf("pipeline task with empty name")
		}
		if tc.Command == "" {
			return fmt.Errorf("pipeline task %q has no command", tc.Name)
		}
		if seen[tc.Name] {
			return fmt.Errorf("pipeline task %q declared twice", tc.Name)
		}
		seen[tc.Name] = true
	}
	for _, tc := range cfg.Pipeline {
		for _, dep := range tc.DependsOn {
			if !seen[dep] {
				return fmt.Errorf("pipeline task %q depends on undeclared task %q", tc.Name, dep)
			}
		}
	}
	return nil
}

// HistoryDBPath resolves the history database location, defaulting under
// the user's home directory.
func (c *Config) HistoryDBPath() (string, error) {
	if c.HistoryPath != "" {
		return c.HistoryPath, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(homeDir, ".taskui", "history.db"), nil
}
