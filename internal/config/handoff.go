package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// HandoffConfig is operator-facing tuning for context pressure: when the
// compaction hook fires and how much survives it. Loaded from handoff.yaml
// in the project's .relay directory, falling back to the global config
// directory, falling back to defaults.
type HandoffConfig struct {
	Compaction struct {
		// ContextThreshold is the fraction of the context window that
		// triggers the before-compact hook.
		ContextThreshold float64 `yaml:"contextThreshold"`
		// MinMessagesToKeep is how many recent messages a compaction
		// leaves untouched.
		MinMessagesToKeep int `yaml:"minMessagesToKeep"`
		// SummaryMaxTokens bounds the generated summary.
		SummaryMaxTokens int `yaml:"summaryMaxTokens"`
	} `yaml:"compaction"`
}

// DefaultHandoffConfig mirrors the session package defaults.
func DefaultHandoffConfig() *HandoffConfig {
	cfg := &HandoffConfig{}
	cfg.Compaction.ContextThreshold = 0.75
	cfg.Compaction.MinMessagesToKeep = 4
	cfg.Compaction.SummaryMaxTokens = 2000
	return cfg
}

// LoadHandoff reads handoff.yaml, project over global. Missing files are
// not errors; a malformed file is.
func LoadHandoff(directory string) (*HandoffConfig, error) {
	cfg := DefaultHandoffConfig()

	paths := []string{filepath.Join(GetPaths().Config, "handoff.yaml")}
	if directory != "" {
		paths = append(paths, filepath.Join(directory, ".relay", "handoff.yaml"))
	}

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}
