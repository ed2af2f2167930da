package content

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config specifies where the engine loads its content from and how it
// schedules long traversals. It supports YAML parsing and validation.
type Config struct {
	// CorpusDir is the directory holding the base game's JSON record
	// files.
	CorpusDir string `yaml:"corpusDir" json:"corpusDir"`

	// ModsDir is the directory holding installed mods, one subdirectory
	// per mod with a modinfo.yml manifest. Optional when Mods is empty.
	ModsDir string `yaml:"modsDir,omitempty" json:"modsDir,omitempty"`

	// Mods lists the user-selected mod ids to load, in the user's
	// preferred order. Declared dependencies are pulled in
	// automatically.
	Mods []string `yaml:"mods,omitempty" json:"mods,omitempty"`

	// Synchronous disables cooperative yielding: every aggregation runs
	// to completion without relinquishing. Intended for tests and batch
	// CLI runs.
	Synchronous bool `yaml:"synchronous" json:"synchronous"`
}

// LoadConfig reads and validates a YAML configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return &cfg, nil
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.CorpusDir == "" {
		return fmt.Errorf("corpusDir is required")
	}
	if len(c.Mods) > 0 && c.ModsDir == "" {
		return fmt.Errorf("mods listed but modsDir is empty")
	}
	return nil
}
