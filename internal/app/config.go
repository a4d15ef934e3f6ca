package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/raysh454/hdrscan/internal/analyzer"
	"github.com/raysh454/hdrscan/internal/enumerator"
	"github.com/raysh454/hdrscan/internal/exclusion"
	"github.com/raysh454/hdrscan/internal/webclient"
)

const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
)

var ErrInvalidConfig = errors.New("invalid config")

// StoreConfig selects the results backend.
type StoreConfig struct {
	Kind string `json:"kind" yaml:"kind"`
	// Path of the sqlite database. Relative paths live under StorageRoot.
	Path string `json:"path" yaml:"path"`
}

// Config holds the runtime options shared by the CLI and the API server.
type Config struct {
	// ListenAddr is the HTTP listen address for the API server.
	ListenAddr string `json:"listen_addr" yaml:"listen_addr"`

	// StorageRoot is the base directory for on-disk state. A leading ~ is
	// expanded to the user's home directory.
	StorageRoot string `json:"storage_root" yaml:"storage_root"`

	Store     StoreConfig       `json:"store" yaml:"store"`
	Analyzer  analyzer.Config   `json:"analyzer" yaml:"analyzer"`
	WebClient webclient.Config  `json:"webclient" yaml:"webclient"`
	Spider    enumerator.Config `json:"spider" yaml:"spider"`

	// Origin is sent with every live-scan request so reflected CORS
	// configurations show up.
	Origin string `json:"origin" yaml:"origin"`

	// Exclusions are loaded into the rule store at startup. Rules edited at
	// runtime are not written back.
	Exclusions []exclusion.RuleSpec `json:"exclusions" yaml:"exclusions"`

	// JobRetentionTime is how long finished jobs stay queryable.
	JobRetentionTime time.Duration `json:"job_retention_time" yaml:"job_retention_time"`
}

// DefaultConfig returns a Config populated with development defaults.
func DefaultConfig() *Config {
	return &Config{
		ListenAddr:       "127.0.0.1:8080",
		StorageRoot:      "~/.config/hdrscan",
		Store:            StoreConfig{Kind: StoreMemory, Path: "results.db"},
		Analyzer:         analyzer.DefaultConfig(),
		WebClient:        webclient.DefaultConfig(),
		Spider:           enumerator.DefaultConfig(),
		Origin:           "https://hdrscan.invalid",
		JobRetentionTime: 30 * time.Minute,
	}
}

// LoadConfig reads a YAML file over the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field ranges and the seed exclusion rules.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Store.Kind) {
	case StoreMemory:
	case StoreSQLite:
		if strings.TrimSpace(c.Store.Path) == "" {
			return fmt.Errorf("%w: sqlite store needs a path", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown store kind %q", ErrInvalidConfig, c.Store.Kind)
	}
	if c.Analyzer.Workers < 1 {
		return fmt.Errorf("%w: analyzer.workers must be at least 1", ErrInvalidConfig)
	}
	if c.Spider.MaxDepth < 0 || c.Spider.MaxPages < 0 {
		return fmt.Errorf("%w: spider limits must not be negative", ErrInvalidConfig)
	}
	for i, spec := range c.Exclusions {
		if _, err := spec.Rule(); err != nil {
			return fmt.Errorf("%w: exclusions[%d]: %w", ErrInvalidConfig, i, err)
		}
	}
	return nil
}

// SQLitePath resolves the sqlite path against StorageRoot.
func (c *Config) SQLitePath() (string, error) {
	if filepath.IsAbs(c.Store.Path) {
		return c.Store.Path, nil
	}
	root, err := expandPath(c.StorageRoot)
	if err != nil {
		return "", err
	}
	return filepath.Join(root, c.Store.Path), nil
}

func expandPath(p string) (string, error) {
	if len(p) > 0 && p[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, p[1:]), nil
	}
	return p, nil
}
