// Package config loads the analyzer's project configuration from
// .mongoidx.yml.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jward/mongoidx/internal/dsl"
	"github.com/jward/mongoidx/internal/reconcile"
)

// FileName is the configuration file looked up in the project root.
const FileName = ".mongoidx.yml"

// Config is the project configuration. Zero values take defaults in Init.
type Config struct {
	// DBPath is the SQLite index location, relative to the project root.
	DBPath string `yaml:"db_path"`
	// LibraryPaths are extra trees (typically the installed mongoid gem)
	// indexed without .gitignore filtering.
	LibraryPaths []string `yaml:"library_paths"`
	// DocumentMarkers are the modules whose inclusion marks a document.
	DocumentMarkers []string `yaml:"document_markers"`
	// InstanceSources and ClassSources order the modules consulted for
	// real method signatures.
	InstanceSources []string      `yaml:"instance_sources"`
	ClassSources    []string      `yaml:"class_sources"`
	PollInterval    time.Duration `yaml:"poll_interval"`
	Languages       []string      `yaml:"languages"`

	// Root is the directory the file was loaded from.
	Root string `yaml:"-"`
}

// Default returns the configuration used when no file exists.
func Default(root string) *Config {
	c := &Config{Root: root}
	c.Init()
	return c
}

// Init fills zero values with defaults.
func (c *Config) Init() {
	if c.DBPath == "" {
		c.DBPath = filepath.Join(".mongoidx", "index.db")
	}
	if len(c.DocumentMarkers) == 0 {
		c.DocumentMarkers = append([]string(nil), dsl.DefaultDocumentMarkers...)
	}
	if len(c.InstanceSources) == 0 {
		c.InstanceSources = append([]string(nil), reconcile.DefaultInstanceSources...)
	}
	if len(c.ClassSources) == 0 {
		c.ClassSources = append([]string(nil), reconcile.DefaultClassSources...)
	}
	if c.PollInterval == 0 {
		c.PollInterval = reconcile.DefaultPollInterval
	}
	if len(c.Languages) == 0 {
		c.Languages = []string{"ruby"}
	}
}

// Validate checks values Init cannot repair.
func (c *Config) Validate() error {
	if c.PollInterval < 0 {
		return fmt.Errorf("config: poll_interval must be positive, got %s", c.PollInterval)
	}
	for _, m := range c.DocumentMarkers {
		if m == "" {
			return errors.New("config: document_markers contains an empty name")
		}
	}
	return nil
}

// Load reads root/.mongoidx.yml. A missing file yields the defaults.
func Load(root string) (*Config, error) {
	data, err := os.ReadFile(filepath.Join(root, FileName))
	if errors.Is(err, os.ErrNotExist) {
		return Default(root), nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: read: %w", err)
	}
	return Parse(root, data)
}

// Parse decodes configuration text for the project at root.
func Parse(root string, data []byte) (*Config, error) {
	c := &Config{}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", FileName, err)
	}
	c.Root = root
	c.Init()
	return c, c.Validate()
}

// DatabasePath returns DBPath resolved against Root.
func (c *Config) DatabasePath() string {
	return c.resolve(c.DBPath)
}

// Libraries returns LibraryPaths resolved against Root.
func (c *Config) Libraries() []string {
	out := make([]string, len(c.LibraryPaths))
	for i, p := range c.LibraryPaths {
		out[i] = c.resolve(p)
	}
	return out
}

func (c *Config) resolve(p string) string {
	if filepath.IsAbs(p) || c.Root == "" {
		return p
	}
	return filepath.Join(c.Root, p)
}
