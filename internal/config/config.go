// Package config loads a classpath description from YAML or TOML and builds
// the composite index tree it describes.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"classpath-index/internal/classpath"
	"classpath-index/internal/logging"
)

const (
	// EnvLogLevel overrides Config.LogLevel.
	EnvLogLevel = "CLASSPATH_INDEX_LOG_LEVEL"
	// EnvClassPathEnv overrides Config.ClassPathEnv.
	EnvClassPathEnv = "CLASSPATH_INDEX_ENV"

	DefaultName = "classpath"
)

// ErrUnsupportedFormat is returned for config files that are neither YAML
// nor TOML.
var ErrUnsupportedFormat = errors.New("unsupported config format")

// Child describes a nested index.
type Child struct {
	Name     string   `yaml:"name" toml:"name"`
	Entries  []string `yaml:"entries" toml:"entries"`
	Children []Child  `yaml:"children" toml:"children"`
}

// Config is the top-level classpath description.
type Config struct {
	Name     string   `yaml:"name" toml:"name"`
	Entries  []string `yaml:"entries" toml:"entries"`
	Children []Child  `yaml:"children" toml:"children"`

	LogLevel string `yaml:"log_level" toml:"log_level"`
	LogJSON  bool   `yaml:"log_json" toml:"log_json"`
	// CacheSize bounds the bytecode cache; 0 picks the reader default.
	CacheSize int `yaml:"cache_size" toml:"cache_size"`
	// ClassPathEnv names an environment variable (usually CLASSPATH) whose
	// path list is composited as the "User Class Path" child.
	ClassPathEnv string `yaml:"classpath_env" toml:"classpath_env"`
}

// Load reads path (empty means defaults only), then applies environment
// overrides. envFiles are loaded with godotenv first; when none are given a
// .env in the working directory is used if present.
func Load(path string, envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		_ = godotenv.Load()
	} else if err := godotenv.Load(envFiles...); err != nil {
		return nil, fmt.Errorf("config: load env: %w", err)
	}

	cfg := &Config{}
	if path != "" {
		if err := decodeFile(path, cfg); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decodeFile(path string, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("config: read %s: %w", path, err)
		}
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("config: decode %s: %w", path, err)
		}
		return nil
	case ".toml":
		md, err := toml.DecodeFile(path, cfg)
		if err != nil {
			return fmt.Errorf("config: decode %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return fmt.Errorf("config: decode %s: unknown key %q", path, undecoded[0].String())
		}
		return nil
	}
	return fmt.Errorf("config: %s: %w", path, ErrUnsupportedFormat)
}

func (c *Config) applyEnv() {
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		c.LogLevel = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvClassPathEnv)); v != "" {
		c.ClassPathEnv = v
	}
	if c.Name == "" {
		c.Name = DefaultName
	}
}

// Validate checks values that Load cannot fix up.
func (c *Config) Validate() error {
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.CacheSize < 0 {
		return fmt.Errorf("config: cache_size must be >= 0, got %d", c.CacheSize)
	}
	return validateChildren(c.Children, c.Name)
}

func validateChildren(children []Child, parent string) error {
	for i, ch := range children {
		if ch.Name == "" {
			return fmt.Errorf("config: child %d of %s has no name", i, parent)
		}
		if err := validateChildren(ch.Children, ch.Name); err != nil {
			return err
		}
	}
	return nil
}

// Logger builds the logger described by LogLevel and LogJSON, writing to w
// (stderr when nil).
func (c *Config) Logger(w io.Writer) *slog.Logger {
	lvl, _ := logging.ParseLevel(c.LogLevel)
	return logging.New(logging.Config{Level: lvl, JSON: c.LogJSON, Output: w})
}

// Build constructs the uninitialized index tree. Children come first in
// file order; the user classpath child, if configured, comes last.
func (c *Config) Build(logger *slog.Logger, metrics *classpath.Metrics, extra ...classpath.Option) (*classpath.Index, error) {
	opts := append([]classpath.Option{
		classpath.WithLogger(logger),
		classpath.WithMetrics(metrics),
	}, extra...)

	root := classpath.New(c.Name, c.Entries, opts...)
	for _, ch := range c.Children {
		idx, err := buildChild(ch, opts)
		if err != nil {
			return nil, err
		}
		if err := root.AddChild(idx); err != nil {
			return nil, err
		}
	}
	if c.ClassPathEnv != "" {
		user, err := classpath.UserClassPath(os.Getenv(c.ClassPathEnv), opts...)
		if err != nil {
			return nil, err
		}
		if err := root.AddChild(user); err != nil {
			return nil, err
		}
	}
	return root, nil
}

func buildChild(ch Child, opts []classpath.Option) (*classpath.Index, error) {
	idx := classpath.New(ch.Name, ch.Entries, opts...)
	for _, gc := range ch.Children {
		sub, err := buildChild(gc, opts)
		if err != nil {
			return nil, err
		}
		if err := idx.AddChild(sub); err != nil {
			return nil, err
		}
	}
	return idx, nil
}
