// Package config loads sectionflow configuration.
//
// Settings come from three places, later ones winning: built-in defaults, a
// TOML file, and SECTIONFLOW_* environment variables. A missing file is not
// an error. The merged result is validated before it is returned.
//
// A Watcher reloads the file when it changes on disk.
package config

import (
	"errors"
	"fmt"
	"runtime"
	"sort"
	"strconv"

	"github.com/dshills/sectionflow/internal/collection"
	"github.com/dshills/sectionflow/internal/logging"
)

// Config is the complete sectionflow configuration.
type Config struct {
	Layout  LayoutConfig  `toml:"layout"`
	Fetch   FetchConfig   `toml:"fetch"`
	Logging LoggingConfig `toml:"logging"`
	Metrics MetricsConfig `toml:"metrics"`
}

// LayoutConfig controls measurement scheduling and the layout envelope the
// bundled data sources hand out.
type LayoutConfig struct {
	ChunkSize   int     `toml:"chunk_size"`
	Parallelism int     `toml:"parallelism"`
	MaxWidth    float64 `toml:"max_width"`
	MaxHeight   float64 `toml:"max_height"`
	MinWidth    float64 `toml:"min_width"`
}

// FetchConfig controls data-source fetching.
type FetchConfig struct {
	// Async moves full-reload fetches off the control goroutine.
	Async bool `toml:"async"`
}

// LoggingConfig controls the logger.
type LoggingConfig struct {
	Level string `toml:"level"`
}

// MetricsConfig controls the Prometheus endpoint. An empty Addr disables it.
type MetricsConfig struct {
	Addr string `toml:"addr"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Layout: LayoutConfig{
			ChunkSize:   5,
			Parallelism: runtime.NumCPU(),
			MaxWidth:    80,
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Constraint returns the layout envelope described by the layout section.
func (c *Config) Constraint() collection.Constraint {
	return collection.Constraint{
		Min: collection.Size{Width: c.Layout.MinWidth},
		Max: collection.Size{Width: c.Layout.MaxWidth, Height: c.Layout.MaxHeight},
	}
}

// Validate reports every invalid value. The returned error wraps
// ErrInvalidConfig.
func (c *Config) Validate() error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...))
	}

	l := c.Layout
	if l.ChunkSize < 1 {
		bad("layout.chunk_size must be at least 1, got %d", l.ChunkSize)
	}
	if l.Parallelism < 1 {
		bad("layout.parallelism must be at least 1, got %d", l.Parallelism)
	}
	if l.MaxWidth < 0 {
		bad("layout.max_width must not be negative, got %g", l.MaxWidth)
	}
	if l.MaxHeight < 0 {
		bad("layout.max_height must not be negative, got %g", l.MaxHeight)
	}
	if l.MinWidth < 0 {
		bad("layout.min_width must not be negative, got %g", l.MinWidth)
	}
	if l.MaxWidth > 0 && l.MinWidth > l.MaxWidth {
		bad("layout.min_width %g exceeds layout.max_width %g", l.MinWidth, l.MaxWidth)
	}
	if !logging.ValidLevel(c.Logging.Level) {
		bad("logging.level %q is not one of debug, info, warn, error", c.Logging.Level)
	}
	return errors.Join(errs...)
}

// setters maps each dotted key to a function that parses and stores a
// string value.
var setters = map[string]func(c *Config, v string) error{
	"layout.chunk_size":  func(c *Config, v string) error { return setInt(&c.Layout.ChunkSize, v) },
	"layout.parallelism": func(c *Config, v string) error { return setInt(&c.Layout.Parallelism, v) },
	"layout.max_width":   func(c *Config, v string) error { return setFloat(&c.Layout.MaxWidth, v) },
	"layout.max_height":  func(c *Config, v string) error { return setFloat(&c.Layout.MaxHeight, v) },
	"layout.min_width":   func(c *Config, v string) error { return setFloat(&c.Layout.MinWidth, v) },
	"fetch.async":        func(c *Config, v string) error { return setBool(&c.Fetch.Async, v) },
	"logging.level": func(c *Config, v string) error {
		c.Logging.Level = v
		return nil
	},
	"metrics.addr": func(c *Config, v string) error {
		c.Metrics.Addr = v
		return nil
	},
}

// Keys returns every settable key in sorted order.
func Keys() []string {
	keys := make([]string, 0, len(setters))
	for k := range setters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Set parses value and stores it under the dotted key. It does not
// validate; call Validate afterwards.
func (c *Config) Set(key, value string) error {
	set, ok := setters[key]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSetting, key)
	}
	if err := set(c, value); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidConfig, key, err)
	}
	return nil
}

func setInt(dst *int, v string) error {
	n, err := strconv.Atoi(v)
	if err != nil {
		return err
	}
	*dst = n
	return nil
}

func setFloat(dst *float64, v string) error {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return err
	}
	*dst = f
	return nil
}

// setBool accepts the same spellings as the environment loader.
func setBool(dst *bool, v string) error {
	switch v {
	case "1", "true", "TRUE", "True", "yes", "on":
		*dst = true
	case "0", "false", "FALSE", "False", "no", "off":
		*dst = false
	default:
		return fmt.Errorf("not a boolean: %q", v)
	}
	return nil
}
