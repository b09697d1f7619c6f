package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// EnvPrefix prefixes every environment variable the loader reads.
const EnvPrefix = "SECTIONFLOW_"

// envMapping lists the short environment names. Any other
// SECTIONFLOW_<SECTION>_<KEY> variable maps to section.key.
var envMapping = map[string]string{
	"SECTIONFLOW_CHUNK_SIZE":   "layout.chunk_size",
	"SECTIONFLOW_PARALLELISM":  "layout.parallelism",
	"SECTIONFLOW_MAX_WIDTH":    "layout.max_width",
	"SECTIONFLOW_MAX_HEIGHT":   "layout.max_height",
	"SECTIONFLOW_MIN_WIDTH":    "layout.min_width",
	"SECTIONFLOW_ASYNC_FETCH":  "fetch.async",
	"SECTIONFLOW_LOG_LEVEL":    "logging.level",
	"SECTIONFLOW_METRICS_ADDR": "metrics.addr",
}

// Loader reads configuration files and the environment.
type Loader struct {
	readFile func(path string) ([]byte, error)
	environ  func() []string
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithFS reads files from fsys instead of the OS.
func WithFS(fsys fs.FS) LoaderOption {
	return func(l *Loader) {
		l.readFile = func(path string) ([]byte, error) {
			return fs.ReadFile(fsys, path)
		}
	}
}

// WithEnviron replaces os.Environ as the source of KEY=value pairs.
func WithEnviron(environ func() []string) LoaderOption {
	return func(l *Loader) {
		if environ != nil {
			l.environ = environ
		}
	}
}

// NewLoader creates a loader.
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{
		readFile: os.ReadFile,
		environ:  os.Environ,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load reads the configuration with the default loader.
func Load(path string) (*Config, error) {
	return NewLoader().Load(path)
}

// Load returns defaults overlaid with the file at path, if it exists, and
// then with the environment. An empty path skips the file.
func (l *Loader) Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := l.readFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		default:
			if err := decode(path, data, cfg); err != nil {
				return nil, err
			}
		}
	}
	if err := l.applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes TOML data over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := decode("<data>", data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// decode unmarshals data into cfg. Keys that are not settings are rejected.
func decode(source string, data []byte, cfg *Config) error {
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		pe := &ParseError{Path: source, Message: err.Error(), Err: err}
		var de *toml.DecodeError
		if errors.As(err, &de) {
			pe.Line, pe.Column = de.Position()
		}
		var se *toml.StrictMissingError
		if errors.As(err, &se) {
			pe.Message = "unknown keys: " + strings.Join(strictKeys(se), ", ")
			pe.Err = fmt.Errorf("%w: %w", ErrUnknownSetting, err)
		}
		return pe
	}
	return nil
}

func strictKeys(se *toml.StrictMissingError) []string {
	keys := make([]string, 0, len(se.Errors))
	for _, e := range se.Errors {
		keys = append(keys, strings.Join(e.Key(), "."))
	}
	return keys
}

// applyEnv overlays SECTIONFLOW_* variables. Variables that map to no
// setting are ignored.
func (l *Loader) applyEnv(cfg *Config) error {
	values := make(map[string]string)
	for _, kv := range l.environ() {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(name, EnvPrefix) {
			continue
		}
		key, mapped := envMapping[name]
		if !mapped {
			key = envToKey(name)
		}
		if _, known := setters[key]; !known {
			continue
		}
		values[key] = value
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := cfg.Set(k, values[k]); err != nil {
			return fmt.Errorf("environment: %w", err)
		}
	}
	return nil
}

// envToKey converts SECTIONFLOW_LAYOUT_MAX_WIDTH to layout.max_width.
func envToKey(env string) string {
	name := strings.ToLower(strings.TrimPrefix(env, EnvPrefix))
	section, rest, ok := strings.Cut(name, "_")
	if !ok {
		return name
	}
	return section + "." + rest
}
