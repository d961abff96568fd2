package tasks

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/vinayprograms/taskrecorder/errors"
	"github.com/vinayprograms/taskrecorder/logging"
)

// Config holds recorder settings, usually decoded from a [recorder] TOML
// table:
//
//	[recorder]
//	name = "uploads"
//	log_level = "debug"
//	tracing = true
//	watch_buffer = 128
type Config struct {
	// Name is the logging component name.
	Name string `toml:"name"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `toml:"log_level"`

	// Tracing enables task spans on the global tracer.
	Tracing bool `toml:"tracing"`

	// WatchBuffer is the default Watch buffer size.
	WatchBuffer int `toml:"watch_buffer"`
}

// DefaultConfig returns the settings a Recorder uses without options.
func DefaultConfig() Config {
	return Config{
		Name:        "tasks",
		LogLevel:    "info",
		Tracing:     true,
		WatchBuffer: 64,
	}
}

// LoadConfig reads a config file. Fields missing from the file keep their
// defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, errors.WrapWithCode(err, errors.ErrCodeInvalidInput, "failed to load recorder config")
	}
	return cfg, checkDecoded(cfg, md)
}

// ParseConfig parses config from TOML content.
func ParseConfig(content string) (Config, error) {
	cfg := DefaultConfig()
	md, err := toml.Decode(content, &cfg)
	if err != nil {
		return Config{}, errors.WrapWithCode(err, errors.ErrCodeInvalidInput, "failed to parse recorder config")
	}
	return cfg, checkDecoded(cfg, md)
}

func checkDecoded(cfg Config, md toml.MetaData) error {
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return errors.InvalidInput("unknown recorder config keys: " + strings.Join(keys, ", "))
	}
	return cfg.Validate()
}

// Validate checks the config for errors.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return errors.InvalidInput("recorder name must not be empty")
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return errors.WrapWithCode(err, errors.ErrCodeInvalidInput, "invalid log_level")
	}
	if c.WatchBuffer < 1 {
		return errors.InvalidInput(fmt.Sprintf("watch_buffer must be at least 1, got %d", c.WatchBuffer))
	}
	return nil
}

// Options converts the config into recorder options.
func (c Config) Options() []Option {
	opts := []Option{
		WithName(c.Name),
		WithTracing(c.Tracing),
		WithWatchBuffer(c.WatchBuffer),
	}
	if level, err := logging.ParseLevel(c.LogLevel); err == nil {
		opts = append(opts, WithLogLevel(level))
	}
	return opts
}
