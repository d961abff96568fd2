package shutdown

import (
	"context"
	"time"

	"github.com/vinayprograms/taskrecorder/errors"
	"github.com/vinayprograms/taskrecorder/logging"
)

// Phases used by the task recorder stack. Lower phases stop first.
const (
	// PhaseIntake stops whatever feeds or observes the recorder.
	PhaseIntake = 10

	// PhaseDrain waits for running task and revoke bodies.
	PhaseDrain = 20

	// PhaseFlush exports telemetry recorded by the drained bodies.
	PhaseFlush = 30
)

// Handler is implemented by components that need orderly teardown.
// OnShutdown should return when ctx is done even if work remains.
type Handler interface {
	OnShutdown(ctx context.Context) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context) error

// OnShutdown implements Handler.
func (f HandlerFunc) OnShutdown(ctx context.Context) error {
	return f(ctx)
}

// HandlerResult is the outcome of one handler.
type HandlerResult struct {
	Name     string
	Phase    int
	Duration time.Duration
	Err      error
}

// Result is the outcome of a whole shutdown.
type Result struct {
	Duration time.Duration
	Handlers []HandlerResult

	// Err is nil if every phase ran and every handler succeeded.
	Err error
}

// Failed returns the names of handlers that returned an error.
func (r *Result) Failed() []string {
	var names []string
	for _, h := range r.Handlers {
		if h.Err != nil {
			names = append(names, h.Name)
		}
	}
	return names
}

// Config configures a Coordinator.
type Config struct {
	// Timeout bounds ShutdownWithTimeout. Default: 30s.
	Timeout time.Duration `toml:"timeout"`

	// StopOnError skips later phases once a handler fails.
	StopOnError bool `toml:"stop_on_error"`

	// Logger receives one line per handler. Default: discard.
	Logger *logging.Logger `toml:"-"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{Timeout: 30 * time.Second}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Timeout < 0 {
		return errors.InvalidInput("shutdown timeout must not be negative")
	}
	return nil
}
