package shutdown

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"

	"github.com/vinayprograms/taskrecorder/errors"
	"github.com/vinayprograms/taskrecorder/logging"
)

// Coordinator runs registered handlers phase by phase.
type Coordinator struct {
	config Config
	logger *logging.Logger

	mu       sync.Mutex
	handlers []registration

	once   sync.Once
	done   chan struct{}
	result *Result
}

type registration struct {
	name    string
	phase   int
	handler Handler
}

// New creates a coordinator. A zero Timeout uses the default.
func New(config Config) *Coordinator {
	if config.Timeout == 0 {
		config.Timeout = DefaultConfig().Timeout
	}
	logger := config.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	return &Coordinator{
		config: config,
		logger: logger.WithComponent("shutdown"),
		done:   make(chan struct{}),
	}
}

// Register adds a handler to phase. Handlers registered after Shutdown has
// started are not run.
func (c *Coordinator) Register(name string, phase int, h Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers = append(c.handlers, registration{name: name, phase: phase, handler: h})
}

// RegisterFunc adds a function to phase.
func (c *Coordinator) RegisterFunc(name string, phase int, fn func(ctx context.Context) error) {
	c.Register(name, phase, HandlerFunc(fn))
}

// Shutdown runs every phase in order and returns the overall error.
func (c *Coordinator) Shutdown(ctx context.Context) error {
	c.once.Do(func() {
		c.result = c.run(ctx)
		close(c.done)
	})
	<-c.done
	return c.result.Err
}

// ShutdownWithTimeout calls Shutdown bounded by the configured timeout.
func (c *Coordinator) ShutdownWithTimeout() error {
	ctx, cancel := context.WithTimeout(context.Background(), c.config.Timeout)
	defer cancel()
	return c.Shutdown(ctx)
}

// Done is closed when Shutdown has finished.
func (c *Coordinator) Done() <-chan struct{} {
	return c.done
}

// Result returns the shutdown result, or nil before Done is closed.
func (c *Coordinator) Result() *Result {
	select {
	case <-c.done:
		return c.result
	default:
		return nil
	}
}

func (c *Coordinator) run(ctx context.Context) *Result {
	start := time.Now()

	c.mu.Lock()
	handlers := make([]registration, len(c.handlers))
	copy(handlers, c.handlers)
	c.mu.Unlock()

	sort.SliceStable(handlers, func(i, j int) bool {
		return handlers[i].phase < handlers[j].phase
	})

	result := &Result{Handlers: make([]HandlerResult, 0, len(handlers))}
	for _, group := range groupByPhase(handlers) {
		if err := ctx.Err(); err != nil {
			result.Err = errors.WrapWithCode(err, errors.ErrCodeCanceled,
				fmt.Sprintf("shutdown stopped before phase %d", group[0].phase))
			c.logger.Warn("shutdown_phase_skipped", map[string]interface{}{"phase": group[0].phase})
			break
		}

		results := c.runPhase(ctx, group)
		result.Handlers = append(result.Handlers, results...)

		for _, hr := range results {
			if hr.Err != nil && result.Err == nil {
				result.Err = errors.Wrap(hr.Err, fmt.Sprintf("shutdown handler %s failed", hr.Name))
			}
		}
		if result.Err != nil && c.config.StopOnError {
			break
		}
	}

	result.Duration = time.Since(start)
	return result
}

// runPhase runs one phase's handlers concurrently.
func (c *Coordinator) runPhase(ctx context.Context, group []registration) []HandlerResult {
	results := make([]HandlerResult, len(group))

	var wg conc.WaitGroup
	for i, reg := range group {
		wg.Go(func() {
			start := time.Now()
			var err error
			if recovered := panics.Try(func() { err = reg.handler.OnShutdown(ctx) }); recovered != nil {
				err = errors.RecoverPanic(recovered.Value, errors.WithMetadata("handler", reg.name))
			}

			hr := HandlerResult{Name: reg.name, Phase: reg.phase, Duration: time.Since(start), Err: err}
			results[i] = hr
			c.logResult(hr)
		})
	}
	wg.Wait()

	return results
}

func (c *Coordinator) logResult(hr HandlerResult) {
	fields := map[string]interface{}{
		"handler":  hr.Name,
		"phase":    hr.Phase,
		"duration": hr.Duration.String(),
	}
	if hr.Err != nil {
		fields["error"] = hr.Err.Error()
		c.logger.Warn("shutdown_handler", fields)
		return
	}
	c.logger.Info("shutdown_handler", fields)
}

// groupByPhase splits handlers sorted by phase into one slice per phase.
func groupByPhase(handlers []registration) [][]registration {
	var groups [][]registration
	for i, h := range handlers {
		if i == 0 || h.phase != handlers[i-1].phase {
			groups = append(groups, nil)
		}
		groups[len(groups)-1] = append(groups[len(groups)-1], h)
	}
	return groups
}
