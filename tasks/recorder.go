package tasks

import (
	"context"
	"fmt"
	"sync"

	"github.com/vinayprograms/taskrecorder/errors"
	"github.com/vinayprograms/taskrecorder/logging"
	"github.com/vinayprograms/taskrecorder/state"
	"github.com/vinayprograms/taskrecorder/telemetry"
)

// Recorder tracks task states by key. Clones share the same store.
type Recorder[K comparable] struct {
	states      *state.Map[K, State]
	flight      *flight
	logger      *logging.Logger
	tracer      *telemetry.Tracer
	tracing     bool
	watchBuffer int
}

// Option configures a Recorder.
type Option func(*settings)

type settings struct {
	name        string
	logger      *logging.Logger
	level       logging.Level
	tracer      *telemetry.Tracer
	tracing     bool
	watchBuffer int
}

func defaultSettings() settings {
	cfg := DefaultConfig()
	return settings{
		name:        cfg.Name,
		tracing:     cfg.Tracing,
		watchBuffer: cfg.WatchBuffer,
	}
}

// WithLogger sets the logger. Recorder events are logged under the
// recorder's name as component.
func WithLogger(l *logging.Logger) Option {
	return func(s *settings) {
		s.logger = l
	}
}

// WithLogLevel sets the minimum level of the recorder's own log lines. The
// logger passed to WithLogger keeps its level.
func WithLogLevel(level logging.Level) Option {
	return func(s *settings) {
		s.level = level
	}
}

// WithTracer sets the tracer used for task spans. Without it the global
// tracer at construction time is used.
func WithTracer(t *telemetry.Tracer) Option {
	return func(s *settings) {
		s.tracer = t
		s.tracing = true
	}
}

// WithTracing enables or disables task spans.
func WithTracing(enabled bool) Option {
	return func(s *settings) {
		s.tracing = enabled
	}
}

// WithName sets the logging component name.
func WithName(name string) Option {
	return func(s *settings) {
		if name != "" {
			s.name = name
		}
	}
}

// WithWatchBuffer sets the default buffer size for Watch.
func WithWatchBuffer(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.watchBuffer = n
		}
	}
}

// WithConfig applies every setting in cfg. The config should already be
// validated; an unparseable log level is ignored.
func WithConfig(cfg Config) Option {
	return func(s *settings) {
		for _, opt := range cfg.Options() {
			opt(s)
		}
	}
}

// New creates a Recorder with an empty store.
func New[K comparable](opts ...Option) *Recorder[K] {
	return NewWithMap(state.NewMap[K, State](), opts...)
}

// NewWithMap creates a Recorder over an existing store. Entries already in
// m are honoured by admission. The store stays shared with whoever else
// holds m.
func NewWithMap[K comparable](m *state.Map[K, State], opts ...Option) *Recorder[K] {
	s := defaultSettings()
	for _, opt := range opts {
		opt(&s)
	}

	logger := s.logger
	if logger == nil {
		logger = logging.New()
	}
	logger = logger.WithComponent(s.name)
	if s.level != "" {
		logger = logger.WithLevel(s.level)
	}

	tracer := s.tracer
	switch {
	case !s.tracing:
		tracer = telemetry.NewNoopTracer()
	case tracer == nil:
		tracer = telemetry.GetTracer()
	}

	return &Recorder[K]{
		states:      m,
		flight:      newFlight(),
		logger:      logger,
		tracer:      tracer,
		tracing:     s.tracing,
		watchBuffer: s.watchBuffer,
	}
}

// Clone returns a handle sharing this recorder's store, in-flight tracking,
// logger and tracer.
func (r *Recorder[K]) Clone() *Recorder[K] {
	c := *r
	return &c
}

// Map returns the underlying store. Writing to it directly bypasses
// admission in the same way Force does.
func (r *Recorder[K]) Map() *state.Map[K, State] {
	return r.states
}

// View returns read-only access to the underlying store.
func (r *Recorder[K]) View() state.View[K, State] {
	return r.states
}

// Query returns the current state of key, or StateNotFound.
func (r *Recorder[K]) Query(key K) State {
	s, ok := r.states.Load(key)
	if !ok {
		return StateNotFound
	}
	return s
}

// Force sets key to s unconditionally and returns the state it replaced.
// StateNotFound removes the key.
//
// Force ignores admission. A launch or revoke still running for key keeps
// running, and its outcome is discarded when it finishes.
func (r *Recorder[K]) Force(key K, s State) (State, error) {
	if !s.Valid() {
		return "", errors.InvalidInput(fmt.Sprintf("cannot force unknown state %q", s), errors.WithKey(keyString(key)))
	}

	prev := StateNotFound
	r.states.Compute(key, func(cur state.KeyValue[K, State], loaded bool) (State, state.Action) {
		if loaded {
			prev = cur.Value
		}
		if s == StateNotFound {
			return "", state.Delete
		}
		return s, state.Put
	})

	if r.logger.Enabled(logging.LevelInfo) {
		r.logger.StateForced(keyString(key), prev.String(), s.String())
	}
	return prev, nil
}

// Promote marks key successful without running anything, if it is absent or
// failed. It returns the state it replaced, or an *AdmissionError leaving
// the key untouched.
func (r *Recorder[K]) Promote(key K) (State, error) {
	adm, rej := r.admit(context.Background(), OpPromote, key)
	if rej != nil {
		return rej.State, rej
	}
	return adm.from, nil
}

// Snapshot copies the current states.
func (r *Recorder[K]) Snapshot() map[K]State {
	return r.states.Snapshot()
}

// Keys returns the keys currently in any of the given states, or all keys
// when none are given.
func (r *Recorder[K]) Keys(states ...State) []K {
	if len(states) == 0 {
		return r.states.Keys()
	}
	var keys []K
	r.states.Range(func(key K, s State) bool {
		for _, want := range states {
			if s == want {
				keys = append(keys, key)
				break
			}
		}
		return true
	})
	return keys
}

// Len returns the number of tracked keys.
func (r *Recorder[K]) Len() int {
	return r.states.Len()
}

// Watch streams every state change made after the call. Changes to one key
// arrive in order. buffer <= 0 uses the configured default.
//
// If the consumer falls more than buffer events behind, further events are
// dropped rather than stalling writers; Subscription.Dropped counts them.
func (r *Recorder[K]) Watch(buffer int) *Subscription[K] {
	if buffer <= 0 {
		buffer = r.watchBuffer
	}

	sub := &Subscription[K]{
		watcher: r.states.Watch(buffer),
		out:     make(chan Transition[K], buffer),
		done:    make(chan struct{}),
	}
	go sub.forward()
	return sub
}

// Subscription is a feed of transitions returned by Recorder.Watch.
type Subscription[K comparable] struct {
	watcher *state.Watcher[K, State]
	out     chan Transition[K]
	done    chan struct{}
	once    sync.Once
}

// C returns the transition channel. It is closed after Stop.
func (s *Subscription[K]) C() <-chan Transition[K] {
	return s.out
}

// Dropped returns how many transitions were lost because the buffer was full.
func (s *Subscription[K]) Dropped() uint64 {
	return s.watcher.Dropped()
}

// Stop ends the feed. Safe to call more than once.
func (s *Subscription[K]) Stop() {
	s.once.Do(func() {
		close(s.done)
		s.watcher.Close()
	})
}

func (s *Subscription[K]) forward() {
	defer close(s.out)
	for kv := range s.watcher.C() {
		t := Transition[K]{Key: kv.Key, State: kv.Value, Revision: kv.Revision}
		if kv.Operation == state.OpDelete {
			t.State = StateNotFound
		}
		select {
		case s.out <- t:
		case <-s.done:
			return
		}
	}
}

// Inflight returns how many task and revoke bodies are running.
func (r *Recorder[K]) Inflight() int {
	return r.flight.count()
}

// Wait blocks until no task or revoke body is running, or ctx is done.
func (r *Recorder[K]) Wait(ctx context.Context) error {
	return r.flight.wait(ctx)
}

// OnShutdown drains running bodies, so a Recorder can be registered as a
// shutdown.Handler.
func (r *Recorder[K]) OnShutdown(ctx context.Context) error {
	return r.Wait(ctx)
}

func keyString[K comparable](key K) string {
	return fmt.Sprint(key)
}

// flight counts running bodies across all clones of a recorder.
type flight struct {
	mu   sync.Mutex
	n    int
	idle chan struct{} // closed while n == 0
}

func newFlight() *flight {
	f := &flight{idle: make(chan struct{})}
	close(f.idle)
	return f
}

func (f *flight) add() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.n == 0 {
		f.idle = make(chan struct{})
	}
	f.n++
}

func (f *flight) done() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.n--
	if f.n == 0 {
		close(f.idle)
	}
}

func (f *flight) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.n
}

func (f *flight) wait(ctx context.Context) error {
	f.mu.Lock()
	idle := f.idle
	f.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return errors.WrapWithCode(ctx.Err(), errors.ErrCodeCanceled, "waiting for running tasks")
	}
}
