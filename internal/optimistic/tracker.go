// Package optimistic tracks optimistic mutations: a change is shown as
// pending right away, confirmed by an asynchronous operation, and either
// marked successful (then forgotten after a grace period) or rolled back.
package optimistic

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"vantage/internal/middleware"
	"vantage/internal/notify"
	"vantage/internal/telemetry"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
)

// Status is the lifecycle state of a tracked mutation.
type Status string

const (
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// DefaultSuccessGrace is how long a successful record stays visible.
const DefaultSuccessGrace = time.Second

const (
	FailureTitle       = "Action failed"
	FailureDescription = "Your change couldn't be saved. Please try again."
	RetryLabel         = "Retry"
)

// ErrSuperseded marks the failure of a mutation whose record had already
// been replaced by a newer mutation for the same id.
var ErrSuperseded = errors.New("mutation superseded")

// Record is one tracked mutation.
type Record[T any] struct {
	ID        string    `json:"id"`
	Data      T         `json:"data"`
	Status    Status    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Rollback  func()    `json:"-"`

	generation uint64
}

// Event describes a change to the tracked map. Removed is set when the
// record left the map; Record then holds its last state.
type Event[T any] struct {
	ID      string
	Record  Record[T]
	Removed bool
}

// ConfirmationError is returned when the confirming operation fails.
type ConfirmationError struct {
	ID    string
	Cause error
}

func (e *ConfirmationError) Error() string {
	return fmt.Sprintf("mutation %s: confirmation failed: %v", e.ID, e.Cause)
}

func (e *ConfirmationError) Unwrap() error {
	return e.Cause
}

type options struct {
	grace    time.Duration
	notifier notify.Notifier
	now      func() time.Time
	logger   zerolog.Logger
	scope    func(any) string
}

// Option configures a Tracker.
type Option func(*options)

// WithSuccessGrace sets how long a confirmed record stays in the map.
func WithSuccessGrace(d time.Duration) Option {
	return func(o *options) { o.grace = d }
}

// WithNotifier sets where failure notifications go.
func WithNotifier(n notify.Notifier) Option {
	return func(o *options) { o.notifier = n }
}

// WithClock replaces time.Now for record timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithScope derives the room of a failure notification from the mutation
// payload. Payloads of another type than T get no room.
func WithScope[T any](fn func(T) string) Option {
	return func(o *options) {
		o.scope = func(v any) string {
			data, ok := v.(T)
			if !ok {
				return ""
			}
			return fn(data)
		}
	}
}

// Tracker holds at most one record per id. Mutations for different ids
// never block each other; a new mutation for an id replaces its record.
type Tracker[T any] struct {
	// emitMu is held from the state change through delivery so observers
	// see events in the order the map changed.
	emitMu sync.Mutex

	mu        sync.Mutex
	records   map[string]Record[T]
	seq       uint64
	observers []func(Event[T])

	opts options
	wg   sync.WaitGroup
}

func New[T any](opts ...Option) *Tracker[T] {
	o := options{
		grace:  DefaultSuccessGrace,
		now:    time.Now,
		logger: log.Logger,
	}
	for _, opt := range opts {
		opt(&o)
	}
	o.logger = o.logger.With().Str("component", "optimistic").Logger()

	return &Tracker[T]{
		records: make(map[string]Record[T]),
		opts:    o,
	}
}

// OnChange registers fn to be called after every insert, status change and
// removal. Events arrive one at a time in map order. fn must not start a
// mutation on the same tracker.
func (t *Tracker[T]) OnChange(fn func(Event[T])) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.observers = append(t.observers, fn)
}

// Mutate records a pending mutation and confirms it in the background.
// The record is visible before Mutate returns. The confirmation is detached
// from ctx cancellation.
func (t *Tracker[T]) Mutate(ctx context.Context, id string, data T, perform func(context.Context) error, rollback func()) {
	ctx = context.WithoutCancel(ctx)
	gen := t.begin(id, data, rollback)

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		_ = t.resolve(ctx, id, data, gen, perform, rollback)
	}()
}

// Run is the synchronous form of Mutate. It returns a *ConfirmationError
// when perform fails.
func (t *Tracker[T]) Run(ctx context.Context, id string, data T, perform func(context.Context) error, rollback func()) error {
	gen := t.begin(id, data, rollback)
	return t.resolve(ctx, id, data, gen, perform, rollback)
}

func (t *Tracker[T]) begin(id string, data T, rollback func()) uint64 {
	t.emitMu.Lock()
	defer t.emitMu.Unlock()

	t.mu.Lock()
	t.seq++
	rec := Record[T]{
		ID:         id,
		Data:       data,
		Status:     StatusPending,
		Timestamp:  t.opts.now(),
		Rollback:   rollback,
		generation: t.seq,
	}
	_, replaced := t.records[id]
	t.records[id] = rec
	size := len(t.records)
	t.mu.Unlock()

	if replaced {
		t.opts.logger.Debug().Str("mutation_id", id).Msg("pending mutation replaced")
	}
	telemetry.SetMutationsTracked(size)
	t.emit(Event[T]{ID: id, Record: rec})
	return rec.generation
}

func (t *Tracker[T]) resolve(ctx context.Context, id string, data T, gen uint64, perform func(context.Context) error, rollback func()) error {
	ctx, span := middleware.StartSpan(ctx, "Mutation.Confirm",
		attribute.String("mutation.id", id),
	)
	defer span.End()

	err := perform(ctx)
	if err == nil {
		t.succeed(id, gen)
		return nil
	}

	middleware.AddSpanError(ctx, err)

	t.emitMu.Lock()
	t.mu.Lock()
	rec, current := t.currentLocked(id, gen)
	if current {
		delete(t.records, id)
	}
	size := len(t.records)
	t.mu.Unlock()

	if !current {
		t.emitMu.Unlock()
		telemetry.RecordMutation("superseded")
		t.opts.logger.Debug().Str("mutation_id", id).Err(err).Msg("superseded mutation failed")
		return &ConfirmationError{ID: id, Cause: fmt.Errorf("%w: %w", ErrSuperseded, err)}
	}

	telemetry.SetMutationsTracked(size)
	telemetry.RecordMutation("rolled_back")

	rec.Status = StatusError
	t.emit(Event[T]{ID: id, Record: rec, Removed: true})
	t.emitMu.Unlock()

	// rollback runs outside emitMu so it may start a new mutation
	if rollback != nil {
		rollback()
	}

	t.opts.logger.Warn().Str("mutation_id", id).Err(err).Msg("mutation rolled back")
	t.notifyFailure(ctx, id, data, err, perform, rollback)

	return &ConfirmationError{ID: id, Cause: err}
}

func (t *Tracker[T]) succeed(id string, gen uint64) {
	t.emitMu.Lock()
	t.mu.Lock()
	rec, current := t.currentLocked(id, gen)
	if current {
		rec.Status = StatusSuccess
		t.records[id] = rec
	}
	t.mu.Unlock()

	if !current {
		t.emitMu.Unlock()
		telemetry.RecordMutation("superseded")
		t.opts.logger.Debug().Str("mutation_id", id).Msg("superseded mutation confirmed")
		return
	}

	telemetry.RecordMutation("success")
	t.emit(Event[T]{ID: id, Record: rec})
	t.emitMu.Unlock()

	t.wg.Add(1)
	time.AfterFunc(t.opts.grace, func() {
		defer t.wg.Done()
		t.removeIf(id, gen)
	})
}

func (t *Tracker[T]) currentLocked(id string, gen uint64) (Record[T], bool) {
	rec, ok := t.records[id]
	return rec, ok && rec.generation == gen
}

func (t *Tracker[T]) removeIf(id string, gen uint64) {
	t.emitMu.Lock()
	defer t.emitMu.Unlock()

	t.mu.Lock()
	rec, current := t.currentLocked(id, gen)
	if current {
		delete(t.records, id)
	}
	size := len(t.records)
	t.mu.Unlock()

	if current {
		telemetry.SetMutationsTracked(size)
		t.emit(Event[T]{ID: id, Record: rec, Removed: true})
	}
}

func (t *Tracker[T]) notifyFailure(ctx context.Context, id string, data T, cause error, perform func(context.Context) error, rollback func()) {
	if t.opts.notifier == nil {
		return
	}

	retryCtx := context.WithoutCancel(ctx)
	n := notify.New(notify.LevelError, FailureTitle, FailureDescription).
		WithRetry(RetryLabel, func() {
			t.Mutate(retryCtx, id, data, perform, rollback)
		})
	n.MutationID = id
	n.Cause = cause.Error()
	if t.opts.scope != nil {
		n.Room = t.opts.scope(data)
	}

	if err := t.opts.notifier.Notify(retryCtx, n); err != nil {
		t.opts.logger.Error().Err(err).Str("mutation_id", id).Msg("failed to deliver failure notification")
	}
}

func (t *Tracker[T]) emit(ev Event[T]) {
	t.mu.Lock()
	observers := make([]func(Event[T]), len(t.observers))
	copy(observers, t.observers)
	t.mu.Unlock()

	for _, fn := range observers {
		fn(ev)
	}
}

// Get returns the record tracked for id.
func (t *Tracker[T]) Get(id string) (Record[T], bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	rec, ok := t.records[id]
	return rec, ok
}

// Snapshot returns a copy of the tracked map.
func (t *Tracker[T]) Snapshot() map[string]Record[T] {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make(map[string]Record[T], len(t.records))
	for id, rec := range t.records {
		out[id] = rec
	}
	return out
}

func (t *Tracker[T]) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.records)
}

// Wait blocks until background confirmations and grace timers finish.
func (t *Tracker[T]) Wait() {
	t.wg.Wait()
}
