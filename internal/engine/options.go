package engine

import (
	"log/slog"

	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"

	"github.com/roach88/reduxengine/internal/broadcast"
)

// DefaultMaxDepth is the default maximum cascade depth per chain.
// This stops epics that keep re-emitting from looping forever.
const DefaultMaxDepth = 1000

// Option configures an Engine.
type Option[S any] func(*Engine[S])

// WithInitialState seeds the state cell. The seed is published without
// running reducers or epics.
func WithInitialState[S any](state S) Option[S] {
	return func(e *Engine[S]) {
		e.initial = &state
	}
}

// WithFaultHandler replaces the default handler, which logs every fault.
func WithFaultHandler[S any](h FaultHandler) Option[S] {
	return func(e *Engine[S]) {
		e.onFault = h
	}
}

// WithRecorder journals every commit and fault.
func WithRecorder[S any](r Recorder) Option[S] {
	return func(e *Engine[S]) {
		e.recorder = r
	}
}

// WithChainGenerator replaces the UUIDv7 chain token generator.
func WithChainGenerator[S any](g ChainGenerator) Option[S] {
	return func(e *Engine[S]) {
		e.chains = g
	}
}

// WithClock replaces the logical clock. Used to continue seq numbering
// after the last commit of an existing journal.
func WithClock[S any](c *Clock) Option[S] {
	return func(e *Engine[S]) {
		e.clock = c
	}
}

// WithMaxDepth sets the maximum cascade depth per chain.
//
// Default: 1000 (DefaultMaxDepth). Zero or a negative value disables the
// limit.
func WithMaxDepth[S any](depth int) Option[S] {
	return func(e *Engine[S]) {
		e.maxDepth = depth
	}
}

// WithMaxConcurrentEffects bounds the number of epic runs in flight.
// Zero or a negative value means unbounded (the default).
func WithMaxConcurrentEffects[S any](n int) Option[S] {
	return func(e *Engine[S]) {
		if n > 0 {
			e.effects = semaphore.NewWeighted(int64(n))
		} else {
			e.effects = nil
		}
	}
}

// WithTracer sets the tracer for redux.reduce and redux.effects spans.
// Default: the global OpenTelemetry provider.
func WithTracer[S any](t trace.Tracer) Option[S] {
	return func(e *Engine[S]) {
		e.tracer = t
	}
}

// WithLogger sets the engine's logger. Default: slog.Default().
func WithLogger[S any](l *slog.Logger) Option[S] {
	return func(e *Engine[S]) {
		e.logger = l
	}
}

// WithStateEqual sets the equality Listen uses to suppress repeated states.
// Default: broadcast.DeepEqual.
func WithStateEqual[S any](eq broadcast.EqualFunc[S]) Option[S] {
	return func(e *Engine[S]) {
		e.equal = eq
	}
}
