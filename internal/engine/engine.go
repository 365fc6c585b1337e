package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/roach88/reduxengine/internal/broadcast"
	"github.com/roach88/reduxengine/internal/ir"
)

const tracerName = "github.com/roach88/reduxengine/internal/engine"

// Engine is the single-writer dispatch loop over one state cell.
//
// CRITICAL: Reducers run only in the Run loop goroutine. Only the Run loop
// publishes to the cell (seeding aside).
//
// Thread-safety model:
//   - Dispatch(), DispatchAndWait(), Listen(), State(), WarmUp(), Settle():
//     safe from any goroutine
//   - Run(): must be called exactly once
//
// INVARIANTS:
//   - reducer order NEVER changes after construction
//   - an epic only ever sees a committed state
//   - an emitted action is enqueued only after its trigger committed
type Engine[S any] struct {
	cell    *broadcast.Cell[S]
	equal   broadcast.EqualFunc[S]
	reducer *CompositeReducer[S]
	epic    *CompositeEpic[S]
	queue   *mailbox[S]
	clock   *Clock
	chains  ChainGenerator
	initial *S

	onFault  FaultHandler
	recorder Recorder
	maxDepth int
	effects  *semaphore.Weighted
	tracer   trace.Tracer
	logger   *slog.Logger

	// journalMu orders publishes, clock ticks and recorder writes.
	journalMu sync.Mutex
	// faultMu serializes FaultHandler calls.
	faultMu sync.Mutex

	activity *activity
	running  atomic.Bool
	done     chan struct{}
}

// New creates an Engine from reducers (folded left to right in slice
// order) and epics (run concurrently after each commit).
//
// Both slices are copied to prevent external mutation from reordering them.
func New[S any](reducers []Reducer[S], epics []Epic[S], opts ...Option[S]) *Engine[S] {
	e := &Engine[S]{
		cell:     broadcast.New[S](),
		reducer:  Combine(reducers...),
		epic:     MergeEpics(epics...),
		queue:    newMailbox[S](),
		clock:    NewClock(),
		chains:   UUIDv7Generator{},
		maxDepth: DefaultMaxDepth,
		tracer:   otel.Tracer(tracerName),
		logger:   slog.Default(),
		activity: newActivity(),
		done:     make(chan struct{}),
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.onFault == nil {
		e.onFault = e.logFault
	}
	if e.initial != nil {
		e.cell.Seed(*e.initial)
	}

	return e
}

// Run starts the single-writer loop.
// Blocks until ctx is cancelled or Stop() is called.
//
// On exit Run closes the mailbox, cancels the context of every running
// epic and waits for them. Envelopes still queued are dropped. Returns
// ctx.Err() on cancellation and nil after Stop.
//
// ERROR HANDLING: faults are reported and processing continues with the
// next envelope. Nothing is retried.
func (e *Engine[S]) Run(ctx context.Context) error {
	if !e.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	e.logger.Info("engine starting",
		"reducers", e.reducer.Len(),
		"epics", e.epic.Len(),
		"max_depth", e.maxDepth,
	)

	effectCtx, cancelEffects := context.WithCancel(ctx)
	var workers errgroup.Group
	defer e.shutdown(cancelEffects, &workers)

	if e.initial != nil {
		e.journalMu.Lock()
		e.recordInit(ctx, *e.initial)
		e.journalMu.Unlock()
	}

	for {
		if err := ctx.Err(); err != nil {
			e.logger.Info("engine stopping: context cancelled")
			return err
		}
		if e.queue.Closed() {
			e.logger.Info("engine stopping: mailbox closed")
			return nil
		}

		env, ok := e.queue.TryDequeue()
		if ok {
			e.process(ctx, effectCtx, &workers, env)
			continue
		}

		select {
		case <-ctx.Done():
		case <-e.queue.Wait():
		}
	}
}

// Stop shuts the engine down. Dispatch returns ErrStopped from now on and
// Run returns once running epics have exited.
func (e *Engine[S]) Stop() {
	e.queue.Close()
}

// Done is closed after Run has returned.
func (e *Engine[S]) Done() <-chan struct{} {
	return e.done
}

func (e *Engine[S]) shutdown(cancelEffects context.CancelFunc, workers *errgroup.Group) {
	e.queue.Close()
	cancelEffects()
	_ = workers.Wait()

	dropped := 0
	for _, env := range e.queue.drain() {
		env.respond(result[S]{err: ErrStopped})
		e.activity.done()
		dropped++
	}

	e.cell.Close()
	close(e.done)

	e.logger.Info("engine stopped",
		"dropped", dropped,
		"last_seq", e.clock.Current(),
	)
}

// Dispatch enqueues action as the root of a new chain and returns without
// waiting. Faults are reported through the FaultHandler.
//
// Returns ErrStopped once the engine has shut down. Dispatching Noop has no
// effect.
func (e *Engine[S]) Dispatch(action Action) error {
	if action == nil {
		return ErrNilAction
	}
	if IsNoop(action) {
		if e.queue.Closed() {
			return ErrStopped
		}
		return nil
	}
	return e.enqueue(envelope[S]{action: action, chain: e.chains.Generate()})
}

// DispatchAndWait dispatches action and waits until it has been committed.
// It returns the committed state, or the *ReducerFault of this dispatch.
//
// The wait ends at the commit point: epics triggered by the commit may
// still be running. Use Settle to wait for them too.
func (e *Engine[S]) DispatchAndWait(ctx context.Context, action Action) (S, error) {
	var zero S
	if action == nil {
		return zero, ErrNilAction
	}
	if IsNoop(action) {
		if e.queue.Closed() {
			return zero, ErrStopped
		}
		s, _ := e.cell.Load()
		return s, nil
	}

	reply := make(chan result[S], 1)
	env := envelope[S]{action: action, chain: e.chains.Generate(), reply: reply}
	if err := e.enqueue(env); err != nil {
		return zero, err
	}

	select {
	case r := <-reply:
		return r.state, r.err
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-e.done:
		select {
		case r := <-reply:
			return r.state, r.err
		default:
			return zero, ErrStopped
		}
	}
}

// Settle blocks until the mailbox is empty and no epic is running, or ctx
// ends. Returns ErrStopped if the engine shuts down first.
func (e *Engine[S]) Settle(ctx context.Context) error {
	select {
	case <-e.done:
		return ErrStopped
	default:
	}

	select {
	case <-e.activity.wait():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-e.done:
		return ErrStopped
	}
}

// Listen subscribes callback to every distinct state. If a state exists it
// is delivered synchronously before Listen returns.
func (e *Engine[S]) Listen(callback func(S)) *broadcast.Subscription {
	return broadcast.WatchAll(e.cell, e.equal, callback)
}

// Select subscribes callback to a projection of the state. The callback
// fires with the current projection, then only when the projection changes
// under equal (default broadcast.DeepEqual).
func Select[S, T any](e *Engine[S], selector func(S) T, callback func(T), equal ...broadcast.EqualFunc[T]) *broadcast.Subscription {
	var eq broadcast.EqualFunc[T]
	if len(equal) > 0 {
		eq = equal[0]
	}
	return broadcast.Watch(e.cell, selector, eq, callback)
}

// WarmUp publishes state without running reducers or epics, if and only if
// the engine holds no state yet. Returns false, and changes nothing, once a
// state has been seeded or committed.
func (e *Engine[S]) WarmUp(state S) bool {
	e.journalMu.Lock()
	defer e.journalMu.Unlock()

	if !e.cell.Seed(state) {
		e.logger.Debug("warm up ignored: state already present")
		return false
	}
	e.recordInit(context.Background(), state)
	return true
}

// State returns the current state and whether one exists.
func (e *Engine[S]) State() (S, bool) {
	return e.cell.Load()
}

// Seq returns the seq of the last commit.
func (e *Engine[S]) Seq() int64 {
	return e.clock.Current()
}

// QueueLen returns the number of envelopes waiting in the mailbox.
// Used for testing and diagnostics.
func (e *Engine[S]) QueueLen() int {
	return e.queue.Len()
}

func (e *Engine[S]) enqueue(env envelope[S]) error {
	e.activity.add()
	if !e.queue.Enqueue(env) {
		e.activity.done()
		return ErrStopped
	}
	return nil
}

// process applies one envelope.
// CRITICAL: Called only from the Run goroutine.
func (e *Engine[S]) process(ctx, effectCtx context.Context, workers *errgroup.Group, env envelope[S]) {
	defer e.activity.done()

	actionType := env.action.ActionType()

	var (
		next S
		seq  int64
	)
	for {
		current, version, _ := e.cell.LoadVersion()

		var err error
		next, err = e.reduce(ctx, env, current)
		if err != nil {
			fault := &ReducerFault{
				Chain:      env.chain,
				Depth:      env.depth,
				ActionType: actionType,
				Err:        err,
			}
			e.report(ctx, fault, fault.Record())
			env.respond(result[S]{err: fault})
			return
		}

		// A WarmUp may have seeded the cell while the reducer ran. Reducers
		// are pure, so reduce again from the seed.
		e.journalMu.Lock()
		if !e.cell.PublishIf(version, next) {
			e.journalMu.Unlock()
			e.logger.Debug("state seeded during reduce, retrying",
				"action", actionType,
				"chain", env.chain,
			)
			continue
		}
		seq = e.clock.Next()
		e.recordCommit(ctx, seq, env, next)
		e.journalMu.Unlock()
		break
	}

	e.logger.Debug("committed",
		"seq", seq,
		"action", actionType,
		"chain", env.chain,
		"depth", env.depth,
	)

	env.respond(result[S]{state: next})

	if e.epic.Len() > 0 {
		e.schedule(effectCtx, workers, env, seq, next)
	}
}

// reduce runs the composite reducer inside a span, converting a panic into
// a *PanicError.
func (e *Engine[S]) reduce(ctx context.Context, env envelope[S], state S) (next S, err error) {
	_, span := e.tracer.Start(ctx, "redux.reduce", trace.WithAttributes(
		attribute.String("redux.action", env.action.ActionType()),
		attribute.String("redux.chain", env.chain),
		attribute.Int("redux.depth", env.depth),
	))
	defer func() {
		if r := recover(); r != nil {
			err = newPanicError(r)
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	return e.reducer.Reduce(env.action, state)
}

// schedule starts the epics for one commit on a worker task.
func (e *Engine[S]) schedule(ctx context.Context, workers *errgroup.Group, env envelope[S], seq int64, state S) {
	e.activity.add()
	workers.Go(func() error {
		defer e.activity.done()

		if e.effects != nil {
			if err := e.effects.Acquire(ctx, 1); err != nil {
				e.logger.Debug("effects skipped: engine stopping",
					"seq", seq,
					"action", env.action.ActionType(),
				)
				return nil
			}
			defer e.effects.Release(1)
		}

		e.runEffects(ctx, env, seq, state)
		return nil
	})
}

func (e *Engine[S]) runEffects(ctx context.Context, env envelope[S], seq int64, state S) {
	actionType := env.action.ActionType()
	ctx, span := e.tracer.Start(ctx, "redux.effects", trace.WithAttributes(
		attribute.String("redux.action", actionType),
		attribute.String("redux.chain", env.chain),
		attribute.Int("redux.depth", env.depth),
		attribute.Int64("redux.seq", seq),
	))
	defer span.End()

	var (
		mu       sync.Mutex
		overflow error
		emitted  int
	)
	emit := func(a Action) error {
		if a == nil {
			return ErrNilAction
		}
		if IsNoop(a) {
			return nil
		}
		depth := env.depth + 1
		if e.maxDepth > 0 && depth > e.maxDepth {
			err := &DepthExceededError{Chain: env.chain, Depth: depth, Limit: e.maxDepth}
			mu.Lock()
			if overflow == nil {
				overflow = err
			}
			mu.Unlock()
			return err
		}
		if err := e.enqueue(envelope[S]{action: a, chain: env.chain, depth: depth}); err != nil {
			return err
		}
		mu.Lock()
		emitted++
		mu.Unlock()
		return nil
	}

	err := e.epic.Run(ctx, env.action, state, emit)

	mu.Lock()
	if overflow != nil && !IsDepthExceeded(err) {
		err = errors.Join(err, overflow)
	}
	span.SetAttributes(attribute.Int("redux.emitted", emitted))
	mu.Unlock()

	if err == nil {
		return
	}
	stopping := ctx.Err() != nil || e.queue.Closed()
	if stopping && (errors.Is(err, context.Canceled) || errors.Is(err, ErrStopped)) {
		e.logger.Debug("effects cancelled",
			"seq", seq,
			"action", actionType,
			"chain", env.chain,
		)
		return
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	fault := &EffectFault{
		Chain:      env.chain,
		Depth:      env.depth,
		Seq:        seq,
		ActionType: actionType,
		Err:        err,
	}
	e.report(ctx, fault, fault.Record())
}

// report journals a fault, then hands it to the FaultHandler. The handler
// runs after journalMu is released so it may call back into the engine;
// faultMu keeps handler calls from overlapping.
func (e *Engine[S]) report(ctx context.Context, fault error, rec ir.Fault) {
	e.faultMu.Lock()
	defer e.faultMu.Unlock()

	e.recordFault(ctx, rec)
	e.onFault(fault)
}

func (e *Engine[S]) recordFault(ctx context.Context, rec ir.Fault) {
	if e.recorder == nil {
		return
	}
	e.journalMu.Lock()
	defer e.journalMu.Unlock()
	if err := e.recorder.WriteFault(context.WithoutCancel(ctx), rec); err != nil {
		e.logger.Error("journal fault write failed",
			"error", err,
			"kind", rec.Kind,
			"chain", rec.Chain,
			"action", rec.ActionType,
		)
	}
}

// recordCommit journals a commit. Caller holds journalMu.
func (e *Engine[S]) recordCommit(ctx context.Context, seq int64, env envelope[S], state S) {
	if e.recorder == nil {
		return
	}
	e.writeCommit(ctx, seq, env.chain, env.depth, env.action, state)
}

// recordInit journals a seed as an InitType commit on a fresh chain.
// Caller holds journalMu.
func (e *Engine[S]) recordInit(ctx context.Context, state S) {
	if e.recorder == nil {
		return
	}
	e.writeCommit(ctx, e.clock.Next(), e.chains.Generate(), 0, initAction{}, state)
}

func (e *Engine[S]) writeCommit(ctx context.Context, seq int64, chain string, depth int, action Action, state S) {
	commit, err := ir.NewCommit(seq, chain, depth, action.ActionType(), action, state)
	if err != nil {
		e.logger.Error("journal commit encoding failed",
			"error", err,
			"seq", seq,
			"action", action.ActionType(),
		)
		return
	}
	if err := e.recorder.WriteCommit(context.WithoutCancel(ctx), commit); err != nil {
		e.logger.Error("journal commit write failed",
			"error", err,
			"seq", seq,
			"chain", chain,
			"action", action.ActionType(),
		)
	}
}

// logFault is the default FaultHandler: log and continue.
func (e *Engine[S]) logFault(fault error) {
	attrs := []any{"error", fault}

	var rf *ReducerFault
	var ef *EffectFault
	switch {
	case errors.As(fault, &rf):
		attrs = append(attrs, "kind", ir.FaultReducer, "chain", rf.Chain, "action", rf.ActionType, "depth", rf.Depth)
	case errors.As(fault, &ef):
		attrs = append(attrs, "kind", ir.FaultEffect, "chain", ef.Chain, "action", ef.ActionType, "seq", ef.Seq)
	}

	var pe *PanicError
	if errors.As(fault, &pe) {
		attrs = append(attrs, "stack", string(pe.Stack))
	}

	e.logger.Error("dispatch fault", attrs...)
}

func (env envelope[S]) respond(r result[S]) {
	if env.reply != nil {
		env.reply <- r
	}
}
