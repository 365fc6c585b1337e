package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/reduxengine/internal/ir"
)

type counterState struct {
	Value int `json:"value"`
}

type add struct {
	N int `json:"n"`
}

func (add) ActionType() string { return "add" }

type subtract struct {
	N int `json:"n"`
}

func (subtract) ActionType() string { return "subtract" }

type boom struct{}

func (boom) ActionType() string { return "boom" }

var errBoom = errors.New("boom")

func counterReducer() Reducer[counterState] {
	return ReducerFunc[counterState](func(a Action, s counterState) (counterState, error) {
		switch a := a.(type) {
		case add:
			s.Value += a.N
		case subtract:
			s.Value -= a.N
		case boom:
			return s, errBoom
		}
		return s, nil
	})
}

// cascadeEpic answers Add(n) with Subtract(2n).
func cascadeEpic() Epic[counterState] {
	return EpicFunc[counterState](func(_ context.Context, a Action, _ counterState, emit Emit) error {
		if a, ok := a.(add); ok {
			return emit(subtract{N: 2 * a.N})
		}
		return nil
	})
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newCounter builds a counter engine with a quiet logger and collects
// faults.
func newCounter(t *testing.T, epics []Epic[counterState], opts ...Option[counterState]) (*Engine[counterState], *faultLog) {
	t.Helper()
	faults := &faultLog{}
	base := []Option[counterState]{
		WithLogger[counterState](quietLogger()),
		WithFaultHandler[counterState](faults.add),
	}
	e := New([]Reducer[counterState]{counterReducer()}, epics, append(base, opts...)...)
	return e, faults
}

// start runs e until the test ends.
func start[S any](t *testing.T, e *Engine[S]) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- e.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-errc
	})
}

func settle[S any](t *testing.T, e *Engine[S]) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, e.Settle(ctx))
}

func dispatch[S any](t *testing.T, e *Engine[S], a Action) S {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	s, err := e.DispatchAndWait(ctx, a)
	require.NoError(t, err)
	return s
}

type faultLog struct {
	mu     sync.Mutex
	faults []error
}

func (f *faultLog) add(err error) {
	f.mu.Lock()
	f.faults = append(f.faults, err)
	f.mu.Unlock()
}

func (f *faultLog) all() []error {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]error, len(f.faults))
	copy(out, f.faults)
	return out
}

// memRecorder is an in-memory Recorder.
type memRecorder struct {
	mu      sync.Mutex
	commits []ir.Commit
	faults  []ir.Fault
	fail    error
}

func (r *memRecorder) WriteCommit(_ context.Context, c ir.Commit) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return r.fail
	}
	r.commits = append(r.commits, c)
	return nil
}

func (r *memRecorder) WriteFault(_ context.Context, f ir.Fault) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return r.fail
	}
	r.faults = append(r.faults, f)
	return nil
}

func (r *memRecorder) Commits() []ir.Commit {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ir.Commit, len(r.commits))
	copy(out, r.commits)
	return out
}

func (r *memRecorder) Faults() []ir.Fault {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ir.Fault, len(r.faults))
	copy(out, r.faults)
	return out
}
