package engine

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/roach88/reduxengine/internal/ir"
)

// ActionDecoder rebuilds an action from its journaled canonical JSON.
type ActionDecoder func(raw json.RawMessage) (Action, error)

// ActionRegistry maps action types to decoders for replay.
//
// Thread-safety: safe for concurrent use.
type ActionRegistry struct {
	mu       sync.RWMutex
	decoders map[string]ActionDecoder
}

// NewActionRegistry creates an empty registry.
func NewActionRegistry() *ActionRegistry {
	return &ActionRegistry{decoders: make(map[string]ActionDecoder)}
}

// Register binds actionType to decode, replacing any previous decoder.
func (r *ActionRegistry) Register(actionType string, decode ActionDecoder) {
	r.mu.Lock()
	r.decoders[actionType] = decode
	r.mu.Unlock()
}

// RegisterJSON binds A's type tag to a decoder that unmarshals into a
// zero A.
func RegisterJSON[A Action](r *ActionRegistry) {
	var zero A
	r.Register(zero.ActionType(), func(raw json.RawMessage) (Action, error) {
		var a A
		if err := json.Unmarshal(raw, &a); err != nil {
			return nil, err
		}
		return a, nil
	})
}

// Decode rebuilds an action of the given type.
func (r *ActionRegistry) Decode(actionType string, raw json.RawMessage) (Action, error) {
	r.mu.RLock()
	decode, ok := r.decoders[actionType]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no decoder for action type %q", actionType)
	}
	a, err := decode(raw)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", actionType, err)
	}
	return a, nil
}

// Mismatch records a commit whose replayed state differs from the journal.
type Mismatch struct {
	Seq        int64  `json:"seq"`
	Chain      string `json:"chain"`
	ActionType string `json:"action_type"`
	Want       string `json:"want"`
	Got        string `json:"got"`
}

// ReplayReport summarizes a replay.
type ReplayReport[S any] struct {
	State      S          `json:"state"`
	Replayed   int        `json:"replayed"`
	Seeds      int        `json:"seeds"`
	Mismatches []Mismatch `json:"mismatches"`
}

// Deterministic reports whether every replayed commit reproduced its
// journaled state hash.
func (r *ReplayReport[S]) Deterministic() bool {
	return len(r.Mismatches) == 0
}

// Replay re-folds journaled commits through reducer in seq order and
// compares each resulting state hash with the journaled one.
//
// An InitType commit resets the state to its journaled seed. Replay starts
// from the zero state. Commits must be ordered by seq, as returned by
// store.ReadCommits.
//
// A mismatch does not stop the replay; the replayed state carries on. A
// decode failure or a reducer error does, because the journal only holds
// transitions that succeeded.
func Replay[S any](reducer Reducer[S], actions *ActionRegistry, commits []ir.Commit) (*ReplayReport[S], error) {
	report := &ReplayReport[S]{}
	var state S

	for _, c := range commits {
		if c.ActionType == InitType {
			var seed S
			if err := json.Unmarshal(c.State, &seed); err != nil {
				return report, fmt.Errorf("replay seq %d: decode seed: %w", c.Seq, err)
			}
			state = seed
			report.Seeds++
			continue
		}

		action, err := actions.Decode(c.ActionType, c.Action)
		if err != nil {
			return report, fmt.Errorf("replay seq %d: %w", c.Seq, err)
		}

		next, err := reducer.Reduce(action, state)
		if err != nil {
			return report, fmt.Errorf("replay seq %d: reducer: %w", c.Seq, err)
		}
		state = next
		report.Replayed++

		got, err := ir.HashState(state)
		if err != nil {
			return report, fmt.Errorf("replay seq %d: %w", c.Seq, err)
		}
		if got != c.StateHash {
			report.Mismatches = append(report.Mismatches, Mismatch{
				Seq:        c.Seq,
				Chain:      c.Chain,
				ActionType: c.ActionType,
				Want:       c.StateHash,
				Got:        got,
			})
		}
	}

	report.State = state
	return report, nil
}
