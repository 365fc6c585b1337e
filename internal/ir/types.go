package ir

import (
	"encoding/json"
	"fmt"
)

// FaultKind distinguishes the two disjoint fault classes.
type FaultKind string

const (
	// FaultReducer marks a failure while computing the next state.
	// No commit happened.
	FaultReducer FaultKind = "reducer"

	// FaultEffect marks a failure in a side-effect handler. The triggering
	// commit stands.
	FaultEffect FaultKind = "effect"
)

// Commit is the journal record of one committed transition.
//
// Action and State hold canonical JSON. Seq is the engine's logical clock
// value at commit time; it is strictly increasing within one engine run.
type Commit struct {
	ID            string          `json:"id"`
	Seq           int64           `json:"seq"`
	Chain         string          `json:"chain"`
	Depth         int             `json:"depth"`
	ActionType    string          `json:"action_type"`
	Action        json.RawMessage `json:"action"`
	State         json.RawMessage `json:"state"`
	StateHash     string          `json:"state_hash"`
	EngineVersion string          `json:"engine_version"`
}

// Fault is the journal record of a reducer or effect failure.
//
// CommitSeq is the seq of the commit whose effects failed; it is zero for
// reducer faults because nothing was committed.
type Fault struct {
	Kind       FaultKind `json:"kind"`
	Chain      string    `json:"chain"`
	Depth      int       `json:"depth"`
	CommitSeq  int64     `json:"commit_seq,omitempty"`
	ActionType string    `json:"action_type"`
	Message    string    `json:"message"`
}

// NewCommit builds a fully populated Commit record, canonicalizing the action
// and state and computing the content-addressed ID.
func NewCommit(seq int64, chain string, depth int, actionType string, action, state any) (Commit, error) {
	actionJSON, err := MarshalCanonical(action)
	if err != nil {
		return Commit{}, fmt.Errorf("new commit: action: %w", err)
	}
	stateJSON, err := MarshalCanonical(state)
	if err != nil {
		return Commit{}, fmt.Errorf("new commit: state: %w", err)
	}
	stateHash := StateHash(stateJSON)

	id, err := CommitID(chain, seq, actionType, actionJSON, stateHash)
	if err != nil {
		return Commit{}, fmt.Errorf("new commit: %w", err)
	}

	return Commit{
		ID:            id,
		Seq:           seq,
		Chain:         chain,
		Depth:         depth,
		ActionType:    actionType,
		Action:        actionJSON,
		State:         stateJSON,
		StateHash:     stateHash,
		EngineVersion: EngineVersion,
	}, nil
}
