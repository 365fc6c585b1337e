package store

import (
	"context"
	"fmt"

	"github.com/roach88/reduxengine/internal/ir"
)

// Corruption describes a journaled commit whose stored content no longer
// matches its hashes.
type Corruption struct {
	Seq    int64  `json:"seq"`
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// Verify recomputes the state hash and commit ID of every commit from the
// stored JSON. Seq gaps are reported too, except before the first commit.
func (s *Store) Verify(ctx context.Context) ([]Corruption, error) {
	commits, err := s.ReadCommits(ctx)
	if err != nil {
		return nil, fmt.Errorf("verify: %w", err)
	}

	var problems []Corruption
	for i, c := range commits {
		if i > 0 && c.Seq != commits[i-1].Seq+1 {
			problems = append(problems, Corruption{
				Seq:    c.Seq,
				ID:     c.ID,
				Reason: fmt.Sprintf("seq gap after %d", commits[i-1].Seq),
			})
		}

		if got := ir.StateHash(c.State); got != c.StateHash {
			problems = append(problems, Corruption{Seq: c.Seq, ID: c.ID, Reason: "state hash mismatch"})
			continue
		}

		id, err := ir.CommitID(c.Chain, c.Seq, c.ActionType, c.Action, c.StateHash)
		if err != nil {
			return nil, fmt.Errorf("verify seq %d: %w", c.Seq, err)
		}
		if id != c.ID {
			problems = append(problems, Corruption{Seq: c.Seq, ID: c.ID, Reason: "commit id mismatch"})
		}
	}
	return problems, nil
}
