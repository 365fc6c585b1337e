package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/reduxengine/internal/ir"
)

// WriteCommit appends a commit record.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - rewriting the same
// commit is silently ignored. A different commit at an existing seq is an
// error.
func (s *Store) WriteCommit(ctx context.Context, c ir.Commit) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO commits
		(seq, id, chain, depth, action_type, action, state, state_hash, engine_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		c.Seq,
		c.ID,
		c.Chain,
		c.Depth,
		c.ActionType,
		jsonText(c.Action),
		jsonText(c.State),
		c.StateHash,
		c.EngineVersion,
	)
	if err != nil {
		return fmt.Errorf("write commit %d: %w", c.Seq, err)
	}
	return nil
}

// WriteFault appends a fault record.
func (s *Store) WriteFault(ctx context.Context, f ir.Fault) error {
	var commitSeq sql.NullInt64
	if f.Kind == ir.FaultEffect {
		commitSeq = sql.NullInt64{Int64: f.CommitSeq, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO faults
		(kind, chain, depth, commit_seq, action_type, message)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		string(f.Kind),
		f.Chain,
		f.Depth,
		commitSeq,
		f.ActionType,
		f.Message,
	)
	if err != nil {
		return fmt.Errorf("write fault: %w", err)
	}
	return nil
}
