package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/reduxengine/internal/ir"
)

// ReadCommits returns every commit ordered by seq.
// Returns an empty slice (not nil) for an empty journal.
func (s *Store) ReadCommits(ctx context.Context) ([]ir.Commit, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+commitColumns+`
		FROM commits
		ORDER BY seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query commits: %w", err)
	}
	return collectCommits(rows)
}

// ReadCommitsByType returns the commits of one action type ordered by seq.
func (s *Store) ReadCommitsByType(ctx context.Context, actionType string) ([]ir.Commit, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+commitColumns+`
		FROM commits
		WHERE action_type = ?
		ORDER BY seq ASC
	`, actionType)
	if err != nil {
		return nil, fmt.Errorf("query commits by type: %w", err)
	}
	return collectCommits(rows)
}

// ReadChain returns the commits of one chain in causal (seq) order.
func (s *Store) ReadChain(ctx context.Context, chain string) ([]ir.Commit, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+commitColumns+`
		FROM commits
		WHERE chain = ?
		ORDER BY seq ASC
	`, chain)
	if err != nil {
		return nil, fmt.Errorf("query chain: %w", err)
	}
	return collectCommits(rows)
}

// ReadFaults returns every fault in the order it was recorded.
func (s *Store) ReadFaults(ctx context.Context) ([]ir.Fault, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+faultColumns+`
		FROM faults
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query faults: %w", err)
	}
	return collectFaults(rows)
}

// ReadChainFaults returns the faults of one chain in recorded order.
func (s *Store) ReadChainFaults(ctx context.Context, chain string) ([]ir.Fault, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+faultColumns+`
		FROM faults
		WHERE chain = ?
		ORDER BY id ASC
	`, chain)
	if err != nil {
		return nil, fmt.Errorf("query chain faults: %w", err)
	}
	return collectFaults(rows)
}

// LastCommit returns the commit with the highest seq.
// Returns false if the journal is empty.
func (s *Store) LastCommit(ctx context.Context) (ir.Commit, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+commitColumns+`
		FROM commits
		ORDER BY seq DESC
		LIMIT 1
	`)
	c, err := scanCommit(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.Commit{}, false, nil
	}
	if err != nil {
		return ir.Commit{}, false, fmt.Errorf("last commit: %w", err)
	}
	return c, true, nil
}

// ChainSummary describes one chain in the journal.
type ChainSummary struct {
	Chain    string `json:"chain"`
	Root     string `json:"root"`
	Commits  int    `json:"commits"`
	FirstSeq int64  `json:"first_seq"`
	LastSeq  int64  `json:"last_seq"`
	MaxDepth int    `json:"max_depth"`
	Faults   int    `json:"faults"`
}

// Chains summarizes every chain that committed at least once, ordered by
// the seq of its first commit. Root is the action type of that first
// commit.
func (s *Store) Chains(ctx context.Context) ([]ChainSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT
			c.chain,
			(SELECT r.action_type FROM commits r WHERE r.chain = c.chain ORDER BY r.seq ASC LIMIT 1),
			COUNT(*),
			MIN(c.seq),
			MAX(c.seq),
			MAX(c.depth),
			(SELECT COUNT(*) FROM faults f WHERE f.chain = c.chain)
		FROM commits c
		GROUP BY c.chain
		ORDER BY MIN(c.seq) ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query chains: %w", err)
	}
	defer rows.Close()

	chains := []ChainSummary{}
	for rows.Next() {
		var cs ChainSummary
		if err := rows.Scan(&cs.Chain, &cs.Root, &cs.Commits, &cs.FirstSeq, &cs.LastSeq, &cs.MaxDepth, &cs.Faults); err != nil {
			return nil, fmt.Errorf("scan chain: %w", err)
		}
		chains = append(chains, cs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chains: %w", err)
	}
	return chains, nil
}
