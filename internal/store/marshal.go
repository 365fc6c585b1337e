package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/roach88/reduxengine/internal/ir"
)

// jsonText stores canonical JSON as TEXT; an empty document becomes null.
func jsonText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return "null"
	}
	return string(raw)
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

const commitColumns = `seq, id, chain, depth, action_type, action, state, state_hash, engine_version`

func scanCommit(row rowScanner) (ir.Commit, error) {
	var (
		c             ir.Commit
		action, state string
	)
	err := row.Scan(
		&c.Seq,
		&c.ID,
		&c.Chain,
		&c.Depth,
		&c.ActionType,
		&action,
		&state,
		&c.StateHash,
		&c.EngineVersion,
	)
	if err != nil {
		return ir.Commit{}, err
	}
	c.Action = json.RawMessage(action)
	c.State = json.RawMessage(state)
	return c, nil
}

const faultColumns = `kind, chain, depth, commit_seq, action_type, message`

func scanFault(row rowScanner) (ir.Fault, error) {
	var (
		f         ir.Fault
		kind      string
		commitSeq sql.NullInt64
	)
	err := row.Scan(&kind, &f.Chain, &f.Depth, &commitSeq, &f.ActionType, &f.Message)
	if err != nil {
		return ir.Fault{}, err
	}
	f.Kind = ir.FaultKind(kind)
	if commitSeq.Valid {
		f.CommitSeq = commitSeq.Int64
	}
	return f, nil
}

func collectCommits(rows *sql.Rows) ([]ir.Commit, error) {
	defer rows.Close()

	commits := []ir.Commit{}
	for rows.Next() {
		c, err := scanCommit(rows)
		if err != nil {
			return nil, fmt.Errorf("scan commit: %w", err)
		}
		commits = append(commits, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate commits: %w", err)
	}
	return commits, nil
}

func collectFaults(rows *sql.Rows) ([]ir.Fault, error) {
	defer rows.Close()

	faults := []ir.Fault{}
	for rows.Next() {
		f, err := scanFault(rows)
		if err != nil {
			return nil, fmt.Errorf("scan fault: %w", err)
		}
		faults = append(faults, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate faults: %w", err)
	}
	return faults, nil
}
