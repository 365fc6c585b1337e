// Package store provides the SQLite-backed journal of an engine run.
//
// The journal is an append-only log with:
//   - Commits: every committed transition (action, resulting state, hash)
//   - Faults: every reducer and effect fault
//
// The journal is diagnostic. It lets operators inspect a chain, list faults
// and replay commits to check that reducers are deterministic. It is not
// used to restore application state.
//
// # Critical Patterns
//
// Logical Time:
//   - Commits are ordered by seq INTEGER (the engine's logical clock),
//     NEVER timestamps
//   - Faults are ordered by insertion
//
// Idempotency:
//   - Commit IDs are content-addressed (ir.CommitID); rewriting the same
//     commit is a no-op
//
// Deterministic Query Results:
//   - Every query has an ORDER BY so results are identical across reads
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//
// Canonical JSON and hashes come from internal/ir.
package store
