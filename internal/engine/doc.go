// Package engine implements the unidirectional dispatch engine.
//
// ARCHITECTURE:
//
// Single-Writer Event Loop:
// Every dispatched action is wrapped in an envelope (action, chain token,
// depth) and pushed onto a FIFO mailbox. Engine.Run drains the mailbox on
// one goroutine, so at most one reducer application is in flight and
// applications happen in enqueue order.
//
// Dispatch Flow:
//  1. Dispatch enqueues an envelope with a fresh chain token
//  2. Run dequeues it and folds the composite reducer over the current state
//  3. The result is published to the broadcast cell (the commit point)
//  4. The commit is stamped by the logical clock and handed to the recorder
//  5. The composite epic runs on a worker task with (action, committed state)
//  6. Every emitted action is enqueued with the same chain token, depth+1
//
// A reducer fault aborts its chain: nothing is published and no epic runs.
// An effect fault never touches committed state. Both are reported to the
// FaultHandler and are distinguishable with IsReducerFault/IsEffectFault.
//
// CRITICAL PATTERNS:
//
// Logical Clock:
// Commits are stamped with a monotonic seq from Clock.Next().
// Never use wall-clock timestamps for ordering.
//
// Structured Concurrency:
// Run owns the worker tasks. When Run returns, no epic is still running.
package engine
