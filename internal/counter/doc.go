// Package counter is the reference domain for the engine: an integer
// counter with a cascading epic.
//
// Add(n) is answered by the cascade epic with Subtract(2n), so dispatching
// Add(2) against 0 commits 2 and then -2. Fail makes the guard reducer
// reject the action (a reducer fault). Audit commits normally but its epic
// fails (an effect fault).
//
// The package also provides the action registry used by scenarios, replay
// and the CLI.
package counter
