package testutil

import (
	"fmt"
	"sync"
)

// SequentialChainGenerator generates predictable chain tokens
// ("<prefix>-0001", "<prefix>-0002", ...).
//
// This enables deterministic test execution and golden trace comparison:
// the same scenario dispatched in the same order produces byte-identical
// journals.
//
// Thread-safety: safe for concurrent use via internal mutex.
type SequentialChainGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequentialChainGenerator creates a generator. An empty prefix defaults
// to "chain".
func NewSequentialChainGenerator(prefix string) *SequentialChainGenerator {
	if prefix == "" {
		prefix = "chain"
	}
	return &SequentialChainGenerator{prefix: prefix}
}

// Generate returns the next token.
//
// Implements engine.ChainGenerator.
func (g *SequentialChainGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%04d", g.prefix, g.n)
}

// Reset restarts numbering at 1.
func (g *SequentialChainGenerator) Reset() {
	g.mu.Lock()
	g.n = 0
	g.mu.Unlock()
}
