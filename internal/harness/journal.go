package harness

import (
	"context"
	"sync"

	"github.com/roach88/reduxengine/internal/engine"
	"github.com/roach88/reduxengine/internal/ir"
)

// journal records commits and faults in memory and forwards them to an
// optional second recorder.
type journal struct {
	mu      sync.Mutex
	commits []ir.Commit
	faults  []ir.Fault
	next    engine.Recorder
}

var _ engine.Recorder = (*journal)(nil)

func (j *journal) WriteCommit(ctx context.Context, c ir.Commit) error {
	j.mu.Lock()
	j.commits = append(j.commits, c)
	j.mu.Unlock()
	if j.next != nil {
		return j.next.WriteCommit(ctx, c)
	}
	return nil
}

func (j *journal) WriteFault(ctx context.Context, f ir.Fault) error {
	j.mu.Lock()
	j.faults = append(j.faults, f)
	j.mu.Unlock()
	if j.next != nil {
		return j.next.WriteFault(ctx, f)
	}
	return nil
}

func (j *journal) faultCount() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.faults)
}

// faultsSince returns the faults recorded after the first n.
func (j *journal) faultsSince(n int) []ir.Fault {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]ir.Fault, len(j.faults)-n)
	copy(out, j.faults[n:])
	return out
}

func (j *journal) snapshot() ([]ir.Commit, []ir.Fault) {
	j.mu.Lock()
	defer j.mu.Unlock()
	commits := make([]ir.Commit, len(j.commits))
	copy(commits, j.commits)
	faults := make([]ir.Fault, len(j.faults))
	copy(faults, j.faults)
	return commits, faults
}
