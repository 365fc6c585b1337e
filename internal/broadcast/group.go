package broadcast

import "sync"

// Group tracks several subscriptions so they can be cancelled together,
// e.g. when the component that owns them goes away.
type Group struct {
	mu   sync.Mutex
	subs []*Subscription
}

// Add registers a subscription with the group. Adding to a nil group is a
// no-op.
func (g *Group) Add(sub *Subscription) *Subscription {
	if g == nil || sub == nil {
		return sub
	}
	g.mu.Lock()
	g.subs = append(g.subs, sub)
	g.mu.Unlock()
	return sub
}

// Len returns the number of tracked subscriptions.
func (g *Group) Len() int {
	if g == nil {
		return 0
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.subs)
}

// CancelAll cancels every tracked subscription and forgets them.
func (g *Group) CancelAll() {
	if g == nil {
		return
	}
	g.mu.Lock()
	subs := g.subs
	g.subs = nil
	g.mu.Unlock()
	for _, sub := range subs {
		sub.Cancel()
	}
}
