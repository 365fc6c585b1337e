package broadcast

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/reduxengine/internal/testutil"
)

const (
	waitFor = time.Second
	tick    = 5 * time.Millisecond
)

type profile struct {
	Name  string
	Score int
}

func TestWatch_ReplaysCurrentValueSynchronously(t *testing.T) {
	c := NewSeeded(4)
	got := testutil.NewCollector[int]()

	sub := WatchAll(c, Comparable[int], got.Add)
	defer sub.Cancel()

	// No waiting: the replay happens before Watch returns.
	assert.Equal(t, []int{4}, got.Values())
}

func TestWatch_EmptyCellDeliversNothingUntilPublish(t *testing.T) {
	c := New[int]()
	got := testutil.NewCollector[int]()

	sub := WatchAll(c, nil, got.Add)
	defer sub.Cancel()
	assert.Equal(t, 0, got.Len())

	c.Publish(1)
	require.Eventually(t, func() bool { return got.Len() == 1 }, waitFor, tick)
	assert.Equal(t, []int{1}, got.Values())
}

func TestWatch_DeliversDistinctUpdates(t *testing.T) {
	c := NewSeeded(0)
	got := testutil.NewCollector[int]()

	sub := WatchAll(c, Comparable[int], got.Add)
	defer sub.Cancel()

	c.Publish(1)
	require.Eventually(t, func() bool { return got.Len() == 2 }, waitFor, tick)
	c.Publish(2)
	require.Eventually(t, func() bool { return got.Len() == 3 }, waitFor, tick)

	assert.Equal(t, []int{0, 1, 2}, got.Values())
}

func TestWatch_SuppressesEqualProjections(t *testing.T) {
	c := NewSeeded(profile{Name: "ada", Score: 1})
	names := testutil.NewCollector[string]()
	scores := testutil.NewCollector[int]()

	nameSub := Watch(c, func(p profile) string { return p.Name }, Comparable[string], names.Add)
	defer nameSub.Cancel()
	scoreSub := Watch(c, func(p profile) int { return p.Score }, Comparable[int], scores.Add)
	defer scoreSub.Cancel()

	c.Publish(profile{Name: "ada", Score: 2})
	require.Eventually(t, func() bool { return scores.Len() == 2 }, waitFor, tick)
	c.Publish(profile{Name: "ada", Score: 3})
	require.Eventually(t, func() bool { return scores.Len() == 3 }, waitFor, tick)

	assert.Equal(t, []string{"ada"}, names.Values(), "name never changed")
	assert.Equal(t, []int{1, 2, 3}, scores.Values())
}

func TestWatch_NeverDeliversConsecutiveEqualValues(t *testing.T) {
	c := NewSeeded(0)
	got := testutil.NewCollector[int]()
	sub := WatchAll(c, nil, got.Add)
	defer sub.Cancel()

	for _, v := range []int{0, 1, 1, 1, 2, 2, 0, 0, 3} {
		c.Publish(v)
	}
	require.Eventually(t, func() bool {
		last, _ := got.Last()
		return last == 3
	}, waitFor, tick)

	vals := got.Values()
	for i := 1; i < len(vals); i++ {
		assert.NotEqual(t, vals[i-1], vals[i], "consecutive deliveries must differ: %v", vals)
	}
}

func TestWatch_DefaultEqualityIsDeep(t *testing.T) {
	c := NewSeeded([]int{1, 2})
	got := testutil.NewCollector[[]int]()
	sub := WatchAll(c, nil, got.Add)
	defer sub.Cancel()

	c.Publish([]int{1, 2}) // new slice, equal contents
	c.Publish([]int{1, 2, 3})
	require.Eventually(t, func() bool { return got.Len() == 2 }, waitFor, tick)

	assert.Equal(t, [][]int{{1, 2}, {1, 2, 3}}, got.Values())
}

func TestWatch_SlowSubscriberSeesLatest(t *testing.T) {
	c := NewSeeded(0)
	release := make(chan struct{})
	got := testutil.NewCollector[int]()

	sub := WatchAll(c, Comparable[int], func(v int) {
		got.Add(v)
		if v == 1 {
			<-release // block while many values are published
		}
	})
	defer sub.Cancel()

	c.Publish(1)
	require.Eventually(t, func() bool { return got.Len() == 2 }, waitFor, tick)
	for i := 2; i <= 100; i++ {
		c.Publish(i)
	}
	close(release)

	require.Eventually(t, func() bool {
		last, _ := got.Last()
		return last == 100
	}, waitFor, tick)
	assert.Less(t, got.Len(), 100, "intermediate values are conflated")

	vals := got.Values()
	for i := 1; i < len(vals); i++ {
		assert.Greater(t, vals[i], vals[i-1], "values are never observed out of order")
	}
}

func TestSubscription_CancelStopsDelivery(t *testing.T) {
	c := NewSeeded(0)
	got := testutil.NewCollector[int]()
	sub := WatchAll(c, nil, got.Add)

	c.Publish(1)
	require.Eventually(t, func() bool { return got.Len() == 2 }, waitFor, tick)

	sub.Cancel()
	observed := got.Len()
	c.Publish(2)
	c.Publish(3)

	// Give a misbehaving watcher a chance to deliver.
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, observed, got.Len())
	assert.True(t, sub.Cancelled())
	assert.Equal(t, 0, c.Subscribers(), "cursor released")
}

func TestSubscription_CancelIsIdempotent(t *testing.T) {
	c := NewSeeded(0)
	sub := WatchAll(c, nil, func(int) {})

	sub.Cancel()
	sub.Cancel()

	select {
	case <-sub.Done():
	default:
		t.Fatal("Done should be closed after Cancel")
	}

	var nilSub *Subscription
	nilSub.Cancel() // must not panic
	assert.False(t, nilSub.Cancelled())
	select {
	case <-nilSub.Done():
	default:
		t.Fatal("Done of a nil subscription should be closed")
	}
}

func TestSubscription_CancelDoesNotAffectOthers(t *testing.T) {
	c := NewSeeded(0)
	a := testutil.NewCollector[int]()
	b := testutil.NewCollector[int]()

	subA := WatchAll(c, nil, a.Add)
	subB := WatchAll(c, nil, b.Add)
	defer subB.Cancel()

	subA.Cancel()
	c.Publish(1)

	require.Eventually(t, func() bool { return b.Len() == 2 }, waitFor, tick)
	assert.Equal(t, []int{0}, a.Values())
	assert.Equal(t, 1, c.Subscribers())

	v, _ := c.Load()
	assert.Equal(t, 1, v, "cancelling never touches the cell")
}

func TestSubscription_CancelFromCallback(t *testing.T) {
	c := NewSeeded(0)
	got := testutil.NewCollector[int]()

	var sub *Subscription
	sub = WatchAll(c, nil, func(v int) {
		got.Add(v)
		if v == 1 {
			sub.Cancel()
		}
	})

	c.Publish(1)
	require.Eventually(t, sub.Cancelled, waitFor, tick)
	c.Publish(2)
	time.Sleep(20 * time.Millisecond)

	assert.Equal(t, []int{0, 1}, got.Values())
}

func TestWatch_PanickingCallbackDoesNotKillSubscription(t *testing.T) {
	c := NewSeeded(0)
	got := testutil.NewCollector[int]()

	sub := WatchAll(c, nil, func(v int) {
		if v == 1 {
			panic("boom")
		}
		got.Add(v)
	})
	defer sub.Cancel()

	c.Publish(1)
	time.Sleep(10 * time.Millisecond)
	c.Publish(2)

	require.Eventually(t, func() bool { return got.Len() == 2 }, waitFor, tick)
	assert.Equal(t, []int{0, 2}, got.Values())
}

func TestWatch_CloseDeliversFinalValueThenStops(t *testing.T) {
	c := NewSeeded(0)
	got := testutil.NewCollector[int]()
	sub := WatchAll(c, nil, got.Add)

	c.Publish(7)
	c.Close()

	require.Eventually(t, sub.Cancelled, waitFor, tick)
	last, ok := got.Last()
	require.True(t, ok)
	assert.Equal(t, 7, last)
}

func TestGroup_CancelAll(t *testing.T) {
	c := NewSeeded(0)
	var g Group

	a := g.Add(WatchAll(c, nil, func(int) {}))
	b := g.Add(WatchAll(c, nil, func(int) {}))
	assert.Equal(t, 2, g.Len())

	g.CancelAll()

	assert.True(t, a.Cancelled())
	assert.True(t, b.Cancelled())
	assert.Equal(t, 0, g.Len())
	assert.Equal(t, 0, c.Subscribers())
}
