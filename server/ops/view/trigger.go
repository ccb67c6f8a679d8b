package view

import (
	"context"
	"sync"
	"time"
)

// DefaultRefreshInterval is the auto refresh period when none is set.
const DefaultRefreshInterval = time.Minute

// Trigger is a value that changes whenever the map data should be
// refetched, either on demand or on an interval.
type Trigger struct {
	now func() time.Time

	mu    sync.Mutex
	value int64
	subs  map[int]chan int64
	next  int
}

func NewTrigger() *Trigger {
	return &Trigger{
		now:  time.Now,
		subs: make(map[int]chan int64),
	}
}

func (t *Trigger) Value() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.value
}

// Manual changes the value and notifies subscribers.
func (t *Trigger) Manual() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	v := t.now().UnixMilli()
	if v <= t.value {
		v = t.value + 1
	}
	t.value = v
	for _, c := range t.subs {
		// Subscribers only care about the latest value.
		select {
		case <-c:
		default:
		}
		c <- v
	}
	return v
}

// Subscribe returns a channel receiving each new value, skipping values
// the subscriber was too slow to read.
func (t *Trigger) Subscribe() (<-chan int64, func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	c := make(chan int64, 1)
	id := t.next
	t.next++
	t.subs[id] = c
	return c, func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		delete(t.subs, id)
	}
}

// AutoRefresh calls Manual every interval until ctx is done.
func (t *Trigger) AutoRefresh(ctx context.Context, interval time.Duration, newTicker func(time.Duration) Ticker) {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	if newTicker == nil {
		newTicker = NewTicker
	}
	tick := newTicker(interval)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C():
			t.Manual()
		}
	}
}
