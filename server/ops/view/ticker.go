package view

import "time"

// Ticker drives animation frames and auto refresh.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type timeTicker struct {
	t *time.Ticker
}

func (t timeTicker) C() <-chan time.Time {
	return t.t.C
}

func (t timeTicker) Stop() {
	t.t.Stop()
}

func NewTicker(d time.Duration) Ticker {
	return timeTicker{t: time.NewTicker(d)}
}
