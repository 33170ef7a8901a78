package game

import "time"

// PeriodicTickerCreator lets tests substitute hand-driven tick channels.
type PeriodicTickerCreator interface {
	Create(d time.Duration) <-chan time.Time
}

type TickerGen struct{}

func NewTickerGen() TickerGen {
	return TickerGen{}
}

func (TickerGen) Create(d time.Duration) <-chan time.Time {
	return time.NewTicker(d).C
}
