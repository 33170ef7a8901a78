package game

import "time"

// The answer window is fixed: 3 seconds, ticked out to clients every 100ms.
const (
	answerWindow  = 3 * time.Second
	countdownTick = 100 * time.Millisecond
)

// countdown is the running answer timer for the active question. It is plain
// state advanced by handleTick inside the lobby goroutine, never a separate
// timer goroutine, so cancelling it is a field write and a timer that has
// been superseded simply no longer exists to fire. The seq ties it to the
// question it was started for.
type countdown struct {
	targetID string
	seq      uint64
	total    time.Duration
	endsAt   time.Time
	lastTick time.Time
}

func (c *countdown) remaining(now time.Time) time.Duration {
	r := c.endsAt.Sub(now)
	if r < 0 {
		return 0
	}
	return r
}

// startCountdown opens the answer window for the active question.
func (l *Lobby) startCountdown(now time.Time) {
	l.countdown = &countdown{
		targetID: l.active.targetID,
		seq:      l.active.seq,
		total:    answerWindow,
		endsAt:   now.Add(answerWindow),
		lastTick: now,
	}
	l.broadcast(makeTimerUpdate(answerWindow, answerWindow, l.active.targetID))
}

// stopCountdown cancels a running answer timer, telling clients to drop the
// bar. Safe to call when no countdown is running.
func (l *Lobby) stopCountdown() {
	if l.countdown == nil {
		return
	}
	l.countdown = nil
	l.broadcast(makeTimerStop())
}
