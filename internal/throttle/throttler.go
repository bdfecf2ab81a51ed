// Package throttle implements a single rate-limited message channel: a deque
// of the last up-to-limit send timestamps, a FIFO overflow buffer or a drop
// callback, and a named, replaceable timer that drains the buffer once the
// oldest send in the window expires (spec §4.D). Grounded on the teacher's
// internal/exchange.TokenBucket (continuous-refill limiter guarding outbound
// HTTP calls), generalized from "block until a token is free" to the
// event-loop-native "buffer-or-drop now, re-drive later via a named timer"
// shape, since this engine never blocks its single thread on I/O.
package throttle

import (
	"container/list"
	"fmt"
	"time"

	"github.com/nautechsystems/nautilus-trader-sub010/internal/clock"
)

// Handler is invoked with a buffered or freshly-arrived message.
type Handler func(msg any)

// Throttler rate-limits a stream of typed messages to at most limit sends per
// interval, buffering (or dropping) the overflow.
type Throttler struct {
	name       string
	limit      int
	intervalNs int64
	clock      clock.Clock
	outputSend Handler
	outputDrop Handler // nil means "buffer instead of drop"

	sentTimes  *list.List // deque of int64 send timestamps, oldest first
	buffer     *list.List // FIFO of any, pending messages
	isLimiting bool
	timerName  string
}

// New constructs a Throttler named for its own timer (must be unique on the
// shared clock). outputDrop may be nil, in which case overflow is buffered
// rather than dropped.
func New(name string, limit int, interval time.Duration, clk clock.Clock, outputSend, outputDrop Handler) *Throttler {
	return &Throttler{
		name:       name,
		limit:      limit,
		intervalNs: interval.Nanoseconds(),
		clock:      clk,
		outputSend: outputSend,
		outputDrop: outputDrop,
		sentTimes:  list.New(),
		buffer:     list.New(),
		timerName:  fmt.Sprintf("throttler-%s-process", name),
	}
}

// Qsize returns the number of messages currently buffered.
func (t *Throttler) Qsize() int { return t.buffer.Len() }

// IsLimiting reports whether the throttler is currently rejecting immediate sends.
func (t *Throttler) IsLimiting() bool { return t.isLimiting }

// Used returns the fraction of the interval's capacity currently occupied, in
// [0, 1]. Below capacity it is simply the occupancy ratio; once the window is
// full it tracks how much of the interval the oldest slot has left to expire.
func (t *Throttler) Used() float64 {
	t.pruneExpired()
	if t.sentTimes.Len() < t.limit {
		return float64(t.sentTimes.Len()) / float64(t.limit)
	}
	oldest := t.sentTimes.Front().Value.(int64)
	remaining := oldest + t.intervalNs - t.clock.NowNs()
	if remaining <= 0 {
		return 0
	}
	frac := float64(remaining) / float64(t.intervalNs)
	if frac > 1 {
		frac = 1
	}
	return frac
}

// pruneExpired drops tracked send timestamps that have aged out of the
// window, so occupancy reflects only sends still within interval_ns.
func (t *Throttler) pruneExpired() {
	now := t.clock.NowNs()
	for t.sentTimes.Len() > 0 {
		front := t.sentTimes.Front().Value.(int64)
		if front > now-t.intervalNs {
			break
		}
		t.sentTimes.Remove(t.sentTimes.Front())
	}
}

// deltaNext returns the nanoseconds until the slot at position limit-1
// expires, i.e. how long until a send is admissible again. Zero or negative
// means a slot is free now.
func (t *Throttler) deltaNext() int64 {
	t.pruneExpired()
	if t.sentTimes.Len() < t.limit {
		return 0
	}
	oldest := t.sentTimes.Front().Value.(int64)
	return oldest + t.intervalNs - t.clock.NowNs()
}

// Send admits msg immediately if a slot is free and the throttler is not
// already limiting; otherwise it drops (if a drop handler is set) or buffers
// msg and arms the drain timer.
func (t *Throttler) Send(msg any) {
	delta := t.deltaNext()
	if t.isLimiting || delta > 0 {
		if t.outputDrop != nil {
			t.outputDrop(msg)
		} else {
			t.buffer.PushBack(msg)
		}
		t.isLimiting = true
		if delta < 0 {
			delta = 0
		}
		t.clock.SetTimeAlert(t.timerName, t.clock.NowNs()+delta, t.process)
		return
	}

	t.outputSend(msg)
	t.recordSend()
}

func (t *Throttler) recordSend() {
	t.pruneExpired()
	t.sentTimes.PushBack(t.clock.NowNs())
}

// process is the timer callback: drains the buffer by passing each item to
// outputSend, re-arming if the limit is hit again mid-drain. With a drop
// policy active there is nothing to drain — the timer only clears
// is_limiting.
func (t *Throttler) process(_ clock.TimeEvent) {
	if t.outputDrop != nil {
		t.isLimiting = false
		return
	}

	for t.buffer.Len() > 0 {
		if t.deltaNext() > 0 {
			// Still rate-limited; re-arm and stop draining for now.
			t.clock.SetTimeAlert(t.timerName, t.clock.NowNs()+t.deltaNext(), t.process)
			return
		}
		front := t.buffer.Remove(t.buffer.Front())
		t.outputSend(front)
		t.recordSend()
	}
	t.isLimiting = false
}

// Reset clears all throttler state: sent history, buffer, limiting flag, and
// cancels any armed timer.
func (t *Throttler) Reset() {
	t.sentTimes.Init()
	t.buffer.Init()
	t.isLimiting = false
	t.clock.CancelTimer(t.timerName)
}
