package xmodem

import "time"

// Clock is the adapter a Session uses for timing. The engine arms exactly
// one deadline at a time (spec.md 3 invariants); the external scheduler is
// responsible for calling Session.OnTimeout once NowMS() has passed the
// most recently armed deadline.
type Clock interface {
	NowMS() int64
	ArmDeadline(ms int64)
}

// wallClock is the default Clock: real time, with the armed deadline simply
// recorded for the scheduler to poll. It performs no sleeping or timers of
// its own, keeping the engine single-threaded and cooperative.
type wallClock struct {
	deadline int64
}

func newWallClock() *wallClock {
	return &wallClock{}
}

func (c *wallClock) NowMS() int64 {
	return time.Now().UnixMilli()
}

func (c *wallClock) ArmDeadline(ms int64) {
	c.deadline = c.NowMS() + ms
}

// Deadline returns the absolute deadline (ms since epoch) most recently
// armed. Exposed so an external scheduler built around wallClock can poll it.
func (c *wallClock) Deadline() int64 {
	return c.deadline
}

// WallClock is the exported form of the default Clock, for schedulers (e.g.
// a CLI's poll loop) that need to check the armed deadline themselves instead
// of relying on a Go timer.
type WallClock struct {
	*wallClock
}

// NewWallClock creates a WallClock. NewSession uses one internally by
// default; callers only need this when they must poll Deadline() themselves.
func NewWallClock() *WallClock {
	return &WallClock{newWallClock()}
}
