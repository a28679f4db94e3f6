package xmodem

import "time"

// Progress is the adapter through which a Session reports transfer status.
// Every method is called synchronously from Parse/OnTimeout; implementations
// that touch a UI must not block.
type Progress interface {
	OnPacket(n int)
	OnBytes(n int64)
	OnPercent(n int)
	OnElapsed(d time.Duration)
	SetProtoLabel(text string)
	SetFilename(text string)
}

// NoopProgress discards every callback. It is the default when no Progress
// adapter is configured.
type NoopProgress struct{}

func (NoopProgress) OnPacket(int)            {}
func (NoopProgress) OnBytes(int64)           {}
func (NoopProgress) OnPercent(int)           {}
func (NoopProgress) OnElapsed(time.Duration) {}
func (NoopProgress) SetProtoLabel(string)    {}
func (NoopProgress) SetFilename(string)      {}

// ProgressTracker is a convenience Progress implementation that forwards a
// combined (filename, transferred, total, percent, elapsed) update through a
// single callback, rate-limited to updateInterval. percent is the value last
// passed to OnPercent; no Progress method carries the file size, so total is
// always reported as 0. It is the library's analogue of
// the teacher's ProgressTracker, adapted to the Progress adapter contract
// instead of a single ad-hoc closure signature.
type ProgressTracker struct {
	callback       func(filename string, transferred, total int64, percent int, elapsed time.Duration)
	updateInterval time.Duration

	filename    string
	total       int64
	transferred int64
	percent     int
	start       time.Time
	lastUpdate  time.Time
}

// NewProgressTracker creates a ProgressTracker. If interval <= 0 it defaults
// to 100ms, matching the teacher's DefaultConfig.
func NewProgressTracker(callback func(filename string, transferred, total int64, percent int, elapsed time.Duration), interval time.Duration) *ProgressTracker {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	return &ProgressTracker{callback: callback, updateInterval: interval}
}

func (p *ProgressTracker) SetFilename(text string) {
	p.filename = text
	p.start = time.Now()
	p.lastUpdate = p.start
	p.transferred = 0
	p.percent = 0
}

func (p *ProgressTracker) SetProtoLabel(string) {}

func (p *ProgressTracker) OnPacket(int) {}

func (p *ProgressTracker) OnBytes(n int64) {
	p.transferred = n
	now := time.Now()
	if now.Sub(p.lastUpdate) < p.updateInterval {
		return
	}
	p.lastUpdate = now
	p.emit()
}

func (p *ProgressTracker) OnPercent(n int) { p.percent = n }

func (p *ProgressTracker) OnElapsed(time.Duration) {
	p.emit()
}

func (p *ProgressTracker) emit() {
	if p.callback == nil {
		return
	}
	p.callback(p.filename, p.transferred, p.total, p.percent, time.Since(p.start))
}
