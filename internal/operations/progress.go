package operations

import (
	"math"
	"sync"
)

// ProgressTracker accumulates fractional progress and forwards whole
// percentages to a sink. The reported value never decreases and stays
// within 0..100.
type ProgressTracker struct {
	mu       sync.Mutex
	sink     ProgressSink
	value    float64
	reported int
}

// NewProgressTracker creates a tracker writing to sink.
func NewProgressTracker(sink ProgressSink) *ProgressTracker {
	if sink == nil {
		sink = SinkFunc{}
	}
	return &ProgressTracker{sink: sink, reported: -1}
}

// Set moves progress to percent. Lower values are ignored.
func (p *ProgressTracker) Set(percent float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if percent > p.value {
		p.value = percent
	}
	p.report()
}

// Add advances progress by delta.
func (p *ProgressTracker) Add(delta float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if delta > 0 {
		p.value += delta
	}
	p.report()
}

// Status forwards a status line.
func (p *ProgressTracker) Status(message string) {
	p.sink.Status(message)
}

// Percent is the last reported percentage.
func (p *ProgressTracker) Percent() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return max(p.reported, 0)
}

func (p *ProgressTracker) report() {
	whole := int(math.Floor(math.Min(p.value, 100) + 1e-9))
	if whole > p.reported {
		p.reported = whole
		p.sink.Progress(whole)
	}
}
