package reindex

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// ProgressTracker reports rebuild progress to a writer at fixed intervals.
// A total of zero or less means the total is unknown; reports then carry a
// plain count instead of a percentage, and nothing caps the counter.
type ProgressTracker struct {
	writer         io.Writer
	total          int
	current        int
	reportInterval int
	lastReported   int
	startTime      time.Time
	started        bool
	mu             sync.Mutex
}

// NewProgressTracker creates a tracker writing to writer (typically
// os.Stderr) every reportInterval notes.
func NewProgressTracker(writer io.Writer, total, reportInterval int) *ProgressTracker {
	if reportInterval <= 0 {
		reportInterval = DefaultBatchSize
	}

	return &ProgressTracker{
		writer:         writer,
		total:          total,
		reportInterval: reportInterval,
	}
}

// Start begins tracking. Methods called before Start are no-ops.
func (p *ProgressTracker) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.startTime = time.Now()
	p.started = true
	p.current = 0
	p.lastReported = 0
}

// Update sets the current progress to the specified value.
func (p *ProgressTracker) Update(current int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return
	}

	p.current = current
	if p.total > 0 && p.current > p.total {
		p.current = p.total
	}

	p.maybeReport()
}

// Increment increases the current progress by delta.
func (p *ProgressTracker) Increment(delta int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return
	}

	p.current += delta
	if p.total > 0 && p.current > p.total {
		p.current = p.total
	}

	p.maybeReport()
}

// Finish prints the final progress line followed by a newline. With a known
// total the counter snaps to it first.
func (p *ProgressTracker) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return
	}

	if p.total > 0 {
		p.current = p.total
	}
	p.report()
	fmt.Fprintln(p.writer)
}

// Elapsed returns the time elapsed since Start was called.
func (p *ProgressTracker) Elapsed() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return 0
	}

	return time.Since(p.startTime)
}

// maybeReport prints when the counter crossed a report interval.
// Must be called with the lock held.
func (p *ProgressTracker) maybeReport() {
	if p.current-p.lastReported < p.reportInterval {
		return
	}

	p.report()
	p.lastReported = p.current
}

// report prints the current progress. Must be called with the lock held.
func (p *ProgressTracker) report() {
	elapsed := time.Since(p.startTime)
	rate := 0.0
	if elapsed > 0 {
		rate = float64(p.current) / elapsed.Seconds()
	}

	if p.total > 0 {
		percentage := float64(p.current) / float64(p.total) * 100.0
		fmt.Fprintf(p.writer, "\rProgress: %d/%d (%.1f%%) - %.1f notes/s",
			p.current, p.total, percentage, rate)
		return
	}

	fmt.Fprintf(p.writer, "\rProgress: %d notes - %.1f notes/s", p.current, rate)
}
