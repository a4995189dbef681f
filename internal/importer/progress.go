package importer

import (
	"sync"
	"time"
)

// Progress milestones, in percent.
const (
	progressStart     = 10
	progressValidated = 60
	progressCeiling   = 90
	progressDone      = 100
	progressStep      = 10
)

// ProgressFunc receives import progress as a percentage.
type ProgressFunc func(percent int)

// tracker reports monotonic progress. Reset is the only way down.
type tracker struct {
	report  ProgressFunc
	current int
	mu      sync.Mutex
}

func newTracker(report ProgressFunc) *tracker {
	return &tracker{report: report}
}

// advance moves progress to p if that is higher than the current value.
func (t *tracker) advance(p int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if p <= t.current {
		return
	}
	t.current = min(p, progressDone)
	t.emit()
}

// step adds one tick without passing the ceiling.
func (t *tracker) step() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current >= progressCeiling {
		return
	}
	t.current = min(t.current+progressStep, progressCeiling)
	t.emit()
}

func (t *tracker) reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.current = 0
	t.emit()
}

func (t *tracker) value() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

func (t *tracker) emit() {
	if t.report != nil {
		t.report(t.current)
	}
}

// validationProgress spreads row validation between the start and
// validated milestones.
func validationProgress(done, total int) int {
	if total == 0 {
		return progressValidated
	}
	return progressStart + (progressValidated-progressStart)*done/total
}

// tick steps t every interval until the returned stop function is called.
// stop waits for the ticking goroutine to exit.
func (t *tracker) tick(interval time.Duration) (stop func()) {
	if interval <= 0 {
		return func() {}
	}

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				t.step()
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(done)
			wg.Wait()
		})
	}
}
