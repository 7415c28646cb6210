package optimize

import (
	"sync"
	"time"
)

// ProgressTracker counts completed evaluations against the planned total.
type ProgressTracker struct {
	total     int
	completed int
	startTime time.Time
	mutex     sync.RWMutex
}

// NewProgressTracker creates a tracker for total planned evaluations.
func NewProgressTracker(total int) *ProgressTracker {
	return &ProgressTracker{
		total:     total,
		startTime: time.Now(),
	}
}

// Increment records one finished evaluation.
func (pt *ProgressTracker) Increment() {
	pt.mutex.Lock()
	defer pt.mutex.Unlock()
	pt.completed++
}

// Progress returns completed count, total, percent done and elapsed time.
func (pt *ProgressTracker) Progress() (int, int, float64, time.Duration) {
	pt.mutex.RLock()
	defer pt.mutex.RUnlock()

	percent := 0.0
	if pt.total > 0 {
		percent = float64(pt.completed) / float64(pt.total) * 100
	}
	return pt.completed, pt.total, percent, time.Since(pt.startTime)
}

// EstimateRemaining extrapolates the remaining time from the average pace.
func (pt *ProgressTracker) EstimateRemaining() time.Duration {
	pt.mutex.RLock()
	defer pt.mutex.RUnlock()

	if pt.completed == 0 {
		return 0
	}

	elapsed := time.Since(pt.startTime)
	avgPerItem := elapsed / time.Duration(pt.completed)
	return avgPerItem * time.Duration(pt.total-pt.completed)
}
