package optimize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProgressTracker_Progress(t *testing.T) {
	pt := NewProgressTracker(4)

	completed, total, percent, _ := pt.Progress()
	assert.Equal(t, 0, completed)
	assert.Equal(t, 4, total)
	assert.Equal(t, 0.0, percent)

	pt.Increment()
	pt.Increment()
	completed, _, percent, _ = pt.Progress()
	assert.Equal(t, 2, completed)
	assert.Equal(t, 50.0, percent)
}

func TestProgressTracker_EstimateRemaining(t *testing.T) {
	pt := NewProgressTracker(4)
	assert.Equal(t, time.Duration(0), pt.EstimateRemaining(), "no pace before the first completion")

	// Two of four done in roughly four seconds leaves roughly four more.
	pt.startTime = time.Now().Add(-4 * time.Second)
	pt.Increment()
	pt.Increment()
	assert.InDelta(t, float64(4*time.Second), float64(pt.EstimateRemaining()), float64(time.Second))
}
