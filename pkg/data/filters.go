package data

import (
	"fmt"
	"sort"
	"time"

	"github.com/trendnav/knn-navigator/pkg/types"
)

// DefaultFilter implements Filter for common series operations.
type DefaultFilter struct{}

// NewDefaultFilter creates a new default filter.
func NewDefaultFilter() *DefaultFilter {
	return &DefaultFilter{}
}

// FilterByPeriod keeps the trailing period of the series, measured back from
// the newest candle.
func (f *DefaultFilter) FilterByPeriod(data []types.OHLCV, period time.Duration) []types.OHLCV {
	if period <= 0 || len(data) == 0 {
		return data
	}

	cutoff := data[len(data)-1].Timestamp.Add(-period)

	startIdx := len(data)
	for i, candle := range data {
		if !candle.Timestamp.Before(cutoff) {
			startIdx = i
			break
		}
	}

	return data[startIdx:]
}

// FilterByDateRange keeps candles within [start, end] inclusive.
func (f *DefaultFilter) FilterByDateRange(data []types.OHLCV, start, end time.Time) []types.OHLCV {
	var filtered []types.OHLCV
	for _, candle := range data {
		if !candle.Timestamp.Before(start) && !candle.Timestamp.After(end) {
			filtered = append(filtered, candle)
		}
	}
	return filtered
}

// ValidateTimeSequence rejects series whose timestamps are not strictly
// increasing. The signal pipeline depends on bar order, so duplicates are an
// error rather than a repair.
func (f *DefaultFilter) ValidateTimeSequence(data []types.OHLCV) error {
	for i := 1; i < len(data); i++ {
		if data[i].Timestamp.Before(data[i-1].Timestamp) {
			return fmt.Errorf("data not in chronological order at index %d: %s comes after %s",
				i, data[i].Timestamp.Format(time.RFC3339), data[i-1].Timestamp.Format(time.RFC3339))
		}
		if data[i].Timestamp.Equal(data[i-1].Timestamp) {
			return fmt.Errorf("duplicate timestamp at index %d: %s",
				i, data[i].Timestamp.Format(time.RFC3339))
		}
	}
	return nil
}

// SortByTimestamp returns a chronologically sorted copy of the series.
func (f *DefaultFilter) SortByTimestamp(data []types.OHLCV) []types.OHLCV {
	sorted := make([]types.OHLCV, len(data))
	copy(sorted, data)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})
	return sorted
}

// RemoveDuplicates drops candles whose timestamp repeats an earlier one,
// keeping the first occurrence.
func (f *DefaultFilter) RemoveDuplicates(data []types.OHLCV) []types.OHLCV {
	if len(data) <= 1 {
		return data
	}

	filtered := make([]types.OHLCV, 0, len(data))
	seen := make(map[int64]bool, len(data))
	for _, candle := range data {
		key := candle.Timestamp.UnixNano()
		if seen[key] {
			continue
		}
		seen[key] = true
		filtered = append(filtered, candle)
	}
	return filtered
}
