package data

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trendnav/knn-navigator/pkg/types"
)

func writeTempCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "candles.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func makeBars(n int, step time.Duration) []types.OHLCV {
	bars := make([]types.OHLCV, n)
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := range bars {
		price := 100.0 + float64(i)
		bars[i] = types.OHLCV{
			Timestamp: start.Add(time.Duration(i) * step),
			Open:      price,
			High:      price + 1,
			Low:       price - 1,
			Close:     price,
			Volume:    10,
		}
	}
	return bars
}

func TestCSVProvider_LoadData(t *testing.T) {
	csv := `timestamp,open,high,low,close,volume
2024-03-01 00:00:00,100,101,99,100.5,1000
2024-03-01 01:00:00,100.5,102,100,101,1100
`
	provider := NewCSVProvider()
	bars, err := provider.LoadData(writeTempCSV(t, csv))
	require.NoError(t, err)
	require.Len(t, bars, 2)

	assert.Equal(t, 100.0, bars[0].Open)
	assert.Equal(t, 101.0, bars[1].Close)
	assert.Equal(t, time.Date(2024, 3, 1, 1, 0, 0, 0, time.UTC), bars[1].Timestamp)
}

func TestCSVProvider_SkipsMalformedRows(t *testing.T) {
	csv := `timestamp,open,high,low,close,volume
2024-03-01 00:00:00,100,101,99,100.5,1000
not-a-date,100,101,99,100.5,1000
2024-03-01 01:00:00,abc,102,100,101,1100
2024-03-01 02:00:00,100,90,99,100,1100
2024-03-01 03:00:00,100,101,99,100,1100
`
	provider := NewCSVProvider()
	bars, err := provider.LoadData(writeTempCSV(t, csv))
	require.NoError(t, err)

	// Bad timestamp, bad open and high < low rows are all dropped.
	require.Len(t, bars, 2)
	assert.Equal(t, time.Date(2024, 3, 1, 3, 0, 0, 0, time.UTC), bars[1].Timestamp)
}

func TestCSVProvider_EpochMillisTimestamps(t *testing.T) {
	ts := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	csv := fmt.Sprintf("timestamp,open,high,low,close,volume\n%d,100,101,99,100.5,1000\n", ts.UnixMilli())

	provider := NewCSVProvider()
	bars, err := provider.LoadData(writeTempCSV(t, csv))
	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.True(t, ts.Equal(bars[0].Timestamp))
}

func TestCSVProvider_MissingFileIsAnError(t *testing.T) {
	provider := NewCSVProvider()
	_, err := provider.LoadData(filepath.Join(t.TempDir(), "absent.csv"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open data file")
}

func TestCSVProvider_ValidateData(t *testing.T) {
	provider := NewCSVProvider()

	valid := makeBars(5, time.Hour)
	assert.NoError(t, provider.ValidateData(valid))

	assert.Error(t, provider.ValidateData(nil), "empty series")

	negative := makeBars(3, time.Hour)
	negative[1].Close = -1
	assert.Error(t, provider.ValidateData(negative))

	inverted := makeBars(3, time.Hour)
	inverted[2].High = inverted[2].Low - 1
	assert.Error(t, provider.ValidateData(inverted))

	duplicate := makeBars(3, time.Hour)
	duplicate[2].Timestamp = duplicate[1].Timestamp
	err := provider.ValidateData(duplicate)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "strictly increasing")
}

func TestDefaultFilter_FilterByPeriod(t *testing.T) {
	filter := NewDefaultFilter()
	bars := makeBars(48, time.Hour)

	trailing := filter.FilterByPeriod(bars, 12*time.Hour)
	require.Len(t, trailing, 13) // cutoff bar is inclusive
	assert.Equal(t, bars[35].Timestamp, trailing[0].Timestamp)

	assert.Len(t, filter.FilterByPeriod(bars, 0), 48, "zero period keeps everything")
	assert.Len(t, filter.FilterByPeriod(bars, 1000*time.Hour), 48)
}

func TestDefaultFilter_FilterByDateRange(t *testing.T) {
	filter := NewDefaultFilter()
	bars := makeBars(24, time.Hour)

	start := bars[6].Timestamp
	end := bars[10].Timestamp
	ranged := filter.FilterByDateRange(bars, start, end)

	require.Len(t, ranged, 5)
	assert.Equal(t, start, ranged[0].Timestamp)
	assert.Equal(t, end, ranged[4].Timestamp)
}

func TestDefaultFilter_ValidateTimeSequence(t *testing.T) {
	filter := NewDefaultFilter()

	assert.NoError(t, filter.ValidateTimeSequence(makeBars(10, time.Hour)))
	assert.NoError(t, filter.ValidateTimeSequence(nil))

	outOfOrder := makeBars(5, time.Hour)
	outOfOrder[2], outOfOrder[3] = outOfOrder[3], outOfOrder[2]
	assert.Error(t, filter.ValidateTimeSequence(outOfOrder))

	duplicated := makeBars(5, time.Hour)
	duplicated[3].Timestamp = duplicated[2].Timestamp
	err := filter.ValidateTimeSequence(duplicated)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate timestamp")
}

func TestDefaultFilter_SortAndDeduplicate(t *testing.T) {
	filter := NewDefaultFilter()
	bars := makeBars(6, time.Hour)

	shuffled := []types.OHLCV{bars[3], bars[0], bars[5], bars[1], bars[4], bars[2]}
	sorted := filter.SortByTimestamp(shuffled)
	assert.NoError(t, filter.ValidateTimeSequence(sorted))
	assert.Equal(t, bars[3], shuffled[0], "input must not be mutated")

	withDup := append([]types.OHLCV{}, bars...)
	withDup = append(withDup, bars[2])
	deduped := filter.RemoveDuplicates(filter.SortByTimestamp(withDup))
	require.Len(t, deduped, 6)
	// First occurrence wins.
	assert.Equal(t, bars[2].Close, deduped[2].Close)
}

// countingProvider wraps loads so the cache hit path is observable.
type countingProvider struct {
	bars  []types.OHLCV
	loads int
}

func (p *countingProvider) LoadData(string) ([]types.OHLCV, error) {
	p.loads++
	return p.bars, nil
}

func (p *countingProvider) ValidateData([]types.OHLCV) error { return nil }
func (p *countingProvider) GetName() string                  { return "Counting Provider" }

func TestCachedProvider_LoadsOncePerSource(t *testing.T) {
	inner := &countingProvider{bars: makeBars(10, time.Hour)}
	provider := NewCachedProvider(inner)

	first, err := provider.LoadData("series.csv")
	require.NoError(t, err)
	second, err := provider.LoadData("series.csv")
	require.NoError(t, err)

	assert.Equal(t, 1, inner.loads)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, provider.CacheSize())

	// Mutating a returned slice must not poison the cache.
	second[0].Close = -999
	third, err := provider.LoadData("series.csv")
	require.NoError(t, err)
	assert.Equal(t, first[0].Close, third[0].Close)

	provider.ClearCache()
	assert.Equal(t, 0, provider.CacheSize())
}

func TestDefaultLocator_ConvertIntervalToMinutes(t *testing.T) {
	locator := NewDefaultLocator()

	tests := map[string]string{
		"5":   "5",
		"5m":  "5",
		"1h":  "60",
		"4h":  "240",
		"1d":  "1440",
		"1w":  "10080",
		"xyz": "xyz",
	}
	for in, want := range tests {
		assert.Equal(t, want, locator.ConvertIntervalToMinutes(in), "interval %q", in)
	}
}

func TestDefaultLocator_FindDataFile(t *testing.T) {
	locator := NewDefaultLocator()
	root := t.TempDir()

	dir := filepath.Join(root, "bybit", "linear", "BTCUSDT", "60")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	path := filepath.Join(dir, "candles.csv")
	require.NoError(t, os.WriteFile(path, []byte("timestamp,open,high,low,close,volume\n"), 0o644))

	assert.Equal(t, path, locator.FindDataFile(root, "bybit", "btcusdt", "1h"))
	assert.Empty(t, locator.FindDataFile(root, "bybit", "ETHUSDT", "1h"))
}

func TestParseTrailingPeriod(t *testing.T) {
	tests := []struct {
		input string
		want  time.Duration
		ok    bool
	}{
		{"7d", 7 * 24 * time.Hour, true},
		{"30D", 30 * 24 * time.Hour, true},
		{"90days", 90 * 24 * time.Hour, true},
		{"168h", 168 * time.Hour, true},
		{"0d", 0, false},
		{"-3d", 0, false},
		{"d", 0, false},
		{"soon", 0, false},
	}

	for _, tt := range tests {
		got, ok := ParseTrailingPeriod(tt.input)
		assert.Equal(t, tt.ok, ok, "input %q", tt.input)
		if tt.ok {
			assert.Equal(t, tt.want, got, "input %q", tt.input)
		}
	}
}

func TestManager_LoadValidatesSeries(t *testing.T) {
	csv := `timestamp,open,high,low,close,volume
2024-03-01 01:00:00,100,101,99,100.5,1000
2024-03-01 00:00:00,100.5,102,100,101,1100
`
	manager := NewManager()
	_, err := manager.LoadHistoricalData(writeTempCSV(t, csv))
	require.Error(t, err, "out-of-order series must be rejected")
}
