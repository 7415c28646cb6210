// Package data loads, validates and filters historical candle series for the
// navigator pipeline. Providers are pluggable; the CSV provider covers local
// files and the exchange client feeds the same format through fetch-data.
package data

import (
	"time"

	"github.com/trendnav/knn-navigator/pkg/types"
)

// Provider loads historical candles from a source (file path, URL, ...).
type Provider interface {
	// LoadData loads the full candle series from the given source.
	LoadData(source string) ([]types.OHLCV, error)

	// ValidateData checks the integrity of a loaded series.
	ValidateData(data []types.OHLCV) error

	// GetName identifies the provider in log output.
	GetName() string
}

// Cache stores loaded series keyed by source so repeated sweeps over the
// same file do not re-read it.
type Cache interface {
	Get(key string) ([]types.OHLCV, bool)
	Set(key string, data []types.OHLCV)
	Clear()
	Size() int
}

// Filter narrows and repairs candle series before they reach the navigator.
type Filter interface {
	// FilterByPeriod keeps only the trailing period of the series.
	FilterByPeriod(data []types.OHLCV, period time.Duration) []types.OHLCV

	// FilterByDateRange keeps candles within [start, end] inclusive.
	FilterByDateRange(data []types.OHLCV, start, end time.Time) []types.OHLCV

	// ValidateTimeSequence rejects out-of-order or duplicate timestamps.
	ValidateTimeSequence(data []types.OHLCV) error
}

// Locator resolves candle files under a conventional data directory layout.
type Locator interface {
	// FindDataFile locates a candle file for an exchange, symbol and
	// interval, returning "" when none exists.
	FindDataFile(dataRoot, exchange, symbol, interval string) string

	// ConvertIntervalToMinutes normalizes "5m", "1h", "4h" style intervals
	// to the minute-number directory names used on disk.
	ConvertIntervalToMinutes(interval string) string
}

// CSVColumnMapping defines column positions and the timestamp layout of a
// candle CSV file.
type CSVColumnMapping struct {
	TimestampCol int
	OpenCol      int
	HighCol      int
	LowCol       int
	CloseCol     int
	VolumeCol    int
	MinColumns   int
	DateFormat   string
}

// DefaultCSVFormat matches the files written by the fetch-data command:
// timestamp,open,high,low,close,volume with second-resolution timestamps.
var DefaultCSVFormat = CSVColumnMapping{
	TimestampCol: 0,
	OpenCol:      1,
	HighCol:      2,
	LowCol:       3,
	CloseCol:     4,
	VolumeCol:    5,
	MinColumns:   6,
	DateFormat:   "2006-01-02 15:04:05",
}
