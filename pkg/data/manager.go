package data

import (
	"strconv"
	"strings"
	"time"

	"github.com/trendnav/knn-navigator/pkg/types"
)

// Manager bundles a cached provider, filter and locator behind one entry
// point for the command-line tools.
type Manager struct {
	provider Provider
	filter   *DefaultFilter
	locator  Locator
}

// NewManager creates a manager with the default CSV provider and caching.
func NewManager() *Manager {
	return &Manager{
		provider: NewCachedProvider(NewCSVProvider()),
		filter:   NewDefaultFilter(),
		locator:  NewDefaultLocator(),
	}
}

// NewManagerWithProvider creates a manager around a custom provider.
func NewManagerWithProvider(provider Provider) *Manager {
	return &Manager{
		provider: provider,
		filter:   NewDefaultFilter(),
		locator:  NewDefaultLocator(),
	}
}

// LoadHistoricalData loads and validates the series at filename.
func (m *Manager) LoadHistoricalData(filename string) ([]types.OHLCV, error) {
	data, err := m.provider.LoadData(filename)
	if err != nil {
		return nil, err
	}
	if err := m.provider.ValidateData(data); err != nil {
		return nil, err
	}
	return data, nil
}

// FilterDataByPeriod keeps the trailing period of the series.
func (m *Manager) FilterDataByPeriod(data []types.OHLCV, period time.Duration) []types.OHLCV {
	return m.filter.FilterByPeriod(data, period)
}

// FindDataFile locates a candle file under dataRoot.
func (m *Manager) FindDataFile(dataRoot, exchange, symbol, interval string) string {
	return m.locator.FindDataFile(dataRoot, exchange, symbol, interval)
}

// Filter exposes the underlying filter for range and dedup operations.
func (m *Manager) Filter() *DefaultFilter {
	return m.filter
}

// ParseTrailingPeriod parses period strings like "7d", "30d" or any raw Go
// duration such as "168h".
func ParseTrailingPeriod(s string) (time.Duration, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if strings.HasSuffix(s, "days") {
		s = strings.TrimSuffix(s, "days") + "d"
	}
	if strings.HasSuffix(s, "d") {
		nStr := strings.TrimSuffix(s, "d")
		if nStr == "" {
			return 0, false
		}
		n, err := strconv.Atoi(nStr)
		if err != nil || n <= 0 {
			return 0, false
		}
		return time.Duration(n) * 24 * time.Hour, true
	}
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d, true
	}
	return 0, false
}
