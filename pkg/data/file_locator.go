package data

import (
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// DefaultLocator implements Locator over the conventional layout written by
// fetch-data: data/{exchange}/{category}/{symbol}/{interval}/candles.csv.
type DefaultLocator struct{}

// NewDefaultLocator creates a new default locator.
func NewDefaultLocator() *DefaultLocator {
	return &DefaultLocator{}
}

// ConvertIntervalToMinutes normalizes interval strings like "5m", "1h", "4h"
// to minute numbers. Unknown formats pass through unchanged.
func (l *DefaultLocator) ConvertIntervalToMinutes(interval string) string {
	if _, err := strconv.Atoi(interval); err == nil {
		return interval
	}

	interval = strings.ToLower(strings.TrimSpace(interval))
	if len(interval) < 2 {
		return interval
	}

	num, err := strconv.Atoi(interval[:len(interval)-1])
	if err != nil {
		return interval
	}

	switch interval[len(interval)-1:] {
	case "m":
		return strconv.Itoa(num)
	case "h":
		return strconv.Itoa(num * 60)
	case "d":
		return strconv.Itoa(num * 24 * 60)
	case "w":
		return strconv.Itoa(num * 7 * 24 * 60)
	default:
		return interval
	}
}

// FindDataFile looks for a candle file under each category of the exchange,
// returning "" when none exists.
func (l *DefaultLocator) FindDataFile(dataRoot, exchange, symbol, interval string) string {
	symbol = strings.ToUpper(symbol)
	intervalMinutes := l.ConvertIntervalToMinutes(interval)

	var categories []string
	switch strings.ToLower(exchange) {
	case "bybit":
		categories = []string{"spot", "linear", "inverse"}
	default:
		categories = []string{"spot", "futures", "linear", "inverse"}
	}

	var attemptedPaths []string
	for _, category := range categories {
		path := filepath.Join(dataRoot, exchange, category, symbol, intervalMinutes, "candles.csv")
		attemptedPaths = append(attemptedPaths, path)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	log.Printf("⚠️ No data file found for %s %s %s in:", exchange, symbol, interval)
	for _, path := range attemptedPaths {
		log.Printf("   - %s", path)
	}

	return ""
}
