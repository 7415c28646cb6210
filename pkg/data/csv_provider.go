package data

import (
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/trendnav/knn-navigator/pkg/types"
)

// CSVProvider implements Provider for local CSV candle files.
type CSVProvider struct {
	format CSVColumnMapping
}

// NewCSVProvider creates a CSV provider using the default column layout.
func NewCSVProvider() *CSVProvider {
	return &CSVProvider{format: DefaultCSVFormat}
}

// NewCSVProviderWithFormat creates a CSV provider with a custom column layout.
func NewCSVProviderWithFormat(format CSVColumnMapping) *CSVProvider {
	return &CSVProvider{format: format}
}

// GetName returns the name of the data provider.
func (p *CSVProvider) GetName() string {
	return "CSV Provider"
}

// LoadData reads the full candle series from filename. Malformed rows are
// logged and skipped; a missing file is an error, never a synthetic series.
func (p *CSVProvider) LoadData(filename string) ([]types.OHLCV, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open data file %s: %w", filename, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)

	// Skip header
	if _, err := reader.Read(); err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	var data []types.OHLCV

	lineNum := 1
	for {
		record, err := reader.Read()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("error reading CSV at line %d: %w", lineNum, err)
		}
		lineNum++

		if len(record) < p.format.MinColumns {
			log.Printf("⚠️ Insufficient columns at line %d (expected %d, got %d), skipping", lineNum, p.format.MinColumns, len(record))
			continue
		}

		timestamp, err := p.parseTimestamp(record[p.format.TimestampCol])
		if err != nil {
			log.Printf("⚠️ Invalid timestamp '%s' at line %d, skipping: %v", record[p.format.TimestampCol], lineNum, err)
			continue
		}

		open, err := strconv.ParseFloat(record[p.format.OpenCol], 64)
		if err != nil {
			log.Printf("⚠️ Invalid open price '%s' at line %d, skipping: %v", record[p.format.OpenCol], lineNum, err)
			continue
		}

		high, err := strconv.ParseFloat(record[p.format.HighCol], 64)
		if err != nil {
			log.Printf("⚠️ Invalid high price '%s' at line %d, skipping: %v", record[p.format.HighCol], lineNum, err)
			continue
		}

		low, err := strconv.ParseFloat(record[p.format.LowCol], 64)
		if err != nil {
			log.Printf("⚠️ Invalid low price '%s' at line %d, skipping: %v", record[p.format.LowCol], lineNum, err)
			continue
		}

		closePrice, err := strconv.ParseFloat(record[p.format.CloseCol], 64)
		if err != nil {
			log.Printf("⚠️ Invalid close price '%s' at line %d, skipping: %v", record[p.format.CloseCol], lineNum, err)
			continue
		}

		volume, err := strconv.ParseFloat(record[p.format.VolumeCol], 64)
		if err != nil {
			log.Printf("⚠️ Invalid volume '%s' at line %d, skipping: %v", record[p.format.VolumeCol], lineNum, err)
			continue
		}

		if open <= 0 || high <= 0 || low <= 0 || closePrice <= 0 {
			log.Printf("⚠️ Invalid price data (negative or zero) at line %d, skipping", lineNum)
			continue
		}

		if high < open || high < closePrice || high < low {
			log.Printf("⚠️ High price is lower than other prices at line %d, skipping", lineNum)
			continue
		}

		if low > open || low > closePrice {
			log.Printf("⚠️ Low price is higher than other prices at line %d, skipping", lineNum)
			continue
		}

		data = append(data, types.OHLCV{
			Timestamp: timestamp,
			Open:      open,
			High:      high,
			Low:       low,
			Close:     closePrice,
			Volume:    volume,
		})
	}

	return data, nil
}

// parseTimestamp accepts the configured layout or a raw epoch value in
// seconds or milliseconds, which exchange kline exports commonly use.
func (p *CSVProvider) parseTimestamp(raw string) (time.Time, error) {
	if ts, err := time.Parse(p.format.DateFormat, raw); err == nil {
		return ts, nil
	}

	epoch, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("timestamp matches neither %q nor epoch format", p.format.DateFormat)
	}
	if epoch > 1e12 {
		return time.UnixMilli(epoch).UTC(), nil
	}
	return time.Unix(epoch, 0).UTC(), nil
}

// ValidateData checks price sanity and chronological ordering of a loaded
// series. The backtest engine repeats the ordering check; failing here gives
// the caller a file-level error before any computation starts.
func (p *CSVProvider) ValidateData(data []types.OHLCV) error {
	if len(data) == 0 {
		return fmt.Errorf("no data provided")
	}

	for i, candle := range data {
		if candle.Open <= 0 || candle.High <= 0 || candle.Low <= 0 || candle.Close <= 0 {
			return fmt.Errorf("invalid price data at index %d: prices must be positive", i)
		}

		if candle.High < candle.Low {
			return fmt.Errorf("invalid price data at index %d: high (%.4f) cannot be less than low (%.4f)",
				i, candle.High, candle.Low)
		}

		if candle.High < candle.Open || candle.High < candle.Close {
			return fmt.Errorf("invalid price data at index %d: high (%.4f) must be >= open (%.4f) and close (%.4f)",
				i, candle.High, candle.Open, candle.Close)
		}

		if candle.Low > candle.Open || candle.Low > candle.Close {
			return fmt.Errorf("invalid price data at index %d: low (%.4f) must be <= open (%.4f) and close (%.4f)",
				i, candle.Low, candle.Open, candle.Close)
		}

		if i > 0 && !candle.Timestamp.After(data[i-1].Timestamp) {
			return fmt.Errorf("invalid timestamp sequence at index %d: timestamps must be strictly increasing", i)
		}
	}

	return nil
}
