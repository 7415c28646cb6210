// Package types holds the market-data values shared by every layer of the
// pipeline.
package types

import "time"

// OHLCV is a single candle. Timestamp is the bar open time.
type OHLCV struct {
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
	Timestamp time.Time
}

// HL2 returns the high/low midpoint of the bar.
func (o OHLCV) HL2() float64 {
	return (o.High + o.Low) / 2
}

// Ticker is a point-in-time price snapshot for a symbol.
type Ticker struct {
	Symbol    string
	Price     float64
	Volume    float64
	Timestamp time.Time
}
