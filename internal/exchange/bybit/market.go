package bybit

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	bybit_api "github.com/bybit-exchange/bybit.go.api"

	"github.com/trendnav/knn-navigator/pkg/types"
)

// KlineInterval represents the time interval for kline data.
type KlineInterval string

const (
	Interval1m  KlineInterval = "1"
	Interval3m  KlineInterval = "3"
	Interval5m  KlineInterval = "5"
	Interval15m KlineInterval = "15"
	Interval30m KlineInterval = "30"
	Interval1h  KlineInterval = "60"
	Interval2h  KlineInterval = "120"
	Interval4h  KlineInterval = "240"
	Interval6h  KlineInterval = "360"
	Interval12h KlineInterval = "720"
	Interval1d  KlineInterval = "D"
	Interval1w  KlineInterval = "W"
)

// ParseInterval converts common interval spellings ("1h", "4h", "60") to the
// API's interval codes.
func ParseInterval(s string) (KlineInterval, error) {
	known := map[string]KlineInterval{
		"1m": Interval1m, "3m": Interval3m, "5m": Interval5m,
		"15m": Interval15m, "30m": Interval30m,
		"1h": Interval1h, "2h": Interval2h, "4h": Interval4h,
		"6h": Interval6h, "12h": Interval12h,
		"1d": Interval1d, "1w": Interval1w,
	}
	if iv, ok := known[s]; ok {
		return iv, nil
	}
	// Raw API codes pass through.
	for _, iv := range known {
		if string(iv) == s {
			return iv, nil
		}
	}
	return "", fmt.Errorf("unsupported interval: %q", s)
}

// Duration returns the bar length of the interval.
func (i KlineInterval) Duration() time.Duration {
	switch i {
	case Interval1d:
		return 24 * time.Hour
	case Interval1w:
		return 7 * 24 * time.Hour
	default:
		minutes, _ := strconv.Atoi(string(i))
		return time.Duration(minutes) * time.Minute
	}
}

// Kline represents a single candlestick.
type Kline struct {
	StartTime  time.Time
	OpenPrice  float64
	HighPrice  float64
	LowPrice   float64
	ClosePrice float64
	Volume     float64
	Turnover   float64
}

// OHLCV converts the kline into the pipeline's candle type.
func (k Kline) OHLCV() types.OHLCV {
	return types.OHLCV{
		Timestamp: k.StartTime,
		Open:      k.OpenPrice,
		High:      k.HighPrice,
		Low:       k.LowPrice,
		Close:     k.ClosePrice,
		Volume:    k.Volume,
	}
}

// KlineParams holds parameters for one kline request.
type KlineParams struct {
	Category string        // "spot", "linear", "inverse"
	Symbol   string        // e.g. "BTCUSDT"
	Interval KlineInterval
	Start    *time.Time
	End      *time.Time
	Limit    int // max 1000, default 200
}

// GetKlines fetches one page of candlestick data.
func (c *Client) GetKlines(ctx context.Context, params KlineParams) ([]Kline, error) {
	if params.Category == "" {
		params.Category = "spot"
	}
	if params.Limit == 0 {
		params.Limit = 200
	}
	if params.Limit > 1000 {
		params.Limit = 1000
	}

	reqParams := map[string]interface{}{
		"category": params.Category,
		"symbol":   params.Symbol,
		"interval": string(params.Interval),
		"limit":    params.Limit,
	}
	if params.Start != nil {
		reqParams["start"] = params.Start.UnixMilli()
	}
	if params.End != nil {
		reqParams["end"] = params.End.UnixMilli()
	}

	result, err := c.httpClient.NewUtaBybitServiceWithParams(reqParams).GetMarketKline(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get klines: %w", err)
	}

	klines, err := parseKlineResponse(result)
	if err != nil {
		return nil, fmt.Errorf("failed to parse kline response: %w", err)
	}
	return klines, nil
}

// fetchPageFunc requests one newest-first kline page covering [start, end].
type fetchPageFunc func(ctx context.Context, start, end time.Time) ([]Kline, error)

// FetchKlineHistory downloads the full [start, end) candle range, paging
// through the API's per-request limit. The result is chronological and
// deduplicated; each page is retried on transient failures.
func (c *Client) FetchKlineHistory(ctx context.Context, params KlineParams, start, end time.Time) ([]types.OHLCV, error) {
	if !start.Before(end) {
		return nil, fmt.Errorf("start %s must be before end %s", start, end)
	}
	params.Limit = 1000

	fetch := func(ctx context.Context, winStart, winEnd time.Time) ([]Kline, error) {
		p := params
		p.Start, p.End = &winStart, &winEnd

		var page []Kline
		err := c.Retry(ctx, func() error {
			var reqErr error
			page, reqErr = c.GetKlines(ctx, p)
			return reqErr
		})
		if err != nil {
			return nil, WrapAPIError(fmt.Sprintf("fetch %s %s history", params.Symbol, params.Interval), err)
		}
		return page, nil
	}

	return pageKlineHistory(ctx, fetch, start, end)
}

// pageKlineHistory walks backward from end, using the oldest bar of each page
// to move the end cursor. The API returns the newest bars of the requested
// window first, capped at the page limit, so paging forward from start would
// return only the trailing pages of a wide range.
func pageKlineHistory(ctx context.Context, fetch fetchPageFunc, start, end time.Time) ([]types.OHLCV, error) {
	var bars []types.OHLCV
	cursor := end

	for cursor.After(start) {
		page, err := fetch(ctx, start, cursor)
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			break
		}

		oldest := page[0].StartTime
		for _, k := range page {
			if k.StartTime.Before(oldest) {
				oldest = k.StartTime
			}
			if k.StartTime.Before(start) || !k.StartTime.Before(end) {
				continue
			}
			bars = append(bars, k.OHLCV())
		}

		if !oldest.After(start) {
			break
		}
		// The end parameter is inclusive; ask for strictly older bars next.
		cursor = oldest.Add(-time.Millisecond)
	}

	sort.Slice(bars, func(a, b int) bool {
		return bars[a].Timestamp.Before(bars[b].Timestamp)
	})
	deduped := bars[:0]
	for _, b := range bars {
		if n := len(deduped); n > 0 && b.Timestamp.Equal(deduped[n-1].Timestamp) {
			continue
		}
		deduped = append(deduped, b)
	}
	return deduped, nil
}

// GetLatestTicker gets the latest price snapshot for a symbol.
func (c *Client) GetLatestTicker(ctx context.Context, category, symbol string) (types.Ticker, error) {
	if category == "" {
		category = "spot"
	}

	params := map[string]interface{}{
		"category": category,
		"symbol":   symbol,
	}

	result, err := c.httpClient.NewUtaBybitServiceWithParams(params).GetMarketTickers(ctx)
	if err != nil {
		return types.Ticker{}, fmt.Errorf("failed to get latest price: %w", err)
	}

	ticker, err := parseTickerResponse(result)
	if err != nil {
		return types.Ticker{}, fmt.Errorf("failed to parse ticker response: %w", err)
	}
	return ticker, nil
}

func parseKlineResponse(response interface{}) ([]Kline, error) {
	serverResp, ok := response.(*bybit_api.ServerResponse)
	if !ok {
		return nil, fmt.Errorf("invalid response type")
	}
	if err := ParseAPIError(serverResp.RetCode, serverResp.RetMsg); err != nil {
		return nil, err
	}

	resultBytes, err := json.Marshal(serverResp.Result)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}

	var klineResult struct {
		Symbol   string     `json:"symbol"`
		Category string     `json:"category"`
		List     [][]string `json:"list"`
	}
	if err := json.Unmarshal(resultBytes, &klineResult); err != nil {
		return nil, fmt.Errorf("failed to unmarshal kline result: %w", err)
	}

	var klines []Kline
	for _, item := range klineResult.List {
		// Format: [startTime, open, high, low, close, volume, turnover]
		if len(item) < 7 {
			continue
		}
		klines = append(klines, Kline{
			StartTime:  time.UnixMilli(parseInt64(item[0])).UTC(),
			OpenPrice:  parseFloat64(item[1]),
			HighPrice:  parseFloat64(item[2]),
			LowPrice:   parseFloat64(item[3]),
			ClosePrice: parseFloat64(item[4]),
			Volume:     parseFloat64(item[5]),
			Turnover:   parseFloat64(item[6]),
		})
	}
	return klines, nil
}

func parseTickerResponse(response interface{}) (types.Ticker, error) {
	serverResp, ok := response.(*bybit_api.ServerResponse)
	if !ok {
		return types.Ticker{}, fmt.Errorf("invalid response type")
	}
	if err := ParseAPIError(serverResp.RetCode, serverResp.RetMsg); err != nil {
		return types.Ticker{}, err
	}

	resultBytes, err := json.Marshal(serverResp.Result)
	if err != nil {
		return types.Ticker{}, fmt.Errorf("failed to marshal result: %w", err)
	}

	var tickerResult struct {
		Category string `json:"category"`
		List     []struct {
			Symbol    string `json:"symbol"`
			LastPrice string `json:"lastPrice"`
			Volume24h string `json:"volume24h"`
		} `json:"list"`
	}
	if err := json.Unmarshal(resultBytes, &tickerResult); err != nil {
		return types.Ticker{}, fmt.Errorf("failed to unmarshal ticker result: %w", err)
	}
	if len(tickerResult.List) == 0 {
		return types.Ticker{}, fmt.Errorf("no ticker data found")
	}

	raw := tickerResult.List[0]
	return types.Ticker{
		Symbol:    raw.Symbol,
		Price:     parseFloat64(raw.LastPrice),
		Volume:    parseFloat64(raw.Volume24h),
		Timestamp: time.UnixMilli(serverResp.Time).UTC(),
	}, nil
}

func parseFloat64(s string) float64 {
	if s == "" {
		return 0
	}
	f, _ := strconv.ParseFloat(s, 64)
	return f
}

func parseInt64(s string) int64 {
	if s == "" {
		return 0
	}
	i, _ := strconv.ParseInt(s, 10, 64)
	return i
}
