package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// TieBreakPolicy selects which candidates survive when more bars than k
// share the k-th smallest distance. The replace-the-max scan only admits a
// candidate on a strictly smaller distance, so the scan direction decides the
// tie: scanning backward keeps the most recent bars, scanning forward keeps
// the oldest.
type TieBreakPolicy string

const (
	// TieBreakNearestBar keeps the most recent bars among equal-distance
	// candidates (the reference scan's behavior).
	TieBreakNearestBar TieBreakPolicy = "nearest_bar"
	// TieBreakOldestBar keeps the oldest bars among equal-distance
	// candidates (what an ascending partial sort over the window yields).
	TieBreakOldestBar TieBreakPolicy = "oldest_bar"
)

// ProfitFactorBasis selects the series the profit factor is computed from.
type ProfitFactorBasis string

const (
	ProfitFactorPerBar   ProfitFactorBasis = "per_bar"
	ProfitFactorPerTrade ProfitFactorBasis = "per_trade"
)

// Value/target source selectors for the navigator feature series.
const (
	SourceHL2 = "hl2"
	SourceSMA = "sma"
	SourceEMA = "ema"
	SourceWMA = "wma"

	TargetPriceAction = "price_action"
	TargetSMA         = "sma"
	TargetEMA         = "ema"
)

// Reference defaults carried over from the original indicator settings.
const (
	DefaultK               = 3
	DefaultSmoothingPeriod = 50
	DefaultWindowSize      = 30
	DefaultMALen           = 5
	DefaultTransactionCost = 0.001
	DefaultInitialCapital  = 10000.0
	DefaultDaysPerYear     = 365.25
	DefaultBarsPerYear     = 252.0
)

// NavigatorConfig holds the signal-generation parameters.
type NavigatorConfig struct {
	K               int            `json:"number_of_closest_values"`
	SmoothingPeriod int            `json:"smoothing_period"`
	WindowSize      int            `json:"window_size"`
	MALen           int            `json:"ma_len"`
	ValueSource     string         `json:"value_source"`
	TargetSource    string         `json:"target_source"`
	TieBreak        TieBreakPolicy `json:"tie_break"`
	PositivityGuard bool           `json:"positivity_guard"`
}

// BacktestConfig holds the simulation and metric parameters.
type BacktestConfig struct {
	InitialCapital    float64           `json:"initial_capital"`
	TransactionCost   float64           `json:"transaction_cost"`
	ProfitFactorBasis ProfitFactorBasis `json:"profit_factor_basis"`

	// DaysPerYear drives the annualized-return exponent. The exponent divides
	// it by the bar count, which treats bars as calendar days; with non-daily
	// bars both values must be recalibrated by the caller.
	DaysPerYear float64 `json:"days_per_year"`
	// BarsPerYear scales the Sortino ratio.
	BarsPerYear float64 `json:"bars_per_year"`
}

// Config is the full configuration surface of a run.
type Config struct {
	Symbol    string          `json:"symbol"`
	Interval  string          `json:"interval"`
	DataFile  string          `json:"data_file"`
	Navigator NavigatorConfig `json:"navigator"`
	Backtest  BacktestConfig  `json:"backtest"`
}

// DefaultConfig returns a configuration with the reference defaults applied.
func DefaultConfig() *Config {
	return &Config{
		Symbol:   "BTCUSDT",
		Interval: "1d",
		Navigator: NavigatorConfig{
			K:               DefaultK,
			SmoothingPeriod: DefaultSmoothingPeriod,
			WindowSize:      DefaultWindowSize,
			MALen:           DefaultMALen,
			ValueSource:     SourceHL2,
			TargetSource:    TargetPriceAction,
			TieBreak:        TieBreakNearestBar,
			PositivityGuard: false,
		},
		Backtest: BacktestConfig{
			InitialCapital:    DefaultInitialCapital,
			TransactionCost:   DefaultTransactionCost,
			ProfitFactorBasis: ProfitFactorPerBar,
			DaysPerYear:       DefaultDaysPerYear,
			BarsPerYear:       DefaultBarsPerYear,
		},
	}
}

// LoadConfig reads a JSON configuration file on top of the defaults and
// validates the result.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := json.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes the configuration as indented JSON.
func (c *Config) Save(path string) error {
	raw, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return os.WriteFile(path, raw, 0644)
}
