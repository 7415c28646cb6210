package config

import "fmt"

// Validate performs eager validation of configuration parameters. Invalid
// configuration is the only error category surfaced before any data is
// processed.
func (c *Config) Validate() error {
	if err := c.Navigator.Validate(); err != nil {
		return err
	}
	return c.Backtest.Validate()
}

// Validate checks the signal-generation parameters.
func (n *NavigatorConfig) Validate() error {
	if n.K < 1 {
		return fmt.Errorf("number of closest values must be at least 1, got: %d", n.K)
	}

	if n.SmoothingPeriod < 1 {
		return fmt.Errorf("smoothing period must be at least 1, got: %d", n.SmoothingPeriod)
	}

	if n.MALen < 1 {
		return fmt.Errorf("ma length must be at least 1, got: %d", n.MALen)
	}

	if n.WindowSize < n.K {
		return fmt.Errorf("window size must be at least k (%d), got: %d", n.K, n.WindowSize)
	}

	switch n.ValueSource {
	case SourceHL2, SourceSMA, SourceEMA, SourceWMA:
	default:
		return fmt.Errorf("unknown value source: %q (use hl2, sma, ema, wma)", n.ValueSource)
	}

	switch n.TargetSource {
	case TargetPriceAction, TargetSMA, TargetEMA:
	default:
		return fmt.Errorf("unknown target source: %q (use price_action, sma, ema)", n.TargetSource)
	}

	switch n.TieBreak {
	case TieBreakNearestBar, TieBreakOldestBar:
	default:
		return fmt.Errorf("unknown tie-break policy: %q (use nearest_bar, oldest_bar)", n.TieBreak)
	}

	return nil
}

// Validate checks the simulation and metric parameters.
func (b *BacktestConfig) Validate() error {
	if b.InitialCapital <= 0 {
		return fmt.Errorf("initial capital must be positive, got: %.2f", b.InitialCapital)
	}

	if b.TransactionCost < 0 || b.TransactionCost >= 1 {
		return fmt.Errorf("transaction cost must be in [0, 1), got: %.4f", b.TransactionCost)
	}

	switch b.ProfitFactorBasis {
	case ProfitFactorPerBar, ProfitFactorPerTrade:
	default:
		return fmt.Errorf("unknown profit factor basis: %q (use per_bar, per_trade)", b.ProfitFactorBasis)
	}

	if b.DaysPerYear <= 0 {
		return fmt.Errorf("days per year must be positive, got: %.2f", b.DaysPerYear)
	}

	if b.BarsPerYear <= 0 {
		return fmt.Errorf("bars per year must be positive, got: %.2f", b.BarsPerYear)
	}

	return nil
}
