/*

This file contains the engine configuration: the guardrail caps, cost model and
rebalance cadence applied to every backtest or live run.

*/

package types

import (
	"errors"
	"fmt"
	"math"
)

// DefaultSymbolKey is the fallback key in PerSymbolMaxUSD when a symbol has no
// explicit cap entry.
const DefaultSymbolKey = "default"

// Error definitions for configuration validation. Validation failures are fatal
// before any simulation state mutates.
var (
	ErrNegativeCap       = errors.New("cap value cannot be negative")
	ErrMissingDefaultCap = errors.New("perSymbolMaxUSD must contain a \"default\" entry")
	ErrInvalidLeverage   = errors.New("leverage must be positive and finite")
)

// Config holds the guardrail and cost parameters for the rebalance engine.
type Config struct {
	// TurnoverCapBps limits gross turnover per rebalance to this fraction of NAV.
	TurnoverCapBps int64 `json:"turnoverCapBps"`
	// MaxNetDeltaUSD is the largest tolerated absolute net exposure before the
	// centering guard shifts all targets.
	MaxNetDeltaUSD float64 `json:"maxNetDeltaUSD"`
	// PerSymbolMaxUSD caps the absolute target notional per symbol. Resolution
	// falls back to the "default" entry when a symbol has no explicit cap.
	PerSymbolMaxUSD map[string]float64 `json:"perSymbolMaxUSD"`
	// CooldownSeconds is the minimum spacing between executed rebalances.
	CooldownSeconds int64 `json:"cooldownSeconds"`
	// FeeBps is the taker fee charged on gross turnover at each rebalance.
	FeeBps float64 `json:"feeBps"`
	// SlipBps is the modeled slippage charged on gross turnover, on top of FeeBps.
	SlipBps float64 `json:"slipBps"`
	// Leverage scales the long and short buckets (gross leverage is roughly
	// 2*Leverage of NAV for a long/short book).
	Leverage float64 `json:"leverage"`
	// RebalanceThresholdBps skips rebalances whose gross turnover, in bps of NAV,
	// falls below this threshold.
	RebalanceThresholdBps float64 `json:"rebalanceThresholdBps"`
}

// DefaultConfig mirrors the production defaults used when a field is absent
// from the config file.
func DefaultConfig() Config {
	return Config{
		TurnoverCapBps:        1000,
		MaxNetDeltaUSD:        50_000,
		PerSymbolMaxUSD:       map[string]float64{DefaultSymbolKey: 250_000},
		CooldownSeconds:       3600,
		FeeBps:                5.0,
		SlipBps:               10.0,
		Leverage:              1.0,
		RebalanceThresholdBps: 0.0,
	}
}

// SymbolCapUSD resolves the per-symbol cap, falling back to the default entry.
func (c Config) SymbolCapUSD(symbol string) float64 {
	if cap, ok := c.PerSymbolMaxUSD[symbol]; ok {
		return cap
	}
	return c.PerSymbolMaxUSD[DefaultSymbolKey]
}

// Validate rejects malformed configurations before any simulation step runs.
func (c Config) Validate() error {
	if c.TurnoverCapBps < 0 {
		return fmt.Errorf("%w: turnoverCapBps=%d", ErrNegativeCap, c.TurnoverCapBps)
	}
	if c.MaxNetDeltaUSD < 0 {
		return fmt.Errorf("%w: maxNetDeltaUSD=%f", ErrNegativeCap, c.MaxNetDeltaUSD)
	}
	if c.FeeBps < 0 || c.SlipBps < 0 {
		return fmt.Errorf("%w: feeBps=%f slipBps=%f", ErrNegativeCap, c.FeeBps, c.SlipBps)
	}
	if c.RebalanceThresholdBps < 0 {
		return fmt.Errorf("%w: rebalanceThresholdBps=%f", ErrNegativeCap, c.RebalanceThresholdBps)
	}
	if c.Leverage <= 0 || math.IsNaN(c.Leverage) || math.IsInf(c.Leverage, 0) {
		return fmt.Errorf("%w: leverage=%f", ErrInvalidLeverage, c.Leverage)
	}
	if _, ok := c.PerSymbolMaxUSD[DefaultSymbolKey]; !ok {
		return ErrMissingDefaultCap
	}
	for sym, cap := range c.PerSymbolMaxUSD {
		if cap < 0 {
			return fmt.Errorf("%w: perSymbolMaxUSD[%s]=%f", ErrNegativeCap, sym, cap)
		}
	}
	return nil
}
