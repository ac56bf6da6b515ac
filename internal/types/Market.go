/*

This file contains the rolling market state shared between the engine and the
target sizer: last observed prices, per-symbol return histories and per-pair
log-spread histories. Histories are append-only; lookback windows in the
computations do the effective pruning.

*/

package types

import "github.com/perpvault/pvm/internal/fixedpoint"

// PairKey identifies an ordered symbol pair for spread tracking.
type PairKey struct {
	A string
	B string
}

// MarketState accumulates observed market data over a run.
type MarketState struct {
	LastPrice map[string]float64
	Returns   map[string][]float64
	Spreads   map[PairKey][]float64
}

// NewMarketState creates an empty market state for the given symbols.
func NewMarketState(symbols []string) *MarketState {
	m := &MarketState{
		LastPrice: make(map[string]float64),
		Returns:   make(map[string][]float64, len(symbols)),
		Spreads:   make(map[PairKey][]float64),
	}
	for _, s := range symbols {
		m.Returns[s] = nil
	}
	return m
}

// AppendReturn records a realized per-step return for a symbol.
func (m *MarketState) AppendReturn(symbol string, ret float64) {
	m.Returns[symbol] = append(m.Returns[symbol], ret)
}

// AppendSpread records a log-spread observation for a pair and returns the
// updated history.
func (m *MarketState) AppendSpread(key PairKey, spread float64) []float64 {
	m.Spreads[key] = append(m.Spreads[key], spread)
	return m.Spreads[key]
}

// Regime is the directional stance of a pair trade.
type Regime string

const (
	RegimeNeutral Regime = "neutral"
	RegimeLong    Regime = "long"
	RegimeShort   Regime = "short"
)

// PairRegimeState is the mutable state of the pair-breakout state machine.
// Created once at simulation start in neutral and mutated once per rebalance
// evaluation; it persists for the lifetime of the run.
type PairRegimeState struct {
	Regime   Regime
	Hold     int
	EntryNAV fixedpoint.USD
}

// NewPairRegimeState returns the initial neutral state.
func NewPairRegimeState() PairRegimeState {
	return PairRegimeState{Regime: RegimeNeutral}
}
