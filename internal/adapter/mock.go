package adapter

import (
	"fmt"
	"math"
)

// Mock is an offline, in-memory venue with fixed quotes and a tiered slippage
// model. It also implements PriceNudger for demo runs.
type Mock struct {
	Prices     map[string]float64
	FundingBps map[string]float64
	Positions  map[string]float64
	CashUSD    float64
}

// NewMock seeds the venue with the standard demo book: a long BTC / short ETH
// inventory against 10k of cash.
func NewMock() *Mock {
	return &Mock{
		Prices:     map[string]float64{"BTC": 60_000.0, "ETH": 2_400.0},
		FundingBps: map[string]float64{"BTC": 4.0, "ETH": -5.0},
		Positions:  map[string]float64{"BTC": 10_800.0, "ETH": -7_920.0},
		CashUSD:    10_000.0,
	}
}

func (m *Mock) GetPrices() (map[string]float64, error) {
	out := make(map[string]float64, len(m.Prices))
	for s, p := range m.Prices {
		out[s] = p
	}
	return out, nil
}

func (m *Mock) GetFundingRates() (map[string]float64, error) {
	out := make(map[string]float64, len(m.FundingBps))
	for s, f := range m.FundingBps {
		out[s] = f
	}
	return out, nil
}

// EstimateSlippageBps models depth with fixed notional tiers.
func (m *Mock) EstimateSlippageBps(symbol string, deltaUSD float64) (int, error) {
	a := math.Abs(deltaUSD)
	switch {
	case a <= 1_000:
		return 5, nil
	case a <= 5_000:
		return 12, nil
	case a <= 20_000:
		return 25, nil
	default:
		return 35, nil
	}
}

func (m *Mock) PlaceOrder(symbol, side string, deltaUSD float64) (Fill, error) {
	filled := math.Abs(deltaUSD)
	switch side {
	case SideBuy:
		m.Positions[symbol] += filled
	case SideSell:
		m.Positions[symbol] -= filled
	default:
		return Fill{}, fmt.Errorf("invalid side: %s", side)
	}
	return Fill{
		Symbol:         symbol,
		Side:           side,
		FilledUSD:      filled,
		NewPositionUSD: m.Positions[symbol],
	}, nil
}

// NudgePrices moves the quoted prices for the given symbols.
func (m *Mock) NudgePrices(prices map[string]float64) {
	for s, p := range prices {
		m.Prices[s] = p
	}
}
