package adapter

import (
	"errors"
	"math"
)

// ErrNoMarketData indicates a replay tick was requested before any row was
// fed.
var ErrNoMarketData = errors.New("no market data fed to replay adapter")

// Replay is a row-driven venue for backtesting the live engine: each CSV row
// is fed in before the tick, and fills mutate an in-memory book with the same
// tiered slippage model as the mock venue.
type Replay struct {
	prices     map[string]float64
	fundingBps map[string]float64
	positions  map[string]float64
	fed        bool
}

// NewReplay creates an empty replay venue.
func NewReplay() *Replay {
	return &Replay{
		prices:     make(map[string]float64),
		fundingBps: make(map[string]float64),
		positions:  make(map[string]float64),
	}
}

// Feed loads one row of market data ahead of the next tick.
func (r *Replay) Feed(prices, fundingBps map[string]float64) {
	for s, p := range prices {
		r.prices[s] = p
	}
	for s, f := range fundingBps {
		r.fundingBps[s] = f
	}
	r.fed = true
}

func (r *Replay) GetPrices() (map[string]float64, error) {
	if !r.fed {
		return nil, ErrNoMarketData
	}
	out := make(map[string]float64, len(r.prices))
	for s, p := range r.prices {
		out[s] = p
	}
	return out, nil
}

func (r *Replay) GetFundingRates() (map[string]float64, error) {
	if !r.fed {
		return nil, ErrNoMarketData
	}
	out := make(map[string]float64, len(r.fundingBps))
	for s, f := range r.fundingBps {
		out[s] = f
	}
	return out, nil
}

func (r *Replay) EstimateSlippageBps(symbol string, deltaUSD float64) (int, error) {
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

func (r *Replay) PlaceOrder(symbol, side string, deltaUSD float64) (Fill, error) {
	filled := math.Abs(deltaUSD)
	switch side {
	case SideBuy:
		r.positions[symbol] += filled
	case SideSell:
		r.positions[symbol] -= filled
	default:
		return Fill{}, errors.New("invalid side: " + side)
	}
	return Fill{
		Symbol:         symbol,
		Side:           side,
		FilledUSD:      filled,
		NewPositionUSD: r.positions[symbol],
	}, nil
}
