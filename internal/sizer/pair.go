/*

This file contains the pair-neutral breakout sizer: beta-hedged neutral
notionals, a log-spread z-score, and the regime state machine with entry/exit
hysteresis, minimum hold and NAV-based stop/take-profit.

*/

package sizer

import (
	"math"

	"github.com/perpvault/pvm/internal/fixedpoint"
	"github.com/perpvault/pvm/internal/types"
)

// PairMeta is the sizing metadata the engine uses to decide whether a neutral
// drift rebalance can be skipped.
type PairMeta struct {
	Regime         types.Regime
	NeutralSkipBps float64
}

// SafeBeta estimates the OLS slope of returns A on returns B (sample
// covariance over sample variance), clamped to [betaMin, betaMax]. Degenerate
// inputs (short history, zero variance, non-finite result) fall back to 1.0.
func SafeBeta(retA, retB []float64, betaMin, betaMax float64) float64 {
	if len(retA) != len(retB) || len(retA) < 2 {
		return 1.0
	}
	n := float64(len(retA))
	var ma, mb float64
	for i := range retA {
		ma += retA[i]
		mb += retB[i]
	}
	ma /= n
	mb /= n

	var cov, varB float64
	for i := range retA {
		cov += (retA[i] - ma) * (retB[i] - mb)
		varB += (retB[i] - mb) * (retB[i] - mb)
	}
	cov /= n - 1
	varB /= n - 1
	if varB <= 0 {
		return 1.0
	}
	beta := cov / varB
	beta = math.Max(beta, betaMin)
	beta = math.Min(beta, betaMax)
	if math.IsNaN(beta) || math.IsInf(beta, 0) {
		return 1.0
	}
	return beta
}

// tail returns the trailing n elements of xs.
func tail(xs []float64, n int) []float64 {
	if n <= 0 || len(xs) <= n {
		return xs
	}
	return xs[len(xs)-n:]
}

// spreadZ computes the z-score of the latest spread observation against the
// trailing lookback window. Returns 0 until max(lookback/2, 8) samples exist
// or while the window stddev is zero.
func spreadZ(hist []float64, latest float64, lookback int) float64 {
	window := tail(hist, lookback)
	minSamples := lookback / 2
	if minSamples < 8 {
		minSamples = 8
	}
	if len(window) < minSamples {
		return 0.0
	}
	var mean float64
	for _, x := range window {
		mean += x
	}
	mean /= float64(len(window))
	var variance float64
	for _, x := range window {
		variance += (x - mean) * (x - mean)
	}
	div := len(window) - 1
	if div < 1 {
		div = 1
	}
	variance /= float64(div)
	std := math.Sqrt(math.Max(variance, 0.0))
	if std <= 0 {
		return 0.0
	}
	return (latest - mean) / std
}

// advanceRegime runs one evaluation of the regime state machine and mutates
// state in place. The neutral state only advances on the entry condition;
// active regimes check stop/take-profit first, then the minimum hold lock,
// then the exit hysteresis threshold.
func advanceRegime(state *types.PairRegimeState, z float64, nav fixedpoint.USD, p types.PairParams) {
	switch state.Regime {
	case types.RegimeNeutral:
		if p.KIn > 0 && z >= p.KIn {
			state.Regime = types.RegimeLong
			state.Hold = 0
			state.EntryNAV = nav
		} else if p.KIn > 0 && z <= -p.KIn {
			state.Regime = types.RegimeShort
			state.Hold = 0
			state.EntryNAV = nav
		}
	case types.RegimeLong, types.RegimeShort:
		if state.EntryNAV > 0 {
			navDeltaBps := int64(nav-state.EntryNAV) * 10_000 / int64(state.EntryNAV)
			if p.RegimeStopBps > 0 && float64(navDeltaBps) <= -p.RegimeStopBps {
				state.Regime = types.RegimeNeutral
				state.Hold = 0
			} else if p.RegimeTPBps > 0 && float64(navDeltaBps) >= p.RegimeTPBps {
				state.Regime = types.RegimeNeutral
				state.Hold = 0
			}
		}
		if state.Hold < p.MinHoldSteps {
			state.Hold++
		} else if math.Abs(z) <= p.KOut {
			state.Regime = types.RegimeNeutral
			state.Hold = 0
		} else {
			state.Hold++
		}
	}
}

// PairBreakoutTargets computes raw targets for the pair strategy: it appends
// the latest log-spread, advances the regime state machine, and splits
// 2*NAV*leverage of gross exposure into a beta-weighted long/short pair with
// an optional breakout skew. symA receives the long side, symB the short.
func PairBreakoutTargets(
	nav fixedpoint.USD,
	market *types.MarketState,
	symA, symB string,
	params types.PairParams,
	cfg types.Config,
	state *types.PairRegimeState,
) (map[string]fixedpoint.USD, PairMeta) {
	meta := PairMeta{Regime: state.Regime, NeutralSkipBps: params.NeutralDriftThresholdBps}

	pxA, okA := market.LastPrice[symA]
	pxB, okB := market.LastPrice[symB]
	if !okA || !okB {
		return map[string]fixedpoint.USD{}, meta
	}

	// Hedge ratio from rolling beta of A on B.
	beta := 1.0
	if params.UseBetaHedge {
		ra := tail(market.Returns[symA], params.Lookback)
		rb := tail(market.Returns[symB], params.Lookback)
		beta = SafeBeta(ra, rb, params.BetaMin, params.BetaMax)
	}

	// Base neutral notionals preserving total gross ~ 2*NAV*leverage, with the
	// long/short split skewed by the hedge ratio.
	totalGross := fixedpoint.USD(2 * float64(nav) * cfg.Leverage)
	ratio := math.Max(beta, 1e-6)
	shortUSD := fixedpoint.USD(float64(totalGross) / (ratio + 1.0))
	longUSD := totalGross - shortUSD

	// Spread z-score on s = ln(A/B). Prices are floored to keep the log in
	// domain.
	s := math.Log(math.Max(pxA, 1e-12) / math.Max(pxB, 1e-12))
	hist := market.AppendSpread(types.PairKey{A: symA, B: symB}, s)
	z := spreadZ(hist, s, params.Lookback)

	advanceRegime(state, z, nav, params)
	meta.Regime = state.Regime

	// Skew: tilt net exposure when the breakout extends past the entry
	// threshold, capped at maxSkewBps of NAV.
	var skew fixedpoint.USD
	if (state.Regime == types.RegimeLong || state.Regime == types.RegimeShort) && params.KIn > 0 && math.Abs(z) > params.KIn {
		scale := math.Min((math.Abs(z)-params.KIn)/math.Max(params.KIn, 1e-9), 1.0)
		skew = fixedpoint.USD(nav.Float() * (params.MaxSkewBps / 10_000.0) * scale * float64(fixedpoint.Scale))
		if state.Regime == types.RegimeShort {
			skew = -skew
		}
	}
	if skew != 0 {
		delta := fixedpoint.USD(int64(skew) / 2)
		longUSD += delta
		if longUSD < 0 {
			longUSD = 0
		}
		shortUSD -= delta
		if shortUSD < 0 {
			shortUSD = 0
		}
	}

	return map[string]fixedpoint.USD{symA: longUSD, symB: -shortUSD}, meta
}
