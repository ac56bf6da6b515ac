/*

This file contains the strategy definition types: the tagged strategy variant and
the parameters of the pair-neutral breakout state machine.

*/

package types

import (
	"errors"
	"fmt"
)

// StrategyType tags the two supported target-sizing variants.
type StrategyType string

const (
	StrategyFixedBucket         StrategyType = "fixed_bucket"
	StrategyPairNeutralBreakout StrategyType = "pair_neutral_breakout"
)

// ErrBucketBpsSum indicates a fixed-bucket side whose weights do not sum to
// exactly 10000 bps. Rejected at load time, never mid-run.
var ErrBucketBpsSum = errors.New("bps sum must be 10000 each for longs and shorts")

// ErrPairSymbols indicates a pair strategy without two symbols.
var ErrPairSymbols = errors.New("pair strategy requires exactly two symbols")

// BucketLeg is a single (symbol, weight) allocation within a bucket side.
type BucketLeg struct {
	Symbol string `json:"symbol"`
	Bps    int64  `json:"bps"`
}

// PairParams holds the tunables of the pair-neutral breakout state machine.
type PairParams struct {
	// Lookback is the rolling window, in steps, for beta and z-score estimation.
	Lookback int `json:"lookback"`
	// KIn is the z-score entry threshold; KOut the exit threshold. KOut is
	// normally <= KIn, which is what produces the exit hysteresis.
	KIn  float64 `json:"k_in"`
	KOut float64 `json:"k_out"`
	// MinHoldSteps locks a freshly entered regime for this many evaluations.
	MinHoldSteps int `json:"minHoldSteps"`
	// NeutralDriftThresholdBps lets the engine skip a rebalance while the regime
	// is neutral and post-guard turnover stays below this bps-of-NAV level.
	NeutralDriftThresholdBps float64 `json:"neutralDriftThresholdBps"`
	// RegimeStopBps / RegimeTPBps force an exit to neutral when NAV since regime
	// entry moves beyond the stop-loss or take-profit level.
	RegimeStopBps float64 `json:"regimeStopBps"`
	RegimeTPBps   float64 `json:"regimeTPBps"`
	// MaxSkewBps bounds the notional shifted between the long and short bucket
	// when a breakout extends past the entry threshold.
	MaxSkewBps float64 `json:"maxSkewBps"`
	// BetaMin/BetaMax clamp the OLS hedge ratio.
	BetaMin float64 `json:"betaMin"`
	BetaMax float64 `json:"betaMax"`
	// UseBetaHedge toggles beta-weighted long/short splitting; off means beta=1.
	UseBetaHedge bool `json:"useBetaHedge"`
}

// DefaultPairParams mirrors the production defaults applied for absent fields.
func DefaultPairParams() PairParams {
	return PairParams{
		Lookback:                 24,
		KIn:                      2.0,
		KOut:                     1.0,
		MinHoldSteps:             0,
		NeutralDriftThresholdBps: 0.0,
		RegimeStopBps:            50.0,
		RegimeTPBps:              100.0,
		MaxSkewBps:               100.0,
		BetaMin:                  0.2,
		BetaMax:                  5.0,
		UseBetaHedge:             false,
	}
}

// Strategy is the validated in-memory strategy definition.
type Strategy struct {
	Type StrategyType `json:"type"`

	// Fixed-bucket fields. Each side's bps must sum to exactly 10000.
	Longs  []BucketLeg `json:"longs,omitempty"`
	Shorts []BucketLeg `json:"shorts,omitempty"`

	// Pair-breakout fields.
	Symbols []string   `json:"symbols,omitempty"`
	Params  PairParams `json:"params,omitempty"`
}

// Validate enforces the load-time invariants of each variant.
func (s Strategy) Validate() error {
	switch s.Type {
	case StrategyFixedBucket:
		if sum := sumBps(s.Longs); sum != 10000 {
			return fmt.Errorf("%w: longs sum to %d", ErrBucketBpsSum, sum)
		}
		if sum := sumBps(s.Shorts); sum != 10000 {
			return fmt.Errorf("%w: shorts sum to %d", ErrBucketBpsSum, sum)
		}
	case StrategyPairNeutralBreakout:
		if len(s.Symbols) < 2 {
			return fmt.Errorf("%w: got %d", ErrPairSymbols, len(s.Symbols))
		}
	default:
		return fmt.Errorf("unknown strategy type %q", s.Type)
	}
	return nil
}

func sumBps(legs []BucketLeg) int64 {
	var sum int64
	for _, leg := range legs {
		sum += leg.Bps
	}
	return sum
}
