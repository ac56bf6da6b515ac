/*

This file contains the hard risk guards of the live path. Unlike the backtest
pipeline, which throttles automatically, these fail closed: a live venue cannot
silently scale down an already-placed order, so a breach rejects the whole
target set (or the offending order) with an explicit error.

*/

package guard

import (
	"errors"
	"fmt"
)

var (
	ErrNonPositiveNAV   = errors.New("NAV must be positive")
	ErrLeverageExceeded = errors.New("implied leverage exceeds cap")
	ErrAssetCapExceeded = errors.New("target exceeds per-asset cap")
	ErrSlippageExceeded = errors.New("estimated slippage exceeds cap")
)

// SlippageEstimator is the adapter capability the slippage guard depends on.
type SlippageEstimator interface {
	EstimateSlippageBps(symbol string, deltaUSD float64) (int, error)
}

// CheckLeverage rejects a target set whose implied gross leverage exceeds lMax.
func CheckLeverage(targets map[string]float64, nav, lMax float64) error {
	if nav <= 0 {
		return ErrNonPositiveNAV
	}
	var gross float64
	for _, t := range targets {
		if t < 0 {
			gross -= t
		} else {
			gross += t
		}
	}
	lev := gross / nav
	if lev > lMax {
		return fmt.Errorf("%w: %.4f > %.4f", ErrLeverageExceeded, lev, lMax)
	}
	return nil
}

// CheckAssetCaps rejects any single target larger than assetCap*NAV.
func CheckAssetCaps(targets map[string]float64, nav, assetCap float64) error {
	limit := assetCap * nav
	for sym, t := range targets {
		abs := t
		if abs < 0 {
			abs = -abs
		}
		if abs > limit {
			return fmt.Errorf("%w: %s target %.2f > %.2f", ErrAssetCapExceeded, sym, abs, limit)
		}
	}
	return nil
}

// CheckSlippage asks the adapter for an estimate and rejects the order when it
// breaches capBps. The estimate is returned for the result row either way an
// order proceeds.
func CheckSlippage(est SlippageEstimator, symbol string, deltaUSD float64, capBps int) (int, error) {
	bps, err := est.EstimateSlippageBps(symbol, deltaUSD)
	if err != nil {
		return 0, fmt.Errorf("slippage estimate for %s: %w", symbol, err)
	}
	if bps > capBps {
		return bps, fmt.Errorf("%w: %dbps > %dbps", ErrSlippageExceeded, bps, capBps)
	}
	return bps, nil
}
