/*

This file contains the risk-parity weight solver and the Mode B leverage
solver: weights are inverse-volatility with caller-supplied signs, and the
leverage multiplier scales the book so its proxy volatility matches the target.

*/

package sizer

import "math"

// RiskParityWeights returns signed weights normalized so the absolute values
// sum to 1, each asset weighted inversely to its volatility. When every sigma
// is zero the split degenerates to an even +0.5/-0.5.
func RiskParityWeights(sigmas map[string]float64, signs map[string]float64, order []string) map[string]float64 {
	raw := make(map[string]float64, len(order))
	var sum float64
	for _, sym := range order {
		sig := sigmas[sym]
		var inv float64
		if sig > 0 {
			inv = 1.0 / math.Max(sig, 1e-9)
		}
		if signs[sym] < 0 {
			inv = -inv
		}
		raw[sym] = inv
		sum += math.Abs(inv)
	}
	if sum == 0 {
		// No volatility information at all: even split, long the first asset
		// and short the rest so the degenerate book stays hedged.
		out := make(map[string]float64, len(order))
		even := 1.0 / float64(len(order))
		for i, sym := range order {
			if i == 0 {
				out[sym] = even
			} else {
				out[sym] = -even
			}
		}
		return out
	}
	out := make(map[string]float64, len(order))
	for sym, w := range raw {
		out[sym] = w / sum
	}
	return out
}

// ProxyVolPct combines per-asset weighted vols in quadrature, in percent.
func ProxyVolPct(weights, sigmas map[string]float64) float64 {
	var sumSq float64
	for sym, w := range weights {
		ws := w * sigmas[sym]
		sumSq += ws * ws
	}
	return 100.0 * math.Sqrt(sumSq)
}

// SolveLeverage returns the leverage multiplier that scales the proxy vol to
// the target, capped at lMax. A zero proxy degrades through epsilon rather
// than dividing by zero.
func SolveLeverage(targetVolPct, proxyVolPct, lMax float64) float64 {
	const eps = 1e-6
	l := math.Max(targetVolPct, 0.0) / math.Max(proxyVolPct, eps)
	return math.Min(lMax, l)
}
