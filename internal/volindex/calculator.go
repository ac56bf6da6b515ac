/*

This file contains the EWMA volatility index calculator: per-asset EWMA
variance of log-returns and EWMA squared funding rate, combined into a single
composite index in percent.

*/

package volindex

import (
	"math"
)

// Default decay constants and funding weight for the composite index.
const (
	DefaultAlpha = 0.10
	DefaultBeta  = 0.20
	DefaultKF    = 8.0
)

// Calculator accumulates EWMA variance and funding variance per asset. It is
// single-writer state: one engine updates it once per tick.
type Calculator struct {
	Alpha float64 // decay for return variance
	Beta  float64 // decay for funding variance
	KF    float64 // funding-to-variance weight in the composite

	lastPrice map[string]float64
	ewmaVar   map[string]float64
	ewmaFund  map[string]float64
}

// NewCalculator creates a calculator with zeroed accumulators for the assets.
func NewCalculator(assets []string, alpha, beta, kF float64) *Calculator {
	c := &Calculator{
		Alpha:     alpha,
		Beta:      beta,
		KF:        kF,
		lastPrice: make(map[string]float64, len(assets)),
		ewmaVar:   make(map[string]float64, len(assets)),
		ewmaFund:  make(map[string]float64, len(assets)),
	}
	for _, a := range assets {
		c.ewmaVar[a] = 0.0
		c.ewmaFund[a] = 0.0
	}
	return c
}

// Update folds one tick of prices and funding rates (bps per period) into the
// accumulators and returns the composite index. The log-return defaults to
// zero on the first observation of an asset. Weights are the user-supplied
// signed target weights; they are normalized by absolute value here.
func (c *Calculator) Update(prices map[string]float64, fundingBps map[string]float64, weights map[string]float64) float64 {
	for asset, px := range prices {
		if last, ok := c.lastPrice[asset]; !ok || last <= 0 {
			c.lastPrice[asset] = px
		}
	}

	for asset, px := range prices {
		var r float64
		if last := c.lastPrice[asset]; last > 0 {
			r = math.Log(px / last)
		}
		c.ewmaVar[asset] = (1-c.Alpha)*c.ewmaVar[asset] + c.Alpha*r*r
		f := fundingBps[asset] / 10_000.0
		c.ewmaFund[asset] = (1-c.Beta)*c.ewmaFund[asset] + c.Beta*f*f
		c.lastPrice[asset] = px
	}

	return c.Composite(weights)
}

// Composite returns 100*sqrt(weightedVar + kF*weightedFunding) with weights
// normalized from the supplied signed weights. With no usable weights every
// asset contributes equally.
func (c *Calculator) Composite(weights map[string]float64) float64 {
	var wSum float64
	for _, w := range weights {
		wSum += math.Abs(w)
	}

	var variance, funding float64
	n := len(c.ewmaVar)
	for asset := range c.ewmaVar {
		var wn float64
		if wSum > 0 {
			wn = math.Abs(weights[asset]) / wSum
		} else if n > 0 {
			wn = 1.0 / float64(n)
		}
		variance += wn * c.ewmaVar[asset]
		funding += wn * c.ewmaFund[asset]
	}
	return 100.0 * math.Sqrt(math.Max(variance+c.KF*funding, 0.0))
}

// Sigmas returns the per-asset EWMA standard deviation (per-period ratio, not
// percent), the input the risk-parity solver expects.
func (c *Calculator) Sigmas() map[string]float64 {
	out := make(map[string]float64, len(c.ewmaVar))
	for asset, v := range c.ewmaVar {
		out[asset] = math.Sqrt(v)
	}
	return out
}

// Snapshot exports the accumulator state for persistence.
func (c *Calculator) Snapshot() Snapshot {
	return Snapshot{
		LastPrice:    copyMap(c.lastPrice),
		EwmaVariance: copyMap(c.ewmaVar),
		EwmaFunding:  copyMap(c.ewmaFund),
	}
}

// Restore replaces the accumulator state from a persisted snapshot. Nil maps
// in the snapshot leave the zeroed defaults in place.
func (c *Calculator) Restore(s Snapshot) {
	if s.LastPrice != nil {
		c.lastPrice = copyMap(s.LastPrice)
	}
	if s.EwmaVariance != nil {
		c.ewmaVar = copyMap(s.EwmaVariance)
	}
	if s.EwmaFunding != nil {
		c.ewmaFund = copyMap(s.EwmaFunding)
	}
}

func copyMap(in map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
