/*

This file contains the fixed-bucket target sizer: NAV and leverage define one
long bucket and one short bucket, and each bucket is split across symbols by
basis-point weight. All arithmetic truncates toward zero on the fixed-point
scale so results are reproducible bit for bit.

*/

package sizer

import (
	"github.com/perpvault/pvm/internal/fixedpoint"
	"github.com/perpvault/pvm/internal/types"
)

// FixedBucketTargets computes raw per-symbol target exposures for a
// fixed-bucket strategy. Multiple allocations to the same symbol across the
// long and short sides accumulate additively.
func FixedBucketTargets(nav fixedpoint.USD, strat types.Strategy, cfg types.Config) map[string]fixedpoint.USD {
	longBucket := fixedpoint.USD(float64(nav) * cfg.Leverage)
	shortBucket := fixedpoint.USD(float64(nav) * cfg.Leverage)

	targets := make(map[string]fixedpoint.USD)
	for _, leg := range strat.Longs {
		targets[leg.Symbol] += fixedpoint.BpsOf(longBucket, leg.Bps)
	}
	for _, leg := range strat.Shorts {
		targets[leg.Symbol] -= fixedpoint.BpsOf(shortBucket, leg.Bps)
	}
	return targets
}
