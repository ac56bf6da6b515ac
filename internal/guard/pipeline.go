/*

This file contains the guard pipeline applied to raw strategy targets before
execution. The three stages run in strict order: per-symbol cap, net-delta
centering, turnover-proportional scaling. Reordering them changes results.

*/

package guard

import (
	"github.com/perpvault/pvm/internal/fixedpoint"
	"github.com/perpvault/pvm/internal/types"
)

// ClampTarget caps a single raw target to the symbol's notional limit,
// resolving through the explicit per-symbol entry or the default entry.
func ClampTarget(symbol string, target fixedpoint.USD, cfg types.Config) fixedpoint.USD {
	cap := fixedpoint.USD(cfg.SymbolCapUSD(symbol) * float64(fixedpoint.Scale))
	if target > cap {
		return cap
	}
	if target < -cap {
		return -cap
	}
	return target
}

// Apply runs the full pipeline. It returns the capped-and-centered target map
// and the final turnover-limited position map; the difference between a final
// position and the current one is what actually gets executed. Re-applying
// Apply to its own output is a no-op.
func Apply(
	nav fixedpoint.USD,
	current map[string]fixedpoint.USD,
	raw map[string]fixedpoint.USD,
	cfg types.Config,
) (targets map[string]fixedpoint.USD, final map[string]fixedpoint.USD) {
	targets = make(map[string]fixedpoint.USD, len(raw))
	for s, t := range raw {
		targets[s] = t
	}

	// 1) per-symbol cap
	for s := range targets {
		targets[s] = ClampTarget(s, targets[s], cfg)
	}

	// 2) net delta guard (centering). A uniform shift recenters aggregate
	// exposure toward zero; truncation means the post-shift sum is not
	// necessarily exactly zero.
	var intended fixedpoint.USD
	for _, t := range targets {
		intended += t
	}
	maxNet := fixedpoint.USD(cfg.MaxNetDeltaUSD * float64(fixedpoint.Scale))
	if intended.Abs() > maxNet {
		n := int64(len(targets))
		if n < 1 {
			n = 1
		}
		adj := fixedpoint.USD(int64(intended) / n)
		for s := range targets {
			targets[s] -= adj
		}
	}

	// 3) turnover cap (proportional scaling). Scaling each delta by the same
	// ratio preserves direction and relative magnitude per symbol while
	// throttling total notional traded.
	deltas := make(map[string]fixedpoint.USD, len(targets))
	var gross fixedpoint.USD
	for s, t := range targets {
		d := t - current[s]
		deltas[s] = d
		gross += d.Abs()
	}
	gmax := fixedpoint.MulDiv(nav, cfg.TurnoverCapBps, 10_000)
	scaleNum, scaleDen := int64(1), int64(1)
	if gross > gmax && gross > 0 {
		scaleNum, scaleDen = int64(gmax), int64(gross)
	}

	final = make(map[string]fixedpoint.USD, len(targets))
	for s := range targets {
		scaled := fixedpoint.MulDiv(deltas[s], scaleNum, scaleDen)
		final[s] = current[s] + scaled
	}

	return targets, final
}
