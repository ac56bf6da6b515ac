/*

This file contains the historical replay engine. It walks a merged price
timeline, accrues price PnL and funding against the fixed-point ledger, and
rebalances through the guard pipeline on the configured cooldown cadence.

*/

package engine

import (
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/perpvault/pvm/internal/fixedpoint"
	"github.com/perpvault/pvm/internal/guard"
	"github.com/perpvault/pvm/internal/logger"
	"github.com/perpvault/pvm/internal/metrics"
	"github.com/perpvault/pvm/internal/sizer"
	"github.com/perpvault/pvm/internal/types"
)

// RowSink receives each completed equity row. A nil sink discards rows.
type RowSink func(types.EquityRow) error

// Backtest replays a price history against a strategy and guard config.
type Backtest struct {
	cfg   types.Config
	strat types.Strategy
	log   zerolog.Logger
}

func NewBacktest(cfg types.Config, strat types.Strategy) (*Backtest, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := strat.Validate(); err != nil {
		return nil, err
	}
	return &Backtest{
		cfg:   cfg,
		strat: strat,
		log:   logger.GetForComponent("backtest"),
	}, nil
}

// Run replays ticks in timestamp order starting from startNAVUSD of cash.
// Every timeline step produces exactly one equity row, including skipped
// rebalances.
func (b *Backtest) Run(ticks []types.PriceTick, startNAVUSD float64, sink RowSink) (metrics.Summary, error) {
	pricesByTS, fundingByTS, timeline, symbols := groupTicks(ticks)

	ledger := fixedpoint.NewLedger(symbols)
	market := types.NewMarketState(symbols)
	pairState := types.NewPairRegimeState()
	acc := metrics.NewAccumulator()

	nav := fixedpoint.FromFloat(startNAVUSD)
	var lastRebalTS int64
	rebalancedOnce := false

	b.log.Info().
		Int("steps", len(timeline)).
		Int("symbols", len(symbols)).
		Str("strategy", string(b.strat.Type)).
		Msg("Starting backtest replay")

	for _, ts := range timeline {
		row := pricesByTS[ts]

		// Price PnL against positions held over the finished interval.
		var pnl fixedpoint.USD
		for _, s := range symbols {
			px, ok := row[s]
			if !ok {
				continue
			}
			if last, seen := market.LastPrice[s]; seen && last > 0 {
				ret := px/last - 1.0
				pnl += fixedpoint.USD(int64(float64(ledger.Position(s)) * ret))
				market.AppendReturn(s, ret)
			}
		}
		nav += pnl
		for s, px := range row {
			market.LastPrice[s] = px
		}

		note := ""
		var gross fixedpoint.USD
		feeUSD := 0.0
		fundingUSD := 0.0
		rebalanced := false

		// Funding for the finished interval. Positive bps means longs pay.
		if fb, ok := fundingByTS[ts]; ok {
			for s, bps := range fb {
				if p := ledger.Position(s); p != 0 && bps != 0 {
					fundingUSD += -(p.Float()) * (bps / 10_000.0)
				}
			}
			nav += fixedpoint.FromFloat(fundingUSD)
		}

		if !rebalancedOnce || ts-lastRebalTS >= b.cfg.CooldownSeconds {
			raw, meta := b.rawTargets(nav, market, symbols, &pairState)
			_, final := guard.Apply(nav, ledger.Positions(), raw, b.cfg)
			gross = ledger.GrossDelta(final)

			skip := b.skipNote(nav, gross, meta)
			if skip != "" {
				b.emit(sink, acc, ts, nav, gross, feeUSD, fundingUSD, skip, false)
				continue
			}

			costsBps := (b.cfg.FeeBps + b.cfg.SlipBps) / 10_000.0
			feeUSD = gross.Float() * costsBps
			ledger.Adopt(final)
			nav -= fixedpoint.FromFloat(feeUSD)
			lastRebalTS = ts
			rebalancedOnce = true
			note = types.NoteRebalance
			rebalanced = true
		}

		b.emit(sink, acc, ts, nav, gross, feeUSD, fundingUSD, note, rebalanced)
	}

	summary := acc.Summary()
	b.log.Info().
		Float64("final_nav_usd", summary.FinalNAVUSD).
		Float64("total_return", summary.TotalReturn).
		Int("rebalances", summary.Rebalances).
		Msg("Backtest complete")
	return summary, nil
}

func (b *Backtest) rawTargets(
	nav fixedpoint.USD,
	market *types.MarketState,
	symbols []string,
	pairState *types.PairRegimeState,
) (map[string]fixedpoint.USD, sizer.PairMeta) {
	if b.strat.Type == types.StrategyPairNeutralBreakout {
		syms := b.strat.Symbols
		if len(syms) < 2 {
			syms = symbols
		}
		if len(syms) < 2 {
			return map[string]fixedpoint.USD{}, sizer.PairMeta{}
		}
		return sizer.PairBreakoutTargets(nav, market, syms[0], syms[1], b.strat.Params, b.cfg, pairState)
	}
	return sizer.FixedBucketTargets(nav, b.strat, b.cfg), sizer.PairMeta{}
}

// skipNote decides whether the step skips trading: the neutral-regime drift
// threshold applies first, then the general turnover threshold. Neither
// advances the cooldown clock.
func (b *Backtest) skipNote(nav, gross fixedpoint.USD, meta sizer.PairMeta) string {
	if nav <= 0 {
		return ""
	}
	grossBps := (int64(gross) * 10_000) / int64(nav)
	if meta.Regime == types.RegimeNeutral && meta.NeutralSkipBps > 0 &&
		float64(grossBps) < meta.NeutralSkipBps {
		return types.NoteSkipNeutralDrift
	}
	if b.cfg.RebalanceThresholdBps > 0 && float64(grossBps) < b.cfg.RebalanceThresholdBps {
		return types.NoteSkipThreshold
	}
	return ""
}

func (b *Backtest) emit(
	sink RowSink,
	acc *metrics.Accumulator,
	ts int64,
	nav, gross fixedpoint.USD,
	feeUSD, fundingUSD float64,
	note string,
	rebalanced bool,
) {
	acc.Observe(time.Unix(ts, 0).UTC(), nav, gross, feeUSD, fundingUSD, rebalanced)
	if sink == nil {
		return
	}
	if err := sink(types.EquityRow{
		Timestamp:     ts,
		NAV:           nav.Float(),
		GrossTurnover: gross,
		FeeUSD:        feeUSD,
		FundingUSD:    fundingUSD,
		Note:          note,
	}); err != nil {
		b.log.Error().Err(err).Int64("timestamp", ts).Msg("Failed to write equity row")
	}
}

func groupTicks(ticks []types.PriceTick) (map[int64]map[string]float64, map[int64]map[string]float64, []int64, []string) {
	prices := make(map[int64]map[string]float64)
	funding := make(map[int64]map[string]float64)
	symbolSet := make(map[string]struct{})
	for _, t := range ticks {
		if prices[t.Timestamp] == nil {
			prices[t.Timestamp] = make(map[string]float64)
		}
		prices[t.Timestamp][t.Symbol] = t.Close
		if t.FundingBps != 0 {
			if funding[t.Timestamp] == nil {
				funding[t.Timestamp] = make(map[string]float64)
			}
			funding[t.Timestamp][t.Symbol] = t.FundingBps
		}
		symbolSet[t.Symbol] = struct{}{}
	}
	timeline := make([]int64, 0, len(prices))
	for ts := range prices {
		timeline = append(timeline, ts)
	}
	sort.Slice(timeline, func(i, j int) bool { return timeline[i] < timeline[j] })
	symbols := make([]string, 0, len(symbolSet))
	for s := range symbolSet {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)
	return prices, funding, timeline, symbols
}
