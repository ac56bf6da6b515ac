/*

This file contains the live rebalance loop. Each tick fetches market data,
updates the volatility index, sizes targets in Mode A (fixed weights) or Mode
B (risk parity with vol targeting), runs the hard guards, and executes the
resulting deltas through the adapter. Any failure is captured on the tick row;
a tick never aborts the loop.

*/

package engine

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/perpvault/pvm/internal/adapter"
	"github.com/perpvault/pvm/internal/config"
	"github.com/perpvault/pvm/internal/guard"
	"github.com/perpvault/pvm/internal/logger"
	"github.com/perpvault/pvm/internal/sizer"
	"github.com/perpvault/pvm/internal/types"
	"github.com/perpvault/pvm/internal/vault"
	"github.com/perpvault/pvm/internal/volindex"
)

// Orders above this notional are split into chunks before execution.
const (
	chunkAboveUSD = 5_000.0
	chunkCount    = 3
)

// ModeA sizes from fixed signed weights and base leverage; ModeB solves
// risk-parity weights and leverage from the volatility index.
const (
	ModeA = "A"
	ModeB = "B"
)

// Live drives the production rebalance loop against an execution adapter.
type Live struct {
	adapter adapter.Adapter
	vault   *vault.Vault
	index   *volindex.Index
	cfg     config.LiveConfig
	dryRun  bool
	log     zerolog.Logger
}

func NewLive(a adapter.Adapter, v *vault.Vault, idx *volindex.Index, cfg config.LiveConfig, dryRun bool) *Live {
	return &Live{
		adapter: a,
		vault:   v,
		index:   idx,
		cfg:     cfg,
		dryRun:  dryRun,
		log:     logger.GetForComponent("live_engine"),
	}
}

// Tick executes one rebalance evaluation. vTargetOverride, when non-nil,
// replaces the index composite as the Mode B volatility target.
func (l *Live) Tick(slot int, mode string, vTargetOverride *float64) types.TickRow {
	start := time.Now()
	mode = strings.ToUpper(mode)
	row := types.TickRow{
		Timestamp:  time.Now().UTC(),
		Slot:       slot,
		Mode:       mode,
		LMax:       l.cfg.LMax,
		AssetCap:   l.cfg.AssetCap,
		SlipCapBps: l.cfg.SlippageCapBps,
		Status:     types.StatusOK,
	}

	prices, err := l.adapter.GetPrices()
	var fundingBps map[string]float64
	if err == nil {
		fundingBps, err = l.adapter.GetFundingRates()
	}
	if err != nil {
		// Adapter not ready: minimal error row without touching vault state.
		row.NAVBefore = l.vault.NAV(nil)
		row.NAVAfter = row.NAVBefore
		row.LeverageUsed = l.cfg.LBase
		row.MinTradeUSD = row.NAVBefore * l.cfg.MinTradeFrac
		row.Status = types.StatusError
		row.ErrReason = err.Error()
		row.LatencyMS = int(time.Since(start).Milliseconds())
		row.Assets = l.emptyAssets()
		return row
	}

	volIdx, err := l.index.Update(prices, fundingBps, l.cfg.Weights)
	if err != nil {
		l.log.Warn().Err(err).Msg("Failed to persist index snapshot")
	}
	row.VolIndex = volIdx

	navBefore := l.vault.NAV(prices)
	row.NAVBefore = navBefore
	posBefore := make(map[string]float64, len(l.cfg.Assets))
	for _, a := range l.cfg.Assets {
		posBefore[a] = l.vault.Position(a)
	}

	targets, leverage := l.targets(mode, navBefore, volIdx, vTargetOverride)
	row.LeverageUsed = leverage
	row.MinTradeUSD = minTrade(navBefore, l.cfg.MinTradeFrac)

	deltas := make(map[string]float64, len(targets))
	for _, a := range l.cfg.Assets {
		deltas[a] = targets[a] - posBefore[a]
	}

	assets := make([]types.AssetTick, len(l.cfg.Assets))
	for i, a := range l.cfg.Assets {
		assets[i] = types.AssetTick{
			Symbol:       a,
			Price:        prices[a],
			PosBefore:    posBefore[a],
			Target:       targets[a],
			Delta:        deltas[a],
			PosAfter:     posBefore[a],
			FundingBpDay: fundingBps[a],
		}
	}
	row.Assets = assets

	if err := guard.CheckLeverage(targets, navBefore, l.cfg.LMax); err != nil {
		return l.guardReject(row, start, err)
	}
	if err := guard.CheckAssetCaps(targets, navBefore, l.cfg.AssetCap); err != nil {
		return l.guardReject(row, start, err)
	}

	l.execute(row.Assets, row.MinTradeUSD, &row)

	row.NAVAfter = l.vault.NAV(prices)
	row.LatencyMS = int(time.Since(start).Milliseconds())
	l.kpis(&row, fundingBps)
	return row
}

// targets sizes per-asset notionals for the tick.
func (l *Live) targets(mode string, nav, volIdx float64, vTargetOverride *float64) (map[string]float64, float64) {
	if mode == ModeB {
		sigmas := l.index.Sigmas()
		signs := make(map[string]float64, len(l.cfg.Assets))
		for _, a := range l.cfg.Assets {
			if l.cfg.Weights[a] >= 0 {
				signs[a] = 1
			} else {
				signs[a] = -1
			}
		}
		weights := sizer.RiskParityWeights(sigmas, signs, l.cfg.Assets)
		vProxy := sizer.ProxyVolPct(weights, sigmas)
		vTarget := volIdx
		if vTargetOverride != nil {
			vTarget = *vTargetOverride
		}
		leverage := sizer.SolveLeverage(vTarget, vProxy, l.cfg.LMax)
		targets := make(map[string]float64, len(weights))
		for _, a := range l.cfg.Assets {
			targets[a] = nav * leverage * weights[a]
		}
		return targets, leverage
	}

	targets := make(map[string]float64, len(l.cfg.Assets))
	for _, a := range l.cfg.Assets {
		targets[a] = nav * l.cfg.LBase * l.cfg.Weights[a]
	}
	return targets, l.cfg.LBase
}

// execute trades each asset's delta, chunking large orders and skipping those
// below the minimum trade size. Per-asset failures are appended to the row's
// error reason without stopping the remaining assets.
func (l *Live) execute(assets []types.AssetTick, minTradeUSD float64, row *types.TickRow) {
	for i := range assets {
		a := &assets[i]
		if math.Abs(a.Delta) < minTradeUSD {
			l.log.Info().
				Str("asset", a.Symbol).
				Float64("delta_usd", a.Delta).
				Float64("threshold_usd", minTradeUSD).
				Msg("Skipping order below minimum trade size")
			continue
		}
		chunks := 1
		if math.Abs(a.Delta) > chunkAboveUSD {
			chunks = chunkCount
		}
		part := a.Delta / float64(chunks)
		side := adapter.SideBuy
		if part < 0 {
			side = adapter.SideSell
		}
		for c := 0; c < chunks; c++ {
			slp, err := guard.CheckSlippage(l.adapter, a.Symbol, part, l.cfg.SlippageCapBps)
			if err != nil {
				l.noteAssetError(row, a.Symbol, err)
				break
			}
			a.SlipBps = &slp

			if l.dryRun {
				l.log.Info().
					Str("asset", a.Symbol).
					Str("side", side).
					Float64("delta_usd", math.Abs(part)).
					Int("slip_bps", slp).
					Msg("Dry-run order")
			} else {
				fill, err := l.adapter.PlaceOrder(a.Symbol, side, math.Abs(part))
				if err != nil {
					l.noteAssetError(row, a.Symbol, err)
					break
				}
				a.PosAfter = fill.NewPositionUSD
				l.vault.SetPosition(a.Symbol, fill.NewPositionUSD)
				l.log.Info().
					Str("asset", a.Symbol).
					Str("side", side).
					Float64("delta_usd", math.Abs(part)).
					Float64("new_pos_usd", fill.NewPositionUSD).
					Int("slip_bps", slp).
					Msg("Order filled")
			}
			a.OrderUSD += math.Abs(part)
			a.Orders++
		}
	}
}

func (l *Live) noteAssetError(row *types.TickRow, symbol string, err error) {
	row.Status = types.StatusError
	if row.ErrReason != "" {
		row.ErrReason += "; "
	}
	row.ErrReason += symbol + ": " + err.Error()
}

func (l *Live) guardReject(row types.TickRow, start time.Time, err error) types.TickRow {
	row.Status = types.StatusError
	row.ErrReason = err.Error()
	row.NAVAfter = row.NAVBefore
	row.LatencyMS = int(time.Since(start).Milliseconds())
	l.log.Error().Err(err).Msg("Hard guard rejected targets")
	return row
}

// kpis fills the residual diagnostics from post-trade positions.
func (l *Live) kpis(row *types.TickRow, fundingBps map[string]float64) {
	denom := math.Max(row.NAVAfter, 1e-9)
	var net, fund float64
	for _, a := range row.Assets {
		net += a.PosAfter
		fund += a.PosAfter * fundingBps[a.Symbol] / 10_000.0
	}
	row.DeltaResidual = math.Abs(net) / denom
	row.FundResidualBpDay = 10_000.0 * math.Abs(fund) / denom
}

func (l *Live) emptyAssets() []types.AssetTick {
	assets := make([]types.AssetTick, len(l.cfg.Assets))
	for i, a := range l.cfg.Assets {
		assets[i] = types.AssetTick{Symbol: a}
	}
	return assets
}

func minTrade(nav, frac float64) float64 {
	if nav <= 0 {
		return 0
	}
	return nav * frac
}

// TickSink receives each completed tick row.
type TickSink func(types.TickRow) error

// Loop runs Tick on the given interval until the context is cancelled. The
// first tick fires immediately.
func (l *Live) Loop(ctx context.Context, interval time.Duration, startSlot int, mode string, sink TickSink) error {
	l.log.Info().
		Str("interval", interval.String()).
		Str("mode", strings.ToUpper(mode)).
		Msg("Starting live rebalance loop")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	slot := startSlot
	for {
		row := l.Tick(slot, mode, nil)
		slot++
		if sink != nil {
			if err := sink(row); err != nil {
				l.log.Error().Err(err).Int("slot", row.Slot).Msg("Failed to record tick row")
			}
		}
		select {
		case <-ctx.Done():
			l.log.Info().Msg("Live loop stopped")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
