package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/perpvault/pvm/internal/adapter"
	"github.com/perpvault/pvm/internal/config"
	"github.com/perpvault/pvm/internal/engine"
	"github.com/perpvault/pvm/internal/metrics"
	"github.com/perpvault/pvm/internal/report"
	"github.com/perpvault/pvm/internal/state"
	"github.com/perpvault/pvm/internal/types"
	"github.com/perpvault/pvm/internal/vault"
	"github.com/perpvault/pvm/internal/volindex"
)

var replayFlags struct {
	data       string
	mode       string
	liveConfig string
	startCash  float64
	start      int64
	end        int64
}

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Feed historical rows through the live engine for an execution dry run",
	RunE:  runReplay,
}

func init() {
	replayCmd.Flags().StringVar(&replayFlags.data, "data", "", "long-format price CSV (timestamp,symbol,close[,funding_bps])")
	replayCmd.Flags().StringVar(&replayFlags.mode, "mode", engine.ModeA, "rebalance mode: A or B")
	replayCmd.Flags().StringVar(&replayFlags.liveConfig, "live-config", "", "live config JSON (defaults when omitted)")
	replayCmd.Flags().Float64Var(&replayFlags.startCash, "start-cash", 10_000, "initial vault cash in USD")
	replayCmd.Flags().Int64Var(&replayFlags.start, "start", 0, "skip rows before this unix timestamp")
	replayCmd.Flags().Int64Var(&replayFlags.end, "end", 0, "stop at this unix timestamp (exclusive)")
	replayCmd.MarkFlagRequired("data")
	rootCmd.AddCommand(replayCmd)
}

func runReplay(cmd *cobra.Command, args []string) error {
	liveCfg, err := config.LoadLiveConfig(replayFlags.liveConfig)
	if err != nil {
		return err
	}
	ticks, err := report.ReadPricesCSV(replayFlags.data)
	if err != nil {
		return err
	}

	adp := adapter.NewReplay()
	calc := volindex.NewCalculator(liveCfg.Assets, liveCfg.Index.Alpha, liveCfg.Index.Beta, liveCfg.Index.KF)
	index, err := volindex.NewIndex(calc, volindex.FileStore{Path: filepath.Join(config.ReportsDir, "replay_index.json")})
	if err != nil {
		return err
	}
	v := vault.New(replayFlags.startCash, liveCfg.Assets)
	live := engine.NewLive(adp, v, index, liveCfg, false)

	tickCSV := report.NewTickWriter(filepath.Join(config.ReportsDir, "replay.csv"), liveCfg.Assets)

	startedAt := time.Now().UTC()
	slot := 0
	trades := 0
	var slippages []float64
	maxNAV := replayFlags.startCash
	maxDD := 0.0

	for _, step := range groupBySlot(ticks) {
		if replayFlags.start > 0 && step.ts < replayFlags.start {
			continue
		}
		if replayFlags.end > 0 && step.ts >= replayFlags.end {
			break
		}
		adp.Feed(step.prices, step.funding)
		row := live.Tick(slot, replayFlags.mode, nil)
		if err := tickCSV.Append(row); err != nil {
			return err
		}
		for _, a := range row.Assets {
			trades += a.Orders
			if a.SlipBps != nil {
				slippages = append(slippages, float64(*a.SlipBps))
			}
		}
		if row.NAVAfter > maxNAV {
			maxNAV = row.NAVAfter
		}
		if maxNAV > 0 {
			if dd := (maxNAV - row.NAVAfter) / maxNAV; dd > maxDD {
				maxDD = dd
			}
		}
		slot++
	}

	finalNAV := v.NAV(nil)
	totalRet := 0.0
	if replayFlags.startCash > 0 {
		totalRet = (finalNAV - replayFlags.startCash) / replayFlags.startCash * 100.0
	}
	p50 := metrics.Percentile(slippages, 50)
	p95 := metrics.Percentile(slippages, 95)

	fmt.Println("Replay Summary:")
	fmt.Printf("- Final NAV: %.2f (%.2f%%)\n", finalNAV, totalRet)
	fmt.Printf("- Max Drawdown: %.2f%%\n", maxDD*100.0)
	fmt.Printf("- Trades: %d\n", trades)
	fmt.Printf("- Slippage p50/p95: %.0f/%.0f bps\n", p50, p95)

	if initDBIfConfigured() {
		defer state.CloseDB()
		saveRunSnapshot("replay", replayFlags.mode, startedAt, slot, replayFlags.startCash, finalNAV, map[string]any{
			"final_nav_usd":    finalNAV,
			"total_return_pct": totalRet,
			"max_drawdown":     maxDD,
			"trades":           trades,
			"slippage_p50_bps": p50,
			"slippage_p95_bps": p95,
		})
	}

	log.Info().Int("steps", slot).Float64("final_nav_usd", finalNAV).Msg("Replay complete")
	return nil
}

type replayStep struct {
	ts      int64
	prices  map[string]float64
	funding map[string]float64
}

// groupBySlot merges per-symbol rows sharing a timestamp into one feed step.
func groupBySlot(ticks []types.PriceTick) []replayStep {
	var steps []replayStep
	byTS := make(map[int64]int)
	for _, t := range ticks {
		idx, ok := byTS[t.Timestamp]
		if !ok {
			idx = len(steps)
			byTS[t.Timestamp] = idx
			steps = append(steps, replayStep{
				ts:      t.Timestamp,
				prices:  make(map[string]float64),
				funding: make(map[string]float64),
			})
		}
		steps[idx].prices[t.Symbol] = t.Close
		steps[idx].funding[t.Symbol] = t.FundingBps
	}
	return steps
}
