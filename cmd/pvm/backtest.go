package main

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/perpvault/pvm/internal/config"
	"github.com/perpvault/pvm/internal/engine"
	"github.com/perpvault/pvm/internal/report"
	"github.com/perpvault/pvm/internal/state"
	"github.com/perpvault/pvm/internal/types"
)

var backtestFlags struct {
	prices       string
	strategy     string
	engineCfg    string
	startNAVUSD  float64
	outDir       string
	cooldown     int64
	feeBps       float64
	slipBps      float64
	leverage     float64
	thresholdBps float64
}

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Replay a historical price CSV through the strategy engine",
	RunE:  runBacktest,
}

func init() {
	backtestCmd.Flags().StringVar(&backtestFlags.prices, "prices", "", "long-format price CSV (timestamp,symbol,close[,funding_bps])")
	backtestCmd.Flags().StringVar(&backtestFlags.strategy, "strategy", "", "strategy definition JSON")
	backtestCmd.Flags().StringVar(&backtestFlags.engineCfg, "config", "", "engine guard config JSON (defaults when omitted)")
	backtestCmd.Flags().Float64Var(&backtestFlags.startNAVUSD, "start-nav", 1_000_000, "starting NAV in USD")
	backtestCmd.Flags().StringVar(&backtestFlags.outDir, "out-dir", "", "report output directory (defaults to REPORTS_DIR)")
	backtestCmd.Flags().Int64Var(&backtestFlags.cooldown, "cooldown", 0, "override cooldownSeconds")
	backtestCmd.Flags().Float64Var(&backtestFlags.feeBps, "fee-bps", 0, "override feeBps")
	backtestCmd.Flags().Float64Var(&backtestFlags.slipBps, "slip-bps", 0, "override slipBps")
	backtestCmd.Flags().Float64Var(&backtestFlags.leverage, "leverage", 0, "override leverage")
	backtestCmd.Flags().Float64Var(&backtestFlags.thresholdBps, "threshold-bps", 0, "override rebalanceThresholdBps")
	backtestCmd.MarkFlagRequired("prices")
	backtestCmd.MarkFlagRequired("strategy")
	rootCmd.AddCommand(backtestCmd)
}

func runBacktest(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadEngineConfig(backtestFlags.engineCfg)
	if err != nil {
		return err
	}
	applyConfigOverrides(cmd, &cfg)
	strat, err := config.LoadStrategy(backtestFlags.strategy)
	if err != nil {
		return err
	}
	ticks, err := report.ReadPricesCSV(backtestFlags.prices)
	if err != nil {
		return err
	}
	if len(ticks) == 0 {
		return fmt.Errorf("no price rows in %s", backtestFlags.prices)
	}

	outDir := backtestFlags.outDir
	if outDir == "" {
		outDir = config.ReportsDir
	}

	bt, err := engine.NewBacktest(cfg, strat)
	if err != nil {
		return err
	}

	ec, err := report.NewEquityWriter(filepath.Join(outDir, "equity_curve.csv"))
	if err != nil {
		return err
	}

	startedAt := time.Now().UTC()
	summary, err := bt.Run(ticks, backtestFlags.startNAVUSD, ec.Write)
	if closeErr := ec.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return err
	}

	if err := report.WriteSummaryJSON(filepath.Join(outDir, "metrics.json"), summary); err != nil {
		return err
	}

	log.Info().
		Float64("final_nav_usd", summary.FinalNAVUSD).
		Float64("total_return", summary.TotalReturn).
		Float64("max_drawdown", summary.MaxDrawdown).
		Int("rebalances", summary.Rebalances).
		Str("out_dir", outDir).
		Msg("Backtest reports written")

	if initDBIfConfigured() {
		defer state.CloseDB()
		saveRunSnapshot("backtest", "", startedAt, summary.Steps, summary.StartNAVUSD, summary.FinalNAVUSD, summary)
	}
	return nil
}

// applyConfigOverrides layers explicitly-set flags over the file config.
// NewBacktest re-validates the result.
func applyConfigOverrides(cmd *cobra.Command, cfg *types.Config) {
	if cmd.Flags().Changed("cooldown") {
		cfg.CooldownSeconds = backtestFlags.cooldown
	}
	if cmd.Flags().Changed("fee-bps") {
		cfg.FeeBps = backtestFlags.feeBps
	}
	if cmd.Flags().Changed("slip-bps") {
		cfg.SlipBps = backtestFlags.slipBps
	}
	if cmd.Flags().Changed("leverage") {
		cfg.Leverage = backtestFlags.leverage
	}
	if cmd.Flags().Changed("threshold-bps") {
		cfg.RebalanceThresholdBps = backtestFlags.thresholdBps
	}
}

// saveRunSnapshot records a finished run; failures are logged, never fatal.
func saveRunSnapshot(kind, mode string, startedAt time.Time, steps int, startNAV, finalNAV float64, summary any) {
	runNumber, err := state.IncrementRunNumber()
	if err != nil {
		log.Error().Err(err).Msg("Failed to increment run counter")
		return
	}
	raw, err := json.Marshal(summary)
	if err != nil {
		log.Error().Err(err).Msg("Failed to serialize run summary")
		raw = nil
	}
	snap := types.RunSnapshot{
		RunID:       uuid.NewString(),
		RunNumber:   runNumber,
		Kind:        kind,
		Mode:        mode,
		StartedAt:   startedAt,
		FinishedAt:  time.Now().UTC(),
		Steps:       steps,
		StartNAVUSD: startNAV,
		FinalNAVUSD: finalNAV,
		SummaryJSON: raw,
	}
	if _, err := state.SaveRunSnapshot(snap); err != nil {
		log.Error().Err(err).Msg("Failed to save run snapshot")
	}
}
