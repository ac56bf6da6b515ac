package main

import (
	"context"
	"fmt"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/perpvault/pvm/internal/adapter"
	"github.com/perpvault/pvm/internal/config"
	"github.com/perpvault/pvm/internal/engine"
	"github.com/perpvault/pvm/internal/report"
	"github.com/perpvault/pvm/internal/state"
	"github.com/perpvault/pvm/internal/types"
	"github.com/perpvault/pvm/internal/vault"
	"github.com/perpvault/pvm/internal/volindex"
	"github.com/perpvault/pvm/internal/web"
)

var runFlags struct {
	mode        string
	liveConfig  string
	once        bool
	dryRun      bool
	vTarget     float64
	slotOffset  int
	nudges      []string
	useAdapter  string
	startCash   float64
	enableJSONL bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the live rebalance loop (or a single tick with --once)",
	RunE:  runLive,
}

func init() {
	runCmd.Flags().StringVar(&runFlags.mode, "mode", engine.ModeA, "rebalance mode: A (fixed weights) or B (risk parity)")
	runCmd.Flags().StringVar(&runFlags.liveConfig, "live-config", "", "live config JSON (defaults when omitted)")
	runCmd.Flags().BoolVar(&runFlags.once, "once", false, "run a single rebalance tick and exit")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "log orders without executing them")
	runCmd.Flags().Float64Var(&runFlags.vTarget, "v-target", 0, "override target vol percent (Mode B)")
	runCmd.Flags().IntVar(&runFlags.slotOffset, "slot-offset", 0, "starting slot number")
	runCmd.Flags().StringSliceVar(&runFlags.nudges, "nudge", nil, "price nudge as SYMBOL=PRICE (mock adapter only, repeatable)")
	runCmd.Flags().StringVar(&runFlags.useAdapter, "adapter", "", "adapter: mock or remote (default: remote when RPC_BASE_URL is set)")
	runCmd.Flags().Float64Var(&runFlags.startCash, "start-cash", 10_000, "initial vault cash in USD")
	runCmd.Flags().BoolVar(&runFlags.enableJSONL, "jsonl", false, "also append tick rows as JSON lines")
	rootCmd.AddCommand(runCmd)
}

func runLive(cmd *cobra.Command, args []string) error {
	mode := strings.ToUpper(runFlags.mode)
	if mode != engine.ModeA && mode != engine.ModeB {
		return fmt.Errorf("mode must be A or B, got %q", runFlags.mode)
	}

	liveCfg, err := config.LoadLiveConfig(runFlags.liveConfig)
	if err != nil {
		return err
	}

	adp, err := selectAdapter()
	if err != nil {
		return err
	}
	if err := applyNudges(adp, runFlags.nudges); err != nil {
		return err
	}

	dbReady := initDBIfConfigured()
	if dbReady {
		defer state.CloseDB()
	}

	var store volindex.Store
	if dbReady {
		store = state.PGIndexStore{Name: "pvm"}
	} else {
		store = volindex.FileStore{Path: config.SnapshotPath}
	}
	calc := volindex.NewCalculator(liveCfg.Assets, liveCfg.Index.Alpha, liveCfg.Index.Beta, liveCfg.Index.KF)
	index, err := volindex.NewIndex(calc, store)
	if err != nil {
		return err
	}

	v := vault.New(runFlags.startCash, liveCfg.Assets)
	live := engine.NewLive(adp, v, index, liveCfg, runFlags.dryRun)

	var vTargetOverride *float64
	if cmd.Flags().Changed("v-target") {
		vTargetOverride = &runFlags.vTarget
	}

	tickCSV := report.NewTickWriter(filepath.Join(config.ReportsDir, "rebalance.csv"), liveCfg.Assets)
	jsonlPath := filepath.Join(config.ReportsDir, "run.jsonl")
	steps := 0
	sink := func(row types.TickRow) error {
		steps++
		web.RecordTick(row)
		if err := tickCSV.Append(row); err != nil {
			return err
		}
		if runFlags.enableJSONL {
			return report.AppendJSONL(jsonlPath, row)
		}
		return nil
	}

	if runFlags.once {
		row := live.Tick(runFlags.slotOffset, mode, vTargetOverride)
		if err := sink(row); err != nil {
			return err
		}
		log.Info().
			Str("status", row.Status).
			Float64("nav_after", row.NAVAfter).
			Float64("vol_index", row.VolIndex).
			Msg("Tick complete")
		return nil
	}

	webServer := web.NewWebServer(config.WebPort)
	go func() {
		if err := webServer.Start(); err != nil {
			log.Error().Err(err).Msg("Web server failed to start")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	startedAt := time.Now().UTC()
	startNAV := v.NAV(nil)
	interval := time.Duration(config.TickInterval) * time.Second
	err = live.Loop(ctx, interval, runFlags.slotOffset, mode, sink)
	if err != nil && err != context.Canceled {
		return err
	}

	if dbReady {
		saveRunSnapshot("live", mode, startedAt, steps, startNAV, v.NAV(nil), nil)
	}
	return nil
}

func selectAdapter() (adapter.Adapter, error) {
	name := runFlags.useAdapter
	if name == "" {
		if config.RPCBaseURL != "" {
			name = "remote"
		} else {
			name = "mock"
		}
	}
	switch name {
	case "mock":
		return adapter.NewMock(), nil
	case "remote":
		if config.RPCBaseURL == "" {
			return nil, fmt.Errorf("remote adapter requires RPC_BASE_URL")
		}
		return adapter.NewRemote(config.RPCBaseURL, config.RPCAPIKey), nil
	default:
		return nil, fmt.Errorf("unknown adapter %q", name)
	}
}

// applyNudges moves quotes on adapters that support it. Requesting a nudge on
// an adapter that cannot honor it is an error rather than a silent no-op.
func applyNudges(adp adapter.Adapter, nudges []string) error {
	if len(nudges) == 0 {
		return nil
	}
	nudger, ok := adp.(adapter.PriceNudger)
	if !ok {
		return fmt.Errorf("adapter does not support price nudging")
	}
	prices := make(map[string]float64, len(nudges))
	for _, n := range nudges {
		parts := strings.SplitN(n, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid nudge %q, expected SYMBOL=PRICE", n)
		}
		px, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			return fmt.Errorf("invalid nudge price %q: %w", parts[1], err)
		}
		prices[strings.ToUpper(parts[0])] = px
	}
	nudger.NudgePrices(prices)
	return nil
}
