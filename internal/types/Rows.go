/*

This file contains the per-step result rows emitted by the engines. Rows are
the unit consumed by the metrics accumulator and the reporting sinks: one row
per step, stable field order, failed steps visibly marked instead of omitted.

*/

package types

import (
	"time"

	"github.com/perpvault/pvm/internal/fixedpoint"
)

// Step notes recorded on backtest equity rows.
const (
	NoteRebalance        = "rebalance"
	NoteSkipThreshold    = "skip_threshold"
	NoteSkipNeutralDrift = "skip_neutral_drift"
)

// Tick statuses recorded on live rows.
const (
	StatusOK    = "OK"
	StatusError = "ERROR"
)

// PriceTick is one observed (timestamp, symbol, close, funding) market update.
type PriceTick struct {
	Timestamp  int64
	Symbol     string
	Close      float64
	FundingBps float64
}

// EquityRow is the per-timestamp backtest result: NAV after the step, gross
// turnover executed, costs paid and the note explaining what the step did.
type EquityRow struct {
	Timestamp     int64
	NAV           float64
	GrossTurnover fixedpoint.USD
	FeeUSD        float64
	FundingUSD    float64
	Note          string
}

// AssetTick is the per-asset slice of a live tick row.
type AssetTick struct {
	Symbol       string  `json:"symbol"`
	Price        float64 `json:"px"`
	PosBefore    float64 `json:"pos_usd_before"`
	Target       float64 `json:"target_usd"`
	Delta        float64 `json:"delta_usd"`
	OrderUSD     float64 `json:"order_usd"`
	SlipBps      *int    `json:"slip_bps,omitempty"`
	PosAfter     float64 `json:"pos_usd_after"`
	FundingBpDay float64 `json:"funding_bp_day"`
	Orders       int     `json:"orders_count"`
}

// TickRow is the structured result of one live engine tick.
type TickRow struct {
	Timestamp         time.Time   `json:"ts"`
	Slot              int         `json:"slot"`
	Mode              string      `json:"rebalance_mode"`
	NAVBefore         float64     `json:"nav_before"`
	VolIndex          float64     `json:"vol_index"`
	LeverageUsed      float64     `json:"leverage_used"`
	Assets            []AssetTick `json:"assets"`
	NAVAfter          float64     `json:"nav_after"`
	DeltaResidual     float64     `json:"delta_residual"`
	FundResidualBpDay float64     `json:"fund_residual_bp_day"`
	MinTradeUSD       float64     `json:"min_trade_usd"`
	LMax              float64     `json:"l_max"`
	AssetCap          float64     `json:"asset_cap"`
	SlipCapBps        int         `json:"slip_cap_bps"`
	LatencyMS         int         `json:"latency_ms"`
	Status            string      `json:"status"`
	ErrReason         string      `json:"err_reason"`
}

// RunSnapshot is the persisted summary of a completed run.
type RunSnapshot struct {
	RunID       string    `json:"run_id"`
	RunNumber   int       `json:"run_number"`
	Kind        string    `json:"kind"` // "backtest" or "live"
	Mode        string    `json:"mode,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
	Steps       int       `json:"steps"`
	StartNAVUSD float64   `json:"start_nav_usd"`
	FinalNAVUSD float64   `json:"final_nav_usd"`
	SummaryJSON []byte    `json:"summary,omitempty"`
}
