/*

This file contains the CSV reporting sinks. Column order is fixed so rows from
different runs line up, and numeric fields are formatted deterministically.

*/

package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/perpvault/pvm/internal/types"
)

// EquityWriter streams backtest equity rows to a CSV file.
type EquityWriter struct {
	f *os.File
	w *csv.Writer
}

// NewEquityWriter creates the file, writing the header immediately.
func NewEquityWriter(path string) (*EquityWriter, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create report dir: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create equity csv: %w", err)
	}
	w := csv.NewWriter(f)
	header := []string{"timestamp", "nav", "gross_turnover_e6", "fee_usd", "funding_usd", "note"}
	if err := w.Write(header); err != nil {
		f.Close()
		return nil, err
	}
	return &EquityWriter{f: f, w: w}, nil
}

func (e *EquityWriter) Write(row types.EquityRow) error {
	return e.w.Write([]string{
		strconv.FormatInt(row.Timestamp, 10),
		strconv.FormatFloat(row.NAV, 'f', -1, 64),
		strconv.FormatInt(int64(row.GrossTurnover), 10),
		fmt.Sprintf("%.2f", row.FeeUSD),
		fmt.Sprintf("%.2f", row.FundingUSD),
		row.Note,
	})
}

func (e *EquityWriter) Close() error {
	e.w.Flush()
	if err := e.w.Error(); err != nil {
		e.f.Close()
		return err
	}
	return e.f.Close()
}

// TickHeaders returns the flattened live tick CSV header for the given asset
// order. Per-asset columns are grouped the way the per-scalar fields read:
// prices first, then positions, targets, deltas, orders, slippage, after.
func TickHeaders(assets []string) []string {
	h := []string{"ts", "slot", "rebalance_mode", "nav_before", "vol_index", "l_used"}
	for _, a := range assets {
		h = append(h, sym(a)+"_px")
	}
	for _, a := range assets {
		h = append(h, sym(a)+"_pos_usd_before")
	}
	for _, a := range assets {
		h = append(h, sym(a)+"_target_usd")
	}
	for _, a := range assets {
		h = append(h, sym(a)+"_delta_usd")
	}
	for _, a := range assets {
		h = append(h, sym(a)+"_order_usd")
	}
	for _, a := range assets {
		h = append(h, sym(a)+"_slip_bps")
	}
	for _, a := range assets {
		h = append(h, sym(a)+"_pos_usd_after")
	}
	h = append(h, "nav_after", "delta_residual")
	for _, a := range assets {
		h = append(h, "funding_"+sym(a)+"_bp_day")
	}
	h = append(h, "fund_residual_bp_day")
	for _, a := range assets {
		h = append(h, "orders_count_"+sym(a))
	}
	h = append(h,
		"min_trade_usd", "l_max", "asset_cap", "slip_cap_bps",
		"latency_ms", "status", "err_reason",
	)
	return h
}

func sym(a string) string {
	return strings.ToLower(a)
}

// TickWriter appends live tick rows to a CSV file, writing the header only
// when the file is new or empty.
type TickWriter struct {
	path   string
	assets []string
}

func NewTickWriter(path string, assets []string) *TickWriter {
	return &TickWriter{path: path, assets: assets}
}

func (t *TickWriter) Append(row types.TickRow) error {
	if dir := filepath.Dir(t.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create report dir: %w", err)
		}
	}
	f, err := os.OpenFile(t.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open tick csv: %w", err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if st.Size() == 0 {
		if err := w.Write(TickHeaders(t.assets)); err != nil {
			return err
		}
	}
	if err := w.Write(t.values(row)); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

func (t *TickWriter) values(row types.TickRow) []string {
	byName := make(map[string]types.AssetTick, len(row.Assets))
	for _, a := range row.Assets {
		byName[a.Symbol] = a
	}
	v := []string{
		row.Timestamp.Format("2006-01-02T15:04:05Z07:00"),
		strconv.Itoa(row.Slot),
		row.Mode,
		usd(row.NAVBefore),
		usd(row.VolIndex),
		usd(row.LeverageUsed),
	}
	for _, a := range t.assets {
		v = append(v, usd(byName[a].Price))
	}
	for _, a := range t.assets {
		v = append(v, usd(byName[a].PosBefore))
	}
	for _, a := range t.assets {
		v = append(v, usd(byName[a].Target))
	}
	for _, a := range t.assets {
		v = append(v, usd(byName[a].Delta))
	}
	for _, a := range t.assets {
		v = append(v, usd(byName[a].OrderUSD))
	}
	for _, a := range t.assets {
		if s := byName[a].SlipBps; s != nil {
			v = append(v, strconv.Itoa(*s))
		} else {
			v = append(v, "")
		}
	}
	for _, a := range t.assets {
		v = append(v, usd(byName[a].PosAfter))
	}
	v = append(v, usd(row.NAVAfter), fmt.Sprintf("%.4f", row.DeltaResidual))
	for _, a := range t.assets {
		v = append(v, fmt.Sprintf("%.1f", byName[a].FundingBpDay))
	}
	v = append(v, fmt.Sprintf("%.1f", row.FundResidualBpDay))
	for _, a := range t.assets {
		v = append(v, strconv.Itoa(byName[a].Orders))
	}
	v = append(v,
		usd(row.MinTradeUSD),
		usd(row.LMax),
		usd(row.AssetCap),
		strconv.Itoa(row.SlipCapBps),
		strconv.Itoa(row.LatencyMS),
		row.Status,
		row.ErrReason,
	)
	return v
}

func usd(x float64) string {
	return fmt.Sprintf("%.2f", x)
}
