package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/perpvault/pvm/internal/types"
)

var ErrMissingColumn = fmt.Errorf("price csv missing required column")

// ReadPricesCSV parses a long-format price file with required columns
// timestamp, symbol and close. Funding is optional and accepted either as
// basis points (funding_bps, funding_rate_bps) or as a decimal fraction
// (funding, fundingRate) which is converted to bps. Rows come back sorted by
// timestamp.
func ReadPricesCSV(path string) ([]types.PriceTick, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open price csv: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read price csv header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{"timestamp", "symbol", "close"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, required)
		}
	}

	bpsCol, hasBps := fundingColumn(col, "funding_bps", "funding_rate_bps")
	decCol, hasDec := fundingColumn(col, "funding", "fundingRate")

	var out []types.PriceTick
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read price csv: %w", err)
		}
		ts, err := strconv.ParseInt(strings.TrimSpace(rec[col["timestamp"]]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse timestamp %q: %w", rec[col["timestamp"]], err)
		}
		close, err := strconv.ParseFloat(strings.TrimSpace(rec[col["close"]]), 64)
		if err != nil {
			return nil, fmt.Errorf("parse close %q: %w", rec[col["close"]], err)
		}
		tick := types.PriceTick{
			Timestamp: ts,
			Symbol:    strings.TrimSpace(rec[col["symbol"]]),
			Close:     close,
		}
		switch {
		case hasBps:
			tick.FundingBps = parseFloatLenient(rec, bpsCol)
		case hasDec:
			tick.FundingBps = parseFloatLenient(rec, decCol) * 10000.0
		}
		out = append(out, tick)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp < out[j].Timestamp })
	return out, nil
}

func fundingColumn(col map[string]int, names ...string) (int, bool) {
	for _, n := range names {
		if i, ok := col[n]; ok {
			return i, true
		}
	}
	return 0, false
}

// Malformed or empty funding cells degrade to zero rather than failing the
// whole file.
func parseFloatLenient(rec []string, idx int) float64 {
	if idx >= len(rec) {
		return 0
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(rec[idx]), 64)
	if err != nil {
		return 0
	}
	return v
}
