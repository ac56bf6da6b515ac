package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perpvault/pvm/internal/types"
)

func TestEquityWriterRowFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports", "equity_curve.csv")
	w, err := NewEquityWriter(path)
	require.NoError(t, err)

	require.NoError(t, w.Write(types.EquityRow{
		Timestamp:     1_700_000_000,
		NAV:           997_000.5,
		GrossTurnover: 2_000_000_000_000,
		FeeUSD:        3000,
		FundingUSD:    -12.345,
		Note:          types.NoteRebalance,
	}))
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "timestamp,nav,gross_turnover_e6,fee_usd,funding_usd,note", lines[0])
	assert.Equal(t, "1700000000,997000.5,2000000000000,3000.00,-12.35,rebalance", lines[1])
}

func TestTickHeadersFollowAssetOrder(t *testing.T) {
	h := TickHeaders([]string{"BTC", "ETH"})

	assert.Equal(t, []string{"ts", "slot", "rebalance_mode", "nav_before", "vol_index", "l_used"}, h[:6])
	assert.Equal(t, "btc_px", h[6])
	assert.Equal(t, "eth_px", h[7])
	assert.Contains(t, h, "btc_pos_usd_before")
	assert.Contains(t, h, "eth_target_usd")
	assert.Contains(t, h, "funding_btc_bp_day")
	assert.Contains(t, h, "orders_count_eth")
	assert.Equal(t, "err_reason", h[len(h)-1])
}

func TestTickWriterAppendsHeaderOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rebalance.csv")
	w := NewTickWriter(path, []string{"BTC", "ETH"})

	slip := 12
	row := types.TickRow{
		Timestamp:    time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		Slot:         7,
		Mode:         "A",
		NAVBefore:    10_000,
		LeverageUsed: 1,
		Assets: []types.AssetTick{
			{Symbol: "BTC", Price: 60_000, Target: 5000, Delta: 5000, OrderUSD: 5000, SlipBps: &slip, PosAfter: 5000, Orders: 1},
			{Symbol: "ETH", Price: 2400, Target: -5000, Delta: -5000, OrderUSD: 5000, PosAfter: -5000, Orders: 1},
		},
		NAVAfter: 10_000,
		Status:   types.StatusOK,
	}
	require.NoError(t, w.Append(row))
	require.NoError(t, w.Append(row))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, strings.Join(TickHeaders([]string{"BTC", "ETH"}), ","), lines[0])

	cells := strings.Split(lines[1], ",")
	require.Equal(t, len(TickHeaders([]string{"BTC", "ETH"})), len(cells))
	assert.Equal(t, "2026-08-01T12:00:00Z", cells[0])
	assert.Equal(t, "7", cells[1])
	assert.Equal(t, "A", cells[2])
	assert.Equal(t, "10000.00", cells[3])
	assert.Equal(t, "60000.00", cells[6])

	// Missing slippage estimates serialize as an empty cell.
	slipIdx := 0
	for i, name := range TickHeaders([]string{"BTC", "ETH"}) {
		if name == "eth_slip_bps" {
			slipIdx = i
		}
	}
	assert.Equal(t, "", cells[slipIdx])
}

func TestReadPricesCSVSortsAndParsesFundingBps(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prices.csv")
	doc := "timestamp,symbol,close,funding_bps\n" +
		"1700003600,BTC,61000,2.5\n" +
		"1700000000,BTC,60000,1.0\n" +
		"1700000000,ETH,2400,bogus\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	ticks, err := ReadPricesCSV(path)
	require.NoError(t, err)
	require.Len(t, ticks, 3)
	assert.Equal(t, int64(1_700_000_000), ticks[0].Timestamp)
	assert.Equal(t, int64(1_700_003_600), ticks[2].Timestamp)
	assert.Equal(t, 2.5, ticks[2].FundingBps)
	assert.Zero(t, ticks[1].FundingBps)
}

func TestReadPricesCSVConvertsDecimalFunding(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prices.csv")
	doc := "timestamp,symbol,close,fundingRate\n" +
		"1700000000,BTC,60000,0.0001\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	ticks, err := ReadPricesCSV(path)
	require.NoError(t, err)
	require.Len(t, ticks, 1)
	assert.InDelta(t, 1.0, ticks[0].FundingBps, 1e-12)
}

func TestReadPricesCSVMissingColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prices.csv")
	require.NoError(t, os.WriteFile(path, []byte("timestamp,close\n1,2\n"), 0o644))

	_, err := ReadPricesCSV(path)
	assert.ErrorIs(t, err, ErrMissingColumn)
}
