package engine

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perpvault/pvm/internal/adapter"
	"github.com/perpvault/pvm/internal/config"
	"github.com/perpvault/pvm/internal/types"
	"github.com/perpvault/pvm/internal/vault"
	"github.com/perpvault/pvm/internal/volindex"
)

func newTestLive(t *testing.T, a adapter.Adapter, cfg config.LiveConfig, cashUSD float64) (*Live, *vault.Vault) {
	t.Helper()
	calc := volindex.NewCalculator(cfg.Assets, cfg.Index.Alpha, cfg.Index.Beta, cfg.Index.KF)
	idx, err := volindex.NewIndex(calc, volindex.FileStore{Path: filepath.Join(t.TempDir(), "snap.json")})
	require.NoError(t, err)
	v := vault.New(cashUSD, cfg.Assets)
	return NewLive(a, v, idx, cfg, false), v
}

func TestTickModeAExecutesDeltas(t *testing.T) {
	mock := adapter.NewMock()
	cfg := config.DefaultLiveConfig()
	live, v := newTestLive(t, mock, cfg, 10_000)

	row := live.Tick(0, ModeA, nil)

	assert.Equal(t, types.StatusOK, row.Status)
	assert.Equal(t, 1.0, row.LeverageUsed)
	assert.Equal(t, 10_000.0, row.NAVBefore)
	assert.Equal(t, 10.0, row.MinTradeUSD)

	require.Len(t, row.Assets, 2)
	btc, eth := row.Assets[0], row.Assets[1]
	assert.Equal(t, "BTC", btc.Symbol)
	assert.Equal(t, 5000.0, btc.Target)
	assert.Equal(t, 5000.0, btc.Delta)
	assert.Equal(t, 1, btc.Orders)
	assert.Equal(t, 5000.0, btc.OrderUSD)
	require.NotNil(t, btc.SlipBps)
	assert.Equal(t, 12, *btc.SlipBps)

	assert.Equal(t, "ETH", eth.Symbol)
	assert.Equal(t, -5000.0, eth.Target)

	// Fills land on the venue's running inventory and are mirrored into the
	// vault.
	assert.InDelta(t, 15_800.0, btc.PosAfter, 1e-9)
	assert.InDelta(t, -12_920.0, eth.PosAfter, 1e-9)
	assert.InDelta(t, 15_800.0, v.Position("BTC"), 1e-9)
	assert.InDelta(t, -12_920.0, v.Position("ETH"), 1e-9)
	assert.InDelta(t, (15_800.0-12_920.0)/10_000.0, row.DeltaResidual, 1e-9)
}

func TestTickModeBUsesVolTargetOverride(t *testing.T) {
	mock := adapter.NewMock()
	cfg := config.DefaultLiveConfig()
	live, _ := newTestLive(t, mock, cfg, 10_000)

	vTarget := 2.0
	row := live.Tick(0, ModeB, &vTarget)

	// A fresh index has zero proxy vol, so the solver saturates at L_max and
	// the degenerate risk-parity split is an even long/short book.
	assert.Equal(t, types.StatusOK, row.Status)
	assert.Equal(t, cfg.LMax, row.LeverageUsed)
	require.Len(t, row.Assets, 2)
	assert.InDelta(t, 10_000.0, row.Assets[0].Target, 1e-9)
	assert.InDelta(t, -10_000.0, row.Assets[1].Target, 1e-9)
	assert.Equal(t, chunkCount, row.Assets[0].Orders)
	assert.InDelta(t, 10_000.0, row.Assets[0].OrderUSD, 1e-9)
}

func TestTickLeverageGuardRejects(t *testing.T) {
	mock := adapter.NewMock()
	cfg := config.DefaultLiveConfig()
	cfg.LMax = 0.5
	live, v := newTestLive(t, mock, cfg, 10_000)

	row := live.Tick(0, ModeA, nil)

	assert.Equal(t, types.StatusError, row.Status)
	assert.NotEmpty(t, row.ErrReason)
	assert.Equal(t, row.NAVBefore, row.NAVAfter)
	for _, a := range row.Assets {
		assert.Zero(t, a.Orders)
	}
	assert.Zero(t, v.Position("BTC"))
}

func TestTickSkipsBelowMinTrade(t *testing.T) {
	mock := adapter.NewMock()
	cfg := config.DefaultLiveConfig()
	cfg.MinTradeFrac = 1.0
	live, v := newTestLive(t, mock, cfg, 10_000)

	row := live.Tick(0, ModeA, nil)

	assert.Equal(t, types.StatusOK, row.Status)
	for _, a := range row.Assets {
		assert.Zero(t, a.Orders)
		assert.Zero(t, a.OrderUSD)
		assert.Equal(t, a.PosBefore, a.PosAfter)
	}
	assert.Zero(t, v.Position("BTC"))
}

func TestTickSlippageCapBlocksOrders(t *testing.T) {
	mock := adapter.NewMock()
	cfg := config.DefaultLiveConfig()
	cfg.SlippageCapBps = 10
	live, _ := newTestLive(t, mock, cfg, 10_000)

	row := live.Tick(0, ModeA, nil)

	assert.Equal(t, types.StatusError, row.Status)
	assert.Contains(t, row.ErrReason, "BTC")
	assert.Contains(t, row.ErrReason, "ETH")
	for _, a := range row.Assets {
		assert.Zero(t, a.Orders)
	}
}

func TestTickAdapterFailureProducesErrorRow(t *testing.T) {
	replay := adapter.NewReplay()
	cfg := config.DefaultLiveConfig()
	live, _ := newTestLive(t, replay, cfg, 10_000)

	row := live.Tick(3, ModeA, nil)

	assert.Equal(t, types.StatusError, row.Status)
	assert.NotEmpty(t, row.ErrReason)
	assert.Equal(t, 3, row.Slot)
	assert.Equal(t, 10_000.0, row.NAVBefore)
	assert.Equal(t, row.NAVBefore, row.NAVAfter)
	require.Len(t, row.Assets, 2)
	assert.Equal(t, "BTC", row.Assets[0].Symbol)
	assert.Zero(t, row.Assets[0].Price)
}
