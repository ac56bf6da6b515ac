package fixedpoint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromFloatTruncates(t *testing.T) {
	assert.Equal(t, USD(1_500_000), FromFloat(1.5))
	assert.Equal(t, USD(1_999_999), FromFloat(1.9999999))
	assert.Equal(t, USD(-1_500_000), FromFloat(-1.5))
}

func TestFloatRoundTrip(t *testing.T) {
	u := FromFloat(123_456.789)
	assert.InDelta(t, 123_456.789, u.Float(), 1e-6)
}

func TestAbs(t *testing.T) {
	assert.Equal(t, USD(5), USD(-5).Abs())
	assert.Equal(t, USD(5), USD(5).Abs())
	assert.Equal(t, USD(0), USD(0).Abs())
}

func TestMulDivNoOverflow(t *testing.T) {
	// delta * gmax with NAV-scale operands overflows int64; the big-int path
	// must survive it.
	delta := USD(900_000 * Scale)           // $900k in micro-USD
	gmax := int64(1_000_000) * Scale / 10   // 10% of $1M NAV
	gross := int64(1_800_000) * Scale       // $1.8M gross
	scaled := MulDiv(delta, gmax, gross)
	assert.Equal(t, USD(50_000*Scale), scaled)
}

func TestMulDivTruncatesTowardZero(t *testing.T) {
	assert.Equal(t, USD(3), MulDiv(USD(10), 1, 3))
	assert.Equal(t, USD(-3), MulDiv(USD(-10), 1, 3))
}

func TestBpsOf(t *testing.T) {
	nav := USD(1_000_000 * Scale)
	assert.Equal(t, USD(100_000*Scale), BpsOf(nav, 1000))
	assert.Equal(t, nav, BpsOf(nav, 10_000))
	assert.Equal(t, USD(0), BpsOf(nav, 0))
}

func TestLedgerAdoptAndGrossDelta(t *testing.T) {
	l := NewLedger([]string{"BTC", "ETH"})
	require.Equal(t, USD(0), l.Position("BTC"))

	final := map[string]USD{"BTC": 1_000_000, "ETH": -400_000}
	assert.Equal(t, USD(1_400_000), l.GrossDelta(final))

	l.Adopt(final)
	assert.Equal(t, USD(1_000_000), l.Position("BTC"))
	assert.Equal(t, USD(-400_000), l.Position("ETH"))
	assert.Equal(t, USD(0), l.GrossDelta(final))
}

func TestLedgerPositionsIsCopy(t *testing.T) {
	l := NewLedger([]string{"BTC"})
	snapshot := l.Positions()
	snapshot["BTC"] = 999
	assert.Equal(t, USD(0), l.Position("BTC"))
}
