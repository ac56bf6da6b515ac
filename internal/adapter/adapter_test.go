package adapter

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockSlippageTiers(t *testing.T) {
	m := NewMock()
	cases := []struct {
		deltaUSD float64
		wantBps  int
	}{
		{500, 5},
		{1_000, 5},
		{-3_000, 12},
		{5_000, 12},
		{15_000, 25},
		{-50_000, 35},
	}
	for _, c := range cases {
		bps, err := m.EstimateSlippageBps("BTC", c.deltaUSD)
		require.NoError(t, err)
		assert.Equal(t, c.wantBps, bps, "delta %f", c.deltaUSD)
	}
}

func TestMockPlaceOrderMutatesPosition(t *testing.T) {
	m := NewMock()

	fill, err := m.PlaceOrder("BTC", SideBuy, 1000)
	require.NoError(t, err)
	assert.Equal(t, 11_800.0, fill.NewPositionUSD)
	assert.Equal(t, 1000.0, fill.FilledUSD)

	fill, err = m.PlaceOrder("BTC", SideSell, 300)
	require.NoError(t, err)
	assert.Equal(t, 11_500.0, fill.NewPositionUSD)

	_, err = m.PlaceOrder("BTC", "hold", 100)
	assert.Error(t, err)
}

func TestMockNudgePrices(t *testing.T) {
	m := NewMock()
	m.NudgePrices(map[string]float64{"BTC": 66_000})

	prices, err := m.GetPrices()
	require.NoError(t, err)
	assert.Equal(t, 66_000.0, prices["BTC"])
	assert.Equal(t, 2_400.0, prices["ETH"])
}

func TestReplayRequiresFeed(t *testing.T) {
	r := NewReplay()

	_, err := r.GetPrices()
	assert.ErrorIs(t, err, ErrNoMarketData)
	_, err = r.GetFundingRates()
	assert.ErrorIs(t, err, ErrNoMarketData)

	r.Feed(map[string]float64{"BTC": 60_000}, map[string]float64{"BTC": 2})
	prices, err := r.GetPrices()
	require.NoError(t, err)
	assert.Equal(t, 60_000.0, prices["BTC"])

	funding, err := r.GetFundingRates()
	require.NoError(t, err)
	assert.Equal(t, 2.0, funding["BTC"])
}

func TestReplayFillsAccumulate(t *testing.T) {
	r := NewReplay()
	r.Feed(map[string]float64{"BTC": 60_000}, nil)

	fill, err := r.PlaceOrder("BTC", SideBuy, 2500)
	require.NoError(t, err)
	assert.Equal(t, 2500.0, fill.NewPositionUSD)

	fill, err = r.PlaceOrder("BTC", SideSell, 4000)
	require.NoError(t, err)
	assert.Equal(t, -1500.0, fill.NewPositionUSD)
}

func TestRemoteAdapterRoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		switch req.URL.Path {
		case "/prices":
			assert.Equal(t, "Bearer sekrit", req.Header.Get("Authorization"))
			json.NewEncoder(w).Encode(map[string]float64{"BTC": 61_000})
		case "/slippage":
			var in struct {
				Symbol   string  `json:"symbol"`
				DeltaUSD float64 `json:"delta_usd"`
			}
			require.NoError(t, json.NewDecoder(req.Body).Decode(&in))
			assert.Equal(t, "BTC", in.Symbol)
			json.NewEncoder(w).Encode(map[string]int{"bps": 9})
		case "/orders":
			json.NewEncoder(w).Encode(Fill{Symbol: "BTC", Side: SideBuy, FilledUSD: 1000, NewPositionUSD: 4000})
		default:
			http.NotFound(w, req)
		}
	}))
	defer srv.Close()

	r := NewRemote(srv.URL+"/", "sekrit")

	prices, err := r.GetPrices()
	require.NoError(t, err)
	assert.Equal(t, 61_000.0, prices["BTC"])

	bps, err := r.EstimateSlippageBps("BTC", 1500)
	require.NoError(t, err)
	assert.Equal(t, 9, bps)

	fill, err := r.PlaceOrder("BTC", SideBuy, 1000)
	require.NoError(t, err)
	assert.Equal(t, 4000.0, fill.NewPositionUSD)
}

func TestRemoteAdapterSurfacesHTTPErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	r := NewRemote(srv.URL, "")
	_, err := r.GetPrices()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}
