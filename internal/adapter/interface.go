package adapter

// Order sides accepted by PlaceOrder.
const (
	SideBuy  = "BUY"
	SideSell = "SELL"
)

// Fill is the acknowledgment returned by an executed order.
type Fill struct {
	Symbol         string  `json:"symbol"`
	Side           string  `json:"side"`
	FilledUSD      float64 `json:"filled_usd"`
	NewPositionUSD float64 `json:"new_pos_usd"`
}

// Adapter defines the interface to a market/execution venue. Every method is
// mandatory and may fail; the engine treats a failure as aborting only the
// current step, never as corrupting persisted state.
type Adapter interface {
	// GetPrices returns the current mark price per symbol.
	GetPrices() (map[string]float64, error)

	// GetFundingRates returns the current funding per symbol in bps per period.
	GetFundingRates() (map[string]float64, error)

	// EstimateSlippageBps estimates execution slippage for a USD delta.
	EstimateSlippageBps(symbol string, deltaUSD float64) (int, error)

	// PlaceOrder executes a USD-notional order and returns the fill.
	PlaceOrder(symbol, side string, deltaUSD float64) (Fill, error)
}

// PriceNudger is an explicitly optional capability for offline demos: adapters
// that can have their quotes moved by hand implement it in addition to
// Adapter. Callers check for it with a type assertion, never by probing
// method presence at runtime.
type PriceNudger interface {
	NudgePrices(prices map[string]float64)
}
