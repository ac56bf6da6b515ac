/*

This file contains the decimal vault accounting used by the live engine: cash,
signed USD positions, last fill prices and shares outstanding. PnL marking is
quantity-implied: the quantity is derived from the position at the previous
price, which deliberately couples cost basis to the last fill price. Changing
that marking changes every historical result, so it is preserved exactly.

*/

package vault

import (
	"sort"
	"strconv"

	sdkmath "cosmossdk.io/math"
)

// Vault is the share-based NAV ledger. Single writer: the engine.
type Vault struct {
	cash        sdkmath.LegacyDec
	positions   map[string]sdkmath.LegacyDec
	lastPrice   map[string]sdkmath.LegacyDec
	totalShares sdkmath.LegacyDec
}

// New creates a vault seeded with cash and matching shares, holding zero
// positions in the given symbols.
func New(cashUSD float64, symbols []string) *Vault {
	v := &Vault{
		cash:        decFromFloat(cashUSD),
		positions:   make(map[string]sdkmath.LegacyDec, len(symbols)),
		lastPrice:   make(map[string]sdkmath.LegacyDec),
		totalShares: decFromFloat(cashUSD),
	}
	for _, s := range symbols {
		v.positions[s] = sdkmath.LegacyZeroDec()
	}
	return v
}

func decFromFloat(f float64) sdkmath.LegacyDec {
	// Fixed 18-decimal 'f' formatting: no exponents, and never more
	// fractional digits than LegacyDec accepts.
	return sdkmath.LegacyMustNewDecFromStr(strconv.FormatFloat(f, 'f', 18, 64))
}

// NAV accrues price-implied PnL into cash for every symbol with both an old
// and a new observed price, updates last prices, and returns the NAV. The PnL
// per symbol is (position/lastPrice) * (newPrice - lastPrice).
func (v *Vault) NAV(prices map[string]float64) float64 {
	for _, sym := range v.symbols() {
		px, ok := prices[sym]
		if !ok {
			continue
		}
		newPx := decFromFloat(px)
		if last, seen := v.lastPrice[sym]; seen && last.IsPositive() {
			qty := v.positions[sym].Quo(last)
			v.cash = v.cash.Add(qty.Mul(newPx.Sub(last)))
		}
		v.lastPrice[sym] = newPx
	}
	f, err := v.cash.Float64()
	if err != nil {
		return 0
	}
	return f
}

// PricePerShare returns NAV/shares after accruing PnL at the given prices.
func (v *Vault) PricePerShare(prices map[string]float64) float64 {
	nav := v.NAV(prices)
	shares, err := v.totalShares.Float64()
	if err != nil || shares == 0 {
		return 0
	}
	return nav / shares
}

// Deposit adds cash and mints shares at the current price per share.
func (v *Vault) Deposit(usd float64, prices map[string]float64) float64 {
	pps := v.PricePerShare(prices)
	if v.totalShares.IsZero() || pps == 0 {
		pps = 1
	}
	shares := usd / pps
	v.cash = v.cash.Add(decFromFloat(usd))
	v.totalShares = v.totalShares.Add(decFromFloat(shares))
	return shares
}

// Withdraw burns shares and removes the corresponding cash.
func (v *Vault) Withdraw(shares float64, prices map[string]float64) float64 {
	pps := v.PricePerShare(prices)
	usd := shares * pps
	v.cash = v.cash.Sub(decFromFloat(usd))
	v.totalShares = v.totalShares.Sub(decFromFloat(shares))
	return usd
}

// Position returns the signed USD notional held in a symbol.
func (v *Vault) Position(symbol string) float64 {
	p, ok := v.positions[symbol]
	if !ok {
		return 0
	}
	f, err := p.Float64()
	if err != nil {
		return 0
	}
	return f
}

// SetPosition overwrites the notional for a symbol, normally from an order
// fill acknowledgment.
func (v *Vault) SetPosition(symbol string, usd float64) {
	v.positions[symbol] = decFromFloat(usd)
}

// TotalShares returns the shares outstanding.
func (v *Vault) TotalShares() float64 {
	f, err := v.totalShares.Float64()
	if err != nil {
		return 0
	}
	return f
}

func (v *Vault) symbols() []string {
	syms := make([]string, 0, len(v.positions))
	for s := range v.positions {
		syms = append(syms, s)
	}
	sort.Strings(syms)
	return syms
}
