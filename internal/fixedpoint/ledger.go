package fixedpoint

import "sort"

// Ledger is the signed notional position book, symbol -> micro-USD. Mutated
// only by the final guarded targets being adopted as fills; the engine is the
// single writer.
type Ledger struct {
	positions map[string]USD
}

// NewLedger creates an empty ledger seeded with zero positions for the given
// symbols.
func NewLedger(symbols []string) *Ledger {
	l := &Ledger{positions: make(map[string]USD, len(symbols))}
	for _, s := range symbols {
		l.positions[s] = 0
	}
	return l
}

// Position returns the signed notional for a symbol (zero if untracked).
func (l *Ledger) Position(symbol string) USD {
	return l.positions[symbol]
}

// Positions returns a copy of the full position map.
func (l *Ledger) Positions() map[string]USD {
	out := make(map[string]USD, len(l.positions))
	for s, p := range l.positions {
		out[s] = p
	}
	return out
}

// Symbols returns the tracked symbols in deterministic order.
func (l *Ledger) Symbols() []string {
	syms := make([]string, 0, len(l.positions))
	for s := range l.positions {
		syms = append(syms, s)
	}
	sort.Strings(syms)
	return syms
}

// Adopt overwrites positions with the final target map from the guard
// pipeline. Symbols absent from the map keep their current position.
func (l *Ledger) Adopt(final map[string]USD) {
	for s, p := range final {
		l.positions[s] = p
	}
}

// GrossDelta sums the absolute per-symbol differences between the given final
// positions and the current book: the gross turnover a fill would realize.
func (l *Ledger) GrossDelta(final map[string]USD) USD {
	var gross USD
	for s, p := range final {
		gross += (p - l.positions[s]).Abs()
	}
	return gross
}
