// Package risk encodes the guard-rails around every trade: stop placement, fixed
// fractional-risk sizing, the portfolio Unit ledger, and pyramid spacing.
package risk

// StopRegime tags which rule currently owns a position's stop price.
type StopRegime string

const (
	// RegimeVolatility is the entry stop at entry − multiplier×N.
	RegimeVolatility StopRegime = "2N"
	// RegimePercent is the entry stop at entry × (1 − maxPercent).
	RegimePercent StopRegime = "8%"
	// RegimeTrailing follows the high-water mark down by multiplier×N.
	RegimeTrailing StopRegime = "TRAILING"
	// RegimeBreakeven is the one-time ratchet to the entry price.
	RegimeBreakeven StopRegime = "BREAKEVEN"
)

// StopState is the stop owned by a single open long position. The effective price
// never decreases across updates.
type StopState struct {
	Price         float64    `json:"price"`
	Regime        StopRegime `json:"regime"`
	HighWaterMark float64    `json:"high_water_mark"`
}

// StopCalculator derives and advances stops from volatility and entry terms.
type StopCalculator struct {
	ATRMultiplier float64 // stop distance in N, default 2
	MaxPercent    float64 // hard percent floor on the entry stop, default 0.08
	BreakevenN    float64 // unrealized gain in N that arms the breakeven ratchet, default 1
}

// Initial places the entry stop: the tighter (higher) of the volatility stop and the
// percent stop. Ties go to the volatility regime.
func (c StopCalculator) Initial(entry, n float64) StopState {
	volStop := entry - c.ATRMultiplier*n
	pctStop := entry * (1 - c.MaxPercent)

	state := StopState{HighWaterMark: entry}
	if volStop >= pctStop {
		state.Price = volStop
		state.Regime = RegimeVolatility
	} else {
		state.Price = pctStop
		state.Regime = RegimePercent
	}
	return state
}

// Advance recomputes the stop for the latest price and volatility. The high-water
// mark ratchets up with price; the stop takes the highest of its current level, the
// trailing level, and (once gain ≥ BreakevenN×N) the entry price. It never moves down.
func (c StopCalculator) Advance(s StopState, entry, price, n float64) StopState {
	if price > s.HighWaterMark {
		s.HighWaterMark = price
	}

	if trailing := s.HighWaterMark - c.ATRMultiplier*n; trailing > s.Price {
		s.Price = trailing
		s.Regime = RegimeTrailing
	}
	if n > 0 && price-entry >= c.BreakevenN*n && entry > s.Price {
		s.Price = entry
		s.Regime = RegimeBreakeven
	}
	return s
}

// Raise lifts the stop to floor if that is higher, keeping the regime tag. Used when
// a pyramid tranche carries a tighter initial stop than the running one.
func (c StopCalculator) Raise(s StopState, floor float64, regime StopRegime) StopState {
	if floor > s.Price {
		s.Price = floor
		s.Regime = regime
	}
	return s
}

// Triggered reports whether the latest price has crossed the stop.
func (s StopState) Triggered(price float64) bool {
	return price <= s.Price
}
