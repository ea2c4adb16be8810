package risk

// PyramidPlanner spaces additional tranches on a winning position at fixed
// volatility-scaled increments above the initial entry.
type PyramidPlanner struct {
	Interval float64 // spacing between adds in N, default 0.5
	MaxUnits int     // per-instrument unit ceiling, default 4
}

// NextTrigger returns the price at which the next add becomes eligible, given the
// initial entry and the units already held.
func (p PyramidPlanner) NextTrigger(initialEntry, n float64, units int) float64 {
	return initialEntry + float64(units)*p.Interval*n
}

// ShouldAdd reports whether the position may take one more tranche at the current
// price. The ledger gate is the caller's responsibility.
func (p PyramidPlanner) ShouldAdd(price, initialEntry, n float64, units int) bool {
	if units >= p.MaxUnits {
		return false
	}
	return price >= p.NextTrigger(initialEntry, n, units)
}
