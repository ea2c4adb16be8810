package risk

import "sync"

// Group is the external correlation classification attached to an instrument. The
// ledger accepts it as input and never computes it.
type Group struct {
	Key   string `json:"key"`
	Loose bool   `json:"loose,omitempty"` // loosely correlated groups get the wider cap
}

// UnitCaps carries the four simultaneous limits the ledger enforces.
type UnitCaps struct {
	PerInstrument int // default 4
	TightGroup    int // default 10
	LooseGroup    int // default 16
	Total         int // default 20
}

// UnitLedger tracks committed portfolio Units per instrument, per correlation group,
// and in total. It is the one resource shared across concurrent instrument
// evaluations, so every read-check-write runs under a single mutex.
type UnitLedger struct {
	mu         sync.Mutex
	caps       UnitCaps
	instrument map[string]int
	group      map[string]int
	total      int
}

// NewUnitLedger returns an empty ledger with the supplied caps.
func NewUnitLedger(caps UnitCaps) *UnitLedger {
	return &UnitLedger{
		caps:       caps,
		instrument: make(map[string]int),
		group:      make(map[string]int),
	}
}

func (l *UnitLedger) groupCap(g Group) int {
	if g.Loose {
		return l.caps.LooseGroup
	}
	return l.caps.TightGroup
}

func (l *UnitLedger) fits(symbol string, g Group, units int) bool {
	if l.total+units > l.caps.Total {
		return false
	}
	if l.instrument[symbol]+units > l.caps.PerInstrument {
		return false
	}
	if g.Key != "" && l.group[g.Key]+units > l.groupCap(g) {
		return false
	}
	return true
}

// CanCommit reports whether one more unit fits under all three caps.
func (l *UnitLedger) CanCommit(symbol string, g Group) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.fits(symbol, g, 1)
}

// Commit reserves units atomically: either all caps hold and the commitment is
// recorded, or nothing changes and false is returned.
func (l *UnitLedger) Commit(symbol string, g Group, units int) bool {
	if units <= 0 {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.fits(symbol, g, units) {
		return false
	}
	l.total += units
	l.instrument[symbol] += units
	if g.Key != "" {
		l.group[g.Key] += units
	}
	return true
}

// Release returns units to the budget, clamping at zero so a double release cannot
// drive counters negative.
func (l *UnitLedger) Release(symbol string, g Group, units int) {
	if units <= 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.total = maxInt(0, l.total-units)
	if remaining := l.instrument[symbol] - units; remaining > 0 {
		l.instrument[symbol] = remaining
	} else {
		delete(l.instrument, symbol)
	}
	if g.Key != "" {
		if remaining := l.group[g.Key] - units; remaining > 0 {
			l.group[g.Key] = remaining
		} else {
			delete(l.group, g.Key)
		}
	}
}

// AvailableUnits returns total cap headroom.
func (l *UnitLedger) AvailableUnits() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.caps.Total - l.total
}

// InstrumentUnits returns the committed units for one symbol.
func (l *UnitLedger) InstrumentUnits(symbol string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.instrument[symbol]
}

// Snapshot returns a copy of the per-instrument commitments for persistence.
func (l *UnitLedger) Snapshot() map[string]int {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[string]int, len(l.instrument))
	for sym, units := range l.instrument {
		out[sym] = units
	}
	return out
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
