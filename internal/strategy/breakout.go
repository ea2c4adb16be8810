// Package strategy implements the two-system Donchian breakout rules that decide
// entries and channel exits.
package strategy

import (
	"sync"
	"time"

	"github.com/blood8879/turtle-canslim/internal/indicator"
	"github.com/blood8879/turtle-canslim/internal/signal"
)

// Params carries the channel lookbacks for both systems.
type Params struct {
	System1EntryPeriod int // default 20
	System1ExitPeriod  int // default 10
	System2EntryPeriod int // default 55
	System2ExitPeriod  int // default 20
}

// Detector evaluates breakout entries and exits. The only state it keeps is the
// outcome of the last completed System-1 trade per symbol, which drives the
// post-win filter.
type Detector struct {
	params Params

	mu        sync.Mutex
	lastS1Won map[string]bool
}

// NewDetector builds a detector with the supplied channel parameters.
func NewDetector(params Params) *Detector {
	return &Detector{
		params:    params,
		lastS1Won: make(map[string]bool),
	}
}

// RecordSystem1Outcome feeds back whether the last closed System-1 trade on the
// symbol was a winner. A winning trade suppresses the next System-1 breakout.
func (d *Detector) RecordSystem1Outcome(symbol string, won bool) {
	d.mu.Lock()
	d.lastS1Won[symbol] = won
	d.mu.Unlock()
}

func (d *Detector) system1Suppressed(symbol string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	// No prior System-1 trade: the breakout is taken.
	return d.lastS1Won[symbol]
}

// CheckEntry evaluates the entry channels at the current price. System 2 takes
// priority and is never filtered; System 1 fires only when its last trade lost.
// Equality with the channel boundary never triggers. The highs window includes
// today as its final element; channels exclude it.
func (d *Detector) CheckEntry(symbol string, price, n float64, highs []float64, now time.Time) (*signal.Signal, error) {
	highS2, err := indicator.HighestHigh(highs, d.params.System2EntryPeriod)
	if err != nil {
		return nil, err
	}
	if price > highS2 {
		return &signal.Signal{
			Symbol: symbol,
			Kind:   signal.EntrySystem2,
			System: 2,
			Price:  price,
			Level:  highS2,
			N:      n,
			Ts:     now,
		}, nil
	}

	highS1, err := indicator.HighestHigh(highs, d.params.System1EntryPeriod)
	if err != nil {
		return nil, err
	}
	if price > highS1 && !d.system1Suppressed(symbol) {
		return &signal.Signal{
			Symbol: symbol,
			Kind:   signal.EntrySystem1,
			System: 1,
			Price:  price,
			Level:  highS1,
			N:      n,
			Ts:     now,
		}, nil
	}
	return nil, nil
}

// CheckExit evaluates the low channel matching the position's entry system. The
// lows window includes today as its final element; the channel excludes it.
func (d *Detector) CheckExit(symbol string, price, n float64, lows []float64, entrySystem int, now time.Time) (*signal.Signal, error) {
	period := d.params.System2ExitPeriod
	kind := signal.ExitSystem2
	if entrySystem == 1 {
		period = d.params.System1ExitPeriod
		kind = signal.ExitSystem1
	}
	low, err := indicator.LowestLow(lows, period)
	if err != nil {
		return nil, err
	}
	if price < low {
		return &signal.Signal{
			Symbol: symbol,
			Kind:   kind,
			System: entrySystem,
			Price:  price,
			Level:  low,
			N:      n,
			Ts:     now,
		}, nil
	}
	return nil, nil
}
