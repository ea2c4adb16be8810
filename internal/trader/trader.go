// Package trader runs the evaluation cycle: it turns market data into signals,
// signals into orders, and filled orders into tracked positions, under the unit
// ledger's budget.
package trader

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/blood8879/turtle-canslim/internal/broker"
	"github.com/blood8879/turtle-canslim/internal/config"
	"github.com/blood8879/turtle-canslim/internal/journal"
	"github.com/blood8879/turtle-canslim/internal/market"
	"github.com/blood8879/turtle-canslim/internal/notify"
	"github.com/blood8879/turtle-canslim/internal/position"
	"github.com/blood8879/turtle-canslim/internal/risk"
	"github.com/blood8879/turtle-canslim/internal/strategy"
)

// Trader owns the open positions and coordinates every subsystem for one account.
// A single goroutine calls Cycle; the mutex guards the position book against
// concurrent snapshot readers.
type Trader struct {
	cfg      *config.Config
	provider market.Provider
	broker   broker.Broker
	detector *strategy.Detector
	stops    risk.StopCalculator
	sizer    risk.Sizer
	ledger   *risk.UnitLedger
	pyramid  risk.PyramidPlanner
	journal  *journal.Journal
	notifier notify.Notifier
	log      zerolog.Logger
	now      func() time.Time

	mu        sync.Mutex
	positions map[string]*position.Position
	halted    bool
}

// New wires a trader from configuration and its collaborators.
func New(cfg *config.Config, provider market.Provider, b broker.Broker, jnl *journal.Journal, notifier notify.Notifier, log zerolog.Logger) *Trader {
	return &Trader{
		cfg:      cfg,
		provider: provider,
		broker:   b,
		detector: strategy.NewDetector(strategy.Params{
			System1EntryPeriod: cfg.Turtle.System1EntryPeriod,
			System1ExitPeriod:  cfg.Turtle.System1ExitPeriod,
			System2EntryPeriod: cfg.Turtle.System2EntryPeriod,
			System2ExitPeriod:  cfg.Turtle.System2ExitPeriod,
		}),
		stops: risk.StopCalculator{
			ATRMultiplier: cfg.Risk.StopATRMultiplier,
			MaxPercent:    cfg.Risk.StopMaxPercent,
			BreakevenN:    cfg.Risk.BreakevenThresholdN,
		},
		sizer: risk.Sizer{RiskPerUnit: cfg.Risk.RiskPerUnit},
		ledger: risk.NewUnitLedger(risk.UnitCaps{
			PerInstrument: cfg.Risk.MaxUnitsPerInstrument,
			TightGroup:    cfg.Risk.MaxUnitsCorrelated,
			LooseGroup:    cfg.Risk.MaxUnitsLooselyCorrelated,
			Total:         cfg.Risk.MaxUnitsTotal,
		}),
		pyramid: risk.PyramidPlanner{
			Interval: cfg.Turtle.PyramidUnitInterval,
			MaxUnits: cfg.Risk.MaxUnitsPerInstrument,
		},
		journal:   jnl,
		notifier:  notifier,
		log:       log,
		now:       time.Now,
		positions: make(map[string]*position.Position),
	}
}

// Restore rebuilds the position book and ledger commitments from the last saved
// snapshot. Must run before the first Cycle.
func (t *Trader) Restore() error {
	snap, err := t.journal.LoadSnapshot()
	if err != nil {
		return fmt.Errorf("trader restore: %w", err)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, p := range snap.Positions {
		if p.Status != position.StatusOpen {
			continue
		}
		if !t.ledger.Commit(p.Symbol, p.Group, p.Units) {
			return fmt.Errorf("trader restore: snapshot units for %s exceed caps", p.Symbol)
		}
		t.positions[p.Symbol] = p
	}
	t.log.Info().Int("positions", len(t.positions)).Msg("restored portfolio state")
	return nil
}

// Halted reports whether new entries are suspended after an unresolved order.
// Exits and stops keep running while halted.
func (t *Trader) Halted() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.halted
}

// Position returns the open position for a symbol, or nil.
func (t *Trader) Position(symbol string) *position.Position {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.positions[symbol]
}

// Ledger exposes the unit ledger for inspection.
func (t *Trader) Ledger() *risk.UnitLedger { return t.ledger }

func (t *Trader) group(symbol string) risk.Group {
	sec, ok := t.cfg.Trader.Sectors[symbol]
	if !ok {
		return risk.Group{}
	}
	return risk.Group{Key: sec.Key, Loose: sec.Loose}
}

func (t *Trader) openSymbols() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	symbols := make([]string, 0, len(t.positions))
	for sym := range t.positions {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)
	return symbols
}

func (t *Trader) snapshot() journal.Snapshot {
	t.mu.Lock()
	positions := make([]*position.Position, 0, len(t.positions))
	for _, p := range t.positions {
		positions = append(positions, p)
	}
	t.mu.Unlock()
	sort.Slice(positions, func(i, j int) bool { return positions[i].Symbol < positions[j].Symbol })
	return journal.Snapshot{
		UpdatedAt: t.now(),
		Positions: positions,
		Units:     t.ledger.Snapshot(),
	}
}

func (t *Trader) persist() {
	if err := t.journal.SaveSnapshot(t.snapshot()); err != nil {
		t.log.Error().Err(err).Msg("snapshot save failed")
	}
}
