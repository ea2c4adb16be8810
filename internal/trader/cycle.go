package trader

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/blood8879/turtle-canslim/internal/broker"
	"github.com/blood8879/turtle-canslim/internal/indicator"
	"github.com/blood8879/turtle-canslim/internal/journal"
	"github.com/blood8879/turtle-canslim/internal/market"
	"github.com/blood8879/turtle-canslim/internal/metrics"
	"github.com/blood8879/turtle-canslim/internal/notify"
	"github.com/blood8879/turtle-canslim/internal/position"
	"github.com/blood8879/turtle-canslim/internal/signal"
)

// view is one symbol's market state for the current cycle: the latest price, the
// current N, and the high/low series with today as the final element.
type view struct {
	price float64
	n     float64
	highs []float64
	lows  []float64
}

// Cycle runs one full evaluation pass: exits and stops first, then pyramid adds,
// then fresh entries. Market data is fetched concurrently; orders go out one at a
// time in symbol order so unit competition is deterministic.
func (t *Trader) Cycle(ctx context.Context) error {
	started := t.now()
	defer func() {
		metrics.CycleDuration.Observe(time.Since(started).Seconds())
	}()

	symbols := t.cycleSymbols()
	views := t.observeAll(ctx, symbols)

	t.runExits(ctx, views)
	t.runPyramids(ctx, views)
	t.runEntries(ctx, views)

	t.mu.Lock()
	open := len(t.positions)
	t.mu.Unlock()
	metrics.OpenPositions.Set(float64(open))
	metrics.UnitsCommitted.Set(float64(t.cfg.Risk.MaxUnitsTotal - t.ledger.AvailableUnits()))

	t.persist()
	return ctx.Err()
}

// cycleSymbols is the sorted union of the watchlist and symbols with open
// positions, so a position dropped from the watchlist is still managed to exit.
func (t *Trader) cycleSymbols() []string {
	seen := make(map[string]bool, len(t.cfg.Trader.Watchlist))
	for _, sym := range t.cfg.Trader.Watchlist {
		seen[sym] = true
	}
	for _, sym := range t.openSymbols() {
		seen[sym] = true
	}
	symbols := make([]string, 0, len(seen))
	for sym := range seen {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)
	return symbols
}

func (t *Trader) observeAll(ctx context.Context, symbols []string) map[string]view {
	var (
		mu    sync.Mutex
		wg    sync.WaitGroup
		views = make(map[string]view, len(symbols))
	)
	for _, sym := range symbols {
		wg.Add(1)
		go func(sym string) {
			defer wg.Done()
			v, err := t.observe(ctx, sym)
			if err != nil {
				t.log.Warn().Err(err).Str("symbol", sym).Msg("skipping symbol this cycle")
				return
			}
			mu.Lock()
			views[sym] = v
			mu.Unlock()
		}(sym)
	}
	wg.Wait()
	return views
}

func (t *Trader) observe(ctx context.Context, symbol string) (view, error) {
	bars, err := t.provider.GetBars(ctx, symbol, t.cfg.BarLookback())
	if err != nil {
		return view{}, err
	}
	n, err := indicator.N(bars, t.cfg.Turtle.ATRPeriod)
	if err != nil {
		return view{}, err
	}
	return view{
		price: bars[len(bars)-1].Close,
		n:     n,
		highs: market.Highs(bars),
		lows:  market.Lows(bars),
	}, nil
}

// runExits checks every open position against its stop and its channel exit.
// Positions that survive get their stop advanced for the day.
func (t *Trader) runExits(ctx context.Context, views map[string]view) {
	for _, sym := range t.openSymbols() {
		v, ok := views[sym]
		if !ok {
			continue
		}
		t.mu.Lock()
		p := t.positions[sym]
		t.mu.Unlock()
		if p == nil {
			continue
		}

		if p.Stop.Triggered(v.price) {
			sig := signal.Signal{
				Symbol: sym,
				Kind:   signal.StopTrigger,
				System: p.EntrySystem,
				Price:  v.price,
				Level:  p.Stop.Price,
				N:      v.n,
				Ts:     t.now(),
			}
			t.closePosition(ctx, p, sig)
			continue
		}

		sig, err := t.detector.CheckExit(sym, v.price, v.n, v.lows, p.EntrySystem, t.now())
		if err != nil {
			t.log.Warn().Err(err).Str("symbol", sym).Msg("exit check failed")
			continue
		}
		if sig != nil {
			t.closePosition(ctx, p, *sig)
			continue
		}

		t.advanceStop(p, v)
	}
}

func (t *Trader) advanceStop(p *position.Position, v view) {
	t.mu.Lock()
	before := p.Stop
	p.Stop = t.stops.Advance(p.Stop, p.InitialEntry, v.price, v.n)
	after := p.Stop
	t.mu.Unlock()
	if after.Regime != before.Regime {
		t.log.Info().Str("symbol", p.Symbol).
			Str("regime", string(after.Regime)).
			Float64("stop", after.Price).
			Msg("stop regime changed")
		t.notifier.Publish(notify.Event{
			Kind:   notify.EventStopRegime,
			Symbol: p.Symbol,
			Text:   fmt.Sprintf("stop now %.2f (%s)", after.Price, after.Regime),
			At:     t.now(),
		})
	}
}

// runPyramids adds one tranche per cycle to positions that have advanced far
// enough. Adds take new risk, so a halted trader skips them.
func (t *Trader) runPyramids(ctx context.Context, views map[string]view) {
	if t.Halted() {
		return
	}
	for _, sym := range t.openSymbols() {
		v, ok := views[sym]
		if !ok {
			continue
		}
		t.mu.Lock()
		p := t.positions[sym]
		t.mu.Unlock()
		if p == nil {
			continue
		}
		if !t.pyramid.ShouldAdd(v.price, p.InitialEntry, v.n, p.Units) {
			continue
		}
		sig := signal.Signal{
			Symbol: sym,
			Kind:   signal.PyramidAdd,
			System: p.EntrySystem,
			Price:  v.price,
			Level:  t.pyramid.NextTrigger(p.InitialEntry, v.n, p.Units),
			N:      v.n,
			Ts:     t.now(),
		}
		t.recordSignal(sig)
		t.addTranche(ctx, p, sig)
		if t.Halted() {
			return
		}
	}
}

// runEntries evaluates breakouts on watchlist symbols without an open position,
// in symbol order so ledger headroom is contested deterministically.
func (t *Trader) runEntries(ctx context.Context, views map[string]view) {
	if t.Halted() {
		return
	}
	symbols := make([]string, 0, len(t.cfg.Trader.Watchlist))
	symbols = append(symbols, t.cfg.Trader.Watchlist...)
	sort.Strings(symbols)

	for _, sym := range symbols {
		v, ok := views[sym]
		if !ok {
			continue
		}
		if t.Position(sym) != nil {
			continue
		}
		sig, err := t.detector.CheckEntry(sym, v.price, v.n, v.highs, t.now())
		if err != nil {
			t.log.Warn().Err(err).Str("symbol", sym).Msg("entry check failed")
			continue
		}
		if sig == nil {
			continue
		}
		t.recordSignal(*sig)
		t.openPosition(ctx, *sig)
		if t.Halted() {
			return
		}
	}
}

func (t *Trader) recordSignal(sig signal.Signal) {
	metrics.SignalsTotal.WithLabelValues(sig.Symbol, string(sig.Kind)).Inc()
	if err := t.journal.RecordSignal(sig); err != nil {
		t.log.Error().Err(err).Str("symbol", sig.Symbol).Msg("signal journal write failed")
	}
	t.log.Info().Str("symbol", sig.Symbol).Str("kind", string(sig.Kind)).
		Float64("price", sig.Price).Float64("level", sig.Level).Msg("signal")
}

// openPosition sizes, reserves, and executes one entry unit. The ledger commit is
// speculative: a rejected order releases it, an unresolved one keeps it.
func (t *Trader) openPosition(ctx context.Context, sig signal.Signal) {
	stop := t.stops.Initial(sig.Price, sig.N)
	qty, err := t.sizer.PositionSize(t.accountValue(ctx), sig.Price, stop.Price)
	if err != nil {
		t.log.Warn().Err(err).Str("symbol", sig.Symbol).Msg("sizing failed")
		return
	}
	if qty == 0 {
		t.log.Info().Str("symbol", sig.Symbol).Msg("risk budget below one share, skipping entry")
		return
	}

	group := t.group(sig.Symbol)
	if !t.ledger.Commit(sig.Symbol, group, 1) {
		t.log.Info().Str("symbol", sig.Symbol).Msg("unit caps reached, entry blocked")
		t.notifier.Publish(notify.Event{
			Kind:   notify.EventLedgerFull,
			Symbol: sig.Symbol,
			Text:   fmt.Sprintf("entry blocked at %.2f, unit caps reached", sig.Price),
			At:     t.now(),
		})
		return
	}

	res := t.submitAndResolve(ctx, broker.OrderIntent{
		ClientID: uuid.New().String(),
		Symbol:   sig.Symbol,
		Side:     broker.Buy,
		Qty:      qty,
		Type:     broker.Market,
	})
	switch res.Status {
	case broker.StatusFilled:
		p := position.Open(sig.Symbol, sig.System, res.FillPrice, res.FilledQty, group, stop, t.now())
		t.mu.Lock()
		t.positions[sig.Symbol] = p
		t.mu.Unlock()
		t.notifier.Publish(notify.Event{
			Kind:   notify.EventOrderFilled,
			Symbol: sig.Symbol,
			Text:   fmt.Sprintf("entry S%d filled %d @ %.2f, stop %.2f (%s)", sig.System, res.FilledQty, res.FillPrice, stop.Price, stop.Regime),
			At:     t.now(),
		})
		t.persist()
	case broker.StatusRejected:
		t.ledger.Release(sig.Symbol, group, 1)
		t.rejected(sig.Symbol, broker.Buy, res)
	default:
		t.unresolved(sig.Symbol, broker.Buy, res)
	}
}

// addTranche executes one pyramid add on an open position and lifts the running
// stop to the tranche's entry stop if that is tighter.
func (t *Trader) addTranche(ctx context.Context, p *position.Position, sig signal.Signal) {
	stop := t.stops.Initial(sig.Price, sig.N)
	qty, err := t.sizer.PositionSize(t.accountValue(ctx), sig.Price, stop.Price)
	if err != nil {
		t.log.Warn().Err(err).Str("symbol", p.Symbol).Msg("tranche sizing failed")
		return
	}
	if qty == 0 {
		return
	}
	if !t.ledger.Commit(p.Symbol, p.Group, 1) {
		t.log.Info().Str("symbol", p.Symbol).Msg("unit caps reached, pyramid blocked")
		return
	}

	res := t.submitAndResolve(ctx, broker.OrderIntent{
		ClientID: uuid.New().String(),
		Symbol:   p.Symbol,
		Side:     broker.Buy,
		Qty:      qty,
		Type:     broker.Market,
	})
	switch res.Status {
	case broker.StatusFilled:
		t.mu.Lock()
		p.AddTranche(res.FilledQty, res.FillPrice)
		p.Stop = t.stops.Raise(p.Stop, stop.Price, stop.Regime)
		units := p.Units
		t.mu.Unlock()
		t.notifier.Publish(notify.Event{
			Kind:   notify.EventOrderFilled,
			Symbol: p.Symbol,
			Text:   fmt.Sprintf("pyramid unit %d filled %d @ %.2f", units, res.FilledQty, res.FillPrice),
			At:     t.now(),
		})
		t.persist()
	case broker.StatusRejected:
		t.ledger.Release(p.Symbol, p.Group, 1)
		t.rejected(p.Symbol, broker.Buy, res)
	default:
		t.unresolved(p.Symbol, broker.Buy, res)
	}
}

// closePosition sells the full quantity. An unresolved exit order leaves the
// position open and halts entries; the next cycle re-evaluates it.
func (t *Trader) closePosition(ctx context.Context, p *position.Position, sig signal.Signal) {
	t.recordSignal(sig)

	res := t.submitAndResolve(ctx, broker.OrderIntent{
		ClientID: uuid.New().String(),
		Symbol:   p.Symbol,
		Side:     broker.Sell,
		Qty:      p.Quantity,
		Type:     broker.Market,
	})
	switch res.Status {
	case broker.StatusFilled:
		t.mu.Lock()
		p.Close(res.FillPrice, string(sig.Kind), t.now())
		delete(t.positions, p.Symbol)
		t.mu.Unlock()
		t.ledger.Release(p.Symbol, p.Group, p.Units)
		if p.EntrySystem == 1 {
			t.detector.RecordSystem1Outcome(p.Symbol, p.Won())
		}
		record := journal.TradeRecord{
			Symbol:      p.Symbol,
			System:      p.EntrySystem,
			EntryPrice:  p.AvgEntry,
			ExitPrice:   p.ExitPrice,
			Quantity:    p.Quantity,
			Units:       p.Units,
			ExitReason:  p.ExitReason,
			RealizedPnL: p.RealizedPnL,
			HoldingDays: p.HoldingDays,
			ClosedAt:    p.ClosedAt,
		}
		if err := t.journal.RecordTrade(record); err != nil {
			t.log.Error().Err(err).Str("symbol", p.Symbol).Msg("trade journal write failed")
		}
		t.log.Info().Str("symbol", p.Symbol).Str("reason", string(sig.Kind)).
			Float64("pnl", p.RealizedPnL).Int("days", p.HoldingDays).Msg("position closed")
		t.notifier.Publish(notify.Event{
			Kind:   notify.EventTradeClosed,
			Symbol: p.Symbol,
			Text:   fmt.Sprintf("%s exit %d @ %.2f, pnl %.2f over %dd", sig.Kind, res.FilledQty, res.FillPrice, p.RealizedPnL, p.HoldingDays),
			At:     t.now(),
		})
		t.persist()
	case broker.StatusRejected:
		// Position and units stay; the exit fires again next cycle.
		t.rejected(p.Symbol, broker.Sell, res)
	default:
		t.unresolved(p.Symbol, broker.Sell, res)
	}
}

func (t *Trader) rejected(symbol string, side broker.Side, res broker.OrderResult) {
	metrics.OrdersTotal.WithLabelValues(symbol, string(side), "rejected").Inc()
	t.log.Warn().Str("symbol", symbol).Str("order_id", res.OrderID).
		Str("message", res.Message).Msg("order rejected")
	t.notifier.Publish(notify.Event{
		Kind:   notify.EventOrderReject,
		Symbol: symbol,
		Text:   fmt.Sprintf("order rejected: %s", res.Message),
		At:     t.now(),
	})
}

// unresolved marks the trader halted. The order is never resubmitted and any
// speculative unit commit stays reserved until an operator reconciles it.
func (t *Trader) unresolved(symbol string, side broker.Side, res broker.OrderResult) {
	metrics.OrdersTotal.WithLabelValues(symbol, string(side), "unresolved").Inc()
	t.mu.Lock()
	t.halted = true
	t.mu.Unlock()
	t.log.Error().Str("symbol", symbol).Str("order_id", res.OrderID).
		Msg("order unresolved after reconciliation, halting new entries")
	t.notifier.Publish(notify.Event{
		Kind:   notify.EventUnresolved,
		Symbol: symbol,
		Text:   fmt.Sprintf("order %s unresolved, new entries halted", res.OrderID),
		At:     t.now(),
	})
}

// submitAndResolve places one order and, if the broker answers pending, polls its
// status a bounded number of times. It never resubmits. A result still pending
// after the last poll is returned as-is for the caller to treat as unresolved.
func (t *Trader) submitAndResolve(ctx context.Context, intent broker.OrderIntent) broker.OrderResult {
	res, err := t.broker.SubmitOrder(ctx, intent)
	if err != nil {
		// A transport error leaves the true outcome unknown. Treat it as
		// unresolved rather than rejected; the order may have reached the venue.
		t.log.Error().Err(err).Str("symbol", intent.Symbol).Msg("order submit failed")
		return broker.OrderResult{Status: broker.StatusPending, Message: err.Error()}
	}
	if res.Status != broker.StatusPending {
		t.countResolved(intent, res)
		return res
	}

	interval := time.Duration(t.cfg.Broker.StatusPollMs) * time.Millisecond
	for attempt := 0; attempt < t.cfg.Broker.StatusPollAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return res
		case <-time.After(interval):
		}
		next, err := t.broker.OrderStatus(ctx, res.OrderID)
		if err != nil {
			if errors.Is(err, broker.ErrUnknownOrder) {
				return res
			}
			t.log.Warn().Err(err).Str("order_id", res.OrderID).Msg("status poll failed")
			continue
		}
		if next.Status != broker.StatusPending {
			t.countResolved(intent, next)
			return next
		}
		res = next
	}
	return res
}

func (t *Trader) countResolved(intent broker.OrderIntent, res broker.OrderResult) {
	if res.Status == broker.StatusFilled {
		metrics.OrdersTotal.WithLabelValues(intent.Symbol, string(intent.Side), "filled").Inc()
	}
}

func (t *Trader) accountValue(ctx context.Context) float64 {
	value, err := t.broker.AccountValue(ctx)
	if err != nil {
		t.log.Error().Err(err).Msg("account value fetch failed")
		return 0
	}
	return value
}
