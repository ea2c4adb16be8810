package broker

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// QuoteFunc supplies the latest price for a symbol, 0 when unknown.
type QuoteFunc func(symbol string) float64

// Paper simulates execution in memory: every order fills immediately and in full at
// the quoted (or limit) price. Cash and positions are tracked so AccountValue marks
// to market like a real account.
type Paper struct {
	quote QuoteFunc

	mu        sync.Mutex
	cash      float64
	positions map[string]int64
	orders    map[string]OrderResult
}

// NewPaper creates a paper broker with the supplied bankroll and quote source.
func NewPaper(startingCash float64, quote QuoteFunc) *Paper {
	return &Paper{
		quote:     quote,
		cash:      startingCash,
		positions: make(map[string]int64),
		orders:    make(map[string]OrderResult),
	}
}

func (p *Paper) Name() string { return "paper" }

// SubmitOrder fills at the limit price when given, else the current quote. Orders
// that cannot be priced or funded are rejected, never left pending.
func (p *Paper) SubmitOrder(ctx context.Context, intent OrderIntent) (OrderResult, error) {
	if err := ctx.Err(); err != nil {
		return OrderResult{}, err
	}
	if intent.Qty <= 0 {
		return OrderResult{}, fmt.Errorf("paper: quantity must be positive, got %d", intent.Qty)
	}

	price := intent.LimitPrice
	if intent.Type == Market || price <= 0 {
		price = p.quote(intent.Symbol)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	result := OrderResult{OrderID: uuid.New().String()}
	switch {
	case price <= 0:
		result.Status = StatusRejected
		result.Message = "no quote available"
	case intent.Side == Buy && float64(intent.Qty)*price > p.cash:
		result.Status = StatusRejected
		result.Message = "insufficient cash"
	case intent.Side == Sell && p.positions[intent.Symbol] < intent.Qty:
		result.Status = StatusRejected
		result.Message = "insufficient position"
	default:
		result.Status = StatusFilled
		result.FillPrice = price
		result.FilledQty = intent.Qty
		if intent.Side == Buy {
			p.cash -= float64(intent.Qty) * price
			p.positions[intent.Symbol] += intent.Qty
		} else {
			p.cash += float64(intent.Qty) * price
			if remaining := p.positions[intent.Symbol] - intent.Qty; remaining > 0 {
				p.positions[intent.Symbol] = remaining
			} else {
				delete(p.positions, intent.Symbol)
			}
		}
	}
	p.orders[result.OrderID] = result
	return result, nil
}

// OrderStatus replays the stored resolution for the id.
func (p *Paper) OrderStatus(ctx context.Context, orderID string) (OrderResult, error) {
	if err := ctx.Err(); err != nil {
		return OrderResult{}, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	result, ok := p.orders[orderID]
	if !ok {
		return OrderResult{}, ErrUnknownOrder
	}
	return result, nil
}

// AccountValue returns cash plus positions marked at the latest quotes.
func (p *Paper) AccountValue(ctx context.Context) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	value := p.cash
	for symbol, qty := range p.positions {
		value += float64(qty) * p.quote(symbol)
	}
	return value, nil
}

// Cash returns the free cash balance.
func (p *Paper) Cash() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cash
}

// PositionQty returns the held quantity for a symbol.
func (p *Paper) PositionQty(symbol string) int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.positions[symbol]
}
