package broker

import (
	"context"
	"math"
	"testing"
)

func fixedQuote(prices map[string]float64) QuoteFunc {
	return func(symbol string) float64 { return prices[symbol] }
}

func TestPaperFillsImmediatelyAtQuote(t *testing.T) {
	p := NewPaper(100_000, fixedQuote(map[string]float64{"AAPL": 200}))
	res, err := p.SubmitOrder(context.Background(), OrderIntent{
		ClientID: "c1", Symbol: "AAPL", Side: Buy, Qty: 100, Type: Market,
	})
	if err != nil {
		t.Fatalf("SubmitOrder error: %v", err)
	}
	if res.Status != StatusFilled || res.FillPrice != 200 || res.FilledQty != 100 {
		t.Fatalf("unexpected fill: %+v", res)
	}
	if p.Cash() != 80_000 {
		t.Fatalf("expected cash 80000, got %v", p.Cash())
	}
	if p.PositionQty("AAPL") != 100 {
		t.Fatalf("expected 100 shares, got %d", p.PositionQty("AAPL"))
	}
}

func TestPaperRejectsUnfundedBuy(t *testing.T) {
	p := NewPaper(1000, fixedQuote(map[string]float64{"AAPL": 200}))
	res, err := p.SubmitOrder(context.Background(), OrderIntent{Symbol: "AAPL", Side: Buy, Qty: 100, Type: Market})
	if err != nil {
		t.Fatalf("SubmitOrder error: %v", err)
	}
	if res.Status != StatusRejected {
		t.Fatalf("expected rejection, got %+v", res)
	}
	if p.Cash() != 1000 {
		t.Fatalf("rejection must not move cash, got %v", p.Cash())
	}
}

func TestPaperRejectsOversell(t *testing.T) {
	p := NewPaper(100_000, fixedQuote(map[string]float64{"AAPL": 200}))
	res, err := p.SubmitOrder(context.Background(), OrderIntent{Symbol: "AAPL", Side: Sell, Qty: 1, Type: Market})
	if err != nil {
		t.Fatalf("SubmitOrder error: %v", err)
	}
	if res.Status != StatusRejected {
		t.Fatalf("expected rejection, got %+v", res)
	}
}

func TestPaperOrderStatusReplaysResult(t *testing.T) {
	p := NewPaper(100_000, fixedQuote(map[string]float64{"AAPL": 200}))
	res, _ := p.SubmitOrder(context.Background(), OrderIntent{Symbol: "AAPL", Side: Buy, Qty: 10, Type: Market})
	again, err := p.OrderStatus(context.Background(), res.OrderID)
	if err != nil {
		t.Fatalf("OrderStatus error: %v", err)
	}
	if again != res {
		t.Fatalf("status mismatch: %+v vs %+v", again, res)
	}
	if _, err := p.OrderStatus(context.Background(), "missing"); err != ErrUnknownOrder {
		t.Fatalf("expected ErrUnknownOrder, got %v", err)
	}
}

func TestPaperAccountValueMarksToMarket(t *testing.T) {
	prices := map[string]float64{"AAPL": 200}
	p := NewPaper(100_000, fixedQuote(prices))
	_, _ = p.SubmitOrder(context.Background(), OrderIntent{Symbol: "AAPL", Side: Buy, Qty: 100, Type: Market})

	prices["AAPL"] = 210
	value, err := p.AccountValue(context.Background())
	if err != nil {
		t.Fatalf("AccountValue error: %v", err)
	}
	if math.Abs(value-101_000) > 1e-9 {
		t.Fatalf("expected 101000, got %v", value)
	}
}

func TestPaperRoundTripRealizes(t *testing.T) {
	prices := map[string]float64{"AAPL": 200}
	p := NewPaper(100_000, fixedQuote(prices))
	_, _ = p.SubmitOrder(context.Background(), OrderIntent{Symbol: "AAPL", Side: Buy, Qty: 100, Type: Market})
	prices["AAPL"] = 220
	res, _ := p.SubmitOrder(context.Background(), OrderIntent{Symbol: "AAPL", Side: Sell, Qty: 100, Type: Market})
	if res.Status != StatusFilled {
		t.Fatalf("expected fill, got %+v", res)
	}
	if p.Cash() != 102_000 {
		t.Fatalf("expected 102000 cash, got %v", p.Cash())
	}
	if p.PositionQty("AAPL") != 0 {
		t.Fatalf("expected flat, got %d", p.PositionQty("AAPL"))
	}
}
