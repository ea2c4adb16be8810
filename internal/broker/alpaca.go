package broker

import (
	"context"
	"fmt"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/shopspring/decimal"
)

// Alpaca executes against the Alpaca trading API. Credentials come from the
// standard APCA_* environment variables picked up by the SDK client.
type Alpaca struct {
	client *alpaca.Client
}

// NewAlpaca builds a live broker over a default-configured Alpaca client.
func NewAlpaca() *Alpaca {
	return &Alpaca{client: alpaca.NewClient(alpaca.ClientOpts{})}
}

func (a *Alpaca) Name() string { return "alpaca" }

// SubmitOrder places a day order and maps the venue status onto the three-outcome
// model. Anything not terminally filled or rejected comes back pending for the
// reconciliation loop.
func (a *Alpaca) SubmitOrder(ctx context.Context, intent OrderIntent) (OrderResult, error) {
	if err := ctx.Err(); err != nil {
		return OrderResult{}, err
	}
	qty := decimal.NewFromInt(intent.Qty)
	req := alpaca.PlaceOrderRequest{
		Symbol:        intent.Symbol,
		Qty:           &qty,
		Side:          alpaca.Side(sideString(intent.Side)),
		Type:          alpaca.Market,
		TimeInForce:   alpaca.Day,
		ClientOrderID: intent.ClientID,
	}
	if intent.Type == Limit && intent.LimitPrice > 0 {
		limit := decimal.NewFromFloat(intent.LimitPrice)
		req.Type = alpaca.Limit
		req.LimitPrice = &limit
	}

	order, err := a.client.PlaceOrder(req)
	if err != nil {
		return OrderResult{}, fmt.Errorf("alpaca place order: %w", err)
	}
	return mapOrder(order), nil
}

// OrderStatus fetches the current state of a previously submitted order.
func (a *Alpaca) OrderStatus(ctx context.Context, orderID string) (OrderResult, error) {
	if err := ctx.Err(); err != nil {
		return OrderResult{}, err
	}
	order, err := a.client.GetOrder(orderID)
	if err != nil {
		return OrderResult{}, fmt.Errorf("alpaca get order: %w", err)
	}
	return mapOrder(order), nil
}

// AccountValue returns total account equity.
func (a *Alpaca) AccountValue(ctx context.Context) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	acct, err := a.client.GetAccount()
	if err != nil {
		return 0, fmt.Errorf("alpaca get account: %w", err)
	}
	return acct.Equity.InexactFloat64(), nil
}

func sideString(s Side) string {
	if s == Sell {
		return "sell"
	}
	return "buy"
}

func mapOrder(order *alpaca.Order) OrderResult {
	result := OrderResult{OrderID: order.ID}
	switch order.Status {
	case "filled":
		result.Status = StatusFilled
		result.FilledQty = order.FilledQty.IntPart()
		if order.FilledAvgPrice != nil {
			result.FillPrice = order.FilledAvgPrice.InexactFloat64()
		}
	case "rejected", "canceled", "expired":
		result.Status = StatusRejected
		result.Message = string(order.Status)
	default:
		result.Status = StatusPending
		result.Message = string(order.Status)
	}
	return result
}
