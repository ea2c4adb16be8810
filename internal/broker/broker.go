// Package broker abstracts order execution behind one interface with a paper and a
// live (Alpaca) implementation. The trading core holds no branch on which one is
// active.
package broker

import (
	"context"
	"errors"
)

// ErrUnknownOrder indicates a status query for an id the broker has never seen.
var ErrUnknownOrder = errors.New("broker: unknown order id")

// Side is the direction of an order.
type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

// OrderType selects market or limit execution.
type OrderType string

const (
	Market OrderType = "MARKET"
	Limit  OrderType = "LIMIT"
)

// Status is the resolution state of a submitted order.
type Status string

const (
	// StatusFilled means the order executed in full.
	StatusFilled Status = "FILLED"
	// StatusRejected means the venue refused the order; nothing executed.
	StatusRejected Status = "REJECTED"
	// StatusPending means the outcome is not yet known and must be reconciled.
	StatusPending Status = "PENDING"
)

// OrderIntent is produced once per accepted signal and never resubmitted. ClientID
// lets the broker deduplicate if a retry ever reaches it twice.
type OrderIntent struct {
	ClientID   string    `json:"client_id"`
	Symbol     string    `json:"symbol"`
	Side       Side      `json:"side"`
	Qty        int64     `json:"qty"`
	Type       OrderType `json:"type"`
	LimitPrice float64   `json:"limit_price,omitempty"`
}

// OrderResult is the broker's answer, immediately or after reconciliation.
type OrderResult struct {
	OrderID   string  `json:"order_id"`
	Status    Status  `json:"status"`
	FillPrice float64 `json:"fill_price,omitempty"`
	FilledQty int64   `json:"filled_qty,omitempty"`
	Message   string  `json:"message,omitempty"`
}

// Broker is the minimal execution surface the position manager needs.
type Broker interface {
	Name() string
	SubmitOrder(ctx context.Context, intent OrderIntent) (OrderResult, error)
	OrderStatus(ctx context.Context, orderID string) (OrderResult, error)
	AccountValue(ctx context.Context) (float64, error)
}
