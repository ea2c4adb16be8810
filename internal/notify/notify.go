// Package notify pushes structured trading events to an operator-facing sink.
// Delivery failures never block or fail trading logic.
package notify

import (
	"fmt"
	"time"
)

// EventKind classifies what happened.
type EventKind string

const (
	EventSignal      EventKind = "signal"
	EventOrderFilled EventKind = "order_filled"
	EventOrderReject EventKind = "order_rejected"
	EventStopRegime  EventKind = "stop_regime"
	EventLedgerFull  EventKind = "ledger_full"
	EventUnresolved  EventKind = "order_unresolved"
	EventTradeClosed EventKind = "trade_closed"
)

// Event is one operator notification.
type Event struct {
	Kind   EventKind
	Symbol string
	Text   string
	At     time.Time
}

// Notifier delivers events. Implementations must not block the caller.
type Notifier interface {
	Publish(e Event)
}

// Nop discards every event.
type Nop struct{}

// Publish implements Notifier.
func (Nop) Publish(Event) {}

func (e Event) String() string {
	return fmt.Sprintf("[%s] %s: %s", e.Kind, e.Symbol, e.Text)
}
