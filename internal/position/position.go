// Package position models an open or closed trade with its tranches, stop, and
// realized outcome.
package position

import (
	"time"

	"github.com/google/uuid"

	"github.com/blood8879/turtle-canslim/internal/risk"
)

// Status is the lifecycle stage of a position.
type Status string

const (
	StatusOpen   Status = "OPEN"
	StatusClosed Status = "CLOSED"
)

// Position is a single long position built from one entry and up to three pyramid
// tranches. Cost basis is a running average; InitialEntry anchors pyramid levels.
// Once closed it is immutable apart from the realized fields written at close.
type Position struct {
	ID           string         `json:"id"`
	Symbol       string         `json:"symbol"`
	EntrySystem  int            `json:"entry_system"`
	InitialEntry float64        `json:"initial_entry"`
	AvgEntry     float64        `json:"avg_entry"`
	Quantity     int64          `json:"quantity"`
	Units        int            `json:"units"`
	Group        risk.Group     `json:"group"`
	Stop         risk.StopState `json:"stop"`
	Status       Status         `json:"status"`
	OpenedAt     time.Time      `json:"opened_at"`

	ClosedAt    time.Time `json:"closed_at,omitempty"`
	ExitPrice   float64   `json:"exit_price,omitempty"`
	ExitReason  string    `json:"exit_reason,omitempty"`
	RealizedPnL float64   `json:"realized_pnl,omitempty"`
	HoldingDays int       `json:"holding_days,omitempty"`
}

// Open creates a one-unit position from a filled entry order.
func Open(symbol string, system int, fillPrice float64, qty int64, group risk.Group, stop risk.StopState, at time.Time) *Position {
	return &Position{
		ID:           uuid.New().String(),
		Symbol:       symbol,
		EntrySystem:  system,
		InitialEntry: fillPrice,
		AvgEntry:     fillPrice,
		Quantity:     qty,
		Units:        1,
		Group:        group,
		Stop:         stop,
		Status:       StatusOpen,
		OpenedAt:     at,
	}
}

// AddTranche folds a filled pyramid order into the position: one more unit and a
// new running-average entry price.
func (p *Position) AddTranche(qty int64, fillPrice float64) {
	total := float64(p.Quantity)*p.AvgEntry + float64(qty)*fillPrice
	p.Quantity += qty
	if p.Quantity > 0 {
		p.AvgEntry = total / float64(p.Quantity)
	}
	p.Units++
}

// Close marks the position closed at the fill price and writes the realized fields.
func (p *Position) Close(fillPrice float64, reason string, at time.Time) {
	p.Status = StatusClosed
	p.ClosedAt = at
	p.ExitPrice = fillPrice
	p.ExitReason = reason
	p.RealizedPnL = (fillPrice - p.AvgEntry) * float64(p.Quantity)
	days := int(at.Sub(p.OpenedAt).Hours() / 24)
	if days < 1 {
		days = 1
	}
	p.HoldingDays = days
}

// UnrealizedPnL marks the open quantity against the supplied price.
func (p *Position) UnrealizedPnL(price float64) float64 {
	return (price - p.AvgEntry) * float64(p.Quantity)
}

// Won reports whether a closed position realized a profit.
func (p *Position) Won() bool {
	return p.RealizedPnL > 0
}
