// Package signal standardizes the payloads exchanged between signal generation and execution layers.
package signal

import "time"

// Kind identifies what a signal asks the position manager to do.
type Kind string

const (
	// EntrySystem1 is a 20-day channel breakout entry (post-loss filtered).
	EntrySystem1 Kind = "ENTRY_S1"
	// EntrySystem2 is a 55-day channel breakout entry (never filtered).
	EntrySystem2 Kind = "ENTRY_S2"
	// ExitSystem1 is a 10-day low channel exit for System-1 positions.
	ExitSystem1 Kind = "EXIT_S1"
	// ExitSystem2 is a 20-day low channel exit for System-2 positions.
	ExitSystem2 Kind = "EXIT_S2"
	// StopTrigger fires when price crosses the active stop.
	StopTrigger Kind = "STOP_LOSS"
	// PyramidAdd asks for one more unit on an open position.
	PyramidAdd Kind = "PYRAMID"
)

// IsEntry reports whether the kind opens a new position.
func (k Kind) IsEntry() bool { return k == EntrySystem1 || k == EntrySystem2 }

// IsExit reports whether the kind closes an open position.
func (k Kind) IsExit() bool { return k == ExitSystem1 || k == ExitSystem2 || k == StopTrigger }

// Signal is an immutable request produced by the detectors and consumed exactly once
// by the position manager. Every emitted signal is appended to the journal as an audit record.
type Signal struct {
	Symbol string    `json:"symbol"`
	Kind   Kind      `json:"kind"`
	System int       `json:"system,omitempty"` // 1 or 2, 0 when not channel-derived
	Price  float64   `json:"price"`
	Level  float64   `json:"level,omitempty"` // channel/stop/pyramid level that produced the signal
	N      float64   `json:"n"`
	Ts     time.Time `json:"ts"`
}
