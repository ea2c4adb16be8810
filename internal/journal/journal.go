// Package journal persists the trading audit trail: an append-only JSONL log of
// emitted signals and closed trades, and an atomic snapshot of open positions plus
// committed units.
package journal

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/blood8879/turtle-canslim/internal/position"
	"github.com/blood8879/turtle-canslim/internal/signal"
)

// TradeRecord is one closed-trade line in the journal.
type TradeRecord struct {
	Symbol      string    `json:"symbol"`
	System      int       `json:"system"`
	EntryPrice  float64   `json:"entry_price"`
	ExitPrice   float64   `json:"exit_price"`
	Quantity    int64     `json:"quantity"`
	Units       int       `json:"units"`
	ExitReason  string    `json:"exit_reason"`
	RealizedPnL float64   `json:"realized_pnl"`
	HoldingDays int       `json:"holding_days"`
	ClosedAt    time.Time `json:"closed_at"`
}

// Snapshot is the persisted portfolio state. Positions and committed units are
// written together in one atomic file replace, so the two can never diverge on
// disk.
type Snapshot struct {
	UpdatedAt time.Time            `json:"updated_at"`
	Positions []*position.Position `json:"positions"`
	Units     map[string]int       `json:"units"`
}

// Journal owns the signal log file and the snapshot path.
type Journal struct {
	mu           sync.Mutex
	signals      *os.File
	enc          *json.Encoder
	snapshotPath string
}

// Open creates the journal directory, opens the signal log for append, and wires
// the snapshot path.
func Open(signalsPath, snapshotPath string) (*Journal, error) {
	for _, p := range []string{signalsPath, snapshotPath} {
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return nil, fmt.Errorf("journal mkdir: %w", err)
		}
	}
	file, err := os.OpenFile(signalsPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("journal open signals: %w", err)
	}
	return &Journal{
		signals:      file,
		enc:          json.NewEncoder(file),
		snapshotPath: snapshotPath,
	}, nil
}

// RecordSignal appends one signal line. Signals are immutable once written.
func (j *Journal) RecordSignal(s signal.Signal) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.enc.Encode(entry{Type: "signal", Signal: &s}); err != nil {
		return fmt.Errorf("journal record signal: %w", err)
	}
	return nil
}

// RecordTrade appends one closed-trade line.
func (j *Journal) RecordTrade(t TradeRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.enc.Encode(entry{Type: "trade", Trade: &t}); err != nil {
		return fmt.Errorf("journal record trade: %w", err)
	}
	return nil
}

type entry struct {
	Type   string         `json:"type"`
	Signal *signal.Signal `json:"signal,omitempty"`
	Trade  *TradeRecord   `json:"trade,omitempty"`
}

// SaveSnapshot writes the portfolio state with a temp-file-then-rename so readers
// never observe a partial write and a crash cannot split positions from units.
func (j *Journal) SaveSnapshot(snap Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("journal marshal snapshot: %w", err)
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	tmp := j.snapshotPath + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("journal create temp snapshot: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("journal write snapshot: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("journal sync snapshot: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("journal close snapshot: %w", err)
	}
	if err := os.Rename(tmp, j.snapshotPath); err != nil {
		return fmt.Errorf("journal replace snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot reads the last saved state. A missing file yields an empty snapshot.
func (j *Journal) LoadSnapshot() (Snapshot, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	data, err := os.ReadFile(j.snapshotPath)
	if os.IsNotExist(err) {
		return Snapshot{Units: map[string]int{}}, nil
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("journal read snapshot: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("journal decode snapshot: %w", err)
	}
	if snap.Units == nil {
		snap.Units = map[string]int{}
	}
	return snap, nil
}

// Close flushes and closes the signal log.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.signals == nil {
		return nil
	}
	err := j.signals.Close()
	j.signals = nil
	return err
}
