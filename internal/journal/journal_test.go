package journal

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/blood8879/turtle-canslim/internal/position"
	"github.com/blood8879/turtle-canslim/internal/risk"
	"github.com/blood8879/turtle-canslim/internal/signal"
)

func newTestJournal(t *testing.T) *Journal {
	t.Helper()
	dir := t.TempDir()
	j, err := Open(filepath.Join(dir, "signals.jsonl"), filepath.Join(dir, "state.json"))
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	t.Cleanup(func() { j.Close() })
	return j
}

func TestRecordSignalAppendsJSONL(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "signals.jsonl")
	j, err := Open(path, filepath.Join(dir, "state.json"))
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}

	s := signal.Signal{Symbol: "AAPL", Kind: signal.EntrySystem2, System: 2, Price: 201.5, N: 3.2, Ts: time.Now().UTC()}
	if err := j.RecordSignal(s); err != nil {
		t.Fatalf("RecordSignal error: %v", err)
	}
	if err := j.RecordTrade(TradeRecord{Symbol: "AAPL", ExitReason: "STOP_LOSS", RealizedPnL: -120}); err != nil {
		t.Fatalf("RecordTrade error: %v", err)
	}
	if err := j.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)

	if !scanner.Scan() {
		t.Fatalf("expected a signal line")
	}
	var first entry
	if err := json.Unmarshal(scanner.Bytes(), &first); err != nil {
		t.Fatalf("decode signal line: %v", err)
	}
	if first.Type != "signal" || first.Signal == nil || first.Signal.Kind != signal.EntrySystem2 {
		t.Fatalf("unexpected first line: %+v", first)
	}

	if !scanner.Scan() {
		t.Fatalf("expected a trade line")
	}
	var second entry
	if err := json.Unmarshal(scanner.Bytes(), &second); err != nil {
		t.Fatalf("decode trade line: %v", err)
	}
	if second.Type != "trade" || second.Trade == nil || second.Trade.ExitReason != "STOP_LOSS" {
		t.Fatalf("unexpected second line: %+v", second)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	j := newTestJournal(t)

	pos := position.Open("MSFT", 1, 400, 25, risk.Group{Key: "tech"}, risk.StopState{Price: 384, Regime: risk.RegimeVolatility, HighWaterMark: 400}, time.Now().UTC())
	snap := Snapshot{
		UpdatedAt: time.Now().UTC(),
		Positions: []*position.Position{pos},
		Units:     map[string]int{"MSFT": 1},
	}
	if err := j.SaveSnapshot(snap); err != nil {
		t.Fatalf("SaveSnapshot error: %v", err)
	}

	loaded, err := j.LoadSnapshot()
	if err != nil {
		t.Fatalf("LoadSnapshot error: %v", err)
	}
	if len(loaded.Positions) != 1 {
		t.Fatalf("expected 1 position, got %d", len(loaded.Positions))
	}
	got := loaded.Positions[0]
	if got.Symbol != "MSFT" || got.Quantity != 25 || got.Stop.Price != 384 {
		t.Fatalf("snapshot mangled position: %+v", got)
	}
	if loaded.Units["MSFT"] != 1 {
		t.Fatalf("snapshot mangled units: %+v", loaded.Units)
	}
}

func TestLoadSnapshotMissingFileIsEmpty(t *testing.T) {
	j := newTestJournal(t)
	snap, err := j.LoadSnapshot()
	if err != nil {
		t.Fatalf("LoadSnapshot error: %v", err)
	}
	if len(snap.Positions) != 0 || len(snap.Units) != 0 {
		t.Fatalf("expected empty snapshot, got %+v", snap)
	}
}
