package risk

import (
	"fmt"
	"math/rand"
	"sync"
	"testing"
)

func defaultCaps() UnitCaps {
	return UnitCaps{PerInstrument: 4, TightGroup: 10, LooseGroup: 16, Total: 20}
}

func TestCommitEnforcesPerInstrumentCap(t *testing.T) {
	ledger := NewUnitLedger(defaultCaps())
	g := Group{Key: "tech"}
	for i := 0; i < 4; i++ {
		if !ledger.Commit("AAPL", g, 1) {
			t.Fatalf("commit %d should fit", i+1)
		}
	}
	if ledger.CanCommit("AAPL", g) {
		t.Fatalf("fifth unit must not fit")
	}
	if ledger.Commit("AAPL", g, 1) {
		t.Fatalf("fifth commit must fail")
	}
	if ledger.InstrumentUnits("AAPL") != 4 {
		t.Fatalf("expected 4 committed, got %d", ledger.InstrumentUnits("AAPL"))
	}
}

func TestCommitEnforcesGroupCaps(t *testing.T) {
	ledger := NewUnitLedger(defaultCaps())
	tight := Group{Key: "semis"}
	for i := 0; i < 10; i++ {
		sym := fmt.Sprintf("T%02d", i/2)
		if !ledger.Commit(sym, tight, 1) {
			t.Fatalf("tight group commit %d should fit", i+1)
		}
	}
	if ledger.Commit("T99", tight, 1) {
		t.Fatalf("tight group cap exceeded")
	}

	loose := Group{Key: "growth", Loose: true}
	ledger = NewUnitLedger(defaultCaps())
	for i := 0; i < 16; i++ {
		sym := fmt.Sprintf("L%02d", i/2)
		if !ledger.Commit(sym, loose, 1) {
			t.Fatalf("loose group commit %d should fit", i+1)
		}
	}
	if ledger.Commit("L99", loose, 1) {
		t.Fatalf("loose group cap exceeded")
	}
}

func TestCommitEnforcesTotalCap(t *testing.T) {
	ledger := NewUnitLedger(defaultCaps())
	for i := 0; i < 20; i++ {
		sym := fmt.Sprintf("S%02d", i/4)
		g := Group{Key: fmt.Sprintf("g%d", i/8)}
		if !ledger.Commit(sym, g, 1) {
			t.Fatalf("commit %d should fit under total cap", i+1)
		}
	}
	if ledger.AvailableUnits() != 0 {
		t.Fatalf("expected 0 available, got %d", ledger.AvailableUnits())
	}
	if ledger.Commit("NEW", Group{Key: "other"}, 1) {
		t.Fatalf("total cap exceeded")
	}
}

func TestCommitIsAllOrNothing(t *testing.T) {
	ledger := NewUnitLedger(defaultCaps())
	g := Group{Key: "g"}
	if !ledger.Commit("A", g, 3) {
		t.Fatalf("3 units should fit")
	}
	// 2 more would pass group and total but break the per-instrument cap;
	// nothing may be recorded.
	if ledger.Commit("A", g, 2) {
		t.Fatalf("expected rejection")
	}
	if ledger.InstrumentUnits("A") != 3 {
		t.Fatalf("partial reservation leaked: %d", ledger.InstrumentUnits("A"))
	}
	if ledger.AvailableUnits() != 17 {
		t.Fatalf("total drifted: %d available", ledger.AvailableUnits())
	}
}

func TestReleaseRestoresBudget(t *testing.T) {
	ledger := NewUnitLedger(defaultCaps())
	g := Group{Key: "g"}
	ledger.Commit("A", g, 4)
	ledger.Release("A", g, 4)
	if ledger.InstrumentUnits("A") != 0 {
		t.Fatalf("expected 0 after release, got %d", ledger.InstrumentUnits("A"))
	}
	if ledger.AvailableUnits() != 20 {
		t.Fatalf("expected full budget back, got %d", ledger.AvailableUnits())
	}
	// Double release clamps at zero rather than going negative.
	ledger.Release("A", g, 4)
	if ledger.AvailableUnits() != 20 {
		t.Fatalf("double release corrupted budget: %d", ledger.AvailableUnits())
	}
}

// Random commit/release sequences must never leave any cap exceeded.
func TestLedgerInvariantUnderRandomSequences(t *testing.T) {
	caps := defaultCaps()
	rng := rand.New(rand.NewSource(11))
	symbols := []string{"A", "B", "C", "D", "E", "F", "G", "H"}
	groups := []Group{{Key: "g1"}, {Key: "g2"}, {Key: "g3", Loose: true}}

	for trial := 0; trial < 20; trial++ {
		ledger := NewUnitLedger(caps)
		type holding struct {
			sym   string
			g     Group
			units int
		}
		var open []holding
		for step := 0; step < 500; step++ {
			if rng.Intn(3) > 0 || len(open) == 0 {
				sym := symbols[rng.Intn(len(symbols))]
				g := groups[rng.Intn(len(groups))]
				units := 1 + rng.Intn(3)
				if ledger.Commit(sym, g, units) {
					open = append(open, holding{sym, g, units})
				}
			} else {
				i := rng.Intn(len(open))
				h := open[i]
				ledger.Release(h.sym, h.g, h.units)
				open = append(open[:i], open[i+1:]...)
			}

			total := 0
			perSym := map[string]int{}
			perGroup := map[string]int{}
			perGroupLoose := map[string]bool{}
			for _, h := range open {
				total += h.units
				perSym[h.sym] += h.units
				perGroup[h.g.Key] += h.units
				perGroupLoose[h.g.Key] = h.g.Loose
			}
			if total > caps.Total {
				t.Fatalf("trial %d step %d: total cap exceeded (%d)", trial, step, total)
			}
			for sym, units := range perSym {
				if units > caps.PerInstrument {
					t.Fatalf("trial %d step %d: %s over instrument cap (%d)", trial, step, sym, units)
				}
				if ledger.InstrumentUnits(sym) != units {
					t.Fatalf("trial %d step %d: ledger and model diverged for %s", trial, step, sym)
				}
			}
			for key, units := range perGroup {
				cap := caps.TightGroup
				if perGroupLoose[key] {
					cap = caps.LooseGroup
				}
				if units > cap {
					t.Fatalf("trial %d step %d: group %s over cap (%d)", trial, step, key, units)
				}
			}
		}
	}
}

// Concurrent commits from many goroutines must never overshoot the total cap.
func TestLedgerSerializesConcurrentCommits(t *testing.T) {
	ledger := NewUnitLedger(UnitCaps{PerInstrument: 4, TightGroup: 10, LooseGroup: 16, Total: 20})
	var wg sync.WaitGroup
	var mu sync.Mutex
	granted := 0
	for worker := 0; worker < 16; worker++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			sym := fmt.Sprintf("W%02d", id)
			for i := 0; i < 4; i++ {
				if ledger.Commit(sym, Group{Key: "shared", Loose: true}, 1) {
					mu.Lock()
					granted++
					mu.Unlock()
				}
			}
		}(worker)
	}
	wg.Wait()
	if granted > 16 {
		t.Fatalf("loose group cap transiently exceeded: %d grants", granted)
	}
	if avail := ledger.AvailableUnits(); avail != 20-granted {
		t.Fatalf("budget accounting drifted: granted %d, available %d", granted, avail)
	}
}
