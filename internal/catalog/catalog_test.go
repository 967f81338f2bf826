package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/MJE43/rps-gauntlet/internal/engine"
)

func TestDefaultCatalog(t *testing.T) {
	cat, err := Default()
	if err != nil {
		t.Fatalf("Default failed: %v", err)
	}

	want := []struct {
		id       string
		rounds   int
		strategy string
	}{
		{"1-1", 5, "fixed"},
		{"1-2", 5, "pair"},
		{"1-3", 7, "short-cycle"},
		{"1-4", 9, "streak"},
		{"1-5", 24, "long-cycle"},
		{"2-1", 7, "mirror"},
		{"2-2", 7, "counter"},
		{"2-3", 10, "self-avoider"},
		{"2-4", 10, "double-avoider"},
		{"2-5", 12, "recall-counter"},
		{"2-6", 24, "k-step"},
		{"3-1", 20, "majority"},
		{"3-2", 20, "win-max"},
		{"3-3", 24, "cycle-breaker"},
		{"3-4", 40, "prob-shaper"},
		{"4-1", 32, "amnesiac"},
		{"4-2", 30, "rule-inverter"},
		{"4-3", 20, "tamper"},
		{"4-4", 30, "replay"},
		{"5-1", 300, "boss"},
	}

	levels := cat.Levels()
	if len(levels) != len(want) {
		t.Fatalf("expected %d levels, got %d", len(want), len(levels))
	}
	for i, w := range want {
		l := levels[i]
		if l.ID != w.id || l.TotalRounds != w.rounds || l.StrategyID != w.strategy {
			t.Errorf("level %d: got %s/%d/%s, want %s/%d/%s", i, l.ID, l.TotalRounds, l.StrategyID, w.id, w.rounds, w.strategy)
		}
		if l.Name == "" || l.Chapter == "" || l.Hint == "" || l.WinText == "" {
			t.Errorf("level %s is missing descriptive text", l.ID)
		}
	}
}

func TestDefaultFlags(t *testing.T) {
	cat, err := Default()
	if err != nil {
		t.Fatalf("Default failed: %v", err)
	}

	flagged := map[string]Flag{
		"4-1": HideRoundInfo,
		"4-2": RuleDisplay,
		"4-3": TamperHistory,
		"5-1": BossTimer,
	}
	for _, l := range cat.Levels() {
		f, ok := flagged[l.ID]
		if ok && !l.Has(f) {
			t.Errorf("level %s should have flag %s", l.ID, f)
		}
		if !ok && len(l.Flags) != 0 {
			t.Errorf("level %s should have no flags, got %v", l.ID, l.Flags)
		}
	}
}

func TestWinConditions(t *testing.T) {
	cat, err := Default()
	if err != nil {
		t.Fatalf("Default failed: %v", err)
	}

	tests := []struct {
		id    string
		tally engine.Tally
		want  bool
	}{
		{"1-1", engine.Tally{Wins: 4, Losses: 1}, true},
		{"1-1", engine.Tally{Wins: 3, Ties: 2}, false},
		{"1-2", engine.Tally{Wins: 1, Ties: 3, Losses: 1}, true},
		{"2-3", engine.Tally{Wins: 4, Ties: 4, Losses: 2}, false},
		{"3-1", engine.Tally{Wins: 12, Ties: 5, Losses: 3}, true},
		{"3-1", engine.Tally{Wins: 11, Ties: 8, Losses: 1}, false},
		{"4-2", engine.Tally{Wins: 15, Ties: 14, Losses: 1}, true},
		{"4-2", engine.Tally{Wins: 14, Ties: 16}, false},
		{"4-4", engine.Tally{Wins: 1, Ties: 29}, true},
		{"4-4", engine.Tally{Wins: 29, Losses: 1}, false},
		{"4-4", engine.Tally{Ties: 30}, false},
		{"5-1", engine.Tally{Wins: 200, Losses: 100}, true},
		{"5-1", engine.Tally{Wins: 199, Ties: 101}, false},
	}
	for _, tt := range tests {
		l, ok := cat.Level(tt.id)
		if !ok {
			t.Fatalf("level %s not found", tt.id)
		}
		got, err := l.Won(tt.tally)
		if err != nil {
			t.Fatalf("level %s: %v", tt.id, err)
		}
		if got != tt.want {
			t.Errorf("level %s with %+v: got %v, want %v", tt.id, tt.tally, got, tt.want)
		}
	}
}

func TestNavigation(t *testing.T) {
	cat, err := Default()
	if err != nil {
		t.Fatalf("Default failed: %v", err)
	}

	next, ok := cat.Next("1-5")
	if !ok || next.ID != "2-1" {
		t.Errorf("expected 2-1 after 1-5, got %v", next)
	}
	if _, ok := cat.Next("5-1"); ok {
		t.Error("the last level has no successor")
	}
	if _, ok := cat.Next("9-9"); ok {
		t.Error("unknown levels have no successor")
	}
	if cat.Index("1-1") != 0 || cat.Index("5-1") != 19 || cat.Index("nope") != -1 {
		t.Error("unexpected index results")
	}
}

func TestParseRejectsBadCatalogs(t *testing.T) {
	tests := []struct {
		name string
		json string
		err  error
	}{
		{"empty", `[]`, ErrNoLevels},
		{"duplicate", `[{"id":"a","total_rounds":1,"strategy":"fixed","win_condition":"true"},{"id":"a","total_rounds":1,"strategy":"fixed","win_condition":"true"}]`, ErrDuplicateID},
		{"no rounds", `[{"id":"a","strategy":"fixed","win_condition":"true"}]`, ErrInvalidLevel},
		{"no strategy", `[{"id":"a","total_rounds":3,"win_condition":"true"}]`, ErrInvalidLevel},
		{"unknown flag", `[{"id":"a","total_rounds":3,"strategy":"fixed","win_condition":"true","flags":["fog"]}]`, ErrInvalidLevel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.json))
			if !errors.Is(err, tt.err) {
				t.Errorf("expected %v, got %v", tt.err, err)
			}
		})
	}

	if _, err := Parse([]byte(`[{"id":"a","total_rounds":3,"strategy":"fixed","win_condition":"wins >"}]`)); err == nil {
		t.Error("expected a compile error for a broken condition")
	}
	if _, err := Parse([]byte(`{`)); err == nil {
		t.Error("expected a decode error")
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "levels.json")
	data := `[
		{"id":"x-1","name":"First","total_rounds":3,"strategy":"mirror","win_condition":"wins >= 2"},
		{"id":"x-2","name":"Second","total_rounds":5,"strategy":"boss","win_condition":"wins >= 3","flags":["boss-timer"]}
	]`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	cat, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if cat.Len() != 2 {
		t.Fatalf("expected 2 levels, got %d", cat.Len())
	}
	l, _ := cat.Level("x-2")
	if !l.Has(BossTimer) {
		t.Error("expected boss-timer flag")
	}

	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected an error for a missing file")
	}
}
