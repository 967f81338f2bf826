package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/MJE43/rps-gauntlet/internal/engine"
)

func newTestDB(t *testing.T) *SQLiteDB {
	t.Helper()
	db, err := NewSQLiteDB(filepath.Join(t.TempDir(), "rps.db"))
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}
	return db
}

func int64Ptr(v int64) *int64 { return &v }

func TestMigrationIdempotency(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := db.Migrate(ctx); err != nil {
			t.Fatalf("Failed to migrate again: %v", err)
		}
	}
	if err := db.Ping(ctx); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}

	var version int64
	if err := db.db.QueryRowContext(ctx, `SELECT MAX(version_id) FROM goose_db_version`).Scan(&version); err != nil {
		t.Fatalf("reading schema version failed: %v", err)
	}
	if version != 2 {
		t.Errorf("schema version = %d, want 2", version)
	}
}

func TestLoadEmpty(t *testing.T) {
	db := newTestDB(t)

	p, err := db.Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(p.Levels) != 0 || len(p.GameLog) != 0 {
		t.Errorf("expected empty progress, got %+v", p)
	}
	if p.GameLog == nil {
		t.Error("game log should be an empty map, not nil")
	}
}

func TestSaveLevelsRoundTrip(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	levels := []LevelProgress{
		{ID: "1-1", Unlocked: true, Played: true, BestScore: &BestScore{Wins: 5, TimeMs: int64Ptr(12500)}},
		{ID: "1-2", Unlocked: true, Played: false},
		{ID: "1-3", Unlocked: false, BestScore: &BestScore{Wins: 4, Ties: 2, Losses: 1}},
	}
	if err := db.SaveLevels(ctx, levels); err != nil {
		t.Fatalf("SaveLevels failed: %v", err)
	}

	// Upsert replaces the row.
	levels[1].Played = true
	if err := db.SaveLevels(ctx, levels[1:2]); err != nil {
		t.Fatalf("SaveLevels failed: %v", err)
	}

	p, err := db.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(p.Levels) != 3 {
		t.Fatalf("expected 3 levels, got %d", len(p.Levels))
	}

	got := map[string]LevelProgress{}
	for _, lp := range p.Levels {
		got[lp.ID] = lp
	}
	if l := got["1-1"]; !l.Unlocked || !l.Played || l.BestScore == nil || l.BestScore.Wins != 5 ||
		l.BestScore.TimeMs == nil || *l.BestScore.TimeMs != 12500 {
		t.Errorf("unexpected 1-1: %+v", l)
	}
	if l := got["1-2"]; !l.Played || l.BestScore != nil {
		t.Errorf("unexpected 1-2: %+v", l)
	}
	if l := got["1-3"]; l.Unlocked || l.BestScore == nil || l.BestScore.Ties != 2 || l.BestScore.TimeMs != nil {
		t.Errorf("unexpected 1-3: %+v", l)
	}
}

func TestSaveCompletion(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	first := &Completion{
		LevelID: "2-1",
		Levels:  []LevelProgress{{ID: "2-1", Unlocked: true, Played: true}},
		AIMoves: []engine.Move{engine.Rock, engine.Paper},
		Run:     &Run{LevelID: "2-1", Wins: 1, Losses: 1, ElapsedMs: 3000},
	}
	if err := db.SaveCompletion(ctx, first); err != nil {
		t.Fatalf("SaveCompletion failed: %v", err)
	}
	if first.Run.ID == "" {
		t.Error("expected a generated run id")
	}

	second := &Completion{
		LevelID: "2-1",
		Levels: []LevelProgress{
			{ID: "2-1", Unlocked: true, Played: true, BestScore: &BestScore{Wins: 3, TimeMs: int64Ptr(2000)}},
			{ID: "2-2", Unlocked: true},
		},
		AIMoves: []engine.Move{engine.Scissors, engine.Scissors, engine.Rock},
		Run:     &Run{LevelID: "2-1", Won: true, Wins: 3, ElapsedMs: 2000, SeedHash: "abc", Nonce: 7},
	}
	if err := db.SaveCompletion(ctx, second); err != nil {
		t.Fatalf("SaveCompletion failed: %v", err)
	}

	p, err := db.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	moves := p.GameLog["2-1"]
	want := []engine.Move{engine.Scissors, engine.Scissors, engine.Rock}
	if len(moves) != len(want) {
		t.Fatalf("expected the game log to be overwritten, got %v", moves)
	}
	for i := range want {
		if moves[i] != want[i] {
			t.Errorf("move %d: got %v, want %v", i, moves[i], want[i])
		}
	}
	if len(p.Levels) != 2 {
		t.Errorf("expected 2 level rows, got %d", len(p.Levels))
	}

	runs, err := db.ListRuns(ctx, RunsQuery{LevelID: "2-1"})
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if runs.TotalCount != 2 {
		t.Errorf("expected 2 runs, got %d", runs.TotalCount)
	}

	if err := db.SaveCompletion(ctx, &Completion{}); !errors.Is(err, ErrNoCompletion) {
		t.Errorf("expected ErrNoCompletion, got %v", err)
	}
}

func TestListRuns(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	base := time.Date(2026, 1, 2, 15, 0, 0, 0, time.UTC)
	levels := []string{"1-1", "1-2", "1-1", "1-1", "1-2"}
	for i, level := range levels {
		c := &Completion{
			LevelID: level,
			Run: &Run{
				ID:        "run" + string(rune('a'+i)),
				LevelID:   level,
				Won:       i%2 == 0,
				Wins:      i,
				ElapsedMs: int64(1000 * (i + 1)),
				CreatedAt: base.Add(time.Duration(i) * time.Minute),
			},
		}
		if err := db.SaveCompletion(ctx, c); err != nil {
			t.Fatalf("SaveCompletion failed: %v", err)
		}
	}

	tests := []struct {
		name      string
		query     RunsQuery
		wantIDs   []string
		wantTotal int
		wantPages int
	}{
		{"all", RunsQuery{}, []string{"rune", "rund", "runc", "runb", "runa"}, 5, 1},
		{"level filter", RunsQuery{LevelID: "1-1"}, []string{"rund", "runc", "runa"}, 3, 1},
		{"first page", RunsQuery{Page: 1, PerPage: 2}, []string{"rune", "rund"}, 5, 3},
		{"last page", RunsQuery{Page: 3, PerPage: 2}, []string{"runa"}, 5, 3},
		{"past the end", RunsQuery{Page: 4, PerPage: 2}, []string{}, 5, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			list, err := db.ListRuns(ctx, tt.query)
			if err != nil {
				t.Fatalf("ListRuns failed: %v", err)
			}
			if list.TotalCount != tt.wantTotal || list.TotalPages != tt.wantPages {
				t.Errorf("got total %d pages %d, want %d/%d", list.TotalCount, list.TotalPages, tt.wantTotal, tt.wantPages)
			}
			if len(list.Runs) != len(tt.wantIDs) {
				t.Fatalf("got %d runs, want %d", len(list.Runs), len(tt.wantIDs))
			}
			for i, id := range tt.wantIDs {
				if list.Runs[i].ID != id {
					t.Errorf("run %d: got %s, want %s", i, list.Runs[i].ID, id)
				}
			}
		})
	}

	list, _ := db.ListRuns(ctx, RunsQuery{LevelID: "1-1", PerPage: 1})
	r := list.Runs[0]
	if r.Won || r.Wins != 3 || r.ElapsedMs != 4000 || !r.CreatedAt.Equal(base.Add(3*time.Minute)) {
		t.Errorf("unexpected run fields: %+v", r)
	}
}

func TestRunStats(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	runs := []Run{
		{LevelID: "3-1", Won: false, ElapsedMs: 9000},
		{LevelID: "3-1", Won: true, ElapsedMs: 7000},
		{LevelID: "3-1", Won: true, ElapsedMs: 4000},
		{LevelID: "3-2", Won: true, ElapsedMs: 1000},
	}
	for i := range runs {
		if err := db.SaveCompletion(ctx, &Completion{LevelID: runs[i].LevelID, Run: &runs[i]}); err != nil {
			t.Fatalf("SaveCompletion failed: %v", err)
		}
	}

	st, err := db.RunStats(ctx, "3-1")
	if err != nil {
		t.Fatalf("RunStats failed: %v", err)
	}
	if st.Attempts != 3 || st.Wins != 2 || st.TotalElapsedMs != 20000 {
		t.Errorf("unexpected stats: %+v", st)
	}
	if st.FastestWinMs == nil || *st.FastestWinMs != 4000 {
		t.Errorf("expected fastest win 4000ms, got %v", st.FastestWinMs)
	}

	empty, err := db.RunStats(ctx, "9-9")
	if err != nil {
		t.Fatalf("RunStats failed: %v", err)
	}
	if empty.Attempts != 0 || empty.Wins != 0 || empty.FastestWinMs != nil {
		t.Errorf("expected empty stats, got %+v", empty)
	}
}

func TestReset(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	c := &Completion{
		LevelID: "1-1",
		Levels:  []LevelProgress{{ID: "1-1", Unlocked: true, Played: true}},
		AIMoves: []engine.Move{engine.Rock},
		Run:     &Run{LevelID: "1-1"},
	}
	if err := db.SaveCompletion(ctx, c); err != nil {
		t.Fatalf("SaveCompletion failed: %v", err)
	}
	if err := db.Reset(ctx); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}

	p, err := db.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(p.Levels) != 0 || len(p.GameLog) != 0 {
		t.Errorf("expected nothing after reset, got %+v", p)
	}
	runs, _ := db.ListRuns(ctx, RunsQuery{})
	if runs.TotalCount != 0 {
		t.Errorf("expected no runs after reset, got %d", runs.TotalCount)
	}
}

func TestLoadCorruptGameLog(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	_, err := db.db.ExecContext(ctx, `INSERT INTO game_log (level_id, moves, updated_at) VALUES (?, ?, ?)`,
		"1-1", `["rock", "lizard"]`, time.Now().UTC())
	if err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	if _, err := db.Load(ctx); !errors.Is(err, ErrCorruptState) {
		t.Errorf("expected ErrCorruptState, got %v", err)
	}
}

func TestRebind(t *testing.T) {
	q := "SELECT * FROM runs WHERE level_id = ? LIMIT ? OFFSET ?"
	if got := sqliteDialect.rebind(q); got != q {
		t.Errorf("sqlite should keep ? placeholders, got %s", got)
	}
	want := "SELECT * FROM runs WHERE level_id = $1 LIMIT $2 OFFSET $3"
	if got := postgresDialect.rebind(q); got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}
