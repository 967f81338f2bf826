package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pressly/goose/v3"

	"github.com/MJE43/rps-gauntlet/internal/engine"
)

//go:embed migrations
var migrationsFS embed.FS

// dialect holds what differs between the SQLite and Postgres stores.
type dialect struct {
	name  string
	goose goose.Dialect
	// numbered placeholders ($1, $2, ...) instead of ?
	numbered bool
}

var (
	sqliteDialect   = dialect{name: "sqlite", goose: goose.DialectSQLite3}
	postgresDialect = dialect{name: "postgres", goose: goose.DialectPostgres, numbered: true}
)

// rebind rewrites ? placeholders for drivers that number them.
func (d dialect) rebind(query string) string {
	if !d.numbered {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// sqlStore implements DB over database/sql for both drivers.
type sqlStore struct {
	db  *sql.DB
	d   dialect
	now func() time.Time
}

func newSQLStore(db *sql.DB, d dialect) *sqlStore {
	return &sqlStore{db: db, d: d, now: func() time.Time { return time.Now().UTC() }}
}

// Close closes the database connection
func (s *sqlStore) Close() error {
	return s.db.Close()
}

func (s *sqlStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Migrate applies pending schema migrations. It is safe to run repeatedly.
func (s *sqlStore) Migrate(ctx context.Context) error {
	fsys, err := fs.Sub(migrationsFS, "migrations/"+s.d.name)
	if err != nil {
		return err
	}
	provider, err := goose.NewProvider(s.d.goose, s.db, fsys)
	if err != nil {
		return fmt.Errorf("%s migrations: %w", s.d.name, err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("%s migration failed: %w", s.d.name, err)
	}
	return nil
}

// Load reads every level row and the game log. A game log entry that does
// not decode yields ErrCorruptState.
func (s *sqlStore) Load(ctx context.Context) (*Progress, error) {
	p := &Progress{GameLog: map[string][]engine.Move{}}

	rows, err := s.db.QueryContext(ctx, `SELECT id, unlocked, played, best_wins, best_ties, best_losses, best_time_ms
		FROM levels ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query levels: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			lp               LevelProgress
			unlocked, played int
			wins, ties, loss sql.NullInt64
			timeMs           sql.NullInt64
		)
		if err := rows.Scan(&lp.ID, &unlocked, &played, &wins, &ties, &loss, &timeMs); err != nil {
			return nil, fmt.Errorf("failed to scan level: %w", err)
		}
		lp.Unlocked = unlocked == 1
		lp.Played = played == 1
		if wins.Valid {
			lp.BestScore = &BestScore{
				Wins:   int(wins.Int64),
				Ties:   int(ties.Int64),
				Losses: int(loss.Int64),
			}
			if timeMs.Valid {
				ms := timeMs.Int64
				lp.BestScore.TimeMs = &ms
			}
		}
		p.Levels = append(p.Levels, lp)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	logRows, err := s.db.QueryContext(ctx, `SELECT level_id, moves FROM game_log`)
	if err != nil {
		return nil, fmt.Errorf("failed to query game log: %w", err)
	}
	defer logRows.Close()

	for logRows.Next() {
		var id, raw string
		if err := logRows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan game log: %w", err)
		}
		var moves []engine.Move
		if err := json.Unmarshal([]byte(raw), &moves); err != nil {
			return nil, fmt.Errorf("%w: game log for %s: %v", ErrCorruptState, id, err)
		}
		p.GameLog[id] = moves
	}
	return p, logRows.Err()
}

// SaveLevels upserts the given level rows.
func (s *sqlStore) SaveLevels(ctx context.Context, levels []LevelProgress) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := s.upsertLevels(ctx, tx, levels); err != nil {
		return err
	}
	return tx.Commit()
}

// SaveCompletion writes the level rows, overwrites the level's game log
// entry and appends the run in one transaction.
func (s *sqlStore) SaveCompletion(ctx context.Context, c *Completion) error {
	if c == nil || c.LevelID == "" {
		return ErrNoCompletion
	}

	moves, err := json.Marshal(c.AIMoves)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := s.upsertLevels(ctx, tx, c.Levels); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, s.d.rebind(`INSERT INTO game_log (level_id, moves, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (level_id) DO UPDATE SET moves = excluded.moves, updated_at = excluded.updated_at`),
		c.LevelID, string(moves), s.now())
	if err != nil {
		return fmt.Errorf("failed to write game log: %w", err)
	}

	if c.Run != nil {
		if err := s.insertRun(ctx, tx, c.Run); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *sqlStore) upsertLevels(ctx context.Context, tx *sql.Tx, levels []LevelProgress) error {
	if len(levels) == 0 {
		return nil
	}

	stmt, err := tx.PrepareContext(ctx, s.d.rebind(`INSERT INTO levels
		(id, unlocked, played, best_wins, best_ties, best_losses, best_time_ms, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			unlocked = excluded.unlocked,
			played = excluded.played,
			best_wins = excluded.best_wins,
			best_ties = excluded.best_ties,
			best_losses = excluded.best_losses,
			best_time_ms = excluded.best_time_ms,
			updated_at = excluded.updated_at`))
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := s.now()
	for _, lp := range levels {
		var wins, ties, losses, timeMs sql.NullInt64
		if b := lp.BestScore; b != nil {
			wins = sql.NullInt64{Int64: int64(b.Wins), Valid: true}
			ties = sql.NullInt64{Int64: int64(b.Ties), Valid: true}
			losses = sql.NullInt64{Int64: int64(b.Losses), Valid: true}
			if b.TimeMs != nil {
				timeMs = sql.NullInt64{Int64: *b.TimeMs, Valid: true}
			}
		}
		_, err := stmt.ExecContext(ctx, lp.ID, boolInt(lp.Unlocked), boolInt(lp.Played),
			wins, ties, losses, timeMs, now)
		if err != nil {
			return fmt.Errorf("failed to save level %s: %w", lp.ID, err)
		}
	}
	return nil
}

func (s *sqlStore) insertRun(ctx context.Context, tx *sql.Tx, run *Run) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = s.now()
	}

	_, err := tx.ExecContext(ctx, s.d.rebind(`INSERT INTO runs (
		id, level_id, won, wins, ties, losses, elapsed_ms, seed_hash, client_seed, nonce, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		run.ID, run.LevelID, boolInt(run.Won), run.Wins, run.Ties, run.Losses,
		run.ElapsedMs, run.SeedHash, run.ClientSeed, int64(run.Nonce), run.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	return nil
}

// ListRuns returns runs newest first, optionally filtered by level.
func (s *sqlStore) ListRuns(ctx context.Context, query RunsQuery) (*RunsList, error) {
	whereClause := ""
	args := []any{}
	if query.LevelID != "" {
		whereClause = "WHERE level_id = ?"
		args = append(args, query.LevelID)
	}

	var totalCount int
	err := s.db.QueryRowContext(ctx, s.d.rebind("SELECT COUNT(*) FROM runs "+whereClause), args...).Scan(&totalCount)
	if err != nil {
		return nil, fmt.Errorf("failed to get total count: %w", err)
	}

	if query.PerPage <= 0 {
		query.PerPage = 50
	}
	if query.Page <= 0 {
		query.Page = 1
	}
	totalPages := (totalCount + query.PerPage - 1) / query.PerPage
	offset := (query.Page - 1) * query.PerPage

	mainQuery := `SELECT id, level_id, won, wins, ties, losses, elapsed_ms, seed_hash, client_seed, nonce, created_at
		FROM runs ` + whereClause + `
		ORDER BY created_at DESC, id
		LIMIT ? OFFSET ?`
	args = append(args, query.PerPage, offset)

	rows, err := s.db.QueryContext(ctx, s.d.rebind(mainQuery), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		var (
			run   Run
			won   int
			nonce int64
		)
		err := rows.Scan(&run.ID, &run.LevelID, &won, &run.Wins, &run.Ties, &run.Losses,
			&run.ElapsedMs, &run.SeedHash, &run.ClientSeed, &nonce, &run.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		run.Won = won == 1
		run.Nonce = uint64(nonce)
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &RunsList{
		Runs:       runs,
		TotalCount: totalCount,
		Page:       query.Page,
		PerPage:    query.PerPage,
		TotalPages: totalPages,
	}, nil
}

// RunStats aggregates the runs of one level.
func (s *sqlStore) RunStats(ctx context.Context, levelID string) (*RunStats, error) {
	var (
		attempts int
		wins     sql.NullInt64
		fastest  sql.NullInt64
		total    sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx, s.d.rebind(`SELECT COUNT(*), SUM(won),
		MIN(CASE WHEN won = 1 THEN elapsed_ms END), SUM(elapsed_ms)
		FROM runs WHERE level_id = ?`), levelID).Scan(&attempts, &wins, &fastest, &total)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate runs: %w", err)
	}

	st := &RunStats{
		LevelID:        levelID,
		Attempts:       attempts,
		Wins:           int(wins.Int64),
		TotalElapsedMs: total.Int64,
	}
	if fastest.Valid {
		ms := fastest.Int64
		st.FastestWinMs = &ms
	}
	return st, nil
}

// Reset deletes all progress, the game log and the run history.
func (s *sqlStore) Reset(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"levels", "game_log", "runs"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	return tx.Commit()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
