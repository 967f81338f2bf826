package store

import (
	"context"
	"errors"
	"time"

	"github.com/MJE43/rps-gauntlet/internal/engine"
)

var (
	ErrNoCompletion = errors.New("completion has no level id")
	ErrCorruptState = errors.New("persisted state is malformed")
)

// DB represents the database interface
type DB interface {
	Close() error
	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Load(ctx context.Context) (*Progress, error)
	SaveLevels(ctx context.Context, levels []LevelProgress) error
	SaveCompletion(ctx context.Context, c *Completion) error
	ListRuns(ctx context.Context, query RunsQuery) (*RunsList, error)
	RunStats(ctx context.Context, levelID string) (*RunStats, error)
	Reset(ctx context.Context) error
}

// BestScore is the best recorded result for a level. TimeMs is nil for
// scores recorded without a time.
type BestScore struct {
	Wins   int    `json:"wins"`
	Ties   int    `json:"ties"`
	Losses int    `json:"losses"`
	TimeMs *int64 `json:"time_ms,omitempty"`
}

// LevelProgress is the persisted state of one level.
type LevelProgress struct {
	ID        string     `json:"id"`
	Unlocked  bool       `json:"unlocked"`
	BestScore *BestScore `json:"best_score,omitempty"`
	Played    bool       `json:"played"`
}

// Progress is everything Load returns. GameLog maps a level id to the AI
// moves of its most recent completed playthrough.
type Progress struct {
	Levels  []LevelProgress          `json:"levels"`
	GameLog map[string][]engine.Move `json:"game_log"`
}

// Completion is written atomically when a level ends: the updated level
// rows, the level's game log entry and a run record.
type Completion struct {
	LevelID string
	Levels  []LevelProgress
	AIMoves []engine.Move
	Run     *Run
}

// Run is one finished attempt.
type Run struct {
	ID         string    `json:"id"`
	LevelID    string    `json:"level_id"`
	Won        bool      `json:"won"`
	Wins       int       `json:"wins"`
	Ties       int       `json:"ties"`
	Losses     int       `json:"losses"`
	ElapsedMs  int64     `json:"elapsed_ms"`
	SeedHash   string    `json:"seed_hash"`
	ClientSeed string    `json:"client_seed"`
	Nonce      uint64    `json:"nonce"`
	CreatedAt  time.Time `json:"created_at"`
}

// RunsQuery represents query parameters for listing runs
type RunsQuery struct {
	LevelID string `json:"level_id,omitempty"`
	Page    int    `json:"page"`
	PerPage int    `json:"perPage"`
}

// RunsList represents paginated runs response
type RunsList struct {
	Runs       []Run `json:"runs"`
	TotalCount int   `json:"totalCount"`
	Page       int   `json:"page"`
	PerPage    int   `json:"perPage"`
	TotalPages int   `json:"totalPages"`
}

// RunStats aggregates the run history of one level.
type RunStats struct {
	LevelID        string `json:"level_id"`
	Attempts       int    `json:"attempts"`
	Wins           int    `json:"wins"`
	FastestWinMs   *int64 `json:"fastest_win_ms,omitempty"`
	TotalElapsedMs int64  `json:"total_elapsed_ms"`
}
