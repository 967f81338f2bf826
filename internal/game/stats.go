package game

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/MJE43/rps-gauntlet/internal/session"
	"github.com/MJE43/rps-gauntlet/internal/store"
)

var hundred = decimal.NewFromInt(100)

// Stats summarises the run history of one level.
type Stats struct {
	LevelID        string           `json:"level_id"`
	Attempts       int              `json:"attempts"`
	Wins           int              `json:"wins"`
	WinRate        decimal.Decimal  `json:"win_rate"`
	AverageSeconds decimal.Decimal  `json:"average_seconds"`
	FastestWin     string           `json:"fastest_win,omitempty"`
	BestScore      *store.BestScore `json:"best_score,omitempty"`
}

// Stats aggregates the runs of a level. Without a store only the best score
// is known.
func (s *Service) Stats(ctx context.Context, levelID string) (*Stats, error) {
	view, err := s.Level(levelID)
	if err != nil {
		return nil, err
	}

	st := &Stats{LevelID: levelID, BestScore: view.BestScore}
	if s.db == nil {
		return st, nil
	}

	agg, err := s.db.RunStats(ctx, levelID)
	if err != nil {
		return nil, fmt.Errorf("failed to load stats for %s: %w", levelID, err)
	}
	st.Attempts = agg.Attempts
	st.Wins = agg.Wins
	st.WinRate = winRate(agg.Wins, agg.Attempts)
	if agg.Attempts > 0 {
		st.AverageSeconds = decimal.NewFromInt(agg.TotalElapsedMs).
			Div(decimal.NewFromInt(int64(agg.Attempts) * 1000)).
			Round(1)
	}
	if agg.FastestWinMs != nil {
		st.FastestWin = session.FormatElapsed(time.Duration(*agg.FastestWinMs) * time.Millisecond)
	}
	return st, nil
}

// winRate is a percentage rounded to two places.
func winRate(wins, attempts int) decimal.Decimal {
	if attempts == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(wins)).
		Mul(hundred).
		Div(decimal.NewFromInt(int64(attempts))).
		Round(2)
}
