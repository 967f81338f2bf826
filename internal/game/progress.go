package game

import (
	"context"

	"github.com/MJE43/rps-gauntlet/internal/catalog"
	"github.com/MJE43/rps-gauntlet/internal/store"
	"github.com/MJE43/rps-gauntlet/internal/strategy"
)

// LevelView is a catalog level joined with its progress.
type LevelView struct {
	*catalog.Level
	Unlocked  bool             `json:"unlocked"`
	Played    bool             `json:"played"`
	BestScore *store.BestScore `json:"best_score,omitempty"`
}

// defaultProgress has only the first level unlocked.
func defaultProgress(cat *catalog.Catalog) map[string]*store.LevelProgress {
	out := make(map[string]*store.LevelProgress, cat.Len())
	for i, l := range cat.Levels() {
		out[l.ID] = &store.LevelProgress{ID: l.ID, Unlocked: i == 0}
	}
	return out
}

// mergeProgress overlays saved rows on the defaults. Rows for levels the
// catalog does not know are dropped.
func mergeProgress(cat *catalog.Catalog, saved []store.LevelProgress) map[string]*store.LevelProgress {
	out := defaultProgress(cat)
	for _, row := range saved {
		lp, ok := out[row.ID]
		if !ok {
			continue
		}
		lp.Unlocked = lp.Unlocked || row.Unlocked
		lp.Played = row.Played || row.BestScore != nil
		if row.BestScore != nil {
			best := *row.BestScore
			lp.BestScore = &best
		}
	}
	return out
}

// load replaces progress with what the store holds. Any load failure leaves
// the defaults in place.
func (s *Service) load(ctx context.Context) {
	s.progress = defaultProgress(s.cat)
	s.gameLog = strategy.GameLog{}
	if s.db == nil {
		return
	}

	p, err := s.db.Load(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("persisted progress unreadable, starting fresh")
		return
	}
	s.progress = mergeProgress(s.cat, p.Levels)
	for id, moves := range p.GameLog {
		s.gameLog[id] = moves
	}
	s.logger.Info().Int("levels", len(p.Levels)).Int("game_log", len(p.GameLog)).Msg("progress loaded")
}

// betterScore reports whether a beats b: more wins, then more ties, then a
// faster time. A score without a time never beats one on time.
func betterScore(a store.BestScore, b *store.BestScore) bool {
	if b == nil {
		return true
	}
	if a.Wins != b.Wins {
		return a.Wins > b.Wins
	}
	if a.Ties != b.Ties {
		return a.Ties > b.Ties
	}
	if a.TimeMs == nil {
		return false
	}
	return b.TimeMs == nil || *a.TimeMs < *b.TimeMs
}

func (s *Service) view(l *catalog.Level) LevelView {
	v := LevelView{Level: l}
	if lp, ok := s.progress[l.ID]; ok {
		v.Unlocked = lp.Unlocked
		v.Played = lp.Played
		if lp.BestScore != nil {
			best := *lp.BestScore
			v.BestScore = &best
		}
	}
	return v
}

func (s *Service) rows() []store.LevelProgress {
	out := make([]store.LevelProgress, 0, len(s.progress))
	for _, l := range s.cat.Levels() {
		out = append(out, *s.progress[l.ID])
	}
	return out
}

// saveLevels persists rows, logging instead of failing.
func (s *Service) saveLevels(ctx context.Context, rows ...store.LevelProgress) {
	if s.db == nil || len(rows) == 0 {
		return
	}
	if err := s.db.SaveLevels(ctx, rows); err != nil {
		s.logger.Warn().Err(err).Int("rows", len(rows)).Msg("failed to save level progress")
	}
}
