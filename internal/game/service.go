// Package game keeps progress across levels and runs the live sessions:
// lock checks, completion bookkeeping and best-effort persistence.
package game

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/MJE43/rps-gauntlet/internal/boss"
	"github.com/MJE43/rps-gauntlet/internal/catalog"
	"github.com/MJE43/rps-gauntlet/internal/engine"
	"github.com/MJE43/rps-gauntlet/internal/session"
	"github.com/MJE43/rps-gauntlet/internal/store"
	"github.com/MJE43/rps-gauntlet/internal/strategy"
)

var (
	ErrUnknownLevel    = errors.New("unknown level")
	ErrLevelLocked     = errors.New("level is locked")
	ErrUnknownSession  = errors.New("unknown session")
	ErrUnknownStrategy = errors.New("unknown strategy")
)

// DefaultRegistry is the full roster plus the Boss drawing from it.
func DefaultRegistry() *strategy.Registry {
	reg := strategy.Default()
	reg.Register(boss.New(reg))
	return reg
}

type live struct {
	sess      *session.Session
	countdown *session.Countdown
}

// Service is safe for concurrent use.
type Service struct {
	cat    *catalog.Catalog
	reg    *strategy.Registry
	db     store.DB
	logger zerolog.Logger
	pub    Publisher
	now    func() time.Time
	tick   time.Duration
	extra  []session.Option

	mu       sync.Mutex
	progress map[string]*store.LevelProgress
	gameLog  strategy.GameLog
	sessions map[string]*live
}

// Option configures a Service.
type Option func(*Service)

func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.pub = p }
}

func WithRegistry(r *strategy.Registry) Option {
	return func(s *Service) { s.reg = r }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithTickInterval sets how often countdown ticks are published.
func WithTickInterval(d time.Duration) Option {
	return func(s *Service) { s.tick = d }
}

// WithSessionOptions is applied to every new session after the defaults.
func WithSessionOptions(opts ...session.Option) Option {
	return func(s *Service) { s.extra = append(s.extra, opts...) }
}

// NewService loads progress from db, which may be nil for a purely
// in-memory game. Every level's strategy must be registered.
func NewService(ctx context.Context, cat *catalog.Catalog, db store.DB, opts ...Option) (*Service, error) {
	s := &Service{
		cat:      cat,
		db:       db,
		logger:   zerolog.Nop(),
		pub:      nopPublisher{},
		now:      time.Now,
		tick:     time.Second,
		sessions: make(map[string]*live),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.reg == nil {
		s.reg = DefaultRegistry()
	}
	s.logger = s.logger.With().Str("component", "game").Logger()

	for _, l := range cat.Levels() {
		if _, ok := s.reg.Lookup(l.StrategyID); !ok {
			return nil, fmt.Errorf("%w: %s (level %s)", ErrUnknownStrategy, l.StrategyID, l.ID)
		}
	}

	s.load(ctx)
	return s, nil
}

// Catalog returns the level catalog.
func (s *Service) Catalog() *catalog.Catalog { return s.cat }

// Strategies lists the registered strategies.
func (s *Service) Strategies() []strategy.Spec { return s.reg.Specs() }

// Ping checks the store.
func (s *Service) Ping(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	return s.db.Ping(ctx)
}

// Levels returns every level with its progress, in catalog order.
func (s *Service) Levels() []LevelView {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]LevelView, 0, s.cat.Len())
	for _, l := range s.cat.Levels() {
		out = append(out, s.view(l))
	}
	return out
}

// Level returns one level with its progress.
func (s *Service) Level(id string) (LevelView, error) {
	l, ok := s.cat.Level(id)
	if !ok {
		return LevelView{}, fmt.Errorf("%w: %s", ErrUnknownLevel, id)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view(l), nil
}

// GameLog returns a copy of the recorded AI playthroughs.
func (s *Service) GameLog() strategy.GameLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.logCopy()
}

func (s *Service) logCopy() strategy.GameLog {
	out := make(strategy.GameLog, len(s.gameLog))
	for id, moves := range s.gameLog {
		out[id] = moves
	}
	return out
}

// StartLevel opens a new session on an unlocked level and marks it played.
func (s *Service) StartLevel(ctx context.Context, levelID string) (session.Snapshot, error) {
	l, ok := s.cat.Level(levelID)
	if !ok {
		return session.Snapshot{}, fmt.Errorf("%w: %s", ErrUnknownLevel, levelID)
	}
	strat, _ := s.reg.Lookup(l.StrategyID)

	s.mu.Lock()
	defer s.mu.Unlock()

	lp := s.progress[l.ID]
	if !lp.Unlocked {
		return session.Snapshot{}, fmt.Errorf("%w: %s", ErrLevelLocked, levelID)
	}
	if !lp.Played {
		lp.Played = true
		s.saveLevels(ctx, *lp)
	}

	opts := append([]session.Option{
		session.WithClock(s.now),
		session.WithGameLog(s.logCopy()),
	}, s.extra...)
	sess := session.New(l, strat, opts...)
	sess.Start()

	lv := &live{sess: sess, countdown: session.NewCountdown(s.tick)}
	s.sessions[sess.ID()] = lv
	s.arm(lv)

	snap := sess.Snapshot()
	s.logger.Info().
		Str("session", sess.ID()).
		Str("level", l.ID).
		Str("strategy", l.StrategyID).
		Str("seed_hash", sess.SeedHash()).
		Msg("session started")
	s.pub.Publish(Event{Kind: EventStarted, SessionID: sess.ID(), Snapshot: &snap})
	return snap, nil
}

// Submit plays one round of a live session.
func (s *Service) Submit(ctx context.Context, sessionID string, move engine.Move) (*session.RoundEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lv, ok := s.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSession, sessionID)
	}

	ev, err := lv.sess.Submit(move)
	if err != nil {
		s.logger.Debug().Err(err).Str("session", sessionID).Msg("move rejected")
		return nil, err
	}
	s.logger.Debug().
		Str("session", sessionID).
		Int("round", ev.Round).
		Stringer("player", move).
		Msg("round played")

	if ev.Completion != nil {
		lv.countdown.Stop()
		s.complete(ctx, lv.sess, ev.Completion)
	} else {
		s.arm(lv)
	}

	s.pub.Publish(Event{Kind: EventRound, SessionID: sessionID, Round: ev})
	if ev.Completion != nil {
		s.pub.Publish(Event{Kind: EventCompleted, SessionID: sessionID, Completion: ev.Completion})
	}
	return ev, nil
}

// arm restarts the UI countdown when the session has a deadline.
func (s *Service) arm(lv *live) {
	deadline, ok := lv.sess.Deadline()
	if !ok {
		lv.countdown.Stop()
		return
	}
	id := lv.sess.ID()
	lv.countdown.Start(context.Background(), deadline,
		func(remaining time.Duration) {
			s.pub.Publish(Event{Kind: EventTick, SessionID: id, RemainingMs: remaining.Milliseconds()})
		},
		func() {
			s.pub.Publish(Event{Kind: EventLocked, SessionID: id})
		},
	)
}

// complete records a finished session: best score, game log, unlock and run.
func (s *Service) complete(ctx context.Context, sess *session.Session, c *session.Completion) {
	l := sess.Level()
	lp := s.progress[l.ID]
	lp.Played = true

	elapsedMs := c.Elapsed.Milliseconds()
	score := store.BestScore{Wins: c.Tally.Wins, Ties: c.Tally.Ties, Losses: c.Tally.Losses, TimeMs: &elapsedMs}
	// Only a won run can become the best score.
	if c.Won && betterScore(score, lp.BestScore) {
		lp.BestScore = &score
	}
	rows := []store.LevelProgress{*lp}

	moves := append([]engine.Move(nil), c.AIMoves...)
	s.gameLog[l.ID] = moves

	if c.Won {
		if next, ok := s.cat.Next(l.ID); ok {
			np := s.progress[next.ID]
			np.Unlocked = true
			c.NextUnlocked = next.ID
			rows = append(rows, *np)
		}
	}

	run := &store.Run{
		ID:         uuid.New().String(),
		LevelID:    l.ID,
		Won:        c.Won,
		Wins:       c.Tally.Wins,
		Ties:       c.Tally.Ties,
		Losses:     c.Tally.Losses,
		ElapsedMs:  elapsedMs,
		SeedHash:   c.SeedHash,
		ClientSeed: sess.ClientSeed(),
		Nonce:      sess.Nonce(),
		CreatedAt:  s.now().UTC(),
	}

	event := s.logger.Info().
		Str("session", sess.ID()).
		Str("level", l.ID).
		Bool("won", c.Won).
		Int("wins", c.Tally.Wins).
		Int("ties", c.Tally.Ties).
		Int("losses", c.Tally.Losses).
		Str("elapsed", c.ElapsedText)
	if c.ConditionError != "" {
		event = event.Str("condition_error", c.ConditionError)
	}
	event.Msg("level completed")

	if s.db == nil {
		return
	}
	err := s.db.SaveCompletion(ctx, &store.Completion{
		LevelID: l.ID,
		Levels:  rows,
		AIMoves: moves,
		Run:     run,
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("level", l.ID).Msg("failed to save completion")
	}
}

// Session returns the current view of a live session.
func (s *Service) Session(id string) (session.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lv, ok := s.sessions[id]
	if !ok {
		return session.Snapshot{}, fmt.Errorf("%w: %s", ErrUnknownSession, id)
	}
	return lv.sess.Snapshot(), nil
}

// History returns the display history of a live session.
func (s *Service) History(id string) ([]session.HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lv, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSession, id)
	}
	return lv.sess.History(), nil
}

// Abandon discards a session, finished or not.
func (s *Service) Abandon(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	lv, ok := s.sessions[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSession, id)
	}
	s.drop(lv)
	return nil
}

func (s *Service) drop(lv *live) {
	lv.countdown.Stop()
	delete(s.sessions, lv.sess.ID())
	s.pub.Publish(Event{Kind: EventAbandoned, SessionID: lv.sess.ID()})
	s.logger.Info().Str("session", lv.sess.ID()).Str("phase", string(lv.sess.Phase())).Msg("session closed")
}

// UnlockAll unlocks every level.
func (s *Service) UnlockAll(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, lp := range s.progress {
		lp.Unlocked = true
	}
	s.saveLevels(ctx, s.rows()...)
	s.logger.Info().Msg("all levels unlocked")
}

// ClearAll wipes progress, the game log, run history and live sessions.
func (s *Service) ClearAll(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, lv := range s.sessions {
		s.drop(lv)
	}
	s.progress = defaultProgress(s.cat)
	s.gameLog = strategy.GameLog{}

	if s.db != nil {
		if err := s.db.Reset(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("failed to clear persisted data")
		}
	}
	s.logger.Info().Msg("all data cleared")
}

// Runs lists finished attempts from the store.
func (s *Service) Runs(ctx context.Context, q store.RunsQuery) (*store.RunsList, error) {
	if q.LevelID != "" {
		if _, ok := s.cat.Level(q.LevelID); !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownLevel, q.LevelID)
		}
	}
	if s.db == nil {
		return &store.RunsList{Runs: []store.Run{}, Page: 1, PerPage: q.PerPage}, nil
	}
	return s.db.ListRuns(ctx, q)
}

// Close stops every countdown.
func (s *Service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, lv := range s.sessions {
		lv.countdown.Stop()
	}
}
