// Package session runs one attempt at one level: the round-by-round state
// machine, its output events and the optional per-round clock.
package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/MJE43/rps-gauntlet/internal/catalog"
	"github.com/MJE43/rps-gauntlet/internal/engine"
	"github.com/MJE43/rps-gauntlet/internal/strategy"
)

// Phase is the lifecycle position of a session.
type Phase string

const (
	NotStarted Phase = "not_started"
	InProgress Phase = "in_progress"
	Completed  Phase = "completed"
)

var (
	ErrNotInProgress    = errors.New("session is not in progress")
	ErrSessionCompleted = errors.New("session already completed")
	ErrInvalidMove      = errors.New("invalid move")
	ErrInputLocked      = errors.New("round time budget expired, input locked")
)

// Delegator is implemented by strategies that hand rounds to another strategy.
type Delegator interface {
	Current(st *strategy.State) (strategy.Spec, bool)
}

// Session is not safe for concurrent use; callers serialise access.
type Session struct {
	id    string
	level *catalog.Level
	strat strategy.Strategy
	log   strategy.GameLog
	now   func() time.Time

	rand       engine.Rand
	serverSeed string
	clientSeed string
	nonce      uint64

	phase     Phase
	state     *strategy.State
	player    []engine.Move
	ai        []engine.Move
	rounds    []engine.RoundRecord
	entries   []HistoryEntry
	tally     engine.Tally
	startedAt time.Time
	deadline  time.Time
	budget    time.Duration
	result    *Completion
}

// Option configures a Session.
type Option func(*Session)

// WithID sets the session id instead of a random uuid.
func WithID(id string) Option {
	return func(s *Session) { s.id = id }
}

// WithRand replaces the seeded random stream. The session then has no
// verifiable seeds.
func WithRand(r engine.Rand) Option {
	return func(s *Session) {
		s.rand = r
		s.serverSeed, s.clientSeed = "", ""
	}
}

// WithSeeds fixes the provably fair seeds.
func WithSeeds(serverSeed, clientSeed string, nonce uint64) Option {
	return func(s *Session) {
		s.serverSeed, s.clientSeed, s.nonce = serverSeed, clientSeed, nonce
		s.rand = nil
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// WithGameLog supplies the past playthroughs visible to the strategy.
func WithGameLog(log strategy.GameLog) Option {
	return func(s *Session) { s.log = log }
}

// New prepares a session in the NotStarted phase.
func New(level *catalog.Level, strat strategy.Strategy, opts ...Option) *Session {
	s := &Session{
		id:         uuid.NewString(),
		level:      level,
		strat:      strat,
		now:        time.Now,
		serverSeed: uuid.NewString(),
		clientSeed: uuid.NewString(),
		phase:      NotStarted,
		state:      &strategy.State{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rand == nil {
		s.rand = engine.NewSeededRand(s.serverSeed, s.clientSeed, s.nonce)
	}
	return s
}

// Start resets every piece of per-attempt state and moves to InProgress.
// Calling it again restarts the level from the same empty shape.
func (s *Session) Start() {
	s.phase = InProgress
	s.state = &strategy.State{}
	s.player = nil
	s.ai = nil
	s.rounds = nil
	s.entries = nil
	s.tally = engine.Tally{}
	s.result = nil
	s.startedAt = s.now()
	s.arm()
}

// Submit plays one round. Rejected submissions leave the session untouched.
func (s *Session) Submit(move engine.Move) (*RoundEvent, error) {
	switch s.phase {
	case Completed:
		return nil, ErrSessionCompleted
	case InProgress:
	default:
		return nil, ErrNotInProgress
	}
	if len(s.rounds) >= s.level.TotalRounds {
		return nil, ErrSessionCompleted
	}
	if !move.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidMove, move)
	}
	if s.Locked() {
		return nil, ErrInputLocked
	}

	ctx := &strategy.Context{
		LevelID:     s.level.ID,
		TotalRounds: s.level.TotalRounds,
		Player:      s.player,
		AI:          s.ai,
		Rounds:      s.rounds,
		Log:         s.log,
		Rand:        s.rand,
	}
	d := s.strat.Next(ctx, s.state)
	result := engine.Outcome(move, d.Move, d.Rules)

	record := engine.RoundRecord{
		Round:   len(s.rounds) + 1,
		Player:  move,
		AI:      d.Move,
		Result:  result,
		Toggled: d.Toggled,
		Taunt:   d.Taunt,
	}
	if d.Rules != nil {
		rules := *d.Rules
		record.Rules = &rules
	}

	s.player = append(s.player, move)
	s.ai = append(s.ai, d.Move)
	s.rounds = append(s.rounds, record)
	s.entries = append(s.entries, s.entryFor(record))
	s.tally.Add(result)
	if obs, ok := s.strat.(strategy.Observer); ok {
		obs.Observe(s.state, d.Move, result)
	}

	if len(s.rounds) == s.level.TotalRounds {
		s.complete()
	} else {
		s.arm()
	}
	return s.roundEvent(record), nil
}

func (s *Session) complete() {
	s.phase = Completed
	s.deadline = time.Time{}
	s.budget = 0

	elapsed := s.now().Sub(s.startedAt)
	c := &Completion{
		LevelID:     s.level.ID,
		Tally:       s.tally,
		TotalRounds: s.level.TotalRounds,
		Elapsed:     elapsed,
		ElapsedText: FormatElapsed(elapsed),
		AIMoves:     append([]engine.Move(nil), s.ai...),
		ServerSeed:  s.serverSeed,
		SeedHash:    engine.HashSeed(s.serverSeed),
	}
	won, err := s.level.Won(s.tally)
	if err != nil {
		c.ConditionError = err.Error()
	}
	c.Won = won && err == nil
	s.result = c
}

// arm sets the deadline for the next round when the level is timed.
func (s *Session) arm() {
	s.deadline = time.Time{}
	s.budget = 0
	if !s.level.Has(catalog.BossTimer) {
		return
	}
	dl, ok := s.strat.(strategy.Deadliner)
	if !ok {
		return
	}
	budget, ok := dl.RoundBudget(s.level.TotalRounds, len(s.rounds))
	if !ok {
		return
	}
	s.budget = budget
	s.deadline = s.now().Add(budget)
}

// entryFor builds the history line shown for a round. Tampered rounds show a
// fabricated AI win; the record itself is unchanged.
func (s *Session) entryFor(r engine.RoundRecord) HistoryEntry {
	if s.level.Has(catalog.TamperHistory) && r.Taunt != "" {
		fakeAI := engine.RandomMove(s.rand)
		fakePlayer := engine.Weakness(fakeAI)
		return HistoryEntry{
			Round:    r.Round,
			Player:   fakePlayer,
			AI:       &fakeAI,
			Result:   engine.AIWin,
			Taunt:    r.Taunt,
			Tampered: true,
		}
	}
	ai := r.AI
	return HistoryEntry{Round: r.Round, Player: r.Player, AI: &ai, Result: r.Result}
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Level returns the level being played.
func (s *Session) Level() *catalog.Level { return s.level }

// Strategy returns the opponent.
func (s *Session) Strategy() strategy.Strategy { return s.strat }

// Phase returns the lifecycle position.
func (s *Session) Phase() Phase { return s.phase }

// Tally returns the running score.
func (s *Session) Tally() engine.Tally { return s.tally }

// Played returns the number of completed rounds.
func (s *Session) Played() int { return len(s.rounds) }

// StartedAt returns when the current attempt began.
func (s *Session) StartedAt() time.Time { return s.startedAt }

// Deadline returns the input deadline of the current round, if one is armed.
func (s *Session) Deadline() (time.Time, bool) {
	return s.deadline, !s.deadline.IsZero()
}

// Budget returns the time budget of the current round, zero when untimed.
func (s *Session) Budget() time.Duration { return s.budget }

// Locked reports whether the current round's budget has run out.
func (s *Session) Locked() bool {
	return !s.deadline.IsZero() && s.now().After(s.deadline)
}

// Rounds returns a copy of the true round records.
func (s *Session) Rounds() []engine.RoundRecord {
	return append([]engine.RoundRecord(nil), s.rounds...)
}

// Completion returns the final result once the session has completed.
func (s *Session) Completion() (*Completion, bool) {
	return s.result, s.result != nil
}

// SeedHash returns the hash of the server seed, published from the start.
func (s *Session) SeedHash() string {
	return engine.HashSeed(s.serverSeed)
}

// ClientSeed returns the client seed.
func (s *Session) ClientSeed() string { return s.clientSeed }

// Nonce returns the seed nonce.
func (s *Session) Nonce() uint64 { return s.nonce }

// ServerSeed reveals the server seed after completion only.
func (s *Session) ServerSeed() (string, bool) {
	if s.phase != Completed || s.serverSeed == "" {
		return "", false
	}
	return s.serverSeed, true
}

// Delegate reports the strategy currently driving a delegating opponent.
func (s *Session) Delegate() (strategy.Spec, bool) {
	d, ok := s.strat.(Delegator)
	if !ok {
		return strategy.Spec{}, false
	}
	return d.Current(s.state)
}

// Hidden reports whether round information is currently redacted.
func (s *Session) Hidden() bool {
	return s.level.Has(catalog.HideRoundInfo) && s.phase == InProgress
}

// History returns the display history. Tampered rounds show their fabricated
// line, and on hidden-info levels the latest round's AI move and result stay
// masked until the level ends.
func (s *Session) History() []HistoryEntry {
	out := make([]HistoryEntry, len(s.entries))
	copy(out, s.entries)
	if s.Hidden() && len(out) > 0 {
		last := &out[len(out)-1]
		last.AI = nil
		last.Result = ""
		last.Hidden = true
	}
	return out
}

// FormatElapsed renders a duration as M:SS.
func FormatElapsed(d time.Duration) string {
	if d < 0 {
		return "N/A"
	}
	total := int(d / time.Second)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
