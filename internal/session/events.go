package session

import (
	"time"

	"github.com/MJE43/rps-gauntlet/internal/catalog"
	"github.com/MJE43/rps-gauntlet/internal/engine"
	"github.com/MJE43/rps-gauntlet/internal/strategy"
)

// HistoryEntry is one line of the displayed history.
type HistoryEntry struct {
	Round    int           `json:"round"`
	Player   engine.Move   `json:"player"`
	AI       *engine.Move  `json:"ai,omitempty"`
	Result   engine.Result `json:"result,omitempty"`
	Hidden   bool          `json:"hidden,omitempty"`
	Tampered bool          `json:"tampered,omitempty"`
	Taunt    string        `json:"taunt,omitempty"`
}

// RoundEvent is emitted after every accepted move.
type RoundEvent struct {
	SessionID   string        `json:"session_id"`
	LevelID     string        `json:"level_id"`
	Round       int           `json:"round"`
	TotalRounds int           `json:"total_rounds,omitempty"`
	Player      engine.Move   `json:"player"`
	AI          *engine.Move  `json:"ai,omitempty"`
	Result      engine.Result `json:"result,omitempty"`
	Tally       *engine.Tally `json:"tally,omitempty"`
	Redacted    bool          `json:"redacted,omitempty"`
	Entry       HistoryEntry  `json:"entry"`

	Rules   *engine.MatchupRules `json:"rules,omitempty"`
	Toggled engine.RuleKey       `json:"toggled,omitempty"`

	Delegate *strategy.Spec `json:"delegate,omitempty"`
	Timer    *Timer         `json:"timer,omitempty"`

	Completion *Completion `json:"completion,omitempty"`
}

// Timer describes the budget armed for the next round.
type Timer struct {
	BudgetSeconds int       `json:"budget_seconds"`
	Deadline      time.Time `json:"deadline"`
}

// Completion is the final result of a session.
type Completion struct {
	LevelID        string        `json:"level_id"`
	Won            bool          `json:"won"`
	Tally          engine.Tally  `json:"tally"`
	TotalRounds    int           `json:"total_rounds"`
	Elapsed        time.Duration `json:"elapsed_ns"`
	ElapsedText    string        `json:"elapsed"`
	AIMoves        []engine.Move `json:"ai_moves"`
	ServerSeed     string        `json:"server_seed,omitempty"`
	SeedHash       string        `json:"seed_hash,omitempty"`
	ConditionError string        `json:"condition_error,omitempty"`
	// NextUnlocked is filled in by the caller that owns progress.
	NextUnlocked string `json:"next_unlocked,omitempty"`
}

func (s *Session) roundEvent(r engine.RoundRecord) *RoundEvent {
	ev := &RoundEvent{
		SessionID: s.id,
		LevelID:   s.level.ID,
		Round:     r.Round,
		Player:    r.Player,
	}

	history := s.History()
	ev.Entry = history[len(history)-1]

	if s.Hidden() {
		ev.Redacted = true
	} else {
		ai := r.AI
		tally := s.tally
		ev.AI = &ai
		ev.Result = r.Result
		ev.Tally = &tally
		ev.TotalRounds = s.level.TotalRounds
	}

	if s.level.Has(catalog.RuleDisplay) && r.Rules != nil {
		rules := *r.Rules
		ev.Rules = &rules
		ev.Toggled = r.Toggled
	}

	if spec, ok := s.Delegate(); ok {
		ev.Delegate = &spec
	}
	ev.Timer = s.timer()
	ev.Completion = s.result
	return ev
}

func (s *Session) timer() *Timer {
	deadline, ok := s.Deadline()
	if !ok {
		return nil
	}
	return &Timer{BudgetSeconds: int(s.budget / time.Second), Deadline: deadline}
}

// Snapshot is the current view of a session, redacted the same way as events.
type Snapshot struct {
	ID          string         `json:"id"`
	LevelID     string         `json:"level_id"`
	LevelName   string         `json:"level_name"`
	StrategyID  string         `json:"strategy_id"`
	Phase       Phase          `json:"phase"`
	Round       int            `json:"round"`
	TotalRounds int            `json:"total_rounds,omitempty"`
	Tally       *engine.Tally  `json:"tally,omitempty"`
	Redacted    bool           `json:"redacted,omitempty"`
	Flags       []catalog.Flag `json:"flags,omitempty"`
	StartedAt   time.Time      `json:"started_at"`
	Locked      bool           `json:"locked"`
	Timer       *Timer         `json:"timer,omitempty"`
	Delegate    *strategy.Spec `json:"delegate,omitempty"`
	SeedHash    string         `json:"seed_hash,omitempty"`
	ClientSeed  string         `json:"client_seed,omitempty"`
	Nonce       uint64         `json:"nonce"`
	Completion  *Completion    `json:"completion,omitempty"`
}

// Snapshot returns the current view.
func (s *Session) Snapshot() Snapshot {
	snap := Snapshot{
		ID:         s.id,
		LevelID:    s.level.ID,
		LevelName:  s.level.Name,
		StrategyID: s.level.StrategyID,
		Phase:      s.phase,
		Round:      len(s.rounds),
		Flags:      s.level.Flags,
		StartedAt:  s.startedAt,
		Locked:     s.Locked(),
		Timer:      s.timer(),
		SeedHash:   s.SeedHash(),
		ClientSeed: s.clientSeed,
		Nonce:      s.nonce,
		Completion: s.result,
	}
	if s.Hidden() {
		snap.Redacted = true
	} else {
		tally := s.tally
		snap.Tally = &tally
		snap.TotalRounds = s.level.TotalRounds
	}
	if spec, ok := s.Delegate(); ok {
		snap.Delegate = &spec
	}
	return snap
}
