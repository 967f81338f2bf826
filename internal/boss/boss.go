// Package boss implements the meta-strategy that rotates through the roster
// and puts a shrinking clock on the final rounds.
package boss

import (
	"math"
	"time"

	"github.com/MJE43/rps-gauntlet/internal/engine"
	"github.com/MJE43/rps-gauntlet/internal/strategy"
)

const (
	ID = "boss"

	// RotationPeriod is the number of rounds a delegate drives before the Boss picks again.
	RotationPeriod = 30

	// TimedRounds is how many final rounds carry a time budget.
	TimedRounds = 30

	maxBudgetSeconds = 30
	minBudgetSeconds = 5
)

// excluded ids can never be delegated to.
var excluded = []string{ID, "replay"}

// Boss delegates each round to a strategy drawn from its pool. Delegates see
// the whole level history but keep their private state in a namespace that
// is wiped on every rotation.
type Boss struct {
	pool *strategy.Registry
}

type bossState struct {
	counter  int
	delegate string
	sub      strategy.Namespace
}

// New builds a Boss over pool. Replay and the Boss itself are removed from it.
func New(pool *strategy.Registry) *Boss {
	return &Boss{pool: pool.Without(excluded...)}
}

func (b *Boss) Spec() strategy.Spec {
	return strategy.Spec{ID: ID, Name: "Thousand Faces", Description: "The final test, a mix of everything before it."}
}

// Pool returns the ids the Boss can delegate to.
func (b *Boss) Pool() []string {
	return b.pool.IDs()
}

func (b *Boss) Next(ctx *strategy.Context, st *strategy.State) strategy.Decision {
	s := strategy.StateOf[bossState](st)
	if s.counter%RotationPeriod == 0 || s.delegate == "" {
		b.rotate(ctx.Rand, s)
	}
	s.counter++

	delegate, _ := b.pool.Lookup(s.delegate)
	d := delegate.Next(ctx, s.sub.Get(s.delegate))

	// Rules and taunts belong to their own levels; only the move carries over.
	return strategy.Decision{Move: d.Move}
}

func (b *Boss) rotate(r engine.Rand, s *bossState) {
	s.delegate = engine.Pick(r, b.pool.IDs())
	s.sub = strategy.Namespace{}

	delegate, _ := b.pool.Lookup(s.delegate)
	if in, ok := delegate.(strategy.Initializer); ok {
		in.Init(s.sub.Get(s.delegate))
	}
}

// Observe forwards the round result to the current delegate if it keeps counters.
func (b *Boss) Observe(st *strategy.State, ai engine.Move, result engine.Result) {
	s := strategy.StateOf[bossState](st)
	if s.delegate == "" {
		return
	}
	delegate, _ := b.pool.Lookup(s.delegate)
	if obs, ok := delegate.(strategy.Observer); ok {
		obs.Observe(s.sub.Get(s.delegate), ai, result)
	}
}

// Current reports the delegate driving the Boss, if any has been chosen.
func (b *Boss) Current(st *strategy.State) (strategy.Spec, bool) {
	s := strategy.StateOf[bossState](st)
	if s.delegate == "" {
		return strategy.Spec{}, false
	}
	delegate, _ := b.pool.Lookup(s.delegate)
	return delegate.Spec(), true
}

// RoundBudget returns the time allowed for the round after played rounds.
// Budgets run from 30s down to a 5s floor across the final 30 rounds.
func (b *Boss) RoundBudget(totalRounds, played int) (time.Duration, bool) {
	return RoundBudget(totalRounds, played)
}

// RoundBudget is the schedule behind (*Boss).RoundBudget.
func RoundBudget(totalRounds, played int) (time.Duration, bool) {
	remaining := totalRounds - played
	if remaining <= 0 || remaining > TimedRounds {
		return 0, false
	}
	into := float64(TimedRounds - remaining)
	secs := math.Round(maxBudgetSeconds - (25.0/29.0)*into)
	if secs < minBudgetSeconds {
		secs = minBudgetSeconds
	}
	return time.Duration(secs) * time.Second, true
}
