package boss

import (
	"testing"
	"time"

	"github.com/MJE43/rps-gauntlet/internal/engine"
	"github.com/MJE43/rps-gauntlet/internal/strategy"
)

func newContext() *strategy.Context {
	return &strategy.Context{
		LevelID:     "5-1",
		TotalRounds: 300,
		Rand:        engine.NewSeededRand("boss_server", "boss_client", 1),
	}
}

func play(b *Boss, ctx *strategy.Context, st *strategy.State, player engine.Move) strategy.Decision {
	d := b.Next(ctx, st)
	b.Observe(st, d.Move, engine.Outcome(player, d.Move, nil))
	ctx.Player = append(ctx.Player, player)
	ctx.AI = append(ctx.AI, d.Move)
	return d
}

func TestPoolExcludesReplayAndBoss(t *testing.T) {
	reg := strategy.Default()
	b := New(reg)
	reg.Register(b)

	pool := b.Pool()
	if len(pool) != 18 {
		t.Fatalf("expected 18 delegates, got %d", len(pool))
	}
	for _, id := range pool {
		if id == "replay" || id == ID {
			t.Errorf("%q must not be in the delegation pool", id)
		}
	}
	if _, ok := reg.Lookup(ID); !ok {
		t.Error("boss should be registered")
	}
}

func TestRotationEveryThirtyRounds(t *testing.T) {
	b := New(strategy.Default())
	ctx := newContext()
	st := &strategy.State{}

	var lastSub strategy.Namespace
	for round := 0; round < 95; round++ {
		play(b, ctx, st, engine.Moves[round%3])
		s := strategy.StateOf[bossState](st)

		rotated := round%RotationPeriod == 0
		fresh := lastSub == nil || !sameNamespace(lastSub, s.sub)
		if rotated != fresh {
			t.Fatalf("round %d: rotated=%v but namespace fresh=%v", round, rotated, fresh)
		}
		if rotated && len(s.sub) != 1 {
			t.Fatalf("round %d: fresh namespace should hold only the delegate, has %d entries", round, len(s.sub))
		}
		if _, ok := s.sub[s.delegate]; !ok {
			t.Fatalf("round %d: namespace missing delegate %q", round, s.delegate)
		}
		lastSub = s.sub
	}

	if got := strategy.StateOf[bossState](st).counter; got != 95 {
		t.Errorf("expected counter 95, got %d", got)
	}
}

func sameNamespace(a, b strategy.Namespace) bool {
	for id, st := range a {
		if b[id] != st {
			return false
		}
	}
	return len(a) > 0
}

func TestCountersResetOnRotation(t *testing.T) {
	b := New(strategy.NewRegistry(strategy.ProbShaper{}))
	ctx := newContext()
	st := &strategy.State{}

	// The first call rotates and seeds zero counters; then feed four AI wins with Rock.
	b.Next(ctx, st)
	for i := 0; i < 4; i++ {
		b.Observe(st, engine.Rock, engine.AIWin)
	}
	for i := 1; i < RotationPeriod; i++ {
		if got := b.Next(ctx, st).Move; got != engine.Rock {
			t.Fatalf("call %d: expected dominant Rock, got %v", i, got)
		}
	}

	// Rotation wipes the counters, so Rock is no longer forced.
	seen := make(map[engine.Move]bool)
	for i := 0; i < RotationPeriod; i++ {
		seen[b.Next(ctx, st).Move] = true
	}
	if len(seen) < 2 {
		t.Errorf("expected varied moves after rotation, saw %v", seen)
	}
}

func TestDelegateSeesFullHistory(t *testing.T) {
	b := New(strategy.NewRegistry(strategy.Mirror{}))
	ctx := newContext()
	ctx.Player = []engine.Move{engine.Rock, engine.Scissors}
	ctx.AI = []engine.Move{engine.Paper, engine.Paper}

	if got := b.Next(ctx, &strategy.State{}).Move; got != engine.Scissors {
		t.Errorf("expected delegate to mirror Scissors, got %v", got)
	}
}

func TestDecisionDropsRulesAndTaunts(t *testing.T) {
	for _, s := range []strategy.Strategy{strategy.RuleInverter{}, strategy.Tamper{}} {
		b := New(strategy.NewRegistry(s))
		ctx := newContext()
		st := &strategy.State{}
		for i := 0; i < 20; i++ {
			d := play(b, ctx, st, engine.Rock)
			if d.Rules != nil || d.Toggled != engine.NoRule || d.Taunt != "" {
				t.Fatalf("%s: boss decision carried delegate extras: %+v", s.Spec().ID, d)
			}
		}
	}
}

func TestCurrent(t *testing.T) {
	b := New(strategy.NewRegistry(strategy.Fixed{}))
	st := &strategy.State{}

	if _, ok := b.Current(st); ok {
		t.Error("no delegate before the first round")
	}
	b.Next(newContext(), st)
	spec, ok := b.Current(st)
	if !ok || spec.ID != "fixed" {
		t.Errorf("expected fixed delegate, got %+v (ok=%v)", spec, ok)
	}
}

func TestFreshStateRotatesAgain(t *testing.T) {
	b := New(strategy.Default())
	st := &strategy.State{}
	ctx := newContext()
	for i := 0; i < 10; i++ {
		play(b, ctx, st, engine.Paper)
	}
	st.Reset()
	if _, ok := b.Current(st); ok {
		t.Error("reset state should have no delegate")
	}
}

func TestRoundBudget(t *testing.T) {
	tests := []struct {
		total, played int
		want          time.Duration
		ok            bool
	}{
		{300, 0, 0, false},
		{300, 269, 0, false},
		{300, 270, 30 * time.Second, true},
		{300, 271, 29 * time.Second, true},
		{300, 285, 17 * time.Second, true},
		{300, 298, 6 * time.Second, true},
		{300, 299, 5 * time.Second, true},
		{300, 300, 0, false},
		{10, 0, 13 * time.Second, true},
	}

	b := New(strategy.Default())
	for _, tt := range tests {
		got, ok := b.RoundBudget(tt.total, tt.played)
		if ok != tt.ok || got != tt.want {
			t.Errorf("RoundBudget(%d, %d) = %v, %v; want %v, %v", tt.total, tt.played, got, ok, tt.want, tt.ok)
		}
	}

	// Budgets never grow as the level goes on.
	prev := time.Duration(1 << 62)
	for played := 270; played < 300; played++ {
		got, _ := RoundBudget(300, played)
		if got > prev || got < 5*time.Second {
			t.Fatalf("played %d: budget %v breaks the schedule", played, got)
		}
		prev = got
	}
}
