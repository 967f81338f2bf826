package strategy

import "github.com/MJE43/rps-gauntlet/internal/engine"

// Mirror echoes the player's previous move.
type Mirror struct{}

func (Mirror) Spec() Spec {
	return Spec{ID: "mirror", Name: "Mimic", Description: "It seems to be learning from you."}
}

func (Mirror) Next(ctx *Context, _ *State) Decision {
	last, ok := ctx.lastPlayer(1)
	if !ok {
		return ctx.play(ctx.random())
	}
	return ctx.play(last)
}

// DirectCounter beats the player's previous move.
type DirectCounter struct{}

func (DirectCounter) Spec() Spec {
	return Spec{ID: "counter", Name: "Counter", Description: "It always wants to beat you."}
}

func (DirectCounter) Next(ctx *Context, _ *State) Decision {
	return ctx.play(counterLast(ctx))
}

func counterLast(ctx *Context) engine.Move {
	last, ok := ctx.lastPlayer(1)
	if !ok {
		return ctx.random()
	}
	return engine.Counter(last)
}

// SelfAvoider never repeats its own previous move.
type SelfAvoider struct{}

func (SelfAvoider) Spec() Spec {
	return Spec{ID: "self-avoider", Name: "Shapeshifter", Description: "It does not like repeating itself."}
}

func (SelfAvoider) Next(ctx *Context, _ *State) Decision {
	return ctx.play(avoidSelf(ctx))
}

func avoidSelf(ctx *Context) engine.Move {
	last, ok := ctx.lastAI()
	if !ok {
		return ctx.random()
	}
	return engine.Pick(ctx.Rand, movesExcept(last))
}

// Amnesiac plays like SelfAvoider; its level hides the round information.
type Amnesiac struct{}

func (Amnesiac) Spec() Spec {
	return Spec{ID: "amnesiac", Name: "Amnesiac", Description: "Some information seems to be deliberately hidden."}
}

func (Amnesiac) Next(ctx *Context, _ *State) Decision {
	return ctx.play(avoidSelf(ctx))
}

// DoubleAvoider avoids both the player's and its own previous move.
type DoubleAvoider struct{}

func (DoubleAvoider) Spec() Spec {
	return Spec{ID: "double-avoider", Name: "Double Negative", Description: "It tries to dodge the latest pattern."}
}

func (DoubleAvoider) Next(ctx *Context, _ *State) Decision {
	player, okP := ctx.lastPlayer(1)
	ai, okA := ctx.lastAI()
	if !okP || !okA {
		return ctx.play(ctx.random())
	}
	candidates := movesExcept(player, ai)
	if len(candidates) == 0 {
		candidates = movesExcept(player)
	}
	if len(candidates) == 0 {
		all := engine.Moves
		candidates = all[:]
	}
	return ctx.play(engine.Pick(ctx.Rand, candidates))
}

// RecallCounter counters one of the player's last two moves.
type RecallCounter struct{}

func (RecallCounter) Spec() Spec {
	return Spec{ID: "recall-counter", Name: "Recall Counter", Description: "It remembers your earlier choices."}
}

func (RecallCounter) Next(ctx *Context, _ *State) Decision {
	var targets []engine.Move
	for back := 1; back <= 2; back++ {
		if m, ok := ctx.lastPlayer(back); ok {
			targets = append(targets, engine.Counter(m))
		}
	}
	if len(targets) == 0 {
		return ctx.play(ctx.random())
	}
	return ctx.play(engine.Pick(ctx.Rand, targets))
}

// KStep looks K rounds back, with K fixed per level in [2, 5], and either
// copies or counters that move.
type KStep struct{}

type kStepState struct {
	k int
}

func (KStep) Spec() Spec {
	return Spec{ID: "k-step", Name: "K-Step Sage", Description: "It revisits one particular round of your history."}
}

func (KStep) Next(ctx *Context, st *State) Decision {
	s := StateOf[kStepState](st)
	if s.k == 0 {
		s.k = engine.IntRange(ctx.Rand, 2, 5)
	}
	target, ok := ctx.lastPlayer(s.k)
	if !ok {
		return ctx.play(ctx.random())
	}
	if ctx.Rand.Float64() < 0.5 {
		return ctx.play(engine.Counter(target))
	}
	return ctx.play(target)
}

var taunts = []string{
	"Too weak!",
	"Pushover!",
	"Rookie~",
	"Is that all you've got?",
	"I win again!",
}

const tauntChance = 0.7

// Tamper counters like DirectCounter and trash-talks in the history log.
type Tamper struct{}

func (Tamper) Spec() Spec {
	return Spec{ID: "tamper", Name: "Taunting Tamperer", Description: "Do not trust everything you see."}
}

func (Tamper) Next(ctx *Context, _ *State) Decision {
	d := ctx.play(counterLast(ctx))
	if ctx.Rand.Float64() < tauntChance {
		d.Taunt = engine.Pick(ctx.Rand, taunts)
	}
	return d
}

func movesExcept(excluded ...engine.Move) []engine.Move {
	out := make([]engine.Move, 0, len(engine.Moves))
	for _, m := range engine.Moves {
		skip := false
		for _, e := range excluded {
			if m == e {
				skip = true
				break
			}
		}
		if !skip {
			out = append(out, m)
		}
	}
	return out
}
