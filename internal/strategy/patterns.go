package strategy

import "github.com/MJE43/rps-gauntlet/internal/engine"

// Fixed picks one move at first call and repeats it forever.
type Fixed struct{}

type fixedState struct {
	set  bool
	move engine.Move
}

func (Fixed) Spec() Spec {
	return Spec{ID: "fixed", Name: "Stubborn Stone", Description: "It seems to have a particular preference."}
}

func (Fixed) Next(ctx *Context, st *State) Decision {
	s := StateOf[fixedState](st)
	if !s.set {
		s.move = ctx.random()
		s.set = true
	}
	return ctx.play(s.move)
}

// Pair restricts itself to two moves chosen at first call.
type Pair struct{}

type pairState struct {
	allowed []engine.Move
}

func (Pair) Spec() Spec {
	return Spec{ID: "pair", Name: "Two-Faced", Description: "Its range of choices is limited."}
}

func (Pair) Next(ctx *Context, st *State) Decision {
	s := StateOf[pairState](st)
	if s.allowed == nil {
		all := engine.Moves
		moves := all[:]
		engine.Shuffle(ctx.Rand, moves)
		s.allowed = moves[:2]
	}
	return ctx.play(engine.Pick(ctx.Rand, s.allowed))
}

type cycleState struct {
	cycle  []engine.Move
	cursor int
}

func (s *cycleState) advance() engine.Move {
	m := s.cycle[s.cursor]
	s.cursor = (s.cursor + 1) % len(s.cycle)
	return m
}

// ShortCycle replays a random permutation of the three moves.
type ShortCycle struct{}

func (ShortCycle) Spec() Spec {
	return Spec{ID: "short-cycle", Name: "Rhythm Cycle", Description: "Its actions leave a trail."}
}

func (ShortCycle) Next(ctx *Context, st *State) Decision {
	s := StateOf[cycleState](st)
	if s.cycle == nil {
		all := engine.Moves
		s.cycle = all[:]
		engine.Shuffle(ctx.Rand, s.cycle)
	}
	return ctx.play(s.advance())
}

// Streak holds a move for 2 to 4 rounds before rerolling.
type Streak struct{}

type streakState struct {
	set    bool
	move   engine.Move
	length int
	count  int
}

func (Streak) Spec() Spec {
	return Spec{ID: "streak", Name: "Combo Player", Description: "It likes to stay consistent for a while."}
}

func (Streak) Next(ctx *Context, st *State) Decision {
	s := StateOf[streakState](st)
	if !s.set || s.count >= s.length {
		s.move = ctx.random()
		s.length = engine.IntRange(ctx.Rand, 2, 4)
		s.count = 0
		s.set = true
	}
	s.count++
	return ctx.play(s.move)
}

// LongCycle loops over 6 to 8 independently random moves.
type LongCycle struct{}

func (LongCycle) Spec() Spec {
	return Spec{ID: "long-cycle", Name: "Long-Cycle Master", Description: "Its pattern is longer and takes patience to observe."}
}

func (LongCycle) Next(ctx *Context, st *State) Decision {
	s := StateOf[cycleState](st)
	if s.cycle == nil {
		n := engine.IntRange(ctx.Rand, 6, 8)
		s.cycle = make([]engine.Move, n)
		for i := range s.cycle {
			s.cycle[i] = ctx.random()
		}
	}
	return ctx.play(s.advance())
}
