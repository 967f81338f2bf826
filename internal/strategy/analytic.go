package strategy

import "github.com/MJE43/rps-gauntlet/internal/engine"

// moveCounts is indexed by engine.Move.
type moveCounts [3]int

// leaders returns the moves holding the maximum count.
func (c moveCounts) leaders() []engine.Move {
	best := c[0]
	for _, n := range c[1:] {
		if n > best {
			best = n
		}
	}
	var out []engine.Move
	for _, m := range engine.Moves {
		if c[m] == best {
			out = append(out, m)
		}
	}
	return out
}

func (c moveCounts) zero() bool {
	return c == moveCounts{}
}

// Majority counters the player's most frequent move over the whole level.
type Majority struct{}

func (Majority) Spec() Spec {
	return Spec{ID: "majority", Name: "Conformist", Description: "It watches your overall preferences."}
}

func (Majority) Next(ctx *Context, _ *State) Decision {
	if len(ctx.Player) == 0 {
		return ctx.play(ctx.random())
	}
	var counts moveCounts
	for _, m := range ctx.Player {
		counts[m]++
	}
	return ctx.play(engine.Counter(engine.Pick(ctx.Rand, counts.leaders())))
}

// WinMax favours the moves it has won the most rounds with.
type WinMax struct{}

type winMaxState struct {
	wins moveCounts
}

func (WinMax) Spec() Spec {
	return Spec{ID: "win-max", Name: "Winner Takes All", Description: "It sticks to what has worked."}
}

func (WinMax) Init(st *State) {
	*StateOf[winMaxState](st) = winMaxState{}
}

func (WinMax) Observe(st *State, ai engine.Move, result engine.Result) {
	if result == engine.AIWin {
		StateOf[winMaxState](st).wins[ai]++
	}
}

func (WinMax) Next(ctx *Context, st *State) Decision {
	s := StateOf[winMaxState](st)
	if s.wins.zero() {
		return ctx.play(ctx.random())
	}
	return ctx.play(engine.Pick(ctx.Rand, s.wins.leaders()))
}

const (
	cycleMinHistory = 9
	cycleMinLen     = 3
	cycleMaxLen     = 5
	cycleRepeats    = 3
)

// CycleBreaker watches for a repeating block in the player's recent moves and,
// once found, counters it forever without scanning again.
type CycleBreaker struct{}

type cycleBreakerState struct {
	found   bool
	player  []engine.Move
	counter []engine.Move
	cursor  int
}

func (CycleBreaker) Spec() Spec {
	return Spec{ID: "cycle-breaker", Name: "Cycle Breaker", Description: "It is looking for your habits."}
}

func (CycleBreaker) Init(st *State) {
	*StateOf[cycleBreakerState](st) = cycleBreakerState{}
}

func (CycleBreaker) Next(ctx *Context, st *State) Decision {
	s := StateOf[cycleBreakerState](st)
	if !s.found {
		block := detectCycle(ctx.Player)
		if block == nil {
			return ctx.play(ctx.random())
		}
		s.found = true
		s.player = block
		s.counter = make([]engine.Move, len(block))
		for i, m := range block {
			s.counter[i] = engine.Counter(m)
		}
		s.cursor = 0
	}
	m := s.counter[s.cursor]
	s.cursor = (s.cursor + 1) % len(s.counter)
	return ctx.play(m)
}

// detectCycle returns the shortest trailing block of length 3 to 5 that is not
// a single repeated move and occurs at least three times back to back at the
// end of history.
func detectCycle(history []engine.Move) []engine.Move {
	if len(history) < cycleMinHistory {
		return nil
	}
	n := len(history)
	for size := cycleMinLen; size <= cycleMaxLen; size++ {
		if n < size*cycleRepeats {
			continue
		}
		block := history[n-size:]
		if uniform(block) {
			continue
		}
		occurrences := 1
		for i := 2; i <= cycleRepeats; i++ {
			prev := history[n-size*i : n-size*(i-1)]
			if !equalMoves(block, prev) {
				break
			}
			occurrences++
		}
		if occurrences >= cycleRepeats {
			return append([]engine.Move(nil), block...)
		}
	}
	return nil
}

func uniform(ms []engine.Move) bool {
	for _, m := range ms[1:] {
		if m != ms[0] {
			return false
		}
	}
	return true
}

func equalMoves(a, b []engine.Move) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

const dominantNetWins = 4

// ProbShaper weights each move by its net wins: rounds the AI won with it
// minus rounds it lost with it.
type ProbShaper struct{}

type probShaperState struct {
	net [3]int
}

func (ProbShaper) Spec() Spec {
	return Spec{ID: "prob-shaper", Name: "Probability Shaper", Description: "Its confidence visibly bends its choices."}
}

func (ProbShaper) Init(st *State) {
	*StateOf[probShaperState](st) = probShaperState{}
}

func (ProbShaper) Observe(st *State, ai engine.Move, result engine.Result) {
	s := StateOf[probShaperState](st)
	switch result {
	case engine.AIWin:
		s.net[ai]++
	case engine.PlayerWin:
		s.net[ai]--
	}
}

func (ProbShaper) Next(ctx *Context, st *State) Decision {
	s := StateOf[probShaperState](st)

	var dominant []engine.Move
	for _, m := range engine.Moves {
		if s.net[m] >= dominantNetWins {
			dominant = append(dominant, m)
		}
	}
	if len(dominant) > 0 {
		return ctx.play(engine.Pick(ctx.Rand, dominant))
	}

	var p [3]float64
	total := 0.0
	for _, m := range engine.Moves {
		p[m] = shapeProbability(s.net[m])
		total += p[m]
	}
	if total <= 0 {
		return ctx.play(ctx.random())
	}
	for i := range p {
		p[i] /= total
	}

	r := ctx.Rand.Float64()
	switch {
	case r < p[engine.Rock]:
		return ctx.play(engine.Rock)
	case r < p[engine.Rock]+p[engine.Paper]:
		return ctx.play(engine.Paper)
	case p[engine.Scissors] > 0:
		return ctx.play(engine.Scissors)
	}

	// Rounding left r past rock+paper with scissors excluded.
	var live []engine.Move
	for _, m := range []engine.Move{engine.Rock, engine.Paper} {
		if p[m] > 0 {
			live = append(live, m)
		}
	}
	if len(live) == 0 {
		return ctx.play(ctx.random())
	}
	return ctx.play(engine.Pick(ctx.Rand, live))
}

// shapeProbability is the base weight for a move with the given net wins.
func shapeProbability(net int) float64 {
	switch {
	case net == 3:
		return 4.0 / 5
	case net == 2:
		return 3.0 / 4
	case net == 1:
		return 1.0 / 2
	case net == 0:
		return 1.0 / 3
	case net == -1:
		return 1.0 / 4
	case net == -2:
		return 1.0 / 6
	case net == -3:
		return 1.0 / 10
	case net <= -4:
		return 0
	}
	return 1.0 / 3
}
