package main

import (
	"fmt"
	"sort"

	"github.com/MJE43/rps-gauntlet/internal/engine"
)

// player picks the simulated human's moves. Observe receives the AI's move,
// or nil when the level hides it.
type player interface {
	Next() engine.Move
	Observe(ai *engine.Move)
}

var policies = map[string]func(engine.Rand) player{
	"random":        func(r engine.Rand) player { return &randomPlayer{rng: r} },
	"rock":          func(engine.Rand) player { return fixedPlayer(engine.Rock) },
	"paper":         func(engine.Rand) player { return fixedPlayer(engine.Paper) },
	"scissors":      func(engine.Rand) player { return fixedPlayer(engine.Scissors) },
	"cycle":         func(engine.Rand) player { return &cyclePlayer{} },
	"beat-last":     func(r engine.Rand) player { return &beatLastPlayer{rng: r} },
	"beat-frequent": func(r engine.Rand) player { return &beatFrequentPlayer{rng: r} },
}

func policyNames() []string {
	names := make([]string, 0, len(policies))
	for name := range policies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func newPlayer(name string, r engine.Rand) (player, error) {
	mk, ok := policies[name]
	if !ok {
		return nil, fmt.Errorf("unknown policy %q (have %v)", name, policyNames())
	}
	return mk(r), nil
}

type randomPlayer struct{ rng engine.Rand }

func (p *randomPlayer) Next() engine.Move    { return engine.RandomMove(p.rng) }
func (p *randomPlayer) Observe(*engine.Move) {}

type fixedPlayer engine.Move

func (p fixedPlayer) Next() engine.Move    { return engine.Move(p) }
func (p fixedPlayer) Observe(*engine.Move) {}

type cyclePlayer struct{ n int }

func (p *cyclePlayer) Next() engine.Move {
	m := engine.Moves[p.n%len(engine.Moves)]
	p.n++
	return m
}
func (p *cyclePlayer) Observe(*engine.Move) {}

// beatLastPlayer throws the counter to the AI's previous move, random until
// one is seen.
type beatLastPlayer struct {
	rng  engine.Rand
	last *engine.Move
}

func (p *beatLastPlayer) Next() engine.Move {
	if p.last == nil {
		return engine.RandomMove(p.rng)
	}
	return engine.Counter(*p.last)
}

func (p *beatLastPlayer) Observe(ai *engine.Move) {
	if ai != nil {
		m := *ai
		p.last = &m
	}
}

// beatFrequentPlayer counters the AI's most common visible move. Ties break
// in canonical move order.
type beatFrequentPlayer struct {
	rng    engine.Rand
	counts [3]int
	seen   int
}

func (p *beatFrequentPlayer) Next() engine.Move {
	if p.seen == 0 {
		return engine.RandomMove(p.rng)
	}
	best := engine.Rock
	for _, m := range engine.Moves {
		if p.counts[m] > p.counts[best] {
			best = m
		}
	}
	return engine.Counter(best)
}

func (p *beatFrequentPlayer) Observe(ai *engine.Move) {
	if ai != nil {
		p.counts[*ai]++
		p.seen++
	}
}
