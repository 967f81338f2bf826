package strategy

import "github.com/MJE43/rps-gauntlet/internal/engine"

// RuleInverter plays Rock, Paper, Scissors in order and flips one matchup
// relation every round, never the one flipped the round before.
type RuleInverter struct{}

type ruleInverterState struct {
	rules  engine.MatchupRules
	last   engine.RuleKey
	cursor int
}

var inverterCycle = [...]engine.Move{engine.Rock, engine.Paper, engine.Scissors}

func (RuleInverter) Spec() Spec {
	return Spec{ID: "rule-inverter", Name: "Rule Shifter", Description: "Common sense does not necessarily apply here."}
}

func (RuleInverter) Next(ctx *Context, st *State) Decision {
	s := StateOf[ruleInverterState](st)

	candidates := make([]engine.RuleKey, 0, len(engine.RuleKeys))
	for _, k := range engine.RuleKeys {
		if k != s.last {
			candidates = append(candidates, k)
		}
	}
	key := engine.Pick(ctx.Rand, candidates)
	s.rules.Toggle(key)
	s.last = key

	move := inverterCycle[s.cursor]
	s.cursor = (s.cursor + 1) % len(inverterCycle)

	rules := s.rules
	return Decision{Move: move, Rules: &rules, Toggled: key}
}

// Replay loops over the AI moves of another level's last completed
// playthrough, or over a random 5 to 10 move cycle when there is none.
type Replay struct{}

func (Replay) Spec() Spec {
	return Spec{ID: "replay", Name: "History Echo", Description: "It feels like it has seen your tricks before."}
}

func (Replay) Next(ctx *Context, st *State) Decision {
	s := StateOf[cycleState](st)
	if s.cycle == nil {
		var eligible []string
		for _, id := range sortedKeys(ctx.Log) {
			if id != ctx.LevelID && len(ctx.Log[id]) > 0 {
				eligible = append(eligible, id)
			}
		}
		if len(eligible) > 0 {
			s.cycle = append([]engine.Move(nil), ctx.Log[engine.Pick(ctx.Rand, eligible)]...)
		} else {
			s.cycle = make([]engine.Move, engine.IntRange(ctx.Rand, 5, 10))
			for i := range s.cycle {
				s.cycle[i] = ctx.random()
			}
		}
	}
	return ctx.play(s.advance())
}
