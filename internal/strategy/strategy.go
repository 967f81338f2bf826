package strategy

import (
	"sort"
	"time"

	"github.com/MJE43/rps-gauntlet/internal/engine"
)

// Spec describes a strategy for listings and the Boss display.
type Spec struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Strategy picks the AI move for the next round. Next may mutate st, which
// belongs to this strategy alone for the lifetime of one level attempt.
type Strategy interface {
	Spec() Spec
	Next(ctx *Context, st *State) Decision
}

// Observer is implemented by strategies that keep per-move counters fed by
// round results. The round engine calls Observe after every round.
type Observer interface {
	Observe(st *State, ai engine.Move, result engine.Result)
}

// Initializer is implemented by strategies whose fresh state must be written
// explicitly rather than left absent.
type Initializer interface {
	Init(st *State)
}

// Deadliner is implemented by strategies that impose a per-round time budget.
// ok is false when no budget applies to the round after played rounds.
type Deadliner interface {
	RoundBudget(totalRounds, played int) (budget time.Duration, ok bool)
}

// Decision is the output of one strategy call.
type Decision struct {
	Move engine.Move
	// Rules, when set, decide this round instead of the canonical cycle.
	Rules   *engine.MatchupRules
	Toggled engine.RuleKey
	// Taunt is display-only.
	Taunt string
}

// GameLog maps a level id to the AI moves of its most recent completed playthrough.
type GameLog map[string][]engine.Move

// Context is the read-only view of the level a strategy is deciding for.
// Histories hold completed rounds only; the round being decided is not in them.
type Context struct {
	LevelID     string
	TotalRounds int
	Player      []engine.Move
	AI          []engine.Move
	Rounds      []engine.RoundRecord
	Log         GameLog
	Rand        engine.Rand
}

// Played returns the number of completed rounds.
func (c *Context) Played() int {
	return len(c.Player)
}

func (c *Context) lastPlayer(back int) (engine.Move, bool) {
	if len(c.Player) < back {
		return 0, false
	}
	return c.Player[len(c.Player)-back], true
}

func (c *Context) lastAI() (engine.Move, bool) {
	if len(c.AI) == 0 {
		return 0, false
	}
	return c.AI[len(c.AI)-1], true
}

func (c *Context) random() engine.Move {
	return engine.RandomMove(c.Rand)
}

func (c *Context) play(m engine.Move) Decision {
	return Decision{Move: m}
}

// State is an opaque bag of private strategy data. Each strategy stores its
// own unexported type, so one strategy can never read another's fields.
type State struct {
	v any
}

// StateOf returns the typed value held in st, replacing anything of another
// type with a zero T.
func StateOf[T any](st *State) *T {
	if p, ok := st.v.(*T); ok {
		return p
	}
	p := new(T)
	st.v = p
	return p
}

// Empty reports whether nothing has been stored yet.
func (s *State) Empty() bool {
	return s == nil || s.v == nil
}

// Reset drops everything stored in s.
func (s *State) Reset() {
	s.v = nil
}

// Namespace holds one State per strategy id.
type Namespace map[string]*State

// Get returns the state for id, creating it on first use.
func (n Namespace) Get(id string) *State {
	st, ok := n[id]
	if !ok {
		st = &State{}
		n[id] = st
	}
	return st
}

// Registry is an ordered set of strategies keyed by id.
type Registry struct {
	order []string
	byID  map[string]Strategy
}

// NewRegistry registers the given strategies in order.
func NewRegistry(strategies ...Strategy) *Registry {
	r := &Registry{byID: make(map[string]Strategy, len(strategies))}
	for _, s := range strategies {
		r.Register(s)
	}
	return r
}

// Register adds s, replacing any strategy with the same id in place.
func (r *Registry) Register(s Strategy) {
	id := s.Spec().ID
	if _, exists := r.byID[id]; !exists {
		r.order = append(r.order, id)
	}
	r.byID[id] = s
}

// Lookup retrieves a strategy by id.
func (r *Registry) Lookup(id string) (Strategy, bool) {
	s, ok := r.byID[id]
	return s, ok
}

// IDs returns the registered ids in registration order.
func (r *Registry) IDs() []string {
	return append([]string(nil), r.order...)
}

// Specs returns the metadata of every registered strategy in registration order.
func (r *Registry) Specs() []Spec {
	specs := make([]Spec, 0, len(r.order))
	for _, id := range r.order {
		specs = append(specs, r.byID[id].Spec())
	}
	return specs
}

// Without returns a copy of r minus the given ids.
func (r *Registry) Without(ids ...string) *Registry {
	skip := make(map[string]bool, len(ids))
	for _, id := range ids {
		skip[id] = true
	}
	out := NewRegistry()
	for _, id := range r.order {
		if !skip[id] {
			out.Register(r.byID[id])
		}
	}
	return out
}

// Len returns the number of registered strategies.
func (r *Registry) Len() int {
	return len(r.order)
}

// Default returns the full roster, excluding the Boss which lives in its own package.
func Default() *Registry {
	return NewRegistry(
		Fixed{},
		Pair{},
		ShortCycle{},
		Streak{},
		LongCycle{},
		Mirror{},
		DirectCounter{},
		SelfAvoider{},
		DoubleAvoider{},
		RecallCounter{},
		KStep{},
		Majority{},
		WinMax{},
		CycleBreaker{},
		ProbShaper{},
		Amnesiac{},
		RuleInverter{},
		Tamper{},
		Replay{},
	)
}

func sortedKeys(log GameLog) []string {
	keys := make([]string, 0, len(log))
	for k := range log {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
