// Package catalog holds the ordered list of levels.
package catalog

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/MJE43/rps-gauntlet/internal/engine"
	"github.com/MJE43/rps-gauntlet/internal/scripting"
)

//go:embed levels.json
var builtinLevels []byte

// Flag toggles a level-specific behaviour.
type Flag string

const (
	// HideRoundInfo redacts the AI move, result and score while the level is running.
	HideRoundInfo Flag = "hide-round-info"
	// RuleDisplay shows the matchup rules applied to each round.
	RuleDisplay Flag = "rule-display"
	// TamperHistory lets the history view show fabricated rounds.
	TamperHistory Flag = "tamper-history"
	// BossTimer arms per-round time budgets.
	BossTimer Flag = "boss-timer"
)

var knownFlags = map[Flag]bool{
	HideRoundInfo: true,
	RuleDisplay:   true,
	TamperHistory: true,
	BossTimer:     true,
}

var (
	ErrNoLevels     = errors.New("catalog has no levels")
	ErrDuplicateID  = errors.New("duplicate level id")
	ErrInvalidLevel = errors.New("invalid level")
)

// Level is immutable once loaded.
type Level struct {
	ID           string `json:"id"`
	Chapter      string `json:"chapter"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	Hint         string `json:"hint"`
	TotalRounds  int    `json:"total_rounds"`
	WinCondition string `json:"win_condition"`
	WinText      string `json:"win_text"`
	StrategyID   string `json:"strategy"`
	Flags        []Flag `json:"flags,omitempty"`

	condition *scripting.Condition
}

// Has reports whether the level carries flag f.
func (l *Level) Has(f Flag) bool {
	for _, x := range l.Flags {
		if x == f {
			return true
		}
	}
	return false
}

// Won evaluates the win condition against a final tally.
func (l *Level) Won(t engine.Tally) (bool, error) {
	return l.condition.Eval(t, l.TotalRounds)
}

// Catalog is an ordered, read-only list of levels.
type Catalog struct {
	levels []*Level
	index  map[string]int
}

// Default returns the built-in levels.
func Default(opts ...scripting.Option) (*Catalog, error) {
	return Parse(builtinLevels, opts...)
}

// LoadFile reads a JSON array of levels from path.
func LoadFile(path string, opts ...scripting.Option) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read levels file: %w", err)
	}
	return Parse(data, opts...)
}

// Parse decodes and validates a JSON array of levels.
func Parse(data []byte, opts ...scripting.Option) (*Catalog, error) {
	var levels []Level
	if err := json.Unmarshal(data, &levels); err != nil {
		return nil, fmt.Errorf("decode levels: %w", err)
	}
	return New(levels, opts...)
}

// New validates levels and compiles their win conditions.
func New(levels []Level, opts ...scripting.Option) (*Catalog, error) {
	if len(levels) == 0 {
		return nil, ErrNoLevels
	}

	c := &Catalog{index: make(map[string]int, len(levels))}
	for i := range levels {
		l := levels[i]
		if err := validate(&l); err != nil {
			return nil, err
		}
		if _, dup := c.index[l.ID]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateID, l.ID)
		}
		cond, err := scripting.Compile(l.WinCondition, opts...)
		if err != nil {
			return nil, fmt.Errorf("level %s: %w", l.ID, err)
		}
		l.condition = cond
		l.Flags = append([]Flag(nil), l.Flags...)
		c.index[l.ID] = len(c.levels)
		c.levels = append(c.levels, &l)
	}
	return c, nil
}

func validate(l *Level) error {
	switch {
	case l.ID == "":
		return fmt.Errorf("%w: missing id", ErrInvalidLevel)
	case l.TotalRounds <= 0:
		return fmt.Errorf("%w: %s has %d rounds", ErrInvalidLevel, l.ID, l.TotalRounds)
	case l.StrategyID == "":
		return fmt.Errorf("%w: %s has no strategy", ErrInvalidLevel, l.ID)
	}
	for _, f := range l.Flags {
		if !knownFlags[f] {
			return fmt.Errorf("%w: %s has unknown flag %q", ErrInvalidLevel, l.ID, f)
		}
	}
	return nil
}

// Levels returns the levels in play order.
func (c *Catalog) Levels() []*Level {
	return append([]*Level(nil), c.levels...)
}

// Len returns the number of levels.
func (c *Catalog) Len() int {
	return len(c.levels)
}

// Level looks up a level by id.
func (c *Catalog) Level(id string) (*Level, bool) {
	i, ok := c.index[id]
	if !ok {
		return nil, false
	}
	return c.levels[i], true
}

// Index returns the play-order position of id, or -1.
func (c *Catalog) Index(id string) int {
	i, ok := c.index[id]
	if !ok {
		return -1
	}
	return i
}

// Next returns the level after id, if there is one.
func (c *Catalog) Next(id string) (*Level, bool) {
	i, ok := c.index[id]
	if !ok || i+1 >= len(c.levels) {
		return nil, false
	}
	return c.levels[i+1], true
}
