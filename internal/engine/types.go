package engine

import (
	"fmt"
	"strings"
)

// Move is one of the three hand shapes.
type Move uint8

const (
	Rock Move = iota
	Paper
	Scissors
)

// Moves lists every move in canonical order.
var Moves = [...]Move{Rock, Paper, Scissors}

var moveNames = [...]string{"rock", "paper", "scissors"}

// Valid reports whether m is one of Rock, Paper or Scissors.
func (m Move) Valid() bool {
	return m <= Scissors
}

func (m Move) String() string {
	if !m.Valid() {
		return fmt.Sprintf("move(%d)", uint8(m))
	}
	return moveNames[m]
}

// MarshalText encodes the move by name so JSON payloads read "rock" rather than 0.
func (m Move) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("invalid move %d", uint8(m))
	}
	return []byte(moveNames[m]), nil
}

// UnmarshalText accepts the names produced by MarshalText.
func (m *Move) UnmarshalText(text []byte) error {
	parsed, err := ParseMove(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// ParseMove parses a move name. Single-letter shortcuts (r, p, s) are accepted.
func ParseMove(s string) (Move, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "rock", "r":
		return Rock, nil
	case "paper", "p":
		return Paper, nil
	case "scissors", "s":
		return Scissors, nil
	}
	return 0, fmt.Errorf("unknown move %q", s)
}

// Counter returns the move that beats m under the canonical rules.
func Counter(m Move) Move {
	return (m + 1) % 3
}

// Weakness returns the move that m beats under the canonical rules.
func Weakness(m Move) Move {
	return (m + 2) % 3
}

// Result is the outcome of a round from the player's point of view.
type Result string

const (
	PlayerWin Result = "player"
	AIWin     Result = "ai"
	Tie       Result = "tie"
)

// RuleKey names one of the three beats-relations that MatchupRules can invert.
type RuleKey string

const (
	NoRule                 RuleKey = ""
	RuleScissorsBeatsRock  RuleKey = "scissorsBeatsRock"
	RuleRockBeatsPaper     RuleKey = "rockBeatsPaper"
	RulePaperBeatsScissors RuleKey = "paperBeatsScissors"
)

// RuleKeys lists the invertible relations in a fixed order.
var RuleKeys = [...]RuleKey{RuleScissorsBeatsRock, RuleRockBeatsPaper, RulePaperBeatsScissors}

// ruleByLoser maps the canonical loser of a pair to the relation covering that pair.
var ruleByLoser = [...]RuleKey{
	Rock:     RuleRockBeatsPaper,
	Paper:    RulePaperBeatsScissors,
	Scissors: RuleScissorsBeatsRock,
}

// MatchupRules flips canonical relations. A set flag means the canonical
// loser of that pair now wins it.
type MatchupRules struct {
	ScissorsBeatsRock  bool `json:"scissorsBeatsRock"`
	RockBeatsPaper     bool `json:"rockBeatsPaper"`
	PaperBeatsScissors bool `json:"paperBeatsScissors"`
}

// Inverted reports whether the relation k is currently flipped.
func (r MatchupRules) Inverted(k RuleKey) bool {
	switch k {
	case RuleScissorsBeatsRock:
		return r.ScissorsBeatsRock
	case RuleRockBeatsPaper:
		return r.RockBeatsPaper
	case RulePaperBeatsScissors:
		return r.PaperBeatsScissors
	}
	return false
}

// Toggle flips the relation k.
func (r *MatchupRules) Toggle(k RuleKey) {
	switch k {
	case RuleScissorsBeatsRock:
		r.ScissorsBeatsRock = !r.ScissorsBeatsRock
	case RuleRockBeatsPaper:
		r.RockBeatsPaper = !r.RockBeatsPaper
	case RulePaperBeatsScissors:
		r.PaperBeatsScissors = !r.PaperBeatsScissors
	}
}

// Outcome decides a round. A nil rules value means the canonical cycle.
func Outcome(player, ai Move, rules *MatchupRules) Result {
	if player == ai {
		return Tie
	}

	playerWins := Counter(ai) == player
	if rules != nil {
		loser := ai
		if !playerWins {
			loser = player
		}
		if rules.Inverted(ruleByLoser[loser]) {
			playerWins = !playerWins
		}
	}

	if playerWins {
		return PlayerWin
	}
	return AIWin
}

// Tally is the running score of a level.
type Tally struct {
	Wins   int `json:"wins"`
	Ties   int `json:"ties"`
	Losses int `json:"losses"`
}

// Add counts one result.
func (t *Tally) Add(r Result) {
	switch r {
	case PlayerWin:
		t.Wins++
	case AIWin:
		t.Losses++
	default:
		t.Ties++
	}
}

// Rounds returns the number of rounds counted.
func (t Tally) Rounds() int {
	return t.Wins + t.Ties + t.Losses
}

// RoundRecord is the immutable record of one played round. Taunt is display-only.
type RoundRecord struct {
	Round   int           `json:"round"`
	Player  Move          `json:"player"`
	AI      Move          `json:"ai"`
	Result  Result        `json:"result"`
	Rules   *MatchupRules `json:"rules,omitempty"`
	Toggled RuleKey       `json:"toggled,omitempty"`
	Taunt   string        `json:"taunt,omitempty"`
}
