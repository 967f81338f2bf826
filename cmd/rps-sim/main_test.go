package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/MJE43/rps-gauntlet/internal/catalog"
	"github.com/MJE43/rps-gauntlet/internal/engine"
	"github.com/MJE43/rps-gauntlet/internal/game"
	"github.com/MJE43/rps-gauntlet/internal/session"
)

func movePtr(m engine.Move) *engine.Move { return &m }

func TestPolicies(t *testing.T) {
	rng := engine.NewMathRand(7)

	tests := []struct {
		name    string
		observe []*engine.Move
		want    []engine.Move
	}{
		{"rock", nil, []engine.Move{engine.Rock, engine.Rock}},
		{"scissors", nil, []engine.Move{engine.Scissors}},
		{"cycle", nil, []engine.Move{engine.Rock, engine.Paper, engine.Scissors, engine.Rock}},
		{"beat-last", []*engine.Move{movePtr(engine.Rock)}, []engine.Move{engine.Paper}},
		{"beat-last", []*engine.Move{movePtr(engine.Rock), nil}, []engine.Move{engine.Paper}},
		{"beat-frequent", []*engine.Move{
			movePtr(engine.Scissors), movePtr(engine.Paper), movePtr(engine.Scissors),
		}, []engine.Move{engine.Rock}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := newPlayer(tt.name, rng)
			require.NoError(t, err)
			for _, ai := range tt.observe {
				p.Observe(ai)
			}
			for i, want := range tt.want {
				require.Equal(t, want, p.Next(), "move %d", i)
			}
		})
	}
}

func TestRandomPolicyIsValid(t *testing.T) {
	p, err := newPlayer("random", engine.NewMathRand(1))
	require.NoError(t, err)
	for i := 0; i < 50; i++ {
		require.True(t, p.Next().Valid())
	}
}

func TestUnknownPolicy(t *testing.T) {
	_, err := newPlayer("psychic", engine.NewMathRand(1))
	require.ErrorContains(t, err, "unknown policy")
}

func TestSimulateBeatsFixedOpponent(t *testing.T) {
	cat, err := catalog.New([]catalog.Level{
		{ID: "a", Name: "First", TotalRounds: 3, StrategyID: "fixed", WinCondition: "wins >= 2"},
		{ID: "b", Name: "Second", TotalRounds: 2, StrategyID: "mirror", WinCondition: "wins >= 1"},
	})
	require.NoError(t, err)

	ctx := context.Background()
	svc, err := game.NewService(ctx, cat, nil,
		game.WithSessionOptions(session.WithSeeds("sim_server", "sim_client", 3)))
	require.NoError(t, err)
	t.Cleanup(svc.Close)

	var out bytes.Buffer
	p, err := newPlayer("beat-last", engine.NewMathRand(1))
	require.NoError(t, err)

	c, err := simulate(ctx, svc, "a", p, &out, true)
	require.NoError(t, err)
	require.True(t, c.Won)
	require.GreaterOrEqual(t, c.Tally.Wins, 2)
	require.Equal(t, "b", c.NextUnlocked)
	require.Equal(t, "sim_server", c.ServerSeed)
	require.Contains(t, out.String(), "#3")

	out.Reset()
	printSummary(&out, svc, c)
	require.Contains(t, out.String(), "a First [fixed]")
	require.Contains(t, out.String(), "WON")
	require.Contains(t, out.String(), "unlocked b")
}

func TestSimulateLockedLevel(t *testing.T) {
	cat, err := catalog.New([]catalog.Level{
		{ID: "a", Name: "First", TotalRounds: 1, StrategyID: "fixed", WinCondition: "wins >= 1"},
		{ID: "b", Name: "Second", TotalRounds: 1, StrategyID: "fixed", WinCondition: "wins >= 1"},
	})
	require.NoError(t, err)

	svc, err := game.NewService(context.Background(), cat, nil)
	require.NoError(t, err)
	t.Cleanup(svc.Close)

	p, _ := newPlayer("rock", nil)
	_, err = simulate(context.Background(), svc, "b", p, &bytes.Buffer{}, false)
	require.ErrorIs(t, err, game.ErrLevelLocked)
}

func TestRunBatch(t *testing.T) {
	cat, err := catalog.New([]catalog.Level{
		{ID: "a", Name: "First", TotalRounds: 3, StrategyID: "fixed", WinCondition: "wins >= 2"},
		{ID: "b", Name: "Second", TotalRounds: 2, StrategyID: "mirror", WinCondition: "wins >= 1"},
	})
	require.NoError(t, err)

	cfg := batchConfig{
		levelID:    "b",
		policy:     "beat-last",
		runs:       8,
		parallel:   3,
		playerSeed: 11,
		serverSeed: "batch_server",
		clientSeed: "batch_client",
	}
	res, err := runBatch(context.Background(), cat, cfg, zerolog.Nop())
	require.NoError(t, err)
	require.Equal(t, 8, res.Runs)
	require.Equal(t, 16, res.Rounds)
	require.LessOrEqual(t, res.Wins, 8)

	var out bytes.Buffer
	printBatch(&out, cfg, res)
	require.Contains(t, out.String(), "beat-last vs b")
	require.Contains(t, out.String(), "of 8 runs")
}

func TestRunBatchRejectsBadInput(t *testing.T) {
	cat, err := catalog.Default()
	require.NoError(t, err)

	_, err = runBatch(context.Background(), cat, batchConfig{levelID: "9-9", policy: "rock", runs: 1}, zerolog.Nop())
	require.ErrorIs(t, err, game.ErrUnknownLevel)

	_, err = runBatch(context.Background(), cat, batchConfig{levelID: "1-1", policy: "psychic", runs: 1}, zerolog.Nop())
	require.ErrorContains(t, err, "unknown policy")
}

func TestBatchWinRate(t *testing.T) {
	require.Equal(t, "0.00", batchResult{}.WinRate().StringFixed(2))
	require.Equal(t, "66.67", batchResult{Runs: 3, Wins: 2}.WinRate().StringFixed(2))
}
