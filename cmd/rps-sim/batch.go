package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/MJE43/rps-gauntlet/internal/catalog"
	"github.com/MJE43/rps-gauntlet/internal/engine"
	"github.com/MJE43/rps-gauntlet/internal/game"
	"github.com/MJE43/rps-gauntlet/internal/session"
)

type batchConfig struct {
	levelID    string
	policy     string
	runs       int
	parallel   int
	playerSeed int64
	serverSeed string
	clientSeed string
	nonce      uint64
}

type batchResult struct {
	Runs    int
	Wins    int
	Rounds  int
	Elapsed time.Duration
}

// WinRate is the percentage of won runs, to two places.
func (r batchResult) WinRate() decimal.Decimal {
	if r.Runs == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(r.Wins)).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(int64(r.Runs))).
		Round(2)
}

// runBatch plays one level cfg.runs times, each run in its own in-memory
// service with every level unlocked. Run i uses nonce+i and playerSeed+i.
func runBatch(ctx context.Context, cat *catalog.Catalog, cfg batchConfig, logger zerolog.Logger) (batchResult, error) {
	if _, ok := cat.Level(cfg.levelID); !ok {
		return batchResult{}, fmt.Errorf("%w: %s", game.ErrUnknownLevel, cfg.levelID)
	}
	if _, err := newPlayer(cfg.policy, nil); err != nil {
		return batchResult{}, err
	}

	start := time.Now()
	completions := make([]*session.Completion, cfg.runs)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(cfg.parallel, 1))
	for i := range cfg.runs {
		g.Go(func() error {
			var opts []session.Option
			if cfg.serverSeed != "" {
				opts = append(opts, session.WithSeeds(cfg.serverSeed, cfg.clientSeed, cfg.nonce+uint64(i)))
			}
			svc, err := game.NewService(ctx, cat, nil,
				game.WithLogger(logger),
				game.WithSessionOptions(opts...),
			)
			if err != nil {
				return err
			}
			defer svc.Close()
			svc.UnlockAll(ctx)

			p, err := newPlayer(cfg.policy, engine.NewMathRand(cfg.playerSeed+int64(i)))
			if err != nil {
				return err
			}
			c, err := simulate(ctx, svc, cfg.levelID, p, io.Discard, false)
			if err != nil {
				return fmt.Errorf("run %d: %w", i, err)
			}
			completions[i] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return batchResult{}, err
	}

	res := batchResult{Runs: cfg.runs, Elapsed: time.Since(start)}
	for _, c := range completions {
		if c.Won {
			res.Wins++
		}
		res.Rounds += c.Tally.Rounds()
	}
	return res, nil
}

func printBatch(out io.Writer, cfg batchConfig, res batchResult) {
	fmt.Fprintf(out, "%s vs %s: won %s of %s runs (%s%%), %s rounds in %s\n",
		cfg.policy, cfg.levelID,
		humanize.Comma(int64(res.Wins)), humanize.Comma(int64(res.Runs)),
		res.WinRate().StringFixed(2),
		humanize.Comma(int64(res.Rounds)),
		res.Elapsed.Round(time.Millisecond))
}
