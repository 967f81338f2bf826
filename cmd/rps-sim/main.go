// Command rps-sim plays gauntlet levels headlessly with a scripted player and
// a seeded RNG, then prints how each level went.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/MJE43/rps-gauntlet/internal/catalog"
	"github.com/MJE43/rps-gauntlet/internal/engine"
	"github.com/MJE43/rps-gauntlet/internal/game"
	"github.com/MJE43/rps-gauntlet/internal/scripting"
	"github.com/MJE43/rps-gauntlet/internal/session"
)

var (
	levelID    = flag.String("level", "1-1", "Level id to play")
	all        = flag.Bool("all", false, "Play every level in order, stopping at the first loss")
	unlock     = flag.Bool("unlock", false, "Unlock every level before playing")
	policy     = flag.String("policy", "random", "Player policy: "+strings.Join(policyNames(), ", "))
	playerSeed = flag.Int64("player-seed", 0, "Seed for the player policy (0 = current time)")
	serverSeed = flag.String("server-seed", "", "Server seed for the AI's RNG (default: random)")
	clientSeed = flag.String("client-seed", "sim", "Client seed for the AI's RNG")
	nonce      = flag.Uint64("nonce", 0, "Nonce for the AI's RNG")
	levelsFile = flag.String("levels", "", "Load the level catalog from this JSON file")
	verbose    = flag.Bool("v", false, "Print every round and debug logs")
	runs       = flag.Int("runs", 1, "Play -level this many times and report the win rate")
	parallel   = flag.Int("parallel", runtime.NumCPU(), "Concurrent runs when -runs > 1")
)

func main() {
	flag.Parse()

	if *runs <= 0 || *parallel <= 0 {
		fmt.Fprintln(os.Stderr, "rps-sim: -runs and -parallel must be positive")
		os.Exit(2)
	}

	if err := run(context.Background(), os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "rps-sim: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, out io.Writer) error {
	lvl := zerolog.WarnLevel
	if *verbose {
		lvl = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(lvl).With().Timestamp().Logger()

	cat, err := loadCatalog(*levelsFile)
	if err != nil {
		return err
	}

	seed := *playerSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if *runs > 1 {
		cfg := batchConfig{
			levelID:    *levelID,
			policy:     *policy,
			runs:       *runs,
			parallel:   *parallel,
			playerSeed: seed,
			serverSeed: *serverSeed,
			clientSeed: *clientSeed,
			nonce:      *nonce,
		}
		res, err := runBatch(ctx, cat, cfg, logger)
		if err != nil {
			return err
		}
		printBatch(out, cfg, res)
		return nil
	}

	p, err := newPlayer(*policy, engine.NewMathRand(seed))
	if err != nil {
		return err
	}

	var sessOpts []session.Option
	if *serverSeed != "" {
		sessOpts = append(sessOpts, session.WithSeeds(*serverSeed, *clientSeed, *nonce))
	}
	svc, err := game.NewService(ctx, cat, nil,
		game.WithLogger(logger),
		game.WithSessionOptions(sessOpts...),
	)
	if err != nil {
		return err
	}
	defer svc.Close()

	if *unlock {
		svc.UnlockAll(ctx)
	}

	ids := []string{*levelID}
	if *all {
		ids = ids[:0]
		for _, l := range cat.Levels() {
			ids = append(ids, l.ID)
		}
	}

	fmt.Fprintf(out, "policy=%s player-seed=%d levels=%d\n\n", *policy, seed, len(ids))
	for _, id := range ids {
		c, err := simulate(ctx, svc, id, p, out, *verbose)
		if err != nil {
			return err
		}
		printSummary(out, svc, c)
		if *all && !c.Won && !*unlock {
			fmt.Fprintf(out, "\nstopped: %s was lost\n", id)
			break
		}
	}
	return nil
}

func loadCatalog(path string) (*catalog.Catalog, error) {
	opt := scripting.WithTimeout(time.Second)
	if path == "" {
		return catalog.Default(opt)
	}
	return catalog.LoadFile(path, opt)
}

// simulate plays one level to completion. The player observes every AI move
// the level reveals.
func simulate(ctx context.Context, svc *game.Service, id string, p player, out io.Writer, trace bool) (*session.Completion, error) {
	snap, err := svc.StartLevel(ctx, id)
	if err != nil {
		return nil, err
	}

	for {
		ev, err := svc.Submit(ctx, snap.ID, p.Next())
		if err != nil {
			return nil, fmt.Errorf("level %s round %d: %w", id, snap.Round, err)
		}
		p.Observe(ev.AI)
		if trace {
			printRound(out, ev)
		}
		if ev.Completion != nil {
			return ev.Completion, nil
		}
		snap.Round = ev.Round
	}
}

func printRound(out io.Writer, ev *session.RoundEvent) {
	if ev.AI == nil {
		fmt.Fprintf(out, "  #%-3d %-8s vs ?\n", ev.Round, ev.Player)
		return
	}
	fmt.Fprintf(out, "  #%-3d %-8s vs %-8s %s\n", ev.Round, ev.Player, *ev.AI, ev.Result)
}

func printSummary(out io.Writer, svc *game.Service, c *session.Completion) {
	name := c.LevelID
	if l, ok := svc.Catalog().Level(c.LevelID); ok {
		name = fmt.Sprintf("%s %s [%s]", l.ID, l.Name, l.StrategyID)
	}
	outcome := "LOST"
	if c.Won {
		outcome = "WON"
	}
	fmt.Fprintf(out, "%-40s %-4s W%d T%d L%d in %s\n",
		name, outcome, c.Tally.Wins, c.Tally.Ties, c.Tally.Losses, c.ElapsedText)
	if c.ConditionError != "" {
		fmt.Fprintf(out, "  condition error: %s\n", c.ConditionError)
	}
	if c.NextUnlocked != "" {
		fmt.Fprintf(out, "  unlocked %s\n", c.NextUnlocked)
	}
	if c.ServerSeed != "" {
		fmt.Fprintf(out, "  server seed %s (hash %s)\n", c.ServerSeed, c.SeedHash)
	}
}
