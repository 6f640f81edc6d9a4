// Package automatic plays unattended games so the engine can be
// benchmarked: N games to completion, each driven by its own solver.
// Games are independent, so they parallelize at whole-game granularity;
// the shared lookup tables are read-only and need no locking.
package automatic

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/aybabtme/uniplot/histogram"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"
	"lukechampine.com/frand"

	"github.com/nibbler2048/nibbler/bitboard"
	"github.com/nibbler2048/nibbler/game"
	"github.com/nibbler2048/nibbler/search"
	"github.com/nibbler2048/nibbler/tables"
)

// GameResult is what one finished game reports back.
type GameResult struct {
	Score   float64
	MaxRank int
	Moves   int
}

// GameRunner owns a batch of self-play games.
type GameRunner struct {
	tables   *tables.Tables
	numGames int
	threads  int

	// seed 0 means every game deals randomly; otherwise game i plays
	// with a generator derived from seed+i, so a whole batch replays
	// bit-for-bit regardless of scheduling order.
	seed uint64

	// depthLimit 0 leaves the per-board adaptive formula in charge.
	depthLimit int

	mu      sync.Mutex
	results []GameResult
}

func NewGameRunner(t *tables.Tables, numGames, threads int) *GameRunner {
	if threads < 1 {
		threads = 1
	}
	return &GameRunner{tables: t, numGames: numGames, threads: threads}
}

// SetSeed makes the batch reproducible; 0 restores random dealing.
func (r *GameRunner) SetSeed(seed uint64) {
	r.seed = seed
}

// SetDepthLimit pins every solver to a fixed depth limit; 0 restores
// the adaptive formula.
func (r *GameRunner) SetDepthLimit(limit int) {
	r.depthLimit = limit
}

// playOne runs a single game to completion with a fresh solver.
func (r *GameRunner) playOne(ctx context.Context, gameIdx int) (GameResult, error) {
	var rng *frand.RNG
	if r.seed != 0 {
		rng = game.RNGFromSeed(r.seed + uint64(gameIdx))
	}
	g := game.NewGame(r.tables, rng)
	s := search.NewSolver(r.tables)
	if r.depthLimit > 0 {
		s.SetDepthLimit(r.depthLimit)
	}
	for {
		select {
		case <-ctx.Done():
			return GameResult{}, ctx.Err()
		default:
		}
		move := s.FindBestMove(g.Board())
		if move == bitboard.NoMove {
			break
		}
		if !g.PlayMove(move) {
			// The solver only proposes board-changing moves; treat
			// anything else as a bug rather than spinning.
			return GameResult{}, fmt.Errorf("solver proposed illegal move %v", move)
		}
	}
	return GameResult{
		Score:   float64(g.Score()),
		MaxRank: g.MaxRank(),
		Moves:   g.Moves(),
	}, nil
}

// Run plays the configured number of games, threads at a time, and
// collects their results.
func (r *GameRunner) Run(ctx context.Context) error {
	log.Info().Int("games", r.numGames).Int("threads", r.threads).
		Msg("starting self-play")
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.threads)
	for i := 0; i < r.numGames; i++ {
		gameIdx := i
		g.Go(func() error {
			res, err := r.playOne(ctx, gameIdx)
			if err != nil {
				return err
			}
			log.Debug().Int("game", gameIdx).Float64("score", res.Score).
				Int("max-tile", 1<<uint(res.MaxRank)).Int("moves", res.Moves).
				Msg("game over")
			r.mu.Lock()
			r.results = append(r.results, res)
			r.mu.Unlock()
			return nil
		})
	}
	return g.Wait()
}

func (r *GameRunner) Results() []GameResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]GameResult{}, r.results...)
}

// PrintSummary writes score statistics, the distribution of highest
// tiles reached, and a score histogram.
func (r *GameRunner) PrintSummary(w io.Writer) error {
	results := r.Results()
	if len(results) == 0 {
		fmt.Fprintln(w, "no games played")
		return nil
	}
	scores := lo.Map(results, func(res GameResult, _ int) float64 { return res.Score })
	sort.Float64s(scores)

	fmt.Fprintf(w, "games: %d\n", len(results))
	fmt.Fprintf(w, "score: mean %.1f  stddev %.1f  median %.1f  min %.1f  max %.1f\n",
		stat.Mean(scores, nil),
		stat.StdDev(scores, nil),
		stat.Quantile(0.5, stat.Empirical, scores, nil),
		scores[0], scores[len(scores)-1])

	byMaxTile := lo.CountValuesBy(results, func(res GameResult) int { return res.MaxRank })
	ranks := lo.Keys(byMaxTile)
	sort.Sort(sort.Reverse(sort.IntSlice(ranks)))
	for _, rank := range ranks {
		fmt.Fprintf(w, "reached %6d: %d/%d games\n",
			1<<uint(rank), byMaxTile[rank], len(results))
	}

	hist := histogram.Hist(9, scores)
	return histogram.Fprint(w, hist, histogram.Linear(40))
}
