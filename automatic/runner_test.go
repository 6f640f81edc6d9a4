package automatic

import (
	"context"
	"sort"
	"strings"
	"testing"

	"github.com/matryer/is"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"

	"github.com/nibbler2048/nibbler/tables"
)

var tbl = tables.New()

// Full games are slow at real depth; a couple of games is enough to
// exercise the plumbing.
func TestRunCollectsResults(t *testing.T) {
	if testing.Short() {
		t.Skip("self-play games are slow")
	}
	is := is.New(t)
	r := NewGameRunner(tbl, 2, 2)
	err := r.Run(context.Background())
	is.NoErr(err)
	results := r.Results()
	is.Equal(len(results), 2)
	for _, res := range results {
		// Any completed game merged something.
		assert.Greater(t, res.Score, 0.0)
		assert.Greater(t, res.Moves, 0)
		assert.GreaterOrEqual(t, res.MaxRank, 2)
	}
}

func TestRunCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := NewGameRunner(tbl, 4, 2)
	err := r.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPrintSummaryEmpty(t *testing.T) {
	is := is.New(t)
	r := NewGameRunner(tbl, 0, 1)
	var sb strings.Builder
	is.NoErr(r.PrintSummary(&sb))
	is.True(strings.Contains(sb.String(), "no games played"))
}

func TestPrintSummary(t *testing.T) {
	is := is.New(t)
	r := NewGameRunner(tbl, 0, 1)
	r.results = []GameResult{
		{Score: 1200, MaxRank: 7, Moves: 110},
		{Score: 3000, MaxRank: 8, Moves: 230},
		{Score: 2800, MaxRank: 8, Moves: 215},
	}
	var sb strings.Builder
	is.NoErr(r.PrintSummary(&sb))
	out := sb.String()
	is.True(strings.Contains(out, "games: 3"))
	is.True(strings.Contains(out, "reached    256: 2/3 games"))
	is.True(strings.Contains(out, "reached    128: 1/3 games"))
}

func TestSeededRunReproducible(t *testing.T) {
	if testing.Short() {
		t.Skip("self-play games are slow")
	}
	is := is.New(t)
	run := func() []float64 {
		r := NewGameRunner(tbl, 2, 2)
		r.SetSeed(7)
		r.SetDepthLimit(1)
		is.NoErr(r.Run(context.Background()))
		scores := lo.Map(r.Results(),
			func(res GameResult, _ int) float64 { return res.Score })
		sort.Float64s(scores)
		return scores
	}
	is.Equal(run(), run())
}
