package search

import (
	"testing"

	"github.com/matryer/is"

	"github.com/nibbler2048/nibbler/bitboard"
	"github.com/nibbler2048/nibbler/tables"
)

var tbl = tables.New()

// stuckBoard admits no slide or merge in any direction: full, with
// strictly alternating ranks.
var stuckBoard = bitboard.FromGrid([4][4]int{
	{1, 2, 1, 2},
	{2, 1, 2, 1},
	{1, 2, 1, 2},
	{2, 1, 2, 1},
})

var midgameBoard = bitboard.FromGrid([4][4]int{
	{5, 3, 2, 1},
	{4, 2, 1, 0},
	{2, 1, 0, 0},
	{1, 0, 0, 0},
})

func TestNoLegalMoves(t *testing.T) {
	is := is.New(t)
	s := NewSolver(tbl)
	is.Equal(s.FindBestMove(stuckBoard), bitboard.NoMove)
	stats := s.FindBestMoveWithStats(stuckBoard)
	is.Equal(stats.Move, bitboard.NoMove)
	is.Equal(stats.CacheHits, 0)
}

func TestDepthLimitAdaptivity(t *testing.T) {
	is := is.New(t)
	s := NewSolver(tbl)

	// Two distinct ranks: the floor of 3 applies.
	twoRanks := bitboard.FromGrid([4][4]int{
		{1, 2, 0, 0},
		{0, 0, 0, 0},
		{0, 0, 0, 0},
		{0, 0, 0, 1},
	})
	is.Equal(bitboard.CountDistinct(twoRanks), 2)
	is.Equal(s.FindBestMoveWithStats(twoRanks).DepthLimit, 3)

	// Seven distinct ranks: 7 - 2 = 5.
	sevenRanks := bitboard.FromGrid([4][4]int{
		{7, 6, 5, 4},
		{3, 2, 1, 0},
		{0, 0, 0, 0},
		{0, 0, 0, 0},
	})
	is.Equal(bitboard.CountDistinct(sevenRanks), 7)
	is.Equal(s.FindBestMoveWithStats(sevenRanks).DepthLimit, 5)
}

func TestIllegalMoveScoresZero(t *testing.T) {
	is := is.New(t)
	s := NewSolver(tbl)
	// Left is illegal here (everything against the wall); its top-level
	// score must be exactly zero, not epsilon.
	b := bitboard.FromGrid([4][4]int{
		{1, 2, 0, 0},
		{1, 2, 0, 0},
		{2, 1, 0, 0},
		{2, 1, 0, 0},
	})
	is.Equal(tbl.ExecuteMove(bitboard.Left, b), b)
	state := s.newState(b)
	is.Equal(s.scoreTopLevelMove(state, b, bitboard.Left), float32(0))
	// Up is legal and must outrank it.
	is.True(s.scoreTopLevelMove(state, b, bitboard.Up) > 0)
}

func TestDeterminism(t *testing.T) {
	is := is.New(t)
	s := NewSolver(tbl)
	boards := []bitboard.Board{
		midgameBoard,
		bitboard.FromGrid([4][4]int{
			{1, 0, 0, 0},
			{0, 0, 0, 0},
			{0, 0, 1, 0},
			{0, 0, 0, 0},
		}),
		bitboard.FromGrid([4][4]int{
			{6, 5, 4, 3},
			{2, 2, 1, 1},
			{0, 0, 0, 0},
			{1, 0, 0, 0},
		}),
	}
	for _, b := range boards {
		first := s.FindBestMove(b)
		for i := 0; i < 3; i++ {
			is.Equal(s.FindBestMove(b), first)
		}
	}
}

func TestCachedAgreesWithUncached(t *testing.T) {
	is := is.New(t)
	cached := NewSolver(tbl)
	uncached := NewSolver(tbl)
	uncached.SetDisableTransTable(true)

	boards := []bitboard.Board{
		midgameBoard,
		bitboard.FromGrid([4][4]int{
			{3, 2, 1, 0},
			{1, 1, 0, 0},
			{0, 0, 0, 0},
			{0, 0, 0, 1},
		}),
	}
	for _, b := range boards {
		got := cached.FindBestMoveWithStats(b)
		want := uncached.FindBestMoveWithStats(b)
		is.Equal(got.Move, want.Move)
		is.Equal(got.DepthLimit, want.DepthLimit)
		is.Equal(want.CacheHits, 0)
	}
}

func TestBestMoveIsLegal(t *testing.T) {
	is := is.New(t)
	s := NewSolver(tbl)
	b := midgameBoard
	move := s.FindBestMove(b)
	is.True(move != bitboard.NoMove)
	is.True(tbl.ExecuteMove(move, b) != b)
}

func TestHeuristicAtDepthCutoff(t *testing.T) {
	is := is.New(t)
	s := NewSolver(tbl)
	// With a zero depth limit the chance node returns the static
	// heuristic immediately.
	state := &evalState{depthLimit: 0, transTable: map[bitboard.Board]ttEntry{}}
	got := s.scoreTileChooseNode(state, midgameBoard, 1.0)
	is.Equal(got, tbl.ScoreHeuristicBoard(midgameBoard))
	is.Equal(state.maxDepth, 0)
}

func BenchmarkFindBestMove(b *testing.B) {
	s := NewSolver(tbl)
	for i := 0; i < b.N; i++ {
		_ = s.FindBestMove(midgameBoard)
	}
}

func TestDepthLimitOverride(t *testing.T) {
	is := is.New(t)
	s := NewSolver(tbl)
	s.SetDepthLimit(2)
	stats := s.FindBestMoveWithStats(midgameBoard)
	is.Equal(stats.DepthLimit, 2)
	is.True(stats.MaxDepth <= 2)
	// Zero restores the adaptive formula.
	s.SetDepthLimit(0)
	is.Equal(s.FindBestMoveWithStats(midgameBoard).DepthLimit,
		max(3, bitboard.CountDistinct(midgameBoard)-2))
}

func TestCacheStalenessPredicate(t *testing.T) {
	is := is.New(t)
	s := NewSolver(tbl)
	b := midgameBoard
	const sentinel = float32(123456)

	// An entry recorded with less remaining budget than this call has
	// (recorded depth greater than curDepth) must not be reused.
	state := &evalState{depthLimit: 1, transTable: map[bitboard.Board]ttEntry{
		b: {depth: 5, heuristic: sentinel},
	}}
	got := s.scoreTileChooseNode(state, b, 1.0)
	is.True(got != sentinel)
	is.Equal(state.cacheHits, 0)
	// The expansion replaced the stale entry at the current depth.
	is.Equal(state.transTable[b].depth, uint8(0))
	is.Equal(state.transTable[b].heuristic, got)

	// An entry at depth <= curDepth is reused verbatim.
	state = &evalState{depthLimit: 1, transTable: map[bitboard.Board]ttEntry{
		b: {depth: 0, heuristic: sentinel},
	}}
	is.Equal(s.scoreTileChooseNode(state, b, 1.0), sentinel)
	is.Equal(state.cacheHits, 1)
}
