// Package search implements the expectimax move search: a max layer for
// the player's four candidate slides and a chance layer for the random
// tile the environment answers with, pruned by cumulative branch
// probability and memoized per decision in a depth-qualified
// transposition table.
package search

import (
	"github.com/rs/zerolog/log"

	"github.com/nibbler2048/nibbler/bitboard"
	"github.com/nibbler2048/nibbler/tables"
)

const (
	// Branches whose cumulative probability falls below this are not
	// expanded; the static heuristic stands in for them.
	cprobThreshBase = 0.0001

	// Transposition entries are only written while shallower than this,
	// which bounds the table's size for one decision.
	cacheDepthLimit = 15

	// Probability that the spawned tile is a 2 rather than a 4.
	tileProb2 = 0.9
	tileProb4 = 0.1
)

type ttEntry struct {
	depth     uint8
	heuristic float32
}

// evalState is the per-decision bookkeeping: one top-level call owns one
// of these, and the transposition table inside it never outlives the
// call. Nothing here is safe to share between goroutines; concurrent
// decisions each get their own state.
type evalState struct {
	transTable map[bitboard.Board]ttEntry

	curDepth    int
	maxDepth    int
	cacheHits   int
	movesEvaled uint64
	depthLimit  int
}

// Stats reports what one decision cost.
type Stats struct {
	Move           bitboard.Direction
	DepthLimit     int
	MovesEvaluated uint64
	CacheHits      int
	MaxDepth       int
}

// Solver evaluates boards against one shared, read-only table set. A
// Solver carries no state between calls and a single Solver value may be
// used from many goroutines; each FindBestMove call builds and discards
// its own evalState.
type Solver struct {
	tables *tables.Tables

	// fixedDepthLimit, when positive, replaces the adaptive depth
	// formula. Hosts with a deadline pre-select a conservative limit
	// this way; there is no mid-search cancellation.
	fixedDepthLimit int

	// disableTransTable exists so the memoized evaluator can be checked
	// against the plain one; the two must always agree.
	disableTransTable bool
}

func NewSolver(t *tables.Tables) *Solver {
	return &Solver{tables: t}
}

// SetDepthLimit pins every decision to the given depth limit. Zero
// restores the adaptive per-board formula.
func (s *Solver) SetDepthLimit(limit int) {
	s.fixedDepthLimit = limit
}

// SetDisableTransTable turns the per-call transposition table off.
func (s *Solver) SetDisableTransTable(off bool) {
	s.disableTransTable = off
}

// scoreTileChooseNode is the chance layer. Expansion stops, returning the
// static heuristic, once the branch probability is negligible or the
// depth budget for this call is spent.
func (s *Solver) scoreTileChooseNode(state *evalState, b bitboard.Board, cprob float32) float32 {
	if cprob < cprobThreshBase || state.curDepth >= state.depthLimit {
		if state.curDepth > state.maxDepth {
			state.maxDepth = state.curDepth
		}
		return s.tables.ScoreHeuristicBoard(b)
	}
	if !s.disableTransTable && state.curDepth < cacheDepthLimit {
		if entry, ok := state.transTable[b]; ok {
			// Only trust an entry computed with at least as much
			// remaining budget as we have now. A shallower recorded
			// depth means a deeper remaining search stands behind it.
			if int(entry.depth) <= state.curDepth {
				state.cacheHits++
				return entry.heuristic
			}
		}
	}

	numOpen := bitboard.CountEmpty(b)
	cprob /= float32(numOpen)

	var res float32
	tmp := b
	tile2 := bitboard.Board(1)
	for tile2 != 0 {
		if tmp&0xF == 0 {
			res += s.scoreMoveNode(state, b|tile2, cprob*tileProb2) * tileProb2
			res += s.scoreMoveNode(state, b|(tile2<<1), cprob*tileProb4) * tileProb4
		}
		tmp >>= 4
		tile2 <<= 4
	}
	// The two tile weights already sum to 1 per cell; normalize by the
	// cell count alone.
	res /= float32(numOpen)

	if !s.disableTransTable && state.curDepth < cacheDepthLimit {
		state.transTable[b] = ttEntry{depth: uint8(state.curDepth), heuristic: res}
	}
	return res
}

// scoreMoveNode is the max layer. Directions that don't change the board
// are skipped entirely; if none do, the node is terminal and scores 0.
func (s *Solver) scoreMoveNode(state *evalState, b bitboard.Board, cprob float32) float32 {
	var best float32
	state.curDepth++
	for dir := bitboard.Up; dir <= bitboard.Right; dir++ {
		newBoard := s.tables.ExecuteMove(dir, b)
		state.movesEvaled++
		if b != newBoard {
			if v := s.scoreTileChooseNode(state, newBoard, cprob); v > best {
				best = v
			}
		}
	}
	state.curDepth--
	return best
}

// scoreTopLevelMove evaluates one candidate direction from the root. An
// illegal direction scores exactly 0; a legal one gets its chance-node
// value plus a tiny epsilon so that even a hopeless legal move outranks
// the illegal ones.
func (s *Solver) scoreTopLevelMove(state *evalState, b bitboard.Board, dir bitboard.Direction) float32 {
	newBoard := s.tables.ExecuteMove(dir, b)
	if b == newBoard {
		return 0
	}
	return s.scoreTileChooseNode(state, newBoard, 1.0) + 1e-6
}

func (s *Solver) newState(b bitboard.Board) *evalState {
	state := &evalState{
		depthLimit: max(3, bitboard.CountDistinct(b)-2),
	}
	if s.fixedDepthLimit > 0 {
		state.depthLimit = s.fixedDepthLimit
	}
	if !s.disableTransTable {
		state.transTable = make(map[bitboard.Board]ttEntry)
	}
	return state
}

// FindBestMove returns the direction with the strictly greatest
// expectimax score, or NoMove when no direction changes the board.
func (s *Solver) FindBestMove(b bitboard.Board) bitboard.Direction {
	return s.findBestMove(b, s.newState(b))
}

func (s *Solver) findBestMove(b bitboard.Board, state *evalState) bitboard.Direction {
	var best float32
	bestMove := bitboard.NoMove
	for dir := bitboard.Up; dir <= bitboard.Right; dir++ {
		if res := s.scoreTopLevelMove(state, b, dir); res > best {
			best = res
			bestMove = dir
		}
	}
	return bestMove
}

// FindBestMoveWithStats is FindBestMove plus the decision's diagnostics.
func (s *Solver) FindBestMoveWithStats(b bitboard.Board) Stats {
	state := s.newState(b)
	move := s.findBestMove(b, state)
	stats := Stats{
		Move:           move,
		DepthLimit:     state.depthLimit,
		MovesEvaluated: state.movesEvaled,
		CacheHits:      state.cacheHits,
		MaxDepth:       state.maxDepth,
	}
	log.Debug().
		Stringer("move", stats.Move).
		Int("depth-limit", stats.DepthLimit).
		Uint64("moves-evaluated", stats.MovesEvaluated).
		Int("cache-hits", stats.CacheHits).
		Int("max-depth", stats.MaxDepth).
		Msg("decision")
	return stats
}
