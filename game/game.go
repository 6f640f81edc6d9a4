// Package game holds the mutable, host-side game state that the pure
// engine deliberately knows nothing about: the current board, the true
// running score, and the random tile spawning that answers each move.
package game

import (
	"encoding/binary"

	"lukechampine.com/frand"

	"github.com/nibbler2048/nibbler/bitboard"
	"github.com/nibbler2048/nibbler/tables"
)

// Game is one playthrough. Not safe for concurrent use; run one Game per
// goroutine.
type Game struct {
	tables *tables.Tables
	rng    *frand.RNG
	board  bitboard.Board
	moves  int

	// ScoreBoard counts a spawned 4 as if it had been merged from two
	// 2s, which the player never got points for. Track the correction.
	scorePenalty float32
}

// RNGFromSeed expands a 64-bit seed into a deterministic generator.
// Since the solver itself is deterministic, two games built from the
// same seed and given the same moves play out identically.
func RNGFromSeed(seed uint64) *frand.RNG {
	var key [32]byte
	binary.LittleEndian.PutUint64(key[:], seed)
	return frand.NewCustom(key[:], 1024, 12)
}

// NewGame starts a game with two spawned tiles, the way the original
// client deals an opening board. A nil rng means a randomly seeded one.
func NewGame(t *tables.Tables, rng *frand.RNG) *Game {
	g := newGame(t, rng)
	g.spawnTile()
	g.spawnTile()
	return g
}

// NewGameFromBoard adopts an existing position, e.g. one typed into the
// shell. The score baseline resets: Score reports the board's implied
// merge score plus points earned from here on.
func NewGameFromBoard(t *tables.Tables, b bitboard.Board, rng *frand.RNG) *Game {
	g := newGame(t, rng)
	g.board = b
	return g
}

func newGame(t *tables.Tables, rng *frand.RNG) *Game {
	if rng == nil {
		rng = frand.New()
	}
	return &Game{tables: t, rng: rng}
}

func (g *Game) spawnTile() {
	empty := bitboard.CountEmpty(g.board)
	if empty == 0 {
		return
	}
	idx := g.rng.Intn(empty)
	rank := 1
	if g.rng.Float64() < 0.1 {
		rank = 2
		g.scorePenalty += 4
	}
	// Walk the nibbles to the idx-th empty cell.
	b := g.board
	for i := 0; i < 16; i++ {
		if b&0xF == 0 {
			if idx == 0 {
				g.board |= bitboard.Board(rank) << uint(4*i)
				return
			}
			idx--
		}
		b >>= 4
	}
}

// PlayMove applies one slide and, if it changed the board, spawns the
// environment's reply tile. Returns false for an illegal move, leaving
// the game untouched.
func (g *Game) PlayMove(dir bitboard.Direction) bool {
	next := g.tables.ExecuteMove(dir, g.board)
	if next == g.board {
		return false
	}
	g.board = next
	g.moves++
	g.spawnTile()
	return true
}

// Playing reports whether any direction still changes the board.
func (g *Game) Playing() bool {
	for dir := bitboard.Up; dir <= bitboard.Right; dir++ {
		if g.tables.ExecuteMove(dir, g.board) != g.board {
			return true
		}
	}
	return false
}

func (g *Game) Board() bitboard.Board { return g.board }

func (g *Game) Moves() int { return g.moves }

// Score is the true game score: the board's implied merge score minus
// the correction for tiles that spawned as 4s.
func (g *Game) Score() float32 {
	return g.tables.ScoreBoard(g.board) - g.scorePenalty
}

// MaxRank is the highest tile exponent reached so far.
func (g *Game) MaxRank() int {
	return bitboard.MaxRank(g.board)
}
