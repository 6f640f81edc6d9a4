// Package tables builds and owns the precomputed per-row lookup tables
// that make move application and board evaluation O(1): XOR deltas for
// sliding each of the 65536 possible rows in every direction, the true
// game-score contribution of each row, and a weighted static heuristic.
//
// Build the tables once with New before doing anything else. A Tables
// value is immutable after construction and may be shared by any number
// of concurrent solvers. A zero-value Tables does not fault; every lookup
// just comes back zero, so moves are no-ops and every heuristic reads as
// zero. Callers get exactly what the ordering contract promises them.
package tables

import (
	"math"

	"github.com/rs/zerolog/log"

	"github.com/nibbler2048/nibbler/bitboard"
)

// Heuristic weights. These are tuned constants; changing them changes
// every search result, so they are not configurable.
const (
	lostPenalty        = 200000.0
	monotonicityPower  = 4.0
	monotonicityWeight = 47.0
	sumPower           = 3.5
	sumWeight          = 11.0
	mergesWeight       = 700.0
	emptyWeight        = 270.0
)

type Tables struct {
	rowLeft  [65536]bitboard.Row
	rowRight [65536]bitboard.Row
	colUp    [65536]bitboard.Board
	colDown  [65536]bitboard.Board

	score     [65536]float32
	heurScore [65536]float32
}

// New builds all lookup tables by brute-force simulation of every
// possible row. This is the one-time init gate; it takes a few
// milliseconds and the result is read-only for the life of the process.
func New() *Tables {
	t := &Tables{}
	for row := 0; row < 65536; row++ {
		line := [4]int{
			row & 0xF,
			(row >> 4) & 0xF,
			(row >> 8) & 0xF,
			(row >> 12) & 0xF,
		}

		var score float32
		for i := 0; i < 4; i++ {
			rank := line[i]
			if rank >= 2 {
				// A tile of rank r was produced by a merge worth 2^r,
				// and so on recursively down to the rank-1 tiles that
				// spawn for free.
				score += float32((rank - 1) * (1 << uint(rank)))
			}
		}
		t.score[row] = score

		var sum float64
		empty := 0
		merges := 0
		prev := 0
		counter := 0
		for i := 0; i < 4; i++ {
			rank := line[i]
			sum += math.Pow(float64(rank), sumPower)
			if rank == 0 {
				empty++
				continue
			}
			if prev == rank {
				counter++
			} else if counter > 0 {
				merges += 1 + counter
				counter = 0
			}
			prev = rank
		}
		if counter > 0 {
			merges += 1 + counter
		}

		var monoLeft, monoRight float64
		for i := 1; i < 4; i++ {
			if line[i-1] > line[i] {
				monoLeft += math.Pow(float64(line[i-1]), monotonicityPower) -
					math.Pow(float64(line[i]), monotonicityPower)
			} else {
				monoRight += math.Pow(float64(line[i]), monotonicityPower) -
					math.Pow(float64(line[i-1]), monotonicityPower)
			}
		}

		t.heurScore[row] = float32(lostPenalty +
			emptyWeight*float64(empty) +
			mergesWeight*float64(merges) -
			monotonicityWeight*math.Min(monoLeft, monoRight) -
			sumWeight*sum)

		slid := slideLeft(line)
		result := bitboard.Row(slid[0] | slid[1]<<4 | slid[2]<<8 | slid[3]<<12)
		revResult := bitboard.ReverseRow(result)
		revRow := bitboard.ReverseRow(bitboard.Row(row))

		t.rowLeft[row] = bitboard.Row(row) ^ result
		t.rowRight[revRow] = revRow ^ revResult
		t.colUp[row] = bitboard.UnpackCol(bitboard.Row(row)) ^ bitboard.UnpackCol(result)
		t.colDown[revRow] = bitboard.UnpackCol(revRow) ^ bitboard.UnpackCol(revResult)
	}
	log.Debug().Msg("move and evaluation tables built")
	return t
}

// slideLeft compacts and merges one row leftward, in place on a copy.
// Merges do not cascade within a pass, and a merge at the rank cap is
// suppressed rather than overflowing the nibble.
func slideLeft(line [4]int) [4]int {
	for i := 0; i < 3; i++ {
		var j int
		for j = i + 1; j < 4; j++ {
			if line[j] != 0 {
				break
			}
		}
		if j == 4 {
			break
		}
		if line[i] == 0 {
			line[i] = line[j]
			line[j] = 0
			// Re-examine this cell; the pulled tile may merge yet.
			i--
		} else if line[i] == line[j] {
			if line[i] != bitboard.MaxTileRank {
				line[i]++
			}
			line[j] = 0
		}
	}
	return line
}

func (t *Tables) moveUp(b bitboard.Board) bitboard.Board {
	ret := b
	tr := bitboard.Transpose(b)
	ret ^= t.colUp[(tr>>0)&bitboard.RowMask] << 0
	ret ^= t.colUp[(tr>>16)&bitboard.RowMask] << 4
	ret ^= t.colUp[(tr>>32)&bitboard.RowMask] << 8
	ret ^= t.colUp[(tr>>48)&bitboard.RowMask] << 12
	return ret
}

func (t *Tables) moveDown(b bitboard.Board) bitboard.Board {
	ret := b
	tr := bitboard.Transpose(b)
	ret ^= t.colDown[(tr>>0)&bitboard.RowMask] << 0
	ret ^= t.colDown[(tr>>16)&bitboard.RowMask] << 4
	ret ^= t.colDown[(tr>>32)&bitboard.RowMask] << 8
	ret ^= t.colDown[(tr>>48)&bitboard.RowMask] << 12
	return ret
}

func (t *Tables) moveLeft(b bitboard.Board) bitboard.Board {
	ret := b
	ret ^= bitboard.Board(t.rowLeft[(b>>0)&bitboard.RowMask]) << 0
	ret ^= bitboard.Board(t.rowLeft[(b>>16)&bitboard.RowMask]) << 16
	ret ^= bitboard.Board(t.rowLeft[(b>>32)&bitboard.RowMask]) << 32
	ret ^= bitboard.Board(t.rowLeft[(b>>48)&bitboard.RowMask]) << 48
	return ret
}

func (t *Tables) moveRight(b bitboard.Board) bitboard.Board {
	ret := b
	ret ^= bitboard.Board(t.rowRight[(b>>0)&bitboard.RowMask]) << 0
	ret ^= bitboard.Board(t.rowRight[(b>>16)&bitboard.RowMask]) << 16
	ret ^= bitboard.Board(t.rowRight[(b>>32)&bitboard.RowMask]) << 32
	ret ^= bitboard.Board(t.rowRight[(b>>48)&bitboard.RowMask]) << 48
	return ret
}

// ExecuteMove applies one move to a board: four table reads and four
// XORs. It returns the input board unchanged when the move is illegal
// (nothing slides or merges) or the direction is unknown.
func (t *Tables) ExecuteMove(dir bitboard.Direction, b bitboard.Board) bitboard.Board {
	switch dir {
	case bitboard.Up:
		return t.moveUp(b)
	case bitboard.Down:
		return t.moveDown(b)
	case bitboard.Left:
		return t.moveLeft(b)
	case bitboard.Right:
		return t.moveRight(b)
	}
	return b
}

func (t *Tables) scoreHelper(b bitboard.Board, table *[65536]float32) float32 {
	return table[(b>>0)&bitboard.RowMask] +
		table[(b>>16)&bitboard.RowMask] +
		table[(b>>32)&bitboard.RowMask] +
		table[(b>>48)&bitboard.RowMask]
}

// ScoreBoard returns the true game score implied by the tiles on the
// board, assuming every tile above rank 1 was produced by merges.
func (t *Tables) ScoreBoard(b bitboard.Board) float32 {
	return t.scoreHelper(b, &t.score)
}

// ScoreHeuristicBoard is the static evaluation used by search: the
// per-row heuristic summed over the board's rows and over the transposed
// board's rows, so columns contribute symmetrically.
func (t *Tables) ScoreHeuristicBoard(b bitboard.Board) float32 {
	return t.scoreHelper(b, &t.heurScore) +
		t.scoreHelper(bitboard.Transpose(b), &t.heurScore)
}
