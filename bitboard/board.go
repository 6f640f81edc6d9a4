// Package bitboard implements the packed 64-bit representation of a 4x4
// sliding-tile merge board. Each of the 16 cells occupies one nibble; the
// nibble holds the tile's exponent (tile value 2^e), with 0 meaning an
// empty cell. Nibble i, counting from the least significant end,
// corresponds to row i/4, column i%4.
//
// Boards are plain values. Nothing in this package or its consumers ever
// mutates a board in place; operations return new boards.
package bitboard

import (
	"fmt"
	"strings"
)

type Board uint64

// Row is a 16-bit horizontal slice of a board (4 nibbles). All of the
// precomputed move and evaluation tables are indexed by Row.
type Row uint16

const (
	RowMask Board = 0xFFFF
	ColMask Board = 0x000F000F000F000F
)

// MaxTileRank is the largest exponent a nibble can hold. Merges that
// would exceed it are suppressed, not wrapped.
const MaxTileRank = 15

type Direction int8

const (
	Up Direction = iota
	Down
	Left
	Right
)

// NoMove is the sentinel returned by move selection when no direction
// changes the board.
const NoMove Direction = -1

func (d Direction) String() string {
	switch d {
	case Up:
		return "up"
	case Down:
		return "down"
	case Left:
		return "left"
	case Right:
		return "right"
	}
	return "none"
}

// Transpose mirrors the board across its main diagonal using fixed
// masking identities; no per-cell loop.
func Transpose(x Board) Board {
	a1 := x & 0xF0F00F0FF0F00F0F
	a2 := x & 0x0000F0F00000F0F0
	a3 := x & 0x0F0F00000F0F0000
	a := a1 | (a2 << 12) | (a3 >> 12)
	b1 := a & 0xFF00FF0000FF00FF
	b2 := a & 0x00FF00FF00000000
	b3 := a & 0x00000000FF00FF00
	return b1 | (b2 >> 24) | (b3 << 24)
}

// ReverseRow reverses the order of the 4 nibbles in a row.
func ReverseRow(r Row) Row {
	return (r >> 12) | ((r >> 4) & 0x00F0) | ((r << 4) & 0x0F00) | (r << 12)
}

// UnpackCol replicates a row into the four nibble positions of a
// column-shaped board value, for column-wise table application.
func UnpackCol(r Row) Board {
	tmp := Board(r)
	return (tmp | (tmp << 12) | (tmp << 24) | (tmp << 36)) & ColMask
}

// CountEmpty returns the number of empty cells. SWAR trick: collapse each
// nibble to a single "nonzero" bit, invert, then sum the bits.
func CountEmpty(x Board) int {
	x |= (x >> 2) & 0x3333333333333333
	x |= x >> 1
	x = ^x & 0x1111111111111111
	x += x >> 32
	x += x >> 16
	x += x >> 8
	x += x >> 4
	return int(x & 0xF)
}

// MaxRank returns the highest exponent present on the board.
func MaxRank(b Board) int {
	maxrank := 0
	for b != 0 {
		if r := int(b & 0xF); r > maxrank {
			maxrank = r
		}
		b >>= 4
	}
	return maxrank
}

// CountDistinct returns the number of distinct nonzero tile ranks on the
// board. The search layer uses this to pick its depth limit.
func CountDistinct(b Board) int {
	var bitset uint16
	for b != 0 {
		bitset |= 1 << (b & 0xF)
		b >>= 4
	}
	// Empty cells don't count as a rank.
	bitset >>= 1
	count := 0
	for bitset != 0 {
		bitset &= bitset - 1
		count++
	}
	return count
}

// Rank returns the exponent stored at cell (row, col).
func (b Board) Rank(row, col int) int {
	shift := uint((row*4 + col) * 4)
	return int((b >> shift) & 0xF)
}

// WithTile returns a board with rank written into cell (row, col). The
// cell's previous contents are overwritten.
func (b Board) WithTile(row, col, rank int) Board {
	shift := uint((row*4 + col) * 4)
	return (b &^ (0xF << shift)) | (Board(rank&0xF) << shift)
}

// FromGrid packs a grid of exponents, grid[row][col], into a board.
func FromGrid(grid [4][4]int) Board {
	var b Board
	for r := 3; r >= 0; r-- {
		for c := 3; c >= 0; c-- {
			b = (b << 4) | Board(grid[r][c]&0xF)
		}
	}
	return b
}

// Grid unpacks the board into exponents, grid[row][col].
func (b Board) Grid() [4][4]int {
	var grid [4][4]int
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			grid[r][c] = int(b & 0xF)
			b >>= 4
		}
	}
	return grid
}

// String renders the board as tile values for display.
func (b Board) String() string {
	var sb strings.Builder
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			rank := int(b & 0xF)
			b >>= 4
			if rank == 0 {
				sb.WriteString("     .")
			} else {
				fmt.Fprintf(&sb, "%6d", 1<<uint(rank))
			}
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
