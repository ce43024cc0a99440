package shared

import "fmt"

// Square indexes a board cell: a1 is 0, b1 is 1, h8 is 63. The index
// doubles as the qubit position of the cell in a basis key.
type Square uint8

const NumSquares = 64

// SquareFromCoords builds a square from zero-based rank and file.
func SquareFromCoords(rank, file int) Square {
	return Square(rank*8 + file)
}

func (s Square) Rank() int { return int(s) >> 3 }
func (s Square) File() int { return int(s) & 7 }

func (s Square) String() string {
	return fmt.Sprintf("%c%c", 'a'+rune(s.File()), '1'+rune(s.Rank()))
}

// CoordToSquare parses algebraic notation like "e4".
func CoordToSquare(coord string) (Square, error) {
	if len(coord) != 2 {
		return 0, fmt.Errorf("invalid coordinate %q", coord)
	}
	file := int(coord[0] - 'a')
	rank := int(coord[1] - '1')
	if file < 0 || file > 7 || rank < 0 || rank > 7 {
		return 0, fmt.Errorf("invalid coordinate %q", coord)
	}
	return SquareFromCoords(rank, file), nil
}

// Aligned reports whether two distinct squares share a rank, file or
// diagonal, so that a sliding piece could travel between them.
func Aligned(from, to Square) bool {
	if from == to {
		return false
	}
	dr := to.Rank() - from.Rank()
	df := to.File() - from.File()
	return dr == 0 || df == 0 || dr == df || dr == -df
}

// Line returns the squares strictly between from and to along their
// shared rank, file or diagonal. It returns nil when the squares are
// not aligned and an empty slice when they are adjacent.
func Line(from, to Square) []Square {
	if !Aligned(from, to) {
		return nil
	}
	dr := sign(to.Rank() - from.Rank())
	df := sign(to.File() - from.File())
	var line []Square
	r, f := from.Rank()+dr, from.File()+df
	for r != to.Rank() || f != to.File() {
		line = append(line, SquareFromCoords(r, f))
		r += dr
		f += df
	}
	if line == nil {
		line = []Square{}
	}
	return line
}

func sign(n int) int {
	switch {
	case n > 0:
		return 1
	case n < 0:
		return -1
	}
	return 0
}
