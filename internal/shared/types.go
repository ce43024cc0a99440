package shared

import "fmt"

// Color identifies the owner of a piece.
type Color uint8

const (
	White Color = iota
	Black
)

func (c Color) String() string {
	if c == White {
		return "white"
	}
	return "black"
}

func (c Color) Other() Color {
	if c == White {
		return Black
	}
	return White
}

func (c Color) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

// PieceType is the chess piece kind, independent of color.
type PieceType uint8

const (
	Pawn PieceType = iota
	Knight
	Bishop
	Rook
	Queen
	King
)

var pieceLetters = [6]rune{'p', 'n', 'b', 'r', 'q', 'k'}

func (p PieceType) String() string {
	switch p {
	case Pawn:
		return "pawn"
	case Knight:
		return "knight"
	case Bishop:
		return "bishop"
	case Rook:
		return "rook"
	case Queen:
		return "queen"
	case King:
		return "king"
	default:
		return fmt.Sprintf("piece(%d)", uint8(p))
	}
}

// Letter is the lowercase algebraic letter for the piece kind.
func (p PieceType) Letter() rune {
	if int(p) < len(pieceLetters) {
		return pieceLetters[p]
	}
	return '?'
}

// ParsePromotion maps a promotion letter to its piece kind. Only the
// four legal promotion targets are accepted.
func ParsePromotion(r rune) (PieceType, bool) {
	switch r {
	case 'q':
		return Queen, true
	case 'r':
		return Rook, true
	case 'b':
		return Bishop, true
	case 'n':
		return Knight, true
	}
	return 0, false
}

// Tag labels one board square with the piece that may occupy it. The
// zero value means the square is untagged. A tag carries the piece
// kind and color but not a probability; amplitudes live in the
// quantum store.
type Tag uint8

const NoTag Tag = 0

func NewTag(c Color, p PieceType) Tag {
	return Tag(1) | Tag(p)<<1 | Tag(c)<<4
}

func (t Tag) Present() bool    { return t&1 != 0 }
func (t Tag) Piece() PieceType { return PieceType(t >> 1 & 7) }
func (t Tag) Color() Color     { return Color(t >> 4 & 1) }

// Rune renders the tag as a single letter, uppercase for white and
// lowercase for black, '.' for an empty tag.
func (t Tag) Rune() rune {
	if !t.Present() {
		return '.'
	}
	r := t.Piece().Letter()
	if t.Color() == White {
		r = r - 'a' + 'A'
	}
	return r
}

func (t Tag) String() string { return string(t.Rune()) }

func (t Tag) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

// ParseTag is the inverse of Rune. '.' parses to NoTag.
func ParseTag(r rune) (Tag, bool) {
	if r == '.' {
		return NoTag, true
	}
	c := White
	if r >= 'a' && r <= 'z' {
		c = Black
		r = r - 'a' + 'A'
	}
	switch r {
	case 'P':
		return NewTag(c, Pawn), true
	case 'N':
		return NewTag(c, Knight), true
	case 'B':
		return NewTag(c, Bishop), true
	case 'R':
		return NewTag(c, Rook), true
	case 'Q':
		return NewTag(c, Queen), true
	case 'K':
		return NewTag(c, King), true
	}
	return NoTag, false
}

// CastlingRights tracks which castling moves remain available, one
// bit per side and color.
type CastlingRights uint8

const (
	WhiteKingside CastlingRights = 1 << iota
	WhiteQueenside
	BlackKingside
	BlackQueenside

	AllCastling = WhiteKingside | WhiteQueenside | BlackKingside | BlackQueenside
)

// CastlingRight selects the single right for a color and side.
// Kingside is the h-file rook, queenside the a-file rook.
func CastlingRight(c Color, kingside bool) CastlingRights {
	if c == White {
		if kingside {
			return WhiteKingside
		}
		return WhiteQueenside
	}
	if kingside {
		return BlackKingside
	}
	return BlackQueenside
}

func (cr CastlingRights) Has(r CastlingRights) bool { return cr&r == r }

func (cr CastlingRights) Without(r CastlingRights) CastlingRights { return cr &^ r }

func (cr CastlingRights) String() string {
	if cr == 0 {
		return "-"
	}
	s := ""
	if cr.Has(WhiteKingside) {
		s += "K"
	}
	if cr.Has(WhiteQueenside) {
		s += "Q"
	}
	if cr.Has(BlackKingside) {
		s += "k"
	}
	if cr.Has(BlackQueenside) {
		s += "q"
	}
	return s
}

func (cr CastlingRights) MarshalText() ([]byte, error) { return []byte(cr.String()), nil }
