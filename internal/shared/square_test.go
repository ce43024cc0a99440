package shared

import "testing"

func TestCoordToSquare(t *testing.T) {
	cases := []struct {
		coord string
		want  Square
	}{
		{"a1", 0},
		{"h1", 7},
		{"a2", 8},
		{"e4", 28},
		{"h8", 63},
	}
	for _, c := range cases {
		got, err := CoordToSquare(c.coord)
		if err != nil {
			t.Fatalf("CoordToSquare(%q): %v", c.coord, err)
		}
		if got != c.want {
			t.Errorf("CoordToSquare(%q) = %d, want %d", c.coord, got, c.want)
		}
		if got.String() != c.coord {
			t.Errorf("Square(%d).String() = %q, want %q", got, got.String(), c.coord)
		}
	}
	for _, bad := range []string{"", "e", "i1", "a9", "4e", "e44"} {
		if _, err := CoordToSquare(bad); err == nil {
			t.Errorf("CoordToSquare(%q) succeeded, want error", bad)
		}
	}
}

func TestLine(t *testing.T) {
	sq := func(s string) Square {
		v, err := CoordToSquare(s)
		if err != nil {
			t.Fatalf("bad coord %q: %v", s, err)
		}
		return v
	}
	cases := []struct {
		from, to string
		want     []string
	}{
		{"a1", "a4", []string{"a2", "a3"}},
		{"a1", "d1", []string{"b1", "c1"}},
		{"a1", "d4", []string{"b2", "c3"}},
		{"d4", "a1", []string{"c3", "b2"}},
		{"d4", "f2", []string{"e3"}},
		{"a1", "a2", []string{}},
		{"a1", "b3", nil},
		{"a1", "a1", nil},
	}
	for _, c := range cases {
		got := Line(sq(c.from), sq(c.to))
		if (got == nil) != (c.want == nil) {
			t.Fatalf("Line(%s,%s) = %v, want %v", c.from, c.to, got, c.want)
		}
		if len(got) != len(c.want) {
			t.Fatalf("Line(%s,%s) = %v, want %v", c.from, c.to, got, c.want)
		}
		for i := range got {
			if got[i] != sq(c.want[i]) {
				t.Errorf("Line(%s,%s)[%d] = %s, want %s", c.from, c.to, i, got[i], c.want[i])
			}
		}
	}
}

func TestTagRoundTrip(t *testing.T) {
	for _, c := range []Color{White, Black} {
		for _, p := range []PieceType{Pawn, Knight, Bishop, Rook, Queen, King} {
			tag := NewTag(c, p)
			if !tag.Present() {
				t.Fatalf("NewTag(%v,%v) not present", c, p)
			}
			if tag.Color() != c || tag.Piece() != p {
				t.Fatalf("NewTag(%v,%v) decoded as %v %v", c, p, tag.Color(), tag.Piece())
			}
			back, ok := ParseTag(tag.Rune())
			if !ok || back != tag {
				t.Fatalf("ParseTag(%q) = %v,%v, want %v", tag.Rune(), back, ok, tag)
			}
		}
	}
	if NoTag.Present() {
		t.Error("NoTag reports present")
	}
	if tag, ok := ParseTag('.'); !ok || tag != NoTag {
		t.Errorf("ParseTag('.') = %v,%v", tag, ok)
	}
	if _, ok := ParseTag('x'); ok {
		t.Error("ParseTag('x') succeeded")
	}
}

func TestCastlingRights(t *testing.T) {
	cr := AllCastling
	if cr.String() != "KQkq" {
		t.Errorf("AllCastling.String() = %q", cr.String())
	}
	cr = cr.Without(CastlingRight(White, false))
	if cr.Has(WhiteQueenside) {
		t.Error("white queenside right not removed")
	}
	if !cr.Has(WhiteKingside) || !cr.Has(BlackKingside) || !cr.Has(BlackQueenside) {
		t.Error("unrelated rights removed")
	}
	if cr.String() != "Kkq" {
		t.Errorf("String() = %q, want Kkq", cr.String())
	}
	if CastlingRights(0).String() != "-" {
		t.Errorf("empty rights String() = %q", CastlingRights(0).String())
	}
}
