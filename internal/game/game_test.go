package game

import (
	"errors"
	"math"
	"math/cmplx"
	"reflect"
	"strings"
	"testing"

	"github.com/davecgh/go-spew/spew"

	"quantum_chess_poc/internal/quantum"
	"quantum_chess_poc/internal/shared"
)

const s12 = 1 / math.Sqrt2

func mustApply(t *testing.T, g *Game, cmds ...string) {
	t.Helper()
	for _, cmd := range cmds {
		if _, err := g.Apply(cmd); err != nil {
			t.Fatalf("apply %q: %v", cmd, err)
		}
	}
}

func checkAmplitudes(t *testing.T, g *Game, want map[string]complex128) {
	t.Helper()
	got := g.store.Amplitudes()
	if len(got) != len(want) {
		t.Fatalf("amplitude count: got %d want %d\ngot: %s", len(got), len(want), spew.Sdump(got))
	}
	for k, w := range want {
		v, ok := got[k]
		if !ok || cmplx.Abs(v-w) > 1e-9 {
			t.Fatalf("amplitude %s: got %v want %v\ngot: %s", k, v, w, spew.Sdump(got))
		}
	}
}

func mustSquare(t *testing.T, coord string) shared.Square {
	t.Helper()
	sq, err := shared.CoordToSquare(coord)
	if err != nil {
		t.Fatalf("square %q: %v", coord, err)
	}
	return sq
}

func TestEnPassant(t *testing.T) {
	g := NewSeeded(1)
	mustApply(t, g, "a2,a4", "h7,h5", "a4,a5", "b7,b5", "a5,b6")
	checkAmplitudes(t, g, map[string]complex128{
		"1111111101111111000000000000000000000001010000001011111011111111": -1i,
	})
	if tag, _, ok := g.Occupant(mustSquare(t, "b6")); !ok || tag.Rune() != 'P' {
		t.Fatalf("b6 should hold the white pawn, got %v", tag)
	}
}

func TestEnPassantNeedsFreshDoubleStep(t *testing.T) {
	g := NewSeeded(1)
	mustApply(t, g, "a2,a4", "b7,b5", "a4,a5", "h7,h6")
	if _, err := g.Apply("a5,b6"); !errors.Is(err, ErrIllegalMove) {
		t.Fatalf("stale double step should not allow en passant, got %v", err)
	}
}

func TestPromotion(t *testing.T) {
	g := NewSeeded(1)
	mustApply(t, g,
		"a2,a4", "h7,h5", "a4,a5", "h5,h4", "a5,a6", "h4,h3", "a6,b7", "h3,g2")
	if _, err := g.Apply("b7,a8"); !errors.Is(err, ErrIllegalMove) {
		t.Fatalf("back rank without promotion should fail, got %v", err)
	}
	mustApply(t, g, "b7,a8q", "g2,f1n")
	checkAmplitudes(t, g, map[string]complex128{
		"1111111101111101000000000000000000000000000000001011111011111111": -1,
	})
	if tag, _, _ := g.Occupant(mustSquare(t, "a8")); tag.Rune() != 'Q' {
		t.Fatalf("a8 should hold a white queen, got %v", tag)
	}
	if tag, _, _ := g.Occupant(mustSquare(t, "f1")); tag.Rune() != 'n' {
		t.Fatalf("f1 should hold a black knight, got %v", tag)
	}
}

func TestEntangledMerge(t *testing.T) {
	g := NewSeeded(1)
	mustApply(t, g,
		"a2,a4", "h7,h5", "a1,a3", "h8,h6", "a3,c3", "h6,d6",
		"a4,a5", "d6,d4", "a5,a6", "d4,d3c4", "c3,e3c5", "b7,a6", "e3c5,e5")
	checkAmplitudes(t, g, map[string]complex128{
		"0111111101111111000100000000000000001001100000001011111011111110": 0.5,
		"0111111101111111000110000000000000000001100000001011111011111110": -0.5i,
		"0111111101111111000010000010000000000001100000001011111011111110": 0.5i,
		"0111111101111111000000000010000000001001100000001011111011111110": 0.5,
	})
}

func TestCollinearMergeAlongFile(t *testing.T) {
	g, err := FromBoard("a1R e8k", 1)
	if err != nil {
		t.Fatal(err)
	}
	mustApply(t, g, "a1,a3a5", "e8,e7")

	// The a3 half sits on the a5 half's line to a7; the merge must
	// treat it as the twin, not as a blocker.
	const merge = "a3a5,a7"
	moves := g.LegalMoves()
	found := false
	for _, raw := range moves {
		if raw == merge {
			found = true
			break
		}
	}
	if !found {
		t.Fatalf("%s missing from legal moves:\n%s", merge, spew.Sdump(moves))
	}
	mustApply(t, g, merge)
	checkAmplitudes(t, g, map[string]complex128{
		"0000000000000000000000000000000000000000000000001000100000000000": 1i,
	})
	if tag, _, ok := g.Occupant(mustSquare(t, "a7")); !ok || tag.Rune() != 'R' {
		t.Fatalf("a7 should hold the whole rook, got %v", tag)
	}
}

func TestCastling(t *testing.T) {
	g := NewSeeded(1)
	mustApply(t, g,
		"c2,c4", "g7,g6", "b1,c3", "f8,h6", "d1,a4", "g8,f6",
		"b2,b3", "e8h8,g8f8", "c1,a3", "a7,a6", "e1a1,c1d1")
	checkAmplitudes(t, g, map[string]complex128{
		"0011011110011111111000001010000000000000100001110111110111110110": 1i,
	})
	if g.CastlingRights() != 0 {
		t.Fatalf("all castling rights should be spent, got %v", g.CastlingRights())
	}
}

func TestCastlingDeniedAfterRookLeaves(t *testing.T) {
	g := NewSeeded(1)
	mustApply(t, g,
		"g2,g3", "g7,g6", "g1,f3", "g8,f6", "f1,h3", "f8,h6",
		"h1,g1", "h8,g8", "g1,h1", "g8,h8", "a2,a3")
	if _, err := g.Apply("e8h8,g8f8"); !errors.Is(err, ErrIllegalMove) {
		t.Fatalf("castling after the rook moved should fail, got %v", err)
	}
}

func TestSplitThroughSingleOpenPath(t *testing.T) {
	g, err := FromBoard("c6R d5r", 1)
	if err != nil {
		t.Fatal(err)
	}
	mustApply(t, g, "c6,c5d6", "d5,b5d7", "c5,c4", "b5,b6", "c4,c5", "b6,e6b4")
	checkAmplitudes(t, g, map[string]complex128{
		"0000000000000000000000000000000000100000000000000001000000000000": s12,
		"0000000000000000000000000100000000000000000100000000000000000000": s12,
	})
	want := map[string]rune{"b4": 'r', "c5": 'R', "d6": 'R', "d7": 'r'}
	tags, _ := g.Marginals()
	present := 0
	for _, tag := range tags {
		if tag.Present() {
			present++
		}
	}
	if present != len(want) {
		t.Fatalf("tagged squares: got %d want %d\n%s", present, len(want), g.Render())
	}
	for coord, r := range want {
		if tag := tags[mustSquare(t, coord)]; tag.Rune() != r {
			t.Fatalf("%s: got %q want %q", coord, tag.Rune(), r)
		}
	}
}

func TestPawnSlideThroughSuperposedPiece(t *testing.T) {
	g := NewSeeded(1)
	mustApply(t, g,
		"a2,a4", "h7,h5", "a1,a3", "h8,h6", "a3,b3c3", "h6,c6",
		"b2,b4", "c6,c4b6", "b4,b5", "g7,g6", "b2,b4")
	if _, _, ok := g.Occupant(mustSquare(t, "b4")); ok {
		t.Fatalf("b4 should be empty after the no-op slide\n%s", g.Render())
	}
	mustApply(t, g, "h5,h4")
	g.SetForced(quantum.Force(0))
	m, err := g.Apply("c2,c4")
	if err != nil {
		t.Fatal(err)
	}
	if !m.Occurred || m.Outcome != 0 {
		t.Fatalf("forced blocked slide: got %+v", m)
	}
	hist := g.History()
	if last := hist[len(hist)-1]; last != "c2,c4,0" {
		t.Fatalf("history should carry the pinned outcome, got %q", last)
	}
}

func TestPawnCaptureKeepsUncertainVictim(t *testing.T) {
	g := NewSeeded(1)
	mustApply(t, g, "a2,a4", "h7,h5", "a1,a3", "h5,h4", "a3,b3g3", "h4,g3")
	checkAmplitudes(t, g, map[string]complex128{
		"01111111011111110000001010000000000000000000000011111110111111111": -s12 * 1i,
		"01111111011111110100000010000001000000000000000011111110111111110": s12 * 1i,
	})
}

func TestBlockedJumpProbability(t *testing.T) {
	g := NewSeeded(1)
	mustApply(t, g, "d2,d3", "h7,h6", "e2,e3", "h6,h5", "e1,d2e2", "h5,h4")
	m, err := g.Apply("d1,e2,0")
	if err != nil {
		t.Fatal(err)
	}
	if !m.Occurred || math.Abs(m.ProbOne-0.5) > 1e-9 {
		t.Fatalf("blocked jump should measure the king at 0.5, got %+v", m)
	}
}

func TestReplayFromHistory(t *testing.T) {
	g := NewSeeded(20260826)
	for i := 0; i < 40; i++ {
		if _, _, err := g.RandomMove(3); err != nil {
			t.Fatalf("move %d: %v", i, err)
		}
	}
	wantAmps := g.store.Amplitudes()
	wantTags, _ := g.Marginals()

	replay := NewSeeded(1)
	for _, cmd := range g.History() {
		if _, err := replay.Apply(cmd); err != nil {
			t.Fatalf("replay %q: %v", cmd, err)
		}
	}
	gotTags, _ := replay.Marginals()
	if gotTags != wantTags {
		t.Fatalf("tags diverged\nwant: %s\ngot: %s", spew.Sdump(wantTags), spew.Sdump(gotTags))
	}
	gotAmps := replay.store.Amplitudes()
	if len(gotAmps) != len(wantAmps) {
		t.Fatalf("amplitude count: got %d want %d", len(gotAmps), len(wantAmps))
	}
	for k, w := range wantAmps {
		if v, ok := gotAmps[k]; !ok || cmplx.Abs(v-w) > 1e-9 {
			t.Fatalf("amplitude %s: got %v want %v", k, v, w)
		}
	}
}

func TestRevert(t *testing.T) {
	g := NewSeeded(5)
	mustApply(t, g, "b1,a3c3", "g8,f6h6", "a3c3,b5")
	if err := g.Revert(1); err != nil {
		t.Fatal(err)
	}
	if len(g.History()) != 2 || g.Step() != 2 {
		t.Fatalf("revert should leave two plies, got %v", g.History())
	}
	if err := g.Revert(10); err != nil {
		t.Fatal(err)
	}
	if len(g.History()) != 0 || g.SideToMove() != shared.White {
		t.Fatalf("full revert should reach the start, got %v", g.History())
	}
	start := strings.Repeat("1", 16) + strings.Repeat("0", 32) + strings.Repeat("1", 16)
	checkAmplitudes(t, g, map[string]complex128{start: 1})
}

func TestFailedMoveLeavesGameIntact(t *testing.T) {
	g, err := FromBoard("a1R a2p", 2)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := g.Apply("a1,a2,0"); err == nil {
		t.Fatal("forcing a miss on a certain capture should fail")
	}
	if g.Step() != 0 || len(g.History()) != 0 {
		t.Fatalf("failed move must not advance the game: step %d history %v", g.Step(), g.History())
	}
	if tag, _, _ := g.Occupant(mustSquare(t, "a2")); tag.Rune() != 'p' {
		t.Fatalf("a2 should still hold the black pawn, got %v", tag)
	}
	mustApply(t, g, "a1,a2")
	if tag, _, _ := g.Occupant(mustSquare(t, "a2")); tag.Rune() != 'R' {
		t.Fatalf("a2 should hold the rook after the capture, got %v", tag)
	}
}

func TestTerminalStatus(t *testing.T) {
	g, err := FromBoard("a8Q e1K h8k", 3)
	if err != nil {
		t.Fatal(err)
	}
	if got := g.Status(); got != Ongoing {
		t.Fatalf("status: got %v want %v", got, Ongoing)
	}
	mustApply(t, g, "a8,h8")
	if got := g.Status(); got != WhiteWins {
		t.Fatalf("status: got %v want %v", got, WhiteWins)
	}
}

func TestApplyRejections(t *testing.T) {
	g := NewSeeded(1)
	cases := []struct {
		raw  string
		want error
	}{
		{"h7,h6", ErrWrongTurn},
		{"e4,e5", ErrIllegalMove},
		{"a2a4", ErrMalformedCommand},
		{"a2,b3", ErrIllegalMove},
		{"a2,a3b3", ErrIllegalMove},
		{"e1,e2", ErrIllegalMove},
		{"a2,a4,2", ErrMalformedCommand},
	}
	for _, c := range cases {
		if _, err := g.Apply(c.raw); !errors.Is(err, c.want) {
			t.Errorf("%q: got %v want %v", c.raw, err, c.want)
		}
	}
	if g.Step() != 0 {
		t.Fatalf("rejected moves must not advance the game, step %d", g.Step())
	}
}

func TestOpeningLegalMoves(t *testing.T) {
	g := NewSeeded(1)
	want := []string{
		"b1,a3", "b1,c3", "b1,a3c3", "b1,c3a3",
		"g1,f3", "g1,h3", "g1,f3h3", "g1,h3f3",
		"a2,a3", "a2,a4", "b2,b3", "b2,b4", "c2,c3", "c2,c4", "d2,d3", "d2,d4",
		"e2,e3", "e2,e4", "f2,f3", "f2,f4", "g2,g3", "g2,g4", "h2,h3", "h2,h4",
	}
	got := g.LegalMoves()
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("opening moves\nwant: %s\ngot: %s", spew.Sdump(want), spew.Sdump(got))
	}
}

func TestMoveWeight(t *testing.T) {
	cases := []struct {
		raw  string
		want float64
	}{
		{"a2,a4", 1},
		{"b7,a8q", 1},
		{"a3a5,a7", 1},
		{"b1,a3c3", 0.25},
		{"e1h1,g1f1", 0.25},
	}
	for _, c := range cases {
		if got := moveWeight(c.raw, 0.25); got != c.want {
			t.Errorf("moveWeight(%q) = %v, want %v", c.raw, got, c.want)
		}
	}
}

func TestRandomMoveExhausted(t *testing.T) {
	g, err := FromBoard("a1K a2P a8r b8r", 4)
	if err != nil {
		t.Fatal(err)
	}
	mv, _, err := g.RandomMove(1)
	if err != nil {
		t.Fatalf("white still has moves: %v", err)
	}
	if mv == "" {
		t.Fatal("random move should report what it played")
	}
}
