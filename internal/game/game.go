package game

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"quantum_chess_poc/internal/quantum"
	"quantum_chess_poc/internal/shared"
)

const zeroEps = 1e-12

// Outcome is the terminal status of a game, decided purely by which
// kings still have board support.
type Outcome int

const (
	Ongoing Outcome = iota
	WhiteWins
	BlackWins
	Draw
)

func (o Outcome) String() string {
	switch o {
	case WhiteWins:
		return "white wins"
	case BlackWins:
		return "black wins"
	case Draw:
		return "draw"
	default:
		return "ongoing"
	}
}

// Game drives a quantum chess match: it owns the amplitude store,
// move legality, turn order, castling and en-passant bookkeeping,
// and the annotated command history used for replay.
type Game struct {
	store    *quantum.Store
	rng      *rand.Rand
	step     int
	castling shared.CastlingRights
	twoStep  map[shared.Square]int
	forced   quantum.Forced
	history  []string
	initial  [shared.NumSquares]shared.Tag
}

// StartingTags is the standard chess opening placement.
func StartingTags() [shared.NumSquares]shared.Tag {
	var tags [shared.NumSquares]shared.Tag
	back := [8]shared.PieceType{
		shared.Rook, shared.Knight, shared.Bishop, shared.Queen,
		shared.King, shared.Bishop, shared.Knight, shared.Rook,
	}
	for f := 0; f < 8; f++ {
		tags[shared.SquareFromCoords(0, f)] = shared.NewTag(shared.White, back[f])
		tags[shared.SquareFromCoords(1, f)] = shared.NewTag(shared.White, shared.Pawn)
		tags[shared.SquareFromCoords(6, f)] = shared.NewTag(shared.Black, shared.Pawn)
		tags[shared.SquareFromCoords(7, f)] = shared.NewTag(shared.Black, back[f])
	}
	return tags
}

// New starts a standard game with a time-seeded random source.
func New() *Game {
	return NewSeeded(time.Now().UnixNano())
}

// NewSeeded starts a standard game with a reproducible random
// source.
func NewSeeded(seed int64) *Game {
	return NewCustom(StartingTags(), seed)
}

// NewCustom starts a game from an arbitrary placement. Reverting
// rewinds to this placement, not to the standard opening.
func NewCustom(tags [shared.NumSquares]shared.Tag, seed int64) *Game {
	g := &Game{
		rng:     rand.New(rand.NewSource(seed)),
		initial: tags,
	}
	g.reset()
	return g
}

// FromBoard starts a game from a placement list like "e1K e8k a7P".
func FromBoard(placement string, seed int64) (*Game, error) {
	rng := rand.New(rand.NewSource(seed))
	store, err := quantum.FromBoard(placement, rng)
	if err != nil {
		return nil, err
	}
	tags, _ := store.Marginals()
	g := &Game{rng: rng, initial: tags}
	g.reset()
	return g, nil
}

func (g *Game) reset() {
	g.store = quantum.New(g.initial, g.rng)
	g.step = 0
	g.castling = g.initialCastling()
	g.twoStep = make(map[shared.Square]int)
	g.forced = quantum.Forced{}
	g.history = nil
}

func (g *Game) initialCastling() shared.CastlingRights {
	var rights shared.CastlingRights
	for _, corner := range []string{"a1", "h1", "a8", "h8"} {
		sq, _ := shared.CoordToSquare(corner)
		rook := shared.NewTag(colorOfRank(sq.Rank()), shared.Rook)
		if g.initial[sq] == rook {
			rights |= shared.CastlingRight(rook.Color(), sq.File() == 7)
		}
	}
	return rights
}

func colorOfRank(rank int) shared.Color {
	if rank < 4 {
		return shared.White
	}
	return shared.Black
}

// SideToMove is white on even plies.
func (g *Game) SideToMove() shared.Color {
	if g.step%2 == 0 {
		return shared.White
	}
	return shared.Black
}

func (g *Game) Step() int { return g.step }

// History returns the annotated commands played so far. Entries
// carry a ,0 or ,1 suffix whenever the move collapsed something, so
// replaying them reproduces the position exactly.
func (g *Game) History() []string {
	return append([]string(nil), g.history...)
}

// CastlingRights reports which castling moves are still open.
func (g *Game) CastlingRights() shared.CastlingRights { return g.castling }

// Occupant returns the tag and occupancy probability of a square.
// ok is false for an empty square.
func (g *Game) Occupant(sq shared.Square) (shared.Tag, float64, bool) {
	tag := g.store.Tag(sq)
	if !tag.Present() {
		return shared.NoTag, 0, false
	}
	return tag, g.store.Probability(int(sq)), true
}

// Marginals exposes the tag and probability of every square.
func (g *Game) Marginals() ([shared.NumSquares]shared.Tag, [shared.NumSquares]float64) {
	return g.store.Marginals()
}

// AddPiece places a piece on an empty square before the first move,
// for scenario setup. The placement becomes part of the position a
// revert rewinds to.
func (g *Game) AddPiece(sq shared.Square, tag shared.Tag) error {
	if g.step != 0 || len(g.history) != 0 {
		return fmt.Errorf("%w: the game has started", ErrIllegalMove)
	}
	if err := g.store.AddPiece(sq, tag); err != nil {
		return err
	}
	g.initial[sq] = tag
	g.castling = g.initialCastling()
	return nil
}

// RemovePiece removes a fully present piece before the first move.
func (g *Game) RemovePiece(sq shared.Square) error {
	if g.step != 0 || len(g.history) != 0 {
		return fmt.Errorf("%w: the game has started", ErrIllegalMove)
	}
	if err := g.store.RemovePiece(sq); err != nil {
		return err
	}
	g.initial[sq] = shared.NoTag
	g.castling = g.initialCastling()
	return nil
}

// Clear empties the board for scenario setup.
func (g *Game) Clear() {
	g.initial = [shared.NumSquares]shared.Tag{}
	g.reset()
}

// SetForced pins the outcome of the next measuring move, the way a
// trailing ,0 or ,1 on a command does. It is consumed by the next
// successful move.
func (g *Game) SetForced(f quantum.Forced) { g.forced = f }

// Status decides the game from king support: a side without any king
// tag left has lost, both gone is a draw.
func (g *Game) Status() Outcome {
	whiteKing, blackKing := false, false
	for s := 0; s < shared.NumSquares; s++ {
		tag := g.store.Tag(shared.Square(s))
		if !tag.Present() || tag.Piece() != shared.King {
			continue
		}
		if tag.Color() == shared.White {
			whiteKing = true
		} else {
			blackKing = true
		}
	}
	switch {
	case whiteKing && blackKing:
		return Ongoing
	case whiteKing:
		return WhiteWins
	case blackKing:
		return BlackWins
	default:
		return Draw
	}
}

type snapshot struct {
	store    *quantum.Store
	step     int
	castling shared.CastlingRights
	twoStep  map[shared.Square]int
	forced   quantum.Forced
}

func (g *Game) snapshot() snapshot {
	twoStep := make(map[shared.Square]int, len(g.twoStep))
	for k, v := range g.twoStep {
		twoStep[k] = v
	}
	return snapshot{
		store:    g.store.Clone(),
		step:     g.step,
		castling: g.castling,
		twoStep:  twoStep,
		forced:   g.forced,
	}
}

func (g *Game) restore(s snapshot) {
	g.store = s.store
	g.step = s.step
	g.castling = s.castling
	g.twoStep = s.twoStep
	g.forced = s.forced
}

// Apply parses and plays one command. Either the whole move commits,
// with bookkeeping and history updated, or the game is left exactly
// as it was.
func (g *Game) Apply(raw string) (quantum.Measurement, error) {
	raw = strings.TrimSpace(raw)
	cmd, err := ParseCommand(raw)
	if err != nil {
		return quantum.Measurement{}, err
	}
	srcTag := g.store.Tag(cmd.Src)
	if !srcTag.Present() {
		return quantum.Measurement{}, fmt.Errorf("%w: %s is empty", ErrIllegalMove, cmd.Src)
	}
	if srcTag.Color() != g.SideToMove() {
		return quantum.Measurement{}, fmt.Errorf("%w: %s to move", ErrWrongTurn, g.SideToMove())
	}
	if cmd.HasSrc2 && !cmd.HasDst2 {
		if t := g.store.Tag(cmd.Src2); t != srcTag {
			return quantum.Measurement{}, fmt.Errorf("%w: cannot merge %s and %s", ErrIllegalMove, cmd.Src, cmd.Src2)
		}
	}

	force := cmd.Force
	if !force.Valid {
		force = g.forced
	}

	saved := g.snapshot()
	m, err := g.execute(cmd, srcTag, force)
	if err != nil {
		g.restore(saved)
		return quantum.Measurement{}, err
	}

	g.step++
	g.forced = quantum.Forced{}
	entry := raw
	if !cmd.Force.Valid && m.Occurred {
		entry = fmt.Sprintf("%s,%d", raw, m.Outcome)
	}
	g.history = append(g.history, entry)
	return m, nil
}

// Revert rewinds the last n moves by resetting to the initial
// placement and replaying the surviving annotated history.
func (g *Game) Revert(n int) error {
	if n < 1 {
		return fmt.Errorf("%w: revert %d", ErrIllegalMove, n)
	}
	if n > len(g.history) {
		n = len(g.history)
	}
	replay := g.history[:len(g.history)-n]
	kept := append([]string(nil), replay...)
	g.reset()
	for _, cmd := range kept {
		if _, err := g.Apply(cmd); err != nil {
			return fmt.Errorf("replay %q: %v", cmd, err)
		}
	}
	return nil
}
