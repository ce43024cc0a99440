package game

import (
	"fmt"
	"strings"

	"quantum_chess_poc/internal/quantum"
	"quantum_chess_poc/internal/shared"
)

var castlingTemplates = []string{
	"e1a1,c1d1", "e1h1,g1f1",
	"e8a8,c8d8", "e8h8,g8f8",
}

func (g *Game) legal(raw string) bool {
	cmd, err := ParseCommand(raw)
	if err != nil {
		return false
	}
	srcTag := g.store.Tag(cmd.Src)
	if !srcTag.Present() || srcTag.Color() != g.SideToMove() {
		return false
	}
	if cmd.HasSrc2 && !cmd.HasDst2 && g.store.Tag(cmd.Src2) != srcTag {
		return false
	}
	_, err = g.classify(cmd, srcTag)
	return err == nil
}

// LegalMoves enumerates every playable command for the side to move,
// in a stable order: per source square, pawn moves or normal moves
// first, then splits, then merges, with castling last.
func (g *Game) LegalMoves() []string {
	side := g.SideToMove()
	var moves []string
	emit := func(raw string) {
		if g.legal(raw) {
			moves = append(moves, raw)
		}
	}

	for s := 0; s < shared.NumSquares; s++ {
		src := shared.Square(s)
		srcTag := g.store.Tag(src)
		if !srcTag.Present() || srcTag.Color() != side {
			continue
		}
		if srcTag.Piece() == shared.Pawn {
			g.emitPawnMoves(src, srcTag, emit)
			continue
		}

		var dsts []shared.Square
		for d := 0; d < shared.NumSquares; d++ {
			if geometryFor(srcTag.Piece(), src, shared.Square(d)) {
				dsts = append(dsts, shared.Square(d))
			}
		}
		for _, dst := range dsts {
			emit(fmt.Sprintf("%s,%s", src, dst))
		}
		for _, dst := range dsts {
			for _, dst2 := range dsts {
				if dst2 != dst {
					emit(fmt.Sprintf("%s,%s%s", src, dst, dst2))
				}
			}
		}
		for s2 := 0; s2 < shared.NumSquares; s2++ {
			src2 := shared.Square(s2)
			if src2 == src || g.store.Tag(src2) != srcTag {
				continue
			}
			for _, dst := range dsts {
				if dst != src2 && geometryFor(srcTag.Piece(), src2, dst) {
					emit(fmt.Sprintf("%s%s,%s", src, src2, dst))
				}
			}
		}
		if srcTag.Piece() == shared.King {
			for _, raw := range castlingTemplates {
				if strings.HasPrefix(raw, src.String()) {
					emit(raw)
				}
			}
		}
	}
	return moves
}

func (g *Game) emitPawnMoves(src shared.Square, srcTag shared.Tag, emit func(string)) {
	dir, startRank, lastRank := 1, 1, 7
	if srcTag.Color() == shared.Black {
		dir, startRank, lastRank = -1, 6, 0
	}
	var dsts []shared.Square
	rank := src.Rank() + dir
	if rank >= 0 && rank < 8 {
		for _, f := range []int{src.File() - 1, src.File(), src.File() + 1} {
			if f >= 0 && f < 8 {
				dsts = append(dsts, shared.SquareFromCoords(rank, f))
			}
		}
	}
	if src.Rank() == startRank {
		dsts = append(dsts, shared.SquareFromCoords(src.Rank()+2*dir, src.File()))
	}
	for _, dst := range dsts {
		if dst.Rank() == lastRank {
			for _, promo := range []string{"q", "r", "b", "n"} {
				emit(fmt.Sprintf("%s,%s%s", src, dst, promo))
			}
		} else {
			emit(fmt.Sprintf("%s,%s", src, dst))
		}
	}
}

// RandomMove plays one weighted legal move: commands with a double
// destination (splits and castling) carry splitWeight relative to
// everything else. Moves that fail to apply are dropped and another
// is drawn.
func (g *Game) RandomMove(splitWeight float64) (string, quantum.Measurement, error) {
	if splitWeight <= 0 {
		splitWeight = 1
	}
	moves := g.LegalMoves()
	for len(moves) > 0 {
		total := 0.0
		for _, mv := range moves {
			total += moveWeight(mv, splitWeight)
		}
		r := g.rng.Float64() * total
		pick := len(moves) - 1
		for i, mv := range moves {
			r -= moveWeight(mv, splitWeight)
			if r < 0 {
				pick = i
				break
			}
		}
		mv := moves[pick]
		m, err := g.Apply(mv)
		if err == nil {
			return mv, m, nil
		}
		moves = append(moves[:pick], moves[pick+1:]...)
	}
	return "", quantum.Measurement{}, ErrNoMoves
}

func moveWeight(raw string, splitWeight float64) float64 {
	parts := strings.SplitN(raw, ",", 2)
	if len(parts) == 2 && len(parts[1]) == 4 {
		return splitWeight
	}
	return 1
}
