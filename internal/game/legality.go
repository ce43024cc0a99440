package game

import (
	"fmt"
	"sort"

	"quantum_chess_poc/internal/shared"
)

type moveKind int

const (
	moveIllegal moveKind = iota
	moveNormal
	moveBlocked
	moveCapture
	moveSplit
	moveMerge
	movePawnOneStep
	movePawnOneStepBlocked
	movePawnTwoStep
	movePawnTwoStepBlocked
	movePawnCapture
	moveEnPassant
	moveCastling
)

// plan is a classified move: its kind plus the occupied path cells
// the simulator gates need to condition on.
type plan struct {
	kind   moveKind
	path   []int
	path2  []int
	victim shared.Square
}

func absInt(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func knightMove(a, b shared.Square) bool {
	dr := absInt(a.Rank() - b.Rank())
	df := absInt(a.File() - b.File())
	return dr*df == 2
}

func kingMove(a, b shared.Square) bool {
	dr := absInt(a.Rank() - b.Rank())
	df := absInt(a.File() - b.File())
	return a != b && dr <= 1 && df <= 1
}

func rookMove(a, b shared.Square) bool {
	return a != b && (a.Rank() == b.Rank() || a.File() == b.File())
}

func bishopMove(a, b shared.Square) bool {
	dr := absInt(a.Rank() - b.Rank())
	return a != b && dr == absInt(a.File()-b.File())
}

func geometryFor(piece shared.PieceType, a, b shared.Square) bool {
	switch piece {
	case shared.Knight:
		return knightMove(a, b)
	case shared.King:
		return kingMove(a, b)
	case shared.Rook:
		return rookMove(a, b)
	case shared.Bishop:
		return bishopMove(a, b)
	case shared.Queen:
		return rookMove(a, b) || bishopMove(a, b)
	default:
		return false
	}
}

func isSlider(piece shared.PieceType) bool {
	return piece == shared.Rook || piece == shared.Bishop || piece == shared.Queen
}

// occupiedPath is the set of tagged squares strictly between a and
// b, the cells a slide has to tunnel through.
func (g *Game) occupiedPath(a, b shared.Square) []int {
	var path []int
	for _, sq := range shared.Line(a, b) {
		if g.store.Tag(sq).Present() {
			path = append(path, int(sq))
		}
	}
	return path
}

// pathWithout prepares one control path of a split or merge leg: the
// occupied squares between a and b with the leg's sibling endpoint
// removed, so the gates below do not condition a leg on its own twin.
// A collinear pair (rook halves on one file merging further along it)
// would otherwise see the twin as a blocker.
func (g *Game) pathWithout(a, b, sibling shared.Square) []int {
	var path []int
	for _, c := range g.occupiedPath(a, b) {
		if c != int(sibling) {
			path = append(path, c)
		}
	}
	sort.Ints(path)
	return path
}

func (g *Game) pathFullyBlocked(path []int) bool {
	for _, c := range path {
		if g.store.Probability(c) > 1-zeroEps {
			return true
		}
	}
	return false
}

func (g *Game) preprocess(cmd Command, srcTag shared.Tag) error {
	if cmd.Src == cmd.Dst {
		return fmt.Errorf("%w: %s does not move", ErrIllegalMove, cmd.Src)
	}
	if cmd.HasSrc2 {
		if cmd.Src2 == cmd.Src || cmd.Src2 == cmd.Dst {
			return fmt.Errorf("%w: merge operands overlap", ErrIllegalMove)
		}
		if g.store.Tag(cmd.Src2) != srcTag {
			return fmt.Errorf("%w: %s does not hold the merged piece", ErrIllegalMove, cmd.Src2)
		}
	}
	if cmd.HasDst2 {
		if cmd.Dst2 == cmd.Src || cmd.Dst2 == cmd.Dst {
			return fmt.Errorf("%w: split operands overlap", ErrIllegalMove)
		}
	}
	return nil
}

// classify decides what a parsed command means on the current
// position. It never mutates the game.
func (g *Game) classify(cmd Command, srcTag shared.Tag) (plan, error) {
	if cmd.HasSrc2 && cmd.HasDst2 {
		return g.classifyCastling(cmd, srcTag)
	}
	if err := g.preprocess(cmd, srcTag); err != nil {
		return plan{}, err
	}
	piece := srcTag.Piece()
	if piece == shared.Pawn {
		return g.classifyPawn(cmd, srcTag)
	}
	if cmd.HasPromotion {
		return plan{}, fmt.Errorf("%w: only pawns promote", ErrIllegalMove)
	}
	if !geometryFor(piece, cmd.Src, cmd.Dst) {
		return plan{}, fmt.Errorf("%w: %s cannot reach %s from %s", ErrIllegalMove, piece, cmd.Dst, cmd.Src)
	}

	dstTag := g.store.Tag(cmd.Dst)
	free := !dstTag.Present() || dstTag == srcTag

	switch {
	case cmd.HasDst2:
		if !geometryFor(piece, cmd.Src, cmd.Dst2) {
			return plan{}, fmt.Errorf("%w: %s cannot reach %s from %s", ErrIllegalMove, piece, cmd.Dst2, cmd.Src)
		}
		dst2Tag := g.store.Tag(cmd.Dst2)
		if !free || (dst2Tag.Present() && dst2Tag != srcTag) {
			return plan{}, fmt.Errorf("%w: split targets are taken", ErrIllegalMove)
		}
		p := plan{kind: moveSplit}
		if isSlider(piece) {
			p.path = g.pathWithout(cmd.Src, cmd.Dst, cmd.Dst2)
			p.path2 = g.pathWithout(cmd.Src, cmd.Dst2, cmd.Dst)
			if g.pathFullyBlocked(p.path) || g.pathFullyBlocked(p.path2) {
				return plan{}, fmt.Errorf("%w: split path is blocked", ErrIllegalMove)
			}
		}
		return p, nil

	case cmd.HasSrc2:
		if !geometryFor(piece, cmd.Src2, cmd.Dst) {
			return plan{}, fmt.Errorf("%w: %s cannot reach %s from %s", ErrIllegalMove, piece, cmd.Dst, cmd.Src2)
		}
		if !free {
			return plan{}, fmt.Errorf("%w: merge target is taken", ErrIllegalMove)
		}
		p := plan{kind: moveMerge}
		if isSlider(piece) {
			p.path = g.pathWithout(cmd.Src, cmd.Dst, cmd.Src2)
			p.path2 = g.pathWithout(cmd.Src2, cmd.Dst, cmd.Src)
			if g.pathFullyBlocked(p.path) || g.pathFullyBlocked(p.path2) {
				return plan{}, fmt.Errorf("%w: merge path is blocked", ErrIllegalMove)
			}
		}
		return p, nil

	case free:
		p := plan{kind: moveNormal}
		if isSlider(piece) {
			p.path = g.occupiedPath(cmd.Src, cmd.Dst)
			if g.pathFullyBlocked(p.path) {
				return plan{}, fmt.Errorf("%w: path is blocked", ErrIllegalMove)
			}
		}
		return p, nil

	case dstTag.Color() == srcTag.Color():
		if g.store.Probability(int(cmd.Dst)) > 1-zeroEps {
			return plan{}, fmt.Errorf("%w: %s is taken", ErrIllegalMove, cmd.Dst)
		}
		p := plan{kind: moveBlocked}
		if isSlider(piece) {
			p.path = g.occupiedPath(cmd.Src, cmd.Dst)
			if g.pathFullyBlocked(p.path) {
				return plan{}, fmt.Errorf("%w: path is blocked", ErrIllegalMove)
			}
		}
		return p, nil

	default:
		p := plan{kind: moveCapture}
		if isSlider(piece) {
			p.path = g.occupiedPath(cmd.Src, cmd.Dst)
			if g.pathFullyBlocked(p.path) {
				return plan{}, fmt.Errorf("%w: path is blocked", ErrIllegalMove)
			}
		}
		return p, nil
	}
}

func (g *Game) classifyPawn(cmd Command, srcTag shared.Tag) (plan, error) {
	if cmd.HasSrc2 || cmd.HasDst2 {
		return plan{}, fmt.Errorf("%w: pawns cannot split or merge", ErrIllegalMove)
	}
	dir, startRank, lastRank := 1, 1, 7
	if srcTag.Color() == shared.Black {
		dir, startRank, lastRank = -1, 6, 0
	}
	if cmd.HasPromotion != (cmd.Dst.Rank() == lastRank) {
		return plan{}, fmt.Errorf("%w: promotion and back rank must go together", ErrIllegalMove)
	}

	dr := cmd.Dst.Rank() - cmd.Src.Rank()
	df := cmd.Dst.File() - cmd.Src.File()
	dstTag := g.store.Tag(cmd.Dst)

	switch {
	case df == 0 && dr == dir:
		if !dstTag.Present() {
			return plan{kind: movePawnOneStep}, nil
		}
		if g.store.Probability(int(cmd.Dst)) <= 1-zeroEps {
			return plan{kind: movePawnOneStepBlocked}, nil
		}

	case df == 0 && dr == 2*dir && cmd.Src.Rank() == startRank:
		mid := shared.SquareFromCoords(cmd.Src.Rank()+dir, cmd.Src.File())
		if g.store.Tag(mid).Present() && g.store.Probability(int(mid)) > 1-zeroEps {
			break
		}
		var path []int
		if g.store.Tag(mid).Present() {
			path = []int{int(mid)}
		}
		if !dstTag.Present() || (dstTag == srcTag && g.store.Probability(int(cmd.Dst)) <= 1-zeroEps) {
			return plan{kind: movePawnTwoStep, path: path}, nil
		}
		if g.store.Probability(int(cmd.Dst)) <= 1-zeroEps {
			return plan{kind: movePawnTwoStepBlocked, path: path}, nil
		}

	case absInt(df) == 1 && dr == dir:
		if dstTag.Present() && dstTag.Color() != srcTag.Color() {
			return plan{kind: movePawnCapture}, nil
		}
		victim := shared.SquareFromCoords(cmd.Src.Rank(), cmd.Dst.File())
		victimTag := g.store.Tag(victim)
		if !dstTag.Present() && victimTag.Present() &&
			victimTag == shared.NewTag(srcTag.Color().Other(), shared.Pawn) {
			if step, ok := g.twoStep[victim]; ok && step == g.step-1 {
				return plan{kind: moveEnPassant, victim: victim}, nil
			}
		}
	}
	return plan{}, fmt.Errorf("%w: pawn %s to %s", ErrIllegalMove, cmd.Src, cmd.Dst)
}

func (g *Game) classifyCastling(cmd Command, srcTag shared.Tag) (plan, error) {
	side := srcTag.Color()
	homeRank := 0
	if side == shared.Black {
		homeRank = 7
	}
	kingHome := shared.SquareFromCoords(homeRank, 4)
	if srcTag != shared.NewTag(side, shared.King) || cmd.Src != kingHome {
		return plan{}, fmt.Errorf("%w: castling needs the king on %s", ErrIllegalMove, kingHome)
	}
	if g.store.Probability(int(cmd.Src)) <= 1-zeroEps {
		return plan{}, fmt.Errorf("%w: king is not settled on %s", ErrIllegalMove, cmd.Src)
	}
	if cmd.Src2.Rank() != homeRank || (cmd.Src2.File() != 0 && cmd.Src2.File() != 7) {
		return plan{}, fmt.Errorf("%w: %s is not a rook home square", ErrIllegalMove, cmd.Src2)
	}
	if g.store.Tag(cmd.Src2) != shared.NewTag(side, shared.Rook) {
		return plan{}, fmt.Errorf("%w: no rook on %s", ErrIllegalMove, cmd.Src2)
	}
	if g.store.Probability(int(cmd.Src2)) <= 1-zeroEps {
		return plan{}, fmt.Errorf("%w: rook is not settled on %s", ErrIllegalMove, cmd.Src2)
	}
	kingside := cmd.Src2.File() == 7
	if !g.castling.Has(shared.CastlingRight(side, kingside)) {
		return plan{}, fmt.Errorf("%w: castling right is gone", ErrIllegalMove)
	}
	kingFile, rookFile := 2, 3
	if kingside {
		kingFile, rookFile = 6, 5
	}
	if cmd.Dst != shared.SquareFromCoords(homeRank, kingFile) ||
		cmd.Dst2 != shared.SquareFromCoords(homeRank, rookFile) {
		return plan{}, fmt.Errorf("%w: malformed castling targets", ErrIllegalMove)
	}
	for _, sq := range shared.Line(cmd.Src, cmd.Src2) {
		if g.store.Tag(sq).Present() {
			return plan{}, fmt.Errorf("%w: %s stands in the way", ErrIllegalMove, sq)
		}
	}
	return plan{kind: moveCastling}, nil
}
