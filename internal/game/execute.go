package game

import (
	"quantum_chess_poc/internal/quantum"
	"quantum_chess_poc/internal/shared"
)

// execute plays an already ownership-checked command on the live
// store. The caller holds a snapshot and restores it on error, so
// partial gate sequences never leak out.
func (g *Game) execute(cmd Command, srcTag shared.Tag, force quantum.Forced) (quantum.Measurement, error) {
	p, err := g.classify(cmd, srcTag)
	if err != nil {
		return quantum.Measurement{}, err
	}

	src, dst := int(cmd.Src), int(cmd.Dst)
	slider := isSlider(srcTag.Piece())
	var m quantum.Measurement

	switch p.kind {
	case moveNormal:
		if slider {
			err = g.store.NormalSlide(src, dst, p.path)
		} else {
			err = g.store.NormalJump(src, dst)
		}

	case moveBlocked:
		if slider {
			m, err = g.store.BlockedSlide(src, dst, p.path, force)
		} else {
			m, err = g.store.BlockedJump(src, dst, force)
		}

	case moveCapture:
		if slider {
			m, err = g.store.CaptureSlide(src, dst, p.path, force, false)
		} else {
			m, err = g.store.CaptureJump(src, dst, force, false)
		}

	case moveSplit:
		if slider {
			err = g.store.SplitSlide(src, dst, int(cmd.Dst2), p.path, p.path2)
		} else {
			err = g.store.SplitJump(src, dst, int(cmd.Dst2))
		}

	case moveMerge:
		if slider {
			err = g.store.MergeSlide(src, int(cmd.Src2), dst, p.path, p.path2)
		} else {
			err = g.store.MergeJump(src, int(cmd.Src2), dst)
		}

	case movePawnOneStep:
		if err = g.store.NormalJump(src, dst); err == nil {
			g.migrateTwoStep(cmd.Src, cmd.Dst)
		}

	case movePawnOneStepBlocked:
		if m, err = g.store.BlockedJump(src, dst, force); err == nil && m.Outcome == 0 {
			g.migrateTwoStep(cmd.Src, cmd.Dst)
		}

	case movePawnTwoStep:
		if err = g.store.NormalSlide(src, dst, p.path); err == nil {
			g.twoStep[cmd.Dst] = g.step
			if len(p.path) == 0 {
				delete(g.twoStep, cmd.Src)
			}
		}

	case movePawnTwoStepBlocked:
		if m, err = g.store.BlockedSlide(src, dst, p.path, force); err == nil && m.Outcome == 0 {
			g.twoStep[cmd.Dst] = g.step
			if len(p.path) == 0 {
				delete(g.twoStep, cmd.Src)
			}
		}

	case movePawnCapture:
		if m, err = g.store.CaptureJump(src, dst, force, true); err == nil {
			g.migrateTwoStep(cmd.Src, cmd.Dst)
			if g.store.Tag(cmd.Src).Present() {
				if v, ok := g.twoStep[cmd.Dst]; ok {
					g.twoStep[cmd.Src] = v
				}
			}
		}

	case moveEnPassant:
		m, err = g.store.CaptureJump(src, int(p.victim), force, true)
		if err == nil {
			// The captured pawn's square always slides on to the
			// destination, even when the attacker collapsed away.
			err = g.store.NormalJump(int(p.victim), dst)
		}
		if err == nil {
			delete(g.twoStep, p.victim)
			g.migrateTwoStep(cmd.Src, cmd.Dst)
		}

	case moveCastling:
		if err = g.store.NormalJump(src, dst); err == nil {
			err = g.store.NormalJump(int(cmd.Src2), int(cmd.Dst2))
		}
		if err == nil {
			side := srcTag.Color()
			g.castling = g.castling.Without(shared.CastlingRight(side, true))
			g.castling = g.castling.Without(shared.CastlingRight(side, false))
		}

	default:
		return quantum.Measurement{}, ErrIllegalMove
	}
	if err != nil {
		return quantum.Measurement{}, err
	}

	if cmd.HasPromotion && g.store.Tag(cmd.Dst) == srcTag {
		if err := g.store.ChangeTag(cmd.Dst, shared.NewTag(srcTag.Color(), cmd.Promotion)); err != nil {
			return quantum.Measurement{}, err
		}
	}
	g.maintainRights(cmd, srcTag)
	return m, nil
}

func (g *Game) migrateTwoStep(src, dst shared.Square) {
	if v, ok := g.twoStep[src]; ok {
		delete(g.twoStep, src)
		g.twoStep[dst] = v
	} else {
		delete(g.twoStep, dst)
	}
}

// maintainRights drops castling rights once a rook leaves its corner
// or a king leaves its home square with any probability at all.
func (g *Game) maintainRights(cmd Command, srcTag shared.Tag) {
	sources := []shared.Square{cmd.Src}
	if cmd.HasSrc2 {
		sources = append(sources, cmd.Src2)
	}
	for _, sq := range sources {
		moved := g.store.Probability(int(sq)) <= 1-zeroEps
		if !moved {
			continue
		}
		side := colorOfRank(sq.Rank())
		switch {
		case srcTag.Piece() == shared.Rook && (sq.File() == 0 || sq.File() == 7) &&
			(sq.Rank() == 0 || sq.Rank() == 7):
			g.castling = g.castling.Without(shared.CastlingRight(side, sq.File() == 7))
		case srcTag.Piece() == shared.King && sq.File() == 4 &&
			(sq.Rank() == 0 || sq.Rank() == 7):
			g.castling = g.castling.Without(shared.CastlingRight(side, true))
			g.castling = g.castling.Without(shared.CastlingRight(side, false))
		}
	}
}
