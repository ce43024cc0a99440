package quantum

import (
	"fmt"

	"quantum_chess_poc/internal/shared"
)

// Forced optionally pins a measurement outcome instead of sampling
// it. The zero value leaves the outcome to the random source.
type Forced struct {
	Outcome int
	Valid   bool
}

// Force pins a measurement to the given outcome, 0 or 1.
func Force(outcome int) Forced { return Forced{Outcome: outcome, Valid: true} }

// Measurement records one collapse: the observed outcome and the
// chance of outcome 1 just before collapsing. Occurred is false when
// an operation finished without measuring anything.
type Measurement struct {
	Outcome  int
	ProbOne  float64
	Occurred bool
}

// Measure collapses qubit i. Branches inconsistent with the outcome
// are dropped and the rest rescaled, then every ancilla that ended
// up with a certain value is freed.
func (s *Store) Measure(i int, force Forced) (Measurement, error) {
	if i < 0 || i >= s.numQubits() {
		return Measurement{}, fmt.Errorf("%w: index %d", ErrInvalidOperands, i)
	}
	prob := s.Probability(i)
	var outcome int
	switch {
	case prob < zeroEps:
		if force.Valid && force.Outcome == 1 {
			return Measurement{}, fmt.Errorf("%w: qubit %d never occupied", ErrIllegalMeasurement, i)
		}
		outcome = 0
	case prob > 1-zeroEps:
		if force.Valid && force.Outcome == 0 {
			return Measurement{}, fmt.Errorf("%w: qubit %d always occupied", ErrIllegalMeasurement, i)
		}
		outcome = 1
	default:
		if force.Valid {
			outcome = force.Outcome
		} else if s.rng.Float64() < prob {
			outcome = 1
		}
	}
	var drop []basisKey
	for k := range s.amps {
		if int(k.bit(i)) != outcome {
			drop = append(drop, k)
		}
	}
	if err := s.dropKeys(drop); err != nil {
		return Measurement{}, err
	}
	s.freeCollapsedAncillas()
	return Measurement{Outcome: outcome, ProbOne: prob, Occurred: true}, nil
}

// checkMove validates the common move operand shape: distinct board
// squares and a duplicate-free path that avoids all endpoints.
func checkMove(path []int, endpoints ...int) error {
	for i, a := range endpoints {
		if a < 0 || a >= shared.NumSquares {
			return fmt.Errorf("%w: square %d", ErrInvalidOperands, a)
		}
		for _, b := range endpoints[i+1:] {
			if a == b {
				return fmt.Errorf("%w: duplicate square %d", ErrInvalidOperands, a)
			}
		}
	}
	seen := make(map[int]struct{}, len(path))
	for _, p := range path {
		if p < 0 || p >= shared.NumSquares {
			return fmt.Errorf("%w: path square %d", ErrInvalidOperands, p)
		}
		if _, dup := seen[p]; dup {
			return fmt.Errorf("%w: duplicate path square %d", ErrInvalidOperands, p)
		}
		seen[p] = struct{}{}
		for _, a := range endpoints {
			if p == a {
				return fmt.Errorf("%w: path crosses square %d", ErrInvalidOperands, p)
			}
		}
	}
	return nil
}

func unionPath(p1, p2 []int) []int {
	out := make([]int, 0, len(p1)+len(p2))
	seen := make(map[int]struct{}, len(p1)+len(p2))
	for _, p := range append(append([]int(nil), p1...), p2...) {
		if _, dup := seen[p]; !dup {
			seen[p] = struct{}{}
			out = append(out, p)
		}
	}
	return out
}

// NormalJump moves a piece with no path to worry about.
func (s *Store) NormalJump(src, dst int) error {
	return s.NormalSlide(src, dst, nil)
}

// NormalSlide moves a piece along a path of possibly-occupied
// squares. The move happens in exactly the branches where the whole
// path is empty.
func (s *Store) NormalSlide(src, dst int, path []int) error {
	if err := checkMove(path, src, dst); err != nil {
		return err
	}
	srcTag := s.tagAt(src)
	dstTag := s.tagAt(dst)
	if !srcTag.Present() || (dstTag.Present() && dstTag != srcTag) {
		return fmt.Errorf("%w: src=%d dst=%d", ErrInvalidOperands, src, dst)
	}
	for _, p := range path {
		if s.Probability(p) > 1-zeroEps {
			return fmt.Errorf("%w: path square %d occupied", ErrInvalidOperands, p)
		}
	}
	return s.applySwap(src, dst, path, nil, false)
}

// SplitJump spreads a piece over two destinations.
func (s *Store) SplitJump(src, dst1, dst2 int) error {
	return s.SplitSlide(src, dst1, dst2, nil, nil)
}

// SplitSlide spreads a piece over two destinations along their
// respective paths. After the balanced split, correction swaps move
// amplitude that one blocked path held back through the other side.
func (s *Store) SplitSlide(src, dst1, dst2 int, path1, path2 []int) error {
	if err := checkMove(path1, src, dst1, dst2); err != nil {
		return err
	}
	if err := checkMove(path2, src, dst1, dst2); err != nil {
		return err
	}
	srcTag := s.tagAt(src)
	if !srcTag.Present() {
		return fmt.Errorf("%w: src=%d untagged", ErrInvalidOperands, src)
	}
	for _, d := range []int{dst1, dst2} {
		if t := s.tagAt(d); t.Present() && t != srcTag {
			return fmt.Errorf("%w: dst=%d", ErrInvalidOperands, d)
		}
	}
	if s.pathBlocked(path1) && s.pathBlocked(path2) {
		return fmt.Errorf("%w: both paths blocked", ErrInvalidOperands)
	}
	both := unionPath(path1, path2)
	if err := s.applySqrtSwap(src, dst1, both, nil, false); err != nil {
		return err
	}
	if s.tagAt(src).Present() || s.tagAt(dst2).Present() {
		if err := s.applySwap(src, dst2, both, nil, false); err != nil {
			return err
		}
	}
	if (s.tagAt(src).Present() || s.tagAt(dst1).Present()) && len(path2) > 0 {
		if err := s.applySwap(src, dst1, path1, path2, false); err != nil {
			return err
		}
	}
	if (s.tagAt(src).Present() || s.tagAt(dst2).Present()) && len(path1) > 0 {
		if err := s.applySwap(src, dst2, path2, path1, false); err != nil {
			return err
		}
	}
	return nil
}

// MergeJump recombines a piece from two sources.
func (s *Store) MergeJump(src1, src2, dst int) error {
	return s.MergeSlide(src1, src2, dst, nil, nil)
}

// MergeSlide recombines a split piece onto one destination. It is
// the phase inverse of SplitSlide with the gate order reversed, so a
// merge along the same geometry undoes the split exactly.
func (s *Store) MergeSlide(src1, src2, dst int, path1, path2 []int) error {
	if err := checkMove(path1, src1, src2, dst); err != nil {
		return err
	}
	if err := checkMove(path2, src1, src2, dst); err != nil {
		return err
	}
	tag1 := s.tagAt(src1)
	tag2 := s.tagAt(src2)
	dstTag := s.tagAt(dst)
	if !tag1.Present() || !tag2.Present() || tag1 != tag2 || (dstTag.Present() && dstTag != tag1) {
		return fmt.Errorf("%w: src1=%d src2=%d dst=%d", ErrInvalidOperands, src1, src2, dst)
	}
	if s.pathBlocked(path1) && s.pathBlocked(path2) {
		return fmt.Errorf("%w: both paths blocked", ErrInvalidOperands)
	}
	both := unionPath(path1, path2)
	if len(path1) > 0 {
		if err := s.applySwap(dst, src2, path2, path1, true); err != nil {
			return err
		}
	}
	if (s.tagAt(dst).Present() || s.tagAt(src1).Present()) && len(path2) > 0 {
		if err := s.applySwap(dst, src1, path1, path2, true); err != nil {
			return err
		}
	}
	if s.tagAt(dst).Present() || s.tagAt(src2).Present() {
		if err := s.applySwap(dst, src2, both, nil, true); err != nil {
			return err
		}
	}
	if s.tagAt(dst).Present() || s.tagAt(src1).Present() {
		if err := s.applySqrtSwap(dst, src1, both, nil, true); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) pathBlocked(path []int) bool {
	for _, p := range path {
		if s.Probability(p) > 1-zeroEps {
			return true
		}
	}
	return false
}

// BlockedJump is BlockedSlide with an empty path.
func (s *Store) BlockedJump(src, dst int, force Forced) (Measurement, error) {
	return s.BlockedSlide(src, dst, nil, force)
}

// BlockedSlide resolves a move onto a square partially held by a
// differently tagged piece: the destination is measured, and only an
// empty outcome lets the mover slide in.
func (s *Store) BlockedSlide(src, dst int, path []int, force Forced) (Measurement, error) {
	if err := checkMove(path, src, dst); err != nil {
		return Measurement{}, err
	}
	srcTag := s.tagAt(src)
	dstTag := s.tagAt(dst)
	if !srcTag.Present() || !dstTag.Present() || srcTag == dstTag {
		return Measurement{}, fmt.Errorf("%w: src=%d dst=%d", ErrInvalidOperands, src, dst)
	}
	if s.Probability(src) < zeroEps || s.Probability(dst) > 1-zeroEps {
		return Measurement{}, fmt.Errorf("%w: src=%d dst=%d", ErrInvalidOperands, src, dst)
	}
	for _, p := range path {
		pr := s.Probability(p)
		if pr <= zeroEps || pr >= 1-zeroEps {
			return Measurement{}, fmt.Errorf("%w: path square %d", ErrInvalidOperands, p)
		}
	}
	m, err := s.Measure(dst, force)
	if err != nil {
		return Measurement{}, err
	}
	if m.Outcome == 0 && s.tagAt(src).Present() {
		if err := s.applySwap(src, dst, path, nil, false); err != nil {
			return Measurement{}, err
		}
	}
	return m, nil
}

// capture branch partition: a pattern defeats the capture when the
// path is blocked with the mover absent, or the mover sits behind a
// blocked path together with the target, or the target is there
// while the mover is not.
func captureFails(pathOcc, dstOcc, srcOcc bool) bool {
	switch {
	case !pathOcc && !dstOcc && !srcOcc:
		return true
	case pathOcc && dstOcc:
		return true
	case !pathOcc && dstOcc && !srcOcc:
		return true
	}
	return false
}

func (s *Store) capturePartition(src, dst int, path []int) (m0, m1 []basisKey) {
	for k := range s.amps {
		pathOcc := false
		for _, p := range path {
			if k.bit(p) == 1 {
				pathOcc = true
				break
			}
		}
		if captureFails(pathOcc, k.bit(dst) == 1, k.bit(src) == 1) {
			m0 = append(m0, k)
		} else {
			m1 = append(m1, k)
		}
	}
	return m0, m1
}

func (s *Store) mass(keys []basisKey) float64 {
	total := 0.0
	for _, k := range keys {
		a := s.amps[k]
		total += real(a)*real(a) + imag(a)*imag(a)
	}
	return total
}

// CaptureProbability reports the chance that a capture along the
// given path succeeds, without touching the state.
func (s *Store) CaptureProbability(src, dst int, path []int) (float64, error) {
	if len(path) == 0 {
		if err := checkMove(nil, src, dst); err != nil {
			return 0, err
		}
		return s.Probability(src), nil
	}
	if err := checkMove(path, src, dst); err != nil {
		return 0, err
	}
	_, m1 := s.capturePartition(src, dst, path)
	return s.mass(m1), nil
}

func (s *Store) checkCaptureTags(src, dst int, isPawn bool) error {
	srcTag := s.tagAt(src)
	dstTag := s.tagAt(dst)
	if !srcTag.Present() || !dstTag.Present() || srcTag.Color() == dstTag.Color() {
		return fmt.Errorf("%w: src=%d dst=%d", ErrInvalidOperands, src, dst)
	}
	if isPawn && srcTag.Piece() != shared.Pawn {
		return fmt.Errorf("%w: src=%d is not a pawn", ErrInvalidOperands, src)
	}
	return nil
}

// shuntAndSwap runs the post-measurement half of a capture: any
// surviving target amplitude is parked on a fresh ancilla, then the
// attacker swaps in. A pawn only advances in branches where the
// target was really there, so its swap is anti-controlled on the
// ancilla.
func (s *Store) shuntAndSwap(src, dst int, path []int, isPawn bool) error {
	ancilla := -1
	if s.tagAt(dst).Present() {
		ancilla = s.AddAncilla()
		if err := s.applySwap(dst, ancilla, path, nil, false); err != nil {
			return err
		}
	}
	if isPawn {
		if ancilla >= 0 {
			if err := s.applySwap(src, dst, path, []int{ancilla}, false); err != nil {
				return err
			}
		}
	} else {
		if err := s.applySwap(src, dst, path, nil, false); err != nil {
			return err
		}
	}
	if ancilla >= 0 && ancilla < s.numQubits() {
		p := s.Probability(ancilla)
		if p < zeroEps || p > 1-zeroEps {
			if err := s.dropAncilla(ancilla); err != nil {
				return err
			}
		}
	}
	return nil
}

// CaptureJump captures on an adjacent or jumping move: the attacker
// is measured first, and only a present attacker displaces the
// target.
func (s *Store) CaptureJump(src, dst int, force Forced, isPawn bool) (Measurement, error) {
	if err := checkMove(nil, src, dst); err != nil {
		return Measurement{}, err
	}
	if err := s.checkCaptureTags(src, dst, isPawn); err != nil {
		return Measurement{}, err
	}
	if s.Probability(src) < zeroEps {
		return Measurement{}, fmt.Errorf("%w: src=%d never occupied", ErrInvalidOperands, src)
	}
	m, err := s.Measure(src, force)
	if err != nil {
		return Measurement{}, err
	}
	if m.Outcome == 1 {
		if err := s.shuntAndSwap(src, dst, nil, isPawn); err != nil {
			return Measurement{}, err
		}
	}
	return m, nil
}

// CaptureSlide captures along a path. Instead of measuring single
// squares it measures the joint success predicate over path, target
// and attacker, keeping as much superposition alive as possible. A
// capture whose success probability is zero is a silent no-op.
func (s *Store) CaptureSlide(src, dst int, path []int, force Forced, isPawn bool) (Measurement, error) {
	if len(path) == 0 {
		return s.CaptureJump(src, dst, force, isPawn)
	}
	if err := checkMove(path, src, dst); err != nil {
		return Measurement{}, err
	}
	if err := s.checkCaptureTags(src, dst, isPawn); err != nil {
		return Measurement{}, err
	}
	m0, m1 := s.capturePartition(src, dst, path)
	probOne := s.mass(m1)
	if probOne < zeroEps {
		return Measurement{}, nil
	}
	var outcome int
	if force.Valid {
		outcome = force.Outcome
	} else if s.rng.Float64() < probOne {
		outcome = 1
	}
	doomed := m1
	if outcome == 1 {
		doomed = m0
	}
	if err := s.dropKeys(doomed); err != nil {
		return Measurement{}, err
	}
	m := Measurement{Outcome: outcome, ProbOne: probOne, Occurred: true}
	if outcome == 1 {
		if err := s.shuntAndSwap(src, dst, path, isPawn); err != nil {
			return Measurement{}, err
		}
	}
	return m, nil
}
