package quantum

import (
	"fmt"
	"math"

	"quantum_chess_poc/internal/shared"
)

// gateBlocked reports whether a basis pattern is exempt from a gate:
// any occupied control qubit blocks it, and a non-empty anti-control
// set requires at least one occupied member.
func gateBlocked(k basisKey, ctrl, anti []int) bool {
	for _, c := range ctrl {
		if k.bit(c) == 1 {
			return true
		}
	}
	if len(anti) > 0 {
		occupied := false
		for _, a := range anti {
			if k.bit(a) == 1 {
				occupied = true
				break
			}
		}
		if !occupied {
			return true
		}
	}
	return false
}

func (s *Store) gateCheck(src, dst int, ctrl, anti []int) (shared.Tag, error) {
	if src == dst || src < 0 || dst < 0 || src >= s.numQubits() || dst >= s.numQubits() {
		return shared.NoTag, fmt.Errorf("%w: src=%d dst=%d", ErrInvalidOperands, src, dst)
	}
	seen := make(map[int]struct{}, len(ctrl)+len(anti))
	for _, c := range ctrl {
		if c == src || c == dst {
			return shared.NoTag, fmt.Errorf("%w: control %d overlaps operands", ErrInvalidOperands, c)
		}
		if _, dup := seen[c]; dup {
			return shared.NoTag, fmt.Errorf("%w: duplicate control %d", ErrInvalidOperands, c)
		}
		seen[c] = struct{}{}
	}
	for _, a := range anti {
		if a == src || a == dst {
			return shared.NoTag, fmt.Errorf("%w: anti-control %d overlaps operands", ErrInvalidOperands, a)
		}
	}
	srcTag := s.tagAt(src)
	dstTag := s.tagAt(dst)
	switch {
	case !srcTag.Present() && !dstTag.Present():
		return shared.NoTag, fmt.Errorf("%w: both %d and %d untagged", ErrTagMismatch, src, dst)
	case srcTag.Present() && dstTag.Present() && srcTag != dstTag:
		return shared.NoTag, fmt.Errorf("%w: %d=%s %d=%s", ErrTagMismatch, src, srcTag, dst, dstTag)
	case srcTag.Present():
		return srcTag, nil
	default:
		return dstTag, nil
	}
}

// applySwap applies an iswap between two qubits: in every unblocked
// pattern where exactly one of the two is occupied, the occupancy
// moves across and the amplitude picks up a factor of i (-i when
// inverse).
func (s *Store) applySwap(src, dst int, ctrl, anti []int, inverse bool) error {
	tag, err := s.gateCheck(src, dst, ctrl, anti)
	if err != nil {
		return err
	}
	phase := complex(0, 1)
	if inverse {
		phase = complex(0, -1)
	}
	s.invalidate()
	next := make(map[basisKey]complex128, len(s.amps))
	for k, a := range s.amps {
		if k.bit(src) == k.bit(dst) || gateBlocked(k, ctrl, anti) {
			next[k] = a
			continue
		}
		next[k.swap(src, dst)] = a * phase
	}
	s.amps = next
	s.setTag(src, tag)
	s.setTag(dst, tag)
	s.refreshTags()
	return nil
}

// applySqrtSwap applies a square-root iswap: each unblocked pattern
// with exactly one of the two qubits occupied splits into itself and
// the swapped pattern, each scaled by 1/sqrt(2), the swapped branch
// rotated by i (-i when inverse). Branches that cancel below the
// zero threshold are pruned.
func (s *Store) applySqrtSwap(src, dst int, ctrl, anti []int, inverse bool) error {
	tag, err := s.gateCheck(src, dst, ctrl, anti)
	if err != nil {
		return err
	}
	phase := complex(0, 1/math.Sqrt2)
	if inverse {
		phase = complex(0, -1/math.Sqrt2)
	}
	root := complex(1/math.Sqrt2, 0)
	s.invalidate()
	next := make(map[basisKey]complex128, len(s.amps)*2)
	accumulate := func(k basisKey, v complex128) {
		if old, ok := next[k]; ok {
			sum := old + v
			if real(sum)*real(sum)+imag(sum)*imag(sum) < zeroEps {
				delete(next, k)
			} else {
				next[k] = sum
			}
			return
		}
		next[k] = v
	}
	var deferred []basisKey
	var deferredAmps []complex128
	for k, a := range s.amps {
		if k.bit(src) == k.bit(dst) || gateBlocked(k, ctrl, anti) {
			next[k] = a
			continue
		}
		deferred = append(deferred, k)
		deferredAmps = append(deferredAmps, a)
	}
	for i, k := range deferred {
		a := deferredAmps[i]
		accumulate(k, a*root)
		accumulate(k.swap(src, dst), a*phase)
	}
	s.amps = next
	s.setTag(src, tag)
	s.setTag(dst, tag)
	s.refreshTags()
	return nil
}
