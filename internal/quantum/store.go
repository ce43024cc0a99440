package quantum

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"strings"

	"quantum_chess_poc/internal/shared"
)

// zeroEps is the squared-amplitude threshold below which a branch is
// treated as impossible and above (1-zeroEps) as certain.
const zeroEps = 1e-12

// Store is a sparse simulator over board occupancy qubits. Each live
// basis pattern maps to a complex amplitude, and every square with
// any support carries a piece tag.
type Store struct {
	amps      map[basisKey]complex128
	tags      [shared.NumSquares]shared.Tag
	ancTags   []shared.Tag
	probCache map[int]float64
	rng       *rand.Rand
}

// New builds a classical state: every tagged square occupied with
// certainty, everything else empty.
func New(tags [shared.NumSquares]shared.Tag, rng *rand.Rand) *Store {
	var key basisKey
	for i, t := range tags {
		if t.Present() {
			key.board |= 1 << uint(i)
		}
	}
	return &Store{
		amps:      map[basisKey]complex128{key: 1},
		tags:      tags,
		probCache: make(map[int]float64),
		rng:       rng,
	}
}

// FromBoard parses a placement list like "e1K e8k d1Q": coordinate
// followed by a tag letter, space separated.
func FromBoard(placement string, rng *rand.Rand) (*Store, error) {
	var tags [shared.NumSquares]shared.Tag
	fields := strings.Fields(placement)
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: empty placement", ErrInvalidOperands)
	}
	for _, f := range fields {
		if len(f) != 3 {
			return nil, fmt.Errorf("%w: bad placement %q", ErrInvalidOperands, f)
		}
		sq, err := shared.CoordToSquare(f[:2])
		if err != nil {
			return nil, fmt.Errorf("%w: bad placement %q", ErrInvalidOperands, f)
		}
		tag, ok := shared.ParseTag(rune(f[2]))
		if !ok || !tag.Present() {
			return nil, fmt.Errorf("%w: bad placement %q", ErrInvalidOperands, f)
		}
		if tags[sq].Present() {
			return nil, fmt.Errorf("%w: duplicate square %s", ErrInvalidOperands, sq)
		}
		tags[sq] = tag
	}
	return New(tags, rng), nil
}

// Clone copies the full quantum state. The random source is shared
// with the original.
func (s *Store) Clone() *Store {
	amps := make(map[basisKey]complex128, len(s.amps))
	for k, v := range s.amps {
		amps[k] = v
	}
	return &Store{
		amps:      amps,
		tags:      s.tags,
		ancTags:   append([]shared.Tag(nil), s.ancTags...),
		probCache: make(map[int]float64),
		rng:       s.rng,
	}
}

func (s *Store) numQubits() int { return shared.NumSquares + len(s.ancTags) }

// NumAncillas reports how many ancilla qubits are currently live.
func (s *Store) NumAncillas() int { return len(s.ancTags) }

func (s *Store) tagAt(i int) shared.Tag {
	if i < shared.NumSquares {
		return s.tags[i]
	}
	return s.ancTags[i-shared.NumSquares]
}

func (s *Store) setTag(i int, t shared.Tag) {
	if i < shared.NumSquares {
		s.tags[i] = t
	} else {
		s.ancTags[i-shared.NumSquares] = t
	}
}

// Tag returns the piece tag of a square, NoTag when empty.
func (s *Store) Tag(sq shared.Square) shared.Tag { return s.tags[sq] }

func (s *Store) invalidate() {
	if len(s.probCache) > 0 {
		s.probCache = make(map[int]float64)
	}
}

// Probability is the marginal chance that qubit i is occupied.
// Results are memoized until the next state mutation.
func (s *Store) Probability(i int) float64 {
	if p, ok := s.probCache[i]; ok {
		return p
	}
	p := 0.0
	if s.tagAt(i).Present() {
		for k, a := range s.amps {
			if k.bit(i) == 1 {
				p += real(a)*real(a) + imag(a)*imag(a)
			}
		}
	}
	s.probCache[i] = p
	return p
}

// Marginals returns the tag and occupancy probability of every board
// square.
func (s *Store) Marginals() ([shared.NumSquares]shared.Tag, [shared.NumSquares]float64) {
	var probs [shared.NumSquares]float64
	for i := range probs {
		probs[i] = s.Probability(i)
	}
	return s.tags, probs
}

// Norm is the total probability mass. It stays within zeroEps of 1
// across all operations.
func (s *Store) Norm() float64 {
	mass := 0.0
	for _, a := range s.amps {
		mass += real(a)*real(a) + imag(a)*imag(a)
	}
	return mass
}

// Amplitudes exposes the live basis patterns keyed by their bit
// string form.
func (s *Store) Amplitudes() map[string]complex128 {
	n := s.numQubits()
	out := make(map[string]complex128, len(s.amps))
	for k, v := range s.amps {
		out[k.String(n)] = v
	}
	return out
}

// ChangeTag relabels an occupied square, leaving amplitudes alone.
func (s *Store) ChangeTag(sq shared.Square, tag shared.Tag) error {
	if !tag.Present() {
		return fmt.Errorf("%w: empty tag", ErrInvalidOperands)
	}
	if !s.tags[sq].Present() {
		return fmt.Errorf("%w: square %s untagged", ErrInvalidOperands, sq)
	}
	s.tags[sq] = tag
	return nil
}

// AddPiece places a new piece with certainty on an empty square.
func (s *Store) AddPiece(sq shared.Square, tag shared.Tag) error {
	if !tag.Present() {
		return fmt.Errorf("%w: empty tag", ErrInvalidOperands)
	}
	if s.tags[sq].Present() {
		return fmt.Errorf("%w: %s", ErrSquareOccupied, sq)
	}
	s.flipAll(int(sq))
	s.tags[sq] = tag
	return nil
}

// RemovePiece deletes a piece that occupies its square with
// certainty.
func (s *Store) RemovePiece(sq shared.Square) error {
	if s.Probability(int(sq)) <= 1-zeroEps {
		return fmt.Errorf("%w: %s", ErrSquareNotCertain, sq)
	}
	s.flipAll(int(sq))
	s.tags[sq] = shared.NoTag
	return nil
}

// Clear wipes the board back to the empty classical state.
func (s *Store) Clear() {
	s.amps = map[basisKey]complex128{{}: 1}
	s.tags = [shared.NumSquares]shared.Tag{}
	s.ancTags = nil
	s.invalidate()
}

func (s *Store) flipAll(i int) {
	s.invalidate()
	next := make(map[basisKey]complex128, len(s.amps))
	for k, v := range s.amps {
		next[k.flip(i)] = v
	}
	s.amps = next
}

// dropKeys removes the given basis patterns and rescales the rest to
// unit norm. The state is left untouched when nothing would remain.
func (s *Store) dropKeys(keys []basisKey) error {
	if len(keys) == 0 {
		return nil
	}
	doomed := make(map[basisKey]struct{}, len(keys))
	for _, k := range keys {
		doomed[k] = struct{}{}
	}
	mass := 0.0
	for k, a := range s.amps {
		if _, dead := doomed[k]; !dead {
			mass += real(a)*real(a) + imag(a)*imag(a)
		}
	}
	if mass < zeroEps {
		return ErrZeroProbability
	}
	s.invalidate()
	scale := complex(1/math.Sqrt(mass), 0)
	next := make(map[basisKey]complex128, len(s.amps)-len(doomed))
	for k, a := range s.amps {
		if _, dead := doomed[k]; !dead {
			next[k] = a * scale
		}
	}
	s.amps = next
	s.refreshTags()
	return nil
}

// refreshTags clears the tag of every qubit with no remaining
// support, keeping tags and occupancy consistent even after
// amplitude cancellation.
func (s *Store) refreshTags() {
	var board, anc uint64
	for k := range s.amps {
		board |= k.board
		anc |= k.anc
	}
	for i := range s.tags {
		if board>>uint(i)&1 == 0 {
			s.tags[i] = shared.NoTag
		}
	}
	for i := range s.ancTags {
		if anc>>uint(i)&1 == 0 {
			s.ancTags[i] = shared.NoTag
		}
	}
}

// AddAncilla appends an unoccupied ancilla qubit and returns its
// index.
func (s *Store) AddAncilla() int {
	s.ancTags = append(s.ancTags, shared.NoTag)
	return shared.NumSquares + len(s.ancTags) - 1
}

// dropAncilla removes a collapsed ancilla qubit. Higher ancilla
// indexes shift down by one.
func (s *Store) dropAncilla(i int) error {
	if i < shared.NumSquares || i >= s.numQubits() {
		return fmt.Errorf("%w: index %d", ErrInvalidOperands, i)
	}
	p := s.Probability(i)
	if p >= zeroEps && p <= 1-zeroEps {
		return fmt.Errorf("%w: index %d", ErrAncillaNotCollapsed, i)
	}
	s.invalidate()
	j := i - shared.NumSquares
	next := make(map[basisKey]complex128, len(s.amps))
	for k, v := range s.amps {
		next[k.dropAnc(j)] += v
	}
	s.amps = next
	s.ancTags = append(s.ancTags[:j], s.ancTags[j+1:]...)
	return nil
}

// freeCollapsedAncillas drops every ancilla whose occupancy is
// certain either way, highest index first so lower indexes stay
// stable while removing.
func (s *Store) freeCollapsedAncillas() {
	var collapsed []int
	for i := shared.NumSquares; i < s.numQubits(); i++ {
		p := s.Probability(i)
		if p < zeroEps || p > 1-zeroEps {
			collapsed = append(collapsed, i)
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(collapsed)))
	for _, i := range collapsed {
		// collapsed by construction, cannot fail
		_ = s.dropAncilla(i)
	}
}
