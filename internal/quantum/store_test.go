package quantum

import (
	"math/rand"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"quantum_chess_poc/internal/shared"
)

func TestStoreBasics(t *testing.T) {
	Convey("a fresh store is classical", t, func() {
		s := testStore(t, "e1K e8k d1Q")
		So(s.Norm(), ShouldAlmostEqual, 1, 1e-12)
		So(len(s.Amplitudes()), ShouldEqual, 1)
		So(s.Probability(sq(t, "e1")), ShouldAlmostEqual, 1, 1e-12)
		So(s.Probability(sq(t, "e4")), ShouldAlmostEqual, 0, 1e-12)
		So(s.Tag(shared.Square(sq(t, "e8"))).Rune(), ShouldEqual, 'k')

		Convey("marginals mirror tags and probabilities", func() {
			tags, probs := s.Marginals()
			So(tags[sq(t, "d1")].Rune(), ShouldEqual, 'Q')
			So(probs[sq(t, "d1")], ShouldAlmostEqual, 1, 1e-12)
			So(probs[sq(t, "a1")], ShouldAlmostEqual, 0, 1e-12)
		})
	})

	Convey("FromBoard rejects malformed placements", t, func() {
		rng := rand.New(rand.NewSource(1))
		for _, bad := range []string{"", "e1", "e1X", "i9K", "e1K e1Q"} {
			_, err := FromBoard(bad, rng)
			So(err, ShouldNotBeNil)
		}
	})
}

func TestStoreMutations(t *testing.T) {
	Convey("piece add, remove and relabel", t, func() {
		s := testStore(t, "a1K")

		Convey("AddPiece occupies an empty square", func() {
			So(s.AddPiece(shared.Square(sq(t, "h8")), shared.NewTag(shared.Black, shared.King)), ShouldBeNil)
			So(s.Probability(sq(t, "h8")), ShouldAlmostEqual, 1, 1e-12)
			So(s.AddPiece(shared.Square(sq(t, "h8")), shared.NewTag(shared.White, shared.Queen)), ShouldNotBeNil)
		})

		Convey("RemovePiece demands certainty", func() {
			So(s.AddPiece(shared.Square(sq(t, "b2")), shared.NewTag(shared.White, shared.Rook)), ShouldBeNil)
			So(s.SplitJump(sq(t, "b2"), sq(t, "b3"), sq(t, "c2")), ShouldBeNil)
			So(s.RemovePiece(shared.Square(sq(t, "b3"))), ShouldNotBeNil)
			So(s.RemovePiece(shared.Square(sq(t, "a1"))), ShouldBeNil)
			So(s.Tag(shared.Square(sq(t, "a1"))).Present(), ShouldBeFalse)
		})

		Convey("ChangeTag relabels without touching amplitudes", func() {
			before := s.Amplitudes()
			So(s.ChangeTag(shared.Square(sq(t, "a1")), shared.NewTag(shared.White, shared.Queen)), ShouldBeNil)
			So(s.Tag(shared.Square(sq(t, "a1"))).Rune(), ShouldEqual, 'Q')
			So(s.Amplitudes(), shouldMatchAmplitudes, before)
			So(s.ChangeTag(shared.Square(sq(t, "h4")), shared.NewTag(shared.White, shared.Queen)), ShouldNotBeNil)
		})

		Convey("Clear wipes everything", func() {
			s.Clear()
			So(s.Norm(), ShouldAlmostEqual, 1, 1e-12)
			tags, probs := s.Marginals()
			for i := range tags {
				So(tags[i].Present(), ShouldBeFalse)
				So(probs[i], ShouldAlmostEqual, 0, 1e-12)
			}
		})
	})
}

func TestCloneIsIndependent(t *testing.T) {
	Convey("clones do not share amplitude state", t, func() {
		s := testStore(t, "d3R c4r")
		So(s.SplitJump(sq(t, "c4"), sq(t, "c3"), sq(t, "d4")), ShouldBeNil)
		snapshot := s.Clone()
		before := snapshot.Amplitudes()

		_, err := s.Measure(sq(t, "c3"), Force(1))
		So(err, ShouldBeNil)
		So(snapshot.Amplitudes(), shouldMatchAmplitudes, before)
		So(len(s.Amplitudes()), ShouldEqual, 1)
	})
}

func TestNormPreservedAcrossProtocols(t *testing.T) {
	Convey("unitary moves keep the state normalized", t, func() {
		s := testStore(t, "d3R c4r d7q")
		So(s.SplitJump(sq(t, "c4"), sq(t, "c3"), sq(t, "d4")), ShouldBeNil)
		So(s.Norm(), ShouldAlmostEqual, 1, 1e-9)
		So(s.SplitSlide(sq(t, "d3"), sq(t, "d5"), sq(t, "b3"),
			[]int{sq(t, "d4")}, []int{sq(t, "c3")}), ShouldBeNil)
		So(s.Norm(), ShouldAlmostEqual, 1, 1e-9)
		So(s.NormalSlide(sq(t, "d7"), sq(t, "d6"), nil), ShouldBeNil)
		So(s.Norm(), ShouldAlmostEqual, 1, 1e-9)

		Convey("and measurement renormalizes", func() {
			m, err := s.Measure(sq(t, "b3"), Forced{})
			So(err, ShouldBeNil)
			So(m.Occurred, ShouldBeTrue)
			So(s.Norm(), ShouldAlmostEqual, 1, 1e-9)
		})
	})
}
