package qbdt

import (
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestBaseNodeDefaults(t *testing.T) {
	Convey("Given a default-constructed base node", t, func(c C) {
		n := NewBaseNode()

		Convey("It is the identity node", func(c C) {
			c.So(n.Scale(), ShouldEqual, complex(1, 0))
			c.So(n.Child(0), ShouldBeNil)
			c.So(n.Child(1), ShouldBeNil)
		})

		Convey("Depth-0 calls are no-ops, not errors", func(c C) {
			c.So(n.Branch(0, 1), ShouldBeNil)
			c.So(n.Prune(0, 1), ShouldBeNil)
			c.So(n.PopStateVector(0, 1), ShouldBeNil)
			c.So(n.Apply2x2(&MatrixPauliX, 0), ShouldBeNil)
			c.So(n.Normalize(0), ShouldBeNil)
		})

		Convey("Structural operations report the missing override", func(c C) {
			var ue *UnimplementedError

			c.So(errors.As(n.Branch(1, 1), &ue), ShouldBeTrue)
			c.So(ue.Op, ShouldEqual, "Branch")

			c.So(errors.As(n.Prune(1, 1), &ue), ShouldBeTrue)
			c.So(errors.As(n.Normalize(1), &ue), ShouldBeTrue)
			c.So(errors.As(n.PopStateVector(1, 1), &ue), ShouldBeTrue)
			c.So(errors.As(n.InsertAtDepth(nil, 0, 1, 1), &ue), ShouldBeTrue)

			_, err := n.ShallowClone()
			c.So(errors.As(err, &ue), ShouldBeTrue)

			_, _, err = n.PushStateVector(&MatrixPauliX, nil, nil, 1, 1)
			c.So(errors.As(err, &ue), ShouldBeTrue)

			_, err = n.RemoveSeparableAtDepth(0, 1, 1)
			c.So(errors.As(err, &ue), ShouldBeTrue)
		})

		Convey("PushSpecial reports a precondition violation, not a missing override", func(c C) {
			_, err := n.PushSpecial(&MatrixPauliX, nil)

			var pe *PreconditionError
			c.So(errors.As(err, &pe), ShouldBeTrue)

			var ue *UnimplementedError
			c.So(errors.As(err, &ue), ShouldBeFalse)
		})
	})
}

func TestSetZero(t *testing.T) {
	Convey("Given a node with both branches present", t, func(c C) {
		leaf0 := NewStdNode()
		leaf1 := NewStdNode()
		n := NewStdNodeWithBranches(complex(0.5, 0.5), leaf0, leaf1)

		Convey("SetZero zeroes the scale and detaches both branches", func(c C) {
			n.SetZero()

			c.So(n.Scale(), ShouldEqual, complex(0, 0))
			c.So(n.Child(0), ShouldBeNil)
			c.So(n.Child(1), ShouldBeNil)
		})
	})
}

func TestNodeEquality(t *testing.T) {
	Convey("Given two trees for the same one-qubit state", t, func(c C) {
		leafA := NewStdNode()
		leafB := NewStdNode()
		a := NewStdNodeWithBranches(complex(0.5, 0), leafA, nil)
		b := NewStdNodeWithBranches(complex(0.5, 0), leafB, nil)

		Convey("They compare equal", func(c C) {
			c.So(a.IsEqual(b), ShouldBeTrue)
		})

		Convey("Comparison canonicalizes: the right branch is re-pointed at the left", func(c C) {
			c.So(a.IsEqualBranch(b, 0), ShouldBeTrue)
			c.So(b.Child(0) == Node(leafA), ShouldBeTrue)
		})

		Convey("A scale difference beyond the threshold breaks equality", func(c C) {
			b.SetScale(complex(0.6, 0))
			c.So(a.IsEqual(b), ShouldBeFalse)

			Convey("But they stay equal up to overall scale", func(c C) {
				c.So(a.IsEqualUnder(b), ShouldBeTrue)
			})
		})

		Convey("A scale difference below the threshold is numerical noise", func(c C) {
			b.SetScale(complex(0.5+1e-9, 0))
			c.So(a.IsEqual(b), ShouldBeTrue)
		})

		Convey("A present branch never equals an absent one", func(c C) {
			d := NewStdNodeWithBranches(complex(0.5, 0), nil, nil)
			c.So(a.IsEqual(d), ShouldBeFalse)
		})
	})

	Convey("Given node handles", t, func(c C) {
		n := NewStdNode()
		m := NewStdNode()

		Convey("Equal takes the pointer fast path before deep comparison", func(c C) {
			c.So(Equal(nil, nil), ShouldBeTrue)
			c.So(Equal(n, nil), ShouldBeFalse)
			c.So(Equal(nil, n), ShouldBeFalse)
			c.So(Equal(n, n), ShouldBeTrue)
			c.So(Equal(n, m), ShouldBeTrue) // both identity nodes
		})
	})
}
