package qbdt

import (
	"math"
	"math/cmplx"
)

/*
StdNode is the general-purpose node variant. It supports the full
structural operation set, including the dense push/pop fallbacks, so it can
absorb any single-qubit operator at any depth regardless of how the
subtrees underneath differ.
*/
type StdNode struct {
	BaseNode
}

// NewStdNode returns the identity node: scale one, both branches absent.
func NewStdNode() *StdNode {
	n := &StdNode{}
	n.scale = 1
	return n
}

// NewStdNodeWithScale returns a branchless node with the given scale.
func NewStdNodeWithScale(scale complex128) *StdNode {
	n := &StdNode{}
	n.scale = scale
	return n
}

// NewStdNodeWithBranches returns a node with the given scale and branch
// pair, adopted as shared references.
func NewStdNodeWithBranches(scale complex128, b0, b1 Node) *StdNode {
	n := &StdNode{}
	n.scale = scale
	n.branches = [2]Node{b0, b1}
	return n
}

// ShallowClone returns a fresh node with the same scale and the same
// shared branch references.
func (n *StdNode) ShallowClone() (Node, error) {
	metrics.NodeClones.Add(1)
	return NewStdNodeWithBranches(n.scale, n.branches[0], n.branches[1]), nil
}

/*
Branch replaces every child reachable within depth levels with a private
shallow copy. After it returns, mutation anywhere in the processed region
cannot corrupt subtrees that other parents alias.
*/
func (n *StdNode) Branch(depth, parDepth int) error {
	if depth == 0 {
		return nil
	}
	if isZeroAmp(n.scale) {
		n.SetZero()
		return nil
	}

	b0, b1 := n.branches[0], n.branches[1]
	if b0 == nil && b1 == nil {
		// Terminal leaf: nothing below to split.
		return nil
	}

	n.mu.Lock()
	if b0 != nil {
		c, err := b0.ShallowClone()
		if err != nil {
			n.mu.Unlock()
			return err
		}
		n.branches[0] = c
	}
	if b1 != nil {
		c, err := b1.ShallowClone()
		if err != nil {
			n.mu.Unlock()
			return err
		}
		n.branches[1] = c
	}
	b0, b1 = n.branches[0], n.branches[1]
	n.mu.Unlock()

	depth--
	if depth == 0 {
		return nil
	}

	return forkChildren(parDepth, b0, b1,
		func(b Node, pd int) error { return b.Branch(depth, pd) })
}

/*
Prune restores compression after mutation: children are pruned first, then
zero-scale branches are detached, equal siblings re-merged onto one shared
object, and the common phase of the low branch rotated up into this node's
scale so equivalent subtrees become bitwise comparable.
*/
func (n *StdNode) Prune(depth, parDepth int) error {
	if depth == 0 {
		return nil
	}
	if isZeroAmp(n.scale) {
		n.SetZero()
		return nil
	}

	b0, b1 := n.branches[0], n.branches[1]
	if b0 == nil && b1 == nil {
		return nil
	}

	depth--
	if depth > 0 {
		if b0 != nil && b0 == b1 {
			if err := b0.Prune(depth, parDepth); err != nil {
				return err
			}
		} else {
			if err := forkChildren(parDepth, b0, b1,
				func(b Node, pd int) error { return b.Prune(depth, pd) }); err != nil {
				return err
			}
		}
	}

	// The section below is serialized on this node's lock so two parents
	// pruning a shared node at once cannot interleave their rewrites.
	n.mu.Lock()
	defer n.mu.Unlock()

	b0, b1 = n.branches[0], n.branches[1]
	hadChild := b0 != nil || b1 != nil

	if b0 != nil && isZeroAmp(b0.Scale()) {
		n.detachChild(0)
		b0 = nil
		metrics.ZeroPrunes.Add(1)
	}
	if b1 != nil && isZeroAmp(b1.Scale()) {
		n.detachChild(1)
		b1 = nil
		metrics.ZeroPrunes.Add(1)
	}

	if b0 == nil && b1 == nil {
		if hadChild {
			// Every contribution below vanished.
			n.scale = 0
		}
		return nil
	}

	if b0 != nil && b1 != nil && b0 != b1 && b0.IsEqual(b1) {
		n.branches[1] = b0
		b1 = b0
		metrics.PruneMerges.Add(1)
	}

	// Canonical phase: the first present branch carries no phase of its
	// own, so proportional subtrees under different parents end up with
	// identical branch scales. The guard keeps a second pass from
	// rotating by noise. The branches may still be aliased by parents
	// this node knows nothing about, so the rotation lands on private
	// copies; the originals keep their phase for every other path.
	ref := b0
	if ref == nil {
		ref = b1
	}
	if ph := cmplx.Phase(ref.Scale()); math.Abs(ph) > phaseEpsilon {
		n.scale *= cmplx.Rect(1, ph)
		inv := cmplx.Rect(1, -ph)
		if b0 != nil {
			c, err := b0.ShallowClone()
			if err != nil {
				return err
			}
			c.SetScale(c.Scale() * inv)
			n.branches[0] = c
			if b1 == b0 {
				n.branches[1] = c
				b1 = c
			}
			b0 = c
		}
		if b1 != nil && b1 != b0 {
			c, err := b1.ShallowClone()
			if err != nil {
				return err
			}
			c.SetScale(c.Scale() * inv)
			n.branches[1] = c
		}
	}

	return nil
}

/*
Apply2x2 applies a single-qubit operator to the qubit at this node's
level. The branch pair is split first so the push cannot corrupt aliasing
parents, then combined through the operator, then re-pruned.
*/
func (n *StdNode) Apply2x2(m *Matrix2x2, depth int) error {
	if depth == 0 {
		return nil
	}

	if n.branches[0] == nil && n.branches[1] == nil {
		return &PreconditionError{
			Op:     "Apply2x2",
			Detail: "operator applied to a terminal leaf",
		}
	}

	if err := n.Branch(1, 1); err != nil {
		return err
	}

	b0, b1, err := n.PushStateVector(m, n.branches[0], n.branches[1], depth-1, defaultParDepth())
	if err != nil {
		return err
	}

	n.mu.Lock()
	n.branches[0] = b0
	n.branches[1] = b1
	n.mu.Unlock()

	if b0 == nil && b1 == nil {
		n.SetZero()
		return nil
	}

	return n.Prune(depth, defaultParDepth())
}

/*
PushStateVector combines the branch pair through the operator. When the
two subtrees coincide (or one side is zero), the operator acts directly on
the pair's scales. Otherwise the pair's scales are pushed one level down
and the combination recurses column-wise across the sibling boundary,
materializing a locally dense region that PopStateVector re-collapses on
the way back up.
*/
func (n *StdNode) PushStateVector(m *Matrix2x2, b0, b1 Node, depth, parDepth int) (Node, Node, error) {
	b0Zero := b0 == nil || isZeroAmp(b0.Scale())
	b1Zero := b1 == nil || isZeroAmp(b1.Scale())

	if b0Zero && b1Zero {
		if b0 != nil {
			b0.SetZero()
		}
		if b1 != nil {
			b1.SetZero()
		}
		return nil, nil, nil
	}

	if b0Zero {
		c, err := b1.ShallowClone()
		if err != nil {
			return nil, nil, err
		}
		c.SetScale(0)
		b0 = c
	}
	if b1Zero {
		c, err := b0.ShallowClone()
		if err != nil {
			return nil, nil, err
		}
		c.SetScale(0)
		b1 = c
	}

	if b0Zero || b1Zero || b0.IsEqualUnder(b1) {
		y0, y1 := b0.Scale(), b1.Scale()
		b0.SetScale(m[0]*y0 + m[1]*y1)
		b1.SetScale(m[2]*y0 + m[3]*y1)
		return b0, b1, nil
	}

	if depth == 0 {
		nb0, err := b0.PushSpecial(m, b1)
		if err != nil {
			return nil, nil, err
		}
		return nb0, b1, nil
	}
	depth--
	metrics.PushDescents.Add(1)

	if err := b0.Branch(1, parDepth); err != nil {
		return nil, nil, err
	}
	if err := b1.Branch(1, parDepth); err != nil {
		return nil, nil, err
	}

	// Sink each side's scale into its children so the recursion below
	// works on bare amplitudes.
	for _, side := range []Node{b0, b1} {
		s := side.Scale()
		for i := 0; i < 2; i++ {
			if c := side.Child(i); c != nil {
				c.SetScale(c.Scale() * s)
			}
		}
		side.SetScale(1)
	}

	var n00, n10, n01, n11 Node
	combine := func(col int, pd int) error {
		a, b, err := n.PushStateVector(m, b0.Child(col), b1.Child(col), depth, pd)
		if err != nil {
			return err
		}
		if col == 0 {
			n00, n10 = a, b
		} else {
			n01, n11 = a, b
		}
		return nil
	}

	var err error
	if parDepth > 0 {
		pd := parDepth - 1
		err = dispatcher().Fork(
			func() error { return combine(0, pd) },
			func() error { return combine(1, pd) },
		)
	} else {
		if err = combine(0, 0); err == nil {
			err = combine(1, 0)
		}
	}
	if err != nil {
		return nil, nil, err
	}

	b0.setChild(0, n00)
	b0.setChild(1, n01)
	b1.setChild(0, n10)
	b1.setChild(1, n11)

	if err := b0.PopStateVector(1, parDepth); err != nil {
		return nil, nil, err
	}
	if err := b1.PopStateVector(1, parDepth); err != nil {
		return nil, nil, err
	}

	return b0, b1, nil
}

/*
PopStateVector re-collapses a materialized region: deeper levels first,
then this node's scale is rebuilt from its children's probability weights
(with the low branch's phase as the convention) and the children rescaled
to unit total weight. The immediate inverse of PushStateVector at the same
depth.
*/
func (n *StdNode) PopStateVector(depth, parDepth int) error {
	if depth == 0 {
		return nil
	}
	if isZeroAmp(n.scale) {
		n.SetZero()
		return nil
	}

	b0, b1 := n.branches[0], n.branches[1]
	if b0 == nil && b1 == nil {
		return nil
	}

	if depth > 1 {
		if b0 != nil && b0 == b1 {
			if err := b0.PopStateVector(depth-1, parDepth); err != nil {
				return err
			}
		} else if err := forkChildren(parDepth, b0, b1,
			func(b Node, pd int) error { return b.PopStateVector(depth-1, pd) }); err != nil {
			return err
		}
	}

	var nrm0, nrm1 float64
	if b0 != nil {
		nrm0 = ampNorm(b0.Scale())
	}
	if b1 != nil {
		nrm1 = ampNorm(b1.Scale())
	}

	thresh := SeparabilityThreshold()
	if nrm0+nrm1 <= thresh {
		n.SetZero()
		return nil
	}

	metrics.PopCollapses.Add(1)

	if nrm0 <= thresh {
		n.scale *= b1.Scale()
		if b0 != nil {
			n.detachChild(0)
		}
		b1.SetScale(1)
		return nil
	}
	if nrm1 <= thresh {
		n.scale *= b0.Scale()
		if b1 != nil {
			n.detachChild(1)
		}
		b0.SetScale(1)
		return nil
	}

	v := cmplx.Rect(math.Sqrt(nrm0+nrm1), cmplx.Phase(b0.Scale()))
	n.scale *= v
	b0.SetScale(b0.Scale() / v)
	if b1 != b0 {
		b1.SetScale(b1.Scale() / v)
	}

	return nil
}

/*
InsertAtDepth splices size new qubit levels into every path at the given
depth, with b's subtree as their content. Paths are split on the way down,
so aliasing parents outside the insertion are untouched; the content below
the insertion point is grafted, shared, under every leaf of the copied
region.
*/
func (n *StdNode) InsertAtDepth(b Node, depth, size, parDepth int) error {
	if b == nil || size == 0 {
		return nil
	}
	if !spansLevels(b, size) {
		return &PreconditionError{
			Op:     "InsertAtDepth",
			Detail: "content tree shallower than the inserted width",
		}
	}
	if isZeroAmp(n.scale) {
		return nil
	}

	if depth > 0 {
		if err := n.Branch(1, parDepth); err != nil {
			return err
		}
		depth--
		return forkChildren(parDepth, n.branches[0], n.branches[1],
			func(c Node, pd int) error { return c.InsertAtDepth(b, depth, size, pd) })
	}

	metrics.InsertSplices.Add(1)

	g0, g1 := n.branches[0], n.branches[1]

	c0, err := copyLevels(b.Child(0), size-1, g0, g1)
	if err != nil {
		return err
	}
	var c1 Node
	if b.Child(1) != nil && b.Child(1) == b.Child(0) {
		c1 = c0
	} else {
		c1, err = copyLevels(b.Child(1), size-1, g0, g1)
		if err != nil {
			return err
		}
	}

	n.mu.Lock()
	n.scale *= b.Scale()
	n.branches[0] = c0
	n.branches[1] = c1
	n.mu.Unlock()

	return nil
}

/*
RemoveSeparableAtDepth removes size qubit levels at the given depth. The
factored-out region comes back as its own tree: root scale one, the
region's structure copied, its leaves carrying the amplitudes of the last
removed level. The remaining tree adopts the shared remainder in place.
Separability is verified while copying; a region whose paths lead to
distinguishable remainders is refused.
*/
func (n *StdNode) RemoveSeparableAtDepth(depth, size, parDepth int) (Node, error) {
	if size == 0 {
		return nil, nil
	}
	if isZeroAmp(n.scale) {
		return nil, nil
	}
	if err := n.Branch(1, parDepth); err != nil {
		return nil, err
	}

	if depth > 0 {
		depth--

		var r0, r1 Node
		err := forkChildren(parDepth, n.branches[0], n.branches[1],
			func(c Node, pd int) error {
				r, err := c.RemoveSeparableAtDepth(depth, size, pd)
				if err != nil {
					return err
				}
				if c == n.branches[0] {
					r0 = r
				} else {
					r1 = r
				}
				return nil
			})
		if err != nil {
			return nil, err
		}

		if r0 != nil && r1 != nil && !r0.IsEqualUnder(r1) {
			return nil, &PreconditionError{
				Op:     "RemoveSeparableAtDepth",
				Detail: "removed region differs between sibling paths",
			}
		}
		if r0 != nil {
			return r0, nil
		}
		return r1, nil
	}

	metrics.Removals.Add(1)

	var remainder Node
	var stripCopy func(x Node, lvl int) (Node, error)
	stripCopy = func(x Node, lvl int) (Node, error) {
		if x == nil {
			return nil, nil
		}
		c, err := x.ShallowClone()
		if err != nil {
			return nil, err
		}
		if lvl == 0 {
			// x heads the first level that stays; its children are the
			// remainder and must match across every path of the region.
			if remainder == nil {
				remainder = x
			} else if remainder != x && !remainder.IsEqualUnder(x) {
				return nil, &PreconditionError{
					Op:     "RemoveSeparableAtDepth",
					Detail: "removed region is entangled with the remainder",
				}
			}
			c.setChild(0, nil)
			c.setChild(1, nil)
			return c, nil
		}
		c0, err := stripCopy(x.Child(0), lvl-1)
		if err != nil {
			return nil, err
		}
		var c1 Node
		if x.Child(1) != nil && x.Child(1) == x.Child(0) {
			c1 = c0
		} else {
			c1, err = stripCopy(x.Child(1), lvl-1)
			if err != nil {
				return nil, err
			}
		}
		c.setChild(0, c0)
		c.setChild(1, c1)
		return c, nil
	}

	factor := NewStdNode()
	f0, err := stripCopy(n.branches[0], size-1)
	if err != nil {
		return nil, err
	}
	f1, err := stripCopy(n.branches[1], size-1)
	if err != nil {
		return nil, err
	}
	factor.setChild(0, f0)
	factor.setChild(1, f1)

	n.mu.Lock()
	if remainder != nil {
		n.branches[0] = remainder.Child(0)
		n.branches[1] = remainder.Child(1)
	} else {
		n.branches[0] = nil
		n.branches[1] = nil
	}
	n.mu.Unlock()

	return factor, nil
}

/*
Normalize rescales each level's branch amplitudes to unit total
probability, correcting accumulated floating-point drift. Deeper levels are
corrected first so each parent sees settled children.
*/
func (n *StdNode) Normalize(depth int) error {
	if depth == 0 {
		return nil
	}
	if isZeroAmp(n.scale) {
		n.SetZero()
		return nil
	}

	b0, b1 := n.branches[0], n.branches[1]
	if b0 == nil && b1 == nil {
		return nil
	}

	depth--
	if b0 != nil && b0 == b1 {
		if err := b0.Normalize(depth); err != nil {
			return err
		}
	} else {
		if b0 != nil {
			if err := b0.Normalize(depth); err != nil {
				return err
			}
		}
		if b1 != nil {
			if err := b1.Normalize(depth); err != nil {
				return err
			}
		}
	}

	// A shared child contributes its weight once per branch, but is
	// rescaled only once below.
	var nrm float64
	if b0 != nil {
		nrm += ampNorm(b0.Scale())
	}
	if b1 != nil {
		nrm += ampNorm(b1.Scale())
	}
	if nrm <= SeparabilityThreshold() {
		n.SetZero()
		return nil
	}

	f := complex(1/math.Sqrt(nrm), 0)
	if b0 != nil {
		b0.SetScale(b0.Scale() * f)
	}
	if b1 != nil && b1 != b0 {
		b1.SetScale(b1.Scale() * f)
	}

	return nil
}

// detachChild removes branch i under that child's lock, mirroring
// SetZero's detach rule.
func (n *BaseNode) detachChild(i int) {
	b := n.branches[i]
	if b == nil {
		return
	}
	c := b.core()
	c.mu.Lock()
	n.branches[i] = nil
	c.mu.Unlock()
}

// forkChildren runs op on both children, in parallel while the budget and
// a dispatcher token last. Nil children are skipped.
func forkChildren(parDepth int, b0, b1 Node, op func(b Node, pd int) error) error {
	if b0 == nil && b1 == nil {
		return nil
	}
	if b0 == nil {
		return op(b1, parDepth)
	}
	if b1 == nil {
		return op(b0, parDepth)
	}

	if parDepth > 0 {
		pd := parDepth - 1
		return dispatcher().Fork(
			func() error { return op(b0, pd) },
			func() error { return op(b1, pd) },
		)
	}

	if err := op(b0, 0); err != nil {
		return err
	}
	return op(b1, 0)
}

// spansLevels reports whether every amplitude-bearing path of b reaches at
// least `levels` further levels. A branchless node short of that depth
// would splice as an absent subtree, silently dropping the content grafted
// below it.
func spansLevels(b Node, levels int) bool {
	if levels == 0 {
		return true
	}
	if b.Child(0) == nil && b.Child(1) == nil {
		return false
	}
	for i := 0; i < 2; i++ {
		if c := b.Child(i); c != nil && !spansLevels(c, levels-1) {
			return false
		}
	}
	return true
}

// copyLevels deep-copies `levels` further levels of x and grafts the given
// branch pair under every copied leaf. Shared children stay shared in the
// copy.
func copyLevels(x Node, levels int, g0, g1 Node) (Node, error) {
	if x == nil {
		return nil, nil
	}
	c, err := x.ShallowClone()
	if err != nil {
		return nil, err
	}
	if levels == 0 {
		c.setChild(0, g0)
		c.setChild(1, g1)
		return c, nil
	}
	c0, err := copyLevels(x.Child(0), levels-1, g0, g1)
	if err != nil {
		return nil, err
	}
	var c1 Node
	if x.Child(1) != nil && x.Child(1) == x.Child(0) {
		c1 = c0
	} else {
		c1, err = copyLevels(x.Child(1), levels-1, g0, g1)
		if err != nil {
			return nil, err
		}
	}
	c.setChild(0, c0)
	c.setChild(1, c1)
	return c, nil
}
