package qbdt

import "sync"

/*
BaseNode is the data layout and default behavior shared by every node
variant: the complex scale, the branch pair, and the per-node mutation
lock. It implements the comparisons and SetZero, and answers every
structural operation with an UnimplementedError, so a variant only
overrides what it can actually do. Embedding BaseNode is how a variant
joins the closed set.
*/
type BaseNode struct {
	mu       sync.Mutex
	scale    complex128
	branches [2]Node
}

// NewBaseNode returns the identity node: scale one, both branches absent.
// It is the root of an empty tree.
func NewBaseNode() *BaseNode {
	return &BaseNode{scale: 1}
}

// NewBaseNodeWithScale returns a branchless node with the given scale.
func NewBaseNodeWithScale(scale complex128) *BaseNode {
	return &BaseNode{scale: scale}
}

// NewBaseNodeWithBranches returns a node with the given scale and branch
// pair. The branches are adopted as shared references, not copied.
func NewBaseNodeWithBranches(scale complex128, b0, b1 Node) *BaseNode {
	return &BaseNode{scale: scale, branches: [2]Node{b0, b1}}
}

func (n *BaseNode) core() *BaseNode { return n }

func (n *BaseNode) Scale() complex128 { return n.scale }

func (n *BaseNode) SetScale(c complex128) { n.scale = c }

func (n *BaseNode) Child(i int) Node { return n.branches[i] }

func (n *BaseNode) setChild(i int, b Node) { n.branches[i] = b }

/*
SetZero zeroes the scale and detaches both branches. Each detach holds that
child's lock, so a concurrent reader arriving at the child through another
path sees the detach either not at all or completely, never half-done.
*/
func (n *BaseNode) SetZero() {
	n.scale = 0

	if b0 := n.branches[0]; b0 != nil {
		c := b0.core()
		c.mu.Lock()
		n.branches[0] = nil
		c.mu.Unlock()
	}

	if b1 := n.branches[1]; b1 != nil {
		c := b1.core()
		c.mu.Lock()
		n.branches[1] = nil
		c.mu.Unlock()
	}
}

// IsEqual reports scale equality within the separability threshold plus
// recursive branch equality.
func (n *BaseNode) IsEqual(r Node) bool {
	if r == nil {
		return false
	}
	if n == r.core() {
		return true
	}
	if !ampsEqual(n.scale, r.Scale()) {
		return false
	}
	return n.IsEqualUnder(r)
}

// IsEqualUnder reports equality up to a difference in overall scale.
func (n *BaseNode) IsEqualUnder(r Node) bool {
	if r == nil {
		return false
	}
	if n == r.core() {
		return true
	}
	return n.IsEqualBranch(r, 0) && n.IsEqualBranch(r, 1)
}

/*
IsEqualBranch compares branch `which` of both nodes. When the branches are
distinct objects that compare equal, r's branch is re-pointed at this
node's branch, collapsing the two subtrees onto one shared object. The
swap holds the outgoing branch's lock, mirroring SetZero's detach rule.
*/
func (n *BaseNode) IsEqualBranch(r Node, which int) bool {
	left := n.branches[which]
	right := r.Child(which)

	if (left == nil) != (right == nil) {
		return false
	}
	if left == nil {
		return true
	}
	if left.core() == right.core() {
		return true
	}
	if !left.IsEqual(right) {
		return false
	}

	c := right.core()
	c.mu.Lock()
	r.setChild(which, left)
	c.mu.Unlock()
	metrics.PruneMerges.Add(1)

	return true
}

// ShallowClone is a capability method; BaseNode does not supply it.
func (n *BaseNode) ShallowClone() (Node, error) {
	return nil, errUnimplemented("ShallowClone")
}

func (n *BaseNode) Branch(depth, parDepth int) error {
	if depth == 0 {
		return nil
	}
	return errUnimplemented("Branch")
}

func (n *BaseNode) Prune(depth, parDepth int) error {
	if depth == 0 {
		return nil
	}
	return errUnimplemented("Prune")
}

func (n *BaseNode) Apply2x2(m *Matrix2x2, depth int) error {
	if depth == 0 {
		return nil
	}
	return errUnimplemented("Apply2x2")
}

func (n *BaseNode) PushStateVector(m *Matrix2x2, b0, b1 Node, depth, parDepth int) (Node, Node, error) {
	return nil, nil, errUnimplemented("PushStateVector")
}

// PushSpecial is only reached when recursion arrives one level above a
// terminal leaf pair that still cannot be combined, which means the caller
// pushed state past terminal depth.
func (n *BaseNode) PushSpecial(m *Matrix2x2, b1 Node) (Node, error) {
	return nil, &PreconditionError{
		Op:     "PushSpecial",
		Detail: "state vector pushed past terminal depth",
	}
}

func (n *BaseNode) PopStateVector(depth, parDepth int) error {
	if depth == 0 {
		return nil
	}
	return errUnimplemented("PopStateVector")
}

func (n *BaseNode) InsertAtDepth(b Node, depth, size, parDepth int) error {
	return errUnimplemented("InsertAtDepth")
}

func (n *BaseNode) RemoveSeparableAtDepth(depth, size, parDepth int) (Node, error) {
	return nil, errUnimplemented("RemoveSeparableAtDepth")
}

func (n *BaseNode) Normalize(depth int) error {
	if depth == 0 {
		return nil
	}
	return errUnimplemented("Normalize")
}
