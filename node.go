package qbdt

/*
Node is the contract every tree unit implements. The tree is acyclic by
construction (branches only point deeper), so reclamation is the garbage
collector's problem; there is no manual teardown.

All mutating operations accept a parDepth budget: while it lasts, the two
children of a node may be processed on separate goroutines. Depth-0 calls
are legitimate no-ops terminating recursion, never errors.

Callers intending to mutate a subtree in place must first guarantee
exclusive reachability with Branch, and restore compression afterwards with
exactly one matching Prune. Skipping Prune leaves the tree correct but
uncompressed; skipping Branch risks corrupting siblings that alias the same
child.
*/
type Node interface {
	// Scale returns the node's complex amplitude multiplier.
	Scale() complex128
	// SetScale replaces the amplitude multiplier.
	SetScale(c complex128)
	// Child returns branch i (0 or 1), or nil for an absent branch.
	Child(i int) Node

	// SetZero zeroes the scale and detaches both branches, each detach
	// performed under that child's lock.
	SetZero()

	// IsEqual reports whether both nodes represent the same (scale,
	// subtree) pair within the separability threshold.
	IsEqual(r Node) bool
	// IsEqualUnder reports whether the subtrees are equal up to a
	// difference in overall scale, which is what licenses sharing one
	// child between differently-scaled parents.
	IsEqualUnder(r Node) bool
	// IsEqualBranch compares branch `which` of both nodes under the
	// up-to-scale rule, and on success aliases r's branch onto this
	// node's so later comparisons are pointer hits.
	IsEqualBranch(r Node, which int) bool

	// ShallowClone returns a new node with the same scale and the same
	// (shared) branch references.
	ShallowClone() (Node, error)

	// Branch walks down depth levels, replacing every reachable child
	// with a private shallow copy so subsequent mutation along this path
	// cannot corrupt aliasing siblings.
	Branch(depth, parDepth int) error
	// Prune walks down depth levels and, bottom-up, re-merges equal
	// sibling subtrees, drops zero-scale branches, and rotates the common
	// branch phase into the parent scale.
	Prune(depth, parDepth int) error

	// Apply2x2 applies a single-qubit operator to the qubit at this
	// node's level, with depth levels of state below the branches.
	Apply2x2(m *Matrix2x2, depth int) error
	// PushStateVector combines the b0/b1 branch pair through the
	// operator, descending into temporarily denser intermediate nodes
	// when the pair cannot absorb it symbolically, and returns the
	// replacement pair.
	PushStateVector(m *Matrix2x2, b0, b1 Node, depth, parDepth int) (Node, Node, error)
	// PushSpecial is the narrow push used one level above a terminal
	// leaf pair.
	PushSpecial(m *Matrix2x2, b1 Node) (Node, error)
	// PopStateVector re-collapses a locally materialized region back
	// into compressed form.
	PopStateVector(depth, parDepth int) error

	// InsertAtDepth splices size new qubit levels, with b's subtree as
	// their content, into every path at the given depth.
	InsertAtDepth(b Node, depth, size, parDepth int) error
	// RemoveSeparableAtDepth removes size qubit levels at the given
	// depth, returning the factored-out subtree. The region must be
	// separable; a non-separable region is reported as a
	// PreconditionError rather than silently corrupting the state.
	RemoveSeparableAtDepth(depth, size, parDepth int) (Node, error)

	// Normalize rescales branch amplitudes within depth levels so each
	// level's probability sums to one.
	Normalize(depth int) error

	// core exposes the shared data layout for identity checks and lock
	// access. The variant set is closed within this package.
	core() *BaseNode
	// setChild replaces branch i. The caller owns any locking.
	setChild(i int, b Node)
}

// Equal reports whether two node handles represent the same state: nil
// handles are equal to each other, identical references are equal without
// inspection, and anything else falls back to deep IsEqual.
func Equal(a, b Node) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.core() == b.core() {
		return true
	}
	return a.IsEqual(b)
}
