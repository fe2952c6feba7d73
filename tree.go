package qbdt

import (
	"math/cmplx"
	"sync"
)

/*
Tree owns a QBDT root and sequences structural operations against it. It is
the thin host the node contract is written for: it decides target depths,
brackets mutations with Branch/Prune, and fans path walks out through the
parallel-for hook. Qubit 0 is the tree's top level and the low bit of a
basis-state index.
*/
type Tree struct {
	root     Node
	qubits   int
	parDepth int
}

// MaxWidth is the widest tree the engine addresses: basis states are
// indexed by uint64, one bit per qubit.
const MaxWidth = 64

// NewTree returns a tree of the given width prepared in the computational
// basis state perm. Widths beyond MaxWidth cannot be indexed and panic.
func NewTree(qubits int, perm uint64) *Tree {
	if qubits < 0 || qubits > MaxWidth {
		panic("qbdt: tree width outside [0, MaxWidth]")
	}
	t := &Tree{
		qubits:   qubits,
		parDepth: defaultParDepth(),
	}
	t.SetPermutation(perm)
	return t
}

// Root exposes the root node, shared, not copied.
func (t *Tree) Root() Node { return t.root }

// Qubits returns the tree's current width.
func (t *Tree) Qubits() int { return t.qubits }

// SetPermutation discards the current state and prepares |perm>: a single
// path of unit scales, every other branch absent.
func (t *Tree) SetPermutation(perm uint64) {
	root := NewStdNode()
	cur := Node(root)
	for i := 0; i < t.qubits; i++ {
		next := NewStdNode()
		cur.setChild(selectBit(perm, i), next)
		cur = next
	}
	t.root = root
}

// Amplitude returns the amplitude of a computational-basis state: the
// product of scales along the path its bits select. An absent branch on
// the way down means the amplitude is exactly zero.
func (t *Tree) Amplitude(perm uint64) complex128 {
	n := t.root
	amp := n.Scale()
	for i := 0; i < t.qubits; i++ {
		n = n.Child(selectBit(perm, i))
		if n == nil {
			return 0
		}
		amp *= n.Scale()
	}
	return amp
}

/*
ApplySingle applies a single-qubit operator to the target qubit. The path
levels above the target are split first, then every surviving path is
walked through the parallel-for hook and the operator applied where the
target level is reached, then the whole tree is re-pruned.
*/
func (t *Tree) ApplySingle(m Matrix2x2, target int) error {
	if target < 0 || target >= t.qubits {
		return &PreconditionError{
			Op:     "ApplySingle",
			Detail: "target qubit outside the tree",
		}
	}

	if err := t.root.Branch(target, t.parDepth); err != nil {
		return err
	}

	remaining := t.qubits - target

	var (
		errMu    sync.Mutex
		firstErr error
	)
	parFor(uint64(1)<<uint(target), func(i uint64) {
		n := t.root
		for b := 0; b < target; b++ {
			n = n.Child(selectBit(i, b))
			if n == nil {
				return
			}
		}
		if isZeroAmp(n.Scale()) {
			return
		}
		if err := n.Apply2x2(&m, remaining); err != nil {
			errMu.Lock()
			if firstErr == nil {
				firstErr = err
			}
			errMu.Unlock()
		}
	})
	if firstErr != nil {
		return firstErr
	}

	return t.root.Prune(t.qubits, t.parDepth)
}

/*
InsertQubits splices size new qubit levels at position at, with b's
subtree as their content on every path. The content baseline for fresh
qubits is a |0...0> chain, which InsertZeroQubits builds for callers that
just want blank width.
*/
func (t *Tree) InsertQubits(b Node, at, size int) error {
	if at < 0 || at > t.qubits {
		return &PreconditionError{
			Op:     "InsertQubits",
			Detail: "insertion point outside the tree",
		}
	}
	if t.qubits+size > MaxWidth {
		return &PreconditionError{
			Op:     "InsertQubits",
			Detail: "resulting width exceeds MaxWidth",
		}
	}
	if err := t.root.InsertAtDepth(b, at, size, t.parDepth); err != nil {
		return err
	}
	t.qubits += size
	return t.root.Prune(t.qubits, t.parDepth)
}

// InsertZeroQubits widens the tree with size fresh qubits in |0> at
// position at.
func (t *Tree) InsertZeroQubits(at, size int) error {
	blank := NewStdNode()
	cur := Node(blank)
	for i := 0; i < size; i++ {
		next := NewStdNode()
		cur.setChild(0, next)
		cur = next
	}
	return t.InsertQubits(blank, at, size)
}

/*
RemoveSeparable removes size qubit levels at position at, provided their
state factors out of the rest, and returns the factored-out tree. The
factor recombines with the remaining tree through InsertQubits at the same
position.
*/
func (t *Tree) RemoveSeparable(at, size int) (Node, error) {
	if at < 0 || at+size > t.qubits {
		return nil, &PreconditionError{
			Op:     "RemoveSeparable",
			Detail: "removal range outside the tree",
		}
	}
	factor, err := t.root.RemoveSeparableAtDepth(at, size, t.parDepth)
	if err != nil {
		return nil, err
	}
	t.qubits -= size
	if err := t.root.Prune(t.qubits, t.parDepth); err != nil {
		return nil, err
	}
	return factor, nil
}

/*
Normalize corrects accumulated floating-point drift so total probability
is one: every level's branch weights are rescaled, then the residual
magnitude left on the root is divided out. The tree is split first so
shared subtrees are not rescaled twice through different parents, and
re-pruned afterwards.
*/
func (t *Tree) Normalize() error {
	if err := t.root.Branch(t.qubits, t.parDepth); err != nil {
		return err
	}
	if err := t.root.Normalize(t.qubits); err != nil {
		return err
	}

	if s := t.root.Scale(); !isZeroAmp(s) {
		t.root.SetScale(unitPhase(s))
	}

	return t.root.Prune(t.qubits, t.parDepth)
}

// TotalProbability sums the squared magnitudes of every basis amplitude,
// walking only the branches that are present.
func (t *Tree) TotalProbability() float64 {
	var walk func(n Node, depth int) float64
	walk = func(n Node, depth int) float64 {
		if n == nil {
			return 0
		}
		w := ampNorm(n.Scale())
		if depth == t.qubits {
			return w
		}
		return w * (walk(n.Child(0), depth+1) + walk(n.Child(1), depth+1))
	}
	return walk(t.root, 0)
}

// Phase returns the global phase carried on the root.
func (t *Tree) Phase() float64 {
	return cmplx.Phase(t.root.Scale())
}
