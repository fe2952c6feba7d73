// Package qbdt implements a quantum binary decision tree: a compressed,
// tree-structured representation of a quantum state vector that can be
// operated on directly while compressed.
//
// A state of n qubits is a binary tree of depth n. Each node carries a
// complex scale and two child references, one per value of the qubit at
// that depth. The amplitude of a computational-basis state is the product
// of scales along the path its bits select; an absent branch stands for a
// subtree whose contribution is exactly zero. Identical or proportional
// subtrees are shared between parents rather than duplicated, which is the
// compression mechanism: indistinguishable substates collapse onto one
// node reached through different accumulated scale factors.
//
// # Node variants
//
// Node is the capability interface every tree unit implements. BaseNode
// supplies the shared data layout, the comparisons, and error-returning
// defaults for every structural operation; StdNode overrides the full set
// (branching, pruning, gate application, dense push/pop, resizing,
// normalization). A variant that reaches an operation it does not override
// reports an UnimplementedError, which almost always means the
// separability threshold steered construction toward a node variant that
// lacks dense-state fallbacks.
//
// # Concurrency
//
// Mutating operations accept a parDepth budget: while the budget lasts and
// a dispatcher worker is free, the two children of a node are processed on
// separate goroutines; after that, recursion stays on the calling
// goroutine. A node's branches are only replaced under a lock, so an
// unlocked reader walking the tree sees either the old or the new
// reference, never a torn one.
//
// # Basic usage
//
//	t := qbdt.NewTree(2, 0) // |00>
//	if err := t.ApplySingle(qbdt.MatrixPauliX, 0); err != nil {
//	    log.Fatal(err)
//	}
//	amp := t.Amplitude(1) // qubit 0 is the low bit of the basis index
package qbdt
