package qbdt

import (
	"math"
	"math/cmplx"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// denseState is a brute-force state vector kept alongside the tree as the
// ground truth for amplitude checks.
type denseState struct {
	amps []complex128
	n    int
}

func newDense(qubits int, perm uint64) *denseState {
	d := &denseState{
		amps: make([]complex128, 1<<uint(qubits)),
		n:    qubits,
	}
	d.amps[perm] = 1
	return d
}

func (d *denseState) apply(m Matrix2x2, target int) {
	step := uint64(1) << uint(target)
	for i := uint64(0); i < uint64(len(d.amps)); i++ {
		if i&step != 0 {
			continue
		}
		a0, a1 := d.amps[i], d.amps[i|step]
		d.amps[i] = m[0]*a0 + m[1]*a1
		d.amps[i|step] = m[2]*a0 + m[3]*a1
	}
}

// requireSameState checks every basis amplitude of the tree against the
// dense reference.
func requireSameState(t *testing.T, tr *Tree, d *denseState) {
	t.Helper()

	got := make([]complex128, len(d.amps))
	ok := true
	for p := range d.amps {
		got[p] = tr.Amplitude(uint64(p))
		if cmplx.Abs(got[p]-d.amps[p]) > 1e-9 {
			ok = false
		}
	}
	if !ok {
		t.Logf("tree amplitudes: %s", spew.Sdump(got))
		t.Logf("dense reference: %s", spew.Sdump(d.amps))
		t.FailNow()
	}
}

func TestPermutationPreparation(t *testing.T) {
	tr := NewTree(4, 0b1011)

	assert.Equal(t, 4, tr.Qubits())
	assert.InDelta(t, 1, cmplx.Abs(tr.Amplitude(0b1011)), 1e-12)
	assert.InDelta(t, 0, cmplx.Abs(tr.Amplitude(0b0011)), 1e-12)
	assert.InDelta(t, 0, cmplx.Abs(tr.Amplitude(0b1111)), 1e-12)
	assert.InDelta(t, 1, tr.TotalProbability(), 1e-12)
}

func TestCircuitMatchesDenseReference(t *testing.T) {
	tr := NewTree(3, 0)
	d := newDense(3, 0)

	steps := []struct {
		m      Matrix2x2
		target int
	}{
		{MatrixHadamard, 0},
		{MatrixHadamard, 1},
		{PhaseShift(math.Pi / 3), 1},
		{MatrixPauliY, 2},
		{MatrixHadamard, 2},
		{MatrixPauliZ, 0},
		{MatrixHadamard, 0},
		{PhaseShift(math.Pi / 7), 2},
	}

	for _, s := range steps {
		require.NoError(t, tr.ApplySingle(s.m, s.target))
		d.apply(s.m, s.target)
		requireSameState(t, tr, d)
	}

	assert.InDelta(t, 1, tr.TotalProbability(), 1e-9)
}

func TestEntangledStateMatchesDenseReference(t *testing.T) {
	tr := &Tree{root: bell(), qubits: 2}
	d := newDense(2, 0)
	d.amps[0] = invSqrt2
	d.amps[3] = invSqrt2

	requireSameState(t, tr, d)

	require.NoError(t, tr.ApplySingle(MatrixHadamard, 0))
	d.apply(MatrixHadamard, 0)
	requireSameState(t, tr, d)

	require.NoError(t, tr.ApplySingle(MatrixHadamard, 1))
	d.apply(MatrixHadamard, 1)
	requireSameState(t, tr, d)

	assert.InDelta(t, 1, tr.TotalProbability(), 1e-9)
}

func TestWidthCeiling(t *testing.T) {
	assert.Panics(t, func() { NewTree(MaxWidth+1, 0) })
	assert.Panics(t, func() { NewTree(-1, 0) })

	assert.Equal(t, MaxWidth, NewTree(MaxWidth, 0).Qubits())

	tr := NewTree(MaxWidth, 0)
	var pe *PreconditionError
	require.ErrorAs(t, tr.InsertZeroQubits(0, 1), &pe)
	assert.Equal(t, MaxWidth, tr.Qubits())
}

func TestApplySingleRejectsBadTarget(t *testing.T) {
	tr := NewTree(2, 0)

	var pe *PreconditionError
	require.ErrorAs(t, tr.ApplySingle(MatrixPauliX, 2), &pe)
	require.ErrorAs(t, tr.ApplySingle(MatrixPauliX, -1), &pe)
}

func TestNormalizeCorrectsDrift(t *testing.T) {
	tr := NewTree(2, 0)
	require.NoError(t, tr.ApplySingle(MatrixHadamard, 0))

	// Simulate accumulated floating-point drift.
	tr.Root().SetScale(complex(1.25, 0))
	assert.Greater(t, tr.TotalProbability(), 1.5)

	require.NoError(t, tr.Normalize())

	assert.InDelta(t, 1, tr.TotalProbability(), 1e-12)
	assert.InDelta(t, real(invSqrt2), cmplx.Abs(tr.Amplitude(0)), 1e-12)
	assert.InDelta(t, real(invSqrt2), cmplx.Abs(tr.Amplitude(1)), 1e-12)
}

func TestNormalizeStripsGlobalMagnitude(t *testing.T) {
	tr := NewTree(3, 0b101)
	tr.Root().SetScale(complex(0, 0.5))

	require.NoError(t, tr.Normalize())

	assert.InDelta(t, 1, tr.TotalProbability(), 1e-12)
	// The phase survives normalization, only the magnitude is corrected.
	assert.InDelta(t, math.Pi/2, tr.Phase(), 1e-12)
}

// countNodes walks the tree counting distinct node objects, the
// compression measure of the representation.
func countNodes(root Node) int {
	seen := map[*BaseNode]bool{}
	var walk func(n Node)
	walk = func(n Node) {
		if n == nil || seen[n.core()] {
			return
		}
		seen[n.core()] = true
		walk(n.Child(0))
		walk(n.Child(1))
	}
	walk(root)
	return len(seen)
}

func TestUniformSuperpositionCompresses(t *testing.T) {
	const qubits = 8
	tr := NewTree(qubits, 0)

	for q := 0; q < qubits; q++ {
		require.NoError(t, tr.ApplySingle(MatrixHadamard, q))
	}

	// The uniform superposition is a single shared chain, one node per
	// level, despite its 256 nonzero amplitudes.
	assert.LessOrEqual(t, countNodes(tr.Root()), qubits+1)

	want := complex(math.Pow(math.Sqrt2, -qubits), 0)
	assert.InDelta(t, real(want), cmplx.Abs(tr.Amplitude(0b10101010)), 1e-12)
	assert.InDelta(t, 1, tr.TotalProbability(), 1e-9)
}
