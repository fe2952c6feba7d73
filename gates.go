package qbdt

import (
	"math"
	"math/cmplx"
)

// Matrix2x2 is a single-qubit operator in row-major order:
// [m00, m01, m10, m11].
type Matrix2x2 [4]complex128

var sqrt1_2 = complex(1/math.Sqrt2, 0)

// Standard single-qubit operators.
var (
	MatrixIdentity = Matrix2x2{1, 0, 0, 1}
	MatrixPauliX   = Matrix2x2{0, 1, 1, 0}
	MatrixPauliY   = Matrix2x2{0, -1i, 1i, 0}
	MatrixPauliZ   = Matrix2x2{1, 0, 0, -1}
	MatrixHadamard = Matrix2x2{sqrt1_2, sqrt1_2, sqrt1_2, -sqrt1_2}
)

// PhaseShift returns the operator that leaves |0> alone and rotates |1> by
// theta radians.
func PhaseShift(theta float64) Matrix2x2 {
	return Matrix2x2{1, 0, 0, cmplx.Rect(1, theta)}
}
