package qbdt

import (
	"math"
	"math/cmplx"
	"sync/atomic"
)

/*
DefaultSeparabilityThreshold is the default tolerance below which two
amplitudes are treated as equal. It is compared against the squared
magnitude (norm) of the complex difference, so the corresponding amplitude
distance is about 1e-8. A larger threshold compresses more aggressively but
discards more true amplitude distinction.
*/
const DefaultSeparabilityThreshold = 1e-16

// phaseEpsilon guards the canonical phase rotation in Prune against
// rotating by numerical noise.
const phaseEpsilon = 1e-10

var sepThreshBits atomic.Uint64

func init() {
	SetSeparabilityThreshold(DefaultSeparabilityThreshold)
}

// SeparabilityThreshold returns the tolerance currently used by the
// equality predicates and by zero-branch detection.
func SeparabilityThreshold() float64 {
	return math.Float64frombits(sepThreshBits.Load())
}

// SetSeparabilityThreshold replaces the tolerance. It applies to every
// subsequent comparison; trees already merged under a looser tolerance are
// not re-split.
func SetSeparabilityThreshold(t float64) {
	sepThreshBits.Store(math.Float64bits(t))
}

// ampNorm is the squared magnitude of an amplitude, the probability weight
// it contributes.
func ampNorm(c complex128) float64 {
	r, i := real(c), imag(c)
	return r*r + i*i
}

// isZeroAmp reports whether an amplitude is indistinguishable from zero
// under the separability threshold.
func isZeroAmp(c complex128) bool {
	return ampNorm(c) <= SeparabilityThreshold()
}

// ampsEqual reports whether two amplitudes are equal within the
// separability threshold. The difference is taken in the complex plane, so
// phase differences count.
func ampsEqual(a, b complex128) bool {
	return ampNorm(a-b) <= SeparabilityThreshold()
}

// unitPhase returns the unit-magnitude complex number carrying c's phase.
func unitPhase(c complex128) complex128 {
	return cmplx.Rect(1, cmplx.Phase(c))
}

// selectBit extracts the value of the qubit at the given depth from a
// basis-state permutation index.
func selectBit(perm uint64, bit int) int {
	return int((perm >> uint(bit)) & 1)
}
