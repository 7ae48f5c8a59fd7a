package kernel

import (
	"runtime"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnaryGenerateRejectsNonFp32(t *testing.T) {
	_, err := (Unary{}).Generate(4, 4, Fp64, Identity)
	assert.ErrorIs(t, err, ErrUnsupportedDtype)
}

func TestUnaryGenerateRejectsNonPositiveDims(t *testing.T) {
	_, err := (Unary{}).Generate(0, 4, Fp32, Identity)
	assert.Error(t, err, "m=0 should be rejected")
	_, err = (Unary{}).Generate(4, 0, Fp32, Identity)
	assert.Error(t, err, "n=0 should be rejected")
}

// sigmoidInterpReference mirrors genSigmoidInterp's clamp/scale/truncate/
// interpolate sequence against the host-side table, for comparison
// against the JIT-generated kernel's output.
func sigmoidInterpReference(x float32) float32 {
	table := SigmoidTable()
	clamped := x
	if clamped < sigmoidTableLo {
		clamped = sigmoidTableLo
	}
	if clamped > sigmoidTableHi {
		clamped = sigmoidTableHi
	}
	step := (sigmoidTableHi - sigmoidTableLo) / float32(sigmoidTableSize-1)
	idxF := (clamped - sigmoidTableLo) / step
	idx := int(idxF)
	if idx >= sigmoidTableSize {
		idx = sigmoidTableSize - 1
	}
	frac := (idxF - float32(idx)) * step
	entry := table[idx]
	return entry[0] + entry[1]*frac
}

func TestUnarySigmoidInterpMatchesTableReference(t *testing.T) {
	if runtime.GOARCH != "arm64" {
		t.Skip("correctness test requires arm64 to execute generated NEON assembly")
	}

	const m, n = 19, 2 // exercises the 16-wide main stride plus a 3-lane tail.
	kern, err := (Unary{}).Generate(m, n, Fp32, SigmoidInterp)
	require.NoError(t, err)
	defer kern.Close()

	a := make([]float32, m*n)
	b := make([]float32, m*n)
	want := make([]float32, m*n)
	for i := range a {
		// spans comfortably past both table clamp bounds.
		a[i] = -10 + float32(i)*(20.0/float32(len(a)-1))
		want[i] = sigmoidInterpReference(a[i])
	}

	kern.CallUnary(unsafe.Pointer(&a[0]), unsafe.Pointer(&b[0]), int64(m), int64(m))

	for i := range want {
		assert.InDelta(t, want[i], b[i], 1e-5, "index %d: x=%v", i, a[i])
	}
}

func TestUnarySigmoidInterpDiffersFromTaylor(t *testing.T) {
	if runtime.GOARCH != "arm64" {
		t.Skip("correctness test requires arm64 to execute generated NEON assembly")
	}

	const m, n = 4, 1
	interpKern, err := (Unary{}).Generate(m, n, Fp32, SigmoidInterp)
	require.NoError(t, err)
	defer interpKern.Close()

	taylorKern, err := (Unary{}).Generate(m, n, Fp32, SigmoidTaylor)
	require.NoError(t, err)
	defer taylorKern.Close()

	// Far from the Taylor expansion's center, the two approximations
	// diverge sharply: Taylor's polynomial overshoots well outside
	// [-1, 2] while the table stays within the logistic function's
	// [0, 1] range.
	a := []float32{4, 4, 4, 4}
	bInterp := make([]float32, m*n)
	bTaylor := make([]float32, m*n)

	interpKern.CallUnary(unsafe.Pointer(&a[0]), unsafe.Pointer(&bInterp[0]), int64(m), int64(m))
	taylorKern.CallUnary(unsafe.Pointer(&a[0]), unsafe.Pointer(&bTaylor[0]), int64(m), int64(m))

	assert.NotEqual(t, bTaylor[0], bInterp[0])
	assert.InDelta(t, sigmoidInterpReference(4), bInterp[0], 1e-5)
}

func TestUnaryReluAndReciprocalCorrectness(t *testing.T) {
	if runtime.GOARCH != "arm64" {
		t.Skip("correctness test requires arm64 to execute generated NEON assembly")
	}

	tests := []struct {
		name string
		pt   UnaryOp
		fn   func(x float32) float32
		tol  float64
	}{
		{"relu", Relu, func(x float32) float32 {
			if x < 0 {
				return 0
			}
			return x
		}, 0},
		{"square", Square, func(x float32) float32 { return x * x }, 0},
		{"reciprocal", Reciprocal, func(x float32) float32 { return 1 / x }, 1e-4},
		{"decrement", Decrement, func(x float32) float32 { return x - 1 }, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			const m, n = 19, 2 // exercises the 16-wide stride plus a 3-lane tail.
			kern, err := (Unary{}).Generate(m, n, Fp32, tt.pt)
			require.NoError(t, err, "Generate")
			defer kern.Close()

			a := make([]float32, m*n)
			b := make([]float32, m*n)
			want := make([]float32, m*n)
			for i := range a {
				a[i] = float32(i%9) - 3
				if a[i] == 0 && tt.pt == Reciprocal {
					a[i] = 1
				}
				want[i] = tt.fn(a[i])
			}

			kern.CallUnary(unsafe.Pointer(&a[0]), unsafe.Pointer(&b[0]), int64(m), int64(m))

			if tt.tol == 0 {
				assert.Equal(t, want, b, "%s mismatch", tt.name)
			} else {
				for i := range want {
					assert.InDelta(t, want[i], b[i], tt.tol, "%s index %d", tt.name, i)
				}
			}
		})
	}
}
