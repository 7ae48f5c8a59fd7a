package kernel

import (
	"runtime"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBinaryGenerateRejectsNonFp32(t *testing.T) {
	_, err := (Binary{}).Generate(4, 4, Fp64, Add, 0)
	assert.ErrorIs(t, err, ErrUnsupportedDtype)
}

func TestBinaryGenerateRejectsTranspose(t *testing.T) {
	_, err := (Binary{}).Generate(4, 4, Fp32, Add, 1)
	assert.ErrorIs(t, err, ErrUnsupportedTranspose)
}

func TestBinaryGenerateRejectsNonPositiveDims(t *testing.T) {
	_, err := (Binary{}).Generate(0, 4, Fp32, Add, 0)
	assert.Error(t, err, "m=0 should be rejected")

	_, err = (Binary{}).Generate(4, 0, Fp32, Add, 0)
	assert.Error(t, err, "n=0 should be rejected")
}

func TestBinaryAddCorrectness(t *testing.T) {
	if runtime.GOARCH != "arm64" {
		t.Skip("correctness test requires arm64 to execute generated NEON assembly")
	}

	tests := []struct {
		name string
		pt   BinaryOp
		fn   func(a, b float32) float32
	}{
		{"add", Add, func(a, b float32) float32 { return a + b }},
		{"sub", Sub, func(a, b float32) float32 { return a - b }},
		{"mul", Mul, func(a, b float32) float32 { return a * b }},
		{"div", Div, func(a, b float32) float32 { return a / b }},
		{"min", Min, func(a, b float32) float32 {
			if a < b {
				return a
			}
			return b
		}},
		{"max", Max, func(a, b float32) float32 {
			if a > b {
				return a
			}
			return b
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			const m, n = 17, 3 // 17 exercises the 16-wide main stride plus a 1-wide tail.
			kern, err := (Binary{}).Generate(m, n, Fp32, tt.pt, 0)
			require.NoError(t, err, "Generate")
			defer kern.Close()

			a := make([]float32, m*n)
			b := make([]float32, m*n)
			c := make([]float32, m*n)
			want := make([]float32, m*n)
			for i := range a {
				a[i] = float32(i) + 1
				b[i] = float32(i)%5 + 1
				want[i] = tt.fn(a[i], b[i])
			}

			kern.CallBinary(unsafe.Pointer(&a[0]), unsafe.Pointer(&b[0]), unsafe.Pointer(&c[0]), int64(m), int64(m), int64(m))

			assert.Equal(t, want, c, "%s mismatch", tt.name)
		})
	}
}
