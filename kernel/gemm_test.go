package kernel

import (
	"runtime"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBrgemmGenerateRejectsNonFp32(t *testing.T) {
	_, err := (Brgemm{}).Generate(4, 4, 4, 0, 0, 0, Fp64)
	assert.ErrorIs(t, err, ErrUnsupportedDtype)
}

func TestBrgemmGenerateRejectsTranspose(t *testing.T) {
	_, err := (Brgemm{}).Generate(4, 4, 4, 1, 0, 0, Fp32)
	assert.ErrorIs(t, err, ErrUnsupportedTranspose)
}

func TestBrgemmGenerateRejectsNonPositiveDims(t *testing.T) {
	_, err := (Brgemm{}).Generate(0, 4, 4, 0, 0, 0, Fp32)
	assert.Error(t, err, "m=0 should be rejected")
	_, err = (Brgemm{}).Generate(4, 0, 4, 0, 0, 0, Fp32)
	assert.Error(t, err, "n=0 should be rejected")
	_, err = (Brgemm{}).Generate(4, 4, 0, 0, 0, 0, Fp32)
	assert.Error(t, err, "k=0 should be rejected")
}

func TestBrgemmGenerateBatchReduceRejectsNonPositiveBrSize(t *testing.T) {
	_, err := (Brgemm{}).GenerateBatchReduce(4, 4, 4, 0, 16, 16, 0, 0, 0, Fp32)
	assert.Error(t, err, "brSize=0 should be rejected")
}

// TestGemmMatchesReference exercises generalMNK's tile-composition loop
// (multiple 16x6 tiles plus a ragged M and N remainder) against a
// brute-force column-major reference product, across several M tails
// including M%4==3 (the loadStoreCTile 3-lane remainder path).
func TestGemmMatchesReference(t *testing.T) {
	if runtime.GOARCH != "arm64" {
		t.Skip("correctness test requires arm64 to execute generated NEON assembly")
	}

	cases := []struct {
		name    string
		m, n, k int
	}{
		{"full-tile-plus-1-remainder", 17, 7, 5},
		{"full-tile-plus-3-remainder", 19, 7, 5}, // M%4==3: exercises loadStoreCTile's 3-lane tail
		{"pure-3-remainder", 3, 6, 4},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m, n, k := tc.m, tc.n, tc.k

			kern, err := (Brgemm{}).Generate(m, n, k, 0, 0, 0, Fp32)
			require.NoError(t, err)
			defer kern.Close()

			a := make([]float32, m*k) // column-major A[m,k] at a[mi+ki*m]
			b := make([]float32, k*n) // column-major B[k,n] at b[ki+ni*k]
			c := make([]float32, m*n)
			for i := range a {
				a[i] = float32(i%7) + 1
			}
			for i := range b {
				b[i] = float32(i%5) + 1
			}

			want := make([]float32, m*n)
			for mi := 0; mi < m; mi++ {
				for ni := 0; ni < n; ni++ {
					var sum float32
					for ki := 0; ki < k; ki++ {
						sum += a[mi+ki*m] * b[ki+ni*k]
					}
					want[mi+ni*m] = sum
				}
			}

			kern.CallGemm(unsafe.Pointer(&a[0]), unsafe.Pointer(&b[0]), unsafe.Pointer(&c[0]), int64(m), int64(k), int64(m))
			assert.Equal(t, want, c)
		})
	}
}

// TestBrgemmBatchReduceMatchesReference confirms that accumulation
// across brSize batches, each advanced by its own element stride,
// matches a sum of per-batch products.
func TestBrgemmBatchReduceMatchesReference(t *testing.T) {
	if runtime.GOARCH != "arm64" {
		t.Skip("correctness test requires arm64 to execute generated NEON assembly")
	}

	const m, n, k, brSize = 4, 4, 4, 3
	strideA := int64(m * k)
	strideB := int64(k * n)

	kern, err := (Brgemm{}).GenerateBatchReduce(m, n, k, brSize, strideA, strideB, 0, 0, 0, Fp32)
	require.NoError(t, err)
	defer kern.Close()

	a := make([]float32, int(strideA)*brSize)
	b := make([]float32, int(strideB)*brSize)
	c := make([]float32, m*n)
	for i := range a {
		a[i] = float32(i%7) + 1
	}
	for i := range b {
		b[i] = float32(i%5) + 1
	}

	want := make([]float32, m*n)
	for batch := 0; batch < brSize; batch++ {
		aBatch := a[int64(batch)*strideA:]
		bBatch := b[int64(batch)*strideB:]
		for mi := 0; mi < m; mi++ {
			for ni := 0; ni < n; ni++ {
				var sum float32
				for ki := 0; ki < k; ki++ {
					sum += aBatch[mi+ki*m] * bBatch[ki+ni*k]
				}
				want[mi+ni*m] += sum
			}
		}
	}

	kern.CallBrgemm(unsafe.Pointer(&a[0]), unsafe.Pointer(&b[0]), unsafe.Pointer(&c[0]), int64(m), int64(k), int64(m), brSize)
	assert.Equal(t, want, c)
}
