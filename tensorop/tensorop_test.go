package tensorop

import (
	"runtime"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupRejectsMismatchedSliceLengths(t *testing.T) {
	var op TensorOperation
	err := op.Setup(Fp32, PtypeNone, PtypeGemm, PtypeNone,
		[]DimRole{RoleM, RoleK, RoleN},
		[]ExecMode{ExecPrim, ExecPrim, ExecPrim},
		[]int64{4, 4, 4},
		[]int64{1, 4},
		[]int64{0, 1, 4},
		[]int64{1, 0, 4})
	assert.ErrorIs(t, err, ErrWrongDimension)
}

func TestSetupRejectsFp64(t *testing.T) {
	var op TensorOperation
	err := op.Setup(Fp64, PtypeNone, PtypeGemm, PtypeNone,
		[]DimRole{RoleM, RoleK, RoleN},
		[]ExecMode{ExecPrim, ExecPrim, ExecPrim},
		[]int64{4, 4, 4}, []int64{1, 4, 0}, []int64{0, 1, 4}, []int64{1, 0, 4})
	assert.ErrorIs(t, err, ErrWrongDtype)
}

func TestSetupRejectsWrongPrimCountForBrgemm(t *testing.T) {
	var op TensorOperation
	err := op.Setup(Fp32, PtypeNone, PtypeBrgemm, PtypeNone,
		[]DimRole{RoleM, RoleK, RoleN},
		[]ExecMode{ExecPrim, ExecPrim, ExecPrim}, // only 3 prim dims, brgemm needs 4
		[]int64{4, 4, 4}, []int64{1, 4, 0}, []int64{0, 1, 4}, []int64{1, 0, 4})
	assert.ErrorIs(t, err, ErrWrongExecType)
}

func TestSetupRejectsDisallowedPtypeForFirstTouch(t *testing.T) {
	var op TensorOperation
	err := op.Setup(Fp32, PtypeGemm, PtypeGemm, PtypeNone,
		[]DimRole{RoleM, RoleK, RoleN},
		[]ExecMode{ExecPrim, ExecPrim, ExecPrim},
		[]int64{4, 4, 4}, []int64{1, 4, 0}, []int64{0, 1, 4}, []int64{1, 0, 4})
	assert.ErrorIs(t, err, ErrWrongPtype)
}

func TestGemmCorrectness(t *testing.T) {
	if runtime.GOARCH != "arm64" {
		t.Skip("correctness test requires arm64 to execute generated NEON assembly")
	}

	const m, n, k = 4, 4, 4

	var op TensorOperation
	// Column-major: A is MxK (ld=m), B is KxN (ld=k), C is MxN (ld=m).
	err := op.Setup(Fp32, PtypeZero, PtypeGemm, PtypeNone,
		[]DimRole{RoleM, RoleK, RoleN},
		[]ExecMode{ExecPrim, ExecPrim, ExecPrim},
		[]int64{m, k, n},
		[]int64{1, m, 0},
		[]int64{0, 1, k},
		[]int64{1, 0, m},
	)
	require.NoError(t, err)

	a := make([]float32, m*k)
	b := make([]float32, k*n)
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

	require.NoError(t, op.Execute(unsafe.Pointer(&a[0]), unsafe.Pointer(&b[0]), unsafe.Pointer(&c[0])))
	assert.Equal(t, want, c)
}

func TestIdentityCorrectness(t *testing.T) {
	if runtime.GOARCH != "arm64" {
		t.Skip("correctness test requires arm64 to execute generated NEON assembly")
	}

	const m, n = 4, 4

	var op TensorOperation
	err := op.Setup(Fp32, PtypeNone, PtypeIdentity, PtypeNone,
		[]DimRole{RoleC, RoleC},
		[]ExecMode{ExecPrim, ExecPrim},
		[]int64{m, n},
		[]int64{1, m},
		[]int64{0, 0},
		[]int64{1, m},
	)
	require.NoError(t, err)

	in := make([]float32, m*n)
	out := make([]float32, m*n)
	for i := range in {
		in[i] = float32(i) + 1
	}

	require.NoError(t, op.Execute(unsafe.Pointer(&in[0]), nil, unsafe.Pointer(&out[0])))
	assert.Equal(t, in, out)
}
