package einsum

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arm64tensor/mlc/tensorop"
)

func TestParseLeaf(t *testing.T) {
	node, err := ParseExpression("0,1")
	require.NoError(t, err)
	assert.Equal(t, 0, node.NumChildren())
	assert.Equal(t, "0,1", node.TensorExpression)
	assert.Equal(t, []int64{0, 1}, node.DimensionIDs)
}

func TestParseUnaryPermutation(t *testing.T) {
	node, err := ParseExpression("[0,1]->[1,0]")
	require.NoError(t, err)
	assert.Equal(t, 1, node.NumChildren())
	assert.Equal(t, []int64{1, 0}, node.OutputDimensionIDs)
	require.NotNil(t, node.Left)
	assert.Equal(t, "0,1", node.Left.TensorExpression)
	assert.Nil(t, node.Right)
}

func TestParseBinaryContraction(t *testing.T) {
	node, err := ParseExpression("[0,1],[1,2]->[0,2]")
	require.NoError(t, err)
	assert.Equal(t, 2, node.NumChildren())
	require.NotNil(t, node.Left)
	require.NotNil(t, node.Right)
	assert.Equal(t, "0,1", node.Left.TensorExpression)
	assert.Equal(t, "1,2", node.Right.TensorExpression)
	assert.Equal(t, []int64{0, 2}, node.OutputDimensionIDs)
}

func TestParseRejectsUnbracketedOutput(t *testing.T) {
	_, err := ParseExpression("[0,1],[1,2]->0,2")
	assert.Error(t, err, "output dimension list must be bracketed")
}

func TestParseRejectsInvalidCharacter(t *testing.T) {
	_, err := ParseExpression("[0,1]->[a,2]")
	assert.Error(t, err)
}

func TestTreeStringMentionsEachNode(t *testing.T) {
	tree, err := Parse("[0,1],[1,2]->[0,2]")
	require.NoError(t, err)
	s := tree.String()
	assert.Contains(t, s, "0,2")
	assert.Contains(t, s, "0,1")
	assert.Contains(t, s, "1,2")
}

func TestMatmulContractionCorrectness(t *testing.T) {
	if runtime.GOARCH != "arm64" {
		t.Skip("correctness test requires arm64 to execute generated NEON assembly")
	}

	// dim ids: 0=M, 1=K, 2=N. Child/output dim orders are chosen so the
	// row-major-derived stride of each node's own fastest dimension (the
	// last id in its list) lands on the M (A, C) or K (B) axis the
	// generated column-major kernel assumes is contiguous.
	tree, err := Parse("[1,0],[2,1]->[2,0]")
	require.NoError(t, err)

	const sz = 4
	require.NoError(t, tree.Initialize([]int64{sz, sz, sz}, tensorop.Fp32, 1, 64, 4))

	a := make([]float32, sz*sz) // A[m,k] at a[m+sz*k]
	b := make([]float32, sz*sz) // B[k,n] at b[k+sz*n]
	for i := range a {
		a[i] = float32(i%7) + 1
	}
	for i := range b {
		b[i] = float32(i%5) + 1
	}

	out, err := tree.Execute(map[string][]float32{
		"1,0": a,
		"2,1": b,
	})
	require.NoError(t, err)

	for m := 0; m < sz; m++ {
		for n := 0; n < sz; n++ {
			var want float32
			for k := 0; k < sz; k++ {
				want += a[m+sz*k] * b[k+sz*n]
			}
			assert.Equalf(t, want, out[m+sz*n], "C[%d,%d]", m, n)
		}
	}
}
