package tensorop

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIdentifyPrimitivesMarksLastMNKFromTheEnd(t *testing.T) {
	dims := []Dimension{
		{Role: RoleM, Size: 200, StrideIn0: 1, StrideOut: 1},
		{Role: RoleK, Size: 64, StrideIn0: 200, StrideIn1: 1},
		{Role: RoleN, Size: 32, StrideIn1: 64, StrideOut: 200},
	}
	IdentifyPrimitives(dims)

	for i, d := range dims {
		assert.Equalf(t, ExecPrim, d.ExecType, "dims[%d] (%v)", i, d.Role)
	}
}

func TestIdentifyPrimitivesLeavesExtrasSeq(t *testing.T) {
	dims := []Dimension{
		{Role: RoleM, Size: 8}, // outer M loop, not the innermost one
		{Role: RoleM, Size: 32},
		{Role: RoleK, Size: 64},
		{Role: RoleN, Size: 32},
	}
	IdentifyPrimitives(dims)

	assert.Equal(t, ExecSeq, dims[0].ExecType, "outer M dim should stay seq")
	for i := 1; i < 4; i++ {
		assert.Equalf(t, ExecPrim, dims[i].ExecType, "dims[%d]", i)
	}
}

func TestFindLargestMultipleOfDivisor(t *testing.T) {
	s0, s1 := findLargestMultipleOfDivisor(4, 200, 64, 4)
	assert.Equal(t, int64(5), s0)
	assert.Equal(t, int64(40), s1)
}

func TestFindLargestMultipleOfDivisorFallsBack(t *testing.T) {
	// 7 has no multiple-of-4 divisor in range, so the fallback (1, size) applies.
	s0, s1 := findLargestMultipleOfDivisor(4, 7, 64, 4)
	assert.Equal(t, int64(1), s0)
	assert.Equal(t, int64(7), s1)
}

func TestSplitDimensionsSplitsOversizedPrimDim(t *testing.T) {
	dims := []Dimension{
		{Role: RoleM, ExecType: ExecPrim, Size: 200, StrideIn0: 1, StrideOut: 1},
		{Role: RoleK, ExecType: ExecPrim, Size: 64, StrideIn0: 200, StrideIn1: 1},
	}
	SplitDimensions(&dims, 64, 4)

	if !assert.Len(t, dims, 3, "expected a 3-dim result after splitting M") {
		return
	}
	outer, inner := dims[0], dims[1]
	assert.Equal(t, ExecSeq, outer.ExecType)
	assert.Equal(t, int64(5), outer.Size)
	assert.Equal(t, ExecPrim, inner.ExecType)
	assert.Equal(t, int64(40), inner.Size)
	assert.Equal(t, outer.StrideIn0, inner.StrideIn0*inner.Size, "outer stride should be inner stride * inner size")
}

func TestSplitDimensionsLeavesInRangeDimsAlone(t *testing.T) {
	dims := []Dimension{{Role: RoleK, ExecType: ExecPrim, Size: 32}}
	SplitDimensions(&dims, 64, 4)
	if assert.Len(t, dims, 1) {
		assert.Equal(t, int64(32), dims[0].Size)
	}
}

func TestFuseDimensionsMergesContiguousSmallSeqDims(t *testing.T) {
	dims := []Dimension{
		{Role: RoleM, ExecType: ExecSeq, Size: 10, StrideIn0: 3, StrideIn1: 0, StrideOut: 3},
		{Role: RoleM, ExecType: ExecSeq, Size: 3, StrideIn0: 1, StrideIn1: 0, StrideOut: 1},
	}
	FuseDimensions(&dims, 4)

	if !assert.Len(t, dims, 1, "expected dims to fuse into one") {
		return
	}
	assert.Equal(t, int64(30), dims[0].Size)
	assert.Equal(t, int64(1), dims[0].StrideIn0)
	assert.Equal(t, int64(1), dims[0].StrideOut)
}

func TestFuseDimensionsSkipsNonContiguousDims(t *testing.T) {
	dims := []Dimension{
		{Role: RoleM, ExecType: ExecSeq, Size: 10, StrideIn0: 99, StrideOut: 99},
		{Role: RoleM, ExecType: ExecSeq, Size: 3, StrideIn0: 1, StrideOut: 1},
	}
	FuseDimensions(&dims, 4)
	assert.Len(t, dims, 2, "expected dims to stay separate (stride mismatch)")
}

func TestCreateSharedLoopsPromotesUntilThreadTargetReached(t *testing.T) {
	dims := []Dimension{
		{Role: RoleM, ExecType: ExecSeq, Size: 4},
		{Role: RoleM, ExecType: ExecSeq, Size: 4},
		{Role: RoleK, ExecType: ExecPrim, Size: 64},
	}
	CreateSharedLoops(dims, 8)

	assert.Equal(t, ExecShared, dims[0].ExecType)
	assert.Equal(t, ExecShared, dims[1].ExecType)
	assert.Equal(t, ExecPrim, dims[2].ExecType, "prim dim must not be touched")
}

func TestCreateSharedLoopsStopsOnceTargetReached(t *testing.T) {
	dims := []Dimension{
		{Role: RoleM, ExecType: ExecSeq, Size: 16},
		{Role: RoleM, ExecType: ExecSeq, Size: 16},
	}
	CreateSharedLoops(dims, 8)

	assert.Equal(t, ExecShared, dims[0].ExecType, "first seq dim should become shared")
	assert.Equal(t, ExecSeq, dims[1].ExecType, "second seq dim should stay seq once target is met")
}

func TestOptimizeSlicesRoundTripsThroughZipUnzip(t *testing.T) {
	dimTypes := []DimRole{RoleM, RoleK, RoleN}
	execTypes := []ExecMode{ExecUndefined, ExecUndefined, ExecUndefined}
	dimSizes := []int64{200, 64, 32}
	stridesIn0 := []int64{1, 200, 0}
	stridesIn1 := []int64{0, 1, 64}
	stridesOut := []int64{1, 0, 200}

	OptimizeSlices(&dimTypes, &execTypes, &dimSizes, &stridesIn0, &stridesIn1, &stridesOut, 1, 64, 4)

	assert.Len(t, execTypes, len(dimTypes))
	assert.Len(t, dimSizes, len(dimTypes))
	// M=200 split against maxKernelSize=64 grows the nest by one dimension.
	assert.Len(t, dimTypes, 4, "expected 4 dims after splitting the oversized M loop")
}
