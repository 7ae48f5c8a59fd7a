package tensorop

// Optimize runs the four optimizer passes in the order
// src/ir/Optimizer.h recommends: identify which loops are the innermost
// (primitive) ones a kernel will be generated for, split any primitive
// loop that exceeds maxKernelSize, fuse adjacent loops that are too
// small to be worth their own loop overhead, and finally promote
// outermost sequential loops to shared (parallel) ones until enough
// parallelism is exposed for threadTarget workers.
func Optimize(dims *[]Dimension, threadTarget, maxKernelSize, minKernelSize int64) {
	IdentifyPrimitives(*dims)
	SplitDimensions(dims, maxKernelSize, minKernelSize)
	FuseDimensions(dims, minKernelSize)
	CreateSharedLoops(*dims, threadTarget)
}

// OptimizeSlices is the parallel-slices overload Optimizer.h declares
// alongside the Dimension-based one, used directly by
// TensorOperation.Setup's callers which already carry the five parallel
// slices rather than a []Dimension.
func OptimizeSlices(dimTypes *[]DimRole, execTypes *[]ExecMode, dimSizes, stridesIn0, stridesIn1, stridesOut *[]int64,
	threadTarget, maxKernelSize, minKernelSize int64) {
	dims := zipDimensions(*dimTypes, *execTypes, *dimSizes, *stridesIn0, *stridesIn1, *stridesOut)
	Optimize(&dims, threadTarget, maxKernelSize, minKernelSize)
	*dimTypes, *execTypes, *dimSizes, *stridesIn0, *stridesIn1, *stridesOut = unzipDimensions(dims)
}

func zipDimensions(dimTypes []DimRole, execTypes []ExecMode, dimSizes, stridesIn0, stridesIn1, stridesOut []int64) []Dimension {
	dims := make([]Dimension, len(dimTypes))
	for i := range dims {
		dims[i] = Dimension{
			Role:      dimTypes[i],
			ExecType:  execTypes[i],
			Size:      dimSizes[i],
			StrideIn0: stridesIn0[i],
			StrideIn1: stridesIn1[i],
			StrideOut: stridesOut[i],
		}
	}
	return dims
}

func unzipDimensions(dims []Dimension) (dimTypes []DimRole, execTypes []ExecMode, dimSizes, stridesIn0, stridesIn1, stridesOut []int64) {
	dimTypes = make([]DimRole, len(dims))
	execTypes = make([]ExecMode, len(dims))
	dimSizes = make([]int64, len(dims))
	stridesIn0 = make([]int64, len(dims))
	stridesIn1 = make([]int64, len(dims))
	stridesOut = make([]int64, len(dims))
	for i, d := range dims {
		dimTypes[i] = d.Role
		execTypes[i] = d.ExecType
		dimSizes[i] = d.Size
		stridesIn0[i] = d.StrideIn0
		stridesIn1[i] = d.StrideIn1
		stridesOut[i] = d.StrideOut
	}
	return
}

// IdentifyPrimitives walks the loop nest from innermost to outermost
// and marks the dimensions that will be handed to a generated kernel as
// Prim: the last K encountered (and a second K, for batch-reduce), the
// last N, the last M, and up to two C dimensions for the unary
// (identity) case where a single loop nest carries both the M and N
// roles via dim_t::c. Every other dimension defaults to Seq.
func IdentifyPrimitives(dims []Dimension) {
	kFound, nFound, mFound, cFound := 0, false, false, 0
	for i := len(dims) - 1; i >= 0; i-- {
		switch dims[i].Role {
		case RoleK:
			if kFound < 2 {
				dims[i].ExecType = ExecPrim
				kFound++
			}
		case RoleN:
			if !nFound {
				dims[i].ExecType = ExecPrim
				nFound = true
			}
		case RoleM:
			if !mFound {
				dims[i].ExecType = ExecPrim
				mFound = true
			}
		case RoleC:
			if cFound < 2 {
				dims[i].ExecType = ExecPrim
				cFound++
			}
		}
	}
	for i := range dims {
		if dims[i].ExecType == ExecUndefined {
			dims[i].ExecType = ExecSeq
		}
	}
}

// SplitDimensions breaks any Prim dimension whose size exceeds
// maxKernelSize into an outer Seq dimension and an inner Prim dimension
// sized by findBestSplit, so every kernel generator receives a size it
// can actually tile. The outer dimension's strides scale by the inner
// dimension's size since it walks in blocks of the inner extent.
func SplitDimensions(dims *[]Dimension, maxKernelSize, minKernelSize int64) {
	out := make([]Dimension, 0, len(*dims))
	for _, d := range *dims {
		if d.ExecType != ExecPrim || d.Size <= maxKernelSize {
			out = append(out, d)
			continue
		}
		outerSize, innerSize := findBestSplit(d.Size, maxKernelSize, minKernelSize, d.Role)
		if outerSize <= 1 {
			out = append(out, d)
			continue
		}
		outer := Dimension{
			Role:      d.Role,
			ExecType:  ExecSeq,
			Size:      outerSize,
			StrideIn0: d.StrideIn0 * innerSize,
			StrideIn1: d.StrideIn1 * innerSize,
			StrideOut: d.StrideOut * innerSize,
		}
		inner := d
		inner.Size = innerSize
		out = append(out, outer, inner)
	}
	*dims = out
}

// findBestSplit picks the inner (Prim) extent as the largest multiple of
// 4 in [minKernelSize, maxKernelSize] that divides size, or failing that
// the largest divisor of size in that range; it falls back to the full
// size with no split (size0 = 1) when no in-range divisor exists.
func findBestSplit(size, maxKernelSize, minKernelSize int64, _ DimRole) (size0, size1 int64) {
	if size <= maxKernelSize {
		return 1, size
	}
	// Prefer a split that keeps the inner extent a multiple of the
	// 4-lane NEON vector width, the natural blocking factor for every
	// kernel generator in this module.
	if s0, s1 := findLargestMultipleOfDivisor(4, size, maxKernelSize, minKernelSize); s1 != size {
		return s0, s1
	}
	for d := maxKernelSize; d >= minKernelSize; d-- {
		if size%d == 0 {
			return size / d, d
		}
	}
	return 1, size
}

// findLargestMultipleOfDivisor finds the largest multiple of iDivisor
// that divides iSize without remainder, is <= iMaxSize, and where both
// the divisor and the multiple itself are >= iMinSize. It returns (1,
// iSize) when no such multiple exists, per Optimizer.h's documented
// fallback.
func findLargestMultipleOfDivisor(iDivisor, iSize, iMaxSize, iMinSize int64) (oSize0, oSize1 int64) {
	if iDivisor < iMinSize {
		return 1, iSize
	}
	for mult := iMaxSize / iDivisor; mult >= 1; mult-- {
		candidate := mult * iDivisor
		if candidate < iMinSize || candidate > iMaxSize {
			continue
		}
		if iSize%candidate == 0 {
			return iSize / candidate, candidate
		}
	}
	return 1, iSize
}

// FuseDimensions merges adjacent Seq dimensions of the same role when
// they are contiguous in all three tensors (the outer dimension's
// stride equals the inner dimension's stride times its size) and the
// inner dimension is smaller than minKernelSize, collapsing loop
// overhead that a tiny trip count can't amortize.
func FuseDimensions(dims *[]Dimension, minKernelSize int64) {
	out := make([]Dimension, 0, len(*dims))
	for i := 0; i < len(*dims); i++ {
		d := (*dims)[i]
		if i+1 < len(*dims) {
			next := (*dims)[i+1]
			if d.ExecType == ExecSeq && next.ExecType == ExecSeq && d.Role == next.Role &&
				next.Size < minKernelSize &&
				d.StrideIn0 == next.StrideIn0*next.Size &&
				d.StrideIn1 == next.StrideIn1*next.Size &&
				d.StrideOut == next.StrideOut*next.Size {
				fused := Dimension{
					Role:      d.Role,
					ExecType:  ExecSeq,
					Size:      d.Size * next.Size,
					StrideIn0: next.StrideIn0,
					StrideIn1: next.StrideIn1,
					StrideOut: next.StrideOut,
				}
				out = append(out, fused)
				i++
				continue
			}
		}
		out = append(out, d)
	}
	*dims = out
}

// CreateSharedLoops promotes outermost Seq M/N dimensions to Shared (the
// flattened parallel-loop prefix TensorOperation.executeIterParallel
// walks) until the product of promoted sizes reaches threadTarget or no
// eligible Seq dimensions remain to promote. K (reduction) dimensions
// are never eligible: per spec's data-model invariant, a shared
// dimension always carries M or N role, since promoting a reduction
// axis would fan concurrent work items out over overlapping output
// addresses.
func CreateSharedLoops(dims []Dimension, threadTarget int64) {
	product := int64(1)
	for i := range dims {
		if product >= threadTarget {
			break
		}
		if dims[i].ExecType != ExecSeq {
			continue
		}
		if dims[i].Role != RoleM && dims[i].Role != RoleN {
			continue
		}
		dims[i].ExecType = ExecShared
		product *= dims[i].Size
	}
}
