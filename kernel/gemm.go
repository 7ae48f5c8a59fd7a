package kernel

import (
	"fmt"

	"github.com/arm64tensor/mlc/encoder"
	"github.com/arm64tensor/mlc/jitbuf"
)

// Brgemm generates column-major fp32 GEMM and batch-reduce GEMM
// kernels. Grounded on src/Brgemm.h/.cpp, src/kernels/matmul_16_6_k.h
// and src/kernels/matmul/subkernels/matmul_16_6_k.cpp for the fixed
// 16x6xK tile, generalized over arbitrary M/N via genMNKTile so the
// tail subkernels that matmul_m_3_k.cpp/matmul_m_4_k.h hand-specialize
// per N become one generator closed over (m, n).
type Brgemm struct{}

const (
	mainTileM = 16
	mainTileN = 6
)

// Generate emits a single-call (non-batch-reduce) GEMM kernel computing
// C += A*B for an M x N x K column-major product. transA/transB/transC
// are accepted to mirror Brgemm::generate's signature; only the
// column-major/column-major/column-major case (all zero) is
// implemented, matching the reference implementation's own lack of any
// other code path.
func (Brgemm) Generate(m, n, k int, transA, transB, transC uint32, dtype Dtype) (*jitbuf.Kernel, error) {
	if dtype != Fp32 {
		return nil, ErrUnsupportedDtype
	}
	if transA != 0 || transB != 0 || transC != 0 {
		return nil, ErrUnsupportedTranspose
	}
	if m <= 0 || n <= 0 || k <= 0 {
		return nil, fmt.Errorf("kernel: m, n, k must be positive")
	}

	buf := jitbuf.New()
	// genMNKTile uses up to x28, so all five x19-x28 pairs are saved.
	if err := prologue(buf, 5); err != nil {
		return nil, err
	}
	if err := convertStridesToBytes(buf); err != nil {
		return nil, err
	}
	if err := generalMNK(buf, m, n, k, false); err != nil {
		return nil, err
	}
	if err := epilogue(buf, 5); err != nil {
		return nil, err
	}
	return buf.Materialize()
}

// GenerateBatchReduce emits a kernel computing C += sum_b A_b*B_b over
// brSize batches, advancing A/B by brStrideA/brStrideB elements between
// batches, matching Brgemm's batch-reduce outer loop wrapped around the
// same fixed inner tile.
func (Brgemm) GenerateBatchReduce(m, n, k, brSize int, brStrideA, brStrideB int64, transA, transB, transC uint32, dtype Dtype) (*jitbuf.Kernel, error) {
	if dtype != Fp32 {
		return nil, ErrUnsupportedDtype
	}
	if transA != 0 || transB != 0 || transC != 0 {
		return nil, ErrUnsupportedTranspose
	}
	if m <= 0 || n <= 0 || k <= 0 || brSize <= 0 {
		return nil, fmt.Errorf("kernel: m, n, k, brSize must be positive")
	}

	buf := jitbuf.New()
	// x6 carries brSize (caller ABI); x22/x23 hold the batch strides in
	// bytes, computed once since they never change across batches.
	if err := prologue(buf, 5); err != nil {
		return nil, err
	}
	if err := convertStridesToBytes(buf); err != nil {
		return nil, err
	}
	if err := emit(buf, encoder.MovImm(encoder.X22, uint32(brStrideA*elemSize))); err != nil {
		return nil, err
	}
	if err := emit(buf, encoder.MovImm(encoder.X23, uint32(brStrideB*elemSize))); err != nil {
		return nil, err
	}
	if err := emit(buf, encoder.MovReg(encoder.X24, encoder.X6)); err != nil { // batch counter
		return nil, err
	}
	if err := buf.AddLabel("br_loop"); err != nil {
		return nil, err
	}
	if err := generalMNK(buf, m, n, k, true); err != nil {
		return nil, err
	}
	if err := emit(buf, encoder.AddReg(encoder.X0, encoder.X0, encoder.X22, 0, 0)); err != nil {
		return nil, err
	}
	if err := emit(buf, encoder.AddReg(encoder.X1, encoder.X1, encoder.X23, 0, 0)); err != nil {
		return nil, err
	}
	if err := emit(buf, encoder.SubImm(encoder.X24, encoder.X24, 1, 0)); err != nil {
		return nil, err
	}
	count, err := buf.InstrCountFromLabel("br_loop")
	if err != nil {
		return nil, err
	}
	if err := emit(buf, encoder.Cbnz(encoder.X24, -int32(count)*4)); err != nil {
		return nil, err
	}
	if err := epilogue(buf, 5); err != nil {
		return nil, err
	}
	return buf.Materialize()
}

// convertStridesToBytes turns the caller's element-count leading
// dimensions (x3, x4, x5) into byte strides held in the callee-saved
// registers x19-x21, matching the original's ld_a/ld_b/ld_c *
// sizeof(float) scaling done once at kernel entry.
func convertStridesToBytes(buf *jitbuf.Buffer) error {
	if err := emit(buf, encoder.Lsl(encoder.X19, encoder.X3, 2)); err != nil {
		return err
	}
	if err := emit(buf, encoder.Lsl(encoder.X20, encoder.X4, 2)); err != nil {
		return err
	}
	return emit(buf, encoder.Lsl(encoder.X21, encoder.X5, 2))
}

// generalMNK composes fixed 16x6xK tiles over the full M x N extent,
// with genMNKTile handling the 1-15-row and 1-5-column remainders, per
// spec's template-generated-tail design. batchReduce is set by the
// batch-reduce outer loop but does not change the emitted code:
// generalMNK only reads x0/x1/x2 and never advances them, so the outer
// loop's per-batch A/B advance carries over unchanged.
func generalMNK(buf *jitbuf.Buffer, m, n, k int, batchReduce bool) error {
	for nOff := 0; nOff < n; nOff += mainTileN {
		tileN := min(mainTileN, n-nOff)
		for mOff := 0; mOff < m; mOff += mainTileM {
			tileM := min(mainTileM, m-mOff)
			if err := genMNKTile(buf, tileM, tileN, k, mOff, nOff); err != nil {
				return err
			}
		}
	}
	return nil
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// genMNKTile emits one fixed-shape (m <= 16, n <= 6) tile: load the C
// sub-block into accumulators, run the K reduction loop broadcasting
// columns of B against quad-rows of A, store the accumulators back.
// mOff/nOff are the tile's element offset within the full C matrix,
// used to compute its base address from x2/x19/x20/x21.
func genMNKTile(buf *jitbuf.Buffer, m, n, k, mOff, nOff int) error {
	rowQuads := (m + 3) / 4
	lastQuadLanes := m % 4
	if lastQuadLanes == 0 {
		lastQuadLanes = 4
	}

	// x25 = &C[mOff, nOff], x26 = &A[mOff, 0], x27 = &B[0, nOff]
	if err := tileBaseAddr(buf, encoder.X25, encoder.X2, encoder.X21, mOff, nOff, elemSize); err != nil {
		return err
	}
	if err := tileBaseAddr(buf, encoder.X26, encoder.X0, encoder.X19, mOff, 0, elemSize); err != nil {
		return err
	}
	if err := tileBaseAddr(buf, encoder.X27, encoder.X1, encoder.X20, 0, nOff, elemSize); err != nil {
		return err
	}

	// Load the C tile into accumulators v0..v(rowQuads*n-1), column
	// major: column c occupies accumulators [c*rowQuads, c*rowQuads+rowQuads).
	if err := loadStoreCTile(buf, true, rowQuads, n, lastQuadLanes); err != nil {
		return err
	}

	if err := emit(buf, encoder.MovReg(encoder.X28, encoder.X26)); err != nil { // walking A column pointer
		return err
	}
	kCounterSaved := k
	if err := emit(buf, encoder.MovImm(encoder.X9, uint32(kCounterSaved))); err != nil {
		return err
	}
	loopLabel := fmt.Sprintf("k_loop_%d_%d", mOff, nOff)
	if err := buf.AddLabel(loopLabel); err != nil {
		return err
	}

	for rq := 0; rq < rowQuads; rq++ {
		aReg := encoder.V24 + encoder.V(rq)
		if err := emit(buf, encoder.LdrImm(aReg, encoder.X28, uint32(rq*16), encoder.SzQ)); err != nil {
			return err
		}
	}
	if err := emit(buf, encoder.AddReg(encoder.X28, encoder.X28, encoder.X19, 0, 0)); err != nil {
		return err
	}

	// x11 walks this k step's B row across the tile's columns; x27 stays
	// on the row's first column.
	bCursor := encoder.X11
	if err := emit(buf, encoder.MovReg(bCursor, encoder.X27)); err != nil {
		return err
	}
	for col := 0; col < n; col++ {
		if err := emit(buf, encoder.LdrImm(encoder.V29, bCursor, 0, encoder.SzS)); err != nil {
			return err
		}
		for rq := 0; rq < rowQuads; rq++ {
			acc := encoder.V0 + encoder.V(col*rowQuads+rq)
			aReg := encoder.V24 + encoder.V(rq)
			if err := emit(buf, encoder.FmlaElem(acc, aReg, encoder.V29, encoder.S4)); err != nil {
				return err
			}
		}
		if col != n-1 {
			if err := emit(buf, encoder.AddReg(bCursor, bCursor, encoder.X20, 0, 0)); err != nil {
				return err
			}
		}
	}
	// advance x27 to the next row of B for the next k step
	if err := emit(buf, encoder.AddImm(encoder.X27, encoder.X27, 4, 0)); err != nil {
		return err
	}

	if err := emit(buf, encoder.SubImm(encoder.X9, encoder.X9, 1, 0)); err != nil {
		return err
	}
	count, err := buf.InstrCountFromLabel(loopLabel)
	if err != nil {
		return err
	}
	if err := emit(buf, encoder.Cbnz(encoder.X9, -int32(count)*4)); err != nil {
		return err
	}

	return loadStoreCTile(buf, false, rowQuads, n, lastQuadLanes)
}

// tileBaseAddr computes dst = base + mOff*elemSize + nOff*ldBytes.
func tileBaseAddr(buf *jitbuf.Buffer, dst, base, ldBytes encoder.GPR, mOff, nOff, elemSize int) error {
	if err := emit(buf, encoder.MovImm(dst, uint32(mOff*elemSize))); err != nil {
		return err
	}
	if err := emit(buf, encoder.AddReg(dst, base, dst, 0, 0)); err != nil {
		return err
	}
	if nOff == 0 {
		return nil
	}
	tmp := encoder.X9
	if err := emit(buf, encoder.MovImm(tmp, uint32(nOff))); err != nil {
		return err
	}
	if err := emit(buf, encoder.Mul(tmp, tmp, ldBytes)); err != nil {
		return err
	}
	return emit(buf, encoder.AddReg(dst, dst, tmp, 0, 0))
}

// loadStoreCTile loads (isLoad) or stores the accumulator tile v0..
// v(rowQuads*n-1) against x25 (the tile's C base address), advancing a
// scratch column cursor in x8 by ldC bytes between columns. The last
// row-quad of a partial-M tile uses narrower scalar/doubleword
// transfers for its valid lanes only.
func loadStoreCTile(buf *jitbuf.Buffer, isLoad bool, rowQuads, n, lastQuadLanes int) error {
	if err := emit(buf, encoder.MovReg(encoder.X8, encoder.X25)); err != nil {
		return err
	}
	for col := 0; col < n; col++ {
		for rq := 0; rq < rowQuads; rq++ {
			acc := encoder.V0 + encoder.V(col*rowQuads+rq)
			lanes := 4
			if rq == rowQuads-1 {
				lanes = lastQuadLanes
			}
			off := uint32(rq * 16)
			switch {
			case lanes == 4:
				if isLoad {
					if err := emit(buf, encoder.LdrImm(acc, encoder.X8, off, encoder.SzQ)); err != nil {
						return err
					}
				} else {
					if err := emit(buf, encoder.StrImm(acc, encoder.X8, off, encoder.SzQ)); err != nil {
						return err
					}
				}
			case lanes == 3:
				// Two lanes via a doubleword transfer, plus the trailing
				// third lane via its own scalar transfer: a single SzD
				// transfer only covers 2 of the 3 valid rows, the same
				// split genUnaryColumn/genBinaryColumn use for their own
				// 3-remainder tails.
				if isLoad {
					if err := emit(buf, encoder.LdrImm(acc, encoder.X8, off, encoder.SzD)); err != nil {
						return err
					}
					if err := emit(buf, encoder.MovReg(encoder.X9, encoder.X8)); err != nil {
						return err
					}
					if err := emit(buf, encoder.AddImm(encoder.X9, encoder.X9, off+8, 0)); err != nil {
						return err
					}
					if err := emit(buf, encoder.Ld1Lane(acc, encoder.X9, 2, encoder.SzS)); err != nil {
						return err
					}
				} else {
					if err := emit(buf, encoder.StrImm(acc, encoder.X8, off, encoder.SzD)); err != nil {
						return err
					}
					if err := emit(buf, encoder.InsElem(encoder.V29, acc, 0, 2, encoder.SzS)); err != nil {
						return err
					}
					if err := emit(buf, encoder.MovReg(encoder.X9, encoder.X8)); err != nil {
						return err
					}
					if err := emit(buf, encoder.AddImm(encoder.X9, encoder.X9, off+8, 0)); err != nil {
						return err
					}
					if err := emit(buf, encoder.StrImm(encoder.V29, encoder.X9, 0, encoder.SzS)); err != nil {
						return err
					}
				}
			case lanes == 2:
				if isLoad {
					if err := emit(buf, encoder.LdrImm(acc, encoder.X8, off, encoder.SzD)); err != nil {
						return err
					}
				} else {
					if err := emit(buf, encoder.StrImm(acc, encoder.X8, off, encoder.SzD)); err != nil {
						return err
					}
				}
			default:
				if isLoad {
					if err := emit(buf, encoder.LdrImm(acc, encoder.X8, off, encoder.SzS)); err != nil {
						return err
					}
				} else {
					if err := emit(buf, encoder.StrImm(acc, encoder.X8, off, encoder.SzS)); err != nil {
						return err
					}
				}
			}
		}
		if col != n-1 {
			if err := emit(buf, encoder.AddReg(encoder.X8, encoder.X8, encoder.X21, 0, 0)); err != nil {
				return err
			}
		}
	}
	return nil
}
