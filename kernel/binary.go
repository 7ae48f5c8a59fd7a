package kernel

import (
	"fmt"

	"github.com/arm64tensor/mlc/encoder"
	"github.com/arm64tensor/mlc/jitbuf"
)

// Binary generates column-major fp32 elementwise kernels operating on
// two input streams, per src/Binary.h and
// include/mlc/kernels/binary/add_primitive.h; add/sub/mul/div/min share
// one skeleton with only the fused arithmetic opcode varying, and Max
// is supplemented alongside Min by mirroring its FMAX-based selection.
type Binary struct{}

const binaryMainStride = 16

// Generate emits a kernel computing C := A <op> B over an M x N
// column-major matrix triple. transC is accepted to mirror
// Binary::generate's signature; per spec.md §9 (adjusted_stride_out is
// only ever inspected on the unary identity path in the reference
// implementation, never the binary path), a nonzero transC is rejected
// rather than silently ignored.
func (Binary) Generate(m, n int, dtype Dtype, ptype BinaryOp, transC uint32) (*jitbuf.Kernel, error) {
	if dtype != Fp32 {
		return nil, ErrUnsupportedDtype
	}
	if transC != 0 {
		return nil, ErrUnsupportedTranspose
	}
	if m <= 0 || n <= 0 {
		return nil, fmt.Errorf("kernel: m, n must be positive")
	}

	buf := jitbuf.New()
	if err := prologue(buf, 2); err != nil {
		return nil, err
	}
	// x19/x20/x21 = ldA/ldB/ldC in bytes.
	if err := emit(buf, encoder.Lsl(encoder.X19, encoder.X3, 2)); err != nil {
		return nil, err
	}
	if err := emit(buf, encoder.Lsl(encoder.X20, encoder.X4, 2)); err != nil {
		return nil, err
	}
	if err := emit(buf, encoder.Lsl(encoder.X21, encoder.X5, 2)); err != nil {
		return nil, err
	}

	for col := 0; col < n; col++ {
		if err := genBinaryColumn(buf, m, col, ptype); err != nil {
			return nil, err
		}
	}

	if err := epilogue(buf, 2); err != nil {
		return nil, err
	}
	return buf.Materialize()
}

// genBinaryColumn walks one column of M elements, 16 at a time (four
// quad vectors), with the same mod-16 tail ladder genUnaryColumn uses.
func genBinaryColumn(buf *jitbuf.Buffer, m, col int, ptype BinaryOp) error {
	if err := binaryColBaseAddrs(buf, col); err != nil {
		return err
	}
	full := m / binaryMainStride
	rem := m % binaryMainStride

	if full > 0 {
		if err := emit(buf, encoder.MovImm(encoder.X9, uint32(full))); err != nil {
			return err
		}
		loopLabel := fmt.Sprintf("bm_loop_%d", col)
		if err := buf.AddLabel(loopLabel); err != nil {
			return err
		}
		for q := 0; q < 4; q++ {
			if err := binaryApplyQuad(buf, encoder.V(q), uint32(q*16), ptype); err != nil {
				return err
			}
		}
		if err := emit(buf, encoder.AddImm(encoder.X8, encoder.X8, 64, 0)); err != nil {
			return err
		}
		if err := emit(buf, encoder.AddImm(encoder.X13, encoder.X13, 64, 0)); err != nil {
			return err
		}
		if err := emit(buf, encoder.AddImm(encoder.X14, encoder.X14, 64, 0)); err != nil {
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
	}

	off := uint32(0)
	for rem > 0 {
		lanes := 4
		if rem < 4 {
			lanes = rem
		}
		size := encoder.SzQ
		switch lanes {
		case 1:
			size = encoder.SzS
		case 2, 3:
			size = encoder.SzD
		}
		if err := binaryApplyPartial(buf, off, size, lanes, ptype); err != nil {
			return err
		}
		if lanes == 3 {
			if err := binaryApplyPartial(buf, off+8, encoder.SzS, 1, ptype); err != nil {
				return err
			}
			off += 12
			rem -= 3
			continue
		}
		off += uint32(lanes * 4)
		rem -= lanes
	}
	return nil
}

// binaryColBaseAddrs sets x8 = &A[0,col], x13 = &B[0,col], x14 = &C[0,col].
func binaryColBaseAddrs(buf *jitbuf.Buffer, col int) error {
	if err := emit(buf, encoder.MovReg(encoder.X8, encoder.X0)); err != nil {
		return err
	}
	if err := emit(buf, encoder.MovReg(encoder.X13, encoder.X1)); err != nil {
		return err
	}
	if err := emit(buf, encoder.MovReg(encoder.X14, encoder.X2)); err != nil {
		return err
	}
	if col == 0 {
		return nil
	}
	if err := emit(buf, encoder.MovImm(encoder.X11, uint32(col))); err != nil {
		return err
	}
	if err := emit(buf, encoder.Mul(encoder.X12, encoder.X11, encoder.X19)); err != nil {
		return err
	}
	if err := emit(buf, encoder.AddReg(encoder.X8, encoder.X8, encoder.X12, 0, 0)); err != nil {
		return err
	}
	if err := emit(buf, encoder.Mul(encoder.X12, encoder.X11, encoder.X20)); err != nil {
		return err
	}
	if err := emit(buf, encoder.AddReg(encoder.X13, encoder.X13, encoder.X12, 0, 0)); err != nil {
		return err
	}
	if err := emit(buf, encoder.Mul(encoder.X12, encoder.X11, encoder.X21)); err != nil {
		return err
	}
	return emit(buf, encoder.AddReg(encoder.X14, encoder.X14, encoder.X12, 0, 0))
}

// binaryApplyQuad loads a full quad vector of A at byte offset off from
// x8 and of B from x13, applies ptype, and stores the result at the
// same offset into x14. The B operand is loaded eight registers above
// the A/accumulator register, keeping all four lanes of the 16-wide
// unroll (v0-v3 for A, v8-v11 for B) live at once.
func binaryApplyQuad(buf *jitbuf.Buffer, va encoder.V, off uint32, ptype BinaryOp) error {
	vb := va + 8
	if err := emit(buf, encoder.LdrImm(va, encoder.X8, off, encoder.SzQ)); err != nil {
		return err
	}
	if err := emit(buf, encoder.LdrImm(vb, encoder.X13, off, encoder.SzQ)); err != nil {
		return err
	}
	if err := applyBinaryOp(buf, va, va, vb, encoder.S4, ptype); err != nil {
		return err
	}
	return emit(buf, encoder.StrImm(va, encoder.X14, off, encoder.SzQ))
}

func binaryApplyPartial(buf *jitbuf.Buffer, off uint32, size encoder.SizeSpec, lanes int, ptype BinaryOp) error {
	va, vb := encoder.V0, encoder.V1
	if err := emit(buf, encoder.LdrImm(va, encoder.X8, off, size)); err != nil {
		return err
	}
	if err := emit(buf, encoder.LdrImm(vb, encoder.X13, off, size)); err != nil {
		return err
	}
	if lanes == 1 {
		if err := applyBinaryOpScalar(buf, va, va, vb, ptype); err != nil {
			return err
		}
	} else {
		arr := encoder.S2
		if lanes == 4 {
			arr = encoder.S4
		}
		if err := applyBinaryOp(buf, va, va, vb, arr, ptype); err != nil {
			return err
		}
	}
	return emit(buf, encoder.StrImm(va, encoder.X14, off, size))
}

func applyBinaryOp(buf *jitbuf.Buffer, vd, vn, vm encoder.V, arr encoder.ArrSpec, ptype BinaryOp) error {
	switch ptype {
	case Add:
		return emit(buf, encoder.FaddVec(vd, vn, vm, arr))
	case Sub:
		return emit(buf, encoder.FsubVec(vd, vn, vm, arr))
	case Mul:
		return emit(buf, encoder.FmulVec(vd, vn, vm, arr))
	case Div:
		return emit(buf, encoder.FdivVec(vd, vn, vm, arr))
	case Min:
		return emit(buf, encoder.FminVec(vd, vn, vm, arr))
	case Max:
		return emit(buf, encoder.FmaxVec(vd, vn, vm, arr))
	}
	return fmt.Errorf("kernel: unsupported binary primitive %v", ptype)
}

func applyBinaryOpScalar(buf *jitbuf.Buffer, vd, vn, vm encoder.V, ptype BinaryOp) error {
	switch ptype {
	case Add:
		return emit(buf, encoder.FaddScalar(vd, vn, vm, encoder.SzS))
	case Sub:
		return emit(buf, encoder.FsubScalar(vd, vn, vm, encoder.SzS))
	case Mul:
		return emit(buf, encoder.FmulScalar(vd, vn, vm, encoder.SzS))
	case Div:
		return emit(buf, encoder.FdivScalar(vd, vn, vm, encoder.SzS))
	case Min:
		return emit(buf, encoder.FminScalar(vd, vn, vm, encoder.SzS))
	case Max:
		return emit(buf, encoder.FmaxScalar(vd, vn, vm, encoder.SzS))
	}
	return fmt.Errorf("kernel: unsupported binary primitive %v", ptype)
}
