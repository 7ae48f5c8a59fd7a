package kernel

import (
	"fmt"
	"math"

	"github.com/arm64tensor/mlc/encoder"
	"github.com/arm64tensor/mlc/jitbuf"
)

// Unary generates column-major fp32 elementwise kernels operating on one
// input stream. Grounded on src/Unary.h/.cpp and
// src/kernels/unary/{zero_primitive,relu_primitive,identity_primitive,
// reciprocal_primitive,sigmoid_taylor_primitive}.*.
type Unary struct{}

const unaryMainStride = 16 // four quad vectors per spec's redesigned 16-wide stride

// Generate emits a kernel applying ptype to an M x N column-major
// matrix. transB selects the *Trans primitive variants storing C
// transposed via 4x4 TRN/ZIP tiles; it is folded into ptype selection
// at the call site rather than threaded separately, since each
// transposed primitive already has its own UnaryOp value.
func (Unary) Generate(m, n int, dtype Dtype, ptype UnaryOp) (*jitbuf.Kernel, error) {
	if dtype != Fp32 {
		return nil, ErrUnsupportedDtype
	}
	if m <= 0 || n <= 0 {
		return nil, fmt.Errorf("kernel: m, n must be positive")
	}
	if isTransposePrimitive(ptype) {
		if m%4 != 0 || n%4 != 0 {
			return nil, fmt.Errorf("kernel: transposed unary primitives require m and n to be multiples of 4")
		}
	}

	buf := jitbuf.New()
	if err := prologue(buf, 1); err != nil {
		return nil, err
	}
	// x19 = ldA bytes, x20 = ldB bytes
	if err := emit(buf, encoder.Lsl(encoder.X19, encoder.X2, 2)); err != nil {
		return nil, err
	}
	if err := emit(buf, encoder.Lsl(encoder.X20, encoder.X3, 2)); err != nil {
		return nil, err
	}

	if isTransposePrimitive(ptype) {
		if err := genUnaryTransposed(buf, m, n, ptype); err != nil {
			return nil, err
		}
	} else {
		for col := 0; col < n; col++ {
			if err := genUnaryColumn(buf, m, col, ptype); err != nil {
				return nil, err
			}
		}
	}

	if err := epilogue(buf, 1); err != nil {
		return nil, err
	}
	return buf.Materialize()
}

func isTransposePrimitive(p UnaryOp) bool {
	switch p {
	case IdentityTrans, ReluTrans, SquareTrans, ReciprocalTrans, DecrementTrans:
		return true
	}
	return false
}

// untransposed maps a *Trans primitive to the element-wise operation it
// applies before transposing; transposition itself is a pure data
// movement, orthogonal to which function is applied per element.
func untransposed(p UnaryOp) UnaryOp {
	switch p {
	case IdentityTrans:
		return Identity
	case ReluTrans:
		return Relu
	case SquareTrans:
		return Square
	case ReciprocalTrans:
		return Reciprocal
	case DecrementTrans:
		return Decrement
	}
	return p
}

// genUnaryTransposed walks the M x N input in 4x4 tiles: it loads four
// columns, applies the element-wise operation untransposed(ptype)
// selects, transposes the tile in registers via transpose4x4, and
// stores the result along B's own column-major layout at the swapped
// (n, m) tile offset. Generate requires m and n to both be multiples
// of 4, so every tile here is full-sized; this module does not
// generate the ragged-tile tails the full primitive family covers.
func genUnaryTransposed(buf *jitbuf.Buffer, m, n int, ptype UnaryOp) error {
	op := untransposed(ptype)
	cols := [4]encoder.V{encoder.V0, encoder.V1, encoder.V2, encoder.V3}
	scratch := [4]encoder.V{encoder.V4, encoder.V5, encoder.V6, encoder.V7}

	for nOff := 0; nOff < n; nOff += 4 {
		for mOff := 0; mOff < m; mOff += 4 {
			if err := tileBaseAddr(buf, encoder.X8, encoder.X0, encoder.X19, mOff, nOff, elemSize); err != nil {
				return err
			}
			for k, v := range cols {
				if op != Zero {
					if err := emit(buf, encoder.LdrImm(v, encoder.X8, 0, encoder.SzQ)); err != nil {
						return err
					}
				}
				if err := applyUnaryOp(buf, v, encoder.S4, op); err != nil {
					return err
				}
				if k != len(cols)-1 {
					if err := emit(buf, encoder.AddReg(encoder.X8, encoder.X8, encoder.X19, 0, 0)); err != nil {
						return err
					}
				}
			}

			if err := transpose4x4(buf, cols[0], cols[1], cols[2], cols[3], scratch[0], scratch[1], scratch[2], scratch[3]); err != nil {
				return err
			}

			if err := tileBaseAddr(buf, encoder.X10, encoder.X1, encoder.X20, nOff, mOff, elemSize); err != nil {
				return err
			}
			for k, v := range cols {
				if err := emit(buf, encoder.StrImm(v, encoder.X10, 0, encoder.SzQ)); err != nil {
					return err
				}
				if k != len(cols)-1 {
					if err := emit(buf, encoder.AddReg(encoder.X10, encoder.X10, encoder.X20, 0, 0)); err != nil {
						return err
					}
				}
			}
		}
	}
	return nil
}

// transpose4x4 transposes four quad-vector columns in place using the
// standard TRN1/TRN2 + ZIP1/ZIP2 register-only 4x4 transpose: TRN
// interleaves adjacent 32-bit lanes pairwise, then ZIP recombines the
// results as 64-bit lane pairs, turning four columns into four rows
// without ever spilling to memory.
func transpose4x4(buf *jitbuf.Buffer, c0, c1, c2, c3, t0, t1, t2, t3 encoder.V) error {
	if err := emit(buf, encoder.Trn1(t0, c0, c1, encoder.S4)); err != nil {
		return err
	}
	if err := emit(buf, encoder.Trn2(t1, c0, c1, encoder.S4)); err != nil {
		return err
	}
	if err := emit(buf, encoder.Trn1(t2, c2, c3, encoder.S4)); err != nil {
		return err
	}
	if err := emit(buf, encoder.Trn2(t3, c2, c3, encoder.S4)); err != nil {
		return err
	}
	if err := emit(buf, encoder.Zip1(c0, t0, t2, encoder.D2)); err != nil {
		return err
	}
	if err := emit(buf, encoder.Zip1(c1, t1, t3, encoder.D2)); err != nil {
		return err
	}
	if err := emit(buf, encoder.Zip2(c2, t0, t2, encoder.D2)); err != nil {
		return err
	}
	return emit(buf, encoder.Zip2(c3, t1, t3, encoder.D2))
}

// genUnaryColumn walks one column of M elements, 16 at a time (four
// quad vectors), with a tail ladder for M mod 16 covering every
// remainder 1-15, extending zero_primitive.cpp's mod-8 switch ladder to
// the spec's mod-16 stride.
func genUnaryColumn(buf *jitbuf.Buffer, m int, col int, ptype UnaryOp) error {
	if err := colBaseAddrs(buf, col); err != nil {
		return err
	}
	full := m / unaryMainStride
	rem := m % unaryMainStride

	if full > 0 {
		if err := emit(buf, encoder.MovImm(encoder.X9, uint32(full))); err != nil {
			return err
		}
		loopLabel := fmt.Sprintf("m_loop_%d", col)
		if err := buf.AddLabel(loopLabel); err != nil {
			return err
		}
		for q := 0; q < 4; q++ {
			if err := unaryApplyQuad(buf, encoder.V(q), uint32(q*16), ptype); err != nil {
				return err
			}
		}
		if err := emit(buf, encoder.AddImm(encoder.X8, encoder.X8, 64, 0)); err != nil {
			return err
		}
		if err := emit(buf, encoder.AddImm(encoder.X10, encoder.X10, 64, 0)); err != nil {
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
		if err := unaryApplyPartial(buf, off, size, lanes, ptype); err != nil {
			return err
		}
		if lanes == 3 {
			// the trailing single lane of a 3-remainder needs its own
			// scalar transfer after the doubleword pair.
			if err := unaryApplyPartial(buf, off+8, encoder.SzS, 1, ptype); err != nil {
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

// colBaseAddrs sets x8 = &A[0,col], x10 = &B[0,col].
func colBaseAddrs(buf *jitbuf.Buffer, col int) error {
	if err := emit(buf, encoder.MovReg(encoder.X8, encoder.X0)); err != nil {
		return err
	}
	if err := emit(buf, encoder.MovReg(encoder.X10, encoder.X1)); err != nil {
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
	return emit(buf, encoder.AddReg(encoder.X10, encoder.X10, encoder.X12, 0, 0))
}

// unaryApplyQuad loads a full quad vector at byte offset off from x8,
// applies ptype, and stores it at the same offset into x10.
func unaryApplyQuad(buf *jitbuf.Buffer, v encoder.V, off uint32, ptype UnaryOp) error {
	if ptype != Zero {
		if err := emit(buf, encoder.LdrImm(v, encoder.X8, off, encoder.SzQ)); err != nil {
			return err
		}
	}
	if err := applyUnaryOp(buf, v, encoder.S4, ptype); err != nil {
		return err
	}
	return emit(buf, encoder.StrImm(v, encoder.X10, off, encoder.SzQ))
}

func unaryApplyPartial(buf *jitbuf.Buffer, off uint32, size encoder.SizeSpec, lanes int, ptype UnaryOp) error {
	v := encoder.V0
	if ptype != Zero {
		if err := emit(buf, encoder.LdrImm(v, encoder.X8, off, size)); err != nil {
			return err
		}
	}
	arr := encoder.S2
	if size == encoder.SzS {
		arr = encoder.S2 // scalar path below ignores arr for 1-lane ops
	}
	if lanes == 4 {
		arr = encoder.S4
	}
	if lanes == 1 {
		if err := applyUnaryOpScalar(buf, v, ptype); err != nil {
			return err
		}
	} else {
		if err := applyUnaryOp(buf, v, arr, ptype); err != nil {
			return err
		}
	}
	return emit(buf, encoder.StrImm(v, encoder.X10, off, size))
}

// applyUnaryOp emits the vector-width instruction sequence for ptype
// operating on v in place.
func applyUnaryOp(buf *jitbuf.Buffer, v encoder.V, arr encoder.ArrSpec, ptype UnaryOp) error {
	switch ptype {
	case Zero:
		return emit(buf, encoder.ZeroVec(v, encoder.B16))
	case Identity:
		return nil
	case Relu:
		return emit(buf, encoder.FmaxVec(v, v, reluZeroVec(buf, arr), arr))
	case Square:
		return emit(buf, encoder.FmulVec(v, v, v, arr))
	case Decrement:
		return emit(buf, encoder.FsubVec(v, v, decrementOneVec(buf, arr), arr))
	case Reciprocal:
		return genReciprocal(buf, v, arr)
	case FastSigmoid:
		return genFastSigmoid(buf, v, arr)
	case SigmoidTaylor:
		return genSigmoidTaylor(buf, v, arr)
	case SigmoidInterp:
		return genSigmoidInterp(buf, v, arr)
	}
	return fmt.Errorf("kernel: unsupported unary primitive %v", ptype)
}

func applyUnaryOpScalar(buf *jitbuf.Buffer, v encoder.V, ptype UnaryOp) error {
	switch ptype {
	case Zero:
		return emit(buf, encoder.ZeroVec(v, encoder.B8))
	case Identity:
		return nil
	case Relu:
		return emit(buf, encoder.FmaxScalar(v, v, reluZeroScalar(buf), encoder.SzS))
	case Square:
		return emit(buf, encoder.FmulScalar(v, v, v, encoder.SzS))
	case Decrement:
		return emit(buf, encoder.FsubScalar(v, v, decrementOneScalar(buf), encoder.SzS))
	case Reciprocal:
		return genReciprocalScalar(buf, v)
	default:
		return applyUnaryOp(buf, v, encoder.S4, ptype)
	}
}

// reluZeroVec/decrementOneVec materialize the v30/v31 constant
// registers the fixed GEMM tile reserves for this purpose, reused here
// since a unary kernel never runs concurrently with a GEMM tile.
func reluZeroVec(buf *jitbuf.Buffer, arr encoder.ArrSpec) encoder.V {
	_ = emit(buf, encoder.ZeroVec(encoder.V30, encoder.B16))
	return encoder.V30
}

func reluZeroScalar(buf *jitbuf.Buffer) encoder.V {
	_ = emit(buf, encoder.ZeroVec(encoder.V30, encoder.B8))
	return encoder.V30
}

func decrementOneVec(buf *jitbuf.Buffer, arr encoder.ArrSpec) encoder.V {
	_ = loadConstant(buf, encoder.V31, 1.0)
	return encoder.V31
}

func decrementOneScalar(buf *jitbuf.Buffer) encoder.V {
	_ = loadConstant(buf, encoder.V31, 1.0)
	return encoder.V31
}

// vecLanes returns the lane count an arrangement specifier addresses,
// for the element-by-element register copy below.
func vecLanes(arr encoder.ArrSpec) int {
	if arr == encoder.S4 {
		return 4
	}
	return 2
}

// copyVec copies each of the first `lanes` single-precision elements
// from src into dst via the INS (element) form, the idiomatic way to
// move a whole vector register when no dedicated register-to-register
// MOV exists for it (spec's "element-lane MOV/INS" encoder category).
func copyVec(buf *jitbuf.Buffer, dst, src encoder.V, lanes int) error {
	for i := 0; i < lanes; i++ {
		if err := emit(buf, encoder.InsElem(dst, src, uint32(i), uint32(i), encoder.SzS)); err != nil {
			return err
		}
	}
	return nil
}

// genReciprocal computes 1/x via Newton-Raphson: y0 = FRECPE(x), y1 =
// y0*FRECPS(x,y0), y2 = y1*FRECPS(x,y1), per reciprocal_primitive.cpp's
// two-refinement-step sequence. x (v) is read-only throughout, since
// FRECPE/FRECPS never write their first operand, so the final estimate
// is copied into v only after both refinement steps.
func genReciprocal(buf *jitbuf.Buffer, v encoder.V, arr encoder.ArrSpec) error {
	return newtonRaphsonReciprocal(buf, v, arr)
}

func newtonRaphsonReciprocal(buf *jitbuf.Buffer, v encoder.V, arr encoder.ArrSpec) error {
	y := encoder.V29
	if err := emit(buf, encoder.FrecpeVec(y, v, arr)); err != nil {
		return err
	}
	step := encoder.V30
	for i := 0; i < 2; i++ {
		if err := emit(buf, encoder.FrecpsVec(step, v, y, arr)); err != nil {
			return err
		}
		if err := emit(buf, encoder.FmulVec(y, y, step, arr)); err != nil {
			return err
		}
	}
	return copyVec(buf, v, y, vecLanes(arr))
}

func genReciprocalScalar(buf *jitbuf.Buffer, v encoder.V) error {
	y := encoder.V29
	if err := emit(buf, encoder.FrecpeScalar(y, v, encoder.SzS)); err != nil {
		return err
	}
	step := encoder.V30
	for i := 0; i < 2; i++ {
		if err := emit(buf, encoder.FrecpsScalar(step, v, y, encoder.SzS)); err != nil {
			return err
		}
		if err := emit(buf, encoder.FmulScalar(y, y, step, encoder.SzS)); err != nil {
			return err
		}
	}
	return emit(buf, encoder.InsElem(v, y, 0, 0, encoder.SzS))
}

// genFastSigmoid computes 0.5*(x/(1+|x|) + 1) via FABS, FADD #1,
// FRECPE/FRECPS, FMUL, per fast_sigmoid_primitive.cpp.
func genFastSigmoid(buf *jitbuf.Buffer, v encoder.V, arr encoder.ArrSpec) error {
	abs := encoder.V28
	if err := emit(buf, encoder.FabsVec(abs, v, arr)); err != nil {
		return err
	}
	one := encoder.V27
	if err := loadConstant(buf, one, 1.0); err != nil {
		return err
	}
	if err := emit(buf, encoder.FaddVec(abs, abs, one, arr)); err != nil {
		return err
	}
	if err := newtonRaphsonReciprocal(buf, abs, arr); err != nil {
		return err
	}
	if err := emit(buf, encoder.FmulVec(v, v, abs, arr)); err != nil {
		return err
	}
	half := encoder.V27
	if err := loadConstant(buf, half, 0.5); err != nil {
		return err
	}
	if err := emit(buf, encoder.FmulVec(v, v, half, arr)); err != nil {
		return err
	}
	return emit(buf, encoder.FaddVec(v, v, half, arr))
}

// genSigmoidTaylor evaluates the 5th-order polynomial approximation to
// the logistic function around 0, per sigmoid_taylor_primitive.h.
var sigmoidTaylorCoeffs = [6]float32{0.5, 0.25, 0, -1.0 / 48, 0, 1.0 / 480}

func genSigmoidTaylor(buf *jitbuf.Buffer, v encoder.V, arr encoder.ArrSpec) error {
	// Horner evaluation against coefficients broadcast into v28 one at a
	// time: each step multiplies the accumulator in v29 by x (FMUL) and
	// adds the next coefficient (FADD).
	acc := encoder.V29
	if err := emit(buf, encoder.ZeroVec(acc, encoder.B16)); err != nil {
		return err
	}
	for i := len(sigmoidTaylorCoeffs) - 1; i >= 0; i-- {
		if err := emit(buf, encoder.FmulVec(acc, acc, v, arr)); err != nil {
			return err
		}
		if err := loadConstant(buf, encoder.V28, sigmoidTaylorCoeffs[i]); err != nil {
			return err
		}
		if err := emit(buf, encoder.FaddVec(acc, acc, encoder.V28, arr)); err != nil {
			return err
		}
	}
	return copyVec(buf, v, acc, vecLanes(arr))
}

// genSigmoidInterp evaluates the 256-entry (value, slope) table
// sigmoidTable builds: each lane is clamped to [sigmoidTableLo,
// sigmoidTableHi], scaled into a table index, truncated, and used to
// load a (value, slope) pair for a linear correction y = value +
// slope*frac. Table indexing has no vector form, so each lane is
// extracted to a scalar register, indexed, and written back in turn;
// x8/x10 (the column's A/B cursors), x9 (the outer m_loop counter when
// one is active) and the v0-v3 quad registers the caller is mid-walk
// over are all left untouched, since this runs inline inside
// genUnaryColumn's per-quad and tail-ladder loops.
func genSigmoidInterp(buf *jitbuf.Buffer, v encoder.V, arr encoder.ArrSpec) error {
	const (
		tableBase = encoder.X16
		addrScr   = encoder.X17
		idxGPR    = encoder.X14
		lo        = encoder.V27
		hi        = encoder.V26
		scale     = encoder.V25
		step      = encoder.V21
		lane      = encoder.V28
		idxF      = encoder.V24
		value     = encoder.V23
		slope     = encoder.V22
	)

	if err := loadScalarConstant(buf, lo, sigmoidTableLo); err != nil {
		return err
	}
	if err := loadScalarConstant(buf, hi, sigmoidTableHi); err != nil {
		return err
	}
	tableStep := (sigmoidTableHi - sigmoidTableLo) / float32(sigmoidTableSize-1)
	if err := loadScalarConstant(buf, step, tableStep); err != nil {
		return err
	}
	tableScale := 1 / tableStep
	if err := loadScalarConstant(buf, scale, tableScale); err != nil {
		return err
	}
	if err := loadTableBase(buf, tableBase); err != nil {
		return err
	}

	for i := 0; i < vecLanes(arr); i++ {
		if err := emit(buf, encoder.InsElem(lane, v, 0, uint32(i), encoder.SzS)); err != nil {
			return err
		}
		if err := emit(buf, encoder.FmaxScalar(lane, lane, lo, encoder.SzS)); err != nil {
			return err
		}
		if err := emit(buf, encoder.FminScalar(lane, lane, hi, encoder.SzS)); err != nil {
			return err
		}
		if err := emit(buf, encoder.FsubScalar(lane, lane, lo, encoder.SzS)); err != nil {
			return err
		}
		if err := emit(buf, encoder.FmulScalar(idxF, lane, scale, encoder.SzS)); err != nil {
			return err
		}
		// Truncate toward zero to the table index, then convert back
		// to recover frac = idxF - float(index) for the linear term.
		if err := emit(buf, encoder.FcvtzsScalar(idxGPR, idxF)); err != nil {
			return err
		}
		if err := emit(buf, encoder.ScvtfScalar(lane, idxGPR)); err != nil {
			return err
		}
		if err := emit(buf, encoder.FsubScalar(lane, idxF, lane, encoder.SzS)); err != nil {
			return err
		}
		// table slopes are dy/dx, so the index-unit fraction above needs
		// rescaling by the table's x-step before pairing with slope.
		if err := emit(buf, encoder.FmulScalar(lane, lane, step, encoder.SzS)); err != nil {
			return err
		}
		// addr = tableBase + index*8 (each entry is a {value, slope} pair)
		if err := emit(buf, encoder.Lsl(addrScr, idxGPR, 3)); err != nil {
			return err
		}
		if err := emit(buf, encoder.AddReg(addrScr, tableBase, addrScr, 0, 0)); err != nil {
			return err
		}
		if err := emit(buf, encoder.LdrImm(value, addrScr, 0, encoder.SzS)); err != nil {
			return err
		}
		if err := emit(buf, encoder.LdrImm(slope, addrScr, 4, encoder.SzS)); err != nil {
			return err
		}
		if err := emit(buf, encoder.FmulScalar(slope, slope, lane, encoder.SzS)); err != nil {
			return err
		}
		if err := emit(buf, encoder.FaddScalar(value, value, slope, encoder.SzS)); err != nil {
			return err
		}
		if err := emit(buf, encoder.InsElem(v, value, uint32(i), 0, encoder.SzS)); err != nil {
			return err
		}
	}

	return nil
}

// loadTableBase assembles the process-wide sigmoid table's address into
// rd via four MOVZ/MOVK chunks, the 64-bit extension of loadConstant's
// bit-pattern-assembly idiom.
func loadTableBase(buf *jitbuf.Buffer, rd encoder.GPR) error {
	addr := uint64(uintptr(sigmoidTablePtr()))
	if err := emit(buf, encoder.MovImm(rd, uint32(addr&0xffff))); err != nil {
		return err
	}
	for shift := uint32(1); shift < 4; shift++ {
		part := uint32((addr >> (shift * 16)) & 0xffff)
		if err := emit(buf, encoder.MovkImm(rd, part, shift)); err != nil {
			return err
		}
	}
	return nil
}

// loadScalarConstant materializes a float32 immediate into lane 0 of v,
// the scalar counterpart of loadConstant: it uses x15 rather than x9 for
// bit assembly, since x9 may hold genUnaryColumn's live m_loop counter
// when this runs mid-loop.
func loadScalarConstant(buf *jitbuf.Buffer, v encoder.V, f float32) error {
	bits := math.Float32bits(f)
	if err := emit(buf, encoder.MovImm(encoder.X15, bits&0xffff)); err != nil {
		return err
	}
	if err := emit(buf, encoder.MovkImm(encoder.X15, bits>>16, 1)); err != nil {
		return err
	}
	return emit(buf, encoder.FmovGPR(v, encoder.X15, encoder.SzS))
}

// loadConstant materializes a float32 immediate into every lane of v:
// MOVZ+MOVK assemble the bit pattern into scratch x15 (not x9, which may
// hold genUnaryColumn's live m_loop counter), FMOV moves it into lane 0,
// and INS broadcasts lane 0 across the rest of the register, since
// AArch64 has no single-instruction arbitrary FP32 vector immediate.
func loadConstant(buf *jitbuf.Buffer, v encoder.V, f float32) error {
	bits := math.Float32bits(f)
	if err := emit(buf, encoder.MovImm(encoder.X15, bits&0xffff)); err != nil {
		return err
	}
	if err := emit(buf, encoder.MovkImm(encoder.X15, bits>>16, 1)); err != nil {
		return err
	}
	if err := emit(buf, encoder.FmovGPR(v, encoder.X15, encoder.SzS)); err != nil {
		return err
	}
	for i := uint32(1); i < 4; i++ {
		if err := emit(buf, encoder.InsElem(v, v, i, 0, encoder.SzS)); err != nil {
			return err
		}
	}
	return nil
}
