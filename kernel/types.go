// Package kernel generates AArch64/NEON micro-kernels: fixed and
// general-shape GEMM/BRGEMM tiles, and column-major unary/binary
// elementwise kernels. Grounded on
// _examples/original_source/src/{Brgemm,Binary,Unary}.h/.cpp.
package kernel

import (
	"fmt"
	"unsafe"

	"github.com/arm64tensor/mlc/encoder"
	"github.com/arm64tensor/mlc/jitbuf"
)

// Dtype selects the element width a kernel operates on. Only Fp32 has a
// generator; Fp64 is recognized and rejected the same way
// TensorOperation.setup rejects it (src/types.h's dtype_t has two
// enumerators but the reference implementation only ever implements
// fp32).
type Dtype int

const (
	Fp32 Dtype = iota
	Fp64
)

// ErrUnsupportedDtype is returned by every generator for Dtype values
// other than Fp32.
var ErrUnsupportedDtype = fmt.Errorf("kernel: only Fp32 is implemented")

// ErrUnsupportedTranspose is returned when a transpose combination is
// requested that has no generator, matching the reference
// implementation's own lack of a code path for it.
var ErrUnsupportedTranspose = fmt.Errorf("kernel: unsupported transpose combination")

// UnaryOp selects the per-element operation an elementwise unary kernel
// performs. Zero/Identity/Relu/Square are from the distilled spec;
// Reciprocal/FastSigmoid/SigmoidTaylor/SigmoidInterp/Decrement are
// supplemented from original_source's kernels/unary directory, and the
// *Trans variants store their output transposed via TRN/ZIP tiles.
type UnaryOp int

const (
	Zero UnaryOp = iota
	Identity
	Relu
	Square
	Reciprocal
	FastSigmoid
	SigmoidTaylor
	SigmoidInterp
	Decrement
	IdentityTrans
	ReluTrans
	SquareTrans
	ReciprocalTrans
	DecrementTrans
)

// BinaryOp selects the per-element operation a binary kernel performs
// across two input streams. Max is supplemented alongside Min per
// src/types.h's ptype_t, built by mirroring min_primitive with FMAX
// substituted for the min-selection sequence.
type BinaryOp int

const (
	Add BinaryOp = iota
	Sub
	Mul
	Div
	Min
	Max
)

// GemmFunc is the C-ABI-compatible shape of a generated GEMM kernel:
// void(*)(void const *a, void const *b, void *c, int64_t ldA, int64_t
// ldB, int64_t ldC).
type GemmFunc func(a, b, c unsafe.Pointer, ldA, ldB, ldC int64)

// BrgemmFunc additionally takes the batch-reduce size; the per-batch
// element strides for A and B are baked into the generated kernel at
// compile time (see GenerateBatchReduce), not passed at call time.
type BrgemmFunc func(a, b, c unsafe.Pointer, ldA, ldB, ldC int64, brSize int64)

// UnaryFunc is the shape of a generated elementwise unary kernel:
// void(*)(void const *a, void *b, int64_t ldA, int64_t ldB).
type UnaryFunc func(a, b unsafe.Pointer, ldA, ldB int64)

// BinaryFunc is the shape of a generated elementwise binary kernel.
type BinaryFunc func(a, b, c unsafe.Pointer, ldA, ldB, ldC int64)

const elemSize = 4 // fp32 only; Fp64 is rejected before any generator runs.

// prologue emits the standard AArch64 procedure-call-standard entry:
// save the frame-pointer/link-register pair and savedGPRPairs pairs of
// callee-saved general-purpose registers starting at x19/x20, which the
// caller sizes to cover every one of x19-x28 its body clobbers. The
// vector registers d8-d15 are not saved.
func prologue(buf *jitbuf.Buffer, savedGPRPairs int) error {
	if err := emit(buf, encoder.StpPre(encoder.X29, encoder.X30, encoder.SP, -16)); err != nil {
		return err
	}
	if err := emit(buf, encoder.MovSP(encoder.X29, encoder.SP)); err != nil {
		return err
	}
	for i := 0; i < savedGPRPairs; i++ {
		lo := encoder.GPR(int(encoder.X19) + i*2)
		hi := encoder.GPR(int(encoder.X19) + i*2 + 1)
		if err := emit(buf, encoder.StpPre(lo, hi, encoder.SP, -16)); err != nil {
			return err
		}
	}
	return nil
}

func epilogue(buf *jitbuf.Buffer, savedGPRPairs int) error {
	for i := savedGPRPairs - 1; i >= 0; i-- {
		lo := encoder.GPR(int(encoder.X19) + i*2)
		hi := encoder.GPR(int(encoder.X19) + i*2 + 1)
		if err := emit(buf, encoder.LdpPost(lo, hi, encoder.SP, 16)); err != nil {
			return err
		}
	}
	if err := emit(buf, encoder.LdpPost(encoder.X29, encoder.X30, encoder.SP, 16)); err != nil {
		return err
	}
	if err := emit(buf, encoder.Ret(encoder.X30)); err != nil {
		return err
	}
	return nil
}

// emit is a small adapter so kernel bodies can chain
// `encoder.Xxx(...)` calls directly into `buf.AddInstr`.
func emit(buf *jitbuf.Buffer, word uint32, err error) error {
	if err != nil {
		return err
	}
	return buf.AddInstr(word)
}
