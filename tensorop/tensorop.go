package tensorop

import (
	"fmt"
	"unsafe"

	"golang.org/x/sync/errgroup"

	"github.com/arm64tensor/mlc/jitbuf"
	"github.com/arm64tensor/mlc/kernel"
)

// SetupError values mirror error_t from types.h one-for-one; success is
// represented by a nil error rather than a zero value.
var (
	ErrWrongDimension           = fmt.Errorf("tensorop: dimension slices have mismatched lengths")
	ErrWrongPtype               = fmt.Errorf("tensorop: primitive type not allowed in this position")
	ErrOperationNotSupported    = fmt.Errorf("tensorop: operation not supported")
	ErrWrongMatrixOrderingFormat = fmt.Errorf("tensorop: wrong matrix ordering format")
	ErrWrongDtype               = fmt.Errorf("tensorop: only Fp32 is supported")
	ErrWrongExecType            = fmt.Errorf("tensorop: wrong number of prim-exec-type loops for this primitive")
)

// Dtype mirrors dtype_t; only Fp32 has a working code path.
type Dtype int

const (
	Fp32 Dtype = iota
	Fp64
)

func (d Dtype) size() int64 {
	if d == Fp32 {
		return 4
	}
	return 8
}

func (d Dtype) toKernelDtype() kernel.Dtype {
	if d == Fp32 {
		return kernel.Fp32
	}
	return kernel.Fp64
}

// TensorOperation is a single fused loop nest lowered from a dimension
// list into first-touch/main/last-touch generated kernels, grounded
// instruction-for-instruction on TensorOperation.h/.cpp.
type TensorOperation struct {
	dtype Dtype

	kernelFirstTouchType Ptype
	kernelMainType       Ptype
	kernelLastTouchType  Ptype

	kernelFirstTouch *jitbuf.Kernel
	kernelMain       *jitbuf.Kernel // unary (identity) main kernel
	kernelGemmMain   *jitbuf.Kernel // gemm/brgemm main kernel
	kernelLastTouch  *jitbuf.Kernel

	dimTypes   []DimRole
	execTypes  []ExecMode
	dimSizes   []int64
	stridesIn0 []int64
	stridesIn1 []int64
	stridesOut []int64

	idFirstPrimitiveLoop int
	idFirstSeqLoop       int

	dimIdPrimM, dimIdPrimN, dimIdPrimK, dimIdPrimBR int
	dimIdSeqM, dimIdSeqN, dimIdSeqK                 int
	dimIdShaM, dimIdShaN                            int
	numParallelLoops                                int

	sharedLoopIDs   []int
	sharedLoopSizes []int64

	transposeOutput bool

	adjustedStrideIn0, adjustedStrideIn1, adjustedStrideOut int64
}

var allowedFirstTouch = map[Ptype]bool{PtypeNone: true, PtypeZero: true, PtypeRelu: true}
var allowedMain = map[Ptype]bool{PtypeNone: true, PtypeIdentity: true, PtypeBrgemm: true, PtypeGemm: true}
var allowedLastTouch = map[Ptype]bool{PtypeNone: true, PtypeRelu: true}

// Setup validates and lowers a loop nest into generated kernels.
func (t *TensorOperation) Setup(dtype Dtype, primFirstTouch, primMain, primLastTouch Ptype,
	dimTypes []DimRole, execTypes []ExecMode, dimSizes, stridesIn0, stridesIn1, stridesOut []int64) error {

	n := len(dimTypes)
	if len(execTypes) != n || len(dimSizes) != n || len(stridesIn0) != n || len(stridesIn1) != n || len(stridesOut) != n {
		return ErrWrongDimension
	}

	primCount := 0
	for _, e := range execTypes {
		if e == ExecPrim {
			primCount++
		}
	}
	switch primMain {
	case PtypeBrgemm:
		if primCount != 4 {
			return ErrWrongExecType
		}
	case PtypeGemm:
		if primCount != 3 {
			return ErrWrongExecType
		}
	case PtypeIdentity:
		if primCount != 2 {
			return ErrWrongExecType
		}
	}

	if dtype != Fp32 {
		return ErrWrongDtype
	}
	if !allowedFirstTouch[primFirstTouch] {
		return ErrWrongPtype
	}
	if !allowedMain[primMain] {
		return ErrWrongPtype
	}
	if !allowedLastTouch[primLastTouch] {
		return ErrWrongPtype
	}

	t.dtype = dtype
	t.dimTypes = append([]DimRole(nil), dimTypes...)
	t.execTypes = append([]ExecMode(nil), execTypes...)
	t.dimSizes = append([]int64(nil), dimSizes...)
	t.stridesIn0 = append([]int64(nil), stridesIn0...)
	t.stridesIn1 = append([]int64(nil), stridesIn1...)
	t.stridesOut = append([]int64(nil), stridesOut...)

	t.dimIdPrimM, t.dimIdPrimN, t.dimIdPrimK, t.dimIdPrimBR = -1, -1, -1, -1
	t.dimIdSeqM, t.dimIdSeqN, t.dimIdSeqK = -1, -1, -1
	t.dimIdShaM, t.dimIdShaN = -1, -1
	t.numParallelLoops = 0

	t.idFirstPrimitiveLoop = 0
	for i, e := range execTypes {
		if e == ExecPrim {
			t.idFirstPrimitiveLoop = i
			break
		}
	}
	t.idFirstSeqLoop = -1
	for i, e := range execTypes {
		if e == ExecSeq {
			t.idFirstSeqLoop = i
			break
		}
	}

	t.sharedLoopIDs = nil
	t.sharedLoopSizes = nil
	for i, e := range execTypes {
		if e == ExecShared {
			t.sharedLoopIDs = append(t.sharedLoopIDs, i)
			t.sharedLoopSizes = append(t.sharedLoopSizes, dimSizes[i])
		}
	}

	// Read PRIM dimensions right to left: the last K, N, M encountered,
	// and a second K as the batch-reduce dimension.
	for i := n - 1; i >= 0; i-- {
		if execTypes[i] != ExecPrim {
			continue
		}
		switch {
		case t.dimIdPrimM == -1 && dimTypes[i] == RoleM:
			t.dimIdPrimM = i
		case t.dimIdPrimN == -1 && dimTypes[i] == RoleN:
			t.dimIdPrimN = i
		case t.dimIdPrimK == -1 && dimTypes[i] == RoleK:
			t.dimIdPrimK = i
		case t.dimIdPrimK != -1 && t.dimIdPrimBR == -1 && dimTypes[i] == RoleK:
			t.dimIdPrimBR = i
		}
	}

	for i := 0; i < n; i++ {
		switch execTypes[i] {
		case ExecSeq:
			switch dimTypes[i] {
			case RoleM:
				t.dimIdSeqM = i
			case RoleN:
				t.dimIdSeqN = i
			case RoleK:
				t.dimIdSeqK = i
			}
		case ExecShared:
			switch dimTypes[i] {
			case RoleM:
				t.dimIdShaM = i
				t.numParallelLoops++
			case RoleN:
				t.dimIdShaN = i
				t.numParallelLoops++
			}
		}
	}

	if primMain == PtypeIdentity {
		for i := 0; i < n; i++ {
			if execTypes[i] == ExecPrim && dimTypes[i] == RoleC {
				if stridesIn0[i] == 1 {
					t.dimIdPrimM = i
				} else {
					t.dimIdPrimN = i
				}
			}
		}
	}

	if t.dimIdPrimM != -1 {
		t.transposeOutput = stridesIn0[t.dimIdPrimM] != stridesOut[t.dimIdPrimM]
	} else {
		t.transposeOutput = false
	}

	if primMain == PtypeIdentity {
		t.adjustedStrideIn0 = stridesIn0[t.dimIdPrimN]
		t.adjustedStrideIn1 = 0
		if !t.transposeOutput {
			t.adjustedStrideOut = stridesOut[t.dimIdPrimN]
		} else {
			t.adjustedStrideOut = stridesOut[t.dimIdPrimM]
		}
	} else {
		t.adjustedStrideIn0 = stridesIn0[t.dimIdPrimK]
		t.adjustedStrideIn1 = stridesIn1[t.dimIdPrimN]
		t.adjustedStrideOut = stridesOut[t.dimIdPrimN]
	}

	var err error
	kdtype := dtype.toKernelDtype()

	if primFirstTouch != PtypeNone {
		t.kernelFirstTouch, err = generateUnary(dimSizes[t.dimIdPrimM], dimSizes[t.dimIdPrimN], false, kdtype, primFirstTouch)
		if err != nil {
			return err
		}
	}

	switch primMain {
	case PtypeGemm:
		t.kernelGemmMain, err = kernel.Brgemm{}.Generate(int(dimSizes[t.dimIdPrimM]), int(dimSizes[t.dimIdPrimN]), int(dimSizes[t.dimIdPrimK]), 0, 0, 0, kdtype)
		if err != nil {
			return err
		}
	case PtypeBrgemm:
		brSize := dimSizes[t.dimIdPrimBR]
		brStrideA := stridesIn0[t.dimIdPrimBR]
		brStrideB := stridesIn1[t.dimIdPrimBR]
		t.kernelGemmMain, err = kernel.Brgemm{}.GenerateBatchReduce(
			int(dimSizes[t.dimIdPrimM]), int(dimSizes[t.dimIdPrimN]), int(dimSizes[t.dimIdPrimK]),
			int(brSize), brStrideA, brStrideB, 0, 0, 0, kdtype)
		if err != nil {
			return err
		}
	case PtypeIdentity:
		t.kernelMain, err = generateUnary(dimSizes[t.dimIdPrimM], dimSizes[t.dimIdPrimN], t.transposeOutput, kdtype, primMain)
		if err != nil {
			return err
		}
	}

	if primLastTouch != PtypeNone {
		t.kernelLastTouch, err = generateUnary(dimSizes[t.dimIdPrimM], dimSizes[t.dimIdPrimN], false, kdtype, primLastTouch)
		if err != nil {
			return err
		}
	}

	t.kernelFirstTouchType = primFirstTouch
	t.kernelMainType = primMain
	t.kernelLastTouchType = primLastTouch

	return nil
}

// ptypeToUnaryOp maps the tensorop-level Ptype to the kernel package's
// UnaryOp, selecting the transposing variant when transpose is set.
func ptypeToUnaryOp(p Ptype, transpose bool) (kernel.UnaryOp, error) {
	switch p {
	case PtypeZero:
		return kernel.Zero, nil
	case PtypeRelu:
		if transpose {
			return kernel.ReluTrans, nil
		}
		return kernel.Relu, nil
	case PtypeIdentity:
		if transpose {
			return kernel.IdentityTrans, nil
		}
		return kernel.Identity, nil
	case PtypeSquare:
		if transpose {
			return kernel.SquareTrans, nil
		}
		return kernel.Square, nil
	case PtypeReciprocal:
		if transpose {
			return kernel.ReciprocalTrans, nil
		}
		return kernel.Reciprocal, nil
	}
	return 0, ErrOperationNotSupported
}

func generateUnary(m, n int64, transpose bool, dtype kernel.Dtype, ptype Ptype) (*jitbuf.Kernel, error) {
	op, err := ptypeToUnaryOp(ptype, transpose)
	if err != nil {
		return nil, err
	}
	return kernel.Unary{}.Generate(int(m), int(n), dtype, op)
}

func (d Dtype) String() string {
	if d == Fp32 {
		return "fp32"
	}
	return "fp64"
}

// Execute runs the tensor operation over the given tensors, dispatching
// to the sequential or parallel driver depending on whether the setup
// loop nest carries any shared (parallel) dimensions.
func (t *TensorOperation) Execute(tensorIn0, tensorIn1, tensorOut unsafe.Pointer) error {
	if t.numParallelLoops == 0 {
		return t.executeIter(0, tensorIn0, tensorIn1, tensorOut, true, true)
	}
	return t.executeIterParallel(tensorIn0, tensorIn1, tensorOut, true, true)
}

// executeIter is the recursive sequential loop driver: it walks one
// dimension at a time until it reaches the first primitive loop, at
// which point it invokes the first-touch/main/last-touch kernels.
func (t *TensorOperation) executeIter(idLoop int, ptrIn0, ptrIn1, ptrOut unsafe.Pointer, firstAccess, lastAccess bool) error {
	size := t.dimSizes[idLoop]
	if idLoop == t.idFirstPrimitiveLoop {
		size = 1
	}
	dtypeSz := t.dtype.size()
	strideIn0 := t.stridesIn0[idLoop] * dtypeSz
	strideIn1 := t.stridesIn1[idLoop] * dtypeSz
	strideOut := t.stridesOut[idLoop] * dtypeSz

	for iter := int64(0); iter < size; iter++ {
		isFirst, isLast := firstAccess, lastAccess
		if size > 1 && t.dimTypes[idLoop] == RoleK {
			isFirst = firstAccess && iter == 0
			isLast = lastAccess && iter == t.dimSizes[idLoop]-1
		}

		subIn0 := unsafe.Add(ptrIn0, iter*strideIn0)
		subIn1 := unsafe.Add(ptrIn1, iter*strideIn1)
		subOut := unsafe.Add(ptrOut, iter*strideOut)

		if idLoop+1 < t.idFirstPrimitiveLoop {
			if err := t.executeIter(idLoop+1, subIn0, subIn1, subOut, isFirst, isLast); err != nil {
				return err
			}
			continue
		}

		if isFirst {
			if err := t.executeKernelFirstTouch(subOut, t.adjustedStrideOut); err != nil {
				return err
			}
		}
		brSize := int64(1)
		if t.dimIdPrimBR != -1 {
			brSize = t.dimSizes[t.dimIdPrimBR]
		}
		if err := t.executeKernelMain(subIn0, subIn1, subOut, t.adjustedStrideIn0, t.adjustedStrideIn1, t.adjustedStrideOut, brSize); err != nil {
			return err
		}
		if isLast {
			if err := t.executeKernelLastTouch(subOut, t.adjustedStrideOut); err != nil {
				return err
			}
		}
	}
	return nil
}

// executeIterParallel flattens the shared-loop prefix into a single
// index space and fans each flattened iteration out to its own
// goroutine via errgroup, mirroring the original's
// #pragma omp parallel for with golang.org/x/sync/errgroup instead.
func (t *TensorOperation) executeIterParallel(ptrIn0, ptrIn1, ptrOut unsafe.Pointer, firstAccess, lastAccess bool) error {
	total := int64(1)
	for _, s := range t.sharedLoopSizes {
		total *= s
	}

	var g errgroup.Group
	dtypeSz := t.dtype.size()
	for itAll := int64(0); itAll < total; itAll++ {
		itAll := itAll
		g.Go(func() error {
			remainder := itAll
			indices := make([]int64, len(t.sharedLoopIDs))
			for i := len(t.sharedLoopIDs) - 1; i >= 0; i-- {
				indices[i] = remainder % t.sharedLoopSizes[i]
				remainder /= t.sharedLoopSizes[i]
			}

			subIn0, subIn1, subOut := ptrIn0, ptrIn1, ptrOut
			for i, dimID := range t.sharedLoopIDs {
				idx := indices[i]
				subIn0 = unsafe.Add(subIn0, idx*t.stridesIn0[dimID]*dtypeSz)
				subIn1 = unsafe.Add(subIn1, idx*t.stridesIn1[dimID]*dtypeSz)
				subOut = unsafe.Add(subOut, idx*t.stridesOut[dimID]*dtypeSz)
			}

			startLoop := t.idFirstPrimitiveLoop
			if t.idFirstSeqLoop != -1 {
				startLoop = t.idFirstSeqLoop
			}
			return t.executeIter(startLoop, subIn0, subIn1, subOut, firstAccess, lastAccess)
		})
	}
	return g.Wait()
}

func (t *TensorOperation) executeKernelFirstTouch(ptrOut unsafe.Pointer, ldOut int64) error {
	if t.kernelFirstTouch == nil {
		return nil
	}
	switch t.kernelFirstTouchType {
	case PtypeZero:
		t.kernelFirstTouch.CallUnary(nil, ptrOut, 0, ldOut)
	case PtypeRelu:
		t.kernelFirstTouch.CallUnary(ptrOut, ptrOut, ldOut, ldOut)
	}
	return nil
}

func (t *TensorOperation) executeKernelMain(ptrIn0, ptrIn1, ptrOut unsafe.Pointer, ldA, ldB, ldC, brSize int64) error {
	switch t.kernelMainType {
	case PtypeGemm:
		t.kernelGemmMain.CallGemm(ptrIn0, ptrIn1, ptrOut, ldA, ldB, ldC)
	case PtypeBrgemm:
		t.kernelGemmMain.CallBrgemm(ptrIn0, ptrIn1, ptrOut, ldA, ldB, ldC, brSize)
	case PtypeIdentity:
		t.kernelMain.CallUnary(ptrIn0, ptrOut, ldA, ldC)
	}
	return nil
}

func (t *TensorOperation) executeKernelLastTouch(ptrOut unsafe.Pointer, ldOut int64) error {
	if t.kernelLastTouch == nil {
		return nil
	}
	switch t.kernelLastTouchType {
	case PtypeZero:
		t.kernelLastTouch.CallUnary(nil, ptrOut, 0, ldOut)
	case PtypeRelu:
		t.kernelLastTouch.CallUnary(ptrOut, ptrOut, ldOut, ldOut)
	}
	return nil
}
