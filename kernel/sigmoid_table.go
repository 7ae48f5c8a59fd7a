package kernel

import (
	"math"
	"sync"
	"unsafe"
)

// sigmoidTableSize is the number of (value, slope) entries spanning
// [-8, 8], per spec's interpolation-table design and
// include/mlc/kernels/unary/sigmoid_interp_primitive.h.
const sigmoidTableSize = 256

var (
	sigmoidTable     [sigmoidTableSize][2]float32
	sigmoidTableOnce = sync.OnceFunc(buildSigmoidTable)
)

const (
	sigmoidTableLo = -8.0
	sigmoidTableHi = 8.0
)

func buildSigmoidTable() {
	step := (sigmoidTableHi - sigmoidTableLo) / float32(sigmoidTableSize-1)
	for i := 0; i < sigmoidTableSize; i++ {
		x := sigmoidTableLo + float32(i)*step
		y := sigmoidScalar(x)
		var slope float32
		if i < sigmoidTableSize-1 {
			xNext := sigmoidTableLo + float32(i+1)*step
			slope = (sigmoidScalar(xNext) - y) / step
		} else {
			slope = (sigmoidScalar(x) - sigmoidScalar(x-step)) / step
		}
		sigmoidTable[i] = [2]float32{y, slope}
	}
}

func sigmoidScalar(x float32) float32 {
	return float32(1.0 / (1.0 + math.Exp(-float64(x))))
}

// SigmoidTable returns the process-wide 256-entry interpolation table,
// built once on first use and never mutated afterward.
func SigmoidTable() [sigmoidTableSize][2]float32 {
	sigmoidTableOnce()
	return sigmoidTable
}

// sigmoidTablePtr forces the table into existence and returns its base
// address, so genSigmoidInterp can bake a live pointer into generated
// code as a 64-bit immediate. The table is never reallocated or moved
// after buildSigmoidTable runs, so the address stays valid for the
// lifetime of the process.
func sigmoidTablePtr() unsafe.Pointer {
	sigmoidTableOnce()
	return unsafe.Pointer(&sigmoidTable[0])
}
