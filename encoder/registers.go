// Package encoder provides pure functions that translate AArch64/NEON
// instruction operands into their 32-bit machine encodings.
package encoder

// GPR identifies one of the 31 general-purpose registers plus the
// zero-register aliases. The numeric value is the 5-bit Rn/Rd/Rm field
// used throughout the A64 instruction set; width (32-bit W vs 64-bit X)
// is selected by the instruction's own size bit, not by this type.
type GPR uint32

const (
	X0 GPR = iota
	X1
	X2
	X3
	X4
	X5
	X6
	X7
	X8
	X9
	X10
	X11
	X12
	X13
	X14
	X15
	X16
	X17
	X18
	X19
	X20
	X21
	X22
	X23
	X24
	X25
	X26
	X27
	X28
	X29
	X30
	// SP and the zero register share encoding 31; which one a given
	// instruction means depends on the instruction form. WZR/XZR are
	// provided as named aliases for readability at call sites.
	SP  GPR = 31
	XZR GPR = 31
	WZR GPR = 31
)

// V identifies one of the 32 SIMD&FP vector registers.
type V uint32

const (
	V0 V = iota
	V1
	V2
	V3
	V4
	V5
	V6
	V7
	V8
	V9
	V10
	V11
	V12
	V13
	V14
	V15
	V16
	V17
	V18
	V19
	V20
	V21
	V22
	V23
	V24
	V25
	V26
	V27
	V28
	V29
	V30
	V31
)

// ArrSpec is a NEON arrangement specifier, selecting how many lanes of
// what width a vector instruction operates across.
type ArrSpec uint32

const (
	// S2 - 2 lanes of 32-bit floats (bits 30,22..23 clear).
	S2 ArrSpec = 0x00000000
	// S4 - 4 lanes of 32-bit floats.
	S4 ArrSpec = 0x40000000
	// D2 - 2 lanes of 64-bit floats.
	D2 ArrSpec = 0x40400000
	// B8 - 8 lanes of bytes (64-bit half of the register). Bit 0 is a
	// tag that keeps B8/B16 distinct from S2/S4; it is not an encoding bit.
	B8 ArrSpec = 0x00000001
	// B16 - 16 lanes of bytes (full 128-bit register).
	B16 ArrSpec = 0x40000001
)

// SizeSpec selects scalar operand width for SIMD&FP instructions that
// operate on a single element (S = 32-bit, D = 64-bit, Q = 128-bit).
type SizeSpec uint32

const (
	SzS SizeSpec = 0
	SzD SizeSpec = 1
	SzQ SizeSpec = 2
)

func (g GPR) valid() bool { return g <= 31 }
func (v V) valid() bool   { return v <= 31 }

func regField(v uint32) uint32 { return v & 0x1f }
