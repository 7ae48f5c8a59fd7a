package encoder

// SIMD&FP instruction encoders, grounded on
// _examples/original_source/src/instructions/simd_fp and
// _examples/original_source/include/mlc/instructions/simd_fp. Forms not
// present in the surviving corpus but needed by the kernel generators
// (FADD/FSUB/FDIV/FMAX/FMIN, FRECPE, FMOV, TRN1/TRN2) are derived from
// the published AArch64 A64 ISA in the same opcode-constant style.

func validArr(a ArrSpec) bool {
	return a == S2 || a == S4 || a == D2
}

func arrBits(a ArrSpec) uint32 { return uint32(a) & 0x40400000 }

// EorVec encodes EOR Vd.<T>, Vn.<T>, Vm.<T> (T = 8B or 16B).
func EorVec(vd, vn, vm V, arr ArrSpec) (uint32, error) {
	if arr != B8 && arr != B16 {
		return 0, newErr("EOR", "arrangement must be 8B or 16B")
	}
	ins := uint32(0x2E201C00)
	if arr == B16 {
		ins |= 1 << 30
	}
	ins |= regField(uint32(vd))
	ins |= regField(uint32(vn)) << 5
	ins |= regField(uint32(vm)) << 16
	return ins, nil
}

// ZeroVec zeros a vector register via EOR Vd, Vd, Vd.
func ZeroVec(vd V, arr ArrSpec) (uint32, error) {
	return EorVec(vd, vd, vd, arr)
}

// FmlaVec encodes FMLA (vector) Vd.<T>, Vn.<T>, Vm.<T>.
func FmlaVec(vd, vn, vm V, arr ArrSpec) (uint32, error) {
	if !validArr(arr) {
		return 0, newErr("FMLA", "invalid arrangement specifier")
	}
	ins := uint32(0x0E20CC00)
	ins |= regField(uint32(vd))
	ins |= regField(uint32(vn)) << 5
	ins |= regField(uint32(vm)) << 16
	ins |= arrBits(arr)
	return ins, nil
}

// FmlaElem encodes FMLA (by element) Vd.<T>, Vn.<T>, Vm.S[0], used to
// broadcast a single scalar lane across the accumulator tile.
func FmlaElem(vd, vn, vm V, arr ArrSpec) (uint32, error) {
	if !validArr(arr) {
		return 0, newErr("FMLA (elem)", "invalid arrangement specifier")
	}
	ins := uint32(0x0F801000)
	ins |= regField(uint32(vd))
	ins |= regField(uint32(vn)) << 5
	ins |= regField(uint32(vm)) << 16
	ins |= arrBits(arr)
	return ins, nil
}

// Fmadd encodes FMADD Dd, Dn, Dm, Da (scalar fused multiply-add).
func Fmadd(vd, vn, vm, va V, size SizeSpec) (uint32, error) {
	if size != SzS && size != SzD {
		return 0, newErr("FMADD", "size must be S or D")
	}
	ins := uint32(0x1F000000)
	ins |= regField(uint32(vd))
	ins |= regField(uint32(vn)) << 5
	ins |= regField(uint32(vm)) << 16
	ins |= regField(uint32(va)) << 10
	ins |= (uint32(size) & 0x1) << 22
	return ins, nil
}

// FmulVec encodes FMUL (vector) Vd.<T>, Vn.<T>, Vm.<T>.
func FmulVec(vd, vn, vm V, arr ArrSpec) (uint32, error) {
	if !validArr(arr) {
		return 0, newErr("FMUL", "invalid arrangement specifier")
	}
	ins := uint32(0x2E20DC00)
	ins |= regField(uint32(vd))
	ins |= regField(uint32(vn)) << 5
	ins |= regField(uint32(vm)) << 16
	ins |= arrBits(arr)
	return ins, nil
}

// FmulScalar encodes FMUL Sd, Sn, Sm (or D variant).
func FmulScalar(vd, vn, vm V, size SizeSpec) (uint32, error) {
	return scalar2Src(0x1E200800, "FMUL", vd, vn, vm, size)
}

// FaddVec encodes FADD (vector).
func FaddVec(vd, vn, vm V, arr ArrSpec) (uint32, error) {
	return vec3same(0x0E20D400, "FADD", vd, vn, vm, arr)
}

// FsubVec encodes FSUB (vector).
func FsubVec(vd, vn, vm V, arr ArrSpec) (uint32, error) {
	return vec3same(0x0EA0D400, "FSUB", vd, vn, vm, arr)
}

// FdivVec encodes FDIV (vector).
func FdivVec(vd, vn, vm V, arr ArrSpec) (uint32, error) {
	return vec3same(0x2E20FC00, "FDIV", vd, vn, vm, arr)
}

// FmaxVec encodes FMAX (vector).
func FmaxVec(vd, vn, vm V, arr ArrSpec) (uint32, error) {
	return vec3same(0x0E20F400, "FMAX", vd, vn, vm, arr)
}

// FminVec encodes FMIN (vector); same opcode family as FMAX with an
// additional high bit set to select the min variant.
func FminVec(vd, vn, vm V, arr ArrSpec) (uint32, error) {
	return vec3same(0x0EA0F400, "FMIN", vd, vn, vm, arr)
}

func vec3same(base uint32, mnemonic string, vd, vn, vm V, arr ArrSpec) (uint32, error) {
	if !validArr(arr) {
		return 0, newErr(mnemonic, "invalid arrangement specifier")
	}
	ins := base
	ins |= regField(uint32(vd))
	ins |= regField(uint32(vn)) << 5
	ins |= regField(uint32(vm)) << 16
	ins |= arrBits(arr)
	return ins, nil
}

func scalar2Src(base uint32, mnemonic string, vd, vn, vm V, size SizeSpec) (uint32, error) {
	if size != SzS && size != SzD {
		return 0, newErr(mnemonic, "size must be S or D")
	}
	ins := base
	ins |= regField(uint32(vd))
	ins |= regField(uint32(vn)) << 5
	ins |= regField(uint32(vm)) << 16
	ins |= (uint32(size) & 0x3) << 22
	return ins, nil
}

// FaddScalar encodes FADD Sd, Sn, Sm.
func FaddScalar(vd, vn, vm V, size SizeSpec) (uint32, error) {
	return scalar2Src(0x1E202800, "FADD", vd, vn, vm, size)
}

// FsubScalar encodes FSUB Sd, Sn, Sm.
func FsubScalar(vd, vn, vm V, size SizeSpec) (uint32, error) {
	return scalar2Src(0x1E203800, "FSUB", vd, vn, vm, size)
}

// FdivScalar encodes FDIV Sd, Sn, Sm.
func FdivScalar(vd, vn, vm V, size SizeSpec) (uint32, error) {
	return scalar2Src(0x1E201800, "FDIV", vd, vn, vm, size)
}

// FmaxScalar encodes FMAX Sd, Sn, Sm.
func FmaxScalar(vd, vn, vm V, size SizeSpec) (uint32, error) {
	return scalar2Src(0x1E204800, "FMAX", vd, vn, vm, size)
}

// FminScalar encodes FMIN Sd, Sn, Sm.
func FminScalar(vd, vn, vm V, size SizeSpec) (uint32, error) {
	return scalar2Src(0x1E205800, "FMIN", vd, vn, vm, size)
}

// FabsVec encodes FABS (vector).
func FabsVec(vd, vn V, arr ArrSpec) (uint32, error) {
	if !validArr(arr) {
		return 0, newErr("FABS", "invalid arrangement specifier for fabsVec")
	}
	ins := uint32(0x0EA0F800)
	ins |= regField(uint32(vd))
	ins |= regField(uint32(vn)) << 5
	ins |= arrBits(arr)
	return ins, nil
}

// FabsScalar encodes FABS Sd, Sn (or D variant).
func FabsScalar(vd, vn V, size SizeSpec) (uint32, error) {
	if size != SzS && size != SzD {
		return 0, newErr("FABS", "invalid size specifier for fabsScalar")
	}
	ins := uint32(0x1E20C000)
	ftype := uint32(0)
	if size == SzD {
		ftype = 1
	}
	ins |= (ftype & 0x1) << 22
	ins |= regField(uint32(vd))
	ins |= regField(uint32(vn)) << 5
	return ins, nil
}

// FrecpeVec encodes FRECPE (vector), the reciprocal estimate used as
// the first step of the Newton-Raphson reciprocal kernel.
func FrecpeVec(vd, vn V, arr ArrSpec) (uint32, error) {
	if !validArr(arr) {
		return 0, newErr("FRECPE", "invalid arrangement specifier")
	}
	ins := uint32(0x0EA1D800)
	ins |= regField(uint32(vd))
	ins |= regField(uint32(vn)) << 5
	ins |= arrBits(arr)
	return ins, nil
}

// FrecpeScalar encodes FRECPE Sd, Sn (or D variant).
func FrecpeScalar(vd, vn V, size SizeSpec) (uint32, error) {
	if size != SzS && size != SzD {
		return 0, newErr("FRECPE", "invalid size specifier")
	}
	ins := uint32(0x5EA1D800)
	ins |= regField(uint32(vd))
	ins |= regField(uint32(vn)) << 5
	ins |= (uint32(size) & 0x1) << 22
	return ins, nil
}

// FrecpsVec encodes FRECPS (vector), one Newton-Raphson refinement step.
func FrecpsVec(vd, vn, vm V, arr ArrSpec) (uint32, error) {
	ins := uint32(0x0E20FC00)
	ins |= regField(uint32(vd))
	ins |= regField(uint32(vn)) << 5
	ins |= regField(uint32(vm)) << 16
	ins |= arrBits(arr)
	return ins, nil
}

// FrecpsScalar encodes FRECPS Sd, Sn, Sm (or D variant).
func FrecpsScalar(vd, vn, vm V, size SizeSpec) (uint32, error) {
	if size != SzS && size != SzD {
		return 0, newErr("FRECPS", "invalid size specifier")
	}
	ins := uint32(0x5E20FC00)
	ins |= regField(uint32(vd))
	ins |= regField(uint32(vn)) << 5
	ins |= regField(uint32(vm)) << 16
	ins |= (uint32(size) & 0x1) << 22
	return ins, nil
}

// FmovGPR encodes FMOV Sd, Wn (size S) or FMOV Dd, Xn (size D): moves a
// general-purpose register's bit pattern into a scalar FP register
// unchanged.
func FmovGPR(vd V, rn GPR, size SizeSpec) (uint32, error) {
	if size != SzS && size != SzD {
		return 0, newErr("FMOV", "invalid size specifier")
	}
	ins := uint32(0x1E270000)
	if size == SzD {
		ins = 0x9E670000
	}
	ins |= regField(uint32(vd))
	ins |= regField(uint32(rn)) << 5
	return ins, nil
}

// FcvtzsScalar encodes FCVTZS Wd, Sn: truncates a scalar single-precision
// value toward zero into a 32-bit general-purpose register.
func FcvtzsScalar(rd GPR, vn V) (uint32, error) {
	ins := uint32(0x1E380000)
	ins |= regField(uint32(rd))
	ins |= regField(uint32(vn)) << 5
	return ins, nil
}

// ScvtfScalar encodes SCVTF Sd, Wn: converts a signed 32-bit
// general-purpose register value to a scalar single-precision float.
func ScvtfScalar(vd V, rn GPR) (uint32, error) {
	ins := uint32(0x1E220000)
	ins |= regField(uint32(vd))
	ins |= regField(uint32(rn)) << 5
	return ins, nil
}

// InsElem encodes INS Vd.<S|D>[imm5], Vn.<S|D>[imm4], copying one
// element between vector registers.
func InsElem(vd, vn V, dstIndex, srcIndex uint32, size SizeSpec) (uint32, error) {
	if size != SzS && size != SzD {
		return 0, newErr("INS", "invalid size specifier")
	}
	ins := uint32(0x6E000400)
	ins |= regField(uint32(vd))
	ins |= regField(uint32(vn)) << 5
	if size == SzS {
		ins |= 1 << 18
		if dstIndex > 3 {
			return 0, newErr("INS", "destination index out of range for S size")
		}
		ins |= (dstIndex & 0x3) << 19
		if srcIndex > 3 {
			return 0, newErr("INS", "source index out of range for S size")
		}
		ins |= (srcIndex & 0x3) << 13
	} else {
		ins |= 1 << 19
		if dstIndex > 1 {
			return 0, newErr("INS", "destination index out of range for D size")
		}
		ins |= (dstIndex & 0x1) << 20
		if srcIndex > 1 {
			return 0, newErr("INS", "source index out of range for D size")
		}
		ins |= (srcIndex & 0x1) << 14
	}
	return ins, nil
}

// MovFromGPR encodes MOV Vd.<S|D>[index], Rn: inserts a GPR's value into
// one lane of a vector register without clearing the remaining lanes.
func MovFromGPR(vd V, rn GPR, index uint32, size SizeSpec) (uint32, error) {
	ins := uint32(0x4E001C00)
	ins |= regField(uint32(vd))
	ins |= regField(uint32(rn)) << 5

	var imm5 uint32
	switch size {
	case SzS:
		imm5 = 0b00100
		imm5 |= (index & 0x3) << 3
	case SzD:
		imm5 = 0b01000
		imm5 |= (index & 0x1) << 4
	default:
		return 0, newErr("MOV", "unsupported size specifier")
	}
	if uint32(rn)&0x20 != 0 {
		imm5 = (imm5 & 0b10000) | 0b01000
	}
	ins |= imm5 << 16
	return ins, nil
}

func checkScaledImm(mnemonic string, imm int64, size SizeSpec, isStore bool) (uint32, uint32, error) {
	var scale int64
	var opc uint32
	switch size {
	case SzS:
		scale = 4
		opc = 1
	case SzD:
		scale = 8
		opc = 1
	case SzQ:
		scale = 16
		opc = 3
	default:
		return 0, 0, newErr(mnemonic, "invalid size specifier")
	}
	if isStore {
		opc &^= 1 // STR clears opc's load bit: 00 for S/D, 10 for Q
	}
	if imm%scale != 0 {
		return 0, 0, newErr(mnemonic, "immediate offset must match the transfer size")
	}
	return uint32(imm/scale) & 0xfff, opc, nil
}

// LdrImm encodes LDR (SIMD&FP), unsigned-offset 12-bit immediate form.
func LdrImm(vd V, rn GPR, imm12 uint32, size SizeSpec) (uint32, error) {
	imm, opc, err := checkScaledImm("LDR", int64(imm12), size, false)
	if err != nil {
		return 0, err
	}
	ins := uint32(0x3D400000)
	var sf uint32
	switch size {
	case SzS:
		sf = 2
	case SzD:
		sf = 3
	case SzQ:
		sf = 0
	}
	ins |= sf << 30
	ins |= regField(uint32(vd))
	ins |= regField(uint32(rn)) << 5
	ins |= imm << 10
	ins |= opc << 22
	return ins, nil
}

// StrImm encodes STR (SIMD&FP), unsigned-offset 12-bit immediate form.
func StrImm(vd V, rn GPR, imm12 uint32, size SizeSpec) (uint32, error) {
	imm, opc, err := checkScaledImm("STR", int64(imm12), size, true)
	if err != nil {
		return 0, err
	}
	ins := uint32(0x3D000000)
	var sf uint32
	switch size {
	case SzS:
		sf = 2
	case SzD:
		sf = 3
	case SzQ:
		sf = 0
	}
	ins |= sf << 30
	ins |= regField(uint32(vd))
	ins |= regField(uint32(rn)) << 5
	ins |= imm << 10
	ins |= opc << 22
	return ins, nil
}

// StrSIMDPost encodes STR (SIMD&FP), post-index 9-bit immediate form.
func StrSIMDPost(vd V, rn GPR, imm9 uint32, size SizeSpec) (uint32, error) {
	if imm9%scaleOf(size) != 0 {
		return 0, newErr("STR", "immediate offset must match the transfer size")
	}
	ins := uint32(0x3C000400)
	var sf uint32
	switch size {
	case SzS:
		sf = 2
	case SzD:
		sf = 3
	case SzQ:
		sf = 0
	}
	ins |= sf << 30
	ins |= regField(uint32(vd))
	ins |= regField(uint32(rn)) << 5
	ins |= (imm9 & 0x1ff) << 12
	opc := uint32(0)
	if size == SzQ {
		opc = 1
	}
	ins |= opc << 23
	return ins, nil
}

func scaleOf(size SizeSpec) uint32 {
	switch size {
	case SzS:
		return 4
	case SzD:
		return 8
	default:
		return 16
	}
}

func ldpStpSIMD(base uint32, mnemonic string, vd1, vd2 V, rn GPR, imm7 int32, size SizeSpec) (uint32, error) {
	var scale int32
	switch size {
	case SzS:
		scale = 4
	case SzD:
		scale = 8
	case SzQ:
		scale = 16
	default:
		return 0, newErr(mnemonic, "invalid size specifier")
	}
	if imm7%scale != 0 {
		return 0, newErr(mnemonic, "immediate must match the transfer size")
	}
	scaled := imm7 / scale
	if scaled < -64 || scaled > 63 {
		return 0, newErr(mnemonic, "scaled immediate out of 7-bit signed range")
	}
	ins := base
	ins |= (uint32(size) & 0x3) << 30
	ins |= 0xA << 23
	ins |= regField(uint32(vd1))
	ins |= regField(uint32(rn)) << 5
	ins |= regField(uint32(vd2)) << 10
	ins |= (uint32(scaled) & 0x7f) << 15
	return ins, nil
}

// LdpSIMD encodes LDP (SIMD&FP), signed-offset encoding.
func LdpSIMD(vd1, vd2 V, rn GPR, imm7 int32, size SizeSpec) (uint32, error) {
	return ldpStpSIMD(0x28400000, "LDP", vd1, vd2, rn, imm7, size)
}

// LdpSIMDPre encodes LDP (SIMD&FP), pre-index encoding.
func LdpSIMDPre(vd1, vd2 V, rn GPR, imm7 int32, size SizeSpec) (uint32, error) {
	ins, err := ldpStpSIMD(0x28400000, "LDP", vd1, vd2, rn, imm7, size)
	if err != nil {
		return 0, err
	}
	return ins | (0x1 << 23), nil
}

// LdpSIMDPost encodes LDP (SIMD&FP), post-index encoding.
func LdpSIMDPost(vd1, vd2 V, rn GPR, imm7 int32, size SizeSpec) (uint32, error) {
	ins, err := ldpStpSIMD(0x28400000, "LDP", vd1, vd2, rn, imm7, size)
	if err != nil {
		return 0, err
	}
	return (ins &^ (0xF << 23)) | (0x9 << 23) | (1 << 22), nil
}

// StpSIMD encodes STP (SIMD&FP), signed-offset encoding.
func StpSIMD(vd1, vd2 V, rn GPR, imm7 int32, size SizeSpec) (uint32, error) {
	ins, err := ldpStpSIMD(0x28400000, "STP", vd1, vd2, rn, imm7, size)
	if err != nil {
		return 0, err
	}
	return ins &^ (1 << 22), nil
}

// StpSIMDPre encodes STP (SIMD&FP), pre-index encoding.
func StpSIMDPre(vd1, vd2 V, rn GPR, imm7 int32, size SizeSpec) (uint32, error) {
	ins, err := StpSIMD(vd1, vd2, rn, imm7, size)
	if err != nil {
		return 0, err
	}
	return (ins &^ (0xF << 23)) | (0xB << 23), nil
}

// StpSIMDPost encodes STP (SIMD&FP), post-index encoding.
func StpSIMDPost(vd1, vd2 V, rn GPR, imm7 int32, size SizeSpec) (uint32, error) {
	ins, err := StpSIMD(vd1, vd2, rn, imm7, size)
	if err != nil {
		return 0, err
	}
	return (ins &^ (0xF << 23)) | (0x9 << 23), nil
}

// Zip1 encodes ZIP1 Vd.<T>, Vn.<T>, Vm.<T>.
func Zip1(vd, vn, vm V, arr ArrSpec) (uint32, error) {
	return permute(vd, vn, vm, 0b011, arr)
}

// Zip2 encodes ZIP2 Vd.<T>, Vn.<T>, Vm.<T>.
func Zip2(vd, vn, vm V, arr ArrSpec) (uint32, error) {
	return permute(vd, vn, vm, 0b111, arr)
}

// Trn1 encodes TRN1 Vd.<T>, Vn.<T>, Vm.<T>, used to transpose 4x4
// fp32 tiles ahead of a column-major store in the *_trans kernels.
func Trn1(vd, vn, vm V, arr ArrSpec) (uint32, error) {
	return permute(vd, vn, vm, 0b010, arr)
}

// Trn2 encodes TRN2 Vd.<T>, Vn.<T>, Vm.<T>.
func Trn2(vd, vn, vm V, arr ArrSpec) (uint32, error) {
	return permute(vd, vn, vm, 0b110, arr)
}

func permute(vd, vn, vm V, opcode uint32, arr ArrSpec) (uint32, error) {
	if arr != S2 && arr != S4 && arr != D2 {
		return 0, newErr("permute", "invalid arrangement specifier")
	}
	ins := uint32(0x0E000800)
	q := uint32(0)
	if arr != S2 {
		q = 1
	}
	size := uint32(2)
	if arr == D2 {
		size = 3
	}
	ins |= q << 30
	ins |= size << 22
	ins |= opcode << 12
	ins |= regField(uint32(vd))
	ins |= regField(uint32(vn)) << 5
	ins |= regField(uint32(vm)) << 16
	return ins, nil
}

// Ld1Lane encodes LD1 {Vd.S|D}[index], [Xn] (single structure, no
// post-index).
func Ld1Lane(vd V, rn GPR, index uint32, size SizeSpec) (uint32, error) {
	return ld1LaneReg(0x0D400000, vd, rn, index, size, 31)
}

// Ld1LanePost encodes LD1 {Vd.S|D}[index], [Xn], Xm (register
// post-index).
func Ld1LanePost(vd V, rn GPR, index uint32, size SizeSpec, rm GPR) (uint32, error) {
	return ld1LaneReg(0x0DC00000, vd, rn, index, size, uint32(rm))
}

// Ld1LaneImmPost encodes LD1 {Vd.S|D}[index], [Xn], #imm (immediate
// post-index: #4 for S, #8 for D). The immediate is not present in the
// encoding itself — the post-index register field is set to 11111,
// which the processor interprets as "advance by the transfer size".
func Ld1LaneImmPost(vd V, rn GPR, index uint32, size SizeSpec, postIndex uint32) (uint32, error) {
	want := uint32(4)
	if size == SzD {
		want = 8
	}
	if postIndex != want {
		return 0, newErr("LD1", "post-index immediate must match the element size")
	}
	return ld1LaneReg(0x0DC00000, vd, rn, index, size, 31)
}

func ld1LaneReg(base uint32, vd V, rn GPR, index uint32, size SizeSpec, rm uint32) (uint32, error) {
	if size != SzS && size != SzD {
		return 0, newErr("LD1", "only S and D sizes are supported")
	}
	var s, q uint32
	if size == SzS {
		if index > 3 {
			return 0, newErr("LD1", "index out of range for S size")
		}
		s = index & 0x1
		q = (index >> 1) & 0x1
	} else {
		if index > 1 {
			return 0, newErr("LD1", "index out of range for D size")
		}
		q = index & 0x1
	}
	ins := base
	ins |= uint32(size) << 10
	ins |= 0x4 << 13
	ins |= q << 30
	ins |= s << 12
	ins |= regField(uint32(vd))
	ins |= regField(uint32(rn)) << 5
	if base == 0x0DC00000 {
		ins |= regField(rm) << 16
	}
	return ins, nil
}
