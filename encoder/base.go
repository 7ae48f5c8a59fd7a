package encoder

// Base general-purpose-register instruction encoders. These forms have
// no surviving reference header in the retrieved corpus (only SIMD&FP
// instruction headers passed the filter); they are encoded directly
// against the published AArch64 A64 ISA, in the same opcode-constant +
// shift/mask idiom the SIMD encoders below use.

const (
	opAddImm  = 0x91000000
	opSubImm  = 0xD1000000
	opAddReg  = 0x8B000000
	opSubReg  = 0xCB000000
	opMul     = 0x9B007C00
	opUbfm    = 0xD3400000
	opSubsReg = 0xEB000000 // CMP (register) alias, Rd = XZR
	opSubsImm = 0xF1000000 // CMP (immediate) alias, Rd = XZR
	opCbnz    = 0xB5000000
	opB       = 0x14000000
	opRet     = 0xD65F0000
	opMovz    = 0xD2800000
	opMovk    = 0xF2800000
	opOrrReg  = 0xAA000000 // MOV (register) alias, Rn = XZR

	opStpOff  = 0xA9000000
	opStpPre  = 0xA9800000
	opStpPost = 0xA8800000
	opLdpOff  = 0xA9400000
	opLdpPre  = 0xA9C00000
	opLdpPost = 0xA8C00000

	opStrOff64  = 0xF9000000
	opLdrOff64  = 0xF9400000
	opStrPost64 = 0xF8000400
	opLdrPost64 = 0xF8400400
	opStrbOff   = 0x39000000
)

// AddReg encodes ADD Rd, Rn, Rm, <shiftType> #shiftAmount (64-bit).
func AddReg(rd, rn, rm GPR, shiftType, shiftAmount uint32) (uint32, error) {
	return addSubReg(opAddReg, "ADD", rd, rn, rm, shiftType, shiftAmount)
}

// SubReg encodes SUB Rd, Rn, Rm, <shiftType> #shiftAmount (64-bit).
func SubReg(rd, rn, rm GPR, shiftType, shiftAmount uint32) (uint32, error) {
	return addSubReg(opSubReg, "SUB", rd, rn, rm, shiftType, shiftAmount)
}

func addSubReg(op uint32, mnemonic string, rd, rn, rm GPR, shiftType, shiftAmount uint32) (uint32, error) {
	if shiftType > 0x3 {
		return 0, newErr(mnemonic, "shift type must fit in 2 bits")
	}
	if shiftAmount > 0x3f {
		return 0, newErr(mnemonic, "shift amount must fit in 6 bits")
	}
	ins := uint32(op)
	ins |= shiftType << 22
	ins |= regField(uint32(rm)) << 16
	ins |= (shiftAmount & 0x3f) << 10
	ins |= regField(uint32(rn)) << 5
	ins |= regField(uint32(rd))
	return ins, nil
}

// AddImm encodes ADD Rd, Rn, #imm12 (64-bit); shift12 = 1 applies LSL #12.
func AddImm(rd, rn GPR, imm12 uint32, shift12 uint32) (uint32, error) {
	return addSubImm(opAddImm, "ADD", rd, rn, imm12, shift12)
}

// SubImm encodes SUB Rd, Rn, #imm12 (64-bit); shift12 = 1 applies LSL #12.
func SubImm(rd, rn GPR, imm12 uint32, shift12 uint32) (uint32, error) {
	return addSubImm(opSubImm, "SUB", rd, rn, imm12, shift12)
}

func addSubImm(op uint32, mnemonic string, rd, rn GPR, imm12, shift12 uint32) (uint32, error) {
	if imm12 > 0xfff {
		return 0, newErr(mnemonic, "immediate must fit in 12 bits")
	}
	if shift12 != 0 && shift12 != 1 {
		return 0, newErr(mnemonic, "shift flag must be 0 or 1 (LSL #12)")
	}
	ins := uint32(op)
	ins |= shift12 << 22
	ins |= imm12 << 10
	ins |= regField(uint32(rn)) << 5
	ins |= regField(uint32(rd))
	return ins, nil
}

// MovSP encodes a move to or from the stack pointer as ADD Rd, Rn, #0,
// the only ADD/SUB form that accepts SP as an operand without an
// extended-register qualifier.
func MovSP(rd, rn GPR) (uint32, error) {
	return AddImm(rd, rn, 0, 0)
}

// Mul encodes MUL Rd, Rn, Rm (64-bit), the MADD alias with Ra = XZR.
func Mul(rd, rn, rm GPR) (uint32, error) {
	ins := uint32(opMul)
	ins |= regField(uint32(rm)) << 16
	ins |= regField(uint32(rn)) << 5
	ins |= regField(uint32(rd))
	return ins, nil
}

// Lsl encodes LSL Rd, Rn, #shift (64-bit), the UBFM alias.
func Lsl(rd, rn GPR, shift uint32) (uint32, error) {
	if shift > 63 {
		return 0, newErr("LSL", "shift amount must be 0..63")
	}
	immr := (64 - shift) % 64
	imms := 63 - shift
	ins := uint32(opUbfm)
	ins |= immr << 16
	ins |= imms << 10
	ins |= regField(uint32(rn)) << 5
	ins |= regField(uint32(rd))
	return ins, nil
}

// CmpReg encodes CMP Rn, Rm (64-bit), the SUBS alias with Rd = XZR.
func CmpReg(rn, rm GPR) (uint32, error) {
	ins := uint32(opSubsReg)
	ins |= regField(uint32(rm)) << 16
	ins |= regField(uint32(rn)) << 5
	ins |= regField(uint32(XZR))
	return ins, nil
}

// CmpImm encodes CMP Rn, #imm12 (64-bit), the SUBS alias with Rd = XZR.
func CmpImm(rn GPR, imm12 uint32) (uint32, error) {
	if imm12 > 0xfff {
		return 0, newErr("CMP", "immediate must fit in 12 bits")
	}
	ins := uint32(opSubsImm)
	ins |= imm12 << 10
	ins |= regField(uint32(rn)) << 5
	ins |= regField(uint32(XZR))
	return ins, nil
}

// Cbnz encodes CBNZ Rt, #offset (64-bit), where offset is a byte
// displacement from the instruction's own address and must be a
// multiple of 4.
func Cbnz(rt GPR, offset int32) (uint32, error) {
	if offset%4 != 0 {
		return 0, newErr("CBNZ", "branch offset must be a multiple of 4")
	}
	imm19 := offset / 4
	if imm19 < -(1<<18) || imm19 >= (1<<18) {
		return 0, newErr("CBNZ", "branch offset out of range for imm19")
	}
	ins := uint32(opCbnz)
	ins |= (uint32(imm19) & 0x7ffff) << 5
	ins |= regField(uint32(rt))
	return ins, nil
}

// B encodes an unconditional branch to a byte displacement from the
// instruction's own address; the displacement must be a multiple of 4.
func B(offset int32) (uint32, error) {
	if offset%4 != 0 {
		return 0, newErr("B", "branch offset must be a multiple of 4")
	}
	imm26 := offset / 4
	if imm26 < -(1<<25) || imm26 >= (1<<25) {
		return 0, newErr("B", "branch offset out of range for imm26")
	}
	return uint32(opB) | (uint32(imm26) & 0x3ffffff), nil
}

// Ret encodes RET, returning through the given register (defaults to
// X30/LR in every call site that matters for this module).
func Ret(rn GPR) (uint32, error) {
	return uint32(opRet) | regField(uint32(rn))<<5, nil
}

// MovImm encodes MOVZ Rd, #imm16 (64-bit, no shift).
func MovImm(rd GPR, imm16 uint32) (uint32, error) {
	if imm16 > 0xffff {
		return 0, newErr("MOV", "immediate must fit in 16 bits")
	}
	ins := uint32(opMovz)
	ins |= imm16 << 5
	ins |= regField(uint32(rd))
	return ins, nil
}

// MovkImm encodes MOVK Rd, #imm16, LSL #(hw*16) (64-bit): merges a
// 16-bit immediate into one half-word of Rd without disturbing the
// others, used alongside MovImm to assemble a full 32- or 64-bit
// constant two half-words at a time.
func MovkImm(rd GPR, imm16 uint32, hw uint32) (uint32, error) {
	if imm16 > 0xffff {
		return 0, newErr("MOVK", "immediate must fit in 16 bits")
	}
	if hw > 3 {
		return 0, newErr("MOVK", "half-word index must be 0-3")
	}
	ins := uint32(opMovk)
	ins |= hw << 21
	ins |= imm16 << 5
	ins |= regField(uint32(rd))
	return ins, nil
}

// MovReg encodes MOV Rd, Rm (64-bit), the ORR alias with Rn = XZR.
func MovReg(rd, rm GPR) (uint32, error) {
	ins := uint32(opOrrReg)
	ins |= regField(uint32(rm)) << 16
	ins |= regField(uint32(XZR)) << 5
	ins |= regField(uint32(rd))
	return ins, nil
}

func checkImm7(mnemonic string, imm7 int32, scale int32) (uint32, error) {
	if imm7%scale != 0 {
		return 0, newErr(mnemonic, "immediate must be a multiple of the transfer size")
	}
	scaled := imm7 / scale
	if scaled < -64 || scaled > 63 {
		return 0, newErr(mnemonic, "scaled immediate out of 7-bit signed range")
	}
	return uint32(scaled) & 0x7f, nil
}

func stpLdpGPR(op uint32, mnemonic string, rt1, rt2, rn GPR, imm7 int32) (uint32, error) {
	imm, err := checkImm7(mnemonic, imm7, 8)
	if err != nil {
		return 0, err
	}
	ins := uint32(op)
	ins |= 1 << 31 // 64-bit variant (opc = 10)
	ins |= imm << 15
	ins |= regField(uint32(rt2)) << 10
	ins |= regField(uint32(rn)) << 5
	ins |= regField(uint32(rt1))
	return ins, nil
}

// StpOffset encodes STP Rt1, Rt2, [Rn, #imm7] (signed offset, 64-bit).
func StpOffset(rt1, rt2, rn GPR, imm7 int32) (uint32, error) {
	return stpLdpGPR(opStpOff, "STP", rt1, rt2, rn, imm7)
}

// StpPre encodes STP Rt1, Rt2, [Rn, #imm7]! (pre-index, 64-bit).
func StpPre(rt1, rt2, rn GPR, imm7 int32) (uint32, error) {
	return stpLdpGPR(opStpPre, "STP", rt1, rt2, rn, imm7)
}

// StpPost encodes STP Rt1, Rt2, [Rn], #imm7 (post-index, 64-bit).
func StpPost(rt1, rt2, rn GPR, imm7 int32) (uint32, error) {
	return stpLdpGPR(opStpPost, "STP", rt1, rt2, rn, imm7)
}

// LdpOffset encodes LDP Rt1, Rt2, [Rn, #imm7] (signed offset, 64-bit).
func LdpOffset(rt1, rt2, rn GPR, imm7 int32) (uint32, error) {
	return stpLdpGPR(opLdpOff, "LDP", rt1, rt2, rn, imm7)
}

// LdpPre encodes LDP Rt1, Rt2, [Rn, #imm7]! (pre-index, 64-bit).
func LdpPre(rt1, rt2, rn GPR, imm7 int32) (uint32, error) {
	return stpLdpGPR(opLdpPre, "LDP", rt1, rt2, rn, imm7)
}

// LdpPost encodes LDP Rt1, Rt2, [Rn], #imm7 (post-index, 64-bit).
func LdpPost(rt1, rt2, rn GPR, imm7 int32) (uint32, error) {
	return stpLdpGPR(opLdpPost, "LDP", rt1, rt2, rn, imm7)
}

// StrOffset encodes STR Rt, [Rn, #imm12] (unsigned offset, 64-bit).
func StrOffset(rt, rn GPR, imm12 uint32) (uint32, error) {
	if imm12%8 != 0 {
		return 0, newErr("STR", "immediate must be a multiple of 8")
	}
	ins := uint32(opStrOff64)
	ins |= (imm12 / 8 & 0xfff) << 10
	ins |= regField(uint32(rn)) << 5
	ins |= regField(uint32(rt))
	return ins, nil
}

// LdrOffset encodes LDR Rt, [Rn, #imm12] (unsigned offset, 64-bit).
func LdrOffset(rt, rn GPR, imm12 uint32) (uint32, error) {
	if imm12%8 != 0 {
		return 0, newErr("LDR", "immediate must be a multiple of 8")
	}
	ins := uint32(opLdrOff64)
	ins |= (imm12 / 8 & 0xfff) << 10
	ins |= regField(uint32(rn)) << 5
	ins |= regField(uint32(rt))
	return ins, nil
}

// StrPost encodes STR Rt, [Rn], #imm9 (post-index, 64-bit).
func StrPost(rt, rn GPR, imm9 uint32) (uint32, error) {
	if imm9 > 0x1ff {
		return 0, newErr("STR", "immediate must fit in 9 bits")
	}
	ins := uint32(opStrPost64)
	ins |= imm9 << 12
	ins |= regField(uint32(rn)) << 5
	ins |= regField(uint32(rt))
	return ins, nil
}

// LdrPost encodes LDR Rt, [Rn], #imm9 (post-index, 64-bit).
func LdrPost(rt, rn GPR, imm9 uint32) (uint32, error) {
	if imm9 > 0x1ff {
		return 0, newErr("LDR", "immediate must fit in 9 bits")
	}
	ins := uint32(opLdrPost64)
	ins |= imm9 << 12
	ins |= regField(uint32(rn)) << 5
	ins |= regField(uint32(rt))
	return ins, nil
}

// Strb encodes STRB Wt, [Rn, #imm12] (unsigned offset).
func Strb(rt, rn GPR, imm12 uint32) (uint32, error) {
	if imm12 > 0xfff {
		return 0, newErr("STRB", "immediate must fit in 12 bits")
	}
	ins := uint32(opStrbOff)
	ins |= imm12 << 10
	ins |= regField(uint32(rn)) << 5
	ins |= regField(uint32(rt))
	return ins, nil
}
