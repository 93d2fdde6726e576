/*
 * garlic - a Java/Dalvik bytecode decompiler
 */

// Package jvminstr decodes the JVM's stack-based bytecode (the method
// body bytes of a classfile.CodeAttribute) into a typed instruction
// sequence, the JVM-pipeline counterpart to internal/dexinstr.
// SPEC_FULL.md §2 component 15 names this the "simpler, stack-based"
// half of the JVM path: single-byte opcodes (plus a handful of
// wide/variable-length forms) operating on an operand stack and a fixed
// local-variable array, rather than Dalvik's per-instruction register
// operands. internal/jvmlift consumes this sequence the way
// internal/lift consumes internal/dexinstr's.
package jvminstr

import (
	"fmt"

	"github.com/CrazyForks/garlic/internal/arena"
	"github.com/CrazyForks/garlic/internal/errs"
)

type Opcode byte

const (
	OpNop         Opcode = 0x00
	OpAconstNull  Opcode = 0x01
	OpIconstM1    Opcode = 0x02
	OpIconst0     Opcode = 0x03
	OpIconst1     Opcode = 0x04
	OpIconst2     Opcode = 0x05
	OpIconst3     Opcode = 0x06
	OpIconst4     Opcode = 0x07
	OpIconst5     Opcode = 0x08
	OpLconst0     Opcode = 0x09
	OpLconst1     Opcode = 0x0a
	OpFconst0     Opcode = 0x0b
	OpFconst1     Opcode = 0x0c
	OpFconst2     Opcode = 0x0d
	OpDconst0     Opcode = 0x0e
	OpDconst1     Opcode = 0x0f
	OpBipush      Opcode = 0x10
	OpSipush      Opcode = 0x11
	OpLdc         Opcode = 0x12
	OpLdcW        Opcode = 0x13
	OpLdc2W       Opcode = 0x14
	OpIload       Opcode = 0x15
	OpLload       Opcode = 0x16
	OpFload       Opcode = 0x17
	OpDload       Opcode = 0x18
	OpAload       Opcode = 0x19
	OpIload0      Opcode = 0x1a
	OpIload1      Opcode = 0x1b
	OpIload2      Opcode = 0x1c
	OpIload3      Opcode = 0x1d
	OpLload0      Opcode = 0x1e
	OpLload1      Opcode = 0x1f
	OpLload2      Opcode = 0x20
	OpLload3      Opcode = 0x21
	OpFload0      Opcode = 0x22
	OpFload1      Opcode = 0x23
	OpFload2      Opcode = 0x24
	OpFload3      Opcode = 0x25
	OpDload0      Opcode = 0x26
	OpDload1      Opcode = 0x27
	OpDload2      Opcode = 0x28
	OpDload3      Opcode = 0x29
	OpAload0      Opcode = 0x2a
	OpAload1      Opcode = 0x2b
	OpAload2      Opcode = 0x2c
	OpAload3      Opcode = 0x2d
	OpIaload      Opcode = 0x2e
	OpLaload      Opcode = 0x2f
	OpFaload      Opcode = 0x30
	OpDaload      Opcode = 0x31
	OpAaload      Opcode = 0x32
	OpBaload      Opcode = 0x33
	OpCaload      Opcode = 0x34
	OpSaload      Opcode = 0x35
	OpIstore      Opcode = 0x36
	OpLstore      Opcode = 0x37
	OpFstore      Opcode = 0x38
	OpDstore      Opcode = 0x39
	OpAstore      Opcode = 0x3a
	OpIstore0     Opcode = 0x3b
	OpIstore1     Opcode = 0x3c
	OpIstore2     Opcode = 0x3d
	OpIstore3     Opcode = 0x3e
	OpLstore0     Opcode = 0x3f
	OpLstore1     Opcode = 0x40
	OpLstore2     Opcode = 0x41
	OpLstore3     Opcode = 0x42
	OpFstore0     Opcode = 0x43
	OpFstore1     Opcode = 0x44
	OpFstore2     Opcode = 0x45
	OpFstore3     Opcode = 0x46
	OpDstore0     Opcode = 0x47
	OpDstore1     Opcode = 0x48
	OpDstore2     Opcode = 0x49
	OpDstore3     Opcode = 0x4a
	OpAstore0     Opcode = 0x4b
	OpAstore1     Opcode = 0x4c
	OpAstore2     Opcode = 0x4d
	OpAstore3     Opcode = 0x4e
	OpIastore     Opcode = 0x4f
	OpLastore     Opcode = 0x50
	OpFastore     Opcode = 0x51
	OpDastore     Opcode = 0x52
	OpAastore     Opcode = 0x53
	OpBastore     Opcode = 0x54
	OpCastore     Opcode = 0x55
	OpSastore     Opcode = 0x56
	OpPop         Opcode = 0x57
	OpPop2        Opcode = 0x58
	OpDup         Opcode = 0x59
	OpDupX1       Opcode = 0x5a
	OpDupX2       Opcode = 0x5b
	OpDup2        Opcode = 0x5c
	OpDup2X1      Opcode = 0x5d
	OpDup2X2      Opcode = 0x5e
	OpSwap        Opcode = 0x5f
	OpIadd        Opcode = 0x60
	OpLadd        Opcode = 0x61
	OpFadd        Opcode = 0x62
	OpDadd        Opcode = 0x63
	OpIsub        Opcode = 0x64
	OpLsub        Opcode = 0x65
	OpFsub        Opcode = 0x66
	OpDsub        Opcode = 0x67
	OpImul        Opcode = 0x68
	OpLmul        Opcode = 0x69
	OpFmul        Opcode = 0x6a
	OpDmul        Opcode = 0x6b
	OpIdiv        Opcode = 0x6c
	OpLdiv        Opcode = 0x6d
	OpFdiv        Opcode = 0x6e
	OpDdiv        Opcode = 0x6f
	OpIrem        Opcode = 0x70
	OpLrem        Opcode = 0x71
	OpFrem        Opcode = 0x72
	OpDrem        Opcode = 0x73
	OpIneg        Opcode = 0x74
	OpLneg        Opcode = 0x75
	OpFneg        Opcode = 0x76
	OpDneg        Opcode = 0x77
	OpIshl        Opcode = 0x78
	OpLshl        Opcode = 0x79
	OpIshr        Opcode = 0x7a
	OpLshr        Opcode = 0x7b
	OpIushr       Opcode = 0x7c
	OpLushr       Opcode = 0x7d
	OpIand        Opcode = 0x7e
	OpLand        Opcode = 0x7f
	OpIor         Opcode = 0x80
	OpLor         Opcode = 0x81
	OpIxor        Opcode = 0x82
	OpLxor        Opcode = 0x83
	OpIinc        Opcode = 0x84
	OpI2l         Opcode = 0x85
	OpI2f         Opcode = 0x86
	OpI2d         Opcode = 0x87
	OpL2i         Opcode = 0x88
	OpL2f         Opcode = 0x89
	OpL2d         Opcode = 0x8a
	OpF2i         Opcode = 0x8b
	OpF2l         Opcode = 0x8c
	OpF2d         Opcode = 0x8d
	OpD2i         Opcode = 0x8e
	OpD2l         Opcode = 0x8f
	OpD2f         Opcode = 0x90
	OpI2b         Opcode = 0x91
	OpI2c         Opcode = 0x92
	OpI2s         Opcode = 0x93
	OpLcmp        Opcode = 0x94
	OpFcmpl       Opcode = 0x95
	OpFcmpg       Opcode = 0x96
	OpDcmpl       Opcode = 0x97
	OpDcmpg       Opcode = 0x98
	OpIfeq        Opcode = 0x99
	OpIfne        Opcode = 0x9a
	OpIflt        Opcode = 0x9b
	OpIfge        Opcode = 0x9c
	OpIfgt        Opcode = 0x9d
	OpIfle        Opcode = 0x9e
	OpIfIcmpeq    Opcode = 0x9f
	OpIfIcmpne    Opcode = 0xa0
	OpIfIcmplt    Opcode = 0xa1
	OpIfIcmpge    Opcode = 0xa2
	OpIfIcmpgt    Opcode = 0xa3
	OpIfIcmple    Opcode = 0xa4
	OpIfAcmpeq    Opcode = 0xa5
	OpIfAcmpne    Opcode = 0xa6
	OpGoto        Opcode = 0xa7
	OpJsr         Opcode = 0xa8
	OpRet         Opcode = 0xa9
	OpTableswitch Opcode = 0xaa
	OpLookupswitch Opcode = 0xab
	OpIreturn     Opcode = 0xac
	OpLreturn     Opcode = 0xad
	OpFreturn     Opcode = 0xae
	OpDreturn     Opcode = 0xaf
	OpAreturn     Opcode = 0xb0
	OpReturn      Opcode = 0xb1
	OpGetstatic   Opcode = 0xb2
	OpPutstatic   Opcode = 0xb3
	OpGetfield    Opcode = 0xb4
	OpPutfield    Opcode = 0xb5
	OpInvokevirtual   Opcode = 0xb6
	OpInvokespecial   Opcode = 0xb7
	OpInvokestatic    Opcode = 0xb8
	OpInvokeinterface Opcode = 0xb9
	OpInvokedynamic   Opcode = 0xba
	OpNew         Opcode = 0xbb
	OpNewarray    Opcode = 0xbc
	OpAnewarray   Opcode = 0xbd
	OpArraylength Opcode = 0xbe
	OpAthrow      Opcode = 0xbf
	OpCheckcast   Opcode = 0xc0
	OpInstanceof  Opcode = 0xc1
	OpMonitorenter Opcode = 0xc2
	OpMonitorexit  Opcode = 0xc3
	OpWide        Opcode = 0xc4
	OpMultianewarray Opcode = 0xc5
	OpIfnull      Opcode = 0xc6
	OpIfnonnull   Opcode = 0xc7
	OpGotoW       Opcode = 0xc8
	OpJsrW        Opcode = 0xc9
)

// SwitchData is the decoded body of a tableswitch/lookupswitch.
type SwitchData struct {
	Default int32
	Low     int32 // tableswitch only
	Keys    []int32
	Targets []int32 // one per Keys entry for lookupswitch; Targets[k-Low] for tableswitch
}

// Instruction is one decoded JVM bytecode instruction, offset in raw
// code bytes (not code units -- the JVM format has no 16-bit alignment).
type Instruction struct {
	Offset uint32
	Opcode Opcode
	Width  uint32

	Local  uint16 // local-variable slot: *load/*store/iinc/ret
	Const  int32  // bipush/sipush/iinc's constant operand
	Index  uint16 // constant-pool index: ldc/ldc_w/ldc2_w/field/method/class refs
	Target int32  // branch offset relative to Offset: if*/goto/jsr/ifnull/ifnonnull
	Dims   uint8  // multianewarray dimension count
	Atype  uint8  // newarray's primitive-type code

	Switch *SwitchData
}

// Name returns op's mnemonic, or a synthetic "op_%02x" for any byte
// outside the defined 0x00-0xc9 range (there is no such byte in a valid
// class file, but the decoder stays total rather than panicking on
// corrupt input, matching internal/dexinstr.Name's own fallback).
func Name(op Opcode) string {
	if int(op) < len(mnemonics) && mnemonics[op] != "" {
		return mnemonics[op]
	}
	return fmt.Sprintf("op_%02x", byte(op))
}

// mnemonics is indexed directly by opcode byte, mirroring
// internal/dexinstr's opcodeTable-by-lookup shape but as a flat array
// since every JVM opcode 0x00-0xc9 is defined (no sparse gaps to skip).
var mnemonics = [...]string{
	OpNop: "nop", OpAconstNull: "aconst_null",
	OpIconstM1: "iconst_m1", OpIconst0: "iconst_0", OpIconst1: "iconst_1",
	OpIconst2: "iconst_2", OpIconst3: "iconst_3", OpIconst4: "iconst_4", OpIconst5: "iconst_5",
	OpLconst0: "lconst_0", OpLconst1: "lconst_1",
	OpFconst0: "fconst_0", OpFconst1: "fconst_1", OpFconst2: "fconst_2",
	OpDconst0: "dconst_0", OpDconst1: "dconst_1",
	OpBipush: "bipush", OpSipush: "sipush",
	OpLdc: "ldc", OpLdcW: "ldc_w", OpLdc2W: "ldc2_w",
	OpIload: "iload", OpLload: "lload", OpFload: "fload", OpDload: "dload", OpAload: "aload",
	OpIload0: "iload_0", OpIload1: "iload_1", OpIload2: "iload_2", OpIload3: "iload_3",
	OpLload0: "lload_0", OpLload1: "lload_1", OpLload2: "lload_2", OpLload3: "lload_3",
	OpFload0: "fload_0", OpFload1: "fload_1", OpFload2: "fload_2", OpFload3: "fload_3",
	OpDload0: "dload_0", OpDload1: "dload_1", OpDload2: "dload_2", OpDload3: "dload_3",
	OpAload0: "aload_0", OpAload1: "aload_1", OpAload2: "aload_2", OpAload3: "aload_3",
	OpIaload: "iaload", OpLaload: "laload", OpFaload: "faload", OpDaload: "daload",
	OpAaload: "aaload", OpBaload: "baload", OpCaload: "caload", OpSaload: "saload",
	OpIstore: "istore", OpLstore: "lstore", OpFstore: "fstore", OpDstore: "dstore", OpAstore: "astore",
	OpIstore0: "istore_0", OpIstore1: "istore_1", OpIstore2: "istore_2", OpIstore3: "istore_3",
	OpLstore0: "lstore_0", OpLstore1: "lstore_1", OpLstore2: "lstore_2", OpLstore3: "lstore_3",
	OpFstore0: "fstore_0", OpFstore1: "fstore_1", OpFstore2: "fstore_2", OpFstore3: "fstore_3",
	OpDstore0: "dstore_0", OpDstore1: "dstore_1", OpDstore2: "dstore_2", OpDstore3: "dstore_3",
	OpAstore0: "astore_0", OpAstore1: "astore_1", OpAstore2: "astore_2", OpAstore3: "astore_3",
	OpIastore: "iastore", OpLastore: "lastore", OpFastore: "fastore", OpDastore: "dastore",
	OpAastore: "aastore", OpBastore: "bastore", OpCastore: "castore", OpSastore: "sastore",
	OpPop: "pop", OpPop2: "pop2",
	OpDup: "dup", OpDupX1: "dup_x1", OpDupX2: "dup_x2",
	OpDup2: "dup2", OpDup2X1: "dup2_x1", OpDup2X2: "dup2_x2",
	OpSwap: "swap",
	OpIadd: "iadd", OpLadd: "ladd", OpFadd: "fadd", OpDadd: "dadd",
	OpIsub: "isub", OpLsub: "lsub", OpFsub: "fsub", OpDsub: "dsub",
	OpImul: "imul", OpLmul: "lmul", OpFmul: "fmul", OpDmul: "dmul",
	OpIdiv: "idiv", OpLdiv: "ldiv", OpFdiv: "fdiv", OpDdiv: "ddiv",
	OpIrem: "irem", OpLrem: "lrem", OpFrem: "frem", OpDrem: "drem",
	OpIneg: "ineg", OpLneg: "lneg", OpFneg: "fneg", OpDneg: "dneg",
	OpIshl: "ishl", OpLshl: "lshl", OpIshr: "ishr", OpLshr: "lshr",
	OpIushr: "iushr", OpLushr: "lushr",
	OpIand: "iand", OpLand: "land", OpIor: "ior", OpLor: "lor", OpIxor: "ixor", OpLxor: "lxor",
	OpIinc: "iinc",
	OpI2l: "i2l", OpI2f: "i2f", OpI2d: "i2d",
	OpL2i: "l2i", OpL2f: "l2f", OpL2d: "l2d",
	OpF2i: "f2i", OpF2l: "f2l", OpF2d: "f2d",
	OpD2i: "d2i", OpD2l: "d2l", OpD2f: "d2f",
	OpI2b: "i2b", OpI2c: "i2c", OpI2s: "i2s",
	OpLcmp: "lcmp", OpFcmpl: "fcmpl", OpFcmpg: "fcmpg", OpDcmpl: "dcmpl", OpDcmpg: "dcmpg",
	OpIfeq: "ifeq", OpIfne: "ifne", OpIflt: "iflt", OpIfge: "ifge", OpIfgt: "ifgt", OpIfle: "ifle",
	OpIfIcmpeq: "if_icmpeq", OpIfIcmpne: "if_icmpne", OpIfIcmplt: "if_icmplt",
	OpIfIcmpge: "if_icmpge", OpIfIcmpgt: "if_icmpgt", OpIfIcmple: "if_icmple",
	OpIfAcmpeq: "if_acmpeq", OpIfAcmpne: "if_acmpne",
	OpGoto: "goto", OpJsr: "jsr", OpRet: "ret",
	OpTableswitch: "tableswitch", OpLookupswitch: "lookupswitch",
	OpIreturn: "ireturn", OpLreturn: "lreturn", OpFreturn: "freturn", OpDreturn: "dreturn",
	OpAreturn: "areturn", OpReturn: "return",
	OpGetstatic: "getstatic", OpPutstatic: "putstatic", OpGetfield: "getfield", OpPutfield: "putfield",
	OpInvokevirtual: "invokevirtual", OpInvokespecial: "invokespecial",
	OpInvokestatic: "invokestatic", OpInvokeinterface: "invokeinterface", OpInvokedynamic: "invokedynamic",
	OpNew: "new", OpNewarray: "newarray", OpAnewarray: "anewarray",
	OpArraylength: "arraylength", OpAthrow: "athrow",
	OpCheckcast: "checkcast", OpInstanceof: "instanceof",
	OpMonitorenter: "monitorenter", OpMonitorexit: "monitorexit",
	OpWide: "wide", OpMultianewarray: "multianewarray",
	OpIfnull: "ifnull", OpIfnonnull: "ifnonnull",
	OpGotoW: "goto_w", OpJsrW: "jsr_w",
}

// zeroOperand is the set of opcodes whose only byte is the opcode itself
// -- no immediate, no index, no branch target.
func zeroOperand(op Opcode) bool {
	switch op {
	case OpNop, OpAconstNull,
		OpIconstM1, OpIconst0, OpIconst1, OpIconst2, OpIconst3, OpIconst4, OpIconst5,
		OpLconst0, OpLconst1, OpFconst0, OpFconst1, OpFconst2, OpDconst0, OpDconst1,
		OpIload0, OpIload1, OpIload2, OpIload3,
		OpLload0, OpLload1, OpLload2, OpLload3,
		OpFload0, OpFload1, OpFload2, OpFload3,
		OpDload0, OpDload1, OpDload2, OpDload3,
		OpAload0, OpAload1, OpAload2, OpAload3,
		OpIaload, OpLaload, OpFaload, OpDaload, OpAaload, OpBaload, OpCaload, OpSaload,
		OpIstore0, OpIstore1, OpIstore2, OpIstore3,
		OpLstore0, OpLstore1, OpLstore2, OpLstore3,
		OpFstore0, OpFstore1, OpFstore2, OpFstore3,
		OpDstore0, OpDstore1, OpDstore2, OpDstore3,
		OpAstore0, OpAstore1, OpAstore2, OpAstore3,
		OpIastore, OpLastore, OpFastore, OpDastore, OpAastore, OpBastore, OpCastore, OpSastore,
		OpPop, OpPop2, OpDup, OpDupX1, OpDupX2, OpDup2, OpDup2X1, OpDup2X2, OpSwap,
		OpIadd, OpLadd, OpFadd, OpDadd, OpIsub, OpLsub, OpFsub, OpDsub,
		OpImul, OpLmul, OpFmul, OpDmul, OpIdiv, OpLdiv, OpFdiv, OpDdiv,
		OpIrem, OpLrem, OpFrem, OpDrem, OpIneg, OpLneg, OpFneg, OpDneg,
		OpIshl, OpLshl, OpIshr, OpLshr, OpIushr, OpLushr,
		OpIand, OpLand, OpIor, OpLor, OpIxor, OpLxor,
		OpI2l, OpI2f, OpI2d, OpL2i, OpL2f, OpL2d, OpF2i, OpF2l, OpF2d, OpD2i, OpD2l, OpD2f,
		OpI2b, OpI2c, OpI2s,
		OpLcmp, OpFcmpl, OpFcmpg, OpDcmpl, OpDcmpg,
		OpIreturn, OpLreturn, OpFreturn, OpDreturn, OpAreturn, OpReturn,
		OpArraylength, OpAthrow, OpMonitorenter, OpMonitorexit:
		return true
	default:
		return false
	}
}

// Decode decodes one instruction from code starting at offset. It does
// not resolve constant-pool indices or symbolic branch targets -- that
// is internal/jvmlift's job, mirroring internal/dexinstr.Decode's own
// separation of "decode the bit layout" from "resolve what it means".
func Decode(code []byte, offset uint32) (Instruction, error) {
	if int(offset) >= len(code) {
		return Instruction{}, &errs.Truncated{Offset: int(offset), Wanted: 1, HaveLen: len(code)}
	}
	op := Opcode(code[offset])
	inst := Instruction{Offset: offset, Opcode: op}

	need := func(n int) error {
		if int(offset)+n > len(code) {
			return &errs.Truncated{Offset: int(offset), Wanted: n, HaveLen: len(code)}
		}
		return nil
	}
	u8 := func(at uint32) uint8 { return code[at] }
	u16 := func(at uint32) uint16 { return uint16(code[at])<<8 | uint16(code[at+1]) }
	s16 := func(at uint32) int32 { return int32(int16(u16(at))) }
	s32 := func(at uint32) int32 {
		return int32(code[at])<<24 | int32(code[at+1])<<16 | int32(code[at+2])<<8 | int32(code[at+3])
	}

	switch {
	case zeroOperand(op):
		inst.Width = 1

	case op == OpBipush:
		if err := need(2); err != nil {
			return inst, err
		}
		inst.Const = int32(int8(u8(offset + 1)))
		inst.Width = 2

	case op == OpSipush:
		if err := need(3); err != nil {
			return inst, err
		}
		inst.Const = s16(offset + 1)
		inst.Width = 3

	case op == OpLdc:
		if err := need(2); err != nil {
			return inst, err
		}
		inst.Index = uint16(u8(offset + 1))
		inst.Width = 2

	case op == OpLdcW || op == OpLdc2W:
		if err := need(3); err != nil {
			return inst, err
		}
		inst.Index = u16(offset + 1)
		inst.Width = 3

	case op == OpIload || op == OpLload || op == OpFload || op == OpDload || op == OpAload ||
		op == OpIstore || op == OpLstore || op == OpFstore || op == OpDstore || op == OpAstore ||
		op == OpRet:
		if err := need(2); err != nil {
			return inst, err
		}
		inst.Local = uint16(u8(offset + 1))
		inst.Width = 2

	case op == OpIinc:
		if err := need(3); err != nil {
			return inst, err
		}
		inst.Local = uint16(u8(offset + 1))
		inst.Const = int32(int8(u8(offset + 2)))
		inst.Width = 3

	case op == OpIfeq || op == OpIfne || op == OpIflt || op == OpIfge || op == OpIfgt || op == OpIfle ||
		op == OpIfIcmpeq || op == OpIfIcmpne || op == OpIfIcmplt || op == OpIfIcmpge || op == OpIfIcmpgt || op == OpIfIcmple ||
		op == OpIfAcmpeq || op == OpIfAcmpne || op == OpGoto || op == OpJsr ||
		op == OpIfnull || op == OpIfnonnull:
		if err := need(3); err != nil {
			return inst, err
		}
		inst.Target = s16(offset + 1)
		inst.Width = 3

	case op == OpGotoW || op == OpJsrW:
		if err := need(5); err != nil {
			return inst, err
		}
		inst.Target = s32(offset + 1)
		inst.Width = 5

	case op == OpGetstatic || op == OpPutstatic || op == OpGetfield || op == OpPutfield ||
		op == OpInvokevirtual || op == OpInvokespecial || op == OpInvokestatic ||
		op == OpNew || op == OpAnewarray || op == OpCheckcast || op == OpInstanceof:
		if err := need(3); err != nil {
			return inst, err
		}
		inst.Index = u16(offset + 1)
		inst.Width = 3

	case op == OpInvokeinterface:
		if err := need(5); err != nil {
			return inst, err
		}
		inst.Index = u16(offset + 1)
		// code[offset+3] is the argument count (redundant with the
		// descriptor, unused here); code[offset+4] is a reserved 0 byte.
		inst.Width = 5

	case op == OpInvokedynamic:
		if err := need(5); err != nil {
			return inst, err
		}
		inst.Index = u16(offset + 1)
		inst.Width = 5

	case op == OpNewarray:
		if err := need(2); err != nil {
			return inst, err
		}
		inst.Atype = u8(offset + 1)
		inst.Width = 2

	case op == OpMultianewarray:
		if err := need(4); err != nil {
			return inst, err
		}
		inst.Index = u16(offset + 1)
		inst.Dims = u8(offset + 3)
		inst.Width = 4

	case op == OpTableswitch:
		return decodeTableswitch(code, offset)

	case op == OpLookupswitch:
		return decodeLookupswitch(code, offset)

	case op == OpWide:
		return decodeWide(code, offset)

	default:
		return inst, &errs.LiftError{Offset: int(offset), Msg: "unknown JVM opcode"}
	}

	return inst, nil
}

// padTo4 returns the number of zero-padding bytes following the opcode
// byte of a tableswitch/lookupswitch, so its first operand word starts
// at the next 4-byte-aligned offset from the start of the method's code
// array (JVM spec §3.3, "switch").
func padTo4(offset uint32) uint32 {
	return (4 - (offset+1)%4) % 4
}

func decodeTableswitch(code []byte, offset uint32) (Instruction, error) {
	pad := padTo4(offset)
	base := offset + 1 + pad
	if int(base)+12 > len(code) {
		return Instruction{}, &errs.Truncated{Offset: int(offset), Wanted: int(base) + 12 - int(offset), HaveLen: len(code)}
	}
	r32 := func(at uint32) int32 {
		return int32(code[at])<<24 | int32(code[at+1])<<16 | int32(code[at+2])<<8 | int32(code[at+3])
	}
	def := r32(base)
	low := r32(base + 4)
	high := r32(base + 8)
	count := int(high - low + 1)
	tableStart := base + 12
	if count < 0 || int(tableStart)+count*4 > len(code) {
		return Instruction{}, &errs.FormatError{Section: "tableswitch", Offset: int(offset), Msg: "bad low/high range"}
	}
	targets := make([]int32, count)
	for i := 0; i < count; i++ {
		targets[i] = r32(tableStart + uint32(i*4))
	}
	width := tableStart + uint32(count*4) - offset
	return Instruction{
		Offset: offset, Opcode: OpTableswitch, Width: width,
		Target: def,
		Switch: &SwitchData{Default: def, Low: low, Targets: targets},
	}, nil
}

func decodeLookupswitch(code []byte, offset uint32) (Instruction, error) {
	pad := padTo4(offset)
	base := offset + 1 + pad
	if int(base)+8 > len(code) {
		return Instruction{}, &errs.Truncated{Offset: int(offset), Wanted: int(base) + 8 - int(offset), HaveLen: len(code)}
	}
	r32 := func(at uint32) int32 {
		return int32(code[at])<<24 | int32(code[at+1])<<16 | int32(code[at+2])<<8 | int32(code[at+3])
	}
	def := r32(base)
	npairs := int(r32(base + 4))
	pairsStart := base + 8
	if npairs < 0 || int(pairsStart)+npairs*8 > len(code) {
		return Instruction{}, &errs.FormatError{Section: "lookupswitch", Offset: int(offset), Msg: "bad npairs"}
	}
	keys := make([]int32, npairs)
	targets := make([]int32, npairs)
	for i := 0; i < npairs; i++ {
		keys[i] = r32(pairsStart + uint32(i*8))
		targets[i] = r32(pairsStart + uint32(i*8+4))
	}
	width := pairsStart + uint32(npairs*8) - offset
	return Instruction{
		Offset: offset, Opcode: OpLookupswitch, Width: width,
		Target: def,
		Switch: &SwitchData{Default: def, Keys: keys, Targets: targets},
	}, nil
}

// decodeWide handles the `wide` prefix: the next opcode's local-variable
// index widens from u8 to u16 (or, for iinc, both the index and the
// constant widen).
func decodeWide(code []byte, offset uint32) (Instruction, error) {
	if int(offset)+2 > len(code) {
		return Instruction{}, &errs.Truncated{Offset: int(offset), Wanted: 2, HaveLen: len(code)}
	}
	modified := Opcode(code[offset+1])
	u16 := func(at uint32) uint16 { return uint16(code[at])<<8 | uint16(code[at+1]) }

	if modified == OpIinc {
		if int(offset)+6 > len(code) {
			return Instruction{}, &errs.Truncated{Offset: int(offset), Wanted: 6, HaveLen: len(code)}
		}
		return Instruction{
			Offset: offset, Opcode: OpIinc, Width: 6,
			Local: u16(offset + 2),
			Const: int32(int16(u16(offset + 4))),
		}, nil
	}

	if int(offset)+4 > len(code) {
		return Instruction{}, &errs.Truncated{Offset: int(offset), Wanted: 4, HaveLen: len(code)}
	}
	return Instruction{
		Offset: offset, Opcode: modified, Width: 4,
		Local: u16(offset + 2),
	}, nil
}

// DecodeAll walks code linearly from offset 0, decoding and advancing by
// each instruction's Width until the buffer is exhausted.
// DecodeAll decodes code in full, backing the returned instruction array
// with a's per-task pool rather than the process-wide one, per spec.md
// §5's decoding-scratch discipline -- the JVM-pipeline counterpart to
// internal/dexinstr.DecodeAll.
func DecodeAll(a *arena.Arena, code []byte) ([]Instruction, error) {
	out := arena.Get[Instruction](a, len(code))
	offset := uint32(0)
	for int(offset) < len(code) {
		inst, err := Decode(code, offset)
		if err != nil {
			return nil, err
		}
		out = append(out, inst)
		offset += inst.Width
	}
	return out, nil
}
