/*
 * garlic - a Java/Dalvik bytecode decompiler
 * The opcode-dispatch-table shape (a data table mapping an opcode byte to
 * its decode format, consulted by one generic decode loop) follows the
 * teacher's jvm package's per-opcode dispatch, generalized from the JVM's
 * single-byte opcode space to Dalvik's opcode+format table.
 */

// Package dexinstr decodes a Dalvik code_item's raw 16-bit instruction
// stream into a typed Instruction sequence, per spec.md §4.4.
package dexinstr

import (
	"fmt"

	"github.com/CrazyForks/garlic/internal/arena"
	"github.com/CrazyForks/garlic/internal/errs"
)

// Opcode is a raw Dalvik opcode byte (the low byte of an instruction's
// first code unit).
type Opcode byte

// Format names the fixed Dalvik instruction-encoding format, exactly as
// named in the Dalvik bytecode reference (spec.md §4.4's required set).
type Format string

const (
	Fmt10x  Format = "10x"
	Fmt12x  Format = "12x"
	Fmt11n  Format = "11n"
	Fmt11x  Format = "11x"
	Fmt10t  Format = "10t"
	Fmt20t  Format = "20t"
	Fmt20bc Format = "20bc"
	Fmt22x  Format = "22x"
	Fmt21t  Format = "21t"
	Fmt21s  Format = "21s"
	Fmt21h  Format = "21h"
	Fmt21c  Format = "21c"
	Fmt23x  Format = "23x"
	Fmt22b  Format = "22b"
	Fmt22t  Format = "22t"
	Fmt22s  Format = "22s"
	Fmt22c  Format = "22c"
	Fmt30t  Format = "30t"
	Fmt32x  Format = "32x"
	Fmt31i  Format = "31i"
	Fmt31t  Format = "31t"
	Fmt31c  Format = "31c"
	Fmt35c  Format = "35c"
	Fmt3rc  Format = "3rc"
	Fmt45cc Format = "45cc"
	Fmt4rcc Format = "4rcc"
	Fmt51l  Format = "51l"

	// fmtPayload is not a real Dalvik format; it marks the three
	// pseudo-instructions recognized by their distinguished first code
	// unit (spec.md §4.4).
	fmtPayload Format = "payload"
)

// IndexKind says which interned pool an Instruction.Index refers into, so
// a renderer (Smali emitter, Java source emitter) can resolve it without
// re-deriving the mapping from the opcode.
type IndexKind int

const (
	IndexNone IndexKind = iota
	IndexString
	IndexType
	IndexField
	IndexMethod
	IndexProto
	IndexMethodHandle
)

// Named opcodes. Gaps (0x3e-0x43, 0x73, 0x79-0x7a, and the ART-internal
// "quickened" range 0xe3-0xf9 that only ever appears in on-device
// optimized odex, never in a distributable .dex) are intentionally
// absent: Decode reports them as an unrecognized opcode.
const (
	OpNop              Opcode = 0x00
	OpMove             Opcode = 0x01
	OpMoveFrom16       Opcode = 0x02
	OpMove16           Opcode = 0x03
	OpMoveWide         Opcode = 0x04
	OpMoveWideFrom16   Opcode = 0x05
	OpMoveWide16       Opcode = 0x06
	OpMoveObject       Opcode = 0x07
	OpMoveObjectFrom16 Opcode = 0x08
	OpMoveObject16     Opcode = 0x09
	OpMoveResult       Opcode = 0x0a
	OpMoveResultWide   Opcode = 0x0b
	OpMoveResultObject Opcode = 0x0c
	OpMoveException    Opcode = 0x0d
	OpReturnVoid       Opcode = 0x0e
	OpReturn           Opcode = 0x0f
	OpReturnWide       Opcode = 0x10
	OpReturnObject     Opcode = 0x11
	OpConst4           Opcode = 0x12
	OpConst16          Opcode = 0x13
	OpConst            Opcode = 0x14
	OpConstHigh16      Opcode = 0x15
	OpConstWide16      Opcode = 0x16
	OpConstWide32      Opcode = 0x17
	OpConstWide        Opcode = 0x18
	OpConstWideHigh16  Opcode = 0x19
	OpConstString      Opcode = 0x1a
	OpConstStringJumbo Opcode = 0x1b
	OpConstClass       Opcode = 0x1c
	OpMonitorEnter     Opcode = 0x1d
	OpMonitorExit      Opcode = 0x1e
	OpCheckCast        Opcode = 0x1f
	OpInstanceOf       Opcode = 0x20
	OpArrayLength      Opcode = 0x21
	OpNewInstance      Opcode = 0x22
	OpNewArray         Opcode = 0x23

	OpFilledNewArray      Opcode = 0x24
	OpFilledNewArrayRange Opcode = 0x25
	OpFillArrayData       Opcode = 0x26
	OpThrow               Opcode = 0x27
	OpGoto                Opcode = 0x28
	OpGoto16              Opcode = 0x29
	OpGoto32              Opcode = 0x2a
	OpPackedSwitch        Opcode = 0x2b
	OpSparseSwitch        Opcode = 0x2c

	OpCmplFloat  Opcode = 0x2d
	OpCmpgFloat  Opcode = 0x2e
	OpCmplDouble Opcode = 0x2f
	OpCmpgDouble Opcode = 0x30
	OpCmpLong    Opcode = 0x31

	OpIfEq Opcode = 0x32
	OpIfNe Opcode = 0x33
	OpIfLt Opcode = 0x34
	OpIfGe Opcode = 0x35
	OpIfGt Opcode = 0x36
	OpIfLe Opcode = 0x37

	OpIfEqz Opcode = 0x38
	OpIfNez Opcode = 0x39
	OpIfLtz Opcode = 0x3a
	OpIfGez Opcode = 0x3b
	OpIfGtz Opcode = 0x3c
	OpIfLez Opcode = 0x3d

	OpAget        Opcode = 0x44
	OpAgetWide    Opcode = 0x45
	OpAgetObject  Opcode = 0x46
	OpAgetBoolean Opcode = 0x47
	OpAgetByte    Opcode = 0x48
	OpAgetChar    Opcode = 0x49
	OpAgetShort   Opcode = 0x4a
	OpAput        Opcode = 0x4b
	OpAputWide    Opcode = 0x4c
	OpAputObject  Opcode = 0x4d
	OpAputBoolean Opcode = 0x4e
	OpAputByte    Opcode = 0x4f
	OpAputChar    Opcode = 0x50
	OpAputShort   Opcode = 0x51

	OpIget        Opcode = 0x52
	OpIgetWide    Opcode = 0x53
	OpIgetObject  Opcode = 0x54
	OpIgetBoolean Opcode = 0x55
	OpIgetByte    Opcode = 0x56
	OpIgetChar    Opcode = 0x57
	OpIgetShort   Opcode = 0x58
	OpIput        Opcode = 0x59
	OpIputWide    Opcode = 0x5a
	OpIputObject  Opcode = 0x5b
	OpIputBoolean Opcode = 0x5c
	OpIputByte    Opcode = 0x5d
	OpIputChar    Opcode = 0x5e
	OpIputShort   Opcode = 0x5f

	OpSget        Opcode = 0x60
	OpSgetWide    Opcode = 0x61
	OpSgetObject  Opcode = 0x62
	OpSgetBoolean Opcode = 0x63
	OpSgetByte    Opcode = 0x64
	OpSgetChar    Opcode = 0x65
	OpSgetShort   Opcode = 0x66
	OpSput        Opcode = 0x67
	OpSputWide    Opcode = 0x68
	OpSputObject  Opcode = 0x69
	OpSputBoolean Opcode = 0x6a
	OpSputByte    Opcode = 0x6b
	OpSputChar    Opcode = 0x6c
	OpSputShort   Opcode = 0x6d

	OpInvokeVirtual      Opcode = 0x6e
	OpInvokeSuper        Opcode = 0x6f
	OpInvokeDirect       Opcode = 0x70
	OpInvokeStatic       Opcode = 0x71
	OpInvokeInterface    Opcode = 0x72
	OpInvokeVirtualRange Opcode = 0x74
	OpInvokeSuperRange   Opcode = 0x75
	OpInvokeDirectRange  Opcode = 0x76
	OpInvokeStaticRange  Opcode = 0x77
	OpInvokeInterfaceRange Opcode = 0x78

	OpInvokePolymorphic      Opcode = 0xfa
	OpInvokePolymorphicRange Opcode = 0xfb
	OpInvokeCustom           Opcode = 0xfc
	OpInvokeCustomRange      Opcode = 0xfd
	OpConstMethodHandle      Opcode = 0xfe
	OpConstMethodType        Opcode = 0xff
)

// unopNames is the 21-opcode contiguous unop block, 0x7b..0x8f.
var unopNames = []string{
	"neg-int", "not-int", "neg-long", "not-long", "neg-float", "neg-double",
	"int-to-long", "int-to-float", "int-to-double", "long-to-int",
	"long-to-float", "long-to-double", "float-to-int", "float-to-long",
	"float-to-double", "double-to-int", "double-to-long", "double-to-float",
	"int-to-byte", "int-to-char", "int-to-short",
}

// binopNames is the 32-opcode contiguous binop block, 0x90..0xaf (and,
// suffixed "/2addr", 0xb0..0xcf).
var binopNames = []string{
	"add-int", "sub-int", "mul-int", "div-int", "rem-int", "and-int",
	"or-int", "xor-int", "shl-int", "shr-int", "ushr-int",
	"add-long", "sub-long", "mul-long", "div-long", "rem-long", "and-long",
	"or-long", "xor-long", "shl-long", "shr-long", "ushr-long",
	"add-float", "sub-float", "mul-float", "div-float", "rem-float",
	"add-double", "sub-double", "mul-double", "div-double", "rem-double",
}

// lit16Names is the 8-opcode binop/lit16 block, 0xd0..0xd7.
var lit16Names = []string{
	"add-int/lit16", "rsub-int", "mul-int/lit16", "div-int/lit16",
	"rem-int/lit16", "and-int/lit16", "or-int/lit16", "xor-int/lit16",
}

// lit8Names is the 11-opcode binop/lit8 block, 0xd8..0xe2.
var lit8Names = []string{
	"add-int/lit8", "rsub-int/lit8", "mul-int/lit8", "div-int/lit8",
	"rem-int/lit8", "and-int/lit8", "or-int/lit8", "xor-int/lit8",
	"shl-int/lit8", "shr-int/lit8", "ushr-int/lit8",
}

type opcodeInfo struct {
	name  string
	fmt   Format
	index IndexKind
}

var opcodeTable = map[Opcode]opcodeInfo{}

func reg(names []string, start Opcode, format Format, index IndexKind) {
	for i, n := range names {
		opcodeTable[start+Opcode(i)] = opcodeInfo{name: n, fmt: format, index: index}
	}
}

func one(op Opcode, name string, format Format, index IndexKind) {
	opcodeTable[op] = opcodeInfo{name: name, fmt: format, index: index}
}

func init() {
	one(OpNop, "nop", Fmt10x, IndexNone)
	one(OpMove, "move", Fmt12x, IndexNone)
	one(OpMoveFrom16, "move/from16", Fmt22x, IndexNone)
	one(OpMove16, "move/16", Fmt32x, IndexNone)
	one(OpMoveWide, "move-wide", Fmt12x, IndexNone)
	one(OpMoveWideFrom16, "move-wide/from16", Fmt22x, IndexNone)
	one(OpMoveWide16, "move-wide/16", Fmt32x, IndexNone)
	one(OpMoveObject, "move-object", Fmt12x, IndexNone)
	one(OpMoveObjectFrom16, "move-object/from16", Fmt22x, IndexNone)
	one(OpMoveObject16, "move-object/16", Fmt32x, IndexNone)
	one(OpMoveResult, "move-result", Fmt11x, IndexNone)
	one(OpMoveResultWide, "move-result-wide", Fmt11x, IndexNone)
	one(OpMoveResultObject, "move-result-object", Fmt11x, IndexNone)
	one(OpMoveException, "move-exception", Fmt11x, IndexNone)
	one(OpReturnVoid, "return-void", Fmt10x, IndexNone)
	one(OpReturn, "return", Fmt11x, IndexNone)
	one(OpReturnWide, "return-wide", Fmt11x, IndexNone)
	one(OpReturnObject, "return-object", Fmt11x, IndexNone)
	one(OpConst4, "const/4", Fmt11n, IndexNone)
	one(OpConst16, "const/16", Fmt21s, IndexNone)
	one(OpConst, "const", Fmt31i, IndexNone)
	one(OpConstHigh16, "const/high16", Fmt21h, IndexNone)
	one(OpConstWide16, "const-wide/16", Fmt21s, IndexNone)
	one(OpConstWide32, "const-wide/32", Fmt31i, IndexNone)
	one(OpConstWide, "const-wide", Fmt51l, IndexNone)
	one(OpConstWideHigh16, "const-wide/high16", Fmt21h, IndexNone)
	one(OpConstString, "const-string", Fmt21c, IndexString)
	one(OpConstStringJumbo, "const-string/jumbo", Fmt31c, IndexString)
	one(OpConstClass, "const-class", Fmt21c, IndexType)
	one(OpMonitorEnter, "monitor-enter", Fmt11x, IndexNone)
	one(OpMonitorExit, "monitor-exit", Fmt11x, IndexNone)
	one(OpCheckCast, "check-cast", Fmt21c, IndexType)
	one(OpInstanceOf, "instance-of", Fmt22c, IndexType)
	one(OpArrayLength, "array-length", Fmt12x, IndexNone)
	one(OpNewInstance, "new-instance", Fmt21c, IndexType)
	one(OpNewArray, "new-array", Fmt22c, IndexType)
	one(OpFilledNewArray, "filled-new-array", Fmt35c, IndexType)
	one(OpFilledNewArrayRange, "filled-new-array/range", Fmt3rc, IndexType)
	one(OpFillArrayData, "fill-array-data", Fmt31t, IndexNone)
	one(OpThrow, "throw", Fmt11x, IndexNone)
	one(OpGoto, "goto", Fmt10t, IndexNone)
	one(OpGoto16, "goto/16", Fmt20t, IndexNone)
	one(OpGoto32, "goto/32", Fmt30t, IndexNone)
	one(OpPackedSwitch, "packed-switch", Fmt31t, IndexNone)
	one(OpSparseSwitch, "sparse-switch", Fmt31t, IndexNone)
	one(OpCmplFloat, "cmpl-float", Fmt23x, IndexNone)
	one(OpCmpgFloat, "cmpg-float", Fmt23x, IndexNone)
	one(OpCmplDouble, "cmpl-double", Fmt23x, IndexNone)
	one(OpCmpgDouble, "cmpg-double", Fmt23x, IndexNone)
	one(OpCmpLong, "cmp-long", Fmt23x, IndexNone)
	one(OpIfEq, "if-eq", Fmt22t, IndexNone)
	one(OpIfNe, "if-ne", Fmt22t, IndexNone)
	one(OpIfLt, "if-lt", Fmt22t, IndexNone)
	one(OpIfGe, "if-ge", Fmt22t, IndexNone)
	one(OpIfGt, "if-gt", Fmt22t, IndexNone)
	one(OpIfLe, "if-le", Fmt22t, IndexNone)
	one(OpIfEqz, "if-eqz", Fmt21t, IndexNone)
	one(OpIfNez, "if-nez", Fmt21t, IndexNone)
	one(OpIfLtz, "if-ltz", Fmt21t, IndexNone)
	one(OpIfGez, "if-gez", Fmt21t, IndexNone)
	one(OpIfGtz, "if-gtz", Fmt21t, IndexNone)
	one(OpIfLez, "if-lez", Fmt21t, IndexNone)

	one(OpAget, "aget", Fmt23x, IndexNone)
	one(OpAgetWide, "aget-wide", Fmt23x, IndexNone)
	one(OpAgetObject, "aget-object", Fmt23x, IndexNone)
	one(OpAgetBoolean, "aget-boolean", Fmt23x, IndexNone)
	one(OpAgetByte, "aget-byte", Fmt23x, IndexNone)
	one(OpAgetChar, "aget-char", Fmt23x, IndexNone)
	one(OpAgetShort, "aget-short", Fmt23x, IndexNone)
	one(OpAput, "aput", Fmt23x, IndexNone)
	one(OpAputWide, "aput-wide", Fmt23x, IndexNone)
	one(OpAputObject, "aput-object", Fmt23x, IndexNone)
	one(OpAputBoolean, "aput-boolean", Fmt23x, IndexNone)
	one(OpAputByte, "aput-byte", Fmt23x, IndexNone)
	one(OpAputChar, "aput-char", Fmt23x, IndexNone)
	one(OpAputShort, "aput-short", Fmt23x, IndexNone)

	one(OpIget, "iget", Fmt22c, IndexField)
	one(OpIgetWide, "iget-wide", Fmt22c, IndexField)
	one(OpIgetObject, "iget-object", Fmt22c, IndexField)
	one(OpIgetBoolean, "iget-boolean", Fmt22c, IndexField)
	one(OpIgetByte, "iget-byte", Fmt22c, IndexField)
	one(OpIgetChar, "iget-char", Fmt22c, IndexField)
	one(OpIgetShort, "iget-short", Fmt22c, IndexField)
	one(OpIput, "iput", Fmt22c, IndexField)
	one(OpIputWide, "iput-wide", Fmt22c, IndexField)
	one(OpIputObject, "iput-object", Fmt22c, IndexField)
	one(OpIputBoolean, "iput-boolean", Fmt22c, IndexField)
	one(OpIputByte, "iput-byte", Fmt22c, IndexField)
	one(OpIputChar, "iput-char", Fmt22c, IndexField)
	one(OpIputShort, "iput-short", Fmt22c, IndexField)

	one(OpSget, "sget", Fmt21c, IndexField)
	one(OpSgetWide, "sget-wide", Fmt21c, IndexField)
	one(OpSgetObject, "sget-object", Fmt21c, IndexField)
	one(OpSgetBoolean, "sget-boolean", Fmt21c, IndexField)
	one(OpSgetByte, "sget-byte", Fmt21c, IndexField)
	one(OpSgetChar, "sget-char", Fmt21c, IndexField)
	one(OpSgetShort, "sget-short", Fmt21c, IndexField)
	one(OpSput, "sput", Fmt21c, IndexField)
	one(OpSputWide, "sput-wide", Fmt21c, IndexField)
	one(OpSputObject, "sput-object", Fmt21c, IndexField)
	one(OpSputBoolean, "sput-boolean", Fmt21c, IndexField)
	one(OpSputByte, "sput-byte", Fmt21c, IndexField)
	one(OpSputChar, "sput-char", Fmt21c, IndexField)
	one(OpSputShort, "sput-short", Fmt21c, IndexField)

	one(OpInvokeVirtual, "invoke-virtual", Fmt35c, IndexMethod)
	one(OpInvokeSuper, "invoke-super", Fmt35c, IndexMethod)
	one(OpInvokeDirect, "invoke-direct", Fmt35c, IndexMethod)
	one(OpInvokeStatic, "invoke-static", Fmt35c, IndexMethod)
	one(OpInvokeInterface, "invoke-interface", Fmt35c, IndexMethod)
	one(OpInvokeVirtualRange, "invoke-virtual/range", Fmt3rc, IndexMethod)
	one(OpInvokeSuperRange, "invoke-super/range", Fmt3rc, IndexMethod)
	one(OpInvokeDirectRange, "invoke-direct/range", Fmt3rc, IndexMethod)
	one(OpInvokeStaticRange, "invoke-static/range", Fmt3rc, IndexMethod)
	one(OpInvokeInterfaceRange, "invoke-interface/range", Fmt3rc, IndexMethod)

	reg(unopNames, 0x7b, Fmt12x, IndexNone)
	reg(binopNames, 0x90, Fmt23x, IndexNone)
	for i, n := range binopNames {
		opcodeTable[Opcode(0xb0+i)] = opcodeInfo{name: n + "/2addr", fmt: Fmt12x, index: IndexNone}
	}
	reg(lit16Names, 0xd0, Fmt22s, IndexNone)
	reg(lit8Names, 0xd8, Fmt22b, IndexNone)

	one(OpInvokePolymorphic, "invoke-polymorphic", Fmt45cc, IndexMethod)
	one(OpInvokePolymorphicRange, "invoke-polymorphic/range", Fmt4rcc, IndexMethod)
	one(OpInvokeCustom, "invoke-custom", Fmt35c, IndexMethod)
	one(OpInvokeCustomRange, "invoke-custom/range", Fmt3rc, IndexMethod)
	one(OpConstMethodHandle, "const-method-handle", Fmt21c, IndexMethodHandle)
	one(OpConstMethodType, "const-method-type", Fmt21c, IndexProto)
}

// Name returns the Smali mnemonic for op, or a synthetic "op_XX" for an
// opcode this table doesn't recognize.
func Name(op Opcode) string {
	if info, ok := opcodeTable[op]; ok {
		return info.name
	}
	return fmt.Sprintf("op_%02x", byte(op))
}

// Instruction is spec.md §4.4's decoded unit: offset (in 16-bit code
// units from the start of the code_item's insns array), opcode, format,
// and operands. Not every field is meaningful for every format; Format
// says which are.
type Instruction struct {
	Offset uint32
	Opcode Opcode
	Format Format
	Width  uint32 // instruction length, in 16-bit code units

	// Regs holds the instruction's register operands in the order the
	// format defines them (e.g. 23x: vAA, vBB, vCC; 22c: vA, vB).
	Regs []uint16

	// RegRange holds [first, first+count) for 3rc/4rcc's contiguous
	// register range, nil otherwise.
	RegRange []uint16

	Index      uint32 // pool index, meaning given by IndexKind
	IndexKind  IndexKind
	ProtoIndex uint32 // extra proto index, 45cc/4rcc only

	Literal int64 // sign-extended immediate, for n/s/h/i/l/b formats
	Target  int32 // branch/switch/payload offset, relative to Offset

	// Payload holds the decoded pseudo-instruction body when Format is
	// the internal payload marker; one of PackedSwitch, SparseSwitch, or
	// FillArrayData is set.
	Payload *PayloadData
}

// PayloadData holds whichever payload pseudo-instruction Decode found at
// this offset.
type PayloadData struct {
	PackedSwitch  *PackedSwitchPayload
	SparseSwitch  *SparseSwitchPayload
	FillArrayData *FillArrayDataPayload
}

// PackedSwitchPayload is packed-switch-data: a dense table of branch
// targets for consecutive keys starting at FirstKey.
type PackedSwitchPayload struct {
	FirstKey int32
	Targets  []int32 // relative to the packed-switch instruction's own offset
}

// SparseSwitchPayload is sparse-switch-data: parallel Keys/Targets
// arrays, sorted by key.
type SparseSwitchPayload struct {
	Keys    []int32
	Targets []int32
}

// FillArrayDataPayload is fill-array-data's raw element table.
type FillArrayDataPayload struct {
	ElementWidth uint16
	Data         []byte // Size elements of ElementWidth bytes each, little-endian
}

func unrecognized(offset uint32, op Opcode) error {
	return &errs.FormatError{Section: "code_item.insns", Offset: int(offset), Msg: fmt.Sprintf("unrecognized opcode 0x%02x", byte(op))}
}

// Decode decodes one instruction from insns starting at code-unit index
// offset.
func Decode(insns []uint16, offset uint32) (Instruction, error) {
	if int(offset) >= len(insns) {
		return Instruction{}, &errs.Truncated{Offset: int(offset), Wanted: 1, HaveLen: len(insns) - int(offset)}
	}
	unit0 := insns[offset]
	op := Opcode(unit0 & 0xff)

	if op == OpNop {
		switch unit0 {
		case 0x0000:
			return Instruction{Offset: offset, Opcode: op, Format: Fmt10x, Width: 1}, nil
		case 0x0100:
			return decodePackedSwitch(insns, offset)
		case 0x0200:
			return decodeSparseSwitch(insns, offset)
		case 0x0300:
			return decodeFillArrayData(insns, offset)
		}
		// A reserved nop variant with an unrecognized high byte: treat as
		// a plain nop, matching real tooling's tolerant behavior for
		// vendor-specific padding.
		return Instruction{Offset: offset, Opcode: op, Format: Fmt10x, Width: 1}, nil
	}

	info, ok := opcodeTable[op]
	if !ok {
		return Instruction{}, unrecognized(offset, op)
	}

	need := func(n uint32) error {
		if int(offset+n) > len(insns) {
			return &errs.Truncated{Offset: int(offset), Wanted: int(n), HaveLen: len(insns) - int(offset)}
		}
		return nil
	}

	inst := Instruction{Offset: offset, Opcode: op, Format: info.fmt, IndexKind: info.index}

	switch info.fmt {
	case Fmt10x:
		inst.Width = 1
	case Fmt12x, Fmt11n:
		inst.Width = 1
		a := uint16(unit0>>8) & 0xf
		b := uint16(unit0>>12) & 0xf
		if info.fmt == Fmt11n {
			inst.Regs = []uint16{a}
			inst.Literal = int64(int8(b << 4) >> 4) // sign-extend 4-bit literal
		} else {
			inst.Regs = []uint16{a, b}
		}
	case Fmt11x:
		inst.Width = 1
		inst.Regs = []uint16{uint16(unit0 >> 8)}
	case Fmt10t:
		inst.Width = 1
		inst.Target = int32(int8(unit0 >> 8))
	case Fmt20t:
		if err := need(2); err != nil {
			return Instruction{}, err
		}
		inst.Width = 2
		inst.Target = int32(int16(insns[offset+1]))
	case Fmt20bc:
		if err := need(2); err != nil {
			return Instruction{}, err
		}
		inst.Width = 2
		inst.Regs = []uint16{uint16(unit0 >> 8)}
		inst.Index = uint32(insns[offset+1])
	case Fmt22x:
		if err := need(2); err != nil {
			return Instruction{}, err
		}
		inst.Width = 2
		inst.Regs = []uint16{uint16(unit0 >> 8), insns[offset+1]}
	case Fmt21t:
		if err := need(2); err != nil {
			return Instruction{}, err
		}
		inst.Width = 2
		inst.Regs = []uint16{uint16(unit0 >> 8)}
		inst.Target = int32(int16(insns[offset+1]))
	case Fmt21s:
		if err := need(2); err != nil {
			return Instruction{}, err
		}
		inst.Width = 2
		inst.Regs = []uint16{uint16(unit0 >> 8)}
		inst.Literal = int64(int16(insns[offset+1]))
	case Fmt21h:
		if err := need(2); err != nil {
			return Instruction{}, err
		}
		inst.Width = 2
		inst.Regs = []uint16{uint16(unit0 >> 8)}
		if op == OpConstWideHigh16 {
			inst.Literal = int64(int16(insns[offset+1])) << 48
		} else {
			inst.Literal = int64(int32(int16(insns[offset+1])) << 16)
		}
	case Fmt21c:
		if err := need(2); err != nil {
			return Instruction{}, err
		}
		inst.Width = 2
		inst.Regs = []uint16{uint16(unit0 >> 8)}
		inst.Index = uint32(insns[offset+1])
	case Fmt23x:
		if err := need(2); err != nil {
			return Instruction{}, err
		}
		inst.Width = 2
		second := insns[offset+1]
		inst.Regs = []uint16{uint16(unit0 >> 8), second & 0xff, second >> 8}
	case Fmt22b:
		if err := need(2); err != nil {
			return Instruction{}, err
		}
		inst.Width = 2
		second := insns[offset+1]
		inst.Regs = []uint16{uint16(unit0 >> 8), second & 0xff}
		inst.Literal = int64(int8(second >> 8))
	case Fmt22t:
		if err := need(2); err != nil {
			return Instruction{}, err
		}
		inst.Width = 2
		a := uint16(unit0>>8) & 0xf
		b := uint16(unit0>>12) & 0xf
		inst.Regs = []uint16{a, b}
		inst.Target = int32(int16(insns[offset+1]))
	case Fmt22s:
		if err := need(2); err != nil {
			return Instruction{}, err
		}
		inst.Width = 2
		a := uint16(unit0>>8) & 0xf
		b := uint16(unit0>>12) & 0xf
		inst.Regs = []uint16{a, b}
		inst.Literal = int64(int16(insns[offset+1]))
	case Fmt22c:
		if err := need(2); err != nil {
			return Instruction{}, err
		}
		inst.Width = 2
		a := uint16(unit0>>8) & 0xf
		b := uint16(unit0>>12) & 0xf
		inst.Regs = []uint16{a, b}
		inst.Index = uint32(insns[offset+1])
	case Fmt30t:
		if err := need(3); err != nil {
			return Instruction{}, err
		}
		inst.Width = 3
		inst.Target = int32(uint32(insns[offset+1]) | uint32(insns[offset+2])<<16)
	case Fmt32x:
		if err := need(3); err != nil {
			return Instruction{}, err
		}
		inst.Width = 3
		inst.Regs = []uint16{insns[offset+1], insns[offset+2]}
	case Fmt31i:
		if err := need(3); err != nil {
			return Instruction{}, err
		}
		inst.Width = 3
		inst.Regs = []uint16{uint16(unit0 >> 8)}
		inst.Literal = int64(int32(uint32(insns[offset+1]) | uint32(insns[offset+2])<<16))
	case Fmt31t:
		if err := need(3); err != nil {
			return Instruction{}, err
		}
		inst.Width = 3
		inst.Regs = []uint16{uint16(unit0 >> 8)}
		inst.Target = int32(uint32(insns[offset+1]) | uint32(insns[offset+2])<<16)
	case Fmt31c:
		if err := need(3); err != nil {
			return Instruction{}, err
		}
		inst.Width = 3
		inst.Regs = []uint16{uint16(unit0 >> 8)}
		inst.Index = uint32(insns[offset+1]) | uint32(insns[offset+2])<<16
	case Fmt35c:
		if err := need(3); err != nil {
			return Instruction{}, err
		}
		inst.Width = 3
		count := uint16(unit0>>12) & 0xf
		g := uint16(unit0>>8) & 0xf
		inst.Index = uint32(insns[offset+1])
		third := insns[offset+2]
		c := third & 0xf
		d := (third >> 4) & 0xf
		e := (third >> 8) & 0xf
		f := (third >> 12) & 0xf
		all := []uint16{c, d, e, f, g}
		if int(count) <= len(all) {
			inst.Regs = all[:count]
		} else {
			inst.Regs = all
		}
	case Fmt3rc:
		if err := need(3); err != nil {
			return Instruction{}, err
		}
		inst.Width = 3
		count := uint16(unit0 >> 8)
		inst.Index = uint32(insns[offset+1])
		first := insns[offset+2]
		inst.RegRange = []uint16{first, first + count}
	case Fmt45cc:
		if err := need(4); err != nil {
			return Instruction{}, err
		}
		inst.Width = 4
		count := uint16(unit0>>12) & 0xf
		g := uint16(unit0>>8) & 0xf
		inst.Index = uint32(insns[offset+1])
		third := insns[offset+2]
		c := third & 0xf
		d := (third >> 4) & 0xf
		e := (third >> 8) & 0xf
		f := (third >> 12) & 0xf
		all := []uint16{c, d, e, f, g}
		if int(count) <= len(all) {
			inst.Regs = all[:count]
		} else {
			inst.Regs = all
		}
		inst.ProtoIndex = uint32(insns[offset+3])
	case Fmt4rcc:
		if err := need(4); err != nil {
			return Instruction{}, err
		}
		inst.Width = 4
		count := uint16(unit0 >> 8)
		inst.Index = uint32(insns[offset+1])
		first := insns[offset+2]
		inst.RegRange = []uint16{first, first + count}
		inst.ProtoIndex = uint32(insns[offset+3])
	case Fmt51l:
		if err := need(5); err != nil {
			return Instruction{}, err
		}
		inst.Width = 5
		inst.Regs = []uint16{uint16(unit0 >> 8)}
		v := uint64(insns[offset+1]) | uint64(insns[offset+2])<<16 |
			uint64(insns[offset+3])<<32 | uint64(insns[offset+4])<<48
		inst.Literal = int64(v)
	default:
		return Instruction{}, unrecognized(offset, op)
	}

	return inst, nil
}

func decodePackedSwitch(insns []uint16, offset uint32) (Instruction, error) {
	if int(offset+4) > len(insns) {
		return Instruction{}, &errs.Truncated{Offset: int(offset), Wanted: 4, HaveLen: len(insns) - int(offset)}
	}
	size := uint32(insns[offset+1])
	width := 4 + size*2
	if int(offset+width) > len(insns) {
		return Instruction{}, &errs.Truncated{Offset: int(offset), Wanted: int(width), HaveLen: len(insns) - int(offset)}
	}
	firstKey := int32(uint32(insns[offset+2]) | uint32(insns[offset+3])<<16)
	targets := make([]int32, size)
	base := offset + 4
	for i := uint32(0); i < size; i++ {
		lo := insns[base+i*2]
		hi := insns[base+i*2+1]
		targets[i] = int32(uint32(lo) | uint32(hi)<<16)
	}
	return Instruction{
		Offset: offset, Opcode: OpNop, Format: fmtPayload, Width: width,
		Payload: &PayloadData{PackedSwitch: &PackedSwitchPayload{FirstKey: firstKey, Targets: targets}},
	}, nil
}

func decodeSparseSwitch(insns []uint16, offset uint32) (Instruction, error) {
	if int(offset+2) > len(insns) {
		return Instruction{}, &errs.Truncated{Offset: int(offset), Wanted: 2, HaveLen: len(insns) - int(offset)}
	}
	size := uint32(insns[offset+1])
	width := 2 + size*4
	if int(offset+width) > len(insns) {
		return Instruction{}, &errs.Truncated{Offset: int(offset), Wanted: int(width), HaveLen: len(insns) - int(offset)}
	}
	keys := make([]int32, size)
	targets := make([]int32, size)
	keyBase := offset + 2
	for i := uint32(0); i < size; i++ {
		lo := insns[keyBase+i*2]
		hi := insns[keyBase+i*2+1]
		keys[i] = int32(uint32(lo) | uint32(hi)<<16)
	}
	targetBase := keyBase + size*2
	for i := uint32(0); i < size; i++ {
		lo := insns[targetBase+i*2]
		hi := insns[targetBase+i*2+1]
		targets[i] = int32(uint32(lo) | uint32(hi)<<16)
	}
	return Instruction{
		Offset: offset, Opcode: OpNop, Format: fmtPayload, Width: width,
		Payload: &PayloadData{SparseSwitch: &SparseSwitchPayload{Keys: keys, Targets: targets}},
	}, nil
}

func decodeFillArrayData(insns []uint16, offset uint32) (Instruction, error) {
	if int(offset+4) > len(insns) {
		return Instruction{}, &errs.Truncated{Offset: int(offset), Wanted: 4, HaveLen: len(insns) - int(offset)}
	}
	elementWidth := insns[offset+1]
	size := uint32(insns[offset+2]) | uint32(insns[offset+3])<<16
	byteCount := uint64(elementWidth) * uint64(size)
	dataUnits := (byteCount + 1) / 2
	width := 4 + uint32(dataUnits)
	if int(offset+width) > len(insns) {
		return Instruction{}, &errs.Truncated{Offset: int(offset), Wanted: int(width), HaveLen: len(insns) - int(offset)}
	}
	data := make([]byte, 0, byteCount)
	base := offset + 4
	for i := uint32(0); uint64(len(data)) < byteCount; i++ {
		u := insns[base+i]
		data = append(data, byte(u), byte(u>>8))
	}
	data = data[:byteCount]
	return Instruction{
		Offset: offset, Opcode: OpNop, Format: fmtPayload, Width: width,
		Payload: &PayloadData{FillArrayData: &FillArrayDataPayload{ElementWidth: elementWidth, Data: data}},
	}, nil
}

// DecodeAll walks insns from code-unit 0, decoding one instruction per
// step and advancing by its Width, until the stream is exhausted. Because
// payload pseudo-instructions are self-describing (their own Width
// accounts for their variable-length table), a linear walk never
// misinterprets payload data as a bogus opcode even when a payload is
// reachable only via a branch (e.g. placed after a method's final
// return).
// DecodeAll decodes insns in full, backing the returned instruction
// array with a's per-task pool rather than the process-wide one, per
// spec.md §5's decoding-scratch discipline.
func DecodeAll(a *arena.Arena, insns []uint16) ([]Instruction, error) {
	out := arena.Get[Instruction](a, len(insns))
	for pos := uint32(0); int(pos) < len(insns); {
		inst, err := Decode(insns, pos)
		if err != nil {
			return out, err
		}
		out = append(out, inst)
		if inst.Width == 0 {
			return out, &errs.FormatError{Section: "code_item.insns", Offset: int(pos), Msg: "decoded zero-width instruction"}
		}
		pos += inst.Width
	}
	return out, nil
}
