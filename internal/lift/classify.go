/*
 * garlic - a Java/Dalvik bytecode decompiler
 */

package lift

import (
	"strings"

	"github.com/CrazyForks/garlic/internal/dexinstr"
	"github.com/CrazyForks/garlic/internal/ir"
)

func isMove(op dexinstr.Opcode) bool {
	switch op {
	case dexinstr.OpMove, dexinstr.OpMoveFrom16, dexinstr.OpMove16,
		dexinstr.OpMoveWide, dexinstr.OpMoveWideFrom16, dexinstr.OpMoveWide16,
		dexinstr.OpMoveObject, dexinstr.OpMoveObjectFrom16, dexinstr.OpMoveObject16:
		return true
	}
	return false
}

func isIfz(op dexinstr.Opcode) bool {
	switch op {
	case dexinstr.OpIfEqz, dexinstr.OpIfNez, dexinstr.OpIfLtz, dexinstr.OpIfGez, dexinstr.OpIfGtz, dexinstr.OpIfLez:
		return true
	}
	return false
}

func isIf(op dexinstr.Opcode) bool {
	switch op {
	case dexinstr.OpIfEq, dexinstr.OpIfNe, dexinstr.OpIfLt, dexinstr.OpIfGe, dexinstr.OpIfGt, dexinstr.OpIfLe:
		return true
	}
	return false
}

func isCompare(op dexinstr.Opcode) bool {
	switch op {
	case dexinstr.OpCmplFloat, dexinstr.OpCmpgFloat, dexinstr.OpCmplDouble, dexinstr.OpCmpgDouble, dexinstr.OpCmpLong:
		return true
	}
	return false
}

func compareBias(op dexinstr.Opcode) int {
	switch op {
	case dexinstr.OpCmplFloat, dexinstr.OpCmplDouble:
		return -1
	case dexinstr.OpCmpgFloat, dexinstr.OpCmpgDouble:
		return 1
	default:
		return 0
	}
}

func isUnop(op dexinstr.Opcode) bool {
	return op >= 0x7b && op <= 0x8f
}

func isBinop(op dexinstr.Opcode) bool {
	return (op >= 0x90 && op <= 0xaf) || (op >= 0xb0 && op <= 0xcf) ||
		(op >= 0xd0 && op <= 0xd7) || (op >= 0xd8 && op <= 0xe2)
}

// normalizeBinopName strips the /2addr, /lit16, /lit8 spelling variants
// dexinstr.Name returns for the three binop encodings down to the plain
// "op-type" mnemonic the IR uses uniformly (e.g. "add-int/2addr" and
// "add-int/lit8" both become "add-int").
func normalizeBinopName(name string) string {
	if i := strings.IndexByte(name, '/'); i >= 0 {
		return name[:i]
	}
	return name
}

func isArrayGet(op dexinstr.Opcode) bool {
	switch op {
	case dexinstr.OpAget, dexinstr.OpAgetWide, dexinstr.OpAgetObject, dexinstr.OpAgetBoolean,
		dexinstr.OpAgetByte, dexinstr.OpAgetChar, dexinstr.OpAgetShort:
		return true
	}
	return false
}

func isArrayPut(op dexinstr.Opcode) bool {
	switch op {
	case dexinstr.OpAput, dexinstr.OpAputWide, dexinstr.OpAputObject, dexinstr.OpAputBoolean,
		dexinstr.OpAputByte, dexinstr.OpAputChar, dexinstr.OpAputShort:
		return true
	}
	return false
}

func isInstanceFieldGet(op dexinstr.Opcode) bool {
	return op >= dexinstr.OpIget && op <= dexinstr.OpIgetShort
}

func isInstanceFieldPut(op dexinstr.Opcode) bool {
	return op >= dexinstr.OpIput && op <= dexinstr.OpIputShort
}

func isStaticFieldGet(op dexinstr.Opcode) bool {
	return op >= dexinstr.OpSget && op <= dexinstr.OpSgetShort
}

func isStaticFieldPut(op dexinstr.Opcode) bool {
	return op >= dexinstr.OpSput && op <= dexinstr.OpSputShort
}

func isInvoke(op dexinstr.Opcode) bool {
	switch op {
	case dexinstr.OpInvokeVirtual, dexinstr.OpInvokeSuper, dexinstr.OpInvokeDirect,
		dexinstr.OpInvokeStatic, dexinstr.OpInvokeInterface,
		dexinstr.OpInvokeVirtualRange, dexinstr.OpInvokeSuperRange, dexinstr.OpInvokeDirectRange,
		dexinstr.OpInvokeStaticRange, dexinstr.OpInvokeInterfaceRange,
		dexinstr.OpInvokePolymorphic, dexinstr.OpInvokePolymorphicRange:
		return true
	}
	return false
}

func invokeKind(op dexinstr.Opcode) ir.InvokeKind {
	switch op {
	case dexinstr.OpInvokeVirtual, dexinstr.OpInvokeVirtualRange:
		return ir.InvokeVirtual
	case dexinstr.OpInvokeSuper, dexinstr.OpInvokeSuperRange:
		return ir.InvokeSuper
	case dexinstr.OpInvokeDirect, dexinstr.OpInvokeDirectRange:
		return ir.InvokeDirect
	case dexinstr.OpInvokeStatic, dexinstr.OpInvokeStaticRange:
		return ir.InvokeStatic
	case dexinstr.OpInvokeInterface, dexinstr.OpInvokeInterfaceRange:
		return ir.InvokeInterface
	case dexinstr.OpInvokePolymorphic, dexinstr.OpInvokePolymorphicRange:
		return ir.InvokePolymorphic
	default:
		return ir.InvokeVirtual
	}
}
