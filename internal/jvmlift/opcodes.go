/*
 * garlic - a Java/Dalvik bytecode decompiler
 */

package jvmlift

import (
	"github.com/CrazyForks/garlic/internal/classfile"
	"github.com/CrazyForks/garlic/internal/errs"
	"github.com/CrazyForks/garlic/internal/ir"
	"github.com/CrazyForks/garlic/internal/jvminstr"
)

func isConstOpcode(op jvminstr.Opcode) bool {
	switch op {
	case jvminstr.OpAconstNull,
		jvminstr.OpIconstM1, jvminstr.OpIconst0, jvminstr.OpIconst1, jvminstr.OpIconst2, jvminstr.OpIconst3, jvminstr.OpIconst4, jvminstr.OpIconst5,
		jvminstr.OpLconst0, jvminstr.OpLconst1,
		jvminstr.OpFconst0, jvminstr.OpFconst1, jvminstr.OpFconst2,
		jvminstr.OpDconst0, jvminstr.OpDconst1,
		jvminstr.OpBipush, jvminstr.OpSipush,
		jvminstr.OpLdc, jvminstr.OpLdcW, jvminstr.OpLdc2W:
		return true
	default:
		return false
	}
}

func (s *simState) constExpr(op jvminstr.Opcode, inst jvminstr.Instruction, node ir.Node) (ir.Expr, error) {
	switch op {
	case jvminstr.OpAconstNull:
		return ir.NullLiteral{Node: node}, nil
	case jvminstr.OpIconstM1:
		return ir.IntLiteral{Node: node, Value: -1}, nil
	case jvminstr.OpIconst0:
		return ir.IntLiteral{Node: node, Value: 0}, nil
	case jvminstr.OpIconst1:
		return ir.IntLiteral{Node: node, Value: 1}, nil
	case jvminstr.OpIconst2:
		return ir.IntLiteral{Node: node, Value: 2}, nil
	case jvminstr.OpIconst3:
		return ir.IntLiteral{Node: node, Value: 3}, nil
	case jvminstr.OpIconst4:
		return ir.IntLiteral{Node: node, Value: 4}, nil
	case jvminstr.OpIconst5:
		return ir.IntLiteral{Node: node, Value: 5}, nil
	case jvminstr.OpLconst0:
		return ir.LongLiteral{Node: node, Value: 0}, nil
	case jvminstr.OpLconst1:
		return ir.LongLiteral{Node: node, Value: 1}, nil
	case jvminstr.OpFconst0:
		return ir.FloatLiteral{Node: node, Value: 0}, nil
	case jvminstr.OpFconst1:
		return ir.FloatLiteral{Node: node, Value: 1}, nil
	case jvminstr.OpFconst2:
		return ir.FloatLiteral{Node: node, Value: 2}, nil
	case jvminstr.OpDconst0:
		return ir.DoubleLiteral{Node: node, Value: 0}, nil
	case jvminstr.OpDconst1:
		return ir.DoubleLiteral{Node: node, Value: 1}, nil
	case jvminstr.OpBipush, jvminstr.OpSipush:
		return ir.IntLiteral{Node: node, Value: inst.Const}, nil
	case jvminstr.OpLdc, jvminstr.OpLdcW, jvminstr.OpLdc2W:
		return s.ldcExpr(inst, node)
	}
	panic("unreachable: constExpr called with non-const opcode")
}

func (s *simState) ldcExpr(inst jvminstr.Instruction, node ir.Node) (ir.Expr, error) {
	entry := s.cf.ConstantPool[inst.Index]
	switch e := entry.(type) {
	case classfile.CPInteger:
		return ir.IntLiteral{Node: node, Value: e.Value}, nil
	case classfile.CPFloat:
		return ir.FloatLiteral{Node: node, Value: e.Value}, nil
	case classfile.CPLong:
		return ir.LongLiteral{Node: node, Value: e.Value}, nil
	case classfile.CPDouble:
		return ir.DoubleLiteral{Node: node, Value: e.Value}, nil
	case classfile.CPString:
		str, err := s.cf.Utf8(e.StringIndex)
		if err != nil {
			return nil, err
		}
		return ir.StringLiteral{Node: node, Value: str}, nil
	case classfile.CPClass:
		name, err := s.cf.Utf8(e.NameIndex)
		if err != nil {
			return nil, err
		}
		return ir.ClassLiteral{Node: node, Descriptor: name}, nil
	default:
		// MethodHandle/MethodType/Dynamic ldc forms (invokedynamic-era
		// constants) are rare outside lambda-metafactory-generated
		// bridge code and aren't resolved here; the method fails to lift
		// and internal/decompile falls back to a raw mnemonic-listing stub for it,
		// the same per-method recovery spec.md §4.5 already defines.
		return nil, &errs.LiftError{MethodID: s.method.String(), Offset: int(node.Offset), Msg: "unsupported ldc constant kind"}
	}
}

func isLoadOpcode(op jvminstr.Opcode) bool {
	switch op {
	case jvminstr.OpIload, jvminstr.OpLload, jvminstr.OpFload, jvminstr.OpDload, jvminstr.OpAload,
		jvminstr.OpIload0, jvminstr.OpIload1, jvminstr.OpIload2, jvminstr.OpIload3,
		jvminstr.OpLload0, jvminstr.OpLload1, jvminstr.OpLload2, jvminstr.OpLload3,
		jvminstr.OpFload0, jvminstr.OpFload1, jvminstr.OpFload2, jvminstr.OpFload3,
		jvminstr.OpDload0, jvminstr.OpDload1, jvminstr.OpDload2, jvminstr.OpDload3,
		jvminstr.OpAload0, jvminstr.OpAload1, jvminstr.OpAload2, jvminstr.OpAload3:
		return true
	default:
		return false
	}
}

func isStoreOpcode(op jvminstr.Opcode) bool {
	switch op {
	case jvminstr.OpIstore, jvminstr.OpLstore, jvminstr.OpFstore, jvminstr.OpDstore, jvminstr.OpAstore,
		jvminstr.OpIstore0, jvminstr.OpIstore1, jvminstr.OpIstore2, jvminstr.OpIstore3,
		jvminstr.OpLstore0, jvminstr.OpLstore1, jvminstr.OpLstore2, jvminstr.OpLstore3,
		jvminstr.OpFstore0, jvminstr.OpFstore1, jvminstr.OpFstore2, jvminstr.OpFstore3,
		jvminstr.OpDstore0, jvminstr.OpDstore1, jvminstr.OpDstore2, jvminstr.OpDstore3,
		jvminstr.OpAstore0, jvminstr.OpAstore1, jvminstr.OpAstore2, jvminstr.OpAstore3:
		return true
	default:
		return false
	}
}

// loadSlot returns the local-variable slot a *load/*store instruction
// addresses -- either its explicit Local operand (the variable-width
// forms) or the slot baked into the opcode itself (the _0.._3 forms).
func loadSlot(op jvminstr.Opcode, inst jvminstr.Instruction) uint16 {
	switch op {
	case jvminstr.OpIload, jvminstr.OpLload, jvminstr.OpFload, jvminstr.OpDload, jvminstr.OpAload,
		jvminstr.OpIstore, jvminstr.OpLstore, jvminstr.OpFstore, jvminstr.OpDstore, jvminstr.OpAstore:
		return inst.Local
	case jvminstr.OpIload0, jvminstr.OpLload0, jvminstr.OpFload0, jvminstr.OpDload0, jvminstr.OpAload0,
		jvminstr.OpIstore0, jvminstr.OpLstore0, jvminstr.OpFstore0, jvminstr.OpDstore0, jvminstr.OpAstore0:
		return 0
	case jvminstr.OpIload1, jvminstr.OpLload1, jvminstr.OpFload1, jvminstr.OpDload1, jvminstr.OpAload1,
		jvminstr.OpIstore1, jvminstr.OpLstore1, jvminstr.OpFstore1, jvminstr.OpDstore1, jvminstr.OpAstore1:
		return 1
	case jvminstr.OpIload2, jvminstr.OpLload2, jvminstr.OpFload2, jvminstr.OpDload2, jvminstr.OpAload2,
		jvminstr.OpIstore2, jvminstr.OpLstore2, jvminstr.OpFstore2, jvminstr.OpDstore2, jvminstr.OpAstore2:
		return 2
	default: // the _3 forms
		return 3
	}
}

func isArrayLoadOpcode(op jvminstr.Opcode) bool {
	switch op {
	case jvminstr.OpIaload, jvminstr.OpLaload, jvminstr.OpFaload, jvminstr.OpDaload,
		jvminstr.OpAaload, jvminstr.OpBaload, jvminstr.OpCaload, jvminstr.OpSaload:
		return true
	default:
		return false
	}
}

func isArrayStoreOpcode(op jvminstr.Opcode) bool {
	switch op {
	case jvminstr.OpIastore, jvminstr.OpLastore, jvminstr.OpFastore, jvminstr.OpDastore,
		jvminstr.OpAastore, jvminstr.OpBastore, jvminstr.OpCastore, jvminstr.OpSastore:
		return true
	default:
		return false
	}
}

func isBinaryOpcode(op jvminstr.Opcode) bool {
	switch op {
	case jvminstr.OpIadd, jvminstr.OpLadd, jvminstr.OpFadd, jvminstr.OpDadd,
		jvminstr.OpIsub, jvminstr.OpLsub, jvminstr.OpFsub, jvminstr.OpDsub,
		jvminstr.OpImul, jvminstr.OpLmul, jvminstr.OpFmul, jvminstr.OpDmul,
		jvminstr.OpIdiv, jvminstr.OpLdiv, jvminstr.OpFdiv, jvminstr.OpDdiv,
		jvminstr.OpIrem, jvminstr.OpLrem, jvminstr.OpFrem, jvminstr.OpDrem,
		jvminstr.OpIand, jvminstr.OpLand, jvminstr.OpIor, jvminstr.OpLor, jvminstr.OpIxor, jvminstr.OpLxor,
		jvminstr.OpIshl, jvminstr.OpLshl, jvminstr.OpIshr, jvminstr.OpLshr, jvminstr.OpIushr, jvminstr.OpLushr:
		return true
	default:
		return false
	}
}

// binaryOpName returns the Dalvik-style mnemonic stem for a binary
// opcode ("add-int", "mul-double", ...), the same naming convention
// internal/lift's BinaryOp.Op values use, so internal/javasrc's operator
// rendering works identically for both pipelines.
func binaryOpName(op jvminstr.Opcode) string {
	switch op {
	case jvminstr.OpIadd:
		return "add-int"
	case jvminstr.OpLadd:
		return "add-long"
	case jvminstr.OpFadd:
		return "add-float"
	case jvminstr.OpDadd:
		return "add-double"
	case jvminstr.OpIsub:
		return "sub-int"
	case jvminstr.OpLsub:
		return "sub-long"
	case jvminstr.OpFsub:
		return "sub-float"
	case jvminstr.OpDsub:
		return "sub-double"
	case jvminstr.OpImul:
		return "mul-int"
	case jvminstr.OpLmul:
		return "mul-long"
	case jvminstr.OpFmul:
		return "mul-float"
	case jvminstr.OpDmul:
		return "mul-double"
	case jvminstr.OpIdiv:
		return "div-int"
	case jvminstr.OpLdiv:
		return "div-long"
	case jvminstr.OpFdiv:
		return "div-float"
	case jvminstr.OpDdiv:
		return "div-double"
	case jvminstr.OpIrem:
		return "rem-int"
	case jvminstr.OpLrem:
		return "rem-long"
	case jvminstr.OpFrem:
		return "rem-float"
	case jvminstr.OpDrem:
		return "rem-double"
	case jvminstr.OpIand:
		return "and-int"
	case jvminstr.OpLand:
		return "and-long"
	case jvminstr.OpIor:
		return "or-int"
	case jvminstr.OpLor:
		return "or-long"
	case jvminstr.OpIxor:
		return "xor-int"
	case jvminstr.OpLxor:
		return "xor-long"
	case jvminstr.OpIshl:
		return "shl-int"
	case jvminstr.OpLshl:
		return "shl-long"
	case jvminstr.OpIshr:
		return "shr-int"
	case jvminstr.OpLshr:
		return "shr-long"
	case jvminstr.OpIushr:
		return "ushr-int"
	case jvminstr.OpLushr:
		return "ushr-long"
	default:
		return "unknown-binop"
	}
}

func isUnaryOpcode(op jvminstr.Opcode) bool {
	switch op {
	case jvminstr.OpIneg, jvminstr.OpLneg, jvminstr.OpFneg, jvminstr.OpDneg,
		jvminstr.OpI2l, jvminstr.OpI2f, jvminstr.OpI2d,
		jvminstr.OpL2i, jvminstr.OpL2f, jvminstr.OpL2d,
		jvminstr.OpF2i, jvminstr.OpF2l, jvminstr.OpF2d,
		jvminstr.OpD2i, jvminstr.OpD2l, jvminstr.OpD2f,
		jvminstr.OpI2b, jvminstr.OpI2c, jvminstr.OpI2s:
		return true
	default:
		return false
	}
}

func unaryOpName(op jvminstr.Opcode) string {
	switch op {
	case jvminstr.OpIneg:
		return "neg-int"
	case jvminstr.OpLneg:
		return "neg-long"
	case jvminstr.OpFneg:
		return "neg-float"
	case jvminstr.OpDneg:
		return "neg-double"
	case jvminstr.OpI2l:
		return "int-to-long"
	case jvminstr.OpI2f:
		return "int-to-float"
	case jvminstr.OpI2d:
		return "int-to-double"
	case jvminstr.OpL2i:
		return "long-to-int"
	case jvminstr.OpL2f:
		return "long-to-float"
	case jvminstr.OpL2d:
		return "long-to-double"
	case jvminstr.OpF2i:
		return "float-to-int"
	case jvminstr.OpF2l:
		return "float-to-long"
	case jvminstr.OpF2d:
		return "float-to-double"
	case jvminstr.OpD2i:
		return "double-to-int"
	case jvminstr.OpD2l:
		return "double-to-long"
	case jvminstr.OpD2f:
		return "double-to-float"
	case jvminstr.OpI2b:
		return "int-to-byte"
	case jvminstr.OpI2c:
		return "int-to-char"
	case jvminstr.OpI2s:
		return "int-to-short"
	default:
		return "unknown-unop"
	}
}

func isCompareOpcode(op jvminstr.Opcode) bool {
	switch op {
	case jvminstr.OpLcmp, jvminstr.OpFcmpl, jvminstr.OpFcmpg, jvminstr.OpDcmpl, jvminstr.OpDcmpg:
		return true
	default:
		return false
	}
}

// compareOpNameBias mirrors ir.Compare's Bias convention: -1 for the
// less-biased ("l") forms, +1 for greater-biased ("g"), 0 for cmp-long
// (which has no NaN case to bias).
func compareOpNameBias(op jvminstr.Opcode) (string, int) {
	switch op {
	case jvminstr.OpLcmp:
		return "cmp-long", 0
	case jvminstr.OpFcmpl:
		return "cmpl-float", -1
	case jvminstr.OpFcmpg:
		return "cmpg-float", 1
	case jvminstr.OpDcmpl:
		return "cmpl-double", -1
	default: // Dcmpg
		return "cmpg-double", 1
	}
}

func isIfOpcode(op jvminstr.Opcode) bool {
	switch op {
	case jvminstr.OpIfeq, jvminstr.OpIfne, jvminstr.OpIflt, jvminstr.OpIfge, jvminstr.OpIfgt, jvminstr.OpIfle,
		jvminstr.OpIfIcmpeq, jvminstr.OpIfIcmpne, jvminstr.OpIfIcmplt, jvminstr.OpIfIcmpge, jvminstr.OpIfIcmpgt, jvminstr.OpIfIcmple,
		jvminstr.OpIfAcmpeq, jvminstr.OpIfAcmpne, jvminstr.OpIfnull, jvminstr.OpIfnonnull:
		return true
	default:
		return false
	}
}

// ifOpName returns the comparison operator and whether the form is
// unary (compared against an implicit zero/null) or binary (two popped
// operands).
func ifOpName(op jvminstr.Opcode) (name string, unary bool) {
	switch op {
	case jvminstr.OpIfeq:
		return "==", true
	case jvminstr.OpIfne:
		return "!=", true
	case jvminstr.OpIflt:
		return "<", true
	case jvminstr.OpIfge:
		return ">=", true
	case jvminstr.OpIfgt:
		return ">", true
	case jvminstr.OpIfle:
		return "<=", true
	case jvminstr.OpIfnull:
		return "==", true
	case jvminstr.OpIfnonnull:
		return "!=", true
	case jvminstr.OpIfIcmpeq, jvminstr.OpIfAcmpeq:
		return "==", false
	case jvminstr.OpIfIcmpne, jvminstr.OpIfAcmpne:
		return "!=", false
	case jvminstr.OpIfIcmplt:
		return "<", false
	case jvminstr.OpIfIcmpge:
		return ">=", false
	case jvminstr.OpIfIcmpgt:
		return ">", false
	default: // OpIfIcmple
		return "<=", false
	}
}

func isReturnOpcode(op jvminstr.Opcode) bool {
	switch op {
	case jvminstr.OpIreturn, jvminstr.OpLreturn, jvminstr.OpFreturn, jvminstr.OpDreturn, jvminstr.OpAreturn, jvminstr.OpReturn:
		return true
	default:
		return false
	}
}

func isInvokeOpcode(op jvminstr.Opcode) bool {
	switch op {
	case jvminstr.OpInvokevirtual, jvminstr.OpInvokespecial, jvminstr.OpInvokestatic,
		jvminstr.OpInvokeinterface, jvminstr.OpInvokedynamic:
		return true
	default:
		return false
	}
}

// primitiveArrayType maps newarray's atype operand (JVM spec Table
// 6.5.newarray-A) to its array-element descriptor letter.
func primitiveArrayType(atype uint8) string {
	switch atype {
	case 4:
		return "Z" // boolean
	case 5:
		return "C"
	case 6:
		return "F"
	case 7:
		return "D"
	case 8:
		return "B"
	case 9:
		return "S"
	case 10:
		return "I"
	case 11:
		return "J"
	default:
		return "?"
	}
}
