/*
 * garlic - a Java/Dalvik bytecode decompiler
 */

package ir

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExprVariantsSatisfyInterface(t *testing.T) {
	var exprs = []Expr{
		IntLiteral{Node: Node{Offset: 1}, Value: 5},
		StringLiteral{Value: "hi"},
		NullLiteral{},
		LocalRef{Name: "v1"},
		FieldAccess{Static: true, Class: "La/B;", Name: "f"},
		MethodInvoke{Kind: InvokeStatic, Class: "La/B;", Name: "m"},
		ArrayAccess{},
		BinaryOp{Op: "add-int"},
		Compare{Op: "cmpl-float", Bias: -1},
		Cast{Type: "I"},
		NewInstance{Type: "La/B;"},
		NewArray{ElementType: "I"},
		ArrayInitializer{ElementWidth: 4},
	}
	require.Len(t, exprs, 13)
}

func TestStmtVariantsSatisfyInterface(t *testing.T) {
	var stmts = []Stmt{
		Assign{Target: LocalRef{Name: "v0"}, Value: IntLiteral{Value: 1}},
		IfGoto{Op: "if-eq", Target: 4},
		Goto{Target: -2},
		Return{},
		Throw{},
		TryBlock{Catches: []CatchClause{{ExceptionType: "Ljava/lang/Exception;"}}},
		MonitorEnter{},
		Synchronized{},
		While{},
		IfElse{},
	}
	require.Len(t, stmts, 10)
}

func TestNodeCarriesDiagnosticProvenance(t *testing.T) {
	n := IntLiteral{Node: Node{SourceRegs: []uint16{1, 2}, Offset: 42}, Value: 7}
	require.Equal(t, []uint16{1, 2}, n.Regs())
	require.EqualValues(t, 42, n.InstrOffset())
}

func TestReturnVoidHasNilValue(t *testing.T) {
	r := Return{}
	require.Nil(t, r.Value)
}
