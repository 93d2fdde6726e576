/*
 * garlic - a Java/Dalvik bytecode decompiler
 */

package jvmlift

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/CrazyForks/garlic/internal/arena"
	"github.com/CrazyForks/garlic/internal/classfile"
	"github.com/CrazyForks/garlic/internal/ir"
)

func testMethod() Method {
	return Method{Class: "p/A", Name: "m", Desc: "(II)I"}
}

func testArena() *arena.Arena { return arena.NewPool().NewArena() }

// testClassFile builds a minimal ClassFile whose constant pool holds
// just enough entries for the fixtures below to resolve by index.
func testClassFile() *classfile.ClassFile {
	return &classfile.ClassFile{
		ConstantPool: []classfile.CPEntry{
			classfile.CPZero{},                                        // 0 (unused)
			classfile.CPUtf8{Value: "hello"},                          // 1
			classfile.CPString{StringIndex: 1},                        // 2
			classfile.CPUtf8{Value: "p/B"},                             // 3
			classfile.CPClass{NameIndex: 3},                           // 4
			classfile.CPUtf8{Value: "f"},                               // 5
			classfile.CPUtf8{Value: "I"},                               // 6
			classfile.CPNameAndType{NameIndex: 5, DescriptorIndex: 6}, // 7
			classfile.CPFieldref{ClassIndex: 4, NameAndTypeIndex: 7},  // 8
			classfile.CPUtf8{Value: "g"},                               // 9
			classfile.CPUtf8{Value: "(I)I"},                            // 10
			classfile.CPNameAndType{NameIndex: 9, DescriptorIndex: 10}, // 11
			classfile.CPMethodref{ClassIndex: 4, NameAndTypeIndex: 11}, // 12
		},
	}
}

func TestLiftStraightLineAddAndReturn(t *testing.T) {
	// iload_0; iload_1; iadd; ireturn
	code := []byte{0x1a, 0x1b, 0x60, 0xac}
	ca := &classfile.CodeAttribute{MaxLocals: 2, Code: code}

	stmts, err := New(testClassFile(), testMethod(), ca, true).Lift(testArena())
	require.NoError(t, err)
	require.Len(t, stmts, 1)

	ret, ok := stmts[0].(ir.Return)
	require.True(t, ok)
	bin, ok := ret.Value.(ir.BinaryOp)
	require.True(t, ok)
	require.Equal(t, "add-int", bin.Op)
	require.Equal(t, ir.LocalRef{Name: "local0"}, bin.Left)
	require.Equal(t, ir.LocalRef{Name: "local1"}, bin.Right)
}

func TestLiftConstStoreLoadReturn(t *testing.T) {
	// bipush 5; istore_0; iload_0; ireturn
	code := []byte{0x10, 0x05, 0x3b, 0x1a, 0xac}
	ca := &classfile.CodeAttribute{MaxLocals: 1, Code: code}

	stmts, err := New(testClassFile(), testMethod(), ca, true).Lift(testArena())
	require.NoError(t, err)
	require.Len(t, stmts, 2)

	assign, ok := stmts[0].(ir.Assign)
	require.True(t, ok)
	require.Equal(t, ir.LocalRef{Name: "local0"}, assign.Target)
	require.Equal(t, ir.IntLiteral{Value: 5}, assign.Value)

	ret, ok := stmts[1].(ir.Return)
	require.True(t, ok)
	require.Equal(t, ir.IntLiteral{Value: 5}, ret.Value)
}

func TestLiftLdcString(t *testing.T) {
	// ldc #2 (-> "hello"); areturn
	code := []byte{0x12, 0x02, 0xb0}
	ca := &classfile.CodeAttribute{MaxLocals: 1, Code: code}

	stmts, err := New(testClassFile(), testMethod(), ca, true).Lift(testArena())
	require.NoError(t, err)
	require.Len(t, stmts, 1)
	ret := stmts[0].(ir.Return)
	require.Equal(t, ir.StringLiteral{Value: "hello"}, ret.Value)
}

func TestLiftStaticFieldReadWrite(t *testing.T) {
	// getstatic #8 (p/B.f:I); putstatic #8; return
	code := []byte{0xb2, 0x00, 0x08, 0xb3, 0x00, 0x08, 0xb1}
	ca := &classfile.CodeAttribute{MaxLocals: 0, Code: code}

	stmts, err := New(testClassFile(), testMethod(), ca, true).Lift(testArena())
	require.NoError(t, err)
	require.Len(t, stmts, 2)

	assign, ok := stmts[0].(ir.Assign)
	require.True(t, ok)
	field, ok := assign.Target.(ir.FieldAccess)
	require.True(t, ok)
	require.Equal(t, "p/B", field.Class)
	require.Equal(t, "f", field.Name)
	require.True(t, field.Static)

	_, ok = stmts[1].(ir.Return)
	require.True(t, ok)
}

func TestLiftInvokeStaticWithArgAndResult(t *testing.T) {
	// iload_0; invokestatic #12 (p/B.g(I)I); ireturn
	code := []byte{0x1a, 0xb8, 0x00, 0x0c, 0xac}
	ca := &classfile.CodeAttribute{MaxLocals: 1, Code: code}

	stmts, err := New(testClassFile(), testMethod(), ca, true).Lift(testArena())
	require.NoError(t, err)
	require.Len(t, stmts, 1)

	ret := stmts[0].(ir.Return)
	call, ok := ret.Value.(ir.MethodInvoke)
	require.True(t, ok)
	require.Equal(t, ir.InvokeStatic, call.Kind)
	require.Equal(t, "g", call.Name)
	require.Nil(t, call.Receiver)
	require.Len(t, call.Args, 1)
}

func TestLiftIfGotoBranch(t *testing.T) {
	// iload_0; ifeq +7; iconst_1; ireturn; iconst_0; ireturn
	code := []byte{
		0x1a,             // iload_0       offset 0
		0x99, 0x00, 0x07, // ifeq +7       offset 1
		0x04, 0xac,       // iconst_1; ireturn  offset 4,5
		0x03, 0xac,       // iconst_0; ireturn  offset 6,7
	}
	ca := &classfile.CodeAttribute{MaxLocals: 1, Code: code}

	stmts, err := New(testClassFile(), testMethod(), ca, true).Lift(testArena())
	require.NoError(t, err)
	require.Len(t, stmts, 3)

	ifg, ok := stmts[0].(ir.IfGoto)
	require.True(t, ok)
	require.Equal(t, "==", ifg.Op)
	require.EqualValues(t, 7, ifg.Target)

	first, ok := stmts[1].(ir.Return)
	require.True(t, ok)
	require.Equal(t, ir.IntLiteral{Node: ir.Node{Offset: 4}, Value: 1}, first.Value)

	second, ok := stmts[2].(ir.Return)
	require.True(t, ok)
	require.Equal(t, ir.IntLiteral{Node: ir.Node{Offset: 6}, Value: 0}, second.Value)
}

func TestLiftEmptyReturnVoid(t *testing.T) {
	ca := &classfile.CodeAttribute{MaxLocals: 1, Code: []byte{0xb1}} // return
	stmts, err := New(testClassFile(), testMethod(), ca, true).Lift(testArena())
	require.NoError(t, err)
	require.Len(t, stmts, 1)
	ret, ok := stmts[0].(ir.Return)
	require.True(t, ok)
	require.Nil(t, ret.Value)
}

func TestLiftNilCodeReturnsEmptyBody(t *testing.T) {
	stmts, err := New(testClassFile(), testMethod(), nil, true).Lift(testArena())
	require.NoError(t, err)
	require.Nil(t, stmts)
}
