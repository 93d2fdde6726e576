/*
 * garlic - a Java/Dalvik bytecode decompiler
 */

package javasrc

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/CrazyForks/garlic/internal/ir"
)

// TestEmitClassEmptyReturnElision is spec.md §8 S2: a DEX class La; with
// one method "void m() { return; }" decompiles to a class "a" whose
// method m has a body of exactly "{ }".
func TestEmitClassEmptyReturnElision(t *testing.T) {
	c := Class{
		Name: "a",
		Methods: []Method{
			{
				Name:   "m",
				Return: "V",
				Body:   []ir.Stmt{ir.Return{}},
			},
		},
	}

	out, err := EmitClass(c)
	require.NoError(t, err)
	require.Contains(t, out, "void m() { }\n")
}

func TestEmitClassWithSuperAndField(t *testing.T) {
	c := Class{
		Package: "p",
		Name:    "A",
		Super:   "p/B",
		Fields: []Field{
			{Name: "x", Type: "I", Static: true, Final: true},
		},
	}

	out, err := EmitClass(c)
	require.NoError(t, err)
	require.Contains(t, out, "package p;")
	require.Contains(t, out, "class A extends p.B {")
	require.Contains(t, out, "static final int x;")
}

func TestEmitMethodStub(t *testing.T) {
	c := Class{
		Name: "a",
		Methods: []Method{
			{
				Name:     "broken",
				Return:   "V",
				Stub:     true,
				StubText: "const/4 v0, #int 0\nreturn-void\n",
			},
		},
	}

	out, err := EmitClass(c)
	require.NoError(t, err)
	require.Contains(t, out, "// const/4 v0, #int 0")
	require.Contains(t, out, "// return-void")
}

func TestEmitMethodNonEmptyBody(t *testing.T) {
	c := Class{
		Name: "a",
		Methods: []Method{
			{
				Name:   "add",
				Return: "I",
				Params: []Param{{Name: "x", Type: "I"}, {Name: "y", Type: "I"}},
				Body: []ir.Stmt{
					ir.Return{Value: ir.BinaryOp{
						Op:   "add-int",
						Left: ir.LocalRef{Name: "x"}, Right: ir.LocalRef{Name: "y"},
					}},
				},
			},
		},
	}

	out, err := EmitClass(c)
	require.NoError(t, err)
	require.Contains(t, out, "int add(int x, int y) {")
	require.Contains(t, out, "return (x + y);")
}

func TestEmitMethodIfGotoAndLabel(t *testing.T) {
	c := Class{
		Name: "a",
		Methods: []Method{
			{
				Name:   "m",
				Return: "V",
				Body: []ir.Stmt{
					ir.IfGoto{Op: "==", Left: ir.LocalRef{Name: "x"}, Right: ir.IntLiteral{Value: 0}, Target: 4},
					ir.Return{},
					ir.Label{Node: ir.Node{Offset: 4}},
					ir.Return{},
				},
			},
		},
	}

	out, err := EmitClass(c)
	require.NoError(t, err)
	require.Contains(t, out, "if (x == 0) goto label_0004;")
	require.Contains(t, out, "label_0004:")
}

func TestEmitMethodStructuredIfElse(t *testing.T) {
	c := Class{
		Name: "a",
		Methods: []Method{
			{
				Name:   "m",
				Return: "I",
				Body: []ir.Stmt{
					ir.IfElse{
						Cond: ir.LocalRef{Name: "x"},
						Then: []ir.Stmt{ir.Return{Value: ir.IntLiteral{Value: 1}}},
						Else: []ir.Stmt{ir.Return{Value: ir.IntLiteral{Value: 0}}},
					},
				},
			},
		},
	}

	out, err := EmitClass(c)
	require.NoError(t, err)
	require.Contains(t, out, "if (x) {")
	require.Contains(t, out, "} else {")
	require.Contains(t, out, "return 1;")
	require.Contains(t, out, "return 0;")
}

func TestEmitMethodAbstractHasNoBody(t *testing.T) {
	c := Class{
		Name: "a",
		Methods: []Method{
			{Name: "m", Return: "V"},
		},
	}

	out, err := EmitClass(c)
	require.NoError(t, err)
	require.Contains(t, out, "void m();")
}

func TestJavaTypeRewritesDescriptor(t *testing.T) {
	require.Equal(t, "p.A", javaType("p/A"))
	require.Equal(t, "p.A", javaType("Lp/A;"))
	require.Equal(t, "void", javaType(""))
}
