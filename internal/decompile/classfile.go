/*
 * garlic - a Java/Dalvik bytecode decompiler
 */

package decompile

import (
	"errors"
	"fmt"
	"strings"

	"github.com/CrazyForks/garlic/internal/arena"
	"github.com/CrazyForks/garlic/internal/classfile"
	"github.com/CrazyForks/garlic/internal/errs"
	"github.com/CrazyForks/garlic/internal/javasrc"
	"github.com/CrazyForks/garlic/internal/jvminstr"
	"github.com/CrazyForks/garlic/internal/jvmlift"
)

// ClassFile builds the javasrc.Class for one parsed .class file: the
// JVM-pipeline counterpart to DexSourceFile. A .class file is always one
// class with no inlined children -- the JVM constant pool has no notion
// of a parent/child SourceFile grouping the way spec.md §3's DexImage
// does, so c.Inner is always empty here.
func ClassFile(a *arena.Arena, cf *classfile.ClassFile) (javasrc.Class, error) {
	thisClass, err := cf.ThisClassName()
	if err != nil {
		return javasrc.Class{}, err
	}

	c := javasrc.Class{
		Package: packageOf(thisClass),
		Name:    simpleOf(thisClass),
	}

	super, err := cf.SuperClassName()
	if err != nil {
		return javasrc.Class{}, err
	}
	c.Super = super

	for _, f := range cf.Fields {
		name, err := cf.FieldName(f)
		if err != nil {
			return javasrc.Class{}, err
		}
		desc, err := cf.FieldDesc(f)
		if err != nil {
			return javasrc.Class{}, err
		}
		c.Fields = append(c.Fields, javasrc.Field{
			Name:   name,
			Type:   desc,
			Static: f.Flags().IsStatic(),
		})
	}

	for _, m := range cf.Methods {
		method, err := classFileMethod(a, cf, thisClass, m)
		if err != nil {
			return javasrc.Class{}, err
		}
		c.Methods = append(c.Methods, method)
	}

	return c, nil
}

func classFileMethod(a *arena.Arena, cf *classfile.ClassFile, thisClass string, m classfile.MethodInfo) (javasrc.Method, error) {
	name, err := cf.MethodName(m)
	if err != nil {
		return javasrc.Method{}, err
	}
	desc, err := cf.MethodDesc(m)
	if err != nil {
		return javasrc.Method{}, err
	}
	// jvmlift.parseMethodDescriptor is unexported (package-internal to
	// the lifter); this package only needs the parameter and return types
	// for the declaration line, which javaType renders from the raw
	// descriptor pieces the same way the lifter's own descriptor parser
	// would.
	params, ret := splitDescriptor(desc)

	method := javasrc.Method{
		Name:   name,
		Return: ret,
		Static: m.Flags().IsStatic(),
	}
	for i, p := range params {
		method.Params = append(method.Params, javasrc.Param{Name: fmt.Sprintf("p%d", i), Type: p})
	}

	ca, ok, err := cf.Code(m)
	if err != nil {
		return javasrc.Method{}, err
	}
	if !ok {
		return method, nil
	}

	jm := jvmlift.Method{Class: thisClass, Name: name, Desc: desc}
	stmts, liftErr := jvmlift.New(cf, jm, &ca, m.Flags().IsStatic()).Lift(a)
	if liftErr == nil {
		method.Body = stmts
		return method, nil
	}

	var le *errs.LiftError
	if !errors.As(liftErr, &le) {
		return javasrc.Method{}, liftErr
	}

	method.Stub = true
	method.StubText = rawInstructionText(a, ca.Code)
	return method, nil
}

// rawInstructionText is the JVM pipeline's counterpart to
// internal/smali.EmitMethod's fallback role: internal/smali walks
// internal/dexinstr instructions and is DEX-specific (it resolves
// operands through a *dex.Image), so it cannot render a .class method's
// bytecode. This renders the bare mnemonic stream instead -- offset and
// opcode name only, no operand resolution -- since a method that failed
// to lift is, by definition, one internal/jvmlift already found it could
// not safely interpret; printing unresolved operand indices alongside a
// broken lift would suggest a confidence this renderer doesn't have.
func rawInstructionText(a *arena.Arena, code []byte) string {
	insts, err := jvminstr.DecodeAll(a, code)
	if err != nil {
		return fmt.Sprintf("<undecodable bytecode: %v>", err)
	}
	var b strings.Builder
	for _, inst := range insts {
		fmt.Fprintf(&b, "%04x: %s\n", inst.Offset, jvminstr.Name(inst.Opcode))
	}
	return b.String()
}

// splitDescriptor parses a JVM method descriptor into Java-ish parameter
// type names and a return type name, without pulling in
// internal/jvmlift's unexported descriptor parser -- grounded on the
// same JVM spec §4.3.3 grammar, kept duplicated rather than exported
// solely for this caller (the parser is lift-internal state, this is a
// display-only derivation).
func splitDescriptor(desc string) (params []string, ret string) {
	if len(desc) == 0 || desc[0] != '(' {
		return nil, "void"
	}
	i := 1
	for i < len(desc) && desc[i] != ')' {
		field, next := splitOneType(desc, i)
		params = append(params, field)
		i = next
	}
	if i+1 >= len(desc) {
		return params, "void"
	}
	ret, _ = splitOneType(desc, i+1)
	return params, ret
}

func splitOneType(desc string, pos int) (string, int) {
	start := pos
	for pos < len(desc) && desc[pos] == '[' {
		pos++
	}
	if pos >= len(desc) {
		return desc[start:], len(desc)
	}
	switch desc[pos] {
	case 'L':
		end := pos
		for end < len(desc) && desc[end] != ';' {
			end++
		}
		if end >= len(desc) {
			return desc[start:], len(desc)
		}
		return desc[start : end+1], end + 1
	default:
		return desc[start : pos+1], pos + 1
	}
}

func packageOf(descriptor string) string {
	if i := strings.LastIndexByte(descriptor, '/'); i >= 0 {
		return descriptor[:i]
	}
	return ""
}

func simpleOf(descriptor string) string {
	if i := strings.LastIndexByte(descriptor, '/'); i >= 0 {
		return descriptor[i+1:]
	}
	return descriptor
}
