/*
 * garlic - a Java/Dalvik bytecode decompiler
 */

// Package javasrc renders a lifted method body (internal/ir's statement
// tree, as produced by either internal/lift or internal/jvmlift) as
// Java-like source text. spec.md §1 calls the source-code pretty-printer
// an external collaborator, out of scope; SPEC_FULL.md §1 narrows that to
// "the source pretty-printer" itself -- arbitrary expression formatting,
// operator precedence, line wrapping. What spec.md §8 still requires of
// this package is the line emitter that satisfies its testable
// properties (S2: an elided empty return renders as `{ }`), the same
// carve-out SPEC_FULL.md draws for internal/smali's "formatting engine"
// vs. its faithful line emitter. This package is that minimal emitter,
// not a general pretty-printer: one statement per line, no reindentation
// pass, no operator-precedence-aware parenthesization.
package javasrc

import (
	"fmt"
	"strings"

	"github.com/CrazyForks/garlic/internal/ir"
)

// Param is one method parameter.
type Param struct {
	Name string
	Type string // type descriptor or Java-ish type name, e.g. "I", "Ljava/lang/String;", "int"
}

// Method is one method's declaration plus its lifted body. Body is nil
// for abstract/native methods. Stub is set when internal/decompile
// recovered a *errs.LiftError by falling back to a raw-bytecode stub
// (spec.md §4.5's failure clause); StubText then holds that fallback
// text and Body is ignored.
type Method struct {
	Name      string
	Params    []Param
	Return    string // "V" (or "void") for no return value
	Static    bool
	Body      []ir.Stmt
	Stub      bool
	StubText  string
}

// Field is one field declaration.
type Field struct {
	Name   string
	Type   string
	Static bool
	Final  bool
}

// Class is one source file's top-level class plus its inlined inner
// classes (spec.md §4.3's inner-class suppression: inner/anonymous
// classes are never scheduled as their own task, they render as
// children of the declaring class's Class value here).
type Class struct {
	Package string
	Name    string // simple name
	Super   string // "" to omit an extends clause
	Fields  []Field
	Methods []Method
	Inner   []Class
}

// EmitClass renders one class (and its inlined inner classes) as Java
// source text, the file internal/decompile writes to
// <out>/<pkg>/<Name>.java per spec.md §6.
func EmitClass(c Class) (string, error) {
	var b strings.Builder
	if c.Package != "" {
		fmt.Fprintf(&b, "package %s;\n\n", strings.ReplaceAll(c.Package, "/", "."))
	}
	if err := emitClassBody(&b, c, 0); err != nil {
		return "", err
	}
	return b.String(), nil
}

func emitClassBody(b *strings.Builder, c Class, depth int) error {
	indent := strings.Repeat("    ", depth)
	fmt.Fprintf(b, "%sclass %s", indent, c.Name)
	if c.Super != "" && c.Super != "java/lang/Object" {
		fmt.Fprintf(b, " extends %s", javaType(c.Super))
	}
	b.WriteString(" {\n")

	inner := indent + "    "
	for _, f := range c.Fields {
		fmt.Fprintf(b, "%s%s;\n", inner, fieldDecl(f))
	}

	for i, m := range c.Methods {
		if i > 0 || len(c.Fields) > 0 {
			b.WriteString("\n")
		}
		if err := emitMethod(b, m, depth+1); err != nil {
			return fmt.Errorf("method %s: %w", m.Name, err)
		}
	}

	for _, ic := range c.Inner {
		b.WriteString("\n")
		if err := emitClassBody(b, ic, depth+1); err != nil {
			return err
		}
	}

	fmt.Fprintf(b, "%s}\n", indent)
	return nil
}

func fieldDecl(f Field) string {
	mods := modifiers(f.Static, f.Final)
	if mods != "" {
		return fmt.Sprintf("%s%s %s", mods, javaType(f.Type), f.Name)
	}
	return fmt.Sprintf("%s %s", javaType(f.Type), f.Name)
}

func modifiers(static, final bool) string {
	var parts []string
	if static {
		parts = append(parts, "static")
	}
	if final {
		parts = append(parts, "final")
	}
	if len(parts) == 0 {
		return ""
	}
	return strings.Join(parts, " ") + " "
}

// emitMethod renders a method declaration and its body. A nil Body
// (abstract/native) renders as a semicolon-terminated declaration; a
// Stub renders StubText as a commented block, per spec.md §4.5's lifter
// failure clause.
func emitMethod(b *strings.Builder, m Method, depth int) error {
	indent := strings.Repeat("    ", depth)
	fmt.Fprintf(b, "%s%s%s %s(%s)", indent, modifiers(m.Static, false), javaType(m.Return), m.Name, paramList(m.Params))

	if m.Stub {
		b.WriteString(" {\n")
		for _, line := range strings.Split(strings.TrimRight(m.StubText, "\n"), "\n") {
			fmt.Fprintf(b, "%s    // %s\n", indent, line)
		}
		fmt.Fprintf(b, "%s}\n", indent)
		return nil
	}

	if m.Body == nil {
		b.WriteString(";\n")
		return nil
	}

	body := elideTrailingVoidReturn(m.Body)
	if len(body) == 0 {
		b.WriteString(" { }\n")
		return nil
	}

	b.WriteString(" {\n")
	e := &emitter{b: b}
	if err := e.stmts(body, depth+1); err != nil {
		return err
	}
	fmt.Fprintf(b, "%s}\n", indent)
	return nil
}

// elideTrailingVoidReturn drops a lone trailing `return;` (Return with a
// nil Value), per spec.md §8 S2: "void m() { return; }" decompiles to a
// body of "{ }". A void return anywhere else (mid-body, as an early
// exit) is not elided -- only the final statement, where it is always
// redundant with Java's implicit fall-off-the-end return.
func elideTrailingVoidReturn(stmts []ir.Stmt) []ir.Stmt {
	if len(stmts) == 0 {
		return stmts
	}
	last := stmts[len(stmts)-1]
	if ret, ok := last.(ir.Return); ok && ret.Value == nil {
		return stmts[:len(stmts)-1]
	}
	return stmts
}

func paramList(params []Param) string {
	parts := make([]string, len(params))
	for i, p := range params {
		parts[i] = fmt.Sprintf("%s %s", javaType(p.Type), p.Name)
	}
	return strings.Join(parts, ", ")
}

// javaType rewrites a binary/descriptor-ish class name ("p/A",
// "Lp/A;") into its Java source form ("p.A"), and a one-letter primitive
// descriptor ("I", "V", ...) into its Java keyword ("int", "void", ...);
// Java primitive names and already-dotted names pass through unchanged.
// Array descriptors ("[I") are not rewritten.
func javaType(t string) string {
	if t == "" {
		return "void"
	}
	if len(t) == 1 {
		if i := strings.IndexByte("VZBCSIJFD", t[0]); i >= 0 {
			return [...]string{"void", "boolean", "byte", "char", "short", "int", "long", "float", "double"}[i]
		}
	}
	t = strings.TrimSuffix(strings.TrimPrefix(t, "L"), ";")
	return strings.ReplaceAll(t, "/", ".")
}
