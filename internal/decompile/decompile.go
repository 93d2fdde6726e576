/*
 * garlic - a Java/Dalvik bytecode decompiler
 */

// Package decompile ties the two lift pipelines to the two emitters,
// per spec.md §2's top-level control flow: "per-entry parse → per-class
// task enqueue → worker invokes lifter → emitter writes file." Callers
// (internal/archive for APK/JAR/bare-DEX fan-out, cmd/garlic for a bare
// .class file) hand this package one already-classified unit -- a
// dex.SourceFile or a classfile.ClassFile -- and get back either a
// javasrc.Class (decompile mode) or Smali text (Smali mode), plus the
// output path it belongs at.
//
// spec.md §4.5's lifter failure clause ("any unknown opcode, truncated
// payload, or CFG inconsistency produces a LiftError ... the affected
// method is emitted as a commented stub with the raw Smali for its
// body") is implemented here, not in the lifters themselves: this
// package is the one place that knows both "a method failed to lift"
// and "here is how to render its raw instructions instead."
package decompile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/CrazyForks/garlic/internal/arena"
	"github.com/CrazyForks/garlic/internal/dex"
	"github.com/CrazyForks/garlic/internal/errs"
	"github.com/CrazyForks/garlic/internal/javasrc"
	"github.com/CrazyForks/garlic/internal/lift"
	"github.com/CrazyForks/garlic/internal/smali"
)

// DexSourceFile builds the javasrc.Class for one dex.SourceFile,
// recursing into its Children so inner/anonymous classes render inline
// in the same file, per spec.md §4.3. a is the enclosing worker task's
// per-task arena, threaded down to every method's lifter.
func DexSourceFile(a *arena.Arena, img *dex.Image, sf *dex.SourceFile) (javasrc.Class, error) {
	descriptor, err := sf.Class.TypeName()
	if err != nil {
		return javasrc.Class{}, err
	}

	c := javasrc.Class{
		Package: dex.PackageName(descriptor),
		Name:    dex.SimpleName(descriptor),
	}

	if sf.Class.SuperclassIdx != dex.NoIndex {
		super, err := img.Types.Descriptor(sf.Class.SuperclassIdx)
		if err != nil {
			return javasrc.Class{}, err
		}
		c.Super = super
	}

	data, err := sf.Class.ClassData()
	if err != nil {
		return javasrc.Class{}, err
	}

	for _, f := range data.StaticFields {
		field, err := dexField(img, f, true)
		if err != nil {
			return javasrc.Class{}, err
		}
		c.Fields = append(c.Fields, field)
	}
	for _, f := range data.InstanceFields {
		field, err := dexField(img, f, false)
		if err != nil {
			return javasrc.Class{}, err
		}
		c.Fields = append(c.Fields, field)
	}

	for _, m := range data.DirectMethods {
		method, err := dexMethod(a, img, descriptor, m)
		if err != nil {
			return javasrc.Class{}, err
		}
		c.Methods = append(c.Methods, method)
	}
	for _, m := range data.VirtualMethods {
		method, err := dexMethod(a, img, descriptor, m)
		if err != nil {
			return javasrc.Class{}, err
		}
		c.Methods = append(c.Methods, method)
	}

	for _, child := range sf.Children {
		ic, err := DexSourceFile(a, img, child)
		if err != nil {
			return javasrc.Class{}, err
		}
		c.Inner = append(c.Inner, ic)
	}

	return c, nil
}

func dexField(img *dex.Image, f dex.EncodedField, static bool) (javasrc.Field, error) {
	fid, err := img.Fields.Get(f.FieldIdx)
	if err != nil {
		return javasrc.Field{}, err
	}
	name, err := img.Strings.Get(fid.NameIdx)
	if err != nil {
		return javasrc.Field{}, err
	}
	typ, err := img.Types.Descriptor(uint32(fid.TypeIdx))
	if err != nil {
		return javasrc.Field{}, err
	}
	return javasrc.Field{
		Name:   name,
		Type:   typ,
		Static: static,
		Final:  f.AccessFlags&dex.AccFinal != 0,
	}, nil
}

// dexMethod lifts one method and falls back to a commented raw-Smali
// stub on *errs.LiftError, per spec.md §4.5's failure clause. An
// abstract/native method (no code item) renders with a nil Body.
func dexMethod(a *arena.Arena, img *dex.Image, classDescriptor string, em dex.EncodedMethod) (javasrc.Method, error) {
	_, name, err := img.MethodName(em.MethodIdx)
	if err != nil {
		return javasrc.Method{}, err
	}
	mid, err := img.Methods.Get(em.MethodIdx)
	if err != nil {
		return javasrc.Method{}, err
	}
	params, err := img.Protos.Parameters(uint32(mid.ProtoIdx))
	if err != nil {
		return javasrc.Method{}, err
	}
	ret, err := img.Protos.ReturnType(uint32(mid.ProtoIdx))
	if err != nil {
		return javasrc.Method{}, err
	}

	method := javasrc.Method{
		Name:   name,
		Return: ret,
		Static: em.AccessFlags&dex.AccStatic != 0,
	}
	for i, p := range params {
		typ, err := img.Types.Descriptor(p)
		if err != nil {
			return javasrc.Method{}, err
		}
		method.Params = append(method.Params, javasrc.Param{Name: fmt.Sprintf("p%d", i), Type: typ})
	}

	if em.CodeOff == 0 {
		return method, nil
	}

	ci, err := img.CodeItem(em)
	if err != nil {
		return javasrc.Method{}, err
	}

	shorty, err := img.Protos.Shorty(uint32(mid.ProtoIdx))
	if err != nil {
		return javasrc.Method{}, err
	}
	lm := lift.Method{Class: classDescriptor, Name: name, Proto: shorty}
	stmts, liftErr := lift.New(img, lm, ci).Lift(a)
	if liftErr == nil {
		method.Body = stmts
		return method, nil
	}

	var le *errs.LiftError
	if !errors.As(liftErr, &le) {
		return javasrc.Method{}, liftErr
	}

	stub, err := smali.EmitMethod(a, img, ci)
	if err != nil {
		return javasrc.Method{}, err
	}
	method.Stub = true
	method.StubText = stub
	return method, nil
}

// WriteJavaSource writes c's rendered source to
// <outDir>/<pkg>/<Name>.java, per spec.md §6's output layout.
func WriteJavaSource(outDir string, c javasrc.Class) (string, error) {
	text, err := javasrc.EmitClass(c)
	if err != nil {
		return "", err
	}
	dir := filepath.Join(outDir, filepath.FromSlash(c.Package))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", &errs.IOError{Path: dir, Err: err}
	}
	path := filepath.Join(dir, c.Name+".java")
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return "", &errs.IOError{Path: path, Err: err}
	}
	return path, nil
}

// WriteSmaliSource writes pre-rendered Smali text to
// <outDir>/<pkg>/<Name>.smali, per spec.md §6: "Smali ... with inner
// classes in their own files."
func WriteSmaliSource(outDir, descriptor, text string) (string, error) {
	pkg := dex.PackageName(descriptor)
	name := dex.SimpleName(descriptor)
	dir := filepath.Join(outDir, filepath.FromSlash(pkg))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", &errs.IOError{Path: dir, Err: err}
	}
	path := filepath.Join(dir, name+".smali")
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return "", &errs.IOError{Path: path, Err: err}
	}
	return path, nil
}
