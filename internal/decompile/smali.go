/*
 * garlic - a Java/Dalvik bytecode decompiler
 */

package decompile

import (
	"fmt"
	"strings"

	"github.com/CrazyForks/garlic/internal/arena"
	"github.com/CrazyForks/garlic/internal/dex"
	"github.com/CrazyForks/garlic/internal/smali"
)

// DexClassSmali renders one class-def's full Smali file: the
// `.class`/`.super`/`.field`/`.method` wrapper around
// internal/smali.EmitMethod's per-method body text. Per spec.md §4.7/§6,
// Smali mode schedules every class-def with no inner-class suppression
// (dex.SourceTree.All, not .TopLevel) and never inlines nested classes
// -- each gets its own file -- so unlike DexSourceFile this takes a bare
// *dex.ClassDef, not a *dex.SourceFile.
func DexClassSmali(a *arena.Arena, img *dex.Image, cd *dex.ClassDef) (string, error) {
	descriptor, err := cd.TypeName()
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, ".class %s\n", descriptor)
	if cd.SuperclassIdx != dex.NoIndex {
		super, err := img.Types.Descriptor(cd.SuperclassIdx)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, ".super %s\n", super)
	}
	if src, err := cd.SourceFileName(); err == nil && src != "" {
		fmt.Fprintf(&b, ".source \"%s\"\n", src)
	}

	data, err := cd.ClassData()
	if err != nil {
		return "", err
	}

	for _, f := range append(append([]dex.EncodedField{}, data.StaticFields...), data.InstanceFields...) {
		line, err := smaliFieldDecl(img, f)
		if err != nil {
			return "", err
		}
		b.WriteString("\n" + line)
	}

	for _, m := range append(append([]dex.EncodedMethod{}, data.DirectMethods...), data.VirtualMethods...) {
		text, err := smaliMethodDecl(a, img, m)
		if err != nil {
			return "", err
		}
		b.WriteString("\n" + text)
	}

	return b.String(), nil
}

func smaliFieldDecl(img *dex.Image, f dex.EncodedField) (string, error) {
	fid, err := img.Fields.Get(f.FieldIdx)
	if err != nil {
		return "", err
	}
	name, err := img.Strings.Get(fid.NameIdx)
	if err != nil {
		return "", err
	}
	typ, err := img.Types.Descriptor(uint32(fid.TypeIdx))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(".field %s:%s\n", name, typ), nil
}

func smaliMethodDecl(a *arena.Arena, img *dex.Image, em dex.EncodedMethod) (string, error) {
	_, name, err := img.MethodName(em.MethodIdx)
	if err != nil {
		return "", err
	}
	mid, err := img.Methods.Get(em.MethodIdx)
	if err != nil {
		return "", err
	}
	proto, err := protoDescriptorFor(img, uint32(mid.ProtoIdx))
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, ".method %s%s\n", name, proto)

	if em.CodeOff != 0 {
		ci, err := img.CodeItem(em)
		if err != nil {
			return "", err
		}
		body, err := smali.EmitMethod(a, img, ci)
		if err != nil {
			return "", err
		}
		b.WriteString(body)
	}

	b.WriteString(".end method\n")
	return b.String(), nil
}

func protoDescriptorFor(img *dex.Image, protoIdx uint32) (string, error) {
	params, err := img.Protos.Parameters(protoIdx)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteByte('(')
	for _, p := range params {
		d, err := img.Types.Descriptor(p)
		if err != nil {
			return "", err
		}
		b.WriteString(d)
	}
	b.WriteByte(')')
	ret, err := img.Protos.ReturnType(protoIdx)
	if err != nil {
		return "", err
	}
	b.WriteString(ret)
	return b.String(), nil
}
