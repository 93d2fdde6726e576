/*
 * garlic - a Java/Dalvik bytecode decompiler
 */

package dex

import (
	"github.com/CrazyForks/garlic/internal/binio"
	"github.com/CrazyForks/garlic/internal/errs"
)

// Image is the fully parsed DEX container: spec.md §3's "DexImage". It is
// immutable and read-only after Parse returns, so it can be shared by
// every task derived from the same .dex entry without synchronization
// (spec.md §5's "Ownership").
type Image struct {
	raw    []byte
	Header Header

	Strings *stringPool
	Types   *typePool
	Protos  *protoPool
	Fields  *fieldPool
	Methods *methodPool

	ClassDefs []*ClassDef
}

// Parse decodes a DEX container from buf, per spec.md §4.2: validates the
// header, builds the interned-pool index tables eagerly, and decodes the
// class-defs table (itself fixed-size; class-data stays lazy, see
// ClassDef.ClassData).
func Parse(buf []byte) (*Image, error) {
	r := binio.New(buf)
	h, err := parseHeader(r)
	if err != nil {
		return nil, err
	}

	img := &Image{raw: buf, Header: h}

	img.Strings, err = newStringPool(binio.New(buf), h.StringIDsOff, h.StringIDsSize)
	if err != nil {
		return nil, err
	}
	img.Types, err = newTypePool(binio.New(buf), h.TypeIDsOff, h.TypeIDsSize, img.Strings)
	if err != nil {
		return nil, err
	}
	img.Protos, err = newProtoPool(binio.New(buf), h.ProtoIDsOff, h.ProtoIDsSize, img.Types)
	if err != nil {
		return nil, err
	}
	img.Fields, err = newFieldPool(binio.New(buf), h.FieldIDsOff, h.FieldIDsSize)
	if err != nil {
		return nil, err
	}
	img.Methods, err = newMethodPool(binio.New(buf), h.MethodIDsOff, h.MethodIDsSize)
	if err != nil {
		return nil, err
	}

	img.ClassDefs, err = parseClassDefs(binio.New(buf), h.ClassDefsOff, h.ClassDefsSize, img)
	if err != nil {
		return nil, err
	}

	return img, nil
}

// CodeItem decodes (uncached -- code items are read once per task, not
// repeatedly) the CodeItem for an EncodedMethod whose CodeOff is nonzero.
func (img *Image) CodeItem(em EncodedMethod) (*CodeItem, error) {
	if em.CodeOff == 0 {
		return nil, errNoCode
	}
	return parseCodeItem(img.raw, em.CodeOff)
}

// MethodName resolves a method id to its declaring class descriptor and
// name -- used by the Smali emitter (invoke-* operand rendering), the
// decompiler, and the dump printer. The proto is resolved separately,
// through Protos.
func (img *Image) MethodName(methodIdx uint32) (class, name string, err error) {
	m, err := img.Methods.Get(methodIdx)
	if err != nil {
		return "", "", err
	}
	class, err = img.Types.Descriptor(uint32(m.ClassIdx))
	if err != nil {
		return "", "", err
	}
	name, err = img.Strings.Get(m.NameIdx)
	if err != nil {
		return "", "", err
	}
	return class, name, nil
}

// FieldName resolves a field id to its declaring class descriptor, type
// descriptor, and name.
func (img *Image) FieldName(fieldIdx uint32) (class, typ, name string, err error) {
	f, err := img.Fields.Get(fieldIdx)
	if err != nil {
		return "", "", "", err
	}
	class, err = img.Types.Descriptor(uint32(f.ClassIdx))
	if err != nil {
		return "", "", "", err
	}
	typ, err = img.Types.Descriptor(uint32(f.TypeIdx))
	if err != nil {
		return "", "", "", err
	}
	name, err = img.Strings.Get(f.NameIdx)
	if err != nil {
		return "", "", "", err
	}
	return class, typ, name, nil
}

// Verify checks that the buffer still holds the header's file_size
// bytes. The per-section bounds checks (every section lies entirely
// within the file) run in parseHeader during Parse, so an Image that
// exists has already passed them; Verify does not repeat them. It does
// not perform Dalvik-verifier-level semantic checks (an explicit
// Non-goal).
func (img *Image) Verify() error {
	if len(img.raw) < int(img.Header.FileSize) {
		return &errs.FormatError{Section: "header", Msg: "truncated file"}
	}
	return nil
}
