/*
 * garlic - a Java/Dalvik bytecode decompiler
 */

package dex

import (
	"regexp"
	"strings"

	"github.com/CrazyForks/garlic/internal/binio"
)

var anonymousTail = regexp.MustCompile(`^[0-9]+$`)

// SimpleName extracts the simple (unqualified) class name from a type
// descriptor like "La/b/Foo$1;", i.e. "Foo$1".
func SimpleName(descriptor string) string {
	d := strings.TrimSuffix(strings.TrimPrefix(descriptor, "L"), ";")
	if i := strings.LastIndexByte(d, '/'); i >= 0 {
		d = d[i+1:]
	}
	return d
}

// PackageName extracts the package portion ("a/b") of a type descriptor,
// or "" for the default package.
func PackageName(descriptor string) string {
	d := strings.TrimSuffix(strings.TrimPrefix(descriptor, "L"), ";")
	if i := strings.LastIndexByte(d, '/'); i >= 0 {
		return d[:i]
	}
	return ""
}

// innerClassAnnotation and enclosingClassAnnotation are the two dalvik
// annotation descriptors that mark a class as nested, per the ART/Dalvik
// annotation convention: a nested class carries one or both of these on
// itself.
const (
	innerClassAnnotation     = "Ldalvik/annotation/InnerClass;"
	enclosingClassAnnotation = "Ldalvik/annotation/EnclosingClass;"
)

// Classification is the result of applying spec.md §4.3's inner/anonymous
// rules to one ClassDef.
type Classification struct {
	Inner     bool
	Anonymous bool
}

// Classify applies spec.md §4.3: a class is inner if its source-file
// string differs from its own simple name, or its descriptor contains
// '$', or it carries a dalvik InnerClass/EnclosingClass annotation on
// itself (our reading of "appears in another class's InnerClass
// annotation" -- see DESIGN.md). A class is anonymous if the tail after
// its last '$' is all digits.
func (cd *ClassDef) Classify() (Classification, error) {
	descriptor, err := cd.TypeName()
	if err != nil {
		return Classification{}, err
	}
	simple := SimpleName(descriptor)

	var c Classification
	if strings.Contains(simple, "$") {
		c.Inner = true
		tail := simple[strings.LastIndexByte(simple, '$')+1:]
		c.Anonymous = anonymousTail.MatchString(tail)
	}

	if !c.Inner {
		srcFile, err := cd.SourceFileName()
		if err != nil {
			return Classification{}, err
		}
		if srcFile != "" {
			baseName := strings.TrimSuffix(srcFile, ".java")
			if baseName != simple {
				c.Inner = true
			}
		}
	}

	if !c.Inner {
		has, err := cd.hasAnyAnnotation(innerClassAnnotation, enclosingClassAnnotation)
		if err != nil {
			return Classification{}, err
		}
		c.Inner = has
	}

	return c, nil
}

// hasAnyAnnotation checks whether any of the wanted descriptors appears
// among this class's own (class-level) annotations.
func (cd *ClassDef) hasAnyAnnotation(wanted ...string) (bool, error) {
	if cd.AnnotationsOff == 0 {
		return false, nil
	}
	r := binio.New(cd.dex.raw)
	if err := r.Seek(int(cd.AnnotationsOff)); err != nil {
		return false, err
	}
	classAnnotationsOff, err := r.ReadU32LE()
	if err != nil {
		return false, err
	}
	if classAnnotationsOff == 0 {
		return false, nil
	}
	if err := r.Seek(int(classAnnotationsOff)); err != nil {
		return false, err
	}
	size, err := r.ReadU32LE()
	if err != nil {
		return false, err
	}
	offs := make([]uint32, size)
	for i := uint32(0); i < size; i++ {
		v, err := r.ReadU32LE()
		if err != nil {
			return false, err
		}
		offs[i] = v
	}

	for _, off := range offs {
		typeIdx, err := annotationTypeIdx(cd.dex.raw, off)
		if err != nil {
			continue // a malformed single annotation is not fatal to classification
		}
		descr, err := cd.dex.Types.Descriptor(typeIdx)
		if err != nil {
			continue
		}
		for _, w := range wanted {
			if descr == w {
				return true, nil
			}
		}
	}
	return false, nil
}

// annotationTypeIdx reads just enough of the annotation_item at off
// (visibility byte, then the encoded_annotation's leading type_idx
// ULEB128) to identify its type -- it never decodes the annotation's
// element list, since each annotation_off is accessed independently.
func annotationTypeIdx(raw []byte, off uint32) (uint32, error) {
	r := binio.New(raw)
	if err := r.Seek(int(off)); err != nil {
		return 0, err
	}
	if _, err := r.ReadU8(); err != nil { // visibility
		return 0, err
	}
	typeIdx, err := r.ReadULEB128()
	if err != nil {
		return 0, err
	}
	return uint32(typeIdx), nil
}
