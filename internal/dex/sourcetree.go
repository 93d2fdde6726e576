/*
 * garlic - a Java/Dalvik bytecode decompiler
 */

package dex

import "strings"

// SourceFile is spec.md §3's logical output unit: a top-level class-def
// (or, for a nested SourceFile, its enclosing class) paired with the
// nested classes that will be emitted inline inside it. Per the design
// notes in spec.md §9, the parent link is a non-owning back-reference --
// ownership of every SourceFile runs one way, root to leaf, through
// Children; Parent exists only so a renderer can walk upward (e.g. to
// qualify a local class's name) without that walk implying ownership.
type SourceFile struct {
	Class    *ClassDef
	Parent   *SourceFile // non-owning; nil for a top-level SourceFile
	Children []*SourceFile

	Classification Classification
}

// SourceTree is the whole-.dex result of grouping ClassDefs into
// top-level SourceFiles with their nested classes attached as children,
// per spec.md §4.3: "inner and anonymous classes are not scheduled as
// top-level tasks; they are emitted inline as children of their
// declaring class's source file."
type SourceTree struct {
	// TopLevel holds one SourceFile per class-def that is NOT classified
	// inner/anonymous -- these are exactly the set that Decompile-mode
	// fan-out schedules as tasks (spec.md §4.3, §4.7).
	TopLevel []*SourceFile

	// All holds every class-def's SourceFile, top-level and nested alike
	// -- Smali mode schedules from this set instead, since "every
	// class-def is scheduled (no inner/anonymous suppression)."
	All []*SourceFile
}

// BuildSourceTree classifies every class-def in img and assembles the
// parent/child structure spec.md §4.3 describes. A nested class whose
// enclosing class cannot be found in this same Image (e.g. a partial
// or multi-dex split) is treated as its own top-level SourceFile rather
// than dropped -- the classifier's job is to suppress double-scheduling,
// not to discard classes the declaring-class lookup can't resolve.
func BuildSourceTree(img *Image) (*SourceTree, error) {
	byDescriptor := make(map[string]*ClassDef, len(img.ClassDefs))
	for _, cd := range img.ClassDefs {
		d, err := cd.TypeName()
		if err != nil {
			return nil, err
		}
		byDescriptor[d] = cd
	}

	nodes := make(map[string]*SourceFile, len(img.ClassDefs))
	tree := &SourceTree{}

	for _, cd := range img.ClassDefs {
		d, err := cd.TypeName()
		if err != nil {
			return nil, err
		}
		c, err := cd.Classify()
		if err != nil {
			return nil, err
		}
		sf := &SourceFile{Class: cd, Classification: c}
		nodes[d] = sf
		tree.All = append(tree.All, sf)
	}

	for _, cd := range img.ClassDefs {
		d, _ := cd.TypeName()
		sf := nodes[d]
		if !sf.Classification.Inner {
			tree.TopLevel = append(tree.TopLevel, sf)
			continue
		}
		parentDescriptor, ok := enclosingDescriptor(d)
		parent, found := nodes[parentDescriptor]
		if !ok || !found || parent == sf {
			// No resolvable enclosing class in this image: fall back to
			// scheduling it as its own top-level unit.
			tree.TopLevel = append(tree.TopLevel, sf)
			continue
		}
		sf.Parent = parent
		parent.Children = append(parent.Children, sf)
	}

	return tree, nil
}

// enclosingDescriptor derives "La/b/Foo;" from "La/b/Foo$Bar;" by
// trimming the last '$'-delimited segment. Returns ok == false for a
// descriptor with no '$' (nothing to trim).
func enclosingDescriptor(descriptor string) (string, bool) {
	inner := strings.TrimSuffix(strings.TrimPrefix(descriptor, "L"), ";")
	i := strings.LastIndexByte(inner, '$')
	if i < 0 {
		return "", false
	}
	return "L" + inner[:i] + ";", true
}
