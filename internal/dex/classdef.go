/*
 * garlic - a Java/Dalvik bytecode decompiler
 */

package dex

import (
	"sync"

	"github.com/CrazyForks/garlic/internal/binio"
	"github.com/CrazyForks/garlic/internal/errs"
)

// AccessFlags is the raw access_flags bitmask shared by classes, fields,
// and methods.
type AccessFlags uint32

const (
	AccPublic       AccessFlags = 0x1
	AccPrivate      AccessFlags = 0x2
	AccProtected    AccessFlags = 0x4
	AccStatic       AccessFlags = 0x8
	AccFinal        AccessFlags = 0x10
	AccSynchronized AccessFlags = 0x20
	AccBridge       AccessFlags = 0x40
	AccVarargs      AccessFlags = 0x80
	AccNative       AccessFlags = 0x100
	AccInterface    AccessFlags = 0x200
	AccAbstract     AccessFlags = 0x400
	AccStrict       AccessFlags = 0x800
	AccSynthetic    AccessFlags = 0x1000
	AccAnnotation   AccessFlags = 0x2000
	AccEnum         AccessFlags = 0x4000
	AccConstructor  AccessFlags = 0x10000
)

// ClassDef mirrors spec.md §3's ClassDef record: the fixed-size portion
// decoded eagerly at parse time, plus the class_data_item fields decoded
// lazily on first access (they are ULEB128-delta-encoded lists, not
// fixed-size, so eager decoding would mean decoding every class's method
// table up front even for classes a caller never visits).
type ClassDef struct {
	dex *Image

	ClassIdx           uint32
	AccessFlags        AccessFlags
	SuperclassIdx      uint32 // NO_INDEX (0xffffffff) if none
	InterfacesOff      uint32
	SourceFileIdx      uint32 // NO_INDEX if none
	AnnotationsOff     uint32
	ClassDataOff       uint32
	StaticValuesOff    uint32

	classDataOnce sync.Once
	classData     *ClassData
	classDataErr  error
}

// NoIndex is the DEX sentinel for "no value" in an index field.
const NoIndex = 0xffffffff

// EncodedField is one entry of a class's static or instance field list.
type EncodedField struct {
	FieldIdx    uint32 // resolved (after accumulating the delta)
	AccessFlags AccessFlags
}

// EncodedMethod mirrors spec.md §3's EncodedMethod: a resolved method id,
// its access flags, and -- if CodeOff is nonzero -- the offset of its
// CodeItem.
type EncodedMethod struct {
	MethodIdx   uint32
	AccessFlags AccessFlags
	CodeOff     uint32
}

// ClassData is the decoded class_data_item: the four field/method lists,
// derived per spec.md §3.
type ClassData struct {
	StaticFields   []EncodedField
	InstanceFields []EncodedField
	DirectMethods  []EncodedMethod
	VirtualMethods []EncodedMethod
}

func parseClassDefs(r *binio.Reader, off, size uint32, img *Image) ([]*ClassDef, error) {
	defs := make([]*ClassDef, size)
	for i := uint32(0); i < size; i++ {
		base := int(off + i*32)
		if err := r.Seek(base); err != nil {
			return nil, err
		}
		cd := &ClassDef{dex: img}
		var accessFlags uint32
		fields := []*uint32{
			&cd.ClassIdx, &accessFlags, &cd.SuperclassIdx,
			&cd.InterfacesOff, &cd.SourceFileIdx, &cd.AnnotationsOff,
			&cd.ClassDataOff, &cd.StaticValuesOff,
		}
		for _, f := range fields {
			v, err := r.ReadU32LE()
			if err != nil {
				return nil, err
			}
			*f = v
		}
		cd.AccessFlags = AccessFlags(accessFlags)
		defs[i] = cd
	}
	return defs, nil
}

// TypeName returns the class's own descriptor (e.g. "La/b/C;").
func (cd *ClassDef) TypeName() (string, error) {
	return cd.dex.Types.Descriptor(cd.ClassIdx)
}

// SourceFileName returns the source_file_idx string, or "" if none was
// recorded (SourceFileIdx == NoIndex).
func (cd *ClassDef) SourceFileName() (string, error) {
	if cd.SourceFileIdx == NoIndex {
		return "", nil
	}
	return cd.dex.Strings.Get(cd.SourceFileIdx)
}

// Interfaces resolves the class's implemented-interface type ids from
// the type_list at InterfacesOff.
func (cd *ClassDef) Interfaces() ([]uint32, error) {
	if cd.InterfacesOff == 0 {
		return nil, nil
	}
	r := binio.New(cd.dex.raw)
	if err := r.Seek(int(cd.InterfacesOff)); err != nil {
		return nil, err
	}
	size, err := r.ReadU32LE()
	if err != nil {
		return nil, err
	}
	out := make([]uint32, size)
	for i := uint32(0); i < size; i++ {
		v, err := r.ReadU16LE()
		if err != nil {
			return nil, err
		}
		out[i] = uint32(v)
	}
	return out, nil
}

// ClassData decodes (on first call) and returns the class's field/method
// lists, per spec.md §4.2's "class-data ... decoded on first access per
// class-def."
func (cd *ClassDef) ClassData() (*ClassData, error) {
	cd.classDataOnce.Do(func() {
		cd.classData, cd.classDataErr = cd.decodeClassData()
	})
	return cd.classData, cd.classDataErr
}

func (cd *ClassDef) decodeClassData() (*ClassData, error) {
	if cd.ClassDataOff == 0 {
		return &ClassData{}, nil
	}
	r := binio.New(cd.dex.raw)
	if err := r.Seek(int(cd.ClassDataOff)); err != nil {
		return nil, err
	}

	staticCount, err := r.ReadULEB128()
	if err != nil {
		return nil, err
	}
	instanceCount, err := r.ReadULEB128()
	if err != nil {
		return nil, err
	}
	directCount, err := r.ReadULEB128()
	if err != nil {
		return nil, err
	}
	virtualCount, err := r.ReadULEB128()
	if err != nil {
		return nil, err
	}

	out := &ClassData{}
	out.StaticFields, err = readEncodedFields(r, staticCount)
	if err != nil {
		return nil, err
	}
	out.InstanceFields, err = readEncodedFields(r, instanceCount)
	if err != nil {
		return nil, err
	}
	out.DirectMethods, err = readEncodedMethods(r, directCount)
	if err != nil {
		return nil, err
	}
	out.VirtualMethods, err = readEncodedMethods(r, virtualCount)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// readEncodedFields decodes `count` encoded_field entries, accumulating
// field_idx from successive deltas per spec.md §4.2 and testable
// property 5.
func readEncodedFields(r *binio.Reader, count uint64) ([]EncodedField, error) {
	out := make([]EncodedField, count)
	idx := uint64(0)
	for i := uint64(0); i < count; i++ {
		delta, err := r.ReadULEB128()
		if err != nil {
			return nil, err
		}
		idx += delta
		flags, err := r.ReadULEB128()
		if err != nil {
			return nil, err
		}
		out[i] = EncodedField{FieldIdx: uint32(idx), AccessFlags: AccessFlags(flags)}
	}
	return out, nil
}

// readEncodedMethods decodes `count` encoded_method entries, accumulating
// method_idx from successive deltas.
func readEncodedMethods(r *binio.Reader, count uint64) ([]EncodedMethod, error) {
	out := make([]EncodedMethod, count)
	idx := uint64(0)
	for i := uint64(0); i < count; i++ {
		delta, err := r.ReadULEB128()
		if err != nil {
			return nil, err
		}
		idx += delta
		flags, err := r.ReadULEB128()
		if err != nil {
			return nil, err
		}
		codeOff, err := r.ReadULEB128()
		if err != nil {
			return nil, err
		}
		out[i] = EncodedMethod{MethodIdx: uint32(idx), AccessFlags: AccessFlags(flags), CodeOff: uint32(codeOff)}
	}
	return out, nil
}

// errNoCode is returned by CodeItem() for an EncodedMethod whose
// CodeOff is zero (abstract or native methods carry no code_item).
var errNoCode = &errs.FormatError{Msg: "method has no code_item (abstract or native)"}
