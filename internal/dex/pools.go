/*
 * garlic - a Java/Dalvik bytecode decompiler
 */

package dex

import (
	"sync"

	"github.com/CrazyForks/garlic/internal/binio"
	"github.com/CrazyForks/garlic/internal/errs"
)

// stringPool resolves string_ids lazily: the id table (an array of
// offsets into string_data) is built eagerly at parse time, but the
// MUTF-8 bytes at each offset are only decoded the first time that id is
// looked up, matching spec.md §3's "Interned pool" data model. Resolved
// strings are cached so repeated lookups (a type referenced by many
// methods) don't re-decode.
type stringPool struct {
	r       *binio.Reader
	offsets []uint32 // string_id_item: offset into string_data_item

	mu      sync.Mutex
	resolved []string
	ok       []bool
}

func newStringPool(r *binio.Reader, off, size uint32) (*stringPool, error) {
	sp := &stringPool{r: r, offsets: make([]uint32, size)}
	for i := uint32(0); i < size; i++ {
		if err := r.Seek(int(off + i*4)); err != nil {
			return nil, err
		}
		v, err := r.ReadU32LE()
		if err != nil {
			return nil, err
		}
		sp.offsets[i] = v
	}
	sp.resolved = make([]string, size)
	sp.ok = make([]bool, size)
	return sp, nil
}

func (sp *stringPool) Len() int { return len(sp.offsets) }

// Get resolves string id i, decoding it from string_data_item on first
// access.
func (sp *stringPool) Get(i uint32) (string, error) {
	if int(i) >= len(sp.offsets) {
		return "", &errs.FormatError{Section: "string_ids", Offset: int(i), Msg: "string id out of range"}
	}
	sp.mu.Lock()
	defer sp.mu.Unlock()
	if sp.ok[i] {
		return sp.resolved[i], nil
	}
	off := int(sp.offsets[i])
	if err := sp.r.Seek(off); err != nil {
		return "", err
	}
	units, err := sp.r.ReadULEB128()
	if err != nil {
		return "", err
	}
	rest := sp.r.Bytes()[sp.r.Pos():]
	s, _, err := binio.DecodeMUTF8(rest, int(units))
	if err != nil {
		return "", err
	}
	sp.resolved[i] = s
	sp.ok[i] = true
	return s, nil
}

// typePool resolves type_ids: each entry is a descriptor_idx into the
// string pool.
type typePool struct {
	strs        *stringPool
	descriptorIdx []uint32
}

func newTypePool(r *binio.Reader, off, size uint32, strs *stringPool) (*typePool, error) {
	tp := &typePool{strs: strs, descriptorIdx: make([]uint32, size)}
	for i := uint32(0); i < size; i++ {
		if err := r.Seek(int(off + i*4)); err != nil {
			return nil, err
		}
		v, err := r.ReadU32LE()
		if err != nil {
			return nil, err
		}
		tp.descriptorIdx[i] = v
	}
	return tp, nil
}

func (tp *typePool) Len() int { return len(tp.descriptorIdx) }

// Descriptor returns the raw type descriptor string for type id i (e.g.
// "Ljava/lang/String;", "I", "[B").
func (tp *typePool) Descriptor(i uint32) (string, error) {
	if int(i) >= len(tp.descriptorIdx) {
		return "", &errs.FormatError{Section: "type_ids", Offset: int(i), Msg: "type id out of range"}
	}
	return tp.strs.Get(tp.descriptorIdx[i])
}

// ProtoID is a resolved method prototype: shorty form, return type, and
// parameter type list.
type ProtoID struct {
	ShortyIdx      uint32
	ReturnTypeIdx  uint32
	ParametersOff  uint32
}

type protoPool struct {
	r     *binio.Reader
	types *typePool
	items []ProtoID

	mu     sync.Mutex
	params [][]uint32 // lazily resolved parameter type-id lists
	ok     []bool
}

func newProtoPool(r *binio.Reader, off, size uint32, types *typePool) (*protoPool, error) {
	pp := &protoPool{r: r, types: types, items: make([]ProtoID, size)}
	pp.params = make([][]uint32, size)
	pp.ok = make([]bool, size)
	for i := uint32(0); i < size; i++ {
		base := int(off + i*12)
		if err := r.Seek(base); err != nil {
			return nil, err
		}
		shorty, err := r.ReadU32LE()
		if err != nil {
			return nil, err
		}
		ret, err := r.ReadU32LE()
		if err != nil {
			return nil, err
		}
		params, err := r.ReadU32LE()
		if err != nil {
			return nil, err
		}
		pp.items[i] = ProtoID{ShortyIdx: shorty, ReturnTypeIdx: ret, ParametersOff: params}
	}
	return pp, nil
}

func (pp *protoPool) Len() int { return len(pp.items) }

// Parameters resolves the parameter type-id list for proto i, decoding
// the type_list at ParametersOff on first access. A proto with no
// parameters (ParametersOff == 0) resolves to an empty slice.
func (pp *protoPool) Parameters(i uint32) ([]uint32, error) {
	if int(i) >= len(pp.items) {
		return nil, &errs.FormatError{Section: "proto_ids", Offset: int(i), Msg: "proto id out of range"}
	}
	pp.mu.Lock()
	defer pp.mu.Unlock()
	if pp.ok[i] {
		return pp.params[i], nil
	}
	off := pp.items[i].ParametersOff
	if off == 0 {
		pp.params[i] = nil
		pp.ok[i] = true
		return nil, nil
	}
	if err := pp.r.Seek(int(off)); err != nil {
		return nil, err
	}
	size, err := pp.r.ReadU32LE()
	if err != nil {
		return nil, err
	}
	out := make([]uint32, size)
	for j := uint32(0); j < size; j++ {
		v, err := pp.r.ReadU16LE()
		if err != nil {
			return nil, err
		}
		out[j] = uint32(v)
	}
	pp.params[i] = out
	pp.ok[i] = true
	return out, nil
}

// Shorty returns the proto's shorty-form descriptor string.
func (pp *protoPool) Shorty(i uint32) (string, error) {
	if int(i) >= len(pp.items) {
		return "", &errs.FormatError{Section: "proto_ids", Offset: int(i), Msg: "proto id out of range"}
	}
	return pp.types.strs.Get(pp.items[i].ShortyIdx)
}

// ReturnType resolves the proto's return-type descriptor, for emitters
// (internal/smali, internal/javasrc) building a full method signature
// rather than the abbreviated shorty form.
func (pp *protoPool) ReturnType(i uint32) (string, error) {
	if int(i) >= len(pp.items) {
		return "", &errs.FormatError{Section: "proto_ids", Offset: int(i), Msg: "proto id out of range"}
	}
	return pp.types.Descriptor(pp.items[i].ReturnTypeIdx)
}

// FieldID is a resolved field_id_item.
type FieldID struct {
	ClassIdx uint16
	TypeIdx  uint16
	NameIdx  uint32
}

type fieldPool struct {
	items []FieldID
}

func newFieldPool(r *binio.Reader, off, size uint32) (*fieldPool, error) {
	fp := &fieldPool{items: make([]FieldID, size)}
	for i := uint32(0); i < size; i++ {
		base := int(off + i*8)
		if err := r.Seek(base); err != nil {
			return nil, err
		}
		cls, err := r.ReadU16LE()
		if err != nil {
			return nil, err
		}
		typ, err := r.ReadU16LE()
		if err != nil {
			return nil, err
		}
		name, err := r.ReadU32LE()
		if err != nil {
			return nil, err
		}
		fp.items[i] = FieldID{ClassIdx: cls, TypeIdx: typ, NameIdx: name}
	}
	return fp, nil
}

func (fp *fieldPool) Len() int                 { return len(fp.items) }
func (fp *fieldPool) Get(i uint32) (FieldID, error) {
	if int(i) >= len(fp.items) {
		return FieldID{}, &errs.FormatError{Section: "field_ids", Offset: int(i), Msg: "field id out of range"}
	}
	return fp.items[i], nil
}

// MethodID is a resolved method_id_item.
type MethodID struct {
	ClassIdx uint16
	ProtoIdx uint16
	NameIdx  uint32
}

type methodPool struct {
	items []MethodID
}

func newMethodPool(r *binio.Reader, off, size uint32) (*methodPool, error) {
	mp := &methodPool{items: make([]MethodID, size)}
	for i := uint32(0); i < size; i++ {
		base := int(off + i*8)
		if err := r.Seek(base); err != nil {
			return nil, err
		}
		cls, err := r.ReadU16LE()
		if err != nil {
			return nil, err
		}
		proto, err := r.ReadU16LE()
		if err != nil {
			return nil, err
		}
		name, err := r.ReadU32LE()
		if err != nil {
			return nil, err
		}
		mp.items[i] = MethodID{ClassIdx: cls, ProtoIdx: proto, NameIdx: name}
	}
	return mp, nil
}

func (mp *methodPool) Len() int                  { return len(mp.items) }
func (mp *methodPool) Get(i uint32) (MethodID, error) {
	if int(i) >= len(mp.items) {
		return MethodID{}, &errs.FormatError{Section: "method_ids", Offset: int(i), Msg: "method id out of range"}
	}
	return mp.items[i], nil
}
