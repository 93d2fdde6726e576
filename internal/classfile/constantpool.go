/*
 * garlic - a Java/Dalvik bytecode decompiler
 */

package classfile

import (
	"math"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/CrazyForks/garlic/internal/binio"
	"github.com/CrazyForks/garlic/internal/errs"
)

// CPEntry is the sum type of constant_pool_info tags this pipeline
// decodes. Unlike jacobin's classloader (which splits the pool into
// per-kind parallel slices -- classRefs, methodRefs, intConsts, ...) we
// keep one slice indexed by the original constant_pool index, since the
// dump/decompile paths resolve entries by raw index far more often than
// they iterate a single kind.
type CPEntry interface{ cpEntry() }

const (
	tagUtf8               = 1
	tagInteger            = 3
	tagFloat              = 4
	tagLong               = 5
	tagDouble             = 6
	tagClass              = 7
	tagString             = 8
	tagFieldref           = 9
	tagMethodref          = 10
	tagInterfaceMethodref = 11
	tagNameAndType        = 12
	tagMethodHandle       = 15
	tagMethodType         = 16
	tagDynamic            = 17
	tagInvokeDynamic      = 18
	tagModule             = 19
	tagPackage            = 20
)

type CPZero struct{} // constant_pool[0], and the filler slot after a Long/Double

type CPUtf8 struct{ Value string }
type CPInteger struct{ Value int32 }
type CPFloat struct{ Value float32 }
type CPLong struct{ Value int64 }
type CPDouble struct{ Value float64 }
type CPClass struct{ NameIndex uint16 }
type CPString struct{ StringIndex uint16 }
type CPFieldref struct{ ClassIndex, NameAndTypeIndex uint16 }
type CPMethodref struct{ ClassIndex, NameAndTypeIndex uint16 }
type CPInterfaceMethodref struct{ ClassIndex, NameAndTypeIndex uint16 }
type CPNameAndType struct{ NameIndex, DescriptorIndex uint16 }
type CPMethodHandle struct {
	ReferenceKind  uint8
	ReferenceIndex uint16
}
type CPMethodType struct{ DescriptorIndex uint16 }
type CPDynamic struct{ BootstrapMethodAttrIndex, NameAndTypeIndex uint16 }
type CPInvokeDynamic struct{ BootstrapMethodAttrIndex, NameAndTypeIndex uint16 }
type CPModule struct{ NameIndex uint16 }
type CPPackage struct{ NameIndex uint16 }

func (CPZero) cpEntry()                 {}
func (CPUtf8) cpEntry()                 {}
func (CPInteger) cpEntry()              {}
func (CPFloat) cpEntry()                {}
func (CPLong) cpEntry()                 {}
func (CPDouble) cpEntry()               {}
func (CPClass) cpEntry()                {}
func (CPString) cpEntry()               {}
func (CPFieldref) cpEntry()             {}
func (CPMethodref) cpEntry()            {}
func (CPInterfaceMethodref) cpEntry()   {}
func (CPNameAndType) cpEntry()          {}
func (CPMethodHandle) cpEntry()         {}
func (CPMethodType) cpEntry()           {}
func (CPDynamic) cpEntry()              {}
func (CPInvokeDynamic) cpEntry()        {}
func (CPModule) cpEntry()               {}
func (CPPackage) cpEntry()              {}

// parseConstantPool reads constant_pool_count and the pool itself. Per
// the JVM spec, the pool is 1-indexed and a Long/Double entry occupies
// two consecutive indices; the second (unused) index is filled with
// CPZero so every later index computed from a *_index field lands on the
// entry it names without an off-by-one correction at each call site.
func parseConstantPool(r *binio.Reader) ([]CPEntry, error) {
	count, err := r.ReadU16BE()
	if err != nil {
		return nil, err
	}
	pool := make([]CPEntry, count)
	pool[0] = CPZero{}

	for i := 1; i < int(count); i++ {
		tag, err := r.ReadU8()
		if err != nil {
			return nil, err
		}
		entry, wide, err := parseCPEntry(r, tag, i)
		if err != nil {
			return nil, err
		}
		pool[i] = entry
		if wide {
			i++
			if i < int(count) {
				pool[i] = CPZero{}
			}
		}
	}
	return pool, nil
}

func parseCPEntry(r *binio.Reader, tag uint8, idx int) (entry CPEntry, wide bool, err error) {
	switch tag {
	case tagUtf8:
		n, err := r.ReadU16BE()
		if err != nil {
			return nil, false, err
		}
		raw, err := r.ReadBytes(int(n))
		if err != nil {
			return nil, false, err
		}
		s, err := decodeClassUtf8(raw)
		if err != nil {
			return nil, false, err
		}
		return CPUtf8{Value: s}, false, nil
	case tagInteger:
		v, err := r.ReadU32BE()
		return CPInteger{Value: int32(v)}, false, err
	case tagFloat:
		v, err := r.ReadU32BE()
		return CPFloat{Value: math.Float32frombits(v)}, false, err
	case tagLong:
		v, err := read64BE(r)
		return CPLong{Value: int64(v)}, true, err
	case tagDouble:
		v, err := read64BE(r)
		return CPDouble{Value: math.Float64frombits(v)}, true, err
	case tagClass:
		v, err := r.ReadU16BE()
		return CPClass{NameIndex: v}, false, err
	case tagString:
		v, err := r.ReadU16BE()
		return CPString{StringIndex: v}, false, err
	case tagFieldref:
		c, n, err := readTwoU16(r)
		return CPFieldref{ClassIndex: c, NameAndTypeIndex: n}, false, err
	case tagMethodref:
		c, n, err := readTwoU16(r)
		return CPMethodref{ClassIndex: c, NameAndTypeIndex: n}, false, err
	case tagInterfaceMethodref:
		c, n, err := readTwoU16(r)
		return CPInterfaceMethodref{ClassIndex: c, NameAndTypeIndex: n}, false, err
	case tagNameAndType:
		n, d, err := readTwoU16(r)
		return CPNameAndType{NameIndex: n, DescriptorIndex: d}, false, err
	case tagMethodHandle:
		kind, err := r.ReadU8()
		if err != nil {
			return nil, false, err
		}
		ref, err := r.ReadU16BE()
		return CPMethodHandle{ReferenceKind: kind, ReferenceIndex: ref}, false, err
	case tagMethodType:
		v, err := r.ReadU16BE()
		return CPMethodType{DescriptorIndex: v}, false, err
	case tagDynamic:
		b, n, err := readTwoU16(r)
		return CPDynamic{BootstrapMethodAttrIndex: b, NameAndTypeIndex: n}, false, err
	case tagInvokeDynamic:
		b, n, err := readTwoU16(r)
		return CPInvokeDynamic{BootstrapMethodAttrIndex: b, NameAndTypeIndex: n}, false, err
	case tagModule:
		v, err := r.ReadU16BE()
		return CPModule{NameIndex: v}, false, err
	case tagPackage:
		v, err := r.ReadU16BE()
		return CPPackage{NameIndex: v}, false, err
	default:
		return nil, false, &errs.FormatError{Section: "constant_pool", Offset: idx, Msg: "unknown constant tag"}
	}
}

func readTwoU16(r *binio.Reader) (a, b uint16, err error) {
	a, err = r.ReadU16BE()
	if err != nil {
		return 0, 0, err
	}
	b, err = r.ReadU16BE()
	return a, b, err
}

func read64BE(r *binio.Reader) (uint64, error) {
	hi, err := r.ReadU32BE()
	if err != nil {
		return 0, err
	}
	lo, err := r.ReadU32BE()
	if err != nil {
		return 0, err
	}
	return uint64(hi)<<32 | uint64(lo), nil
}

// decodeClassUtf8 decodes a CONSTANT_Utf8's raw bytes. Unlike
// internal/binio.DecodeMUTF8 (driven by a DEX-side ULEB128 unit count
// read from a separately-aliased buffer), a class file's Utf8 entry
// gives an exact byte length and no unit count, so this walks by byte
// position instead -- the same two MUTF-8 deviations (NUL as 0xC0 0x80,
// supplementary code points as a surrogate pair of 3-byte sequences)
// apply, just with a different termination rule.
func decodeClassUtf8(data []byte) (string, error) {
	var sb strings.Builder
	pos := 0

	readOne := func() (rune, int, error) {
		b0 := data[pos]
		switch {
		case b0&0x80 == 0:
			return rune(b0), 1, nil
		case b0&0xE0 == 0xC0:
			if pos+1 >= len(data) {
				return 0, 0, &errs.Truncated{Offset: pos, Wanted: 2, HaveLen: len(data)}
			}
			b1 := data[pos+1]
			if b1&0xC0 != 0x80 {
				return 0, 0, &errs.BadEncoding{Offset: pos, Msg: "invalid MUTF-8 continuation byte"}
			}
			return (rune(b0&0x1f) << 6) | rune(b1&0x3f), 2, nil
		case b0&0xF0 == 0xE0:
			if pos+2 >= len(data) {
				return 0, 0, &errs.Truncated{Offset: pos, Wanted: 3, HaveLen: len(data)}
			}
			b1, b2 := data[pos+1], data[pos+2]
			if b1&0xC0 != 0x80 || b2&0xC0 != 0x80 {
				return 0, 0, &errs.BadEncoding{Offset: pos, Msg: "invalid MUTF-8 continuation byte"}
			}
			return (rune(b0&0x0f) << 12) | (rune(b1&0x3f) << 6) | rune(b2&0x3f), 3, nil
		default:
			return 0, 0, &errs.BadEncoding{Offset: pos, Msg: "invalid MUTF-8 leading byte"}
		}
	}

	for pos < len(data) {
		cp, n, err := readOne()
		if err != nil {
			return "", err
		}
		pos += n
		if utf16.IsSurrogate(cp) {
			if pos >= len(data) {
				sb.WriteRune(utf8.RuneError)
				break
			}
			cp2, n2, err := readOne()
			if err != nil {
				return "", err
			}
			combined := utf16.DecodeRune(cp, cp2)
			if combined == utf8.RuneError {
				return "", &errs.BadEncoding{Offset: pos, Msg: "invalid MUTF-8 surrogate pair"}
			}
			pos += n2
			sb.WriteRune(combined)
			continue
		}
		sb.WriteRune(cp)
	}
	return sb.String(), nil
}
