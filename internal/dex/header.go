/*
 * garlic - a Java/Dalvik bytecode decompiler
 * The overall "parse header, then walk fixed-size id tables, then decode
 * records on demand" shape follows the teacher's classloader.go
 * (ParseAndPostClass / parse()), generalized from the JVM's one-class-
 * per-file constant pool to DEX's multiple interned pools shared by every
 * class in the file.
 */

// Package dex implements the DEX container parser specified in spec.md
// §4.2: header, interned id tables, class-def table, and the
// code-item/debug-info streams that hang off each method.
package dex

import (
	"bytes"

	"github.com/CrazyForks/garlic/internal/binio"
	"github.com/CrazyForks/garlic/internal/errs"
)

const (
	headerSize        = 0x70
	endianConstant     = 0x12345678
	reverseEndianConst = 0x78563412

	sectionOffsetMagic = 8
	sectionOffsetSize  = 20
)

var dexMagicPrefix = []byte("dex\n")

// Header mirrors spec.md §3's DexHeader: file magic, checksum,
// signature, file size, header size, endian tag, and the (offset, size)
// pair for every interned section plus the class-defs table and the data
// section.
type Header struct {
	Magic     [8]byte
	Checksum  uint32
	Signature [20]byte
	FileSize  uint32

	HeaderSize uint32
	EndianTag  uint32

	LinkSize uint32
	LinkOff  uint32
	MapOff   uint32

	StringIDsSize uint32
	StringIDsOff  uint32
	TypeIDsSize   uint32
	TypeIDsOff    uint32
	ProtoIDsSize  uint32
	ProtoIDsOff   uint32
	FieldIDsSize  uint32
	FieldIDsOff   uint32
	MethodIDsSize uint32
	MethodIDsOff  uint32
	ClassDefsSize uint32
	ClassDefsOff  uint32

	DataSize uint32
	DataOff  uint32
}

func parseHeader(r *binio.Reader) (Header, error) {
	var h Header
	if err := r.Seek(0); err != nil {
		return h, err
	}
	magic, err := r.ReadBytes(8)
	if err != nil {
		return h, err
	}
	copy(h.Magic[:], magic)
	if !validMagic(h.Magic) {
		return h, &errs.FormatError{Section: "header", Offset: 0, Msg: "bad DEX magic"}
	}

	if h.Checksum, err = r.ReadU32LE(); err != nil {
		return h, err
	}
	sig, err := r.ReadBytes(20)
	if err != nil {
		return h, err
	}
	copy(h.Signature[:], sig)

	fields := []*uint32{
		&h.FileSize, &h.HeaderSize, &h.EndianTag,
		&h.LinkSize, &h.LinkOff, &h.MapOff,
		&h.StringIDsSize, &h.StringIDsOff,
		&h.TypeIDsSize, &h.TypeIDsOff,
		&h.ProtoIDsSize, &h.ProtoIDsOff,
		&h.FieldIDsSize, &h.FieldIDsOff,
		&h.MethodIDsSize, &h.MethodIDsOff,
		&h.ClassDefsSize, &h.ClassDefsOff,
		&h.DataSize, &h.DataOff,
	}
	for _, f := range fields {
		v, err := r.ReadU32LE()
		if err != nil {
			return h, err
		}
		*f = v
	}

	if h.HeaderSize != headerSize {
		return h, &errs.FormatError{Section: "header", Offset: 8 + 4 + 20 + 4, Msg: "header_size must be 0x70"}
	}
	if h.EndianTag == reverseEndianConst {
		return h, &errs.FormatError{Section: "header", Offset: 0, Msg: "big-endian DEX files are not supported"}
	}
	if h.EndianTag != endianConstant {
		return h, &errs.FormatError{Section: "header", Offset: 0, Msg: "unrecognized endian_tag"}
	}
	if int(h.FileSize) > r.Len() {
		return h, &errs.FormatError{Section: "header", Offset: 32, Msg: "file_size exceeds actual buffer length"}
	}

	for name, sec := range map[string][2]uint32{
		"string_ids":  {h.StringIDsOff, h.StringIDsSize * 4},
		"type_ids":    {h.TypeIDsOff, h.TypeIDsSize * 4},
		"proto_ids":   {h.ProtoIDsOff, h.ProtoIDsSize * 12},
		"field_ids":   {h.FieldIDsOff, h.FieldIDsSize * 8},
		"method_ids":  {h.MethodIDsOff, h.MethodIDsSize * 8},
		"class_defs":  {h.ClassDefsOff, h.ClassDefsSize * 32},
	} {
		off, size := sec[0], sec[1]
		if size == 0 {
			continue
		}
		if uint64(off)+uint64(size) > uint64(r.Len()) {
			return h, &errs.FormatError{Section: name, Offset: int(off), Msg: "section runs past end of file"}
		}
	}

	return h, nil
}

func validMagic(magic [8]byte) bool {
	if !bytes.Equal(magic[0:4], dexMagicPrefix) {
		return false
	}
	// three ASCII digits then a NUL, e.g. "035\x00".
	for i := 4; i < 7; i++ {
		if magic[i] < '0' || magic[i] > '9' {
			return false
		}
	}
	return magic[7] == 0x00
}
