/*
 * garlic - a Java/Dalvik bytecode decompiler
 * The teacher (jacobin) reads class-file bytes with bespoke per-call
 * bounds checks scattered through classloader.go; this package factors
 * that discipline into one bounds-checked cursor type shared by both the
 * DEX and the .class pipelines, per spec.md §4.1.
 */

// Package binio implements the bounds-checked binary reader primitives
// specified in spec.md §4.1: sequential and random-access reads over an
// immutable in-memory byte buffer, plus the ULEB128/SLEB128/MUTF-8
// codecs both bytecode containers rely on.
package binio

import (
	"encoding/binary"

	"github.com/CrazyForks/garlic/internal/errs"
)

// Reader is an immutable byte range with a cursor. The zero value is not
// usable; construct with New or SubReader.
type Reader struct {
	buf []byte
	pos int
}

// New wraps buf for sequential and random-access reads starting at
// offset 0.
func New(buf []byte) *Reader {
	return &Reader{buf: buf}
}

// Len returns the number of bytes in the underlying buffer (not the
// number remaining).
func (r *Reader) Len() int { return len(r.buf) }

// Pos returns the current cursor position.
func (r *Reader) Pos() int { return r.pos }

// Bytes returns the full underlying buffer. Callers must not mutate it.
func (r *Reader) Bytes() []byte { return r.buf }

// Seek moves the cursor to an absolute offset. It is valid to seek to
// exactly Len() (an empty read region); seeking further (or to a
// negative offset) returns a Truncated error and leaves the cursor where
// it was.
func (r *Reader) Seek(offset int) error {
	if offset < 0 || offset > len(r.buf) {
		return &errs.Truncated{Offset: offset, Wanted: 0, HaveLen: len(r.buf)}
	}
	r.pos = offset
	return nil
}

func (r *Reader) require(n int) error {
	if r.pos+n > len(r.buf) || r.pos < 0 {
		return &errs.Truncated{Offset: r.pos, Wanted: n, HaveLen: len(r.buf)}
	}
	return nil
}

// Peek returns the next n bytes without advancing the cursor.
func (r *Reader) Peek(n int) ([]byte, error) {
	if err := r.require(n); err != nil {
		return nil, err
	}
	return r.buf[r.pos : r.pos+n], nil
}

// ReadU8 reads one byte and advances the cursor.
func (r *Reader) ReadU8() (uint8, error) {
	if err := r.require(1); err != nil {
		return 0, err
	}
	v := r.buf[r.pos]
	r.pos++
	return v, nil
}

// ReadU16LE reads a little-endian uint16 and advances the cursor.
func (r *Reader) ReadU16LE() (uint16, error) {
	if err := r.require(2); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(r.buf[r.pos:])
	r.pos += 2
	return v, nil
}

// ReadU32LE reads a little-endian uint32 and advances the cursor.
func (r *Reader) ReadU32LE() (uint32, error) {
	if err := r.require(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(r.buf[r.pos:])
	r.pos += 4
	return v, nil
}

// ReadU64LE reads a little-endian uint64 and advances the cursor.
func (r *Reader) ReadU64LE() (uint64, error) {
	if err := r.require(8); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint64(r.buf[r.pos:])
	r.pos += 8
	return v, nil
}

// ReadU16BE reads a big-endian uint16; used only by the .class pipeline,
// which is big-endian per the JVM spec (the DEX pipeline is entirely
// little-endian).
func (r *Reader) ReadU16BE() (uint16, error) {
	if err := r.require(2); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint16(r.buf[r.pos:])
	r.pos += 2
	return v, nil
}

// ReadU32BE reads a big-endian uint32.
func (r *Reader) ReadU32BE() (uint32, error) {
	if err := r.require(4); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint32(r.buf[r.pos:])
	r.pos += 4
	return v, nil
}

// ReadBytes reads n raw bytes and advances the cursor. The returned slice
// aliases the underlying buffer; callers must copy if they need to
// retain it past the buffer's lifetime.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	if err := r.require(n); err != nil {
		return nil, err
	}
	v := r.buf[r.pos : r.pos+n]
	r.pos += n
	return v, nil
}

// SubReader returns a new Reader over buf[offset:offset+length], sharing
// the backing array but with its own independent cursor.
func (r *Reader) SubReader(offset, length int) (*Reader, error) {
	if offset < 0 || length < 0 || offset+length > len(r.buf) {
		return nil, &errs.Truncated{Offset: offset, Wanted: length, HaveLen: len(r.buf)}
	}
	return &Reader{buf: r.buf[offset : offset+length]}, nil
}

// maxULEB128Bytes is the longest a ULEB128/SLEB128 encoding of a 64-bit
// value may legally be: ceil(64/7) = 10 bytes, 7 bits of payload each.
const maxULEB128Bytes = 10

// ReadULEB128 reads an unsigned LEB128-encoded integer and advances the
// cursor. It rejects any sequence that runs past maxULEB128Bytes without
// a terminating byte (continuation bit clear), per testable property 2.
func (r *Reader) ReadULEB128() (uint64, error) {
	var result uint64
	var shift uint
	start := r.pos
	for i := 0; i < maxULEB128Bytes; i++ {
		b, err := r.ReadU8()
		if err != nil {
			return 0, err
		}
		result |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return result, nil
		}
		shift += 7
	}
	return 0, &errs.BadEncoding{Offset: start, Msg: "ULEB128 did not terminate within 10 bytes"}
}

// ReadULEB128p1 reads the DEX "ULEB128p1" variant used for values whose
// natural range lower bound is -1 (e.g. debug_info line/parameter
// counts): the stored value is the real value plus one, with the stored
// sentinel 0 decoding to -1.
func (r *Reader) ReadULEB128p1() (int64, error) {
	v, err := r.ReadULEB128()
	if err != nil {
		return 0, err
	}
	return int64(v) - 1, nil
}

// ReadSLEB128 reads a signed LEB128-encoded integer and advances the
// cursor, sign-extending the final byte's top bits per the DWARF/DEX
// definition of SLEB128.
func (r *Reader) ReadSLEB128() (int64, error) {
	var result int64
	var shift uint
	start := r.pos
	var b uint8
	var err error
	for i := 0; i < maxULEB128Bytes; i++ {
		b, err = r.ReadU8()
		if err != nil {
			return 0, err
		}
		result |= int64(b&0x7f) << shift
		shift += 7
		if b&0x80 == 0 {
			if shift < 64 && b&0x40 != 0 {
				result |= -1 << shift
			}
			return result, nil
		}
	}
	return 0, &errs.BadEncoding{Offset: start, Msg: "SLEB128 did not terminate within 10 bytes"}
}
