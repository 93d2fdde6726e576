/*
 * garlic - a Java/Dalvik bytecode decompiler
 */

package binio

import (
	"math"
	"testing"
)

func TestReaderReadU32LE(t *testing.T) {
	r := New([]byte{0x78, 0x56, 0x34, 0x12})
	v, err := r.ReadU32LE()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 0x12345678 {
		t.Errorf("expected 0x12345678, got 0x%x", v)
	}
}

func TestReaderTruncated(t *testing.T) {
	r := New([]byte{0x01, 0x02})
	_, err := r.ReadU32LE()
	if err == nil {
		t.Fatal("expected truncated error, got nil")
	}
}

func TestReaderSeekPastEndIsTruncated(t *testing.T) {
	r := New([]byte{0x01})
	if err := r.Seek(5); err == nil {
		t.Fatal("expected error seeking past end")
	}
}

func TestULEB128RoundTrip(t *testing.T) {
	values := []uint64{0, 1, 127, 128, 300, 1 << 20, math.MaxUint32, math.MaxUint64}
	for _, v := range values {
		encoded := encodeULEB128(v)
		r := New(encoded)
		got, err := r.ReadULEB128()
		if err != nil {
			t.Fatalf("ReadULEB128(%d) error: %v", v, err)
		}
		if got != v {
			t.Errorf("ULEB128 round trip: want %d, got %d", v, got)
		}
	}
}

func TestULEB128RejectsOverlongSequence(t *testing.T) {
	// 11 continuation bytes: one more than the maximum legal 10.
	overlong := make([]byte, 11)
	for i := range overlong {
		overlong[i] = 0x80
	}
	r := New(overlong)
	if _, err := r.ReadULEB128(); err == nil {
		t.Fatal("expected BadEncoding for an 11-byte ULEB128")
	}
}

func TestSLEB128RoundTrip(t *testing.T) {
	values := []int64{0, 1, -1, 63, -64, 64, -65, math.MinInt32, math.MaxInt32, math.MinInt64, math.MaxInt64}
	for _, v := range values {
		encoded := encodeSLEB128(v)
		r := New(encoded)
		got, err := r.ReadSLEB128()
		if err != nil {
			t.Fatalf("ReadSLEB128(%d) error: %v", v, err)
		}
		if got != v {
			t.Errorf("SLEB128 round trip: want %d, got %d", v, got)
		}
	}
}

func TestMUTF8RoundTripASCII(t *testing.T) {
	s := "hello, world"
	encoded := EncodeMUTF8(s)
	decoded, n, err := DecodeMUTF8(encoded, len([]rune(s)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decoded != s {
		t.Errorf("want %q, got %q", s, decoded)
	}
	if n != len(encoded) {
		t.Errorf("expected to consume %d bytes, consumed %d", len(encoded), n)
	}
}

func TestMUTF8NulEncodesAsTwoBytes(t *testing.T) {
	s := "a\x00b"
	encoded := EncodeMUTF8(s)
	if len(encoded) != 4 {
		t.Fatalf("expected 4 bytes (a, 0xC0, 0x80, b), got %d: % x", len(encoded), encoded)
	}
	if encoded[1] != 0xC0 || encoded[2] != 0x80 {
		t.Errorf("expected NUL to encode as 0xC0 0x80, got % x", encoded[1:3])
	}
	decoded, _, err := DecodeMUTF8(encoded, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decoded != s {
		t.Errorf("want %q, got %q", s, decoded)
	}
}

func TestMUTF8SupplementaryCodePoint(t *testing.T) {
	s := "\U0001F600" // outside the BMP, requires a surrogate pair
	encoded := EncodeMUTF8(s)
	if len(encoded) != 6 {
		t.Fatalf("expected two 3-byte surrogate sequences (6 bytes), got %d", len(encoded))
	}
	decoded, _, err := DecodeMUTF8(encoded, 2) // two UTF-16 code units
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decoded != s {
		t.Errorf("want %q, got %q", s, decoded)
	}
}

// encodeULEB128/encodeSLEB128 are small local test helpers -- they are
// the reference encoder half of the round trip property and intentionally
// do not reuse the decoder's internals.

func encodeULEB128(v uint64) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		out = append(out, b)
		if v == 0 {
			break
		}
	}
	return out
}

func encodeSLEB128(v int64) []byte {
	var out []byte
	more := true
	for more {
		b := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0) {
			more = false
		} else {
			b |= 0x80
		}
		out = append(out, b)
	}
	return out
}
