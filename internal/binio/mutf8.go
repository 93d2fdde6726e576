/*
 * garlic - a Java/Dalvik bytecode decompiler
 */

package binio

import (
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/CrazyForks/garlic/internal/errs"
)

// DecodeMUTF8 decodes `units` UTF-16 code units of Modified UTF-8 from
// data, starting at offset 0, and returns the decoded Go (UTF-8) string
// plus the number of input bytes consumed. Per spec.md §4.1, MUTF-8
// deviates from ordinary UTF-8 in two ways that this function must
// reproduce:
//
//  1. U+0000 is encoded as the two-byte sequence 0xC0 0x80, never as a
//     literal 0x00 byte (which in DEX string_data_item terminates the
//     string instead).
//  2. Code points above U+FFFF are encoded as a surrogate pair: two
//     three-byte sequences, one per UTF-16 surrogate code unit, each
//     decoded exactly like an ordinary 3-byte sequence would decode a
//     BMP code point in the surrogate range.
func DecodeMUTF8(data []byte, units int) (string, int, error) {
	var sb strings.Builder
	pos := 0
	consumedUnits := 0

	readOne := func() (rune, int, error) {
		if pos >= len(data) {
			return 0, 0, &errs.Truncated{Offset: pos, Wanted: 1, HaveLen: len(data)}
		}
		b0 := data[pos]
		switch {
		case b0&0x80 == 0:
			// single ASCII byte, 0x01-0x7F ( 0x00 never appears alone in
			// valid MUTF-8: it terminates the string instead).
			return rune(b0), 1, nil
		case b0&0xE0 == 0xC0:
			if pos+1 >= len(data) {
				return 0, 0, &errs.Truncated{Offset: pos, Wanted: 2, HaveLen: len(data)}
			}
			b1 := data[pos+1]
			if b1&0xC0 != 0x80 {
				return 0, 0, &errs.BadEncoding{Offset: pos, Msg: "invalid MUTF-8 continuation byte"}
			}
			cp := (rune(b0&0x1f) << 6) | rune(b1&0x3f)
			return cp, 2, nil
		case b0&0xF0 == 0xE0:
			if pos+2 >= len(data) {
				return 0, 0, &errs.Truncated{Offset: pos, Wanted: 3, HaveLen: len(data)}
			}
			b1, b2 := data[pos+1], data[pos+2]
			if b1&0xC0 != 0x80 || b2&0xC0 != 0x80 {
				return 0, 0, &errs.BadEncoding{Offset: pos, Msg: "invalid MUTF-8 continuation byte"}
			}
			cp := (rune(b0&0x0f) << 12) | (rune(b1&0x3f) << 6) | rune(b2&0x3f)
			return cp, 3, nil
		default:
			return 0, 0, &errs.BadEncoding{Offset: pos, Msg: "invalid MUTF-8 leading byte"}
		}
	}

	for consumedUnits < units {
		cp, n, err := readOne()
		if err != nil {
			return "", pos, err
		}
		if utf16.IsSurrogate(cp) {
			// High surrogate: must be immediately followed by a second
			// 3-byte sequence encoding the matching low surrogate.
			pos += n
			consumedUnits++
			if consumedUnits >= units {
				// A lone surrogate with no pair: emit the replacement
				// char rather than fail the whole string.
				sb.WriteRune(utf8.RuneError)
				break
			}
			cp2, n2, err := readOne()
			if err != nil {
				return "", pos, err
			}
			combined := utf16.DecodeRune(cp, cp2)
			if combined == utf8.RuneError {
				return "", pos, &errs.BadEncoding{Offset: pos, Msg: "invalid MUTF-8 surrogate pair"}
			}
			pos += n2
			consumedUnits++
			sb.WriteRune(combined)
			continue
		}
		sb.WriteRune(cp)
		pos += n
		consumedUnits++
	}

	return sb.String(), pos, nil
}

// EncodeMUTF8 encodes a Go string into Modified UTF-8, reproducing the
// same two deviations DecodeMUTF8 reverses: NUL maps to 0xC0 0x80, and
// code points above U+FFFF are split into a surrogate pair, each member
// emitted as its own three-byte sequence.
func EncodeMUTF8(s string) []byte {
	out := make([]byte, 0, len(s)+2)
	for _, r := range s {
		switch {
		case r == 0:
			out = append(out, 0xC0, 0x80)
		case r > 0 && r <= 0x7f:
			out = append(out, byte(r))
		case r <= 0x7ff:
			out = append(out,
				0xC0|byte(r>>6),
				0x80|byte(r&0x3f))
		case r <= 0xffff:
			out = append(out,
				0xE0|byte(r>>12),
				0x80|byte((r>>6)&0x3f),
				0x80|byte(r&0x3f))
		default:
			hi, lo := utf16.EncodeRune(r)
			out = appendMUTF8Triplet(out, hi)
			out = appendMUTF8Triplet(out, lo)
		}
	}
	return out
}

func appendMUTF8Triplet(out []byte, r rune) []byte {
	return append(out,
		0xE0|byte(r>>12),
		0x80|byte((r>>6)&0x3f),
		0x80|byte(r&0x3f))
}
