/*
 * garlic - a Java/Dalvik bytecode decompiler
 */

// Package magic implements spec.md §6's input classification table: the
// first four bytes of the file, plus (for the PK\x03\x04 case) the file
// extension, determine which of the four supported container formats a
// path holds.
package magic

import "strings"

// Kind enumerates the supported input container formats.
type Kind int

const (
	// Unknown is returned for any prefix not in the table; the CLI
	// treats it as an InputError and exits 1.
	Unknown Kind = iota
	JavaClass
	APK
	JAR
	DEX
)

func (k Kind) String() string {
	switch k {
	case JavaClass:
		return "class"
	case APK:
		return "apk"
	case JAR:
		return "jar"
	case DEX:
		return "dex"
	default:
		return "unknown"
	}
}

var (
	classMagic = []byte{0xCA, 0xFE, 0xBA, 0xBE}
	zipMagic   = []byte{0x50, 0x4B, 0x03, 0x04}
	dexMagic   = []byte{0x64, 0x65, 0x78, 0x0A}
)

// Identify classifies path by its first four bytes and (for a ZIP
// prefix) its ".apk" suffix, per the table in spec.md §6. The
// classification is total and exclusive: every input maps to exactly one
// Kind, including Unknown for anything that matches no entry.
func Identify(prefix [4]byte, path string) Kind {
	switch {
	case matches(prefix, classMagic):
		return JavaClass
	case matches(prefix, dexMagic):
		return DEX
	case matches(prefix, zipMagic):
		if strings.HasSuffix(strings.ToLower(path), ".apk") {
			return APK
		}
		return JAR
	default:
		return Unknown
	}
}

func matches(prefix [4]byte, magic []byte) bool {
	for i, b := range magic {
		if prefix[i] != b {
			return false
		}
	}
	return true
}

// ReadPrefix reads the first 4 bytes of data, zero-padding if data is
// shorter (a short file can never match a magic and will classify as
// Unknown).
func ReadPrefix(data []byte) [4]byte {
	var p [4]byte
	copy(p[:], data)
	return p
}
