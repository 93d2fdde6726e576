/*
 * garlic - a Java/Dalvik bytecode decompiler
 */

package classfile

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

// buildMinimalClass assembles a `p.A` class file with no fields, no
// methods, and no superclass reference -- spec.md §8 scenario S1's
// fixture: CAFEBABE header, major 52 / minor 0, this_class p/A.
func buildMinimalClass(t *testing.T) []byte {
	t.Helper()

	var buf []byte
	u16 := func(v uint16) {
		var b [2]byte
		binary.BigEndian.PutUint16(b[:], v)
		buf = append(buf, b[:]...)
	}
	u32 := func(v uint32) {
		var b [4]byte
		binary.BigEndian.PutUint32(b[:], v)
		buf = append(buf, b[:]...)
	}

	u32(magic)
	u16(0)  // minor_version
	u16(52) // major_version

	u16(3) // constant_pool_count (entries at index 1, 2)
	buf = append(buf, tagUtf8)
	u16(3)
	buf = append(buf, []byte("p/A")...)
	buf = append(buf, tagClass)
	u16(1) // name_index -> "p/A"

	u16(0) // access_flags
	u16(2) // this_class -> CPClass("p/A")
	u16(0) // super_class (none)
	u16(0) // interfaces_count
	u16(0) // fields_count
	u16(0) // methods_count
	u16(0) // attributes_count

	return buf
}

func TestParseMinimalClass(t *testing.T) {
	cf, err := Parse(buildMinimalClass(t))
	require.NoError(t, err)
	require.EqualValues(t, 52, cf.MajorVersion)
	require.EqualValues(t, 0, cf.MinorVersion)

	name, err := cf.ThisClassName()
	require.NoError(t, err)
	require.Equal(t, "p/A", name)

	require.Empty(t, cf.Methods)
	require.Empty(t, cf.Fields)
}

func TestParseRejectsBadMagic(t *testing.T) {
	_, err := Parse([]byte{0, 0, 0, 0})
	require.Error(t, err)
}
