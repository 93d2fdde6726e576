/*
 * garlic - a Java/Dalvik bytecode decompiler
 */

package dump

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/CrazyForks/garlic/internal/classfile"
)

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
	u32(0xCAFEBABE)
	u16(0)
	u16(52)
	u16(3)
	buf = append(buf, 1) // tag Utf8
	u16(3)
	buf = append(buf, []byte("p/A")...)
	buf = append(buf, 7) // tag Class
	u16(1)
	u16(0) // access_flags
	u16(2) // this_class
	u16(0) // super_class
	u16(0) // interfaces_count
	u16(0) // fields_count
	u16(0) // methods_count
	u16(0) // attributes_count
	return buf
}

func TestWriteReportClassFileHeaderMatchesScenarioS1(t *testing.T) {
	cf, err := classfile.Parse(buildMinimalClass(t))
	require.NoError(t, err)

	report, err := BuildClassFileReport(cf)
	require.NoError(t, err)

	var out bytes.Buffer
	w := bufio.NewWriter(&out)
	require.NoError(t, WriteReport(w, report))

	require.Contains(t, out.String(), "major_version=52, minor_version=0, this_class=p/A")
}
