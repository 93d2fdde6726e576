/*
 * garlic - a Java/Dalvik bytecode decompiler
 */

package archive

import (
	"archive/zip"
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/CrazyForks/garlic/internal/arena"
	"github.com/CrazyForks/garlic/internal/globals"
	"github.com/CrazyForks/garlic/internal/worker"
)

// buildMinimalClassBytes assembles a `p/A` class file with no fields, no
// methods, and no superclass reference -- the same fixture shape as
// spec.md §8 scenario S1, duplicated here since internal/classfile's
// builder is unexported to its own test package.
func buildMinimalClassBytes(t *testing.T) []byte {
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
	u16(0)  // minor_version
	u16(52) // major_version

	u16(3) // constant_pool_count
	buf = append(buf, 1) // tagUtf8
	u16(3)
	buf = append(buf, []byte("p/A")...)
	buf = append(buf, 7) // tagClass
	u16(1)                // name_index -> "p/A"

	u16(0) // access_flags
	u16(2) // this_class -> CPClass("p/A")
	u16(0) // super_class (none)
	u16(0) // interfaces_count
	u16(0) // fields_count
	u16(0) // methods_count
	u16(0) // attributes_count

	return buf
}

func buildJar(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	w, err := zw.Create("p/A.class")
	require.NoError(t, err)
	_, err = w.Write(buildMinimalClassBytes(t))
	require.NoError(t, err)

	w2, err := zw.Create("META-INF/MANIFEST.MF")
	require.NoError(t, err)
	_, err = w2.Write([]byte("Manifest-Version: 1.0\n"))
	require.NoError(t, err)

	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func newTestPool() (*worker.Pool, *globals.Globals) {
	globals.Reset()
	g := globals.Init()
	return worker.New(4, arena.NewPool(), g), g
}

func TestRunJarDecompilesClassEntries(t *testing.T) {
	raw := buildJar(t)
	zr, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	require.NoError(t, err)

	outDir := t.TempDir()
	pool, g := newTestPool()
	require.NoError(t, Run(pool, outDir, zr, Decompile))

	require.Equal(t, g.Added.Load(), g.Done.Load())

	out, err := os.ReadFile(filepath.Join(outDir, "p", "A.java"))
	require.NoError(t, err)
	require.Contains(t, string(out), "class A")
}
