/*
 * garlic - a Java/Dalvik bytecode decompiler
 */

package main

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/CrazyForks/garlic/internal/globals"
	"github.com/CrazyForks/garlic/internal/magic"
)

// buildMinimalClassFile assembles spec.md §8 S1's exact fixture: class
// `p/A`, no methods, CAFEBABE/52/0 header.
func buildMinimalClassFile(t *testing.T) []byte {
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
	buf = append(buf, 1)
	u16(3)
	buf = append(buf, []byte("p/A")...)
	buf = append(buf, 7)
	u16(1)
	u16(0)
	u16(2)
	u16(0)
	u16(0)
	u16(0)
	u16(0)
	u16(0)
	return buf
}

func TestDefaultOutputDirNamesSiblingByKind(t *testing.T) {
	got := defaultOutputDir("/tmp/foo/app.apk", magic.APK)
	require.Equal(t, "/tmp/foo/app_apk", got)
}

func TestRunRejectsWrongArgCount(t *testing.T) {
	globals.Reset()
	app := newApp()
	err := app.Run([]string{"garlic"})
	require.Error(t, err)
	var usage *usageError
	require.ErrorAs(t, err, &usage)
}

func TestRunClassFileDecompile(t *testing.T) {
	globals.Reset()
	dir := t.TempDir()
	classPath := filepath.Join(dir, "A.class")
	require.NoError(t, os.WriteFile(classPath, buildMinimalClassFile(t), 0o644))

	outDir := filepath.Join(dir, "out")
	app := newApp()
	require.NoError(t, app.Run([]string{"garlic", "-o", outDir, classPath}))

	text, err := os.ReadFile(filepath.Join(outDir, "p", "A.java"))
	require.NoError(t, err)
	require.Contains(t, string(text), "class A")
}

// TestRunDumpModeClassFile is spec.md §8 scenario S1: -p on a class file
// declaring p/A with no methods prints a header block containing
// exactly major_version=52, minor_version=0, this_class=p/A.
func TestRunDumpModeClassFile(t *testing.T) {
	globals.Reset()
	dir := t.TempDir()
	classPath := filepath.Join(dir, "A.class")
	require.NoError(t, os.WriteFile(classPath, buildMinimalClassFile(t), 0o644))

	normalStdout := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w

	app := newApp()
	runErr := app.Run([]string{"garlic", "-p", classPath})

	w.Close()
	os.Stdout = normalStdout
	require.NoError(t, runErr)

	buf := make([]byte, 4096)
	n, _ := r.Read(buf)
	out := string(buf[:n])

	require.Contains(t, out, "major_version=52")
	require.Contains(t, out, "minor_version=0")
	require.Contains(t, out, "this_class=p/A")
}
