/*
 * garlic - a Java/Dalvik bytecode decompiler
 */

package smali

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/CrazyForks/garlic/internal/arena"
	"github.com/CrazyForks/garlic/internal/binio"
	"github.com/CrazyForks/garlic/internal/dex"
)

func testArena() *arena.Arena { return arena.NewPool().NewArena() }

func TestEmitMethodTrivialReturnVoid(t *testing.T) {
	// void m() { return; } -- spec.md §8 scenario S3's expected body.
	ci := &dex.CodeItem{
		RegistersSize: 1,
		Insns:         []uint16{0x000e}, // return-void
	}

	out, err := EmitMethod(testArena(), nil, ci)
	require.NoError(t, err)
	require.Equal(t, "    .registers 1\n    return-void\n", out)
}

func TestEmitMethodNilCodeItemIsEmpty(t *testing.T) {
	out, err := EmitMethod(testArena(), nil, nil)
	require.NoError(t, err)
	require.Equal(t, "", out)
}

func TestEmitMethodSynthesizesBackwardBranchLabel(t *testing.T) {
	// const/4 v0, #3 ; add-int/lit8 v0,v0,#-1 ; if-nez v0,-2 ; return-void
	insns := []uint16{
		0x3012,
		0x00d8, 0xff00,
		0x0039, 0xfffe,
		0x000e,
	}
	ci := &dex.CodeItem{RegistersSize: 1, Insns: insns}

	out, err := EmitMethod(testArena(), nil, ci)
	require.NoError(t, err)

	// offset 1 (the add-int/lit8) is the backward branch's target, so
	// its byte offset (2) must carry a synthesized label immediately
	// before the instruction, and the if-nez line must reference it.
	require.Contains(t, out, ":label_0002")
	require.Contains(t, out, "if-nez v0, :label_0002")
}

// --- try/catch fixture: CodeItem.handlerByOffset is unexported, so a
// working HandlerFor resolution can only come from a real parsed
// *dex.Image, following the same minimal-synthetic-DEX approach
// internal/lift/lift_test.go establishes for the same reason.

func uleb(v uint64) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			out = append(out, b|0x80)
		} else {
			out = append(out, b)
			break
		}
	}
	return out
}

func putU32(buf []byte, off int, v uint32) {
	binary.LittleEndian.PutUint32(buf[off:], v)
}

func buildTryCatchDex(t *testing.T) []byte {
	t.Helper()

	const headerSz = 0x70
	stringIDsOff := uint32(headerSz)
	stringIDsSize := uint32(1)
	typeIDsOff := stringIDsOff + stringIDsSize*4
	typeIDsSize := uint32(1)
	dataOff := typeIDsOff + typeIDsSize*4

	var data []byte
	excStr := "Ljava/lang/Exception;"
	strOff := dataOff
	data = append(data, uleb(uint64(len(excStr)))...)
	data = append(data, binio.EncodeMUTF8(excStr)...)

	var ci []byte
	writeU16 := func(v uint16) {
		var b [2]byte
		binary.LittleEndian.PutUint16(b[:], v)
		ci = append(ci, b[:]...)
	}
	writeU32 := func(v uint32) {
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], v)
		ci = append(ci, b[:]...)
	}
	writeU16(2) // registers_size
	writeU16(0) // ins_size
	writeU16(0) // outs_size
	writeU16(1) // tries_size
	writeU32(0) // debug_info_off
	writeU32(4) // insns_size

	writeU16(0x0012) // const/4 v0, #0   (offset 0)
	writeU16(0x0027) // throw v0         (offset 1)
	writeU16(0x010d) // move-exception v1(offset 2)
	writeU16(0x000e) // return-void      (offset 3)

	writeU32(0) // try_item.start_addr
	writeU16(2) // insn_count
	writeU16(1) // handler_off
	ci = append(ci, uleb(1)...)  // handler list count
	ci = append(ci, 0x00)        // SLEB128(0): catch-all only, 0 typed
	ci = append(ci, uleb(2)...)  // catch_all_addr
	data = append(data, ci...)

	fileSize := dataOff + uint32(len(data))
	buf := make([]byte, fileSize)
	copy(buf[0:8], []byte("dex\n035\x00"))
	putU32(buf, 32, fileSize)
	putU32(buf, 36, headerSz)
	putU32(buf, 40, 0x12345678)
	putU32(buf, 56, stringIDsSize)
	putU32(buf, 60, stringIDsOff)
	putU32(buf, 64, typeIDsSize)
	putU32(buf, 68, typeIDsOff)
	putU32(buf, 104, uint32(len(data)))
	putU32(buf, 108, dataOff)
	putU32(buf, int(stringIDsOff), strOff)
	putU32(buf, int(typeIDsOff), 0)
	copy(buf[dataOff:], data)
	return buf
}

func TestEmitMethodRendersTryCatchDirectives(t *testing.T) {
	img, err := dex.Parse(buildTryCatchDex(t))
	require.NoError(t, err)

	codeOff := uint32(0x70 + 4 + 4 + 1 + len(binio.EncodeMUTF8("Ljava/lang/Exception;")))
	ci, err := img.CodeItem(dex.EncodedMethod{CodeOff: codeOff})
	require.NoError(t, err)
	require.Len(t, ci.Tries, 1)

	out, err := EmitMethod(testArena(), img, ci)
	require.NoError(t, err)

	require.Contains(t, out, ":try_start_0")
	require.Contains(t, out, ":try_end_0")
	require.Contains(t, out, ".catch-all {:try_start_0 .. :try_end_0} :label_0004")
	require.Contains(t, out, "move-exception v1")
}
