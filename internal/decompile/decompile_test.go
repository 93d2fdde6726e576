/*
 * garlic - a Java/Dalvik bytecode decompiler
 */

package decompile

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/CrazyForks/garlic/internal/arena"
	"github.com/CrazyForks/garlic/internal/binio"
	"github.com/CrazyForks/garlic/internal/dex"
	"github.com/CrazyForks/garlic/internal/javasrc"
)

func testArena() *arena.Arena { return arena.NewPool().NewArena() }

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
	binary.LittleEndian.PutUint32(buf[off:off+4], v)
}

// buildS2Dex assembles spec.md §8 scenario S2's exact input: a DEX file
// with one class "La;" containing one method "void m() { return; }".
func buildS2Dex(t *testing.T) []byte {
	t.Helper()

	strs := []string{"La;", "Ljava/lang/Object;", "m", "V"}

	const headerSz = 0x70
	stringIDsOff := uint32(headerSz)
	stringIDsSize := uint32(len(strs))
	typeIDsOff := stringIDsOff + stringIDsSize*4
	typeIDsSize := uint32(3)
	protoIDsOff := typeIDsOff + typeIDsSize*4
	protoIDsSize := uint32(1)
	fieldIDsOff := protoIDsOff + protoIDsSize*12
	fieldIDsSize := uint32(0)
	methodIDsOff := fieldIDsOff + fieldIDsSize*8
	methodIDsSize := uint32(1)
	classDefsOff := methodIDsOff + methodIDsSize*8
	classDefsSize := uint32(1)
	dataOff := classDefsOff + classDefsSize*32

	var data bytes.Buffer
	stringDataOff := make([]uint32, len(strs))
	for i, s := range strs {
		stringDataOff[i] = dataOff + uint32(data.Len())
		data.Write(uleb(uint64(len(s))))
		data.Write(binio.EncodeMUTF8(s))
	}

	codeOff := dataOff + uint32(data.Len())
	{
		var ci bytes.Buffer
		writeU16 := func(v uint16) {
			var b [2]byte
			binary.LittleEndian.PutUint16(b[:], v)
			ci.Write(b[:])
		}
		writeU32 := func(v uint32) {
			var b [4]byte
			binary.LittleEndian.PutUint32(b[:], v)
			ci.Write(b[:])
		}
		writeU16(0)      // registers_size
		writeU16(0)      // ins_size
		writeU16(0)      // outs_size
		writeU16(0)      // tries_size
		writeU32(0)      // debug_info_off
		writeU32(1)      // insns_size (code units)
		writeU16(0x000e) // return-void
		data.Write(ci.Bytes())
	}

	classDataOff := dataOff + uint32(data.Len())
	{
		var cd bytes.Buffer
		cd.Write(uleb(0)) // static_fields_size
		cd.Write(uleb(0)) // instance_fields_size
		cd.Write(uleb(1)) // direct_methods_size
		cd.Write(uleb(0)) // virtual_methods_size
		cd.Write(uleb(0))               // method_idx_diff -> method 0
		cd.Write(uleb(uint64(dex.AccPublic)))
		cd.Write(uleb(uint64(codeOff)))
		data.Write(cd.Bytes())
	}

	fileSize := dataOff + uint32(data.Len())
	buf := make([]byte, fileSize)

	copy(buf[0:8], []byte("dex\n035\x00"))
	putU32(buf, 32, fileSize)
	putU32(buf, 36, headerSz)
	putU32(buf, 40, 0x12345678)
	putU32(buf, 56, stringIDsSize)
	putU32(buf, 60, stringIDsOff)
	putU32(buf, 64, typeIDsSize)
	putU32(buf, 68, typeIDsOff)
	putU32(buf, 72, protoIDsSize)
	putU32(buf, 76, protoIDsOff)
	putU32(buf, 80, fieldIDsSize)
	putU32(buf, 84, fieldIDsOff)
	putU32(buf, 88, methodIDsSize)
	putU32(buf, 92, methodIDsOff)
	putU32(buf, 96, classDefsSize)
	putU32(buf, 100, classDefsOff)
	putU32(buf, 104, uint32(data.Len()))
	putU32(buf, 108, dataOff)

	for i, off := range stringDataOff {
		putU32(buf, int(stringIDsOff)+i*4, off)
	}

	// type ids: 0 -> "La;", 1 -> "Ljava/lang/Object;", 2 -> "V"
	typeDescriptorIdx := []uint32{0, 1, 3}
	for i, sidx := range typeDescriptorIdx {
		putU32(buf, int(typeIDsOff)+i*4, sidx)
	}

	putU32(buf, int(protoIDsOff)+0, 3) // shorty_idx -> "V"
	putU32(buf, int(protoIDsOff)+4, 2) // return_type_idx -> type "V"
	putU32(buf, int(protoIDsOff)+8, 0) // parameters_off (none)

	{
		var mb [8]byte
		binary.LittleEndian.PutUint16(mb[0:2], 0) // class_idx -> La;
		binary.LittleEndian.PutUint16(mb[2:4], 0) // proto_idx
		binary.LittleEndian.PutUint32(mb[4:8], 2) // name_idx -> "m"
		copy(buf[methodIDsOff:], mb[:])
	}

	base := int(classDefsOff)
	putU32(buf, base+0, 0)                   // class_idx -> La;
	putU32(buf, base+4, uint32(dex.AccPublic))
	putU32(buf, base+8, 1) // superclass_idx -> Ljava/lang/Object;
	putU32(buf, base+12, 0)
	putU32(buf, base+16, dex.NoIndex) // source_file_idx
	putU32(buf, base+20, 0)
	putU32(buf, base+24, classDataOff)
	putU32(buf, base+28, 0)

	copy(buf[dataOff:], data.Bytes())

	return buf
}

// TestDexSourceFileEmptyReturnElision is spec.md §8 S2, end to end:
// parse the DEX, build its source tree, lift and render the one class,
// and confirm the method body collapses to "{ }".
func TestDexSourceFileEmptyReturnElision(t *testing.T) {
	img, err := dex.Parse(buildS2Dex(t))
	require.NoError(t, err)

	tree, err := dex.BuildSourceTree(img)
	require.NoError(t, err)
	require.Len(t, tree.TopLevel, 1)

	class, err := DexSourceFile(testArena(), img, tree.TopLevel[0])
	require.NoError(t, err)
	require.Equal(t, "a", class.Name)
	require.Len(t, class.Methods, 1)
	require.Equal(t, "m", class.Methods[0].Name)

	out, err := javasrc.EmitClass(class)
	require.NoError(t, err)
	require.Contains(t, out, "void m() { }")
}

func TestDexClassSmaliRendersReturnVoid(t *testing.T) {
	img, err := dex.Parse(buildS2Dex(t))
	require.NoError(t, err)

	text, err := DexClassSmali(testArena(), img, img.ClassDefs[0])
	require.NoError(t, err)
	require.Contains(t, text, ".class La;")
	require.Contains(t, text, ".method m()V")
	require.Contains(t, text, "    .registers 0\n")
	require.Contains(t, text, "    return-void\n")
	require.Contains(t, text, ".end method")
}
