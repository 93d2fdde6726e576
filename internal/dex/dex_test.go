/*
 * garlic - a Java/Dalvik bytecode decompiler
 */

package dex

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/CrazyForks/garlic/internal/binio"
	"github.com/CrazyForks/garlic/internal/errs"
	"github.com/stretchr/testify/require"
)

// --- tiny encoders mirroring the DEX wire format, for fixture construction only ---

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

func sleb(v int64) []byte {
	var out []byte
	more := true
	for more {
		b := byte(v & 0x7f)
		v >>= 7
		signBitSet := b&0x40 != 0
		if (v == 0 && !signBitSet) || (v == -1 && signBitSet) {
			more = false
		} else {
			b |= 0x80
		}
		out = append(out, b)
	}
	return out
}

func putU32(buf []byte, off int, v uint32) {
	binary.LittleEndian.PutUint32(buf[off:], v)
}

// buildMinimalDex assembles a small but structurally faithful DEX image:
// three classes (a top-level "Foo", its named inner class "Foo$Bar", and
// an anonymous "Foo$1"), one method on Foo with a code_item carrying a
// single try/catch (one typed handler plus a catch-all). It is used to
// exercise the header, interned pools, class-def/class-data, code-item,
// and classification logic against one consistent, hand-laid-out buffer.
func buildMinimalDex(t *testing.T) []byte {
	t.Helper()

	strs := []string{
		"La/b/Foo;",             // 0
		"La/b/Foo$Bar;",         // 1
		"La/b/Foo$1;",           // 2
		"Ljava/lang/Object;",    // 3
		"Foo.java",              // 4
		"<init>",                // 5
		"V",                     // 6
		"Ljava/lang/Exception;", // 7
	}

	const headerSz = 0x70
	stringIDsOff := uint32(headerSz)
	stringIDsSize := uint32(len(strs))
	typeIDsOff := stringIDsOff + stringIDsSize*4
	typeIDsSize := uint32(6)
	protoIDsOff := typeIDsOff + typeIDsSize*4
	protoIDsSize := uint32(1)
	fieldIDsOff := protoIDsOff + protoIDsSize*12
	fieldIDsSize := uint32(0)
	methodIDsOff := fieldIDsOff + fieldIDsSize*8
	methodIDsSize := uint32(1)
	classDefsOff := methodIDsOff + methodIDsSize*8
	classDefsSize := uint32(3)
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
		writeU16(2)      // registers_size
		writeU16(1)      // ins_size
		writeU16(0)      // outs_size
		writeU16(1)      // tries_size
		writeU32(0)      // debug_info_off
		writeU32(2)      // insns_size
		writeU16(0x0000) // insns[0]
		writeU16(0x000e) // insns[1]
		// tries_size is nonzero and insns_size (2) is even, so no padding.
		writeU32(0) // try_item.start_addr
		writeU16(2) // try_item.insn_count
		// handler_off: the encoded_catch_handler_list begins with a
		// 1-byte ULEB128 list count, so its single list sits at relative
		// offset 1, not 0.
		writeU16(1)
		ci.Write(uleb(1))  // handler-list count
		ci.Write(sleb(-1)) // size: 1 typed handler plus a catch-all
		ci.Write(uleb(5))  // type_idx of Ljava/lang/Exception; (type id 5)
		ci.Write(uleb(1))  // addr
		ci.Write(uleb(1))  // catch_all_addr
		data.Write(ci.Bytes())
	}

	classDataOff := dataOff + uint32(data.Len())
	{
		var cd bytes.Buffer
		cd.Write(uleb(0)) // static_fields_size
		cd.Write(uleb(0)) // instance_fields_size
		cd.Write(uleb(1)) // direct_methods_size
		cd.Write(uleb(0)) // virtual_methods_size
		cd.Write(uleb(0))                 // method_idx_diff -> method 0
		cd.Write(uleb(uint64(AccPublic))) // access_flags
		cd.Write(uleb(uint64(codeOff)))   // code_off
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

	typeDescriptorIdx := []uint32{0, 1, 2, 3, 6, 7}
	for i, sidx := range typeDescriptorIdx {
		putU32(buf, int(typeIDsOff)+i*4, sidx)
	}

	putU32(buf, int(protoIDsOff)+0, 6) // shorty_idx -> "V"
	putU32(buf, int(protoIDsOff)+4, 4) // return_type_idx -> type "V"
	putU32(buf, int(protoIDsOff)+8, 0) // parameters_off (none)

	{
		var mb [8]byte
		binary.LittleEndian.PutUint16(mb[0:2], 0) // class_idx -> Foo
		binary.LittleEndian.PutUint16(mb[2:4], 0) // proto_idx
		binary.LittleEndian.PutUint32(mb[4:8], 5) // name_idx -> "<init>"
		copy(buf[methodIDsOff:], mb[:])
	}

	writeClassDef := func(i int, classIdx, accessFlags, superclassIdx, sourceFileIdx, classDataOffVal uint32) {
		base := int(classDefsOff) + i*32
		putU32(buf, base+0, classIdx)
		putU32(buf, base+4, accessFlags)
		putU32(buf, base+8, superclassIdx)
		putU32(buf, base+12, 0)
		putU32(buf, base+16, sourceFileIdx)
		putU32(buf, base+20, 0)
		putU32(buf, base+24, classDataOffVal)
		putU32(buf, base+28, 0)
	}
	writeClassDef(0, 0, uint32(AccPublic), 3, 4, classDataOff) // La/b/Foo;
	writeClassDef(1, 1, uint32(AccPublic), 3, 4, 0)            // La/b/Foo$Bar;
	writeClassDef(2, 2, 0, 3, 4, 0)                             // La/b/Foo$1;

	copy(buf[dataOff:], data.Bytes())

	return buf
}

func TestParseBuildsPoolsAndClassDefs(t *testing.T) {
	img, err := Parse(buildMinimalDex(t))
	require.NoError(t, err)
	require.Len(t, img.ClassDefs, 3)

	name, err := img.ClassDefs[0].TypeName()
	require.NoError(t, err)
	require.Equal(t, "La/b/Foo;", name)

	srcFile, err := img.ClassDefs[0].SourceFileName()
	require.NoError(t, err)
	require.Equal(t, "Foo.java", srcFile)

	class, methodName, err := img.MethodName(0)
	require.NoError(t, err)
	require.Equal(t, "La/b/Foo;", class)
	require.Equal(t, "<init>", methodName)
}

func TestClassDataAndCodeItem(t *testing.T) {
	img, err := Parse(buildMinimalDex(t))
	require.NoError(t, err)

	cd, err := img.ClassDefs[0].ClassData()
	require.NoError(t, err)
	require.Empty(t, cd.StaticFields)
	require.Empty(t, cd.InstanceFields)
	require.Len(t, cd.DirectMethods, 1)
	require.Empty(t, cd.VirtualMethods)

	em := cd.DirectMethods[0]
	require.Equal(t, uint32(0), em.MethodIdx)
	require.NotZero(t, em.CodeOff)

	ci, err := img.CodeItem(em)
	require.NoError(t, err)
	require.Equal(t, uint16(2), ci.RegistersSize)
	require.Equal(t, []uint16{0x0000, 0x000e}, ci.Insns)
	require.Len(t, ci.Tries, 1)

	hl, ok := ci.HandlerFor(ci.Tries[0])
	require.True(t, ok)
	require.True(t, hl.HasCatchAll)
	require.Equal(t, uint32(1), hl.CatchAllAddr)
	require.Len(t, hl.Handlers, 1)
	require.Equal(t, uint32(5), hl.Handlers[0].TypeIdx)
}

func TestClassDefWithNoClassDataHasNoMethods(t *testing.T) {
	img, err := Parse(buildMinimalDex(t))
	require.NoError(t, err)

	cd, err := img.ClassDefs[1].ClassData()
	require.NoError(t, err)
	require.Empty(t, cd.DirectMethods)
	require.Empty(t, cd.VirtualMethods)
}

func TestClassifyInnerAndAnonymous(t *testing.T) {
	img, err := Parse(buildMinimalDex(t))
	require.NoError(t, err)

	top, err := img.ClassDefs[0].Classify()
	require.NoError(t, err)
	require.False(t, top.Inner)
	require.False(t, top.Anonymous)

	named, err := img.ClassDefs[1].Classify()
	require.NoError(t, err)
	require.True(t, named.Inner)
	require.False(t, named.Anonymous)

	anon, err := img.ClassDefs[2].Classify()
	require.NoError(t, err)
	require.True(t, anon.Inner)
	require.True(t, anon.Anonymous)
}

func TestBuildSourceTreeGroupsNestedClasses(t *testing.T) {
	img, err := Parse(buildMinimalDex(t))
	require.NoError(t, err)

	tree, err := BuildSourceTree(img)
	require.NoError(t, err)
	require.Len(t, tree.All, 3)
	require.Len(t, tree.TopLevel, 1)

	foo := tree.TopLevel[0]
	require.Nil(t, foo.Parent)
	require.Len(t, foo.Children, 2)
	for _, child := range foo.Children {
		require.Same(t, foo, child.Parent)
	}
}

func TestSimpleNameAndPackageName(t *testing.T) {
	require.Equal(t, "Foo$1", SimpleName("La/b/Foo$1;"))
	require.Equal(t, "a/b", PackageName("La/b/Foo$1;"))
	require.Equal(t, "Main", SimpleName("LMain;"))
	require.Equal(t, "", PackageName("LMain;"))
}

func TestParseRejectsBadMagic(t *testing.T) {
	buf := buildMinimalDex(t)
	buf[0] = 'X'
	_, err := Parse(buf)
	require.Error(t, err)
	var fe *errs.FormatError
	require.ErrorAs(t, err, &fe)
}

func TestParseRejectsReverseEndian(t *testing.T) {
	buf := buildMinimalDex(t)
	putU32(buf, 40, reverseEndianConst)
	_, err := Parse(buf)
	require.Error(t, err)
}

func TestParseRejectsTruncatedFile(t *testing.T) {
	buf := buildMinimalDex(t)
	putU32(buf, 32, uint32(len(buf)+1000))
	_, err := Parse(buf)
	require.Error(t, err)
}

func TestParseRejectsSectionPastEndOfFile(t *testing.T) {
	buf := buildMinimalDex(t)
	putU32(buf, 100, uint32(len(buf))) // class_defs_off pushed past EOF
	_, err := Parse(buf)
	require.Error(t, err)
}

func TestImageVerify(t *testing.T) {
	img, err := Parse(buildMinimalDex(t))
	require.NoError(t, err)
	require.NoError(t, img.Verify())
}
