/*
 * garlic - a Java/Dalvik bytecode decompiler
 */

package lift

import (
	"encoding/binary"
	"testing"

	"github.com/CrazyForks/garlic/internal/arena"
	"github.com/CrazyForks/garlic/internal/binio"
	"github.com/CrazyForks/garlic/internal/dex"
	"github.com/CrazyForks/garlic/internal/errs"
	"github.com/CrazyForks/garlic/internal/ir"
	"github.com/stretchr/testify/require"
)

func testMethod() Method {
	return Method{Class: "La/b/Foo;", Name: "m", Proto: "V"}
}

func testArena() *arena.Arena { return arena.NewPool().NewArena() }

func TestLiftStraightLineConstAndReturn(t *testing.T) {
	// const/4 v0, #1 ; return v0
	ci := &dex.CodeItem{
		RegistersSize: 1,
		Insns:         []uint16{0x1012, 0x000f},
	}

	stmts, err := New(nil, testMethod(), ci).Lift(testArena())
	require.NoError(t, err)
	require.Len(t, stmts, 2)

	assign, ok := stmts[0].(ir.Assign)
	require.True(t, ok)
	require.Equal(t, ir.LocalRef{Name: "v0"}, assign.Target)
	require.Equal(t, ir.IntLiteral{Node: ir.Node{Offset: 0}, Value: 1}, assign.Value)

	ret, ok := stmts[1].(ir.Return)
	require.True(t, ok)
	require.Equal(t, ir.IntLiteral{Node: ir.Node{Offset: 0}, Value: 1}, ret.Value)
}

func TestLiftRecoversDoWhileLoop(t *testing.T) {
	// v0 = 3
	// loop: v0 = v0 + (-1)
	//       if v0 != 0 goto loop
	// return-void
	insns := []uint16{
		0x3012,           // const/4 v0, #3           (offset 0, width 1)
		0x00d8, 0xff00,   // add-int/lit8 v0, v0, #-1 (offset 1, width 2)
		0x0039, 0xfffe,   // if-nez v0, -2            (offset 3, width 2)
		0x000e,           // return-void              (offset 5, width 1)
	}
	ci := &dex.CodeItem{RegistersSize: 1, Insns: insns}

	stmts, err := New(nil, testMethod(), ci).Lift(testArena())
	require.NoError(t, err)
	require.Len(t, stmts, 3)

	_, ok := stmts[0].(ir.Assign)
	require.True(t, ok)

	dw, ok := stmts[1].(ir.DoWhile)
	require.True(t, ok)
	require.Len(t, dw.Body, 1)
	_, ok = dw.Body[0].(ir.Assign)
	require.True(t, ok)
	cond, ok := dw.Cond.(ir.BinaryOp)
	require.True(t, ok)
	require.Equal(t, "if-nez", cond.Op)

	_, ok = stmts[2].(ir.Return)
	require.True(t, ok)
}

func TestLiftReportsUnknownOpcodeAsLiftError(t *testing.T) {
	// 0x3e falls in the gap spec.md §4.4 documents as intentionally
	// unassigned (0x3e-0x43): never emitted by d8/dx, decoded as an error.
	ci := &dex.CodeItem{RegistersSize: 1, Insns: []uint16{0x003e}}

	_, err := New(nil, testMethod(), ci).Lift(testArena())
	require.Error(t, err)
	var liftErr *errs.LiftError
	require.ErrorAs(t, err, &liftErr)
	require.Equal(t, testMethod().String(), liftErr.MethodID)
}

// --- try/catch integration fixture: a minimal but real *dex.Image ---

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

// buildTryCatchDex assembles a one-method DEX image whose method is:
//
//	try { const/4 v0, #0 ; throw v0 }
//	catch (Ljava/lang/Exception; e) { return-void }   // also the catch-all
//
// mirroring internal/dex's own buildMinimalDex fixture approach: hand-laid-out
// header, a one-entry string/type pool (just the exception descriptor), and
// no field/method/proto pools since this method's body never touches them.
func buildTryCatchDex(t *testing.T) []byte {
	t.Helper()

	const headerSz = 0x70
	stringIDsOff := uint32(headerSz)
	stringIDsSize := uint32(1)
	typeIDsOff := stringIDsOff + stringIDsSize*4
	typeIDsSize := uint32(1)
	protoIDsOff := typeIDsOff + typeIDsSize*4
	fieldIDsOff := protoIDsOff
	methodIDsOff := fieldIDsOff
	classDefsOff := methodIDsOff
	dataOff := classDefsOff

	var data []byte
	excStr := "Ljava/lang/Exception;"
	strOff := dataOff + uint32(len(data))
	data = append(data, uleb(uint64(len(excStr)))...)
	data = append(data, binio.EncodeMUTF8(excStr)...)

	{
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
		writeU16(2) // registers_size (v0, v1)
		writeU16(0) // ins_size
		writeU16(0) // outs_size
		writeU16(1) // tries_size
		writeU32(0) // debug_info_off
		writeU32(4) // insns_size

		writeU16(0x0012) // const/4 v0, #0             (offset 0)
		writeU16(0x0027) // throw v0                   (offset 1)
		writeU16(0x010d) // move-exception v1          (offset 2)
		writeU16(0x000e) // return-void                (offset 3)

		// insns_size (4) is even, no padding before the try table.
		writeU32(0) // try_item.start_addr
		writeU16(2) // try_item.insn_count: covers [0,2)
		writeU16(1) // handler_off: relative to the handler-list count byte
		ci = append(ci, uleb(1)...)  // encoded_catch_handler_list count
		ci = append(ci, sleb(-1)...) // size: 1 typed handler plus a catch-all
		ci = append(ci, uleb(0)...)  // type_idx 0 -> Ljava/lang/Exception;
		ci = append(ci, uleb(2)...)  // addr
		ci = append(ci, uleb(2)...)  // catch_all_addr
		data = append(data, ci...)
	}

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
	putU32(buf, int(typeIDsOff), 0) // type 0 -> string 0

	copy(buf[dataOff:], data)

	return buf
}

func TestLiftReconstructsTryCatch(t *testing.T) {
	img, err := dex.Parse(buildTryCatchDex(t))
	require.NoError(t, err)

	// Locate the code_item by its offset directly, the way decompile would
	// after resolving a real class_data_item's encoded_method -- no class
	// def/class data is needed for this fixture's method, only a CodeOff.
	em := dex.EncodedMethod{CodeOff: methodCodeOffset(t, img)}
	ci, err := img.CodeItem(em)
	require.NoError(t, err)
	require.Len(t, ci.Tries, 1)

	stmts, err := New(img, testMethod(), ci).Lift(testArena())
	require.NoError(t, err)
	require.Len(t, stmts, 1)

	tb, ok := stmts[0].(ir.TryBlock)
	require.True(t, ok)
	require.Len(t, tb.Body, 2)
	_, ok = tb.Body[0].(ir.Assign)
	require.True(t, ok)
	_, ok = tb.Body[1].(ir.Throw)
	require.True(t, ok)

	require.Len(t, tb.Catches, 2)
	require.Equal(t, "Ljava/lang/Exception;", tb.Catches[0].ExceptionType)
	require.Equal(t, "", tb.Catches[1].ExceptionType)
	for _, c := range tb.Catches {
		require.Len(t, c.Body, 1)
		_, ok := c.Body[0].(ir.Return)
		require.True(t, ok)
	}
}

// methodCodeOffset re-derives the fixture's code_item offset by scanning the
// already-parsed image's data section layout: buildTryCatchDex lays the
// string_data_item immediately before the code_item, so the offset is the
// string pool's one entry's data offset plus its encoded length.
func methodCodeOffset(t *testing.T, img *dex.Image) uint32 {
	t.Helper()
	s, err := img.Strings.Get(0)
	require.NoError(t, err)
	// 1 ULEB128 length byte (fits in one byte for this fixture's short
	// string) + the MUTF-8 payload itself, counted in encoded bytes.
	return 0x70 + 4 + 4 + 1 + uint32(len(binio.EncodeMUTF8(s)))
}
