/*
 * garlic - a Java/Dalvik bytecode decompiler
 */

package dexinstr

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/CrazyForks/garlic/internal/arena"
)

func testArena() *arena.Arena { return arena.NewPool().NewArena() }

func TestDecodeConst4SignExtendsLiteral(t *testing.T) {
	// const/4 v1, #5 -> unit0 = (5<<12)|(1<<8)|0x12
	insns := []uint16{0x5112}
	inst, err := Decode(insns, 0)
	require.NoError(t, err)
	require.Equal(t, Fmt11n, inst.Format)
	require.Equal(t, []uint16{1}, inst.Regs)
	require.EqualValues(t, 5, inst.Literal)
	require.EqualValues(t, 1, inst.Width)
}

func TestDecodeConst4NegativeLiteral(t *testing.T) {
	// const/4 v0, #-1 -> b=0xf, a=0
	insns := []uint16{0xf012}
	inst, err := Decode(insns, 0)
	require.NoError(t, err)
	require.EqualValues(t, -1, inst.Literal)
}

func TestDecode23xRegisterOrder(t *testing.T) {
	// aget v1, v2, v3
	insns := []uint16{0x0144, 0x0302}
	inst, err := Decode(insns, 0)
	require.NoError(t, err)
	require.Equal(t, Fmt23x, inst.Format)
	require.Equal(t, []uint16{1, 2, 3}, inst.Regs)
}

func TestDecode22cFieldAccess(t *testing.T) {
	// iget v1, v2, field@100
	insns := []uint16{0x2152, 100}
	inst, err := Decode(insns, 0)
	require.NoError(t, err)
	require.Equal(t, Fmt22c, inst.Format)
	require.Equal(t, []uint16{1, 2}, inst.Regs)
	require.EqualValues(t, 100, inst.Index)
	require.Equal(t, IndexField, inst.IndexKind)
}

func TestDecode21cConstString(t *testing.T) {
	insns := []uint16{0x001a, 7}
	inst, err := Decode(insns, 0)
	require.NoError(t, err)
	require.Equal(t, Fmt21c, inst.Format)
	require.Equal(t, []uint16{0}, inst.Regs)
	require.EqualValues(t, 7, inst.Index)
	require.Equal(t, IndexString, inst.IndexKind)
}

func TestDecode10tGotoNegativeTarget(t *testing.T) {
	insns := []uint16{0xfe28} // goto -2
	inst, err := Decode(insns, 0)
	require.NoError(t, err)
	require.Equal(t, Fmt10t, inst.Format)
	require.EqualValues(t, -2, inst.Target)
	require.EqualValues(t, 1, inst.Width)
}

func TestDecode35cInvokeStatic(t *testing.T) {
	// invoke-static {v1, v2}, method@55
	insns := []uint16{0x2071, 55, 0x0021}
	inst, err := Decode(insns, 0)
	require.NoError(t, err)
	require.Equal(t, Fmt35c, inst.Format)
	require.Equal(t, []uint16{1, 2}, inst.Regs)
	require.EqualValues(t, 55, inst.Index)
	require.Equal(t, IndexMethod, inst.IndexKind)
}

func TestDecode3rcInvokeStaticRange(t *testing.T) {
	// invoke-static/range {v5 .. v7}, method@10
	insns := []uint16{0x0377, 10, 5}
	inst, err := Decode(insns, 0)
	require.NoError(t, err)
	require.Equal(t, Fmt3rc, inst.Format)
	require.Equal(t, []uint16{5, 8}, inst.RegRange)
	require.EqualValues(t, 10, inst.Index)
}

func TestDecode51lConstWide(t *testing.T) {
	insns := []uint16{0x0018, 1, 0, 0, 0}
	inst, err := Decode(insns, 0)
	require.NoError(t, err)
	require.Equal(t, Fmt51l, inst.Format)
	require.EqualValues(t, 1, inst.Literal)
	require.EqualValues(t, 5, inst.Width)
}

func TestDecodePackedSwitchPayload(t *testing.T) {
	insns := []uint16{0x0100, 2, 10, 0, 100, 0, 200, 0}
	inst, err := Decode(insns, 0)
	require.NoError(t, err)
	require.Equal(t, fmtPayload, inst.Format)
	require.EqualValues(t, 8, inst.Width)
	require.NotNil(t, inst.Payload.PackedSwitch)
	require.EqualValues(t, 10, inst.Payload.PackedSwitch.FirstKey)
	require.Equal(t, []int32{100, 200}, inst.Payload.PackedSwitch.Targets)
}

func TestDecodeSparseSwitchPayload(t *testing.T) {
	insns := []uint16{0x0200, 2, 1, 0, 2, 0, 50, 0, 60, 0}
	inst, err := Decode(insns, 0)
	require.NoError(t, err)
	require.Equal(t, fmtPayload, inst.Format)
	require.EqualValues(t, 10, inst.Width)
	require.Equal(t, []int32{1, 2}, inst.Payload.SparseSwitch.Keys)
	require.Equal(t, []int32{50, 60}, inst.Payload.SparseSwitch.Targets)
}

func TestDecodeFillArrayDataPayload(t *testing.T) {
	insns := []uint16{0x0300, 1, 3, 0, 0x4241, 0x0043}
	inst, err := Decode(insns, 0)
	require.NoError(t, err)
	require.Equal(t, fmtPayload, inst.Format)
	require.EqualValues(t, 6, inst.Width)
	require.Equal(t, uint16(1), inst.Payload.FillArrayData.ElementWidth)
	require.Equal(t, []byte{0x41, 0x42, 0x43}, inst.Payload.FillArrayData.Data)
}

func TestDecodeAllStepsByWidth(t *testing.T) {
	insns := []uint16{
		0x5112, // const/4 v1, #5
		0x000e, // return-void
	}
	insts, err := DecodeAll(testArena(), insns)
	require.NoError(t, err)
	require.Len(t, insts, 2)
	require.EqualValues(t, 0, insts[0].Offset)
	require.EqualValues(t, 1, insts[1].Offset)
	require.Equal(t, OpReturnVoid, insts[1].Opcode)
}

func TestDecodeUnrecognizedOpcodeErrors(t *testing.T) {
	insns := []uint16{0x00e5} // in the ART-internal quickened gap
	_, err := Decode(insns, 0)
	require.Error(t, err)
}

func TestNameFallsBackForUnknownOpcode(t *testing.T) {
	require.Equal(t, "nop", Name(OpNop))
	require.Equal(t, "op_e5", Name(Opcode(0xe5)))
}
