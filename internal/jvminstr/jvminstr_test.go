/*
 * garlic - a Java/Dalvik bytecode decompiler
 */

package jvminstr

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/CrazyForks/garlic/internal/arena"
)

func testArena() *arena.Arena { return arena.NewPool().NewArena() }

func TestDecodeZeroOperand(t *testing.T) {
	code := []byte{byte(OpIadd)}
	inst, err := Decode(code, 0)
	require.NoError(t, err)
	require.Equal(t, OpIadd, inst.Opcode)
	require.EqualValues(t, 1, inst.Width)
}

func TestDecodeBipushSignExtends(t *testing.T) {
	code := []byte{byte(OpBipush), 0xff} // -1
	inst, err := Decode(code, 0)
	require.NoError(t, err)
	require.EqualValues(t, -1, inst.Const)
	require.EqualValues(t, 2, inst.Width)
}

func TestDecodeSipush(t *testing.T) {
	code := []byte{byte(OpSipush), 0x01, 0x00} // 256
	inst, err := Decode(code, 0)
	require.NoError(t, err)
	require.EqualValues(t, 256, inst.Const)
	require.EqualValues(t, 3, inst.Width)
}

func TestDecodeLdcIndex(t *testing.T) {
	code := []byte{byte(OpLdc), 5}
	inst, err := Decode(code, 0)
	require.NoError(t, err)
	require.EqualValues(t, 5, inst.Index)
	require.EqualValues(t, 2, inst.Width)
}

func TestDecodeAloadLocal(t *testing.T) {
	code := []byte{byte(OpAload), 3}
	inst, err := Decode(code, 0)
	require.NoError(t, err)
	require.EqualValues(t, 3, inst.Local)
	require.EqualValues(t, 2, inst.Width)
}

func TestDecodeIincLocalAndConst(t *testing.T) {
	code := []byte{byte(OpIinc), 1, 0xff} // i += -1
	inst, err := Decode(code, 0)
	require.NoError(t, err)
	require.EqualValues(t, 1, inst.Local)
	require.EqualValues(t, -1, inst.Const)
	require.EqualValues(t, 3, inst.Width)
}

func TestDecodeIfeqBranchTarget(t *testing.T) {
	code := []byte{byte(OpIfeq), 0x00, 0x0a}
	inst, err := Decode(code, 0)
	require.NoError(t, err)
	require.EqualValues(t, 10, inst.Target)
	require.EqualValues(t, 3, inst.Width)
}

func TestDecodeGotoWBranchTarget(t *testing.T) {
	code := []byte{byte(OpGotoW), 0x00, 0x00, 0x01, 0x00}
	inst, err := Decode(code, 0)
	require.NoError(t, err)
	require.EqualValues(t, 256, inst.Target)
	require.EqualValues(t, 5, inst.Width)
}

func TestDecodeInvokeinterfaceExtraBytes(t *testing.T) {
	code := []byte{byte(OpInvokeinterface), 0x00, 0x07, 0x02, 0x00}
	inst, err := Decode(code, 0)
	require.NoError(t, err)
	require.EqualValues(t, 7, inst.Index)
	require.EqualValues(t, 5, inst.Width)
}

func TestDecodeInvokedynamicExtraBytes(t *testing.T) {
	code := []byte{byte(OpInvokedynamic), 0x00, 0x03, 0x00, 0x00}
	inst, err := Decode(code, 0)
	require.NoError(t, err)
	require.EqualValues(t, 3, inst.Index)
	require.EqualValues(t, 5, inst.Width)
}

func TestDecodeNewarrayAtype(t *testing.T) {
	code := []byte{byte(OpNewarray), 10} // T_INT
	inst, err := Decode(code, 0)
	require.NoError(t, err)
	require.EqualValues(t, 10, inst.Atype)
	require.EqualValues(t, 2, inst.Width)
}

func TestDecodeMultianewarrayIndexAndDims(t *testing.T) {
	code := []byte{byte(OpMultianewarray), 0x00, 0x04, 2}
	inst, err := Decode(code, 0)
	require.NoError(t, err)
	require.EqualValues(t, 4, inst.Index)
	require.EqualValues(t, 2, inst.Dims)
	require.EqualValues(t, 4, inst.Width)
}

func TestDecodeWideIload(t *testing.T) {
	code := []byte{byte(OpWide), byte(OpIload), 0x01, 0x00}
	inst, err := Decode(code, 0)
	require.NoError(t, err)
	require.Equal(t, OpIload, inst.Opcode)
	require.EqualValues(t, 256, inst.Local)
	require.EqualValues(t, 4, inst.Width)
}

func TestDecodeWideIinc(t *testing.T) {
	code := []byte{byte(OpWide), byte(OpIinc), 0x00, 0x02, 0xff, 0xff} // local 2, const -1
	inst, err := Decode(code, 0)
	require.NoError(t, err)
	require.Equal(t, OpIinc, inst.Opcode)
	require.EqualValues(t, 2, inst.Local)
	require.EqualValues(t, -1, inst.Const)
	require.EqualValues(t, 6, inst.Width)
}

func TestDecodeTableswitchAlignsAndReadsTargets(t *testing.T) {
	// tableswitch at offset 0: opcode + 3 pad bytes, then default, low=0, high=1, 2 targets
	code := []byte{
		byte(OpTableswitch), 0, 0, 0,
		0, 0, 0, 20, // default=20
		0, 0, 0, 0, // low=0
		0, 0, 0, 1, // high=1
		0, 0, 0, 30, // targets[0]
		0, 0, 0, 40, // targets[1]
	}
	inst, err := Decode(code, 0)
	require.NoError(t, err)
	require.NotNil(t, inst.Switch)
	require.EqualValues(t, 20, inst.Switch.Default)
	require.EqualValues(t, 0, inst.Switch.Low)
	require.Equal(t, []int32{30, 40}, inst.Switch.Targets)
	require.EqualValues(t, 24, inst.Width)
}

func TestDecodeLookupswitchKeysAndTargets(t *testing.T) {
	code := []byte{
		byte(OpLookupswitch), 0, 0, 0,
		0, 0, 0, 99, // default=99
		0, 0, 0, 2, // npairs=2
		0, 0, 0, 5, 0, 0, 0, 50, // key=5 -> 50
		0, 0, 0, 6, 0, 0, 0, 60, // key=6 -> 60
	}
	inst, err := Decode(code, 0)
	require.NoError(t, err)
	require.NotNil(t, inst.Switch)
	require.EqualValues(t, 99, inst.Switch.Default)
	require.Equal(t, []int32{5, 6}, inst.Switch.Keys)
	require.Equal(t, []int32{50, 60}, inst.Switch.Targets)
}

func TestDecodeAllWalksFullSequence(t *testing.T) {
	code := []byte{byte(OpIconst0), byte(OpIstore1), byte(OpReturn)}
	insts, err := DecodeAll(testArena(), code)
	require.NoError(t, err)
	require.Len(t, insts, 3)
	require.Equal(t, OpIconst0, insts[0].Opcode)
	require.Equal(t, OpIstore1, insts[1].Opcode)
	require.Equal(t, OpReturn, insts[2].Opcode)
}

func TestDecodeUnknownOpcodeErrors(t *testing.T) {
	code := []byte{0xca} // unassigned
	_, err := Decode(code, 0)
	require.Error(t, err)
}

func TestNameFallsBackForUnknownOpcode(t *testing.T) {
	require.Equal(t, "op_ca", Name(0xca))
}

func TestNameKnownOpcode(t *testing.T) {
	require.Equal(t, "iadd", Name(OpIadd))
}
