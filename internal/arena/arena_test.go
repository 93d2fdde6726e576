/*
 * garlic - a Java/Dalvik bytecode decompiler
 */

package arena

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSlabGetReturnsRequestedCapacity(t *testing.T) {
	s := NewSlab[byte](DefaultTiers)
	b := s.Get(10)
	require.Len(t, b, 0)
	require.GreaterOrEqual(t, cap(b), 10)
}

func TestSlabPutRecyclesSameTier(t *testing.T) {
	s := NewSlab[int](DefaultTiers)
	b := s.Get(16)
	b = append(b, 1, 2, 3)
	s.Put(b)

	b2 := s.Get(16)
	require.Equal(t, cap(b), cap(b2))
	require.Len(t, b2, 0)
}

func TestArenaGetBytesAndInts(t *testing.T) {
	a := NewPool().NewArena()
	bs := a.GetBytes(32)
	require.Len(t, bs, 0)
	require.GreaterOrEqual(t, cap(bs), 32)

	is := a.GetInts(8)
	require.Len(t, is, 0)
	require.GreaterOrEqual(t, cap(is), 8)
}

// TestGetPutPoolsArbitraryElementType exercises the generic Get/Put pair
// that lets callers outside this package (decoded instructions, block
// leader offsets, resolved expression lists) pool per-task scratch
// without arena needing to import their types.
func TestGetPutPoolsArbitraryElementType(t *testing.T) {
	type widget struct{ n int }

	a := NewPool().NewArena()
	ws := Get[widget](a, 4)
	require.Len(t, ws, 0)
	require.GreaterOrEqual(t, cap(ws), 4)

	ws = append(ws, widget{n: 1}, widget{n: 2})
	Put(a, ws)

	ws2 := Get[widget](a, 4)
	require.Equal(t, cap(ws), cap(ws2))
}

func TestGetKeyedByTypeKeepsSlabsSeparate(t *testing.T) {
	a := NewPool().NewArena()
	ints := Get[int](a, 16)
	ints = append(ints, 1, 2, 3)
	Put(a, ints)

	// a string slice must never come back from the int slab's pool, even
	// though both are requested with the same capacity.
	strs := Get[string](a, 16)
	require.Len(t, strs, 0)
	require.IsType(t, []string(nil), strs)
}

func TestArenaReleaseDrainsTrackedSlices(t *testing.T) {
	a := NewPool().NewArena()
	b := a.Track(a.GetBytes(16))
	require.Len(t, a.owned, 1)
	a.Release()
	require.Len(t, a.owned, 0)
	_ = b
}
