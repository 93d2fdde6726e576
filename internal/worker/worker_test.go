/*
 * garlic - a Java/Dalvik bytecode decompiler
 */

package worker

import (
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/CrazyForks/garlic/internal/arena"
	"github.com/CrazyForks/garlic/internal/globals"
)

func TestClampRules(t *testing.T) {
	require.Equal(t, 4, Clamp(0))
	require.Equal(t, 1, Clamp(1))
	require.Equal(t, 2, Clamp(2))
	require.Equal(t, 16, Clamp(16))
	require.Equal(t, 16, Clamp(17))
	require.Equal(t, 16, Clamp(1000))
}

func TestJoinWaitsForAllEnqueuedTasks(t *testing.T) {
	globals.Reset()
	g := globals.Init()
	p := New(Clamp(4), arena.NewPool(), g)

	var ran atomic.Int64
	const n = 50
	for i := 0; i < n; i++ {
		p.Enqueue(func(a *arena.Arena) {
			require.NotNil(t, a)
			ran.Add(1)
		})
	}
	p.Join()

	require.EqualValues(t, n, ran.Load())
	require.EqualValues(t, n, g.Added.Load())
	require.EqualValues(t, n, g.Done.Load())
}

func TestTaskRunsWithTrackedArenaBytes(t *testing.T) {
	globals.Reset()
	g := globals.Init()
	p := New(1, arena.NewPool(), g)

	var mu sync.Mutex
	var order []string
	p.Enqueue(func(a *arena.Arena) {
		b := a.GetBytes(8)
		a.Track(b)
		mu.Lock()
		order = append(order, "ran")
		mu.Unlock()
	})
	p.Join()

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"ran"}, order)
}

func TestProgressLineUsesBackspacesOnRepaint(t *testing.T) {
	globals.Reset()
	g := globals.Init()
	p := New(1, arena.NewPool(), g)

	var mu sync.Mutex
	var out strings.Builder
	p.SetPrinter(func(s string) {
		mu.Lock()
		defer mu.Unlock()
		out.WriteString(s)
	})

	for i := 0; i < 3; i++ {
		p.Enqueue(func(a *arena.Arena) {})
	}
	p.Join()

	mu.Lock()
	defer mu.Unlock()
	require.Contains(t, out.String(), "\b")
	require.Contains(t, out.String(), "3 (3)")
}
