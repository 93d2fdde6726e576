/*
 * garlic - a Java/Dalvik bytecode decompiler
 * Grounded on the generic slab allocator used by the reference corpus's
 * code-intelligence indexer (a sync.Pool-backed, tiered slice pool) --
 * adapted here to the decompiler's per-task / process-wide split
 * described in spec.md §5 and §9: the arena is an explicit value threaded
 * through parser and lifter calls, never an ambient/global pointer.
 */

// Package arena implements the region-allocator discipline from spec.md
// §1 and §5: a per-task Arena that a worker owns for the lifetime of one
// class-decompilation task and releases at task end, plus a process-wide
// Pool for structures (parsed DexImage, interned-pool caches) that
// outlive any single task. Both are built on the same tiered,
// sync.Pool-backed slab allocator so short-lived per-task slices (decoded
// instructions, basic blocks, expression nodes) are recycled across
// tasks without the GC pressure of allocating them fresh every time.
package arena

import (
	"reflect"
	"sync"
)

// Tier describes one size class in the slab allocator.
type Tier struct {
	Capacity int
}

// DefaultTiers is sized for the decompiler's own allocation shape: most
// methods decode into a few dozen instructions and a handful of basic
// blocks, a minority (large switch tables, generated code) need much
// more.
var DefaultTiers = []Tier{
	{Capacity: 16},
	{Capacity: 64},
	{Capacity: 256},
	{Capacity: 1024},
	{Capacity: 4096},
}

// Slab is a generic, tiered pool of reusable slices, one tier per entry
// in a Tiers list. Get returns a slice with at least the requested
// capacity and length 0; Put returns it for reuse once the caller is
// done. Safe for concurrent use -- each tier is backed by its own
// sync.Pool.
type Slab[T any] struct {
	tiers []slabTier[T]
}

type slabTier[T any] struct {
	capacity int
	pool     sync.Pool
}

// NewSlab builds a Slab with the given tier sizes.
func NewSlab[T any](tiers []Tier) *Slab[T] {
	s := &Slab[T]{tiers: make([]slabTier[T], len(tiers))}
	for i, t := range tiers {
		cap := t.Capacity
		s.tiers[i] = slabTier[T]{
			capacity: cap,
			pool: sync.Pool{New: func() any {
				return make([]T, 0, cap)
			}},
		}
	}
	return s
}

// Get returns a slice with capacity >= want and length 0.
func (s *Slab[T]) Get(want int) []T {
	for i := range s.tiers {
		t := &s.tiers[i]
		if t.capacity >= want {
			v := t.pool.Get()
			return v.([]T)
		}
	}
	return make([]T, 0, want)
}

// Put returns slice to its tier's pool for reuse, if it came from one.
func (s *Slab[T]) Put(slice []T) {
	if slice == nil {
		return
	}
	c := cap(slice)
	for i := range s.tiers {
		t := &s.tiers[i]
		if t.capacity == c {
			t.pool.Put(slice[:0]) //nolint:staticcheck // intentional: reset len, keep cap
			return
		}
	}
	// capacity doesn't match a tier (e.g. grown past it): let the GC
	// reclaim it rather than forcing it into the wrong tier.
}

// Arena is the per-task scratch allocator described in spec.md §3's Task
// and §5's memory discipline: a worker obtains one on task entry and
// releases it (via Release) on task exit. It never allocates into the
// process-wide Pool.
type Arena struct {
	bytes  *Slab[byte]
	ints   *Slab[int]
	owned  [][]byte
	parent *Pool

	typedMu sync.Mutex
	typed   map[reflect.Type]any // reflect.Type -> *Slab[T], populated lazily by Get/Put
}

// Pool is the process-wide allocator described in spec.md §5: it holds
// long-lived structures such as a parsed DexImage and its interned-pool
// caches. It is released only after the worker pool's Join returns.
type Pool struct {
	bytes *Slab[byte]
}

// NewPool creates the process-wide pool. One Pool is created per run of
// the CLI (or per ApkContext, in archive mode) and lives for the whole
// archive fan-out.
func NewPool() *Pool {
	return &Pool{bytes: NewSlab[byte](DefaultTiers)}
}

// NewArena creates a per-task arena bound to this process-wide pool. The
// binding is only so NewArena can report which Pool it must not allocate
// into by mistake -- Arena's own Get/Put never touch p.
func (p *Pool) NewArena() *Arena {
	return &Arena{
		bytes:  NewSlab[byte](DefaultTiers),
		ints:   NewSlab[int](DefaultTiers),
		parent: p,
		typed:  map[reflect.Type]any{},
	}
}

// GetBytes borrows a scratch byte slice with at least `want` capacity.
func (a *Arena) GetBytes(want int) []byte { return a.bytes.Get(want) }

// PutBytes returns a scratch byte slice obtained from GetBytes.
func (a *Arena) PutBytes(b []byte) { a.bytes.Put(b) }

// GetInts borrows a scratch int slice with at least `want` capacity.
func (a *Arena) GetInts(want int) []int { return a.ints.Get(want) }

// PutInts returns a scratch int slice obtained from GetInts.
func (a *Arena) PutInts(b []int) { a.ints.Put(b) }

// Release returns every byte slice registered with Track back to the
// arena's byte slab. Slices from GetBytes, GetInts or Get that were not
// tracked are not reclaimed here; only an explicit Put returns them.
// Called once, by the worker, when a task completes -- matching spec.md
// §5's "Arenas: strictly per-thread; freed before the worker returns to
// the pool."
func (a *Arena) Release() {
	for _, b := range a.owned {
		a.bytes.Put(b)
	}
	a.owned = a.owned[:0]
}

// Track registers a slice the arena handed out indirectly (e.g. through a
// helper that allocates several buffers) so Release can reclaim it too.
func (a *Arena) Track(b []byte) []byte {
	a.owned = append(a.owned, b)
	return b
}

// slabFor returns this arena's Slab[T], creating it on first use. Get/Put
// are keyed by reflect.Type rather than a typed Arena field so callers in
// packages arena cannot import (dexinstr.Instruction, ir.Expr, and so on)
// still get pooled per-task scratch.
func slabFor[T any](a *Arena) *Slab[T] {
	var zero T
	key := reflect.TypeOf(&zero).Elem()

	a.typedMu.Lock()
	defer a.typedMu.Unlock()
	if s, ok := a.typed[key]; ok {
		return s.(*Slab[T])
	}
	s := NewSlab[T](DefaultTiers)
	a.typed[key] = s
	return s
}

// Get borrows a scratch slice of element type T with at least `want`
// capacity, pooled per-type within a. Used for the decoder's instruction
// array, basic-block leader offsets, and the lifter's resolved
// expression lists -- spec.md §5's per-task decoding scratch.
func Get[T any](a *Arena, want int) []T {
	return slabFor[T](a).Get(want)
}

// Put returns a scratch slice obtained from Get to a's pool for reuse.
func Put[T any](a *Arena, s []T) {
	slabFor[T](a).Put(s)
}
