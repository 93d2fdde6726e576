/*
 * garlic - a Java/Dalvik bytecode decompiler
 */

// Package worker implements spec.md §4.7's fixed-size task dispatcher: a
// pool that accepts class-level decompilation jobs, tracks added/done
// counts, and joins before the caller releases per-archive resources.
package worker

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/CrazyForks/garlic/internal/arena"
	"github.com/CrazyForks/garlic/internal/globals"
)

// Clamp applies spec.md §4.7's worker-count rule: W=0 means "use the
// default of 4"; W<2 (i.e. W==1) is clamped up to 1 (a no-op, named
// explicitly in the spec so it's covered here rather than assumed);
// W>16 is clamped down to 16.
func Clamp(w int) int {
	switch {
	case w == 0:
		return 4
	case w < 2:
		return 1
	case w > 16:
		return 16
	default:
		return w
	}
}

// Task is one unit of work: a class-decompilation or Smali-emission job.
// It receives a per-task Arena (released automatically when the task
// returns) and should report any failure through the pool's error sink
// rather than panicking.
type Task func(a *arena.Arena)

// Pool is spec.md §4.7/§5's worker pool: W fixed concurrent slots,
// non-blocking Enqueue, blocking Join. Tasks execute in arbitrary order;
// there is no priority queue -- Enqueue immediately spawns a goroutine
// that blocks on the pool's semaphore, so FIFO-ish ordering is whatever
// the Go scheduler happens to produce, matching the "no priority"
// invariant.
type Pool struct {
	sem    *semaphore.Weighted
	wg     sync.WaitGroup
	arenas *arena.Pool
	g      *globals.Globals

	mu          sync.Mutex // guards progress-line repaint only
	lastPrinted int        // byte width of the last printed progress line
	printer     func(string)
}

// New creates a Pool of the given (pre-clamped) size, drawing per-task
// arenas from arenas and reporting progress against g's Added/Done
// counters.
func New(size int, arenas *arena.Pool, g *globals.Globals) *Pool {
	return &Pool{
		sem:    semaphore.NewWeighted(int64(size)),
		arenas: arenas,
		g:      g,
		printer: func(s string) {
			fmt.Print(s)
		},
	}
}

// SetPrinter overrides where the progress line is written (tests use
// this to capture output instead of going to stdout).
func (p *Pool) SetPrinter(f func(string)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.printer = f
}

// Enqueue submits one task. It returns immediately -- the task itself
// runs on its own goroutine once a pool slot is free. Each task is given
// its own Arena (via the pool's Pool.NewArena) on entry, released on
// exit, per spec.md §5's "arenas strictly per-thread, freed before the
// worker returns to the pool."
func (p *Pool) Enqueue(t Task) {
	p.g.Added.Add(1)
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		if err := p.sem.Acquire(context.Background(), 1); err != nil {
			return
		}
		defer p.sem.Release(1)

		a := p.arenas.NewArena()
		func() {
			defer a.Release()
			t(a)
		}()

		p.onComplete()
	}()
}

// Join blocks until every task enqueued so far has completed.
func (p *Pool) Join() {
	p.wg.Wait()
}

// onComplete increments the Done counter and repaints the single
// progress line using backspace characters, per spec.md §4.7's
// "ApkContext's mutex is acquired, done is incremented, and a single
// progress line is repainted."
func (p *Pool) onComplete() {
	p.mu.Lock()
	defer p.mu.Unlock()

	done := p.g.Done.Add(1)
	added := p.g.Added.Load()

	line := fmt.Sprintf("%d (%d)", done, added)
	backspaces := make([]byte, p.lastPrinted)
	for i := range backspaces {
		backspaces[i] = '\b'
	}
	p.printer(string(backspaces) + line)
	p.lastPrinted = len(line)
}
