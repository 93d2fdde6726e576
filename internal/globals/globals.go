/*
 * garlic - a Java/Dalvik bytecode decompiler
 * Ported from the jacobin JVM's globals package and generalized to the
 * decompiler's own process-wide state.
 */

// Package globals holds the small amount of process-wide state that every
// worker and parser needs to reach without it being threaded through every
// call: the configured trace level, the output root, and the worker count.
// It deliberately holds nothing that a task mutates during its own run --
// that belongs to the per-task arena (see internal/arena). Everything here
// is either read-only after Init or updated only via atomics.
package globals

import (
	"sync"
	"sync/atomic"
)

// TraceLevel mirrors the FINE/INFO/WARNING/SEVERE levels used by
// internal/trace.
type TraceLevel int32

const (
	TraceSevere TraceLevel = iota
	TraceWarning
	TraceInfo
	TraceFine
)

// Globals is the process-wide, mostly-immutable configuration block.
type Globals struct {
	// StartingPath is the input file passed on the command line.
	StartingPath string

	// OutputDir is the root directory decompiled/smali output is written
	// under. Empty in dump mode (stdout only).
	OutputDir string

	// WorkerCount is the clamped pool size computed from -t (see
	// internal/worker.Clamp).
	WorkerCount int

	// traceLevel is read with atomic.LoadInt32 so trace.Log can be called
	// from any worker goroutine without a lock.
	traceLevel int32

	// Added and Done mirror spec.md's ApkContext counters for the
	// currently running archive fan-out, if any. They are exported so the
	// CLI's progress line can read them without reaching into the worker
	// pool.
	Added atomic.Int64
	Done  atomic.Int64
}

var (
	once    sync.Once
	current *Globals
)

// Init installs the process-wide Globals. Safe to call more than once;
// only the first call takes effect, matching the teacher's one-shot
// Init() pattern -- tests that need a fresh block call Reset first.
func Init() *Globals {
	once.Do(func() {
		current = &Globals{traceLevel: int32(TraceWarning)}
	})
	return current
}

// Reset is for tests: it discards the singleton so the next Init call
// rebuilds it from scratch.
func Reset() {
	once = sync.Once{}
	current = nil
}

// Get returns the process-wide Globals, initializing it on first use.
func Get() *Globals {
	if current == nil {
		return Init()
	}
	return current
}

// SetTraceLevel atomically updates the trace level.
func (g *Globals) SetTraceLevel(l TraceLevel) {
	atomic.StoreInt32(&g.traceLevel, int32(l))
}

// TraceLevel atomically reads the trace level.
func (g *Globals) TraceLevel() TraceLevel {
	return TraceLevel(atomic.LoadInt32(&g.traceLevel))
}
