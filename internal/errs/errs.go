/*
 * garlic - a Java/Dalvik bytecode decompiler
 * Ported from jacobin's cfe()/CFE() pattern (class-format-error helper
 * with caller file/line) and generalized into the five error kinds named
 * in spec.md §7.
 */

// Package errs defines the error taxonomy that §7 of the specification
// assigns a recovery policy to: InputError and ResourceError abort the
// process, FormatError aborts one archive entry, LiftError aborts one
// method, IOError aborts one task. Callers recover the kind with
// errors.As, not string matching.
package errs

import "fmt"

// InputError: the input path is missing, unreadable, or its magic bytes
// don't match any supported format. Fatal for the whole process.
type InputError struct {
	Path string
	Msg  string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("input error: %s: %s", e.Path, e.Msg)
}

// FormatError: a DEX/class-file structural invariant was violated --
// magic, header size, a section offset+size exceeding the file, a
// ULEB128 that didn't terminate, and so on. Fatal for the entry (one
// .dex or .class) that produced it, not for archive peers.
type FormatError struct {
	Section string
	Offset  int
	Msg     string
}

func (e *FormatError) Error() string {
	if e.Section == "" {
		return fmt.Sprintf("format error at offset %d: %s", e.Offset, e.Msg)
	}
	return fmt.Sprintf("format error in %s at offset %d: %s", e.Section, e.Offset, e.Msg)
}

// LiftError: an instruction decode or CFG inconsistency was hit while
// lifting one method. The method is recoverable -- emitted as a stub --
// so this never aborts the owning class's task.
type LiftError struct {
	MethodID string
	Offset   int
	Msg      string
}

func (e *LiftError) Error() string {
	return fmt.Sprintf("lift error in %s at offset %d: %s", e.MethodID, e.Offset, e.Msg)
}

// IOError: the output directory couldn't be created, or a file couldn't
// be written. Fatal for the one task attempting the write.
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("io error writing %s: %v", e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// ResourceError: allocation failure in the arena. Fatal process-wide --
// there is no recovery path once the process can no longer allocate
// scratch memory.
type ResourceError struct {
	Msg string
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("resource error: %s", e.Msg)
}

// Truncated is returned by internal/binio when a read runs past the end
// of the buffer. It satisfies FormatError's role but is kept distinct so
// callers can special-case "ran out of bytes" vs. "bytes were wrong".
type Truncated struct {
	Offset  int
	Wanted  int
	HaveLen int
}

func (e *Truncated) Error() string {
	return fmt.Sprintf("truncated buffer: wanted %d bytes at offset %d, have %d", e.Wanted, e.Offset, e.HaveLen)
}

// BadEncoding is returned by internal/binio for a malformed variable
// length encoding (ULEB128 longer than its max byte count, an invalid
// MUTF-8 escape).
type BadEncoding struct {
	Offset int
	Msg    string
}

func (e *BadEncoding) Error() string {
	return fmt.Sprintf("bad encoding at offset %d: %s", e.Offset, e.Msg)
}
