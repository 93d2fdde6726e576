/*
 * garlic - a Java/Dalvik bytecode decompiler
 * The per-register symbolic-execution bookkeeping (a map of register to
 * its currently-known expression, reset and re-derived block by block)
 * follows the teacher's src/jvm frame-state tracking, generalized from an
 * execution stack to a lift-time expression table.
 */

package lift

import (
	"fmt"

	"github.com/CrazyForks/garlic/internal/arena"
	"github.com/CrazyForks/garlic/internal/dex"
	"github.com/CrazyForks/garlic/internal/dexinstr"
	"github.com/CrazyForks/garlic/internal/errs"
	"github.com/CrazyForks/garlic/internal/ir"
)

// stmtOut is the statement type block.Stmts carries; kept as its own name
// in block.go so that file doesn't need to import internal/ir directly.
type stmtOut = ir.Stmt

// Method identifies the method being lifted, for diagnostics.
type Method struct {
	Class string // declaring class descriptor, e.g. "La/b/Foo;"
	Name  string
	Proto string // shorty form
}

func (m Method) String() string {
	return fmt.Sprintf("%s->%s%s", m.Class, m.Name, m.Proto)
}

// Lifter turns one method's decoded instruction stream into spec.md
// §4.5's structured statement list.
type Lifter struct {
	img    *dex.Image
	method Method
	ci     *dex.CodeItem
}

// New builds a Lifter for one method. ci is nil for abstract/native
// methods; Lift on a nil CodeItem returns an empty body immediately.
func New(img *dex.Image, method Method, ci *dex.CodeItem) *Lifter {
	return &Lifter{img: img, method: method, ci: ci}
}

// Lift runs spec.md §4.5's full pipeline: decode, partition into basic
// blocks, symbolically execute each block's instructions into
// statements, reconstruct try/catch, then recover structured control
// flow. Any failure at any stage surfaces as a *errs.LiftError carrying
// this method's id -- the caller (internal/decompile) recovers by
// emitting the method as a commented stub. a is the calling worker
// task's per-task arena; the decoded instruction array, basic-block
// leader list, and the symbolic executor's resolved-argument lists are
// all backed by it rather than the process-wide pool.
func (l *Lifter) Lift(a *arena.Arena) ([]ir.Stmt, error) {
	if l.ci == nil {
		return nil, nil
	}

	insts, err := dexinstr.DecodeAll(a, l.ci.Insns)
	if err != nil {
		return nil, l.wrap(err, insts)
	}

	var tryStarts, handlerStarts []uint32
	for _, t := range l.ci.Tries {
		tryStarts = append(tryStarts, t.StartAddr)
		if hl, ok := l.ci.HandlerFor(t); ok {
			for _, h := range hl.Handlers {
				handlerStarts = append(handlerStarts, h.Addr)
			}
			if hl.HasCatchAll {
				handlerStarts = append(handlerStarts, hl.CatchAllAddr)
			}
		}
	}

	blocks, err := partition(a, insts, tryStarts, handlerStarts)
	if err != nil {
		return nil, l.wrap(err, insts)
	}

	s := newSymState(l.img, l.method, int(l.ci.RegistersSize), a)
	for _, b := range blocks {
		if err := s.liftBlock(b); err != nil {
			return nil, l.wrap(err, insts)
		}
	}

	flat := flatten(blocks)
	flat = l.wrapTries(flat)
	flat = recoverSynchronized(flat)
	flat = recoverControlFlow(flat)
	flat = foldStmts(flat)

	return flat, nil
}

func (l *Lifter) wrap(err error, insts []dexinstr.Instruction) error {
	offset := 0
	if len(insts) > 0 {
		offset = int(insts[len(insts)-1].Offset)
	}
	return &errs.LiftError{MethodID: l.method.String(), Offset: offset, Msg: err.Error()}
}

// flatten concatenates every block's lifted statements in block-start
// order. Block boundaries themselves carry no meaning once structured
// recovery has a chance to run over the result; blocks exist only to
// drive symbolic execution and try/catch and loop/if-else matching
// (which operate on the block slice directly, not on flat).
func flatten(blocks []*block) []ir.Stmt {
	var out []ir.Stmt
	for _, b := range blocks {
		out = append(out, b.Stmts...)
	}
	return out
}
