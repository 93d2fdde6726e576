/*
 * garlic - a Java/Dalvik bytecode decompiler
 */

// Package jvmlift turns one method's decoded internal/jvminstr
// instruction stream into spec.md §4.5's structured statement list, the
// JVM-pipeline counterpart to internal/lift. SPEC_FULL.md §2 component
// 15 calls the JVM half of this pipeline simpler than the Dalvik one:
// the JVM is already a stack machine with a fixed local-variable array
// per source local, so there is no register-to-local ambiguity for the
// lifter to resolve at a block join the way internal/lift's symState
// handles Dalvik registers -- every local slot means the same source
// local everywhere it's read, so no φ-style merge bookkeeping is needed.
// What internal/lift's symState tracks per-register, this package tracks
// per-operand-stack-position instead.
package jvmlift

import (
	"fmt"

	"github.com/CrazyForks/garlic/internal/arena"
	"github.com/CrazyForks/garlic/internal/classfile"
	"github.com/CrazyForks/garlic/internal/errs"
	"github.com/CrazyForks/garlic/internal/ir"
	"github.com/CrazyForks/garlic/internal/jvminstr"
)

// Method identifies the method being lifted, for diagnostics -- the
// JVM-pipeline counterpart to internal/lift.Method.
type Method struct {
	Class string // declaring class's binary name, e.g. "p/A"
	Name  string
	Desc  string // JVM method descriptor, e.g. "(I)V"
}

func (m Method) String() string {
	return fmt.Sprintf("%s.%s%s", m.Class, m.Name, m.Desc)
}

// Lifter lifts one method's Code attribute.
type Lifter struct {
	cf     *classfile.ClassFile
	method Method
	code   *classfile.CodeAttribute
	static bool
}

// New builds a Lifter for one method. code is nil for abstract/native
// methods; Lift on a nil CodeAttribute returns an empty body immediately,
// matching internal/lift.New's same nil-CodeItem convention.
func New(cf *classfile.ClassFile, method Method, code *classfile.CodeAttribute, static bool) *Lifter {
	return &Lifter{cf: cf, method: method, code: code, static: static}
}

// Lift decodes the method's bytecode and symbolically executes it over
// an operand stack and local-variable table, producing a flat statement
// sequence. Unlike internal/lift, there is no separate partition/fold/
// structured-control-recovery pipeline: branch and switch statements
// carry the decoder's own relative offsets forward unresolved, and
// internal/javasrc renders them as labeled gotos rather than recovered
// while/if-else forms. Any failure surfaces as a *errs.LiftError carrying
// this method's id, for internal/decompile to recover by emitting a
// stub. a is the calling worker task's per-task arena, backing the
// decoded instruction array the same way internal/lift.Lifter.Lift does
// for the Dalvik pipeline.
func (l *Lifter) Lift(a *arena.Arena) ([]ir.Stmt, error) {
	if l.code == nil {
		return nil, nil
	}

	insts, err := jvminstr.DecodeAll(a, l.code.Code)
	if err != nil {
		return nil, l.wrap(err, 0)
	}

	s := newSimState(l.cf, l.method, int(l.code.MaxLocals), l.static)
	var out []ir.Stmt
	for _, inst := range insts {
		stmts, err := s.lift(inst)
		if err != nil {
			return nil, l.wrap(err, inst.Offset)
		}
		out = append(out, stmts...)
	}
	return out, nil
}

func (l *Lifter) wrap(err error, offset uint32) error {
	return &errs.LiftError{MethodID: l.method.String(), Offset: int(offset), Msg: err.Error()}
}
