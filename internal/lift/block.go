/*
 * garlic - a Java/Dalvik bytecode decompiler
 */

// Package lift implements spec.md §4.5's control-flow & expression
// lifter: it turns one method's decoded Dalvik instruction stream into a
// structured statement list. This is the heart of the system (spec.md
// §2's largest single budget line).
package lift

import (
	"sort"

	"github.com/CrazyForks/garlic/internal/arena"
	"github.com/CrazyForks/garlic/internal/dexinstr"
)

// block is one basic block: a maximal run of instructions with a single
// entry and (conceptually) a single exit, per spec.md §4.5 stage 1.
type block struct {
	Start uint32
	Insts []dexinstr.Instruction

	// Succs holds the Start offsets of every successor block, in a
	// stable order: fallthrough (if any) first, then explicit branch
	// targets.
	Succs []uint32
	Preds []uint32

	Stmts []stmtOut // filled in during operation lifting (lift.go)
}

// isTerminator reports whether inst ends a basic block (branch, switch,
// return, or throw) -- the instruction immediately after one is always a
// leader.
func isTerminator(inst dexinstr.Instruction) bool {
	switch inst.Format {
	case dexinstr.Fmt10t, dexinstr.Fmt20t, dexinstr.Fmt30t:
		return true // goto family
	case dexinstr.Fmt21t, dexinstr.Fmt22t:
		return true // if-* family
	}
	switch inst.Opcode {
	case dexinstr.OpReturnVoid, dexinstr.OpReturn, dexinstr.OpReturnWide, dexinstr.OpReturnObject,
		dexinstr.OpThrow, dexinstr.OpPackedSwitch, dexinstr.OpSparseSwitch:
		return true
	}
	return false
}

func branchTarget(inst dexinstr.Instruction) (uint32, bool) {
	switch inst.Format {
	case dexinstr.Fmt10t, dexinstr.Fmt20t, dexinstr.Fmt30t, dexinstr.Fmt21t, dexinstr.Fmt22t:
		return uint32(int64(inst.Offset) + int64(inst.Target)), true
	}
	if inst.Opcode == dexinstr.OpPackedSwitch || inst.Opcode == dexinstr.OpSparseSwitch || inst.Opcode == dexinstr.OpFillArrayData {
		return uint32(int64(inst.Offset) + int64(inst.Target)), true
	}
	return 0, false
}

func isConditionalBranch(inst dexinstr.Instruction) bool {
	return inst.Format == dexinstr.Fmt21t || inst.Format == dexinstr.Fmt22t
}

// partition implements spec.md §4.5 stage 1: leaders are instruction 0,
// every branch/switch target, the instruction following a
// branch/return/throw/switch, and every try-block start / handler start.
func partition(a *arena.Arena, insts []dexinstr.Instruction, tryStarts, handlerStarts []uint32) ([]*block, error) {
	byOffset := make(map[uint32]int, len(insts))
	for i, inst := range insts {
		byOffset[inst.Offset] = i
	}

	leaders := map[uint32]bool{}
	if len(insts) > 0 {
		leaders[insts[0].Offset] = true
	}
	for i, inst := range insts {
		if inst.Format == "payload" {
			continue
		}
		if target, ok := branchTarget(inst); ok {
			if _, known := byOffset[target]; known {
				leaders[target] = true
			}
		}
		if isTerminator(inst) && i+1 < len(insts) {
			leaders[insts[i+1].Offset] = true
		}
	}
	for _, s := range tryStarts {
		leaders[s] = true
	}
	for _, s := range handlerStarts {
		leaders[s] = true
	}

	starts := arena.Get[uint32](a, len(leaders))
	for s := range leaders {
		if _, ok := byOffset[s]; ok {
			starts = append(starts, s)
		}
	}
	sort.Slice(starts, func(i, j int) bool { return starts[i] < starts[j] })

	blocks := make([]*block, 0, len(starts))
	index := make(map[uint32]*block, len(starts))
	for i, s := range starts {
		end := len(insts)
		if i+1 < len(starts) {
			end = byOffset[starts[i+1]]
		}
		b := &block{Start: s, Insts: insts[byOffset[s]:end]}
		blocks = append(blocks, b)
		index[s] = b
	}

	for i, b := range blocks {
		if len(b.Insts) == 0 {
			continue
		}
		last := b.Insts[len(b.Insts)-1]
		if last.Format == "payload" {
			continue
		}
		if target, ok := branchTarget(last); ok {
			if _, known := index[target]; known {
				b.Succs = append(b.Succs, target)
			}
		}
		isUnconditionalExit := isTerminator(last) && !isConditionalBranch(last) &&
			last.Opcode != dexinstr.OpPackedSwitch && last.Opcode != dexinstr.OpSparseSwitch
		if !isUnconditionalExit && i+1 < len(blocks) {
			b.Succs = append([]uint32{blocks[i+1].Start}, b.Succs...)
		}
	}
	for _, b := range blocks {
		for _, s := range b.Succs {
			if t, ok := index[s]; ok {
				t.Preds = append(t.Preds, b.Start)
			}
		}
	}

	return blocks, nil
}
