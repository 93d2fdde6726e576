/*
 * garlic - a Java/Dalvik bytecode decompiler
 */

package lift

import (
	"fmt"

	"github.com/CrazyForks/garlic/internal/arena"
	"github.com/CrazyForks/garlic/internal/dex"
	"github.com/CrazyForks/garlic/internal/dexinstr"
	"github.com/CrazyForks/garlic/internal/ir"
)

// symState is the lifter's per-method register table. Dalvik is already a
// register/local machine, not an SSA form -- d8/dx allocate one fixed
// register per source local across every merge point, so a register's
// value at a block entry is simply its own name: unlike real phi nodes,
// there is nothing to disambiguate at a join, only whichever predecessor
// last wrote it. regExpr therefore holds, for each register, either the
// plain named local (the default, and the φ-merge value at any block
// with more than one predecessor) or -- within a single block, before
// the register is next reassigned or the block ends -- the pure
// expression that defined it, so a handful of adjacent pure instructions
// fold into one expression tree instead of one statement each.
type symState struct {
	img    *dex.Image
	method Method
	regs   int
	arena  *arena.Arena

	regExpr map[uint16]ir.Expr

	// pendingNewInstance holds a new-instance result not yet collapsed
	// with its <init> call (spec.md §4.5's new-instance/invoke-direct
	// collapse).
	pendingNewInstance map[uint16]*ir.NewInstance
}

func newSymState(img *dex.Image, method Method, regs int, a *arena.Arena) *symState {
	return &symState{
		img:                img,
		method:             method,
		regs:               regs,
		arena:              a,
		regExpr:            map[uint16]ir.Expr{},
		pendingNewInstance: map[uint16]*ir.NewInstance{},
	}
}

func local(reg uint16) ir.LocalRef {
	return ir.LocalRef{Name: fmt.Sprintf("v%d", reg)}
}

// resolveReg returns the register's current expression, materializing
// (emitting an Assign for) any still-pending new-instance first -- a use
// other than the matching <init> call forces it to become a plain local.
func (s *symState) resolveReg(b *block, reg uint16, offset uint32) ir.Expr {
	if pending, ok := s.pendingNewInstance[reg]; ok {
		s.emit(b, ir.Assign{Node: ir.Node{Offset: offset}, Target: local(reg), Value: *pending})
		delete(s.pendingNewInstance, reg)
		s.regExpr[reg] = local(reg)
	}
	if e, ok := s.regExpr[reg]; ok {
		return e
	}
	return local(reg)
}

func (s *symState) setReg(reg uint16, e ir.Expr) {
	delete(s.pendingNewInstance, reg)
	s.regExpr[reg] = e
}

func (s *symState) emit(b *block, stmt ir.Stmt) {
	b.Stmts = append(b.Stmts, stmt)
}

// liftBlock resets the register table to "every register is its own
// named local" at block entry (the φ-merge rule above), then lifts each
// instruction in turn.
func (s *symState) liftBlock(b *block) error {
	s.regExpr = map[uint16]ir.Expr{}
	s.pendingNewInstance = map[uint16]*ir.NewInstance{}

	insts := b.Insts
	for i := 0; i < len(insts); i++ {
		inst := insts[i]
		if inst.Format == dexinstr.Format("payload") {
			continue // data, never executed directly
		}
		consumed, err := s.liftInstruction(b, insts, i)
		if err != nil {
			return err
		}
		i += consumed
	}
	return nil
}

// liftInstruction lifts insts[i], returning how many *additional*
// instructions it consumed (e.g. a fused move-result).
func (s *symState) liftInstruction(b *block, insts []dexinstr.Instruction, i int) (int, error) {
	inst := insts[i]
	op := inst.Opcode
	node := ir.Node{Offset: inst.Offset}

	switch {
	case isMove(op):
		dst, src := inst.Regs[0], inst.Regs[1]
		s.setReg(dst, s.resolveReg(b, src, inst.Offset))
		s.emit(b, ir.Assign{Node: node, Target: local(dst), Value: s.regExpr[dst]})
		return 0, nil

	case op == dexinstr.OpMoveResult || op == dexinstr.OpMoveResultWide || op == dexinstr.OpMoveResultObject:
		// A bare move-result with nothing preceding it in this block
		// (e.g. after a handler entry or cross-block result) still
		// needs a value -- without the producing invoke visible, name
		// it as its own local; the common case is consumed inline by
		// the invoke-* arm below instead of ever reaching here.
		dst := inst.Regs[0]
		s.setReg(dst, local(dst))
		return 0, nil

	case op == dexinstr.OpMoveException:
		dst := inst.Regs[0]
		s.setReg(dst, local(dst))
		return 0, nil

	case op == dexinstr.OpConst4 || op == dexinstr.OpConst16 || op == dexinstr.OpConst || op == dexinstr.OpConstHigh16:
		dst := inst.Regs[0]
		v := ir.IntLiteral{Node: node, Value: int32(inst.Literal)}
		s.setReg(dst, v)
		s.emit(b, ir.Assign{Node: node, Target: local(dst), Value: v})
		return 0, nil

	case op == dexinstr.OpConstWide16 || op == dexinstr.OpConstWide32 || op == dexinstr.OpConstWide || op == dexinstr.OpConstWideHigh16:
		dst := inst.Regs[0]
		v := ir.LongLiteral{Node: node, Value: inst.Literal}
		s.setReg(dst, v)
		s.emit(b, ir.Assign{Node: node, Target: local(dst), Value: v})
		return 0, nil

	case op == dexinstr.OpConstString || op == dexinstr.OpConstStringJumbo:
		dst := inst.Regs[0]
		str, err := s.img.Strings.Get(inst.Index)
		if err != nil {
			return 0, err
		}
		v := ir.StringLiteral{Node: node, Value: str}
		s.setReg(dst, v)
		s.emit(b, ir.Assign{Node: node, Target: local(dst), Value: v})
		return 0, nil

	case op == dexinstr.OpConstClass:
		dst := inst.Regs[0]
		descr, err := s.img.Types.Descriptor(inst.Index)
		if err != nil {
			return 0, err
		}
		v := ir.ClassLiteral{Node: node, Descriptor: descr}
		s.setReg(dst, v)
		s.emit(b, ir.Assign{Node: node, Target: local(dst), Value: v})
		return 0, nil

	case op == dexinstr.OpCheckCast:
		reg := inst.Regs[0]
		descr, err := s.img.Types.Descriptor(inst.Index)
		if err != nil {
			return 0, err
		}
		v := ir.Cast{Node: node, Type: descr, Operand: s.resolveReg(b, reg, inst.Offset)}
		s.setReg(reg, v)
		s.emit(b, ir.Assign{Node: node, Target: local(reg), Value: v})
		return 0, nil

	case op == dexinstr.OpInstanceOf:
		dst, obj := inst.Regs[0], inst.Regs[1]
		descr, err := s.img.Types.Descriptor(inst.Index)
		if err != nil {
			return 0, err
		}
		v := ir.InstanceOf{Node: node, Type: descr, Operand: s.resolveReg(b, obj, inst.Offset)}
		s.setReg(dst, v)
		s.emit(b, ir.Assign{Node: node, Target: local(dst), Value: v})
		return 0, nil

	case op == dexinstr.OpArrayLength:
		dst, arr := inst.Regs[0], inst.Regs[1]
		v := ir.UnaryOp{Node: node, Op: "array-length", Operand: s.resolveReg(b, arr, inst.Offset)}
		s.setReg(dst, v)
		s.emit(b, ir.Assign{Node: node, Target: local(dst), Value: v})
		return 0, nil

	case op == dexinstr.OpNewInstance:
		dst := inst.Regs[0]
		descr, err := s.img.Types.Descriptor(inst.Index)
		if err != nil {
			return 0, err
		}
		ni := &ir.NewInstance{Node: node, Type: descr}
		s.pendingNewInstance[dst] = ni
		s.regExpr[dst] = *ni
		return 0, nil

	case op == dexinstr.OpNewArray:
		dst, size := inst.Regs[0], inst.Regs[1]
		descr, err := s.img.Types.Descriptor(inst.Index)
		if err != nil {
			return 0, err
		}
		v := ir.NewArray{Node: node, ElementType: descr, Size: s.resolveReg(b, size, inst.Offset)}
		s.setReg(dst, v)
		s.emit(b, ir.Assign{Node: node, Target: local(dst), Value: v})
		return 0, nil

	case op == dexinstr.OpFilledNewArray || op == dexinstr.OpFilledNewArrayRange:
		descr, err := s.img.Types.Descriptor(inst.Index)
		if err != nil {
			return 0, err
		}
		elems := s.resolveRegList(b, inst)
		v := ir.FilledNewArray{Node: node, ElementType: descr, Elements: elems}
		consumed := 0
		if i+1 < len(insts) && insts[i+1].Opcode == dexinstr.OpMoveResultObject {
			dst := insts[i+1].Regs[0]
			s.setReg(dst, v)
			s.emit(b, ir.Assign{Node: node, Target: local(dst), Value: v})
			consumed = 1
		} else {
			s.emit(b, ir.ExprStmt{Node: node, Expr: v})
		}
		return consumed, nil

	case op == dexinstr.OpFillArrayData:
		reg := inst.Regs[0]
		payload := findPayload(insts, i)
		if payload == nil || payload.FillArrayData == nil {
			return 0, fmt.Errorf("fill-array-data at offset %d has no payload", inst.Offset)
		}
		v := ir.ArrayInitializer{Node: node, ElementWidth: payload.FillArrayData.ElementWidth, Data: payload.FillArrayData.Data}
		s.emit(b, ir.Assign{Node: node, Target: local(reg), Value: v})
		return 0, nil

	case op == dexinstr.OpThrow:
		s.emit(b, ir.Throw{Node: node, Value: s.resolveReg(b, inst.Regs[0], inst.Offset)})
		return 0, nil

	case op == dexinstr.OpReturnVoid:
		s.emit(b, ir.Return{Node: node})
		return 0, nil

	case op == dexinstr.OpReturn || op == dexinstr.OpReturnWide || op == dexinstr.OpReturnObject:
		s.emit(b, ir.Return{Node: node, Value: s.resolveReg(b, inst.Regs[0], inst.Offset)})
		return 0, nil

	case op == dexinstr.OpMonitorEnter:
		s.emit(b, ir.MonitorEnter{Node: node, Object: s.resolveReg(b, inst.Regs[0], inst.Offset)})
		return 0, nil

	case op == dexinstr.OpMonitorExit:
		s.emit(b, ir.MonitorExit{Node: node, Object: s.resolveReg(b, inst.Regs[0], inst.Offset)})
		return 0, nil

	case op == dexinstr.OpGoto || op == dexinstr.OpGoto16 || op == dexinstr.OpGoto32:
		s.emit(b, ir.Goto{Node: node, Target: inst.Target})
		return 0, nil

	case op == dexinstr.OpPackedSwitch || op == dexinstr.OpSparseSwitch:
		return 0, s.liftSwitch(b, insts, i)

	case isIfz(op):
		reg := inst.Regs[0]
		s.emit(b, ir.IfGoto{
			Node: node, Op: dexinstr.Name(op),
			Left: s.resolveReg(b, reg, inst.Offset), Right: ir.IntLiteral{Value: 0},
			Target: inst.Target,
		})
		return 0, nil

	case isIf(op):
		left, right := inst.Regs[0], inst.Regs[1]
		s.emit(b, ir.IfGoto{
			Node: node, Op: dexinstr.Name(op),
			Left: s.resolveReg(b, left, inst.Offset), Right: s.resolveReg(b, right, inst.Offset),
			Target: inst.Target,
		})
		return 0, nil

	case isCompare(op):
		dst, left, right := inst.Regs[0], inst.Regs[1], inst.Regs[2]
		v := ir.Compare{
			Node: node, Op: dexinstr.Name(op), Bias: compareBias(op),
			Left: s.resolveReg(b, left, inst.Offset), Right: s.resolveReg(b, right, inst.Offset),
		}
		s.setReg(dst, v)
		s.emit(b, ir.Assign{Node: node, Target: local(dst), Value: v})
		return 0, nil

	case isUnop(op):
		dst, operand := inst.Regs[0], inst.Regs[1]
		v := ir.UnaryOp{Node: node, Op: dexinstr.Name(op), Operand: s.resolveReg(b, operand, inst.Offset)}
		s.setReg(dst, v)
		s.emit(b, ir.Assign{Node: node, Target: local(dst), Value: v})
		return 0, nil

	case isBinop(op):
		return 0, s.liftBinop(b, inst, node)

	case isArrayGet(op):
		dst, arr, idx := inst.Regs[0], inst.Regs[1], inst.Regs[2]
		v := ir.ArrayAccess{Node: node, Array: s.resolveReg(b, arr, inst.Offset), Index: s.resolveReg(b, idx, inst.Offset)}
		s.setReg(dst, v)
		s.emit(b, ir.Assign{Node: node, Target: local(dst), Value: v})
		return 0, nil

	case isArrayPut(op):
		src, arr, idx := inst.Regs[0], inst.Regs[1], inst.Regs[2]
		target := ir.ArrayAccess{Node: node, Array: s.resolveReg(b, arr, inst.Offset), Index: s.resolveReg(b, idx, inst.Offset)}
		s.emit(b, ir.Assign{Node: node, Target: target, Value: s.resolveReg(b, src, inst.Offset)})
		return 0, nil

	case isInstanceFieldGet(op):
		dst, obj := inst.Regs[0], inst.Regs[1]
		class, typ, name, err := s.img.FieldName(inst.Index)
		if err != nil {
			return 0, err
		}
		v := ir.FieldAccess{Node: node, Class: class, Type: typ, Name: name, Receiver: s.resolveReg(b, obj, inst.Offset)}
		s.setReg(dst, v)
		s.emit(b, ir.Assign{Node: node, Target: local(dst), Value: v})
		return 0, nil

	case isInstanceFieldPut(op):
		src, obj := inst.Regs[0], inst.Regs[1]
		class, typ, name, err := s.img.FieldName(inst.Index)
		if err != nil {
			return 0, err
		}
		target := ir.FieldAccess{Node: node, Class: class, Type: typ, Name: name, Receiver: s.resolveReg(b, obj, inst.Offset)}
		s.emit(b, ir.Assign{Node: node, Target: target, Value: s.resolveReg(b, src, inst.Offset)})
		return 0, nil

	case isStaticFieldGet(op):
		dst := inst.Regs[0]
		class, typ, name, err := s.img.FieldName(inst.Index)
		if err != nil {
			return 0, err
		}
		v := ir.FieldAccess{Node: node, Static: true, Class: class, Type: typ, Name: name}
		s.setReg(dst, v)
		s.emit(b, ir.Assign{Node: node, Target: local(dst), Value: v})
		return 0, nil

	case isStaticFieldPut(op):
		src := inst.Regs[0]
		class, typ, name, err := s.img.FieldName(inst.Index)
		if err != nil {
			return 0, err
		}
		target := ir.FieldAccess{Node: node, Static: true, Class: class, Type: typ, Name: name}
		s.emit(b, ir.Assign{Node: node, Target: target, Value: s.resolveReg(b, src, inst.Offset)})
		return 0, nil

	case isInvoke(op):
		return s.liftInvoke(b, insts, i)

	case op == dexinstr.OpNop:
		return 0, nil

	default:
		return 0, fmt.Errorf("unhandled opcode %s at offset %d", dexinstr.Name(op), inst.Offset)
	}
}

func (s *symState) resolveRegList(b *block, inst dexinstr.Instruction) []ir.Expr {
	regs := inst.Regs
	if inst.RegRange != nil {
		first, end := inst.RegRange[0], inst.RegRange[1]
		regs = arena.Get[uint16](s.arena, int(end-first))
		for r := first; r < end; r++ {
			regs = append(regs, r)
		}
		defer arena.Put(s.arena, regs)
	}
	out := arena.Get[ir.Expr](s.arena, len(regs))
	for _, r := range regs {
		out = append(out, s.resolveReg(b, r, inst.Offset))
	}
	return out
}

func findPayload(insts []dexinstr.Instruction, from int) *dexinstr.PayloadData {
	if from >= len(insts) {
		return nil
	}
	target := uint32(int64(insts[from].Offset) + int64(insts[from].Target))
	for _, in := range insts {
		if in.Offset == target && in.Payload != nil {
			return in.Payload
		}
	}
	return nil
}

func (s *symState) liftSwitch(b *block, insts []dexinstr.Instruction, i int) error {
	inst := insts[i]
	payload := findPayload(insts, i)
	if payload == nil {
		return fmt.Errorf("switch at offset %d has no payload", inst.Offset)
	}
	key := s.resolveReg(b, inst.Regs[0], inst.Offset)
	node := ir.Node{Offset: inst.Offset}
	sw := ir.Switch{Node: node, Default: int32(inst.Width)}
	switch {
	case payload.PackedSwitch != nil:
		sw.Kind = ir.SwitchPacked
		for j, t := range payload.PackedSwitch.Targets {
			sw.Cases = append(sw.Cases, ir.SwitchCase{Key: payload.PackedSwitch.FirstKey + int32(j), Target: t})
		}
	case payload.SparseSwitch != nil:
		sw.Kind = ir.SwitchSparse
		for j, k := range payload.SparseSwitch.Keys {
			sw.Cases = append(sw.Cases, ir.SwitchCase{Key: k, Target: payload.SparseSwitch.Targets[j]})
		}
	default:
		return fmt.Errorf("switch at offset %d points at a non-switch payload", inst.Offset)
	}
	sw.Key = key
	s.emit(b, sw)
	return nil
}

// liftBinop lifts both the 3-register and the /2addr 2-register forms,
// plus /lit16 and /lit8, all of which resolve to the same BinaryOp
// mnemonic stem (dexinstr.Name strips the /2addr, /lit16, /lit8 suffix
// distinction only in spelling, not semantics, so the mnemonic is
// normalized here to the plain "op-int" form the IR expects).
func (s *symState) liftBinop(b *block, inst dexinstr.Instruction, node ir.Node) error {
	name := normalizeBinopName(dexinstr.Name(inst.Opcode))
	var dst uint16
	var left, right ir.Expr

	switch inst.Format {
	case dexinstr.Fmt23x:
		dst = inst.Regs[0]
		left = s.resolveReg(b, inst.Regs[1], inst.Offset)
		right = s.resolveReg(b, inst.Regs[2], inst.Offset)
	case dexinstr.Fmt12x:
		dst = inst.Regs[0]
		left = s.resolveReg(b, inst.Regs[0], inst.Offset)
		right = s.resolveReg(b, inst.Regs[1], inst.Offset)
	case dexinstr.Fmt22s, dexinstr.Fmt22b:
		dst = inst.Regs[0]
		left = s.resolveReg(b, inst.Regs[1], inst.Offset)
		right = ir.IntLiteral{Value: int32(inst.Literal)}
	default:
		return fmt.Errorf("unexpected binop format %s at offset %d", inst.Format, inst.Offset)
	}

	v := foldBinary(name, left, right)
	s.setReg(dst, v)
	s.emit(b, ir.Assign{Node: node, Target: local(dst), Value: v})
	return nil
}

func (s *symState) liftInvoke(b *block, insts []dexinstr.Instruction, i int) (int, error) {
	inst := insts[i]
	m, err := s.img.Methods.Get(inst.Index)
	if err != nil {
		return 0, err
	}
	class, err := s.img.Types.Descriptor(uint32(m.ClassIdx))
	if err != nil {
		return 0, err
	}
	name, err := s.img.Strings.Get(m.NameIdx)
	if err != nil {
		return 0, err
	}
	shorty, err := s.img.Protos.Shorty(uint32(m.ProtoIdx))
	if err != nil {
		return 0, err
	}

	kind := invokeKind(inst.Opcode)
	args := s.resolveRegList(b, inst)
	var receiver ir.Expr
	if kind != ir.InvokeStatic && len(args) > 0 {
		receiver, args = args[0], args[1:]
	}

	node := ir.Node{Offset: inst.Offset}
	call := ir.MethodInvoke{Node: node, Kind: kind, Class: class, Name: name, Proto: shorty, Receiver: receiver, Args: args}

	if name == "<init>" && kind == ir.InvokeDirect {
		if recvLocal, ok := receiver.(ir.LocalRef); ok {
			for reg, pending := range s.pendingNewInstance {
				if local(reg).Name == recvLocal.Name {
					pending.CtorProto = shorty
					pending.Args = args
					s.emit(b, ir.Assign{Node: node, Target: local(reg), Value: *pending})
					delete(s.pendingNewInstance, reg)
					s.regExpr[reg] = local(reg)
					return 0, nil
				}
			}
		}
	}

	if i+1 < len(insts) {
		next := insts[i+1]
		if next.Opcode == dexinstr.OpMoveResult || next.Opcode == dexinstr.OpMoveResultWide || next.Opcode == dexinstr.OpMoveResultObject {
			dst := next.Regs[0]
			s.setReg(dst, call)
			s.emit(b, ir.Assign{Node: node, Target: local(dst), Value: call})
			return 1, nil
		}
	}
	s.emit(b, ir.ExprStmt{Node: node, Expr: call})
	return 0, nil
}
