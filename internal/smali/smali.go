/*
 * garlic - a Java/Dalvik bytecode decompiler
 */

// Package smali implements spec.md §4.6's Smali emitter: a linear walk
// of the decoded instruction stream with synthesized labels for every
// branch target and handler start, formatted in the Smali convention
// (one instruction per line, `.try_start_*`/`.catch`/switch-payload
// directives). Unlike internal/javasrc, the emitter never consults
// internal/lift's recovered control-flow tree -- Smali output mirrors
// the original linear bytecode, not a decompiled structure, so it walks
// internal/dexinstr.Instruction directly.
package smali

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/CrazyForks/garlic/internal/arena"
	"github.com/CrazyForks/garlic/internal/dex"
	"github.com/CrazyForks/garlic/internal/dexinstr"
)

// EmitMethod renders one method body in Smali form, per spec.md §4.6. ci
// is nil for abstract/native methods, which have no instructions to
// render; img may be nil in contexts (tests, a bare CodeItem with no
// backing pools) where no instruction in ci ever resolves a string/type/
// field/method index. a backs the decoded instruction array with the
// calling task's per-task arena.
func EmitMethod(a *arena.Arena, img *dex.Image, ci *dex.CodeItem) (string, error) {
	if ci == nil {
		return "", nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "    .registers %d\n", ci.RegistersSize)

	insts, err := dexinstr.DecodeAll(a, ci.Insns)
	if err != nil {
		return "", err
	}

	labels := collectLabels(ci, insts)
	tries, err := collectTries(img, ci, labels)
	if err != nil {
		return "", err
	}

	for _, inst := range insts {
		emitTryEndsAndCatches(&b, tries, inst.Offset)
		emitTryStarts(&b, tries, inst.Offset)
		if name, ok := labels[inst.Offset]; ok {
			fmt.Fprintf(&b, "    %s\n", name)
		}

		if inst.Payload != nil {
			writePayload(&b, inst, insts, labels)
			continue
		}

		line, err := renderInstruction(img, inst, labels)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "    %s\n", line)
	}

	end := codeUnitsLen(ci.Insns)
	emitTryEndsAndCatches(&b, tries, end)

	return b.String(), nil
}

func codeUnitsLen(insns []uint16) uint32 { return uint32(len(insns)) }

func reg(n uint16) string { return fmt.Sprintf("v%d", n) }

func regsJoin(regs []uint16) string {
	parts := make([]string, len(regs))
	for i, r := range regs {
		parts[i] = reg(r)
	}
	return strings.Join(parts, ", ")
}

// --- label collection ---

// collectLabels implements spec.md §4.6's "labels are synthesized for
// every branch target and handler start": every instruction whose
// format carries a branch Target, every packed/sparse-switch case
// target, and every try-handler start address gets a `:label_%04x`
// label keyed from the byte offset of the target (2 bytes per Dalvik
// code unit).
func collectLabels(ci *dex.CodeItem, insts []dexinstr.Instruction) map[uint32]string {
	offsets := map[uint32]bool{}

	for _, inst := range insts {
		if inst.Payload != nil {
			continue
		}
		switch inst.Format {
		case dexinstr.Fmt10t, dexinstr.Fmt20t, dexinstr.Fmt30t, dexinstr.Fmt21t, dexinstr.Fmt22t, dexinstr.Fmt31t:
			target := uint32(int64(inst.Offset) + int64(inst.Target))
			offsets[target] = true
			if inst.Opcode == dexinstr.OpPackedSwitch || inst.Opcode == dexinstr.OpSparseSwitch {
				collectSwitchCaseLabels(insts, inst, target, offsets)
			}
		}
	}

	for _, h := range ci.Handlers {
		for _, c := range h.Handlers {
			offsets[c.Addr] = true
		}
		if h.HasCatchAll {
			offsets[h.CatchAllAddr] = true
		}
	}

	labels := make(map[uint32]string, len(offsets))
	for off := range offsets {
		labels[off] = fmt.Sprintf(":label_%04x", off*2)
	}
	return labels
}

// collectSwitchCaseLabels resolves the case targets of the
// packed/sparse-switch payload sw's Target points to: each is relative
// to sw's own offset, not the payload's (spec.md §4.4's payload
// decoding note).
func collectSwitchCaseLabels(insts []dexinstr.Instruction, sw dexinstr.Instruction, payloadOffset uint32, offsets map[uint32]bool) {
	for _, p := range insts {
		if p.Offset != payloadOffset || p.Payload == nil {
			continue
		}
		switch {
		case p.Payload.PackedSwitch != nil:
			for _, rel := range p.Payload.PackedSwitch.Targets {
				offsets[uint32(int64(sw.Offset)+int64(rel))] = true
			}
		case p.Payload.SparseSwitch != nil:
			for _, rel := range p.Payload.SparseSwitch.Targets {
				offsets[uint32(int64(sw.Offset)+int64(rel))] = true
			}
		}
	}
}

// --- try/catch directives ---

type tryDirective struct {
	startName, endName string
	start, end         uint32
	catches            []string // pre-rendered ".catch"/".catch-all" lines
}

// collectTries builds spec.md §4.6's `.try_start_*`/`.catch` directive
// set from the code_item's try/handler tables, named sequentially
// (try_start_0, try_end_0, ...) in try-table order.
func collectTries(img *dex.Image, ci *dex.CodeItem, labels map[uint32]string) ([]tryDirective, error) {
	out := make([]tryDirective, 0, len(ci.Tries))
	for i, t := range ci.Tries {
		startName := fmt.Sprintf(":try_start_%d", i)
		endName := fmt.Sprintf(":try_end_%d", i)
		d := tryDirective{
			startName: startName,
			endName:   endName,
			start:     t.StartAddr,
			end:       t.StartAddr + uint32(t.InsnCount),
		}
		if hl, ok := ci.HandlerFor(t); ok {
			for _, h := range hl.Handlers {
				typ, err := exceptionType(img, h.TypeIdx)
				if err != nil {
					return nil, err
				}
				target := labels[h.Addr]
				d.catches = append(d.catches, fmt.Sprintf(".catch %s {%s .. %s} %s", typ, startName, endName, target))
			}
			if hl.HasCatchAll {
				target := labels[hl.CatchAllAddr]
				d.catches = append(d.catches, fmt.Sprintf(".catch-all {%s .. %s} %s", startName, endName, target))
			}
		}
		out = append(out, d)
	}
	return out, nil
}

func exceptionType(img *dex.Image, typeIdx uint32) (string, error) {
	if img == nil {
		return fmt.Sprintf("type@%d", typeIdx), nil
	}
	return img.Types.Descriptor(typeIdx)
}

func emitTryStarts(b *strings.Builder, tries []tryDirective, offset uint32) {
	for _, t := range tries {
		if t.start == offset {
			fmt.Fprintf(b, "    %s\n", t.startName)
		}
	}
}

func emitTryEndsAndCatches(b *strings.Builder, tries []tryDirective, offset uint32) {
	for _, t := range tries {
		if t.end != offset {
			continue
		}
		fmt.Fprintf(b, "    %s\n", t.endName)
		for _, c := range t.catches {
			fmt.Fprintf(b, "    %s\n", c)
		}
	}
}

// --- payload directive rendering ---

func writePayload(b *strings.Builder, inst dexinstr.Instruction, insts []dexinstr.Instruction, labels map[uint32]string) {
	// Switch case targets are relative to the switch instruction that
	// references this payload (see collectSwitchCaseLabels).
	base := inst.Offset
	for _, sw := range insts {
		if sw.Payload == nil && (sw.Opcode == dexinstr.OpPackedSwitch || sw.Opcode == dexinstr.OpSparseSwitch) &&
			uint32(int64(sw.Offset)+int64(sw.Target)) == inst.Offset {
			base = sw.Offset
			break
		}
	}
	switch {
	case inst.Payload.PackedSwitch != nil:
		ps := inst.Payload.PackedSwitch
		fmt.Fprintf(b, "    .packed-switch 0x%x\n", ps.FirstKey)
		for _, rel := range ps.Targets {
			target := uint32(int64(base) + int64(rel))
			fmt.Fprintf(b, "        %s\n", labels[target])
		}
		b.WriteString("    .end packed-switch\n")
	case inst.Payload.SparseSwitch != nil:
		ss := inst.Payload.SparseSwitch
		b.WriteString("    .sparse-switch\n")
		for i, key := range ss.Keys {
			target := uint32(int64(base) + int64(ss.Targets[i]))
			fmt.Fprintf(b, "        %d -> %s\n", key, labels[target])
		}
		b.WriteString("    .end sparse-switch\n")
	case inst.Payload.FillArrayData != nil:
		fd := inst.Payload.FillArrayData
		fmt.Fprintf(b, "    .array-data %d\n", fd.ElementWidth)
		for off := 0; off < len(fd.Data); off += int(fd.ElementWidth) {
			var v uint64
			for i := 0; i < int(fd.ElementWidth) && off+i < len(fd.Data); i++ {
				v |= uint64(fd.Data[off+i]) << (8 * i)
			}
			fmt.Fprintf(b, "        0x%x\n", v)
		}
		b.WriteString("    .end array-data\n")
	}
}

// --- instruction operand rendering ---

func renderInstruction(img *dex.Image, inst dexinstr.Instruction, labels map[uint32]string) (string, error) {
	name := dexinstr.Name(inst.Opcode)

	switch inst.Format {
	case dexinstr.Fmt10x:
		return name, nil

	case dexinstr.Fmt11x, dexinstr.Fmt12x, dexinstr.Fmt22x, dexinstr.Fmt32x, dexinstr.Fmt23x:
		if len(inst.Regs) == 0 {
			return name, nil
		}
		return name + " " + regsJoin(inst.Regs), nil

	case dexinstr.Fmt11n, dexinstr.Fmt21s, dexinstr.Fmt21h, dexinstr.Fmt31i:
		return fmt.Sprintf("%s %s, #int %d", name, reg(inst.Regs[0]), inst.Literal), nil

	case dexinstr.Fmt51l:
		return fmt.Sprintf("%s %s, #long %d", name, reg(inst.Regs[0]), inst.Literal), nil

	case dexinstr.Fmt22s:
		return fmt.Sprintf("%s %s, %s, #int %d", name, reg(inst.Regs[0]), reg(inst.Regs[1]), inst.Literal), nil

	case dexinstr.Fmt22b:
		return fmt.Sprintf("%s %s, %s, #int %d", name, reg(inst.Regs[0]), reg(inst.Regs[1]), inst.Literal), nil

	case dexinstr.Fmt10t, dexinstr.Fmt20t, dexinstr.Fmt30t:
		target := uint32(int64(inst.Offset) + int64(inst.Target))
		return fmt.Sprintf("%s %s", name, labels[target]), nil

	case dexinstr.Fmt21t:
		target := uint32(int64(inst.Offset) + int64(inst.Target))
		return fmt.Sprintf("%s %s, %s", name, reg(inst.Regs[0]), labels[target]), nil

	case dexinstr.Fmt22t:
		target := uint32(int64(inst.Offset) + int64(inst.Target))
		return fmt.Sprintf("%s %s, %s, %s", name, reg(inst.Regs[0]), reg(inst.Regs[1]), labels[target]), nil

	case dexinstr.Fmt31t:
		target := uint32(int64(inst.Offset) + int64(inst.Target))
		return fmt.Sprintf("%s %s, %s", name, reg(inst.Regs[0]), labels[target]), nil

	case dexinstr.Fmt20bc:
		return fmt.Sprintf("%s %s, index_%d", name, reg(inst.Regs[0]), inst.Index), nil

	case dexinstr.Fmt21c, dexinstr.Fmt31c:
		operand, err := renderIndex(img, inst)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s %s, %s", name, reg(inst.Regs[0]), operand), nil

	case dexinstr.Fmt22c:
		operand, err := renderIndex(img, inst)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s %s, %s", name, regsJoin(inst.Regs), operand), nil

	case dexinstr.Fmt35c:
		operand, err := renderIndex(img, inst)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s {%s}, %s", name, regsJoin(inst.Regs), operand), nil

	case dexinstr.Fmt3rc:
		operand, err := renderIndex(img, inst)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s {%s .. %s}, %s", name, reg(inst.RegRange[0]), reg(inst.RegRange[1]-1), operand), nil

	case dexinstr.Fmt45cc:
		operand, err := renderIndex(img, inst)
		if err != nil {
			return "", err
		}
		proto := protoPlaceholder(img, inst.ProtoIndex)
		return fmt.Sprintf("%s {%s}, %s, %s", name, regsJoin(inst.Regs), operand, proto), nil

	case dexinstr.Fmt4rcc:
		operand, err := renderIndex(img, inst)
		if err != nil {
			return "", err
		}
		proto := protoPlaceholder(img, inst.ProtoIndex)
		return fmt.Sprintf("%s {%s .. %s}, %s, %s", name, reg(inst.RegRange[0]), reg(inst.RegRange[1]-1), operand, proto), nil
	}

	return name, nil
}

func protoPlaceholder(img *dex.Image, protoIdx uint32) string {
	if img == nil {
		return fmt.Sprintf("proto@%d", protoIdx)
	}
	d, err := protoDescriptor(img, protoIdx)
	if err != nil {
		return fmt.Sprintf("proto@%d", protoIdx)
	}
	return d
}

// renderIndex resolves inst's pool index per its IndexKind into the
// textual operand Smali expects: a quoted string, a type descriptor, or
// a `Lclass;->name:type` / `Lclass;->name(params)ret` reference.
func renderIndex(img *dex.Image, inst dexinstr.Instruction) (string, error) {
	if img == nil {
		return fmt.Sprintf("@%d", inst.Index), nil
	}
	switch inst.IndexKind {
	case dexinstr.IndexString:
		s, err := img.Strings.Get(inst.Index)
		if err != nil {
			return "", err
		}
		return strconv.Quote(s), nil
	case dexinstr.IndexType:
		return img.Types.Descriptor(inst.Index)
	case dexinstr.IndexField:
		class, typ, name, err := img.FieldName(inst.Index)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s->%s:%s", class, name, typ), nil
	case dexinstr.IndexMethod:
		return methodDescriptor(img, inst.Index)
	case dexinstr.IndexProto:
		return protoDescriptor(img, inst.Index)
	case dexinstr.IndexMethodHandle:
		return fmt.Sprintf("method_handle@%d", inst.Index), nil
	default:
		return fmt.Sprintf("@%d", inst.Index), nil
	}
}

func methodDescriptor(img *dex.Image, idx uint32) (string, error) {
	class, name, err := img.MethodName(idx)
	if err != nil {
		return "", err
	}
	m, err := img.Methods.Get(idx)
	if err != nil {
		return "", err
	}
	proto, err := protoDescriptor(img, uint32(m.ProtoIdx))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s->%s%s", class, name, proto), nil
}

func protoDescriptor(img *dex.Image, idx uint32) (string, error) {
	params, err := img.Protos.Parameters(idx)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteByte('(')
	for _, p := range params {
		d, err := img.Types.Descriptor(p)
		if err != nil {
			return "", err
		}
		b.WriteString(d)
	}
	b.WriteByte(')')
	ret, err := img.Protos.ReturnType(idx)
	if err != nil {
		return "", err
	}
	b.WriteString(ret)
	return b.String(), nil
}
