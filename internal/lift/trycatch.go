/*
 * garlic - a Java/Dalvik bytecode decompiler
 */

package lift

import (
	"sort"

	"github.com/CrazyForks/garlic/internal/ir"
)

type tryRange struct {
	Start, End uint32 // [Start, End) in code units
	Catches    []catchSpec
}

type catchSpec struct {
	ExceptionType string // "" for catch-all
	HandlerAddr   uint32
}

// buildTryRanges resolves spec.md §4.5 stage 3's try/catch input directly
// from the code_item's try/handler tables (CodeItem.HandlerFor already
// resolves the shared-handler-list indirection per DESIGN.md's Open
// Question decision).
func (l *Lifter) buildTryRanges() ([]tryRange, error) {
	var out []tryRange
	for _, t := range l.ci.Tries {
		hl, ok := l.ci.HandlerFor(t)
		if !ok {
			continue
		}
		r := tryRange{Start: t.StartAddr, End: t.StartAddr + uint32(t.InsnCount)}
		for _, h := range hl.Handlers {
			typ, err := l.img.Types.Descriptor(h.TypeIdx)
			if err != nil {
				return nil, err
			}
			r.Catches = append(r.Catches, catchSpec{ExceptionType: typ, HandlerAddr: h.Addr})
		}
		if hl.HasCatchAll {
			r.Catches = append(r.Catches, catchSpec{HandlerAddr: hl.CatchAllAddr})
		}
		out = append(out, r)
	}
	return out, nil
}

// wrapTries implements spec.md §4.5 stage 3: reconstructs TryBlock/
// CatchClause nodes from the code_item's try/handler tables. It runs
// before structured control-flow recovery, while flat is still in
// instruction-offset order, so "statements whose offset falls in
// [Start,End)" is a correct way to find a try range's protected body.
// Catch handler bodies live outside the protected range in the bytecode
// (the verifier requires this); each is extracted by walking forward from
// its handler address until the first terminating statement.
func (l *Lifter) wrapTries(flat []ir.Stmt) []ir.Stmt {
	ranges, err := l.buildTryRanges()
	if err != nil || len(ranges) == 0 {
		return flat
	}

	extracted := map[uint32]bool{}
	handlerBody := map[uint32][]ir.Stmt{}
	for _, r := range ranges {
		for _, c := range r.Catches {
			if _, done := handlerBody[c.HandlerAddr]; done {
				continue
			}
			body, offs := extractHandlerBody(flat, c.HandlerAddr)
			handlerBody[c.HandlerAddr] = body
			for _, o := range offs {
				extracted[o] = true
			}
		}
	}

	// Innermost-first: the narrowest ranges are wrapped before the wider
	// ones that contain them, so an outer TryBlock's body sees its inner
	// TryBlock already collapsed to a single statement.
	sort.Slice(ranges, func(i, j int) bool {
		wi, wj := ranges[i].End-ranges[i].Start, ranges[j].End-ranges[j].Start
		return wi < wj
	})

	for _, r := range ranges {
		flat = applyTryRange(flat, r, handlerBody, extracted)
	}

	return dropExtracted(flat, extracted)
}

// extractHandlerBody walks forward from addr until the first terminating
// statement (inclusive). It starts at the first statement whose offset is
// >= addr rather than requiring an exact match: a handler's leading
// instruction is move-exception, which binds the caught exception into the
// register table but (like a bare move-result) emits no statement of its
// own, so the first real statement of the body can land strictly after addr.
func extractHandlerBody(flat []ir.Stmt, addr uint32) ([]ir.Stmt, []uint32) {
	var body []ir.Stmt
	var offs []uint32
	started := false
	for _, st := range flat {
		if !started {
			if st.InstrOffset() < addr {
				continue
			}
			started = true
		}
		body = append(body, st)
		offs = append(offs, st.InstrOffset())
		switch st.(type) {
		case ir.Return, ir.Throw, ir.Goto:
			return body, offs
		}
	}
	return body, offs
}

func applyTryRange(flat []ir.Stmt, r tryRange, handlerBody map[uint32][]ir.Stmt, extracted map[uint32]bool) []ir.Stmt {
	start := -1
	end := -1
	for i, st := range flat {
		off := st.InstrOffset()
		if extracted[off] {
			continue
		}
		if off >= r.Start && off < r.End {
			if start == -1 {
				start = i
			}
			end = i + 1
		}
	}
	if start == -1 {
		return flat
	}

	tb := ir.TryBlock{Node: ir.Node{Offset: r.Start}, Body: append([]ir.Stmt(nil), flat[start:end]...)}
	for _, c := range r.Catches {
		tb.Catches = append(tb.Catches, ir.CatchClause{
			ExceptionType: c.ExceptionType,
			LocalName:     "ex",
			Body:          handlerBody[c.HandlerAddr],
		})
	}

	out := make([]ir.Stmt, 0, len(flat)-(end-start)+1)
	out = append(out, flat[:start]...)
	out = append(out, tb)
	out = append(out, flat[end:]...)
	return out
}

func dropExtracted(flat []ir.Stmt, extracted map[uint32]bool) []ir.Stmt {
	out := make([]ir.Stmt, 0, len(flat))
	for _, st := range flat {
		if tb, ok := st.(ir.TryBlock); ok {
			out = append(out, tb)
			continue
		}
		if extracted[st.InstrOffset()] {
			continue
		}
		out = append(out, st)
	}
	return out
}
