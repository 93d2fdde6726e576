/*
 * garlic - a Java/Dalvik bytecode decompiler
 */

package lift

import "github.com/CrazyForks/garlic/internal/ir"

// recoverSynchronized collapses the well-nested
// monitor-enter/try{...monitor-exit}catch-all{monitor-exit;throw} shape
// javac/d8 emit for a source `synchronized(obj) { ... }` block into a
// single Synchronized node, per spec.md §4.5. A monitor-enter/exit pair
// that doesn't match this exact shape (non-well-nested locking, or
// explicit Object.wait()-style manual locking) is left as raw
// MonitorEnter/MonitorExit statements -- spec.md permits this fallback
// explicitly.
func recoverSynchronized(stmts []ir.Stmt) []ir.Stmt {
	out := make([]ir.Stmt, 0, len(stmts))
	for i := 0; i < len(stmts); i++ {
		if me, ok := stmts[i].(ir.MonitorEnter); ok && i+1 < len(stmts) {
			if tb, ok := stmts[i+1].(ir.TryBlock); ok {
				if body, matched := matchSynchronizedTry(me.Object, tb); matched {
					out = append(out, ir.Synchronized{Node: me.Node, Object: me.Object, Body: recoverSynchronizedBody(body)})
					i++
					continue
				}
			}
		}
		out = append(out, recurseSynchronizedStmt(stmts[i]))
	}
	return out
}

func recoverSynchronizedBody(stmts []ir.Stmt) []ir.Stmt {
	return recoverSynchronized(stmts)
}

func recurseSynchronizedStmt(st ir.Stmt) ir.Stmt {
	switch v := st.(type) {
	case ir.TryBlock:
		v.Body = recoverSynchronized(v.Body)
		for i := range v.Catches {
			v.Catches[i].Body = recoverSynchronized(v.Catches[i].Body)
		}
		return v
	default:
		return st
	}
}

// matchSynchronizedTry checks that tb's body ends in a monitor-exit on
// obj and that its only handler is a catch-all whose body is exactly
// [monitor-exit(obj), throw]; if so it returns the body with the
// trailing monitor-exit stripped (the Synchronized node implies it).
func matchSynchronizedTry(obj ir.Expr, tb ir.TryBlock) ([]ir.Stmt, bool) {
	if len(tb.Body) == 0 {
		return nil, false
	}
	last, ok := tb.Body[len(tb.Body)-1].(ir.MonitorExit)
	if !ok || !sameLocal(last.Object, obj) {
		return nil, false
	}
	foundCatchAll := false
	for _, c := range tb.Catches {
		if c.ExceptionType != "" || foundCatchAll {
			return nil, false
		}
		if len(c.Body) != 2 {
			return nil, false
		}
		if mx, ok := c.Body[0].(ir.MonitorExit); !ok || !sameLocal(mx.Object, obj) {
			return nil, false
		}
		if _, ok := c.Body[1].(ir.Throw); !ok {
			return nil, false
		}
		foundCatchAll = true
	}
	if !foundCatchAll {
		return nil, false
	}
	return tb.Body[:len(tb.Body)-1], true
}

func sameLocal(a, b ir.Expr) bool {
	la, ok1 := a.(ir.LocalRef)
	lb, ok2 := b.(ir.LocalRef)
	return ok1 && ok2 && la.Name == lb.Name
}

// recoverControlFlow implements spec.md §4.5 stage 4: natural-loop and
// if/else recovery by directly matching IfGoto/Goto targets against
// statement offsets (a CFG over the already-flattened, offset-ordered
// statement list rather than a separate dominance computation over
// blocks -- equivalent for the single-entry/single-exit shapes this
// recognizes). Anything not matching one of the three recognized shapes
// -- trailing-test loop (do-while), leading-test loop (while), or
// if/[else] -- is left as raw IfGoto/Goto, which the Smali and
// Java-source emitters both render directly; spec.md treats this
// fallback as a valid terminal state, not a failure.
func recoverControlFlow(stmts []ir.Stmt) []ir.Stmt {
	return recoverBody(stmts)
}

func recoverBody(stmts []ir.Stmt) []ir.Stmt {
	stmts = recurseIntoNested(stmts)

	for pass := 0; pass < len(stmts)+4; pass++ {
		changed := false
		for i := 0; i < len(stmts); i++ {
			ig, ok := stmts[i].(ir.IfGoto)
			if !ok {
				continue
			}
			if out, ok := tryDoWhile(stmts, i, ig); ok {
				stmts = out
				changed = true
				break
			}
			if out, ok := tryWhile(stmts, i, ig); ok {
				stmts = out
				changed = true
				break
			}
			if out, ok := tryIfElse(stmts, i, ig); ok {
				stmts = out
				changed = true
				break
			}
		}
		if !changed {
			break
		}
	}
	return stmts
}

func recurseIntoNested(stmts []ir.Stmt) []ir.Stmt {
	out := make([]ir.Stmt, len(stmts))
	for i, st := range stmts {
		switch v := st.(type) {
		case ir.TryBlock:
			v.Body = recoverBody(v.Body)
			for j := range v.Catches {
				v.Catches[j].Body = recoverBody(v.Catches[j].Body)
			}
			out[i] = v
		case ir.Synchronized:
			v.Body = recoverBody(v.Body)
			out[i] = v
		default:
			out[i] = st
		}
	}
	return out
}

func indexOfOffset(stmts []ir.Stmt, from int, offset uint32) int {
	for i := from; i < len(stmts); i++ {
		if stmts[i].InstrOffset() == offset {
			return i
		}
	}
	return -1
}

func spliceReplace(stmts []ir.Stmt, start, end int, repl ir.Stmt) []ir.Stmt {
	out := make([]ir.Stmt, 0, len(stmts)-(end-start)+1)
	out = append(out, stmts[:start]...)
	out = append(out, repl)
	out = append(out, stmts[end:]...)
	return out
}

// condExpr renders an IfGoto's comparison as a boolean-valued expression
// by reusing BinaryOp with the branch's own "if-*" mnemonic as Op --
// spec.md's Expr set has no separate relational node, and BinaryOp's Op
// is already documented as an arbitrary Dalvik mnemonic stem, so a
// relational mnemonic is a natural fit for the same field.
func condExpr(ig ir.IfGoto) ir.Expr {
	return ir.BinaryOp{Node: ig.Node, Op: ig.Op, Left: ig.Left, Right: ig.Right}
}

var negateOp = map[string]string{
	"if-eq": "if-ne", "if-ne": "if-eq",
	"if-lt": "if-ge", "if-ge": "if-lt",
	"if-gt": "if-le", "if-le": "if-gt",
	"if-eqz": "if-nez", "if-nez": "if-eqz",
	"if-ltz": "if-gez", "if-gez": "if-ltz",
	"if-gtz": "if-lez", "if-lez": "if-gtz",
}

func negateCond(ig ir.IfGoto) ir.Expr {
	op := negateOp[ig.Op]
	if op == "" {
		op = ig.Op
	}
	return ir.BinaryOp{Node: ig.Node, Op: op, Left: ig.Left, Right: ig.Right}
}

// tryDoWhile matches the trailing-test loop shape: header: body...;
// if cond goto header.
func tryDoWhile(stmts []ir.Stmt, i int, ig ir.IfGoto) ([]ir.Stmt, bool) {
	target := uint32(int64(ig.Offset) + int64(ig.Target))
	if target > ig.Offset {
		return nil, false
	}
	j := indexOfOffset(stmts, 0, target)
	if j == -1 || j > i {
		return nil, false
	}
	body := append([]ir.Stmt(nil), stmts[j:i]...)
	dw := ir.DoWhile{Node: ir.Node{Offset: stmts[j].InstrOffset()}, Cond: condExpr(ig), Body: body}
	return spliceReplace(stmts, j, i+1, dw), true
}

// tryWhile matches the leading-test loop shape: header: if !cond goto
// end; body...; goto header; end:
func tryWhile(stmts []ir.Stmt, i int, ig ir.IfGoto) ([]ir.Stmt, bool) {
	target := uint32(int64(ig.Offset) + int64(ig.Target))
	if target <= ig.Offset {
		return nil, false
	}
	for k := i + 1; k < len(stmts); k++ {
		gt, ok := stmts[k].(ir.Goto)
		if !ok {
			continue
		}
		back := uint32(int64(gt.Offset) + int64(gt.Target))
		if back != ig.Offset {
			continue
		}
		if k+1 < len(stmts) && stmts[k+1].InstrOffset() == target {
			body := append([]ir.Stmt(nil), stmts[i+1:k]...)
			wl := ir.While{Node: ig.Node, Cond: negateCond(ig), Body: body}
			return spliceReplace(stmts, i, k+1, wl), true
		}
	}
	return nil, false
}

// tryIfElse matches if/[else] by forward branch target: a branch that
// skips past a then-arm (optionally ending in a goto past a following
// else-arm) to a common join point.
func tryIfElse(stmts []ir.Stmt, i int, ig ir.IfGoto) ([]ir.Stmt, bool) {
	target := uint32(int64(ig.Offset) + int64(ig.Target))
	if target <= ig.Offset {
		return nil, false
	}
	j := indexOfOffset(stmts, i+1, target)
	if j == -1 {
		return nil, false
	}

	if j-1 > i {
		if gt, ok := stmts[j-1].(ir.Goto); ok {
			join := uint32(int64(gt.Offset) + int64(gt.Target))
			if join >= target {
				if k := indexOfOffset(stmts, j, join); k != -1 {
					then := append([]ir.Stmt(nil), stmts[i+1:j-1]...)
					els := append([]ir.Stmt(nil), stmts[j:k]...)
					ie := ir.IfElse{Node: ig.Node, Cond: negateCond(ig), Then: then, Else: els}
					return spliceReplace(stmts, i, k, ie), true
				}
			}
		}
	}

	then := append([]ir.Stmt(nil), stmts[i+1:j]...)
	ie := ir.IfElse{Node: ig.Node, Cond: negateCond(ig), Then: then}
	return spliceReplace(stmts, i, j, ie), true
}
