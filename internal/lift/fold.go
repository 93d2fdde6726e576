/*
 * garlic - a Java/Dalvik bytecode decompiler
 */

package lift

import "github.com/CrazyForks/garlic/internal/ir"

// foldBinary implements spec.md §4.5's constant-folding/reassociation
// stage for one BinaryOp: two integer literals fold to one literal, and
// the Java-visible algebraic identities (x+0, x*1, x|0, x&-1, ...) drop
// the no-op operand entirely rather than surviving into the emitted
// source as a literal no-op. Anything else is left as a BinaryOp for the
// emitter.
func foldBinary(op string, left, right ir.Expr) ir.Expr {
	if v, ok := foldIntConstants(op, left, right); ok {
		return v
	}
	if v, ok := foldIdentity(op, left, right); ok {
		return v
	}
	return ir.BinaryOp{Op: op, Left: left, Right: right}
}

func foldIntConstants(op string, left, right ir.Expr) (ir.Expr, bool) {
	l, lok := left.(ir.IntLiteral)
	r, rok := right.(ir.IntLiteral)
	if !lok || !rok {
		return nil, false
	}
	switch op {
	case "add-int":
		return ir.IntLiteral{Value: l.Value + r.Value}, true
	case "sub-int":
		return ir.IntLiteral{Value: l.Value - r.Value}, true
	case "mul-int":
		return ir.IntLiteral{Value: l.Value * r.Value}, true
	case "and-int":
		return ir.IntLiteral{Value: l.Value & r.Value}, true
	case "or-int":
		return ir.IntLiteral{Value: l.Value | r.Value}, true
	case "xor-int":
		return ir.IntLiteral{Value: l.Value ^ r.Value}, true
	case "div-int", "rem-int":
		if r.Value == 0 {
			return nil, false // preserve the runtime ArithmeticException
		}
		if op == "div-int" {
			return ir.IntLiteral{Value: l.Value / r.Value}, true
		}
		return ir.IntLiteral{Value: l.Value % r.Value}, true
	}
	return nil, false
}

func foldIdentity(op string, left, right ir.Expr) (ir.Expr, bool) {
	isZero := func(e ir.Expr) bool { v, ok := e.(ir.IntLiteral); return ok && v.Value == 0 }
	isOne := func(e ir.Expr) bool { v, ok := e.(ir.IntLiteral); return ok && v.Value == 1 }
	isAllOnes := func(e ir.Expr) bool { v, ok := e.(ir.IntLiteral); return ok && v.Value == -1 }

	switch op {
	case "add-int":
		if isZero(right) {
			return left, true
		}
		if isZero(left) {
			return right, true
		}
	case "mul-int":
		if isOne(right) {
			return left, true
		}
		if isOne(left) {
			return right, true
		}
	case "or-int":
		if isZero(right) {
			return left, true
		}
		if isZero(left) {
			return right, true
		}
	case "and-int":
		if isAllOnes(right) {
			return left, true
		}
		if isAllOnes(left) {
			return right, true
		}
	case "xor-int":
		if isZero(right) {
			return left, true
		}
		if isZero(left) {
			return right, true
		}
	}
	return nil, false
}

// foldStmts re-applies the fold rules over the whole tree once structured
// recovery has nested statements inside While/IfElse/TryBlock/
// Synchronized bodies, in case recovery exposed a fold opportunity the
// per-instruction pass couldn't see (e.g. two originally non-adjacent
// literal assigns that recovery's dead-branch pruning brought together
// is out of scope, but the tree walk is kept general for whatever the
// emitter feeds back through it).
func foldStmts(stmts []ir.Stmt) []ir.Stmt {
	out := make([]ir.Stmt, len(stmts))
	for i, st := range stmts {
		out[i] = foldStmt(st)
	}
	return out
}

func foldStmt(st ir.Stmt) ir.Stmt {
	switch v := st.(type) {
	case ir.Assign:
		v.Value = foldExpr(v.Value)
		return v
	case ir.ExprStmt:
		v.Expr = foldExpr(v.Expr)
		return v
	case ir.IfGoto:
		v.Left, v.Right = foldExpr(v.Left), foldExpr(v.Right)
		return v
	case ir.Return:
		if v.Value != nil {
			v.Value = foldExpr(v.Value)
		}
		return v
	case ir.Throw:
		v.Value = foldExpr(v.Value)
		return v
	case ir.TryBlock:
		v.Body = foldStmts(v.Body)
		for i := range v.Catches {
			v.Catches[i].Body = foldStmts(v.Catches[i].Body)
		}
		return v
	case ir.Synchronized:
		v.Object = foldExpr(v.Object)
		v.Body = foldStmts(v.Body)
		return v
	case ir.While:
		v.Cond = foldExpr(v.Cond)
		v.Body = foldStmts(v.Body)
		return v
	case ir.DoWhile:
		v.Cond = foldExpr(v.Cond)
		v.Body = foldStmts(v.Body)
		return v
	case ir.IfElse:
		v.Cond = foldExpr(v.Cond)
		v.Then = foldStmts(v.Then)
		if v.Else != nil {
			v.Else = foldStmts(v.Else)
		}
		return v
	default:
		return st
	}
}

func foldExpr(e ir.Expr) ir.Expr {
	switch v := e.(type) {
	case ir.BinaryOp:
		v.Left, v.Right = foldExpr(v.Left), foldExpr(v.Right)
		return foldBinary(v.Op, v.Left, v.Right)
	case ir.UnaryOp:
		v.Operand = foldExpr(v.Operand)
		return v
	case ir.Cast:
		v.Operand = foldExpr(v.Operand)
		return v
	case ir.ArrayAccess:
		v.Array, v.Index = foldExpr(v.Array), foldExpr(v.Index)
		return v
	default:
		return e
	}
}
