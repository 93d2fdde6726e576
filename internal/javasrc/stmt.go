/*
 * garlic - a Java/Dalvik bytecode decompiler
 */

package javasrc

import (
	"fmt"
	"strings"

	"github.com/CrazyForks/garlic/internal/ir"
)

// emitter walks an ir.Stmt tree and writes one line per statement,
// indenting by nesting depth. internal/lift's structured-control
// recovery (While/DoWhile/IfElse) and internal/jvmlift's flat
// IfGoto/Goto/Label/Switch forms both pass through the same switch
// below -- javasrc has no opinion on which pipeline produced the tree.
type emitter struct {
	b *strings.Builder
}

func (e *emitter) line(depth int, format string, args ...interface{}) {
	fmt.Fprintf(e.b, "%s%s\n", strings.Repeat("    ", depth), fmt.Sprintf(format, args...))
}

func (e *emitter) stmts(stmts []ir.Stmt, depth int) error {
	for _, s := range stmts {
		if err := e.stmt(s, depth); err != nil {
			return err
		}
	}
	return nil
}

func (e *emitter) stmt(s ir.Stmt, depth int) error {
	switch v := s.(type) {
	case ir.Assign:
		target, err := exprString(v.Target)
		if err != nil {
			return err
		}
		value, err := exprString(v.Value)
		if err != nil {
			return err
		}
		e.line(depth, "%s = %s;", target, value)

	case ir.ExprStmt:
		x, err := exprString(v.Expr)
		if err != nil {
			return err
		}
		e.line(depth, "%s;", x)

	case ir.Return:
		if v.Value == nil {
			e.line(depth, "return;")
			return nil
		}
		x, err := exprString(v.Value)
		if err != nil {
			return err
		}
		e.line(depth, "return %s;", x)

	case ir.Throw:
		x, err := exprString(v.Value)
		if err != nil {
			return err
		}
		e.line(depth, "throw %s;", x)

	case ir.IfGoto:
		cond, err := ifCondString(v)
		if err != nil {
			return err
		}
		e.line(depth, "if (%s) goto label_%04x;", cond, v.Target)

	case ir.Goto:
		e.line(depth, "goto label_%04x;", v.Target)

	case ir.Label:
		name := v.Name
		if name == "" {
			name = fmt.Sprintf("label_%04x", v.Node.Offset)
		}
		fmt.Fprintf(e.b, "%s:\n", name)

	case ir.Switch:
		key, err := exprString(v.Key)
		if err != nil {
			return err
		}
		e.line(depth, "switch (%s) {", key)
		for _, c := range v.Cases {
			e.line(depth+1, "case %d: goto label_%04x;", c.Key, c.Target)
		}
		e.line(depth+1, "default: goto label_%04x;", v.Default)
		e.line(depth, "}")

	case ir.MonitorEnter:
		x, err := exprString(v.Object)
		if err != nil {
			return err
		}
		e.line(depth, "monitor-enter %s;", x)

	case ir.MonitorExit:
		x, err := exprString(v.Object)
		if err != nil {
			return err
		}
		e.line(depth, "monitor-exit %s;", x)

	case ir.Synchronized:
		x, err := exprString(v.Object)
		if err != nil {
			return err
		}
		e.line(depth, "synchronized (%s) {", x)
		if err := e.stmts(v.Body, depth+1); err != nil {
			return err
		}
		e.line(depth, "}")

	case ir.Block:
		return e.stmts(v.Stmts, depth)

	case ir.While:
		cond, err := exprString(v.Cond)
		if err != nil {
			return err
		}
		e.line(depth, "while (%s) {", cond)
		if err := e.stmts(v.Body, depth+1); err != nil {
			return err
		}
		e.line(depth, "}")

	case ir.DoWhile:
		cond, err := exprString(v.Cond)
		if err != nil {
			return err
		}
		e.line(depth, "do {")
		if err := e.stmts(v.Body, depth+1); err != nil {
			return err
		}
		e.line(depth, "} while (%s);", cond)

	case ir.IfElse:
		cond, err := exprString(v.Cond)
		if err != nil {
			return err
		}
		e.line(depth, "if (%s) {", cond)
		if err := e.stmts(v.Then, depth+1); err != nil {
			return err
		}
		if v.Else != nil {
			e.line(depth, "} else {")
			if err := e.stmts(v.Else, depth+1); err != nil {
				return err
			}
		}
		e.line(depth, "}")

	case ir.TryBlock:
		e.line(depth, "try {")
		if err := e.stmts(v.Body, depth+1); err != nil {
			return err
		}
		for _, c := range v.Catches {
			if c.ExceptionType == "" {
				e.line(depth, "} catch (%s) {", javaType(c.LocalName))
			} else {
				e.line(depth, "} catch (%s %s) {", javaType(c.ExceptionType), c.LocalName)
			}
			if err := e.stmts(c.Body, depth+1); err != nil {
				return err
			}
		}
		e.line(depth, "}")

	default:
		return fmt.Errorf("javasrc: unhandled statement type %T", s)
	}
	return nil
}

func ifCondString(v ir.IfGoto) (string, error) {
	left, err := exprString(v.Left)
	if err != nil {
		return "", err
	}
	if v.Right == nil {
		return fmt.Sprintf("%s %s 0", left, v.Op), nil
	}
	right, err := exprString(v.Right)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s %s %s", left, v.Op, right), nil
}
