/*
 * garlic - a Java/Dalvik bytecode decompiler
 */

package javasrc

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/CrazyForks/garlic/internal/ir"
)

// exprString renders one expression node. This is the "faithful line
// emitter, not a general pretty-printer" scope this package's doc
// comment describes: every sub-expression is fully parenthesized around
// binary/compare operators rather than tracking Java operator precedence,
// which is always correct but occasionally more verbose than a human
// would write by hand.
func exprString(x ir.Expr) (string, error) {
	switch v := x.(type) {
	case nil:
		return "", nil

	case ir.IntLiteral:
		return strconv.FormatInt(int64(v.Value), 10), nil
	case ir.LongLiteral:
		return strconv.FormatInt(v.Value, 10) + "L", nil
	case ir.FloatLiteral:
		return strconv.FormatFloat(float64(v.Value), 'g', -1, 32) + "f", nil
	case ir.DoubleLiteral:
		return strconv.FormatFloat(v.Value, 'g', -1, 64), nil
	case ir.StringLiteral:
		return strconv.Quote(v.Value), nil
	case ir.ClassLiteral:
		return javaType(v.Descriptor) + ".class", nil
	case ir.NullLiteral:
		return "null", nil

	case ir.LocalRef:
		return v.Name, nil

	case ir.FieldAccess:
		if v.Static {
			return fmt.Sprintf("%s.%s", javaType(v.Class), v.Name), nil
		}
		recv, err := exprString(v.Receiver)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s.%s", recv, v.Name), nil

	case ir.MethodInvoke:
		return methodInvokeString(v)

	case ir.ArrayAccess:
		arr, err := exprString(v.Array)
		if err != nil {
			return "", err
		}
		idx, err := exprString(v.Index)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s[%s]", arr, idx), nil

	case ir.BinaryOp:
		left, err := exprString(v.Left)
		if err != nil {
			return "", err
		}
		right, err := exprString(v.Right)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(%s %s %s)", left, binaryOperator(v.Op), right), nil

	case ir.UnaryOp:
		operand, err := exprString(v.Operand)
		if err != nil {
			return "", err
		}
		if strings.HasPrefix(v.Op, "neg-") {
			return fmt.Sprintf("(-%s)", operand), nil
		}
		// numeric conversion, e.g. "int-to-byte" -> "(byte) x"
		if i := strings.Index(v.Op, "-to-"); i >= 0 {
			return fmt.Sprintf("(%s) %s", javaPrimitive(v.Op[i+4:]), operand), nil
		}
		return fmt.Sprintf("%s(%s)", v.Op, operand), nil

	case ir.Compare:
		left, err := exprString(v.Left)
		if err != nil {
			return "", err
		}
		right, err := exprString(v.Right)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("compare(%s, %s)", left, right), nil

	case ir.Cast:
		operand, err := exprString(v.Operand)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(%s) %s", javaType(v.Type), operand), nil

	case ir.InstanceOf:
		operand, err := exprString(v.Operand)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(%s instanceof %s)", operand, javaType(v.Type)), nil

	case ir.NewInstance:
		args := make([]string, len(v.Args))
		for i, a := range v.Args {
			s, err := exprString(a)
			if err != nil {
				return "", err
			}
			args[i] = s
		}
		return fmt.Sprintf("new %s(%s)", javaType(v.Type), strings.Join(args, ", ")), nil

	case ir.NewArray:
		size, err := exprString(v.Size)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("new %s[%s]", javaType(v.ElementType), size), nil

	case ir.FilledNewArray:
		elems := make([]string, len(v.Elements))
		for i, el := range v.Elements {
			s, err := exprString(el)
			if err != nil {
				return "", err
			}
			elems[i] = s
		}
		return fmt.Sprintf("new %s[]{%s}", javaType(v.ElementType), strings.Join(elems, ", ")), nil

	case ir.ArrayInitializer:
		return fmt.Sprintf("/* %d bytes packed at width %d */", len(v.Data), v.ElementWidth), nil

	default:
		return "", fmt.Errorf("javasrc: unhandled expression type %T", x)
	}
}

func methodInvokeString(v ir.MethodInvoke) (string, error) {
	args := make([]string, len(v.Args))
	for i, a := range v.Args {
		s, err := exprString(a)
		if err != nil {
			return "", err
		}
		args[i] = s
	}
	joined := strings.Join(args, ", ")

	if v.Kind == ir.InvokeStatic {
		return fmt.Sprintf("%s.%s(%s)", javaType(v.Class), v.Name, joined), nil
	}

	recv, err := exprString(v.Receiver)
	if err != nil {
		return "", err
	}
	if v.Kind == ir.InvokeSuper {
		return fmt.Sprintf("super.%s(%s)", v.Name, joined), nil
	}
	return fmt.Sprintf("%s.%s(%s)", recv, v.Name, joined), nil
}

// binaryOperator maps the lifter's Dalvik-mnemonic-stem Op strings
// ("add-int", "shl-long", ...) to their Java source operator.
func binaryOperator(op string) string {
	stem := op
	if i := strings.IndexByte(op, '-'); i >= 0 {
		stem = op[:i]
	}
	switch stem {
	case "add":
		return "+"
	case "sub":
		return "-"
	case "mul":
		return "*"
	case "div":
		return "/"
	case "rem":
		return "%"
	case "and":
		return "&"
	case "or":
		return "|"
	case "xor":
		return "^"
	case "shl":
		return "<<"
	case "shr":
		return ">>"
	case "ushr":
		return ">>>"
	default:
		return stem
	}
}

// javaPrimitive maps a descriptor-ish conversion target stem ("byte",
// "int", ...) to itself -- numeric-conversion Op values already spell
// the Java primitive name, so this exists mainly as a single named
// crossing point documenting that assumption.
func javaPrimitive(name string) string { return name }
