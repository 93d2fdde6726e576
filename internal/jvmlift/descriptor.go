/*
 * garlic - a Java/Dalvik bytecode decompiler
 */

package jvmlift

import "github.com/CrazyForks/garlic/internal/errs"

// parseMethodDescriptor splits a JVM method descriptor ("(ILjava/lang/
// String;)V") into its parameter descriptors and return descriptor. No
// corpus package already does this for the JVM's paren-delimited form
// (internal/dex works from shorty strings and proto index tables
// instead), so this is grounded directly on the JVM specification's
// §4.3.3 grammar rather than adapted from an existing parser.
func parseMethodDescriptor(desc string) (params []string, ret string, err error) {
	if len(desc) == 0 || desc[0] != '(' {
		return nil, "", &errs.FormatError{Section: "descriptor", Msg: "method descriptor missing '('"}
	}
	pos := 1
	for pos < len(desc) && desc[pos] != ')' {
		field, next, err := parseFieldDescriptor(desc, pos)
		if err != nil {
			return nil, "", err
		}
		params = append(params, field)
		pos = next
	}
	if pos >= len(desc) {
		return nil, "", &errs.FormatError{Section: "descriptor", Msg: "method descriptor missing ')'"}
	}
	pos++ // skip ')'
	if pos >= len(desc) {
		return nil, "", &errs.FormatError{Section: "descriptor", Msg: "method descriptor missing return type"}
	}
	ret, _, err = parseFieldDescriptor(desc, pos)
	return params, ret, err
}

// parseFieldDescriptor reads one field descriptor (primitive letter,
// "V" for void, "Lpkg/Name;", or an "["-prefixed array) starting at pos,
// returning the descriptor substring and the position just past it.
func parseFieldDescriptor(desc string, pos int) (string, int, error) {
	start := pos
	for pos < len(desc) && desc[pos] == '[' {
		pos++
	}
	if pos >= len(desc) {
		return "", 0, &errs.FormatError{Section: "descriptor", Msg: "truncated array descriptor"}
	}
	switch desc[pos] {
	case 'B', 'C', 'D', 'F', 'I', 'J', 'S', 'Z', 'V':
		pos++
		return desc[start:pos], pos, nil
	case 'L':
		end := pos
		for end < len(desc) && desc[end] != ';' {
			end++
		}
		if end >= len(desc) {
			return "", 0, &errs.FormatError{Section: "descriptor", Msg: "unterminated class descriptor"}
		}
		return desc[start : end+1], end + 1, nil
	default:
		return "", 0, &errs.FormatError{Section: "descriptor", Msg: "invalid descriptor byte"}
	}
}
