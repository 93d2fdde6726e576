/*
 * garlic - a Java/Dalvik bytecode decompiler
 */

package dump

import (
	"fmt"

	"github.com/CrazyForks/garlic/internal/classfile"
)

// BuildClassFileReport builds a DumpReport for a parsed .class file.
// Field order in Header matches spec.md §8 scenario S1 exactly:
// major_version, minor_version, this_class.
func BuildClassFileReport(cf *classfile.ClassFile) (DumpReport, error) {
	thisClass, err := cf.ThisClassName()
	if err != nil {
		return DumpReport{}, err
	}

	report := DumpReport{
		Header: []Field{
			{Label: "major_version", Value: fmt.Sprintf("%d", cf.MajorVersion)},
			{Label: "minor_version", Value: fmt.Sprintf("%d", cf.MinorVersion)},
			{Label: "this_class", Value: thisClass},
		},
	}

	class := ClassReport{Name: thisClass}
	if superName, err := cf.SuperClassName(); err == nil && superName != "" {
		class.Fields = append(class.Fields, Field{Label: "super_class", Value: superName})
	}
	class.Fields = append(class.Fields, Field{Label: "access_flags", Value: fmt.Sprintf("0x%04x", cf.AccessFlags)})

	for _, f := range cf.Fields {
		name, err := cf.FieldName(f)
		if err != nil {
			return DumpReport{}, err
		}
		desc, err := cf.FieldDesc(f)
		if err != nil {
			return DumpReport{}, err
		}
		class.Members = append(class.Members, FieldReport{
			Name:   name,
			Fields: []Field{{Label: "descriptor", Value: desc}},
		})
	}

	for _, m := range cf.Methods {
		name, err := cf.MethodName(m)
		if err != nil {
			return DumpReport{}, err
		}
		desc, err := cf.MethodDesc(m)
		if err != nil {
			return DumpReport{}, err
		}
		fields := []Field{{Label: "descriptor", Value: desc}}
		if ca, ok, err := cf.Code(m); err != nil {
			return DumpReport{}, err
		} else if ok {
			fields = append(fields,
				Field{Label: "max_stack", Value: fmt.Sprintf("%d", ca.MaxStack)},
				Field{Label: "max_locals", Value: fmt.Sprintf("%d", ca.MaxLocals)},
				Field{Label: "code_length", Value: fmt.Sprintf("%d", len(ca.Code))},
			)
		}
		class.Methods = append(class.Methods, MethodReport{Name: name, Fields: fields})
	}

	report.Classes = append(report.Classes, class)
	return report, nil
}
