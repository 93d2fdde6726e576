/*
 * garlic - a Java/Dalvik bytecode decompiler
 */

package dump

import (
	"fmt"

	"github.com/CrazyForks/garlic/internal/dex"
)

// BuildDexReport builds a DumpReport for a parsed DEX image: one
// ClassReport per class-def, each listing its fields and methods. Unlike
// the .class path, a DEX file commonly holds many classes, so there is
// no single "this_class" header line -- the header carries the
// container-level fields dexdump prints first (checksum, file size,
// class-def count).
func BuildDexReport(img *dex.Image) (DumpReport, error) {
	report := DumpReport{
		Header: []Field{
			{Label: "checksum", Value: fmt.Sprintf("0x%08x", img.Header.Checksum)},
			{Label: "file_size", Value: fmt.Sprintf("%d", img.Header.FileSize)},
			{Label: "class_defs_size", Value: fmt.Sprintf("%d", img.Header.ClassDefsSize)},
		},
	}

	for _, cd := range img.ClassDefs {
		class, err := buildClassDefReport(img, cd)
		if err != nil {
			return DumpReport{}, err
		}
		report.Classes = append(report.Classes, class)
	}
	return report, nil
}

func buildClassDefReport(img *dex.Image, cd *dex.ClassDef) (ClassReport, error) {
	name, err := cd.TypeName()
	if err != nil {
		return ClassReport{}, err
	}

	class := ClassReport{
		Name: name,
		Fields: []Field{
			{Label: "access_flags", Value: fmt.Sprintf("0x%04x", cd.AccessFlags)},
		},
	}

	if cd.SuperclassIdx != dex.NoIndex {
		super, err := img.Types.Descriptor(cd.SuperclassIdx)
		if err != nil {
			return ClassReport{}, err
		}
		class.Fields = append(class.Fields, Field{Label: "superclass", Value: super})
	}
	if src, err := cd.SourceFileName(); err == nil && src != "" {
		class.Fields = append(class.Fields, Field{Label: "source_file", Value: src})
	}

	data, err := cd.ClassData()
	if err != nil {
		return ClassReport{}, err
	}

	for _, f := range append(append([]dex.EncodedField{}, data.StaticFields...), data.InstanceFields...) {
		fid, err := img.Fields.Get(f.FieldIdx)
		if err != nil {
			return ClassReport{}, err
		}
		fname, err := img.Strings.Get(fid.NameIdx)
		if err != nil {
			return ClassReport{}, err
		}
		ftype, err := img.Types.Descriptor(uint32(fid.TypeIdx))
		if err != nil {
			return ClassReport{}, err
		}
		class.Members = append(class.Members, FieldReport{
			Name:   fname,
			Fields: []Field{{Label: "type", Value: ftype}},
		})
	}

	for _, m := range append(append([]dex.EncodedMethod{}, data.DirectMethods...), data.VirtualMethods...) {
		_, mname, err := img.MethodName(m.MethodIdx)
		if err != nil {
			return ClassReport{}, err
		}
		fields := []Field{
			{Label: "access_flags", Value: fmt.Sprintf("0x%04x", m.AccessFlags)},
			{Label: "has_code", Value: fmt.Sprintf("%t", m.CodeOff != 0)},
		}
		class.Methods = append(class.Methods, MethodReport{Name: mname, Fields: fields})
	}

	return class, nil
}
