/*
 * garlic - a Java/Dalvik bytecode decompiler
 */

package classfile

import "github.com/CrazyForks/garlic/internal/binio"

// AttributeInfo is a raw, undecoded attribute: attribute_name_index plus
// its info bytes. Only the Code attribute, the one the decompile path
// needs, gets a typed decoder below; everything else -- LineNumberTable,
// Exceptions, Signature, SourceFile, BootstrapMethods, annotations --
// stays as raw bytes, matching the
// teacher's own attr{attrName, attrSize, attrContent} catch-all shape.
type AttributeInfo struct {
	NameIndex uint16
	Info      []byte
}

func parseAttributes(r *binio.Reader) ([]AttributeInfo, error) {
	count, err := r.ReadU16BE()
	if err != nil {
		return nil, err
	}
	out := make([]AttributeInfo, count)
	for i := range out {
		nameIdx, err := r.ReadU16BE()
		if err != nil {
			return nil, err
		}
		length, err := r.ReadU32BE()
		if err != nil {
			return nil, err
		}
		info, err := r.ReadBytes(int(length))
		if err != nil {
			return nil, err
		}
		out[i] = AttributeInfo{NameIndex: nameIdx, Info: info}
	}
	return out, nil
}

// memberInfo is the shared field_info/method_info layout (JVM spec
// §4.5/§4.6 are byte-for-byte identical structures).
type memberInfo struct {
	AccessFlags    uint16
	NameIndex      uint16
	DescriptorIndex uint16
	Attributes     []AttributeInfo
}

func parseMemberInfo(r *binio.Reader) (memberInfo, error) {
	var m memberInfo
	var err error
	if m.AccessFlags, err = r.ReadU16BE(); err != nil {
		return m, err
	}
	if m.NameIndex, err = r.ReadU16BE(); err != nil {
		return m, err
	}
	if m.DescriptorIndex, err = r.ReadU16BE(); err != nil {
		return m, err
	}
	m.Attributes, err = parseAttributes(r)
	return m, err
}

// FieldInfo is one entry of the fields table.
type FieldInfo struct {
	AccessFlags     uint16
	NameIndex       uint16
	DescriptorIndex uint16
	Attributes      []AttributeInfo
}

// MethodInfo is one entry of the methods table.
type MethodInfo struct {
	AccessFlags     uint16
	NameIndex       uint16
	DescriptorIndex uint16
	Attributes      []AttributeInfo
}

func (f AccessFlags) IsStatic() bool    { return f.has(0x0008) }
func (f AccessFlags) IsNative() bool    { return f.has(0x0100) }
func (f AccessFlags) IsPrivate() bool   { return f.has(0x0002) }
func (f AccessFlags) IsProtected() bool { return f.has(0x0004) }

// parseFields and parseMethods read a count-prefixed member table; the
// field and method tables share the exact same item layout (JVM spec
// §4.5/§4.6) but are kept as distinct named types so callers never
// confuse a FieldInfo for a MethodInfo at a call site.
func parseFields(r *binio.Reader) ([]FieldInfo, error) {
	count, err := r.ReadU16BE()
	if err != nil {
		return nil, err
	}
	out := make([]FieldInfo, count)
	for i := range out {
		m, err := parseMemberInfo(r)
		if err != nil {
			return nil, err
		}
		out[i] = FieldInfo(m)
	}
	return out, nil
}

func parseMethods(r *binio.Reader) ([]MethodInfo, error) {
	count, err := r.ReadU16BE()
	if err != nil {
		return nil, err
	}
	out := make([]MethodInfo, count)
	for i := range out {
		m, err := parseMemberInfo(r)
		if err != nil {
			return nil, err
		}
		out[i] = MethodInfo(m)
	}
	return out, nil
}

// FieldName, FieldDesc, MethodName and MethodDesc resolve a field's or
// method's name or descriptor via the owning class file's constant pool.
func (cf *ClassFile) FieldName(f FieldInfo) (string, error)  { return cf.Utf8(f.NameIndex) }
func (cf *ClassFile) FieldDesc(f FieldInfo) (string, error)  { return cf.Utf8(f.DescriptorIndex) }
func (cf *ClassFile) MethodName(m MethodInfo) (string, error) { return cf.Utf8(m.NameIndex) }
func (cf *ClassFile) MethodDesc(m MethodInfo) (string, error) { return cf.Utf8(m.DescriptorIndex) }

func (f FieldInfo) Flags() AccessFlags  { return AccessFlags(f.AccessFlags) }
func (m MethodInfo) Flags() AccessFlags { return AccessFlags(m.AccessFlags) }

const codeAttrName = "Code"

// ExceptionTableEntry is one entry of the Code attribute's exception
// table.
type ExceptionTableEntry struct {
	StartPC, EndPC, HandlerPC uint16
	CatchType                 uint16 // 0 means catch-all (finally)
}

// CodeAttribute is the decoded Code attribute: the method's raw
// bytecode plus its exception table, the only two parts
// internal/jvminstr and internal/jvmlift need. Nested attributes
// (LineNumberTable, LocalVariableTable, StackMapTable) are kept raw.
type CodeAttribute struct {
	MaxStack       uint16
	MaxLocals      uint16
	Code           []byte
	ExceptionTable []ExceptionTableEntry
	Attributes     []AttributeInfo
}

// Code locates and decodes m's Code attribute; ok is false for abstract
// or native methods, which carry no Code attribute.
func (cf *ClassFile) Code(m MethodInfo) (ca CodeAttribute, ok bool, err error) {
	for _, a := range m.Attributes {
		name, err := cf.Utf8(a.NameIndex)
		if err != nil {
			return CodeAttribute{}, false, err
		}
		if name != codeAttrName {
			continue
		}
		ca, err := decodeCodeAttribute(a.Info)
		return ca, true, err
	}
	return CodeAttribute{}, false, nil
}

func decodeCodeAttribute(info []byte) (CodeAttribute, error) {
	r := binio.New(info)
	var ca CodeAttribute
	var err error

	if ca.MaxStack, err = r.ReadU16BE(); err != nil {
		return ca, err
	}
	if ca.MaxLocals, err = r.ReadU16BE(); err != nil {
		return ca, err
	}
	codeLen, err := r.ReadU32BE()
	if err != nil {
		return ca, err
	}
	if ca.Code, err = r.ReadBytes(int(codeLen)); err != nil {
		return ca, err
	}

	excCount, err := r.ReadU16BE()
	if err != nil {
		return ca, err
	}
	ca.ExceptionTable = make([]ExceptionTableEntry, excCount)
	for i := range ca.ExceptionTable {
		var e ExceptionTableEntry
		if e.StartPC, err = r.ReadU16BE(); err != nil {
			return ca, err
		}
		if e.EndPC, err = r.ReadU16BE(); err != nil {
			return ca, err
		}
		if e.HandlerPC, err = r.ReadU16BE(); err != nil {
			return ca, err
		}
		if e.CatchType, err = r.ReadU16BE(); err != nil {
			return ca, err
		}
		ca.ExceptionTable[i] = e
	}

	ca.Attributes, err = parseAttributes(r)
	return ca, err
}
