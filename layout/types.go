package layout

import "fmt"

// Kind is the shape of a native field.
type Kind uint8

const (
	KindU8 Kind = iota
	KindU16
	KindU32
	KindI32
	KindU64
	KindI64
	KindF32
	KindF64
	KindPtr
	KindSize
	KindArray
	KindStruct
)

var kindNames = [...]string{
	KindU8:     "uint8_t",
	KindU16:    "uint16_t",
	KindU32:    "uint32_t",
	KindI32:    "int32_t",
	KindU64:    "uint64_t",
	KindI64:    "int64_t",
	KindF32:    "float",
	KindF64:    "double",
	KindPtr:    "pointer",
	KindSize:   "size_t",
	KindArray:  "array",
	KindStruct: "struct",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Type is a native field type.
type Type struct {
	Elem   *Type
	Struct *Struct
	Len    uint64
	Kind   Kind
}

var (
	U8   = Type{Kind: KindU8}
	U16  = Type{Kind: KindU16}
	U32  = Type{Kind: KindU32}
	I32  = Type{Kind: KindI32}
	U64  = Type{Kind: KindU64}
	I64  = Type{Kind: KindI64}
	F32  = Type{Kind: KindF32}
	F64  = Type{Kind: KindF64}
	Ptr  = Type{Kind: KindPtr}
	Size = Type{Kind: KindSize}
)

// Array is a fixed-length inline array such as char name[256].
func Array(elem Type, n uint64) Type {
	e := elem
	return Type{Kind: KindArray, Elem: &e, Len: n}
}

// Inline embeds a structure by value.
func Inline(s *Struct) Type {
	return Type{Kind: KindStruct, Struct: s}
}

func (t Type) String() string {
	switch t.Kind {
	case KindArray:
		return fmt.Sprintf("%s[%d]", t.Elem, t.Len)
	case KindStruct:
		return t.Struct.Name
	default:
		return t.Kind.String()
	}
}

// Field is a named member of a native structure.
type Field struct {
	Name string
	Type Type
}

// F declares a field.
func F(name string, t Type) Field {
	return Field{Name: name, Type: t}
}

// Struct describes a native structure. Field order is significant.
type Struct struct {
	Name   string
	Fields []Field
}

// NewStruct declares a native structure.
func NewStruct(name string, fields ...Field) *Struct {
	return &Struct{Name: name, Fields: fields}
}

// Extensible reports whether the structure starts with the sType/pNext
// header that allows it to appear in an extension chain.
func (s *Struct) Extensible() bool {
	return len(s.Fields) >= 2 &&
		s.Fields[0].Name == "sType" && s.Fields[0].Type.Kind == KindU32 &&
		s.Fields[1].Name == "pNext" && s.Fields[1].Type.Kind == KindPtr
}

// FieldInfo is a resolved field position.
type FieldInfo struct {
	Type   Type
	Offset uint64
	Size   uint64
}

// Info is the computed layout of a type.
type Info struct {
	Fields map[string]FieldInfo
	Size   uint64
	Align  uint64
}
