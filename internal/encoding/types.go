// Package encoding decodes the runtime's compact type-encoding grammar into
// type trees and prints trees back into canonical encodings.
//
// The grammar is LL(1) at the token-prefix level: a primitive tag, '^' for a
// pointer, '[N T]' for an array, '{name=fields}' and '(name=fields)' for
// aggregates, 'bN' for a bitfield, '@' for an object pointer (optionally
// qualified with a quoted class and protocol list) and '@?' for a block.
package encoding

// Kind identifies a primitive type.
type Kind uint8

const (
	Void Kind = iota + 1
	Bool
	Char
	Short
	Int
	Long
	LongLong
	Int128
	UChar
	UShort
	UInt
	ULong
	ULongLong
	UInt128
	Float
	Double
	LongDouble
	Selector
	CString
	ClassType
	// Undefined is the '?' tag: an unknown type, usually a function pointee.
	Undefined
)

var primitiveTags = map[byte]Kind{
	'v': Void,
	'B': Bool,
	'c': Char,
	's': Short,
	'i': Int,
	'l': Long,
	'q': LongLong,
	't': Int128,
	'C': UChar,
	'S': UShort,
	'I': UInt,
	'L': ULong,
	'Q': ULongLong,
	'T': UInt128,
	'f': Float,
	'd': Double,
	'D': LongDouble,
	':': Selector,
	'*': CString,
	'#': ClassType,
	'?': Undefined,
}

var kindTags = func() map[Kind]byte {
	m := make(map[Kind]byte, len(primitiveTags))
	for tag, k := range primitiveTags {
		m[k] = tag
	}
	return m
}()

var kindNames = map[Kind]string{
	Void:       "void",
	Bool:       "bool",
	Char:       "char",
	Short:      "short",
	Int:        "int",
	Long:       "long",
	LongLong:   "longlong",
	Int128:     "int128",
	UChar:      "uchar",
	UShort:     "ushort",
	UInt:       "uint",
	ULong:      "ulong",
	ULongLong:  "ulonglong",
	UInt128:    "uint128",
	Float:      "float",
	Double:     "double",
	LongDouble: "longdouble",
	Selector:   "selector",
	CString:    "cstring",
	ClassType:  "class",
	Undefined:  "undefined",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "invalid"
}

// Tag returns the encoding character for k, or 0 if k is invalid.
func (k Kind) Tag() byte {
	return kindTags[k]
}

// Qualifier is a method-type qualifier prefix such as const or oneway.
type Qualifier byte

const (
	Const   Qualifier = 'r'
	In      Qualifier = 'n'
	InOut   Qualifier = 'N'
	Out     Qualifier = 'o'
	ByCopy  Qualifier = 'O'
	ByRef   Qualifier = 'R'
	OneWay  Qualifier = 'V'
	Atomic  Qualifier = 'A'
	Complex Qualifier = 'j'
)

var qualifierNames = map[Qualifier]string{
	Const:   "const",
	In:      "in",
	InOut:   "inout",
	Out:     "out",
	ByCopy:  "bycopy",
	ByRef:   "byref",
	OneWay:  "oneway",
	Atomic:  "_Atomic",
	Complex: "_Complex",
}

func isQualifier(b byte) bool {
	_, ok := qualifierNames[Qualifier(b)]
	return ok
}

func (q Qualifier) String() string {
	return qualifierNames[q]
}

// Type is a decoded type tree node. The concrete types are *Primitive,
// *Object, *Block, *Pointer, *Array, *Struct, *Union, *BitField, *Qualified
// and *Unknown.
type Type interface {
	typeNode()
}

// Primitive is a scalar, selector, C string or Class type.
type Primitive struct {
	Kind Kind
}

// Object is an object pointer. ClassName is empty for a bare id. Protocols
// keeps declaration order with duplicates removed.
type Object struct {
	ClassName string
	Protocols []string
}

// Block is a block pointer. Return is nil when the encoding carried no
// signature. Params excludes the implicit block literal parameter.
type Block struct {
	Return Type
	Params []Type
}

type Pointer struct {
	Pointee Type
}

type Array struct {
	Length uint64
	Elem   Type
}

// Field is a struct or union member. Name is empty when the encoding did
// not carry field names.
type Field struct {
	Name string
	Type Type
}

// Struct is a C struct. An empty Name is an anonymous aggregate. Fields is
// nil when the encoding referenced the struct by name only, which is
// distinct from an empty body.
type Struct struct {
	Name   string
	Fields []Field
}

// Union has the same shape as Struct.
type Union struct {
	Name   string
	Fields []Field
}

type BitField struct {
	Width uint64
}

// Qualified wraps a type with one or more method-type qualifiers.
type Qualified struct {
	Qualifiers []Qualifier
	Inner      Type
}

// Unknown stands in for an encoding that could not be decoded.
type Unknown struct {
	Raw string
}

func (*Primitive) typeNode() {}
func (*Object) typeNode()    {}
func (*Block) typeNode()     {}
func (*Pointer) typeNode()   {}
func (*Array) typeNode()     {}
func (*Struct) typeNode()    {}
func (*Union) typeNode()     {}
func (*BitField) typeNode()  {}
func (*Qualified) typeNode() {}
func (*Unknown) typeNode()   {}

// IsID reports whether t is an unqualified object pointer.
func (o *Object) IsID() bool {
	return o.ClassName == "" && len(o.Protocols) == 0
}

// Walk calls fn for t and every node below it in depth-first order. Walking
// stops early when fn returns false for a node's children.
func Walk(t Type, fn func(Type) bool) {
	if t == nil || !fn(t) {
		return
	}
	switch n := t.(type) {
	case *Pointer:
		Walk(n.Pointee, fn)
	case *Array:
		Walk(n.Elem, fn)
	case *Struct:
		for _, f := range n.Fields {
			Walk(f.Type, fn)
		}
	case *Union:
		for _, f := range n.Fields {
			Walk(f.Type, fn)
		}
	case *Block:
		Walk(n.Return, fn)
		for _, p := range n.Params {
			Walk(p, fn)
		}
	case *Qualified:
		Walk(n.Inner, fn)
	}
}
