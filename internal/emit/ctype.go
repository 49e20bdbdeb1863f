package emit

import (
	"strconv"

	"github.com/jward/rtview/internal/encoding"
)

const (
	unknownFunctionPointer = "CDUnknownFunctionPointerType"
	unknownBlock           = "CDUnknownBlockType"
	unknownEncodingComment = "/* unknown type encoding */"
)

var primitiveNames = map[encoding.Kind]string{
	encoding.Void:       "void",
	encoding.Bool:       "BOOL",
	encoding.Char:       "char",
	encoding.Short:      "short",
	encoding.Int:        "int",
	encoding.Long:       "long",
	encoding.LongLong:   "long long",
	encoding.Int128:     "__int128",
	encoding.UChar:      "unsigned char",
	encoding.UShort:     "unsigned short",
	encoding.UInt:       "unsigned int",
	encoding.ULong:      "unsigned long",
	encoding.ULongLong:  "unsigned long long",
	encoding.UInt128:    "unsigned __int128",
	encoding.Float:      "float",
	encoding.Double:     "double",
	encoding.LongDouble: "long double",
	encoding.Selector:   "SEL",
	encoding.ClassType:  "Class",
	encoding.Undefined:  "void",
}

// TypeTokens renders t as an abstract declarator, e.g. "NSString *" or
// "void (^)(int)".
func TypeTokens(t encoding.Type) Tokens {
	return declare(t, nil)
}

// declare renders a C declaration of inner with type t. inner holds the
// declarator built so far; it is empty for abstract declarators such as
// method return types.
func declare(t encoding.Type, inner Tokens) Tokens {
	switch n := t.(type) {
	case *encoding.Primitive:
		if n.Kind == encoding.CString {
			return attach(Tokens{keyword("char"), plain(" *")}, inner, true)
		}
		return attach(Tokens{keyword(primitiveNames[n.Kind])}, inner, false)

	case *encoding.Object:
		if n.ClassName == "" {
			base := Tokens{keyword("id")}
			if len(n.Protocols) > 0 {
				base = append(base, plain(" "))
				base = append(base, protocolList(n.Protocols)...)
			}
			return attach(base, inner, false)
		}
		base := Tokens{tok(Class, n.ClassName)}
		base = append(base, protocolList(n.Protocols)...)
		base = append(base, plain(" *"))
		return attach(base, inner, true)

	case *encoding.Pointer:
		if p, ok := n.Pointee.(*encoding.Primitive); ok && p.Kind == encoding.Undefined {
			return attach(Tokens{keyword(unknownFunctionPointer)}, inner, false)
		}
		var next Tokens
		if _, ok := n.Pointee.(*encoding.Array); ok {
			next = append(Tokens{plain("(*")}, inner...)
			next = append(next, plain(")"))
		} else {
			next = append(Tokens{plain("*")}, inner...)
		}
		return declare(n.Pointee, next)

	case *encoding.Array:
		next := append(Tokens(nil), inner...)
		next = append(next, plain("["), tok(Numeric, strconv.FormatUint(n.Length, 10)), plain("]"))
		return declare(n.Elem, next)

	case *encoding.Struct:
		return attach(aggregateTokens("struct", n.Name, n.Fields), inner, false)

	case *encoding.Union:
		return attach(aggregateTokens("union", n.Name, n.Fields), inner, false)

	case *encoding.BitField:
		out := attach(Tokens{keyword("unsigned int")}, inner, false)
		return append(out, plain(":"), tok(Numeric, strconv.FormatUint(n.Width, 10)))

	case *encoding.Block:
		if n.Return == nil {
			return attach(Tokens{keyword(unknownBlock)}, inner, false)
		}
		next := append(Tokens{plain("(^")}, inner...)
		next = append(next, plain(")("))
		if len(n.Params) == 0 {
			next = append(next, keyword("void"))
		}
		for i, p := range n.Params {
			if i > 0 {
				next = append(next, plain(", "))
			}
			next = append(next, declare(p, nil)...)
		}
		next = append(next, plain(")"))
		return declare(n.Return, next)

	case *encoding.Qualified:
		var out Tokens
		for _, q := range n.Qualifiers {
			out = append(out, keyword(q.String()), plain(" "))
		}
		return append(out, declare(n.Inner, inner)...)

	case *encoding.Unknown:
		return attach(Tokens{plain(n.Raw), plain(" "), tok(Comment, unknownEncodingComment)}, inner, false)
	}
	return attach(Tokens{keyword("void")}, inner, false)
}

// attach joins a base type and a declarator. Pointer-like bases already end
// in "*" and take the declarator without a separating space.
func attach(base, inner Tokens, starred bool) Tokens {
	if len(inner) == 0 {
		return base
	}
	if !starred {
		base = append(base, plain(" "))
	}
	return append(base, inner...)
}

func protocolList(protos []string) Tokens {
	if len(protos) == 0 {
		return nil
	}
	out := Tokens{plain("<")}
	for i, p := range protos {
		if i > 0 {
			out = append(out, plain(", "))
		}
		out = append(out, tok(Protocol, p))
	}
	return append(out, plain(">"))
}

// aggregateTokens names a struct or union. Anonymous aggregates render their
// fields inline.
func aggregateTokens(tag, name string, fields []encoding.Field) Tokens {
	out := Tokens{keyword(tag)}
	if name != "" {
		return append(out, plain(" "), tok(RecordName, name))
	}
	out = append(out, plain(" { "))
	for i, f := range fields {
		out = append(out, declare(f.Type, Tokens{tok(Variable, fieldName(f, i))})...)
		out = append(out, plain("; "))
	}
	return append(out, plain("}"))
}

func fieldName(f encoding.Field, i int) string {
	if f.Name != "" {
		return f.Name
	}
	return "_field" + strconv.Itoa(i+1)
}
