package encoding

import (
	"strconv"
	"strings"
)

// Encode prints t in canonical encoding form. Decode(Encode(t)) yields a
// tree equal to t, and Encode(Decode(s)) == s for canonical inputs.
func Encode(t Type) string {
	var b strings.Builder
	encodeTo(&b, t)
	return b.String()
}

func encodeTo(b *strings.Builder, t Type) {
	switch n := t.(type) {
	case *Primitive:
		b.WriteByte(n.Kind.Tag())
	case *Object:
		b.WriteByte('@')
		if n.IsID() {
			return
		}
		b.WriteByte('"')
		b.WriteString(n.ClassName)
		for _, proto := range n.Protocols {
			b.WriteByte('<')
			b.WriteString(proto)
			b.WriteByte('>')
		}
		b.WriteByte('"')
	case *Block:
		b.WriteString("@?")
		if n.Return == nil {
			return
		}
		b.WriteByte('<')
		encodeTo(b, n.Return)
		b.WriteString("@?")
		for _, param := range n.Params {
			encodeTo(b, param)
		}
		b.WriteByte('>')
	case *Pointer:
		b.WriteByte('^')
		encodeTo(b, n.Pointee)
	case *Array:
		b.WriteByte('[')
		b.WriteString(strconv.FormatUint(n.Length, 10))
		encodeTo(b, n.Elem)
		b.WriteByte(']')
	case *Struct:
		encodeAggregate(b, '{', '}', n.Name, n.Fields)
	case *Union:
		encodeAggregate(b, '(', ')', n.Name, n.Fields)
	case *BitField:
		b.WriteByte('b')
		b.WriteString(strconv.FormatUint(n.Width, 10))
	case *Qualified:
		for _, q := range n.Qualifiers {
			b.WriteByte(byte(q))
		}
		encodeTo(b, n.Inner)
	case *Unknown:
		b.WriteString(n.Raw)
	}
}

func encodeAggregate(b *strings.Builder, open, closer byte, name string, fields []Field) {
	b.WriteByte(open)
	if name == "" {
		name = "?"
	}
	b.WriteString(name)
	if fields != nil {
		b.WriteByte('=')
		for _, f := range fields {
			if f.Name != "" {
				b.WriteByte('"')
				b.WriteString(f.Name)
				b.WriteByte('"')
			}
			encodeTo(b, f.Type)
		}
	}
	b.WriteByte(closer)
}
