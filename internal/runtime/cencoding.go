package runtime

import (
	"context"
	"strconv"
	"strings"

	"github.com/risor-io/risor/object"
	sitter "github.com/smacker/go-tree-sitter"
)

// cTypeEncodings maps C type spellings, after whitespace normalization, to
// their runtime type encodings for a 64-bit target.
var cTypeEncodings = map[string]string{
	"void":                   "v",
	"char":                   "c",
	"signed char":            "c",
	"unsigned char":          "C",
	"short":                  "s",
	"short int":              "s",
	"signed short":           "s",
	"unsigned short":         "S",
	"unsigned short int":     "S",
	"int":                    "i",
	"signed":                 "i",
	"signed int":             "i",
	"unsigned":               "I",
	"unsigned int":           "I",
	"long":                   "q",
	"long int":               "q",
	"signed long":            "q",
	"unsigned long":          "Q",
	"unsigned long int":      "Q",
	"long long":              "q",
	"long long int":          "q",
	"signed long long":       "q",
	"unsigned long long":     "Q",
	"unsigned long long int": "Q",
	"__int128":               "t",
	"unsigned __int128":      "T",
	"float":                  "f",
	"double":                 "d",
	"long double":            "D",
	"bool":                   "B",
	"_Bool":                  "B",
	"BOOL":                   "B",
	"int8_t":                 "c",
	"uint8_t":                "C",
	"int16_t":                "s",
	"uint16_t":               "S",
	"int32_t":                "i",
	"uint32_t":               "I",
	"int64_t":                "q",
	"uint64_t":               "Q",
	"intptr_t":               "q",
	"uintptr_t":              "Q",
	"size_t":                 "Q",
	"ssize_t":                "q",
	"CGFloat":                "d",
	"NSInteger":              "q",
	"NSUInteger":             "Q",
	"id":                     "@",
	"SEL":                    ":",
	"Class":                  "#",
}

// cEncoder converts tree-sitter C declarations to type encodings. aliases
// maps typedef names seen so far to their encodings.
type cEncoder struct {
	src     []byte
	aliases map[string]string
}

// typeEncoding encodes a type specifier node. Named aggregates are encoded
// by reference so the record catalog can complete them.
func (e *cEncoder) typeEncoding(n *sitter.Node) string {
	switch n.Type() {
	case "primitive_type", "sized_type_specifier", "type_identifier":
		name := strings.Join(strings.Fields(n.Content(e.src)), " ")
		if enc, ok := e.aliases[name]; ok {
			return enc
		}
		if enc, ok := cTypeEncodings[name]; ok {
			return enc
		}
		if n.Type() == "type_identifier" {
			// Unresolved typedef names are assumed to name records.
			return "{" + name + "}"
		}
		return "?"
	case "struct_specifier", "union_specifier":
		if name := n.ChildByFieldName("name"); name != nil {
			lhs, rhs := brackets(n)
			return lhs + name.Content(e.src) + rhs
		}
		return e.aggregate(n)
	case "enum_specifier":
		return "i"
	}
	return "?"
}

// aggregate encodes a struct or union specifier including its body.
func (e *cEncoder) aggregate(n *sitter.Node) string {
	lhs, rhs := brackets(n)
	name := "?"
	if nn := n.ChildByFieldName("name"); nn != nil {
		name = nn.Content(e.src)
	}
	body := n.ChildByFieldName("body")
	if body == nil {
		return lhs + name + rhs
	}

	var b strings.Builder
	b.WriteString(lhs)
	b.WriteString(name)
	b.WriteString("=")
	for i := 0; i < int(body.NamedChildCount()); i++ {
		field := body.NamedChild(i)
		if field.Type() != "field_declaration" {
			continue
		}
		e.field(&b, field)
	}
	b.WriteString(rhs)
	return b.String()
}

func (e *cEncoder) field(b *strings.Builder, field *sitter.Node) {
	typ := field.ChildByFieldName("type")
	if typ == nil {
		return
	}
	var base string
	if t := typ.Type(); (t == "struct_specifier" || t == "union_specifier") && typ.ChildByFieldName("body") != nil {
		base = e.aggregate(typ)
	} else {
		base = e.typeEncoding(typ)
	}

	width := ""
	for i := 0; i < int(field.NamedChildCount()); i++ {
		if c := field.NamedChild(i); c.Type() == "bitfield_clause" && c.NamedChildCount() > 0 {
			width = c.NamedChild(0).Content(e.src)
		}
	}

	declared := false
	for i := 0; i < int(field.ChildCount()); i++ {
		if field.FieldNameForChild(i) != "declarator" {
			continue
		}
		name, enc := e.declarator(field.Child(i), base)
		if width != "" {
			enc = "b" + width
		}
		b.WriteString(strconv.Quote(name))
		b.WriteString(enc)
		declared = true
	}
	if !declared {
		// Anonymous member aggregate.
		b.WriteString(base)
	}
}

// declarator applies a declarator to base and returns the declared name
// with its encoding.
func (e *cEncoder) declarator(n *sitter.Node, base string) (string, string) {
	if n == nil {
		return "", base
	}
	switch n.Type() {
	case "pointer_declarator", "abstract_pointer_declarator":
		return e.declarator(n.ChildByFieldName("declarator"), pointerTo(base))
	case "array_declarator", "abstract_array_declarator":
		size := "0"
		if s := n.ChildByFieldName("size"); s != nil {
			if _, err := strconv.Atoi(s.Content(e.src)); err == nil {
				size = s.Content(e.src)
			}
		}
		return e.declarator(n.ChildByFieldName("declarator"), "["+size+base+"]")
	case "function_declarator", "abstract_function_declarator":
		return e.declarator(n.ChildByFieldName("declarator"), "?")
	case "parenthesized_declarator", "abstract_parenthesized_declarator":
		if n.NamedChildCount() == 0 {
			return "", base
		}
		return e.declarator(n.NamedChild(0), base)
	}
	return n.Content(e.src), base
}

func pointerTo(enc string) string {
	if enc == "c" {
		return "*"
	}
	return "^" + enc
}

func brackets(n *sitter.Node) (string, string) {
	if n.Type() == "union_specifier" {
		return "(", ")"
	}
	return "{", "}"
}

// newCEncoder resolves the source of node and reads an optional Risor
// aliases map.
func newCEncoder(trees *treeRegistry, fn string, node *sitter.Node, aliases object.Object) (*cEncoder, object.Object) {
	h, errObj := trees.source(fn, node)
	if errObj != nil {
		return nil, errObj
	}
	e := &cEncoder{src: h.src, aliases: map[string]string{}}
	if aliases == nil {
		return e, nil
	}
	m, ok := aliases.(*object.Map)
	if !ok {
		return nil, object.Errorf("%s: aliases must be a map, got %s", fn, aliases.Type())
	}
	for k, v := range m.Value() {
		if s, ok := v.(*object.String); ok {
			e.aliases[k] = s.Value()
		}
	}
	return e, nil
}

func nodeArg(fn string, obj object.Object) (*sitter.Node, object.Object) {
	proxy, ok := obj.(*object.Proxy)
	if !ok {
		return nil, object.Errorf("%s: expected proxy (Node), got %s", fn, obj.Type())
	}
	node, ok := proxy.Interface().(*sitter.Node)
	if !ok {
		return nil, object.Errorf("%s: expected *sitter.Node, got %T", fn, proxy.Interface())
	}
	return node, nil
}

// makeCTypeEncodingFn creates "c_type_encoding".
//
// c_type_encoding(type_node, aliases?) → string
func makeCTypeEncodingFn(trees *treeRegistry) *object.Builtin {
	return object.NewBuiltin("c_type_encoding", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) < 1 || len(args) > 2 {
			return object.Errorf("c_type_encoding: expected 1 or 2 arguments, got %d", len(args))
		}
		node, errObj := nodeArg("c_type_encoding", args[0])
		if errObj != nil {
			return errObj
		}
		var aliases object.Object
		if len(args) == 2 {
			aliases = args[1]
		}
		e, errObj := newCEncoder(trees, "c_type_encoding", node, aliases)
		if errObj != nil {
			return errObj
		}
		return object.NewString(e.typeEncoding(node))
	})
}

// makeCDeclarationFn creates "c_declaration", which applies a declarator to
// a type, as in a typedef.
//
// c_declaration(type_node, declarator_node, aliases?) → {"name", "encoding"}
func makeCDeclarationFn(trees *treeRegistry) *object.Builtin {
	return object.NewBuiltin("c_declaration", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) < 2 || len(args) > 3 {
			return object.Errorf("c_declaration: expected 2 or 3 arguments, got %d", len(args))
		}
		typ, errObj := nodeArg("c_declaration", args[0])
		if errObj != nil {
			return errObj
		}
		decl, errObj := nodeArg("c_declaration", args[1])
		if errObj != nil {
			return errObj
		}
		var aliases object.Object
		if len(args) == 3 {
			aliases = args[2]
		}
		e, errObj := newCEncoder(trees, "c_declaration", typ, aliases)
		if errObj != nil {
			return errObj
		}
		base := e.typeEncoding(typ)
		if t := typ.Type(); (t == "struct_specifier" || t == "union_specifier") && typ.ChildByFieldName("name") == nil {
			base = e.aggregate(typ)
		}
		name, enc := e.declarator(decl, base)
		return object.NewMap(map[string]object.Object{
			"name":     object.NewString(name),
			"encoding": object.NewString(enc),
		})
	})
}

// makeRecordEncodingFn creates "record_encoding", the full encoding of a
// struct or union specifier with a body.
//
// record_encoding(specifier_node, aliases?) → string
func makeRecordEncodingFn(trees *treeRegistry) *object.Builtin {
	return object.NewBuiltin("record_encoding", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) < 1 || len(args) > 2 {
			return object.Errorf("record_encoding: expected 1 or 2 arguments, got %d", len(args))
		}
		node, errObj := nodeArg("record_encoding", args[0])
		if errObj != nil {
			return errObj
		}
		if t := node.Type(); t != "struct_specifier" && t != "union_specifier" {
			return object.Errorf("record_encoding: expected struct or union specifier, got %s", t)
		}
		var aliases object.Object
		if len(args) == 2 {
			aliases = args[1]
		}
		e, errObj := newCEncoder(trees, "record_encoding", node, aliases)
		if errObj != nil {
			return errObj
		}
		return object.NewString(e.aggregate(node))
	})
}
