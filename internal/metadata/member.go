package metadata

import (
	"strings"
)

// MemberKind distinguishes ivars, methods and properties.
type MemberKind uint8

const (
	IvarMember MemberKind = iota + 1
	MethodMember
	PropertyMember
)

func (k MemberKind) String() string {
	switch k {
	case IvarMember:
		return "ivar"
	case MethodMember:
		return "method"
	case PropertyMember:
		return "property"
	}
	return "invalid"
}

// Member is a normalized ivar, method or property record.
type Member struct {
	Kind         MemberKind
	Name         string
	TypeEncoding string

	// Offset is the ivar's byte offset.
	Offset int64

	// SelectorParts splits a method selector after each colon. A unary
	// selector has a single part.
	SelectorParts []string
	IsClass       bool

	Attributes   []Attribute
	Getter       string
	Setter       string
	CustomGetter bool
	CustomSetter bool

	// Optional marks @optional protocol members.
	Optional bool
	// Category names the contributing category; empty for the primary
	// declaration.
	Category string
}

// Attribute is one comma-separated entry of a property attribute string.
type Attribute struct {
	Code  byte
	Value string
}

// Property attribute codes.
const (
	AttrType        = 'T'
	AttrReadOnly    = 'R'
	AttrCopy        = 'C'
	AttrRetain      = '&'
	AttrNonatomic   = 'N'
	AttrGetter      = 'G'
	AttrSetter      = 'S'
	AttrDynamic     = 'D'
	AttrWeak        = 'W'
	AttrGarbage     = 'P'
	AttrIvar        = 'V'
	AttrOldEncoding = 't'
)

// Attr returns the value of the first attribute with code and whether it
// was present.
func (m *Member) Attr(code byte) (string, bool) {
	for _, a := range m.Attributes {
		if a.Code == code {
			return a.Value, true
		}
	}
	return "", false
}

// HasAttr reports whether the property carries the attribute code.
func (m *Member) HasAttr(code byte) bool {
	_, ok := m.Attr(code)
	return ok
}

// SplitSelector splits "initWithFrame:style:" into
// ["initWithFrame:", "style:"]. Unary selectors return one part.
func SplitSelector(sel string) []string {
	if sel == "" {
		return nil
	}
	var parts []string
	start := 0
	for i := 0; i < len(sel); i++ {
		if sel[i] == ':' {
			parts = append(parts, sel[start:i+1])
			start = i + 1
		}
	}
	if start < len(sel) {
		parts = append(parts, sel[start:])
	}
	return parts
}

// ParseAttributes splits a property attribute string into attributes.
// Commas nested inside the type encoding (quoted names, aggregate tags with
// template arguments) do not split.
func ParseAttributes(s string) []Attribute {
	var attrs []Attribute
	depth := 0
	quoted := false
	start := 0
	flush := func(end int) {
		if end > start {
			attrs = append(attrs, Attribute{Code: s[start], Value: s[start+1 : end]})
		}
		start = end + 1
	}
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == '"':
			quoted = !quoted
		case quoted:
		case c == '{' || c == '(' || c == '[' || c == '<':
			depth++
		case c == '}' || c == ')' || c == ']' || c == '>':
			if depth > 0 {
				depth--
			}
		case c == ',' && depth == 0:
			flush(i)
		}
	}
	flush(len(s))
	return attrs
}

func setterName(prop string) string {
	if prop == "" {
		return ""
	}
	return "set" + strings.ToUpper(prop[:1]) + prop[1:] + ":"
}

func ivarMember(raw RawIvar) Member {
	return Member{
		Kind:         IvarMember,
		Name:         raw.Name,
		TypeEncoding: raw.Encoding,
		Offset:       raw.Offset,
	}
}

func methodMember(raw RawMethod, category string) Member {
	return Member{
		Kind:          MethodMember,
		Name:          raw.Name,
		TypeEncoding:  raw.Encoding,
		SelectorParts: SplitSelector(raw.Name),
		IsClass:       raw.IsClass,
		Optional:      raw.Optional,
		Category:      category,
	}
}

func propertyMember(raw RawProperty, category string) Member {
	m := Member{
		Kind:       PropertyMember,
		Name:       raw.Name,
		Attributes: ParseAttributes(raw.Attributes),
		IsClass:    raw.IsClass,
		Optional:   raw.Optional,
		Category:   category,
		Getter:     raw.Name,
		Setter:     setterName(raw.Name),
	}
	m.TypeEncoding, _ = m.Attr(AttrType)
	if g, ok := m.Attr(AttrGetter); ok {
		m.Getter = g
		m.CustomGetter = true
	}
	if s, ok := m.Attr(AttrSetter); ok {
		m.Setter = s
		m.CustomSetter = true
	}
	return m
}
