package encoding

import (
	"strconv"
	"strings"
)

// maxDepth bounds aggregate and pointer nesting so hostile input fails with
// a DecodeError instead of exhausting the stack.
const maxDepth = 512

type parser struct {
	data  string
	pos   int
	depth int
}

func (p *parser) eof() bool {
	return p.pos >= len(p.data)
}

func (p *parser) peek() byte {
	if p.eof() {
		return 0
	}
	return p.data[p.pos]
}

func (p *parser) consume() byte {
	if p.eof() {
		return 0
	}
	b := p.data[p.pos]
	p.pos++
	return b
}

func (p *parser) fail(kind ErrorKind) error {
	return &DecodeError{Kind: kind, Pos: p.pos, Input: p.data}
}

// unexpected reports Truncated at end of input and UnknownTag otherwise.
func (p *parser) unexpected() error {
	if p.eof() {
		return p.fail(Truncated)
	}
	return p.fail(UnknownTag)
}

func (p *parser) expect(b byte) error {
	if p.eof() || p.data[p.pos] != b {
		return p.unexpected()
	}
	p.pos++
	return nil
}

// readNumber reads a decimal run. ok is false when no digit is present; a
// run that does not fit in 64 bits is an Overflow error at its first digit.
func (p *parser) readNumber() (n uint64, ok bool, err error) {
	start := p.pos
	for !p.eof() && isDigit(p.peek()) {
		p.pos++
	}
	if p.pos == start {
		return 0, false, nil
	}
	n, err = strconv.ParseUint(p.data[start:p.pos], 10, 64)
	if err != nil {
		return 0, true, &DecodeError{Kind: Overflow, Pos: start, Input: p.data}
	}
	return n, true, nil
}

// skipOffset skips the frame offset that follows each type in a method
// encoding. GNU runtimes prefix register arguments with '+'.
func (p *parser) skipOffset() error {
	if c := p.peek(); c == '+' || c == '-' {
		p.pos++
	}
	_, _, err := p.readNumber()
	return err
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

// Decode parses a single complete type encoding. Trailing input after the
// type is an UnknownTag error.
func Decode(s string) (Type, error) {
	p := &parser{data: s}
	t, err := p.parseType(false)
	if err != nil {
		return nil, err
	}
	if !p.eof() {
		return nil, p.fail(UnknownTag)
	}
	return t, nil
}

// MustDecode is Decode for encodings known to be valid. It panics on error.
func MustDecode(s string) Type {
	t, err := Decode(s)
	if err != nil {
		panic(err)
	}
	return t
}

// parseType parses one type at the current position. namedFields is set
// while parsing the members of an aggregate whose fields carry quoted names.
func (p *parser) parseType(namedFields bool) (Type, error) {
	if p.eof() {
		return nil, p.fail(Truncated)
	}
	p.depth++
	defer func() { p.depth-- }()
	if p.depth > maxDepth {
		return nil, p.fail(TooDeep)
	}

	c := p.peek()
	switch {
	case isQualifier(c):
		return p.parseQualified(namedFields)
	case c == '^':
		p.pos++
		pointee, err := p.parseType(namedFields)
		if err != nil {
			return nil, err
		}
		return &Pointer{Pointee: pointee}, nil
	case c == '[':
		return p.parseArray()
	case c == '{':
		name, fields, err := p.parseAggregate('}')
		if err != nil {
			return nil, err
		}
		return &Struct{Name: name, Fields: fields}, nil
	case c == '(':
		name, fields, err := p.parseAggregate(')')
		if err != nil {
			return nil, err
		}
		return &Union{Name: name, Fields: fields}, nil
	case c == 'b':
		p.pos++
		width, ok, err := p.readNumber()
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, p.unexpected()
		}
		return &BitField{Width: width}, nil
	case c == '@':
		return p.parseObject(namedFields)
	}

	if k, ok := primitiveTags[c]; ok {
		p.pos++
		return &Primitive{Kind: k}, nil
	}
	return nil, p.fail(UnknownTag)
}

func (p *parser) parseQualified(namedFields bool) (Type, error) {
	var quals []Qualifier
	for !p.eof() && isQualifier(p.peek()) {
		quals = append(quals, Qualifier(p.consume()))
	}
	inner, err := p.parseType(namedFields)
	if err != nil {
		return nil, err
	}
	return &Qualified{Qualifiers: quals, Inner: inner}, nil
}

func (p *parser) parseArray() (Type, error) {
	p.pos++ // '['
	length, _, err := p.readNumber()
	if err != nil {
		return nil, err
	}
	elem, err := p.parseType(false)
	if err != nil {
		return nil, err
	}
	if err := p.expect(']'); err != nil {
		return nil, err
	}
	return &Array{Length: length, Elem: elem}, nil
}

// parseAggregate parses '{name=fields}' or '{name}' (and the union forms).
// The anonymous tag '?' yields an empty name. A body-less aggregate yields
// nil fields; an empty body yields a non-nil empty slice.
func (p *parser) parseAggregate(closer byte) (string, []Field, error) {
	p.pos++ // opener
	start := p.pos
	for !p.eof() && p.peek() != '=' && p.peek() != closer {
		p.pos++
	}
	if p.eof() {
		return "", nil, p.fail(Truncated)
	}
	name := p.data[start:p.pos]
	if name == "?" {
		name = ""
	}
	if p.consume() == closer {
		return name, nil, nil
	}

	fields := []Field{}
	namedFields := p.peek() == '"'
	for {
		if p.eof() {
			return "", nil, p.fail(Truncated)
		}
		if p.peek() == closer {
			p.pos++
			return name, fields, nil
		}
		var f Field
		if p.peek() == '"' {
			fieldName, err := p.readQuoted()
			if err != nil {
				return "", nil, err
			}
			f.Name = fieldName
		}
		t, err := p.parseType(namedFields)
		if err != nil {
			return "", nil, err
		}
		f.Type = t
		fields = append(fields, f)
	}
}

// readQuoted consumes '"text"' and returns text.
func (p *parser) readQuoted() (string, error) {
	p.pos++ // opening quote
	start := p.pos
	for !p.eof() && p.peek() != '"' {
		p.pos++
	}
	if p.eof() {
		return "", p.fail(Truncated)
	}
	text := p.data[start:p.pos]
	p.pos++
	return text, nil
}

func (p *parser) parseObject(namedFields bool) (Type, error) {
	p.pos++ // '@'
	switch p.peek() {
	case '?':
		p.pos++
		return p.parseBlock()
	case '"':
	default:
		return &Object{}, nil
	}

	mark := p.pos
	text, err := p.readQuoted()
	if err != nil {
		return nil, err
	}
	// Inside named fields '@"X"' is ambiguous: "X" is the class name only
	// when another field name or the end of the aggregate follows.
	if namedFields {
		if c := p.peek(); !p.eof() && c != '"' && c != '}' && c != ')' {
			p.pos = mark
			return &Object{}, nil
		}
	}
	return p.parseObjectName(text, mark+1)
}

// parseObjectName splits 'Class<P1><P2>' into a class name and protocol
// list. base is the input position of text, used for error reporting.
func (p *parser) parseObjectName(text string, base int) (Type, error) {
	o := &Object{}
	i := strings.IndexByte(text, '<')
	if i < 0 {
		o.ClassName = text
		return o, nil
	}
	o.ClassName = text[:i]
	seen := make(map[string]bool)
	for i < len(text) {
		if text[i] != '<' {
			return nil, &DecodeError{Kind: UnknownTag, Pos: base + i, Input: p.data}
		}
		end := strings.IndexByte(text[i:], '>')
		if end < 0 {
			return nil, &DecodeError{Kind: Truncated, Pos: base + len(text), Input: p.data}
		}
		name := text[i+1 : i+end]
		if !seen[name] {
			seen[name] = true
			o.Protocols = append(o.Protocols, name)
		}
		i += end + 1
	}
	return o, nil
}

// parseBlock parses an optional '<ret @? params>' signature after '@?'.
func (p *parser) parseBlock() (Type, error) {
	if p.peek() != '<' {
		return &Block{}, nil
	}
	p.pos++
	var types []Type
	for {
		if p.eof() {
			return nil, p.fail(Truncated)
		}
		if p.peek() == '>' {
			p.pos++
			break
		}
		t, err := p.parseType(false)
		if err != nil {
			return nil, err
		}
		types = append(types, t)
		if err := p.skipOffset(); err != nil {
			return nil, err
		}
	}
	if len(types) == 0 {
		return &Block{}, nil
	}
	b := &Block{Return: types[0]}
	params := types[1:]
	if len(params) > 0 {
		if _, ok := params[0].(*Block); ok {
			params = params[1:]
		}
	}
	if len(params) > 0 {
		b.Params = params
	}
	return b, nil
}
