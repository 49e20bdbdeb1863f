package emit

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"

	"github.com/jward/rtview/internal/encoding"
	"github.com/jward/rtview/internal/model"
)

const indent = "    "

// Emit renders m as a header-like declaration. Output depends only on m and
// o.
func Emit(m *model.Declaration, o Options) Tokens {
	e := &emitter{opts: o}
	e.header(m)
	if o.ShowRecordDefinitions {
		for _, r := range m.Records {
			e.record(r)
		}
	}
	e.declaration(m)
	e.ivars(m)
	e.members(m)
	e.add(keyword("@end"))
	e.newline()
	return e.out
}

type emitter struct {
	opts Options
	out  Tokens
	// optional tracks the current @optional/@required section of a
	// protocol.
	optional bool
}

func (e *emitter) add(ts ...Token) {
	e.out = append(e.out, ts...)
}

func (e *emitter) newline() {
	e.add(plain("\n"))
}

func (e *emitter) comment(text string) {
	e.add(tok(Comment, text))
}

func (e *emitter) header(m *model.Declaration) {
	e.comment("//")
	e.newline()
	e.comment("// Generated by rtview.")
	e.newline()
	if m.Image != "" {
		e.comment("// Image: " + m.Image)
		e.newline()
	}
	e.comment("//")
	e.newline()
	e.newline()
	e.add(keyword("#import"), plain(" <Foundation/Foundation.h>"))
	e.newline()
	e.newline()
}

func (e *emitter) record(r model.Record) {
	tag := "struct"
	if r.IsUnion() {
		tag = "union"
	}
	e.add(keyword(tag), plain(" "), tok(RecordName, r.Name), plain(" {"))
	e.newline()
	for i, f := range recordFields(r) {
		e.add(plain(indent))
		e.add(declare(f.Type, Tokens{tok(Variable, fieldName(f, i))})...)
		e.add(plain(";"))
		e.newline()
	}
	e.add(plain("};"))
	e.newline()
	e.newline()
}

func (e *emitter) declaration(m *model.Declaration) {
	if m.IsProtocol() {
		e.add(keyword("@protocol"), plain(" "), tok(Protocol, m.Name()))
	} else {
		e.add(keyword("@interface"), plain(" "), tok(Class, m.Name()))
		if m.Superclass != "" {
			e.add(plain(" : "), tok(Class, m.Superclass))
		}
	}
	if len(m.Protocols) > 0 {
		e.add(plain(" "))
		e.add(protocolList(m.Protocols)...)
	}
	e.newline()
}

func (e *emitter) ivars(m *model.Declaration) {
	if m.IsProtocol() {
		return
	}
	var ivars []model.Member
	for _, iv := range m.Ivars {
		if e.opts.StripSynthesizedIvars && iv.BackingIvar {
			continue
		}
		ivars = append(ivars, iv)
	}
	if len(ivars) == 0 {
		return
	}
	e.sort(ivars)

	e.add(plain("{"))
	e.newline()
	for _, iv := range ivars {
		e.add(plain(indent))
		e.add(declare(iv.Type, Tokens{tok(Variable, iv.Name)})...)
		e.add(plain(";"))
		if e.opts.ShowIvarOffsets {
			e.add(plain(" "))
			e.comment(offsetComment(iv.Offset))
		}
		e.newline()
	}
	e.add(plain("}"))
	e.newline()
}

func offsetComment(off int64) string {
	if off < 0 {
		return "// -0x" + strconv.FormatUint(uint64(-off), 16)
	}
	return "// +0x" + strconv.FormatInt(off, 16)
}

func (e *emitter) members(m *model.Declaration) {
	e.newline()

	props := e.sorted(m.Properties)
	for _, p := range props {
		e.section(m, p)
		e.property(p)
	}
	if len(props) > 0 {
		e.newline()
	}

	classMethods := e.sorted(m.ClassMethods)
	instanceMethods := e.sorted(m.InstanceMethods)
	for _, mm := range classMethods {
		e.section(m, mm)
		e.method(mm)
	}
	for _, mm := range instanceMethods {
		e.section(m, mm)
		e.method(mm)
	}
	if len(classMethods)+len(instanceMethods) > 0 {
		e.newline()
	}
}

// section switches between @required and @optional in protocols.
func (e *emitter) section(m *model.Declaration, mm model.Member) {
	if !m.IsProtocol() || mm.Optional == e.optional {
		return
	}
	e.optional = mm.Optional
	if e.optional {
		e.add(keyword("@optional"))
	} else {
		e.add(keyword("@required"))
	}
	e.newline()
}

func (e *emitter) property(p model.Member) {
	e.add(keyword("@property"))
	if attrs := propertyAttributes(p); len(attrs) > 0 {
		e.add(plain("("))
		for i, a := range attrs {
			if i > 0 {
				e.add(plain(", "))
			}
			e.add(a...)
		}
		e.add(plain(")"))
	}
	e.add(plain(" "))
	e.add(declare(p.Type, Tokens{tok(Variable, p.Name)})...)
	e.add(plain(";"))
	e.trailer(p, false)
	e.newline()
}

// propertyAttributes lists the declared attributes in a fixed order:
// class, readonly, copy, retain, weak, nonatomic, getter=, setter=.
func propertyAttributes(p model.Member) []Tokens {
	var attrs []Tokens
	if p.IsClass {
		attrs = append(attrs, Tokens{keyword("class")})
	}
	for _, a := range []struct {
		code byte
		name string
	}{
		{'R', "readonly"},
		{'C', "copy"},
		{'&', "retain"},
		{'W', "weak"},
		{'N', "nonatomic"},
	} {
		if p.HasAttr(a.code) {
			attrs = append(attrs, Tokens{keyword(a.name)})
		}
	}
	if p.CustomGetter {
		attrs = append(attrs, Tokens{keyword("getter"), plain("="), tok(Method, p.Getter)})
	}
	if p.CustomSetter {
		attrs = append(attrs, Tokens{keyword("setter"), plain("="), tok(Method, p.Setter)})
	}
	return attrs
}

func (e *emitter) method(mm model.Member) {
	if mm.IsClass {
		e.add(plain("+ ("))
	} else {
		e.add(plain("- ("))
	}
	e.add(declare(mm.Type, nil)...)
	e.add(plain(")"))

	var params []Tokens
	if mm.Method != nil {
		for _, p := range mm.Method.Params() {
			params = append(params, declare(p, nil))
		}
	}
	arg := 0
	for i, part := range mm.SelectorParts {
		if i > 0 {
			e.add(plain(" "))
		}
		e.add(tok(Method, part))
		if part[len(part)-1] != ':' {
			continue
		}
		e.add(plain("("))
		if arg < len(params) {
			e.add(params[arg]...)
		} else {
			e.add(keyword("id"))
		}
		arg++
		e.add(plain(")"), tok(Variable, "arg"+strconv.Itoa(arg)))
	}
	e.add(plain(";"))
	e.trailer(mm, e.opts.ShowMethodTypeEncodings)
	e.newline()
}

// trailer appends the optional encoding and category comments of a member.
func (e *emitter) trailer(mm model.Member, withEncoding bool) {
	if withEncoding {
		e.add(plain(" "))
		e.comment("// " + mm.TypeEncoding)
	}
	if e.opts.ShowCategoryNames && mm.Category != "" {
		e.add(plain(" "))
		e.comment(fmt.Sprintf("// Category: %s", mm.Category))
	}
}

func (e *emitter) sort(members []model.Member) {
	if !e.opts.SortMembers {
		return
	}
	slices.SortStableFunc(members, func(a, b model.Member) int {
		return cmp.Compare(a.Name, b.Name)
	})
}

// sorted returns members in emission order without touching the model.
func (e *emitter) sorted(members []model.Member) []model.Member {
	if !e.opts.SortMembers {
		return members
	}
	out := slices.Clone(members)
	e.sort(out)
	return out
}

func recordFields(r model.Record) []encoding.Field {
	switch n := r.Type.(type) {
	case *encoding.Struct:
		return n.Fields
	case *encoding.Union:
		return n.Fields
	}
	return nil
}
