// Package model assembles decoded declaration models from metadata
// descriptors. Building is pure: the same descriptor always yields an equal
// model, and decode failures degrade to Unknown types instead of errors.
package model

import (
	"github.com/jward/rtview/internal/encoding"
	"github.com/jward/rtview/internal/metadata"
)

// Declaration is the immutable model of one class or protocol.
type Declaration struct {
	ID         metadata.ID
	Superclass string
	Image      string
	// Protocols is deduplicated, keeping the first occurrence.
	Protocols       []string
	Ivars           []Member
	ClassMethods    []Member
	InstanceMethods []Member
	Properties      []Member
	Categories      []string
	// Records holds the named structs and unions with known bodies that the
	// members reference. A record precedes every record that uses it.
	Records []Record
}

func (d *Declaration) Name() string { return d.ID.Name }

func (d *Declaration) IsProtocol() bool { return d.ID.Kind == metadata.KindProtocol }

// Member pairs a metadata record with its decoded type.
type Member struct {
	metadata.Member

	// Type is the decoded ivar or property type, or the method return type.
	// It is *encoding.Unknown when decoding failed.
	Type encoding.Type
	// Method is the decoded signature; nil for non-methods and for methods
	// whose encoding failed to decode.
	Method *encoding.Signature

	// Backed marks a property synthesized onto an ivar of the class.
	Backed bool
	// BackingIvar marks an ivar that backs a property.
	BackingIvar bool
}

// Record is a named struct or union definition. Type is *encoding.Struct or
// *encoding.Union with a non-nil Fields.
type Record struct {
	Name string
	Type encoding.Type
}

// IsUnion reports whether the record is a union.
func (r Record) IsUnion() bool {
	_, ok := r.Type.(*encoding.Union)
	return ok
}

// Build decodes every member of d and assembles the declaration model.
func Build(d *metadata.Descriptor) *Declaration {
	m := &Declaration{
		ID:         d.ID,
		Superclass: d.Superclass,
		Image:      d.Image,
		Protocols:  dedup(d.Protocols),
		Categories: append([]string(nil), d.Categories...),
	}
	for _, iv := range d.Ivars {
		m.Ivars = append(m.Ivars, Member{Member: iv, Type: decodeType(iv.TypeEncoding)})
	}
	for _, p := range d.Properties {
		m.Properties = append(m.Properties, Member{Member: p, Type: decodeType(p.TypeEncoding)})
	}
	m.ClassMethods = buildMethods(d.ClassMethods)
	m.InstanceMethods = buildMethods(d.InstanceMethods)

	markBacking(m)
	m.Records = collectRecords(m, d.Records)
	return m
}

func decodeType(enc string) encoding.Type {
	t, err := encoding.Decode(enc)
	if err != nil {
		return &encoding.Unknown{Raw: enc}
	}
	return t
}

func buildMethods(records []metadata.Member) []Member {
	var out []Member
	for _, r := range records {
		mm := Member{Member: r}
		sig, err := encoding.DecodeMethod(r.TypeEncoding)
		if err != nil {
			mm.Type = &encoding.Unknown{Raw: r.TypeEncoding}
		} else {
			mm.Method = sig
			mm.Type = sig.Return
		}
		out = append(out, mm)
	}
	return out
}

func dedup(names []string) []string {
	if len(names) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	return out
}

// markBacking pairs instance properties without custom accessors with an
// ivar named _name or name. Category properties never own storage.
func markBacking(m *Declaration) {
	ivars := make(map[string]int, len(m.Ivars))
	for i, iv := range m.Ivars {
		ivars[iv.Name] = i
	}
	for i := range m.Properties {
		p := &m.Properties[i]
		if p.IsClass || p.CustomGetter || p.CustomSetter || p.Category != "" {
			continue
		}
		idx, ok := ivars["_"+p.Name]
		if !ok {
			idx, ok = ivars[p.Name]
		}
		if ok {
			p.Backed = true
			m.Ivars[idx].BackingIvar = true
		}
	}
}
