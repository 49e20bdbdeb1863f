package model

import (
	"github.com/jward/rtview/internal/encoding"
)

type recordCollector struct {
	catalog map[string]string
	seen    map[string]bool
	out     []Record
}

// collectRecords gathers named aggregates in member order: ivars,
// properties, class methods, instance methods. Body-less references are
// completed from the catalog; catalog entries that fail to decode or do not
// describe the named aggregate are ignored.
func collectRecords(m *Declaration, catalog map[string]string) []Record {
	c := &recordCollector{catalog: catalog, seen: make(map[string]bool)}
	for _, group := range [][]Member{m.Ivars, m.Properties, m.ClassMethods, m.InstanceMethods} {
		for _, mm := range group {
			if mm.Method != nil {
				c.visit(mm.Method.Return)
				for _, arg := range mm.Method.Params() {
					c.visit(arg)
				}
				continue
			}
			c.visit(mm.Type)
		}
	}
	return c.out
}

func (c *recordCollector) visit(t encoding.Type) {
	switch n := t.(type) {
	case *encoding.Struct:
		c.aggregate("struct", n.Name, n.Fields, t)
	case *encoding.Union:
		c.aggregate("union", n.Name, n.Fields, t)
	case *encoding.Pointer:
		c.visit(n.Pointee)
	case *encoding.Array:
		c.visit(n.Elem)
	case *encoding.Qualified:
		c.visit(n.Inner)
	case *encoding.Block:
		c.visit(n.Return)
		for _, p := range n.Params {
			c.visit(p)
		}
	}
}

func (c *recordCollector) aggregate(tag, name string, fields []encoding.Field, t encoding.Type) {
	if name == "" {
		for _, f := range fields {
			c.visit(f.Type)
		}
		return
	}
	key := tag + " " + name
	if c.seen[key] {
		return
	}
	if fields == nil {
		t, fields = c.resolve(tag, name)
		if t == nil {
			return
		}
	}
	c.seen[key] = true
	for _, f := range fields {
		c.visit(f.Type)
	}
	c.out = append(c.out, Record{Name: name, Type: t})
}

func (c *recordCollector) resolve(tag, name string) (encoding.Type, []encoding.Field) {
	enc, ok := c.catalog[name]
	if !ok {
		return nil, nil
	}
	t, err := encoding.Decode(enc)
	if err != nil {
		return nil, nil
	}
	switch n := t.(type) {
	case *encoding.Struct:
		if tag == "struct" && n.Name == name && n.Fields != nil {
			return n, n.Fields
		}
	case *encoding.Union:
		if tag == "union" && n.Name == name && n.Fields != nil {
			return n, n.Fields
		}
	}
	return nil, nil
}
