package rtview

import (
	"gitlab.com/tozd/go/errors"

	"github.com/jward/rtview/internal/emit"
	"github.com/jward/rtview/internal/encoding"
)

// TypeDescription explains a type or method encoding.
type TypeDescription struct {
	Encoding  string             `json:"encoding"`
	Canonical string             `json:"canonical"`
	CType     string             `json:"c_type,omitempty"`
	Method    *MethodDescription `json:"method,omitempty"`
	// Tree is the decoded type; nil for method encodings.
	Tree encoding.Type `json:"-"`
}

// MethodDescription is the C rendering of a method signature.
type MethodDescription struct {
	Return string   `json:"return"`
	Params []string `json:"params"`
}

// DescribeType decodes s as a single type encoding or, failing that, as a
// method encoding. The returned error is the single-type decode error when
// both fail.
func DescribeType(s string) (*TypeDescription, error) {
	t, err := encoding.Decode(s)
	if err == nil {
		return &TypeDescription{
			Encoding:  s,
			Canonical: encoding.Encode(t),
			CType:     emit.TypeTokens(t).String(),
			Tree:      t,
		}, nil
	}

	sig, merr := encoding.DecodeMethod(s)
	if merr != nil || len(sig.Args) < 2 {
		return nil, errors.Errorf("decode %q: %w", s, err)
	}
	d := &TypeDescription{
		Encoding: s,
		Method:   &MethodDescription{Return: emit.TypeTokens(sig.Return).String(), Params: []string{}},
	}
	canonical := encoding.Encode(sig.Return)
	for _, a := range sig.Args {
		canonical += encoding.Encode(a)
	}
	for _, p := range sig.Params() {
		d.Method.Params = append(d.Method.Params, emit.TypeTokens(p).String())
	}
	d.Canonical = canonical
	return d, nil
}
