package encoding

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/tozd/go/errors"
)

func TestDecodeMethod(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in         string
		wantReturn Type
		wantParams []Type
		wantArgs   int
	}{
		{"v16@0:8", prim(Void), nil, 2},
		{"v24@0:8@16", prim(Void), []Type{&Object{}}, 3},
		{`@"NSString"16@0:8`, &Object{ClassName: "NSString"}, nil, 2},
		{"B40@0:8{CGPoint=dd}16", prim(Bool), []Type{&Struct{
			Name:   "CGPoint",
			Fields: []Field{{Type: prim(Double)}, {Type: prim(Double)}},
		}}, 3},
		{"v32@0:8@?<v@?B>16^B24", prim(Void), []Type{
			&Block{Return: prim(Void), Params: []Type{prim(Bool)}},
			&Pointer{Pointee: prim(Bool)},
		}, 4},
		{"Vv16@0:8", &Qualified{Qualifiers: []Qualifier{OneWay}, Inner: prim(Void)}, nil, 2},
		{"v@:i", prim(Void), []Type{prim(Int)}, 3},
		{"v12@+8:+12i-4", prim(Void), []Type{prim(Int)}, 3},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			sig, err := DecodeMethod(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.wantReturn, sig.Return)
			assert.Len(t, sig.Args, tt.wantArgs)
			assert.Equal(t, tt.wantParams, sig.Params())
		})
	}
}

func TestDecodeMethod_Errors(t *testing.T) {
	t.Parallel()

	_, err := DecodeMethod("")
	assert.True(t, errors.Is(err, ErrTruncated))

	_, err = DecodeMethod("v24@0:8{")
	assert.True(t, errors.Is(err, ErrTruncated))

	_, err = DecodeMethod("v24@0:8%16")
	assert.True(t, errors.Is(err, ErrUnknownTag))

	_, err = DecodeMethod("v24@0:99999999999999999999")
	assert.True(t, errors.Is(err, ErrOverflow))
}
