package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseID(t *testing.T) {
	tests := []struct {
		in   string
		want ID
	}{
		{"NSObject", Class("NSObject")},
		{"  NSView ", Class("NSView")},
		{"class:NSView", Class("NSView")},
		{"protocol:NSCoding", Protocol("NSCoding")},
		{"@protocol(NSCopying)", Protocol("NSCopying")},
		{"<NSSecureCoding>", Protocol("NSSecureCoding")},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseID(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseIDInvalid(t *testing.T) {
	for _, in := range []string{"", "class:", "<>", "two words", "protocol:a(b)", "@protocol()"} {
		t.Run(in, func(t *testing.T) {
			_, err := ParseID(in)
			assert.Error(t, err)
		})
	}
}

func TestIDString(t *testing.T) {
	assert.Equal(t, "class NSObject", Class("NSObject").String())
	assert.Equal(t, "protocol NSCoding", Protocol("NSCoding").String())
	assert.Equal(t, Class("A"), Class("A"))
	assert.NotEqual(t, Class("A"), Protocol("A"))
}
