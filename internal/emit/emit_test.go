package emit

import (
	"strings"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/rtview/internal/metadata"
	"github.com/jward/rtview/internal/model"
)

func member(kind metadata.MemberKind, name, enc string) metadata.Member {
	m := metadata.Member{Kind: kind, Name: name, TypeEncoding: enc}
	if kind == metadata.MethodMember {
		m.SelectorParts = metadata.SplitSelector(name)
	}
	return m
}

func widget() *model.Declaration {
	return model.Build(&metadata.Descriptor{
		ID:         metadata.Class("Widget"),
		Superclass: "NSObject",
		Ivars: []metadata.Member{
			member(metadata.IvarMember, "_title", `@"NSString"`),
			member(metadata.IvarMember, "_count", "q"),
		},
		Properties: []metadata.Member{
			{Kind: metadata.PropertyMember, Name: "title", TypeEncoding: `@"NSString"`, Attributes: metadata.ParseAttributes(`T@"NSString",C,N,V_title`)},
		},
		InstanceMethods: []metadata.Member{
			member(metadata.MethodMember, "zap", "v16@0:8"),
			member(metadata.MethodMember, "alpha", "v16@0:8"),
		},
	})
}

func lines(ts Tokens) []string {
	return strings.Split(ts.String(), "\n")
}

func TestEmitDeterministic(t *testing.T) {
	m := widget()
	o := Options{SortMembers: true, ShowIvarOffsets: true}
	assert.Equal(t, Emit(m, o), Emit(m, o))
}

func TestEmitDoesNotMutateModel(t *testing.T) {
	m := widget()
	Emit(m, Options{SortMembers: true, StripSynthesizedIvars: true})
	assert.Equal(t, "zap", m.InstanceMethods[0].Name)
	assert.Len(t, m.Ivars, 2)
}

func TestEmitStripSynthesizedIvars(t *testing.T) {
	m := widget()
	out := Emit(m, Options{}).String()
	assert.Contains(t, out, "NSString *_title;")

	out = Emit(m, Options{StripSynthesizedIvars: true}).String()
	assert.NotContains(t, out, "_title;")
	assert.Contains(t, out, "long long _count;")
}

func TestEmitStripRemovesEmptyIvarBlock(t *testing.T) {
	m := model.Build(&metadata.Descriptor{
		ID:    metadata.Class("Box"),
		Ivars: []metadata.Member{member(metadata.IvarMember, "_v", "i")},
		Properties: []metadata.Member{
			{Kind: metadata.PropertyMember, Name: "v", TypeEncoding: "i", Getter: "v"},
		},
	})
	out := Emit(m, Options{StripSynthesizedIvars: true}).String()
	assert.NotContains(t, out, "{\n")
}

func TestEmitSortMembers(t *testing.T) {
	out := Emit(widget(), Options{SortMembers: true}).String()
	alpha := strings.Index(out, "- (void)alpha;")
	zap := strings.Index(out, "- (void)zap;")
	require.Positive(t, alpha)
	require.Positive(t, zap)
	assert.Less(t, alpha, zap)
	assert.Less(t, strings.Index(out, "_count;"), strings.Index(out, "_title;"))

	out = Emit(widget(), Options{}).String()
	assert.Greater(t, strings.Index(out, "- (void)alpha;"), strings.Index(out, "- (void)zap;"))
}

func TestEmitIvarOffsets(t *testing.T) {
	m := model.Build(&metadata.Descriptor{
		ID:    metadata.Class("Box"),
		Ivars: []metadata.Member{{Kind: metadata.IvarMember, Name: "_v", TypeEncoding: "i", Offset: 255}},
	})
	ts := Emit(m, Options{ShowIvarOffsets: true})
	assert.Contains(t, lines(ts), "    int _v; // +0xff")
	assert.Contains(t, ts, Token{Kind: Comment, Text: "// +0xff"})
}

func TestEmitIvarOffsetSign(t *testing.T) {
	tests := []struct {
		offset int64
		want   string
	}{
		{0, "    int _v; // +0x0"},
		{16, "    int _v; // +0x10"},
		{-8, "    int _v; // -0x8"},
	}

	for _, tt := range tests {
		m := model.Build(&metadata.Descriptor{
			ID:    metadata.Class("Box"),
			Ivars: []metadata.Member{{Kind: metadata.IvarMember, Name: "_v", TypeEncoding: "i", Offset: tt.offset}},
		})
		ts := Emit(m, Options{ShowIvarOffsets: true})
		assert.Contains(t, lines(ts), tt.want)
		assert.NotContains(t, ts.String(), "0x-")
	}
}

func TestEmitCategoryNames(t *testing.T) {
	extra := member(metadata.MethodMember, "extra", "v16@0:8")
	extra.Category = "Extras"
	m := model.Build(&metadata.Descriptor{
		ID:              metadata.Class("Box"),
		InstanceMethods: []metadata.Member{member(metadata.MethodMember, "own", "v16@0:8"), extra},
	})

	assert.NotContains(t, Emit(m, Options{}).String(), "Category")

	ls := lines(Emit(m, Options{ShowCategoryNames: true}))
	assert.Contains(t, ls, "- (void)own;")
	assert.Contains(t, ls, "- (void)extra; // Category: Extras")
}

func TestEmitMethodEncodings(t *testing.T) {
	m := model.Build(&metadata.Descriptor{
		ID:              metadata.Class("Box"),
		ClassMethods:    []metadata.Member{{Kind: metadata.MethodMember, Name: "box", TypeEncoding: "@16@0:8", SelectorParts: []string{"box"}, IsClass: true}},
		InstanceMethods: []metadata.Member{member(metadata.MethodMember, "setSize:", "v24@0:8Q16")},
	})
	ls := lines(Emit(m, Options{ShowMethodTypeEncodings: true}))
	assert.Contains(t, ls, "+ (id)box; // @16@0:8")
	assert.Contains(t, ls, "- (void)setSize:(unsigned long long)arg1; // v24@0:8Q16")
}

func TestEmitUndecodableMethod(t *testing.T) {
	m := model.Build(&metadata.Descriptor{
		ID:              metadata.Class("Box"),
		InstanceMethods: []metadata.Member{member(metadata.MethodMember, "set:to:", "v16@0:8%")},
	})
	ls := lines(Emit(m, Options{}))
	assert.Contains(t, ls, "- (v16@0:8% /* unknown type encoding */)set:(id)arg1 to:(id)arg2;")
}

func TestEmitPropertyAttributes(t *testing.T) {
	prop := func(name, attrs string, class bool) metadata.Member {
		pm := metadata.Member{Kind: metadata.PropertyMember, Name: name, Attributes: metadata.ParseAttributes(attrs), IsClass: class}
		pm.TypeEncoding, _ = pm.Attr(metadata.AttrType)
		if g, ok := pm.Attr(metadata.AttrGetter); ok {
			pm.Getter, pm.CustomGetter = g, true
		}
		if s, ok := pm.Attr(metadata.AttrSetter); ok {
			pm.Setter, pm.CustomSetter = s, true
		}
		return pm
	}
	m := model.Build(&metadata.Descriptor{
		ID: metadata.Class("Box"),
		Properties: []metadata.Member{
			prop("plain", "Ti", false),
			prop("shared", "T@\"Box\",R,&,N", true),
			prop("enabled", "TB,N,GisEnabled,SsetOn:", false),
			prop("owner", "T@,N,W", false),
		},
	})
	ls := lines(Emit(m, Options{}))
	assert.Contains(t, ls, "@property int plain;")
	assert.Contains(t, ls, "@property(class, readonly, retain, nonatomic) Box *shared;")
	assert.Contains(t, ls, "@property(nonatomic, getter=isEnabled, setter=setOn:) BOOL enabled;")
	assert.Contains(t, ls, "@property(weak, nonatomic) id owner;")
}

func TestEmitProtocolSections(t *testing.T) {
	opt := func(name string) metadata.Member {
		mm := member(metadata.MethodMember, name, "v16@0:8")
		mm.Optional = true
		return mm
	}
	m := model.Build(&metadata.Descriptor{
		ID:              metadata.Protocol("P"),
		InstanceMethods: []metadata.Member{member(metadata.MethodMember, "a", "v16@0:8"), opt("b"), opt("c"), member(metadata.MethodMember, "d", "v16@0:8")},
	})
	out := Emit(m, Options{}).String()
	assert.Contains(t, out, "@protocol P\n\n- (void)a;\n@optional\n- (void)b;\n- (void)c;\n@required\n- (void)d;\n\n@end\n")
}

func TestEmitHeader(t *testing.T) {
	m := model.Build(&metadata.Descriptor{ID: metadata.Class("Box"), Image: "/usr/lib/libbox.dylib"})
	ts := Emit(m, Options{})
	assert.Equal(t, "//\n// Generated by rtview.\n// Image: /usr/lib/libbox.dylib\n//\n\n#import <Foundation/Foundation.h>\n\n@interface Box\n\n@end\n", ts.String())
	assert.Equal(t, Token{Kind: Comment, Text: "//"}, ts[0])
	assert.Equal(t, Token{Kind: Keyword, Text: "@end"}, ts[len(ts)-2])
}

func TestOptionsFingerprint(t *testing.T) {
	base := Options{}
	assert.Equal(t, base.Fingerprint(), Options{}.Fingerprint())
	assert.Len(t, base.Fingerprint(), 16)

	seen := map[string]bool{base.Fingerprint(): true}
	for _, o := range []Options{
		{StripSynthesizedIvars: true},
		{SortMembers: true},
		{ShowIvarOffsets: true},
		{ShowMethodTypeEncodings: true},
		{ShowCategoryNames: true},
		{ShowRecordDefinitions: true},
	} {
		fp := o.Fingerprint()
		assert.False(t, seen[fp], "fingerprint collision for %+v", o)
		seen[fp] = true
	}
}

func TestBindFlags(t *testing.T) {
	o := Options{SortMembers: true}
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	o.BindFlags(fs)
	require.NoError(t, fs.Parse([]string{"--offsets", "--sort=false", "--records"}))
	assert.Equal(t, Options{ShowIvarOffsets: true, ShowRecordDefinitions: true}, o)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "recordName", RecordName.String())
	assert.Equal(t, "plain", Plain.String())
	assert.Equal(t, "invalid", Kind(200).String())
	text, err := Keyword.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "keyword", string(text))
}
