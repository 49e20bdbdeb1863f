package metadata

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/tozd/go/errors"
)

type fakeProvider struct {
	classes    map[string]*RawClass
	protocols  map[string]*RawProtocol
	categories map[string][]RawCategory
	records    map[string]string
	block      chan struct{}
	err        error
}

func (f *fakeProvider) wait(ctx context.Context) {
	if f.block != nil {
		<-f.block
	}
}

func (f *fakeProvider) Class(ctx context.Context, name string) (*RawClass, error) {
	f.wait(ctx)
	if f.err != nil {
		return nil, f.err
	}
	return f.classes[name], nil
}

func (f *fakeProvider) Protocol(ctx context.Context, name string) (*RawProtocol, error) {
	f.wait(ctx)
	return f.protocols[name], nil
}

func (f *fakeProvider) Categories(ctx context.Context, className string) ([]RawCategory, error) {
	return f.categories[className], nil
}

type recordProvider struct {
	*fakeProvider
}

func (r recordProvider) Record(ctx context.Context, name string) (string, bool, error) {
	enc, ok := r.records[name]
	return enc, ok, nil
}

func widgetProvider() *fakeProvider {
	return &fakeProvider{
		classes: map[string]*RawClass{
			"Widget": {
				Name:       "Widget",
				Superclass: "NSObject",
				Image:      "/System/Library/Frameworks/UIKit.framework/UIKit",
				Protocols:  []string{"NSCoding"},
				Ivars: []RawIvar{
					{Name: "_title", Encoding: `@"NSString"`, Offset: 8},
					{Name: "_frame", Encoding: "{CGRect}", Offset: 16},
				},
				Methods: []RawMethod{
					{Name: "sharedWidget", Encoding: "@16@0:8", IsClass: true},
					{Name: "initWithFrame:style:", Encoding: "@56@0:8{CGRect}16q48"},
				},
				Properties: []RawProperty{
					{Name: "title", Attributes: `T@"NSString",C,N,V_title`},
				},
			},
		},
		categories: map[string][]RawCategory{
			"Widget": {
				{
					Name:       "Accessibility",
					ClassName:  "Widget",
					Protocols:  []string{"UIAccessibilityIdentification"},
					Methods:    []RawMethod{{Name: "accessibilityLabel", Encoding: "@16@0:8"}},
					Properties: []RawProperty{{Name: "enabled", Attributes: "TB,N,GisEnabled"}},
				},
			},
		},
		protocols: map[string]*RawProtocol{
			"NSCoding": {
				Name: "NSCoding",
				Methods: []RawMethod{
					{Name: "encodeWithCoder:", Encoding: "v24@0:8@16"},
					{Name: "classForCoder", Encoding: "#16@0:8", Optional: true},
				},
			},
		},
		records: map[string]string{
			"CGRect":  "{CGRect={CGPoint}{CGSize}}",
			"CGPoint": `{CGPoint="x"d"y"d}`,
			"CGSize":  `{CGSize="width"d"height"d}`,
		},
	}
}

func TestLookupClassMergesCategories(t *testing.T) {
	r := NewReader(widgetProvider())
	d, err := r.Lookup(context.Background(), Class("Widget"))
	require.NoError(t, err)

	assert.Equal(t, "NSObject", d.Superclass)
	assert.Equal(t, []string{"NSCoding", "UIAccessibilityIdentification"}, d.Protocols)
	assert.Equal(t, []string{"Accessibility"}, d.Categories)

	require.Len(t, d.Ivars, 2)
	assert.Equal(t, int64(16), d.Ivars[1].Offset)

	require.Len(t, d.ClassMethods, 1)
	assert.Equal(t, "sharedWidget", d.ClassMethods[0].Name)

	require.Len(t, d.InstanceMethods, 2)
	assert.Equal(t, []string{"initWithFrame:", "style:"}, d.InstanceMethods[0].SelectorParts)
	assert.Empty(t, d.InstanceMethods[0].Category)
	assert.Equal(t, "Accessibility", d.InstanceMethods[1].Category)

	require.Len(t, d.Properties, 2)
	assert.Equal(t, `@"NSString"`, d.Properties[0].TypeEncoding)
	assert.Equal(t, "setTitle:", d.Properties[0].Setter)
	assert.Equal(t, "isEnabled", d.Properties[1].Getter)
	assert.True(t, d.Properties[1].CustomGetter)
	assert.False(t, d.Properties[1].CustomSetter)

	assert.Nil(t, d.Records, "plain provider has no record catalog")
}

func TestLookupAttachesRecords(t *testing.T) {
	r := NewReader(recordProvider{widgetProvider()})
	d, err := r.Lookup(context.Background(), Class("Widget"))
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"CGRect":  "{CGRect={CGPoint}{CGSize}}",
		"CGPoint": `{CGPoint="x"d"y"d}`,
		"CGSize":  `{CGSize="width"d"height"d}`,
	}, d.Records)
}

func TestLookupProtocol(t *testing.T) {
	r := NewReader(widgetProvider())
	d, err := r.Lookup(context.Background(), Protocol("NSCoding"))
	require.NoError(t, err)

	assert.Equal(t, Protocol("NSCoding"), d.ID)
	require.Len(t, d.InstanceMethods, 2)
	assert.False(t, d.InstanceMethods[0].Optional)
	assert.True(t, d.InstanceMethods[1].Optional)
	assert.Empty(t, d.Categories)
}

func TestLookupNotFound(t *testing.T) {
	r := NewReader(widgetProvider())
	_, err := r.Lookup(context.Background(), Class("Gadget"))
	require.Error(t, err)

	var le *LookupError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, NotFound, le.Kind)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrTimeout)
	assert.Equal(t, "class Gadget not found", err.Error())
}

func TestLookupTimeout(t *testing.T) {
	p := widgetProvider()
	p.block = make(chan struct{})
	defer close(p.block)

	r := NewReader(p, WithTimeout(20*time.Millisecond))
	start := time.Now()
	_, err := r.Lookup(context.Background(), Class("Widget"))
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)

	var le *LookupError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, Timeout, le.Kind)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLookupParentCancel(t *testing.T) {
	p := widgetProvider()
	p.block = make(chan struct{})
	defer close(p.block)

	ctx, cancel := context.WithCancel(context.Background())
	r := NewReader(p, WithTimeout(time.Minute))
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	_, err := r.Lookup(ctx, Class("Widget"))
	assert.ErrorIs(t, err, context.Canceled)

	var le *LookupError
	assert.False(t, errors.As(err, &le))
}

func TestLookupProviderError(t *testing.T) {
	p := widgetProvider()
	p.err = errors.New("connection reset")
	r := NewReader(p)
	_, err := r.Lookup(context.Background(), Class("Widget"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestWithTimeoutIgnoresNonPositive(t *testing.T) {
	r := NewReader(widgetProvider(), WithTimeout(0), WithTimeout(-time.Second))
	assert.Equal(t, DefaultTimeout, r.timeout)
}
