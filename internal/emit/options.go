package emit

import (
	"crypto/sha256"
	"fmt"

	"github.com/spf13/pflag"
)

// Options control how a declaration is rendered. They never affect the
// model itself.
type Options struct {
	// StripSynthesizedIvars omits ivars that back a synthesized property.
	StripSynthesizedIvars bool `yaml:"strip_synthesized_ivars" json:"strip_synthesized_ivars"`
	// SortMembers sorts each member block by name.
	SortMembers bool `yaml:"sort_members" json:"sort_members"`
	// ShowIvarOffsets appends a "// +0x8" comment to each ivar.
	ShowIvarOffsets bool `yaml:"show_ivar_offsets" json:"show_ivar_offsets"`
	// ShowMethodTypeEncodings appends the raw encoding to each method.
	ShowMethodTypeEncodings bool `yaml:"show_method_type_encodings" json:"show_method_type_encodings"`
	// ShowCategoryNames tags category-contributed members with the category.
	ShowCategoryNames bool `yaml:"show_category_names" json:"show_category_names"`
	// ShowRecordDefinitions emits referenced struct and union definitions
	// before the declaration.
	ShowRecordDefinitions bool `yaml:"show_record_definitions" json:"show_record_definitions"`
}

// Fingerprint returns a stable hash of every option. Two Options values
// have the same fingerprint iff they are equal.
func (o Options) Fingerprint() string {
	h := sha256.New()
	fmt.Fprintf(h, "strip_synthesized_ivars:%t\n", o.StripSynthesizedIvars)
	fmt.Fprintf(h, "sort_members:%t\n", o.SortMembers)
	fmt.Fprintf(h, "show_ivar_offsets:%t\n", o.ShowIvarOffsets)
	fmt.Fprintf(h, "show_method_type_encodings:%t\n", o.ShowMethodTypeEncodings)
	fmt.Fprintf(h, "show_category_names:%t\n", o.ShowCategoryNames)
	fmt.Fprintf(h, "show_record_definitions:%t\n", o.ShowRecordDefinitions)
	return fmt.Sprintf("%x", h.Sum(nil))[:16]
}

// BindFlags registers one flag per option on fs, defaulting to the current
// values of o.
func (o *Options) BindFlags(fs *pflag.FlagSet) {
	fs.BoolVar(&o.StripSynthesizedIvars, "strip-synthesized", o.StripSynthesizedIvars, "omit ivars backing synthesized properties")
	fs.BoolVar(&o.SortMembers, "sort", o.SortMembers, "sort members alphabetically within each block")
	fs.BoolVar(&o.ShowIvarOffsets, "offsets", o.ShowIvarOffsets, "show ivar offsets")
	fs.BoolVar(&o.ShowMethodTypeEncodings, "encodings", o.ShowMethodTypeEncodings, "show method type encodings")
	fs.BoolVar(&o.ShowCategoryNames, "categories", o.ShowCategoryNames, "tag members contributed by categories")
	fs.BoolVar(&o.ShowRecordDefinitions, "records", o.ShowRecordDefinitions, "emit referenced struct and union definitions")
}
