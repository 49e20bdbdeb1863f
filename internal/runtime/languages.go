package runtime

import (
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/c"
)

// Record layouts are harvested from C and Objective-C headers; the C
// grammar parses the struct, union and typedef subset they share.
var extToLanguage = map[string]string{
	".c": "c",
	".h": "c",
}

// LanguageForFile returns the grammar name for a header or source path.
func LanguageForFile(path string) (string, bool) {
	lang, ok := extToLanguage[strings.ToLower(filepath.Ext(path))]
	return lang, ok
}

// ParserForLanguage returns the tree-sitter grammar for a language name.
func ParserForLanguage(lang string) (*sitter.Language, bool) {
	if lang != "c" {
		return nil, false
	}
	return c.GetLanguage(), true
}
