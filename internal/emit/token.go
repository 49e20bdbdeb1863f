// Package emit renders declaration models as streams of semantically tagged
// tokens. Concatenating the token texts yields the plain-text listing.
package emit

import "strings"

// Kind is the semantic category of a token.
type Kind uint8

const (
	Plain Kind = iota
	Keyword
	Comment
	Variable
	Method
	RecordName
	Class
	Protocol
	Numeric
)

var kindNames = [...]string{
	Plain:      "plain",
	Keyword:    "keyword",
	Comment:    "comment",
	Variable:   "variable",
	Method:     "method",
	RecordName: "recordName",
	Class:      "class",
	Protocol:   "protocol",
	Numeric:    "numeric",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "invalid"
}

// MarshalText renders the kind by name so JSON and YAML output stay
// readable.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

type Token struct {
	Kind Kind   `json:"kind"`
	Text string `json:"text"`
}

type Tokens []Token

// String returns the plain-text rendering.
func (ts Tokens) String() string {
	var b strings.Builder
	for _, t := range ts {
		b.WriteString(t.Text)
	}
	return b.String()
}

func tok(k Kind, text string) Token { return Token{Kind: k, Text: text} }

func plain(text string) Token { return tok(Plain, text) }

func keyword(text string) Token { return tok(Keyword, text) }
