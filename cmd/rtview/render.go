package main

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
	"gitlab.com/tozd/go/errors"

	"github.com/jward/rtview"
	"github.com/jward/rtview/internal/emit"
)

const ansiReset = "\x1b[0m"

// style is an SGR attribute list such as "1;35".
type style string

// xcodeTheme approximates Xcode's default source colors on a terminal.
var xcodeTheme = map[rtview.TokenKind]style{
	emit.Keyword:    "1;35",
	emit.Comment:    "32",
	emit.Variable:   "36",
	emit.Method:     "34",
	emit.RecordName: "33",
	emit.Class:      "1;36",
	emit.Protocol:   "35",
	emit.Numeric:    "94",
}

// ansiRenderer colors tokens by kind. Escape sequences are built on first
// use and cached; concurrent renders may store the same entry twice.
type ansiRenderer struct {
	theme map[rtview.TokenKind]style
	cache sync.Map // rtview.TokenKind -> string
}

func newANSIRenderer(theme map[rtview.TokenKind]style) *ansiRenderer {
	return &ansiRenderer{theme: theme}
}

var defaultRenderer = newANSIRenderer(xcodeTheme)

// escape returns the SGR sequence for k, or "" when k is uncolored.
func (r *ansiRenderer) escape(k rtview.TokenKind) string {
	if v, ok := r.cache.Load(k); ok {
		return v.(string)
	}
	seq := ""
	if s, ok := r.theme[k]; ok && s != "" {
		seq = "\x1b[" + string(s) + "m"
	}
	r.cache.Store(k, seq)
	return seq
}

// Render writes ts with ANSI colors.
func (r *ansiRenderer) Render(w io.Writer, ts rtview.Tokens) error {
	var b strings.Builder
	for _, t := range ts {
		seq := r.escape(t.Kind)
		if seq == "" {
			b.WriteString(t.Text)
			continue
		}
		b.WriteString(seq)
		b.WriteString(t.Text)
		b.WriteString(ansiReset)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// useColor resolves a --color mode against the output file.
func useColor(mode string, f *os.File) (bool, error) {
	switch mode {
	case "always":
		return true, nil
	case "never":
		return false, nil
	case "auto", "":
		return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()), nil
	}
	return false, errors.Errorf("invalid color mode %q: must be auto, always or never", mode)
}
