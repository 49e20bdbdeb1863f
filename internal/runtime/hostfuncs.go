package runtime

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"unsafe"

	"github.com/risor-io/risor/object"
	sitter "github.com/smacker/go-tree-sitter"
)

// parsedHeader is the source and grammar behind one parsed tree.
type parsedHeader struct {
	src  []byte
	lang *sitter.Language
}

// treeRegistry remembers every tree a script parsed, keyed by root node.
// Nodes handed to scripts carry no reference to their tree, so host
// functions find the source by walking a node up to its root.
type treeRegistry struct {
	mu    sync.RWMutex
	trees map[uintptr]parsedHeader
}

func newTreeRegistry() *treeRegistry {
	return &treeRegistry{trees: map[uintptr]parsedHeader{}}
}

func rootKey(n *sitter.Node) uintptr {
	for p := n.Parent(); p != nil; p = n.Parent() {
		n = p
	}
	return uintptr(unsafe.Pointer(n))
}

func (r *treeRegistry) add(tree *sitter.Tree, src []byte, lang *sitter.Language) {
	key := uintptr(unsafe.Pointer(tree.RootNode()))
	r.mu.Lock()
	r.trees[key] = parsedHeader{src: src, lang: lang}
	r.mu.Unlock()
}

func (r *treeRegistry) lookup(n *sitter.Node) (parsedHeader, bool) {
	key := rootKey(n)
	r.mu.RLock()
	h, ok := r.trees[key]
	r.mu.RUnlock()
	return h, ok
}

func (r *treeRegistry) source(fn string, n *sitter.Node) (parsedHeader, object.Object) {
	h, ok := r.lookup(n)
	if !ok {
		return parsedHeader{}, object.Errorf("%s: node does not belong to a parsed header", fn)
	}
	return h, nil
}

func stringArg(fn, what string, obj object.Object) (string, object.Object) {
	s, ok := obj.(*object.String)
	if !ok {
		return "", object.Errorf("%s: %s must be a string, got %s", fn, what, obj.Type())
	}
	return s.Value(), nil
}

// parse(path, language?) reads and parses a header. The language defaults
// to the one registered for the file extension.
func (r *treeRegistry) parseFn() *object.Builtin {
	return object.NewBuiltin("parse", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) < 1 || len(args) > 2 {
			return object.Errorf("parse: expected 1 or 2 arguments, got %d", len(args))
		}
		path, errObj := stringArg("parse", "path", args[0])
		if errObj != nil {
			return errObj
		}
		lang, known := LanguageForFile(path)
		if len(args) == 2 {
			if lang, errObj = stringArg("parse", "language", args[1]); errObj != nil {
				return errObj
			}
		} else if !known {
			return object.Errorf("parse: no grammar for %s", path)
		}
		src, err := os.ReadFile(path)
		if err != nil {
			return object.Errorf("parse: reading %s: %v", path, err)
		}
		return r.parse(ctx, "parse", src, lang)
	})
}

// parse_src(source, language) parses source text.
func (r *treeRegistry) parseSrcFn() *object.Builtin {
	return object.NewBuiltin("parse_src", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 2 {
			return object.NewArgsError("parse_src", 2, len(args))
		}
		src, errObj := stringArg("parse_src", "source", args[0])
		if errObj != nil {
			return errObj
		}
		lang, errObj := stringArg("parse_src", "language", args[1])
		if errObj != nil {
			return errObj
		}
		return r.parse(ctx, "parse_src", []byte(src), lang)
	})
}

func (r *treeRegistry) parse(ctx context.Context, fn string, src []byte, langName string) object.Object {
	lang, ok := ParserForLanguage(langName)
	if !ok {
		return object.Errorf("%s: unsupported language %q", fn, langName)
	}
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(lang)

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return object.Errorf("%s: %v", fn, err)
	}
	r.add(tree, src, lang)

	p, err := object.NewProxy(tree)
	if err != nil {
		return object.Errorf("%s: %v", fn, err)
	}
	return p
}

// node_text(node) returns the source text a node spans.
func (r *treeRegistry) nodeTextFn() *object.Builtin {
	return object.NewBuiltin("node_text", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("node_text", 1, len(args))
		}
		node, errObj := nodeArg("node_text", args[0])
		if errObj != nil {
			return errObj
		}
		h, errObj := r.source("node_text", node)
		if errObj != nil {
			return errObj
		}
		return object.NewString(node.Content(h.src))
	})
}

// query(pattern, node) runs a tree-sitter query under node and returns one
// map per match from capture name to node.
func (r *treeRegistry) queryFn() *object.Builtin {
	return object.NewBuiltin("query", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 2 {
			return object.NewArgsError("query", 2, len(args))
		}
		pattern, errObj := stringArg("query", "pattern", args[0])
		if errObj != nil {
			return errObj
		}
		node, errObj := nodeArg("query", args[1])
		if errObj != nil {
			return errObj
		}
		h, errObj := r.source("query", node)
		if errObj != nil {
			return errObj
		}

		q, err := sitter.NewQuery([]byte(pattern), h.lang)
		if err != nil {
			return object.Errorf("query: invalid pattern: %v", err)
		}
		defer q.Close()
		cursor := sitter.NewQueryCursor()
		defer cursor.Close()
		cursor.Exec(q, node)

		matches := []object.Object{}
		for {
			m, ok := cursor.NextMatch()
			if !ok {
				break
			}
			m = cursor.FilterPredicates(m, h.src)
			captures := make(map[string]object.Object, len(m.Captures))
			for _, c := range m.Captures {
				p, err := object.NewProxy(c.Node)
				if err != nil {
					return object.Errorf("query: capture %s: %v", q.CaptureNameForId(c.Index), err)
				}
				captures[q.CaptureNameForId(c.Index)] = p
			}
			matches = append(matches, object.NewMap(captures))
		}
		return object.NewList(matches)
	})
}

// node_child(node, field) returns the named field child, or nil.
func nodeChildFn() *object.Builtin {
	return object.NewBuiltin("node_child", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 2 {
			return object.NewArgsError("node_child", 2, len(args))
		}
		node, errObj := nodeArg("node_child", args[0])
		if errObj != nil {
			return errObj
		}
		field, errObj := stringArg("node_child", "field", args[1])
		if errObj != nil {
			return errObj
		}
		child := node.ChildByFieldName(field)
		if child == nil {
			return object.Nil
		}
		p, err := object.NewProxy(child)
		if err != nil {
			return object.Errorf("node_child: %v", err)
		}
		return p
	})
}

// logObject is the scripts' log global, backed by the run's slog logger.
type logObject struct {
	log *slog.Logger
}

func (l *logObject) Info(msg string)  { l.log.Info(msg) }
func (l *logObject) Warn(msg string)  { l.log.Warn(msg) }
func (l *logObject) Error(msg string) { l.log.Error(msg) }
