package runtime

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/rtview/internal/logging"
	"github.com/jward/rtview/internal/metadata"
	"github.com/jward/rtview/internal/store"
)

const cTestSource = `struct Point {
    int x;
    int y;
};

int add(int a, int b) {
    return a + b;
}

int sub(int a, int b) {
    return a - b;
}
`

// parseCSource parses C source with tree-sitter directly and registers it
// in a Runtime's source store.
func parseCSource(t *testing.T, src string) (*sitter.Tree, *Runtime) {
	t.Helper()

	rt := NewRuntime(nil, "")
	lang, ok := ParserForLanguage("c")
	require.True(t, ok)

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(lang)

	tree, err := parser.ParseCtx(context.Background(), nil, []byte(src))
	require.NoError(t, err)
	rt.trees.add(tree, []byte(src), lang)
	return tree, rt
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.NewStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate())
	t.Cleanup(func() { s.Close() })
	return s
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// --- Languages ---

func TestLanguageForFile(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path string
		want string
		ok   bool
	}{
		{"NSObject.h", "c", true},
		{"runtime.c", "c", true},
		{"UPPER.H", "c", true},
		{"main.go", "", false},
		{"Widget.m", "", false},
		{"Makefile", "", false},
	}
	for _, tt := range tests {
		got, ok := LanguageForFile(tt.path)
		assert.Equal(t, tt.ok, ok, tt.path)
		assert.Equal(t, tt.want, got, tt.path)
	}
}

func TestParserForLanguage(t *testing.T) {
	t.Parallel()

	lang, ok := ParserForLanguage("c")
	require.True(t, ok)
	assert.NotNil(t, lang)

	_, ok = ParserForLanguage("go")
	assert.False(t, ok)
}

// --- Tree-sitter host functions ---

func TestParse_RootNodeType(t *testing.T) {
	tree, _ := parseCSource(t, cTestSource)
	defer tree.Close()
	assert.Equal(t, "translation_unit", tree.RootNode().Type())
}

func TestParse_InfersGrammarFromExtension(t *testing.T) {
	header := writeFile(t, "point.h", "struct Point { int x; int y; };\n")
	src := `
tree := parse(header_path)
names := []
for _, m := range query("(struct_specifier name: (type_identifier) @name)", tree.RootNode()) {
    names.append(node_text(m["name"]))
}
assert(len(names) == 1 && names[0] == "Point", "struct name")
`
	require.NoError(t, NewRuntime(nil, "").RunSource(context.Background(), src, map[string]any{"header_path": header}))

	err := NewRuntime(nil, "").RunSource(context.Background(), `parse(header_path)`,
		map[string]any{"header_path": writeFile(t, "notes.txt", "text")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no grammar")
}

func TestNodeText_RootNodeReturnsFullSource(t *testing.T) {
	tree, rt := parseCSource(t, cTestSource)
	defer tree.Close()

	h, ok := rt.trees.lookup(tree.RootNode().NamedChild(1))
	require.True(t, ok)
	assert.Equal(t, cTestSource, tree.RootNode().Content(h.src))
}

func TestQuery_FunctionDefinitions(t *testing.T) {
	tree, rt := parseCSource(t, cTestSource)
	defer tree.Close()

	root := tree.RootNode()
	h, _ := rt.trees.lookup(root)
	lang, src := h.lang, h.src

	q, err := sitter.NewQuery([]byte("(function_declarator declarator: (identifier) @name)"), lang)
	require.NoError(t, err)
	defer q.Close()

	cursor := sitter.NewQueryCursor()
	defer cursor.Close()
	cursor.Exec(q, root)

	var names []string
	for {
		match, ok := cursor.NextMatch()
		if !ok {
			break
		}
		for _, c := range cursor.FilterPredicates(match, src).Captures {
			names = append(names, c.Node.Content(src))
		}
	}
	assert.Equal(t, []string{"add", "sub"}, names)
}

func TestRunSource_ParseAndNodeText(t *testing.T) {
	path := writeFile(t, "test.c", cTestSource)

	script := `
tree := parse(test_file, "c")
root := tree.RootNode()
assert(root.Type() == "translation_unit", "expected translation_unit")

names := []
count := int(root.NamedChildCount())
for i := 0; i < count; i++ {
    child := root.NamedChild(i)
    if child.Type() == "function_definition" {
        decl := node_child(child, "declarator")
        names.append(node_text(node_child(decl, "declarator")))
    }
}
assert(len(names) == 2, 'expected 2 functions, got {len(names)}')
assert(names[0] == "add", 'expected add, got {names[0]}')
`
	require.NoError(t, NewRuntime(nil, "").RunSource(context.Background(), script, map[string]any{"test_file": path}))
}

func TestRunSource_QueryHostFunction(t *testing.T) {
	script := `
tree := parse_src(source, "c")
matches := query("(struct_specifier name: (type_identifier) @name body: (field_declaration_list) @body)", tree.RootNode())
assert(len(matches) == 1, 'expected 1 match, got {len(matches)}')
assert(node_text(matches[0]["name"]) == "Point", "expected Point")
`
	require.NoError(t, NewRuntime(nil, "").RunSource(context.Background(), script, map[string]any{"source": cTestSource}))
}

func TestRunSource_QueryInvalidPattern(t *testing.T) {
	script := `
tree := parse_src("int x;", "c")
query("(not_a_node", tree.RootNode())
`
	assert.Error(t, NewRuntime(nil, "").RunSource(context.Background(), script, nil))
}

func TestRunSource_UnsupportedLanguage(t *testing.T) {
	err := NewRuntime(nil, "").RunSource(context.Background(), `parse_src("package main", "go")`, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported language")
}

func TestRunSource_NodeChildMissing(t *testing.T) {
	script := `
tree := parse_src("int x;", "c")
assert(node_child(tree.RootNode(), "nonexistent") == nil, "expected nil")
`
	require.NoError(t, NewRuntime(nil, "").RunSource(context.Background(), script, nil))
}

// --- C encodings ---

func TestCDeclaration_Typedefs(t *testing.T) {
	script := `
tree := parse_src(source, "c")
aliases := {}
for _, m := range query("(type_definition type: (_) @type declarator: (_) @decl)", tree.RootNode()) {
    d := c_declaration(m["type"], m["decl"], aliases)
    aliases[d["name"]] = d["encoding"]
}
assert(aliases["Real"] == "d", "Real")
assert(aliases["Counter"] == "^Q", "Counter")
assert(aliases["Callback"] == "^?", "Callback")
assert(aliases["Vec"] == "{?=\"x\"d\"y\"d}", "Vec")
assert(aliases["Node"] == "{Node}", "Node")
assert(aliases["Grid"] == "[4[4d]]", "Grid")
assert(aliases["Name"] == "*", "Name")
`
	source := `
typedef double Real;
typedef unsigned long long *Counter;
typedef void (*Callback)(int);
typedef struct { Real x; Real y; } Vec;
typedef struct Node Node;
typedef Real Grid[4][4];
typedef char *Name;
`
	require.NoError(t, NewRuntime(nil, "").RunSource(context.Background(), script, map[string]any{"source": source}))
}

func TestCTypeEncoding_Primitives(t *testing.T) {
	script := `
tree := parse_src(source, "c")
got := ""
for _, m := range query("(field_declaration type: (_) @type)", tree.RootNode()) {
    got = got + c_type_encoding(m["type"]) + ","
}
assert(got == "c,C,s,I,q,Q,f,D,B,{Unknown},i,", "unexpected encodings: " + got)
`
	source := `
struct All {
    char a;
    unsigned char b;
    short c;
    unsigned int d;
    long long e;
    unsigned long f;
    float g;
    long double h;
    _Bool i;
    Unknown j;
    enum Mode k;
};
`
	require.NoError(t, NewRuntime(nil, "").RunSource(context.Background(), script, map[string]any{"source": source}))
}

func TestRecordEncoding_RejectsNonAggregate(t *testing.T) {
	script := `
tree := parse_src("int x;", "c")
record_encoding(tree.RootNode())
`
	err := NewRuntime(nil, "").RunSource(context.Background(), script, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected struct or union specifier")
}

// --- Definition host functions ---

const widgetScript = `
img := "/usr/lib/libwidget.dylib"
proto := define_protocol({"name": "Drawable", "image": img})
add_method({"owner_kind": "protocol", "owner_id": proto, "name": "draw", "type": "v16@0:8"})
add_method({"owner_kind": "protocol", "owner_id": proto, "name": "tint", "type": "@16@0:8", "optional": true})

cls := define_class({"name": "Widget", "superclass": "NSObject", "image": img})
add_conformance({"owner_kind": "class", "owner_id": cls, "protocol": "Drawable"})
add_ivar({"class_id": cls, "name": "_title", "type": "@\"NSString\"", "offset": 8})
add_property({"owner_kind": "class", "owner_id": cls, "name": "title", "attributes": "T@\"NSString\",C,N,V_title"})
add_method({"owner_kind": "class", "owner_id": cls, "name": "widget", "type": "@16@0:8", "class": true})
add_method({"owner_kind": "class", "owner_id": cls, "name": "setTitle:", "type": "v24@0:8@16"})

cat := define_category({"name": "Extras", "class": "Widget", "image": img})
add_method({"owner_kind": "category", "owner_id": cat, "name": "extra", "type": "v16@0:8"})

insert_record({"name": "Pair", "encoding": "{Pair=ii}"})

found := class_by_name("Widget")
assert(found["superclass"] == "NSObject", "class_by_name")
assert(protocol_by_name("Drawable")["id"] == proto, "protocol_by_name")
assert(record_by_name("Pair")["kind"] == "struct", "record_by_name")
assert(class_by_name("Missing") == nil, "missing class")
`

func TestDefine_RoundTripThroughReader(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, NewRuntime(s, "").RunSource(context.Background(), widgetScript, nil))

	r := metadata.NewReader(store.NewProvider(s))
	d, err := r.Lookup(context.Background(), metadata.Class("Widget"))
	require.NoError(t, err)

	assert.Equal(t, "NSObject", d.Superclass)
	assert.Equal(t, "/usr/lib/libwidget.dylib", d.Image)
	assert.Equal(t, []string{"Drawable"}, d.Protocols)
	require.Len(t, d.Ivars, 1)
	assert.Equal(t, int64(8), d.Ivars[0].Offset)
	require.Len(t, d.ClassMethods, 1)
	assert.Equal(t, "widget", d.ClassMethods[0].Name)
	require.Len(t, d.InstanceMethods, 2)
	assert.Equal(t, "extra", d.InstanceMethods[1].Name)
	assert.Equal(t, "Extras", d.InstanceMethods[1].Category)
	require.Len(t, d.Properties, 1)
	ivar, ok := d.Properties[0].Attr(metadata.AttrIvar)
	assert.True(t, ok)
	assert.Equal(t, "_title", ivar)

	p, err := r.Lookup(context.Background(), metadata.Protocol("Drawable"))
	require.NoError(t, err)
	require.Len(t, p.InstanceMethods, 2)
	assert.True(t, p.InstanceMethods[1].Optional)
}

func TestDefine_UnknownOwnerKind(t *testing.T) {
	s := newTestStore(t)
	script := `add_method({"owner_kind": "struct", "owner_id": 1, "name": "x", "type": "v16@0:8"})`
	err := NewRuntime(s, "").RunSource(context.Background(), script, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown owner_kind")
}

func TestDefine_ClassRequiresName(t *testing.T) {
	s := newTestStore(t)
	err := NewRuntime(s, "").RunSource(context.Background(), `define_class({"superclass": "NSObject"})`, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "name is required")
}

func TestDefine_UnionKindFromEncoding(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, NewRuntime(s, "").RunSource(context.Background(), `insert_record({"name": "V", "encoding": "(V=if)"})`, nil))
	r, err := s.RecordByName("V")
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, store.RecordUnion, r.Kind)
}

func TestDefine_BatchedStore(t *testing.T) {
	s := newTestStore(t)
	batch := store.NewBatchedStore(s)
	require.NoError(t, NewRuntime(batch, "").RunSource(context.Background(), widgetScript, nil))
	assert.Positive(t, batch.Len())

	// Nothing reaches SQLite until the batch is committed.
	c, err := s.ClassByName("Widget")
	require.NoError(t, err)
	assert.Nil(t, c)

	require.NoError(t, s.CommitBatch(batch))
	c, err = s.ClassByName("Widget")
	require.NoError(t, err)
	require.NotNil(t, c)
}

func TestDefine_RemoveRequiresSQLiteStore(t *testing.T) {
	s := newTestStore(t)
	err := NewRuntime(store.NewBatchedStore(s), "").RunSource(context.Background(), `remove_class("Widget")`, nil)
	assert.Error(t, err)
}

func TestRemoveClassAndProtocol(t *testing.T) {
	s := newTestStore(t)
	rt := NewRuntime(s, "")
	require.NoError(t, rt.RunSource(context.Background(), widgetScript, nil))

	script := `
assert(remove_class("Widget") == true, "Widget existed")
assert(remove_class("Widget") == false, "Widget already removed")
assert(remove_protocol("Drawable") == true, "Drawable existed")
`
	require.NoError(t, rt.RunSource(context.Background(), script, nil))

	_, err := metadata.NewReader(store.NewProvider(s)).Lookup(context.Background(), metadata.Class("Widget"))
	assert.ErrorIs(t, err, metadata.ErrNotFound)
}

func TestDBQuery(t *testing.T) {
	s := newTestStore(t)
	rt := NewRuntime(s, "")
	require.NoError(t, rt.RunSource(context.Background(), widgetScript, nil))

	script := `
rows := db_query("SELECT name FROM methods WHERE owner_kind = ? ORDER BY name", "class")
assert(len(rows) == 2, 'expected 2 rows, got {len(rows)}')
assert(rows[0]["name"] == "setTitle:", "first row")
`
	require.NoError(t, rt.RunSource(context.Background(), script, nil))

	err := rt.RunSource(context.Background(), `db_query("DELETE FROM classes")`, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "only SELECT")
}

// --- Logging ---

func TestLogBridgesToSlog(t *testing.T) {
	var buf bytes.Buffer
	ctx, _ := logging.Setup(context.Background(), &buf, logging.Options{Level: slog.LevelDebug, NoColor: true})
	t.Cleanup(func() { slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil))) })

	require.NoError(t, NewRuntime(nil, "").RunSource(ctx, `log.Warn("records skipped")`, nil))
	out := buf.String()
	assert.Contains(t, out, "records skipped")
	assert.Contains(t, out, "script=<inline>")
}

// --- Script loading ---

func TestRunScript_LoadsFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "test.risor"), []byte(`result := 1 + 1`), 0644))
	require.NoError(t, NewRuntime(nil, dir).RunScript(context.Background(), "test.risor", nil))
}

func TestRunScript_MissingFile(t *testing.T) {
	err := NewRuntime(nil, t.TempDir()).RunScript(context.Background(), "nonexistent.risor", nil)
	assert.Error(t, err)
}

func TestRunFile(t *testing.T) {
	s := newTestStore(t)
	path := writeFile(t, "snapshot.risor", `define_class({"name": "Solo"})`)
	require.NoError(t, NewRuntime(s, "").RunFile(context.Background(), path, nil))

	c, err := s.ClassByName("Solo")
	require.NoError(t, err)
	assert.NotNil(t, c)
}

func TestLoadScript_FromFS(t *testing.T) {
	t.Parallel()

	rt := NewRuntime(nil, "", WithRuntimeFS(fstest.MapFS{
		"records/c.risor": &fstest.MapFile{Data: []byte(`x := 42`)},
	}))

	got, err := rt.LoadScript("records/c.risor")
	require.NoError(t, err)
	assert.Equal(t, `x := 42`, got)

	got, err = rt.LoadScript("/records/c.risor")
	require.NoError(t, err)
	assert.Equal(t, `x := 42`, got)

	_, err = rt.LoadScript("missing.risor")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "from fs")
}

func TestLoadScript_FallsBackToDisk(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "test.risor"), []byte(`z := 7`), 0644))

	got, err := NewRuntime(nil, dir).LoadScript("test.risor")
	require.NoError(t, err)
	assert.Equal(t, `z := 7`, got)
}

func TestHarvestHeader_UsesRecordScript(t *testing.T) {
	s := newTestStore(t)
	rt := NewRuntime(s, "", WithRuntimeFS(fstest.MapFS{
		RecordScriptPath: &fstest.MapFile{Data: []byte(`insert_record({"name": "Seen", "encoding": "{Seen=i}", "source": header_path})`)},
	}))
	require.NoError(t, rt.HarvestHeader(context.Background(), "/tmp/seen.h"))

	r, err := s.RecordByName("Seen")
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, "/tmp/seen.h", r.Source)
}

// --- Imports ---

func TestImport_FSImporter(t *testing.T) {
	rt := NewRuntime(nil, "", WithRuntimeFS(fstest.MapFS{
		"helpers.risor": &fstest.MapFile{Data: []byte(`
func greet(name) {
	return "hello " + name
}
`)},
	}))

	script := `
import helpers
msg := helpers.greet("world")
assert(msg == "hello world", 'got ' + msg)
`
	require.NoError(t, rt.RunSource(context.Background(), script, nil))
}

func TestImport_HostGlobalsVisibleToModules(t *testing.T) {
	s := newTestStore(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "defs.risor"), []byte(`
func make_class(name) {
	return define_class({"name": name})
}
`), 0644))

	script := `
import defs
defs.make_class("Imported")
`
	require.NoError(t, NewRuntime(s, dir).RunSource(context.Background(), script, nil))
	c, err := s.ClassByName("Imported")
	require.NoError(t, err)
	assert.NotNil(t, c)
}
