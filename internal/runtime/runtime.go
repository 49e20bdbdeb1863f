package runtime

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/risor-io/risor"
	"github.com/risor-io/risor/importer"
	"github.com/risor-io/risor/object"
	"gitlab.com/tozd/go/errors"

	"github.com/jward/rtview/internal/logging"
	"github.com/jward/rtview/internal/store"
)

// RecordScriptPath is the header harvesting script, relative to the scripts
// root.
const RecordScriptPath = "records/c.risor"

// Runtime embeds a Risor VM and exposes tree-sitter host functions and
// snapshot definition functions to definition and harvesting scripts.
type Runtime struct {
	store      store.DataStore
	scriptsDir string
	fsys       fs.FS
	trees      *treeRegistry
}

// RuntimeOption configures a Runtime.
type RuntimeOption func(*Runtime)

// WithRuntimeFS loads scripts and resolves imports from fsys instead of
// scriptsDir.
func WithRuntimeFS(fsys fs.FS) RuntimeOption {
	return func(r *Runtime) {
		r.fsys = fsys
	}
}

// NewRuntime creates a Runtime writing definitions to s. s may be nil for
// scripts that only parse.
func NewRuntime(s store.DataStore, scriptsDir string, opts ...RuntimeOption) *Runtime {
	r := &Runtime{
		store:      s,
		scriptsDir: scriptsDir,
		trees:      newTreeRegistry(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RunScript loads and executes a Risor script with the standard globals
// plus extraGlobals.
func (r *Runtime) RunScript(ctx context.Context, scriptPath string, extraGlobals map[string]any) error {
	src, err := r.LoadScript(scriptPath)
	if err != nil {
		return err
	}
	return r.eval(ctx, src, scriptPath, extraGlobals)
}

// RunFile executes a script at an arbitrary path on disk. Imports still
// resolve against the configured scripts root.
func (r *Runtime) RunFile(ctx context.Context, path string, extraGlobals map[string]any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Errorf("runtime: loading script %s: %w", path, err)
	}
	return r.eval(ctx, string(data), path, extraGlobals)
}

// RunSource executes Risor source directly.
func (r *Runtime) RunSource(ctx context.Context, source string, extraGlobals map[string]any) error {
	return r.eval(ctx, source, "<inline>", extraGlobals)
}

func (r *Runtime) eval(ctx context.Context, source, label string, extraGlobals map[string]any) error {
	log := logging.Ctx(ctx).With("script", label)
	globals := r.buildGlobals(log, extraGlobals)

	var opts []risor.Option
	for name, val := range globals {
		opts = append(opts, risor.WithGlobal(name, val))
	}
	if imp := r.buildImporter(globals); imp != nil {
		opts = append(opts, risor.WithImporter(imp))
	}

	log.Debug("running script")
	if _, err := risor.Eval(ctx, source, opts...); err != nil {
		return errors.Errorf("runtime: script %s: %w", label, err)
	}
	return nil
}

// buildImporter returns nil when neither an fs.FS nor a scripts directory
// is configured.
func (r *Runtime) buildImporter(globals map[string]any) importer.Importer {
	globalNames := make([]string, 0, len(globals))
	for name := range globals {
		globalNames = append(globalNames, name)
	}

	if r.fsys != nil {
		return importer.NewFSImporter(importer.FSImporterOptions{
			GlobalNames: globalNames,
			SourceFS:    r.fsys,
			Extensions:  []string{".risor"},
		})
	}
	if r.scriptsDir != "" {
		return importer.NewLocalImporter(importer.LocalImporterOptions{
			GlobalNames: globalNames,
			SourceDir:   r.scriptsDir,
			Extensions:  []string{".risor"},
		})
	}
	return nil
}

// LoadScript reads a .risor file from the configured fs.FS, or from disk
// relative to scriptsDir.
func (r *Runtime) LoadScript(path string) (string, error) {
	if r.fsys != nil {
		fsPath := strings.TrimPrefix(filepath.ToSlash(path), "/")
		data, err := fs.ReadFile(r.fsys, fsPath)
		if err != nil {
			return "", errors.Errorf("runtime: loading script %s from fs: %w", fsPath, err)
		}
		return string(data), nil
	}

	fullPath := path
	if !filepath.IsAbs(path) {
		fullPath = filepath.Join(r.scriptsDir, path)
	}
	data, err := os.ReadFile(fullPath)
	if err != nil {
		return "", errors.Errorf("runtime: loading script %s: %w", fullPath, err)
	}
	return string(data), nil
}

// HarvestHeader runs the record harvesting script over one C header.
func (r *Runtime) HarvestHeader(ctx context.Context, headerPath string) error {
	return r.RunScript(ctx, RecordScriptPath, map[string]any{"header_path": headerPath})
}

func (r *Runtime) buildGlobals(log *slog.Logger, extra map[string]any) map[string]any {
	globals := map[string]any{
		"parse":           r.trees.parseFn(),
		"parse_src":       r.trees.parseSrcFn(),
		"node_text":       r.trees.nodeTextFn(),
		"node_child":      nodeChildFn(),
		"query":           r.trees.queryFn(),
		"c_type_encoding": makeCTypeEncodingFn(r.trees),
		"record_encoding": makeRecordEncodingFn(r.trees),
		"c_declaration":   makeCDeclarationFn(r.trees),
		"log":             mustProxy(&logObject{log: log}),
	}

	if r.store != nil {
		globals["define_image"] = makeDefineImageFn(r.store)
		globals["define_class"] = makeDefineClassFn(r.store)
		globals["define_protocol"] = makeDefineProtocolFn(r.store)
		globals["define_category"] = makeDefineCategoryFn(r.store)
		globals["add_conformance"] = makeAddConformanceFn(r.store)
		globals["add_ivar"] = makeAddIvarFn(r.store)
		globals["add_method"] = makeAddMethodFn(r.store)
		globals["add_property"] = makeAddPropertyFn(r.store)
		globals["insert_record"] = makeInsertRecordFn(r.store)
		globals["class_by_name"] = makeClassByNameFn(r.store)
		globals["protocol_by_name"] = makeProtocolByNameFn(r.store)
		globals["record_by_name"] = makeRecordByNameFn(r.store)

		// Removal and ad hoc SQL need the SQLite store itself; a batched
		// buffer cannot serve them.
		if s, ok := r.store.(*store.Store); ok {
			globals["remove_class"] = makeRemoveFn("remove_class", s.DeleteClass)
			globals["remove_protocol"] = makeRemoveFn("remove_protocol", s.DeleteProtocol)
			globals["db_query"] = makeDBQueryFn(s)
		}
	}

	for k, v := range extra {
		globals[k] = v
	}
	return globals
}

func mustProxy(v any) object.Object {
	p, err := object.NewProxy(v)
	if err != nil {
		panic(errors.Errorf("runtime: proxy error: %w", err))
	}
	return p
}
