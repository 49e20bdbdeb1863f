package rtview

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"gitlab.com/tozd/go/errors"

	"github.com/jward/rtview/internal/logging"
	"github.com/jward/rtview/internal/metadata"
	rtrt "github.com/jward/rtview/internal/runtime"
	"github.com/jward/rtview/internal/store"
)

const (
	metaScriptsHash  = "scripts_hash"
	metaSnapshotHash = "snapshot_hash"
	metaLoadedAt     = "loaded_at"
)

// Engine owns a runtime snapshot: it loads definition scripts into the
// store, harvests C record layouts from headers and serves listings and
// queries over the result.
type Engine struct {
	store      *store.Store
	runtime    *rtrt.Runtime
	service    *Service
	scriptsDir string
	scriptsFS  fs.FS

	useParallel   bool
	workers       int
	lookupTimeout time.Duration
}

// Option configures an Engine.
type Option func(*Engine)

// WithParallel controls parallel header harvesting and export. Enabled by
// default.
func WithParallel(parallel bool) Option {
	return func(e *Engine) {
		e.useParallel = parallel
	}
}

// WithWorkers bounds the number of concurrent harvest and export workers.
// Values below 1 select the number of CPUs.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		e.workers = n
	}
}

// WithLookupTimeout bounds each provider lookup made for a listing.
func WithLookupTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.lookupTimeout = d
	}
}

// WithScriptsFS loads the harvesting script and script libraries from fsys
// instead of scriptsDir, typically the embedded scripts.FS.
func WithScriptsFS(fsys fs.FS) Option {
	return func(e *Engine) {
		e.scriptsFS = fsys
	}
}

// New opens or creates the snapshot database at dbPath. scriptsDir may be
// empty when WithScriptsFS is used.
func New(dbPath string, scriptsDir string, opts ...Option) (*Engine, error) {
	s, err := store.NewStore(dbPath)
	if err != nil {
		return nil, errors.Errorf("rtview: create store: %w", err)
	}
	if err := s.Migrate(); err != nil {
		s.Close()
		return nil, errors.Errorf("rtview: migrate: %w", err)
	}

	e := &Engine{
		store:         s,
		scriptsDir:    scriptsDir,
		useParallel:   true,
		lookupTimeout: metadata.DefaultTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.workers < 1 {
		e.workers = runtime.NumCPU()
	}

	e.runtime = rtrt.NewRuntime(s, scriptsDir, e.runtimeOptions()...)
	e.service = NewService(store.NewProvider(s), metadata.WithTimeout(e.lookupTimeout))
	return e, nil
}

func (e *Engine) runtimeOptions() []rtrt.RuntimeOption {
	if e.scriptsFS != nil {
		return []rtrt.RuntimeOption{rtrt.WithRuntimeFS(e.scriptsFS)}
	}
	return nil
}

// Close releases the Engine's database resources.
func (e *Engine) Close() error {
	return e.store.Close()
}

// Store returns the underlying Store for direct access.
func (e *Engine) Store() *Store {
	return e.store
}

// Query returns a new QueryBuilder over the snapshot.
func (e *Engine) Query() *QueryBuilder {
	return &QueryBuilder{store: e.store}
}

// Listing renders the declaration of id. See Service.Listing.
func (e *Engine) Listing(ctx context.Context, id ID, opts Options) (*Listing, error) {
	return e.service.Listing(ctx, id, opts)
}

// NewSession starts a supersession-aware listing session. See Session.
func (e *Engine) NewSession(deliver func(Result)) *Session {
	return e.service.NewSession(deliver)
}

// scriptsHash hashes every .risor file under the scripts root.
func (e *Engine) scriptsHash() string {
	var paths []string
	walk := func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() && strings.HasSuffix(path, ".risor") {
			paths = append(paths, path)
		}
		return nil
	}
	if e.scriptsFS != nil {
		fs.WalkDir(e.scriptsFS, ".", walk)
	} else if e.scriptsDir != "" {
		filepath.WalkDir(e.scriptsDir, func(path string, d fs.DirEntry, err error) error {
			if rel, relErr := filepath.Rel(e.scriptsDir, path); relErr == nil {
				path = rel
			}
			return walk(path, d, err)
		})
	}

	sources := make(map[string][]byte, len(paths))
	for _, p := range paths {
		src, err := e.runtime.LoadScript(p)
		if err != nil {
			continue
		}
		sources[p] = []byte(src)
	}
	return store.ComputeSourcesHash(sources)
}

// ScriptsChanged reports whether the scripts differ from those used to
// build the current snapshot. True when the snapshot was never loaded.
func (e *Engine) ScriptsChanged() bool {
	stored, err := e.store.GetMetadata(metaScriptsHash)
	if err != nil || stored == "" {
		return true
	}
	return stored != e.scriptsHash()
}

// SnapshotCurrent reports whether the snapshot was loaded from exactly the
// definition files under paths with the current scripts.
func (e *Engine) SnapshotCurrent(paths []string) (bool, error) {
	if e.ScriptsChanged() {
		return false, nil
	}
	files, err := collectFiles(paths, ".risor")
	if err != nil {
		return false, err
	}
	hash, err := hashFiles(files)
	if err != nil {
		return false, err
	}
	stored, err := e.store.GetMetadata(metaSnapshotHash)
	if err != nil {
		return false, errors.Errorf("rtview: %w", err)
	}
	return stored == hash, nil
}

// LoadStats summarizes a Load.
type LoadStats struct {
	Scripts   int
	Classes   int
	Protocols int
	Records   int
	Elapsed   time.Duration
}

// Load replaces the snapshot with the definitions produced by the .risor
// scripts under paths. Directories are walked; scripts run one at a time in
// path order, since later scripts may refer to objects defined earlier.
func (e *Engine) Load(ctx context.Context, paths []string) (*LoadStats, error) {
	start := time.Now()
	log := logging.Ctx(ctx)

	files, err := collectFiles(paths, ".risor")
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, errors.Errorf("rtview: no definition scripts under %s", strings.Join(paths, ", "))
	}
	hash, err := hashFiles(files)
	if err != nil {
		return nil, err
	}

	if err := e.store.Reset(); err != nil {
		return nil, errors.Errorf("rtview: reset snapshot: %w", err)
	}
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		log.Debug("loading definitions", "script", path)
		if err := e.runtime.RunFile(ctx, path, nil); err != nil {
			return nil, errors.Errorf("rtview: load %s: %w", path, err)
		}
	}

	if err := e.store.SetMetadata(metaSnapshotHash, hash); err != nil {
		return nil, errors.Errorf("rtview: %w", err)
	}
	e.storeScriptsHash()
	_ = e.store.SetMetadata(metaLoadedAt, time.Now().UTC().Format(time.RFC3339))

	stats, err := e.Query().Stats(ctx)
	if err != nil {
		return nil, err
	}
	ls := &LoadStats{
		Scripts:   len(files),
		Classes:   stats.Classes,
		Protocols: stats.Protocols,
		Records:   stats.Records,
		Elapsed:   time.Since(start),
	}
	log.Info("snapshot loaded", "scripts", ls.Scripts, "classes", ls.Classes, "protocols", ls.Protocols, "elapsed", ls.Elapsed)
	return ls, nil
}

func (e *Engine) storeScriptsHash() {
	_ = e.store.SetMetadata(metaScriptsHash, e.scriptsHash())
}

// HarvestHeaders parses every .h file under paths with the record
// harvesting script and adds the struct and union layouts it finds to the
// record catalog. When two headers define the same record, the one earlier
// in path order wins. Returns the number of headers processed.
func (e *Engine) HarvestHeaders(ctx context.Context, paths []string) (int, error) {
	files, err := collectFiles(paths, ".h")
	if err != nil {
		return 0, err
	}
	if e.useParallel && len(files) > 1 {
		return len(files), e.harvestParallel(ctx, files)
	}
	return len(files), e.harvestSerial(ctx, files)
}

func (e *Engine) harvestSerial(ctx context.Context, files []string) error {
	var errs []error
	for _, path := range files {
		if err := e.runtime.HarvestHeader(ctx, path); err != nil {
			errs = append(errs, errors.Errorf("harvest %s: %w", path, err))
		}
	}
	if len(errs) > 0 {
		return errors.Errorf("harvesting had %d error(s): %w", len(errs), errs[0])
	}
	return nil
}

// collectFiles expands directories in paths to the files with extension
// ext beneath them, sorted. Plain file arguments are kept as given.
func collectFiles(paths []string, ext string) ([]string, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, errors.Errorf("rtview: %w", err)
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}
		var found []string
		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ext) {
				found = append(found, path)
			}
			return nil
		})
		if err != nil {
			return nil, errors.Errorf("rtview: walk %s: %w", p, err)
		}
		sort.Strings(found)
		files = append(files, found...)
	}
	return files, nil
}

func hashFiles(files []string) (string, error) {
	sources := make(map[string][]byte, len(files))
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return "", errors.Errorf("rtview: %w", err)
		}
		sources[f] = data
	}
	return store.ComputeSourcesHash(sources), nil
}
