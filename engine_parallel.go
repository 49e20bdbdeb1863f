package rtview

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/hashicorp/go-multierror"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/errgroup"

	"github.com/jward/rtview/internal/logging"
	rtrt "github.com/jward/rtview/internal/runtime"
	"github.com/jward/rtview/internal/store"
)

// harvestParallel parses headers concurrently, one Runtime and one
// BatchedStore per header, then commits the batches serially in input
// order so the first definition of a record still wins.
func (e *Engine) harvestParallel(ctx context.Context, files []string) error {
	batches := make([]*store.BatchedStore, len(files))
	harvestErrs := make([]error, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(e.workers, len(files)))
	for i, path := range files {
		g.Go(func() error {
			batch := store.NewBatchedStore(e.store)
			rt := rtrt.NewRuntime(batch, e.scriptsDir, e.runtimeOptions()...)
			if err := rt.HarvestHeader(gctx, path); err != nil {
				harvestErrs[i] = errors.Errorf("harvest %s: %w", path, err)
				return nil
			}
			batches[i] = batch
			return nil
		})
	}
	g.Wait()

	var result *multierror.Error
	for i, path := range files {
		if harvestErrs[i] != nil {
			result = multierror.Append(result, harvestErrs[i])
			continue
		}
		if batches[i] == nil {
			continue
		}
		if err := e.store.CommitBatch(batches[i]); err != nil {
			result = multierror.Append(result, errors.Errorf("commit %s: %w", path, err))
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return result.ErrorOrNil()
}

// ExportSummary describes the outcome of an Export.
type ExportSummary struct {
	Files   int
	Bytes   uint64
	Elapsed time.Duration
}

func (s *ExportSummary) String() string {
	return fmt.Sprintf("%d files, %s in %s", s.Files, humanize.Bytes(s.Bytes), s.Elapsed.Round(time.Millisecond))
}

// ExportFileName is the file an object's listing is exported to. Protocols
// get a suffix since a class and a protocol may share a name.
func ExportFileName(id ID) string {
	if id.Kind == KindProtocol {
		return id.Name + "-Protocol.h"
	}
	return id.Name + ".h"
}

// Export writes the listing of each id to dir as a header file, using up to
// the configured number of workers. A failure for one object does not stop
// the others; all failures are returned together.
func (e *Engine) Export(ctx context.Context, dir string, ids []ID, opts Options) (*ExportSummary, error) {
	start := time.Now()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Errorf("rtview: export: %w", err)
	}

	var (
		mu     sync.Mutex
		result *multierror.Error
		files  atomic.Int64
		bytes  atomic.Uint64
	)
	fail := func(err error) {
		mu.Lock()
		result = multierror.Append(result, err)
		mu.Unlock()
	}

	workers := e.workers
	if !e.useParallel {
		workers = 1
	}
	g := new(errgroup.Group)
	g.SetLimit(workers)
	for _, id := range ids {
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			l, err := e.Listing(ctx, id, opts)
			if err != nil {
				fail(errors.Errorf("export %s: %w", id, err))
				return nil
			}
			text := l.String()
			if err := os.WriteFile(filepath.Join(dir, ExportFileName(id)), []byte(text), 0o644); err != nil {
				fail(errors.Errorf("export %s: %w", id, err))
				return nil
			}
			files.Add(1)
			bytes.Add(uint64(len(text)))
			return nil
		})
	}
	g.Wait()

	summary := &ExportSummary{
		Files:   int(files.Load()),
		Bytes:   bytes.Load(),
		Elapsed: time.Since(start),
	}
	logging.Ctx(ctx).Info("export finished", "dir", dir, "files", summary.Files, "bytes", humanize.Bytes(summary.Bytes))
	if err := ctx.Err(); err != nil {
		return summary, err
	}
	return summary, result.ErrorOrNil()
}
