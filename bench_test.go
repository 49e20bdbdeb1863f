package rtview

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/jward/rtview/scripts"
)

// benchHeader is a C header with nested and typedef'd aggregates for
// exercising the record harvest pipeline.
const benchHeader = `
typedef struct CGPoint { double x; double y; } CGPoint;
typedef struct CGSize { double width; double height; } CGSize;
typedef struct CGRect { CGPoint origin; CGSize size; } CGRect;

struct _NSRange { unsigned long location; unsigned long length; };

union Value {
	int i;
	double d;
	struct { short lo; short hi; } halves;
};

struct Node {
	struct Node *next;
	const char *name;
	CGRect frame;
	unsigned int flags : 4;
};
`

func setupBenchEngine(b *testing.B, opts ...Option) *Engine {
	b.Helper()
	dbPath := filepath.Join(b.TempDir(), "bench.db")
	e, err := New(dbPath, "", append([]Option{WithScriptsFS(scripts.FS)}, opts...)...)
	if err != nil {
		b.Fatal(err)
	}
	b.Cleanup(func() { e.Close() })
	return e
}

func setupFoundationBench(b *testing.B, opts ...Option) *Engine {
	b.Helper()
	e := setupBenchEngine(b, opts...)
	if _, err := e.Load(context.Background(), []string{foundationScript}); err != nil {
		b.Fatal(err)
	}
	return e
}

// BenchmarkLoad_Foundation measures replacing the snapshot from the
// Foundation definition script.
func BenchmarkLoad_Foundation(b *testing.B) {
	e := setupBenchEngine(b)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := e.Load(ctx, []string{foundationScript}); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkHarvestHeaders measures parsing a header and storing its records.
func BenchmarkHarvestHeaders(b *testing.B) {
	e := setupBenchEngine(b, WithParallel(false))
	ctx := context.Background()
	dir := b.TempDir()
	path := filepath.Join(dir, "bench.h")
	if err := writeBenchFile(path, benchHeader); err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := e.HarvestHeaders(ctx, []string{path}); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkListing_NSString measures a full lookup, model build and token
// emission for a class with a category.
func BenchmarkListing_NSString(b *testing.B) {
	e := setupFoundationBench(b)
	ctx := context.Background()
	opts := Options{ShowCategoryNames: true, ShowRecordDefinitions: true}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := e.Listing(ctx, Class("NSString"), opts); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkExport_Foundation measures writing every object in the snapshot.
func BenchmarkExport_Foundation(b *testing.B) {
	e := setupFoundationBench(b)
	ctx := context.Background()
	ids, err := e.Query().AllObjects(ctx, Filter{})
	if err != nil {
		b.Fatal(err)
	}
	dir := b.TempDir()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := e.Export(ctx, dir, ids, Options{}); err != nil {
			b.Fatal(err)
		}
	}
}

func writeBenchFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o644)
}
