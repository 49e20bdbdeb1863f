// Package rtview renders Objective-C runtime metadata as header-like
// declarations. Given a class or protocol name it produces a listing of
// semantically tagged tokens: superclass and conformances, instance
// variables, properties and methods with C types recovered from the
// runtime's type encodings.
//
// # Pipeline
//
// A listing is computed in four stages:
//
//  1. Lookup: the metadata reader asks a provider for the raw descriptor of
//     the object, merges its categories and attaches referenced C record
//     layouts. Lookups are bounded by a timeout.
//
//  2. Decode: every type encoding is parsed into a type tree. Malformed
//     encodings are kept verbatim and rendered with a warning comment.
//
//  3. Build: the declaration model pairs members with decoded types and
//     collects the records they use, dependencies first.
//
//  4. Emit: the emitter walks the model and produces tokens according to
//     the generation options.
//
// # Snapshots
//
// The provider shipped with rtview reads a SQLite snapshot of the runtime.
// Snapshots are populated by Risor definition scripts calling host
// functions such as define_class and add_method, and C record layouts are
// harvested from headers with tree-sitter:
//
//	e, err := rtview.New("snapshot.db", "", rtview.WithScriptsFS(scripts.FS))
//	if err != nil { ... }
//	defer e.Close()
//
//	ctx := context.Background()
//	stats, err := e.Load(ctx, []string{"defs/"})
//	n, err := e.HarvestHeaders(ctx, []string{"/usr/include/objc"})
//
//	l, err := e.Listing(ctx, rtview.Class("NSString"), rtview.Options{SortMembers: true})
//	fmt.Print(l.String())
//
// # Sessions
//
// Interactive consumers use a [Session]: each request supersedes the one in
// flight, and only the newest request's result is delivered. Concurrent
// requests for the same object and options share one computation.
//
// # Query API
//
// The [QueryBuilder] returned by [Engine.Query] lists images, classes and
// protocols, walks the class hierarchy, reports the dependents of a class,
// protocol or record and builds the dependency graph between images.
//
// # Export
//
// [Engine.Export] renders many objects concurrently and writes one header
// file per object.
package rtview
