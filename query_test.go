package rtview

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/rtview/internal/store"
)

const (
	foundationImage = "/System/Library/Frameworks/Foundation.framework/Foundation"
	libobjcImage    = "/usr/lib/libobjc.A.dylib"
)

func newTestQueryBuilder(t *testing.T) (*QueryBuilder, *store.Store) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := store.NewStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, s.Migrate())
	t.Cleanup(func() { s.Close() })
	return &QueryBuilder{store: s}, s
}

func names(items []ObjectSummary) []string {
	out := make([]string, len(items))
	for i, o := range items {
		out[i] = o.Kind + ":" + o.Name
	}
	return out
}

func TestClasses(t *testing.T) {
	q := newFoundationEngine(t).Query()

	res, err := q.Classes(context.Background(), Filter{}, Pagination{})
	require.NoError(t, err)
	assert.Equal(t, 3, res.TotalCount)
	assert.Equal(t, []string{"class:NSObject", "class:NSString", "class:NSValue"}, names(res.Items))

	s := res.Items[1]
	assert.Equal(t, Class("NSString"), s.ID)
	assert.Equal(t, "NSObject", s.Superclass)
	assert.Equal(t, foundationImage, s.Image)
}

func TestProtocols_ImageFilter(t *testing.T) {
	q := newFoundationEngine(t).Query()

	res, err := q.Protocols(context.Background(), Filter{Image: foundationImage}, Pagination{})
	require.NoError(t, err)
	assert.Equal(t, []string{"protocol:NSCoding", "protocol:NSCopying"}, names(res.Items))
	assert.Equal(t, Protocol("NSCoding"), res.Items[0].ID)
	assert.Empty(t, res.Items[0].Superclass)
}

func TestClasses_PrefixFilter(t *testing.T) {
	q := newFoundationEngine(t).Query()

	res, err := q.Classes(context.Background(), Filter{Prefix: "NSS"}, Pagination{})
	require.NoError(t, err)
	assert.Equal(t, []string{"class:NSString"}, names(res.Items))
}

func TestClasses_PrefixEscapesLike(t *testing.T) {
	q, s := newTestQueryBuilder(t)
	_, err := s.InsertClass(&store.Class{Name: "_NSPrivate"})
	require.NoError(t, err)
	_, err = s.InsertClass(&store.Class{Name: "XNSPublic"})
	require.NoError(t, err)

	res, err := q.Classes(context.Background(), Filter{Prefix: "_NS"}, Pagination{})
	require.NoError(t, err)
	assert.Equal(t, []string{"class:_NSPrivate"}, names(res.Items))
}

func TestSearch(t *testing.T) {
	q := newFoundationEngine(t).Query()
	ctx := context.Background()

	tests := []struct {
		pattern string
		want    []string
	}{
		{"Object", []string{"class:NSObject", "protocol:NSObject"}},
		{"NSC*", []string{"protocol:NSCoding", "protocol:NSCopying"}},
		{"*Value", []string{"class:NSValue"}},
		{"nothing", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			res, err := q.Search(ctx, tt.pattern, Filter{}, Pagination{})
			require.NoError(t, err)
			assert.Equal(t, tt.want, names(res.Items))
			assert.Equal(t, len(tt.want), res.TotalCount)
		})
	}

	all, err := q.Search(ctx, "*", Filter{}, Pagination{})
	require.NoError(t, err)
	assert.Equal(t, 6, all.TotalCount)
}

func TestSearch_Pagination(t *testing.T) {
	q, s := newTestQueryBuilder(t)
	for i := range 12 {
		_, err := s.InsertClass(&store.Class{Name: fmt.Sprintf("Widget%02d", i)})
		require.NoError(t, err)
	}

	res, err := q.Search(context.Background(), "Widget*", Filter{}, Pagination{Offset: 10, Limit: 5})
	require.NoError(t, err)
	assert.Equal(t, 12, res.TotalCount)
	assert.Equal(t, []string{"class:Widget10", "class:Widget11"}, names(res.Items))
}

func TestPagination_Normalize(t *testing.T) {
	assert.Equal(t, Pagination{Offset: 0, Limit: defaultLimit}, Pagination{Offset: -3}.normalize())
	assert.Equal(t, Pagination{Limit: maxLimit}, Pagination{Limit: 10000}.normalize())
	assert.Equal(t, Pagination{Offset: 5, Limit: 7}, Pagination{Offset: 5, Limit: 7}.normalize())
}

func TestImages(t *testing.T) {
	q := newFoundationEngine(t).Query()

	images, err := q.Images(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []ImageSummary{
		{Path: foundationImage, Classes: 2, Protocols: 2},
		{Path: libobjcImage, Classes: 1, Protocols: 1},
	}, images)
}

func TestRecords(t *testing.T) {
	q := newFoundationEngine(t).Query()

	res, err := q.Records(context.Background(), "CG", Pagination{})
	require.NoError(t, err)
	require.Equal(t, 3, res.TotalCount)
	assert.Equal(t, "CGPoint", res.Items[0].Name)
	assert.Equal(t, store.RecordStruct, res.Items[0].Kind)
	assert.Equal(t, `{CGPoint="x"d"y"d}`, res.Items[0].Encoding)
	assert.Equal(t, foundationImage, res.Items[0].Source)
}

func TestStats(t *testing.T) {
	q := newFoundationEngine(t).Query()

	stats, err := q.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &SnapshotStats{Images: 2, Classes: 3, Protocols: 3, Categories: 1, Records: 4}, stats)
}

func TestAllObjects_Pages(t *testing.T) {
	q, s := newTestQueryBuilder(t)
	for i := range maxLimit + 3 {
		_, err := s.InsertProtocol(&store.Protocol{Name: fmt.Sprintf("P%04d", i)})
		require.NoError(t, err)
	}

	ids, err := q.AllObjects(context.Background(), Filter{})
	require.NoError(t, err)
	require.Len(t, ids, maxLimit+3)
	assert.Equal(t, Protocol("P0000"), ids[0])
	assert.Equal(t, Protocol(fmt.Sprintf("P%04d", maxLimit+2)), ids[len(ids)-1])
}
