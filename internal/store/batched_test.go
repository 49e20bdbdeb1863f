package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatchedStore_ClassByName_ReturnsBufferedClass(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	batch := NewBatchedStore(s)
	c := insertTestClass(t, batch, "Widget", "NSObject")
	assert.Negative(t, c.ID, "batched IDs should be negative")
	assert.Negative(t, *c.ImageID)

	got, err := batch.ClassByName("Widget")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, c.ID, got.ID)

	// Not visible through the Store until committed.
	direct, err := s.ClassByName("Widget")
	require.NoError(t, err)
	assert.Nil(t, direct)
}

func TestBatchedStore_FallsBackToStore(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	existing := insertTestClass(t, s, "NSObject", "")
	_, err := s.InsertRecord(&Record{Name: "CGPoint", Kind: RecordStruct, Encoding: "{CGPoint=dd}"})
	require.NoError(t, err)

	batch := NewBatchedStore(s)
	got, err := batch.ClassByName("NSObject")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, existing.ID, got.ID)

	imgID, err := batch.EnsureImage("/usr/lib/libtest.dylib")
	require.NoError(t, err)
	assert.Equal(t, *existing.ImageID, imgID, "committed images are reused")

	r, err := batch.RecordByName("CGPoint")
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Positive(t, r.ID)
	assert.Zero(t, batch.Len())
}

func TestBatchedStore_InsertRecord_FirstWins(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	batch := NewBatchedStore(s)

	id1, err := batch.InsertRecord(&Record{Name: "CGPoint", Kind: RecordStruct, Encoding: "{CGPoint=dd}"})
	require.NoError(t, err)
	id2, err := batch.InsertRecord(&Record{Name: "CGPoint", Kind: RecordStruct, Encoding: "{CGPoint=ff}"})
	require.NoError(t, err)
	assert.Equal(t, id1, id2)
	assert.Equal(t, 1, batch.Len())
}

func TestCommitBatch_RemapsIDs(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	batch := NewBatchedStore(s)
	c := insertTestClass(t, batch, "Widget", "NSObject")
	_, err := batch.InsertIvar(&Ivar{ClassID: c.ID, Name: "_count", TypeEncoding: "q", Offset: 8})
	require.NoError(t, err)
	_, err = batch.InsertMethod(&Method{OwnerKind: OwnerClass, OwnerID: c.ID, Name: "count", TypeEncoding: "q16@0:8"})
	require.NoError(t, err)
	_, err = batch.InsertConformance(&Conformance{OwnerKind: OwnerClass, OwnerID: c.ID, ProtocolName: "NSCoding"})
	require.NoError(t, err)

	p := &Protocol{Name: "NSCoding"}
	_, err = batch.InsertProtocol(p)
	require.NoError(t, err)
	_, err = batch.InsertProperty(&Property{OwnerKind: OwnerProtocol, OwnerID: p.ID, Name: "classForCoder", Attributes: "T#,R"})
	require.NoError(t, err)

	cat := &Category{Name: "Extras", ClassName: "Widget", ImageID: c.ImageID}
	_, err = batch.InsertCategory(cat)
	require.NoError(t, err)
	_, err = batch.InsertMethod(&Method{OwnerKind: OwnerCategory, OwnerID: cat.ID, Name: "reset", TypeEncoding: "v16@0:8"})
	require.NoError(t, err)
	_, err = batch.InsertRecord(&Record{Name: "CGPoint", Kind: RecordStruct, Encoding: "{CGPoint=dd}"})
	require.NoError(t, err)

	require.NoError(t, s.CommitBatch(batch))

	got, err := s.ClassByName("Widget")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Positive(t, got.ID)
	require.NotNil(t, got.ImageID)
	assert.Positive(t, *got.ImageID)

	raw, err := NewProvider(s).Class(ctx, "Widget")
	require.NoError(t, err)
	require.NotNil(t, raw)
	assert.Equal(t, "/usr/lib/libtest.dylib", raw.Image)
	assert.Equal(t, []string{"NSCoding"}, raw.Protocols)
	require.Len(t, raw.Ivars, 1)
	require.Len(t, raw.Methods, 1)

	cats, err := NewProvider(s).Categories(ctx, "Widget")
	require.NoError(t, err)
	require.Len(t, cats, 1)
	require.Len(t, cats[0].Methods, 1)
	assert.Equal(t, "reset", cats[0].Methods[0].Name)

	proto, err := NewProvider(s).Protocol(ctx, "NSCoding")
	require.NoError(t, err)
	require.Len(t, proto.Properties, 1)

	r, err := s.RecordByName("CGPoint")
	require.NoError(t, err)
	require.NotNil(t, r)
}
