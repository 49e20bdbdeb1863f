package rtview

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/rtview/internal/store"
)

func TestImageDependencyGraph_Foundation(t *testing.T) {
	q := newFoundationEngine(t).Query()

	g, err := q.ImageDependencyGraph(context.Background())
	require.NoError(t, err)
	assert.Len(t, g.Images, 2)
	assert.Equal(t, []ImageEdge{
		{From: foundationImage, To: libobjcImage, References: 2},
	}, g.Edges)

	cycles, err := q.CircularImageDependencies(context.Background())
	require.NoError(t, err)
	assert.Empty(t, cycles)
}

func TestCircularImageDependencies(t *testing.T) {
	q, s := newTestQueryBuilder(t)
	a, err := s.EnsureImage("/lib/A")
	require.NoError(t, err)
	b, err := s.EnsureImage("/lib/B")
	require.NoError(t, err)
	_, err = s.EnsureImage("/lib/C")
	require.NoError(t, err)

	// A's class inherits from B; B's protocol adopts a protocol defined in A.
	_, err = s.InsertClass(&store.Class{Name: "Base", ImageID: &b})
	require.NoError(t, err)
	_, err = s.InsertClass(&store.Class{Name: "Derived", SuperclassName: "Base", ImageID: &a})
	require.NoError(t, err)
	_, err = s.InsertProtocol(&store.Protocol{Name: "Root", ImageID: &a})
	require.NoError(t, err)
	leaf, err := s.InsertProtocol(&store.Protocol{Name: "Leaf", ImageID: &b})
	require.NoError(t, err)
	_, err = s.InsertConformance(&store.Conformance{OwnerKind: store.OwnerProtocol, OwnerID: leaf, ProtocolName: "Root"})
	require.NoError(t, err)

	g, err := q.ImageDependencyGraph(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []ImageEdge{
		{From: "/lib/A", To: "/lib/B", References: 1},
		{From: "/lib/B", To: "/lib/A", References: 1},
	}, g.Edges)

	cycles, err := q.CircularImageDependencies(context.Background())
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"/lib/A", "/lib/B", "/lib/A"}}, cycles)
}
