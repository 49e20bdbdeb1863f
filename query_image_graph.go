package rtview

import (
	"context"
	"sort"

	"gitlab.com/tozd/go/errors"
)

// ImageGraph is the image-to-image dependency graph. An image depends on
// another when one of its objects inherits from, extends or adopts an object
// the other image defines.
type ImageGraph struct {
	Images []ImageSummary `json:"images"`
	Edges  []ImageEdge    `json:"edges"`
}

// ImageEdge is a dependency between two images with the number of
// references contributing to it.
type ImageEdge struct {
	From       string `json:"from"`
	To         string `json:"to"`
	References int    `json:"references"`
}

// imageReferences yields one (from image, to image) row per superclass link,
// category extension and protocol adoption whose target is in the snapshot.
const imageReferences = `
	SELECT c.image_id AS from_id, s.image_id AS to_id
	FROM classes c JOIN classes s ON s.name = c.superclass_name
	UNION ALL
	SELECT cat.image_id, c.image_id
	FROM categories cat JOIN classes c ON c.name = cat.class_name
	UNION ALL
	SELECT o.image_id, p.image_id
	FROM conformances cf
	JOIN classes o ON cf.owner_kind = 'class' AND o.id = cf.owner_id
	JOIN protocols p ON p.name = cf.protocol_name
	UNION ALL
	SELECT o.image_id, p.image_id
	FROM conformances cf
	JOIN protocols o ON cf.owner_kind = 'protocol' AND o.id = cf.owner_id
	JOIN protocols p ON p.name = cf.protocol_name
	UNION ALL
	SELECT o.image_id, p.image_id
	FROM conformances cf
	JOIN categories o ON cf.owner_kind = 'category' AND o.id = cf.owner_id
	JOIN protocols p ON p.name = cf.protocol_name`

// ImageDependencyGraph aggregates object-level references into image edges.
// References within one image and objects without an image are skipped.
func (q *QueryBuilder) ImageDependencyGraph(ctx context.Context) (*ImageGraph, error) {
	images, err := q.Images(ctx)
	if err != nil {
		return nil, errors.Errorf("image dependency graph: %w", err)
	}

	rows, err := q.store.DB().QueryContext(ctx, `
		SELECT fi.path, ti.path, COUNT(*)
		FROM (`+imageReferences+`) r
		JOIN images fi ON fi.id = r.from_id
		JOIN images ti ON ti.id = r.to_id
		WHERE r.from_id <> r.to_id
		GROUP BY fi.path, ti.path
		ORDER BY fi.path, ti.path`)
	if err != nil {
		return nil, errors.Errorf("image dependency graph: query references: %w", err)
	}
	defer rows.Close()

	edges := []ImageEdge{}
	for rows.Next() {
		var e ImageEdge
		if err := rows.Scan(&e.From, &e.To, &e.References); err != nil {
			return nil, errors.Errorf("image dependency graph: scan edge: %w", err)
		}
		edges = append(edges, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Errorf("image dependency graph: edge rows: %w", err)
	}

	return &ImageGraph{Images: images, Edges: edges}, nil
}

// CircularImageDependencies detects cycles in the image dependency graph
// using Tarjan's strongly connected components algorithm. Each cycle lists
// its images with the first repeated at the end. Returns an empty list for
// acyclic graphs.
func (q *QueryBuilder) CircularImageDependencies(ctx context.Context) ([][]string, error) {
	graph, err := q.ImageDependencyGraph(ctx)
	if err != nil {
		return nil, errors.Errorf("circular image dependencies: %w", err)
	}
	return imageCycles(graph), nil
}

func imageCycles(graph *ImageGraph) [][]string {
	adj := map[string][]string{}
	for _, e := range graph.Edges {
		adj[e.From] = append(adj[e.From], e.To)
	}

	type nodeInfo struct {
		index   int
		lowlink int
		onStack bool
	}
	info := map[string]*nodeInfo{}
	index := 0
	var stack []string
	result := [][]string{}

	var strongconnect func(v string)
	strongconnect = func(v string) {
		ni := &nodeInfo{index: index, lowlink: index, onStack: true}
		info[v] = ni
		index++
		stack = append(stack, v)

		for _, w := range adj[v] {
			wInfo, visited := info[w]
			if !visited {
				strongconnect(w)
				ni.lowlink = min(ni.lowlink, info[w].lowlink)
			} else if wInfo.onStack {
				ni.lowlink = min(ni.lowlink, wInfo.index)
			}
		}

		if ni.lowlink != ni.index {
			return
		}
		var scc []string
		for {
			w := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			info[w].onStack = false
			scc = append(scc, w)
			if w == v {
				break
			}
		}
		// Self references never become edges, so only multi-image
		// components are cycles.
		if len(scc) > 1 {
			for i, j := 0, len(scc)-1; i < j; i, j = i+1, j-1 {
				scc[i], scc[j] = scc[j], scc[i]
			}
			result = append(result, append(scc, scc[0]))
		}
	}

	for _, im := range graph.Images {
		if _, visited := info[im.Path]; !visited {
			strongconnect(im.Path)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i][0] < result[j][0]
	})
	return result
}
