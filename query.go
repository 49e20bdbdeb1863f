package rtview

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"gitlab.com/tozd/go/errors"

	"github.com/jward/rtview/internal/store"
)

// QueryBuilder provides a browsing API over the snapshot: images, classes,
// protocols, records and name search.
type QueryBuilder struct {
	store *store.Store
}

// Pagination controls offset+limit paging on list/search results.
type Pagination struct {
	Offset int // skip this many results (default 0)
	Limit  int // max results to return (default 50, max 500)
}

const (
	defaultLimit = 50
	maxLimit     = 500
)

func (p Pagination) normalize() Pagination {
	if p.Offset < 0 {
		p.Offset = 0
	}
	if p.Limit <= 0 {
		p.Limit = defaultLimit
	}
	if p.Limit > maxLimit {
		p.Limit = maxLimit
	}
	return p
}

// PagedResult wraps a page of results with total count for pagination.
type PagedResult[T any] struct {
	Items      []T
	TotalCount int // total matching results (before pagination)
}

// Filter restricts object listings. Zero fields match everything.
type Filter struct {
	Image  string // exact image path
	Prefix string // name prefix, ASCII case-insensitive
}

// ObjectSummary is one row of a class or protocol listing.
type ObjectSummary struct {
	ID         ID     `json:"-"`
	Kind       string `json:"kind"`
	Name       string `json:"name"`
	Image      string `json:"image,omitempty"`
	Superclass string `json:"superclass,omitempty"`
}

// ImageSummary counts the objects defined by one image.
type ImageSummary struct {
	Path      string `json:"path"`
	Classes   int    `json:"classes"`
	Protocols int    `json:"protocols"`
}

// SnapshotStats counts the rows of a snapshot.
type SnapshotStats struct {
	Images     int
	Classes    int
	Protocols  int
	Categories int
	Records    int
}

// objectSelect unifies classes and protocols into (kind, name, image,
// superclass) rows.
const objectSelect = `
SELECT 'class' AS kind, c.name AS name, COALESCE(i.path, '') AS image, COALESCE(c.superclass_name, '') AS superclass
  FROM classes c LEFT JOIN images i ON c.image_id = i.id
UNION ALL
SELECT 'protocol', p.name, COALESCE(i.path, ''), ''
  FROM protocols p LEFT JOIN images i ON p.image_id = i.id`

// Classes lists classes matching filter, ordered by name.
func (q *QueryBuilder) Classes(ctx context.Context, filter Filter, page Pagination) (*PagedResult[ObjectSummary], error) {
	return q.objects(ctx, "classes", []string{"kind = 'class'"}, nil, filter, page)
}

// Protocols lists protocols matching filter, ordered by name.
func (q *QueryBuilder) Protocols(ctx context.Context, filter Filter, page Pagination) (*PagedResult[ObjectSummary], error) {
	return q.objects(ctx, "protocols", []string{"kind = 'protocol'"}, nil, filter, page)
}

// Search matches class and protocol names against pattern, where "*"
// matches any run of characters. A pattern without "*" is a substring
// match. Classes sort before protocols of the same name.
func (q *QueryBuilder) Search(ctx context.Context, pattern string, filter Filter, page Pagination) (*PagedResult[ObjectSummary], error) {
	var where []string
	var args []any
	if pattern != "" && pattern != "*" {
		like := escapeLike(pattern)
		if strings.Contains(like, "*") {
			like = strings.ReplaceAll(like, "*", "%")
		} else {
			like = "%" + like + "%"
		}
		where = append(where, `name LIKE ? ESCAPE '\'`)
		args = append(args, like)
	}
	return q.objects(ctx, "search", where, args, filter, page)
}

func (q *QueryBuilder) objects(ctx context.Context, op string, where []string, args []any, filter Filter, page Pagination) (*PagedResult[ObjectSummary], error) {
	page = page.normalize()

	if filter.Image != "" {
		where = append(where, "image = ?")
		args = append(args, filter.Image)
	}
	if filter.Prefix != "" {
		where = append(where, `name LIKE ? ESCAPE '\'`)
		args = append(args, escapeLike(filter.Prefix)+"%")
	}
	whereClause := ""
	if len(where) > 0 {
		whereClause = "WHERE " + strings.Join(where, " AND ")
	}

	var totalCount int
	countSQL := "SELECT COUNT(*) FROM (" + objectSelect + ") " + whereClause
	if err := q.store.DB().QueryRowContext(ctx, countSQL, args...).Scan(&totalCount); err != nil {
		return nil, errors.Errorf("%s: count: %w", op, err)
	}

	dataSQL := fmt.Sprintf(
		`SELECT kind, name, image, superclass FROM (%s) %s
		 ORDER BY name COLLATE NOCASE, name, kind
		 LIMIT ? OFFSET ?`,
		objectSelect, whereClause,
	)
	dataArgs := append(append([]any{}, args...), page.Limit, page.Offset)
	rows, err := q.store.DB().QueryContext(ctx, dataSQL, dataArgs...)
	if err != nil {
		return nil, errors.Errorf("%s: query: %w", op, err)
	}
	defer rows.Close()

	items := []ObjectSummary{}
	for rows.Next() {
		var o ObjectSummary
		if err := rows.Scan(&o.Kind, &o.Name, &o.Image, &o.Superclass); err != nil {
			return nil, errors.Errorf("%s: scan: %w", op, err)
		}
		if o.Kind == "protocol" {
			o.ID = Protocol(o.Name)
		} else {
			o.ID = Class(o.Name)
		}
		items = append(items, o)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Errorf("%s: rows: %w", op, err)
	}
	return &PagedResult[ObjectSummary]{Items: items, TotalCount: totalCount}, nil
}

// Images lists every image with its class and protocol counts, ordered by
// path.
func (q *QueryBuilder) Images(ctx context.Context) ([]ImageSummary, error) {
	rows, err := q.store.DB().QueryContext(ctx, `
		SELECT i.path,
		       (SELECT COUNT(*) FROM classes c WHERE c.image_id = i.id),
		       (SELECT COUNT(*) FROM protocols p WHERE p.image_id = i.id)
		  FROM images i
		 ORDER BY i.path`)
	if err != nil {
		return nil, errors.Errorf("images: query: %w", err)
	}
	defer rows.Close()

	images := []ImageSummary{}
	for rows.Next() {
		var im ImageSummary
		if err := rows.Scan(&im.Path, &im.Classes, &im.Protocols); err != nil {
			return nil, errors.Errorf("images: scan: %w", err)
		}
		images = append(images, im)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Errorf("images: rows: %w", err)
	}
	return images, nil
}

// Records lists catalog records whose name starts with prefix.
func (q *QueryBuilder) Records(ctx context.Context, prefix string, page Pagination) (*PagedResult[store.Record], error) {
	page = page.normalize()
	like := escapeLike(prefix) + "%"

	var totalCount int
	if err := q.store.DB().QueryRowContext(ctx,
		`SELECT COUNT(*) FROM records WHERE name LIKE ? ESCAPE '\'`, like,
	).Scan(&totalCount); err != nil {
		return nil, errors.Errorf("records: count: %w", err)
	}

	rows, err := q.store.DB().QueryContext(ctx,
		`SELECT id, name, kind, encoding, source FROM records
		  WHERE name LIKE ? ESCAPE '\'
		  ORDER BY name LIMIT ? OFFSET ?`,
		like, page.Limit, page.Offset,
	)
	if err != nil {
		return nil, errors.Errorf("records: query: %w", err)
	}
	defer rows.Close()

	items := []store.Record{}
	for rows.Next() {
		var r store.Record
		var source sql.NullString
		if err := rows.Scan(&r.ID, &r.Name, &r.Kind, &r.Encoding, &source); err != nil {
			return nil, errors.Errorf("records: scan: %w", err)
		}
		r.Source = source.String
		items = append(items, r)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Errorf("records: rows: %w", err)
	}
	return &PagedResult[store.Record]{Items: items, TotalCount: totalCount}, nil
}

// Stats counts the rows of the snapshot.
func (q *QueryBuilder) Stats(ctx context.Context) (*SnapshotStats, error) {
	var s SnapshotStats
	err := q.store.DB().QueryRowContext(ctx, `
		SELECT (SELECT COUNT(*) FROM images),
		       (SELECT COUNT(*) FROM classes),
		       (SELECT COUNT(*) FROM protocols),
		       (SELECT COUNT(*) FROM categories),
		       (SELECT COUNT(*) FROM records)`,
	).Scan(&s.Images, &s.Classes, &s.Protocols, &s.Categories, &s.Records)
	if err != nil {
		return nil, errors.Errorf("stats: %w", err)
	}
	return &s, nil
}

// AllObjects returns the IDs of every class and protocol in filter, for
// bulk export.
func (q *QueryBuilder) AllObjects(ctx context.Context, filter Filter) ([]ID, error) {
	var ids []ID
	for page := (Pagination{Limit: maxLimit}); ; page.Offset += maxLimit {
		res, err := q.objects(ctx, "all objects", nil, nil, filter, page)
		if err != nil {
			return nil, err
		}
		for _, o := range res.Items {
			ids = append(ids, o.ID)
		}
		if page.Offset+len(res.Items) >= res.TotalCount || len(res.Items) == 0 {
			return ids, nil
		}
	}
}

// escapeLike escapes SQL LIKE special characters (% and _) with backslash.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}
