package rtview

import (
	"context"
	"database/sql"

	"gitlab.com/tozd/go/errors"
)

// ClassHierarchy is the inheritance neighbourhood of a single class.
type ClassHierarchy struct {
	Class           string
	SuperclassChain []string // nearest first, ending at a root class
	Subclasses      []string // direct subclasses, sorted
	Descendants     int      // all transitive subclasses
}

// ClassHierarchy returns the hierarchy around the named class. Returns nil
// with no error if the class is not in the snapshot.
func (q *QueryBuilder) ClassHierarchy(ctx context.Context, name string) (*ClassHierarchy, error) {
	c, err := q.store.ClassByNameContext(ctx, name)
	if err != nil {
		return nil, errors.Errorf("class hierarchy: %w", err)
	}
	if c == nil {
		return nil, nil
	}

	h := &ClassHierarchy{Class: name}
	if h.SuperclassChain, err = q.SuperclassChain(ctx, name); err != nil {
		return nil, err
	}
	if h.Subclasses, err = q.Subclasses(ctx, name, false); err != nil {
		return nil, err
	}
	all, err := q.Subclasses(ctx, name, true)
	if err != nil {
		return nil, err
	}
	h.Descendants = len(all)
	return h, nil
}

// SuperclassChain walks superclass links upwards from name. A superclass
// missing from the snapshot ends the chain after its name; a cycle ends it
// before the repeated class.
func (q *QueryBuilder) SuperclassChain(ctx context.Context, name string) ([]string, error) {
	var chain []string
	seen := map[string]bool{name: true}
	current := name
	for {
		var super sql.NullString
		err := q.store.DB().QueryRowContext(ctx,
			"SELECT superclass_name FROM classes WHERE name = ?", current,
		).Scan(&super)
		if err == sql.ErrNoRows {
			return chain, nil
		}
		if err != nil {
			return nil, errors.Errorf("superclass chain: %w", err)
		}
		if !super.Valid || super.String == "" || seen[super.String] {
			return chain, nil
		}
		chain = append(chain, super.String)
		seen[super.String] = true
		current = super.String
	}
}

// Subclasses lists the classes inheriting from name, sorted. With recursive
// set, all descendants are included.
func (q *QueryBuilder) Subclasses(ctx context.Context, name string, recursive bool) ([]string, error) {
	query := "SELECT name FROM classes WHERE superclass_name = ? ORDER BY name"
	if recursive {
		query = `
			WITH RECURSIVE descendants(name) AS (
				SELECT name FROM classes WHERE superclass_name = ?
				UNION
				SELECT c.name FROM classes c JOIN descendants d ON c.superclass_name = d.name
			)
			SELECT name FROM descendants ORDER BY name`
	}
	rows, err := q.store.DB().QueryContext(ctx, query, name)
	if err != nil {
		return nil, errors.Errorf("subclasses: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, errors.Errorf("subclasses: scan: %w", err)
		}
		names = append(names, n)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Errorf("subclasses: rows: %w", err)
	}
	return names, nil
}

// DependentsOf reports which objects mention name: subclasses, adopters and
// users of a record of that name.
func (q *QueryBuilder) DependentsOf(ctx context.Context, name string) (*Dependents, error) {
	return q.store.DependentsOf(ctx, name)
}
