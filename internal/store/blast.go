package store

import (
	"context"

	"gitlab.com/tozd/go/errors"
)

// Dependents reports the objects whose declarations mention name: direct
// subclasses, classes and protocols adopting it (directly or through a
// category), and owners with members referencing the record. Names come back
// sorted and deduplicated per kind.
type Dependents struct {
	Subclasses        []string
	AdoptingClasses   []string
	AdoptingProtocols []string
	RecordUsers       []string
}

// DependentsOf computes the blast radius of redefining or removing name.
func (s *Store) DependentsOf(ctx context.Context, name string) (*Dependents, error) {
	d := &Dependents{}
	var err error

	d.Subclasses, err = s.queryNames(ctx,
		"SELECT name FROM classes WHERE superclass_name = ? ORDER BY name", name)
	if err != nil {
		return nil, errors.Errorf("subclasses: %w", err)
	}

	d.AdoptingClasses, err = s.queryNames(ctx, `
		SELECT c.name FROM conformances cf JOIN classes c ON c.id = cf.owner_id
		WHERE cf.owner_kind = 'class' AND cf.protocol_name = ?
		UNION
		SELECT cat.class_name FROM conformances cf JOIN categories cat ON cat.id = cf.owner_id
		WHERE cf.owner_kind = 'category' AND cf.protocol_name = ?
		ORDER BY 1`, name, name)
	if err != nil {
		return nil, errors.Errorf("adopting classes: %w", err)
	}

	d.AdoptingProtocols, err = s.queryNames(ctx, `
		SELECT p.name FROM conformances cf JOIN protocols p ON p.id = cf.owner_id
		WHERE cf.owner_kind = 'protocol' AND cf.protocol_name = ?
		ORDER BY 1`, name)
	if err != nil {
		return nil, errors.Errorf("adopting protocols: %w", err)
	}

	// Body-less references encode as {Name} and bodied ones as {Name=...}.
	like := []any{"%{" + name + "}%", "%{" + name + "=%", "%(" + name + ")%", "%(" + name + "=%"}
	d.RecordUsers, err = s.queryNames(ctx, `
		SELECT c.name FROM ivars iv JOIN classes c ON c.id = iv.class_id
		WHERE iv.type_encoding LIKE ? OR iv.type_encoding LIKE ? OR iv.type_encoding LIKE ? OR iv.type_encoding LIKE ?
		UNION
		SELECT c.name FROM methods m JOIN classes c ON c.id = m.owner_id
		WHERE m.owner_kind = 'class' AND (m.type_encoding LIKE ? OR m.type_encoding LIKE ? OR m.type_encoding LIKE ? OR m.type_encoding LIKE ?)
		ORDER BY 1`, append(like, like...)...)
	if err != nil {
		return nil, errors.Errorf("record users: %w", err)
	}
	return d, nil
}

func (s *Store) queryNames(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
