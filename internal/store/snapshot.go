package store

import (
	"context"
	"database/sql"

	"gitlab.com/tozd/go/errors"
)

// dbtx is satisfied by both *sql.DB and *sql.Tx, so inserts are shared
// between direct writes and batch commits.
type dbtx interface {
	Exec(query string, args ...any) (sql.Result, error)
	QueryRow(query string, args ...any) *sql.Row
}

func insertID(res sql.Result, err error) (int64, error) {
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, errors.Errorf("last insert id: %w", err)
	}
	return id, nil
}

// --- Image operations ---

func ensureImage(db dbtx, path string) (int64, error) {
	if _, err := db.Exec("INSERT OR IGNORE INTO images (path) VALUES (?)", path); err != nil {
		return 0, errors.Errorf("insert image: %w", err)
	}
	var id int64
	if err := db.QueryRow("SELECT id FROM images WHERE path = ?", path).Scan(&id); err != nil {
		return 0, errors.Errorf("image id: %w", err)
	}
	return id, nil
}

// EnsureImage returns the ID of the image at path, inserting it if needed.
func (s *Store) EnsureImage(path string) (int64, error) {
	return ensureImage(s.db, path)
}

func (s *Store) imageIDByPath(path string) (int64, bool, error) {
	var id int64
	err := s.db.QueryRow("SELECT id FROM images WHERE path = ?", path).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, errors.Errorf("image by path: %w", err)
	}
	return id, true, nil
}

// ImagePath returns the path for an image ID, or "" when id is nil.
func (s *Store) ImagePath(ctx context.Context, id *int64) (string, error) {
	if id == nil {
		return "", nil
	}
	var path string
	err := s.db.QueryRowContext(ctx, "SELECT path FROM images WHERE id = ?", *id).Scan(&path)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", errors.Errorf("image path: %w", err)
	}
	return path, nil
}

// --- Class operations ---

func insertClass(db dbtx, c *Class) (int64, error) {
	id, err := insertID(db.Exec(
		"INSERT INTO classes (name, superclass_name, image_id) VALUES (?, ?, ?)",
		c.Name, nullString(c.SuperclassName), c.ImageID,
	))
	if err != nil {
		return 0, errors.Errorf("class %q: %w", c.Name, err)
	}
	c.ID = id
	return id, nil
}

func (s *Store) InsertClass(c *Class) (int64, error) {
	return insertClass(s.db, c)
}

const classCols = "id, name, COALESCE(superclass_name, ''), image_id"

func scanClass(scanner interface{ Scan(...any) error }) (*Class, error) {
	c := &Class{}
	if err := scanner.Scan(&c.ID, &c.Name, &c.SuperclassName, &c.ImageID); err != nil {
		return nil, err
	}
	return c, nil
}

// ClassByName returns nil, nil when no class has the name.
func (s *Store) ClassByName(name string) (*Class, error) {
	return s.ClassByNameContext(context.Background(), name)
}

func (s *Store) ClassByNameContext(ctx context.Context, name string) (*Class, error) {
	c, err := scanClass(s.db.QueryRowContext(ctx, "SELECT "+classCols+" FROM classes WHERE name = ?", name))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Errorf("class by name: %w", err)
	}
	return c, nil
}

// --- Protocol operations ---

func insertProtocol(db dbtx, p *Protocol) (int64, error) {
	id, err := insertID(db.Exec(
		"INSERT INTO protocols (name, image_id) VALUES (?, ?)", p.Name, p.ImageID,
	))
	if err != nil {
		return 0, errors.Errorf("protocol %q: %w", p.Name, err)
	}
	p.ID = id
	return id, nil
}

func (s *Store) InsertProtocol(p *Protocol) (int64, error) {
	return insertProtocol(s.db, p)
}

// ProtocolByName returns nil, nil when no protocol has the name.
func (s *Store) ProtocolByName(name string) (*Protocol, error) {
	return s.ProtocolByNameContext(context.Background(), name)
}

func (s *Store) ProtocolByNameContext(ctx context.Context, name string) (*Protocol, error) {
	p := &Protocol{}
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, image_id FROM protocols WHERE name = ?", name,
	).Scan(&p.ID, &p.Name, &p.ImageID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Errorf("protocol by name: %w", err)
	}
	return p, nil
}

// --- Category operations ---

func insertCategory(db dbtx, c *Category) (int64, error) {
	id, err := insertID(db.Exec(
		"INSERT INTO categories (name, class_name, image_id) VALUES (?, ?, ?)",
		c.Name, c.ClassName, c.ImageID,
	))
	if err != nil {
		return 0, errors.Errorf("category %s(%s): %w", c.ClassName, c.Name, err)
	}
	c.ID = id
	return id, nil
}

func (s *Store) InsertCategory(c *Category) (int64, error) {
	return insertCategory(s.db, c)
}

// CategoriesForClass returns the categories attached to className in
// discovery (insertion) order.
func (s *Store) CategoriesForClass(ctx context.Context, className string) ([]*Category, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, class_name, image_id FROM categories WHERE class_name = ? ORDER BY id", className,
	)
	if err != nil {
		return nil, errors.Errorf("categories for class: %w", err)
	}
	defer rows.Close()
	var cats []*Category
	for rows.Next() {
		c := &Category{}
		if err := rows.Scan(&c.ID, &c.Name, &c.ClassName, &c.ImageID); err != nil {
			return nil, errors.Errorf("scan category: %w", err)
		}
		cats = append(cats, c)
	}
	return cats, rows.Err()
}

// --- Member operations ---

func insertConformance(db dbtx, c *Conformance) (int64, error) {
	id, err := insertID(db.Exec(
		"INSERT INTO conformances (owner_kind, owner_id, protocol_name) VALUES (?, ?, ?)",
		c.OwnerKind, c.OwnerID, c.ProtocolName,
	))
	if err != nil {
		return 0, errors.Errorf("conformance %q: %w", c.ProtocolName, err)
	}
	c.ID = id
	return id, nil
}

func (s *Store) InsertConformance(c *Conformance) (int64, error) {
	return insertConformance(s.db, c)
}

// ConformancesFor returns the adopted protocol names of an owner in
// declaration order.
func (s *Store) ConformancesFor(ctx context.Context, ownerKind string, ownerID int64) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT protocol_name FROM conformances WHERE owner_kind = ? AND owner_id = ? ORDER BY id",
		ownerKind, ownerID,
	)
	if err != nil {
		return nil, errors.Errorf("conformances: %w", err)
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, errors.Errorf("scan conformance: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func insertIvar(db dbtx, iv *Ivar) (int64, error) {
	id, err := insertID(db.Exec(
		"INSERT INTO ivars (class_id, name, type_encoding, byte_offset) VALUES (?, ?, ?, ?)",
		iv.ClassID, iv.Name, iv.TypeEncoding, iv.Offset,
	))
	if err != nil {
		return 0, errors.Errorf("ivar %q: %w", iv.Name, err)
	}
	iv.ID = id
	return id, nil
}

func (s *Store) InsertIvar(iv *Ivar) (int64, error) {
	return insertIvar(s.db, iv)
}

// IvarsByClass returns a class's ivars in declaration order.
func (s *Store) IvarsByClass(ctx context.Context, classID int64) ([]*Ivar, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, class_id, name, type_encoding, byte_offset FROM ivars WHERE class_id = ? ORDER BY id", classID,
	)
	if err != nil {
		return nil, errors.Errorf("ivars by class: %w", err)
	}
	defer rows.Close()
	var ivars []*Ivar
	for rows.Next() {
		iv := &Ivar{}
		if err := rows.Scan(&iv.ID, &iv.ClassID, &iv.Name, &iv.TypeEncoding, &iv.Offset); err != nil {
			return nil, errors.Errorf("scan ivar: %w", err)
		}
		ivars = append(ivars, iv)
	}
	return ivars, rows.Err()
}

func insertMethod(db dbtx, m *Method) (int64, error) {
	id, err := insertID(db.Exec(
		`INSERT INTO methods (owner_kind, owner_id, name, type_encoding, is_class, is_optional)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		m.OwnerKind, m.OwnerID, m.Name, m.TypeEncoding, m.IsClass, m.IsOptional,
	))
	if err != nil {
		return 0, errors.Errorf("method %q: %w", m.Name, err)
	}
	m.ID = id
	return id, nil
}

func (s *Store) InsertMethod(m *Method) (int64, error) {
	return insertMethod(s.db, m)
}

// MethodsFor returns an owner's methods in declaration order.
func (s *Store) MethodsFor(ctx context.Context, ownerKind string, ownerID int64) ([]*Method, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, owner_kind, owner_id, name, type_encoding, is_class, is_optional
		 FROM methods WHERE owner_kind = ? AND owner_id = ? ORDER BY id`,
		ownerKind, ownerID,
	)
	if err != nil {
		return nil, errors.Errorf("methods: %w", err)
	}
	defer rows.Close()
	var methods []*Method
	for rows.Next() {
		m := &Method{}
		if err := rows.Scan(&m.ID, &m.OwnerKind, &m.OwnerID, &m.Name, &m.TypeEncoding, &m.IsClass, &m.IsOptional); err != nil {
			return nil, errors.Errorf("scan method: %w", err)
		}
		methods = append(methods, m)
	}
	return methods, rows.Err()
}

func insertProperty(db dbtx, p *Property) (int64, error) {
	id, err := insertID(db.Exec(
		`INSERT INTO properties (owner_kind, owner_id, name, attributes, is_class, is_optional)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		p.OwnerKind, p.OwnerID, p.Name, p.Attributes, p.IsClass, p.IsOptional,
	))
	if err != nil {
		return 0, errors.Errorf("property %q: %w", p.Name, err)
	}
	p.ID = id
	return id, nil
}

func (s *Store) InsertProperty(p *Property) (int64, error) {
	return insertProperty(s.db, p)
}

// PropertiesFor returns an owner's properties in declaration order.
func (s *Store) PropertiesFor(ctx context.Context, ownerKind string, ownerID int64) ([]*Property, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, owner_kind, owner_id, name, attributes, is_class, is_optional
		 FROM properties WHERE owner_kind = ? AND owner_id = ? ORDER BY id`,
		ownerKind, ownerID,
	)
	if err != nil {
		return nil, errors.Errorf("properties: %w", err)
	}
	defer rows.Close()
	var props []*Property
	for rows.Next() {
		p := &Property{}
		if err := rows.Scan(&p.ID, &p.OwnerKind, &p.OwnerID, &p.Name, &p.Attributes, &p.IsClass, &p.IsOptional); err != nil {
			return nil, errors.Errorf("scan property: %w", err)
		}
		props = append(props, p)
	}
	return props, rows.Err()
}

// --- Record catalog ---

// insertRecord keeps the first layout seen for a name; later duplicates
// return the existing ID.
func insertRecord(db dbtx, r *Record) (int64, error) {
	res, err := db.Exec(
		"INSERT OR IGNORE INTO records (name, kind, encoding, source) VALUES (?, ?, ?, ?)",
		r.Name, r.Kind, r.Encoding, r.Source,
	)
	if err != nil {
		return 0, errors.Errorf("insert record %q: %w", r.Name, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		var id int64
		if err := db.QueryRow("SELECT id FROM records WHERE name = ?", r.Name).Scan(&id); err != nil {
			return 0, errors.Errorf("existing record %q: %w", r.Name, err)
		}
		r.ID = id
		return id, nil
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, errors.Errorf("last insert id: %w", err)
	}
	r.ID = id
	return id, nil
}

func (s *Store) InsertRecord(r *Record) (int64, error) {
	return insertRecord(s.db, r)
}

// RecordByName returns nil, nil when the catalog has no such record.
func (s *Store) RecordByName(name string) (*Record, error) {
	return s.RecordByNameContext(context.Background(), name)
}

func (s *Store) RecordByNameContext(ctx context.Context, name string) (*Record, error) {
	r := &Record{}
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, kind, encoding, COALESCE(source, '') FROM records WHERE name = ?", name,
	).Scan(&r.ID, &r.Name, &r.Kind, &r.Encoding, &r.Source)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Errorf("record by name: %w", err)
	}
	return r, nil
}

// --- Metadata ---

// GetMetadata returns "" when key is unset.
func (s *Store) GetMetadata(key string) (string, error) {
	var value sql.NullString
	err := s.db.QueryRow("SELECT value FROM metadata WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", errors.Errorf("get metadata %q: %w", key, err)
	}
	return value.String, nil
}

func (s *Store) SetMetadata(key, value string) error {
	_, err := s.db.Exec(
		"INSERT INTO metadata (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	if err != nil {
		return errors.Errorf("set metadata %q: %w", key, err)
	}
	return nil
}
