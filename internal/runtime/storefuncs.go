package runtime

import (
	"context"
	"fmt"
	"strings"

	"github.com/risor-io/risor/object"
	"gitlab.com/tozd/go/errors"

	"github.com/jward/rtview/internal/store"
)

// Definition host functions. Risor scripts cannot construct Go struct
// pointers, so these accept Risor maps with primitive values and build the
// store rows on the Go side. Each returns the new row ID.

func makeDefineImageFn(s store.DataStore) *object.Builtin {
	return object.NewBuiltin("define_image", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("define_image", 1, len(args))
		}
		path, err := toString(args[0])
		if err != nil {
			return object.Errorf("define_image: %v", err)
		}
		id, err := s.EnsureImage(path)
		if err != nil {
			return object.Errorf("define_image: %v", err)
		}
		return object.NewInt(id)
	})
}

func makeDefineClassFn(s store.DataStore) *object.Builtin {
	return object.NewBuiltin("define_class", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("define_class", 1, len(args))
		}
		m, err := extractMap(args[0])
		if err != nil {
			return object.Errorf("define_class: %v", err)
		}
		name := getString(m, "name")
		if name == "" {
			return object.Errorf("define_class: name is required")
		}
		imageID, err := imageFor(s, m)
		if err != nil {
			return object.Errorf("define_class: %v", err)
		}

		id, err := s.InsertClass(&store.Class{
			Name:           name,
			SuperclassName: getString(m, "superclass"),
			ImageID:        imageID,
		})
		if err != nil {
			return object.Errorf("define_class: %v", err)
		}
		return object.NewInt(id)
	})
}

func makeDefineProtocolFn(s store.DataStore) *object.Builtin {
	return object.NewBuiltin("define_protocol", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("define_protocol", 1, len(args))
		}
		m, err := extractMap(args[0])
		if err != nil {
			return object.Errorf("define_protocol: %v", err)
		}
		name := getString(m, "name")
		if name == "" {
			return object.Errorf("define_protocol: name is required")
		}
		imageID, err := imageFor(s, m)
		if err != nil {
			return object.Errorf("define_protocol: %v", err)
		}

		id, err := s.InsertProtocol(&store.Protocol{Name: name, ImageID: imageID})
		if err != nil {
			return object.Errorf("define_protocol: %v", err)
		}
		return object.NewInt(id)
	})
}

func makeDefineCategoryFn(s store.DataStore) *object.Builtin {
	return object.NewBuiltin("define_category", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("define_category", 1, len(args))
		}
		m, err := extractMap(args[0])
		if err != nil {
			return object.Errorf("define_category: %v", err)
		}
		class := getString(m, "class")
		if class == "" {
			return object.Errorf("define_category: class is required")
		}
		imageID, err := imageFor(s, m)
		if err != nil {
			return object.Errorf("define_category: %v", err)
		}

		id, err := s.InsertCategory(&store.Category{
			Name:      getString(m, "name"),
			ClassName: class,
			ImageID:   imageID,
		})
		if err != nil {
			return object.Errorf("define_category: %v", err)
		}
		return object.NewInt(id)
	})
}

func makeAddConformanceFn(s store.DataStore) *object.Builtin {
	return object.NewBuiltin("add_conformance", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("add_conformance", 1, len(args))
		}
		m, err := extractMap(args[0])
		if err != nil {
			return object.Errorf("add_conformance: %v", err)
		}
		kind, err := ownerKind(m)
		if err != nil {
			return object.Errorf("add_conformance: %v", err)
		}

		id, err := s.InsertConformance(&store.Conformance{
			OwnerKind:    kind,
			OwnerID:      getInt64(m, "owner_id"),
			ProtocolName: getString(m, "protocol"),
		})
		if err != nil {
			return object.Errorf("add_conformance: %v", err)
		}
		return object.NewInt(id)
	})
}

func makeAddIvarFn(s store.DataStore) *object.Builtin {
	return object.NewBuiltin("add_ivar", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("add_ivar", 1, len(args))
		}
		m, err := extractMap(args[0])
		if err != nil {
			return object.Errorf("add_ivar: %v", err)
		}

		id, err := s.InsertIvar(&store.Ivar{
			ClassID:      getInt64(m, "class_id"),
			Name:         getString(m, "name"),
			TypeEncoding: getString(m, "type"),
			Offset:       getInt64(m, "offset"),
		})
		if err != nil {
			return object.Errorf("add_ivar: %v", err)
		}
		return object.NewInt(id)
	})
}

func makeAddMethodFn(s store.DataStore) *object.Builtin {
	return object.NewBuiltin("add_method", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("add_method", 1, len(args))
		}
		m, err := extractMap(args[0])
		if err != nil {
			return object.Errorf("add_method: %v", err)
		}
		kind, err := ownerKind(m)
		if err != nil {
			return object.Errorf("add_method: %v", err)
		}

		id, err := s.InsertMethod(&store.Method{
			OwnerKind:    kind,
			OwnerID:      getInt64(m, "owner_id"),
			Name:         getString(m, "name"),
			TypeEncoding: getString(m, "type"),
			IsClass:      getBool(m, "class"),
			IsOptional:   getBool(m, "optional"),
		})
		if err != nil {
			return object.Errorf("add_method: %v", err)
		}
		return object.NewInt(id)
	})
}

func makeAddPropertyFn(s store.DataStore) *object.Builtin {
	return object.NewBuiltin("add_property", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("add_property", 1, len(args))
		}
		m, err := extractMap(args[0])
		if err != nil {
			return object.Errorf("add_property: %v", err)
		}
		kind, err := ownerKind(m)
		if err != nil {
			return object.Errorf("add_property: %v", err)
		}

		id, err := s.InsertProperty(&store.Property{
			OwnerKind:  kind,
			OwnerID:    getInt64(m, "owner_id"),
			Name:       getString(m, "name"),
			Attributes: getString(m, "attributes"),
			IsClass:    getBool(m, "class"),
			IsOptional: getBool(m, "optional"),
		})
		if err != nil {
			return object.Errorf("add_property: %v", err)
		}
		return object.NewInt(id)
	})
}

// makeInsertRecordFn creates "insert_record". The kind defaults to the
// aggregate tag of the encoding. The first definition of a name wins.
func makeInsertRecordFn(s store.DataStore) *object.Builtin {
	return object.NewBuiltin("insert_record", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("insert_record", 1, len(args))
		}
		m, err := extractMap(args[0])
		if err != nil {
			return object.Errorf("insert_record: %v", err)
		}
		enc := getString(m, "encoding")
		kind := getString(m, "kind")
		if kind == "" {
			kind = store.RecordStruct
			if strings.HasPrefix(enc, "(") {
				kind = store.RecordUnion
			}
		}

		id, err := s.InsertRecord(&store.Record{
			Name:     getString(m, "name"),
			Kind:     kind,
			Encoding: enc,
			Source:   getString(m, "source"),
		})
		if err != nil {
			return object.Errorf("insert_record: %v", err)
		}
		return object.NewInt(id)
	})
}

// --- Lookups ---

func makeClassByNameFn(s store.DataStore) *object.Builtin {
	return object.NewBuiltin("class_by_name", func(ctx context.Context, args ...object.Object) object.Object {
		name, errObj := nameArg("class_by_name", args)
		if errObj != nil {
			return errObj
		}
		c, err := s.ClassByName(name)
		if err != nil {
			return object.Errorf("class_by_name: %v", err)
		}
		if c == nil {
			return object.Nil
		}
		return object.NewMap(map[string]object.Object{
			"id":         object.NewInt(c.ID),
			"name":       object.NewString(c.Name),
			"superclass": object.NewString(c.SuperclassName),
		})
	})
}

func makeProtocolByNameFn(s store.DataStore) *object.Builtin {
	return object.NewBuiltin("protocol_by_name", func(ctx context.Context, args ...object.Object) object.Object {
		name, errObj := nameArg("protocol_by_name", args)
		if errObj != nil {
			return errObj
		}
		p, err := s.ProtocolByName(name)
		if err != nil {
			return object.Errorf("protocol_by_name: %v", err)
		}
		if p == nil {
			return object.Nil
		}
		return object.NewMap(map[string]object.Object{
			"id":   object.NewInt(p.ID),
			"name": object.NewString(p.Name),
		})
	})
}

func makeRecordByNameFn(s store.DataStore) *object.Builtin {
	return object.NewBuiltin("record_by_name", func(ctx context.Context, args ...object.Object) object.Object {
		name, errObj := nameArg("record_by_name", args)
		if errObj != nil {
			return errObj
		}
		r, err := s.RecordByName(name)
		if err != nil {
			return object.Errorf("record_by_name: %v", err)
		}
		if r == nil {
			return object.Nil
		}
		return object.NewMap(map[string]object.Object{
			"id":       object.NewInt(r.ID),
			"name":     object.NewString(r.Name),
			"kind":     object.NewString(r.Kind),
			"encoding": object.NewString(r.Encoding),
			"source":   object.NewString(r.Source),
		})
	})
}

// makeRemoveFn wraps a delete-by-name store operation. Returns whether the
// object existed.
func makeRemoveFn(name string, remove func(string) (bool, error)) *object.Builtin {
	return object.NewBuiltin(name, func(ctx context.Context, args ...object.Object) object.Object {
		target, errObj := nameArg(name, args)
		if errObj != nil {
			return errObj
		}
		existed, err := remove(target)
		if err != nil {
			return object.Errorf("%s: %v", name, err)
		}
		return object.NewBool(existed)
	})
}

func nameArg(fn string, args []object.Object) (string, object.Object) {
	if len(args) != 1 {
		return "", object.NewArgsError(fn, 1, len(args))
	}
	name, err := toString(args[0])
	if err != nil {
		return "", object.Errorf("%s: %v", fn, err)
	}
	return name, nil
}

// imageFor resolves the optional "image" path of a definition map.
func imageFor(s store.DataStore, m map[string]object.Object) (*int64, error) {
	path := getString(m, "image")
	if path == "" {
		return nil, nil
	}
	id, err := s.EnsureImage(path)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func ownerKind(m map[string]object.Object) (string, error) {
	kind := getStringDefault(m, "owner_kind", store.OwnerClass)
	switch kind {
	case store.OwnerClass, store.OwnerProtocol, store.OwnerCategory:
		return kind, nil
	}
	return "", errors.Errorf("unknown owner_kind %q", kind)
}

// --- Map extraction helpers ---

func extractMap(obj object.Object) (map[string]object.Object, error) {
	m, ok := obj.(*object.Map)
	if !ok {
		return nil, errors.Errorf("expected map, got %s", obj.Type())
	}
	return m.Value(), nil
}

func getString(m map[string]object.Object, key string) string {
	v, ok := m[key]
	if !ok {
		return ""
	}
	if s, ok := v.(*object.String); ok {
		return s.Value()
	}
	return ""
}

func getStringDefault(m map[string]object.Object, key, def string) string {
	v := getString(m, key)
	if v == "" {
		return def
	}
	return v
}

func getInt64(m map[string]object.Object, key string) int64 {
	v, ok := m[key]
	if !ok {
		return 0
	}
	if i, ok := v.(*object.Int); ok {
		return i.Value()
	}
	if f, ok := v.(*object.Float); ok {
		return int64(f.Value())
	}
	return 0
}

func getBool(m map[string]object.Object, key string) bool {
	v, ok := m[key]
	if !ok {
		return false
	}
	if b, ok := v.(*object.Bool); ok {
		return b.Value()
	}
	return false
}

func toString(obj object.Object) (string, error) {
	if s, ok := obj.(*object.String); ok {
		return s.Value(), nil
	}
	return "", errors.Errorf("expected string, got %s", obj.Type())
}

// makeDBQueryFn creates "db_query", which runs a read-only SELECT against
// the snapshot and returns a list of column-to-value maps.
func makeDBQueryFn(s *store.Store) *object.Builtin {
	return object.NewBuiltin("db_query", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) < 1 {
			return object.Errorf("db_query: expected at least 1 argument (sql), got %d", len(args))
		}
		sqlStr, err := toString(args[0])
		if err != nil {
			return object.Errorf("db_query: %v", err)
		}

		// Only allow SELECT statements.
		trimmed := strings.TrimSpace(strings.ToUpper(sqlStr))
		if !strings.HasPrefix(trimmed, "SELECT") {
			return object.Errorf("db_query: only SELECT queries are allowed")
		}

		// Convert remaining args to query parameters.
		var queryArgs []any
		for _, arg := range args[1:] {
			switch v := arg.(type) {
			case *object.Int:
				queryArgs = append(queryArgs, v.Value())
			case *object.Float:
				queryArgs = append(queryArgs, v.Value())
			case *object.String:
				queryArgs = append(queryArgs, v.Value())
			case *object.Bool:
				queryArgs = append(queryArgs, v.Value())
			case *object.NilType:
				queryArgs = append(queryArgs, nil)
			default:
				queryArgs = append(queryArgs, fmt.Sprintf("%v", arg))
			}
		}

		rows, queryErr := s.DB().QueryContext(ctx, sqlStr, queryArgs...)
		if queryErr != nil {
			return object.Errorf("db_query: %v", queryErr)
		}
		defer rows.Close()

		cols, colErr := rows.Columns()
		if colErr != nil {
			return object.Errorf("db_query: columns: %v", colErr)
		}

		var results []object.Object
		for rows.Next() {
			values := make([]any, len(cols))
			ptrs := make([]any, len(cols))
			for i := range values {
				ptrs[i] = &values[i]
			}
			if err := rows.Scan(ptrs...); err != nil {
				return object.Errorf("db_query: scan: %v", err)
			}
			row := make(map[string]object.Object, len(cols))
			for i, col := range cols {
				row[col] = sqlValueToObject(values[i])
			}
			results = append(results, object.NewMap(row))
		}
		if err := rows.Err(); err != nil {
			return object.Errorf("db_query: rows: %v", err)
		}
		if results == nil {
			results = []object.Object{}
		}
		return object.NewList(results)
	})
}

// sqlValueToObject converts a database value to a Risor object.
func sqlValueToObject(v any) object.Object {
	if v == nil {
		return object.Nil
	}
	switch val := v.(type) {
	case int64:
		return object.NewInt(val)
	case float64:
		return object.NewFloat(val)
	case string:
		return object.NewString(val)
	case bool:
		return object.NewBool(val)
	case []byte:
		return object.NewString(string(val))
	default:
		return object.NewString(fmt.Sprintf("%v", val))
	}
}
