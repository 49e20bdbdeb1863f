package store

import (
	"context"

	"gitlab.com/tozd/go/errors"

	"github.com/jward/rtview/internal/metadata"
)

// Provider serves a loaded snapshot as a reflection source. Every call reads
// the database, so redefinitions made by scripts are visible immediately.
type Provider struct {
	store *Store
}

var (
	_ metadata.Provider       = (*Provider)(nil)
	_ metadata.RecordProvider = (*Provider)(nil)
)

func NewProvider(s *Store) *Provider {
	return &Provider{store: s}
}

func (p *Provider) Class(ctx context.Context, name string) (*metadata.RawClass, error) {
	c, err := p.store.ClassByNameContext(ctx, name)
	if err != nil || c == nil {
		return nil, err
	}
	image, err := p.store.ImagePath(ctx, c.ImageID)
	if err != nil {
		return nil, err
	}
	raw := &metadata.RawClass{Name: c.Name, Superclass: c.SuperclassName, Image: image}

	if raw.Protocols, err = p.store.ConformancesFor(ctx, OwnerClass, c.ID); err != nil {
		return nil, err
	}
	ivars, err := p.store.IvarsByClass(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	for _, iv := range ivars {
		raw.Ivars = append(raw.Ivars, metadata.RawIvar{Name: iv.Name, Encoding: iv.TypeEncoding, Offset: iv.Offset})
	}
	if raw.Methods, err = p.methods(ctx, OwnerClass, c.ID); err != nil {
		return nil, err
	}
	if raw.Properties, err = p.properties(ctx, OwnerClass, c.ID); err != nil {
		return nil, err
	}
	return raw, nil
}

func (p *Provider) Protocol(ctx context.Context, name string) (*metadata.RawProtocol, error) {
	proto, err := p.store.ProtocolByNameContext(ctx, name)
	if err != nil || proto == nil {
		return nil, err
	}
	image, err := p.store.ImagePath(ctx, proto.ImageID)
	if err != nil {
		return nil, err
	}
	raw := &metadata.RawProtocol{Name: proto.Name, Image: image}
	if raw.Protocols, err = p.store.ConformancesFor(ctx, OwnerProtocol, proto.ID); err != nil {
		return nil, err
	}
	if raw.Methods, err = p.methods(ctx, OwnerProtocol, proto.ID); err != nil {
		return nil, err
	}
	if raw.Properties, err = p.properties(ctx, OwnerProtocol, proto.ID); err != nil {
		return nil, err
	}
	return raw, nil
}

func (p *Provider) Categories(ctx context.Context, className string) ([]metadata.RawCategory, error) {
	cats, err := p.store.CategoriesForClass(ctx, className)
	if err != nil {
		return nil, err
	}
	out := make([]metadata.RawCategory, 0, len(cats))
	for _, c := range cats {
		image, err := p.store.ImagePath(ctx, c.ImageID)
		if err != nil {
			return nil, err
		}
		raw := metadata.RawCategory{Name: c.Name, ClassName: c.ClassName, Image: image}
		if raw.Protocols, err = p.store.ConformancesFor(ctx, OwnerCategory, c.ID); err != nil {
			return nil, err
		}
		if raw.Methods, err = p.methods(ctx, OwnerCategory, c.ID); err != nil {
			return nil, err
		}
		if raw.Properties, err = p.properties(ctx, OwnerCategory, c.ID); err != nil {
			return nil, err
		}
		out = append(out, raw)
	}
	return out, nil
}

func (p *Provider) Record(ctx context.Context, name string) (string, bool, error) {
	r, err := p.store.RecordByNameContext(ctx, name)
	if err != nil {
		return "", false, errors.Errorf("record %q: %w", name, err)
	}
	if r == nil {
		return "", false, nil
	}
	return r.Encoding, true, nil
}

func (p *Provider) methods(ctx context.Context, kind string, id int64) ([]metadata.RawMethod, error) {
	rows, err := p.store.MethodsFor(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	var out []metadata.RawMethod
	for _, m := range rows {
		out = append(out, metadata.RawMethod{
			Name:     m.Name,
			Encoding: m.TypeEncoding,
			IsClass:  m.IsClass,
			Optional: m.IsOptional,
		})
	}
	return out, nil
}

func (p *Provider) properties(ctx context.Context, kind string, id int64) ([]metadata.RawProperty, error) {
	rows, err := p.store.PropertiesFor(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	var out []metadata.RawProperty
	for _, prop := range rows {
		out = append(out, metadata.RawProperty{
			Name:       prop.Name,
			Attributes: prop.Attributes,
			IsClass:    prop.IsClass,
			Optional:   prop.IsOptional,
		})
	}
	return out, nil
}
