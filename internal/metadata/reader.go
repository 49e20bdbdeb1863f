// Package metadata reads class and protocol records from a reflection
// provider and normalizes them into descriptors.
package metadata

import (
	"context"
	"time"

	"gitlab.com/tozd/go/errors"

	"github.com/jward/rtview/internal/encoding"
	"github.com/jward/rtview/internal/logging"
)

// DefaultTimeout bounds a single lookup against the provider.
const DefaultTimeout = 5 * time.Second

// maxRecordDepth bounds how far catalog records referencing other
// body-less records are followed.
const maxRecordDepth = 8

// Descriptor is the normalized raw metadata for one class or protocol.
// Category members follow the primary members, one category at a time in
// discovery order.
type Descriptor struct {
	ID              ID
	Superclass      string
	Image           string
	Protocols       []string
	Ivars           []Member
	ClassMethods    []Member
	InstanceMethods []Member
	Properties      []Member
	Categories      []string
	// Records maps struct and union names referenced without a body to
	// their catalog encodings.
	Records map[string]string
}

// Reader looks up descriptors through a Provider. It never caches: every
// lookup reflects the provider's current state.
type Reader struct {
	provider Provider
	timeout  time.Duration
}

// ReaderOption configures a Reader.
type ReaderOption func(*Reader)

// WithTimeout sets the upper bound for one lookup. Non-positive values
// keep the default.
func WithTimeout(d time.Duration) ReaderOption {
	return func(r *Reader) {
		if d > 0 {
			r.timeout = d
		}
	}
}

func NewReader(p Provider, opts ...ReaderOption) *Reader {
	r := &Reader{provider: p, timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Lookup fetches and normalizes the descriptor for id. It fails with a
// *LookupError when the object does not exist or the provider does not
// answer within the timeout. A provider that ignores cancellation is
// abandoned at the deadline. Cancellation of ctx itself is returned as
// ctx.Err().
func (r *Reader) Lookup(ctx context.Context, id ID) (*Descriptor, error) {
	lctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	type result struct {
		desc *Descriptor
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		desc, err := r.lookup(lctx, id)
		ch <- result{desc, err}
	}()

	var res result
	select {
	case res = <-ch:
	case <-lctx.Done():
		res.err = lctx.Err()
	}
	if res.err == nil {
		return res.desc, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if errors.Is(res.err, context.DeadlineExceeded) {
		logging.Ctx(ctx).Warn("provider lookup timed out", "id", id.String(), "timeout", r.timeout)
		return nil, &LookupError{Kind: Timeout, ID: id}
	}
	return nil, res.err
}

func (r *Reader) lookup(ctx context.Context, id ID) (*Descriptor, error) {
	var (
		desc *Descriptor
		err  error
	)
	switch id.Kind {
	case KindClass:
		desc, err = r.lookupClass(ctx, id)
	case KindProtocol:
		desc, err = r.lookupProtocol(ctx, id)
	default:
		return nil, errors.Errorf("lookup: invalid kind for %q", id.Name)
	}
	if err != nil {
		return nil, err
	}
	if err := r.attachRecords(ctx, desc); err != nil {
		return nil, err
	}
	return desc, nil
}

func (r *Reader) lookupClass(ctx context.Context, id ID) (*Descriptor, error) {
	raw, err := r.provider.Class(ctx, id.Name)
	if err != nil {
		return nil, errors.Errorf("lookup %s: %w", id, err)
	}
	if raw == nil {
		return nil, &LookupError{Kind: NotFound, ID: id}
	}
	cats, err := r.provider.Categories(ctx, id.Name)
	if err != nil {
		return nil, errors.Errorf("lookup %s categories: %w", id, err)
	}

	d := &Descriptor{
		ID:         id,
		Superclass: raw.Superclass,
		Image:      raw.Image,
		Protocols:  append([]string(nil), raw.Protocols...),
	}
	for _, iv := range raw.Ivars {
		d.Ivars = append(d.Ivars, ivarMember(iv))
	}
	d.addMethods(raw.Methods, "")
	d.addProperties(raw.Properties, "")
	for _, cat := range cats {
		d.Categories = append(d.Categories, cat.Name)
		d.Protocols = append(d.Protocols, cat.Protocols...)
		d.addMethods(cat.Methods, cat.Name)
		d.addProperties(cat.Properties, cat.Name)
	}
	return d, nil
}

func (r *Reader) lookupProtocol(ctx context.Context, id ID) (*Descriptor, error) {
	raw, err := r.provider.Protocol(ctx, id.Name)
	if err != nil {
		return nil, errors.Errorf("lookup %s: %w", id, err)
	}
	if raw == nil {
		return nil, &LookupError{Kind: NotFound, ID: id}
	}
	d := &Descriptor{
		ID:        id,
		Image:     raw.Image,
		Protocols: append([]string(nil), raw.Protocols...),
	}
	d.addMethods(raw.Methods, "")
	d.addProperties(raw.Properties, "")
	return d, nil
}

func (d *Descriptor) addMethods(methods []RawMethod, category string) {
	for _, m := range methods {
		member := methodMember(m, category)
		if m.IsClass {
			d.ClassMethods = append(d.ClassMethods, member)
		} else {
			d.InstanceMethods = append(d.InstanceMethods, member)
		}
	}
}

func (d *Descriptor) addProperties(props []RawProperty, category string) {
	for _, p := range props {
		d.Properties = append(d.Properties, propertyMember(p, category))
	}
}

// attachRecords resolves body-less struct and union references against the
// provider's record catalog, when it has one.
func (r *Reader) attachRecords(ctx context.Context, d *Descriptor) error {
	rp, ok := r.provider.(RecordProvider)
	if !ok {
		return nil
	}

	var pending []string
	seen := make(map[string]bool)
	collect := func(t encoding.Type) {
		encoding.Walk(t, func(n encoding.Type) bool {
			var name string
			var bodyless bool
			switch agg := n.(type) {
			case *encoding.Struct:
				name, bodyless = agg.Name, agg.Fields == nil
			case *encoding.Union:
				name, bodyless = agg.Name, agg.Fields == nil
			}
			if bodyless && name != "" && !seen[name] {
				seen[name] = true
				pending = append(pending, name)
			}
			return true
		})
	}

	for _, group := range [][]Member{d.Ivars, d.Properties} {
		for _, m := range group {
			if t, err := encoding.Decode(m.TypeEncoding); err == nil {
				collect(t)
			}
		}
	}
	for _, group := range [][]Member{d.ClassMethods, d.InstanceMethods} {
		for _, m := range group {
			sig, err := encoding.DecodeMethod(m.TypeEncoding)
			if err != nil {
				continue
			}
			collect(sig.Return)
			for _, arg := range sig.Args {
				collect(arg)
			}
		}
	}

	for depth := 0; len(pending) > 0 && depth < maxRecordDepth; depth++ {
		names := pending
		pending = nil
		for _, name := range names {
			enc, ok, err := rp.Record(ctx, name)
			if err != nil {
				return errors.Errorf("lookup record %q: %w", name, err)
			}
			if !ok {
				continue
			}
			if d.Records == nil {
				d.Records = make(map[string]string)
			}
			d.Records[name] = enc
			if t, err := encoding.Decode(enc); err == nil {
				collect(t)
			}
		}
	}
	return nil
}
