package store

import "sync"

// BatchedStore buffers definition inserts in memory using fake (negative)
// IDs. It implements DataStore so scripts can write to it without knowing
// whether they're hitting SQLite or an in-memory buffer.
//
// Thread safety: the mutex protects fake ID allocation and slice appends.
// Lookups check the buffer first and then pass through to the underlying
// Store, which is safe for concurrent reads.
type BatchedStore struct {
	store *Store // for read passthrough
	mu    sync.Mutex

	Images       []Image
	Classes      []Class
	Protocols    []Protocol
	Categories   []Category
	Conformances []Conformance
	Ivars        []Ivar
	Methods      []Method
	Properties   []Property
	Records      []Record

	nextFakeID int64 // starts at -1, decrements
}

// Compile-time check: *BatchedStore satisfies DataStore.
var _ DataStore = (*BatchedStore)(nil)

// NewBatchedStore creates a BatchedStore backed by the given Store for reads.
func NewBatchedStore(s *Store) *BatchedStore {
	return &BatchedStore{
		store:      s,
		nextFakeID: -1,
	}
}

func (b *BatchedStore) allocFakeID() int64 {
	id := b.nextFakeID
	b.nextFakeID--
	return id
}

// Len returns the number of buffered rows.
func (b *BatchedStore) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.Images) + len(b.Classes) + len(b.Protocols) + len(b.Categories) +
		len(b.Conformances) + len(b.Ivars) + len(b.Methods) + len(b.Properties) + len(b.Records)
}

func (b *BatchedStore) EnsureImage(path string) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, img := range b.Images {
		if img.Path == path {
			return img.ID, nil
		}
	}
	if id, ok, err := b.store.imageIDByPath(path); err != nil || ok {
		return id, err
	}
	fakeID := b.allocFakeID()
	b.Images = append(b.Images, Image{ID: fakeID, Path: path})
	return fakeID, nil
}

func (b *BatchedStore) InsertClass(c *Class) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fakeID := b.allocFakeID()
	c.ID = fakeID
	b.Classes = append(b.Classes, *c)
	return fakeID, nil
}

func (b *BatchedStore) InsertProtocol(p *Protocol) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fakeID := b.allocFakeID()
	p.ID = fakeID
	b.Protocols = append(b.Protocols, *p)
	return fakeID, nil
}

func (b *BatchedStore) InsertCategory(c *Category) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fakeID := b.allocFakeID()
	c.ID = fakeID
	b.Categories = append(b.Categories, *c)
	return fakeID, nil
}

func (b *BatchedStore) InsertConformance(c *Conformance) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fakeID := b.allocFakeID()
	c.ID = fakeID
	b.Conformances = append(b.Conformances, *c)
	return fakeID, nil
}

func (b *BatchedStore) InsertIvar(iv *Ivar) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fakeID := b.allocFakeID()
	iv.ID = fakeID
	b.Ivars = append(b.Ivars, *iv)
	return fakeID, nil
}

func (b *BatchedStore) InsertMethod(m *Method) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fakeID := b.allocFakeID()
	m.ID = fakeID
	b.Methods = append(b.Methods, *m)
	return fakeID, nil
}

func (b *BatchedStore) InsertProperty(p *Property) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fakeID := b.allocFakeID()
	p.ID = fakeID
	b.Properties = append(b.Properties, *p)
	return fakeID, nil
}

// InsertRecord buffers a record unless one with the same name is already
// buffered, matching the first-wins rule of the Store.
func (b *BatchedStore) InsertRecord(r *Record) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, existing := range b.Records {
		if existing.Name == r.Name {
			r.ID = existing.ID
			return existing.ID, nil
		}
	}
	fakeID := b.allocFakeID()
	r.ID = fakeID
	b.Records = append(b.Records, *r)
	return fakeID, nil
}

// ClassByName returns a buffered class first, then falls back to the Store.
func (b *BatchedStore) ClassByName(name string) (*Class, error) {
	b.mu.Lock()
	for i := range b.Classes {
		if b.Classes[i].Name == name {
			c := b.Classes[i]
			b.mu.Unlock()
			return &c, nil
		}
	}
	b.mu.Unlock()
	return b.store.ClassByName(name)
}

func (b *BatchedStore) ProtocolByName(name string) (*Protocol, error) {
	b.mu.Lock()
	for i := range b.Protocols {
		if b.Protocols[i].Name == name {
			p := b.Protocols[i]
			b.mu.Unlock()
			return &p, nil
		}
	}
	b.mu.Unlock()
	return b.store.ProtocolByName(name)
}

func (b *BatchedStore) RecordByName(name string) (*Record, error) {
	b.mu.Lock()
	for i := range b.Records {
		if b.Records[i].Name == name {
			r := b.Records[i]
			b.mu.Unlock()
			return &r, nil
		}
	}
	b.mu.Unlock()
	return b.store.RecordByName(name)
}
