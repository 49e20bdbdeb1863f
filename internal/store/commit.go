package store

import (
	"gitlab.com/tozd/go/errors"
)

// CommitBatch inserts all buffered data from a BatchedStore into SQLite
// within a single transaction. Fake (negative) IDs are remapped to real
// IDs, and all references within the batch are rewritten using the
// fakeToReal mapping.
//
// Insert order respects dependencies:
//  1. Images
//  2. Classes, Protocols, Categories (depend on image_id)
//  3. Conformances, Methods, Properties (depend on owner_id)
//  4. Ivars (depend on class_id)
//  5. Records
func (s *Store) CommitBatch(batch *BatchedStore) error {
	batch.mu.Lock()
	defer batch.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return errors.Errorf("commit batch: begin: %w", err)
	}
	defer tx.Rollback()

	fakeToReal := make(map[int64]int64)
	remap := func(id int64) int64 {
		if id < 0 {
			return fakeToReal[id]
		}
		return id
	}
	remapPtr := func(id *int64) *int64 {
		if id == nil || *id >= 0 {
			return id
		}
		realID := fakeToReal[*id]
		return &realID
	}

	// 1. Images
	for _, img := range batch.Images {
		realID, err := ensureImage(tx, img.Path)
		if err != nil {
			return errors.Errorf("commit batch: image %q: %w", img.Path, err)
		}
		fakeToReal[img.ID] = realID
	}

	// 2. Owners
	for _, c := range batch.Classes {
		fakeID := c.ID
		c.ImageID = remapPtr(c.ImageID)
		realID, err := insertClass(tx, &c)
		if err != nil {
			return errors.Errorf("commit batch: %w", err)
		}
		fakeToReal[fakeID] = realID
	}
	for _, p := range batch.Protocols {
		fakeID := p.ID
		p.ImageID = remapPtr(p.ImageID)
		realID, err := insertProtocol(tx, &p)
		if err != nil {
			return errors.Errorf("commit batch: %w", err)
		}
		fakeToReal[fakeID] = realID
	}
	for _, c := range batch.Categories {
		fakeID := c.ID
		c.ImageID = remapPtr(c.ImageID)
		realID, err := insertCategory(tx, &c)
		if err != nil {
			return errors.Errorf("commit batch: %w", err)
		}
		fakeToReal[fakeID] = realID
	}

	// 3. Owner members
	for _, c := range batch.Conformances {
		c.OwnerID = remap(c.OwnerID)
		if _, err := insertConformance(tx, &c); err != nil {
			return errors.Errorf("commit batch: %w", err)
		}
	}
	for _, m := range batch.Methods {
		m.OwnerID = remap(m.OwnerID)
		if _, err := insertMethod(tx, &m); err != nil {
			return errors.Errorf("commit batch: %w", err)
		}
	}
	for _, p := range batch.Properties {
		p.OwnerID = remap(p.OwnerID)
		if _, err := insertProperty(tx, &p); err != nil {
			return errors.Errorf("commit batch: %w", err)
		}
	}

	// 4. Ivars
	for _, iv := range batch.Ivars {
		iv.ClassID = remap(iv.ClassID)
		if _, err := insertIvar(tx, &iv); err != nil {
			return errors.Errorf("commit batch: %w", err)
		}
	}

	// 5. Records
	for _, r := range batch.Records {
		if _, err := insertRecord(tx, &r); err != nil {
			return errors.Errorf("commit batch: %w", err)
		}
	}

	return tx.Commit()
}
