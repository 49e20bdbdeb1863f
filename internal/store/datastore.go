package store

// DataStore is the interface for definition-phase data access. Both Store
// (direct SQLite) and BatchedStore (in-memory buffering for parallel
// harvesting) implement this interface.
type DataStore interface {
	// Definition inserts; each returns the assigned ID.
	EnsureImage(path string) (int64, error)
	InsertClass(c *Class) (int64, error)
	InsertProtocol(p *Protocol) (int64, error)
	InsertCategory(c *Category) (int64, error)
	InsertConformance(c *Conformance) (int64, error)
	InsertIvar(iv *Ivar) (int64, error)
	InsertMethod(m *Method) (int64, error)
	InsertProperty(p *Property) (int64, error)
	InsertRecord(r *Record) (int64, error)

	// Lookups needed by scripts to attach members to existing owners.
	ClassByName(name string) (*Class, error)
	ProtocolByName(name string) (*Protocol, error)
	RecordByName(name string) (*Record, error)
}

// Compile-time check: *Store satisfies DataStore.
var _ DataStore = (*Store)(nil)
