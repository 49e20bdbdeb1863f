package store

// Owner kinds for conformances, methods and properties.
const (
	OwnerClass    = "class"
	OwnerProtocol = "protocol"
	OwnerCategory = "category"
)

// Record kinds in the record catalog.
const (
	RecordStruct = "struct"
	RecordUnion  = "union"
)

type Image struct {
	ID   int64
	Path string
}

type Class struct {
	ID             int64
	Name           string
	SuperclassName string
	ImageID        *int64
}

type Protocol struct {
	ID      int64
	Name    string
	ImageID *int64
}

type Category struct {
	ID        int64
	Name      string
	ClassName string
	ImageID   *int64
}

type Conformance struct {
	ID           int64
	OwnerKind    string
	OwnerID      int64
	ProtocolName string
}

type Ivar struct {
	ID           int64
	ClassID      int64
	Name         string
	TypeEncoding string
	Offset       int64
}

type Method struct {
	ID           int64
	OwnerKind    string
	OwnerID      int64
	Name         string
	TypeEncoding string
	IsClass      bool
	IsOptional   bool
}

// Property stores the raw runtime attribute string, e.g.
// `T@"NSString",C,N,V_title`.
type Property struct {
	ID         int64
	OwnerKind  string
	OwnerID    int64
	Name       string
	Attributes string
	IsClass    bool
	IsOptional bool
}

// Record is a C struct or union layout in encoding form, keyed by tag name.
type Record struct {
	ID       int64
	Name     string
	Kind     string
	Encoding string
	Source   string
}
