package metadata

import "context"

// Provider is the read-only query interface to the reflection source.
// Lookups of absent objects return nil and no error.
type Provider interface {
	Class(ctx context.Context, name string) (*RawClass, error)
	Protocol(ctx context.Context, name string) (*RawProtocol, error)
	// Categories returns the categories attached to className in discovery
	// order.
	Categories(ctx context.Context, className string) ([]RawCategory, error)
}

// RecordProvider is implemented by providers that also carry a catalog of
// struct and union layouts. Record returns ok=false for unknown names.
type RecordProvider interface {
	Record(ctx context.Context, name string) (encoding string, ok bool, err error)
}

// RawClass is a class as the provider reports it. Members keep declaration
// order.
type RawClass struct {
	Name       string
	Superclass string
	Image      string
	Protocols  []string
	Ivars      []RawIvar
	Methods    []RawMethod
	Properties []RawProperty
}

type RawProtocol struct {
	Name       string
	Image      string
	Protocols  []string
	Methods    []RawMethod
	Properties []RawProperty
}

type RawCategory struct {
	Name       string
	ClassName  string
	Image      string
	Protocols  []string
	Methods    []RawMethod
	Properties []RawProperty
}

type RawIvar struct {
	Name     string
	Encoding string
	Offset   int64
}

type RawMethod struct {
	Name     string
	Encoding string
	IsClass  bool
	Optional bool
}

// RawProperty carries the runtime attribute string, e.g.
// `T@"NSString",C,N,V_title`.
type RawProperty struct {
	Name       string
	Attributes string
	IsClass    bool
	Optional   bool
}
