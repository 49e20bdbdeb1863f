package rtview

import (
	"github.com/jward/rtview/internal/emit"
	"github.com/jward/rtview/internal/metadata"
	"github.com/jward/rtview/internal/model"
	"github.com/jward/rtview/internal/store"
)

// Public type aliases for internal types used in the Engine and QueryBuilder
// APIs. External consumers use these names; no conversion is needed.

type Store = store.Store
type Dependents = store.Dependents

type ID = metadata.ID
type Kind = metadata.Kind
type LookupError = metadata.LookupError

type Options = emit.Options
type Token = emit.Token
type Tokens = emit.Tokens
type TokenKind = emit.Kind

type Declaration = model.Declaration

const (
	KindClass    = metadata.KindClass
	KindProtocol = metadata.KindProtocol
)

var (
	ErrNotFound = metadata.ErrNotFound
	ErrTimeout  = metadata.ErrTimeout
)

// Class returns the ID of the named class.
func Class(name string) ID { return metadata.Class(name) }

// Protocol returns the ID of the named protocol.
func Protocol(name string) ID { return metadata.Protocol(name) }

// ParseID accepts "Name", "class:Name", "protocol:Name", "<Name>" and
// "@protocol(Name)".
func ParseID(s string) (ID, error) { return metadata.ParseID(s) }
