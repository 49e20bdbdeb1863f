package metadata

import (
	"strings"

	"gitlab.com/tozd/go/errors"
)

// Kind distinguishes the two kinds of inspectable runtime objects.
type Kind uint8

const (
	KindClass Kind = iota + 1
	KindProtocol
)

func (k Kind) String() string {
	switch k {
	case KindClass:
		return "class"
	case KindProtocol:
		return "protocol"
	}
	return "invalid"
}

// ID identifies a class or protocol by name. It is comparable and used as a
// request key; two IDs are equal iff kind and name are equal.
type ID struct {
	Kind Kind
	Name string
}

func Class(name string) ID    { return ID{Kind: KindClass, Name: name} }
func Protocol(name string) ID { return ID{Kind: KindProtocol, Name: name} }

func (id ID) String() string {
	return id.Kind.String() + " " + id.Name
}

// ParseID parses user input naming a runtime object. Accepted forms are a
// bare class name, "class:Name", "protocol:Name", "@protocol(Name)" and
// "<Name>".
func ParseID(s string) (ID, error) {
	s = strings.TrimSpace(s)
	var id ID
	switch {
	case strings.HasPrefix(s, "class:"):
		id = Class(strings.TrimPrefix(s, "class:"))
	case strings.HasPrefix(s, "protocol:"):
		id = Protocol(strings.TrimPrefix(s, "protocol:"))
	case strings.HasPrefix(s, "@protocol(") && strings.HasSuffix(s, ")"):
		id = Protocol(s[len("@protocol(") : len(s)-1])
	case strings.HasPrefix(s, "<") && strings.HasSuffix(s, ">"):
		id = Protocol(s[1 : len(s)-1])
	default:
		id = Class(s)
	}
	id.Name = strings.TrimSpace(id.Name)
	if id.Name == "" || strings.ContainsAny(id.Name, " \t<>():") {
		return ID{}, errors.Errorf("invalid runtime object name %q", s)
	}
	return id, nil
}
