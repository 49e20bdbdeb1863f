package encoding

// Signature is a decoded method type encoding such as "v24@0:8@16".
type Signature struct {
	Return Type
	// Args includes the implicit receiver and selector arguments.
	Args []Type
}

// Params returns the explicit arguments, skipping the receiver and selector.
func (s *Signature) Params() []Type {
	if len(s.Args) <= 2 {
		return nil
	}
	return s.Args[2:]
}

// DecodeMethod parses a method type encoding: a return type followed by
// argument types, each optionally followed by its frame offset.
func DecodeMethod(s string) (*Signature, error) {
	p := &parser{data: s}
	ret, err := p.parseType(false)
	if err != nil {
		return nil, err
	}
	if err := p.skipOffset(); err != nil {
		return nil, err
	}

	sig := &Signature{Return: ret}
	for !p.eof() {
		arg, err := p.parseType(false)
		if err != nil {
			return nil, err
		}
		sig.Args = append(sig.Args, arg)
		if err := p.skipOffset(); err != nil {
			return nil, err
		}
	}
	return sig, nil
}
