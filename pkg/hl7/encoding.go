package hl7

// EncodingSet holds the five HL7v2 delimiter characters. It is derived from
// the MSH prefix of every message and threaded through parse and build.
type EncodingSet struct {
	Field        byte // MSH-1, default '|'
	Component    byte // first char of MSH-2, default '^'
	Repetition   byte // second char of MSH-2, default '~'
	Escape       byte // third char of MSH-2, default '\'
	Subcomponent byte // fourth char of MSH-2, default '&'
}

// DefaultEncoding returns the standard HL7v2 delimiter set.
func DefaultEncoding() EncodingSet {
	return EncodingSet{
		Field:        '|',
		Component:    '^',
		Repetition:   '~',
		Escape:       '\\',
		Subcomponent: '&',
	}
}

// EncodingChars returns the four-character MSH-2 encoding-characters string.
func (e EncodingSet) EncodingChars() string {
	return string([]byte{e.Component, e.Repetition, e.Escape, e.Subcomponent})
}

// valid reports whether all five delimiters are distinct printable ASCII.
func (e EncodingSet) valid() bool {
	chars := []byte{e.Field, e.Component, e.Repetition, e.Escape, e.Subcomponent}
	seen := make(map[byte]struct{}, len(chars))
	for _, c := range chars {
		if c < 0x21 || c > 0x7E {
			return false
		}
		if _, dup := seen[c]; dup {
			return false
		}
		seen[c] = struct{}{}
	}
	return true
}

// deriveEncoding extracts the EncodingSet from the raw bytes of the MSH
// segment (not including the trailing segment bytes). len(msh) must be at
// least 8, and msh[0:3] must be "MSH" — callers validate this before calling.
func deriveEncoding(msh []byte) (EncodingSet, error) {
	if len(msh) < 8 {
		return EncodingSet{}, ErrShortMSH
	}

	enc := EncodingSet{
		Field:        msh[3],
		Component:    msh[4],
		Repetition:   msh[5],
		Escape:       msh[6],
		Subcomponent: msh[7],
	}

	if !enc.valid() {
		return EncodingSet{}, ErrMalformedEncoding
	}

	return enc, nil
}
