package hl7

import (
	"encoding/hex"
	"strings"
)

// resolveEscapes applies HL7v2 escape-sequence resolution lazily, i.e. only
// when a field or component's external value is requested. Unknown escape
// sequences pass through unchanged.
func resolveEscapes(raw string, enc EncodingSet) string {
	esc := enc.Escape
	if strings.IndexByte(raw, esc) == -1 {
		return raw
	}

	var sb strings.Builder
	sb.Grow(len(raw))

	i := 0
	for i < len(raw) {
		if raw[i] != esc {
			sb.WriteByte(raw[i])
			i++
			continue
		}

		// Find the closing escape character.
		end := strings.IndexByte(raw[i+1:], esc)
		if end == -1 {
			// Unterminated escape sequence: pass the rest through.
			sb.WriteString(raw[i:])
			break
		}
		end += i + 1

		body := raw[i+1 : end]
		replacement, ok := resolveEscapeBody(body, enc)
		if !ok {
			// Unknown escape sequence: pass through unchanged, including
			// the delimiting escape characters.
			sb.WriteString(raw[i : end+1])
		} else {
			sb.WriteString(replacement)
		}

		i = end + 1
	}

	return sb.String()
}

// resolveEscapeBody resolves the body of a single \X...\ escape sequence
// (X excluded the surrounding escape characters).
func resolveEscapeBody(body string, enc EncodingSet) (string, bool) {
	switch body {
	case "F":
		return string(enc.Field), true
	case "S":
		return string(enc.Component), true
	case "R":
		return string(enc.Repetition), true
	case "E":
		return string(enc.Escape), true
	case "T":
		return string(enc.Subcomponent), true
	case ".br":
		return "\n", true
	}

	if len(body) > 1 && (body[0] == 'X' || body[0] == 'x') {
		decoded, err := hex.DecodeString(body[1:])
		if err != nil {
			return "", false
		}
		return string(decoded), true
	}

	return "", false
}
