package hl7

import "strings"

// Parse decomposes raw HL7v2 bytes into a Message. It fails only on
// ErrEmptyMessage, ErrMissingMSH, ErrShortMSH, or ErrMalformedEncoding.
// Every other malformation (unknown segments, excess fields, short
// segments) is retained in the parsed tree and left for the validator.
func Parse(raw []byte) (*Message, error) {
	if len(raw) == 0 {
		return nil, ErrEmptyMessage
	}

	normalized := normalizeLineEndings(raw)
	lines := splitSegments(normalized)
	if len(lines) == 0 {
		return nil, ErrEmptyMessage
	}

	if len(lines[0]) < 3 || string(lines[0][:3]) != "MSH" {
		return nil, ErrMissingMSH
	}

	enc, err := deriveEncoding(lines[0])
	if err != nil {
		return nil, err
	}

	segments := make([]Segment, 0, len(lines))
	for _, line := range lines {
		segments = append(segments, parseSegment(line, enc))
	}

	msg := &Message{
		Raw:      raw,
		Segments: segments,
		Encoding: enc,
	}
	msg.Header = buildHeader(segments[0], enc)

	return msg, nil
}

// normalizeLineEndings rewrites \r\n and bare \n to \r.
func normalizeLineEndings(raw []byte) []byte {
	s := string(raw)
	s = strings.ReplaceAll(s, "\r\n", "\r")
	s = strings.ReplaceAll(s, "\n", "\r")
	return []byte(s)
}

// splitSegments splits on \r and drops empty pieces.
func splitSegments(data []byte) [][]byte {
	parts := strings.Split(string(data), "\r")
	out := make([][]byte, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			continue
		}
		out = append(out, []byte(p))
	}
	return out
}

// parseSegment builds a Segment from one raw segment line.
func parseSegment(line []byte, enc EncodingSet) Segment {
	s := string(line)
	name := s
	if len(s) >= 3 {
		name = s[:3]
	}

	var rawFields []string
	if name == "MSH" {
		// The external field list begins with the field separator itself
		// (MSH-1), then the encoding-characters string (MSH-2), then the
		// ordinary split of the remainder by the field separator. s[8] is
		// the delimiter between MSH-2 and MSH-3, so the remainder to split
		// starts at s[9:], not s[8:].
		rest := ""
		if len(s) > 9 {
			rest = s[9:]
		}
		rawFields = append(rawFields, string(enc.Field), enc.EncodingChars())
		if rest != "" {
			rawFields = append(rawFields, strings.Split(rest, string(enc.Field))...)
		}
	} else {
		rest := ""
		if idx := strings.IndexByte(s, enc.Field); idx != -1 {
			rest = s[idx+1:]
		}
		rawFields = strings.Split(rest, string(enc.Field))
	}

	fields := make([]Field, 0, len(rawFields))
	for _, rf := range rawFields {
		fields = append(fields, parseField(rf, enc))
	}

	return Segment{Name: name, Fields: fields}
}

// parseField builds a Field from one raw field string.
func parseField(raw string, enc EncodingSet) Field {
	value := resolveEscapes(raw, enc)

	if strings.IndexByte(raw, enc.Repetition) == -1 {
		return Field{
			Value:      value,
			Components: parseComponents(raw, enc),
		}
	}

	repStrs := strings.Split(raw, string(enc.Repetition))
	reps := make([]Field, 0, len(repStrs))
	for _, rs := range repStrs {
		reps = append(reps, Field{
			Value:      resolveEscapes(rs, enc),
			Components: parseComponents(rs, enc),
		})
	}

	primary := Field{}
	if len(reps) > 0 {
		primary = reps[0]
	}

	return Field{
		Value:       value,
		Components:  primary.Components,
		Repetitions: reps,
	}
}

// parseComponents splits a raw (non-repetition-split) field value into
// components and subcomponents.
func parseComponents(raw string, enc EncodingSet) []Component {
	compStrs := strings.Split(raw, string(enc.Component))
	comps := make([]Component, 0, len(compStrs))
	for _, cs := range compStrs {
		comps = append(comps, Component{
			Value:         resolveEscapes(cs, enc),
			Subcomponents: parseSubcomponents(cs, enc),
		})
	}
	return comps
}

// parseSubcomponents splits a raw component string into subcomponents.
func parseSubcomponents(raw string, enc EncodingSet) []string {
	if strings.IndexByte(raw, enc.Subcomponent) == -1 {
		return nil
	}
	subStrs := strings.Split(raw, string(enc.Subcomponent))
	subs := make([]string, 0, len(subStrs))
	for _, ss := range subStrs {
		subs = append(subs, resolveEscapes(ss, enc))
	}
	return subs
}

// buildHeader constructs a MessageHeader from MSH fields 3-12.
func buildHeader(msh Segment, enc EncodingSet) MessageHeader {
	h := MessageHeader{
		SendingApplication:   FieldValue(msh, 3),
		SendingFacility:      FieldValue(msh, 4),
		ReceivingApplication: FieldValue(msh, 5),
		ReceivingFacility:    FieldValue(msh, 6),
		Timestamp:            FieldValue(msh, 7),
		Security:             FieldValue(msh, 8),
		MessageType:          FieldValue(msh, 9),
		ControlID:            FieldValue(msh, 10),
		ProcessingID:         FieldValue(msh, 11),
		VersionID:            FieldValue(msh, 12),
	}

	h.MessageCode = ComponentValue(msh, 9, 1)
	h.TriggerEvent = ComponentValue(msh, 9, 2)
	h.MessageStructure = ComponentValue(msh, 9, 3)

	return h
}
