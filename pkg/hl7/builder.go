package hl7

import "strings"

// MSHConfig carries the header fields for Builder.AddMSH. Fields left empty
// fall back to the documented defaults.
type MSHConfig struct {
	SendingApplication   string // default "TRIBAL-EHR"
	SendingFacility      string
	ReceivingApplication string
	ReceivingFacility    string
	Security             string
	MessageControlID     string // default: generated
	ProcessingID         string // default "P"
	VersionID            string // default "2.5.1"
	Timestamp            string // default: now, YYYYMMDDHHMMSS
}

const (
	defaultSendingApplication = "TRIBAL-EHR"
	defaultProcessingID       = "P"
	defaultVersionID          = "2.5.1"
)

// builderSegment accumulates field values for one segment under
// construction. For non-MSH segments, fields[0] is field 1. For MSH,
// fields[0] is field 3 (MSH-1 and MSH-2 are synthesized from the fixed
// prefix and are not stored here).
type builderSegment struct {
	name   string
	fields []string
}

// Builder is a fluent accumulator that produces the raw byte form of an
// HL7v2 message. It is not safe for concurrent use by multiple goroutines.
type Builder struct {
	encoding    EncodingSet
	segments    []builderSegment
	msgType     string
	trigger     string
	idGenerator ControlIDGenerator
	clock       Clock
	err         error
}

// NewBuilder creates a Builder using the default encoding set, control-ID
// generator, and clock.
func NewBuilder() *Builder {
	return &Builder{
		encoding:    DefaultEncoding(),
		idGenerator: DefaultControlIDGenerator(),
		clock:       DefaultClock(),
	}
}

// WithControlIDGenerator overrides the control-ID generator (tests inject a
// fixed generator here instead of a real UUID source).
func (b *Builder) WithControlIDGenerator(g ControlIDGenerator) *Builder {
	b.idGenerator = g
	return b
}

// WithClock overrides the clock used for timestamps.
func (b *Builder) WithClock(c Clock) *Builder {
	b.clock = c
	return b
}

// CreateMessage resets the builder and records the message type/trigger
// pair used by AddMSH's default MSH-9 and by convenience segment builders
// that need to know the message family.
func (b *Builder) CreateMessage(messageType, trigger string) *Builder {
	b.segments = nil
	b.msgType = messageType
	b.trigger = trigger
	return b
}

// AddMSH emits the fixed prefix "MSH|^~\&|" followed by MSH-3 through
// MSH-12, applying documented defaults for any zero-valued config field.
func (b *Builder) AddMSH(cfg MSHConfig) *Builder {
	if cfg.SendingApplication == "" {
		cfg.SendingApplication = defaultSendingApplication
	}
	if cfg.ProcessingID == "" {
		cfg.ProcessingID = defaultProcessingID
	}
	if cfg.VersionID == "" {
		cfg.VersionID = defaultVersionID
	}
	if cfg.MessageControlID == "" {
		cfg.MessageControlID = b.idGenerator.NewControlID()
	}
	if cfg.Timestamp == "" {
		cfg.Timestamp = b.clock.Now().Format("20060102150405")
	}

	messageTypeField := b.msgType + "^" + b.trigger + "^" + b.msgType + "_" + b.trigger

	seg := builderSegment{
		name: "MSH",
		fields: []string{
			cfg.SendingApplication,   // MSH-3
			cfg.SendingFacility,      // MSH-4
			cfg.ReceivingApplication, // MSH-5
			cfg.ReceivingFacility,    // MSH-6
			cfg.Timestamp,            // MSH-7
			cfg.Security,             // MSH-8
			messageTypeField,         // MSH-9
			cfg.MessageControlID,     // MSH-10
			cfg.ProcessingID,         // MSH-11
			cfg.VersionID,            // MSH-12
		},
	}

	b.segments = append([]builderSegment{seg}, b.segments...)
	return b
}

// AddSegment opens a new, empty segment named name and appends it to the
// message under construction.
func (b *Builder) AddSegment(name string) *Builder {
	b.segments = append(b.segments, builderSegment{name: name})
	return b
}

// fieldOffset converts an external 1-based HL7 field index into the
// internal builderSegment.fields index for the given segment name.
func fieldOffset(segmentName string, fieldIndex1Based int) int {
	if segmentName == "MSH" {
		return fieldIndex1Based - 3
	}
	return fieldIndex1Based - 1
}

// SetField fills or extends field fieldIndex1based (1-based, HL7 external
// numbering) of the segment at segmentIndex with value. An out-of-range
// segmentIndex fails immediately by recording ErrSegmentIndexRange, which
// Build then returns; SetField itself is a no-op in that case to keep the
// fluent chain usable.
func (b *Builder) SetField(segmentIndex, fieldIndex1based int, value string) *Builder {
	if segmentIndex < 0 || segmentIndex >= len(b.segments) {
		if b.err == nil {
			b.err = ErrSegmentIndexRange
		}
		return b
	}
	seg := &b.segments[segmentIndex]
	offset := fieldOffset(seg.name, fieldIndex1based)
	if offset < 0 {
		return b
	}
	for len(seg.fields) <= offset {
		seg.fields = append(seg.fields, "")
	}
	seg.fields[offset] = value
	return b
}

// SetComponent splits field fieldIndex1based of the segment at
// segmentIndex on the component separator, replaces component
// componentIndex1based (1-based), and rejoins with the component
// separator. An out-of-range segmentIndex fails the same way SetField does.
func (b *Builder) SetComponent(segmentIndex, fieldIndex1based, componentIndex1based int, value string) *Builder {
	if segmentIndex < 0 || segmentIndex >= len(b.segments) {
		if b.err == nil {
			b.err = ErrSegmentIndexRange
		}
		return b
	}
	seg := &b.segments[segmentIndex]
	offset := fieldOffset(seg.name, fieldIndex1based)
	if offset < 0 {
		return b
	}
	for len(seg.fields) <= offset {
		seg.fields = append(seg.fields, "")
	}

	compSep := string(b.encoding.Component)
	comps := strings.Split(seg.fields[offset], compSep)
	for len(comps) < componentIndex1based {
		comps = append(comps, "")
	}
	comps[componentIndex1based-1] = value
	seg.fields[offset] = strings.Join(comps, compSep)
	return b
}

// Build emits the accumulated segments joined by "\r". Each non-MSH segment
// is "NAME|f1|f2|...". MSH is "MSH|^~\&|f3|f4|...". Trailing empty fields
// are trimmed from each segment line. Build returns ErrSegmentIndexRange if
// any SetField/SetComponent call along the way targeted a segment index
// outside the accumulated segments.
func (b *Builder) Build() ([]byte, error) {
	if b.err != nil {
		return nil, b.err
	}
	lines := make([]string, 0, len(b.segments))
	for _, seg := range b.segments {
		lines = append(lines, b.buildSegmentLine(seg))
	}
	return []byte(strings.Join(lines, "\r")), nil
}

func (b *Builder) buildSegmentLine(seg builderSegment) string {
	fields := trimTrailingEmpty(seg.fields)
	fieldSep := string(b.encoding.Field)

	if seg.name == "MSH" {
		prefix := "MSH" + fieldSep + b.encoding.EncodingChars()
		if len(fields) == 0 {
			return prefix
		}
		return prefix + fieldSep + strings.Join(fields, fieldSep)
	}

	if len(fields) == 0 {
		return seg.name
	}
	return seg.name + fieldSep + strings.Join(fields, fieldSep)
}

func trimTrailingEmpty(fields []string) []string {
	end := len(fields)
	for end > 0 && fields[end-1] == "" {
		end--
	}
	return fields[:end]
}

// composite joins parts with the component separator, per the builder's
// composite-field convention (name, address, coded value, ...). Trailing
// empty parts are trimmed so optional trailing components don't leave a
// trail of bare carets.
func (b *Builder) composite(parts ...string) string {
	end := len(parts)
	for end > 0 && parts[end-1] == "" {
		end--
	}
	return strings.Join(parts[:end], string(b.encoding.Component))
}
