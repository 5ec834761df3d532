package hl7

import "errors"

// Parse failures. No other input produces a parse failure: unknown
// segments, excess fields, and malformed fields are retained and surfaced
// by the validator instead.
var (
	// ErrEmptyMessage is returned when Parse is given zero-length input.
	ErrEmptyMessage = errors.New("hl7: empty message")

	// ErrMissingMSH is returned when the first three bytes are not "MSH".
	ErrMissingMSH = errors.New("hl7: first segment is not MSH")

	// ErrShortMSH is returned when the MSH prefix is fewer than 8 bytes.
	ErrShortMSH = errors.New("hl7: MSH segment shorter than 8 bytes")

	// ErrMalformedEncoding is returned when the encoding characters cannot
	// be derived from the MSH prefix.
	ErrMalformedEncoding = errors.New("hl7: malformed encoding characters in MSH")
)

// Build/accessor errors.
var (
	// ErrSegmentIndexRange is returned when a builder operation targets a
	// segment index outside the currently accumulated segments.
	ErrSegmentIndexRange = errors.New("hl7: segment index out of range")

	// ErrNoMSH is returned by BuildACK when it is given a nil original
	// message.
	ErrNoMSH = errors.New("hl7: message has no MSH segment")

	// ErrMissingControlID is returned when an ACK cannot be built because
	// the original message has no MSH-10.
	ErrMissingControlID = errors.New("hl7: original message missing MSH-10 control ID")
)
