// Package mllp implements the Minimal Lower Layer Protocol framing used to
// transport HL7v2 messages over TCP: a state-free byte-stream codec plus a
// server and client built on top of it.
package mllp

const (
	// StartBlock is the MLLP start-of-message byte (VT / vertical tab).
	StartBlock = 0x0B

	// EndBlock is the MLLP end-of-message byte (FS / file separator).
	EndBlock = 0x1C

	// CarriageReturn follows EndBlock to terminate a frame.
	CarriageReturn = 0x0D
)

// Frame wraps raw HL7v2 bytes in MLLP framing: StartBlock + data + EndBlock
// + CarriageReturn. There is no length field; decoding is state-free stream
// scanning (see Decoder).
func Frame(data []byte) []byte {
	out := make([]byte, 0, len(data)+3)
	out = append(out, StartBlock)
	out = append(out, data...)
	out = append(out, EndBlock, CarriageReturn)
	return out
}

const (
	stateWaitStart = iota
	stateInBody
)

// Decoder implements the two-state MLLP frame reassembly machine described
// in spec §4.4: WAIT_START discards bytes until a start block; IN_BODY
// accumulates bytes until the EndBlock/CarriageReturn trailer, or restarts
// on a second start block. It carries no length field and is safe to feed
// one byte at a time, a whole read's worth at a time, or a frame split
// arbitrarily across many reads.
//
// Decoder is not safe for concurrent use; each connection owns its own.
type Decoder struct {
	state     int
	body      []byte
	pendingFS bool // saw EndBlock, waiting to see whether CarriageReturn follows
}

// NewDecoder creates a Decoder in its initial WAIT_START state.
func NewDecoder() *Decoder {
	return &Decoder{state: stateWaitStart}
}

// Feed appends data to the decoder's stream position and returns every
// complete frame payload found. Bytes before the first start block, and
// any body discarded by a restart, are silently dropped — framing errors
// never surface as a Go error, matching spec §4.4 and §7 ("there is no
// protocol-level NAK for framing").
func (d *Decoder) Feed(data []byte) [][]byte {
	var frames [][]byte

	for _, b := range data {
		switch d.state {
		case stateWaitStart:
			if b == StartBlock {
				d.state = stateInBody
				d.body = d.body[:0]
				d.pendingFS = false
			}

		case stateInBody:
			if d.pendingFS {
				d.pendingFS = false
				if b == CarriageReturn {
					frame := make([]byte, len(d.body))
					copy(frame, d.body)
					frames = append(frames, frame)
					d.body = d.body[:0]
					d.state = stateWaitStart
					continue
				}
				// Stray EndBlock without a trailing CarriageReturn does not
				// terminate the frame: the EndBlock byte rejoins the body
				// and b is reprocessed under ordinary IN_BODY rules.
				d.body = append(d.body, EndBlock)
			}

			switch b {
			case StartBlock:
				// A second start block before the terminator discards the
				// accumulated body and begins a fresh frame.
				d.body = d.body[:0]
			case EndBlock:
				d.pendingFS = true
			default:
				d.body = append(d.body, b)
			}
		}
	}

	return frames
}

// Reset returns the decoder to its initial state, discarding any partial
// frame. Used when a connection is abandoned mid-frame.
func (d *Decoder) Reset() {
	d.state = stateWaitStart
	d.body = nil
	d.pendingFS = false
}
