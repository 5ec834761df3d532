package hl7

// AckCode enumerates the three HL7v2 application-acknowledgment codes.
type AckCode string

const (
	AckAccept AckCode = "AA" // Application Accept
	AckError  AckCode = "AE" // Application Error
	AckReject AckCode = "AR" // Application Reject
)

// BuildACK constructs an application ACK for original. It swaps sending and
// receiving application/facility, echoes the original control ID in MSA-2,
// places code in MSA-1, and — when errorMessage is non-empty and code is AE
// or AR — emits an ERR segment carrying a coded reason and the diagnostic
// text.
//
// BuildACK is the ACK factory described independently from the router: the
// router calls this to turn a dispatch outcome into a reply message.
func BuildACK(original *Message, code AckCode, errorMessage string) (*Message, error) {
	if original == nil {
		return nil, ErrNoMSH
	}
	if original.Header.ControlID == "" {
		return nil, ErrMissingControlID
	}

	b := NewBuilder()
	b.CreateMessage("ACK", original.Header.TriggerEvent)
	b.AddMSH(MSHConfig{
		SendingApplication:   original.Header.ReceivingApplication,
		SendingFacility:      original.Header.ReceivingFacility,
		ReceivingApplication: original.Header.SendingApplication,
		ReceivingFacility:    original.Header.SendingFacility,
		ProcessingID:         original.Header.ProcessingID,
		VersionID:            original.Header.VersionID,
	})

	msaIdx := len(b.segments)
	b.AddSegment("MSA")
	b.SetField(msaIdx, 1, string(code))
	b.SetField(msaIdx, 2, original.Header.ControlID)
	if errorMessage != "" {
		b.SetField(msaIdx, 3, errorMessage)
	}

	if errorMessage != "" && (code == AckError || code == AckReject) {
		errCoded := "207^Application internal error"
		if code == AckReject {
			errCoded = "200^Unsupported message type"
		}
		errIdx := len(b.segments)
		b.AddSegment("ERR")
		b.SetField(errIdx, 3, errCoded)
		b.SetField(errIdx, 4, "E")
		b.SetField(errIdx, 7, errorMessage)
		b.SetField(errIdx, 8, errorMessage)
	}

	raw, err := b.Build()
	if err != nil {
		return nil, err
	}
	return Parse(raw)
}
