package hl7

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildACK_SwapsApplicationsAndEchoesControlID(t *testing.T) {
	original, err := Parse([]byte(adtA01))
	require.NoError(t, err)

	ack, err := BuildACK(original, AckAccept, "")
	require.NoError(t, err)

	require.True(t, startsWithACK(ack.Header.MessageType))
	require.Equal(t, original.Header.ReceivingApplication, ack.Header.SendingApplication)
	require.Equal(t, original.Header.ReceivingFacility, ack.Header.SendingFacility)
	require.Equal(t, original.Header.SendingApplication, ack.Header.ReceivingApplication)
	require.Equal(t, original.Header.SendingFacility, ack.Header.ReceivingFacility)

	msa, ok := ack.FindSegment("MSA")
	require.True(t, ok)
	require.Equal(t, "AA", FieldValue(msa, 1))
	require.Equal(t, original.Header.ControlID, FieldValue(msa, 2))
}

func TestBuildACK_ErrorEmitsCodedERRSegment(t *testing.T) {
	original, err := Parse([]byte(adtA01))
	require.NoError(t, err)

	ack, err := BuildACK(original, AckError, "unhandled exception in handler")
	require.NoError(t, err)

	msa, ok := ack.FindSegment("MSA")
	require.True(t, ok)
	require.Equal(t, "AE", FieldValue(msa, 1))
	require.Equal(t, "unhandled exception in handler", FieldValue(msa, 3))

	errSeg, ok := ack.FindSegment("ERR")
	require.True(t, ok)
	require.Equal(t, "207^Application internal error", FieldValue(errSeg, 3))
	require.Equal(t, "E", FieldValue(errSeg, 4))
}

func TestBuildACK_RejectEmitsUnsupportedTypeCode(t *testing.T) {
	original, err := Parse([]byte(adtA01))
	require.NoError(t, err)

	ack, err := BuildACK(original, AckReject, "no handler registered")
	require.NoError(t, err)

	errSeg, ok := ack.FindSegment("ERR")
	require.True(t, ok)
	require.Equal(t, "200^Unsupported message type", FieldValue(errSeg, 3))
}

func TestBuildACK_RequiresControlID(t *testing.T) {
	original, err := Parse([]byte("MSH|^~\\&|A|B|C|D|20240101000000||ADT^A01|||P|2.5.1"))
	require.NoError(t, err)

	_, err = BuildACK(original, AckAccept, "")
	require.ErrorIs(t, err, ErrMissingControlID)
}

func startsWithACK(messageType string) bool {
	return len(messageType) >= 3 && messageType[:3] == "ACK"
}
