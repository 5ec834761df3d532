package hl7

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const adtA01 = "MSH|^~\\&|TRIBAL|FACILITY|DEST|FAC|20240115120000||ADT^A01|MSG001|P|2.5.1\r" +
	"EVN|A01|20240115120000\r" +
	"PID|1||MRN001^^^TRIBAL^MR||DOE^JOHN^M||19800515|M\r" +
	"PV1|1|I|ICU^101^A"

func TestParse_ExtractsPatientName(t *testing.T) {
	msg, err := Parse([]byte(adtA01))
	require.NoError(t, err)

	require.Len(t, msg.Segments, 4)
	require.Equal(t, "ADT^A01", msg.Header.MessageType)
	require.Equal(t, "ADT", msg.Header.MessageCode)
	require.Equal(t, "A01", msg.Header.TriggerEvent)

	pid, ok := msg.FindSegment("PID")
	require.True(t, ok)
	require.Equal(t, "DOE", ComponentValue(pid, 5, 1))

	pv1, ok := msg.FindSegment("PV1")
	require.True(t, ok)
	require.Equal(t, "101", ComponentValue(pv1, 3, 2))
}

func TestParse_RejectsEmptyInput(t *testing.T) {
	_, err := Parse(nil)
	require.ErrorIs(t, err, ErrEmptyMessage)
}

func TestParse_RejectsNonMSHFirstSegment(t *testing.T) {
	_, err := Parse([]byte("PID|1||MRN001"))
	require.ErrorIs(t, err, ErrMissingMSH)
}

func TestParse_RejectsShortMSH(t *testing.T) {
	_, err := Parse([]byte("MSH|^~"))
	require.Error(t, err)
}

func TestParse_AcceptsLineEndingVariants(t *testing.T) {
	crlf := "MSH|^~\\&|A|B|C|D|20240101000000||ADT^A01|1|P|2.5.1\r\nPID|1||MRN"
	lfOnly := "MSH|^~\\&|A|B|C|D|20240101000000||ADT^A01|1|P|2.5.1\nPID|1||MRN"
	crOnly := "MSH|^~\\&|A|B|C|D|20240101000000||ADT^A01|1|P|2.5.1\rPID|1||MRN"

	for _, raw := range []string{crlf, lfOnly, crOnly} {
		msg, err := Parse([]byte(raw))
		require.NoError(t, err)
		require.Len(t, msg.Segments, 2)
	}
}

func TestParse_TrailingEmptyFields(t *testing.T) {
	msg, err := Parse([]byte("MSH|^~\\&|A|B|C|D|20240101000000||ADT^A01|1|P|2.5.1\rPID|1|||||||||"))
	require.NoError(t, err)
	pid, ok := msg.FindSegment("PID")
	require.True(t, ok)
	require.Equal(t, "1", FieldValue(pid, 1))
}

func TestParse_MissingOptionalSegmentsStillParses(t *testing.T) {
	msg, err := Parse([]byte("MSH|^~\\&|A|B|C|D|20240101000000||ADT^A01|1|P|2.5.1"))
	require.NoError(t, err)
	require.Len(t, msg.Segments, 1)
}
