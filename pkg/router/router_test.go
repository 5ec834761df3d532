package router

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tribal-ehr/hl7engine/pkg/hl7"
)

const scenarioADT = "MSH|^~\\&|TRIBAL|FACILITY|DEST|FAC|20240115120000||ADT^A01|MSG001|P|2.5.1\r" +
	"EVN|A01|20240115120000\r" +
	"PID|1||MRN001^^^TRIBAL^MR||DOE^JOHN^M||19800515|M\r" +
	"PV1|1|I|ICU^101^A"

func TestRouter_RoutesRegisteredHandlerToAcceptACK(t *testing.T) {
	reg := NewRegistry(nil)
	reg.Register("ADT", "A01", func(msg *hl7.Message) (Outcome, error) {
		return Outcome{Success: true, AckCode: hl7.AckAccept}, nil
	})
	rt := New(reg, Config{}, nil)

	msg, err := hl7.Parse([]byte(scenarioADT))
	require.NoError(t, err)

	ack := rt.Route(msg)
	require.NotNil(t, ack)
	require.True(t, len(ack.Header.MessageType) >= 3 && ack.Header.MessageType[:3] == "ACK")

	msa, ok := ack.FindSegment("MSA")
	require.True(t, ok)
	require.Equal(t, "AA", hl7.FieldValue(msa, 1))
	require.Equal(t, "MSG001", hl7.FieldValue(msa, 2))
	require.Equal(t, 0, rt.DLQ().Len())
}

func TestRouter_NoHandlerDeadLettersAndReturnsReject(t *testing.T) {
	reg := NewRegistry(nil)
	rt := New(reg, Config{}, nil)

	msg, err := hl7.Parse([]byte(scenarioADT))
	require.NoError(t, err)

	ack := rt.Route(msg)
	require.NotNil(t, ack)
	msa, ok := ack.FindSegment("MSA")
	require.True(t, ok)
	require.Equal(t, "AR", hl7.FieldValue(msa, 1))
	require.Equal(t, 1, rt.DLQ().Len())

	snap := rt.DLQ().Snapshot()
	require.Equal(t, "MSG001", snap[0].ControlID)
	require.Equal(t, ErrNoHandler, snap[0].Reason)
}

func TestRouter_HandlerErrorDeadLettersAndReturnsError(t *testing.T) {
	reg := NewRegistry(nil)
	reg.Register("ADT", "A01", func(msg *hl7.Message) (Outcome, error) {
		return Outcome{}, errors.New("downstream system unavailable")
	})
	rt := New(reg, Config{}, nil)

	msg, err := hl7.Parse([]byte(scenarioADT))
	require.NoError(t, err)

	ack := rt.Route(msg)
	msa, ok := ack.FindSegment("MSA")
	require.True(t, ok)
	require.Equal(t, "AE", hl7.FieldValue(msa, 1))

	snap := rt.DLQ().Snapshot()
	require.Len(t, snap, 1)
	require.Equal(t, ErrHandlerException, snap[0].Reason)
	require.Equal(t, "downstream system unavailable", snap[0].LastError)
}

func TestRouter_HandlerPanicIsRecoveredAndDeadLettered(t *testing.T) {
	reg := NewRegistry(nil)
	reg.Register("ADT", "A01", func(msg *hl7.Message) (Outcome, error) {
		panic("unexpected nil dereference")
	})
	rt := New(reg, Config{}, nil)

	msg, err := hl7.Parse([]byte(scenarioADT))
	require.NoError(t, err)

	ack := rt.Route(msg)
	require.NotNil(t, ack)
	msa, ok := ack.FindSegment("MSA")
	require.True(t, ok)
	require.Equal(t, "AE", hl7.FieldValue(msa, 1))
	require.Equal(t, 1, rt.DLQ().Len())
}

func TestRouter_OutcomeFailureDeadLettersWithOutcomeAckCode(t *testing.T) {
	reg := NewRegistry(nil)
	reg.Register("ADT", "A01", func(msg *hl7.Message) (Outcome, error) {
		return Outcome{Success: false, AckCode: hl7.AckReject, ErrorMessage: "business rule violation"}, nil
	})
	rt := New(reg, Config{}, nil)

	msg, err := hl7.Parse([]byte(scenarioADT))
	require.NoError(t, err)

	ack := rt.Route(msg)
	msa, ok := ack.FindSegment("MSA")
	require.True(t, ok)
	require.Equal(t, "AR", hl7.FieldValue(msa, 1))
	require.Equal(t, 1, rt.DLQ().Len())
}

func TestRouter_RetryReDispatchesDeadLetteredMessage(t *testing.T) {
	reg := NewRegistry(nil)
	attempts := 0
	reg.Register("ADT", "A01", func(msg *hl7.Message) (Outcome, error) {
		attempts++
		if attempts == 1 {
			return Outcome{}, errors.New("transient failure")
		}
		return Outcome{Success: true, AckCode: hl7.AckAccept}, nil
	})
	rt := New(reg, Config{}, nil)

	msg, err := hl7.Parse([]byte(scenarioADT))
	require.NoError(t, err)

	rt.Route(msg)
	require.Equal(t, 1, rt.DLQ().Len())

	ack, found := rt.Retry("MSG001")
	require.True(t, found)
	require.NotNil(t, ack)

	msa, ok := ack.FindSegment("MSA")
	require.True(t, ok)
	require.Equal(t, "AA", hl7.FieldValue(msa, 1))
	require.Equal(t, 0, rt.DLQ().Len())
}

func TestRouter_RetryUnknownControlIDReturnsFalse(t *testing.T) {
	rt := New(NewRegistry(nil), Config{}, nil)
	_, found := rt.Retry("NOT-QUEUED")
	require.False(t, found)
}
