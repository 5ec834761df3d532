package mllp

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tribal-ehr/hl7engine/pkg/hl7"
	"github.com/tribal-ehr/hl7engine/pkg/monitoring"
)

func testLogger() *monitoring.Logger {
	return monitoring.NewLogger("mllp-test", monitoring.LogLevelError)
}

func TestServer_RoundTripsMessageAndReply(t *testing.T) {
	var gotControlID string
	done := make(chan struct{}, 1)

	srv := NewServer(ServerConfig{Port: 0, IdleTimeout: 2 * time.Second}, Callbacks{
		OnMessage: func(msg *hl7.Message, reply ReplyFunc) {
			gotControlID = msg.Header.ControlID
			ack, err := hl7.BuildACK(msg, hl7.AckAccept, "")
			require.NoError(t, err)
			require.NoError(t, reply(ack.Raw))
			done <- struct{}{}
		},
	}, testLogger(), nil)

	require.NoError(t, srv.Start())
	defer srv.Stop()

	conn, err := net.DialTimeout("tcp", srv.Addr(), time.Second)
	require.NoError(t, err)
	defer conn.Close()

	raw := []byte("MSH|^~\\&|A|B|C|D|20240115120000||ADT^A01|CTRL-1|P|2.5.1")
	_, err = conn.Write(Frame(raw))
	require.NoError(t, err)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	decoder := NewDecoder()
	buf := make([]byte, 4096)
	var frame []byte
	for len(frame) == 0 {
		n, rerr := conn.Read(buf)
		require.NoError(t, rerr)
		frames := decoder.Feed(buf[:n])
		if len(frames) > 0 {
			frame = frames[0]
		}
	}

	ack, err := hl7.Parse(frame)
	require.NoError(t, err)
	msa, ok := ack.FindSegment("MSA")
	require.True(t, ok)
	require.Equal(t, "AA", hl7.FieldValue(msa, 1))
	require.Equal(t, "CTRL-1", hl7.FieldValue(msa, 2))

	<-done
	require.Equal(t, "CTRL-1", gotControlID)
}

func TestServer_RejectsBeyondMaxConnections(t *testing.T) {
	srv := NewServer(ServerConfig{Port: 0, MaxConnections: 1, IdleTimeout: 2 * time.Second}, Callbacks{}, testLogger(), nil)
	require.NoError(t, srv.Start())
	defer srv.Stop()

	conn1, err := net.DialTimeout("tcp", srv.Addr(), time.Second)
	require.NoError(t, err)
	defer conn1.Close()

	// Give the accept loop a moment to register the first connection.
	time.Sleep(50 * time.Millisecond)

	conn2, err := net.DialTimeout("tcp", srv.Addr(), time.Second)
	require.NoError(t, err)
	defer conn2.Close()

	conn2.SetReadDeadline(time.Now().Add(time.Second))
	buf := make([]byte, 16)
	_, err = conn2.Read(buf)
	require.Error(t, err) // connection closed immediately by the server
}
