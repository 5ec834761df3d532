package audit

import "testing"

// NoopStore must satisfy Store and tolerate any input without panicking;
// it is the server's default when no durable archive is configured.
func TestNoopStore_RecordIsSafeWithZeroValueEntry(t *testing.T) {
	var s Store = NoopStore{}
	s.Record(Entry{})
	s.Record(Entry{Direction: Inbound, Payload: []byte("MSH|^~\\&")})
}
