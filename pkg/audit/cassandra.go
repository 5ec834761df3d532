package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/gocql/gocql"
	"github.com/google/uuid"
)

// CassandraStore is a hash-chained, append-only audit archive backed by
// Cassandra. Each entry stores the SHA-256 of its own payload alongside the
// previous entry's hash, so the chain can later be walked to detect
// tampering — the same
// shape as the teacher's document archive, adapted from generic documents
// to HL7 traffic frames.
type CassandraStore struct {
	session  *gocql.Session
	keyspace string

	mu       sync.Mutex
	prevHash string
}

// NewCassandraStore connects to the given hosts, creates the keyspace and
// table if they don't already exist, and returns a ready Store.
func NewCassandraStore(hosts []string, keyspace string) (*CassandraStore, error) {
	cluster := gocql.NewCluster(hosts...)
	cluster.Consistency = gocql.One
	cluster.Timeout = 10 * time.Second
	cluster.RetryPolicy = &gocql.SimpleRetryPolicy{NumRetries: 3}
	cluster.Keyspace = "system"

	bootstrap, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("audit: failed to connect to cassandra: %w", err)
	}
	defer bootstrap.Close()

	createKeyspace := fmt.Sprintf(
		`CREATE KEYSPACE IF NOT EXISTS %s WITH replication = {'class': 'SimpleStrategy', 'replication_factor': 1}`,
		keyspace,
	)
	if err := bootstrap.Query(createKeyspace).Exec(); err != nil {
		return nil, fmt.Errorf("audit: failed to create keyspace: %w", err)
	}

	cluster.Keyspace = keyspace
	session, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("audit: failed to open keyspace session: %w", err)
	}

	createTable := `CREATE TABLE IF NOT EXISTS hl7_traffic (
		id uuid PRIMARY KEY,
		direction text,
		content_hash text,
		previous_hash text,
		payload_preview text,
		recorded_at timestamp
	)`
	if err := session.Query(createTable).Exec(); err != nil {
		session.Close()
		return nil, fmt.Errorf("audit: failed to create table: %w", err)
	}

	return &CassandraStore{session: session, keyspace: keyspace}, nil
}

// Close releases the underlying Cassandra session.
func (s *CassandraStore) Close() {
	s.session.Close()
}

// Record implements Store. Write failures are swallowed: the audit trail
// is observability, never a dependency of the message-processing path.
func (s *CassandraStore) Record(e Entry) {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}

	hash := sha256.Sum256(e.Payload)
	contentHash := hex.EncodeToString(hash[:])

	s.mu.Lock()
	previous := s.prevHash
	s.prevHash = contentHash
	s.mu.Unlock()

	preview := e.Payload
	if len(preview) > 256 {
		preview = preview[:256]
	}

	id, err := gocql.ParseUUID(e.ID)
	if err != nil {
		id = gocql.TimeUUID()
	}

	_ = s.session.Query(
		`INSERT INTO hl7_traffic (id, direction, content_hash, previous_hash, payload_preview, recorded_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, string(e.Direction), contentHash, previous, string(preview), e.Timestamp,
	).Exec()
}
