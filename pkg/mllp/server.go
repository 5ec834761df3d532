package mllp

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tribal-ehr/hl7engine/pkg/audit"
	"github.com/tribal-ehr/hl7engine/pkg/hl7"
	"github.com/tribal-ehr/hl7engine/pkg/monitoring"
)

// ErrMaxConnectionsReached is logged (not returned) when a connection
// beyond ServerConfig.MaxConnections is accepted and immediately closed.
var ErrMaxConnectionsReached = errors.New("mllp: maximum connections reached")

// ServerConfig configures an MLLP server. Zero values fall back to the
// documented defaults (spec §6).
type ServerConfig struct {
	Host           string        // default "0.0.0.0"
	Port           int           // required
	MaxConnections int           // default 100
	IdleTimeout    time.Duration // default 5 minutes
}

func (c ServerConfig) withDefaults() ServerConfig {
	if c.Host == "" {
		c.Host = "0.0.0.0"
	}
	if c.MaxConnections <= 0 {
		c.MaxConnections = 100
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = 5 * time.Minute
	}
	return c
}

// ReplyFunc writes a framed response back on the connection that produced
// the message it was handed with.
type ReplyFunc func(raw []byte) error

// Callbacks is the small callback interface the MLLP server notifies,
// standing in for the source's event-emitter (message/error/close) per
// spec §9.
type Callbacks struct {
	OnMessage          func(msg *hl7.Message, reply ReplyFunc)
	OnError            func(connID string, err error)
	OnConnectionOpen   func(connID string, remoteAddr string)
	OnConnectionClose  func(connID string)
}

// connState tracks one accepted connection.
type connState struct {
	id           string
	conn         net.Conn
	remoteAddr   string
	connectedAt  time.Time
	messageCount int
	writeMu      sync.Mutex // serializes writes from concurrently-executing handlers
}

// Server is an MLLP TCP server: it accepts connections, reassembles
// frames, parses each into a Message, and notifies Callbacks.OnMessage
// with a reply callback that frames and writes back on the same socket.
type Server struct {
	cfg       ServerConfig
	callbacks Callbacks
	logger    *monitoring.Logger
	audit     audit.Store

	mu       sync.Mutex
	conns    map[string]*connState
	listener net.Listener
	wg       sync.WaitGroup
	closing  bool
}

// NewServer creates a Server. audit may be nil, in which case traffic is
// not archived (audit.NoopStore{}).
func NewServer(cfg ServerConfig, callbacks Callbacks, logger *monitoring.Logger, store audit.Store) *Server {
	if store == nil {
		store = audit.NoopStore{}
	}
	return &Server{
		cfg:       cfg.withDefaults(),
		callbacks: callbacks,
		logger:    logger,
		audit:     store,
		conns:     make(map[string]*connState),
	}
}

// Start binds the listener and begins accepting connections in a
// background goroutine. It returns once the listener is bound.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("mllp: failed to listen on %s: %w", addr, err)
	}

	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	s.wg.Add(1)
	go s.acceptLoop()

	return nil
}

// Addr returns the bound listener address, useful when Port was 0.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
}

// Stop closes the listener and every tracked connection, then waits for
// all connection goroutines to exit.
func (s *Server) Stop() error {
	s.mu.Lock()
	s.closing = true
	ln := s.listener
	conns := make([]*connState, 0, len(s.conns))
	for _, c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	var err error
	if ln != nil {
		err = ln.Close()
	}
	for _, c := range conns {
		c.conn.Close()
	}

	s.wg.Wait()
	return err
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.mu.Lock()
			closing := s.closing
			s.mu.Unlock()
			if closing {
				return
			}
			if s.logger != nil {
				s.logger.Error("mllp: accept error: %v", err)
			}
			return
		}

		s.mu.Lock()
		atCap := len(s.conns) >= s.cfg.MaxConnections
		s.mu.Unlock()

		if atCap {
			// Open questions (spec §9): accept-then-close is acceptable
			// provided the cap is never exceeded.
			if s.logger != nil {
				s.logger.Warn("mllp: rejecting connection from %s: %v", conn.RemoteAddr(), ErrMaxConnectionsReached)
			}
			conn.Close()
			continue
		}

		cs := &connState{
			id:          uuid.New().String(),
			conn:        conn,
			remoteAddr:  conn.RemoteAddr().String(),
			connectedAt: time.Now(),
		}

		s.mu.Lock()
		s.conns[cs.id] = cs
		s.mu.Unlock()

		if s.callbacks.OnConnectionOpen != nil {
			s.callbacks.OnConnectionOpen(cs.id, cs.remoteAddr)
		}

		s.wg.Add(1)
		go s.handleConnection(cs)
	}
}

func (s *Server) handleConnection(cs *connState) {
	defer s.wg.Done()
	defer func() {
		cs.conn.Close()
		s.mu.Lock()
		delete(s.conns, cs.id)
		s.mu.Unlock()
		if s.callbacks.OnConnectionClose != nil {
			s.callbacks.OnConnectionClose(cs.id)
		}
	}()

	decoder := NewDecoder()
	readBuf := make([]byte, 4096)

	for {
		cs.conn.SetReadDeadline(time.Now().Add(s.cfg.IdleTimeout))

		n, err := cs.conn.Read(readBuf)
		if n > 0 {
			frames := decoder.Feed(readBuf[:n])
			for _, frame := range frames {
				s.processFrame(cs, frame)
			}
		}
		if err != nil {
			return
		}
	}
}

func (s *Server) processFrame(cs *connState, frame []byte) {
	s.audit.Record(audit.Entry{Direction: audit.Inbound, Payload: frame})

	msg, err := hl7.Parse(frame)
	if err != nil {
		if s.callbacks.OnError != nil {
			s.callbacks.OnError(cs.id, err)
		}
		return
	}

	s.mu.Lock()
	cs.messageCount++
	s.mu.Unlock()

	if s.callbacks.OnMessage == nil {
		return
	}

	reply := func(raw []byte) error {
		framed := Frame(raw)
		cs.writeMu.Lock()
		defer cs.writeMu.Unlock()
		cs.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		_, werr := cs.conn.Write(framed)
		if werr == nil {
			s.audit.Record(audit.Entry{Direction: audit.Outbound, Payload: raw})
		}
		return werr
	}

	s.callbacks.OnMessage(msg, reply)
}
