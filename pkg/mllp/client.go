package mllp

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/tribal-ehr/hl7engine/pkg/hl7"
	"github.com/tribal-ehr/hl7engine/pkg/monitoring"
)

// ErrSendFailed is returned after all retry attempts are exhausted. It
// wraps the last underlying transport error.
var ErrSendFailed = errors.New("mllp: send failed after retries")

// ClientState is the client's connection state machine (spec §4.5):
// Disconnected -> Connecting -> Connected -> (Sending -> Awaiting)* ->
// Disconnected.
type ClientState int

const (
	StateDisconnected ClientState = iota
	StateConnecting
	StateConnected
	StateSending
	StateAwaiting
)

// ClientConfig configures an MLLP client. Zero values fall back to the
// documented defaults (spec §6).
type ClientConfig struct {
	Host            string
	Port            int
	ConnectTimeout  time.Duration // default 10s
	ResponseTimeout time.Duration // default 30s
	MaxRetries      int           // default 3
	BaseBackoff     time.Duration // default 1000ms
}

func (c ClientConfig) withDefaults() ClientConfig {
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 10 * time.Second
	}
	if c.ResponseTimeout <= 0 {
		c.ResponseTimeout = 30 * time.Second
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.BaseBackoff <= 0 {
		c.BaseBackoff = 1000 * time.Millisecond
	}
	return c
}

// Client is an MLLP TCP client: it frames an outbound message, writes it,
// and awaits a single framed response, retrying with exponential backoff on
// connect failure, timeout, or a connection closed mid-frame. The client
// does not deduplicate retried sends; the receiver is expected to treat
// repeated control IDs appropriately (spec §4.5).
type Client struct {
	cfg    ClientConfig
	logger *monitoring.Logger

	mu    sync.Mutex
	conn  net.Conn
	state ClientState

	// sleep is overridden in tests to avoid real backoff delays.
	sleep func(time.Duration)
}

// NewClient creates a Client.
func NewClient(cfg ClientConfig, logger *monitoring.Logger) *Client {
	return &Client{
		cfg:    cfg.withDefaults(),
		logger: logger,
		state:  StateDisconnected,
		sleep:  time.Sleep,
	}
}

// State returns the client's current connection state.
func (c *Client) State() ClientState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Close closes any open connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeLocked()
}

func (c *Client) closeLocked() error {
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	c.state = StateDisconnected
	return err
}

// Send frames msg.Raw, writes it, and awaits a single framed response,
// retrying up to cfg.MaxRetries additional times with exponential backoff
// between attempts. After all attempts fail it returns ErrSendFailed
// wrapping the last underlying error.
func (c *Client) Send(msg *hl7.Message) (*hl7.Message, error) {
	var lastErr error

	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := c.cfg.BaseBackoff * time.Duration(1<<uint(attempt-1))
			if c.logger != nil {
				c.logger.Warn("mllp: retrying send (attempt %d/%d) after %v: %v", attempt, c.cfg.MaxRetries, backoff, lastErr)
			}
			c.sleep(backoff)
		}

		resp, err := c.attemptSend(msg)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		c.mu.Lock()
		c.closeLocked()
		c.mu.Unlock()
	}

	return nil, fmt.Errorf("%w: %v", ErrSendFailed, lastErr)
}

func (c *Client) attemptSend(msg *hl7.Message) (*hl7.Message, error) {
	if err := c.ensureConnected(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	conn := c.conn
	c.state = StateSending
	c.mu.Unlock()

	conn.SetWriteDeadline(time.Now().Add(c.cfg.ResponseTimeout))
	if _, err := conn.Write(Frame(msg.Raw)); err != nil {
		return nil, fmt.Errorf("mllp: write failed: %w", err)
	}

	c.mu.Lock()
	c.state = StateAwaiting
	c.mu.Unlock()

	conn.SetReadDeadline(time.Now().Add(c.cfg.ResponseTimeout))
	resp, err := readOneFrame(conn)
	if err != nil {
		return nil, fmt.Errorf("mllp: awaiting response: %w", err)
	}

	c.mu.Lock()
	c.state = StateConnected
	c.mu.Unlock()

	return hl7.Parse(resp)
}

func (c *Client) ensureConnected() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		return nil
	}

	c.state = StateConnecting
	addr := fmt.Sprintf("%s:%d", c.cfg.Host, c.cfg.Port)
	conn, err := net.DialTimeout("tcp", addr, c.cfg.ConnectTimeout)
	if err != nil {
		c.state = StateDisconnected
		return fmt.Errorf("mllp: connect failed: %w", err)
	}

	c.conn = conn
	c.state = StateConnected
	return nil
}

// readOneFrame reads from conn until a single complete MLLP frame has been
// decoded, using the same Decoder the server uses.
func readOneFrame(conn net.Conn) ([]byte, error) {
	decoder := NewDecoder()
	buf := make([]byte, 4096)

	for {
		n, err := conn.Read(buf)
		if n > 0 {
			frames := decoder.Feed(buf[:n])
			if len(frames) > 0 {
				return frames[0], nil
			}
		}
		if err != nil {
			return nil, err
		}
	}
}
