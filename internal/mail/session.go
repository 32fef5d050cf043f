// Package mail opens authenticated IMAP sessions and normalizes raw
// messages into canonical mail records.
package mail

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"go.uber.org/zap"
)

// ConnectionError indicates that the mail server could not be reached
// after the retry policy was exhausted. It wraps the last underlying
// protocol or transport error.
type ConnectionError struct {
	Server   string
	Attempts int
	Err      error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf(
		"failed to connect to email server %s after %d attempts: %v",
		e.Server, e.Attempts, e.Err,
	)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// IsConnectionError reports whether err (or any error in its chain) is
// a ConnectionError.
func IsConnectionError(err error) bool {
	var connErr *ConnectionError
	return errors.As(err, &connErr)
}

// RetryPolicy controls the bounded retry loop around session opening.
type RetryPolicy struct {
	// MaxAttempts is the total number of connection attempts.
	MaxAttempts int

	// Delay is the fixed wait between attempts.
	Delay time.Duration
}

// DefaultRetryPolicy returns the standard policy: 3 attempts, 5s apart.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, Delay: 5 * time.Second}
}

// Conn is the subset of IMAP operations the sweep needs from an open
// connection.
type Conn interface {
	Login(username, password string) error
	SelectInbox() error
	SearchUnseen() ([]imap.UID, error)
	Fetch(uid imap.UID) ([]byte, error)
	Logout() error
}

// DialFunc establishes an encrypted transport to the given address.
type DialFunc func(addr string) (Conn, error)

// DialTLS is the default DialFunc, connecting with implicit TLS.
func DialTLS(addr string) (Conn, error) {
	c, err := imapclient.DialTLS(addr, nil)
	if err != nil {
		return nil, fmt.Errorf("connecting to IMAP %s: %w", addr, err)
	}
	return &imapConn{client: c}, nil
}

// Client opens authenticated sessions to one IMAP server.
type Client struct {
	addr     string
	username string
	password string
	policy   RetryPolicy
	dial     DialFunc
	sleep    func(time.Duration)
	log      *zap.Logger
}

// NewClient creates a client for the given server and credentials.
// Servers without an explicit port are dialed on 993.
func NewClient(
	server, username, password string,
	policy RetryPolicy,
	log *zap.Logger,
) *Client {
	addr := server
	if !strings.Contains(addr, ":") {
		addr += ":993"
	}
	return &Client{
		addr:     addr,
		username: username,
		password: password,
		policy:   policy,
		dial:     DialTLS,
		sleep:    time.Sleep,
		log:      log,
	}
}

// Open dials the server and authenticates, retrying transient failures
// per the client's policy. Each attempt is logged. After the final
// attempt fails, a ConnectionError wrapping the last error is returned.
// The caller is responsible for calling Close on the returned session.
func (c *Client) Open(_ context.Context) (*Session, error) {
	var lastErr error

	for attempt := 1; attempt <= c.policy.MaxAttempts; attempt++ {
		conn, err := c.dial(c.addr)
		if err == nil {
			err = conn.Login(c.username, c.password)
			if err == nil {
				c.log.Info("connected to email server",
					zap.String("server", c.addr),
					zap.Int("attempt", attempt),
				)
				return &Session{conn: conn, log: c.log}, nil
			}
			_ = conn.Logout()
		}
		lastErr = err

		c.log.Error("email server connection failed",
			zap.Int("attempt", attempt),
			zap.Error(err),
		)

		if attempt < c.policy.MaxAttempts {
			c.log.Info("retrying connection",
				zap.Int("next_attempt", attempt+1),
				zap.Int("max_attempts", c.policy.MaxAttempts),
			)
			c.sleep(c.policy.Delay)
		}
	}

	return nil, &ConnectionError{
		Server:   c.addr,
		Attempts: c.policy.MaxAttempts,
		Err:      lastErr,
	}
}

// Session is one authenticated IMAP session. It is not safe for
// concurrent use; the sweep drives it sequentially.
type Session struct {
	conn   Conn
	log    *zap.Logger
	closed bool
}

// SelectInbox selects the INBOX mailbox.
func (s *Session) SelectInbox() error {
	return s.conn.SelectInbox()
}

// SearchUnseen returns the UIDs of messages not yet marked seen.
func (s *Session) SearchUnseen() ([]imap.UID, error) {
	return s.conn.SearchUnseen()
}

// Fetch returns the full raw RFC 822 bytes of the given message.
func (s *Session) Fetch(uid imap.UID) ([]byte, error) {
	return s.conn.Fetch(uid)
}

// Close logs out of the server. It is safe to call more than once;
// only the first call performs the logout.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.conn.Logout()
}

// imapConn adapts imapclient.Client to the Conn interface.
type imapConn struct {
	client *imapclient.Client
}

func (c *imapConn) Login(username, password string) error {
	return c.client.Login(username, password).Wait()
}

func (c *imapConn) SelectInbox() error {
	_, err := c.client.Select("INBOX", nil).Wait()
	return err
}

func (c *imapConn) SearchUnseen() ([]imap.UID, error) {
	criteria := &imap.SearchCriteria{
		NotFlag: []imap.Flag{imap.FlagSeen},
	}
	searchData, err := c.client.UIDSearch(criteria, nil).Wait()
	if err != nil {
		return nil, err
	}
	return searchData.AllUIDs(), nil
}

func (c *imapConn) Fetch(uid imap.UID) ([]byte, error) {
	// No peek: fetching the body marks the message seen, so the next
	// sweep's unseen search skips it.
	bodySection := &imap.FetchItemBodySection{}

	fetchOpts := &imap.FetchOptions{
		UID:         true,
		BodySection: []*imap.FetchItemBodySection{bodySection},
	}

	fetchCmd := c.client.Fetch(imap.UIDSetNum(uid), fetchOpts)
	defer fetchCmd.Close()

	msg := fetchCmd.Next()
	if msg == nil {
		return nil, fmt.Errorf("message UID %d not found", uid)
	}

	buf, err := msg.Collect()
	if err != nil {
		return nil, fmt.Errorf("collecting message data: %w", err)
	}

	raw := buf.FindBodySection(bodySection)
	if raw == nil {
		return nil, fmt.Errorf("message UID %d returned no body", uid)
	}

	if err := fetchCmd.Close(); err != nil {
		return nil, fmt.Errorf("fetching message UID %d: %w", uid, err)
	}

	return raw, nil
}

func (c *imapConn) Logout() error {
	return c.client.Logout().Wait()
}
