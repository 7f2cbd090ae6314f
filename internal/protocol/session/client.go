package session

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/danmuck/rconctl/internal/protocol/rcon"
	"github.com/rs/zerolog/log"
)

// Client is an RCON client. Requests are serialized; a Client may be
// shared between goroutines.
type Client struct {
	cfg  ClientConfig
	conn *Conn

	mu     sync.Mutex
	nextID int32
	authed bool
}

// Dial connects to cfg.Address, retrying with backoff up to
// cfg.MaxConnectAttempts times (0 retries until ctx is done).
func Dial(ctx context.Context, cfg ClientConfig) (*Client, error) {
	if strings.TrimSpace(cfg.Address) == "" {
		return nil, ErrAddressRequired
	}
	cfg.Session = cfg.Session.WithDefaults()
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	var attempt int
	for {
		attempt++
		dialer := net.Dialer{Timeout: cfg.Session.ConnectTimeout}
		raw, err := dialer.DialContext(ctx, "tcp", cfg.Address)
		if err == nil {
			log.Debug().Msgf("session.Dial ok attempt=%d addr=%q", attempt, cfg.Address)
			return &Client{
				cfg:    cfg,
				conn:   NewConn(raw, rcon.RoleClient, cfg.Session),
				nextID: 1,
			}, nil
		}
		log.Warn().Msgf("session.Dial attempt=%d addr=%q err=%v", attempt, cfg.Address, err)
		if cfg.MaxConnectAttempts > 0 && attempt >= cfg.MaxConnectAttempts {
			return nil, err
		}
		if err := sleepBackoff(ctx, cfg.Session.Backoff, attempt, rng); err != nil {
			return nil, err
		}
	}
}

func (c *Client) Close() error { return c.conn.Close() }

func (c *Client) RemoteAddr() net.Addr { return c.conn.RemoteAddr() }

func (c *Client) Authenticated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.authed
}

// newID returns the next positive request id, wrapping before overflow.
func (c *Client) newID() int32 {
	id := c.nextID
	if c.nextID == 1<<31-1 {
		c.nextID = 1
	} else {
		c.nextID++
	}
	return id
}

// Authenticate sends the password and waits for the matching auth
// response. Servers that send an empty ResponseValue first are tolerated.
func (c *Client) Authenticate(ctx context.Context, password string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.newID()
	if err := c.conn.WriteMessage(ctx, rcon.Message{ID: id, Type: rcon.Auth, Body: password}); err != nil {
		return err
	}
	for {
		msg, err := c.conn.ReadMessage(ctx)
		if err != nil {
			return err
		}
		switch msg.Type {
		case rcon.ResponseValue:
			continue
		case rcon.AuthResponse:
			if msg.ID == -1 {
				c.authed = false
				return ErrAuthRejected
			}
			if msg.ID != id {
				return fmt.Errorf("%w: auth response id=%d want=%d", ErrUnexpectedPacket, msg.ID, id)
			}
			c.authed = true
			log.Info().Msgf("session.Client.Authenticate ok addr=%s", c.conn.RemoteAddr())
			return nil
		default:
			return fmt.Errorf("%w: %s during auth", ErrUnexpectedPacket, msg.Type.Name(rcon.RoleClient))
		}
	}
}

// Execute runs command and returns the server's response body. With
// MultiPacketResponses the bodies of every response packet are joined.
func (c *Client) Execute(ctx context.Context, command string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.authed {
		return "", ErrNotAuthenticated
	}
	id := c.newID()
	if err := c.conn.WriteMessage(ctx, rcon.Message{ID: id, Type: rcon.ExecCommand, Body: command}); err != nil {
		return "", err
	}
	if !c.cfg.MultiPacketResponses {
		msg, err := c.readResponse(ctx, id)
		if err != nil {
			return "", err
		}
		return msg.Body, nil
	}

	sentinel := c.newID()
	if err := c.conn.WriteMessage(ctx, rcon.Message{ID: sentinel, Type: rcon.ResponseValue}); err != nil {
		return "", err
	}
	// Keep reading to the sentinel even after a bad packet so the stream
	// stays aligned for the next request. Losing auth outranks a stray
	// packet.
	var (
		out      strings.Builder
		firstErr error
	)
	for {
		msg, err := c.conn.ReadMessage(ctx)
		if err != nil {
			return "", err
		}
		if msg.ID == sentinel {
			if firstErr != nil {
				return "", firstErr
			}
			return out.String(), nil
		}
		if err := c.checkResponse(msg, id); err != nil {
			if firstErr == nil || errors.Is(err, ErrNotAuthenticated) {
				firstErr = err
			}
			continue
		}
		out.WriteString(msg.Body)
	}
}

func (c *Client) readResponse(ctx context.Context, id int32) (rcon.Message, error) {
	msg, err := c.conn.ReadMessage(ctx)
	if err != nil {
		return rcon.Message{}, err
	}
	return msg, c.checkResponse(msg, id)
}

func (c *Client) checkResponse(msg rcon.Message, id int32) error {
	if msg.Type == rcon.AuthResponse && msg.ID == -1 {
		c.authed = false
		return ErrNotAuthenticated
	}
	if msg.Type != rcon.ResponseValue || msg.ID != id {
		return fmt.Errorf("%w: %s id=%d want response_value id=%d",
			ErrUnexpectedPacket, msg.Type.Name(rcon.RoleClient), msg.ID, id)
	}
	return nil
}
