package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/danmuck/rconctl/internal/observability"
	"github.com/danmuck/rconctl/internal/protocol/rcon"
	"github.com/danmuck/rconctl/internal/protocol/segment"
	"github.com/rs/zerolog/log"
)

// Conn frames RCON packets over a net.Conn. Reads and writes may run on
// separate goroutines; concurrent readers are not supported.
type Conn struct {
	conn net.Conn
	role rcon.Role
	cfg  Config

	in        segment.Buffer
	stalledAt int64

	wmu sync.Mutex
	out *segment.ArrayWriter
}

// NewConn wraps conn for the given role. A zero ReadTimeout or
// WriteTimeout disables the corresponding deadline.
func NewConn(conn net.Conn, role rcon.Role, cfg Config) *Conn {
	if cfg.MaxPacketLength <= 0 {
		cfg.MaxPacketLength = DefaultMaxPacketLength
	}
	if cfg.ReadChunkSize <= 0 {
		cfg.ReadChunkSize = DefaultReadChunkSize
	}
	out := segment.NewArrayWriter(rcon.MinPacketSize + 64)
	out.Limit = rcon.LengthFieldSize + cfg.MaxPacketLength
	return &Conn{
		conn:      conn,
		role:      role,
		cfg:       cfg,
		stalledAt: -1,
		out:       out,
	}
}

func (c *Conn) Role() rcon.Role { return c.role }

func (c *Conn) RemoteAddr() net.Addr { return c.conn.RemoteAddr() }

func (c *Conn) Close() error { return c.conn.Close() }

// Buffered reports how many received bytes have not been decoded yet.
func (c *Conn) Buffered() int64 { return c.in.Len() }

// ReadMessage returns the next packet from the peer. The decoder is only
// re-run once bytes arrive beyond the point where it last stalled.
func (c *Conn) ReadMessage(ctx context.Context) (rcon.Message, error) {
	defer watchContext(ctx, func() {
		_ = c.conn.SetReadDeadline(time.Unix(1, 0))
	})()

	for {
		if c.in.Len() > 0 && c.in.Len() > c.stalledAt {
			msg, ok, err := c.tryDecode()
			if err != nil {
				return rcon.Message{}, err
			}
			if ok {
				return msg, nil
			}
		}
		if err := c.fill(ctx); err != nil {
			return rcon.Message{}, err
		}
	}
}

func (c *Conn) tryDecode() (rcon.Message, bool, error) {
	seq := c.in.Sequence()
	length, haveLength := rcon.PeekLength(seq)
	if haveLength {
		if err := c.checkLength(length); err != nil {
			return rcon.Message{}, false, err
		}
	}

	msg, consumed, examined, ok := rcon.TryDecode(seq)
	if !ok {
		c.stalledAt = seq.Len()
		if haveLength && seq.Len() >= int64(rcon.LengthFieldSize)+int64(length) {
			return rcon.Message{}, false, c.reject("missing_terminator",
				fmt.Errorf("%w: no body terminator within %d declared bytes", ErrMalformedPacket, length))
		}
		observability.RecordDecodeStall(c.role.String())
		log.Trace().Msgf("session.Conn.tryDecode stall role=%s buffered=%d examined=%d",
			c.role, seq.Len(), seq.Offset(examined))
		return rcon.Message{}, false, nil
	}

	if c.cfg.StrictTerminator {
		if b, _ := rcon.PeekSecondTerminator(seq, consumed); b != 0 {
			return rcon.Message{}, false, c.reject("bad_terminator",
				fmt.Errorf("%w: second terminator is 0x%02x", ErrMalformedPacket, b))
		}
	}

	n := seq.Offset(consumed)
	if err := c.in.Discard(n); err != nil {
		return rcon.Message{}, false, err
	}
	c.stalledAt = -1
	observability.RecordPacketRead(c.role.String(), msg.Type.Name(c.role), int(n))
	log.Debug().Msgf("session.Conn.ReadMessage role=%s id=%d type=%s body_len=%d",
		c.role, msg.ID, msg.Type.Name(c.role), len(msg.Body))
	return msg, true, nil
}

func (c *Conn) checkLength(length int32) error {
	if length < rcon.MinLength {
		return c.reject("malformed_length", fmt.Errorf("%w: %d", ErrMalformedLength, length))
	}
	if int64(length) > int64(c.cfg.MaxPacketLength) {
		return c.reject("packet_too_large",
			fmt.Errorf("%w: %d > %d", ErrPacketTooLarge, length, c.cfg.MaxPacketLength))
	}
	return nil
}

func (c *Conn) reject(reason string, err error) error {
	observability.RecordRejection(c.role.String(), reason)
	log.Warn().Msgf("session.Conn reject role=%s peer=%s reason=%s err=%v",
		c.role, c.conn.RemoteAddr(), reason, err)
	return err
}

func (c *Conn) fill(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := c.conn.SetReadDeadline(deadlineFor(ctx, c.cfg.ReadTimeout)); err != nil {
		return err
	}
	// A cancel that landed between the check above and the new deadline
	// would otherwise be lost.
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := c.in.ReadFrom(c.conn, c.cfg.ReadChunkSize)
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if errors.Is(err, io.EOF) {
		if c.in.Len() > 0 {
			return fmt.Errorf("%w: %w", ErrClosed, io.ErrUnexpectedEOF)
		}
		return fmt.Errorf("%w: %w", ErrClosed, io.EOF)
	}
	return err
}

// WriteMessage encodes msg and writes it in one call.
func (c *Conn) WriteMessage(ctx context.Context, msg rcon.Message) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()

	c.out.Reset()
	if err := rcon.Encode(msg, c.out); err != nil {
		if errors.Is(err, segment.ErrSinkExhausted) {
			return fmt.Errorf("%w: outgoing %d bytes: %w", ErrPacketTooLarge, msg.Size(), err)
		}
		return err
	}

	defer watchContext(ctx, func() {
		_ = c.conn.SetWriteDeadline(time.Unix(1, 0))
	})()
	if err := c.conn.SetWriteDeadline(deadlineFor(ctx, c.cfg.WriteTimeout)); err != nil {
		return err
	}
	if _, err := c.conn.Write(c.out.Bytes()); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return err
	}
	observability.RecordPacketWritten(c.role.String(), writtenName(msg.Type, c.role), c.out.Len())
	return nil
}

// watchContext runs interrupt once ctx is done. The returned stop func
// unregisters it and, if interrupt already started, waits for it to return
// so a stale deadline cannot land on the next call.
func watchContext(ctx context.Context, interrupt func()) (stop func()) {
	done := make(chan struct{})
	unregister := context.AfterFunc(ctx, func() {
		defer close(done)
		interrupt()
	})
	return func() {
		if !unregister() {
			<-done
		}
	}
}

// writtenName names an outgoing packet from the receiver's point of view.
func writtenName(t rcon.PacketType, role rcon.Role) string {
	if role == rcon.RoleClient {
		return t.Name(rcon.RoleServer)
	}
	return t.Name(rcon.RoleClient)
}

// deadlineFor picks the earlier of now+timeout and the context deadline.
// The zero time means no deadline.
func deadlineFor(ctx context.Context, timeout time.Duration) time.Time {
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	if d, ok := ctx.Deadline(); ok && (deadline.IsZero() || d.Before(deadline)) {
		deadline = d
	}
	return deadline
}
