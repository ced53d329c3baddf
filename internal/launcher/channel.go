package launcher

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/simsup/simsup/internal/errors"
	"github.com/simsup/simsup/internal/protocol"
)

// DefaultCommandTimeout bounds how long Send waits for a response when the
// caller's context carries no earlier deadline.
const DefaultCommandTimeout = 10 * time.Second

// SocketChannel is a Channel over a stream connection to the simulator.
// It is safe for concurrent use; concurrent Sends are serialized.
type SocketChannel struct {
	mu      sync.Mutex
	conn    net.Conn
	timeout time.Duration
	closed  bool
}

// NewChannel wraps conn in a SocketChannel. A non-positive timeout selects
// DefaultCommandTimeout.
func NewChannel(conn net.Conn, timeout time.Duration) *SocketChannel {
	if timeout <= 0 {
		timeout = DefaultCommandTimeout
	}
	return &SocketChannel{
		conn:    conn,
		timeout: timeout,
	}
}

// Send writes one framed command and blocks for the framed response.
// The exchange runs under the channel lock so the simulator's single-threaded
// control loop never sees interleaved requests.
func (c *SocketChannel) Send(ctx context.Context, kind protocol.Kind) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return errors.Wrap(errors.ErrChannel, "channel is closed")
	}

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := c.conn.SetDeadline(deadline); err != nil {
		return errors.Wrap(errors.ErrChannel, "failed to set channel deadline")
	}

	// Unblock the exchange immediately if the caller cancels.
	stop := context.AfterFunc(ctx, func() {
		_ = c.conn.SetDeadline(time.Now())
	})
	defer stop()

	if err := protocol.WriteFrame(c.conn, protocol.Message{Kind: kind}); err != nil {
		return c.exchangeError(ctx, kind, err)
	}

	resp, err := protocol.ReadFrame(c.conn)
	if err != nil {
		return c.exchangeError(ctx, kind, err)
	}

	switch resp.Kind {
	case protocol.KindAck:
		return nil
	case protocol.KindNack:
		return errors.Wrapf(errors.ErrCommandRejected, "simulator refused %s: %s", kind, resp.Reason)
	default:
		return errors.Wrapf(errors.ErrChannel, "unexpected response %q to %s", resp.Kind, kind)
	}
}

// exchangeError classifies a failed request/response exchange. Cancellation
// wins over timeouts, timeouts over raw I/O errors.
func (c *SocketChannel) exchangeError(ctx context.Context, kind protocol.Kind, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.Canceled) {
			return errors.Wrapf(errors.ErrCancelled, "%s command cancelled", kind)
		}
		return errors.NewTimeoutError(string(kind)+" command", c.timeout).WithCause(errors.ErrTimeout)
	}
	if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
		return errors.NewTimeoutError(string(kind)+" command", c.timeout).WithCause(errors.ErrTimeout)
	}
	return errors.Wrapf(errors.ErrChannel, "%s command failed: %v", kind, err)
}

// Close tears down the underlying connection. Close is idempotent.
func (c *SocketChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	return c.conn.Close()
}
