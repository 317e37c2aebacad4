package wire

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aretw0/mcpbench/internal/logging"
	"github.com/aretw0/mcpbench/pkg/domain"
	"github.com/aretw0/mcpbench/pkg/ports"
)

// DefaultCallTimeout bounds a call whose context has no deadline.
const DefaultCallTimeout = 10 * time.Second

// RemoteError is an error frame returned by the server for a request.
type RemoteError struct {
	Method  Method
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s: %s", e.Method, e.Message)
}

var _ ports.Transport = (*Client)(nil)

// Client is a typed-binary connection. It is safe for concurrent use:
// calls are multiplexed over one connection and correlated by stream id.
type Client struct {
	conn    net.Conn
	timeout time.Duration
	logger  *slog.Logger

	writeMu sync.Mutex
	w       *bufio.Writer

	nextID atomic.Uint64

	mu      sync.Mutex
	pending map[uint64]chan reply
	err     error // set once the connection has failed

	closed    chan struct{}
	closeOnce sync.Once
}

type reply struct {
	frame Frame
	err   error
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithCallTimeout overrides DefaultCallTimeout.
func WithCallTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithClientLogger sets the client logger.
func WithClientLogger(l *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = l
	}
}

// Dial connects to addr and performs the schema handshake.
func Dial(ctx context.Context, addr string, opts ...ClientOption) (*Client, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, domain.NewTransportError("dial", err)
	}
	c, err := NewClient(ctx, conn, opts...)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return c, nil
}

// NewClient performs the handshake on an established connection and starts the reader.
func NewClient(ctx context.Context, conn net.Conn, opts ...ClientOption) (*Client, error) {
	c := &Client{
		conn:    conn,
		timeout: DefaultCallTimeout,
		logger:  logging.NewNop(),
		w:       bufio.NewWriter(conn),
		pending: make(map[uint64]chan reply),
		closed:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	deadline := time.Now().Add(handshakeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetDeadline(deadline)
	if _, err := conn.Write(preamble()); err != nil {
		return nil, domain.NewTransportError("handshake", err)
	}
	r := bufio.NewReader(conn)
	if err := readPreamble(r); err != nil {
		return nil, domain.NewTransportError("handshake", err)
	}
	_ = conn.SetDeadline(time.Time{})

	go c.readLoop(r)
	return c, nil
}

func (c *Client) readLoop(r *bufio.Reader) {
	for {
		// Each frame gets its own buffer: callers hold views into it.
		var buf []byte
		f, err := readFrame(r, &buf)
		if err != nil {
			c.failAll(domain.NewTransportError("read", err))
			return
		}

		c.mu.Lock()
		ch := c.pending[f.StreamID]
		delete(c.pending, f.StreamID)
		c.mu.Unlock()

		if ch == nil {
			// Caller gave up (timeout); drop the late response.
			c.logger.Debug("discarding response for unknown stream", "stream", f.StreamID, "method", f.Method)
			continue
		}
		ch <- reply{frame: f}
	}
}

// failAll marks the connection failed and fails every in-flight call with err.
func (c *Client) failAll(err error) {
	c.mu.Lock()
	if c.err == nil {
		c.err = err
	}
	pending := c.pending
	c.pending = make(map[uint64]chan reply)
	c.mu.Unlock()

	for _, ch := range pending {
		ch <- reply{err: err}
	}
	c.closeOnce.Do(func() {
		close(c.closed)
		c.conn.Close()
	})
}

// roundTrip sends one request and waits for its response body.
// Error frames are returned as *RemoteError.
func (c *Client) roundTrip(ctx context.Context, m Method, body []byte) ([]byte, error) {
	if _, ok := ctx.Deadline(); !ok && c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	id := c.nextID.Add(1)
	ch := make(chan reply, 1)

	c.mu.Lock()
	if c.err != nil {
		err := c.err
		c.mu.Unlock()
		return nil, err
	}
	c.pending[id] = ch
	c.mu.Unlock()

	if err := c.send(ctx, Frame{StreamID: id, Method: m, Kind: KindRequest, Body: body}); err != nil {
		c.forget(id)
		if errors.Is(err, ErrFrameTooLarge) {
			return nil, domain.NewTransportError("write", err)
		}
		terr := domain.NewTransportError("write", err)
		c.failAll(terr)
		return nil, terr
	}

	select {
	case r := <-ch:
		if r.err != nil {
			return nil, r.err
		}
		if r.frame.Kind == KindError {
			return nil, &RemoteError{Method: m, Message: r.frame.Error}
		}
		return r.frame.Body, nil
	case <-ctx.Done():
		c.forget(id)
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%s: %w", m, domain.ErrTimeout)
		}
		return nil, ctx.Err()
	}
}

func (c *Client) send(ctx context.Context, f Frame) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if d, ok := ctx.Deadline(); ok {
		_ = c.conn.SetWriteDeadline(d)
		defer c.conn.SetWriteDeadline(time.Time{})
	}
	return writeFrame(c.w, f)
}

func (c *Client) forget(id uint64) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

// call wraps roundTrip for the generic surface, where every error frame
// indicates a protocol problem rather than a tool failure.
func (c *Client) call(ctx context.Context, m Method, body []byte) ([]byte, error) {
	resp, err := c.roundTrip(ctx, m, body)
	var rerr *RemoteError
	if errors.As(err, &rerr) {
		return nil, domain.NewTransportError("remote", rerr)
	}
	return resp, err
}

// ListTools returns the server's tool definitions.
func (c *Client) ListTools(ctx context.Context) ([]domain.ToolDefinition, error) {
	body, err := c.call(ctx, MethodListTools, nil)
	if err != nil {
		return nil, err
	}
	defs, err := DecodeToolList(body)
	if err != nil {
		return nil, domain.NewTransportError("decode", err)
	}
	return defs, nil
}

// CallTool invokes a tool and returns its result.
func (c *Client) CallTool(ctx context.Context, call domain.ToolCall) (domain.ToolResult, error) {
	if call.CallID == "" {
		call.CallID = ports.NewCallID()
	}
	body, err := c.call(ctx, MethodCallTool, AppendToolCall(nil, call))
	if err != nil {
		return domain.ToolResult{}, err
	}
	view, err := DecodeToolResult(body)
	if err != nil {
		return domain.ToolResult{}, domain.NewTransportError("decode", err)
	}
	if string(view.CallID) != call.CallID {
		return domain.ToolResult{}, domain.NewTransportError("correlate",
			fmt.Errorf("callId mismatch: sent %q, got %q", call.CallID, view.CallID))
	}
	return view.ToolResult(), nil
}

// Ping round-trips the liveness token.
func (c *Client) Ping(ctx context.Context) (string, error) {
	body, err := c.call(ctx, MethodPing, nil)
	if err != nil {
		return "", err
	}
	token, err := DecodePingReply(body)
	if err != nil {
		return "", domain.NewTransportError("decode", err)
	}
	return token, nil
}

// Close closes the connection. In-flight calls fail with a TransportError.
func (c *Client) Close() error {
	c.failAll(domain.NewTransportError("close", net.ErrClosed))
	return nil
}

// Done is closed once the connection has failed or been closed.
func (c *Client) Done() <-chan struct{} {
	return c.closed
}
