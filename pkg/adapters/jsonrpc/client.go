package jsonrpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/aretw0/mcpbench/pkg/domain"
	"github.com/aretw0/mcpbench/pkg/ports"
)

// DefaultCallTimeout bounds a call whose context has no deadline.
const DefaultCallTimeout = 10 * time.Second

var _ ports.Transport = (*Client)(nil)

// Client calls a JSON-RPC endpoint over HTTP. One request is one round trip;
// connections are kept alive between calls. Safe for concurrent use.
type Client struct {
	endpoint string
	http     *http.Client
	timeout  time.Duration
	nextID   atomic.Int64
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
// Retrying clients are not suitable: a retried call would be timed as one.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.http = hc
	}
}

// WithCallTimeout overrides DefaultCallTimeout.
func WithCallTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = d
	}
}

// NewClient creates a client for the JSON-RPC endpoint at endpoint,
// e.g. "http://127.0.0.1:8001/". A bare host:port is accepted too.
func NewClient(endpoint string, opts ...ClientOption) *Client {
	if !strings.Contains(endpoint, "://") {
		endpoint = "http://" + endpoint + "/"
	}
	c := &Client{
		endpoint: endpoint,
		http: &http.Client{
			Transport: &http.Transport{
				Proxy:               nil,
				MaxIdleConns:        64,
				MaxIdleConnsPerHost: 64,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		timeout: DefaultCallTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Dial creates a client and verifies the endpoint answers ping.
func Dial(ctx context.Context, endpoint string, opts ...ClientOption) (*Client, error) {
	c := NewClient(endpoint, opts...)
	if _, err := c.Ping(ctx); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

// Endpoint returns the JSON-RPC URL.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// ListTools returns the server's tool definitions.
func (c *Client) ListTools(ctx context.Context) ([]domain.ToolDefinition, error) {
	var res ListToolsResult
	if err := c.call(ctx, MethodListTools, nil, &res); err != nil {
		return nil, err
	}
	if res.Tools == nil {
		res.Tools = []domain.ToolDefinition{}
	}
	return res.Tools, nil
}

// CallTool invokes a tool and returns its result.
func (c *Client) CallTool(ctx context.Context, call domain.ToolCall) (domain.ToolResult, error) {
	if call.CallID == "" {
		call.CallID = ports.NewCallID()
	}
	params, err := newCallToolParams(call)
	if err != nil {
		return domain.ToolResult{}, domain.NewTransportError("encode", err)
	}

	var res domain.ToolResult
	if err := c.call(ctx, MethodCallTool, params, &res); err != nil {
		return domain.ToolResult{}, err
	}
	if res.CallID != call.CallID {
		return domain.ToolResult{}, domain.NewTransportError("correlate",
			fmt.Errorf("callId mismatch: sent %q, got %q", call.CallID, res.CallID))
	}
	return res, nil
}

// Ping round-trips the liveness token.
func (c *Client) Ping(ctx context.Context) (string, error) {
	var res PingResult
	if err := c.call(ctx, MethodPing, nil, &res); err != nil {
		return "", err
	}
	if res.Pong == "" {
		return "", domain.NewTransportError("decode", errors.New("empty ping response"))
	}
	return res.Pong, nil
}

// Close releases idle keep-alive connections.
func (c *Client) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

func (c *Client) call(ctx context.Context, method string, params any, result any) error {
	if _, ok := ctx.Deadline(); !ok && c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	id := json.RawMessage(strconv.FormatInt(c.nextID.Add(1), 10))
	req := Request{Version: Version, ID: id, Method: method}
	if params != nil {
		raw, err := json.Marshal(params)
		if err != nil {
			return domain.NewTransportError("encode", err)
		}
		req.Params = raw
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return domain.NewTransportError("encode", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return domain.NewTransportError("request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%s: %w", method, domain.ErrTimeout)
		}
		return domain.NewTransportError("send", err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, MaxResponseBytes+1))
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%s: %w", method, domain.ErrTimeout)
		}
		return domain.NewTransportError("read", err)
	}
	if len(body) > MaxResponseBytes {
		return domain.NewTransportError("read", fmt.Errorf("%s: response exceeds %d bytes", method, MaxResponseBytes))
	}
	if httpResp.StatusCode != http.StatusOK {
		return domain.NewTransportError("status",
			fmt.Errorf("%s: %s", httpResp.Status, strings.TrimSpace(string(body))))
	}

	var resp Response
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.NewTransportError("decode", err)
	}
	if !bytes.Equal(bytes.TrimSpace(resp.ID), id) {
		return domain.NewTransportError("correlate",
			fmt.Errorf("response id %s does not match request id %s", resp.ID, id))
	}
	if resp.Error != nil {
		return domain.NewTransportError("remote", resp.Error)
	}
	if err := json.Unmarshal(resp.Result, result); err != nil {
		return domain.NewTransportError("decode", err)
	}
	return nil
}
