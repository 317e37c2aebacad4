package wire

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aretw0/mcpbench/pkg/adapters/memory"
	"github.com/aretw0/mcpbench/pkg/dispatch"
	"github.com/aretw0/mcpbench/pkg/domain"
	"github.com/aretw0/mcpbench/pkg/observability"
	"github.com/aretw0/mcpbench/pkg/ports"
	"github.com/aretw0/mcpbench/pkg/ports/tests"
	"github.com/aretw0/mcpbench/pkg/registry"
	"github.com/aretw0/mcpbench/pkg/tools"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startServer serves s on a loopback listener and returns its address.
func startServer(t *testing.T, s *Server) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- s.Serve(ctx, ln)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("server did not shut down")
		}
	})
	return ln.Addr().String()
}

func newToolServer(t *testing.T, extra func(reg *registry.Registry), opts ...Option) (*Server, *observability.Metrics) {
	t.Helper()
	reg := registry.New()
	require.NoError(t, tools.RegisterDefaults(reg, tools.Config{SlowEchoDelay: 100 * time.Millisecond}))
	if extra != nil {
		extra(reg)
	}
	reg.Seal()

	metrics := observability.NewMetrics()
	d := dispatch.New(reg, dispatch.WithMetrics(metrics), dispatch.WithHandlerTimeout(2*time.Second))
	return NewServer(append([]Option{WithDispatcher(d)}, opts...)...), metrics
}

func dial(t *testing.T, addr string, opts ...ClientOption) *Client {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c, err := Dial(ctx, addr, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestWire_TransportContract(t *testing.T) {
	srv, _ := newToolServer(t, nil)
	client := dial(t, startServer(t, srv))
	tests.TransportContractTest(t, client)
}

func TestWire_EchoAndUnknownTool(t *testing.T) {
	srv, metrics := newToolServer(t, nil)
	client := dial(t, startServer(t, srv))
	ctx := context.Background()

	res, err := client.CallTool(ctx, domain.ToolCall{Name: "echo", Arguments: "hello", CallID: "call-1"})
	require.NoError(t, err)
	assert.Equal(t, domain.ToolResult{CallID: "call-1", Success: true, Content: "hello"}, res)

	res, err = client.CallTool(ctx, domain.ToolCall{Name: "does_not_exist", Arguments: "{}", CallID: "call-2"})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "unknown tool: does_not_exist", res.Content)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.CallCount(TransportName, "echo", observability.OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ActiveConnections(TransportName)))
}

func TestWire_PipelinedCallsRunConcurrently(t *testing.T) {
	srv, _ := newToolServer(t, nil)
	client := dial(t, startServer(t, srv))

	const n = 10
	start := time.Now()
	var wg sync.WaitGroup
	results := make([]domain.ToolResult, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = ports.Call(context.Background(), client, tools.SlowEcho, "x")
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.True(t, results[i].Success)
	}
	// Ten 100ms handlers served one at a time would take a full second.
	assert.Less(t, time.Since(start), 800*time.Millisecond)
}

func TestWire_PingWhileHandlerHangs(t *testing.T) {
	release := make(chan struct{})
	srv, _ := newToolServer(t, func(reg *registry.Registry) {
		require.NoError(t, reg.RegisterFunc("hang", "", "", func(ctx context.Context, _ string) (string, error) {
			select {
			case <-release:
				return "released", nil
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}))
	})
	client := dial(t, startServer(t, srv))

	done := make(chan domain.ToolResult, 1)
	go func() {
		res, _ := ports.Call(context.Background(), client, "hang", "")
		done <- res
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	pong, err := client.Ping(ctx)
	require.NoError(t, err)
	assert.Equal(t, "pong", pong)

	close(release)
	select {
	case res := <-done:
		assert.Equal(t, "released", res.Content)
	case <-time.After(2 * time.Second):
		t.Fatal("hung call never completed")
	}
}

func TestWire_TimeoutKeepsClientUsable(t *testing.T) {
	srv, _ := newToolServer(t, nil)
	client := dial(t, startServer(t, srv), WithCallTimeout(20*time.Millisecond))

	_, err := ports.Call(context.Background(), client, tools.SlowEcho, "late")
	require.Error(t, err)
	assert.True(t, domain.IsTimeout(err))
	assert.False(t, domain.IsTransport(err))

	client.mu.Lock()
	pending := len(client.pending)
	client.mu.Unlock()
	assert.Zero(t, pending)

	// The late response is discarded and the connection keeps working.
	time.Sleep(150 * time.Millisecond)
	res, err := ports.Call(context.Background(), client, tools.Echo, "again")
	require.NoError(t, err)
	assert.Equal(t, "again", res.Content)
}

func TestWire_ConnectionFailureFailsInFlightCalls(t *testing.T) {
	srv, _ := newToolServer(t, nil)
	addr := startServer(t, srv)
	client := dial(t, addr, WithCallTimeout(5*time.Second))

	errs := make(chan error, 3)
	for i := 0; i < 3; i++ {
		go func() {
			_, err := ports.Call(context.Background(), client, tools.SlowEcho, "x")
			errs <- err
		}()
	}
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, srv.Close())

	for i := 0; i < 3; i++ {
		select {
		case err := <-errs:
			require.Error(t, err)
			assert.True(t, domain.IsTransport(err), "got %v", err)
		case <-time.After(2 * time.Second):
			t.Fatal("in-flight call hung after connection loss")
		}
	}

	_, err := client.Ping(context.Background())
	assert.True(t, domain.IsTransport(err))
	<-client.Done()
}

func TestWire_HandshakeRejectsWrongVersion(t *testing.T) {
	srv, _ := newToolServer(t, nil)
	addr := startServer(t, srv)

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte{'M', 'C', 'P', 'W', SchemaVersion + 1})
	require.NoError(t, err)

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 8)
	_, err = conn.Read(buf)
	assert.Error(t, err, "server should close a connection with a foreign schema version")
}

func TestWire_DialUnreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	_, err = Dial(context.Background(), addr)
	require.Error(t, err)
	assert.True(t, domain.IsTransport(err))
}

func TestWire_ConnectionLimit(t *testing.T) {
	srv, _ := newToolServer(t, nil, WithMaxConnections(1))
	addr := startServer(t, srv)

	first := dial(t, addr)
	_, err := first.Ping(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err = Dial(ctx, addr)
	assert.Error(t, err)
}

func TestWire_OversizedResultKeepsConnection(t *testing.T) {
	srv, _ := newToolServer(t, func(reg *registry.Registry) {
		require.NoError(t, reg.RegisterFunc("huge", "", "", func(ctx context.Context, _ string) (string, error) {
			return strings.Repeat("x", MaxFrameSize+1), nil
		}))
	})
	client := dial(t, startServer(t, srv))
	ctx := context.Background()

	res, err := client.CallTool(ctx, domain.ToolCall{Name: "huge", Arguments: "{}", CallID: "big"})
	require.NoError(t, err)
	assert.Equal(t, domain.ToolResult{CallID: "big", Success: false, Content: domain.ErrResultTooLarge.Error()}, res)

	pong, err := client.Ping(ctx)
	require.NoError(t, err)
	assert.Equal(t, "pong", pong)

	res, err = ports.Call(ctx, client, tools.Echo, "still here")
	require.NoError(t, err)
	assert.Equal(t, "still here", res.Content)
}

func TestWire_OversizedResponseIsErrorFrame(t *testing.T) {
	srv, _ := newToolServer(t, nil)
	srv.Handle(MethodListTools, func(ctx context.Context, _ []byte) ([]byte, error) {
		return make([]byte, MaxFrameSize+1), nil
	})
	client := dial(t, startServer(t, srv))
	ctx := context.Background()

	_, err := client.ListTools(ctx)
	require.Error(t, err)
	var rerr *RemoteError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, domain.ErrResultTooLarge.Error(), rerr.Message)

	_, err = client.Ping(ctx)
	require.NoError(t, err)
}

func TestWire_InFlightLimit(t *testing.T) {
	release := make(chan struct{})
	var started atomic.Int32
	srv, _ := newToolServer(t, func(reg *registry.Registry) {
		require.NoError(t, reg.RegisterFunc("block", "", "", func(ctx context.Context, args string) (string, error) {
			started.Add(1)
			select {
			case <-release:
				return args, nil
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}))
	}, WithMaxInFlight(1))
	client := dial(t, startServer(t, srv), WithCallTimeout(5*time.Second))

	results := make(chan domain.ToolResult, 2)
	call := func(id string) {
		res, err := client.CallTool(context.Background(), domain.ToolCall{Name: "block", Arguments: id, CallID: id})
		assert.NoError(t, err)
		results <- res
	}

	go call("first")
	require.Eventually(t, func() bool { return started.Load() == 1 }, time.Second, 5*time.Millisecond)

	go call("second")
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(1), started.Load(), "second call must wait for the first to finish")

	close(release)
	got := map[string]domain.ToolResult{}
	for i := 0; i < 2; i++ {
		select {
		case res := <-results:
			got[res.CallID] = res
		case <-time.After(2 * time.Second):
			t.Fatal("call did not complete after release")
		}
	}
	assert.Equal(t, int32(2), started.Load())
	for _, id := range []string{"first", "second"} {
		assert.True(t, got[id].Success, id)
		assert.Equal(t, id, got[id].Content)
	}
}

func TestWire_TrackAfterCloseRejects(t *testing.T) {
	srv, _ := newToolServer(t, nil)
	require.NoError(t, srv.Close())

	server, peer := net.Pipe()
	defer peer.Close()
	assert.False(t, srv.track(server, true))

	_ = peer.SetReadDeadline(time.Now().Add(time.Second))
	_, err := peer.Read(make([]byte, 1))
	assert.ErrorIs(t, err, io.EOF)

	srv.mu.Lock()
	assert.Empty(t, srv.conns)
	srv.mu.Unlock()
}

func TestWire_ServerState(t *testing.T) {
	srv, _ := newToolServer(t, nil)
	assert.Equal(t, StateIdle, srv.State())

	addr := startServer(t, srv)
	assert.Eventually(t, func() bool { return srv.State() == StateListening }, time.Second, 5*time.Millisecond)

	client := dial(t, addr)
	_, err := client.Ping(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateServing, srv.State())

	require.NoError(t, srv.Close())
	assert.Equal(t, StateClosed, srv.State())
}

func TestWire_GitHubSurface(t *testing.T) {
	tracker := memory.NewTrackerForRepo("acme/widgets")
	srv := NewServer(WithGitHubService(ports.NewTrackerService(tracker)))
	addr := startServer(t, srv)

	ctx := context.Background()
	gh, err := DialGitHub(ctx, addr)
	require.NoError(t, err)
	defer gh.Close()

	pong, err := gh.Ping(ctx)
	require.NoError(t, err)
	assert.Equal(t, "GitHub MCP Server - memory:acme/widgets", pong)

	created, err := gh.CreateIssue(ctx, domain.CreateIssueRequest{Title: "typed", Body: "binary"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), created.Number)

	got, err := gh.GetIssue(ctx, domain.GetIssueRequest{Number: created.Number})
	require.NoError(t, err)
	assert.Equal(t, created, got)

	list, err := gh.ListIssues(ctx, domain.ListIssuesRequest{})
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = gh.GetIssue(ctx, domain.GetIssueRequest{Number: 404})
	var rerr *RemoteError
	require.True(t, errors.As(err, &rerr))
	assert.Contains(t, rerr.Message, "issue not found")

	// Generic surface is not mounted.
	_, err = gh.ListTools(ctx)
	assert.True(t, domain.IsTransport(err))
}

func TestWire_GitHubAsTransport(t *testing.T) {
	tracker := memory.NewTracker()
	reg := registry.New()
	require.NoError(t, tools.RegisterDefaults(reg, tools.Config{Tracker: tracker}))
	reg.Seal()

	srv := NewServer(
		WithDispatcher(dispatch.New(reg)),
		WithGitHubService(ports.NewTrackerService(tracker)),
	)
	addr := startServer(t, srv)

	ctx := context.Background()
	gh, err := DialGitHub(ctx, addr)
	require.NoError(t, err)
	tr := gh.AsTransport()
	defer tr.Close()

	res, err := ports.Call(ctx, tr, tools.CreateIssue, `{"title":"from adapter"}`)
	require.NoError(t, err)
	require.True(t, res.Success, res.Content)
	var issue domain.Issue
	require.NoError(t, json.Unmarshal([]byte(res.Content), &issue))
	assert.Equal(t, "from adapter", issue.Title)

	res, err = ports.Call(ctx, tr, tools.GetIssue, `{"number":999}`)
	require.NoError(t, err)
	assert.False(t, res.Success)

	res, err = ports.Call(ctx, tr, tools.CreateIssue, `{}`)
	require.NoError(t, err)
	assert.False(t, res.Success)

	// Non-issue tools fall through to the generic surface.
	res, err = ports.Call(ctx, tr, tools.Echo, "hello")
	require.NoError(t, err)
	assert.Equal(t, "hello", res.Content)

	// With both surfaces mounted, ping is the generic one.
	pong, err := tr.Ping(ctx)
	require.NoError(t, err)
	assert.Equal(t, "pong", pong)

	defs, err := tr.ListTools(ctx)
	require.NoError(t, err)
	assert.Len(t, defs, 3)
}
