package tests

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/mcpbench/pkg/domain"
	"github.com/aretw0/mcpbench/pkg/ports"
)

// TransportContractTest is a reusable test suite that verifies if a binding complies with
// ports.Transport. The server behind t must expose an "echo" tool returning its arguments
// unchanged and a "fail" tool whose handler always returns an error.
func TransportContractTest(t *testing.T, tr ports.Transport) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// 1. Ping round-trips with a non-empty token
	t.Run("Ping", func(t *testing.T) {
		start := time.Now()
		pong, err := tr.Ping(ctx)
		if err != nil {
			t.Fatalf("unexpected ping error: %v", err)
		}
		if pong == "" {
			t.Error("expected non-empty ping response")
		}
		if elapsed := time.Since(start); elapsed > 5*time.Second {
			t.Errorf("ping took %v", elapsed)
		}
	})

	// 2. ListTools is idempotent
	t.Run("ListTools", func(t *testing.T) {
		first, err := tr.ListTools(ctx)
		if err != nil {
			t.Fatalf("unexpected error listing tools: %v", err)
		}
		second, err := tr.ListTools(ctx)
		if err != nil {
			t.Fatalf("unexpected error listing tools: %v", err)
		}
		if len(first) != len(second) {
			t.Fatalf("listTools not idempotent: %d vs %d tools", len(first), len(second))
		}
		found := false
		for i := range first {
			if first[i] != second[i] {
				t.Errorf("tool %d differs between calls: %+v vs %+v", i, first[i], second[i])
			}
			if first[i].Name == "echo" {
				found = true
			}
		}
		if !found {
			t.Error("echo missing from tool list")
		}
	})

	// 3. Echo returns its input with the matching callId
	t.Run("CallTool_Echo", func(t *testing.T) {
		call := domain.ToolCall{Name: "echo", Arguments: "hello", CallID: ports.NewCallID()}
		res, err := tr.CallTool(ctx, call)
		if err != nil {
			t.Fatalf("unexpected call error: %v", err)
		}
		if !res.Success || res.Content != "hello" {
			t.Errorf("got %+v, want success with content %q", res, "hello")
		}
		if res.CallID != call.CallID {
			t.Errorf("callId mismatch: got %q, want %q", res.CallID, call.CallID)
		}
	})

	// 4. Unknown tool is a failed result, not a transport fault
	t.Run("CallTool_Unknown", func(t *testing.T) {
		res, err := ports.Call(ctx, tr, "does_not_exist", "{}")
		if err != nil {
			t.Fatalf("unknown tool surfaced as transport error: %v", err)
		}
		if res.Success {
			t.Error("expected failed result for unknown tool")
		}
		if res.Content == "" {
			t.Error("expected descriptive failure message")
		}
	})

	// 5. A failing handler does not break the connection
	t.Run("FailureIsolation", func(t *testing.T) {
		res, err := ports.Call(ctx, tr, "fail", `{"reason":"X"}`)
		if err != nil {
			t.Fatalf("handler failure surfaced as transport error: %v", err)
		}
		if res.Success {
			t.Error("expected failed result from failing handler")
		}
		if _, err := tr.Ping(ctx); err != nil {
			t.Errorf("ping after handler failure: %v", err)
		}
	})

	// 6. Concurrent callers each get their own result
	t.Run("ConcurrentCalls", func(t *testing.T) {
		const n = 16
		var wg sync.WaitGroup
		errs := make(chan string, n)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				call := domain.ToolCall{Name: "echo", Arguments: ports.NewCallID(), CallID: ports.NewCallID()}
				res, err := tr.CallTool(ctx, call)
				if err != nil {
					errs <- err.Error()
					return
				}
				if res.CallID != call.CallID || res.Content != call.Arguments {
					errs <- "response correlated to the wrong call"
				}
			}(i)
		}
		wg.Wait()
		close(errs)
		for msg := range errs {
			t.Error(msg)
		}
	})
}
