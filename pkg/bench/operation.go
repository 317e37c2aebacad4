package bench

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aretw0/mcpbench/pkg/domain"
	"github.com/aretw0/mcpbench/pkg/ports"
	"github.com/aretw0/mcpbench/pkg/tools"
)

// Operation is one benchmarked call. Run is invoked once per iteration and must
// perform exactly one round trip.
type Operation struct {
	Name string
	Run  func(ctx context.Context, t ports.Transport, iteration int) (domain.ToolResult, error)
}

// PingOp measures the liveness round trip.
func PingOp() Operation {
	return Operation{
		Name: "ping",
		Run: func(ctx context.Context, t ports.Transport, _ int) (domain.ToolResult, error) {
			token, err := t.Ping(ctx)
			if err != nil {
				return domain.ToolResult{}, err
			}
			if token == "" {
				return domain.NewErrorResult("", "empty ping reply"), nil
			}
			return domain.NewSuccessResult("", token), nil
		},
	}
}

// ListToolsOp measures tool discovery.
func ListToolsOp() Operation {
	return Operation{
		Name: "listTools",
		Run: func(ctx context.Context, t ports.Transport, _ int) (domain.ToolResult, error) {
			defs, err := t.ListTools(ctx)
			if err != nil {
				return domain.ToolResult{}, err
			}
			return domain.NewSuccessResult("", fmt.Sprintf("%d tools", len(defs))), nil
		},
	}
}

// CallOp calls tool with the argument document produced by args for each iteration.
func CallOp(name, tool string, args func(iteration int) string) Operation {
	return Operation{
		Name: name,
		Run: func(ctx context.Context, t ports.Transport, iteration int) (domain.ToolResult, error) {
			return ports.Call(ctx, t, tool, args(iteration))
		},
	}
}

// Static returns an argument function that always yields doc.
func Static(doc string) func(int) string {
	return func(int) string { return doc }
}

// DefaultSuite covers the transport-bound operations: no external service is involved,
// so the measured latency is the binding's own.
func DefaultSuite() []Operation {
	return []Operation{
		PingOp(),
		ListToolsOp(),
		CallOp("echo", tools.Echo, Static(`{"text":"hello"}`)),
		CallOp("slow_echo", tools.SlowEcho, Static(`{"text":"hello"}`)),
	}
}

// IssueSuite exercises the issue tools. Latency includes the tracker backend, which may
// be a remote service. get_issue reads issue #1, created by the first create_issue
// iteration on an empty tracker.
func IssueSuite() []Operation {
	return []Operation{
		CallOp("create_issue", tools.CreateIssue, func(i int) string {
			return mustJSON(domain.CreateIssueRequest{
				Title: fmt.Sprintf("Benchmark Issue %d", i),
				Body:  fmt.Sprintf("This is benchmark issue #%d created for performance testing.", i),
			})
		}),
		CallOp("list_issues", tools.ListIssues, Static(`{"state":"open","limit":30}`)),
		CallOp("get_issue", tools.GetIssue, Static(`{"number":1}`)),
	}
}

// Select returns the operations of suite whose names appear in names, in suite order.
// An empty names returns suite unchanged.
func Select(suite []Operation, names []string) ([]Operation, error) {
	if len(names) == 0 {
		return suite, nil
	}
	known := make(map[string]Operation, len(suite))
	for _, op := range suite {
		known[op.Name] = op
	}
	want := make(map[string]bool, len(names))
	for _, n := range names {
		if _, ok := known[n]; !ok {
			return nil, fmt.Errorf("unknown operation %q", n)
		}
		want[n] = true
	}
	out := make([]Operation, 0, len(want))
	for _, op := range suite {
		if want[op.Name] {
			out = append(out, op)
		}
	}
	return out, nil
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(b)
}
