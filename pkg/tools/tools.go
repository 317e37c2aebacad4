package tools

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/mcpbench/pkg/domain"
	"github.com/aretw0/mcpbench/pkg/ports"
	"github.com/aretw0/mcpbench/pkg/registry"
)

// Tool names.
const (
	Echo        = "echo"
	SlowEcho    = "slow_echo"
	Fail        = "fail"
	CreateIssue = "create_github_issue"
	ListIssues  = "list_github_issues"
	GetIssue    = "get_github_issue"
)

// DefaultSlowEchoDelay is the delay applied by slow_echo.
const DefaultSlowEchoDelay = 100 * time.Millisecond

// Config selects which tools RegisterDefaults installs.
type Config struct {
	// Tracker backs the issue tools. Issue tools are skipped when nil.
	Tracker ports.IssueTracker

	// SlowEchoDelay overrides DefaultSlowEchoDelay.
	SlowEchoDelay time.Duration
}

// RegisterDefaults installs the built-in tools on reg.
func RegisterDefaults(reg *registry.Registry, cfg Config) error {
	delay := cfg.SlowEchoDelay
	if delay <= 0 {
		delay = DefaultSlowEchoDelay
	}

	err := errors.Join(
		reg.RegisterFunc(Echo, "Echo back the argument document unchanged", "", echo),
		reg.RegisterFunc(SlowEcho, fmt.Sprintf("Echo back the argument document after %s", delay), "", slowEcho(delay)),
		reg.RegisterFunc(Fail, "Always fail with the given reason", failSchema, fail),
	)
	if err != nil {
		return err
	}

	if cfg.Tracker == nil {
		return nil
	}
	return RegisterIssueTools(reg, cfg.Tracker)
}

func echo(_ context.Context, arguments string) (string, error) {
	return arguments, nil
}

func slowEcho(delay time.Duration) registry.HandlerFunc {
	return func(ctx context.Context, arguments string) (string, error) {
		t := time.NewTimer(delay)
		defer t.Stop()
		select {
		case <-t.C:
			return arguments, nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
}

const failSchema = `{
	"type": "object",
	"properties": {
		"reason": {"type": "string"}
	}
}`

func fail(_ context.Context, arguments string) (string, error) {
	var args struct {
		Reason string `mapstructure:"reason"`
	}
	if err := DecodeArguments(arguments, &args); err != nil {
		return "", err
	}
	if args.Reason == "" {
		args.Reason = "requested failure"
	}
	return "", errors.New(args.Reason)
}

// ToolNames lists the names RegisterDefaults installs, in registration order.
func ToolNames(withIssues bool) []string {
	names := []string{Echo, SlowEcho, Fail}
	if withIssues {
		names = append(names, CreateIssue, ListIssues, GetIssue)
	}
	return names
}

// IssueDefinitions returns the definitions of the issue tools.
func IssueDefinitions() []domain.ToolDefinition {
	return []domain.ToolDefinition{
		{Name: CreateIssue, Description: "Create a new issue in the configured repository", InputSchema: createIssueSchema},
		{Name: ListIssues, Description: "List issues in the configured repository", InputSchema: listIssuesSchema},
		{Name: GetIssue, Description: "Get a specific issue by number", InputSchema: getIssueSchema},
	}
}
