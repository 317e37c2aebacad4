package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aretw0/mcpbench/internal/config"
	"github.com/aretw0/mcpbench/pkg/adapters/github"
	"github.com/aretw0/mcpbench/pkg/adapters/jsonrpc"
	"github.com/aretw0/mcpbench/pkg/adapters/memory"
	"github.com/aretw0/mcpbench/pkg/adapters/redis"
	"github.com/aretw0/mcpbench/pkg/adapters/wire"
	"github.com/aretw0/mcpbench/pkg/dispatch"
	"github.com/aretw0/mcpbench/pkg/domain"
	"github.com/aretw0/mcpbench/pkg/observability"
	"github.com/aretw0/mcpbench/pkg/ports"
	"github.com/aretw0/mcpbench/pkg/registry"
	"github.com/aretw0/mcpbench/pkg/tools"
)

// newTracker builds the issue tracker selected by c.Tracker.
// The returned close function is never nil.
func newTracker(ctx context.Context, c *config.Config, log *slog.Logger) (ports.IssueTracker, func(), error) {
	noop := func() {}
	switch c.Tracker {
	case config.TrackerMemory, "":
		if c.GitHub.Repo == "" {
			return memory.NewTracker(), noop, nil
		}
		return memory.NewTrackerForRepo(c.GitHub.Repo), noop, nil

	case config.TrackerRedis:
		t := redis.New(c.Redis.Addr, c.Redis.Password, c.Redis.DB,
			redis.WithPrefix(c.Redis.Prefix),
			redis.WithRepo(c.GitHub.Repo),
		)
		if err := t.Ping(ctx); err != nil {
			t.Close()
			return nil, noop, fmt.Errorf("redis tracker at %s: %w", c.Redis.Addr, err)
		}
		return t, func() { t.Close() }, nil

	case config.TrackerGitHub:
		t, err := github.New(github.Config{
			Token:   c.GitHub.Token,
			Repo:    c.GitHub.Repo,
			BaseURL: c.GitHub.BaseURL,
			Retries: c.GitHub.Retries,
			Logger:  log,
		})
		if err != nil {
			return nil, noop, err
		}
		return t, noop, nil

	default:
		return nil, noop, fmt.Errorf("unknown tracker %q", c.Tracker)
	}
}

// newDispatcher registers the default tools over tracker and seals the registry.
func newDispatcher(c *config.Config, tracker ports.IssueTracker, metrics *observability.Metrics, log *slog.Logger) (*dispatch.Dispatcher, error) {
	reg := registry.New()
	if err := tools.RegisterDefaults(reg, tools.Config{Tracker: tracker}); err != nil {
		return nil, err
	}
	reg.Seal()
	return dispatch.New(reg,
		dispatch.WithHandlerTimeout(c.HandlerTimeout),
		dispatch.WithLogger(log),
		dispatch.WithMetrics(metrics),
	), nil
}

// dialTransport connects a client for kind using the configured addresses.
// With githubSurface set, the typed-binary client speaks the GitHub-flavoured methods.
func dialTransport(ctx context.Context, c *config.Config, kind domain.TransportKind, githubSurface bool) (ports.Transport, error) {
	switch kind {
	case domain.TypedBinary:
		opts := []wire.ClientOption{wire.WithCallTimeout(c.CallTimeout), wire.WithClientLogger(logger)}
		if githubSurface {
			gc, err := wire.DialGitHub(ctx, c.BinaryAddr, opts...)
			if err != nil {
				return nil, err
			}
			return gc.AsTransport(), nil
		}
		client, err := wire.Dial(ctx, c.BinaryAddr, opts...)
		if err != nil {
			return nil, err
		}
		return client, nil

	case domain.TextBased:
		client, err := jsonrpc.Dial(ctx, c.HTTPAddr, jsonrpc.WithCallTimeout(c.CallTimeout))
		if err != nil {
			return nil, err
		}
		return client, nil

	default:
		return nil, fmt.Errorf("unknown transport %q", kind)
	}
}

// parseTransports resolves transport names, keeping order and dropping duplicates.
func parseTransports(names []string) ([]domain.TransportKind, error) {
	seen := make(map[domain.TransportKind]bool, len(names))
	out := make([]domain.TransportKind, 0, len(names))
	for _, n := range names {
		k, err := domain.ParseTransportKind(n)
		if err != nil {
			return nil, err
		}
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no transport selected")
	}
	return out, nil
}
