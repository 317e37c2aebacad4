package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aretw0/mcpbench/internal/presentation/tui"
	"github.com/aretw0/mcpbench/pkg/adapters/jsonrpc"
	"github.com/aretw0/mcpbench/pkg/adapters/mcp"
	"github.com/aretw0/mcpbench/pkg/adapters/wire"
	"github.com/aretw0/mcpbench/pkg/domain"
	"github.com/aretw0/mcpbench/pkg/observability"
	"github.com/aretw0/mcpbench/pkg/ports"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the tool registry over the typed-binary and text-based transports",
	Long: `Starts both transport servers over one shared tool registry and issue tracker.

The typed-binary server exposes the generic tool surface (listTools, callTool, ping)
and the GitHub-flavoured surface (createIssue, listIssues, getIssue) on one port.
The text-based server exposes JSON-RPC on "/" and "/rpc", plus /health and /metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		transports, _ := cmd.Flags().GetStringSlice("transport")
		sseAddr, _ := cmd.Flags().GetString("mcp-sse")
		quiet, _ := cmd.Flags().GetBool("quiet")

		kinds, err := parseTransports(transports)
		if err != nil {
			return err
		}

		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		tracker, closeTracker, err := newTracker(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer closeTracker()

		metrics := observability.NewMetrics()
		d, err := newDispatcher(cfg, tracker, metrics, logger)
		if err != nil {
			return err
		}

		if !quiet {
			tui.PrintBanner(cmd.ErrOrStderr())
		}
		logger.Info("Serving tools", "tools", len(d.ListTools()), "tracker", tracker.Name())

		g, ctx := errgroup.WithContext(ctx)
		for _, kind := range kinds {
			switch kind {
			case domain.TypedBinary:
				srv := wire.NewServer(
					wire.WithDispatcher(d),
					wire.WithGitHubService(ports.NewTrackerService(tracker)),
					wire.WithLogger(logger),
					wire.WithMetrics(metrics),
					wire.WithMaxConnections(cfg.MaxConnections),
					wire.WithMaxInFlight(cfg.MaxInFlight),
				)
				g.Go(func() error {
					return srv.ListenAndServe(ctx, cfg.BinaryAddr)
				})
			case domain.TextBased:
				srv := jsonrpc.NewServer(d, jsonrpc.WithLogger(logger), jsonrpc.WithMetrics(metrics))
				g.Go(func() error {
					return srv.ListenAndServe(ctx, cfg.HTTPAddr)
				})
			}
		}
		if sseAddr != "" {
			bridge := mcp.NewServer(d, mcp.WithLogger(logger))
			g.Go(func() error {
				return bridge.ServeSSE(ctx, sseAddr)
			})
		}

		if err := g.Wait(); err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		logger.Info("Servers stopped")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringSlice("transport", []string{"typed-binary", "text-based"}, "Transports to serve")
	serveCmd.Flags().String("tracker", "memory", "Issue tracker backend: memory, redis or github")
	serveCmd.Flags().String("mcp-sse", "", "Also expose the tools to MCP hosts over SSE on this address")
	serveCmd.Flags().BoolP("quiet", "q", false, "Do not print the banner")
}
