package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/aretw0/mcpbench/pkg/adapters/mcp"
	"github.com/aretw0/mcpbench/pkg/observability"
	"github.com/spf13/cobra"
)

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Expose the tool registry to MCP hosts",
	Long: `Serves the same tools as "serve" through the Model Context Protocol, so hosts
such as editors or desktop assistants can use them directly.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		transport, _ := cmd.Flags().GetString("transport")
		addr, _ := cmd.Flags().GetString("addr")

		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		tracker, closeTracker, err := newTracker(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer closeTracker()

		d, err := newDispatcher(cfg, tracker, observability.NewMetrics(), logger)
		if err != nil {
			return err
		}
		srv := mcp.NewServer(d, mcp.WithLogger(logger))

		switch transport {
		case "stdio":
			// Ensure logs don't corrupt JSON-RPC on Stdout
			log.SetOutput(os.Stderr)
			logger.Info("Starting MCP bridge (stdio)")
			return srv.ServeStdio()
		case "sse":
			return srv.ServeSSE(ctx, addr)
		default:
			return fmt.Errorf("unknown transport %q (want stdio or sse)", transport)
		}
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().StringP("transport", "t", "stdio", "MCP transport: stdio or sse")
	mcpCmd.Flags().String("addr", "127.0.0.1:8090", "Listen address for the sse transport")
	mcpCmd.Flags().String("tracker", "memory", "Issue tracker backend: memory, redis or github")
}
