package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/aretw0/mcpbench/internal/config"
	"github.com/aretw0/mcpbench/internal/logging"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	cfg     *config.Config
	logger  *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "mcpbench",
	Short: "Compare MCP tool-call latency across transport bindings",
	Long: `mcpbench serves one tool registry over two transports and benchmarks them:

- typed-binary: schema-typed, length-prefixed frames multiplexed over one TCP connection
- text-based:   JSON-RPC 2.0 over HTTP

Run "mcpbench serve" in one terminal and "mcpbench bench" in another.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		applyFlags(cmd, loaded)

		level, err := logging.ParseLevel(loaded.LogLevel)
		if err != nil {
			return err
		}
		if strings.EqualFold(loaded.LogFormat, "json") {
			logger = logging.NewJSON(os.Stderr, level)
		} else {
			logger = logging.New(level)
		}
		slog.SetDefault(logger)
		cfg = loaded
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// applyFlags lets explicitly set command-line flags override file and environment values.
func applyFlags(cmd *cobra.Command, c *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("log-level") {
		c.LogLevel, _ = flags.GetString("log-level")
	}
	if flags.Changed("log-format") {
		c.LogFormat, _ = flags.GetString("log-format")
	}
	if flags.Changed("binary-addr") {
		c.BinaryAddr, _ = flags.GetString("binary-addr")
	}
	if flags.Changed("http-addr") {
		c.HTTPAddr, _ = flags.GetString("http-addr")
	}
	if flags.Changed("timeout") {
		c.CallTimeout, _ = flags.GetDuration("timeout")
	}
	if flags.Changed("tracker") {
		c.Tracker, _ = flags.GetString("tracker")
	}
}

func init() {
	// Persistent flags (available to all commands)
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "Config file (default "+config.DefaultFile+" when present)")
	pf.String("log-level", "info", "Log level: debug, info, warn or error")
	pf.String("log-format", "text", "Log format: text or json")
	pf.String("binary-addr", "127.0.0.1:8080", "Address of the typed-binary server")
	pf.String("http-addr", "127.0.0.1:8001", "Address of the text-based (JSON-RPC over HTTP) server")
	pf.Duration("timeout", 0, "Per-call client timeout (default from config, 10s)")
}
