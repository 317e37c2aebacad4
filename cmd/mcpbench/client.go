package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/aretw0/mcpbench/pkg/domain"
	"github.com/aretw0/mcpbench/pkg/ports"
	"github.com/spf13/cobra"
)

// withTransport dials the transport named by the --transport flag and runs fn.
func withTransport(cmd *cobra.Command, fn func(ctx context.Context, t ports.Transport) error) error {
	name, _ := cmd.Flags().GetString("transport")
	kind, err := domain.ParseTransportKind(name)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	t, err := dialTransport(ctx, cfg, kind, false)
	if err != nil {
		return err
	}
	defer t.Close()
	return fn(ctx, t)
}

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the tools a running server exposes",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withTransport(cmd, func(ctx context.Context, t ports.Transport) error {
			defs, err := t.ListTools(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, d := range defs {
				fmt.Fprintf(out, "%-22s %s\n", d.Name, d.Description)
			}
			return nil
		})
	},
}

var callCmd = &cobra.Command{
	Use:   "call <tool> [arguments]",
	Short: "Call a tool on a running server",
	Long: `Calls a tool and prints its content. Arguments are a JSON document; "-" reads it
from stdin. A failed result is printed to stderr and exits non-zero.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		arguments := "{}"
		if len(args) == 2 {
			arguments = args[1]
		}
		if arguments == "-" {
			data, err := readAll(cmd)
			if err != nil {
				return err
			}
			arguments = data
		}

		return withTransport(cmd, func(ctx context.Context, t ports.Transport) error {
			res, err := ports.Call(ctx, t, args[0], arguments)
			if err != nil {
				return err
			}
			if !res.Success {
				return fmt.Errorf("tool %s failed: %s", args[0], res.Content)
			}
			fmt.Fprintln(cmd.OutOrStdout(), prettyJSON(res.Content))
			return nil
		})
	},
}

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check that a server answers",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withTransport(cmd, func(ctx context.Context, t ports.Transport) error {
			token, err := t.Ping(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		})
	},
}

func readAll(cmd *cobra.Command) (string, error) {
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("failed to read arguments: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// prettyJSON indents content when it is a JSON document and returns it unchanged otherwise.
func prettyJSON(content string) string {
	var v any
	if err := json.Unmarshal([]byte(content), &v); err != nil {
		return content
	}
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return content
	}
	return string(out)
}

func init() {
	for _, c := range []*cobra.Command{toolsCmd, callCmd, pingCmd} {
		c.Flags().StringP("transport", "t", "typed-binary", "Transport to use: typed-binary or text-based")
		rootCmd.AddCommand(c)
	}
}
