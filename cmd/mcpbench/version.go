package main

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/aretw0/mcpbench"
	"github.com/aretw0/mcpbench/pkg/adapters/jsonrpc"
	"github.com/aretw0/mcpbench/pkg/adapters/wire"
	"github.com/spf13/cobra"
)

var versionVerbose bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the mcpbench version and the protocol versions it speaks",
	Long: `Print the mcpbench version.

With --verbose the Go runtime and both binding versions are printed too.
Benchmark results are only comparable between builds that agree on these.`,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "mcpbench version %s\n", strings.TrimSpace(mcpbench.Version))
		if !versionVerbose {
			return
		}
		fmt.Fprintf(out, "  go:           %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
		fmt.Fprintf(out, "  typed-binary: schema v%d\n", wire.SchemaVersion)
		fmt.Fprintf(out, "  text-based:   JSON-RPC %s\n", jsonrpc.Version)
	},
}

func init() {
	versionCmd.Flags().BoolVarP(&versionVerbose, "verbose", "v", false, "Also print runtime and protocol versions")
	rootCmd.AddCommand(versionCmd)
}
