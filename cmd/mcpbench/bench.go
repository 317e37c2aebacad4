package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/aretw0/mcpbench/internal/presentation/tui"
	"github.com/aretw0/mcpbench/pkg/bench"
	"github.com/aretw0/mcpbench/pkg/domain"
	"github.com/aretw0/mcpbench/pkg/ports"
	"github.com/spf13/cobra"
)

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Benchmark the running servers and compare the transports",
	Long: `Runs the operation suite against every selected transport and prints mean, min and
max latency per operation together with the speedup of typed-binary over text-based.

Failed calls are counted separately and never enter the latency statistics. A server
that cannot be reached is reported as unavailable and the other one is still measured.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		if flags.Changed("repetitions") {
			cfg.Bench.Repetitions, _ = flags.GetInt("repetitions")
		}
		if flags.Changed("warmup") {
			cfg.Bench.Warmup, _ = flags.GetInt("warmup")
		}
		if flags.Changed("ops") {
			cfg.Bench.Operations, _ = flags.GetStringSlice("ops")
		}
		if flags.Changed("transport") {
			cfg.Bench.Transports, _ = flags.GetStringSlice("transport")
		}
		if flags.Changed("issues") {
			cfg.Bench.Issues, _ = flags.GetBool("issues")
		}
		githubSurface, _ := flags.GetBool("github-surface")
		format, _ := flags.GetString("format")

		kinds, err := parseTransports(cfg.Bench.Transports)
		if err != nil {
			return err
		}

		suite := bench.DefaultSuite()
		if cfg.Bench.Issues || githubSurface {
			suite = append(suite, bench.IssueSuite()...)
		}
		suite, err = bench.Select(suite, cfg.Bench.Operations)
		if err != nil {
			return err
		}

		targets := make([]bench.Target, 0, len(kinds))
		for _, kind := range kinds {
			targets = append(targets, bench.Target{
				Kind: kind,
				Dial: func(ctx context.Context) (ports.Transport, error) {
					return dialTransport(ctx, cfg, kind, githubSurface)
				},
			})
		}

		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		engine := bench.NewEngine(
			bench.WithWarmup(cfg.Bench.Warmup),
			bench.WithRepetitions(cfg.Bench.Repetitions),
			bench.WithLogger(logger),
			bench.WithProgress(func(op string, kind domain.TransportKind) {
				logger.Info("Benchmarking", "operation", op, "transport", kind)
			}),
		)

		report, err := engine.Run(ctx, suite, targets)
		if report != nil {
			if werr := tui.WriteReport(cmd.OutOrStdout(), report, format); werr != nil {
				return errors.Join(err, werr)
			}
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(benchCmd)
	benchCmd.Flags().IntP("repetitions", "n", 10, "Measured iterations per operation and transport")
	benchCmd.Flags().Int("warmup", 3, "Untimed warm-up iterations (at least 1)")
	benchCmd.Flags().StringSlice("ops", nil, "Operations to run (default: the whole suite)")
	benchCmd.Flags().StringSlice("transport", []string{"typed-binary", "text-based"}, "Transports to benchmark")
	benchCmd.Flags().Bool("issues", false, "Include the issue tracker operations")
	benchCmd.Flags().Bool("github-surface", false, "Drive the typed-binary GitHub-flavoured methods instead of generic callTool (implies --issues)")
	benchCmd.Flags().String("format", tui.FormatAuto, "Report format: auto, text or markdown")
}
