package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Process every topic once and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			application, err := ctx.pipelineApp(runCtx)
			if err != nil {
				return err
			}

			report, err := application.RunOnce(runCtx)
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "run %s: %d persisted, %d fetched, %d fallback, %d skipped\n",
				report.RunID, report.Stats.Persisted, report.Stats.Fetched,
				report.Stats.EnrichmentFailures, report.Stats.SynthesisFailures)
			return nil
		},
	}
}

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the pipeline on the configured interval until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			application, err := ctx.pipelineApp(runCtx)
			if err != nil {
				return err
			}
			return application.Serve(runCtx)
		},
	}
}
