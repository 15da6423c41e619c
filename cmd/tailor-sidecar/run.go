package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/AGS-Lab/tailor"
)

func (a *app) newRunCmd() *cobra.Command {
	var (
		vault     string
		sessionID string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Spawn a worker and keep it running until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return tailor.WithSupervisor(ctx, func(s tailor.Supervisor) error {
				port, err := s.Spawn(ctx, sessionID, vault)
				if err != nil {
					return err
				}

				fmt.Fprintf(cmd.OutOrStdout(), "session %s listening on %d\n", sessionID, port)

				<-ctx.Done()

				a.logger.Info("Signal received, shutting down", "cause", context.Cause(ctx))

				return nil
			}, a.supervisorOptions()...)
		},
	}

	cmd.Flags().StringVar(&vault, "vault", "", "Vault directory passed to the worker")
	cmd.Flags().StringVar(&sessionID, "session", "main", "Session id of the worker")
	_ = cmd.MarkFlagRequired("vault")

	return cmd
}
