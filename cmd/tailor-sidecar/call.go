package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AGS-Lab/tailor"
)

// callSessionID names the throwaway session used by the call command.
const callSessionID = "cli"

func (a *app) newCallCmd() *cobra.Command {
	var (
		vault  string
		method string
		params string
	)

	cmd := &cobra.Command{
		Use:   "call",
		Short: "Spawn a worker, send one call and print the reply",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var decoded any

			if params != "" {
				if err := json.Unmarshal([]byte(params), &decoded); err != nil {
					return fmt.Errorf("invalid --params: %w", err)
				}
			}

			return tailor.WithSupervisor(cmd.Context(), func(s tailor.Supervisor) error {
				return a.callOnce(cmd, s, vault, method, decoded)
			}, a.supervisorOptions()...)
		},
	}

	cmd.Flags().StringVar(&vault, "vault", "", "Vault directory passed to the worker")
	cmd.Flags().StringVar(&method, "method", "", "JSON-RPC method name")
	cmd.Flags().StringVar(&params, "params", "", "JSON-RPC params as a JSON document")
	_ = cmd.MarkFlagRequired("vault")
	_ = cmd.MarkFlagRequired("method")

	return cmd
}

func (a *app) callOnce(cmd *cobra.Command, s tailor.Supervisor, vault, method string, params any) error {
	ctx := cmd.Context()

	if _, err := s.Spawn(ctx, callSessionID, vault); err != nil {
		return err
	}

	defer func() {
		_ = s.Terminate(context.WithoutCancel(ctx), callSessionID)
	}()

	readyCtx, cancel := context.WithTimeout(ctx, readyTimeout)
	defer cancel()

	if err := s.WaitReady(readyCtx, callSessionID); err != nil {
		return fmt.Errorf("worker not ready: %w", err)
	}

	resp, err := s.Call(ctx, callSessionID, method, params)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return fmt.Errorf("encode reply: %w", err)
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))

	return err
}
