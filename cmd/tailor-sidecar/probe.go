package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AGS-Lab/tailor/internal/config"
	"github.com/AGS-Lab/tailor/internal/interpreter"
	"github.com/AGS-Lab/tailor/internal/subprocess"
)

func (a *app) newProbeCmd() *cobra.Command {
	var candidates []string

	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Print the interpreter workers would run with",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if len(candidates) == 0 {
				candidates = config.DefaultInterpreters()
			}

			path, err := interpreter.NewResolver(&interpreter.Config{
				Path:       a.v.GetString(keyPython),
				Candidates: candidates,
				ProbeArgs:  config.DefaultProbeArgs,
				Env:        subprocess.BuildEnvironment(nil),
				Logger:     a.logger,
			}).Resolve(cmd.Context())
			if err != nil {
				return err
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), path)

			return err
		},
	}

	cmd.Flags().StringSliceVar(&candidates, "candidate", nil, "Interpreter names to probe on PATH, in order")

	return cmd
}
