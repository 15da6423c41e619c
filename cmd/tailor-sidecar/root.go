package main

import (
	stderrors "errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/AGS-Lab/tailor"
)

// Viper keys. Each maps to a persistent flag and to TAILOR_<KEY> in the environment.
const (
	keyConfig      = "config"
	keyLogLevel    = "log-level"
	keyProjectRoot = "project-root"
	keyPython      = "python"
	keyCallTimeout = "call-timeout"
	keyPortBase    = "port-base"
	keyPortCeiling = "port-ceiling"
)

const envPrefix = "TAILOR"

// app carries state shared by the subcommands of one invocation.
type app struct {
	v      *viper.Viper
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	rootCmd := &cobra.Command{
		Use:   "tailor-sidecar",
		Short: "Spawn and call tailor sidecar workers",
		Long: `tailor-sidecar spawns sidecar workers for a vault and talks to them over
JSON-RPC on a loopback WebSocket.

Examples:
  tailor-sidecar probe
  tailor-sidecar call --vault ~/notes --method ping
  tailor-sidecar run --vault ~/notes --session main
`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.loadConfig(); err != nil {
				return fmt.Errorf("config error: %w", err)
			}

			h := slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
				Level: parseLevel(a.v.GetString(keyLogLevel)),
			})
			a.logger = slog.New(h)

			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	if err := a.setupRootCmd(rootCmd); err != nil {
		slog.Warn("failed to bind flags", "error", err)
	}

	return rootCmd
}

func (a *app) setupRootCmd(rootCmd *cobra.Command) error {
	rootCmd.AddCommand(a.newCallCmd())
	rootCmd.AddCommand(a.newRunCmd())
	rootCmd.AddCommand(a.newProbeCmd())

	flags := rootCmd.PersistentFlags()
	flags.String(keyConfig, "", "config file (default is $HOME/.tailor/tailor.yaml)")
	flags.String(keyLogLevel, "info", "Log level (debug, info, warn, error)")
	flags.String(keyProjectRoot, "", "Working directory of every worker")
	flags.String(keyPython, "", "Explicit interpreter path, skips the PATH search")
	flags.Duration(keyCallTimeout, tailor.DefaultCallTimeout, "Bound on a single call")
	flags.Int(keyPortBase, tailor.DefaultPortBase, "First port scanned for workers")
	flags.Int(keyPortCeiling, tailor.DefaultPortCeiling, "Last port scanned for workers")

	var errs []error

	flags.VisitAll(func(f *pflag.Flag) {
		if err := a.v.BindPFlag(f.Name, f); err != nil {
			errs = append(errs, fmt.Errorf("bind %s: %w", f.Name, err))
		}
	})

	a.v.SetEnvPrefix(envPrefix)
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	return stderrors.Join(errs...)
}

// loadConfig reads the config file, if any. A missing default file is not an error.
func (a *app) loadConfig() error {
	if file := a.v.GetString(keyConfig); file != "" {
		a.v.SetConfigFile(file)

		return a.v.ReadInConfig()
	}

	a.v.SetConfigName("tailor")
	a.v.SetConfigType("yaml")

	if home, err := os.UserHomeDir(); err == nil {
		a.v.AddConfigPath(filepath.Join(home, ".tailor"))
	}

	a.v.AddConfigPath(".")

	if err := a.v.ReadInConfig(); err != nil {
		if _, ok := stderrors.AsType[viper.ConfigFileNotFoundError](err); !ok {
			return err
		}
	}

	return nil
}

// supervisorOptions translates the loaded configuration into supervisor options.
func (a *app) supervisorOptions() []tailor.Option {
	opts := []tailor.Option{
		tailor.WithLogger(a.logger),
		tailor.WithCallTimeout(a.v.GetDuration(keyCallTimeout)),
		tailor.WithPortRange(a.v.GetInt(keyPortBase), a.v.GetInt(keyPortCeiling)),
	}

	if root := a.v.GetString(keyProjectRoot); root != "" {
		opts = append(opts, tailor.WithProjectRoot(root))
	}

	if python := a.v.GetString(keyPython); python != "" {
		opts = append(opts, tailor.WithInterpreterPath(python))
	}

	return opts
}

// parseLevel maps a level name to a slog level, defaulting to info.
func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// readyTimeout bounds how long a command waits for a fresh worker to listen.
const readyTimeout = 30 * time.Second
