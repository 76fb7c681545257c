package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	ipc "github.com/warp-js/ipc-server"
	"github.com/warp-js/ipc-server/internal/logging"
)

const version = "0.1.0"

// globalFlags are shared by every subcommand.
type globalFlags struct {
	config   string
	logLevel string
	logFile  string
}

func newRootCommand() *cobra.Command {
	flags := &globalFlags{}

	cmd := &cobra.Command{
		Use:           "warphost",
		Short:         "Run extensions and dispatch events to them",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&flags.config, "config", "c", "warp.yaml", "host manifest path")
	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "info", "log level: debug, info, warn or error")
	cmd.PersistentFlags().StringVar(&flags.logFile, "log-file", "", "write JSON logs to a rotating file instead of the terminal")

	cmd.AddCommand(
		newServeCommand(flags),
		newDispatchCommand(flags),
		newMCPCommand(flags),
	)

	return cmd
}

// setup loads the manifest and builds the host logger. Terminal logs go to
// stderr when stdout is reserved for command output.
func (f *globalFlags) setup(stdoutReserved bool) (*ipc.Manifest, *slog.Logger, io.Closer, error) {
	level, err := logging.ParseLevel(f.logLevel)
	if err != nil {
		return nil, nil, nil, err
	}

	manifest, err := ipc.LoadManifest(f.config)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load %s: %w", f.config, err)
	}

	if f.logFile != "" {
		w := logging.NewFileWriter(logging.FileOptions{Path: f.logFile, MaxBackups: 3, MaxAgeDays: 7})

		return manifest, logging.NewJSONLogger(w, level), w, nil
	}

	opts := &logging.HandlerOptions{Level: level}
	if stdoutReserved {
		opts.Out = os.Stderr
	}

	return manifest, logging.NewLogger("warphost", opts), nopCloser{}, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

