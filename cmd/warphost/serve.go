package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	ipc "github.com/warp-js/ipc-server"
)

func newServeCommand(flags *globalFlags) *cobra.Command {
	var connectTimeout time.Duration

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the broker and every extension, and run until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			manifest, log, closer, err := flags.setup(false)
			if err != nil {
				return err
			}
			defer closer.Close()

			ctx := cmd.Context()

			return ipc.WithHost(ctx, manifest, func(h *ipc.Host) error {
				waitCtx, cancel := context.WithTimeout(ctx, connectTimeout)
				defer cancel()

				if err := h.WaitConnected(waitCtx, extensionIDs(manifest)...); err != nil {
					log.Warn("Not every extension connected", "error", err)
				}

				stats, _ := h.Hub().ConnectionStats(ctx)
				log.Info("Serving", "port", h.Port(), "loaded", stats.Loaded, "connected", stats.Connected)

				<-ctx.Done()

				return nil
			}, ipc.WithLogger(log))
		},
	}

	cmd.Flags().DurationVar(&connectTimeout, "connect-timeout", 10*time.Second, "how long to wait for extensions to connect")

	return cmd
}

func extensionIDs(manifest *ipc.Manifest) []string {
	ids := make([]string, 0, len(manifest.Extensions))
	for _, ext := range manifest.Extensions {
		ids = append(ids, ext.ID)
	}

	return ids
}
