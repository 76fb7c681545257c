package main

import (
	"context"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	ipc "github.com/warp-js/ipc-server"
	"github.com/warp-js/ipc-server/internal/mcpbridge"
)

func newMCPCommand(flags *globalFlags) *cobra.Command {
	var connectTimeout time.Duration

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the manifest's tools over MCP on stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			manifest, log, closer, err := flags.setup(true)
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

				bridge := mcpbridge.New(log, h.Caller(), "warphost", version)
				bridge.AddTools(manifest.Tools)

				return bridge.Run(ctx, &mcp.StdioTransport{})
			}, ipc.WithLogger(log))
		},
	}

	cmd.Flags().DurationVar(&connectTimeout, "connect-timeout", 10*time.Second, "how long to wait for extensions to connect")

	return cmd
}
