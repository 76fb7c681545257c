package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	ipc "github.com/warp-js/ipc-server"
)

func newDispatchCommand(flags *globalFlags) *cobra.Command {
	var (
		connectTimeout time.Duration
		timeout        time.Duration
	)

	cmd := &cobra.Command{
		Use:   "dispatch <extension> <event> [json-payload]",
		Short: "Start the extensions, send one event and print the reply",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, event := args[0], args[1]

			var payload any
			if len(args) == 3 {
				if !json.Valid([]byte(args[2])) {
					return fmt.Errorf("payload is not valid JSON: %s", args[2])
				}

				payload = json.RawMessage(args[2])
			}

			manifest, log, closer, err := flags.setup(true)
			if err != nil {
				return err
			}
			defer closer.Close()

			ctx := cmd.Context()

			opts := []ipc.Option{ipc.WithLogger(log)}
			if timeout > 0 {
				opts = append(opts, ipc.WithTimeout(timeout))
			}

			return ipc.WithHost(ctx, manifest, func(h *ipc.Host) error {
				waitCtx, cancel := context.WithTimeout(ctx, connectTimeout)
				defer cancel()

				if err := h.WaitConnected(waitCtx, target); err != nil {
					log.Warn("Extension did not connect", "extension", target, "error", err)
				}

				reply, err := h.Dispatch(ctx, target, event, payload)
				if err != nil {
					return err
				}

				fmt.Fprintln(cmd.OutOrStdout(), string(reply.Data))

				return nil
			}, opts...)
		},
	}

	cmd.Flags().DurationVar(&connectTimeout, "connect-timeout", 10*time.Second, "how long to wait for the extension to connect")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "reply timeout (default from manifest or 2s)")

	return cmd
}
