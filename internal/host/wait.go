package host

import (
	"context"
	"fmt"
	"time"

	"github.com/warp-js/ipc-server/internal/config"
)

// WaitConnected polls transport until extensionID is connected or ctx ends.
func WaitConnected(ctx context.Context, transport config.Transport, extensionID string, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		stats, err := transport.ConnectionStats(ctx)
		if err != nil {
			return fmt.Errorf("connection stats: %w", err)
		}

		if stats.IsConnected(extensionID) {
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("wait for %s: %w", extensionID, ctx.Err())
		case <-ticker.C:
		}
	}
}
