// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package signalbroker

import (
	"context"
	"os"
	"os/signal"

	"github.com/matt-FFFFFF/prun/internal/ctxlog"
)

// Watch consumes sigCh until ctx is done.
// On the second signal of a given type it unsubscribes the channel and calls cancel.
func Watch(ctx context.Context, sigCh chan os.Signal, cancel context.CancelFunc) {
	seen := make(map[os.Signal]struct{})

	for {
		select {
		case <-ctx.Done():
			signal.Stop(sigCh)
			return

		case sig, ok := <-sigCh:
			if !ok {
				return
			}

			if _, dup := seen[sig]; dup {
				ctxlog.Warn(ctx, "watchdog",
					"detail", "received second signal of type, no further commands will be started",
					"signal", sig.String())
				signal.Stop(sigCh)
				cancel()

				return
			}

			ctxlog.Info(ctx, "watchdog",
				"detail", "received first signal of type, send again to stop starting commands",
				"signal", sig.String())

			seen[sig] = struct{}{}
		}
	}
}
