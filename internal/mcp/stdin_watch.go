package mcp

import (
	"context"
	"os"
	"time"

	"scriptreview/internal/logging"
)

// WatchInterval is how often WatchParent polls the parent PID.
var WatchInterval = 2 * time.Second

// WatchParent monitors for parent process death in a background goroutine.
// When the parent PID changes (the editor restarted or dropped the
// connection), it calls cancelFn to trigger graceful shutdown.
//
// It must not read from stdin: the SDK's StdioTransport owns stdin and any
// stolen bytes corrupt the JSON-RPC stream.
//
// The goroutine exits when ctx is canceled or parent death is detected.
func WatchParent(ctx context.Context, cancelFn context.CancelFunc) {
	ppid := os.Getppid()
	logger := logging.New("mcp")
	go func() {
		ticker := time.NewTicker(WatchInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if os.Getppid() != ppid {
					logger.Warn("parent process died, shutting down", "ppid", ppid)
					cancelFn()
					return
				}
			}
		}
	}()
}
