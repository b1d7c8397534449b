package search

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultRefreshInterval is how often a running server picks up stars
// imported or analyzed by other processes.
const DefaultRefreshInterval = 5 * time.Minute

// Refresh rebuilds the index from src every interval until ctx is done.
// Failures are logged and the previous index stays in service. A rebuild
// still running when the next one is due is skipped, not queued.
//
// cron.Every works in whole seconds; anything shorter runs once a second.
func (i *Index) Refresh(ctx context.Context, src Source, interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	c.Schedule(cron.Every(interval), cron.FuncJob(func() {
		start := time.Now()
		n, err := i.Rebuild(ctx, src)
		if err != nil {
			logger.ErrorContext(ctx, "search index refresh failed", slog.String("error", err.Error()))
			return
		}
		logger.DebugContext(ctx, "search index refreshed",
			slog.Int("stars", n),
			slog.Duration("took", time.Since(start)),
		)
	}))

	c.Start()
	<-ctx.Done()
	// Wait for a rebuild in flight so the caller can close the index safely.
	<-c.Stop().Done()
}
