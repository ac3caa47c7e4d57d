package archive

import (
	"context"
	"log/slog"
	"time"

	"github.com/mut-lab/power-monitor/internal/core/metering"
	"github.com/mut-lab/power-monitor/internal/core/timewindow"
)

// WindowFetcher is the slice of the source client the snapshot job needs.
type WindowFetcher interface {
	FetchWindow(ctx context.Context, w timewindow.Window) ([]metering.Record, error)
}

// Scheduler periodically snapshots the current day from the live source and
// replaces that day's archived rollups. It is stateless: each tick recomputes
// the whole day, so a missed tick costs nothing but freshness.
type Scheduler struct {
	interval time.Duration
	fetcher  WindowFetcher
	store    RollupStore
	nowFn    func() time.Time
}

// NewScheduler creates the archive snapshot scheduler.
func NewScheduler(interval time.Duration, fetcher WindowFetcher, store RollupStore) *Scheduler {
	return &Scheduler{
		interval: interval,
		fetcher:  fetcher,
		store:    store,
		nowFn:    time.Now,
	}
}

// Start begins periodic archiving. Runs until the context is cancelled,
// taking one final snapshot on the way out.
func (s *Scheduler) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	slog.Info("[Archive] Starting snapshot scheduler", "interval", s.interval)

	// Initial snapshot so a fresh deployment has data before the first tick.
	s.snapshot(ctx)

	for {
		select {
		case <-ticker.C:
			s.snapshot(ctx)
		case <-ctx.Done():
			slog.Info("[Archive] Stopping (context cancelled)")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			s.snapshot(shutdownCtx)
			slog.Info("[Archive] Final snapshot complete")
			return nil
		}
	}
}

// snapshot archives the current calendar day. Failures are logged and left
// for the next tick; the archive is best-effort and the live query path
// never depends on it.
func (s *Scheduler) snapshot(ctx context.Context) {
	now := s.nowFn()
	day := timewindow.Window{Start: startOfDay(now), End: now}

	records, err := s.fetcher.FetchWindow(ctx, day)
	if err != nil {
		slog.Error("[Archive] Snapshot fetch failed", "error", err, "day", day.Start.Format("2006-01-02"))
		return
	}

	rollups := RollupRecords(records, now)
	if len(rollups) == 0 {
		slog.Debug("[Archive] No records to archive", "day", day.Start.Format("2006-01-02"))
		return
	}

	if err := s.store.UpsertRollups(ctx, rollups); err != nil {
		slog.Error("[Archive] Rollup upsert failed", "error", err)
		return
	}

	slog.Info("[Archive] Day archived",
		"day", day.Start.Format("2006-01-02"),
		"records", len(records),
		"rollups", len(rollups))
}
