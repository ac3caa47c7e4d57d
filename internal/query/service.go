package query

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/mut-lab/power-monitor/internal/core/metering"
	"github.com/mut-lab/power-monitor/internal/core/timewindow"
	"golang.org/x/sync/singleflight"
)

// ErrInvalidLimit marks record-count parameters outside [1, MaxLimit].
var ErrInvalidLimit = errors.New("invalid limit")

const (
	// DefaultLimit is the row count used when the caller omits n.
	DefaultLimit = 5

	// DefaultMaxLimit caps record-count-limited queries.
	DefaultMaxLimit = 100

	defaultCacheSize = 64
	defaultCacheTTL  = 30 * time.Second
)

// RecordFetcher is the external collaborator that retrieves raw records.
// The service never speaks to the meter database itself.
type RecordFetcher interface {
	FetchLatest(ctx context.Context, limit int) ([]metering.Record, error)
	FetchWindow(ctx context.Context, w timewindow.Window) ([]metering.Record, error)
}

// Options tunes the service. Zero values fall back to defaults.
type Options struct {
	DefaultLimit int
	MaxLimit     int
	MaxSpan      time.Duration
	CacheSize    int
	CacheTTL     time.Duration
	Location     *time.Location
}

func (o Options) normalized() Options {
	if o.DefaultLimit <= 0 {
		o.DefaultLimit = DefaultLimit
	}
	if o.MaxLimit <= 0 {
		o.MaxLimit = DefaultMaxLimit
	}
	if o.CacheSize <= 0 {
		o.CacheSize = defaultCacheSize
	}
	if o.CacheTTL <= 0 {
		o.CacheTTL = defaultCacheTTL
	}
	if o.Location == nil {
		o.Location = time.Local
	}
	return o
}

// Service implements the read-side query API: it resolves time partitions,
// fetches raw records through the collaborator, and reduces them with the
// core aggregation functions. All aggregation happens on the caller's
// goroutine; the only shared state is the fetch cache.
type Service struct {
	fetcher  RecordFetcher
	parser   *timewindow.Parser
	resolver *timewindow.Resolver
	opts     Options

	// cache holds recently fetched record sets keyed by the upstream query
	// shape; flight dedupes concurrent identical fetches so a burst of
	// requests costs one scrape.
	cache  *expirable.LRU[string, []metering.Record]
	flight singleflight.Group

	nowFn func() time.Time
}

// NewService creates the query service around a record fetcher.
func NewService(fetcher RecordFetcher, opts Options) *Service {
	opts = opts.normalized()
	parser := timewindow.NewParser(opts.Location)

	return &Service{
		fetcher:  fetcher,
		parser:   parser,
		resolver: timewindow.NewResolver(parser, opts.MaxSpan),
		opts:     opts,
		cache:    expirable.NewLRU[string, []metering.Record](opts.CacheSize, nil, opts.CacheTTL),
		nowFn:    func() time.Time { return time.Now().In(opts.Location) },
	}
}

// LatestRecords returns the most recent limit raw records.
func (s *Service) LatestRecords(ctx context.Context, limit int) ([]metering.Record, error) {
	limit, err := s.validateLimit(limit)
	if err != nil {
		return nil, err
	}
	return s.fetchLatest(ctx, limit)
}

// Summary aggregates per-building power over the latest limit records.
func (s *Service) Summary(ctx context.Context, limit int) (*LimitSummaryResponse, error) {
	limit, err := s.validateLimit(limit)
	if err != nil {
		return nil, err
	}

	records, err := s.fetchLatest(ctx, limit)
	if err != nil {
		return nil, err
	}

	return &LimitSummaryResponse{
		Limit:       limit,
		RecordCount: len(records),
		Summary:     metering.Sum(records),
	}, nil
}

// WindowSummary aggregates over a named rolling window ending now.
func (s *Service) WindowSummary(ctx context.Context, kind timewindow.Kind) (*SummaryResponse, error) {
	w, err := s.resolver.Resolve(kind, s.nowFn())
	if err != nil {
		return nil, err
	}
	return s.summarizeWindow(ctx, w)
}

// RangeSummary aggregates over a caller-supplied custom window.
func (s *Service) RangeSummary(ctx context.Context, startStr, endStr string) (*SummaryResponse, error) {
	w, err := s.resolver.ResolveCustom(startStr, endStr)
	if err != nil {
		return nil, err
	}
	return s.summarizeWindow(ctx, w)
}

// HalfHourly aggregates the last 24 hours into 30-minute buckets ending at
// the reference instant (optional; same formats as custom range bounds,
// empty means now).
func (s *Service) HalfHourly(ctx context.Context, referenceStr string) (*HalfHourlyResponse, error) {
	reference := s.nowFn()
	if referenceStr != "" {
		parsed, err := s.parser.Parse(referenceStr, timewindow.RoleEnd)
		if err != nil {
			return nil, err
		}
		reference = parsed
	}

	buckets := timewindow.Plan(reference, timewindow.DefaultHorizon, timewindow.DefaultBucketWidth)
	span := timewindow.Window{Start: buckets[0].Start, End: reference}

	records, err := s.fetchWindow(ctx, span)
	if err != nil {
		return nil, err
	}

	return &HalfHourlyResponse{
		Reference: reference,
		Buckets:   metering.SumBucketed(records, buckets),
	}, nil
}

// DailyStats reports the last 10 distinct calendar days, each with its
// building summary and record count. Days without records are omitted.
func (s *Service) DailyStats(ctx context.Context) (*DailyStatsResponse, error) {
	now := s.nowFn()
	start := startOfDay(now).AddDate(0, 0, -(metering.DefaultStatsDays - 1))
	span := timewindow.Window{Start: start, End: now}

	records, err := s.fetchWindow(ctx, span)
	if err != nil {
		return nil, err
	}

	return &DailyStatsResponse{
		Days: metering.DailyStats(records, metering.DefaultStatsDays, now),
	}, nil
}

func (s *Service) summarizeWindow(ctx context.Context, w timewindow.Window) (*SummaryResponse, error) {
	records, err := s.fetchWindow(ctx, w)
	if err != nil {
		return nil, err
	}

	// Source rows are untrusted; re-apply the half-open bound locally.
	selected := metering.FilterWindow(records, w)

	return &SummaryResponse{
		Start:       w.Start,
		End:         w.End,
		RecordCount: len(selected),
		Summary:     metering.Sum(selected),
	}, nil
}

func (s *Service) validateLimit(limit int) (int, error) {
	if limit == 0 {
		return s.opts.DefaultLimit, nil
	}
	if limit < 1 || limit > s.opts.MaxLimit {
		return 0, fmt.Errorf("%w: n=%d (must be 1-%d)", ErrInvalidLimit, limit, s.opts.MaxLimit)
	}
	return limit, nil
}

func (s *Service) fetchLatest(ctx context.Context, limit int) ([]metering.Record, error) {
	key := fmt.Sprintf("latest:%d", limit)
	return s.fetchCached(ctx, key, func(ctx context.Context) ([]metering.Record, error) {
		return s.fetcher.FetchLatest(ctx, limit)
	})
}

func (s *Service) fetchWindow(ctx context.Context, w timewindow.Window) ([]metering.Record, error) {
	key := fmt.Sprintf("window:%d:%d", w.Start.Unix(), w.End.Unix())
	return s.fetchCached(ctx, key, func(ctx context.Context) ([]metering.Record, error) {
		return s.fetcher.FetchWindow(ctx, w)
	})
}

// fetchCached serves repeated queries from the TTL cache and collapses
// concurrent identical fetches into one upstream round trip.
func (s *Service) fetchCached(
	ctx context.Context,
	key string,
	fetch func(ctx context.Context) ([]metering.Record, error),
) ([]metering.Record, error) {
	if records, ok := s.cache.Get(key); ok {
		return records, nil
	}

	result, err, shared := s.flight.Do(key, func() (interface{}, error) {
		records, fetchErr := fetch(ctx)
		if fetchErr != nil {
			return nil, fetchErr
		}
		s.cache.Add(key, records)
		return records, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		slog.Debug("[Query] Deduplicated concurrent fetch", "key", key)
	}

	return result.([]metering.Record), nil
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
