package metering

import (
	"time"

	"github.com/mut-lab/power-monitor/internal/core/timewindow"
)

const dayLabelLayout = "2006-01-02"

// DefaultStatsDays is the horizon of the daily-stats view.
const DefaultStatsDays = 10

// BuildingSummary maps a building identifier to its summed power.
// Buildings absent from the input never appear (no zero-filling).
type BuildingSummary map[string]float64

// BucketSummary pairs one planned bucket with the per-building sums of the
// records that fell inside it.
type BucketSummary struct {
	Label   string          `json:"label"`
	Start   time.Time       `json:"start"`
	End     time.Time       `json:"end"`
	Summary BuildingSummary `json:"summary"`
}

// DayStats holds the daily-stats view for one calendar day.
type DayStats struct {
	Date        string          `json:"date"`
	Summary     BuildingSummary `json:"summary"`
	RecordCount int             `json:"record_count"`
}

// Sum folds each record's total power contribution into its building's
// running total. Summation follows input sequence order, which is the
// canonical order for reproducible floating-point totals. An empty input
// yields an empty (non-nil) summary.
func Sum(records []Record) BuildingSummary {
	summary := make(BuildingSummary, 8)
	for _, rec := range records {
		summary[rec.Building] += rec.PowerTotal()
	}
	return summary
}

// SumBucketed assigns each record to the at-most-one bucket containing its
// timestamp and sums independently within each bucket. Records outside every
// bucket's span are silently dropped. The result preserves bucket order;
// every planned bucket appears, empty ones with an empty summary.
func SumBucketed(records []Record, buckets []timewindow.Bucket) []BucketSummary {
	results := make([]BucketSummary, len(buckets))
	for i, b := range buckets {
		results[i] = BucketSummary{
			Label:   b.Label,
			Start:   b.Start,
			End:     b.End,
			Summary: make(BuildingSummary),
		}
	}

	for _, rec := range records {
		// Buckets are contiguous and sorted; a scan is fine at the sizes the
		// half-hourly view deals with (49 buckets).
		for i, b := range buckets {
			if b.Contains(rec.Timestamp) {
				results[i].Summary[rec.Building] += rec.PowerTotal()
				break
			}
		}
	}

	return results
}

// DailyStats groups records by calendar day and returns the last `days`
// distinct days ending at now's day, oldest first. Days with zero records are
// omitted rather than zero-filled: the view reports what the meters logged,
// and an absent day reads the same as an absent building in a summary.
func DailyStats(records []Record, days int, now time.Time) []DayStats {
	if days <= 0 {
		days = DefaultStatsDays
	}

	cutoff := startOfDay(now).AddDate(0, 0, -(days - 1))
	horizon := timewindow.Window{Start: cutoff, End: startOfDay(now).AddDate(0, 0, 1)}

	byDay := make(map[string][]Record)
	for _, rec := range records {
		if !horizon.Contains(rec.Timestamp) {
			continue
		}
		label := rec.Timestamp.Format(dayLabelLayout)
		byDay[label] = append(byDay[label], rec)
	}

	stats := make([]DayStats, 0, len(byDay))
	for day := cutoff; !day.After(now); day = day.AddDate(0, 0, 1) {
		label := day.Format(dayLabelLayout)
		recs, ok := byDay[label]
		if !ok {
			continue
		}
		stats = append(stats, DayStats{
			Date:        label,
			Summary:     Sum(recs),
			RecordCount: len(recs),
		})
	}
	return stats
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
