package timewindow

import "time"

const (
	// DefaultHorizon is the lookback covered by a half-hourly bucket plan.
	DefaultHorizon = 24 * time.Hour

	// DefaultBucketWidth is the fixed bucket width of the half-hourly view.
	DefaultBucketWidth = 30 * time.Minute

	bucketLabelLayout = "15:04"
)

// Bucket is a window plus a display label (its end instant) used as the
// aggregation key for the half-hourly view.
type Bucket struct {
	Window
	Label string
}

// Anchor returns the nearest bucket-aligned boundary at or before reference:
// the minute field rounded down to a multiple of width, seconds zeroed.
// The rounding is done on wall-clock fields rather than time.Truncate so the
// boundaries stay aligned to local half hours regardless of the zone offset.
func Anchor(reference time.Time, width time.Duration) time.Time {
	minutes := int(width / time.Minute)
	if minutes <= 0 {
		minutes = int(DefaultBucketWidth / time.Minute)
	}
	y, m, d := reference.Date()
	h := reference.Hour()
	min := reference.Minute() - reference.Minute()%minutes
	return time.Date(y, m, d, h, min, 0, 0, reference.Location())
}

// Plan computes the bucket sequence for the half-hourly view: full-width
// buckets covering [anchor - horizon, anchor) oldest first, plus one trailing
// partial bucket [anchor, reference) when the reference is off-boundary.
// Never fails; with defaults the result has 48 or 49 buckets.
func Plan(reference time.Time, horizon, width time.Duration) []Bucket {
	if horizon <= 0 {
		horizon = DefaultHorizon
	}
	if width <= 0 {
		width = DefaultBucketWidth
	}

	anchor := Anchor(reference, width)
	n := int(horizon / width)

	buckets := make([]Bucket, 0, n+1)
	for i := n; i > 0; i-- {
		end := anchor.Add(-time.Duration(i-1) * width)
		buckets = append(buckets, newBucket(end.Add(-width), end))
	}

	// A reference exactly on a boundary gets no zero-width trailing bucket.
	if reference.After(anchor) {
		buckets = append(buckets, newBucket(anchor, reference))
	}

	return buckets
}

func newBucket(start, end time.Time) Bucket {
	return Bucket{
		Window: Window{Start: start, End: end},
		Label:  end.Format(bucketLabelLayout),
	}
}
