package timewindow

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidWindow marks windows whose end is not strictly after their start.
	ErrInvalidWindow = errors.New("invalid window")

	// ErrWindowTooLarge marks custom windows whose span exceeds the configured maximum.
	ErrWindowTooLarge = errors.New("window too large")

	// ErrUnknownKind marks window kinds outside hour|day|week|month.
	ErrUnknownKind = errors.New("unknown window kind")
)

// Window is a half-open time interval [Start, End) used to select records.
type Window struct {
	Start time.Time
	End   time.Time
}

// Span returns End - Start.
func (w Window) Span() time.Duration {
	return w.End.Sub(w.Start)
}

// Contains reports whether t falls inside the half-open interval.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// Kind names a rolling lookback window. Rolling means [now - duration, now),
// not calendar-aligned.
type Kind string

const (
	KindHour  Kind = "hour"
	KindDay   Kind = "day"
	KindWeek  Kind = "week"
	KindMonth Kind = "month"
)

var kindDurations = map[Kind]time.Duration{
	KindHour:  time.Hour,
	KindDay:   24 * time.Hour,
	KindWeek:  7 * 24 * time.Hour,
	KindMonth: 30 * 24 * time.Hour,
}

// DefaultMaxCustomSpan bounds custom ranges so a single query cannot ask the
// upstream source for an unbounded row scan.
const DefaultMaxCustomSpan = 7 * 24 * time.Hour

// Resolver computes query windows from named kinds or caller-supplied bounds.
type Resolver struct {
	parser  *Parser
	maxSpan time.Duration
}

// NewResolver creates a resolver using parser for custom bounds.
// maxSpan <= 0 falls back to DefaultMaxCustomSpan.
func NewResolver(parser *Parser, maxSpan time.Duration) *Resolver {
	if maxSpan <= 0 {
		maxSpan = DefaultMaxCustomSpan
	}
	return &Resolver{parser: parser, maxSpan: maxSpan}
}

// Resolve computes the rolling window for a named kind ending at now.
func (r *Resolver) Resolve(kind Kind, now time.Time) (Window, error) {
	d, ok := kindDurations[kind]
	if !ok {
		return Window{}, fmt.Errorf("%w: %q (must be hour, day, week, or month)", ErrUnknownKind, kind)
	}
	return Window{Start: now.Add(-d), End: now}, nil
}

// ResolveCustom parses both bounds with start/end defaulting, then validates
// ordering and the maximum-span constraint. A span of exactly maxSpan passes.
func (r *Resolver) ResolveCustom(startStr, endStr string) (Window, error) {
	start, err := r.parser.Parse(startStr, RoleStart)
	if err != nil {
		return Window{}, err
	}
	end, err := r.parser.Parse(endStr, RoleEnd)
	if err != nil {
		return Window{}, err
	}

	w := Window{Start: start, End: end}
	if !end.After(start) {
		return Window{}, fmt.Errorf("%w: end %s is not after start %s",
			ErrInvalidWindow, end.Format(layoutDateTimeSpace), start.Format(layoutDateTimeSpace))
	}
	if w.Span() > r.maxSpan {
		return Window{}, fmt.Errorf("%w: requested span %s exceeds limit %s",
			ErrWindowTooLarge, w.Span(), r.maxSpan)
	}
	return w, nil
}
