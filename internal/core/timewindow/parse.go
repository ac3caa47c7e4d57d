package timewindow

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidTimeFormat marks date/time strings that match none of the accepted layouts.
var ErrInvalidTimeFormat = errors.New("invalid time format")

// Role says which side of a window a parsed instant will bound.
// A bare date used as an end bound is inclusive of the whole day,
// so RoleEnd resolves the time-of-day to 23:59:59 instead of midnight.
type Role int

const (
	RoleStart Role = iota
	RoleEnd
)

const (
	layoutDate          = "2006-01-02"
	layoutDateTimeT     = "2006-01-02T15:04:05"
	layoutDateTimeSpace = "2006-01-02 15:04:05"
)

// AcceptedLayouts lists the input shapes Parse understands, in the order they are tried.
// Surfaced in error details so callers can see what the API accepts.
var AcceptedLayouts = []string{layoutDate, layoutDateTimeT, layoutDateTimeSpace}

// Parser normalizes heterogeneous date/time strings into instants.
// All instants are interpreted in a single fixed location shared by the
// query and the meter data; no timezone conversion is performed.
type Parser struct {
	loc *time.Location
}

// NewParser creates a parser anchored to loc. A nil loc means time.Local.
func NewParser(loc *time.Location) *Parser {
	if loc == nil {
		loc = time.Local
	}
	return &Parser{loc: loc}
}

// Location returns the fixed reference frame the parser resolves instants in.
func (p *Parser) Location() *time.Location {
	return p.loc
}

// Parse resolves input into an instant, trying each accepted layout in order.
// Date-only input defaults the time-of-day by role: 00:00:00 for RoleStart,
// 23:59:59 for RoleEnd.
func (p *Parser) Parse(input string, role Role) (time.Time, error) {
	if t, err := time.ParseInLocation(layoutDate, input, p.loc); err == nil {
		if role == RoleEnd {
			return t.Add(23*time.Hour + 59*time.Minute + 59*time.Second), nil
		}
		return t, nil
	}

	if t, err := time.ParseInLocation(layoutDateTimeT, input, p.loc); err == nil {
		return t, nil
	}

	if t, err := time.ParseInLocation(layoutDateTimeSpace, input, p.loc); err == nil {
		return t, nil
	}

	return time.Time{}, fmt.Errorf("%w: %q (accepted: %v)", ErrInvalidTimeFormat, input, AcceptedLayouts)
}
