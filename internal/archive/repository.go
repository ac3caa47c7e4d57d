package archive

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// DailyRollup is one archived per-building daily power total. Totals are
// stored as exact decimals so repeated re-archiving of the same day is
// byte-stable in the database.
type DailyRollup struct {
	Day         time.Time       `json:"day"`
	Building    string          `json:"building"`
	PowerTotal  decimal.Decimal `json:"power_total"`
	RecordCount int64           `json:"record_count"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// RollupStore defines the persistence interface for archived rollups.
type RollupStore interface {
	// UpsertRollups replaces the stored rollups for each (day, building) pair.
	UpsertRollups(ctx context.Context, rollups []DailyRollup) error

	// QueryRange fetches rollups with start <= day < end, ordered by day then building.
	QueryRange(ctx context.Context, start, end time.Time) ([]DailyRollup, error)
}
