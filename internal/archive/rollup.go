package archive

import (
	"sort"
	"time"

	"github.com/mut-lab/power-monitor/internal/core/metering"
	"github.com/shopspring/decimal"
)

// RollupRecords folds a record set into per-(day, building) rollups.
// Power totals accumulate as exact decimals in input order, so the same
// record set always produces the same stored value. Output is ordered by
// day then building for deterministic upsert batches.
func RollupRecords(records []metering.Record, updatedAt time.Time) []DailyRollup {
	type key struct {
		day      string
		building string
	}

	totals := make(map[key]*DailyRollup)
	for _, rec := range records {
		day := startOfDay(rec.Timestamp)
		k := key{day: day.Format("2006-01-02"), building: rec.Building}

		r, ok := totals[k]
		if !ok {
			r = &DailyRollup{
				Day:       day,
				Building:  rec.Building,
				UpdatedAt: updatedAt,
			}
			totals[k] = r
		}
		r.PowerTotal = r.PowerTotal.Add(decimal.NewFromFloat(rec.PowerTotal()))
		r.RecordCount++
	}

	rollups := make([]DailyRollup, 0, len(totals))
	for _, r := range totals {
		rollups = append(rollups, *r)
	}
	sort.Slice(rollups, func(i, j int) bool {
		if !rollups[i].Day.Equal(rollups[j].Day) {
			return rollups[i].Day.Before(rollups[j].Day)
		}
		return rollups[i].Building < rollups[j].Building
	})

	return rollups
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
