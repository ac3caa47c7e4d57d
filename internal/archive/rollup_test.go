package archive

import (
	"testing"
	"time"

	"github.com/mut-lab/power-monitor/internal/core/metering"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func rec(ts time.Time, building string, power float64) metering.Record {
	return metering.Record{Timestamp: ts, Building: building, Power1: power}
}

func TestRollupRecords(t *testing.T) {
	day1 := time.Date(2023, 6, 14, 0, 0, 0, 0, time.UTC)
	day2 := day1.AddDate(0, 0, 1)
	updated := day2.Add(15 * time.Hour)

	records := []metering.Record{
		rec(day1.Add(10*time.Hour), "B", 5),
		rec(day1.Add(11*time.Hour), "A", 2.5),
		rec(day2.Add(1*time.Hour), "A", 1),
		rec(day1.Add(12*time.Hour), "A", 2.5),
	}

	rollups := RollupRecords(records, updated)
	require.Len(t, rollups, 3)

	// Ordered by day then building.
	require.Equal(t, day1, rollups[0].Day)
	require.Equal(t, "A", rollups[0].Building)
	require.True(t, rollups[0].PowerTotal.Equal(decimal.NewFromFloat(5)))
	require.Equal(t, int64(2), rollups[0].RecordCount)

	require.Equal(t, day1, rollups[1].Day)
	require.Equal(t, "B", rollups[1].Building)
	require.True(t, rollups[1].PowerTotal.Equal(decimal.NewFromFloat(5)))

	require.Equal(t, day2, rollups[2].Day)
	require.Equal(t, "A", rollups[2].Building)
	require.Equal(t, int64(1), rollups[2].RecordCount)

	for _, r := range rollups {
		require.Equal(t, updated, r.UpdatedAt)
	}
}

func TestRollupRecords_SumsAllPhases(t *testing.T) {
	ts := time.Date(2023, 6, 15, 9, 0, 0, 0, time.UTC)
	records := []metering.Record{
		{Timestamp: ts, Building: "A", Power1: 1.25, Power2: 2.5, Power3: 3.25},
	}

	rollups := RollupRecords(records, ts)
	require.Len(t, rollups, 1)
	require.True(t, rollups[0].PowerTotal.Equal(decimal.NewFromFloat(7)),
		"got %s", rollups[0].PowerTotal)
}

func TestRollupRecords_Empty(t *testing.T) {
	rollups := RollupRecords(nil, time.Now())
	require.Empty(t, rollups)
}

func TestRollupRecords_Deterministic(t *testing.T) {
	ts := time.Date(2023, 6, 15, 9, 0, 0, 0, time.UTC)
	records := []metering.Record{
		rec(ts, "A", 0.1),
		rec(ts.Add(time.Minute), "A", 0.2),
		rec(ts.Add(2*time.Minute), "A", 0.3),
	}

	first := RollupRecords(records, ts)
	second := RollupRecords(records, ts)

	require.Len(t, first, 1)
	require.True(t, first[0].PowerTotal.Equal(second[0].PowerTotal))
}
