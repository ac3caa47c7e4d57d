package query

import (
	"time"

	"github.com/mut-lab/power-monitor/internal/core/metering"
)

// SummaryResponse is the per-building power summary for one resolved window.
type SummaryResponse struct {
	Start       time.Time                `json:"start"`
	End         time.Time                `json:"end"`
	RecordCount int                      `json:"record_count"`
	Summary     metering.BuildingSummary `json:"summary"`
}

// LimitSummaryResponse is the per-building summary over the latest N records.
type LimitSummaryResponse struct {
	Limit       int                      `json:"limit"`
	RecordCount int                      `json:"record_count"`
	Summary     metering.BuildingSummary `json:"summary"`
}

// HalfHourlyResponse is the bucketed half-hourly view.
type HalfHourlyResponse struct {
	Reference time.Time                `json:"reference"`
	Buckets   []metering.BucketSummary `json:"buckets"`
}

// DailyStatsResponse lists per-day summaries for the stats horizon.
type DailyStatsResponse struct {
	Days []metering.DayStats `json:"days"`
}
