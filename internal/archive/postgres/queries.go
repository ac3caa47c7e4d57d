package postgres

// SQL queries for the daily rollup archive

const (
	// queryUpsertRollup replaces the archived total for one (day, building).
	// The snapshot job recomputes a whole day at a time, so REPLACE semantics
	// (not increment) keep re-archiving idempotent.
	queryUpsertRollup = `
		INSERT INTO daily_rollups (day, building, power_total, record_count, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (day, building) DO UPDATE
		SET power_total = EXCLUDED.power_total,
		    record_count = EXCLUDED.record_count,
		    updated_at = EXCLUDED.updated_at
	`

	// queryRollupRange fetches archived rollups for a half-open day range.
	queryRollupRange = `
		SELECT day, building, power_total, record_count, updated_at
		FROM daily_rollups
		WHERE day >= $1 AND day < $2
		ORDER BY day ASC, building ASC
	`
)
