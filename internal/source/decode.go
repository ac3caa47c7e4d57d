package source

import (
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/mut-lab/power-monitor/internal/core/metering"
	"github.com/shopspring/decimal"
)

const rowTimeLayout = "2006-01-02 15:04:05"

// decodeRecords converts scraped string-cell rows into Records. Rows whose
// timestamp cell is missing or unparseable are skipped with a warning; the
// meter log contains occasional corrupt rows and one bad row must not fail
// a whole query.
func decodeRecords(rows []map[string]string, timestampColumn string, loc *time.Location) []metering.Record {
	records := make([]metering.Record, 0, len(rows))

	for _, row := range rows {
		ts, err := time.ParseInLocation(rowTimeLayout, row[timestampColumn], loc)
		if err != nil {
			slog.Warn("[Source] Skipping row with bad timestamp",
				"column", timestampColumn,
				"value", row[timestampColumn])
			continue
		}

		records = append(records, metering.Record{
			ID:        parseIntSafe(row["id"]),
			Timestamp: ts,
			Building:  buildingOf(row),
			Floor:     parseFloor(row["Floor"]),
			Volt1:     parseFloatSafe(row["volt1"]),
			Volt2:     parseFloatSafe(row["volt2"]),
			Volt3:     parseFloatSafe(row["volt3"]),
			Current1:  parseFloatSafe(row["current1"]),
			Current2:  parseFloatSafe(row["current2"]),
			Current3:  parseFloatSafe(row["current3"]),
			Power1:    parseFloatSafe(row["power1"]),
			Power2:    parseFloatSafe(row["power2"]),
			Power3:    parseFloatSafe(row["power3"]),
			Energy1:   parseFloatSafe(row["energy1"]),
			Energy2:   parseFloatSafe(row["energy2"]),
			Energy3:   parseFloatSafe(row["energy3"]),
		})
	}

	return records
}

func buildingOf(row map[string]string) string {
	if b := strings.TrimSpace(row["Building"]); b != "" {
		return b
	}
	return "UNKNOWN"
}

// parseFloatSafe coerces a scraped numeric cell to a float. Empty strings and
// garbage become 0 rather than an error; the meters emit blank cells when a
// phase is disconnected. Parsing goes through decimal so values like
// "0.30000000000000004" survive the round trip unmodified.
func parseFloatSafe(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0
	}
	return d.InexactFloat64()
}

func parseIntSafe(s string) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// parseFloor keeps NULL floors (rendered as "NULL" or empty by phpMyAdmin) as nil.
func parseFloor(s string) *int {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "null") {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &n
}
