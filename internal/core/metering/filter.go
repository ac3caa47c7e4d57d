package metering

import "github.com/mut-lab/power-monitor/internal/core/timewindow"

// FilterWindow returns the records whose timestamp falls inside the half-open
// window [w.Start, w.End), preserving input order. Pure and total: an empty
// input or a non-overlapping window yields an empty slice, never an error.
func FilterWindow(records []Record, w timewindow.Window) []Record {
	selected := make([]Record, 0, len(records))
	for _, rec := range records {
		if w.Contains(rec.Timestamp) {
			selected = append(selected, rec)
		}
	}
	return selected
}
