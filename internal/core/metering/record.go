package metering

import "time"

// Record is one row of the meter data log: per-phase electrical readings
// tagged with a building and a timestamp. Produced by the source layer;
// the core never mutates it.
type Record struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Building  string    `json:"building"`
	Floor     *int      `json:"floor,omitempty"` // older rows carry NULL floors

	Volt1    float64 `json:"volt1"`
	Volt2    float64 `json:"volt2"`
	Volt3    float64 `json:"volt3"`
	Current1 float64 `json:"current1"`
	Current2 float64 `json:"current2"`
	Current3 float64 `json:"current3"`
	Power1   float64 `json:"power1"`
	Power2   float64 `json:"power2"`
	Power3   float64 `json:"power3"`
	Energy1  float64 `json:"energy1"`
	Energy2  float64 `json:"energy2"`
	Energy3  float64 `json:"energy3"`
}

// PowerTotal is the record's power contribution: the sum of the three
// phase readings, in kW.
func (r Record) PowerTotal() float64 {
	return r.Power1 + r.Power2 + r.Power3
}
