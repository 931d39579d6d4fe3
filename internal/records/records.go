// Package records holds the read-only snapshots the suggestion engine consumes
// and the lenient timestamp parsing shared by every component.
package records

import (
	"strings"
	"time"
)

// DateLayout is the calendar-date format used on the wire.
const DateLayout = "2006-01-02"

// Appointment is a read-only copy of a stored appointment.
type Appointment struct {
	Date                string `json:"date"`
	DoctorID            int    `json:"doctor_id"`
	PatientID           int    `json:"patient_id"`
	Status              string `json:"status,omitempty"`
	PatientHistoryCount int    `json:"patient_history_count"`
}

// When parses the appointment's date-time.
func (a Appointment) When() Timestamp {
	return ParseTime(a.Date)
}

// InventoryItem is a snapshot of one stocked item. Nil thresholds defer to
// the alerting policy's global defaults.
type InventoryItem struct {
	ID                int64  `json:"id"`
	Name              string `json:"name"`
	Quantity          int    `json:"quantity"`
	Category          string `json:"category,omitempty"`
	Unit              string `json:"unit,omitempty"`
	LowStockThreshold *int   `json:"low_stock_threshold,omitempty"`
	CriticalThreshold *int   `json:"critical_threshold,omitempty"`
}

// Timestamp is the result of a lenient parse. Valid is false when the input
// could not be read, in which case Time is the zero value.
type Timestamp struct {
	Time  time.Time
	Valid bool
}

// Or returns the parsed time, or def when parsing failed.
func (t Timestamp) Or(def time.Time) time.Time {
	if t.Valid {
		return t.Time
	}
	return def
}

// Accepted ISO-8601 shapes, most specific first. Fractional seconds are
// accepted after any layout carrying seconds.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	DateLayout,
}

// ParseTime reads an ISO-8601 date or date-time. It never fails loudly:
// unreadable input yields an invalid Timestamp.
func ParseTime(raw string) Timestamp {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Timestamp{}
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return Timestamp{Time: t, Valid: true}
		}
	}
	return Timestamp{}
}

// SameDate reports whether a and b fall on the same calendar date, each read
// in its own location.
func SameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// DateKey formats t as YYYY-MM-DD.
func DateKey(t time.Time) string {
	return t.Format(DateLayout)
}

// StartOfDay returns midnight of t's calendar date in t's location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
