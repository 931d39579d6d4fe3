// Package frontdesk stores the hospital front-desk records: doctors,
// patients, appointments and inventory.
package frontdesk

import (
	"strings"
	"time"

	"github.com/wolfman30/meditrack/internal/records"
)

// StatusScheduled is the status of a newly booked appointment.
const StatusScheduled = "Scheduled"

// AppointmentTimeLayout is how appointment times are rendered.
const AppointmentTimeLayout = "2006-01-02T15:04:05"

type Doctor struct {
	ID             int    `json:"id"`
	Name           string `json:"name"`
	Specialization string `json:"specialization"`
	Position       string `json:"position"`
}

type Patient struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	DOB     string `json:"dob"`
	Contact string `json:"contact"`
}

// Appointment is a booked visit. ScheduledAt holds clinic wall-clock time
// with no zone attached.
type Appointment struct {
	ID          int       `json:"id"`
	PatientID   int       `json:"patient_id"`
	DoctorID    int       `json:"doctor_id"`
	ScheduledAt time.Time `json:"-"`
	Status      string    `json:"status"`
}

// Date renders ScheduledAt for the wire.
func (a Appointment) Date() string {
	return a.ScheduledAt.Format(AppointmentTimeLayout)
}

// Record converts to the engine's read-only snapshot.
func (a Appointment) Record(patientHistory int) records.Appointment {
	return records.Appointment{
		Date:                a.Date(),
		DoctorID:            a.DoctorID,
		PatientID:           a.PatientID,
		Status:              a.Status,
		PatientHistoryCount: patientHistory,
	}
}

// AppointmentDetail joins an appointment with display names. Names of rows
// whose patient or doctor vanished are empty.
type AppointmentDetail struct {
	Appointment
	PatientName string
	DoctorName  string
}

// AppointmentFilter narrows ListAppointments. Zero values match everything.
type AppointmentFilter struct {
	DoctorIDs []int
	Day       *time.Time
}

func (f AppointmentFilter) matches(a Appointment) bool {
	if len(f.DoctorIDs) > 0 {
		found := false
		for _, id := range f.DoctorIDs {
			if id == a.DoctorID {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.Day != nil && !records.SameDate(a.ScheduledAt, *f.Day) {
		return false
	}
	return true
}

// InventoryItem is a stocked item with bookkeeping fields the engine does
// not need.
type InventoryItem struct {
	ID                int64      `json:"id"`
	Name              string     `json:"name"`
	Category          string     `json:"category"`
	Quantity          int        `json:"quantity"`
	Unit              string     `json:"unit"`
	LowStockThreshold *int       `json:"low_stock_threshold"`
	CriticalThreshold *int       `json:"critical_threshold,omitempty"`
	LastRestocked     *time.Time `json:"last_restocked"`
	Notes             string     `json:"notes,omitempty"`
}

// Snapshot converts to the engine's read-only snapshot.
func (i InventoryItem) Snapshot() records.InventoryItem {
	return records.InventoryItem{
		ID:                i.ID,
		Name:              i.Name,
		Quantity:          i.Quantity,
		Category:          i.Category,
		Unit:              i.Unit,
		LowStockThreshold: i.LowStockThreshold,
		CriticalThreshold: i.CriticalThreshold,
	}
}

// Snapshots converts a list of items.
func Snapshots(items []InventoryItem) []records.InventoryItem {
	out := make([]records.InventoryItem, len(items))
	for i, item := range items {
		out[i] = item.Snapshot()
	}
	return out
}

type CreateDoctorRequest struct {
	Name           string `json:"name"`
	Specialization string `json:"specialization"`
	Position       string `json:"position"`
}

func (r *CreateDoctorRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return ErrInvalidName
	}
	return nil
}

type CreatePatientRequest struct {
	Name    string `json:"name"`
	DOB     string `json:"dob"`
	Contact string `json:"contact"`
}

func (r *CreatePatientRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return ErrInvalidName
	}
	return nil
}

// CreateAppointmentRequest books a visit. AppointmentDate accepts any
// ISO-8601 date-time; an offset, if present, is dropped and the wall clock
// kept.
type CreateAppointmentRequest struct {
	PatientID       int    `json:"patient_id"`
	DoctorID        int    `json:"doctor_id"`
	AppointmentDate string `json:"appointment_date"`
}

// Validate checks required fields and returns the parsed time.
func (r *CreateAppointmentRequest) Validate() (time.Time, error) {
	if r.PatientID <= 0 || r.DoctorID <= 0 || strings.TrimSpace(r.AppointmentDate) == "" {
		return time.Time{}, ErrMissingFields
	}
	ts := records.ParseTime(r.AppointmentDate)
	if !ts.Valid {
		return time.Time{}, ErrInvalidAppointmentDate
	}
	return wallClock(ts.Time), nil
}

func wallClock(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC)
}

type CreateInventoryRequest struct {
	Name              string `json:"name"`
	Category          string `json:"category"`
	Quantity          int    `json:"quantity"`
	Unit              string `json:"unit"`
	LowStockThreshold *int   `json:"low_stock_threshold"`
	CriticalThreshold *int   `json:"critical_threshold"`
	Notes             string `json:"notes"`
}

// Validate checks the request and fills defaults.
func (r *CreateInventoryRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return ErrInvalidName
	}
	if r.Quantity < 0 {
		return ErrInvalidQuantity
	}
	if r.Category == "" {
		r.Category = "Supplies"
	}
	if r.Unit == "" {
		r.Unit = "units"
	}
	return nil
}

// UpdateInventoryRequest changes only the fields that are set.
type UpdateInventoryRequest struct {
	Name              *string `json:"name"`
	Category          *string `json:"category"`
	Quantity          *int    `json:"quantity"`
	LowStockThreshold *int    `json:"low_stock_threshold"`
	CriticalThreshold *int    `json:"critical_threshold"`
}

func (r *UpdateInventoryRequest) Validate() error {
	if r.Name != nil && strings.TrimSpace(*r.Name) == "" {
		return ErrInvalidName
	}
	if r.Quantity != nil && *r.Quantity < 0 {
		return ErrInvalidQuantity
	}
	return nil
}

// apply updates item in place and reports whether the quantity went up.
func (r *UpdateInventoryRequest) apply(item *InventoryItem) bool {
	restocked := false
	if r.Name != nil {
		item.Name = strings.TrimSpace(*r.Name)
	}
	if r.Category != nil {
		item.Category = *r.Category
	}
	if r.Quantity != nil {
		restocked = *r.Quantity > item.Quantity
		item.Quantity = *r.Quantity
	}
	if r.LowStockThreshold != nil {
		item.LowStockThreshold = r.LowStockThreshold
	}
	if r.CriticalThreshold != nil {
		item.CriticalThreshold = r.CriticalThreshold
	}
	return restocked
}
