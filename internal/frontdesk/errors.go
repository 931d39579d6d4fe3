package frontdesk

import "errors"

var (
	// ErrNotFound is returned when a referenced record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidName is returned when a required name is blank.
	ErrInvalidName = errors.New("name is required")

	// ErrMissingFields is returned when an appointment lacks patient, doctor or date.
	ErrMissingFields = errors.New("missing fields")

	// ErrInvalidAppointmentDate is returned for an unreadable appointment date.
	ErrInvalidAppointmentDate = errors.New("appointment_date must be an ISO-8601 date-time")

	// ErrInvalidQuantity is returned for negative stock quantities.
	ErrInvalidQuantity = errors.New("quantity must not be negative")

	// ErrSlotTaken is returned when the doctor already has a visit at that time.
	ErrSlotTaken = errors.New("doctor already booked at that time")
)
