// Package forecast estimates same-day patient flow from the appointment book.
package forecast

import (
	"math"

	"github.com/wolfman30/meditrack/internal/records"
)

// Hour statuses.
const (
	StatusBusy     = "busy"
	StatusModerate = "moderate"
)

// Config holds forecasting thresholds.
type Config struct {
	OpenHour      int
	CloseHour     int
	PeakThreshold int
	BusyThreshold int
	NoShowRate    float64
}

// DefaultConfig returns the clinic defaults: window [9,17), peak at 3,
// busy at 5, 10% no-shows.
func DefaultConfig() Config {
	return Config{
		OpenHour:      9,
		CloseHour:     17,
		PeakThreshold: 3,
		BusyThreshold: 5,
		NoShowRate:    0.10,
	}
}

// PeakHour is an hour whose booking count reached the peak threshold.
type PeakHour struct {
	Hour           int    `json:"hour"`
	PredictedCount int    `json:"predicted_count"`
	Status         string `json:"status"`
}

// FlowForecast summarizes the expected load for one day.
type FlowForecast struct {
	Date               string     `json:"date"`
	TotalAppointments  int        `json:"total_appointments"`
	PredictedPeakHours []PeakHour `json:"predicted_peak_hours"`
	PredictedNoShows   int        `json:"predicted_no_shows"`
	ExpectedArrivals   int        `json:"expected_arrivals"`
	BusyPeriods        []PeakHour `json:"busy_periods"`
}

// Forecaster computes FlowForecasts. It holds configuration only.
type Forecaster struct {
	cfg Config
}

// New creates a Forecaster. Invalid settings fall back to defaults.
func New(cfg Config) *Forecaster {
	def := DefaultConfig()
	if cfg.CloseHour <= cfg.OpenHour || cfg.OpenHour < 0 || cfg.CloseHour > 24 {
		cfg.OpenHour, cfg.CloseHour = def.OpenHour, def.CloseHour
	}
	if cfg.PeakThreshold <= 0 {
		cfg.PeakThreshold = def.PeakThreshold
	}
	if cfg.BusyThreshold <= 0 {
		cfg.BusyThreshold = def.BusyThreshold
	}
	if cfg.NoShowRate < 0 || cfg.NoShowRate > 1 || math.IsNaN(cfg.NoShowRate) {
		cfg.NoShowRate = def.NoShowRate
	}
	return &Forecaster{cfg: cfg}
}

// Predict forecasts flow for date. Every record on that calendar date counts
// toward the total; only hours inside the clinic window can be peaks.
// An unreadable date yields a zero forecast echoing the input.
func (f *Forecaster) Predict(date string, appointments []records.Appointment) FlowForecast {
	out := FlowForecast{
		Date:               date,
		PredictedPeakHours: []PeakHour{},
		BusyPeriods:        []PeakHour{},
	}

	ts := records.ParseTime(date)
	if !ts.Valid {
		return out
	}

	hourly := make([]int, 24)
	for _, appt := range appointments {
		when := appt.When()
		if !when.Valid || !records.SameDate(when.Time, ts.Time) {
			continue
		}
		out.TotalAppointments++
		hourly[when.Time.Hour()]++
	}

	for hour := f.cfg.OpenHour; hour < f.cfg.CloseHour; hour++ {
		count := hourly[hour]
		if count < f.cfg.PeakThreshold {
			continue
		}
		peak := PeakHour{Hour: hour, PredictedCount: count, Status: StatusModerate}
		if count >= f.cfg.BusyThreshold {
			peak.Status = StatusBusy
			out.BusyPeriods = append(out.BusyPeriods, peak)
		}
		out.PredictedPeakHours = append(out.PredictedPeakHours, peak)
	}

	noShows := int(math.Floor(float64(out.TotalAppointments) * f.cfg.NoShowRate))
	out.PredictedNoShows = min(max(noShows, 0), out.TotalAppointments)
	out.ExpectedArrivals = out.TotalAppointments - out.PredictedNoShows
	return out
}
