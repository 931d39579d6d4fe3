// Package scheduling suggests appointment times for a doctor's day: a fixed
// grid of candidate slots, occupancy filtering, and pluggable slot scoring.
package scheduling

import (
	"fmt"
	"time"

	"github.com/wolfman30/meditrack/internal/records"
)

// TimeOfDay is an (hour, minute) pair on the clinic clock.
type TimeOfDay struct {
	Hour   int
	Minute int
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// Occupied is the set of already-booked start times for one doctor and day.
type Occupied map[TimeOfDay]struct{}

// NewOccupied builds a set from explicit times.
func NewOccupied(times ...TimeOfDay) Occupied {
	o := make(Occupied, len(times))
	for _, t := range times {
		o[t] = struct{}{}
	}
	return o
}

// Has reports whether t is booked. A nil set has nothing booked.
func (o Occupied) Has(t TimeOfDay) bool {
	_, ok := o[t]
	return ok
}

// OccupiedTimes collects the start times of appointments falling on day's
// calendar date. Records with unreadable dates are skipped.
func OccupiedTimes(appointments []records.Appointment, day time.Time) Occupied {
	o := make(Occupied)
	for _, appt := range appointments {
		ts := appt.When()
		if !ts.Valid || !records.SameDate(ts.Time, day) {
			continue
		}
		o[TimeOfDay{Hour: ts.Time.Hour(), Minute: ts.Time.Minute()}] = struct{}{}
	}
	return o
}

// GridConfig describes the bookable window: slots start every SlotMinutes
// from StartHour up to, but not including, EndHour.
type GridConfig struct {
	StartHour   int
	EndHour     int
	SlotMinutes int
}

// DefaultGridConfig is 09:00 to 17:00 in 30 minute steps.
func DefaultGridConfig() GridConfig {
	return GridConfig{StartHour: 9, EndHour: 17, SlotMinutes: 30}
}

func (c GridConfig) normalized() GridConfig {
	def := DefaultGridConfig()
	if c.StartHour < 0 || c.StartHour > 23 {
		c.StartHour = def.StartHour
	}
	if c.EndHour <= c.StartHour || c.EndHour > 24 {
		c.EndHour = def.EndHour
		if c.EndHour <= c.StartHour {
			c.EndHour = 24
		}
	}
	if c.SlotMinutes <= 0 {
		c.SlotMinutes = def.SlotMinutes
	}
	return c
}

// Grid generates candidate slots for a day.
type Grid struct {
	cfg GridConfig
}

// NewGrid creates a grid. Out-of-range settings fall back to defaults.
func NewGrid(cfg GridConfig) *Grid {
	return &Grid{cfg: cfg.normalized()}
}

// Config returns the effective grid settings.
func (g *Grid) Config() GridConfig {
	return g.cfg
}

// Slots returns every candidate start time on day's date, earliest first.
func (g *Grid) Slots(day time.Time) []time.Time {
	base := records.StartOfDay(day)
	start := g.cfg.StartHour * 60
	end := g.cfg.EndHour * 60

	slots := make([]time.Time, 0, (end-start)/g.cfg.SlotMinutes+1)
	for m := start; m < end; m += g.cfg.SlotMinutes {
		slots = append(slots, base.Add(time.Duration(m)*time.Minute))
	}
	return slots
}

// Free returns the candidate slots not present in occupied, earliest first.
func (g *Grid) Free(day time.Time, occupied Occupied) []time.Time {
	all := g.Slots(day)
	free := make([]time.Time, 0, len(all))
	for _, slot := range all {
		if occupied.Has(TimeOfDay{Hour: slot.Hour(), Minute: slot.Minute()}) {
			continue
		}
		free = append(free, slot)
	}
	return free
}

// FreeLabels is Free rendered as "HH:MM" strings.
func (g *Grid) FreeLabels(day time.Time, occupied Occupied) []string {
	free := g.Free(day, occupied)
	labels := make([]string, len(free))
	for i, slot := range free {
		labels[i] = slot.Format("15:04")
	}
	return labels
}
