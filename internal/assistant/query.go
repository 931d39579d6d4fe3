package assistant

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/meditrack/internal/frontdesk"
	"github.com/wolfman30/meditrack/internal/intent"
	"github.com/wolfman30/meditrack/internal/querylog"
	"github.com/wolfman30/meditrack/internal/records"
)

const unknownName = "Unknown"

// QueryResponse is a classified query plus the records it resolved to.
type QueryResponse struct {
	Intent   string            `json:"intent"`
	Entities map[string]string `json:"entities"`
	Results  []any             `json:"results"`
}

// AppointmentResult is one appointment in a query answer.
type AppointmentResult struct {
	Patient string `json:"patient"`
	Doctor  string `json:"doctor"`
	Time    string `json:"time"`
	Status  string `json:"status"`
}

// PatientResult is one patient in a query answer.
type PatientResult struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Contact string `json:"contact"`
	DOB     string `json:"dob"`
}

// ScheduleEntry is one booking on a doctor's schedule.
type ScheduleEntry struct {
	Date    string `json:"date"`
	Patient string `json:"patient"`
	Status  string `json:"status"`
}

// DoctorScheduleResult is one doctor's full schedule.
type DoctorScheduleResult struct {
	Doctor         string          `json:"doctor"`
	Specialization string          `json:"specialization"`
	Appointments   []ScheduleEntry `json:"appointments"`
}

// Query classifies a free-text query and resolves it against storage.
// schedule_appointment and unknown carry no results.
func (s *Service) Query(ctx context.Context, query string) (QueryResponse, error) {
	ctx, span := tracer.Start(ctx, "assistant.query")
	defer span.End()
	defer s.observe("nlp_query", time.Now())

	parsed := s.router.Classify(query)
	s.metrics.ObserveIntent(parsed.Intent)
	span.SetAttributes(attribute.String("meditrack.intent", parsed.Intent))

	results, err := s.resolve(ctx, parsed)
	if err != nil {
		span.RecordError(err)
		return QueryResponse{}, err
	}

	s.record(ctx, parsed, len(results))
	return QueryResponse{Intent: parsed.Intent, Entities: parsed.Entities, Results: results}, nil
}

func (s *Service) resolve(ctx context.Context, parsed intent.Result) ([]any, error) {
	switch parsed.Intent {
	case intent.TodayAppointments:
		today := s.today()
		appts, err := s.repo.ListAppointments(ctx, frontdesk.AppointmentFilter{Day: &today})
		if err != nil {
			return nil, fmt.Errorf("assistant: today's appointments: %w", err)
		}
		return appointmentResults(appts), nil

	case intent.DoctorAppointments:
		doctors, err := s.repo.FindDoctors(ctx, parsed.Entities[intent.EntityDoctorName])
		if err != nil {
			return nil, fmt.Errorf("assistant: find doctors: %w", err)
		}
		if len(doctors) == 0 {
			return []any{}, nil
		}
		filter := frontdesk.AppointmentFilter{DoctorIDs: doctorIDs(doctors)}
		if day := records.ParseTime(parsed.Entities[intent.EntityDate]); day.Valid {
			filter.Day = &day.Time
		}
		appts, err := s.repo.ListAppointments(ctx, filter)
		if err != nil {
			return nil, fmt.Errorf("assistant: doctor appointments: %w", err)
		}
		return appointmentResults(appts), nil

	case intent.PatientSearch:
		patients, err := s.repo.FindPatients(ctx, parsed.Entities[intent.EntityPatientName])
		if err != nil {
			return nil, fmt.Errorf("assistant: find patients: %w", err)
		}
		out := make([]any, 0, len(patients))
		for _, p := range patients {
			out = append(out, PatientResult{ID: p.ID, Name: p.Name, Contact: p.Contact, DOB: p.DOB})
		}
		return out, nil

	case intent.DoctorSchedule:
		doctors, err := s.repo.FindDoctors(ctx, parsed.Entities[intent.EntityDoctorName])
		if err != nil {
			return nil, fmt.Errorf("assistant: find doctors: %w", err)
		}
		out := make([]any, 0, len(doctors))
		for _, d := range doctors {
			appts, err := s.repo.ListAppointments(ctx, frontdesk.AppointmentFilter{DoctorIDs: []int{d.ID}})
			if err != nil {
				return nil, fmt.Errorf("assistant: doctor schedule: %w", err)
			}
			sort.SliceStable(appts, func(i, j int) bool { return appts[i].ScheduledAt.Before(appts[j].ScheduledAt) })
			schedule := make([]ScheduleEntry, 0, len(appts))
			for _, a := range appts {
				schedule = append(schedule, ScheduleEntry{Date: a.Date(), Patient: orUnknown(a.PatientName), Status: a.Status})
			}
			out = append(out, DoctorScheduleResult{Doctor: d.Name, Specialization: d.Specialization, Appointments: schedule})
		}
		return out, nil
	}
	return []any{}, nil
}

func (s *Service) record(ctx context.Context, parsed intent.Result, n int) {
	if s.queryLog == nil {
		return
	}
	keys := make([]string, 0, len(parsed.Entities))
	for k := range parsed.Entities {
		keys = append(keys, k)
	}
	_, err := s.queryLog.Record(ctx, querylog.Entry{
		Query:       parsed.OriginalQuery,
		Intent:      parsed.Intent,
		EntityKeys:  keys,
		ResultCount: n,
	})
	if err != nil {
		s.logger.Warn("failed to record nlp query", "intent", parsed.Intent, "error", err)
	}
}

func appointmentResults(appts []frontdesk.AppointmentDetail) []any {
	out := make([]any, 0, len(appts))
	for _, a := range appts {
		out = append(out, AppointmentResult{
			Patient: orUnknown(a.PatientName),
			Doctor:  orUnknown(a.DoctorName),
			Time:    a.Date(),
			Status:  a.Status,
		})
	}
	return out
}

func doctorIDs(doctors []frontdesk.Doctor) []int {
	ids := make([]int, len(doctors))
	for i, d := range doctors {
		ids[i] = d.ID
	}
	return ids
}

func orUnknown(name string) string {
	if name == "" {
		return unknownName
	}
	return name
}
